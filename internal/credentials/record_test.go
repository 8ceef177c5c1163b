package credentials_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/pskmigrate/internal/credentials"
)

var uuidIdentityPattern = regexp.MustCompile(`^SZ2CP-12-31-2025-[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestNewRunContextDefaultsSourceTag(testInstance *testing.T) {
	runContext := credentials.NewRunContext("  ", time.Date(2025, time.December, 31, 23, 59, 0, 0, time.UTC))
	require.Equal(testInstance, credentials.DefaultSourceTag(), runContext.SourceTag)
	require.Equal(testInstance, "12-31-2025", runContext.RunDate)
}

func TestIdentityGeneratorFormat(testInstance *testing.T) {
	runContext := credentials.NewRunContext("SZ2CP", time.Date(2025, time.December, 31, 8, 0, 0, 0, time.UTC))
	generator := credentials.NewIdentityGenerator()

	first := generator.GenerateIdentity(runContext)
	second := generator.GenerateIdentity(runContext)

	require.Regexp(testInstance, uuidIdentityPattern, first)
	require.Regexp(testInstance, uuidIdentityPattern, second)
	require.NotEqual(testInstance, first, second)
}

func TestMaskSecret(testInstance *testing.T) {
	testCases := []struct {
		name     string
		secret   string
		expected string
	}{
		{name: "empty", secret: "", expected: ""},
		{name: "short", secret: "ab", expected: "**"},
		{name: "regular", secret: "abc123", expected: "ab****"},
		{name: "multibyte", secret: "päss", expected: "pä**"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, credentials.MaskSecret(testCase.secret))
		})
	}
}
