package credentials

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	runDateLayoutConstant               = "01-02-2006"
	defaultSourceTagConstant            = "SZ2CP"
	migrationIdentifierTemplateConstant = "%s-%s-%s"
	secretMaskCharacterConstant         = "*"
	secretMaskVisibleLengthConstant     = 2
)

// Record is a single exported credential awaiting migration.
type Record struct {
	Secret              string
	VLANIdentifier      string
	UserName            string
	MigrationIdentifier string
	Attributes          map[string]string
}

// RecordSet maps secret values to their records.
type RecordSet map[string]Record

// RunContext carries values fixed for the duration of one migration run.
type RunContext struct {
	SourceTag string
	RunDate   string
}

// NewRunContext stamps a run with the provided source tag and date.
func NewRunContext(sourceTag string, runTime time.Time) RunContext {
	trimmedSourceTag := strings.TrimSpace(sourceTag)
	if len(trimmedSourceTag) == 0 {
		trimmedSourceTag = defaultSourceTagConstant
	}
	return RunContext{
		SourceTag: trimmedSourceTag,
		RunDate:   runTime.Format(runDateLayoutConstant),
	}
}

// DefaultSourceTag returns the tag used when none is configured.
func DefaultSourceTag() string {
	return defaultSourceTagConstant
}

// IdentityGenerator produces migration identities for loaded records.
type IdentityGenerator interface {
	GenerateIdentity(runContext RunContext) string
}

// IdentityGeneratorFunc adapts a function to IdentityGenerator.
type IdentityGeneratorFunc func(runContext RunContext) string

// GenerateIdentity invokes the wrapped function.
func (generatorFunction IdentityGeneratorFunc) GenerateIdentity(runContext RunContext) string {
	return generatorFunction(runContext)
}

type uuidIdentityGenerator struct{}

// NewIdentityGenerator returns the default generator, which suffixes identities with a random UUID.
func NewIdentityGenerator() IdentityGenerator {
	return uuidIdentityGenerator{}
}

func (uuidIdentityGenerator) GenerateIdentity(runContext RunContext) string {
	return fmt.Sprintf(migrationIdentifierTemplateConstant, runContext.SourceTag, runContext.RunDate, uuid.NewString())
}

// MaskSecret hides all but the leading characters of a secret for display.
func MaskSecret(secret string) string {
	runes := []rune(secret)
	if len(runes) <= secretMaskVisibleLengthConstant {
		return strings.Repeat(secretMaskCharacterConstant, len(runes))
	}
	return string(runes[:secretMaskVisibleLengthConstant]) + strings.Repeat(secretMaskCharacterConstant, len(runes)-secretMaskVisibleLengthConstant)
}
