package migration_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/pskmigrate/internal/cloudpath"
	"github.com/temirov/pskmigrate/internal/credentials"
	"github.com/temirov/pskmigrate/internal/migration"
)

const (
	defaultFakeTokenConstant        = "token-default"
	firstSecretConstant             = "abc123"
	secondSecretConstant            = "xyz789"
	thirdSecretConstant             = "zzz000"
	firstMaskedSecretConstant       = "ab****"
	secondMaskedSecretConstant      = "xy****"
	firstIdentifierConstant         = "SZ2CP-03-04-2026-first"
	secondIdentifierConstant        = "SZ2CP-03-04-2026-second"
	thirdIdentifierConstant         = "SZ2CP-03-04-2026-third"
	logFieldSecretNameConstant      = "secret"
	authenticationFailureConstant   = "target unreachable"
	rejectedResponseBodyConstant    = `{"message":"invalid vlan"}`
	successfulConsoleOutputConstant = "Creating DPSK ab**** <Response [201]>\nCreating DPSK xy**** <Response [201]>\n"
)

type fakeAuthenticator struct {
	tokens []string
	errors []error
	calls  int
}

func (authenticator *fakeAuthenticator) Authenticate(context.Context) (string, error) {
	callIndex := authenticator.calls
	authenticator.calls++

	if callIndex < len(authenticator.errors) && authenticator.errors[callIndex] != nil {
		return "", authenticator.errors[callIndex]
	}
	if callIndex < len(authenticator.tokens) {
		return authenticator.tokens[callIndex], nil
	}
	return defaultFakeTokenConstant, nil
}

type submitResult struct {
	response cloudpath.SubmissionResponse
	err      error
}

type submitCall struct {
	token  string
	record credentials.Record
}

type fakeSubmitter struct {
	results []submitResult
	calls   []submitCall
}

func (submitter *fakeSubmitter) Submit(_ context.Context, token string, record credentials.Record) (cloudpath.SubmissionResponse, error) {
	callIndex := len(submitter.calls)
	submitter.calls = append(submitter.calls, submitCall{token: token, record: record})

	if callIndex < len(submitter.results) {
		return submitter.results[callIndex].response, submitter.results[callIndex].err
	}
	return createdResult().response, nil
}

func createdResult() submitResult {
	return submitResult{response: cloudpath.SubmissionResponse{StatusCode: http.StatusCreated, Status: "201 Created"}}
}

func rejectedResult(statusCode int, body string) submitResult {
	return submitResult{
		response: cloudpath.SubmissionResponse{StatusCode: statusCode, Body: body},
		err:      cloudpath.SubmitError{StatusCode: statusCode, Body: body, Cause: errors.New(http.StatusText(statusCode))},
	}
}

func twoRecordSet() credentials.RecordSet {
	return credentials.RecordSet{
		secondSecretConstant: {Secret: secondSecretConstant, VLANIdentifier: "20", UserName: "bob", MigrationIdentifier: secondIdentifierConstant},
		firstSecretConstant:  {Secret: firstSecretConstant, VLANIdentifier: "10", UserName: "alice", MigrationIdentifier: firstIdentifierConstant},
	}
}

func threeRecordSet() credentials.RecordSet {
	records := twoRecordSet()
	records[thirdSecretConstant] = credentials.Record{Secret: thirdSecretConstant, VLANIdentifier: "30", UserName: "carol", MigrationIdentifier: thirdIdentifierConstant}
	return records
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	_, missingSubmitterError := migration.NewService(migration.ServiceDependencies{
		TokenProvider: migration.NewPerRequestTokenProvider(&fakeAuthenticator{}),
	})
	require.ErrorIs(testInstance, missingSubmitterError, migration.ErrSubmitterNotConfigured)

	_, missingProviderError := migration.NewService(migration.ServiceDependencies{Submitter: &fakeSubmitter{}})
	require.ErrorIs(testInstance, missingProviderError, migration.ErrTokenProviderNotConfigured)
}

func TestServiceRunScenarios(testInstance *testing.T) {
	testCases := []struct {
		name                   string
		records                credentials.RecordSet
		reuseToken             bool
		authenticator          *fakeAuthenticator
		submitResults          []submitResult
		expectedAuthentication int
		expectedTokens         []string
		expectedSucceeded      int
		expectedFailed         int
		expectedFailureStages  []migration.Stage
		expectedOutput         string
	}{
		{
			name:                   "authenticates_once_per_record",
			records:                twoRecordSet(),
			authenticator:          &fakeAuthenticator{tokens: []string{"token-1", "token-2"}},
			expectedAuthentication: 2,
			expectedTokens:         []string{"token-1", "token-2"},
			expectedSucceeded:      2,
			expectedOutput:         successfulConsoleOutputConstant,
		},
		{
			name:                   "authentication_failure_skips_only_that_record",
			records:                twoRecordSet(),
			authenticator:          &fakeAuthenticator{errors: []error{errors.New(authenticationFailureConstant)}},
			expectedAuthentication: 2,
			expectedTokens:         []string{defaultFakeTokenConstant},
			expectedSucceeded:      1,
			expectedFailed:         1,
			expectedFailureStages:  []migration.Stage{migration.StageAuthenticate},
			expectedOutput:         "Creating DPSK ab**** failed: target unreachable\nCreating DPSK xy**** <Response [201]>\n",
		},
		{
			name:                   "rejected_submission_is_reported_and_run_continues",
			records:                twoRecordSet(),
			authenticator:          &fakeAuthenticator{},
			submitResults:          []submitResult{rejectedResult(http.StatusBadRequest, rejectedResponseBodyConstant)},
			expectedAuthentication: 2,
			expectedTokens:         []string{defaultFakeTokenConstant, defaultFakeTokenConstant},
			expectedSucceeded:      1,
			expectedFailed:         1,
			expectedFailureStages:  []migration.Stage{migration.StageSubmit},
			expectedOutput:         "Creating DPSK ab**** <Response [400]>\nCreating DPSK xy**** <Response [201]>\n",
		},
		{
			name:                   "per_request_tokens_are_not_resubmitted_on_rejection",
			records:                twoRecordSet(),
			authenticator:          &fakeAuthenticator{},
			submitResults:          []submitResult{rejectedResult(http.StatusUnauthorized, "")},
			expectedAuthentication: 2,
			expectedTokens:         []string{defaultFakeTokenConstant, defaultFakeTokenConstant},
			expectedSucceeded:      1,
			expectedFailed:         1,
			expectedFailureStages:  []migration.Stage{migration.StageSubmit},
			expectedOutput:         "Creating DPSK ab**** <Response [401]>\nCreating DPSK xy**** <Response [201]>\n",
		},
		{
			name:                   "reused_token_is_shared_across_records",
			records:                twoRecordSet(),
			reuseToken:             true,
			authenticator:          &fakeAuthenticator{tokens: []string{"token-1"}},
			expectedAuthentication: 1,
			expectedTokens:         []string{"token-1", "token-1"},
			expectedSucceeded:      2,
			expectedOutput:         successfulConsoleOutputConstant,
		},
		{
			name:                   "reused_token_is_refreshed_after_rejection",
			records:                threeRecordSet(),
			reuseToken:             true,
			authenticator:          &fakeAuthenticator{tokens: []string{"token-1", "token-2"}},
			submitResults:          []submitResult{createdResult(), rejectedResult(http.StatusUnauthorized, "")},
			expectedAuthentication: 2,
			expectedTokens:         []string{"token-1", "token-1", "token-2", "token-2"},
			expectedSucceeded:      3,
			expectedOutput:         successfulConsoleOutputConstant + "Creating DPSK zz**** <Response [201]>\n",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			submitter := &fakeSubmitter{results: testCase.submitResults}
			tokenProvider := migration.NewPerRequestTokenProvider(testCase.authenticator)
			if testCase.reuseToken {
				tokenProvider = migration.NewCachedTokenProvider(testCase.authenticator)
			}

			outputBuffer := &bytes.Buffer{}
			service, serviceError := migration.NewService(migration.ServiceDependencies{
				Logger:        zap.NewNop(),
				Submitter:     submitter,
				TokenProvider: tokenProvider,
				Output:        outputBuffer,
			})
			require.NoError(testInstance, serviceError)

			summary := service.Run(context.Background(), testCase.records)

			require.Equal(testInstance, testCase.expectedAuthentication, testCase.authenticator.calls)
			observedTokens := make([]string, 0, len(submitter.calls))
			for _, call := range submitter.calls {
				observedTokens = append(observedTokens, call.token)
			}
			require.Equal(testInstance, testCase.expectedTokens, observedTokens)

			require.Equal(testInstance, len(testCase.records), summary.Attempted)
			require.Equal(testInstance, testCase.expectedSucceeded, summary.Succeeded)
			require.Equal(testInstance, testCase.expectedFailed, summary.Failed)
			require.Len(testInstance, summary.Outcomes, len(testCase.records))

			failureStages := make([]migration.Stage, 0, summary.Failed)
			for _, failure := range summary.Failures() {
				failureStages = append(failureStages, failure.Stage)
			}
			if len(testCase.expectedFailureStages) == 0 {
				require.Empty(testInstance, failureStages)
				require.NoError(testInstance, summary.Err())
			} else {
				require.Equal(testInstance, testCase.expectedFailureStages, failureStages)
				require.ErrorIs(testInstance, summary.Err(), migration.ErrRecordsFailed)
			}

			require.Equal(testInstance, testCase.expectedOutput, outputBuffer.String())
		})
	}
}

func TestServiceRunSubmitsRecordsInSecretOrder(testInstance *testing.T) {
	submitter := &fakeSubmitter{}
	service, serviceError := migration.NewService(migration.ServiceDependencies{
		Submitter:     submitter,
		TokenProvider: migration.NewPerRequestTokenProvider(&fakeAuthenticator{}),
	})
	require.NoError(testInstance, serviceError)

	service.Run(context.Background(), threeRecordSet())

	submittedSecrets := make([]string, 0, len(submitter.calls))
	for _, call := range submitter.calls {
		submittedSecrets = append(submittedSecrets, call.record.Secret)
	}
	require.Equal(testInstance, []string{firstSecretConstant, secondSecretConstant, thirdSecretConstant}, submittedSecrets)
	require.Equal(testInstance, "alice", submitter.calls[0].record.UserName)
	require.Equal(testInstance, "10", submitter.calls[0].record.VLANIdentifier)
}

func TestServiceRunLogsMaskedSecrets(testInstance *testing.T) {
	logCore, observedLogs := observer.New(zap.DebugLevel)
	service, serviceError := migration.NewService(migration.ServiceDependencies{
		Logger:        zap.New(logCore),
		Submitter:     &fakeSubmitter{results: []submitResult{rejectedResult(http.StatusConflict, rejectedResponseBodyConstant)}},
		TokenProvider: migration.NewPerRequestTokenProvider(&fakeAuthenticator{}),
	})
	require.NoError(testInstance, serviceError)

	service.Run(context.Background(), twoRecordSet())

	warningEntries := observedLogs.FilterLevelExact(zap.WarnLevel).All()
	require.Len(testInstance, warningEntries, 1)
	require.Equal(testInstance, firstMaskedSecretConstant, warningEntries[0].ContextMap()[logFieldSecretNameConstant])
	require.Equal(testInstance, rejectedResponseBodyConstant, warningEntries[0].ContextMap()["response_body"])

	for _, entry := range observedLogs.All() {
		for _, fieldValue := range entry.ContextMap() {
			require.NotEqual(testInstance, firstSecretConstant, fieldValue)
			require.NotEqual(testInstance, secondSecretConstant, fieldValue)
		}
	}

	infoEntries := observedLogs.FilterMessage("Credential migrated").All()
	require.Len(testInstance, infoEntries, 1)
	require.Equal(testInstance, secondMaskedSecretConstant, infoEntries[0].ContextMap()[logFieldSecretNameConstant])
}

func TestServiceWriteSummary(testInstance *testing.T) {
	outputBuffer := &bytes.Buffer{}
	service, serviceError := migration.NewService(migration.ServiceDependencies{
		Submitter:     &fakeSubmitter{results: []submitResult{rejectedResult(http.StatusBadRequest, rejectedResponseBodyConstant)}},
		TokenProvider: migration.NewPerRequestTokenProvider(&fakeAuthenticator{}),
		Output:        outputBuffer,
	})
	require.NoError(testInstance, serviceError)

	summary := service.Run(context.Background(), twoRecordSet())
	outputBuffer.Reset()
	service.WriteSummary(summary)

	expectedOutput := "Migrated 1 of 2 credentials (1 failed)\n" +
		"  " + firstIdentifierConstant + " (" + firstMaskedSecretConstant + ") submit: credential creation failed (status 400): Bad Request\n"
	require.Equal(testInstance, expectedOutput, outputBuffer.String())
}
