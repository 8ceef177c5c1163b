package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/temirov/pskmigrate/internal/cloudpath"
	"github.com/temirov/pskmigrate/internal/credentials"
)

const (
	submitterNotConfiguredMessageConstant     = "credential submitter not configured"
	tokenProviderNotConfiguredMessageConstant = "token provider not configured"
	consoleCreatingTemplateConstant           = "Creating DPSK %s "
	consoleResponseTemplateConstant           = "<Response [%d]>\n"
	consoleFailureTemplateConstant            = "failed: %v\n"
	consoleSummaryTemplateConstant            = "Migrated %d of %d credentials (%d failed)\n"
	consoleFailureDetailTemplateConstant      = "  %s (%s) %s: %v\n"
	runStartedMessageConstant                 = "Credential migration started"
	runCompletedMessageConstant               = "Credential migration completed"
	recordMigratedMessageConstant             = "Credential migrated"
	recordFailedMessageConstant               = "Credential migration failed"
	tokenRejectedMessageConstant              = "Session token rejected, re-authenticating"
	logFieldRecordCountConstant               = "records"
	logFieldAttemptedConstant                 = "attempted"
	logFieldSucceededConstant                 = "succeeded"
	logFieldFailedConstant                    = "failed"
	logFieldMigrationIdentifierConstant       = "migration_id"
	logFieldSecretConstant                    = "secret"
	logFieldStageConstant                     = "stage"
	logFieldStatusCodeConstant                = "status_code"
	logFieldResponseBodyConstant              = "response_body"
)

var (
	// ErrSubmitterNotConfigured indicates the service was constructed without a submitter.
	ErrSubmitterNotConfigured = errors.New(submitterNotConfiguredMessageConstant)
	// ErrTokenProviderNotConfigured indicates the service was constructed without a token provider.
	ErrTokenProviderNotConfigured = errors.New(tokenProviderNotConfiguredMessageConstant)
)

// CredentialSubmitter creates a single credential on the target system.
type CredentialSubmitter interface {
	Submit(requestContext context.Context, token string, record credentials.Record) (cloudpath.SubmissionResponse, error)
}

// ServiceDependencies enumerates collaborators required by Service.
type ServiceDependencies struct {
	Logger        *zap.Logger
	Submitter     CredentialSubmitter
	TokenProvider TokenProvider
	Output        io.Writer
}

// Service submits loaded records one at a time.
type Service struct {
	logger        *zap.Logger
	submitter     CredentialSubmitter
	tokenProvider TokenProvider
	output        io.Writer
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Submitter == nil {
		return nil, ErrSubmitterNotConfigured
	}
	if dependencies.TokenProvider == nil {
		return nil, ErrTokenProviderNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	output := dependencies.Output
	if output == nil {
		output = io.Discard
	}

	return &Service{
		logger:        logger,
		submitter:     dependencies.Submitter,
		tokenProvider: dependencies.TokenProvider,
		output:        output,
	}, nil
}

// Run attempts every record exactly once, in secret order, and reports the outcome of each.
func (service *Service) Run(executionContext context.Context, records credentials.RecordSet) RunSummary {
	service.logger.Info(runStartedMessageConstant, zap.Int(logFieldRecordCountConstant, len(records)))

	summary := RunSummary{Outcomes: make([]RecordOutcome, 0, len(records))}
	for _, secret := range slices.Sorted(maps.Keys(records)) {
		outcome := service.migrateRecord(executionContext, records[secret])
		service.reportOutcome(outcome)
		summary.record(outcome)
	}

	service.logger.Info(
		runCompletedMessageConstant,
		zap.Int(logFieldAttemptedConstant, summary.Attempted),
		zap.Int(logFieldSucceededConstant, summary.Succeeded),
		zap.Int(logFieldFailedConstant, summary.Failed),
	)

	return summary
}

// WriteSummary prints the totals and every failed record.
func (service *Service) WriteSummary(summary RunSummary) {
	fmt.Fprintf(service.output, consoleSummaryTemplateConstant, summary.Succeeded, summary.Attempted, summary.Failed)
	for _, failure := range summary.Failures() {
		fmt.Fprintf(service.output, consoleFailureDetailTemplateConstant, failure.MigrationIdentifier, failure.MaskedSecret, failure.Stage, failure.Error)
	}
}

func (service *Service) migrateRecord(executionContext context.Context, record credentials.Record) RecordOutcome {
	outcome := RecordOutcome{
		MaskedSecret:        credentials.MaskSecret(record.Secret),
		MigrationIdentifier: record.MigrationIdentifier,
		Stage:               StageAuthenticate,
	}
	fmt.Fprintf(service.output, consoleCreatingTemplateConstant, outcome.MaskedSecret)

	token, tokenError := service.tokenProvider.Token(executionContext)
	if tokenError != nil {
		outcome.Error = tokenError
		return outcome
	}

	outcome.Stage = StageSubmit
	response, submitError := service.submitter.Submit(executionContext, token, record)
	if rejectedToken(submitError) && service.tokenProvider.Invalidate() {
		service.logger.Debug(tokenRejectedMessageConstant, zap.String(logFieldMigrationIdentifierConstant, record.MigrationIdentifier))

		outcome.Stage = StageAuthenticate
		token, tokenError = service.tokenProvider.Token(executionContext)
		if tokenError != nil {
			outcome.Error = tokenError
			return outcome
		}
		outcome.Stage = StageSubmit
		response, submitError = service.submitter.Submit(executionContext, token, record)
	}

	outcome.Response = response
	if submitError != nil {
		outcome.Error = submitError
		return outcome
	}

	outcome.Stage = StageCompleted
	return outcome
}

func (service *Service) reportOutcome(outcome RecordOutcome) {
	if outcome.Response.StatusCode > 0 {
		fmt.Fprintf(service.output, consoleResponseTemplateConstant, outcome.Response.StatusCode)
	} else {
		fmt.Fprintf(service.output, consoleFailureTemplateConstant, outcome.Error)
	}

	if outcome.Succeeded() {
		service.logger.Info(
			recordMigratedMessageConstant,
			zap.String(logFieldMigrationIdentifierConstant, outcome.MigrationIdentifier),
			zap.String(logFieldSecretConstant, outcome.MaskedSecret),
			zap.Int(logFieldStatusCodeConstant, outcome.Response.StatusCode),
		)
		return
	}

	service.logger.Warn(
		recordFailedMessageConstant,
		zap.String(logFieldMigrationIdentifierConstant, outcome.MigrationIdentifier),
		zap.String(logFieldSecretConstant, outcome.MaskedSecret),
		zap.String(logFieldStageConstant, string(outcome.Stage)),
		zap.Int(logFieldStatusCodeConstant, outcome.Response.StatusCode),
		zap.String(logFieldResponseBodyConstant, outcome.Response.Body),
		zap.Error(outcome.Error),
	)
}

func rejectedToken(submitError error) bool {
	var typedError cloudpath.SubmitError
	return errors.As(submitError, &typedError) && typedError.Unauthorized()
}
