package migration

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/pskmigrate/internal/cloudpath"
	"github.com/temirov/pskmigrate/internal/credentials"
	"github.com/temirov/pskmigrate/internal/secrets"
	"github.com/temirov/pskmigrate/internal/utils"
)

const (
	commandUseConstant                      = "migrate"
	commandShortDescriptionConstant         = "Import exported DPSK credentials into the target pool"
	commandLongDescriptionConstant          = "migrate reads a controller DPSK export, tags every credential with a fresh migration identity, and creates each one in the configured credential pool, reporting per-record results."
	unexpectedArgumentsMessageConstant      = "migrate does not accept positional arguments"
	inputMissingMessageConstant             = "input export path must be provided"
	flagInputNameConstant                   = "input"
	flagInputUsageConstant                  = "Path to the exported DPSK CSV file"
	flagHostNameConstant                    = "host"
	flagHostUsageConstant                   = "Target system host name or base URL"
	flagUsernameNameConstant                = "username"
	flagUsernameUsageConstant               = "Administrative user name"
	flagPasswordSourceNameConstant          = "password-source"
	flagPasswordSourceUsageConstant         = "Where to read the administrative password (env:NAME, file:PATH, or prompt:LABEL)"
	flagPoolNameConstant                    = "pool"
	flagPoolUsageConstant                   = "Identifier of the target credential pool"
	flagSourceTagNameConstant               = "source-tag"
	flagSourceTagUsageConstant              = "Prefix for generated migration identities"
	flagReuseTokenNameConstant              = "reuse-token"
	flagReuseTokenUsageConstant             = "Reuse one session token until the target rejects it"
	flagTimeoutNameConstant                 = "timeout"
	flagTimeoutUsageConstant                = "Per-request timeout (0 disables)"
	flagInsecureNameConstant                = "insecure"
	flagInsecureUsageConstant               = "Skip TLS certificate verification"
	passwordResolutionErrorTemplateConstant = "unable to resolve administrative password: %w"
	clientCreationErrorTemplateConstant     = "unable to construct target client: %w"
	loadErrorTemplateConstant               = "unable to load credential export: %w"
	serviceCreationErrorTemplateConstant    = "unable to construct migration service: %w"
	migrationFailedErrorTemplateConstant    = "credential migration incomplete: %w"
	logMessageLoadFailedConstant            = "Credential export could not be loaded"
	logMessageConfigurationResolvedConstant = "Migration configuration resolved"
	logFieldInputConstant                   = "input"
	logFieldBaseURLConstant                 = "base_url"
	logFieldPoolConstant                    = "pool"
	logFieldReuseTokenConstant              = "reuse_token"
	logFieldRunDateConstant                 = "run_date"
	logFieldSourceTagConstant               = "source_tag"
	logFieldConfigurationFileConstant       = "config_file"
)

var (
	errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)
	// ErrInputMissing indicates no export path was configured.
	ErrInputMissing = errors.New(inputMissingMessageConstant)
)

// TargetClient is the subset of the target API used by a migration run.
type TargetClient interface {
	Authenticator
	CredentialSubmitter
}

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ClientProvider constructs the target API client.
type ClientProvider func(logger *zap.Logger, configuration cloudpath.ClientConfiguration) (TargetClient, error)

// Clock abstracts the current time so run dates are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard library.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// CommandBuilder assembles the migrate Cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	ClientProvider        ClientProvider
	SecretResolver        *secrets.Resolver
	IdentityGenerator     credentials.IdentityGenerator
	Clock                 Clock
}

// Build constructs the migrate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          builder.run,
	}

	command.Flags().String(flagInputNameConstant, "", flagInputUsageConstant)
	command.Flags().String(flagHostNameConstant, "", flagHostUsageConstant)
	command.Flags().String(flagUsernameNameConstant, "", flagUsernameUsageConstant)
	command.Flags().String(flagPasswordSourceNameConstant, "", flagPasswordSourceUsageConstant)
	command.Flags().String(flagPoolNameConstant, "", flagPoolUsageConstant)
	command.Flags().String(flagSourceTagNameConstant, "", flagSourceTagUsageConstant)
	command.Flags().Bool(flagReuseTokenNameConstant, false, flagReuseTokenUsageConstant)
	command.Flags().Duration(flagTimeoutNameConstant, 0, flagTimeoutUsageConstant)
	command.Flags().Bool(flagInsecureNameConstant, false, flagInsecureUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	configuration := builder.parseOptions(command)
	if len(configuration.InputPath) == 0 {
		return ErrInputMissing
	}

	logger := builder.resolveLogger()
	output := utils.NewFlushingWriter(command.OutOrStdout())

	runContext := credentials.NewRunContext(configuration.SourceTag, builder.resolveClock().Now())
	configurationFilePath, _ := utils.NewCommandContextAccessor().ConfigurationFilePath(command.Context())
	logger.Info(
		logMessageConfigurationResolvedConstant,
		zap.String(logFieldInputConstant, configuration.InputPath),
		zap.String(logFieldBaseURLConstant, configuration.Host),
		zap.String(logFieldPoolConstant, configuration.PoolIdentifier),
		zap.Bool(logFieldReuseTokenConstant, configuration.ReuseToken),
		zap.String(logFieldSourceTagConstant, runContext.SourceTag),
		zap.String(logFieldRunDateConstant, runContext.RunDate),
		zap.String(logFieldConfigurationFileConstant, configurationFilePath),
	)

	loader := credentials.NewLoader(credentials.LoaderDependencies{
		Logger:            logger,
		IdentityGenerator: builder.IdentityGenerator,
		Progress:          credentials.NewDotProgressReporter(output),
		Options:           configuration.loaderOptions(),
	})
	records, loadError := loader.Load(configuration.InputPath, runContext)
	if loadError != nil {
		logger.Error(logMessageLoadFailedConstant, zap.String(logFieldInputConstant, configuration.InputPath), zap.Error(loadError))
		return fmt.Errorf(loadErrorTemplateConstant, loadError)
	}

	password, passwordError := builder.resolvePassword(configuration)
	if passwordError != nil {
		return fmt.Errorf(passwordResolutionErrorTemplateConstant, passwordError)
	}

	client, clientError := builder.resolveClient(logger, cloudpath.ClientConfiguration{
		BaseURL:            configuration.Host,
		Username:           configuration.Username,
		Password:           password,
		PoolIdentifier:     configuration.PoolIdentifier,
		RequestTimeout:     configuration.RequestTimeout,
		InsecureSkipVerify: configuration.InsecureSkipVerify,
	})
	if clientError != nil {
		return fmt.Errorf(clientCreationErrorTemplateConstant, clientError)
	}

	service, serviceError := NewService(ServiceDependencies{
		Logger:        logger,
		Submitter:     client,
		TokenProvider: builder.resolveTokenProvider(configuration, client),
		Output:        output,
	})
	if serviceError != nil {
		return fmt.Errorf(serviceCreationErrorTemplateConstant, serviceError)
	}

	summary := service.Run(command.Context(), records)
	service.WriteSummary(summary)

	if summaryError := summary.Err(); summaryError != nil {
		return fmt.Errorf(migrationFailedErrorTemplateConstant, summaryError)
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) CommandConfiguration {
	configuration := builder.resolveConfiguration()

	stringOverrides := []struct {
		flagName string
		target   *string
	}{
		{flagName: flagInputNameConstant, target: &configuration.InputPath},
		{flagName: flagHostNameConstant, target: &configuration.Host},
		{flagName: flagUsernameNameConstant, target: &configuration.Username},
		{flagName: flagPasswordSourceNameConstant, target: &configuration.PasswordSource},
		{flagName: flagPoolNameConstant, target: &configuration.PoolIdentifier},
		{flagName: flagSourceTagNameConstant, target: &configuration.SourceTag},
	}
	for _, override := range stringOverrides {
		if command.Flags().Changed(override.flagName) {
			flagValue, _ := command.Flags().GetString(override.flagName)
			*override.target = flagValue
		}
	}

	if command.Flags().Changed(flagPasswordSourceNameConstant) {
		configuration.Password = ""
	}
	if command.Flags().Changed(flagReuseTokenNameConstant) {
		configuration.ReuseToken, _ = command.Flags().GetBool(flagReuseTokenNameConstant)
	}
	if command.Flags().Changed(flagTimeoutNameConstant) {
		configuration.RequestTimeout, _ = command.Flags().GetDuration(flagTimeoutNameConstant)
	}
	if command.Flags().Changed(flagInsecureNameConstant) {
		configuration.InsecureSkipVerify, _ = command.Flags().GetBool(flagInsecureNameConstant)
	}

	return configuration.Sanitize()
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolvePassword(configuration CommandConfiguration) (string, error) {
	if len(configuration.Password) > 0 {
		return configuration.Password, nil
	}
	resolver := builder.SecretResolver
	if resolver == nil {
		resolver = secrets.NewResolver(nil, nil)
	}
	return resolver.ResolveDeclaration(configuration.PasswordSource)
}

func (builder *CommandBuilder) resolveClient(logger *zap.Logger, configuration cloudpath.ClientConfiguration) (TargetClient, error) {
	if builder.ClientProvider != nil {
		return builder.ClientProvider(logger, configuration)
	}
	client, clientError := cloudpath.NewClient(logger, configuration)
	if clientError != nil {
		return nil, clientError
	}
	return client, nil
}

func (builder *CommandBuilder) resolveClock() Clock {
	if builder.Clock != nil {
		return builder.Clock
	}
	return SystemClock{}
}

func (builder *CommandBuilder) resolveTokenProvider(configuration CommandConfiguration, authenticator Authenticator) TokenProvider {
	if configuration.ReuseToken {
		return NewCachedTokenProvider(authenticator)
	}
	return NewPerRequestTokenProvider(authenticator)
}
