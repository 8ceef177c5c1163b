package migration

import (
	"strings"
	"time"

	"github.com/temirov/pskmigrate/internal/credentials"
	pathutils "github.com/temirov/pskmigrate/internal/utils/path"
)

const (
	configurationInputKeyConstant          = "input"
	configurationHostKeyConstant           = "host"
	configurationUsernameKeyConstant       = "username"
	configurationPasswordKeyConstant       = "password"
	configurationPasswordSourceKeyConstant = "password_source"
	configurationPoolKeyConstant           = "pool"
	configurationSourceTagKeyConstant      = "source_tag"
	configurationReuseTokenKeyConstant     = "reuse_token"
	configurationTimeoutKeyConstant        = "timeout"
	configurationInsecureKeyConstant       = "insecure"
	configurationSecretColumnKeyConstant   = "secret_column"
	configurationVLANColumnKeyConstant     = "vlan_column"
	configurationUserColumnKeyConstant     = "user_column"
	configurationKeySeparatorConstant      = "."
	defaultPasswordSourceConstant          = "env:PSKMIGRATE_PASSWORD"
)

var migrationConfigurationHomeExpander = pathutils.NewHomeExpander()

// CommandConfiguration captures persisted configuration for the migrate command.
type CommandConfiguration struct {
	InputPath          string        `mapstructure:"input"`
	Host               string        `mapstructure:"host"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	PasswordSource     string        `mapstructure:"password_source"`
	PoolIdentifier     string        `mapstructure:"pool"`
	SourceTag          string        `mapstructure:"source_tag"`
	ReuseToken         bool          `mapstructure:"reuse_token"`
	RequestTimeout     time.Duration `mapstructure:"timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure"`
	SecretColumn       string        `mapstructure:"secret_column"`
	VLANColumn         string        `mapstructure:"vlan_column"`
	UserColumn         string        `mapstructure:"user_column"`
}

// DefaultCommandConfiguration returns baseline configuration values for the migrate command.
func DefaultCommandConfiguration() CommandConfiguration {
	loaderDefaults := credentials.DefaultLoaderOptions()
	return CommandConfiguration{
		PasswordSource: defaultPasswordSourceConstant,
		SourceTag:      credentials.DefaultSourceTag(),
		ReuseToken:     false,
		RequestTimeout: 0,
		SecretColumn:   loaderDefaults.SecretColumn,
		VLANColumn:     loaderDefaults.VLANColumn,
		UserColumn:     loaderDefaults.UserNameColumn,
	}
}

// DefaultConfigurationValues exposes defaults keyed beneath rootKey for the configuration loader.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	prefix := rootKey + configurationKeySeparatorConstant
	return map[string]any{
		prefix + configurationInputKeyConstant:          defaults.InputPath,
		prefix + configurationHostKeyConstant:           defaults.Host,
		prefix + configurationUsernameKeyConstant:       defaults.Username,
		prefix + configurationPasswordKeyConstant:       defaults.Password,
		prefix + configurationPasswordSourceKeyConstant: defaults.PasswordSource,
		prefix + configurationPoolKeyConstant:           defaults.PoolIdentifier,
		prefix + configurationSourceTagKeyConstant:      defaults.SourceTag,
		prefix + configurationReuseTokenKeyConstant:     defaults.ReuseToken,
		prefix + configurationTimeoutKeyConstant:        defaults.RequestTimeout,
		prefix + configurationInsecureKeyConstant:       defaults.InsecureSkipVerify,
		prefix + configurationSecretColumnKeyConstant:   defaults.SecretColumn,
		prefix + configurationVLANColumnKeyConstant:     defaults.VLANColumn,
		prefix + configurationUserColumnKeyConstant:     defaults.UserColumn,
	}
}

// Sanitize trims configured values and expands a leading home shortcut in the input path.
// The password is left untouched.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.InputPath = migrationConfigurationHomeExpander.Expand(strings.TrimSpace(configuration.InputPath))
	sanitized.Host = strings.TrimSpace(configuration.Host)
	sanitized.Username = strings.TrimSpace(configuration.Username)
	sanitized.PasswordSource = strings.TrimSpace(configuration.PasswordSource)
	sanitized.PoolIdentifier = strings.TrimSpace(configuration.PoolIdentifier)
	sanitized.SourceTag = strings.TrimSpace(configuration.SourceTag)
	sanitized.SecretColumn = strings.TrimSpace(configuration.SecretColumn)
	sanitized.VLANColumn = strings.TrimSpace(configuration.VLANColumn)
	sanitized.UserColumn = strings.TrimSpace(configuration.UserColumn)
	return sanitized
}

func (configuration CommandConfiguration) loaderOptions() credentials.LoaderOptions {
	return credentials.LoaderOptions{
		SecretColumn:   configuration.SecretColumn,
		VLANColumn:     configuration.VLANColumn,
		UserNameColumn: configuration.UserColumn,
	}
}
