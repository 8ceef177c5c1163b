package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorOldConstant              = "."
	environmentKeySeparatorNewConstant              = "_"
	sliceSeparatorConstant                          = ","
	configurationReadErrorTemplateConstant          = "failed to read configuration: %w"
	configurationUnmarshalErrorTemplateConstant     = "failed to parse configuration: %w"
	embeddedConfigurationMergeErrorTemplateConstant = "failed to merge embedded configuration: %w"
)

// ConfigurationLoaderOptions describes where configuration is searched for and how environment overrides are named.
type ConfigurationLoaderOptions struct {
	ConfigurationName string
	ConfigurationType string
	EnvironmentPrefix string
	SearchPaths       []string
}

// ConfigurationLoader layers embedded defaults, configuration files, and environment variables through Viper.
type ConfigurationLoader struct {
	options                   ConfigurationLoaderOptions
	environmentKeyReplacer    *strings.Replacer
	embeddedConfiguration     []byte
	embeddedConfigurationType string
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader creates a loader for the provided options.
func NewConfigurationLoader(options ConfigurationLoaderOptions) *ConfigurationLoader {
	copiedOptions := options
	copiedOptions.SearchPaths = append([]string(nil), options.SearchPaths...)

	return &ConfigurationLoader{
		options:                copiedOptions,
		environmentKeyReplacer: strings.NewReplacer(environmentKeySeparatorOldConstant, environmentKeySeparatorNewConstant),
	}
}

// SetEmbeddedConfiguration stores configuration merged beneath any user-provided file.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationType string) {
	if loader == nil {
		return
	}

	loader.embeddedConfigurationType = strings.TrimSpace(configurationType)
	loader.embeddedConfiguration = nil
	if len(configurationData) > 0 {
		loader.embeddedConfiguration = append([]byte(nil), configurationData...)
	}
}

// LoadConfiguration populates targetConfiguration. Precedence from lowest to highest:
// defaultValues, embedded configuration, configuration file, environment variables.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.options.ConfigurationName)
	viperInstance.SetConfigType(loader.options.ConfigurationType)

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if len(loader.embeddedConfiguration) > 0 {
		if len(loader.embeddedConfigurationType) > 0 {
			viperInstance.SetConfigType(loader.embeddedConfigurationType)
		}
		if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.embeddedConfiguration)); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationMergeErrorTemplateConstant, mergeError)
		}
		viperInstance.SetConfigType(loader.options.ConfigurationType)
	}

	for _, searchPath := range loader.options.SearchPaths {
		viperInstance.AddConfigPath(searchPath)
	}

	viperInstance.SetEnvPrefix(loader.options.EnvironmentPrefix)
	viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	viperInstance.AutomaticEnv()

	if len(configurationFilePath) > 0 {
		viperInstance.SetConfigFile(configurationFilePath)
	}

	if readError := viperInstance.MergeInConfig(); readError != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(readError, &notFoundError) {
			return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplateConstant, readError)
		}
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(sliceSeparatorConstant),
	))
	if unmarshalError := viperInstance.Unmarshal(targetConfiguration, decodeHook); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, unmarshalError)
	}

	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}
