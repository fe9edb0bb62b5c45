package utils

import (
	"bytes"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorConstant        = "_"
	configurationKeySeparatorConstant      = "."
	defaultConfigurationSearchPathConstant = "."
)

// LoadedConfiguration describes metadata about the configuration sources that were applied.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// ConfigurationLoader resolves configuration values from embedded defaults, configuration files, and environment variables.
type ConfigurationLoader struct {
	configurationName         string
	configurationType         string
	environmentPrefix         string
	searchPaths               []string
	embeddedConfiguration     []byte
	embeddedConfigurationType string
}

// NewConfigurationLoader constructs a ConfigurationLoader for the provided configuration name, type, and environment prefix.
// When searchPaths is empty the working directory is searched.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	resolvedSearchPaths := searchPaths
	if len(resolvedSearchPaths) == 0 {
		resolvedSearchPaths = []string{defaultConfigurationSearchPathConstant}
	}
	return &ConfigurationLoader{
		configurationName: configurationName,
		configurationType: configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       resolvedSearchPaths,
	}
}

// SetEmbeddedConfiguration registers embedded configuration content applied beneath every other source.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationContent []byte, configurationType string) {
	loader.embeddedConfiguration = configurationContent
	loader.embeddedConfigurationType = configurationType
}

// LoadConfiguration merges embedded defaults, the discovered or explicit configuration file, and environment overrides into target.
func (loader *ConfigurationLoader) LoadConfiguration(explicitConfigurationFilePath string, defaultValues map[string]any, target any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigType(loader.configurationType)

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if len(loader.embeddedConfiguration) > 0 {
		embeddedType := loader.embeddedConfigurationType
		if len(embeddedType) == 0 {
			embeddedType = loader.configurationType
		}
		embeddedViper := viper.New()
		embeddedViper.SetConfigType(embeddedType)
		if embeddedReadError := embeddedViper.ReadConfig(bytes.NewReader(loader.embeddedConfiguration)); embeddedReadError != nil {
			return LoadedConfiguration{}, embeddedReadError
		}
		if mergeError := viperInstance.MergeConfigMap(embeddedViper.AllSettings()); mergeError != nil {
			return LoadedConfiguration{}, mergeError
		}
	}

	configurationFileUsed := ""
	trimmedExplicitPath := strings.TrimSpace(explicitConfigurationFilePath)
	if len(trimmedExplicitPath) > 0 {
		fileViper := viper.New()
		fileViper.SetConfigFile(trimmedExplicitPath)
		if readError := fileViper.ReadInConfig(); readError != nil {
			return LoadedConfiguration{}, readError
		}
		if mergeError := viperInstance.MergeConfigMap(fileViper.AllSettings()); mergeError != nil {
			return LoadedConfiguration{}, mergeError
		}
		configurationFileUsed = trimmedExplicitPath
	} else {
		fileViper := viper.New()
		fileViper.SetConfigName(loader.configurationName)
		fileViper.SetConfigType(loader.configurationType)
		for _, searchPath := range loader.searchPaths {
			fileViper.AddConfigPath(searchPath)
		}
		if readError := fileViper.ReadInConfig(); readError == nil {
			if mergeError := viperInstance.MergeConfigMap(fileViper.AllSettings()); mergeError != nil {
				return LoadedConfiguration{}, mergeError
			}
			configurationFileUsed = fileViper.ConfigFileUsed()
		}
	}

	if len(loader.environmentPrefix) > 0 {
		viperInstance.SetEnvPrefix(loader.environmentPrefix)
		viperInstance.SetEnvKeyReplacer(strings.NewReplacer(configurationKeySeparatorConstant, environmentKeySeparatorConstant))
		viperInstance.AutomaticEnv()
	}

	if target != nil {
		weaklyTypedDecoding := func(decoderConfiguration *mapstructure.DecoderConfig) {
			decoderConfiguration.WeaklyTypedInput = true
		}
		if unmarshalError := viperInstance.Unmarshal(target, weaklyTypedDecoding); unmarshalError != nil {
			return LoadedConfiguration{}, unmarshalError
		}
	}

	return LoadedConfiguration{ConfigFileUsed: configurationFileUsed}, nil
}
