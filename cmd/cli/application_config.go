package cli

import (
	_ "embed"

	"github.com/tyemirov/autodev/internal/workflow"
)

//go:embed config.yaml
var embeddedDefaultConfigurationContent []byte

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common   ApplicationCommonConfiguration `mapstructure:"common"`
	Workflow workflow.CommandConfiguration  `mapstructure:"workflow"`
}

// ApplicationCommonConfiguration stores logging defaults shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// EmbeddedDefaultConfiguration returns the embedded default configuration content and type.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return embeddedDefaultConfigurationContent, configurationTypeConstant
}

func defaultConfigurationValues() map[string]any {
	return map[string]any{
		defaultLogLevelKeyConstant:  defaultLogLevelValueConstant,
		defaultLogFormatKeyConstant: defaultLogFormatValueConstant,
	}
}
