package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/autodev/internal/utils"
	"github.com/tyemirov/autodev/internal/version"
	"github.com/tyemirov/autodev/internal/workflow"
)

const (
	applicationNameConstant                 = "autodev"
	applicationShortDescriptionConstant     = "Automated issue-to-pull-request development workflow"
	applicationLongDescriptionConstant      = "autodev drives a conversational AI assistant through an automated development workflow: it loads a GitHub issue and its pre-computed analysis, creates a working branch, converses with the assistant until the implementation is complete, validates the result with the project quality gates, and publishes a pull request."
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	environmentPrefixConstant               = "AUTODEV"
	configurationFlagNameConstant           = "config"
	configurationFlagUsageConstant          = "Path to the configuration file"
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Log level (debug, info, warn, error)"
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Log format (structured, console)"
	versionFlagNameConstant                 = "version"
	versionFlagUsageConstant                = "Print the application version and exit"
	versionCommandUseConstant               = "version"
	versionCommandShortDescriptionConstant  = "Print the application version"
	versionOutputTemplateConstant           = "%s %s\n"
	defaultLogLevelKeyConstant              = "common.log_level"
	defaultLogFormatKeyConstant             = "common.log_format"
	defaultLogLevelValueConstant            = "info"
	defaultLogFormatValueConstant           = "structured"
	xdgConfigHomeEnvironmentNameConstant    = "XDG_CONFIG_HOME"
	homeConfigurationDirectoryNameConstant  = ".autodev"
	currentDirectorySearchPathConstant      = "."
)

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	consoleLogger         *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
	versionFlag           bool
	versionResolver       func(context.Context) string
	exitFunction          func(int)
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() (*Application, error) {
	application := &Application{
		loggerFactory: utils.NewLoggerFactory(),
		logger:        zap.NewNop(),
		consoleLogger: zap.NewNop(),
	}
	application.versionResolver = resolveVersion
	application.exitFunction = os.Exit

	application.configurationLoader = utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		resolveConfigurationSearchPaths(),
	)
	embeddedConfigurationData, embeddedConfigurationType := EmbeddedDefaultConfiguration()
	application.configurationLoader.SetEmbeddedConfiguration(embeddedConfigurationData, embeddedConfigurationType)

	rootCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, _ []string) error {
			if initializationError := application.initializeConfiguration(); initializationError != nil {
				return initializationError
			}
			if application.versionFlag {
				fmt.Fprintf(command.OutOrStdout(), versionOutputTemplateConstant, applicationNameConstant, application.versionResolver(command.Context()))
				application.exitFunction(0)
			}
			return nil
		},
		RunE: func(command *cobra.Command, _ []string) error {
			return command.Help()
		},
	}

	rootCommand.PersistentFlags().StringVar(&application.configurationFilePath, configurationFlagNameConstant, "", configurationFlagUsageConstant)
	rootCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	rootCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	rootCommand.PersistentFlags().BoolVar(&application.versionFlag, versionFlagNameConstant, false, versionFlagUsageConstant)

	rootCommand.AddCommand(application.buildVersionCommand())

	runCommandBuilder := &workflow.CommandBuilder{
		LoggerProvider:        func() *zap.Logger { return application.logger },
		ConfigurationProvider: func() workflow.CommandConfiguration { return application.configuration.Workflow },
	}
	runCommand, runCommandError := runCommandBuilder.Build()
	if runCommandError != nil {
		return nil, runCommandError
	}
	rootCommand.AddCommand(runCommand)

	application.rootCommand = rootCommand
	return application, nil
}

// Execute runs the root command.
func (application *Application) Execute() error {
	return application.rootCommand.Execute()
}

// RootCommand exposes the assembled root command.
func (application *Application) RootCommand() *cobra.Command {
	return application.rootCommand
}

// Execute constructs the application and runs it.
func Execute() error {
	application, creationError := NewApplication()
	if creationError != nil {
		return creationError
	}
	return application.Execute()
}

func (application *Application) initializeConfiguration() error {
	configuration := ApplicationConfiguration{}
	metadata, loadError := application.configurationLoader.LoadConfiguration(
		application.configurationFilePath,
		defaultConfigurationValues(),
		&configuration,
	)
	if loadError != nil {
		return loadError
	}

	application.configuration = configuration
	application.configurationMetadata = metadata

	effectiveLogLevel := configuration.Common.LogLevel
	if len(strings.TrimSpace(application.logLevelFlagValue)) > 0 {
		effectiveLogLevel = application.logLevelFlagValue
	}
	effectiveLogFormat := configuration.Common.LogFormat
	if len(strings.TrimSpace(application.logFormatFlagValue)) > 0 {
		effectiveLogFormat = application.logFormatFlagValue
	}

	loggerOutputs, loggerError := application.loggerFactory.CreateLoggerOutputs(
		utils.LogLevel(effectiveLogLevel),
		utils.LogFormat(effectiveLogFormat),
	)
	if loggerError != nil {
		return loggerError
	}
	application.logger = loggerOutputs.DiagnosticLogger
	application.consoleLogger = loggerOutputs.ConsoleLogger
	return nil
}

func (application *Application) buildVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   versionCommandUseConstant,
		Short: versionCommandShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			fmt.Fprintf(command.OutOrStdout(), versionOutputTemplateConstant, applicationNameConstant, application.versionResolver(command.Context()))
			return nil
		},
	}
}

func resolveVersion(executionContext context.Context) string {
	return version.Detect(executionContext, version.Dependencies{})
}

func resolveConfigurationSearchPaths() []string {
	searchPaths := []string{currentDirectorySearchPathConstant}

	if xdgConfigHome := strings.TrimSpace(os.Getenv(xdgConfigHomeEnvironmentNameConstant)); len(xdgConfigHome) > 0 {
		searchPaths = append(searchPaths, filepath.Join(xdgConfigHome, applicationNameConstant))
	}
	if homeDirectory, homeError := os.UserHomeDir(); homeError == nil {
		searchPaths = append(searchPaths, filepath.Join(homeDirectory, homeConfigurationDirectoryNameConstant))
	}
	return searchPaths
}
