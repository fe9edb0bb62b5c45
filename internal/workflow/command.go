package workflow

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/autodev/internal/conversation"
	"github.com/tyemirov/autodev/internal/execshell"
	"github.com/tyemirov/autodev/internal/gitauth"
	"github.com/tyemirov/autodev/internal/githubcli"
	"github.com/tyemirov/autodev/internal/gitrepo"
)

const (
	commandUseNameConstant                  = "run"
	commandShortDescriptionConstant         = "Execute the issue-to-pull-request workflow"
	commandLongDescriptionConstant          = "run drives the full automated development workflow: it authenticates git, creates the issue branch, converses with the assistant until the implementation is marked complete, runs the quality gates, commits, pushes, and opens a pull request. The execution report is written as indented JSON to the output path."
	issueDataFlagNameConstant               = "issue-data"
	issueDataFlagUsageConstant              = "Path to the issue data JSON file"
	analysisDataFlagNameConstant            = "analysis-data"
	analysisDataFlagUsageConstant           = "Path to the analysis data JSON file"
	workspaceFlagNameConstant               = "workspace"
	workspaceFlagUsageConstant              = "Workspace directory path"
	outputFlagNameConstant                  = "output"
	outputFlagUsageConstant                 = "Output path for the execution report"
	environmentFileNameConstant             = ".env"
	anthropicAPIKeyEnvironmentNameConstant  = "ANTHROPIC_API_KEY"
	missingIssueDataTemplateConstant        = "issue data file not found: %s"
	missingAnalysisDataTemplateConstant     = "analysis data file not found: %s"
	missingWorkspaceTemplateConstant        = "workspace directory not found: %s"
	missingAPIKeyMessageConstant            = "ANTHROPIC_API_KEY environment variable is required"
	workflowFailedSummaryTemplateConstant   = "workflow failed: %s"
	summaryOutcomeTemplateConstant          = "\nExecution completed: %s\n"
	summaryStepsTemplateConstant            = "Steps completed: %d\n"
	summaryDurationTemplateConstant         = "Duration: %.2f seconds\n"
	summaryPullRequestTemplateConstant      = "Pull request: %s\n"
	summaryErrorTemplateConstant            = "Error: %s\n"
	summarySuccessOutcomeConstant           = "SUCCESS"
	summaryFailureOutcomeConstant           = "FAILED"
	unknownWorkflowErrorMessageConstant     = "workflow failed"
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// ChatClientFactory builds the assistant chat client for the configured model.
type ChatClientFactory func(apiKey string, modelIdentifier string) (conversation.ChatClient, error)

// CommandConfiguration captures the workflow section of the application configuration.
type CommandConfiguration struct {
	Model              string   `mapstructure:"model"`
	MaxTokens          int64    `mapstructure:"max_tokens"`
	Temperature        float64  `mapstructure:"temperature"`
	MaxIterations      int      `mapstructure:"max_iterations"`
	StatusExcerptLimit int      `mapstructure:"status_excerpt_limit"`
	BaseBranches       []string `mapstructure:"base_branches"`
	Remote             string   `mapstructure:"remote"`
	QualityGates       []string `mapstructure:"quality_gates"`
	DraftPullRequest   bool     `mapstructure:"draft_pull_request"`
	MaxRetainedTurns   int      `mapstructure:"max_retained_turns"`
}

// CommandBuilder assembles the run command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	ChatClientFactory     ChatClientFactory
	CommandRunner         execshell.CommandRunner

	issueDataFlagValue    string
	analysisDataFlagValue string
	workspaceFlagValue    string
	outputFlagValue       string
}

// Build constructs the run command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseNameConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		RunE:          builder.run,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	command.Flags().StringVar(&builder.issueDataFlagValue, issueDataFlagNameConstant, "", issueDataFlagUsageConstant)
	command.Flags().StringVar(&builder.analysisDataFlagValue, analysisDataFlagNameConstant, "", analysisDataFlagUsageConstant)
	command.Flags().StringVar(&builder.workspaceFlagValue, workspaceFlagNameConstant, "", workspaceFlagUsageConstant)
	command.Flags().StringVar(&builder.outputFlagValue, outputFlagNameConstant, "", outputFlagUsageConstant)

	for _, requiredFlagName := range []string{issueDataFlagNameConstant, analysisDataFlagNameConstant, workspaceFlagNameConstant, outputFlagNameConstant} {
		if markError := command.MarkFlagRequired(requiredFlagName); markError != nil {
			return nil, markError
		}
	}

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	// A workspace-local .env is a convenience, not a requirement.
	_ = godotenv.Load(environmentFileNameConstant)

	if validationError := builder.validatePreconditions(); validationError != nil {
		fmt.Fprintln(command.ErrOrStderr(), validationError.Error())
		return validationError
	}

	issueRecord, issueError := LoadIssueRecord(builder.issueDataFlagValue)
	if issueError != nil {
		fmt.Fprintln(command.ErrOrStderr(), issueError.Error())
		return issueError
	}
	analysisRecord, analysisError := LoadAnalysisRecord(builder.analysisDataFlagValue)
	if analysisError != nil {
		fmt.Fprintln(command.ErrOrStderr(), analysisError.Error())
		return analysisError
	}

	runner, runnerError := builder.assembleRunner()
	if runnerError != nil {
		return runnerError
	}

	report := runner.Run(command.Context(), issueRecord, analysisRecord, builder.workspaceFlagValue)

	if writeError := WriteExecutionReport(builder.outputFlagValue, report); writeError != nil {
		return writeError
	}

	builder.printSummary(command, report)

	if !report.Success {
		if report.Error != nil {
			return fmt.Errorf(workflowFailedSummaryTemplateConstant, *report.Error)
		}
		return errors.New(unknownWorkflowErrorMessageConstant)
	}
	return nil
}

func (builder *CommandBuilder) validatePreconditions() error {
	if _, statError := os.Stat(builder.issueDataFlagValue); statError != nil {
		return fmt.Errorf(missingIssueDataTemplateConstant, builder.issueDataFlagValue)
	}
	if _, statError := os.Stat(builder.analysisDataFlagValue); statError != nil {
		return fmt.Errorf(missingAnalysisDataTemplateConstant, builder.analysisDataFlagValue)
	}
	workspaceInfo, workspaceError := os.Stat(builder.workspaceFlagValue)
	if workspaceError != nil || !workspaceInfo.IsDir() {
		return fmt.Errorf(missingWorkspaceTemplateConstant, builder.workspaceFlagValue)
	}
	if len(strings.TrimSpace(os.Getenv(anthropicAPIKeyEnvironmentNameConstant))) == 0 {
		return errors.New(missingAPIKeyMessageConstant)
	}
	return nil
}

func (builder *CommandBuilder) assembleRunner() (*Runner, error) {
	logger := builder.resolveLogger()
	configuration := builder.resolveConfiguration()

	commandRunner := builder.CommandRunner
	if commandRunner == nil {
		commandRunner = execshell.NewOSCommandRunner()
	}
	shellExecutor, executorError := execshell.NewShellExecutor(logger, commandRunner)
	if executorError != nil {
		return nil, executorError
	}

	repositoryManager, repositoryError := gitrepo.NewRepositoryManager(shellExecutor)
	if repositoryError != nil {
		return nil, repositoryError
	}

	githubClient, githubClientError := githubcli.NewClient(shellExecutor)
	if githubClientError != nil {
		return nil, githubClientError
	}

	chatClientFactory := builder.ChatClientFactory
	if chatClientFactory == nil {
		chatClientFactory = func(apiKey string, modelIdentifier string) (conversation.ChatClient, error) {
			return conversation.NewAnthropicClient(apiKey, modelIdentifier)
		}
	}
	chatClient, chatClientError := chatClientFactory(os.Getenv(anthropicAPIKeyEnvironmentNameConstant), configuration.Model)
	if chatClientError != nil {
		return nil, chatClientError
	}

	session, sessionError := conversation.NewSession(chatClient, conversation.SessionOptions{
		MaxTokens:        configuration.MaxTokens,
		Temperature:      configuration.Temperature,
		MaxRetainedTurns: configuration.MaxRetainedTurns,
	})
	if sessionError != nil {
		return nil, sessionError
	}

	gitUserName, gitUserEmail := gitauth.CommitIdentity()

	return NewRunner(RunnerDependencies{
		Logger:           logger,
		Session:          session,
		Repository:       repositoryManager,
		CredentialsStore: gitauth.NewCredentialsStore(gitauth.NewEnvironmentTokenProvider()),
		GitHubClient:     githubClient,
		GateExecutor:     shellExecutor,
	}, RunnerConfiguration{
		RemoteName:          configuration.Remote,
		BaseBranches:        configuration.BaseBranches,
		MaxIterations:       configuration.MaxIterations,
		StatusExcerptLimit:  configuration.StatusExcerptLimit,
		QualityGateCommands: configuration.QualityGates,
		DraftPullRequest:    configuration.DraftPullRequest,
		GitUserName:         gitUserName,
		GitUserEmail:        gitUserEmail,
	})
}

func (builder *CommandBuilder) printSummary(command *cobra.Command, report *ExecutionReport) {
	outcome := summaryFailureOutcomeConstant
	if report.Success {
		outcome = summarySuccessOutcomeConstant
	}

	fmt.Fprintf(command.OutOrStdout(), summaryOutcomeTemplateConstant, outcome)
	fmt.Fprintf(command.OutOrStdout(), summaryStepsTemplateConstant, len(report.Steps))
	fmt.Fprintf(command.OutOrStdout(), summaryDurationTemplateConstant, report.DurationSeconds)
	if report.PullRequestURL != nil {
		fmt.Fprintf(command.OutOrStdout(), summaryPullRequestTemplateConstant, *report.PullRequestURL)
	}
	if report.Error != nil {
		fmt.Fprintf(command.OutOrStdout(), summaryErrorTemplateConstant, *report.Error)
	}
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if logger := builder.LoggerProvider(); logger != nil {
			return logger
		}
	}
	return zap.NewNop()
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider != nil {
		return builder.ConfigurationProvider()
	}
	return CommandConfiguration{}
}
