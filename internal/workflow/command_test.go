package workflow_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tyemirov/autodev/internal/conversation"
	"github.com/tyemirov/autodev/internal/execshell"
	"github.com/tyemirov/autodev/internal/workflow"
)

const (
	testAPIKeyEnvironmentNameConstant = "ANTHROPIC_API_KEY"
	testGitHubTokenEnvironmentName    = "GITHUB_TOKEN"
	testAPIKeyValueConstant           = "sk-ant-testing"
	testGitHubTokenValueConstant      = "ghp_testing_token"
	testCommandPRURLConstant          = "https://github.com/octo/widgets/pull/9"
)

type passingCommandRunner struct {
	recordedCommands []execshell.ShellCommand
}

func (runner *passingCommandRunner) Run(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recordedCommands = append(runner.recordedCommands, command)
	if command.Name == execshell.CommandGitHub {
		return execshell.ExecutionResult{StandardOutput: testCommandPRURLConstant + "\n"}, nil
	}
	return execshell.ExecutionResult{}, nil
}

type completingChatClient struct{}

func (completingChatClient) Complete(_ context.Context, request conversation.ChatRequest) (string, error) {
	if len(request.Messages) == 1 {
		return "Implementation plan ready.", nil
	}
	return "IMPLEMENTATION_COMPLETE", nil
}

func writeCommandInputs(testInstance *testing.T) (string, string, string, string) {
	testInstance.Helper()
	inputDirectory := testInstance.TempDir()
	workspaceDirectory := testInstance.TempDir()

	issuePath := filepath.Join(inputDirectory, "issue.json")
	require.NoError(testInstance, os.WriteFile(issuePath, []byte(testCompleteIssueJSONConstant), 0o600))
	analysisPath := filepath.Join(inputDirectory, "analysis.json")
	require.NoError(testInstance, os.WriteFile(analysisPath, []byte(testCompleteAnalysisJSONConstant), 0o600))
	outputPath := filepath.Join(inputDirectory, "report.json")

	return issuePath, analysisPath, workspaceDirectory, outputPath
}

func buildRunCommand(testInstance *testing.T, builder *workflow.CommandBuilder, arguments []string) (*cobra.Command, *bytes.Buffer) {
	testInstance.Helper()
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetErr(outputBuffer)
	command.SetArgs(arguments)
	return command, outputBuffer
}

func runCommandConfiguration() workflow.CommandConfiguration {
	return workflow.CommandConfiguration{
		Model:              "claude-3-5-sonnet-20241022",
		MaxTokens:          8192,
		MaxIterations:      20,
		StatusExcerptLimit: 500,
		BaseBranches:       []string{"master", "main"},
		Remote:             "origin",
		QualityGates:       []string{"swiftlint lint --fix", "swiftlint lint", "swift build", "swift test"},
	}
}

func TestRunCommandSuccessfulWorkflow(testInstance *testing.T) {
	testInstance.Setenv(testAPIKeyEnvironmentNameConstant, testAPIKeyValueConstant)
	testInstance.Setenv(testGitHubTokenEnvironmentName, testGitHubTokenValueConstant)

	issuePath, analysisPath, workspaceDirectory, outputPath := writeCommandInputs(testInstance)

	commandRunner := &passingCommandRunner{}
	builder := &workflow.CommandBuilder{
		LoggerProvider:        func() *zap.Logger { return zap.NewNop() },
		ConfigurationProvider: runCommandConfiguration,
		ChatClientFactory: func(string, string) (conversation.ChatClient, error) {
			return completingChatClient{}, nil
		},
		CommandRunner: commandRunner,
	}

	command, outputBuffer := buildRunCommand(testInstance, builder, []string{
		"--issue-data", issuePath,
		"--analysis-data", analysisPath,
		"--workspace", workspaceDirectory,
		"--output", outputPath,
	})

	require.NoError(testInstance, command.Execute())

	report, loadError := workflow.LoadExecutionReport(outputPath)
	require.NoError(testInstance, loadError)
	require.True(testInstance, report.Success)
	require.NotNil(testInstance, report.PullRequestURL)
	require.Equal(testInstance, testCommandPRURLConstant, *report.PullRequestURL)
	require.Len(testInstance, report.Steps, 9)

	require.Contains(testInstance, outputBuffer.String(), "SUCCESS")
	require.Contains(testInstance, outputBuffer.String(), testCommandPRURLConstant)

	credentialsPath := filepath.Join(workspaceDirectory, ".git-credentials")
	credentialsInfo, statError := os.Stat(credentialsPath)
	require.NoError(testInstance, statError)
	require.Equal(testInstance, os.FileMode(0o600), credentialsInfo.Mode().Perm())
}

func TestRunCommandMissingInputFileWritesNoReport(testInstance *testing.T) {
	testInstance.Setenv(testAPIKeyEnvironmentNameConstant, testAPIKeyValueConstant)

	_, analysisPath, workspaceDirectory, outputPath := writeCommandInputs(testInstance)

	builder := &workflow.CommandBuilder{ConfigurationProvider: runCommandConfiguration}
	command, outputBuffer := buildRunCommand(testInstance, builder, []string{
		"--issue-data", filepath.Join(workspaceDirectory, "absent.json"),
		"--analysis-data", analysisPath,
		"--workspace", workspaceDirectory,
		"--output", outputPath,
	})

	require.Error(testInstance, command.Execute())
	require.Contains(testInstance, outputBuffer.String(), "issue data file not found")
	require.NoFileExists(testInstance, outputPath)
}

func TestRunCommandMissingAPIKeyWritesNoReport(testInstance *testing.T) {
	testInstance.Setenv(testAPIKeyEnvironmentNameConstant, "")
	require.NoError(testInstance, os.Unsetenv(testAPIKeyEnvironmentNameConstant))

	issuePath, analysisPath, workspaceDirectory, outputPath := writeCommandInputs(testInstance)

	builder := &workflow.CommandBuilder{ConfigurationProvider: runCommandConfiguration}
	command, outputBuffer := buildRunCommand(testInstance, builder, []string{
		"--issue-data", issuePath,
		"--analysis-data", analysisPath,
		"--workspace", workspaceDirectory,
		"--output", outputPath,
	})

	require.Error(testInstance, command.Execute())
	require.Contains(testInstance, outputBuffer.String(), "ANTHROPIC_API_KEY")
	require.NoFileExists(testInstance, outputPath)
}

func TestRunCommandWorkflowFailureStillWritesReport(testInstance *testing.T) {
	testInstance.Setenv(testAPIKeyEnvironmentNameConstant, testAPIKeyValueConstant)
	testInstance.Setenv(testGitHubTokenEnvironmentName, "")
	require.NoError(testInstance, os.Unsetenv(testGitHubTokenEnvironmentName))

	issuePath, analysisPath, workspaceDirectory, outputPath := writeCommandInputs(testInstance)

	builder := &workflow.CommandBuilder{
		ConfigurationProvider: runCommandConfiguration,
		ChatClientFactory: func(string, string) (conversation.ChatClient, error) {
			return completingChatClient{}, nil
		},
		CommandRunner: &passingCommandRunner{},
	}
	command, outputBuffer := buildRunCommand(testInstance, builder, []string{
		"--issue-data", issuePath,
		"--analysis-data", analysisPath,
		"--workspace", workspaceDirectory,
		"--output", outputPath,
	})

	require.Error(testInstance, command.Execute())

	report, loadError := workflow.LoadExecutionReport(outputPath)
	require.NoError(testInstance, loadError)
	require.False(testInstance, report.Success)
	require.NotNil(testInstance, report.Error)
	require.Contains(testInstance, *report.Error, "GITHUB_TOKEN")
	require.Contains(testInstance, outputBuffer.String(), "FAILED")
}

func TestRunCommandRequiresFlags(testInstance *testing.T) {
	builder := &workflow.CommandBuilder{}
	command, _ := buildRunCommand(testInstance, builder, []string{})
	require.Error(testInstance, command.Execute())
}
