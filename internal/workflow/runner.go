package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tyemirov/autodev/internal/execshell"
	"github.com/tyemirov/autodev/internal/githubcli"
)

const (
	defaultMaxIterationsConstant           = 20
	defaultRemoteNameConstant              = "origin"
	workflowStartedMessageConstant         = "starting development workflow"
	gitConfiguredMessageConstant           = "git authentication configured"
	branchCreatedMessageConstant           = "issue branch created"
	initialAnalysisMessageLogConstant      = "initial analysis completed"
	iterationMessageConstant               = "implementation iteration"
	completionDetectedMessageConstant      = "implementation marked complete by assistant"
	iterationCeilingMessageConstant        = "implementation loop reached iteration ceiling"
	suggestedCommandsMessageConstant       = "assistant suggested commands; manual execution needed"
	qualityGatePassedMessageConstant       = "quality gate passed"
	qualityGateFailedMessageConstant       = "quality gate failed"
	noChangesToCommitMessageConstant       = "no changes to commit"
	changesCommittedMessageConstant        = "changes committed"
	branchPushedMessageConstant            = "branch pushed"
	pullRequestCreatedMessageConstant      = "pull request created"
	workflowCompletedMessageConstant       = "development workflow completed successfully"
	workflowFailedMessageConstant          = "development workflow failed"
	iterationFieldNameConstant             = "iteration"
	maxIterationsFieldNameConstant         = "max_iterations"
	branchFieldNameConstant                = "branch"
	baseBranchFieldNameConstant            = "base_branch"
	qualityGateFieldNameConstant           = "command"
	pullRequestURLFieldNameConstant        = "pr_url"
	assistantReplyLengthFieldNameConstant  = "reply_length"
	loggerMissingMessageConstant           = "workflow runner logger not configured"
	sessionMissingMessageConstant          = "workflow runner conversation session not configured"
	repositoryMissingMessageConstant       = "workflow runner repository manager not configured"
	credentialsMissingMessageConstant      = "workflow runner credentials store not configured"
	githubClientMissingMessageConstant     = "workflow runner github client not configured"
	gateExecutorMissingMessageConstant     = "workflow runner gate executor not configured"
	qualityGateFailureTemplateConstant     = "quality gate %q failed: %w"
	emptyQualityGateMessageConstant        = "quality gate command is empty"
	stageFailureTemplateConstant           = "%s: %w"
	gitAuthStageNameConstant               = "git authentication"
	branchStageNameConstant                = "branch creation"
	initialAnalysisStageNameConstant       = "initial analysis"
	implementationLoopStageNameConstant    = "implementation loop"
	commitStageNameConstant                = "commit"
	pushStageNameConstant                  = "push"
	pullRequestStageNameConstant           = "pull request creation"
)

// GitRepository is the subset of repository operations the runner needs.
type GitRepository interface {
	ConfigureIdentity(executionContext context.Context, repositoryPath string, userName string, userEmail string) error
	ConfigureCredentialHelper(executionContext context.Context, repositoryPath string, credentialsFilePath string) error
	CheckoutWithFallback(executionContext context.Context, repositoryPath string, candidateBranches []string) (string, error)
	PullWithFallback(executionContext context.Context, repositoryPath string, remoteName string, candidateBranches []string) (string, error)
	CreateBranch(executionContext context.Context, repositoryPath string, branchName string) error
	WorktreeStatus(executionContext context.Context, repositoryPath string) ([]string, error)
	StageAll(executionContext context.Context, repositoryPath string) error
	Commit(executionContext context.Context, repositoryPath string, commitMessage string) error
	PushBranch(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error
}

// CredentialsWriter persists the git credentials file and returns its path.
type CredentialsWriter interface {
	Write(workspacePath string) (string, error)
}

// PullRequestCreator opens pull requests and returns their URL.
type PullRequestCreator interface {
	CreatePullRequest(executionContext context.Context, options githubcli.PullRequestCreateOptions) (string, error)
}

// ConversationSession drives the assistant exchange with retained history.
type ConversationSession interface {
	SetSystemPrompt(systemPrompt string)
	Send(executionContext context.Context, userMessage string) (string, error)
}

// GateCommandExecutor runs quality gate commands.
type GateCommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// RunnerConfiguration carries workflow tunables.
type RunnerConfiguration struct {
	RemoteName          string
	BaseBranches        []string
	MaxIterations       int
	StatusExcerptLimit  int
	QualityGateCommands []string
	DraftPullRequest    bool
	GitUserName         string
	GitUserEmail        string
}

// RunnerDependencies carries the collaborators required by the runner.
type RunnerDependencies struct {
	Logger           *zap.Logger
	Session          ConversationSession
	Repository       GitRepository
	CredentialsStore CredentialsWriter
	GitHubClient     PullRequestCreator
	GateExecutor     GateCommandExecutor
}

// Runner executes the issue-to-pull-request workflow as an ordered sequence of
// stages, accumulating milestones in an ExecutionReport.
type Runner struct {
	logger           *zap.Logger
	session          ConversationSession
	repository       GitRepository
	credentialsStore CredentialsWriter
	githubClient     PullRequestCreator
	gateExecutor     GateCommandExecutor
	configuration    RunnerConfiguration
	clock            func() time.Time
}

var (
	// ErrLoggerNotConfigured indicates the runner logger dependency was missing.
	ErrLoggerNotConfigured = errors.New(loggerMissingMessageConstant)
	// ErrSessionNotConfigured indicates the conversation session dependency was missing.
	ErrSessionNotConfigured = errors.New(sessionMissingMessageConstant)
	// ErrRepositoryNotConfigured indicates the repository dependency was missing.
	ErrRepositoryNotConfigured = errors.New(repositoryMissingMessageConstant)
	// ErrCredentialsStoreNotConfigured indicates the credentials store dependency was missing.
	ErrCredentialsStoreNotConfigured = errors.New(credentialsMissingMessageConstant)
	// ErrGitHubClientNotConfigured indicates the GitHub client dependency was missing.
	ErrGitHubClientNotConfigured = errors.New(githubClientMissingMessageConstant)
	// ErrGateExecutorNotConfigured indicates the gate executor dependency was missing.
	ErrGateExecutorNotConfigured = errors.New(gateExecutorMissingMessageConstant)
	// ErrQualityGateCommandEmpty indicates a configured quality gate command had no content.
	ErrQualityGateCommandEmpty = errors.New(emptyQualityGateMessageConstant)
)

// NewRunner constructs a workflow Runner after validating its dependencies.
func NewRunner(dependencies RunnerDependencies, configuration RunnerConfiguration) (*Runner, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.Session == nil {
		return nil, ErrSessionNotConfigured
	}
	if dependencies.Repository == nil {
		return nil, ErrRepositoryNotConfigured
	}
	if dependencies.CredentialsStore == nil {
		return nil, ErrCredentialsStoreNotConfigured
	}
	if dependencies.GitHubClient == nil {
		return nil, ErrGitHubClientNotConfigured
	}
	if dependencies.GateExecutor == nil {
		return nil, ErrGateExecutorNotConfigured
	}

	if configuration.MaxIterations <= 0 {
		configuration.MaxIterations = defaultMaxIterationsConstant
	}
	if len(strings.TrimSpace(configuration.RemoteName)) == 0 {
		configuration.RemoteName = defaultRemoteNameConstant
	}

	return &Runner{
		logger:           dependencies.Logger,
		session:          dependencies.Session,
		repository:       dependencies.Repository,
		credentialsStore: dependencies.CredentialsStore,
		githubClient:     dependencies.GitHubClient,
		gateExecutor:     dependencies.GateExecutor,
		configuration:    configuration,
		clock:            time.Now,
	}, nil
}

// Run executes the workflow for the loaded records inside the workspace. The
// returned report is always populated; failures are recorded in it rather than
// returned, and prior side effects are not rolled back.
func (runner *Runner) Run(executionContext context.Context, issueRecord IssueRecord, analysisRecord AnalysisRecord, workspacePath string) *ExecutionReport {
	report := NewExecutionReport(issueRecord.IssueNumber, issueRecord.BranchName, runner.clock())
	promptBuilder := NewPromptBuilder(issueRecord, analysisRecord)
	runner.session.SetSystemPrompt(promptBuilder.SystemPrompt())

	workflowError := runner.runStages(executionContext, issueRecord, promptBuilder, workspacePath, report)
	report.Finalize(runner.clock(), workflowError)

	if workflowError != nil {
		runner.logger.Error(workflowFailedMessageConstant, zap.Error(workflowError))
	} else {
		runner.logger.Info(workflowCompletedMessageConstant)
	}
	return report
}

func (runner *Runner) runStages(executionContext context.Context, issueRecord IssueRecord, promptBuilder PromptBuilder, workspacePath string, report *ExecutionReport) error {
	runner.logger.Info(workflowStartedMessageConstant)
	report.RecordStep(StepWorkflowStarted)

	if authError := runner.configureGitAuthentication(executionContext, workspacePath); authError != nil {
		return fmt.Errorf(stageFailureTemplateConstant, gitAuthStageNameConstant, authError)
	}
	runner.logger.Info(gitConfiguredMessageConstant)
	report.RecordStep(StepGitConfigured)

	baseBranch, branchError := runner.createIssueBranch(executionContext, issueRecord, workspacePath)
	if branchError != nil {
		return fmt.Errorf(stageFailureTemplateConstant, branchStageNameConstant, branchError)
	}
	runner.logger.Info(branchCreatedMessageConstant,
		zap.String(branchFieldNameConstant, issueRecord.BranchName),
		zap.String(baseBranchFieldNameConstant, baseBranch),
	)
	report.RecordStep(StepBranchCreated)

	initialReply, initialError := runner.session.Send(executionContext, promptBuilder.InitialAnalysisMessage())
	if initialError != nil {
		return fmt.Errorf(stageFailureTemplateConstant, initialAnalysisStageNameConstant, initialError)
	}
	runner.logger.Info(initialAnalysisMessageLogConstant, zap.Int(assistantReplyLengthFieldNameConstant, len(initialReply)))
	report.RecordStep(StepInitialAnalysis)

	if loopError := runner.runImplementationLoop(executionContext, promptBuilder, workspacePath); loopError != nil {
		return fmt.Errorf(stageFailureTemplateConstant, implementationLoopStageNameConstant, loopError)
	}
	report.RecordStep(StepImplementationCompleted)

	if gatesError := runner.runQualityGates(executionContext, workspacePath); gatesError != nil {
		return gatesError
	}
	report.RecordStep(StepQualityGatesPassed)

	if commitError := runner.commitChanges(executionContext, promptBuilder, workspacePath); commitError != nil {
		return fmt.Errorf(stageFailureTemplateConstant, commitStageNameConstant, commitError)
	}
	report.RecordStep(StepChangesCommitted)

	if pushError := runner.repository.PushBranch(executionContext, workspacePath, runner.configuration.RemoteName, issueRecord.BranchName); pushError != nil {
		return fmt.Errorf(stageFailureTemplateConstant, pushStageNameConstant, pushError)
	}
	runner.logger.Info(branchPushedMessageConstant, zap.String(branchFieldNameConstant, issueRecord.BranchName))
	report.RecordStep(StepBranchPushed)

	pullRequestURL, pullRequestError := runner.githubClient.CreatePullRequest(executionContext, githubcli.PullRequestCreateOptions{
		Repository:       issueRecord.RepositoryIdentifier(),
		Title:            promptBuilder.PullRequestTitle(),
		Body:             promptBuilder.PullRequestBody(),
		Base:             baseBranch,
		Head:             issueRecord.BranchName,
		Draft:            runner.configuration.DraftPullRequest,
		WorkingDirectory: workspacePath,
	})
	if pullRequestError != nil {
		return fmt.Errorf(stageFailureTemplateConstant, pullRequestStageNameConstant, pullRequestError)
	}
	runner.logger.Info(pullRequestCreatedMessageConstant, zap.String(pullRequestURLFieldNameConstant, pullRequestURL))
	report.RecordPullRequestURL(pullRequestURL)
	report.RecordStep(StepPullRequestCreated)

	return nil
}

func (runner *Runner) configureGitAuthentication(executionContext context.Context, workspacePath string) error {
	credentialsFilePath, credentialsError := runner.credentialsStore.Write(workspacePath)
	if credentialsError != nil {
		return credentialsError
	}
	if identityError := runner.repository.ConfigureIdentity(executionContext, workspacePath, runner.configuration.GitUserName, runner.configuration.GitUserEmail); identityError != nil {
		return identityError
	}
	return runner.repository.ConfigureCredentialHelper(executionContext, workspacePath, credentialsFilePath)
}

func (runner *Runner) createIssueBranch(executionContext context.Context, issueRecord IssueRecord, workspacePath string) (string, error) {
	baseBranch, checkoutError := runner.repository.CheckoutWithFallback(executionContext, workspacePath, runner.configuration.BaseBranches)
	if checkoutError != nil {
		return "", checkoutError
	}
	if _, pullError := runner.repository.PullWithFallback(executionContext, workspacePath, runner.configuration.RemoteName, runner.configuration.BaseBranches); pullError != nil {
		return "", pullError
	}
	if createError := runner.repository.CreateBranch(executionContext, workspacePath, issueRecord.BranchName); createError != nil {
		return "", createError
	}
	return baseBranch, nil
}

func (runner *Runner) runImplementationLoop(executionContext context.Context, promptBuilder PromptBuilder, workspacePath string) error {
	for iterationNumber := 1; iterationNumber <= runner.configuration.MaxIterations; iterationNumber++ {
		runner.logger.Info(iterationMessageConstant,
			zap.Int(iterationFieldNameConstant, iterationNumber),
			zap.Int(maxIterationsFieldNameConstant, runner.configuration.MaxIterations),
		)

		statusEntries, statusError := runner.repository.WorktreeStatus(executionContext, workspacePath)
		if statusError != nil {
			return statusError
		}

		statusMessage := promptBuilder.StatusMessage(iterationNumber, statusEntries, runner.configuration.StatusExcerptLimit)
		assistantReply, sendError := runner.session.Send(executionContext, statusMessage)
		if sendError != nil {
			return sendError
		}

		if ContainsCompletionMarker(assistantReply) {
			runner.logger.Info(completionDetectedMessageConstant, zap.Int(iterationFieldNameConstant, iterationNumber))
			return nil
		}

		if runner.replySuggestsCommands(assistantReply) {
			runner.logger.Info(suggestedCommandsMessageConstant, zap.Int(iterationFieldNameConstant, iterationNumber))
		}
	}

	runner.logger.Warn(iterationCeilingMessageConstant, zap.Int(maxIterationsFieldNameConstant, runner.configuration.MaxIterations))
	return nil
}

func (runner *Runner) replySuggestsCommands(assistantReply string) bool {
	loweredReply := strings.ToLower(assistantReply)
	if strings.Contains(loweredReply, string(execshell.CommandGit)) {
		return true
	}
	for _, gateCommand := range runner.configuration.QualityGateCommands {
		trimmedCommand := strings.ToLower(strings.TrimSpace(gateCommand))
		if len(trimmedCommand) > 0 && strings.Contains(loweredReply, trimmedCommand) {
			return true
		}
	}
	return false
}

func (runner *Runner) runQualityGates(executionContext context.Context, workspacePath string) error {
	for _, gateCommand := range runner.configuration.QualityGateCommands {
		commandFields := strings.Fields(gateCommand)
		if len(commandFields) == 0 {
			return fmt.Errorf(qualityGateFailureTemplateConstant, gateCommand, ErrQualityGateCommandEmpty)
		}

		shellCommand := execshell.ShellCommand{
			Name: execshell.CommandName(commandFields[0]),
			Details: execshell.CommandDetails{
				Arguments:        commandFields[1:],
				WorkingDirectory: workspacePath,
			},
		}
		if _, executionError := runner.gateExecutor.Execute(executionContext, shellCommand); executionError != nil {
			runner.logger.Error(qualityGateFailedMessageConstant, zap.String(qualityGateFieldNameConstant, gateCommand), zap.Error(executionError))
			return fmt.Errorf(qualityGateFailureTemplateConstant, gateCommand, executionError)
		}
		runner.logger.Info(qualityGatePassedMessageConstant, zap.String(qualityGateFieldNameConstant, gateCommand))
	}
	return nil
}

func (runner *Runner) commitChanges(executionContext context.Context, promptBuilder PromptBuilder, workspacePath string) error {
	statusEntries, statusError := runner.repository.WorktreeStatus(executionContext, workspacePath)
	if statusError != nil {
		return statusError
	}
	if len(statusEntries) == 0 {
		runner.logger.Info(noChangesToCommitMessageConstant)
		return nil
	}

	if stageError := runner.repository.StageAll(executionContext, workspacePath); stageError != nil {
		return stageError
	}
	if commitError := runner.repository.Commit(executionContext, workspacePath, promptBuilder.CommitMessage()); commitError != nil {
		return commitError
	}
	runner.logger.Info(changesCommittedMessageConstant)
	return nil
}
