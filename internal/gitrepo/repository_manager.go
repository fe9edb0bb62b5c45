package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tyemirov/autodev/internal/execshell"
)

const (
	gitStatusSubcommandConstant               = "status"
	gitStatusPorcelainFlagConstant            = "--porcelain"
	gitCheckoutSubcommandConstant             = "checkout"
	gitCheckoutCreateFlagConstant             = "-b"
	gitPullSubcommandConstant                 = "pull"
	gitAddSubcommandConstant                  = "add"
	gitAddAllFlagConstant                     = "--all"
	gitCommitSubcommandConstant               = "commit"
	gitCommitMessageFlagConstant              = "-m"
	gitPushSubcommandConstant                 = "push"
	gitPushSetUpstreamFlagConstant            = "-u"
	gitConfigSubcommandConstant               = "config"
	gitUserNameConfigKeyConstant              = "user.name"
	gitUserEmailConfigKeyConstant             = "user.email"
	gitCredentialHelperConfigKeyConstant      = "credential.helper"
	gitCredentialHelperValueTemplateConstant  = "store --file %s"
	repositoryPathFieldNameConstant           = "repository_path"
	branchNameFieldNameConstant               = "branch_name"
	remoteNameFieldNameConstant               = "remote_name"
	commitMessageFieldNameConstant            = "commit_message"
	userNameFieldNameConstant                 = "user_name"
	userEmailFieldNameConstant                = "user_email"
	credentialsFilePathFieldNameConstant      = "credentials_file_path"
	fallbackBranchesFieldNameConstant         = "fallback_branches"
	requiredValueMessageConstant              = "value required"
	executorNotConfiguredMessageConstant      = "git executor not configured"
	repositoryOperationErrorTemplateConstant  = "%s operation failed"
	repositoryOperationErrorWithCauseConstant = "%s operation failed: %s"
	invalidRepositoryInputTemplateConstant    = "%s: %s"
	worktreeStatusOperationNameConstant       = RepositoryOperationName("WorktreeStatus")
	checkoutFallbackOperationNameConstant     = RepositoryOperationName("CheckoutWithFallback")
	pullFallbackOperationNameConstant         = RepositoryOperationName("PullWithFallback")
	createBranchOperationNameConstant         = RepositoryOperationName("CreateBranch")
	stageAllOperationNameConstant             = RepositoryOperationName("StageAll")
	commitOperationNameConstant               = RepositoryOperationName("Commit")
	pushOperationNameConstant                 = RepositoryOperationName("PushBranch")
	configureIdentityOperationNameConstant    = RepositoryOperationName("ConfigureIdentity")
	configureCredentialsOperationNameConstant = RepositoryOperationName("ConfigureCredentialHelper")
)

// GitCommandExecutor exposes the subset of execshell functionality required by RepositoryManager.
type GitCommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryManager coordinates Git operations through execshell.
type RepositoryManager struct {
	executor GitCommandExecutor
}

var (
	// ErrGitExecutorNotConfigured indicates the RepositoryManager was constructed without a git executor.
	ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// InvalidRepositoryInputError indicates validation failures for repository operations.
type InvalidRepositoryInputError struct {
	FieldName string
	Message   string
}

// Error describes the validation failure.
func (inputError InvalidRepositoryInputError) Error() string {
	return fmt.Sprintf(invalidRepositoryInputTemplateConstant, inputError.FieldName, inputError.Message)
}

// RepositoryOperationName captures descriptive names for repository operations.
type RepositoryOperationName string

// RepositoryOperationError wraps execution failures for git operations.
type RepositoryOperationError struct {
	Operation RepositoryOperationName
	Cause     error
}

// Error describes the repository operation failure.
func (operationError RepositoryOperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(repositoryOperationErrorTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(repositoryOperationErrorWithCauseConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying error.
func (operationError RepositoryOperationError) Unwrap() error {
	return operationError.Cause
}

// NewRepositoryManager constructs a RepositoryManager for the provided executor.
func NewRepositoryManager(executor GitCommandExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// WorktreeStatus returns the porcelain status entries for the repository.
// The status command is lenient: a non-zero exit yields an empty status, not an error.
func (manager *RepositoryManager) WorktreeStatus(executionContext context.Context, repositoryPath string) ([]string, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return nil, InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitStatusSubcommandConstant, gitStatusPorcelainFlagConstant},
		WorkingDirectory: trimmedPath,
		AllowNonZeroExit: true,
	}

	executionResult, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return nil, RepositoryOperationError{Operation: worktreeStatusOperationNameConstant, Cause: executionError}
	}

	trimmedOutput := strings.TrimSpace(executionResult.StandardOutput)
	if len(trimmedOutput) == 0 {
		return nil, nil
	}

	lines := strings.Split(trimmedOutput, "\n")
	entries := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); len(trimmed) > 0 {
			entries = append(entries, trimmed)
		}
	}
	return entries, nil
}

// CheckoutWithFallback checks out the first branch from the candidates that succeeds.
// All candidates failing aborts with the last failure.
func (manager *RepositoryManager) CheckoutWithFallback(executionContext context.Context, repositoryPath string, candidateBranches []string) (string, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return "", InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(candidateBranches) == 0 {
		return "", InvalidRepositoryInputError{FieldName: fallbackBranchesFieldNameConstant, Message: requiredValueMessageConstant}
	}

	var lastError error
	for _, candidateBranch := range candidateBranches {
		trimmedBranch := strings.TrimSpace(candidateBranch)
		if len(trimmedBranch) == 0 {
			continue
		}
		commandDetails := execshell.CommandDetails{
			Arguments:        []string{gitCheckoutSubcommandConstant, trimmedBranch},
			WorkingDirectory: trimmedPath,
		}
		_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
		if executionError == nil {
			return trimmedBranch, nil
		}
		lastError = executionError
	}

	return "", RepositoryOperationError{Operation: checkoutFallbackOperationNameConstant, Cause: lastError}
}

// PullWithFallback pulls the first branch from the candidates that succeeds from the given remote.
func (manager *RepositoryManager) PullWithFallback(executionContext context.Context, repositoryPath string, remoteName string, candidateBranches []string) (string, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return "", InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedRemote := strings.TrimSpace(remoteName)
	if len(trimmedRemote) == 0 {
		return "", InvalidRepositoryInputError{FieldName: remoteNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(candidateBranches) == 0 {
		return "", InvalidRepositoryInputError{FieldName: fallbackBranchesFieldNameConstant, Message: requiredValueMessageConstant}
	}

	var lastError error
	for _, candidateBranch := range candidateBranches {
		trimmedBranch := strings.TrimSpace(candidateBranch)
		if len(trimmedBranch) == 0 {
			continue
		}
		commandDetails := execshell.CommandDetails{
			Arguments:        []string{gitPullSubcommandConstant, trimmedRemote, trimmedBranch},
			WorkingDirectory: trimmedPath,
		}
		_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
		if executionError == nil {
			return trimmedBranch, nil
		}
		lastError = executionError
	}

	return "", RepositoryOperationError{Operation: pullFallbackOperationNameConstant, Cause: lastError}
}

// CreateBranch creates a new branch and switches to it.
func (manager *RepositoryManager) CreateBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedBranch := strings.TrimSpace(branchName)
	if len(trimmedBranch) == 0 {
		return InvalidRepositoryInputError{FieldName: branchNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitCheckoutSubcommandConstant, gitCheckoutCreateFlagConstant, trimmedBranch},
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: createBranchOperationNameConstant, Cause: executionError}
	}
	return nil
}

// StageAll stages every pending change in the repository.
func (manager *RepositoryManager) StageAll(executionContext context.Context, repositoryPath string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitAddSubcommandConstant, gitAddAllFlagConstant},
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: stageAllOperationNameConstant, Cause: executionError}
	}
	return nil
}

// Commit records staged changes with the provided message.
func (manager *RepositoryManager) Commit(executionContext context.Context, repositoryPath string, commitMessage string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedMessage := strings.TrimSpace(commitMessage)
	if len(trimmedMessage) == 0 {
		return InvalidRepositoryInputError{FieldName: commitMessageFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitCommitSubcommandConstant, gitCommitMessageFlagConstant, trimmedMessage},
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: commitOperationNameConstant, Cause: executionError}
	}
	return nil
}

// PushBranch pushes the branch to the remote and sets the upstream reference.
func (manager *RepositoryManager) PushBranch(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedRemote := strings.TrimSpace(remoteName)
	if len(trimmedRemote) == 0 {
		return InvalidRepositoryInputError{FieldName: remoteNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedBranch := strings.TrimSpace(branchName)
	if len(trimmedBranch) == 0 {
		return InvalidRepositoryInputError{FieldName: branchNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitPushSubcommandConstant, gitPushSetUpstreamFlagConstant, trimmedRemote, trimmedBranch},
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: pushOperationNameConstant, Cause: executionError}
	}
	return nil
}

// ConfigureIdentity sets the repository-local commit identity.
func (manager *RepositoryManager) ConfigureIdentity(executionContext context.Context, repositoryPath string, userName string, userEmail string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedUserName := strings.TrimSpace(userName)
	if len(trimmedUserName) == 0 {
		return InvalidRepositoryInputError{FieldName: userNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedUserEmail := strings.TrimSpace(userEmail)
	if len(trimmedUserEmail) == 0 {
		return InvalidRepositoryInputError{FieldName: userEmailFieldNameConstant, Message: requiredValueMessageConstant}
	}

	identityEntries := [][]string{
		{gitConfigSubcommandConstant, gitUserNameConfigKeyConstant, trimmedUserName},
		{gitConfigSubcommandConstant, gitUserEmailConfigKeyConstant, trimmedUserEmail},
	}
	for _, identityArguments := range identityEntries {
		commandDetails := execshell.CommandDetails{
			Arguments:        identityArguments,
			WorkingDirectory: trimmedPath,
		}
		_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
		if executionError != nil {
			return RepositoryOperationError{Operation: configureIdentityOperationNameConstant, Cause: executionError}
		}
	}
	return nil
}

// ConfigureCredentialHelper points the repository-local credential helper at the provided store file.
func (manager *RepositoryManager) ConfigureCredentialHelper(executionContext context.Context, repositoryPath string, credentialsFilePath string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedCredentialsFilePath := strings.TrimSpace(credentialsFilePath)
	if len(trimmedCredentialsFilePath) == 0 {
		return InvalidRepositoryInputError{FieldName: credentialsFilePathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			gitConfigSubcommandConstant,
			gitCredentialHelperConfigKeyConstant,
			fmt.Sprintf(gitCredentialHelperValueTemplateConstant, trimmedCredentialsFilePath),
		},
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: configureCredentialsOperationNameConstant, Cause: executionError}
	}
	return nil
}
