package githubcli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tyemirov/autodev/internal/execshell"
)

const (
	pullRequestSubcommandConstant           = "pr"
	createSubcommandConstant                = "create"
	repoFlagConstant                        = "--repo"
	baseFlagConstant                        = "--base"
	headFlagConstant                        = "--head"
	titleFlagConstant                       = "--title"
	bodyFlagConstant                        = "--body"
	draftFlagConstant                       = "--draft"
	repositoryFieldNameConstant             = "repository"
	titleFieldNameConstant                  = "title"
	baseBranchFieldNameConstant             = "base_branch"
	sourceBranchFieldNameConstant           = "source_branch"
	requiredValueMessageConstant            = "value required"
	executorNotConfiguredMessageConstant    = "github cli executor not configured"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	missingPullRequestURLMessageConstant    = "pull request creation returned no URL"
	createPullRequestOperationNameConstant  = OperationName("CreatePullRequest")
)

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// PullRequestCreateOptions configures pull request creation parameters.
type PullRequestCreateOptions struct {
	Repository       string
	Title            string
	Body             string
	Base             string
	Head             string
	Draft            bool
	WorkingDirectory string
}

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client coordinates GitHub CLI invocations through execshell.
type Client struct {
	executor GitHubCommandExecutor
}

var (
	// ErrExecutorNotConfigured indicates the client was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	// ErrPullRequestURLMissing indicates gh produced no URL on standard output.
	ErrPullRequestURLMissing = errors.New(missingPullRequestURLMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub CLI operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// NewClient constructs a GitHub CLI client backed by the provided executor.
func NewClient(executor GitHubCommandExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

// CreatePullRequest opens a pull request using gh pr create and returns its URL.
// The URL is taken from the last non-empty line gh prints to standard output.
func (client *Client) CreatePullRequest(executionContext context.Context, options PullRequestCreateOptions) (string, error) {
	repositoryIdentifier := strings.TrimSpace(options.Repository)
	if len(repositoryIdentifier) == 0 {
		return "", InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	title := strings.TrimSpace(options.Title)
	if len(title) == 0 {
		return "", InvalidInputError{FieldName: titleFieldNameConstant, Message: requiredValueMessageConstant}
	}

	head := strings.TrimSpace(options.Head)
	if len(head) == 0 {
		return "", InvalidInputError{FieldName: sourceBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	base := strings.TrimSpace(options.Base)
	if len(base) == 0 {
		return "", InvalidInputError{FieldName: baseBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	arguments := []string{
		pullRequestSubcommandConstant,
		createSubcommandConstant,
		repoFlagConstant,
		repositoryIdentifier,
		baseFlagConstant,
		base,
		headFlagConstant,
		head,
		titleFlagConstant,
		title,
		bodyFlagConstant,
		options.Body,
	}

	if options.Draft {
		arguments = append(arguments, draftFlagConstant)
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: options.WorkingDirectory,
	}
	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return "", OperationError{Operation: createPullRequestOperationNameConstant, Cause: executionError}
	}

	pullRequestURL := lastNonEmptyLine(executionResult.StandardOutput)
	if len(pullRequestURL) == 0 {
		return "", OperationError{Operation: createPullRequestOperationNameConstant, Cause: ErrPullRequestURLMissing}
	}
	return pullRequestURL, nil
}

func lastNonEmptyLine(commandOutput string) string {
	outputLines := strings.Split(commandOutput, "\n")
	for lineIndex := len(outputLines) - 1; lineIndex >= 0; lineIndex-- {
		trimmedLine := strings.TrimSpace(outputLines[lineIndex])
		if len(trimmedLine) > 0 {
			return trimmedLine
		}
	}
	return ""
}
