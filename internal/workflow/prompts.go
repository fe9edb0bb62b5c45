package workflow

import (
	"fmt"
	"strings"
)

const (
	systemPromptTemplateConstant = `You are a software development assistant working on the %s repository inside an isolated workspace.

## Project Context
- Repository: %s
- Issue #%d: %s
- Working Branch: %s

## Your Capabilities
You can propose shell commands to run inside the workspace. Available tools:
- The project build and test toolchain
- Git for version control (configured with token auth)
- GitHub CLI for API operations
- File system access within the workspace

## Development Guidelines
1. Follow the existing project conventions
2. Run the project quality gates before declaring the work done
3. Use conventional commit format
4. Create meaningful, focused commits
5. Never expose sensitive information

## Analysis Context
Complexity: %s
Risk Level: %s
Estimated Time: %s minutes
Affected Modules: %s

## Current Task
%s

Respond with specific actions you'll take. When you need to execute commands, clearly state them. Always explain your reasoning for code changes.`

	initialMessageTemplateConstant = `I need to implement the following GitHub issue:

**Issue #%d**: %s

**Description**:
%s

**Analysis Summary**:
- Complexity: %s
- Estimated Time: %s minutes
- Affected Modules: %s

Please analyze the codebase and provide a step-by-step implementation plan. Start by exploring the relevant files and understanding the current structure.`

	statusMessageTemplateConstant = `Current status (iteration %d):
- Working directory: %s
- Git status: %s

Please continue with the implementation. If you need to run commands, state them clearly.
If the implementation is complete, respond with "%s".`

	pullRequestBodyTemplateConstant = `## Summary
Resolves #%d

This PR addresses the issue: %s

## Changes
Implementation based on automated analysis:
- Complexity: %s
- Risk Level: %s

## Test Plan
- [x] All existing tests pass
- [x] Lint validation passes
- [x] Code builds successfully

Generated with autodev automation`

	commitMessageTemplateConstant     = "%s\n\nRefs #%d\n\nGenerated with autodev automation"
	commitSummaryTemplateConstant     = "feat: implement %s"
	commitSummaryFallbackConstant     = "issue #%d"
	cleanWorktreeDescriptionConstant  = "clean"
	dirtyWorktreeDescriptionConstant  = "has changes"
	emptyStatusDescriptionConstant    = "No changes"
	fallbackIssueBodyConstant         = "No description available"
	unknownIssueTitleConstant         = "Unknown"
	completionMarkerConstant          = "IMPLEMENTATION_COMPLETE"
	statusEntrySeparatorConstant      = "\n"
	defaultStatusExcerptLimitConstant = 500
)

// CompletionMarker is the literal reply text that ends the implementation loop.
const CompletionMarker = completionMarkerConstant

// PromptBuilder renders the conversation prompts from the loaded issue and
// analysis records. Prompts are rebuilt from the records on every call.
type PromptBuilder struct {
	issueRecord    IssueRecord
	analysisRecord AnalysisRecord
}

// NewPromptBuilder constructs a PromptBuilder for the provided records.
func NewPromptBuilder(issueRecord IssueRecord, analysisRecord AnalysisRecord) PromptBuilder {
	return PromptBuilder{issueRecord: issueRecord, analysisRecord: analysisRecord}
}

// SystemPrompt renders the assistant system prompt.
func (builder PromptBuilder) SystemPrompt() string {
	issueTitle := builder.issueRecord.Title
	if len(strings.TrimSpace(issueTitle)) == 0 {
		issueTitle = unknownIssueTitleConstant
	}
	issueBody := builder.issueRecord.Body
	if len(strings.TrimSpace(issueBody)) == 0 {
		issueBody = fallbackIssueBodyConstant
	}

	return fmt.Sprintf(systemPromptTemplateConstant,
		builder.issueRecord.Repository,
		builder.issueRecord.RepositoryIdentifier(),
		builder.issueRecord.IssueNumber,
		issueTitle,
		builder.issueRecord.BranchName,
		builder.analysisRecord.ComplexityLevel(),
		builder.analysisRecord.OverallRisk(),
		builder.analysisRecord.EstimatedMinutes(),
		builder.analysisRecord.AffectedModulesSummary(),
		issueBody,
	)
}

// InitialAnalysisMessage renders the conversation opener requesting a plan.
func (builder PromptBuilder) InitialAnalysisMessage() string {
	issueTitle := builder.issueRecord.Title
	if len(strings.TrimSpace(issueTitle)) == 0 {
		issueTitle = unknownIssueTitleConstant
	}
	issueBody := builder.issueRecord.Body
	if len(strings.TrimSpace(issueBody)) == 0 {
		issueBody = fallbackIssueBodyConstant
	}

	return fmt.Sprintf(initialMessageTemplateConstant,
		builder.issueRecord.IssueNumber,
		issueTitle,
		issueBody,
		builder.analysisRecord.ComplexityLevel(),
		builder.analysisRecord.EstimatedMinutes(),
		builder.analysisRecord.AffectedModulesSummary(),
	)
}

// StatusMessage renders the per-iteration status prompt. The raw status text
// is truncated to the excerpt limit.
func (builder PromptBuilder) StatusMessage(iterationNumber int, statusEntries []string, excerptLimit int) string {
	if excerptLimit <= 0 {
		excerptLimit = defaultStatusExcerptLimitConstant
	}

	worktreeDescription := cleanWorktreeDescriptionConstant
	statusExcerpt := emptyStatusDescriptionConstant
	if len(statusEntries) > 0 {
		worktreeDescription = dirtyWorktreeDescriptionConstant
		statusText := strings.Join(statusEntries, statusEntrySeparatorConstant)
		if len(statusText) > excerptLimit {
			statusText = statusText[:excerptLimit]
		}
		statusExcerpt = statusText
	}

	return fmt.Sprintf(statusMessageTemplateConstant,
		iterationNumber,
		worktreeDescription,
		statusExcerpt,
		completionMarkerConstant,
	)
}

// CommitMessage renders the conventional commit message for the run.
func (builder PromptBuilder) CommitMessage() string {
	commitSubject := builder.issueRecord.Title
	if len(strings.TrimSpace(commitSubject)) == 0 {
		commitSubject = fmt.Sprintf(commitSummaryFallbackConstant, builder.issueRecord.IssueNumber)
	}
	commitSummary := fmt.Sprintf(commitSummaryTemplateConstant, commitSubject)
	return fmt.Sprintf(commitMessageTemplateConstant, commitSummary, builder.issueRecord.IssueNumber)
}

// PullRequestTitle renders the pull request title, honoring an explicit override.
func (builder PromptBuilder) PullRequestTitle() string {
	return builder.issueRecord.ResolvedPullRequestTitle()
}

// PullRequestBody renders the templated pull request description.
func (builder PromptBuilder) PullRequestBody() string {
	issueTitle := builder.issueRecord.Title
	if len(strings.TrimSpace(issueTitle)) == 0 {
		issueTitle = unknownIssueTitleConstant
	}
	return fmt.Sprintf(pullRequestBodyTemplateConstant,
		builder.issueRecord.IssueNumber,
		issueTitle,
		builder.analysisRecord.ComplexityLevel(),
		builder.analysisRecord.OverallRisk(),
	)
}

// ContainsCompletionMarker reports whether the assistant reply declares the
// implementation finished. Matching is case-insensitive.
func ContainsCompletionMarker(assistantReply string) bool {
	return strings.Contains(strings.ToUpper(assistantReply), completionMarkerConstant)
}
