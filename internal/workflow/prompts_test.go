package workflow_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/autodev/internal/workflow"
)

func promptFixtureRecords() (workflow.IssueRecord, workflow.AnalysisRecord) {
	estimatedMinutes := 90
	issueRecord := workflow.IssueRecord{
		IssueNumber: 42,
		BranchName:  "issue-42-add-feature",
		Owner:       "octo",
		Repository:  "widgets",
		Title:       "Add feature",
		Body:        "Please add the feature.",
	}
	analysisRecord := workflow.AnalysisRecord{
		ComplexityAssessment:  &workflow.ComplexityAssessment{Level: "medium"},
		RiskAssessment:        &workflow.RiskAssessment{OverallRisk: "low"},
		ImplementationRoadmap: &workflow.ImplementationRoadmap{TotalEstimatedTimeMinutes: &estimatedMinutes},
		CodebaseImpact:        &workflow.CodebaseImpact{AffectedModules: []string{"parser"}},
	}
	return issueRecord, analysisRecord
}

func TestSystemPromptEmbedsContext(testInstance *testing.T) {
	issueRecord, analysisRecord := promptFixtureRecords()
	promptBuilder := workflow.NewPromptBuilder(issueRecord, analysisRecord)

	systemPrompt := promptBuilder.SystemPrompt()
	require.Contains(testInstance, systemPrompt, "octo/widgets")
	require.Contains(testInstance, systemPrompt, "Issue #42: Add feature")
	require.Contains(testInstance, systemPrompt, "issue-42-add-feature")
	require.Contains(testInstance, systemPrompt, "Complexity: medium")
	require.Contains(testInstance, systemPrompt, "Risk Level: low")
	require.Contains(testInstance, systemPrompt, "Estimated Time: 90 minutes")
	require.Contains(testInstance, systemPrompt, "Affected Modules: parser")
	require.Contains(testInstance, systemPrompt, "Please add the feature.")
}

func TestInitialAnalysisMessageEmbedsIssue(testInstance *testing.T) {
	issueRecord, analysisRecord := promptFixtureRecords()
	promptBuilder := workflow.NewPromptBuilder(issueRecord, analysisRecord)

	initialMessage := promptBuilder.InitialAnalysisMessage()
	require.Contains(testInstance, initialMessage, "**Issue #42**: Add feature")
	require.Contains(testInstance, initialMessage, "Please add the feature.")
	require.Contains(testInstance, initialMessage, "step-by-step implementation plan")
}

func TestStatusMessage(testInstance *testing.T) {
	issueRecord, analysisRecord := promptFixtureRecords()
	promptBuilder := workflow.NewPromptBuilder(issueRecord, analysisRecord)

	testInstance.Run("clean_worktree", func(testInstance *testing.T) {
		statusMessage := promptBuilder.StatusMessage(3, nil, 500)
		require.Contains(testInstance, statusMessage, "iteration 3")
		require.Contains(testInstance, statusMessage, "clean")
		require.Contains(testInstance, statusMessage, "No changes")
		require.Contains(testInstance, statusMessage, "IMPLEMENTATION_COMPLETE")
	})

	testInstance.Run("dirty_worktree", func(testInstance *testing.T) {
		statusMessage := promptBuilder.StatusMessage(1, []string{"M internal/service.go"}, 500)
		require.Contains(testInstance, statusMessage, "has changes")
		require.Contains(testInstance, statusMessage, "M internal/service.go")
	})

	testInstance.Run("status_excerpt_is_truncated", func(testInstance *testing.T) {
		longEntry := strings.Repeat("M very/long/path/file.go\n", 100)
		statusMessage := promptBuilder.StatusMessage(1, []string{longEntry}, 500)
		require.NotContains(testInstance, statusMessage, longEntry)
	})
}

func TestCommitMessage(testInstance *testing.T) {
	issueRecord, analysisRecord := promptFixtureRecords()
	promptBuilder := workflow.NewPromptBuilder(issueRecord, analysisRecord)

	commitMessage := promptBuilder.CommitMessage()
	require.True(testInstance, strings.HasPrefix(commitMessage, "feat: implement Add feature"))
	require.Contains(testInstance, commitMessage, "Refs #42")
}

func TestPullRequestBody(testInstance *testing.T) {
	issueRecord, analysisRecord := promptFixtureRecords()
	promptBuilder := workflow.NewPromptBuilder(issueRecord, analysisRecord)

	pullRequestBody := promptBuilder.PullRequestBody()
	require.Contains(testInstance, pullRequestBody, "Resolves #42")
	require.Contains(testInstance, pullRequestBody, "Add feature")
	require.Contains(testInstance, pullRequestBody, "Complexity: medium")
	require.Contains(testInstance, pullRequestBody, "Risk Level: low")
}

func TestContainsCompletionMarker(testInstance *testing.T) {
	testCases := []struct {
		name           string
		assistantReply string
		expected       bool
	}{
		{name: "exact_marker", assistantReply: "IMPLEMENTATION_COMPLETE", expected: true},
		{name: "lowercase_marker", assistantReply: "done. implementation_complete.", expected: true},
		{name: "embedded_marker", assistantReply: "All tests pass. Implementation_Complete", expected: true},
		{name: "no_marker", assistantReply: "still working on the parser", expected: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, workflow.ContainsCompletionMarker(testCase.assistantReply))
		})
	}
}
