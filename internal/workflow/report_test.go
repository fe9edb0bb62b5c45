package workflow_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/autodev/internal/workflow"
)

const (
	testReportIssueNumberConstant = 42
	testReportBranchNameConstant  = "issue-42-add-feature"
	testReportFileNameConstant    = "report.json"
	testReportErrorTextConstant   = "quality gate \"swift test\" failed"
	testReportPRURLConstant       = "https://github.com/octo/widgets/pull/7"
)

func TestExecutionReportFinalizeSuccess(testInstance *testing.T) {
	startTime := time.Now()
	report := workflow.NewExecutionReport(testReportIssueNumberConstant, testReportBranchNameConstant, startTime)
	report.RecordStep(workflow.StepWorkflowStarted)
	report.RecordStep(workflow.StepGitConfigured)
	report.RecordPullRequestURL(testReportPRURLConstant)
	report.Finalize(startTime.Add(3*time.Second), nil)

	require.True(testInstance, report.Success)
	require.Nil(testInstance, report.Error)
	require.NotNil(testInstance, report.PullRequestURL)
	require.Equal(testInstance, testReportPRURLConstant, *report.PullRequestURL)
	require.GreaterOrEqual(testInstance, report.EndTime, report.StartTime)
	require.InDelta(testInstance, report.EndTime-report.StartTime, report.DurationSeconds, 0.000001)
	require.Equal(testInstance, []workflow.StepName{workflow.StepWorkflowStarted, workflow.StepGitConfigured}, report.Steps)
}

func TestExecutionReportFinalizeFailure(testInstance *testing.T) {
	startTime := time.Now()
	report := workflow.NewExecutionReport(testReportIssueNumberConstant, testReportBranchNameConstant, startTime)
	report.RecordStep(workflow.StepWorkflowStarted)
	report.Finalize(startTime.Add(time.Second), &failingError{})

	require.False(testInstance, report.Success)
	require.NotNil(testInstance, report.Error)
	require.NotEmpty(testInstance, *report.Error)
	require.Nil(testInstance, report.PullRequestURL)
}

type failingError struct{}

func (failingError) Error() string { return testReportErrorTextConstant }

func TestExecutionReportRoundTrip(testInstance *testing.T) {
	startTime := time.Now()
	report := workflow.NewExecutionReport(testReportIssueNumberConstant, testReportBranchNameConstant, startTime)
	report.RecordStep(workflow.StepWorkflowStarted)
	report.RecordStep(workflow.StepGitConfigured)
	report.RecordStep(workflow.StepBranchCreated)
	report.Finalize(startTime.Add(2*time.Second), &failingError{})

	reportPath := filepath.Join(testInstance.TempDir(), testReportFileNameConstant)
	require.NoError(testInstance, workflow.WriteExecutionReport(reportPath, report))

	reloadedReport, loadError := workflow.LoadExecutionReport(reportPath)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, report.Steps, reloadedReport.Steps)
	require.Equal(testInstance, report.Success, reloadedReport.Success)
	require.Equal(testInstance, *report.Error, *reloadedReport.Error)
	require.Equal(testInstance, report.IssueNumber, reloadedReport.IssueNumber)
	require.Equal(testInstance, report.BranchName, reloadedReport.BranchName)
}
