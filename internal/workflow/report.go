package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const (
	reportSerializationErrorTemplateConstant = "encoding execution report: %w"
	reportWriteErrorTemplateConstant         = "writing execution report: %w"
	reportReadErrorTemplateConstant          = "reading execution report: %w"
	reportDecodeErrorTemplateConstant        = "decoding execution report: %w"
	reportFilePermissionsConstant            = os.FileMode(0o644)
	reportIndentationConstant                = "  "
	nanosecondsPerSecondConstant             = float64(time.Second)

	// StepWorkflowStarted marks workflow start.
	StepWorkflowStarted = StepName("workflow_started")
	// StepGitConfigured marks completed git authentication and identity setup.
	StepGitConfigured = StepName("git_configured")
	// StepBranchCreated marks the issue branch creation.
	StepBranchCreated = StepName("branch_created")
	// StepInitialAnalysis marks the first assistant exchange.
	StepInitialAnalysis = StepName("initial_analysis")
	// StepImplementationCompleted marks the end of the implementation loop.
	StepImplementationCompleted = StepName("implementation_completed")
	// StepQualityGatesPassed marks all quality gates passing.
	StepQualityGatesPassed = StepName("quality_gates_passed")
	// StepChangesCommitted marks the commit stage, including the no-changes skip.
	StepChangesCommitted = StepName("changes_committed")
	// StepBranchPushed marks the branch push.
	StepBranchPushed = StepName("branch_pushed")
	// StepPullRequestCreated marks successful pull request creation.
	StepPullRequestCreated = StepName("pr_created")
)

// StepName identifies a workflow milestone recorded in the execution report.
type StepName string

// ExecutionReport accumulates workflow progress and is the sole persisted
// output artifact. Steps are append-only and list exactly the milestones
// reached before any failure.
type ExecutionReport struct {
	IssueNumber     int        `json:"issue_number"`
	BranchName      string     `json:"branch_name"`
	StartTime       float64    `json:"start_time"`
	EndTime         float64    `json:"end_time"`
	DurationSeconds float64    `json:"duration_seconds"`
	Steps           []StepName `json:"steps"`
	Success         bool       `json:"success"`
	Error           *string    `json:"error"`
	PullRequestURL  *string    `json:"pr_url"`
}

// NewExecutionReport constructs a report stamped with the provided start time.
func NewExecutionReport(issueNumber int, branchName string, startTime time.Time) *ExecutionReport {
	return &ExecutionReport{
		IssueNumber: issueNumber,
		BranchName:  branchName,
		StartTime:   unixSeconds(startTime),
		Steps:       []StepName{},
	}
}

// RecordStep appends a reached milestone.
func (report *ExecutionReport) RecordStep(stepName StepName) {
	report.Steps = append(report.Steps, stepName)
}

// RecordPullRequestURL stores the created pull request URL.
func (report *ExecutionReport) RecordPullRequestURL(pullRequestURL string) {
	report.PullRequestURL = &pullRequestURL
}

// Finalize stamps the end time and derived duration and records the outcome.
// A nil workflow error marks the run successful.
func (report *ExecutionReport) Finalize(endTime time.Time, workflowError error) {
	report.EndTime = unixSeconds(endTime)
	report.DurationSeconds = report.EndTime - report.StartTime
	if workflowError != nil {
		errorText := workflowError.Error()
		report.Error = &errorText
		report.Success = false
		return
	}
	report.Success = true
}

// WriteExecutionReport serializes the report as indented JSON to the given path.
func WriteExecutionReport(outputPath string, report *ExecutionReport) error {
	reportBytes, encodingError := json.MarshalIndent(report, "", reportIndentationConstant)
	if encodingError != nil {
		return fmt.Errorf(reportSerializationErrorTemplateConstant, encodingError)
	}
	if writeError := os.WriteFile(outputPath, reportBytes, reportFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
	}
	return nil
}

// LoadExecutionReport reads a previously written execution report.
func LoadExecutionReport(reportPath string) (*ExecutionReport, error) {
	fileContents, readError := os.ReadFile(reportPath)
	if readError != nil {
		return nil, fmt.Errorf(reportReadErrorTemplateConstant, readError)
	}
	report := &ExecutionReport{}
	if decodeError := json.Unmarshal(fileContents, report); decodeError != nil {
		return nil, fmt.Errorf(reportDecodeErrorTemplateConstant, decodeError)
	}
	return report, nil
}

func unixSeconds(instant time.Time) float64 {
	return float64(instant.UnixNano()) / nanosecondsPerSecondConstant
}
