package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	issueRecordReadErrorTemplateConstant    = "reading issue data file: %w"
	issueRecordDecodeErrorTemplateConstant  = "decoding issue data: %w"
	analysisReadErrorTemplateConstant       = "reading analysis data file: %w"
	analysisDecodeErrorTemplateConstant     = "decoding analysis data: %w"
	invalidIssueFieldTemplateConstant       = "issue data field %s: %s"
	requiredFieldMessageConstant            = "value required"
	positiveNumberMessageConstant           = "positive value required"
	issueNumberFieldNameConstant            = "issue_number"
	issueBranchNameFieldNameConstant        = "branch_name"
	issueOwnerFieldNameConstant             = "owner"
	issueRepositoryFieldNameConstant        = "repo"
	unknownPlaceholderConstant              = "unknown"
	affectedModulesSeparatorConstant        = ", "
	repositoryIdentifierTemplateConstant    = "%s/%s"
	defaultPullRequestTitleTemplateConstant = "Resolve #%d: %s"
	fallbackIssueTitleConstant              = "Issue"
)

// IssueRecord describes the GitHub issue driving the workflow.
type IssueRecord struct {
	IssueNumber      int    `json:"issue_number"`
	BranchName       string `json:"branch_name"`
	Owner            string `json:"owner"`
	Repository       string `json:"repo"`
	Title            string `json:"title"`
	Body             string `json:"body"`
	PullRequestTitle string `json:"pr_title,omitempty"`
}

// RepositoryIdentifier returns the owner/name form used by the GitHub CLI.
func (issueRecord IssueRecord) RepositoryIdentifier() string {
	return fmt.Sprintf(repositoryIdentifierTemplateConstant, issueRecord.Owner, issueRecord.Repository)
}

// ResolvedPullRequestTitle returns the explicit pull request title when present
// and a templated default otherwise.
func (issueRecord IssueRecord) ResolvedPullRequestTitle() string {
	if len(strings.TrimSpace(issueRecord.PullRequestTitle)) > 0 {
		return issueRecord.PullRequestTitle
	}
	issueTitle := issueRecord.Title
	if len(strings.TrimSpace(issueTitle)) == 0 {
		issueTitle = fallbackIssueTitleConstant
	}
	return fmt.Sprintf(defaultPullRequestTitleTemplateConstant, issueRecord.IssueNumber, issueTitle)
}

// ComplexityAssessment carries the pre-computed complexity evaluation.
type ComplexityAssessment struct {
	Level string `json:"level"`
}

// RiskAssessment carries the pre-computed risk evaluation.
type RiskAssessment struct {
	OverallRisk string `json:"overall_risk"`
}

// ImplementationRoadmap carries the pre-computed effort estimate.
type ImplementationRoadmap struct {
	TotalEstimatedTimeMinutes *int `json:"total_estimated_time_minutes"`
}

// CodebaseImpact carries the modules expected to change.
type CodebaseImpact struct {
	AffectedModules []string `json:"affected_modules"`
}

// AnalysisRecord describes the pre-computed issue analysis. Every section is
// optional; accessors substitute placeholder text for absent values.
type AnalysisRecord struct {
	ComplexityAssessment  *ComplexityAssessment  `json:"complexity_assessment,omitempty"`
	RiskAssessment        *RiskAssessment        `json:"risk_assessment,omitempty"`
	ImplementationRoadmap *ImplementationRoadmap `json:"implementation_roadmap,omitempty"`
	CodebaseImpact        *CodebaseImpact        `json:"codebase_impact,omitempty"`
}

// ComplexityLevel returns the assessed complexity or a placeholder.
func (analysisRecord AnalysisRecord) ComplexityLevel() string {
	if analysisRecord.ComplexityAssessment == nil || len(strings.TrimSpace(analysisRecord.ComplexityAssessment.Level)) == 0 {
		return unknownPlaceholderConstant
	}
	return analysisRecord.ComplexityAssessment.Level
}

// OverallRisk returns the assessed risk or a placeholder.
func (analysisRecord AnalysisRecord) OverallRisk() string {
	if analysisRecord.RiskAssessment == nil || len(strings.TrimSpace(analysisRecord.RiskAssessment.OverallRisk)) == 0 {
		return unknownPlaceholderConstant
	}
	return analysisRecord.RiskAssessment.OverallRisk
}

// EstimatedMinutes returns the estimated effort in minutes or a placeholder.
func (analysisRecord AnalysisRecord) EstimatedMinutes() string {
	if analysisRecord.ImplementationRoadmap == nil || analysisRecord.ImplementationRoadmap.TotalEstimatedTimeMinutes == nil {
		return unknownPlaceholderConstant
	}
	return strconv.Itoa(*analysisRecord.ImplementationRoadmap.TotalEstimatedTimeMinutes)
}

// AffectedModulesSummary returns a comma separated module list; empty when none.
func (analysisRecord AnalysisRecord) AffectedModulesSummary() string {
	if analysisRecord.CodebaseImpact == nil {
		return ""
	}
	return strings.Join(analysisRecord.CodebaseImpact.AffectedModules, affectedModulesSeparatorConstant)
}

// InvalidIssueDataError reports issue data fields that failed validation.
type InvalidIssueDataError struct {
	FieldName string
	Message   string
}

// Error describes the validation failure.
func (dataError InvalidIssueDataError) Error() string {
	return fmt.Sprintf(invalidIssueFieldTemplateConstant, dataError.FieldName, dataError.Message)
}

// LoadIssueRecord reads and validates the issue data JSON file.
func LoadIssueRecord(issueDataPath string) (IssueRecord, error) {
	fileContents, readError := os.ReadFile(issueDataPath)
	if readError != nil {
		return IssueRecord{}, fmt.Errorf(issueRecordReadErrorTemplateConstant, readError)
	}

	issueRecord := IssueRecord{}
	if decodeError := json.Unmarshal(fileContents, &issueRecord); decodeError != nil {
		return IssueRecord{}, fmt.Errorf(issueRecordDecodeErrorTemplateConstant, decodeError)
	}

	if issueRecord.IssueNumber <= 0 {
		return IssueRecord{}, InvalidIssueDataError{FieldName: issueNumberFieldNameConstant, Message: positiveNumberMessageConstant}
	}
	if len(strings.TrimSpace(issueRecord.BranchName)) == 0 {
		return IssueRecord{}, InvalidIssueDataError{FieldName: issueBranchNameFieldNameConstant, Message: requiredFieldMessageConstant}
	}
	if len(strings.TrimSpace(issueRecord.Owner)) == 0 {
		return IssueRecord{}, InvalidIssueDataError{FieldName: issueOwnerFieldNameConstant, Message: requiredFieldMessageConstant}
	}
	if len(strings.TrimSpace(issueRecord.Repository)) == 0 {
		return IssueRecord{}, InvalidIssueDataError{FieldName: issueRepositoryFieldNameConstant, Message: requiredFieldMessageConstant}
	}

	return issueRecord, nil
}

// LoadAnalysisRecord reads the analysis data JSON file. All sections are optional.
func LoadAnalysisRecord(analysisDataPath string) (AnalysisRecord, error) {
	fileContents, readError := os.ReadFile(analysisDataPath)
	if readError != nil {
		return AnalysisRecord{}, fmt.Errorf(analysisReadErrorTemplateConstant, readError)
	}

	analysisRecord := AnalysisRecord{}
	if decodeError := json.Unmarshal(fileContents, &analysisRecord); decodeError != nil {
		return AnalysisRecord{}, fmt.Errorf(analysisDecodeErrorTemplateConstant, decodeError)
	}
	return analysisRecord, nil
}
