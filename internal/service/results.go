package service

import "github.com/lei/jenkins-gateway/internal/ledger"

// Result payloads returned by tool operations. Field names are part
// of the tool contract; both the stdio and HTTP surfaces marshal
// these verbatim.

// ErrorResult is the uniform failure shape. Tool operations never
// leak errors past the surface boundary; every failure becomes one of
// these with the original message text preserved.
type ErrorResult struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// Failure converts an error into the uniform failure payload.
func Failure(err error) *ErrorResult {
	return &ErrorResult{Error: true, Message: err.Error()}
}

// TriggerResult reports a successful trigger. BuildNumber is omitted
// when the queue item did not resolve within the polling budget.
type TriggerResult struct {
	Success     bool   `json:"success"`
	JobName     string `json:"job_name"`
	QueueID     int64  `json:"queue_id"`
	BuildNumber *int64 `json:"build_number,omitempty"`
	Message     string `json:"message"`
}

// Parameter describes one build parameter of a job.
type Parameter struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Description  string   `json:"description"`
	DefaultValue any      `json:"default_value"`
	Choices      []string `json:"choices"`
}

// ParametersResult lists a job's parameter definitions.
type ParametersResult struct {
	Success        bool        `json:"success"`
	JobName        string      `json:"job_name"`
	ParameterCount int         `json:"parameter_count"`
	Parameters     []Parameter `json:"parameters"`
}

// StatusResult reports the state of one build.
type StatusResult struct {
	Success             bool   `json:"success"`
	JobName             string `json:"job_name"`
	BuildNumber         int64  `json:"build_number"`
	Result              string `json:"result"`
	Building            bool   `json:"building"`
	StartTime           string `json:"start_time"`
	DurationMs          int64  `json:"duration_ms"`
	EstimatedDurationMs int64  `json:"estimated_duration_ms"`
	DisplayName         string `json:"display_name"`
	URL                 string `json:"url"`
}

// NoBuildsResult is the non-error answer for a job that has never
// built.
type NoBuildsResult struct {
	Success bool   `json:"success"`
	JobName string `json:"job_name"`
	Message string `json:"message"`
}

// LogResult is one page of console output.
type LogResult struct {
	Success       bool   `json:"success"`
	JobName       string `json:"job_name"`
	BuildNumber   int64  `json:"build_number"`
	Log           string `json:"log"`
	TotalLines    int    `json:"total_lines"`
	StartLine     int    `json:"start_line"`
	LinesReturned int    `json:"lines_returned"`
	HasMore       bool   `json:"has_more"`
	FromEnd       bool   `json:"from_end"`
}

// CancelResult reports a successful build cancellation.
type CancelResult struct {
	Success     bool   `json:"success"`
	JobName     string `json:"job_name"`
	BuildNumber int64  `json:"build_number"`
	Message     string `json:"message"`
}

// ArtifactInfo describes one archived artifact of a build.
type ArtifactInfo struct {
	FileName     string `json:"file_name"`
	RelativePath string `json:"relative_path"`
	DownloadURL  string `json:"download_url"`
}

// ArtifactsResult lists a build's artifacts.
type ArtifactsResult struct {
	Success       bool           `json:"success"`
	JobName       string         `json:"job_name"`
	BuildNumber   int64          `json:"build_number"`
	ArtifactCount int            `json:"artifact_count"`
	Artifacts     []ArtifactInfo `json:"artifacts"`
}

// ArtifactContentResult carries a fetched artifact. Encoding is
// "text" for textual content types and "base64" for everything else.
type ArtifactContentResult struct {
	Success      bool   `json:"success"`
	JobName      string `json:"job_name"`
	BuildNumber  int64  `json:"build_number"`
	ArtifactPath string `json:"artifact_path"`
	FileName     string `json:"file_name"`
	SizeBytes    int    `json:"size_bytes"`
	Encoding     string `json:"encoding"`
	Content      string `json:"content"`
}

// TriggeredJobsResult lists the ledger, reconciled and newest first.
type TriggeredJobsResult struct {
	Success bool            `json:"success"`
	Total   int             `json:"total"`
	Records []ledger.Record `json:"records"`
	Message string          `json:"message,omitempty"`
}

// ClearResult reports a ledger bulk-clear.
type ClearResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
