package gateway

import "context"

// Gateway abstracts the Jenkins server's remote API. The core only
// consumes this capability set; the HTTP wiring lives in the jenkins
// subpackage.
type Gateway interface {
	// EnqueueBuild requests a new build for the given job and returns
	// the queue item ID Jenkins assigns immediately. The build number
	// is assigned asynchronously and is not known yet.
	EnqueueBuild(ctx context.Context, job string, params map[string]string) (int64, error)

	// QueueItem retrieves the transient queue item for a pending
	// build request. Its Executable is nil until an executor picks
	// the request up.
	QueueItem(ctx context.Context, queueID int64) (*QueueItem, error)

	// JobInfo retrieves job metadata including the last build
	// reference and parameter definitions.
	JobInfo(ctx context.Context, job string) (*JobInfo, error)

	// BuildInfo retrieves the current state of a specific build.
	BuildInfo(ctx context.Context, job string, number int64) (*BuildInfo, error)

	// ConsoleOutput returns the full console log text of a build.
	ConsoleOutput(ctx context.Context, job string, number int64) (string, error)

	// StopBuild aborts a running build.
	StopBuild(ctx context.Context, job string, number int64) error

	// FetchURL downloads an absolute URL from the Jenkins server,
	// returning the Content-Type header and the raw body. Used for
	// artifact retrieval.
	FetchURL(ctx context.Context, url string) (contentType string, body []byte, err error)
}

// QueueItem is Jenkins' transient representation of a build request
// before a build number is assigned.
type QueueItem struct {
	Executable *Executable `json:"executable"`
}

// Executable marks a queue item that has become an actual build.
type Executable struct {
	Number int64  `json:"number"`
	URL    string `json:"url"`
}

// JobInfo is the subset of Jenkins job metadata the gateway consumes.
type JobInfo struct {
	LastBuild *BuildRef  `json:"lastBuild"`
	Property  []Property `json:"property"`
}

// BuildRef references a build by number.
type BuildRef struct {
	Number int64 `json:"number"`
}

// Property carries a job's parameter definitions, when present.
type Property struct {
	ParameterDefinitions []ParameterDefinition `json:"parameterDefinitions"`
}

// ParameterDefinition describes one build parameter of a job.
type ParameterDefinition struct {
	Name                  string          `json:"name"`
	Type                  string          `json:"type"`
	Description           string          `json:"description"`
	DefaultParameterValue *ParameterValue `json:"defaultParameterValue"`
	Choices               []string        `json:"choices"`
}

// ParameterValue holds a parameter's default value. The value type
// depends on the parameter kind (string, bool, ...).
type ParameterValue struct {
	Value any `json:"value"`
}

// BuildInfo is the state of a single build.
type BuildInfo struct {
	Number            int64      `json:"number"`
	Result            string     `json:"result"` // SUCCESS, FAILURE, ABORTED, ... empty while building
	Building          bool       `json:"building"`
	Timestamp         int64      `json:"timestamp"` // epoch milliseconds
	Duration          int64      `json:"duration"`  // milliseconds
	EstimatedDuration int64      `json:"estimatedDuration"`
	DisplayName       string     `json:"displayName"`
	URL               string     `json:"url"`
	Artifacts         []Artifact `json:"artifacts"`
}

// Artifact describes one archived build artifact.
type Artifact struct {
	DisplayPath  string `json:"displayPath"`
	FileName     string `json:"fileName"`
	RelativePath string `json:"relativePath"`
}
