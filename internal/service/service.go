// Package service composes the ledger, the trigger orchestrator, the
// reconciliation engine and the Jenkins gateway into the operations
// exposed by the tool surfaces.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/lei/jenkins-gateway/internal/console"
	"github.com/lei/jenkins-gateway/internal/gateway"
	"github.com/lei/jenkins-gateway/internal/ledger"
	"github.com/lei/jenkins-gateway/internal/reconcile"
	"github.com/lei/jenkins-gateway/internal/trigger"
	"github.com/lei/jenkins-gateway/pkg/logger"
)

// DefaultMaxLogLines is the page size used when a caller does not
// bound the log read.
const DefaultMaxLogLines = 100

// The wording reaches the tool caller as-is.
var errMissingBuildURL = errors.New("Cannot determine build URL for this build.")

// Options tunes the trigger orchestrator's polling budget. Zero
// values fall back to the package defaults.
type Options struct {
	QueueAttempts int
	QueueDelay    time.Duration
}

// Service coordinates business logic between the tool surfaces and
// the Jenkins gateway.
type Service struct {
	gw     gateway.Gateway
	store  *ledger.Store
	orch   *trigger.Orchestrator
	engine *reconcile.Engine
	logger *logger.Logger
}

// New creates a service instance.
func New(gw gateway.Gateway, store *ledger.Store, log *logger.Logger, opts Options) *Service {
	return &Service{
		gw:     gw,
		store:  store,
		orch:   trigger.NewOrchestrator(gw, store, log, opts.QueueAttempts, opts.QueueDelay),
		engine: reconcile.NewEngine(gw, store, log),
		logger: log,
	}
}

// getLogger retrieves the request-scoped logger from ctx, falling
// back to the service logger.
func (s *Service) getLogger(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// TriggerJob triggers a build and records it in the ledger.
func (s *Service) TriggerJob(ctx context.Context, jobName string, parameters map[string]string) (*TriggerResult, error) {
	log := s.getLogger(ctx)

	log.Debug("service: triggering job", "job", jobName, "param_count", len(parameters))

	res, err := s.orch.Trigger(ctx, jobName, parameters)
	if err != nil {
		log.Error("service: trigger failed", "job", jobName, "error", err)
		return nil, err
	}

	log.Info("service: job triggered",
		"job", jobName,
		"queue_id", res.QueueID,
		"resolved", res.BuildNumber != nil)

	return &TriggerResult{
		Success:     true,
		JobName:     jobName,
		QueueID:     res.QueueID,
		BuildNumber: res.BuildNumber,
		Message:     res.Message,
	}, nil
}

// JobParameters returns a job's parameter definitions.
func (s *Service) JobParameters(ctx context.Context, jobName string) (*ParametersResult, error) {
	log := s.getLogger(ctx)

	log.Debug("service: getting job parameters", "job", jobName)

	info, err := s.gw.JobInfo(ctx, jobName)
	if err != nil {
		log.Error("service: job info failed", "job", jobName, "error", err)
		return nil, err
	}

	params := make([]Parameter, 0)
	for _, prop := range info.Property {
		for _, def := range prop.ParameterDefinitions {
			p := Parameter{
				Name:        def.Name,
				Type:        def.Type,
				Description: def.Description,
				Choices:     def.Choices,
			}
			if def.DefaultParameterValue != nil {
				p.DefaultValue = def.DefaultParameterValue.Value
			}
			params = append(params, p)
		}
	}

	log.Debug("service: job parameters retrieved", "job", jobName, "count", len(params))

	return &ParametersResult{
		Success:        true,
		JobName:        jobName,
		ParameterCount: len(params),
		Parameters:     params,
	}, nil
}

// JobStatus returns the state of a specific build, or the job's
// latest build when buildNumber is nil. A job that has never built
// yields a NoBuildsResult, not an error.
func (s *Service) JobStatus(ctx context.Context, jobName string, buildNumber *int64) (any, error) {
	log := s.getLogger(ctx)

	number, ok, err := s.resolveBuildNumber(ctx, jobName, buildNumber)
	if err != nil {
		log.Error("service: resolve build number failed", "job", jobName, "error", err)
		return nil, err
	}
	if !ok {
		log.Debug("service: job has no builds", "job", jobName)
		return &NoBuildsResult{
			Success: true,
			JobName: jobName,
			Message: "No builds found for this job.",
		}, nil
	}

	info, err := s.gw.BuildInfo(ctx, jobName, number)
	if err != nil {
		log.Error("service: build info failed", "job", jobName, "build_number", number, "error", err)
		return nil, err
	}

	startTime := ""
	if info.Timestamp > 0 {
		startTime = time.UnixMilli(info.Timestamp).UTC().Format(time.RFC3339)
	}

	log.Debug("service: build status retrieved",
		"job", jobName,
		"build_number", info.Number,
		"building", info.Building,
		"result", info.Result)

	return &StatusResult{
		Success:             true,
		JobName:             jobName,
		BuildNumber:         info.Number,
		Result:              info.Result,
		Building:            info.Building,
		StartTime:           startTime,
		DurationMs:          info.Duration,
		EstimatedDurationMs: info.EstimatedDuration,
		DisplayName:         info.DisplayName,
		URL:                 info.URL,
	}, nil
}

// BuildLog returns one page of a build's console output. maxLines
// defaults to DefaultMaxLogLines when non-positive; negative
// startLine is treated as zero.
func (s *Service) BuildLog(ctx context.Context, jobName string, buildNumber int64, startLine, maxLines int, fromEnd bool) (*LogResult, error) {
	log := s.getLogger(ctx)

	if maxLines <= 0 {
		maxLines = DefaultMaxLogLines
	}

	log.Debug("service: fetching build log",
		"job", jobName,
		"build_number", buildNumber,
		"start_line", startLine,
		"max_lines", maxLines,
		"from_end", fromEnd)

	text, err := s.gw.ConsoleOutput(ctx, jobName, buildNumber)
	if err != nil {
		log.Error("service: console output failed", "job", jobName, "build_number", buildNumber, "error", err)
		return nil, err
	}

	page := console.Paginate(console.SplitLines(text), startLine, maxLines, fromEnd)

	return &LogResult{
		Success:       true,
		JobName:       jobName,
		BuildNumber:   buildNumber,
		Log:           strings.Join(page.Lines, "\n"),
		TotalLines:    page.TotalLines,
		StartLine:     page.StartLine,
		LinesReturned: page.LinesReturned,
		HasMore:       page.HasMore,
		FromEnd:       fromEnd,
	}, nil
}

// CancelBuild stops a running build.
func (s *Service) CancelBuild(ctx context.Context, jobName string, buildNumber int64) (*CancelResult, error) {
	log := s.getLogger(ctx)

	log.Info("service: cancelling build", "job", jobName, "build_number", buildNumber)

	if err := s.gw.StopBuild(ctx, jobName, buildNumber); err != nil {
		log.Error("service: cancel failed", "job", jobName, "build_number", buildNumber, "error", err)
		return nil, err
	}

	return &CancelResult{
		Success:     true,
		JobName:     jobName,
		BuildNumber: buildNumber,
		Message:     fmt.Sprintf("Build #%d of '%s' has been cancelled.", buildNumber, jobName),
	}, nil
}

// ListArtifacts lists a build's archived artifacts, defaulting to the
// job's latest build. A job that has never built yields a
// NoBuildsResult, not an error.
func (s *Service) ListArtifacts(ctx context.Context, jobName string, buildNumber *int64) (any, error) {
	log := s.getLogger(ctx)

	number, ok, err := s.resolveBuildNumber(ctx, jobName, buildNumber)
	if err != nil {
		log.Error("service: resolve build number failed", "job", jobName, "error", err)
		return nil, err
	}
	if !ok {
		return &NoBuildsResult{
			Success: true,
			JobName: jobName,
			Message: "No builds found for this job.",
		}, nil
	}

	info, err := s.gw.BuildInfo(ctx, jobName, number)
	if err != nil {
		log.Error("service: build info failed", "job", jobName, "build_number", number, "error", err)
		return nil, err
	}

	artifacts := make([]ArtifactInfo, 0, len(info.Artifacts))
	for _, a := range info.Artifacts {
		artifacts = append(artifacts, ArtifactInfo{
			FileName:     a.FileName,
			RelativePath: a.RelativePath,
			DownloadURL:  artifactURL(info.URL, a.RelativePath),
		})
	}

	log.Debug("service: artifacts listed", "job", jobName, "build_number", number, "count", len(artifacts))

	return &ArtifactsResult{
		Success:       true,
		JobName:       jobName,
		BuildNumber:   number,
		ArtifactCount: len(artifacts),
		Artifacts:     artifacts,
	}, nil
}

// FetchArtifact downloads one artifact and classifies it as text or
// binary. Binary payloads are returned base64-encoded.
func (s *Service) FetchArtifact(ctx context.Context, jobName string, buildNumber int64, artifactPath string) (*ArtifactContentResult, error) {
	log := s.getLogger(ctx)

	log.Debug("service: fetching artifact",
		"job", jobName,
		"build_number", buildNumber,
		"artifact_path", artifactPath)

	info, err := s.gw.BuildInfo(ctx, jobName, buildNumber)
	if err != nil {
		log.Error("service: build info failed", "job", jobName, "build_number", buildNumber, "error", err)
		return nil, err
	}
	if info.URL == "" {
		return nil, errMissingBuildURL
	}

	contentType, body, err := s.gw.FetchURL(ctx, artifactURL(info.URL, artifactPath))
	if err != nil {
		log.Error("service: artifact fetch failed",
			"job", jobName,
			"build_number", buildNumber,
			"artifact_path", artifactPath,
			"error", err)
		return nil, err
	}

	result := &ArtifactContentResult{
		Success:      true,
		JobName:      jobName,
		BuildNumber:  buildNumber,
		ArtifactPath: artifactPath,
		FileName:     path.Base(artifactPath),
		SizeBytes:    len(body),
	}
	if isTextContent(contentType) {
		result.Encoding = "text"
		result.Content = string(body)
	} else {
		result.Encoding = "base64"
		result.Content = base64.StdEncoding.EncodeToString(body)
	}

	log.Info("service: artifact fetched",
		"job", jobName,
		"build_number", buildNumber,
		"artifact_path", artifactPath,
		"encoding", result.Encoding,
		"size_bytes", result.SizeBytes)

	return result, nil
}

// ListTriggeredJobs returns every ledger record, reconciled against
// the server and newest first.
func (s *Service) ListTriggeredJobs(ctx context.Context) (*TriggeredJobsResult, error) {
	log := s.getLogger(ctx)

	log.Debug("service: listing triggered jobs")

	records := s.engine.SyncAll(ctx)

	result := &TriggeredJobsResult{
		Success: true,
		Total:   len(records),
		Records: records,
	}
	if len(records) == 0 {
		result.Message = "No jobs have been triggered through this server yet."
	}

	log.Debug("service: triggered jobs listed", "total", result.Total)

	return result, nil
}

// ClearTriggeredJobs removes every ledger record.
func (s *Service) ClearTriggeredJobs(ctx context.Context) (*ClearResult, error) {
	log := s.getLogger(ctx)

	log.Info("service: clearing triggered jobs")

	if err := s.store.Clear(); err != nil {
		log.Error("service: clear failed", "error", err)
		return nil, err
	}

	return &ClearResult{
		Success: true,
		Message: "All triggered job records have been cleared.",
	}, nil
}

// resolveBuildNumber returns the explicit build number when given,
// otherwise the job's latest build. ok is false when the job has
// never built.
func (s *Service) resolveBuildNumber(ctx context.Context, jobName string, explicit *int64) (number int64, ok bool, err error) {
	if explicit != nil {
		return *explicit, true, nil
	}
	info, err := s.gw.JobInfo(ctx, jobName)
	if err != nil {
		return 0, false, err
	}
	if info.LastBuild == nil {
		return 0, false, nil
	}
	return info.LastBuild.Number, true, nil
}

// artifactURL joins a build page URL with an artifact's relative
// path.
func artifactURL(buildURL, relativePath string) string {
	if !strings.HasSuffix(buildURL, "/") {
		buildURL += "/"
	}
	return buildURL + "artifact/" + relativePath
}

// isTextContent classifies a Content-Type header. Anything under
// text/, plus JSON and XML, is returned verbatim; everything else is
// base64-encoded for transport.
func isTextContent(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return strings.HasPrefix(ct, "text/") || ct == "application/json" || ct == "application/xml"
}
