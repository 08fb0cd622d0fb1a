// Package mcpserver exposes the gateway's operations as MCP tools
// over stdio. This is the composition point for the stdio surface:
// tool schemas and argument handling live here, business logic stays
// in the service layer.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lei/jenkins-gateway/internal/service"
	"github.com/lei/jenkins-gateway/pkg/logger"
)

// New creates the MCP server with every tool registered.
func New(svc *service.Service, log *logger.Logger, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"jenkins-gateway",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	h := &handlers{svc: svc}

	s.AddTool(triggerJobTool(), h.triggerJob)
	s.AddTool(jobParametersTool(), h.jobParameters)
	s.AddTool(jobStatusTool(), h.jobStatus)
	s.AddTool(buildLogTool(), h.buildLog)
	s.AddTool(cancelBuildTool(), h.cancelBuild)
	s.AddTool(listArtifactsTool(), h.listArtifacts)
	s.AddTool(fetchArtifactTool(), h.fetchArtifact)
	s.AddTool(listTriggeredTool(), h.listTriggered)
	s.AddTool(clearTriggeredTool(), h.clearTriggered)

	log.Debug("mcp tools registered", "version", version)

	return s
}

// ServeStdio runs the server over stdin/stdout until EOF.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

type handlers struct {
	svc *service.Service
}

// jsonResult marshals a payload (success or failure shape alike) into
// a text content result. Tool handlers never return protocol-level
// errors for operation failures; those travel inside the payload.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// failure wraps an operation error in the uniform failure payload.
func failure(err error) (*mcp.CallToolResult, error) {
	return jsonResult(service.Failure(err))
}

// stringParameters converts a JSON object argument into the string
// map the Jenkins form submission expects. Non-string values keep
// their JSON rendering.
func stringParameters(raw any) map[string]string {
	obj, ok := raw.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil
	}
	params := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			params[k] = val
		case float64:
			params[k] = trimFloat(val)
		default:
			params[k] = fmt.Sprintf("%v", val)
		}
	}
	return params
}

// trimFloat renders a JSON number without a spurious ".0" for whole
// values, matching how callers write parameters.
func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", f)
}

// optionalBuildNumber reads an optional build_number argument.
func optionalBuildNumber(req mcp.CallToolRequest) *int64 {
	args := req.GetArguments()
	if v, ok := args["build_number"]; !ok || v == nil {
		return nil
	}
	n := int64(req.GetInt("build_number", 0))
	return &n
}

// --- tool definitions -------------------------------------------------

func triggerJobTool() mcp.Tool {
	return mcp.NewTool("trigger_job",
		mcp.WithDescription("Trigger a Jenkins job build, optionally with parameters. Records the trigger so its status can be tracked later."),
		mcp.WithString("job_name",
			mcp.Required(),
			mcp.Description("Full name of the Jenkins job (use '/' for folder paths)."),
		),
		mcp.WithObject("parameters",
			mcp.Description("Optional build parameters as key-value pairs."),
		),
	)
}

func jobParametersTool() mcp.Tool {
	return mcp.NewTool("get_job_parameters",
		mcp.WithDescription("Get the parameter definitions for a Jenkins job: name, type, description, default value and choices."),
		mcp.WithString("job_name",
			mcp.Required(),
			mcp.Description("Full name of the Jenkins job."),
		),
	)
}

func jobStatusTool() mcp.Tool {
	return mcp.NewTool("get_job_status",
		mcp.WithDescription("Get the status of a Jenkins build: result, whether it is still building, start time and duration."),
		mcp.WithString("job_name",
			mcp.Required(),
			mcp.Description("Full name of the Jenkins job."),
		),
		mcp.WithNumber("build_number",
			mcp.Description("Specific build number to query. Defaults to the latest build."),
		),
	)
}

func buildLogTool() mcp.Tool {
	return mcp.NewTool("get_build_log",
		mcp.WithDescription("Get paginated console output for a Jenkins build. Supports reading from the beginning or the end of the log."),
		mcp.WithString("job_name",
			mcp.Required(),
			mcp.Description("Full name of the Jenkins job."),
		),
		mcp.WithNumber("build_number",
			mcp.Required(),
			mcp.Description("The build number to fetch logs for."),
		),
		mcp.WithNumber("start_line",
			mcp.DefaultNumber(0),
			mcp.Description("Line offset. Forward mode: 0-based line to start from. With from_end: number of lines to skip from the very end."),
		),
		mcp.WithNumber("max_lines",
			mcp.DefaultNumber(100),
			mcp.Description("Maximum number of lines to return."),
		),
		mcp.WithBoolean("from_end",
			mcp.DefaultBool(false),
			mcp.Description("Read lines from the end of the log instead of the beginning."),
		),
	)
}

func cancelBuildTool() mcp.Tool {
	return mcp.NewTool("cancel_build",
		mcp.WithDescription("Cancel (stop) a running Jenkins build."),
		mcp.WithString("job_name",
			mcp.Required(),
			mcp.Description("Full name of the Jenkins job."),
		),
		mcp.WithNumber("build_number",
			mcp.Required(),
			mcp.Description("The build number to cancel."),
		),
	)
}

func listArtifactsTool() mcp.Tool {
	return mcp.NewTool("list_build_artifacts",
		mcp.WithDescription("List the archived artifacts of a Jenkins build with their download URLs."),
		mcp.WithString("job_name",
			mcp.Required(),
			mcp.Description("Full name of the Jenkins job."),
		),
		mcp.WithNumber("build_number",
			mcp.Description("Specific build number. Defaults to the latest build."),
		),
	)
}

func fetchArtifactTool() mcp.Tool {
	return mcp.NewTool("fetch_build_artifact",
		mcp.WithDescription("Download one build artifact. Text artifacts are returned verbatim, binary artifacts base64-encoded."),
		mcp.WithString("job_name",
			mcp.Required(),
			mcp.Description("Full name of the Jenkins job."),
		),
		mcp.WithNumber("build_number",
			mcp.Required(),
			mcp.Description("The build number the artifact belongs to."),
		),
		mcp.WithString("artifact_path",
			mcp.Required(),
			mcp.Description("The artifact's relative path as reported by list_build_artifacts."),
		),
	)
}

func listTriggeredTool() mcp.Tool {
	return mcp.NewTool("list_triggered_jobs",
		mcp.WithDescription("List all builds triggered through this server, refreshing their status from Jenkins. Newest first."),
	)
}

func clearTriggeredTool() mcp.Tool {
	return mcp.NewTool("clear_triggered_jobs",
		mcp.WithDescription("Remove all triggered-build records from the local ledger."),
	)
}

// --- tool handlers ----------------------------------------------------

func (h *handlers) triggerJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobName, err := req.RequireString("job_name")
	if err != nil {
		return failure(err)
	}
	params := stringParameters(req.GetArguments()["parameters"])

	res, err := h.svc.TriggerJob(ctx, jobName, params)
	if err != nil {
		return failure(err)
	}
	return jsonResult(res)
}

func (h *handlers) jobParameters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobName, err := req.RequireString("job_name")
	if err != nil {
		return failure(err)
	}

	res, err := h.svc.JobParameters(ctx, jobName)
	if err != nil {
		return failure(err)
	}
	return jsonResult(res)
}

func (h *handlers) jobStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobName, err := req.RequireString("job_name")
	if err != nil {
		return failure(err)
	}

	res, err := h.svc.JobStatus(ctx, jobName, optionalBuildNumber(req))
	if err != nil {
		return failure(err)
	}
	return jsonResult(res)
}

func (h *handlers) buildLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobName, err := req.RequireString("job_name")
	if err != nil {
		return failure(err)
	}
	buildNumber, err := req.RequireInt("build_number")
	if err != nil {
		return failure(err)
	}
	startLine := req.GetInt("start_line", 0)
	maxLines := req.GetInt("max_lines", service.DefaultMaxLogLines)
	fromEnd := req.GetBool("from_end", false)

	res, err := h.svc.BuildLog(ctx, jobName, int64(buildNumber), startLine, maxLines, fromEnd)
	if err != nil {
		return failure(err)
	}
	return jsonResult(res)
}

func (h *handlers) cancelBuild(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobName, err := req.RequireString("job_name")
	if err != nil {
		return failure(err)
	}
	buildNumber, err := req.RequireInt("build_number")
	if err != nil {
		return failure(err)
	}

	res, err := h.svc.CancelBuild(ctx, jobName, int64(buildNumber))
	if err != nil {
		return failure(err)
	}
	return jsonResult(res)
}

func (h *handlers) listArtifacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobName, err := req.RequireString("job_name")
	if err != nil {
		return failure(err)
	}

	res, err := h.svc.ListArtifacts(ctx, jobName, optionalBuildNumber(req))
	if err != nil {
		return failure(err)
	}
	return jsonResult(res)
}

func (h *handlers) fetchArtifact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobName, err := req.RequireString("job_name")
	if err != nil {
		return failure(err)
	}
	buildNumber, err := req.RequireInt("build_number")
	if err != nil {
		return failure(err)
	}
	artifactPath, err := req.RequireString("artifact_path")
	if err != nil {
		return failure(err)
	}

	res, err := h.svc.FetchArtifact(ctx, jobName, int64(buildNumber), artifactPath)
	if err != nil {
		return failure(err)
	}
	return jsonResult(res)
}

func (h *handlers) listTriggered(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.svc.ListTriggeredJobs(ctx)
	if err != nil {
		return failure(err)
	}
	return jsonResult(res)
}

func (h *handlers) clearTriggered(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.svc.ClearTriggeredJobs(ctx)
	if err != nil {
		return failure(err)
	}
	return jsonResult(res)
}
