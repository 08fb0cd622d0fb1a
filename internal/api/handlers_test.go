package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lei/jenkins-gateway/internal/config"
	"github.com/lei/jenkins-gateway/internal/gateway"
	"github.com/lei/jenkins-gateway/internal/ledger"
	"github.com/lei/jenkins-gateway/internal/service"
	"github.com/lei/jenkins-gateway/pkg/logger"
)

// fakeGateway is a minimal scripted Gateway for routing tests.
type fakeGateway struct {
	gateway.Gateway

	queueID    int64
	enqueueErr error
	jobInfo    *gateway.JobInfo
	jobInfoErr error
	buildInfo  *gateway.BuildInfo
	buildErr   error
	console    string
	stopErr    error
}

func (f *fakeGateway) EnqueueBuild(ctx context.Context, job string, params map[string]string) (int64, error) {
	if f.enqueueErr != nil {
		return 0, f.enqueueErr
	}
	return f.queueID, nil
}

func (f *fakeGateway) QueueItem(ctx context.Context, queueID int64) (*gateway.QueueItem, error) {
	return &gateway.QueueItem{Executable: &gateway.Executable{Number: 7}}, nil
}

func (f *fakeGateway) JobInfo(ctx context.Context, job string) (*gateway.JobInfo, error) {
	if f.jobInfoErr != nil {
		return nil, f.jobInfoErr
	}
	return f.jobInfo, nil
}

func (f *fakeGateway) BuildInfo(ctx context.Context, job string, number int64) (*gateway.BuildInfo, error) {
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return f.buildInfo, nil
}

func (f *fakeGateway) ConsoleOutput(ctx context.Context, job string, number int64) (string, error) {
	return f.console, nil
}

func (f *fakeGateway) StopBuild(ctx context.Context, job string, number int64) error {
	return f.stopErr
}

func newTestRouter(t *testing.T, gw gateway.Gateway, keys []config.APIKey) http.Handler {
	t.Helper()
	store := ledger.NewStore(filepath.Join(t.TempDir(), "triggered_jobs.json"))
	svc := service.New(gw, store, logger.Nop(), service.Options{QueueAttempts: 1, QueueDelay: 1})
	handlers := NewHandlers(svc)
	return NewRouter(handlers, NewAuthMiddleware(keys), NewLoggingMiddleware(logger.Nop()))
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &fakeGateway{}, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Health() status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("Health() body = %s", w.Body.String())
	}
}

func TestTriggerJob(t *testing.T) {
	router := newTestRouter(t, &fakeGateway{queueID: 42}, nil)

	body := strings.NewReader(`{"parameters":{"ENV":"prod"}}`)
	req := httptest.NewRequest("POST", "/v1/jobs/deploy/trigger", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("TriggerJob() status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var res service.TriggerResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !res.Success || res.QueueID != 42 {
		t.Errorf("TriggerJob() = %+v", res)
	}
	if res.BuildNumber == nil || *res.BuildNumber != 7 {
		t.Errorf("TriggerJob() build number = %v, want 7", res.BuildNumber)
	}
}

func TestTriggerJobEmptyBody(t *testing.T) {
	router := newTestRouter(t, &fakeGateway{queueID: 42}, nil)

	req := httptest.NewRequest("POST", "/v1/jobs/deploy/trigger", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("TriggerJob() status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
}

func TestTriggerJobFolderName(t *testing.T) {
	router := newTestRouter(t, &fakeGateway{queueID: 42}, nil)

	req := httptest.NewRequest("POST", "/v1/jobs/team%2Fapp/trigger", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("TriggerJob() status = %d: %s", w.Code, w.Body.String())
	}

	var res service.TriggerResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.JobName != "team/app" {
		t.Errorf("TriggerJob() job name = %q, want team/app", res.JobName)
	}
}

func TestJobStatus(t *testing.T) {
	gw := &fakeGateway{
		jobInfo:   &gateway.JobInfo{LastBuild: &gateway.BuildRef{Number: 12}},
		buildInfo: &gateway.BuildInfo{Number: 12, Result: "SUCCESS"},
	}
	router := newTestRouter(t, gw, nil)

	req := httptest.NewRequest("GET", "/v1/jobs/deploy/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("JobStatus() status = %d: %s", w.Code, w.Body.String())
	}

	var res service.StatusResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.BuildNumber != 12 || res.Result != "SUCCESS" {
		t.Errorf("JobStatus() = %+v", res)
	}
}

func TestJobStatusInvalidBuildNumber(t *testing.T) {
	router := newTestRouter(t, &fakeGateway{}, nil)

	req := httptest.NewRequest("GET", "/v1/jobs/deploy/status?build_number=abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("JobStatus() status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestBuildLogPagination(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	router := newTestRouter(t, &fakeGateway{console: b.String()}, nil)

	req := httptest.NewRequest("GET", "/v1/jobs/deploy/builds/7/log?start_line=100&max_lines=30", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("BuildLog() status = %d: %s", w.Code, w.Body.String())
	}

	var res service.LogResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.TotalLines != 150 || res.StartLine != 100 || res.LinesReturned != 30 || !res.HasMore {
		t.Errorf("BuildLog() = %+v", res)
	}
}

func TestCancelBuild(t *testing.T) {
	router := newTestRouter(t, &fakeGateway{}, nil)

	req := httptest.NewRequest("POST", "/v1/jobs/deploy/builds/7/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("CancelBuild() status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "has been cancelled") {
		t.Errorf("CancelBuild() body = %s", w.Body.String())
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &gateway.Error{Code: 404, Message: "no such job", Err: gateway.ErrNotFound}, http.StatusNotFound},
		{"unauthorized", &gateway.Error{Code: 401, Message: "bad credentials", Err: gateway.ErrUnauthorized}, http.StatusUnauthorized},
		{"unavailable", &gateway.Error{Code: 503, Message: "down", Err: gateway.ErrUnavailable}, http.StatusBadGateway},
		{"other 4xx passthrough", &gateway.Error{Code: 409, Message: "conflict"}, http.StatusConflict},
		{"server error", &gateway.Error{Code: 500, Message: "boom"}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &fakeGateway{jobInfoErr: tt.err}, nil)

			req := httptest.NewRequest("GET", "/v1/jobs/deploy/status", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}

			var res service.ErrorResult
			if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if !res.Error || res.Message == "" {
				t.Errorf("error body = %+v", res)
			}
		})
	}
}

func TestAuthRequiredWhenKeysConfigured(t *testing.T) {
	keys := []config.APIKey{{Name: "ci", Key: "valid-key"}}
	router := newTestRouter(t, &fakeGateway{}, keys)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcg==", http.StatusUnauthorized},
		{"invalid key", "Bearer nope", http.StatusUnauthorized},
		{"valid key", "Bearer valid-key", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/triggered", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAuthOpenWithoutKeys(t *testing.T) {
	router := newTestRouter(t, &fakeGateway{}, nil)

	req := httptest.NewRequest("GET", "/v1/triggered", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var res service.TriggeredJobsResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Total != 0 || res.Message == "" {
		t.Errorf("ListTriggered() = %+v", res)
	}
}

func TestClearTriggered(t *testing.T) {
	router := newTestRouter(t, &fakeGateway{}, nil)

	req := httptest.NewRequest("DELETE", "/v1/triggered", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("ClearTriggered() status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "have been cleared") {
		t.Errorf("ClearTriggered() body = %s", w.Body.String())
	}
}
