// Package jenkins implements the gateway.Gateway interface over the
// Jenkins remote API.
package jenkins

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lei/jenkins-gateway/internal/gateway"
	"github.com/lei/jenkins-gateway/pkg/logger"
)

// Config contains Jenkins connection settings
type Config struct {
	URL      string
	Username string
	APIToken string
	Timeout  time.Duration
}

// Client handles HTTP communication with the Jenkins remote API
type Client struct {
	baseURL    string
	username   string
	apiToken   string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new Jenkins API client
func NewClient(cfg *Config, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		username:   cfg.Username,
		apiToken:   cfg.APIToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// jobPath converts a job name to its URL path. Folder jobs use '/'
// separators: "team/app" becomes "/job/team/job/app".
func jobPath(job string) string {
	var b strings.Builder
	for _, seg := range strings.Split(job, "/") {
		if seg == "" {
			continue
		}
		b.WriteString("/job/")
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}

// doRequest performs an authenticated HTTP request against the server
func (c *Client) doRequest(ctx context.Context, method, path string, form url.Values) (*http.Response, error) {
	c.logger.Debug("jenkins: http request",
		"method", method,
		"path", path)

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		c.logger.Error("jenkins: failed to create request", "error", err)
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.apiToken)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("jenkins: http request failed",
			"method", method,
			"path", path,
			"error", err)
		return nil, fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}

	c.logger.Debug("jenkins: http response",
		"method", method,
		"path", path,
		"status", resp.StatusCode)

	return resp, nil
}

// EnqueueBuild implements gateway.Gateway. Jenkins returns the queue
// item URL in the Location header of the 201 response.
func (c *Client) EnqueueBuild(ctx context.Context, job string, params map[string]string) (int64, error) {
	path := jobPath(job) + "/build"
	var form url.Values
	if len(params) > 0 {
		path = jobPath(job) + "/buildWithParameters"
		form = url.Values{}
		for k, v := range params {
			form.Set(k, v)
		}
	}

	resp, err := c.doRequest(ctx, http.MethodPost, path, form)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return 0, parseError(resp)
	}

	queueID, err := queueIDFromLocation(resp.Header.Get("Location"))
	if err != nil {
		return 0, err
	}
	return queueID, nil
}

// queueIDFromLocation extracts the queue item ID from a Location
// header like "https://jenkins/queue/item/123/".
func queueIDFromLocation(location string) (int64, error) {
	if location == "" {
		return 0, fmt.Errorf("trigger response missing Location header")
	}
	trimmed := strings.TrimSuffix(location, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return 0, fmt.Errorf("unexpected queue location %q", location)
	}
	id, err := strconv.ParseInt(trimmed[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected queue location %q: %w", location, err)
	}
	return id, nil
}

// QueueItem implements gateway.Gateway
func (c *Client) QueueItem(ctx context.Context, queueID int64) (*gateway.QueueItem, error) {
	path := fmt.Sprintf("/queue/item/%d/api/json", queueID)

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	var item gateway.QueueItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decode queue item: %w", err)
	}
	return &item, nil
}

// JobInfo implements gateway.Gateway
func (c *Client) JobInfo(ctx context.Context, job string) (*gateway.JobInfo, error) {
	path := jobPath(job) + "/api/json"

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	var info gateway.JobInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode job info: %w", err)
	}
	return &info, nil
}

// BuildInfo implements gateway.Gateway
func (c *Client) BuildInfo(ctx context.Context, job string, number int64) (*gateway.BuildInfo, error) {
	path := fmt.Sprintf("%s/%d/api/json", jobPath(job), number)

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	var info gateway.BuildInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode build info: %w", err)
	}
	return &info, nil
}

// ConsoleOutput implements gateway.Gateway
func (c *Client) ConsoleOutput(ctx context.Context, job string, number int64) (string, error) {
	path := fmt.Sprintf("%s/%d/consoleText", jobPath(job), number)

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", parseError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read console output: %w", err)
	}
	return string(body), nil
}

// StopBuild implements gateway.Gateway. Jenkins answers the stop POST
// with a redirect to the build page, which the http client follows.
func (c *Client) StopBuild(ctx context.Context, job string, number int64) error {
	path := fmt.Sprintf("%s/%d/stop", jobPath(job), number)

	resp, err := c.doRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return parseError(resp)
	}
	return nil
}

// FetchURL implements gateway.Gateway. The URL must point at the
// configured Jenkins server; credentials are attached.
func (c *Client) FetchURL(ctx context.Context, rawURL string) (string, []byte, error) {
	c.logger.Debug("jenkins: fetching url", "url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("create request: %w", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("jenkins: fetch failed", "url", rawURL, "error", err)
		return "", nil, fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, parseError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.Header.Get("Content-Type"), body, nil
}

// parseError converts HTTP error responses to gateway errors
func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := resp.Header.Get("X-Error")
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return &gateway.Error{Code: resp.StatusCode, Message: message, Err: gateway.ErrNotFound}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &gateway.Error{Code: resp.StatusCode, Message: message, Err: gateway.ErrUnauthorized}
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return &gateway.Error{Code: resp.StatusCode, Message: message, Err: gateway.ErrUnavailable}
	default:
		return &gateway.Error{Code: resp.StatusCode, Message: message}
	}
}
