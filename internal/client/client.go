// Package client talks to the video job service over its REST interface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/RevCBH/reeldeck/internal/jobs"
	"github.com/RevCBH/reeldeck/internal/logging"
)

// DefaultBaseURL is where the job service listens in local development
const DefaultBaseURL = "http://localhost:8080"

// RequestIDHeader carries a per-request ULID for correlating service logs
const RequestIDHeader = "X-Request-ID"

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 8 << 20

// Client is a thin HTTP client for the job service.
// It performs no caching and no retries; callers decide when to refetch.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logging.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the overall per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger for per-request debug lines.
func WithLogger(log *logging.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a client for the service at baseURL.
// An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root this client targets
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Submit creates a new generation job and returns its id.
// Validation failures are reported without contacting the service.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return "", &ValidationError{Field: "prompt", Reason: "must not be empty"}
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return "", &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", req.Priority)}
	}
	if req.Duration < 0 {
		return "", &ValidationError{Field: "duration", Reason: "must not be negative"}
	}

	_, payload, err := c.call(ctx, http.MethodPost, "/mcp/generate", nil, req, resourceRef{})
	if err != nil {
		return "", err
	}

	var resp wireSubmitResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", fmt.Errorf("decoding submit response: %w", err)
	}
	id := firstNonEmpty(resp.JobID, resp.JobIDSnake, resp.ID)
	if id == "" {
		return "", &ServiceError{Status: http.StatusOK, Message: "submit response carried no job id"}
	}
	return id, nil
}

// FetchWindow retrieves one server-filtered, server-paginated page of jobs
// together with the global summary.
func (c *Client) FetchWindow(ctx context.Context, f jobs.Filters, p jobs.Pagination) (*jobs.WindowResponse, error) {
	_, payload, err := c.call(ctx, http.MethodGet, "/mcp/jobs", windowQuery(f, p), nil, resourceRef{})
	if err != nil {
		return nil, err
	}

	var w wireWindow
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("decoding jobs response: %w", err)
	}
	return wireToWindow(w, f, p)
}

// GetJob fetches the current state of a single job.
func (c *Client) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	_, payload, err := c.call(ctx, http.MethodGet, "/mcp/status/"+url.PathEscape(id), nil, nil, resourceRef{"job", id})
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Job json.RawMessage `json:"job"`
	}
	if err := json.Unmarshal(payload, &wrapped); err == nil && len(wrapped.Job) > 0 {
		payload = wrapped.Job
	}

	var w wireJob
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("decoding job %s: %w", id, err)
	}
	if w.ID == "" && w.JobID == "" {
		w.ID = id
	}
	j, err := wireToJob(w)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// Cancel asks the service to cancel a job.
// An unknown job yields *NotFoundError.
func (c *Client) Cancel(ctx context.Context, id string) error {
	_, _, err := c.call(ctx, http.MethodPost, "/mcp/cancel/"+url.PathEscape(id), nil, nil, resourceRef{"job", id})
	return err
}

// FetchResult returns the rendered output of a job.
func (c *Client) FetchResult(ctx context.Context, id string) (*jobs.Result, error) {
	status, payload, err := c.call(ctx, http.MethodGet, "/mcp/result/"+url.PathEscape(id), nil, nil, resourceRef{"result", id})
	if err != nil {
		return nil, err
	}
	if status == http.StatusAccepted {
		return nil, &ServiceError{Status: status, Code: "not_ready", Message: "job not completed"}
	}

	var w wireResult
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("decoding result %s: %w", id, err)
	}
	return wireToResult(w, id)
}

// FetchStoryboard returns the planned scenes of a job.
// While planning is still running the service answers 202 and
// ErrStoryboardPending is returned.
func (c *Client) FetchStoryboard(ctx context.Context, id string) (*jobs.Storyboard, error) {
	status, payload, err := c.call(ctx, http.MethodGet, "/mcp/storyboard/"+url.PathEscape(id), nil, nil, resourceRef{"storyboard", id})
	if err != nil {
		return nil, err
	}
	if status == http.StatusAccepted {
		return nil, ErrStoryboardPending
	}

	var w wireStoryboard
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("decoding storyboard %s: %w", id, err)
	}
	return wireToStoryboard(w), nil
}

// Prefetch asks the service to warm assets for a job.
func (c *Client) Prefetch(ctx context.Context, id string) error {
	_, _, err := c.call(ctx, http.MethodPost, "/mcp/prefetch/"+url.PathEscape(id), nil, nil, resourceRef{"job", id})
	return err
}

// Health checks that the service is up.
func (c *Client) Health(ctx context.Context) (*HealthInfo, error) {
	_, payload, err := c.call(ctx, http.MethodGet, "/health", nil, nil, resourceRef{})
	if err != nil {
		return nil, err
	}

	var h HealthInfo
	if err := json.Unmarshal(payload, &h); err != nil {
		return nil, fmt.Errorf("decoding health response: %w", err)
	}
	h.Healthy = h.Status == "" || h.Status == "healthy" || h.Status == "ok"
	return &h, nil
}

func windowQuery(f jobs.Filters, p jobs.Pagination) url.Values {
	q := url.Values{}
	if len(f.Statuses) > 0 {
		vals := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			vals[i] = string(s)
		}
		q.Set("status", strings.Join(vals, ","))
	}
	if len(f.Priorities) > 0 {
		vals := make([]string, len(f.Priorities))
		for i, pr := range f.Priorities {
			vals[i] = string(pr)
		}
		q.Set("priority", strings.Join(vals, ","))
	}
	if f.DateRange != "" {
		q.Set("date_range", string(f.DateRange))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.SortBy != "" {
		q.Set("sort_by", p.SortBy)
	}
	if p.SortOrder != "" {
		q.Set("sort_order", string(p.SortOrder))
	}
	return q
}

// resourceRef names the entity a request targets so 404s can be reported
// as *NotFoundError.
type resourceRef struct {
	kind string
	id   string
}

// call performs one request and returns the status code and the unwrapped
// payload of a 2xx response.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in any, ref resourceRef) (int, json.RawMessage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}
	reqID := ulid.Make().String()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", "method", method, "path", path, "request_id", reqID, "error", err)
		return 0, nil, classifyError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, classifyError(ctx, err)
	}
	c.log.Debug("request complete",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"elapsed", time.Since(start),
	)

	if ref.kind != "" && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone) {
		return resp.StatusCode, nil, &NotFoundError{Resource: ref.kind, ID: ref.id}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, nil, errorFromBody(resp.StatusCode, raw)
	}

	payload, err := unwrap(resp.StatusCode, raw)
	return resp.StatusCode, payload, err
}

// unwrap strips the {success, data} envelope when present. Endpoints that
// answer with a bare object are returned unchanged.
func unwrap(status int, raw []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("{}"), nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Not an object; let the caller's decode report it.
		return raw, nil
	}
	if env.Success != nil && !*env.Success {
		code, msg := parseEnvelopeError(env.Error)
		return nil, &ServiceError{Status: status, Code: code, Message: firstNonEmpty(msg, env.Message, "request failed")}
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		return env.Data, nil
	}
	return raw, nil
}

func errorFromBody(status int, raw []byte) error {
	e := &ServiceError{Status: status, Message: http.StatusText(status)}
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		code, msg := parseEnvelopeError(env.Error)
		e.Code = code
		e.Message = firstNonEmpty(msg, env.Message, e.Message)
	}
	return e
}

func parseEnvelopeError(raw json.RawMessage) (code, message string) {
	if len(raw) == 0 {
		return "", ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return "", s
	}
	var obj envelopeError
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Code, obj.Message
	}
	return "", ""
}
