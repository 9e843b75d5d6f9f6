// Package api is the client of the remote inventory and refresh service.
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"osreport/internal/inventory"
	"osreport/internal/jsonutil"
)

// DefaultTimeout bounds every request except the progress stream.
const DefaultTimeout = 30 * time.Second

const (
	acceptJSON        = "application/json"
	acceptEventStream = "text/event-stream"
)

// Credentials holds the process-wide bearer token. An empty token means the
// client runs unauthenticated.
type Credentials struct {
	mu    sync.RWMutex
	token string
}

// NewCredentials returns credentials holding token.
func NewCredentials(token string) *Credentials {
	return &Credentials{token: token}
}

// Token returns the current token.
func (c *Credentials) Token() string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Set replaces the token.
func (c *Credentials) Set(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client talks to the inventory API.
type Client struct {
	baseURL string
	creds   *Credentials
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a client for baseURL. creds may be nil.
func New(baseURL string, creds *Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http:    &http.Client{},
		timeout: DefaultTimeout,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Query holds the server-side filters of GET /api/resources. Each list is
// sent comma separated; empty lists are omitted.
type Query struct {
	Projects   []string
	ProjectIDs []string
	Types      []string
	Statuses   []string
}

func (q Query) values() url.Values {
	v := url.Values{}
	set := func(key string, vals []string) {
		if len(vals) > 0 {
			v.Set(key, strings.Join(vals, ","))
		}
	}
	set("project", q.Projects)
	set("project_id", q.ProjectIDs)
	set("type", q.Types)
	set("status", q.Statuses)
	return v
}

// ProjectList is the payload of GET /api/projects.
type ProjectList struct {
	Projects    []inventory.Project `json:"projects"`
	Total       int                 `json:"total"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// ReportStatus is the payload of GET /api/status.
type ReportStatus struct {
	ReportExists   bool      `json:"report_exists"`
	LastCheck      time.Time `json:"last_check"`
	ReportAgeHours float64   `json:"report_age_hours,omitempty"`
	ReportAgeHuman string    `json:"report_age_human,omitempty"`
}

// Version is the payload of GET /api/version.
type Version struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

// GetResources fetches the inventory report.
func (c *Client) GetResources(ctx context.Context, q Query) (*inventory.Report, error) {
	var report inventory.Report
	if err := c.getJSON(ctx, "/api/resources", q.values(), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// GetProjects fetches the project list.
func (c *Client) GetProjects(ctx context.Context) (*ProjectList, error) {
	var list ProjectList
	if err := c.getJSON(ctx, "/api/projects", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetStatus fetches the cached report status.
func (c *Client) GetStatus(ctx context.Context) (*ReportStatus, error) {
	var st ReportStatus
	if err := c.getJSON(ctx, "/api/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// GetVersion fetches the server's build information.
func (c *Client) GetVersion(ctx context.Context) (*Version, error) {
	var v Version
	if err := c.getJSON(ctx, "/api/version", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// StartRefresh asks the server to start a refresh session and returns its id.
func (c *Client) StartRefresh(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodPost, "/api/refresh/progress", nil, acceptJSON)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := decodeBody(resp, &out, "decode refresh session"); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("%w: empty session id", ErrTransport)
	}
	return out.SessionID, nil
}

// StreamProgress opens the event stream of a session. The credential travels
// in the query string because the stream endpoint is also consumed by
// browsers that cannot set headers. The caller must Close the stream.
func (c *Client) StreamProgress(ctx context.Context, sessionID string) (*EventStream, error) {
	q := url.Values{}
	q.Set("session_id", sessionID)
	if tok := c.creds.Token(); tok != "" {
		q.Set("token", tok)
	}
	resp, err := c.do(ctx, http.MethodGet, "/api/progress", q, acceptEventStream)
	if err != nil {
		return nil, err
	}
	return newEventStream(resp.Body), nil
}

// ExportPDF downloads the PDF report and returns its bytes and file name.
func (c *Client) ExportPDF(ctx context.Context) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, "/api/export/pdf", nil, acceptJSON)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read pdf: %w", ErrTransport, err)
	}
	return data, c.attachmentName(resp.Header.Get("Content-Disposition")), nil
}

func (c *Client) attachmentName(disposition string) string {
	if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	return "openstack_report_" + c.now().Format("2006-01-02") + ".pdf"
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, path, q, acceptJSON)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeBody(resp, v, "decode "+path)
}

// do sends a request and maps the failure taxonomy. On success the caller
// owns resp.Body.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, accept string) (*http.Response, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}

	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", accept)
	if tok := c.creds.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", "method", method, "path", path, "request_id", reqID, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "duration", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return nil, &StatusError{Code: resp.StatusCode, Detail: errorDetail(body)}
}

// errorDetail extracts the server's {"error", "details"} message, if any.
func errorDetail(body []byte) string {
	m := jsonutil.Object(body)
	if m == nil {
		return strings.TrimSpace(string(body))
	}
	msg := jsonutil.GetStringOr(m, "error", "")
	if details := jsonutil.GetStringOr(m, "details", ""); details != "" {
		if msg == "" {
			return details
		}
		return msg + " (" + details + ")"
	}
	return msg
}

func decodeBody(resp *http.Response, v any, context string) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransport, context, err)
	}
	if err := jsonutil.UnmarshalWithContext(data, v, context); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return nil
}
