// Package report fetches the portal's time details and function rollup
// reports with a borrowed browser session.
package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/zhaobenny/mpvwatch/internal/credential"
	"github.com/zhaobenny/mpvwatch/internal/model"
	"github.com/zhaobenny/mpvwatch/internal/parser"
	"github.com/zhaobenny/mpvwatch/internal/policy"
)

const (
	requestTimeout = 20 * time.Second
	reportMarker   = "ganttChart"
	snippetLength  = 300
)

// Acquirer produces a fresh session cookie; credential.Store satisfies it
type Acquirer interface {
	Acquire(ctx context.Context) credential.Result
}

// Config holds the portal connection settings
type Config struct {
	BaseURL     string
	WarehouseID string
	Cookie      string
}

// Response is the body of one authenticated GET. Refreshed holds the new
// cookie when the session was silently renewed during the request; the
// caller decides whether to persist it.
type Response struct {
	Body      string
	Refreshed string
}

// TimeDetailsResult is a parsed time details report
type TimeDetailsResult struct {
	Details   model.TimeDetails
	Refreshed string
}

// PathSummaryResult is the merged rollup across every process
type PathSummaryResult struct {
	model.PathSummary
	Refreshed string `json:"-"`
}

// ConnectionResult is the outcome of TestConnection
type ConnectionResult struct {
	OK        bool
	Message   string
	Refreshed string
}

// Client performs authenticated report requests. It owns the current
// cookie and replaces it whole, so a request in flight keeps the value it
// started with.
type Client struct {
	cfg        Config
	pol        policy.Policy
	acquirer   Acquirer
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	now        func() time.Time

	mu     sync.RWMutex
	cookie string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default 20s-timeout client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock sets the time source used for shift windows
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLimiter paces the per-process rollup requests
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// New creates a client. acquirer may be nil to disable silent refresh.
func New(cfg Config, acquirer Acquirer, pol policy.Policy, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = policy.DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.WarehouseID == "" {
		cfg.WarehouseID = policy.DefaultWarehouse
	}

	c := &Client{
		cfg:        cfg,
		pol:        pol,
		acquirer:   acquirer,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
		logger:     slog.Default(),
		now:        time.Now,
		cookie:     credential.Sanitize(cfg.Cookie),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credential returns the current cookie
func (c *Client) Credential() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cookie
}

// SetCredential replaces the current cookie
func (c *Client) SetCredential(cookie string) {
	c.mu.Lock()
	c.cookie = credential.Sanitize(cookie)
	c.mu.Unlock()
}

// Connected reports whether a cookie is configured
func (c *Client) Connected() bool {
	return credential.Connected(c.Credential())
}

// Shift returns the current shift window
func (c *Client) Shift() model.ShiftWindow {
	return Shift(c.now())
}

// IsLoginPage reports whether html is the portal's sign-in redirect
// rather than a report
func IsLoginPage(html string) bool {
	lower := strings.ToLower(html)
	return strings.Contains(lower, "midway") ||
		strings.Contains(lower, "sign in") ||
		(strings.Contains(lower, "/login") && !strings.Contains(html, reportMarker))
}

// Get fetches rawURL with the current cookie. A login page triggers one
// credential refresh and one retry; when no new cookie is found the login
// page is returned as is.
func (c *Client) Get(ctx context.Context, rawURL string) (Response, error) {
	body, err := c.fetch(ctx, rawURL, c.Credential())
	if err != nil {
		return Response{}, err
	}
	if !IsLoginPage(body) || c.acquirer == nil {
		return Response{Body: body}, nil
	}

	res := c.acquirer.Acquire(ctx)
	if !credential.Connected(res.Cookie) {
		c.logger.Warn("session expired and no browser cookie found", "errors", res.Errors)
		return Response{Body: body}, nil
	}

	fresh := credential.Sanitize(res.Cookie)
	c.SetCredential(fresh)
	c.logger.Info("session cookie refreshed", "browser", res.Source)

	body, err = c.fetch(ctx, rawURL, fresh)
	return Response{Body: body, Refreshed: fresh}, err
}

func (c *Client) fetch(ctx context.Context, rawURL, cookie string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cookie", cookie)
	req.Header.Set("User-Agent", policy.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %w", model.ErrNetwork, err)
	}
	body := strings.ToValidUTF8(string(data), "�")

	if resp.StatusCode >= 400 && !IsLoginPage(body) {
		return "", fmt.Errorf("%w: server returned status %d", model.ErrNetwork, resp.StatusCode)
	}
	return body, nil
}

// intraday returns the query parameters shared by both reports
func intraday(shift model.ShiftWindow) url.Values {
	return url.Values{
		"maxIntradayDays":     {"1"},
		"spanType":            {"Intraday"},
		"startDateIntraday":   {shift.StartDate},
		"startHourIntraday":   {strconv.Itoa(shift.StartHour)},
		"startMinuteIntraday": {"0"},
		"endDateIntraday":     {shift.EndDate},
		"endHourIntraday":     {strconv.Itoa(shift.EndHour)},
		"endMinuteIntraday":   {"0"},
	}
}

func (c *Client) timeDetailsURL(employeeID string, shift model.ShiftWindow) string {
	q := intraday(shift)
	q.Set("employeeId", employeeID)
	q.Set("warehouseId", c.cfg.WarehouseID)
	q.Set("startDateDay", shift.EndDate)
	return c.cfg.BaseURL + "/employee/timeDetails?" + q.Encode()
}

func (c *Client) rollupURL(processID string, shift model.ShiftWindow) string {
	q := intraday(shift)
	q.Set("reportFormat", "HTML")
	q.Set("warehouseId", c.cfg.WarehouseID)
	q.Set("processId", processID)
	return c.cfg.BaseURL + "/reports/functionRollup?" + q.Encode()
}

// FetchTimeDetails fetches and parses one associate's activity for the
// current shift
func (c *Client) FetchTimeDetails(ctx context.Context, employeeID string) (TimeDetailsResult, error) {
	resp, err := c.Get(ctx, c.timeDetailsURL(employeeID, c.Shift()))
	result := TimeDetailsResult{Refreshed: resp.Refreshed}
	if err != nil {
		return result, err
	}
	if IsLoginPage(resp.Body) {
		return result, model.ErrAuthExpired
	}

	result.Details, err = parser.TimeDetails(resp.Body, employeeID)
	return result, err
}

// FetchPathSummary queries every rollup process and merges associates per
// restricted path, sorted by hours descending. A failing process is
// recorded in Errors and does not stop the others.
func (c *Client) FetchPathSummary(ctx context.Context) (PathSummaryResult, error) {
	shift := c.Shift()
	result := PathSummaryResult{PathSummary: model.PathSummary{Paths: make(map[string][]model.AssociateActivity)}}
	for _, p := range c.pol.RestrictedPaths() {
		result.Paths[p] = []model.AssociateActivity{}
	}

	for _, proc := range c.pol.Processes() {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return result, err
			}
		}

		resp, err := c.Get(ctx, c.rollupURL(proc.ID, shift))
		if resp.Refreshed != "" {
			result.Refreshed = resp.Refreshed
		}
		if err != nil {
			c.logger.Warn("rollup fetch failed", "process", proc.Name, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", proc.Name, err))
			continue
		}
		if IsLoginPage(resp.Body) {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: Cookie expired (login page returned)", proc.Name))
			continue
		}
		if err := parser.PathSummary(resp.Body, proc.Name, c.pol, result.Paths); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", proc.Name, err))
		}
	}

	for _, aas := range result.Paths {
		sort.SliceStable(aas, func(i, j int) bool { return aas[i].Hours > aas[j].Hours })
	}
	return result, nil
}

// TestConnection probes the time details endpoint and explains failures
func (c *Client) TestConnection(ctx context.Context) ConnectionResult {
	u := c.cfg.BaseURL + "/employee/timeDetails?warehouseId=" + url.QueryEscape(c.cfg.WarehouseID)
	resp, err := c.Get(ctx, u)
	result := ConnectionResult{Refreshed: resp.Refreshed}

	switch {
	case err != nil:
		result.Message = fmt.Sprintf("Connection failed: %v", err)
	case IsLoginPage(resp.Body):
		result.Message = "Cookie expired or invalid - FCLM is asking to log in."
	case strings.Contains(resp.Body, reportMarker) || strings.Contains(resp.Body, "Time Details"):
		result.OK = true
		result.Message = "Connected to FCLM successfully."
	default:
		snippet := resp.Body
		if r := []rune(snippet); len(r) > snippetLength {
			snippet = string(r[:snippetLength])
		}
		result.Message = fmt.Sprintf("Unexpected response (cookie may be wrong format).\n\nFirst 300 chars:\n%s", strings.TrimSpace(snippet))
	}
	return result
}
