package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/zhaobenny/mpvwatch/internal/credential"
	"github.com/zhaobenny/mpvwatch/internal/model"
	"github.com/zhaobenny/mpvwatch/internal/policy"
)

const loginPage = `<html><body>Midway: please Sign in</body></html>`

const ganttPage = `<html><body><div>Hours on Task: 2.5 / 10</div>
<table class="ganttChart">
<tr class="job-seg"><td>J</td><td>Water Spider</td><td>18:00</td><td></td><td>90:00</td></tr>
</table></body></html>`

type fakeAcquirer struct {
	cookie string
	calls  atomic.Int32
}

func (f *fakeAcquirer) Acquire(context.Context) credential.Result {
	f.calls.Add(1)
	return credential.Result{Cookie: f.cookie, Source: "Firefox"}
}

var shiftClock = func() time.Time {
	return time.Date(2026, 10, 19, 20, 0, 0, 0, time.Local)
}

func newTestClient(srv *httptest.Server, cookie string, acq Acquirer) *Client {
	return New(Config{BaseURL: srv.URL + "/", WarehouseID: "IND8", Cookie: cookie}, acq, policy.Default(),
		WithHTTPClient(srv.Client()),
		WithClock(shiftClock),
		WithLimiter(rate.NewLimiter(rate.Inf, 1)),
	)
}

// sessionServer serves the report only to the "fresh" cookie
func sessionServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, policy.UserAgent, r.Header.Get("User-Agent"))
		if r.Header.Get("Cookie") != "fresh=1" {
			fmt.Fprint(w, loginPage)
			return
		}
		fmt.Fprint(w, ganttPage)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchTimeDetailsRefreshesOnce(t *testing.T) {
	var hits atomic.Int32
	srv := sessionServer(t, &hits)
	acq := &fakeAcquirer{cookie: "fresh=1…"}
	c := newTestClient(srv, "stale=1", acq)

	res, err := c.FetchTimeDetails(context.Background(), "12345")

	require.NoError(t, err)
	assert.Equal(t, "fresh=1", res.Refreshed)
	assert.Equal(t, "fresh=1", c.Credential())
	assert.EqualValues(t, 1, acq.calls.Load())
	assert.EqualValues(t, 2, hits.Load())
	require.Len(t, res.Details.Sessions, 1)
	assert.True(t, res.Details.ClockedIn)
	assert.Equal(t, 2.5, res.Details.HoursOnTask)
}

func TestFetchTimeDetailsNoReplacement(t *testing.T) {
	var hits atomic.Int32
	srv := sessionServer(t, &hits)
	acq := &fakeAcquirer{}
	c := newTestClient(srv, "stale=1", acq)

	res, err := c.FetchTimeDetails(context.Background(), "12345")

	assert.True(t, errors.Is(err, model.ErrAuthExpired))
	assert.Empty(t, res.Refreshed)
	assert.Equal(t, "stale=1", c.Credential())
	assert.EqualValues(t, 1, hits.Load())
}

func TestFetchTimeDetailsRetryNotRepeated(t *testing.T) {
	var hits atomic.Int32
	srv := sessionServer(t, &hits)
	acq := &fakeAcquirer{cookie: "also=stale"}
	c := newTestClient(srv, "stale=1", acq)

	res, err := c.FetchTimeDetails(context.Background(), "12345")

	assert.True(t, errors.Is(err, model.ErrAuthExpired))
	assert.Equal(t, "also=stale", res.Refreshed)
	assert.EqualValues(t, 1, acq.calls.Load())
	assert.EqualValues(t, 2, hits.Load())
}

func TestGetWithoutAcquirerReturnsLoginPage(t *testing.T) {
	var hits atomic.Int32
	srv := sessionServer(t, &hits)
	c := newTestClient(srv, "stale=1", nil)

	resp, err := c.Get(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, loginPage, resp.Body)
	assert.True(t, IsLoginPage(resp.Body))
}

func TestFetchTimeDetailsQuery(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/employee/timeDetails", r.URL.Path)
		got = map[string]string{}
		for k := range r.URL.Query() {
			got[k] = r.URL.Query().Get(k)
		}
		fmt.Fprint(w, ganttPage)
	}))
	defer srv.Close()

	c := newTestClient(srv, "fresh=1", nil)
	_, err := c.FetchTimeDetails(context.Background(), "777")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"employeeId":          "777",
		"warehouseId":         "IND8",
		"startDateDay":        "2026/10/20",
		"maxIntradayDays":     "1",
		"spanType":            "Intraday",
		"startDateIntraday":   "2026/10/19",
		"startHourIntraday":   "18",
		"startMinuteIntraday": "0",
		"endDateIntraday":     "2026/10/20",
		"endHourIntraday":     "6",
		"endMinuteIntraday":   "0",
	}, got)
}

func TestServerErrorIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv, "a=b", nil)
	_, err := c.FetchTimeDetails(context.Background(), "1")

	assert.True(t, errors.Is(err, model.ErrNetwork))
}

func rollup(path, badge, name, hours string) string {
	return fmt.Sprintf(`<table><tr><th>%s</th></tr>
<tr><td>AMZN</td><td>%s</td><td>%s</td><td>Mgr</td><td>%s</td></tr></table>`, path, badge, name, hours)
}

func TestFetchPathSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reports/functionRollup", r.URL.Path)
		assert.Equal(t, "HTML", r.URL.Query().Get("reportFormat"))
		switch r.URL.Query().Get("processId") {
		case "1003058":
			fmt.Fprint(w, rollup("Water Spider", "100", "Low", "1.5")+rollup("Water Spider", "101", "High", "4.0"))
		case "1003026":
			http.Error(w, "down", http.StatusBadGateway)
		case "1003059":
			fmt.Fprint(w, loginPage)
		case "1002979":
			fmt.Fprint(w, rollup("Water Spider", "200", "Whd", "2.0"))
		default:
			fmt.Fprint(w, "<html></html>")
		}
	}))
	defer srv.Close()

	c := newTestClient(srv, "a=b", nil)
	res, err := c.FetchPathSummary(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Paths, len(policy.Default().RestrictedPaths()))
	ws := res.Paths["Water Spider"]
	require.Len(t, ws, 2)
	assert.Equal(t, "101", ws[0].BadgeID)
	assert.Equal(t, "100", ws[1].BadgeID)
	require.Len(t, res.Paths["WHD Waterspider"], 1)
	assert.Empty(t, res.Paths["C-Returns_EndofLine"])
	assert.Equal(t, 3, res.Total())

	require.Len(t, res.Errors, 2)
	assert.True(t, strings.HasPrefix(res.Errors[0], "C-Returns Processed: "))
	assert.Equal(t, "V-Returns: Cookie expired (login page returned)", res.Errors[1])
}

func TestTestConnection(t *testing.T) {
	long := "<html>" + strings.Repeat("x", 400) + "</html>"
	bodies := map[string]string{"ok": ganttPage, "login": loginPage, "odd": long}

	var mode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "IND8", r.URL.Query().Get("warehouseId"))
		fmt.Fprint(w, bodies[mode])
	}))

	c := newTestClient(srv, "a=b", nil)

	mode = "ok"
	res := c.TestConnection(context.Background())
	assert.True(t, res.OK)
	assert.Equal(t, "Connected to FCLM successfully.", res.Message)

	mode = "login"
	res = c.TestConnection(context.Background())
	assert.False(t, res.OK)
	assert.Equal(t, "Cookie expired or invalid - FCLM is asking to log in.", res.Message)

	mode = "odd"
	res = c.TestConnection(context.Background())
	assert.False(t, res.OK)
	assert.True(t, strings.HasPrefix(res.Message, "Unexpected response (cookie may be wrong format).\n\nFirst 300 chars:\n<html>xxx"))
	assert.Equal(t, long[:300], strings.TrimPrefix(res.Message, "Unexpected response (cookie may be wrong format).\n\nFirst 300 chars:\n"))

	srv.Close()
	res = c.TestConnection(context.Background())
	assert.False(t, res.OK)
	assert.True(t, strings.HasPrefix(res.Message, "Connection failed: "))
}

func TestIsLoginPage(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"midway", "<a href='https://midway-auth'>", true},
		{"sign in", "Please SIGN IN", true},
		{"login path", `<form action="/login">`, true},
		{"login path on report", `<a href="/login">x</a><table class="ganttChart">`, false},
		{"report", ganttPage, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLoginPage(tt.html))
		})
	}
}

func TestShift(t *testing.T) {
	tests := []struct {
		name       string
		now        time.Time
		start, end string
	}{
		{"evening", time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC), "2026/10/19", "2026/10/20"},
		{"early morning", time.Date(2026, 10, 20, 5, 59, 0, 0, time.UTC), "2026/10/19", "2026/10/20"},
		{"daytime", time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC), "2026/10/19", "2026/10/20"},
		{"month boundary", time.Date(2026, 10, 31, 23, 0, 0, 0, time.UTC), "2026/10/31", "2026/11/01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Shift(tt.now)
			assert.Equal(t, tt.start, s.StartDate)
			assert.Equal(t, tt.end, s.EndDate)
			assert.Equal(t, 18, s.StartHour)
			assert.Equal(t, 6, s.EndHour)
		})
	}
}
