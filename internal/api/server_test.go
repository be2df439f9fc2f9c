// internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/valpere/VidSieve/internal/output"
	"github.com/valpere/VidSieve/internal/utils"
	"github.com/valpere/VidSieve/pkg/types"
)

type fakeController struct {
	mu       sync.Mutex
	settings types.Settings
	totals   types.StatsDelta
}

func (c *fakeController) Settings() types.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.Clone()
}

func (c *fakeController) UpdateSettings(settings types.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = settings.Normalize()
}

func (c *fakeController) Totals() types.StatsDelta {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals
}

func newTestServer(t *testing.T, config Config, opts ...Option) (*httptest.Server, *fakeController, *output.MemoryStore) {
	t.Helper()
	controller := &fakeController{
		settings: types.DefaultSettings(),
		totals:   types.StatsDelta{Views: 2, Total: 2},
	}
	store := output.NewMemoryStore(10)
	ctx := context.Background()
	store.AppendHistory(ctx, types.HistoryEntry{Title: "Low views", Reason: "Views: 6K < 10K", Timestamp: "2024-03-01T12:00:00Z"})
	store.AddStats(ctx, types.StatsDelta{Views: 5, Total: 5})

	opts = append([]Option{WithStore(store)}, opts...)
	server := httptest.NewServer(NewServer(config, controller, opts...).Handler())
	t.Cleanup(server.Close)
	return server, controller, store
}

func TestHealthEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t, Config{})

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestStatsEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t, Config{})

	resp, err := http.Get(server.URL + "/api/v1/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Session.Total != 2 {
		t.Errorf("session total = %d, want 2", body.Session.Total)
	}
	if body.Stored == nil || body.Stored.Total != 5 {
		t.Errorf("stored stats = %+v, want total 5", body.Stored)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t, Config{})

	resp, err := http.Get(server.URL + "/api/v1/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var report output.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(report.History) != 1 || report.History[0].Title != "Low views" {
		t.Errorf("unexpected history %+v", report.History)
	}

	csvResp, err := http.Get(server.URL + "/api/v1/history?format=csv")
	if err != nil {
		t.Fatal(err)
	}
	defer csvResp.Body.Close()
	if ct := csvResp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	rows, err := csv.NewReader(csvResp.Body).ReadAll()
	if err != nil || len(rows) != 2 {
		t.Errorf("expected header and one row, got %v (%v)", rows, err)
	}

	bad, err := http.Get(server.URL + "/api/v1/history?format=pdf")
	if err != nil {
		t.Fatal(err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("unsupported format status = %d", bad.StatusCode)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	server, controller, _ := newTestServer(t, Config{})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"keyword_filter_enabled": true, "banned_keywords": [" Spoiler "], "min_views": 500}`, http.StatusOK},
		{"unknown field", `{"min_likes": 3}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
		{"inverted bounds", `{"min_duration": 600, "max_duration": 60}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPut, server.URL+"/api/v1/settings", strings.NewReader(tt.body))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}

	settings := controller.Settings()
	if !settings.KeywordFilterEnabled || settings.MinViews != 500 {
		t.Errorf("settings not applied: %+v", settings)
	}
	if len(settings.BannedKeywords) != 1 || settings.BannedKeywords[0] != "spoiler" {
		t.Errorf("keywords = %v", settings.BannedKeywords)
	}

	resp, err := http.Get(server.URL + "/api/v1/settings")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got types.Settings
	json.NewDecoder(resp.Body).Decode(&got)
	if got.MinViews != 500 {
		t.Errorf("GET settings min_views = %d", got.MinViews)
	}
}

func TestScanEndpoint(t *testing.T) {
	noScan, _, _ := newTestServer(t, Config{})
	resp, err := http.Post(noScan.URL+"/api/v1/scan", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status without scanner = %d", resp.StatusCode)
	}

	scans := 0
	server, _, _ := newTestServer(t, Config{}, WithScan(func(ctx context.Context) (types.StatsDelta, error) {
		scans++
		if scans > 1 {
			return types.StatsDelta{}, utils.NewError(utils.ErrCodeNotInitialized, "engine not initialized")
		}
		return types.StatsDelta{Age: 1, Total: 1}, nil
	}))

	resp, err = http.Post(server.URL+"/api/v1/scan", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var delta types.StatsDelta
	json.NewDecoder(resp.Body).Decode(&delta)
	resp.Body.Close()
	if delta.Age != 1 {
		t.Errorf("delta = %+v", delta)
	}

	resp, err = http.Post(server.URL+"/api/v1/scan", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status for uninitialized engine = %d", resp.StatusCode)
	}
}

func TestAuthMiddleware(t *testing.T) {
	server, _, _ := newTestServer(t, Config{Token: "secret"})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"same length", "Bearer secreT", http.StatusUnauthorized},
		{"prefix of token", "Bearer secre", http.StatusUnauthorized},
		{"token with suffix", "Bearer secret2", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"valid", "Bearer secret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}

	// health stays public
	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health should not require a token, got %d", resp.StatusCode)
	}
}

func TestTokenMatches(t *testing.T) {
	tests := []struct {
		got, want string
		match     bool
	}{
		{"secret", "secret", true},
		{"secreT", "secret", false},
		{"secret ", "secret", false},
		{"", "secret", false},
	}
	for _, tt := range tests {
		if got := tokenMatches(tt.got, tt.want); got != tt.match {
			t.Errorf("tokenMatches(%q, %q) = %v, want %v", tt.got, tt.want, got, tt.match)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	server, _, _ := newTestServer(t, Config{RateLimit: 1})

	limited := false
	for i := 0; i < 5; i++ {
		resp, err := http.Get(server.URL + "/api/v1/settings")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Error("expected requests beyond the burst to be limited")
	}
}

func TestStatsEndpointStoreFailure(t *testing.T) {
	controller := &fakeController{}
	server := httptest.NewServer(NewServer(Config{}, controller, WithStore(brokenStore{output.NewMemoryStore(1)})).Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/stats")
	if err != nil {
		t.Fatal(err)
	}
	var body bytes.Buffer
	body.ReadFrom(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, body %s", resp.StatusCode, body.String())
	}
}

type brokenStore struct{ *output.MemoryStore }

func (brokenStore) Stats(context.Context) (types.StatsDelta, error) {
	return types.StatsDelta{}, errors.New("connection refused")
}
