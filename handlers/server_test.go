package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nijaru/yt-mp3/config"
	"github.com/nijaru/yt-mp3/models"
	"github.com/pkg/errors"
)

type fakeHistory struct {
	limit int
	err   error
}

func (f *fakeHistory) RecentConversions(ctx context.Context, limit int) ([]models.Conversion, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []models.Conversion{{ID: 2, VideoID: testVideoID, Action: models.ActionConvert, Status: models.StatusSucceeded}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		ServerPort: "0",
		Version:    "test",
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"POST", "GET", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, opts ...ServerOption) (*httptest.Server, *fakeMetadata, *fakeAudio) {
	t.Helper()
	meta := defaultMetadata()
	audio := &fakeAudio{extract: writeAudio([]byte("ID3"), nil)}
	s := NewServer(cfg, newTestGateway(t, meta, audio), opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, meta, audio
}

func TestServer_Preflight(t *testing.T) {
	ts, meta, audio := newTestServer(t, testConfig())

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/convert", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("unexpected allow origin %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); got != "POST, GET, OPTIONS" {
		t.Errorf("unexpected allow methods %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization" {
		t.Errorf("unexpected allow headers %q", got)
	}
	if meta.calls != 0 || audio.calls() != 0 {
		t.Error("pre-flight reached the providers")
	}
}

func TestServer_ErrorResponsesCarryCORS(t *testing.T) {
	ts, _, _ := newTestServer(t, testConfig())

	resp, err := http.Post(ts.URL+"/api/convert", "application/json", strings.NewReader(`{"url":"https://example.com","action":"info"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected CORS header on error, got %q", got)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestServer_ConvertGetIsJSON405(t *testing.T) {
	ts, _, _ := newTestServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/api/convert")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["error"] != "Method not allowed" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestServer_Health(t *testing.T) {
	ts, _, _ := newTestServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode health: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("unexpected health %v", body)
	}
}

func TestServer_History(t *testing.T) {
	history := &fakeHistory{}
	ts, _, _ := newTestServer(t, testConfig(), WithHistory(history))

	resp, err := http.Get(ts.URL + "/api/history?limit=5")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var conversions []models.Conversion
	if err := json.NewDecoder(resp.Body).Decode(&conversions); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(conversions) != 1 || conversions[0].VideoID != testVideoID {
		t.Errorf("unexpected history %+v", conversions)
	}
	if history.limit != 5 {
		t.Errorf("expected limit 5, got %d", history.limit)
	}
}

func TestServer_HistoryErrors(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		err      error
		wantCode int
	}{
		{"bad limit", "?limit=abc", nil, http.StatusBadRequest},
		{"negative limit", "?limit=-1", nil, http.StatusBadRequest},
		{"store failure", "", errors.New("database is locked"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _, _ := newTestServer(t, testConfig(), WithHistory(&fakeHistory{err: tt.err}))

			resp, err := http.Get(ts.URL + "/api/history" + tt.query)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, resp.StatusCode)
			}
		})
	}
}

func TestServer_HistoryDisabled(t *testing.T) {
	ts, _, _ := newTestServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/api/history")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestServer_StaticIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>yt-mp3</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.StaticDir = dir
	ts, _, _ := newTestServer(t, cfg)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "yt-mp3") {
		t.Errorf("unexpected index response %d %q", resp.StatusCode, body)
	}
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, BurstSize: 1}
	ts, _, _ := newTestServer(t, cfg)

	var last *http.Response
	for i := 0; i < 2; i++ {
		resp, err := http.Get(ts.URL + "/health")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		last = resp
	}

	if last.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", last.StatusCode)
	}
}

func TestServer_RateLimitIsPerClient(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, BurstSize: 1}
	meta := defaultMetadata()
	s := NewServer(cfg, newTestGateway(t, meta, &fakeAudio{}))
	handler := s.Handler()

	info := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(`{"url":"https://youtu.be/dQw4w9WgXcQ","action":"info"}`))
		req.RemoteAddr = remoteAddr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 1; i <= 9; i++ {
		addr := fmt.Sprintf("10.0.0.%d:5000", i)
		if code := info(addr); code != http.StatusOK {
			t.Errorf("%s: expected 200 on first request, got %d", addr, code)
		}
	}
	if code := info("10.0.0.1:5001"); code != http.StatusTooManyRequests {
		t.Errorf("expected repeat client to be limited, got %d", code)
	}
	if meta.calls != 9 {
		t.Errorf("expected 9 provider calls, got %d", meta.calls)
	}
}
