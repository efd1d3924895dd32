package http

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"pageview/internal/config"
	"pageview/internal/document"
	"pageview/internal/provider"
	"pageview/internal/viewer"
)

type testDocument struct{}

func (testDocument) PageCount() int { return 3 }

func (testDocument) PagePointSize(page int) (float64, float64) { return 20, 10 }

func (testDocument) Render(ctx context.Context, page int, size image.Point) (image.Image, error) {
	img := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img, nil
}

func (testDocument) Pages() []document.PageInfo {
	return []document.PageInfo{
		{Name: "a.png", Width: 20, Height: 10},
		{Name: "b.png", Width: 20, Height: 10},
		{Name: "c.png", Width: 20, Height: 10},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zaptest.NewLogger(t)
	cfg := &config.Config{EventPollTimeout: 2 * time.Second}

	viewers := viewer.NewRegistry()
	p := provider.New(log,
		provider.WithRenderDelay(time.Millisecond),
		provider.WithMaxRenderPixels(1_000_000),
	)
	p.SetDocument(testDocument{})
	p.SetRequester(viewers)

	srv := httptest.NewServer(New(cfg, log, testDocument{}, p, viewers).Router())
	t.Cleanup(func() {
		srv.Close()
		p.Close()
	})
	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func registerViewer(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/api/viewers", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out.ID
}

func TestPageRenderFlow(t *testing.T) {
	srv := newTestServer(t)
	id := registerViewer(t, srv)
	base := srv.URL + "/api/viewers/" + id

	resp := do(t, http.MethodPut, base+"/viewport", `{"first":0,"last":1}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("viewport: expected 204, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, base+"/pages/0?scale=2", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first request: expected 202, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, base+"/events?timeout=2000", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events: expected 200, got %d", resp.StatusCode)
	}
	var events struct {
		Pages []int `json:"pages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events.Pages) != 1 || events.Pages[0] != 0 {
		t.Fatalf("expected page 0 ready, got %v", events.Pages)
	}

	resp = do(t, http.MethodGet, base+"/pages/0?scale=2", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second request: expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Render-Result"); got != "exact" {
		t.Fatalf("expected exact result, got %q", got)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if img.Bounds().Size() != (image.Point{X: 40, Y: 20}) {
		t.Fatalf("expected 40x20 page, got %v", img.Bounds())
	}

	resp = do(t, http.MethodGet, base+"/pages/0?scale=3", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("zoomed request: expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Render-Result"); got != "placeholder" {
		t.Fatalf("expected placeholder result, got %q", got)
	}
}

func TestPageValidation(t *testing.T) {
	srv := newTestServer(t)
	id := registerViewer(t, srv)
	base := srv.URL + "/api/viewers/" + id

	tests := []struct {
		path string
		want int
	}{
		{"/pages/3", http.StatusBadRequest},
		{"/pages/0?scale=0", http.StatusBadRequest},
		{"/pages/0?scale=-1", http.StatusBadRequest},
		{"/pages/0?scale=abc", http.StatusBadRequest},
		{"/pages/0?scale=NaN", http.StatusBadRequest},
		{"/pages/0?scale=1000", http.StatusBadRequest},
		{"/pages/-1", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp := do(t, http.MethodGet, base+tt.path, "")
		if resp.StatusCode != tt.want {
			t.Fatalf("%s: expected %d, got %d", tt.path, tt.want, resp.StatusCode)
		}
	}

	resp := do(t, http.MethodGet, srv.URL+"/api/viewers/unknown/pages/0", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown viewer: expected 404, got %d", resp.StatusCode)
	}
}

func TestViewportValidation(t *testing.T) {
	srv := newTestServer(t)
	id := registerViewer(t, srv)

	for _, body := range []string{`nope`, `{"first":-1,"last":2}`, `{"first":5,"last":2}`} {
		resp := do(t, http.MethodPut, srv.URL+"/api/viewers/"+id+"/viewport", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, resp.StatusCode)
		}
	}

	resp := do(t, http.MethodPut, srv.URL+"/api/viewers/unknown/viewport", `{"first":0,"last":0}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown viewer: expected 404, got %d", resp.StatusCode)
	}
}

func TestEventsTimeout(t *testing.T) {
	srv := newTestServer(t)
	id := registerViewer(t, srv)

	resp := do(t, http.MethodGet, srv.URL+"/api/viewers/"+id+"/events?timeout=10", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 on timeout, got %d", resp.StatusCode)
	}
}

func TestRemoveViewer(t *testing.T) {
	srv := newTestServer(t)
	id := registerViewer(t, srv)

	resp := do(t, http.MethodDelete, srv.URL+"/api/viewers/"+id, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp = do(t, http.MethodDelete, srv.URL+"/api/viewers/"+id, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for removed viewer, got %d", resp.StatusCode)
	}
}

func TestDocumentStatsAndHealth(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/healthz", "")
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected healthz response %d %q", resp.StatusCode, body)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/document", "")
	var doc struct {
		PageCount int `json:"page_count"`
		Pages     []struct {
			Name string `json:"name"`
		} `json:"pages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc.PageCount != 3 || len(doc.Pages) != 3 {
		t.Fatalf("unexpected document %+v", doc)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/stats", "")
	var stats struct {
		Provider provider.Stats `json:"provider"`
		Viewers  int            `json:"viewers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Provider.CacheLimit != provider.DefaultCacheLimit {
		t.Fatalf("unexpected cache limit %d", stats.Provider.CacheLimit)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodOptions, srv.URL+"/api/viewers", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for preflight, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard origin")
	}
}

func TestCORSOrigins(t *testing.T) {
	srv := newTestServer(t)
	host := strings.TrimPrefix(srv.URL, "http://")

	tests := []struct {
		origin string
		want   string
	}{
		{"", "*"},
		{"http://" + host, "http://" + host},
		{"https://elsewhere.example", ""},
	}
	for _, tt := range tests {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/viewers", nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("preflight: %v", err)
		}
		resp.Body.Close()
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Fatalf("origin %q: expected %q, got %q", tt.origin, tt.want, got)
		}
	}
}

func TestCORSConfiguredOrigin(t *testing.T) {
	log := zaptest.NewLogger(t)
	cfg := &config.Config{AllowedOrigin: "https://viewer.example"}
	h := New(cfg, log, testDocument{}, provider.New(log), viewer.NewRegistry())

	req := httptest.NewRequest(http.MethodOptions, "/api/viewers", nil)
	req.Header.Set("Origin", "https://other.example")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://viewer.example" {
		t.Fatalf("expected configured origin, got %q", got)
	}
}
