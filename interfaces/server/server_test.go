package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/felixgeelhaar/hoopstats/application"
	"github.com/felixgeelhaar/hoopstats/domain/artifact"
	"github.com/felixgeelhaar/hoopstats/infrastructure/storage/memory"
	"github.com/felixgeelhaar/hoopstats/infrastructure/telemetry"
)

type fakeAsker struct {
	reply application.Reply
	err   error
	got   []string
}

func (f *fakeAsker) Ask(_ context.Context, query string) (application.Reply, error) {
	f.got = append(f.got, query)
	if strings.TrimSpace(query) == "" {
		return application.Reply{}, application.ErrEmptyQuery
	}
	return f.reply, f.err
}

func testConfig() Config {
	return Config{AllowedOrigins: []string{"http://localhost:5173"}}
}

func postChat(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, ChatResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp ChatResponse
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, resp
}

func TestChat(t *testing.T) {
	t.Parallel()

	asker := &fakeAsker{reply: application.Reply{
		Answer:   "Jokic averaged 30.2 PPG.",
		ChartRef: &artifact.Ref{ID: "chart-1"},
	}}
	srv := New(asker, testConfig())

	rec, resp := postChat(t, srv.Handler(), `{"message": "Compare Giannis vs Jokic"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Reply != "Jokic averaged 30.2 PPG." || resp.ChartRef != "chart-1" || resp.Chart != "" {
		t.Errorf("resp = %+v", resp)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`{"message": "   "}`, `{}`, ``} {
		_, resp := postChat(t, New(&fakeAsker{}, testConfig()).Handler(), body)
		if resp.Reply != EmptyMessageReply {
			t.Errorf("body %q: reply = %q", body, resp.Reply)
		}
	}
}

func TestChat_Errors(t *testing.T) {
	t.Parallel()

	srv := New(&fakeAsker{err: &application.StageError{Stage: "search", Err: errors.New("provider unavailable")}}, testConfig())

	_, resp := postChat(t, srv.Handler(), `{"message": "Who won MVP in 2016?"}`)
	if resp.Reply != "Sorry, an error occurred: search stage: provider unavailable" {
		t.Errorf("reply = %q", resp.Reply)
	}

	rec, _ := postChat(t, srv.Handler(), `{"message":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}
}

func TestChat_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	New(&fakeAsker{}, testConfig()).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	New(&fakeAsker{}, testConfig()).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	h := New(&fakeAsker{}, testConfig()).Handler()

	tests := []struct {
		name       string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"allowed", "http://localhost:5173", http.StatusNoContent, "http://localhost:5173"},
		{"denied", "http://evil.example", http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", "POST")
			req.Header.Set("Access-Control-Request-Headers", "content-type")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"q"}`))
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("simple request missing credentials header")
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	cfg := telemetry.DefaultMetricsConfig()
	cfg.MeterProvider = mp
	metrics, err := telemetry.NewMetricsProvider(cfg)
	if err != nil {
		t.Fatal(err)
	}

	conf := testConfig()
	conf.RateLimit, conf.Rate, conf.Burst = true, 1, 2
	h := New(&fakeAsker{reply: application.Reply{Answer: "a"}}, conf, WithMetrics(metrics)).Handler()

	codes := make([]int, 0, 4)
	for range 4 {
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"q"}`))
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[3] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v", codes)
	}

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"q"}`))
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d", rec.Code)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, m := range flatten(rm) {
		if m.Name == telemetry.MetricRateLimitHits && len(m.Points) > 0 && m.Points[0].Value >= 1 {
			found = true
		}
	}
	if !found {
		t.Error("rate limit hit not recorded")
	}
}

func TestCharts(t *testing.T) {
	t.Parallel()

	store := memory.NewArtifactStore()
	png := []byte("\x89PNG\r\n\x1a\nfake")
	ref, err := store.Store(context.Background(), bytes.NewReader(png), artifact.PNG("chart"))
	if err != nil {
		t.Fatal(err)
	}
	h := New(&fakeAsker{}, testConfig(), WithArtifacts(store)).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/charts/"+ref.ID, nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" || !bytes.Equal(rec.Body.Bytes(), png) {
		t.Errorf("chart = %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/charts/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing chart status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	New(&fakeAsker{}, testConfig()).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/charts/"+ref.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("disabled storage status = %d", rec.Code)
	}
}

type staticSource struct {
	rm  metricdata.ResourceMetrics
	err error
}

func (s staticSource) Collect(context.Context) (metricdata.ResourceMetrics, error) {
	return s.rm, s.err
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	rm := metricdata.ResourceMetrics{ScopeMetrics: []metricdata.ScopeMetrics{{
		Metrics: []metricdata.Metrics{
			{Name: "hoopstats.cache.hits", Data: metricdata.Sum[int64]{DataPoints: []metricdata.DataPoint[int64]{{Value: 3}}}},
			{Name: "hoopstats.stage.duration", Unit: "ms", Data: metricdata.Histogram[float64]{
				DataPoints: []metricdata.HistogramDataPoint[float64]{{Count: 2, Sum: 150}},
			}},
		},
	}}}
	h := New(&fakeAsker{}, testConfig(), WithMetricsSource(staticSource{rm: rm})).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	var body struct {
		Metrics []Metric `json:"metrics"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Metrics) != 2 || body.Metrics[0].Name != "hoopstats.cache.hits" || body.Metrics[0].Points[0].Value != 3 {
		t.Fatalf("metrics = %+v", body.Metrics)
	}
	if p := body.Metrics[1].Points[0]; p.Count != 2 || p.Value != 150 {
		t.Errorf("histogram point = %+v", p)
	}

	rec = httptest.NewRecorder()
	New(&fakeAsker{}, testConfig()).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("disabled metrics status = %d", rec.Code)
	}
}

func TestServe_Shutdown(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := New(&fakeAsker{}, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	cfg := FromConfig(testServerConfig())
	if cfg.Addr != ":8000" || !cfg.RateLimit || cfg.Rate != 2 || cfg.WriteTimeout != 2*time.Minute {
		t.Errorf("cfg = %+v", cfg)
	}
}
