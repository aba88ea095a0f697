package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"focusmru/internal/config"
	"focusmru/internal/database"
	"focusmru/internal/models"
	"focusmru/internal/mru"
	"focusmru/internal/recorder"
	"focusmru/pkg/focus"
)

type fakeRecorder struct {
	entries []mru.Entry
	status  recorder.Status
}

func (f *fakeRecorder) MRU() []mru.Entry        { return f.entries }
func (f *fakeRecorder) Status() recorder.Status { return f.status }

func newTestHandler(t *testing.T, rec *fakeRecorder) (*http.ServeMux, *database.Repository) {
	t.Helper()

	db, err := database.Connect(filepath.Join(t.TempDir(), "web.db"))
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	repo := database.NewRepository(db)

	cfg := config.Default()
	h := NewHandler(cfg, repo, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	h.SetupRoutes(mux)
	return mux, repo
}

func get(t *testing.T, mux *http.ServeMux, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func sampleRecorder() *fakeRecorder {
	return &fakeRecorder{
		entries: []mru.Entry{
			{ActivationRecord: focus.ActivationRecord{PID: 20, BundleID: "org.mozilla.firefox", Name: "Firefox"}, Confidence: focus.Known},
			{ActivationRecord: focus.ActivationRecord{PID: 10, BundleID: "org.gnome.Terminal", Name: "<Terminal>"}, Confidence: focus.Guess},
		},
		status: recorder.Status{Running: true, DisplayServer: "x11", Applications: 2, TrackerState: "registered"},
	}
}

func TestHandleMRU(t *testing.T) {
	mux, _ := newTestHandler(t, sampleRecorder())

	rr := get(t, mux, "/api/mru", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var body struct {
		Entries []struct {
			PID        int32  `json:"pid"`
			BundleID   string `json:"bundle_id"`
			Confidence string `json:"confidence"`
		} `json:"entries"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Count != 2 || len(body.Entries) != 2 {
		t.Fatalf("count = %d, entries = %d; want 2", body.Count, len(body.Entries))
	}
	if body.Entries[0].PID != 20 || body.Entries[0].Confidence != "KNOWN" {
		t.Errorf("entries[0] = %+v, want pid 20 KNOWN", body.Entries[0])
	}
	if body.Entries[1].Confidence != "GUESS" {
		t.Errorf("entries[1].confidence = %s, want GUESS", body.Entries[1].Confidence)
	}
}

func TestHandleMRUHTMLEscapesNames(t *testing.T) {
	mux, _ := newTestHandler(t, sampleRecorder())

	rr := get(t, mux, "/api/mru", map[string]string{"HX-Request": "true"})
	body := rr.Body.String()
	if !strings.Contains(body, "&lt;Terminal&gt;") {
		t.Errorf("body does not escape app name: %s", body)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %s, want text/html", ct)
	}
}

func TestHandleMRUEmpty(t *testing.T) {
	mux, _ := newTestHandler(t, &fakeRecorder{})

	rr := get(t, mux, "/api/mru", nil)
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := body["frontmost"]; ok {
		t.Error("frontmost present for an empty stack")
	}
}

func TestHandleEvents(t *testing.T) {
	mux, repo := newTestHandler(t, sampleRecorder())

	now := time.Now()
	for i, kind := range []string{models.KindPrepopulation, models.KindActivation, models.KindActivation, models.KindTermination} {
		err := repo.Create(&models.FocusEvent{
			Timestamp:     now.Add(time.Duration(i-4) * time.Second),
			Kind:          kind,
			PID:           int32(100 + i),
			BundleID:      "org.example.app",
			DisplayServer: "x11",
		})
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantCount int
	}{
		{"all", "/api/events", http.StatusOK, 4},
		{"kind filter", "/api/events?kind=activation", http.StatusOK, 2},
		{"limit keeps newest", "/api/events?limit=1", http.StatusOK, 1},
		{"period", "/api/events?period=month", http.StatusOK, 4},
		{"bad limit", "/api/events?limit=zero", http.StatusBadRequest, 0},
		{"bad period", "/api/events?period=decade", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, mux, tt.target, nil)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var events []models.FocusEvent
			if err := json.Unmarshal(rr.Body.Bytes(), &events); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if len(events) != tt.wantCount {
				t.Errorf("got %d events, want %d", len(events), tt.wantCount)
			}
			if tt.name == "limit keeps newest" && events[0].Kind != models.KindTermination {
				t.Errorf("limited event kind = %s, want termination", events[0].Kind)
			}
		})
	}
}

func TestHandleLatestEvent(t *testing.T) {
	mux, repo := newTestHandler(t, sampleRecorder())

	if rr := get(t, mux, "/api/events/latest", nil); rr.Code != http.StatusNotFound {
		t.Errorf("empty journal status = %d, want 404", rr.Code)
	}

	now := time.Now()
	repo.Create(&models.FocusEvent{Timestamp: now.Add(-time.Minute), Kind: models.KindActivation, PID: 1, BundleID: "a", DisplayServer: "x11"})
	repo.Create(&models.FocusEvent{Timestamp: now, Kind: models.KindTermination, PID: 2, DisplayServer: "x11"})

	rr := get(t, mux, "/api/events/latest?kind=activation", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var event models.FocusEvent
	if err := json.Unmarshal(rr.Body.Bytes(), &event); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if event.PID != 1 {
		t.Errorf("latest activation pid = %d, want 1", event.PID)
	}
}

func TestHandleReport(t *testing.T) {
	mux, repo := newTestHandler(t, sampleRecorder())

	now := time.Now()
	for i := 0; i < 3; i++ {
		repo.Create(&models.FocusEvent{Timestamp: now, Kind: models.KindActivation, PID: 1, BundleID: "org.mozilla.firefox", AppName: "Firefox", DisplayServer: "x11"})
	}
	repo.Create(&models.FocusEvent{Timestamp: now, Kind: models.KindActivation, PID: 2, BundleID: "org.gnome.Terminal", AppName: "Terminal", DisplayServer: "x11"})

	rr := get(t, mux, "/api/report?period=day", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var report models.Report
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.TotalActivations != 4 || len(report.Apps) != 2 {
		t.Fatalf("report = %+v, want 4 activations over 2 apps", report)
	}
	if report.Apps[0].BundleID != "org.mozilla.firefox" || report.Apps[0].Percentage != 75 {
		t.Errorf("top app = %+v, want firefox at 75%%", report.Apps[0])
	}

	html := get(t, mux, "/api/report", map[string]string{"HX-Request": "true"}).Body.String()
	if !strings.Contains(html, "Total: 4 activations") {
		t.Errorf("HTML report missing total: %s", html)
	}

	if rr := get(t, mux, "/api/report?period=year", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("invalid period status = %d, want 400", rr.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	mux, _ := newTestHandler(t, sampleRecorder())

	rr := get(t, mux, "/api/status", nil)
	var body struct {
		Recorder recorder.Status `json:"recorder"`
		Journal  bool            `json:"journal"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !body.Recorder.Running || body.Recorder.DisplayServer != "x11" || !body.Journal {
		t.Errorf("status = %+v, want running x11 recorder with journal", body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _ := newTestHandler(t, sampleRecorder())

	for _, path := range []string{"/api/mru", "/api/events", "/api/events/latest", "/api/report", "/api/status"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s status = %d, want 405", path, rr.Code)
		}
	}
}

func TestHealthAndIndex(t *testing.T) {
	mux, _ := newTestHandler(t, sampleRecorder())

	if rr := get(t, mux, "/health", nil); !strings.Contains(rr.Body.String(), "healthy") {
		t.Errorf("health body = %s", rr.Body.String())
	}
	if rr := get(t, mux, "/", nil); !strings.Contains(rr.Body.String(), "/api/mru") {
		t.Error("index page does not poll /api/mru")
	}
	if rr := get(t, mux, "/missing", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rr.Code)
	}
}

func TestServerAddress(t *testing.T) {
	cfg := config.Default()
	cfg.Web.Host = "127.0.0.1"

	s := NewServer(cfg, nil, &fakeRecorder{}, 18080, nil)
	if got := s.GetAddress(); got != "127.0.0.1:18080" {
		t.Errorf("GetAddress() = %s, want 127.0.0.1:18080", got)
	}
}
