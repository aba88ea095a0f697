package web

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"focusmru/internal/config"
	"focusmru/internal/database"
	"focusmru/internal/models"
	"focusmru/internal/mru"
	"focusmru/internal/recorder"
	"focusmru/internal/reporter"
	"focusmru/pkg/utils"
)

// Recorder is the live view the API serves. *recorder.Service implements it.
type Recorder interface {
	MRU() []mru.Entry
	Status() recorder.Status
}

type Handler struct {
	config   *config.Config
	repo     *database.Repository
	reporter *reporter.Reporter
	recorder Recorder
	logger   *slog.Logger
}

func NewHandler(cfg *config.Config, repo *database.Repository, rec Recorder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		config:   cfg,
		repo:     repo,
		reporter: reporter.New(cfg, repo),
		recorder: rec,
		logger:   logger,
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/mru", h.handleMRU)
	mux.HandleFunc("/api/events", h.handleEvents)
	mux.HandleFunc("/api/events/latest", h.handleLatestEvent)
	mux.HandleFunc("/api/report", h.handleReport)
	mux.HandleFunc("/api/status", h.handleStatus)

	mux.HandleFunc("/health", h.handleHealth)

	mux.HandleFunc("/", h.handleIndex)
}

func (h *Handler) handleMRU(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := h.recorder.MRU()

	if r.Header.Get("HX-Request") == "true" {
		h.respondMRUHTML(w, entries)
		return
	}

	response := map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	}
	if len(entries) > 0 {
		response["frontmost"] = entries[0]
	}
	h.respondJSON(w, response)
}

func (h *Handler) respondMRUHTML(w http.ResponseWriter, entries []mru.Entry) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if len(entries) == 0 {
		w.Write([]byte(`<div class="loading">No applications tracked yet</div>`))
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="listing">`)
	for i, e := range entries {
		fmt.Fprintf(&b, `
		<div class="app-item">
			<span class="app-name">%d. %s</span>
			<div>
				<span class="app-time">%s</span>
				<span class="app-confidence">%s</span>
			</div>
		</div>`, i+1, html.EscapeString(utils.OrDash(e.Name)), html.EscapeString(utils.OrDash(e.BundleID)), e.Confidence)
	}
	b.WriteString(`</div>`)

	w.Write([]byte(b.String()))
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	kind := query.Get("kind")
	periodType := query.Get("period") // day, week, month

	limit := h.config.Report.HistoryLimit
	if limitStr := query.Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = l
	}

	since := time.Now().Add(-24 * time.Hour)
	if periodType != "" {
		period, err := h.reporter.Period(periodType)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		since = period.Start
	}

	events, err := h.repo.GetEventsSince(since, kind)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch events: %v", err), http.StatusInternalServerError)
		return
	}

	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}

	h.respondJSON(w, events)
}

func (h *Handler) handleLatestEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	event, err := h.repo.GetLatest(r.URL.Query().Get("kind"))
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch latest event: %v", err), http.StatusInternalServerError)
		return
	}

	if event == nil {
		http.Error(w, "No events found", http.StatusNotFound)
		return
	}

	h.respondJSON(w, event)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	if _, err := h.reporter.Period(periodType); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.reporter.GenerateReport(periodType)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to generate report: %v", err), http.StatusInternalServerError)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		h.respondReportHTML(w, report)
		return
	}

	h.respondJSON(w, report)
}

func (h *Handler) respondReportHTML(w http.ResponseWriter, report *models.Report) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if len(report.Apps) == 0 {
		w.Write([]byte(`<div class="loading">No data available</div>`))
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="listing">`)
	for _, app := range report.Apps {
		percentStr := fmt.Sprintf("%.1f%%", app.Percentage)
		if app.Percentage < 10 {
			percentStr = "&nbsp;&nbsp;" + percentStr
		} else if app.Percentage < 100 {
			percentStr = "&nbsp;" + percentStr
		}

		name := app.AppName
		if name == "" {
			name = app.BundleID
		}

		fmt.Fprintf(&b, `
		<div class="app-item" style="--bar-width: %.1f%%">
			<span class="app-name">%s</span>
			<div>
				<span class="app-time">%dx</span>
				<span class="app-percentage">%s</span>
			</div>
		</div>`, app.Percentage, html.EscapeString(utils.OrDash(name)), app.Activations, percentStr)
	}
	b.WriteString(`</div>`)

	fmt.Fprintf(&b, `<div class="total">Total: %d activations</div>`, report.TotalActivations)

	w.Write([]byte(b.String()))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	latestEvent, err := h.repo.GetLatest(models.KindActivation)
	if err != nil {
		h.logger.Warn("failed to read latest activation", "error", err)
	}

	status := map[string]interface{}{
		"recorder":      h.recorder.Status(),
		"poll_interval": h.config.Tracker.PollInterval.String(),
		"database_path": h.config.Database.Path,
		"journal":       h.config.Tracker.Journal,
	}

	if latestEvent != nil {
		status["latest_activation"] = map[string]interface{}{
			"pid":            latestEvent.PID,
			"bundle_id":      latestEvent.BundleID,
			"app_name":       latestEvent.AppName,
			"timestamp":      latestEvent.Timestamp,
			"display_server": latestEvent.DisplayServer,
		}
	}

	h.respondJSON(w, status)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("error encoding JSON", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
