package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"LighthouseIS/internal/archive"
	"LighthouseIS/internal/report"
	"LighthouseIS/internal/sink"

	"github.com/gorilla/mux"
)

// Handler holds the dependencies for the query surface: the archive for
// lookback queries and the ring for the live recent window.
type Handler struct {
	querier archive.Querier
	ring    *sink.Ring
	window  time.Duration
}

// NewHandler creates the API handler. ring may be nil when the API runs
// detached from the live server.
func NewHandler(querier archive.Querier, ring *sink.Ring, window time.Duration) *Handler {
	return &Handler{querier: querier, ring: ring, window: window}
}

// Router builds the API route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/report", h.reportHandler).Methods("POST")
	r.HandleFunc("/api/v1/callsigns", h.callsignsHandler).Methods("GET")
	r.HandleFunc("/api/v1/recent", h.recentHandler).Methods("GET")
	return r
}

// reportRequest selects the analysis range and output modes.
type reportRequest struct {
	Lookback  string `json:"lookback"`
	Unique    bool   `json:"unique"`
	Identical bool   `json:"identical"`
}

// reportHandler runs the correlation analysis over the archive. A malformed
// lookback fails this request only; it never affects other requests or the
// live sessions.
func (h *Handler) reportHandler(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}

	lookback := report.DefaultLookback
	if req.Lookback != "" {
		var err error
		lookback, err = report.ParseLookback(req.Lookback)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	now := time.Now()
	entries, err := h.querier.EntriesSince(r.Context(), now.Add(-lookback))
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query archive: %v", err), http.StatusInternalServerError)
		return
	}

	rep := report.Build(entries, report.Options{
		Lookback:      lookback,
		Window:        h.window,
		Now:           now,
		ShowUnique:    req.Unique,
		ShowIdentical: req.Identical,
	})
	writeJSON(w, rep)
}

func (h *Handler) callsignsHandler(w http.ResponseWriter, r *http.Request) {
	lookback := report.DefaultLookback
	if s := r.URL.Query().Get("lookback"); s != "" {
		var err error
		lookback, err = report.ParseLookback(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	callsigns, err := h.querier.Callsigns(r.Context(), time.Now().Add(-lookback))
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query callsigns: %v", err), http.StatusInternalServerError)
		return
	}
	if callsigns == nil {
		callsigns = []string{}
	}
	writeJSON(w, callsigns)
}

func (h *Handler) recentHandler(w http.ResponseWriter, r *http.Request) {
	if h.ring == nil {
		http.Error(w, "recent window not available", http.StatusNotFound)
		return
	}
	writeJSON(w, h.ring.Snapshot())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
