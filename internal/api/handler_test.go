package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"LighthouseIS/internal/model"
	"LighthouseIS/internal/report"
	"LighthouseIS/internal/sink"
)

// fixtureQuerier serves canned entries without a database.
type fixtureQuerier struct {
	entries   []model.LogEntry
	callsigns []string
}

func (q *fixtureQuerier) EntriesSince(ctx context.Context, since time.Time) ([]model.LogEntry, error) {
	var out []model.LogEntry
	for _, e := range q.entries {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (q *fixtureQuerier) Callsigns(ctx context.Context, since time.Time) ([]string, error) {
	return q.callsigns, nil
}

func TestReportEndpoint(t *testing.T) {
	now := time.Now()
	q := &fixtureQuerier{entries: []model.LogEntry{
		{Timestamp: now.Add(-10 * time.Minute), Origin: "10.0.0.1", Event: model.PacketEventPrefix + "N0CALL>APRS,qAR,A:pos"},
		{Timestamp: now.Add(-10*time.Minute + 300*time.Millisecond), Origin: "10.0.0.2", Event: model.PacketEventPrefix + "N0CALL>APRS,qAO,B:pos"},
	}}
	h := NewHandler(q, nil, time.Second)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/report", "application/json",
		strings.NewReader(`{"lookback":"30min","identical":true}`))
	if err != nil {
		t.Fatalf("POST /report: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var rep report.Report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if st := rep.Stats["10.0.0.1"]; st.Identical != 1 {
		t.Errorf("identical = %d, want 1", st.Identical)
	}
	if len(rep.Identical) != 2 {
		t.Errorf("identical listing = %v, want both records", rep.Identical)
	}
}

func TestReportEndpointRejectsBadLookback(t *testing.T) {
	h := NewHandler(&fixtureQuerier{}, nil, time.Second)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/report", "application/json",
		strings.NewReader(`{"lookback":"soon"}`))
	if err != nil {
		t.Fatalf("POST /report: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRecentEndpoint(t *testing.T) {
	ring := sink.NewRing(10)
	ring.Add(model.LogEntry{Timestamp: time.Now(), Origin: "10.0.0.1", Event: "Connection established"})
	h := NewHandler(&fixtureQuerier{}, ring, time.Second)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/recent")
	if err != nil {
		t.Fatalf("GET /recent: %v", err)
	}
	defer resp.Body.Close()

	var entries []model.LogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Origin != "10.0.0.1" {
		t.Errorf("recent = %v", entries)
	}
}

func TestCallsignsEndpoint(t *testing.T) {
	h := NewHandler(&fixtureQuerier{callsigns: []string{"K7ABC", "N0CALL"}}, nil, time.Second)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/callsigns")
	if err != nil {
		t.Fatalf("GET /callsigns: %v", err)
	}
	defer resp.Body.Close()

	var callsigns []string
	if err := json.NewDecoder(resp.Body).Decode(&callsigns); err != nil {
		t.Fatalf("decoding callsigns: %v", err)
	}
	if len(callsigns) != 2 {
		t.Errorf("callsigns = %v", callsigns)
	}
}
