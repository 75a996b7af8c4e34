package report

import (
	"strings"
	"testing"
	"time"

	"LighthouseIS/internal/model"
)

var reportBase = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func packetEntry(ts time.Time, origin, packet string) model.LogEntry {
	return model.LogEntry{
		Timestamp: ts,
		Origin:    origin,
		Event:     model.PacketEventPrefix + packet,
	}
}

func buildOpts() Options {
	return Options{
		Lookback: time.Hour,
		Now:      reportBase.Add(10 * time.Minute),
	}
}

func TestCrossClientIdenticalWithinWindow(t *testing.T) {
	// Both clients hear the same transmission via different gateways,
	// 0.4s apart.
	entries := []model.LogEntry{
		packetEntry(reportBase, "10.0.0.1", "N0CALL>APRS,qAR,GATEA:!position"),
		packetEntry(reportBase.Add(400*time.Millisecond), "10.0.0.2", "N0CALL>APRS,qAO,GATEB:!position"),
	}

	rep := Build(entries, buildOpts())

	for _, origin := range []string{"10.0.0.1", "10.0.0.2"} {
		st := rep.Stats[origin]
		if st.Identical != 1 || st.Unique != 0 {
			t.Errorf("%s: identical=%d unique=%d, want 1/0", origin, st.Identical, st.Unique)
		}
		if st.IdenticalPercent != 100 {
			t.Errorf("%s: percent = %v, want 100", origin, st.IdenticalPercent)
		}
	}
}

func TestUniquePacketAttributedToItsClient(t *testing.T) {
	entries := []model.LogEntry{
		packetEntry(reportBase, "10.0.0.1", "N0CALL>APRS:only client one heard this"),
		packetEntry(reportBase.Add(time.Second), "10.0.0.2", "K7ABC>APRS:something else entirely"),
	}

	opts := buildOpts()
	opts.ShowUnique = true
	rep := Build(entries, opts)

	st := rep.Stats["10.0.0.1"]
	if st.Unique != 1 || st.Identical != 0 {
		t.Fatalf("identical=%d unique=%d, want 0/1", st.Identical, st.Unique)
	}
	list := rep.Unique["10.0.0.1"]
	if len(list) != 1 || list[0].Packet != model.PacketEventPrefix+"N0CALL>APRS:only client one heard this" {
		t.Errorf("unique listing = %v", list)
	}
}

func TestOutsideWindowCountsUnique(t *testing.T) {
	entries := []model.LogEntry{
		packetEntry(reportBase, "10.0.0.1", "N0CALL>APRS,qAR,GATEA:!position"),
		packetEntry(reportBase.Add(3*time.Second), "10.0.0.2", "N0CALL>APRS,qAO,GATEB:!position"),
	}

	rep := Build(entries, buildOpts())

	for _, origin := range []string{"10.0.0.1", "10.0.0.2"} {
		st := rep.Stats[origin]
		if st.Identical != 0 || st.Unique != 1 {
			t.Errorf("%s: identical=%d unique=%d, want 0/1", origin, st.Identical, st.Unique)
		}
	}
}

func TestHeartbeatNeverCounted(t *testing.T) {
	entries := []model.LogEntry{
		{Timestamp: reportBase, Origin: "10.0.0.1", Event: model.EventKeepaliveSent},
		packetEntry(reportBase.Add(time.Second), "10.0.0.1", "#"),
		packetEntry(reportBase.Add(2*time.Second), "10.0.0.1", "N0CALL>APRS:real"),
	}

	rep := Build(entries, buildOpts())

	st := rep.Stats["10.0.0.1"]
	if st.Identical+st.Unique != 1 {
		t.Errorf("identical+unique = %d, want 1 (heartbeats excluded)", st.Identical+st.Unique)
	}
}

func TestCountConservation(t *testing.T) {
	// identical + unique must equal the number of substantive packets per
	// origin inside the lookback.
	entries := []model.LogEntry{
		packetEntry(reportBase, "10.0.0.1", "N0CALL>APRS,qAR,A:one"),
		packetEntry(reportBase.Add(200*time.Millisecond), "10.0.0.2", "N0CALL>APRS,qAO,B:one"),
		packetEntry(reportBase.Add(5*time.Second), "10.0.0.1", "N0CALL>APRS:two"),
		packetEntry(reportBase.Add(10*time.Second), "10.0.0.1", "N0CALL>APRS:three"),
	}

	rep := Build(entries, buildOpts())

	if st := rep.Stats["10.0.0.1"]; st.Identical+st.Unique != 3 {
		t.Errorf("10.0.0.1 identical+unique = %d, want 3", st.Identical+st.Unique)
	}
	if st := rep.Stats["10.0.0.2"]; st.Identical+st.Unique != 1 {
		t.Errorf("10.0.0.2 identical+unique = %d, want 1", st.Identical+st.Unique)
	}
}

func TestLookbackExcludesOldEntries(t *testing.T) {
	entries := []model.LogEntry{
		packetEntry(reportBase.Add(-2*time.Hour), "10.0.0.1", "N0CALL>APRS:ancient"),
		packetEntry(reportBase, "10.0.0.1", "N0CALL>APRS:recent"),
	}

	rep := Build(entries, buildOpts())

	if st := rep.Stats["10.0.0.1"]; st.Identical+st.Unique != 1 {
		t.Errorf("stats include entries outside the lookback: %+v", st)
	}
	if len(rep.Hourly["10.0.0.1"]) != 1 {
		t.Errorf("hourly buckets = %v, want only the recent hour", rep.Hourly["10.0.0.1"])
	}
}

func TestHourlyCounts(t *testing.T) {
	opts := Options{Lookback: 4 * time.Hour, Now: reportBase.Add(time.Hour)}
	entries := []model.LogEntry{
		packetEntry(reportBase.Add(-90*time.Minute), "10.0.0.1", "N0CALL>APRS:a"),
		packetEntry(reportBase.Add(-80*time.Minute), "10.0.0.1", "N0CALL>APRS:b"),
		packetEntry(reportBase, "10.0.0.1", "N0CALL>APRS:c"),
	}

	rep := Build(entries, opts)

	buckets := rep.Hourly["10.0.0.1"]
	if len(buckets) != 2 {
		t.Fatalf("buckets = %v, want 2 hours", buckets)
	}
	if buckets[0].Hour != "2026-08-01 10:00" || buckets[0].Count != 2 {
		t.Errorf("first bucket = %+v", buckets[0])
	}
	if buckets[1].Hour != "2026-08-01 12:00" || buckets[1].Count != 1 {
		t.Errorf("second bucket = %+v", buckets[1])
	}
}

func TestIdenticalListingSortedByTimestamp(t *testing.T) {
	opts := buildOpts()
	opts.ShowIdentical = true
	entries := []model.LogEntry{
		packetEntry(reportBase.Add(10*time.Second), "10.0.0.1", "K7ABC>APRS,qAR,A:late"),
		packetEntry(reportBase.Add(10*time.Second+300*time.Millisecond), "10.0.0.2", "K7ABC>APRS,qAO,B:late"),
		packetEntry(reportBase, "10.0.0.1", "N0CALL>APRS,qAR,A:early"),
		packetEntry(reportBase.Add(100*time.Millisecond), "10.0.0.2", "N0CALL>APRS,qAO,B:early"),
	}

	rep := Build(entries, opts)

	if len(rep.Identical) != 4 {
		t.Fatalf("identical listing has %d entries, want 4", len(rep.Identical))
	}
	for i := 1; i < len(rep.Identical); i++ {
		if rep.Identical[i].Timestamp.Before(rep.Identical[i-1].Timestamp) {
			t.Fatalf("identical listing not sorted: %v", rep.Identical)
		}
	}
}

func TestPercentRounding(t *testing.T) {
	// 1 identical out of 3 total = 33.33%.
	entries := []model.LogEntry{
		packetEntry(reportBase, "10.0.0.1", "N0CALL>APRS,qAR,A:shared"),
		packetEntry(reportBase.Add(100*time.Millisecond), "10.0.0.2", "N0CALL>APRS,qAO,B:shared"),
		packetEntry(reportBase.Add(5*time.Second), "10.0.0.1", "N0CALL>APRS:solo one"),
		packetEntry(reportBase.Add(6*time.Second), "10.0.0.1", "N0CALL>APRS:solo two"),
	}

	rep := Build(entries, buildOpts())

	if got := rep.Stats["10.0.0.1"].IdenticalPercent; got != 33.33 {
		t.Errorf("percent = %v, want 33.33", got)
	}
}

func TestRenderLayout(t *testing.T) {
	opts := buildOpts()
	opts.ShowUnique = true
	opts.ShowIdentical = true
	entries := []model.LogEntry{
		packetEntry(reportBase, "10.0.0.1", "N0CALL>APRS,qAR,A:shared"),
		packetEntry(reportBase.Add(100*time.Millisecond), "10.0.0.2", "N0CALL>APRS,qAO,B:shared"),
		packetEntry(reportBase.Add(5*time.Second), "10.0.0.1", "N0CALL>APRS:solo"),
	}

	rep := Build(entries, opts)
	var buf strings.Builder
	Render(&buf, rep, opts)
	out := buf.String()

	for _, want := range []string{
		"Hourly Counts:",
		"Client: 10.0.0.1",
		"2026-08-01 12:00: 2 messages",
		"Detailed Comparison (Total Counts per Client):",
		"Identical packets: 1 (50.00%)",
		"Unique packets: 1",
		"Packet Differences (Unique Packets per Client):",
		"Unique packets in this client (not seen by others):",
		"All Identical Packets Across Clients (Sorted by Timestamp):",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report missing %q:\n%s", want, out)
		}
	}
}

func TestParseLookback(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30min", 30 * time.Minute},
		{"1h", time.Hour},
		{"2d", 48 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"5x", 5 * time.Hour}, // unrecognized unit defaults to hours
		{"3", 3 * time.Hour},
	}
	for _, tc := range cases {
		got, err := ParseLookback(tc.in)
		if err != nil {
			t.Errorf("ParseLookback(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLookback(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "h", "x30", "1.5h"} {
		if _, err := ParseLookback(bad); err == nil {
			t.Errorf("ParseLookback(%q) should fail", bad)
		}
	}
}

func TestParseLineRoundTrip(t *testing.T) {
	// Stream timestamps are host wall clock, so the round trip must be
	// instant-exact in the local zone, not just on UTC hosts.
	e := model.LogEntry{
		Timestamp: time.Date(2026, 8, 1, 12, 30, 15, 123456000, time.Local),
		Origin:    "10.0.0.1",
		Event:     model.PacketEventPrefix + "N0CALL>APRS:payload",
	}
	got, ok := model.ParseLine(e.Line())
	if !ok {
		t.Fatalf("ParseLine failed for %q", e.Line())
	}
	if !got.Timestamp.Equal(e.Timestamp) || got.Origin != e.Origin || got.Event != e.Event {
		t.Errorf("round trip = %+v, want %+v", got, e)
	}

	if _, ok := model.ParseLine("not a stream line"); ok {
		t.Error("foreign line should not parse")
	}
}

func TestParseLineKeepsWriterWallClock(t *testing.T) {
	// A line written at 12:00:00 wall clock must read back as 12:00:00 in
	// the reader's zone. Interpreting the zone-less timestamp as UTC would
	// skew it by the host's UTC offset and mis-window every lookback.
	zone := time.FixedZone("UTC-4", -4*3600)
	e := model.LogEntry{
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, zone),
		Origin:    "10.0.0.1",
		Event:     model.PacketEventPrefix + "N0CALL>APRS:payload",
	}
	got, ok := model.ParseLine(e.Line())
	if !ok {
		t.Fatalf("ParseLine failed for %q", e.Line())
	}
	want := time.Date(2026, 8, 1, 12, 0, 0, 0, time.Local)
	if !got.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v (wall clock preserved in local zone)", got.Timestamp, want)
	}
}

func TestLogRoundTripKeepsLookbackWindow(t *testing.T) {
	// A packet received moments ago must still fall inside a lookback
	// anchored at the current instant after a format/parse round trip.
	received := time.Now().Add(-time.Second)
	e := model.LogEntry{
		Timestamp: received,
		Origin:    "10.0.0.1",
		Event:     model.PacketEventPrefix + "N0CALL>APRS:just heard",
	}
	parsed, ok := model.ParseLine(e.Line())
	if !ok {
		t.Fatalf("ParseLine failed for %q", e.Line())
	}

	rep := Build([]model.LogEntry{parsed}, Options{Lookback: 30 * time.Minute, Now: time.Now()})

	if st := rep.Stats["10.0.0.1"]; st.Identical+st.Unique != 1 {
		t.Errorf("stats = %+v, want the second-old packet inside the window", st)
	}
}
