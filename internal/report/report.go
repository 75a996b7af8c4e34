package report

import (
	"math"
	"sort"
	"strings"
	"time"

	"LighthouseIS/internal/aprs"
	"LighthouseIS/internal/dedup"
	"LighthouseIS/internal/model"
)

// hourLabelLayout is the bucket label for hourly counts.
const hourLabelLayout = "2006-01-02 15:00"

// ignoreMarkers exclude routine session noise from all counting: keepalive
// sends, connection bookkeeping, and bare comment lines.
var ignoreMarkers = []string{
	model.EventKeepaliveSent,
	model.EventConnected,
	"#",
}

// Options selects the analysis range and output modes.
type Options struct {
	// Lookback bounds the analysis to entries at or after Now-Lookback.
	Lookback time.Duration
	// Window is the maximum time separation for a cross-origin match;
	// zero means dedup.DefaultWindow.
	Window time.Duration
	// Now anchors the lookback; zero means time.Now().
	Now time.Time
	// ShowUnique and ShowIdentical select the two listing modes. Hourly
	// counts and the per-origin totals are always produced.
	ShowUnique    bool
	ShowIdentical bool
}

// HourCount is one hour bucket for one origin.
type HourCount struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

// OriginStats is the identical/unique breakdown for one origin.
type OriginStats struct {
	Identical        int     `json:"identical"`
	Unique           int     `json:"unique"`
	IdenticalPercent float64 `json:"identical_percent"`
}

// Attributed is one packet attributed to an origin in a listing.
type Attributed struct {
	Timestamp time.Time `json:"timestamp"`
	Origin    string    `json:"origin"`
	Packet    string    `json:"packet"`
}

// Report is the correlation analysis over one lookback range.
type Report struct {
	// Origins lists clients in order of first appearance.
	Origins []string `json:"origins"`
	// StatsOrigins lists clients that contributed at least one
	// substantive packet, in order of first contribution.
	StatsOrigins []string `json:"stats_origins"`

	Hourly map[string][]HourCount  `json:"hourly"`
	Stats  map[string]OriginStats  `json:"stats"`
	Unique map[string][]Attributed `json:"unique,omitempty"`
	// Identical is the globally time-sorted list of packets matched
	// across origins.
	Identical []Attributed `json:"identical,omitempty"`
}

// Build computes the correlation report for the given stream entries. The
// entries are expected oldest-first, as the stream records them. Build never
// mutates shared dedup state; it constructs its own index over the range.
func Build(entries []model.LogEntry, opts Options) *Report {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	window := opts.Window
	if window <= 0 {
		window = dedup.DefaultWindow
	}
	start := now.Add(-lookback)

	rep := &Report{
		Hourly: make(map[string][]HourCount),
		Stats:  make(map[string]OriginStats),
		Unique: make(map[string][]Attributed),
	}

	var records []model.PacketRecord
	for _, e := range entries {
		if ignored(e.Event) || e.Timestamp.Before(start) {
			continue
		}

		rep.bumpHour(e.Origin, e.Timestamp)

		normalized := aprs.Normalize(e.Event)
		if !aprs.Substantive(normalized) {
			continue
		}
		records = append(records, model.PacketRecord{
			Timestamp:  e.Timestamp,
			Origin:     e.Origin,
			Raw:        e.Event,
			Normalized: normalized,
		})
	}

	// Two passes over one index: load the whole range, then classify each
	// record read-only so matches work in both time directions.
	ix := dedup.NewWindowIndexRetaining(window, lookback+window)
	for _, rec := range records {
		ix.Insert(rec)
	}

	for _, rec := range records {
		if _, seen := rep.Stats[rec.Origin]; !seen {
			rep.StatsOrigins = append(rep.StatsOrigins, rec.Origin)
			rep.Stats[rec.Origin] = OriginStats{}
		}
		st := rep.Stats[rec.Origin]

		if ix.Classify(rec) == model.Identical {
			st.Identical++
			if opts.ShowIdentical {
				rep.Identical = append(rep.Identical, attributed(rec))
			}
		} else {
			st.Unique++
			if opts.ShowUnique {
				rep.Unique[rec.Origin] = append(rep.Unique[rec.Origin], attributed(rec))
			}
		}
		rep.Stats[rec.Origin] = st
	}

	for origin, st := range rep.Stats {
		st.IdenticalPercent = percent(st.Identical, st.Unique)
		rep.Stats[origin] = st
	}

	for _, list := range rep.Unique {
		sort.Slice(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })
	}
	sort.Slice(rep.Identical, func(i, j int) bool {
		return rep.Identical[i].Timestamp.Before(rep.Identical[j].Timestamp)
	})

	return rep
}

func attributed(rec model.PacketRecord) Attributed {
	return Attributed{Timestamp: rec.Timestamp, Origin: rec.Origin, Packet: rec.Raw}
}

func ignored(event string) bool {
	for _, marker := range ignoreMarkers {
		if strings.Contains(event, marker) {
			return true
		}
	}
	return false
}

// percent is identical/(identical+unique)*100 rounded to two decimals, zero
// when there is nothing to compare.
func percent(identical, unique int) float64 {
	total := identical + unique
	if total == 0 {
		return 0
	}
	return math.Round(float64(identical)/float64(total)*10000) / 100
}

func (r *Report) bumpHour(origin string, ts time.Time) {
	if _, seen := r.Hourly[origin]; !seen {
		r.Origins = append(r.Origins, origin)
	}
	label := ts.Format(hourLabelLayout)
	buckets := r.Hourly[origin]
	if n := len(buckets); n > 0 && buckets[n-1].Hour == label {
		buckets[n-1].Count++
	} else {
		// Buckets appear in first-seen order; entries arrive oldest-first
		// so this is chronological. A label revisited out of order gets
		// folded into its existing bucket.
		for i := range buckets {
			if buckets[i].Hour == label {
				buckets[i].Count++
				r.Hourly[origin] = buckets
				return
			}
		}
		buckets = append(buckets, HourCount{Hour: label, Count: 1})
	}
	r.Hourly[origin] = buckets
}
