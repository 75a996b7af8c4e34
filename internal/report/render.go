package report

import (
	"fmt"
	"io"
	"time"
)

// Render writes the report in the layout downstream tooling has always
// scraped: hourly counts, then the per-client comparison totals, then the
// optional listings.
func Render(w io.Writer, rep *Report, opts Options) {
	fmt.Fprintf(w, "\nHourly Counts:\n")
	for _, origin := range rep.Origins {
		fmt.Fprintf(w, "\nClient: %s\n", origin)
		for _, bucket := range rep.Hourly[origin] {
			fmt.Fprintf(w, "  %s: %d messages\n", bucket.Hour, bucket.Count)
		}
	}

	fmt.Fprintf(w, "\nDetailed Comparison (Total Counts per Client):\n")
	for _, origin := range rep.StatsOrigins {
		st := rep.Stats[origin]
		fmt.Fprintf(w, "\nClient: %s\n", origin)
		fmt.Fprintf(w, "  Identical packets: %d (%.2f%%)\n", st.Identical, st.IdenticalPercent)
		fmt.Fprintf(w, "  Unique packets: %d\n", st.Unique)
	}

	if opts.ShowUnique {
		fmt.Fprintf(w, "\nPacket Differences (Unique Packets per Client):\n")
		for _, origin := range rep.StatsOrigins {
			list := rep.Unique[origin]
			if len(list) == 0 {
				continue
			}
			fmt.Fprintf(w, "\nClient: %s\n", origin)
			fmt.Fprintf(w, "  Unique packets in this client (not seen by others):\n")
			for _, a := range list {
				fmt.Fprintf(w, "    %s: %s\n", listingTime(a.Timestamp), a.Packet)
			}
		}
	}

	if opts.ShowIdentical {
		fmt.Fprintf(w, "\nAll Identical Packets Across Clients (Sorted by Timestamp):\n")
		for _, a := range rep.Identical {
			fmt.Fprintf(w, "%s - Client: %s - Packet: %s\n", listingTime(a.Timestamp), a.Origin, a.Packet)
		}
	}
}

// listingTime formats a listing timestamp, omitting the fractional part when
// the instant falls on a whole second.
func listingTime(t time.Time) string {
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format("2006-01-02 15:04:05.000000")
}
