package report

import (
	"fmt"
	"regexp"
	"time"
)

// DefaultLookback is applied when an analysis request names no range.
const DefaultLookback = time.Hour

var lookbackPattern = regexp.MustCompile(`^(\d+)\s*([A-Za-z]*)$`)

// ParseLookback parses the compact lookback grammar: an integer magnitude
// followed by one of min|h|d|w ("30min", "2h", "1d", "1w"). An unrecognized
// unit falls back to hours; a malformed magnitude is a configuration error
// fatal to the requesting analysis only.
func ParseLookback(s string) (time.Duration, error) {
	m := lookbackPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid lookback %q: want <number><min|h|d|w>", s)
	}

	var magnitude int
	if _, err := fmt.Sscanf(m[1], "%d", &magnitude); err != nil {
		return 0, fmt.Errorf("invalid lookback magnitude %q: %w", m[1], err)
	}

	var unit time.Duration
	switch m[2] {
	case "min":
		unit = time.Minute
	case "d":
		unit = 24 * time.Hour
	case "w":
		unit = 7 * 24 * time.Hour
	default: // "h" and anything unrecognized
		unit = time.Hour
	}
	return time.Duration(magnitude) * unit, nil
}
