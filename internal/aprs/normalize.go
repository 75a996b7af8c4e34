package aprs

import (
	"regexp"
	"strings"
)

// pathQualifier matches the relay-path segment an IGate appends when it
// forwards a packet into the network: a q-construct (",qAR", ",qAO", ...)
// followed by the gating station's identifier, terminated by the payload
// delimiter. Two packets heard by different gateways differ only in this
// segment.
var pathQualifier = regexp.MustCompile(`,q[A-Z]{2},[^:]*:`)

// Normalize strips the relay-path qualifier from a packet so that copies of
// the same transmission received via different gateways compare equal. The
// payload delimiter is preserved. Input that carries no qualifier comes back
// unchanged apart from whitespace trimming; Normalize is pure and idempotent.
func Normalize(raw string) string {
	return strings.TrimSpace(pathQualifier.ReplaceAllString(raw, ":"))
}

// Substantive reports whether a normalized packet carries actual content.
// Empty lines and bare "#" markers are keepalive noise and are excluded from
// deduplication and per-client accounting.
func Substantive(normalized string) bool {
	return normalized != "" && normalized != "#"
}

// Callsign extracts the claimed identity from a login line: the second
// whitespace-delimited field ("user N0CALL pass -1 ..."). The handshake
// trusts any claimed identity; a missing field is reported, not rejected.
func Callsign(login string) (string, bool) {
	fields := strings.Fields(login)
	if len(fields) < 2 {
		return "", false
	}
	return fields[1], true
}
