package kittygfx

import "github.com/dustin/go-humanize"

// humanizeBytes renders a byte count for log lines the way the eviction
// engine reports budget pressure.
func humanizeBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
