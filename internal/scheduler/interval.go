package scheduler

import (
	"strconv"
	"strings"
	"time"
)

// ParseIntervalDuration parses "1m", "15m", "1h", "4h", "1d", "1w" into time.Duration.
// Returns (0, false) on invalid input.
func ParseIntervalDuration(interval string) (time.Duration, bool) {
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return 0, false
	}
	unit := interval[len(interval)-1]
	numStr := strings.TrimSpace(interval[:len(interval)-1])
	if numStr == "" {
		return 0, false
	}
	n, err := strconv.Atoi(numStr)
	if err != nil || n <= 0 {
		return 0, false
	}
	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// BucketStart floors an epoch-ms timestamp to the open time of its interval bucket.
func BucketStart(tsMillis int64, interval time.Duration) int64 {
	step := interval.Milliseconds()
	if step <= 0 || tsMillis <= 0 {
		return tsMillis
	}
	return tsMillis - tsMillis%step
}

// DYDXResolution maps an interval to the indexer candle resolution name.
func DYDXResolution(interval string) (string, bool) {
	d, ok := ParseIntervalDuration(interval)
	if !ok {
		return "", false
	}
	switch d {
	case time.Minute:
		return "1MIN", true
	case 5 * time.Minute:
		return "5MINS", true
	case 15 * time.Minute:
		return "15MINS", true
	case 30 * time.Minute:
		return "30MINS", true
	case time.Hour:
		return "1HOUR", true
	case 4 * time.Hour:
		return "4HOURS", true
	case 24 * time.Hour:
		return "1DAY", true
	default:
		return "", false
	}
}

// Canonical renders a duration back to the short interval form ("15m", "4h", "1d").
func Canonical(interval string) string {
	d, ok := ParseIntervalDuration(interval)
	if !ok {
		return strings.ToLower(strings.TrimSpace(interval))
	}
	switch {
	case d%(7*24*time.Hour) == 0:
		return strconv.Itoa(int(d/(7*24*time.Hour))) + "w"
	case d%(24*time.Hour) == 0:
		return strconv.Itoa(int(d/(24*time.Hour))) + "d"
	case d%time.Hour == 0:
		return strconv.Itoa(int(d/time.Hour)) + "h"
	default:
		return strconv.Itoa(int(d/time.Minute)) + "m"
	}
}
