package cleanup

import "time"

// Granularity is a UTC time bucket size to truncate a cutoff to, so
// deletions only advance at bucket boundaries instead of continuously
// re-triggering as wall-clock time ticks past the raw retention horizon.
type Granularity int

const (
	Day Granularity = iota
	Hour
	Minute
)

// TruncateToUTC returns the epoch-millis start of the UTC bucket of size g
// containing epochMillis.
func TruncateToUTC(epochMillis int64, g Granularity) int64 {
	t := time.UnixMilli(epochMillis).UTC()

	var truncated time.Time
	switch g {
	case Hour:
		truncated = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case Minute:
		truncated = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	default: // Day
		truncated = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}

	return truncated.UnixMilli()
}
