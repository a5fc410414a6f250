package cleanup

import (
	"testing"
	"time"
)

func TestTruncateToUTC_Day(t *testing.T) {
	in := time.Date(2026, 8, 2, 14, 37, 22, 0, time.UTC).UnixMilli()
	want := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	if got := TruncateToUTC(in, Day); got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestTruncateToUTC_Hour(t *testing.T) {
	in := time.Date(2026, 8, 2, 14, 37, 22, 0, time.UTC).UnixMilli()
	want := time.Date(2026, 8, 2, 14, 0, 0, 0, time.UTC).UnixMilli()
	if got := TruncateToUTC(in, Hour); got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestTruncateToUTC_Minute(t *testing.T) {
	in := time.Date(2026, 8, 2, 14, 37, 22, 500, time.UTC).UnixMilli()
	want := time.Date(2026, 8, 2, 14, 37, 0, 0, time.UTC).UnixMilli()
	if got := TruncateToUTC(in, Minute); got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestTruncateToUTC_AlreadyOnBoundary(t *testing.T) {
	in := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	if got := TruncateToUTC(in, Day); got != in {
		t.Fatalf("got %d, want %d (idempotent on boundary)", got, in)
	}
}
