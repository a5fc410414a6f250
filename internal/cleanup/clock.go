package cleanup

import "time"

// Clock supplies the current time as epoch millis, matching spec.md §6's
// Clock.nowMillis() collaborator. Injected so tests can hold time fixed.
type Clock interface {
	NowMillis() int64
}

// SystemClock is the production Clock, backed by the wall clock.
type SystemClock struct{}

func (SystemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// FixedClock is a Clock that always returns the same instant. Useful for
// deterministic tests.
type FixedClock int64

func (c FixedClock) NowMillis() int64 { return int64(c) }
