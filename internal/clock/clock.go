package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now returns NowFunc()
func Now() time.Time { return NowFunc() }

// Since returns elapsed time measured with NowFunc
func Since(t time.Time) time.Duration { return NowFunc().Sub(t) }

// Ptr returns pointer to current time, used for optional timestamps
func Ptr() *time.Time {
	ret := NowFunc()
	return &ret
}
