package util

import "time"

// MonotonicTimer measures elapsed time for detection latency reporting.
type MonotonicTimer struct {
	start time.Time
}

func NewMonotonicTimer() *MonotonicTimer {
	return &MonotonicTimer{start: time.Now()}
}

func (t *MonotonicTimer) Reset() {
	t.start = time.Now()
}

func (t *MonotonicTimer) Elapsed() time.Duration {
	return time.Since(t.start)
}

func (t *MonotonicTimer) ElapsedUs() int64 {
	return time.Since(t.start).Microseconds()
}

func (t *MonotonicTimer) ElapsedMs() int64 {
	return time.Since(t.start).Milliseconds()
}
