package dispatcher

import (
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

type RateLimitBucket struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// RateLimitMonitor tracks per-route rate limit headers so workers back off
// before the platform starts rejecting calls.
type RateLimitMonitor struct {
	mu      sync.RWMutex
	buckets map[string]*RateLimitBucket
}

func NewRateLimitMonitor() *RateLimitMonitor {
	return &RateLimitMonitor{
		buckets: make(map[string]*RateLimitBucket),
	}
}

func (rlm *RateLimitMonitor) CanExecute(route, communityID string) bool {
	key := route + ":" + communityID

	rlm.mu.RLock()
	bucket, exists := rlm.buckets[key]
	rlm.mu.RUnlock()

	if !exists {
		return true
	}
	if time.Now().After(bucket.ResetAt) {
		return true
	}
	return bucket.Remaining > 0
}

func (rlm *RateLimitMonitor) UpdateFromResponse(resp *fasthttp.Response, route, communityID string) {
	key := route + ":" + communityID

	remaining := string(resp.Header.Peek("X-RateLimit-Remaining"))
	limit := string(resp.Header.Peek("X-RateLimit-Limit"))
	reset := string(resp.Header.Peek("X-RateLimit-Reset"))

	bucket := &RateLimitBucket{}

	if remaining != "" {
		bucket.Remaining, _ = strconv.Atoi(remaining)
	}
	if limit != "" {
		bucket.Limit, _ = strconv.Atoi(limit)
	}
	if reset != "" {
		resetUnix, _ := strconv.ParseFloat(reset, 64)
		bucket.ResetAt = time.Unix(int64(resetUnix), 0)
	}

	rlm.mu.Lock()
	rlm.buckets[key] = bucket
	rlm.mu.Unlock()
}

func (rlm *RateLimitMonitor) GetBucket(route, communityID string) *RateLimitBucket {
	key := route + ":" + communityID

	rlm.mu.RLock()
	defer rlm.mu.RUnlock()
	return rlm.buckets[key]
}
