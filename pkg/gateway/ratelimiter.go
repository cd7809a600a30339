package gateway

import (
	"sync"
	"time"
)

// ClientRateLimiter implements sliding window rate limiting per client
type ClientRateLimiter struct {
	mu                 sync.Mutex
	requestsPerMinute  int
	maxConcurrent      int
	requests           []time.Time
	concurrentRequests int
}

// NewClientRateLimiter creates a rate limiter with custom limits
func NewClientRateLimiter(requestsPerMinute, maxConcurrent int) *ClientRateLimiter {
	return &ClientRateLimiter{
		requestsPerMinute: requestsPerMinute,
		maxConcurrent:     maxConcurrent,
		requests:          make([]time.Time, 0),
	}
}

// CheckRequestAllowed checks if a request is allowed under rate limits
func (r *ClientRateLimiter) CheckRequestAllowed() (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	// Check concurrent requests limit
	if r.concurrentRequests >= r.maxConcurrent {
		return false, "too many concurrent requests"
	}

	// Clean up old requests (older than 1 minute)
	cutoff := now.Add(-time.Minute)
	validRequests := make([]time.Time, 0)
	for _, reqTime := range r.requests {
		if reqTime.After(cutoff) {
			validRequests = append(validRequests, reqTime)
		}
	}
	r.requests = validRequests

	// Check requests per minute limit
	if len(r.requests) >= r.requestsPerMinute {
		return false, "rate limit exceeded"
	}

	return true, ""
}

// RecordRequestStart records the start of a request
func (r *ClientRateLimiter) RecordRequestStart() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests = append(r.requests, time.Now())
	r.concurrentRequests++
}

// RecordRequestEnd records the end of a request
func (r *ClientRateLimiter) RecordRequestEnd() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.concurrentRequests > 0 {
		r.concurrentRequests--
	}
}

// GetStats returns current rate limiter statistics
func (r *ClientRateLimiter) GetStats() (requestCount, concurrentCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-time.Minute)
	validRequests := make([]time.Time, 0)
	for _, reqTime := range r.requests {
		if reqTime.After(cutoff) {
			validRequests = append(validRequests, reqTime)
		}
	}
	r.requests = validRequests

	return len(r.requests), r.concurrentRequests
}

// RateLimiterRegistry hands out one limiter per client key.
type RateLimiterRegistry struct {
	mu                sync.Mutex
	limiters          map[string]*ClientRateLimiter
	requestsPerMinute int
	maxConcurrent     int
}

// NewRateLimiterRegistry creates a registry with shared per-client limits.
func NewRateLimiterRegistry(requestsPerMinute, maxConcurrent int) *RateLimiterRegistry {
	return &RateLimiterRegistry{
		limiters:          make(map[string]*ClientRateLimiter),
		requestsPerMinute: requestsPerMinute,
		maxConcurrent:     maxConcurrent,
	}
}

// For returns the limiter for a client key, creating it on first use.
func (reg *RateLimiterRegistry) For(key string) *ClientRateLimiter {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if l, ok := reg.limiters[key]; ok {
		return l
	}
	l := NewClientRateLimiter(reg.requestsPerMinute, reg.maxConcurrent)
	reg.limiters[key] = l
	return l
}

// Len returns the number of tracked clients.
func (reg *RateLimiterRegistry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.limiters)
}
