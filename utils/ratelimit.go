package utils

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"boxfetch/internal"
)

// TokenBucketLimiter implements rate limiting using a token bucket. A single
// transfer is the only consumer, so there is no per-thread distribution.
type TokenBucketLimiter struct {
	rate       int64
	bucket     int64
	maxBucket  int64
	lastUpdate time.Time
	mutex      sync.Mutex
}

// NewTokenBucketLimiter creates a new rate limiter
func NewTokenBucketLimiter(bytesPerSecond int64) internal.RateLimiter {
	return &TokenBucketLimiter{
		rate:       bytesPerSecond,
		bucket:     bytesPerSecond,
		maxBucket:  bytesPerSecond,
		lastUpdate: time.Now(),
	}
}

// Wait blocks until the specified number of bytes can be consumed
func (r *TokenBucketLimiter) Wait(ctx context.Context, n int) error {
	r.mutex.Lock()
	if r.rate <= 0 {
		r.mutex.Unlock()
		return nil
	}

	// Refill tokens based on elapsed time
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate)
	r.lastUpdate = now

	r.bucket += int64(elapsed.Seconds() * float64(r.rate))
	if r.bucket > r.maxBucket {
		r.bucket = r.maxBucket
	}

	needed := int64(n)
	if r.bucket >= needed {
		r.bucket -= needed
		r.mutex.Unlock()
		return nil
	}

	deficit := needed - r.bucket
	r.bucket = 0
	waitTime := time.Duration(float64(deficit) / float64(r.rate) * float64(time.Second))
	r.mutex.Unlock()

	select {
	case <-time.After(waitTime):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetRate updates the rate limit in bytes per second
func (r *TokenBucketLimiter) SetRate(bytesPerSecond int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.rate = bytesPerSecond
	r.maxBucket = bytesPerSecond
	if r.bucket > r.maxBucket {
		r.bucket = r.maxBucket
	}
}

// ParseRateLimit parses a rate limit string like "5M", "500K", "2G" or a
// plain byte count into bytes per second.
func ParseRateLimit(rateStr string) (int64, error) {
	rateStr = strings.TrimSpace(rateStr)
	if rateStr == "" {
		return 0, nil
	}

	// Handle pure numbers (bytes per second)
	if val, err := strconv.ParseInt(rateStr, 10, 64); err == nil {
		if val < 0 {
			return 0, fmt.Errorf("rate limit cannot be negative: %s", rateStr)
		}
		return val, nil
	}

	if len(rateStr) < 2 {
		return 0, fmt.Errorf("invalid rate format: %s", rateStr)
	}

	rateUpper := strings.ToUpper(rateStr)
	var numStr, suffix string

	// Two-character suffixes (KB, MB, GB, TB) before single-character ones
	if len(rateUpper) >= 3 && (strings.HasSuffix(rateUpper, "KB") ||
		strings.HasSuffix(rateUpper, "MB") ||
		strings.HasSuffix(rateUpper, "GB") ||
		strings.HasSuffix(rateUpper, "TB")) {
		numStr = rateStr[:len(rateStr)-2]
		suffix = rateUpper[len(rateUpper)-2 : len(rateUpper)-1]
	} else {
		numStr = rateStr[:len(rateStr)-1]
		suffix = rateUpper[len(rateUpper)-1:]
	}

	baseValue, err := strconv.ParseFloat(numStr, 64)
	if err != nil || baseValue < 0 {
		return 0, fmt.Errorf("invalid rate format: %s", rateStr)
	}

	var multiplier int64
	switch suffix {
	case "B":
		multiplier = 1
	case "K":
		multiplier = 1024
	case "M":
		multiplier = 1024 * 1024
	case "G":
		multiplier = 1024 * 1024 * 1024
	case "T":
		multiplier = 1024 * 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown rate suffix: %s", suffix)
	}

	return int64(baseValue * float64(multiplier)), nil
}
