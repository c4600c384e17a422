// Package ratelimit provides per-key token bucket rate limiting for MCP tools.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrRateLimited is wrapped by every LimitError.
var ErrRateLimited = errors.New("rate limit exceeded")

// LimitError reports a rejected call and when a token will next be free.
type LimitError struct {
	Tool       string
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, try again in %s", e.Tool, e.RetryAfter.Round(time.Second))
}

// Unwrap lets errors.Is match ErrRateLimited.
func (e *LimitError) Unwrap() error {
	return ErrRateLimited
}

// Limiter implements a per-key token bucket rate limiter.
// Each key gets its own bucket with the configured rate and burst.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64          // tokens per second
	burst   int              // max burst size (also initial token count)
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and burst size.
// The burst size also serves as the initial number of tokens available.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// PerMinute creates a limiter allowing n calls per minute with the given burst.
func PerMinute(n float64, burst int) *Limiter {
	return NewLimiter(n/60.0, burst)
}

// refill returns the key's bucket topped up to now. Callers hold l.mu.
func (l *Limiter) refill(key string) *bucket {
	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastCheck: now}
		l.buckets[key] = b
		return b
	}
	if elapsed := now.Sub(b.lastCheck).Seconds(); elapsed > 0 {
		b.tokens = math.Min(b.tokens+l.rate*elapsed, float64(l.burst))
		b.lastCheck = now
	}
	return b
}

// Allow reports whether a call for key may proceed, consuming a token if so.
func (l *Limiter) Allow(key string) bool {
	_, ok := l.Reserve(key)
	return ok
}

// Reserve consumes a token for key when one is available. Otherwise it
// returns how long until the next token, or a negative duration when the
// bucket never refills.
func (l *Limiter) Reserve(key string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key)
	if b.tokens >= 1.0 {
		b.tokens--
		return 0, true
	}
	if l.rate <= 0 {
		return -1, false
	}
	wait := (1.0 - b.tokens) / l.rate
	return time.Duration(wait * float64(time.Second)), false
}

// Tokens returns the tokens currently available for key.
func (l *Limiter) Tokens(key string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refill(key).tokens
}

// Tool names that are rate limited.
const (
	ToolSimulate   = "hounds_simulate"
	ToolExpected   = "hounds_expected"
	ToolHistory    = "hounds_history"
	ToolStrategies = "hounds_strategies"
)

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default set of per-tool rate limiters.
// Simulation is the only expensive tool; the others are cheap lookups.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		ToolSimulate: PerMinute(30, 5),
		ToolExpected: PerMinute(60, 10),
		ToolHistory:  PerMinute(60, 10),
	}
}

// CheckLimit checks the rate limit for a given tool name.
// Returns nil if allowed, or a *LimitError if rate limited.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}

	wait, ok := limiter.Reserve(toolName)
	if !ok {
		if wait < 0 {
			return fmt.Errorf("%s is disabled: %w", toolName, ErrRateLimited)
		}
		return &LimitError{Tool: toolName, RetryAfter: wait}
	}
	return nil
}
