package llmclient

import (
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy is the shared retry schedule for remote calls.
type RetryPolicy struct {
	MaxAttempts    int           // Total attempts including the first (default: 4)
	InitialBackoff time.Duration // Delay before the first retry (default: 800ms)
	MaxBackoff     time.Duration // Upper bound for any single delay (default: 5s)
	BackoffFactor  float64       // Multiplier applied after every retry (default: 2.0)

	// IsTransient decides whether a failed attempt may be retried.
	IsTransient func(*CallError) bool
}

// DefaultRetryPolicy returns the policy used for every Gemini call.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    4,
		InitialBackoff: 800 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		IsTransient:    IsTransient,
	}
}

// IsTransient classifies rate limiting, temporary unavailability and transport
// failures as worth retrying.
func IsTransient(err *CallError) bool {
	if err == nil {
		return false
	}
	if err.Code == http.StatusTooManyRequests || err.Code == http.StatusServiceUnavailable {
		return true
	}
	switch err.Status {
	case StatusResourceExhausted, StatusUnavailable, StatusNetworkError:
		return true
	}
	msg := strings.ToLower(err.Message)
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "retry")
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	if p.BackoffFactor < 1 {
		p.BackoffFactor = def.BackoffFactor
	}
	if p.IsTransient == nil {
		p.IsTransient = IsTransient
	}
	return p
}

// newBackOff builds a jitter-free exponential schedule bounded by MaxAttempts.
func (p RetryPolicy) newBackOff() backoff.BackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.InitialBackoff
	expo.MaxInterval = p.MaxBackoff
	expo.Multiplier = p.BackoffFactor
	expo.RandomizationFactor = 0
	expo.MaxElapsedTime = 0
	expo.Reset()

	return backoff.WithMaxRetries(expo, uint64(p.MaxAttempts-1))
}
