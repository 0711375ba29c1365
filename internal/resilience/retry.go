// Package resilience provides retry with exponential backoff for the
// external API calls of the refresh pipeline.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"strings"
	"time"
)

// Config holds retry behavior configuration
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
	// Retryable decides whether an error is worth another attempt
	Retryable func(error) bool
}

// DefaultConfig returns the retry defaults used for GitHub and SonarCloud
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
		Retryable:     IsTransient,
	}
}

// Func represents a function that can be retried
type Func func() error

// Do executes fn with retry logic using the given configuration
func Do(ctx context.Context, config Config, fn Func) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !config.Retryable(err) {
			break
		}
		if attempt == config.MaxAttempts-1 {
			break
		}

		delay := calculateDelay(config, attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// Retry executes fn with the default configuration
func Retry(ctx context.Context, fn Func) error {
	return Do(ctx, DefaultConfig(), fn)
}

// calculateDelay computes the delay for the next retry attempt
func calculateDelay(config Config, attempt int) time.Duration {
	delay := time.Duration(float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt)))

	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	// Jitter prevents a thundering herd on shared upstreams
	if config.JitterEnabled && delay/10 > 0 {
		delay += time.Duration(rand.Int63n(int64(delay / 10)))
	}

	return delay
}

// transientStatusMarkers match the status text the adapters put into their
// non-2xx errors for codes worth retrying
var transientStatusMarkers = []string{
	"status 408",
	"status 429",
	"status 500",
	"status 502",
	"status 503",
	"status 504",
}

// IsTransient reports whether an error looks like a temporary upstream
// failure. Auth failures and missing resources are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") {
		return true
	}

	for _, marker := range transientStatusMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
