// Package awsutil carries the retry/backoff helper that every driver's
// AWS SDK call is wrapped in, classifying smithy API errors instead of
// gophercloud HTTP statuses.
package awsutil

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/aws/smithy-go"
)

// RetryConfig defines the parameters for the exponential backoff and
// retry mechanism used around AWS API calls.
type RetryConfig struct {
	// MaxRetries is the maximum number of additional attempts after the
	// initial failure.
	MaxRetries int

	// BaseDelay is the initial wait before the first retry; it doubles
	// on each subsequent attempt.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff regardless of attempt count.
	MaxDelay time.Duration

	// OperationTimeout is the total time limit for the entire operation,
	// including all retries.
	OperationTimeout time.Duration
}

// DefaultRetryConfig is tuned for short-lived CLI calls (list/describe/
// update requests, not convergence waits).
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:       3,
		BaseDelay:        2 * time.Second,
		MaxDelay:         10 * time.Second,
		OperationTimeout: 30 * time.Second,
	}
}

// retryableCodes are AWS error codes that indicate a transient
// condition worth retrying (throttling, internal errors, service
// unavailability).
var retryableCodes = map[string]bool{
	"ThrottlingException":      true,
	"Throttling":               true,
	"RequestLimitExceeded":     true,
	"TooManyRequestsException": true,
	"InternalFailure":          true,
	"InternalError":            true,
	"ServiceUnavailable":       true,
	"RequestTimeout":           true,
	"RequestTimeoutException":  true,
	"PriorRequestNotComplete":  true,
}

// isRetryable determines if an error is transient and warrants a
// retry. Smithy API errors are checked against a known set of
// transient AWS error codes; anything else (DNS failure, connection
// reset) is assumed transient and retried.
func isRetryable(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return retryableCodes[apiErr.ErrorCode()]
	}
	return true
}

// Do wraps operation with exponential backoff, jitter, and an overall
// operation timeout. opName is used only for error messages.
func Do(ctx context.Context, cfg RetryConfig, opName string, operation func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.OperationTimeout)
	defer cancel()

	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%s timed out before attempt %d: %w", opName, attempt+1, ctx.Err())
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}

		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt == cfg.MaxRetries {
			break
		}

		backoff := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
		jitter := time.Duration(rand.Int63n(int64(backoff)/2 + 1))
		sleepDuration := min(time.Duration(backoff)+jitter, cfg.MaxDelay)

		select {
		case <-time.After(sleepDuration):
			continue
		case <-ctx.Done():
			return fmt.Errorf("%s context cancelled during backoff: %w", opName, ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", opName, cfg.MaxRetries, lastErr)
}
