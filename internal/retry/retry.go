// Package retry wraps fallible operations with a bounded re-attempt
// policy. There is no added backoff between attempts; any pacing comes
// from the underlying transport.
package retry

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// DefaultMaxAttempts is the attempt ceiling used when a caller passes
// a non-positive value.
const DefaultMaxAttempts = 5

// ExhaustedError is returned once every attempt has failed. It wraps
// the last underlying error and records how many attempts were made.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do invokes fn up to maxAttempts times, returning nil on the first
// success. Every failed attempt, including intermediate ones, is
// logged with the operation name, attempt number and error so flaky
// dependencies stay diagnosable.
func Do(op string, maxAttempts int, fn func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		log.WithError(lastErr).WithFields(log.Fields{
			"operation": op,
			"attempt":   attempt,
			"max":       maxAttempts,
		}).Warn("Operation failed")
	}

	exhausted := &ExhaustedError{Op: op, Attempts: maxAttempts, Err: lastErr}
	log.WithError(exhausted.Err).WithFields(log.Fields{
		"operation": op,
		"attempts":  maxAttempts,
	}).Error("Operation failed permanently")
	return exhausted
}
