package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors returned by the engine and its directory adapters.

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrCellNotFound indicates no matrix cell exists for a bucket/month pair.
	ErrCellNotFound = errors.New("matrix cell not found")

	// ErrInvalidRecurrencePattern indicates an unsupported recurrence pattern.
	ErrInvalidRecurrencePattern = errors.New("invalid recurrence pattern")

	// ErrInvalidStaffFilterMode indicates an unknown preferred-staff filter mode.
	ErrInvalidStaffFilterMode = errors.New("invalid preferred staff filter mode")

	// ErrInvalidDimension indicates an unknown matrix view dimension.
	ErrInvalidDimension = errors.New("invalid matrix dimension")

	// ErrInvalidMonthRange indicates a month range with start after end or negative bounds.
	ErrInvalidMonthRange = errors.New("invalid month range")

	// ErrInvalidMonthKey indicates a month key not in YYYY-MM form.
	ErrInvalidMonthKey = errors.New("invalid month key")
)

// ExtractionError reports a malformed or dangling-reference task record.
// The extractor records it as a validation issue and skips the task unless
// strict extraction is enabled.
type ExtractionError struct {
	TaskID string
	Field  string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("task %s: %s: %s", e.TaskID, e.Field, e.Reason)
}

// AggregationConsistencyError reports a built matrix whose strategy does not match
// the strategy the selector asked for, even after one forced rebuild.
type AggregationConsistencyError struct {
	Expected AggregationStrategy
	Actual   AggregationStrategy
}

func (e *AggregationConsistencyError) Error() string {
	return fmt.Sprintf("aggregation strategy mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// IsConsistencyError reports whether err is an AggregationConsistencyError.
func IsConsistencyError(err error) bool {
	var ce *AggregationConsistencyError
	return errors.As(err, &ce)
}

// LoadError wraps a transient failure reaching a directory collaborator.
// Only LoadErrors are retried with backoff.
type LoadError struct {
	Op       string // directory operation, e.g. "list_recurring_tasks"
	Attempts int    // attempts made when the error was surfaced (0 while retrying)
	Err      error
}

func (e *LoadError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("load %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsRetryable returns true if the error should be retried with backoff.
func IsRetryable(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// InvalidationBlocked is the signal emitted when the circuit breaker drops an
// invalidation request. It is not returned as an error: stale data is served on purpose.
type InvalidationBlocked struct {
	Reason  string
	RetryIn time.Duration
}

func (b InvalidationBlocked) String() string {
	return fmt.Sprintf("cache invalidation blocked (%s), cooldown ends in %s", b.Reason, b.RetryIn)
}
