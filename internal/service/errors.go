package service

import (
	"errors"
	"fmt"
	"time"
)

// Common service errors
var (
	ErrFixtureNotFound = errors.New("fixture not found")
)

// RateLimitError is returned when the shared upstream window is
// exhausted. It is retryable: callers back off for RetryAfter instead of
// treating it as fatal.
type RateLimitError struct {
	RetryAfter time.Duration
	Count      int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", e.RetryAfter)
}
