// Package errors classifies failures from the CRM backend so the async
// executor can decide between retrying with backoff and failing fast.
package errors

import "fmt"

// Category determines how an error is handled by retry logic.
type Category int

const (
	// Recoverable errors are retried with exponential backoff: 5xx
	// responses, 408/429, and transport-level failures.
	Recoverable Category = iota

	// Irrecoverable errors fail immediately: the remaining 4xx family,
	// where retrying the same request cannot change the outcome.
	Irrecoverable
)

func (c Category) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Irrecoverable:
		return "Irrecoverable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// ClassifiedError carries the category alongside the original error and,
// for HTTP failures, the status and response body for debugging.
type ClassifiedError struct {
	Category   Category
	StatusCode int    // 0 for non-HTTP errors
	Body       string // response body, when captured
	Underlying error
}

func (e *ClassifiedError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] HTTP %d: %v", e.Category, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("[%s] %v", e.Category, e.Underlying)
}

func (e *ClassifiedError) Unwrap() error { return e.Underlying }

// IsIrrecoverable reports whether err should not be retried.
func IsIrrecoverable(err error) bool {
	if classified, ok := err.(*ClassifiedError); ok {
		return classified.Category == Irrecoverable
	}
	return false
}

// FromStatus builds a classified error for an HTTP failure of the named
// bridge operation.
func FromStatus(statusCode int, body, operation string) *ClassifiedError {
	return &ClassifiedError{
		Category:   categoryFor(statusCode),
		StatusCode: statusCode,
		Body:       body,
		Underlying: fmt.Errorf("%s: status %d", operation, statusCode),
	}
}

// Network builds a classified error for a transport-level failure. These
// are always treated as transient.
func Network(operation string, err error) *ClassifiedError {
	return &ClassifiedError{
		Category:   Recoverable,
		Underlying: fmt.Errorf("%s: %w", operation, err),
	}
}

func categoryFor(statusCode int) Category {
	switch {
	case statusCode >= 400 && statusCode < 500:
		switch statusCode {
		case 408, 429:
			return Recoverable
		default:
			return Irrecoverable
		}
	default:
		// 5xx and anything unexpected: be conservative and retry.
		return Recoverable
	}
}
