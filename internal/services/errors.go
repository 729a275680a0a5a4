package services

// Custom errors

// ValidationError rejects malformed input at the boundary, before any write.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

// NotFoundError signals an unknown session or video (client may retry with a
// fresh start event).
type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// DependencyError wraps a durable-store failure. It maps to 503 so the
// client's own backoff takes over; the server never retries.
type DependencyError struct {
	Message string
	Err     error
}

func (e *DependencyError) Error() string { return e.Message }

func (e *DependencyError) Unwrap() error { return e.Err }
