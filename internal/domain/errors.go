package domain

import "fmt"

// Error types for consistent error handling across the BFF.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a field-scoped validation error (bad input).
// Validation errors are recoverable; the user corrects and resubmits.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrInvalidRange indicates a report window with end before start.
// The builder refuses rather than silently auto-correcting, so caller
// bugs stay visible.
type ErrInvalidRange struct {
	Start string
	End   string
}

func (e *ErrInvalidRange) Error() string {
	return fmt.Sprintf("invalid date range: end %s before start %s", e.End, e.Start)
}

// ErrStore indicates a remote document-store failure. A failed write must
// not be assumed to have partially succeeded.
type ErrStore struct {
	Op  string
	Err error
}

func (e *ErrStore) Error() string {
	return fmt.Sprintf("store error [%s]: %v", e.Op, e.Err)
}

func (e *ErrStore) Unwrap() error {
	return e.Err
}

// ErrAuth indicates a generic authentication failure.
type ErrAuth struct {
	Message string
}

func (e *ErrAuth) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "authentication failed"
}

// ErrPopupBlocked indicates the provider's popup sign-in flow was blocked;
// callers fall back to the redirect flow.
type ErrPopupBlocked struct{}

func (e *ErrPopupBlocked) Error() string {
	return "sign-in popup blocked"
}

// ErrCancelled indicates the user dismissed the sign-in flow.
type ErrCancelled struct{}

func (e *ErrCancelled) Error() string {
	return "sign-in cancelled"
}

// ErrCacheMiss indicates the requested resource is not in the active cache
// generation. Handled internally by the cache controller.
type ErrCacheMiss struct {
	Key string
}

func (e *ErrCacheMiss) Error() string {
	return fmt.Sprintf("cache miss: %s", e.Key)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}
