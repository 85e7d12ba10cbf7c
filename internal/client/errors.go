package client

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for job service failures.
var (
	ErrUnreachable       = errors.New("job service unreachable")
	ErrStoryboardPending = errors.New("storyboard not yet available")
)

// ValidationError is returned before any network call when a request is
// malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ServiceError is a non-success answer from the job service, or a
// transport failure talking to it.
type ServiceError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return e.Err.Error()
	case e.Message != "":
		return fmt.Sprintf("job service error (status %d): %s", e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("job service error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("job service error (status %d)", e.Status)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NotFoundError reports that the service does not know the requested entity.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// classifyError maps transport-level errors to a *ServiceError wrapping
// ErrUnreachable. Cancellation of the caller's context is returned as is.
func classifyError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	code := "unreachable"
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		code = "timeout"
	}
	return &ServiceError{Code: code, Err: fmt.Errorf("%w: %v", ErrUnreachable, err)}
}
