package generation

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/api/googleapi"
)

// ServiceError wraps a failure from the external generation service.
type ServiceError struct {
	Provider  string
	Transient bool
	Err       error
}

func (e *ServiceError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("generation service error (%s, %s): %v", e.Provider, kind, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable generation failure.
func IsTransient(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Transient
	}
	return false
}

func classifyTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return retryableStatus(gerr.Code)
	}
	return false
}

func retryableStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
