package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// StatusError reports an HTTP-level rejection that carried no SOAP fault.
type StatusError struct {
	// Code is the HTTP status code.
	Code int

	// Status is the full status line, when known.
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return "http status " + e.Status
	}
	return fmt.Sprintf("http status %d", e.Code)
}

// IsTimeout reports whether err was caused by a deadline expiring, either
// the caller's context or a network timeout underneath.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsConnRefused reports whether err was caused by the device actively
// refusing the connection.
func IsConnRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
