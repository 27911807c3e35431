package transport

import (
	"context"
	"errors"
	"time"
)

// Credential authenticates calls to one device.
type Credential struct {
	Username string
	Password string
}

// Call describes one SOAP operation invocation.
type Call struct {
	// Endpoint is the service endpoint URL the request is posted to.
	Endpoint string

	// Action is the SOAP action URI of the operation.
	Action string

	// Request is the operation element to send.
	Request any

	// Response receives the decoded response body; nil discards it.
	Response any

	// Credential authenticates the call; nil sends anonymously.
	Credential *Credential

	// ClockOffset adjusts UsernameToken timestamps to the device clock.
	ClockOffset time.Duration

	// SessionID and Service annotate capture events.
	SessionID string
	Service   string

	// NoCapture suppresses capture events for this exchange.
	NoCapture bool
}

// Call validation errors.
var (
	ErrMissingEndpoint = errors.New("call has no endpoint")
	ErrMissingAction   = errors.New("call has no action")
	ErrMissingRequest  = errors.New("call has no request payload")
)

func (c *Call) validate() error {
	switch {
	case c.Endpoint == "":
		return ErrMissingEndpoint
	case c.Action == "":
		return ErrMissingAction
	case c.Request == nil:
		return ErrMissingRequest
	}
	return nil
}

// Invoker performs SOAP calls. Implemented by Client; tests substitute
// scripted implementations.
type Invoker interface {
	// Invoke posts the call's request and decodes the response into
	// call.Response. SOAP faults come back as *wire.Fault errors.
	Invoke(ctx context.Context, call *Call) error
}

// Compile-time interface satisfaction check.
var _ Invoker = (*Client)(nil)
