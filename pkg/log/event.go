package log

import (
	"time"
)

// Event represents one protocol capture record.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the device session the event belongs to (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Endpoint is the service endpoint URL involved, when there is one.
	Endpoint string `cbor:"3,keyasint,omitempty"`

	// Service names the service kind (device, media, ptz, imaging, events).
	Service string `cbor:"4,keyasint,omitempty"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Type-specific payload (exactly one of these is set).
	Exchange    *ExchangeEvent    `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"12,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryExchange indicates a completed HTTP round trip.
	CategoryExchange Category = 0
	// CategoryState indicates a lifecycle state change.
	CategoryState Category = 1
	// CategoryError indicates a failure outside a completed exchange.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryExchange:
		return "EXCHANGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ExchangeEvent captures one SOAP request/response round trip.
type ExchangeEvent struct {
	// Action is the SOAP action URI of the operation.
	Action string `cbor:"1,keyasint"`

	// Status is the HTTP status code of the response (0 when the request
	// never produced one).
	Status int `cbor:"2,keyasint,omitempty"`

	// RTT is the round-trip time, stored as nanoseconds.
	RTT time.Duration `cbor:"3,keyasint,omitempty"`

	// RequestSize and ResponseSize are the full payload sizes in bytes,
	// before any truncation of the captured copies.
	RequestSize  int `cbor:"4,keyasint"`
	ResponseSize int `cbor:"5,keyasint,omitempty"`

	// Request and Response hold the envelope bytes (may be truncated).
	Request  []byte `cbor:"6,keyasint,omitempty"`
	Response []byte `cbor:"7,keyasint,omitempty"`

	// Truncated indicates Request or Response was cut at the capture limit.
	Truncated bool `cbor:"8,keyasint,omitempty"`

	// Fault is the fault code chain when the device answered with a SOAP
	// fault (for example "s:Sender/ter:InvalidArgVal").
	Fault string `cbor:"9,keyasint,omitempty"`

	// Digest indicates the HTTP digest fallback authenticated this call.
	Digest bool `cbor:"10,keyasint,omitempty"`
}

// StateChangeEvent captures session and worker lifecycle transitions.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntitySession indicates a device session state change.
	StateEntitySession StateEntity = 0
	// StateEntitySubscription indicates a pull-point subscription change.
	StateEntitySubscription StateEntity = 1
	// StateEntityWorker indicates a polling worker state change.
	StateEntityWorker StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySession:
		return "SESSION"
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	case StateEntityWorker:
		return "WORKER"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures failures that never became a response.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`

	// Timeout indicates the failure was a deadline, not a refusal.
	Timeout bool `cbor:"3,keyasint,omitempty"`
}
