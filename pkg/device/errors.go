package device

import "errors"

// Session errors.
var (
	// ErrUnreachable reports that the device did not complete the
	// capability exchange at open.
	ErrUnreachable = errors.New("device unreachable")

	// ErrCapabilitiesMissing reports a device that answered the
	// capability exchange with no capability data.
	ErrCapabilitiesMissing = errors.New("device advertised no capabilities")

	// ErrServiceUnavailable reports a service kind the device does not
	// advertise. The answer is permanent for the session's lifetime.
	ErrServiceUnavailable = errors.New("service not advertised by device")

	// ErrSessionClosed reports an operation on a closed session.
	ErrSessionClosed = errors.New("session closed")
)
