package events

import "errors"

// Subscription errors.
var (
	// ErrSubscriptionRejected reports that the device refused to create
	// a pull point for the requested filter and lifetime.
	ErrSubscriptionRejected = errors.New("subscription rejected by device")

	// ErrSubscriptionEnded reports an operation on a subscription that
	// has been unsubscribed or whose runner ended delivery.
	ErrSubscriptionEnded = errors.New("subscription ended")
)
