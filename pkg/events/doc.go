// Package events exposes the ONVIF event service: topic discovery,
// pull-point subscriptions, and a polling worker that turns pulls into
// consumer callbacks.
//
// # Subscriptions
//
// CreatePullPoint asks the device for a pull point with a topic filter and
// a lifetime. The device answers with a subscription manager address; the
// returned Subscription is bound there and owns the Pull, Renew, and
// Unsubscribe operations. Healthy pulling refreshes the termination time,
// so a short lifetime only bites when polling stops.
//
// # Polling
//
// Run starts one worker per subscription. The worker pulls in a loop and
// hands every non-empty batch to the consumer synchronously; the next pull
// waits until the consumer returns. Transient failures retry after a fixed
// delay. Terminal failures, expiry, and Stop all end the loop with exactly
// one OnEnded call. Stop only signals; receive from Done to wait for the
// worker.
//
// # Topics
//
// TopicTree fetches the device's topic forest. TopicSet.Walk traverses it
// depth-first with slash-joined paths, and Router fans delivered
// notifications out to per-topic subscriber channels.
package events
