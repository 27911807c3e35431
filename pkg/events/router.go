package events

import (
	"strings"
	"sync"

	"github.com/cskr/pubsub/v2"
)

// AllTopics subscribes to every message regardless of topic.
const AllTopics = "*"

// Router is a Consumer that fans messages out to channel subscribers by
// topic path. A subscriber of "tns1:Device" also receives messages for
// deeper paths such as "tns1:Device/Trigger/Relay".
//
// Delivery applies back pressure: a full subscriber channel blocks the
// polling worker, so receivers must drain promptly or buffer generously.
type Router struct {
	bus *pubsub.PubSub[string, NotificationMessage]

	mu     sync.Mutex
	closed bool
	ended  bool
	reason EndReason
	done   chan struct{}
}

// NewRouter returns a router whose subscriber channels buffer capacity
// messages.
func NewRouter(capacity int) *Router {
	return &Router{
		bus:  pubsub.New[string, NotificationMessage](capacity),
		done: make(chan struct{}),
	}
}

// Subscribe returns a channel receiving messages for the given topic
// paths. The channel is closed when the router shuts down; on an already
// closed router it arrives closed.
func (r *Router) Subscribe(topics ...string) chan NotificationMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		ch := make(chan NotificationMessage)
		close(ch)
		return ch
	}
	return r.bus.Sub(topics...)
}

// Unsubscribe removes ch from the given topics, or from all topics when
// none are given, and closes it.
func (r *Router) Unsubscribe(ch chan NotificationMessage, topics ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.bus.Unsub(ch, topics...)
}

// OnBatch publishes each message of the batch in order.
func (r *Router) OnBatch(b Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for _, msg := range b.Messages {
		r.bus.Pub(msg, routeTopics(msg.Topic)...)
	}
}

// OnEnded records the reason and shuts the router down, closing all
// subscriber channels.
func (r *Router) OnEnded(reason EndReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = true
	r.reason = reason
	r.closeLocked()
}

// Close shuts the router down without an end reason. Safe to call more
// than once.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *Router) closeLocked() {
	if r.closed {
		return
	}
	r.closed = true
	close(r.done)
	r.bus.Shutdown()
}

// Done returns a channel closed once the router has shut down.
func (r *Router) Done() <-chan struct{} {
	return r.done
}

// Ended returns the end reason delivered by the runner, if any.
func (r *Router) Ended() (EndReason, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason, r.ended
}

var _ Consumer = (*Router)(nil)

// routeTopics lists the delivery topics for a message path: the path
// itself, every ancestor prefix, and the catch-all.
func routeTopics(path string) []string {
	topics := make([]string, 0, strings.Count(path, "/")+2)
	for p := path; p != ""; {
		topics = append(topics, p)
		i := strings.LastIndexByte(p, '/')
		if i < 0 {
			break
		}
		p = p[:i]
	}
	return append(topics, AllTopics)
}
