package events

import (
	"context"
	"encoding/xml"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nvtkit/onvif-go/pkg/binding"
	"github.com/nvtkit/onvif-go/pkg/duration"
)

// Subscription is one pull point, bound to the manager address the device
// returned at creation. Safe for concurrent use, though the pull protocol
// itself allows only one outstanding pull.
type Subscription struct {
	h       *binding.Handle
	address string
	created time.Time

	ended atomic.Bool

	mu          sync.Mutex
	termination time.Time
}

// Address returns the subscription manager address.
func (s *Subscription) Address() string {
	return s.address
}

// Handle returns the manager-bound handle.
func (s *Subscription) Handle() *binding.Handle {
	return s.h
}

// CreatedAt returns the device-reported creation time, zero when the
// device sent none.
func (s *Subscription) CreatedAt() time.Time {
	return s.created
}

// TerminationTime returns the expiry as of the last exchange with the
// device.
func (s *Subscription) TerminationTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.termination
}

func (s *Subscription) setTermination(t time.Time) {
	if t.IsZero() {
		return
	}
	s.mu.Lock()
	s.termination = t
	s.mu.Unlock()
}

// markEnded closes the subscription locally. Later operations fail with
// ErrSubscriptionEnded without touching the network.
func (s *Subscription) markEnded() {
	s.ended.Store(true)
}

// Ended reports whether the subscription has been closed locally.
func (s *Subscription) Ended() bool {
	return s.ended.Load()
}

type pullMessagesRequest struct {
	XMLName      xml.Name `xml:"http://www.onvif.org/ver10/events/wsdl PullMessages"`
	Timeout      string   `xml:"Timeout"`
	MessageLimit int      `xml:"MessageLimit"`
}

type pullMessagesResponse struct {
	XMLName         xml.Name                 `xml:"PullMessagesResponse"`
	CurrentTime     string                   `xml:"CurrentTime"`
	TerminationTime string                   `xml:"TerminationTime"`
	Messages        []notificationMessageXML `xml:"NotificationMessage"`
}

// Pull performs one PullMessages round trip. timeout is the device-side
// long-poll wait; limit caps the batch size. An empty batch after the
// full wait is normal.
func (s *Subscription) Pull(ctx context.Context, timeout time.Duration, limit int) (Batch, error) {
	if s.ended.Load() {
		return Batch{}, ErrSubscriptionEnded
	}

	req := pullMessagesRequest{
		Timeout:      duration.Format(timeout),
		MessageLimit: limit,
	}
	var resp pullMessagesResponse
	if err := s.h.Call(ctx, "PullMessages", &req, &resp); err != nil {
		return Batch{}, fmt.Errorf("pull messages: %w", err)
	}

	batch := Batch{
		CurrentTime:     parseDeviceTime(resp.CurrentTime),
		TerminationTime: parseDeviceTime(resp.TerminationTime),
	}
	if len(resp.Messages) > 0 {
		batch.Messages = make([]NotificationMessage, len(resp.Messages))
		for i, raw := range resp.Messages {
			batch.Messages[i] = raw.message()
		}
	}
	s.setTermination(batch.TerminationTime)
	return batch, nil
}

type renewRequest struct {
	XMLName         xml.Name `xml:"http://docs.oasis-open.org/wsn/b-2 Renew"`
	TerminationTime string   `xml:"TerminationTime"`
}

type renewResponse struct {
	XMLName         xml.Name `xml:"RenewResponse"`
	TerminationTime string   `xml:"TerminationTime"`
	CurrentTime     string   `xml:"CurrentTime"`
}

// Renew asks the device to extend the subscription by lifetime from now.
func (s *Subscription) Renew(ctx context.Context, lifetime time.Duration) error {
	if s.ended.Load() {
		return ErrSubscriptionEnded
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	req := renewRequest{TerminationTime: duration.Format(lifetime)}
	var resp renewResponse
	if err := s.h.Call(ctx, "Renew", &req, &resp); err != nil {
		return fmt.Errorf("renew subscription: %w", err)
	}
	s.setTermination(parseDeviceTime(resp.TerminationTime))
	return nil
}

type unsubscribeRequest struct {
	XMLName xml.Name `xml:"http://docs.oasis-open.org/wsn/b-2 Unsubscribe"`
}

// Unsubscribe tears the pull point down at the device and closes the
// subscription locally.
func (s *Subscription) Unsubscribe(ctx context.Context) error {
	if s.ended.Load() {
		return ErrSubscriptionEnded
	}
	if err := s.h.Call(ctx, "Unsubscribe", &unsubscribeRequest{}, nil); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	s.markEnded()
	return nil
}
