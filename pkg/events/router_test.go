package events_test

import (
	"testing"
	"time"

	"github.com/nvtkit/onvif-go/pkg/events"
)

// TestRouterFansOutToAncestors verifies a message reaches subscribers of
// its own path, of every ancestor path, and of the catch-all, and nobody
// else.
func TestRouterFansOutToAncestors(t *testing.T) {
	r := events.NewRouter(8)
	defer r.Close()

	device := r.Subscribe("tns1:Device")
	relay := r.Subscribe("tns1:Device/Trigger/Relay")
	all := r.Subscribe(events.AllTopics)

	relayMsg := events.NotificationMessage{Topic: "tns1:Device/Trigger/Relay", Operation: events.OpUpdated}
	motionMsg := events.NotificationMessage{Topic: "tns1:RuleEngine/CellMotionDetector/Motion", Operation: events.OpInitialized}
	r.OnBatch(events.Batch{Messages: []events.NotificationMessage{relayMsg, motionMsg}})

	if got := receiveMsg(t, relay); got.Topic != relayMsg.Topic {
		t.Errorf("Relay subscriber got %q", got.Topic)
	}
	if got := receiveMsg(t, device); got.Topic != relayMsg.Topic {
		t.Errorf("Device subscriber got %q", got.Topic)
	}
	first := receiveMsg(t, all)
	second := receiveMsg(t, all)
	if first.Topic != relayMsg.Topic || second.Topic != motionMsg.Topic {
		t.Errorf("Catch-all order = %q, %q", first.Topic, second.Topic)
	}

	expectNone(t, device)
	expectNone(t, relay)
}

// TestRouterUnsubscribe verifies removal closes the channel and stops
// delivery while other subscribers keep receiving.
func TestRouterUnsubscribe(t *testing.T) {
	r := events.NewRouter(8)
	defer r.Close()

	ch1 := r.Subscribe("tns1:Device")
	ch2 := r.Subscribe("tns1:Device")

	msg := events.NotificationMessage{Topic: "tns1:Device"}
	r.OnBatch(events.Batch{Messages: []events.NotificationMessage{msg}})
	receiveMsg(t, ch1)
	receiveMsg(t, ch2)

	r.Unsubscribe(ch1)
	r.OnBatch(events.Batch{Messages: []events.NotificationMessage{msg}})

	if got := receiveMsg(t, ch2); got.Topic != "tns1:Device" {
		t.Errorf("Remaining subscriber got %q", got.Topic)
	}
	receiveClosed(t, ch1)
}

// TestRouterEndClosesChannels verifies the runner's ending reaches every
// subscriber as a channel close and is retrievable afterwards.
func TestRouterEndClosesChannels(t *testing.T) {
	r := events.NewRouter(8)
	ch := r.Subscribe(events.AllTopics)

	r.OnEnded(events.EndExpired)

	receiveClosed(t, ch)
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done() not closed after ending")
	}
	reason, ok := r.Ended()
	if !ok || reason != events.EndExpired {
		t.Errorf("Ended() = %v, %v, want EndExpired, true", reason, ok)
	}
}

// TestRouterCloseIdempotent verifies closing twice and using a closed
// router are safe no-ops.
func TestRouterCloseIdempotent(t *testing.T) {
	r := events.NewRouter(8)
	r.Close()
	r.Close()

	r.OnBatch(events.Batch{Messages: []events.NotificationMessage{{Topic: "tns1:Device"}}})

	ch := r.Subscribe("tns1:Device")
	receiveClosed(t, ch)
	r.Unsubscribe(ch)

	if _, ok := r.Ended(); ok {
		t.Error("Ended() reports a reason after a plain Close")
	}
}

// TestRouterWithRunner verifies the router as a live consumer: messages
// flow from pulls to topic channels, and the runner's ending closes them.
func TestRouterWithRunner(t *testing.T) {
	script := newScript()
	script.queue("PullMessagesRequest", respondXML(pullEnvelope))
	script.on("PullMessagesRequest", respondXML(pullEmptyEnvelope))
	script.on("UnsubscribeRequest", respondXML(unsubscribeEnvelope))
	sub := newSubscription(t, script)

	router := events.NewRouter(16)
	all := router.Subscribe(events.AllTopics)

	r, err := events.Run(sub, router, quietRunnerConfig())
	if err != nil {
		t.Fatalf("Failed to start runner: %v", err)
	}

	first := receiveMsg(t, all)
	second := receiveMsg(t, all)
	if first.Topic != "tns1:RuleEngine/CellMotionDetector/Motion" {
		t.Errorf("First message topic = %q", first.Topic)
	}
	if second.Topic != "tns1:Device/Trigger/Relay" {
		t.Errorf("Second message topic = %q", second.Topic)
	}
	if v, ok := first.DataItem("IsMotion"); !ok || v != "false" {
		t.Errorf("DataItem(IsMotion) = %q, %v", v, ok)
	}

	r.Stop()
	waitDone(t, r)

	receiveClosed(t, all)
	reason, ok := router.Ended()
	if !ok || reason != events.EndCancelled {
		t.Errorf("Ended() = %v, %v, want EndCancelled, true", reason, ok)
	}
}

func receiveMsg(t *testing.T, ch chan events.NotificationMessage) events.NotificationMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("Channel closed while waiting for a message")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a message")
	}
	return events.NotificationMessage{}
}

func receiveClosed(t *testing.T, ch chan events.NotificationMessage) {
	t.Helper()
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for the channel to close")
		}
	}
}

func expectNone(t *testing.T, ch chan events.NotificationMessage) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Errorf("Unexpected message %q", msg.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}
