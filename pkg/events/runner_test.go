package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nvtkit/onvif-go/pkg/events"
	"github.com/nvtkit/onvif-go/pkg/transport"
)

// TestRunnerDeliversBatches verifies non-empty batches reach the consumer
// in pull order and empty pulls are skipped silently.
func TestRunnerDeliversBatches(t *testing.T) {
	script := newScript()
	script.queue("PullMessagesRequest",
		respondXML(pullEnvelope),
		respondXML(pullEmptyEnvelope),
		respondXML(pullEnvelope),
	)
	script.on("PullMessagesRequest", respondXML(pullEmptyEnvelope))
	script.on("UnsubscribeRequest", respondXML(unsubscribeEnvelope))
	sub := newSubscription(t, script)

	rec := newRecorder()
	r, err := events.Run(sub, rec, quietRunnerConfig())
	if err != nil {
		t.Fatalf("Failed to start runner: %v", err)
	}

	first := waitBatch(t, rec)
	second := waitBatch(t, rec)
	r.Stop()
	waitDone(t, r)

	if len(first.Messages) != 2 || len(second.Messages) != 2 {
		t.Errorf("Batch sizes = %d, %d, want 2, 2", len(first.Messages), len(second.Messages))
	}
	if first.Messages[0].Topic != "tns1:RuleEngine/CellMotionDetector/Motion" {
		t.Errorf("First topic = %q", first.Messages[0].Topic)
	}
	if got := script.count("PullMessagesRequest"); got < 3 {
		t.Errorf("Pull calls = %d, want at least 3 (empty batch continues polling)", got)
	}
	if reason := waitEnded(t, rec); reason != events.EndCancelled {
		t.Errorf("End reason = %v, want EndCancelled", reason)
	}
	if got := script.count("UnsubscribeRequest"); got != 1 {
		t.Errorf("Unsubscribe calls = %d, want 1", got)
	}
	if r.State() != events.StateTerminated {
		t.Errorf("State = %v, want StateTerminated", r.State())
	}
}

// TestRunnerStopDoesNotInterruptPull verifies Stop returns immediately
// while a pull is in flight, the pull completes, its batch is still
// delivered, and only then does the worker tear down.
func TestRunnerStopDoesNotInterruptPull(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	script := newScript()
	script.queue("PullMessagesRequest", func(call *transport.Call) error {
		close(started)
		<-release
		return respondXML(pullEnvelope)(call)
	})
	script.on("PullMessagesRequest", respondXML(pullEmptyEnvelope))
	script.on("UnsubscribeRequest", respondXML(unsubscribeEnvelope))
	sub := newSubscription(t, script)

	rec := newRecorder()
	r, err := events.Run(sub, rec, quietRunnerConfig())
	if err != nil {
		t.Fatalf("Failed to start runner: %v", err)
	}

	<-started
	if r.State() != events.StatePolling {
		t.Errorf("State during pull = %v, want StatePolling", r.State())
	}

	r.Stop()
	if r.State() != events.StateTerminating {
		t.Errorf("State after Stop = %v, want StateTerminating", r.State())
	}
	select {
	case <-r.Done():
		t.Fatal("Runner finished while its pull was still in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	waitDone(t, r)

	rec.mu.Lock()
	order := append([]string(nil), rec.order...)
	rec.mu.Unlock()
	if len(order) != 2 || order[0] != "batch" || order[1] != "ended" {
		t.Errorf("Callback order = %v, want [batch ended]", order)
	}
	if reason := waitEnded(t, rec); reason != events.EndCancelled {
		t.Errorf("End reason = %v, want EndCancelled", reason)
	}
	if got := script.count("UnsubscribeRequest"); got != 1 {
		t.Errorf("Unsubscribe calls = %d, want 1", got)
	}
	if !sub.Ended() {
		t.Error("Subscription not ended after runner teardown")
	}
}

// TestRunnerRetriesTransientErrors verifies transport errors and
// receiver-class faults are retried until the device recovers.
func TestRunnerRetriesTransientErrors(t *testing.T) {
	script := newScript()
	script.queue("PullMessagesRequest",
		failWith(errors.New("read tcp: connection timed out")),
		respondXML(deviceBusyEnvelope),
		respondXML(pullEnvelope),
	)
	script.on("PullMessagesRequest", respondXML(pullEmptyEnvelope))
	script.on("UnsubscribeRequest", respondXML(unsubscribeEnvelope))
	sub := newSubscription(t, script)

	rec := newRecorder()
	r, err := events.Run(sub, rec, quietRunnerConfig())
	if err != nil {
		t.Fatalf("Failed to start runner: %v", err)
	}

	batch := waitBatch(t, rec)
	r.Stop()
	waitDone(t, r)

	if len(batch.Messages) != 2 {
		t.Errorf("Batch size = %d, want 2", len(batch.Messages))
	}
	if got := script.count("PullMessagesRequest"); got < 3 {
		t.Errorf("Pull calls = %d, want at least 3", got)
	}
	if reason := waitEnded(t, rec); reason != events.EndCancelled {
		t.Errorf("End reason = %v, want EndCancelled", reason)
	}
}

// TestRunnerSubscriptionGoneEndsExpired verifies the fault for a dead
// subscription stops polling at once, without an unsubscribe attempt.
func TestRunnerSubscriptionGoneEndsExpired(t *testing.T) {
	script := newScript()
	script.on("PullMessagesRequest", respondXML(subscriptionGoneEnvelope))
	sub := newSubscription(t, script)

	rec := newRecorder()
	r, err := events.Run(sub, rec, quietRunnerConfig())
	if err != nil {
		t.Fatalf("Failed to start runner: %v", err)
	}

	if reason := waitEnded(t, rec); reason != events.EndExpired {
		t.Errorf("End reason = %v, want EndExpired", reason)
	}
	waitDone(t, r)

	if got := script.count("PullMessagesRequest"); got != 1 {
		t.Errorf("Pull calls = %d, want 1", got)
	}
	if got := script.count("UnsubscribeRequest"); got != 0 {
		t.Errorf("Unsubscribe calls = %d, want 0", got)
	}
	if len(rec.snapshotBatches()) != 0 {
		t.Error("Batches delivered after terminal fault")
	}
	if !sub.Ended() {
		t.Error("Subscription not marked ended")
	}
	if r.State() != events.StateTerminated {
		t.Errorf("State = %v, want StateTerminated", r.State())
	}
}

// TestRunnerHTTPRejectionEndsExpired verifies a definitive HTTP status
// from the manager endpoint is terminal.
func TestRunnerHTTPRejectionEndsExpired(t *testing.T) {
	script := newScript()
	script.on("PullMessagesRequest", failWith(&transport.StatusError{Code: 404, Status: "404 Not Found"}))
	sub := newSubscription(t, script)

	rec := newRecorder()
	if _, err := events.Run(sub, rec, quietRunnerConfig()); err != nil {
		t.Fatalf("Failed to start runner: %v", err)
	}

	if reason := waitEnded(t, rec); reason != events.EndExpired {
		t.Errorf("End reason = %v, want EndExpired", reason)
	}
	if got := script.count("PullMessagesRequest"); got != 1 {
		t.Errorf("Pull calls = %d, want 1", got)
	}
}

// TestRunnerFailureCapEndsUnreachable verifies the consecutive-failure
// cap gives up with EndUnreachable.
func TestRunnerFailureCapEndsUnreachable(t *testing.T) {
	script := newScript()
	script.on("PullMessagesRequest", failWith(errors.New("no route to host")))
	sub := newSubscription(t, script)

	cfg := quietRunnerConfig()
	cfg.MaxPullFailures = 3
	rec := newRecorder()
	r, err := events.Run(sub, rec, cfg)
	if err != nil {
		t.Fatalf("Failed to start runner: %v", err)
	}

	if reason := waitEnded(t, rec); reason != events.EndUnreachable {
		t.Errorf("End reason = %v, want EndUnreachable", reason)
	}
	waitDone(t, r)

	if got := script.count("PullMessagesRequest"); got != 3 {
		t.Errorf("Pull calls = %d, want 3", got)
	}
	if got := script.count("UnsubscribeRequest"); got != 0 {
		t.Errorf("Unsubscribe calls = %d, want 0", got)
	}
}

// TestRunnerOutagePastExpiryEndsUnreachable verifies an unbounded retry
// loop still gives up once the subscription lifetime has passed.
func TestRunnerOutagePastExpiryEndsUnreachable(t *testing.T) {
	shortLifetime := strings.Replace(createEnvelope,
		"2026-08-22T10:01:00Z", "2026-08-22T10:00:00.050Z", 1)

	script := newScript()
	script.on("CreatePullPointSubscriptionRequest", respondXML(shortLifetime))
	script.on("PullMessagesRequest", failWith(errors.New("no route to host")))

	sub, err := events.NewClient(eventsHandle(script)).CreatePullPoint(context.Background(), events.Filter{}, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create pull point: %v", err)
	}

	rec := newRecorder()
	r, err := events.Run(sub, rec, quietRunnerConfig())
	if err != nil {
		t.Fatalf("Failed to start runner: %v", err)
	}

	if reason := waitEnded(t, rec); reason != events.EndUnreachable {
		t.Errorf("End reason = %v, want EndUnreachable", reason)
	}
	waitDone(t, r)
	if got := script.count("PullMessagesRequest"); got < 1 {
		t.Errorf("Pull calls = %d, want at least 1", got)
	}
}

// TestRunnerExternallyEndedStops verifies a runner on a subscription torn
// down elsewhere exits as cancelled without another teardown call.
func TestRunnerExternallyEndedStops(t *testing.T) {
	script := newScript()
	script.on("UnsubscribeRequest", respondXML(unsubscribeEnvelope))
	sub := newSubscription(t, script)

	if err := sub.Unsubscribe(context.Background()); err != nil {
		t.Fatalf("Failed to unsubscribe: %v", err)
	}

	rec := newRecorder()
	r, err := events.Run(sub, rec, quietRunnerConfig())
	if err != nil {
		t.Fatalf("Failed to start runner: %v", err)
	}

	if reason := waitEnded(t, rec); reason != events.EndCancelled {
		t.Errorf("End reason = %v, want EndCancelled", reason)
	}
	waitDone(t, r)

	if got := script.count("UnsubscribeRequest"); got != 1 {
		t.Errorf("Unsubscribe calls = %d, want 1", got)
	}
	if got := script.count("PullMessagesRequest"); got != 0 {
		t.Errorf("Pull calls = %d, want 0", got)
	}
}

// TestRunnerStopIdempotent verifies repeated Stop calls, before and after
// termination, are safe and the consumer sees exactly one ending.
func TestRunnerStopIdempotent(t *testing.T) {
	script := newScript()
	script.on("PullMessagesRequest", respondXML(pullEmptyEnvelope))
	script.on("UnsubscribeRequest", respondXML(unsubscribeEnvelope))
	sub := newSubscription(t, script)

	rec := newRecorder()
	r, err := events.Run(sub, rec, quietRunnerConfig())
	if err != nil {
		t.Fatalf("Failed to start runner: %v", err)
	}

	r.Stop()
	r.Stop()
	waitDone(t, r)
	r.Stop()

	if reason := waitEnded(t, rec); reason != events.EndCancelled {
		t.Errorf("End reason = %v, want EndCancelled", reason)
	}
	rec.mu.Lock()
	endings := len(rec.reasons)
	rec.mu.Unlock()
	if endings != 1 {
		t.Errorf("OnEnded calls = %d, want 1", endings)
	}
	if r.State() != events.StateTerminated {
		t.Errorf("State = %v, want StateTerminated", r.State())
	}
}

// TestRunnerValidation verifies bad arguments are rejected before any
// worker starts.
func TestRunnerValidation(t *testing.T) {
	script := newScript()
	sub := newSubscription(t, script)
	rec := newRecorder()

	if _, err := events.Run(nil, rec, quietRunnerConfig()); err == nil {
		t.Error("Run(nil sub) succeeded, want error")
	}
	if _, err := events.Run(sub, nil, quietRunnerConfig()); err == nil {
		t.Error("Run(nil consumer) succeeded, want error")
	}

	cfg := quietRunnerConfig()
	cfg.RetryDelay = -time.Second
	if _, err := events.Run(sub, rec, cfg); err == nil {
		t.Error("Run with negative retry delay succeeded, want error")
	}

	if got := script.count("PullMessagesRequest"); got != 0 {
		t.Errorf("Pull calls = %d, want 0", got)
	}
}

// TestRunnerConfigDefaults verifies the default configuration values.
func TestRunnerConfigDefaults(t *testing.T) {
	cfg := events.DefaultRunnerConfig()
	if cfg.PullTimeout != 10*time.Second {
		t.Errorf("PullTimeout = %v, want 10s", cfg.PullTimeout)
	}
	if cfg.MessageLimit != 10 {
		t.Errorf("MessageLimit = %d, want 10", cfg.MessageLimit)
	}
	if cfg.RetryDelay != 3*time.Second {
		t.Errorf("RetryDelay = %v, want 3s", cfg.RetryDelay)
	}
	if cfg.MaxPullFailures != 0 {
		t.Errorf("MaxPullFailures = %d, want 0", cfg.MaxPullFailures)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config invalid: %v", err)
	}
}

// TestStateString verifies state names.
func TestStateString(t *testing.T) {
	tests := []struct {
		state events.State
		want  string
	}{
		{events.StateCreated, "created"},
		{events.StatePolling, "polling"},
		{events.StateTerminating, "terminating"},
		{events.StateTerminated, "terminated"},
		{events.State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

// TestEndReasonString verifies end reason names.
func TestEndReasonString(t *testing.T) {
	tests := []struct {
		reason events.EndReason
		want   string
	}{
		{events.EndExpired, "expired"},
		{events.EndUnreachable, "unreachable"},
		{events.EndCancelled, "cancelled"},
		{events.EndReason(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.want {
			t.Errorf("EndReason(%d).String() = %q, want %q", tt.reason, got, tt.want)
		}
	}
}

// TestConsumerFuncsNilSafe verifies a partially filled adapter ignores
// missing callbacks.
func TestConsumerFuncsNilSafe(t *testing.T) {
	var c events.ConsumerFuncs
	c.OnBatch(events.Batch{})
	c.OnEnded(events.EndExpired)

	called := false
	c = events.ConsumerFuncs{Batch: func(events.Batch) { called = true }}
	c.OnBatch(events.Batch{})
	c.OnEnded(events.EndCancelled)
	if !called {
		t.Error("Batch func not called")
	}
}

// recordingConsumer captures callbacks and exposes them as channels for
// time-bounded waits.
type recordingConsumer struct {
	mu      sync.Mutex
	batches []events.Batch
	reasons []events.EndReason
	order   []string

	batchCh chan events.Batch
	endedCh chan events.EndReason
}

func newRecorder() *recordingConsumer {
	return &recordingConsumer{
		batchCh: make(chan events.Batch, 16),
		endedCh: make(chan events.EndReason, 4),
	}
}

func (r *recordingConsumer) OnBatch(b events.Batch) {
	r.mu.Lock()
	r.batches = append(r.batches, b)
	r.order = append(r.order, "batch")
	r.mu.Unlock()
	r.batchCh <- b
}

func (r *recordingConsumer) OnEnded(reason events.EndReason) {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.order = append(r.order, "ended")
	r.mu.Unlock()
	r.endedCh <- reason
}

func (r *recordingConsumer) snapshotBatches() []events.Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Batch(nil), r.batches...)
}

func waitBatch(t *testing.T, rec *recordingConsumer) events.Batch {
	t.Helper()
	select {
	case b := <-rec.batchCh:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a batch")
		return events.Batch{}
	}
}

func waitEnded(t *testing.T, rec *recordingConsumer) events.EndReason {
	t.Helper()
	select {
	case reason := <-rec.endedCh:
		return reason
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the ending")
		return 0
	}
}

func waitDone(t *testing.T, r *events.Runner) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the runner to finish")
	}
}

func quietRunnerConfig() events.RunnerConfig {
	cfg := events.DefaultRunnerConfig()
	cfg.RetryDelay = 5 * time.Millisecond
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}
