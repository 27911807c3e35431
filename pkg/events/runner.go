package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nvtkit/onvif-go/pkg/transport"
	"github.com/nvtkit/onvif-go/pkg/wire"
)

// State is the runner lifecycle position. It only moves forward.
type State uint8

const (
	StateCreated State = iota
	StatePolling
	StateTerminating
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	names := []string{"created", "polling", "terminating", "terminated"}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// EndReason tells a consumer why delivery stopped.
type EndReason uint8

const (
	// EndExpired: the device no longer knows the subscription.
	EndExpired EndReason = iota

	// EndUnreachable: the device stopped answering and the subscription
	// expired during the outage, or the failure cap was reached.
	EndUnreachable

	// EndCancelled: termination was requested locally.
	EndCancelled
)

// String returns the reason name.
func (r EndReason) String() string {
	names := []string{"expired", "unreachable", "cancelled"}
	if int(r) < len(names) {
		return names[r]
	}
	return "unknown"
}

// Consumer receives batches from a runner. Calls are synchronous and
// never overlap: the next pull waits until OnBatch returns, and OnEnded
// is the final call, exactly once.
type Consumer interface {
	OnBatch(Batch)
	OnEnded(EndReason)
}

// ConsumerFuncs adapts plain functions to Consumer. Nil fields are
// ignored.
type ConsumerFuncs struct {
	Batch func(Batch)
	Ended func(EndReason)
}

func (c ConsumerFuncs) OnBatch(b Batch) {
	if c.Batch != nil {
		c.Batch(b)
	}
}

func (c ConsumerFuncs) OnEnded(r EndReason) {
	if c.Ended != nil {
		c.Ended(r)
	}
}

var _ Consumer = ConsumerFuncs{}

// Runner defaults.
const (
	DefaultPullTimeout  = 10 * time.Second
	DefaultMessageLimit = 10
	DefaultRetryDelay   = 3 * time.Second
)

// pullGrace pads the local deadline beyond the device-side long-poll
// wait.
const pullGrace = 10 * time.Second

// unsubscribeTimeout bounds the best-effort teardown call.
const unsubscribeTimeout = 5 * time.Second

// RunnerConfig tunes the polling worker.
type RunnerConfig struct {
	// PullTimeout is the device-side long-poll wait per pull.
	PullTimeout time.Duration

	// MessageLimit caps messages per pull.
	MessageLimit int

	// RetryDelay separates pulls after a transient failure.
	RetryDelay time.Duration

	// MaxPullFailures ends delivery as unreachable after this many
	// consecutive transient failures. Zero bounds retries by the
	// subscription expiry alone.
	MaxPullFailures int

	// Logger receives worker logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultRunnerConfig returns the polling defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		PullTimeout:  DefaultPullTimeout,
		MessageLimit: DefaultMessageLimit,
		RetryDelay:   DefaultRetryDelay,
	}
}

// Validate checks the configuration for consistency.
func (c *RunnerConfig) Validate() error {
	if c.PullTimeout < 0 || c.RetryDelay < 0 {
		return errors.New("durations must not be negative")
	}
	if c.MessageLimit < 0 || c.MaxPullFailures < 0 {
		return errors.New("limits must not be negative")
	}
	return nil
}

func (c *RunnerConfig) applyDefaults() {
	if c.PullTimeout == 0 {
		c.PullTimeout = DefaultPullTimeout
	}
	if c.MessageLimit == 0 {
		c.MessageLimit = DefaultMessageLimit
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Runner is the single polling worker of one subscription.
type Runner struct {
	sub      *Subscription
	consumer Consumer
	cfg      RunnerConfig
	logger   *slog.Logger

	// expiry is the local estimate of the subscription's end, touched
	// only by the worker after start.
	expiry time.Time

	state    atomic.Uint32
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Run starts the polling worker for sub, delivering to consumer. One
// subscription carries at most one outstanding pull, so there is exactly
// one worker per runner and pooling does not apply.
func Run(sub *Subscription, consumer Consumer, cfg RunnerConfig) (*Runner, error) {
	if sub == nil {
		return nil, errors.New("nil subscription")
	}
	if consumer == nil {
		return nil, errors.New("nil consumer")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid runner config: %w", err)
	}
	cfg.applyDefaults()

	r := &Runner{
		sub:      sub,
		consumer: consumer,
		cfg:      cfg,
		logger:   cfg.Logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	lifetime := DefaultLifetime
	if t, c := sub.TerminationTime(), sub.CreatedAt(); !t.IsZero() && !c.IsZero() && t.After(c) {
		lifetime = t.Sub(c)
	}
	r.expiry = time.Now().Add(lifetime)

	go r.worker()
	return r, nil
}

// State returns the current lifecycle position.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Stop requests cooperative termination. It returns immediately after
// signalling; the worker finishes its in-flight pull and delivery first.
// Receive from Done to wait. Stop is idempotent and a no-op on a
// terminated runner.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.setState(StateTerminating)
		close(r.stop)
	})
}

// Done returns a channel closed once the worker has fully exited, after
// the final consumer callback.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) setState(s State) {
	for {
		cur := r.state.Load()
		if State(cur) >= s {
			return
		}
		if r.state.CompareAndSwap(cur, uint32(s)) {
			return
		}
	}
}

func (r *Runner) stopping() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// sleepRetry waits the retry delay, cut short by Stop. Reports whether
// the full delay elapsed.
func (r *Runner) sleepRetry() bool {
	t := time.NewTimer(r.cfg.RetryDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.stop:
		return false
	}
}

func (r *Runner) worker() {
	defer close(r.done)
	r.setState(StatePolling)

	failures := 0
	for {
		if r.stopping() {
			r.endCancelled()
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.PullTimeout+pullGrace)
		batch, err := r.sub.Pull(ctx, r.cfg.PullTimeout, r.cfg.MessageLimit)
		cancel()

		if err != nil {
			if errors.Is(err, ErrSubscriptionEnded) {
				// Unsubscribed out from under the runner.
				r.end(EndCancelled)
				return
			}
			if terminalPullError(err) {
				r.logger.Warn("subscription lost",
					"address", r.sub.Address(), "error", err)
				r.end(EndExpired)
				return
			}

			failures++
			r.logger.Warn("pull failed, retrying",
				"address", r.sub.Address(),
				"attempt", failures,
				"retry_in", r.cfg.RetryDelay,
				"error", err)

			if r.cfg.MaxPullFailures > 0 && failures >= r.cfg.MaxPullFailures {
				r.logger.Warn("pull failure cap reached",
					"address", r.sub.Address(), "failures", failures)
				r.end(EndUnreachable)
				return
			}
			if time.Now().After(r.expiry) {
				r.logger.Warn("device unreachable past subscription expiry",
					"address", r.sub.Address())
				r.end(EndUnreachable)
				return
			}
			if !r.sleepRetry() {
				r.endCancelled()
				return
			}
			continue
		}

		failures = 0
		if !batch.TerminationTime.IsZero() && !batch.CurrentTime.IsZero() {
			// Device clocks drift; convert the device-reported
			// remaining lifetime to a local deadline.
			r.expiry = time.Now().Add(batch.TerminationTime.Sub(batch.CurrentTime))
		}
		if len(batch.Messages) > 0 {
			r.consumer.OnBatch(batch)
		}
	}
}

// endCancelled tears the subscription down after a Stop: best-effort
// unsubscribe, then the final callback.
func (r *Runner) endCancelled() {
	r.setState(StateTerminating)
	ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
	defer cancel()
	if err := r.sub.Unsubscribe(ctx); err != nil && !errors.Is(err, ErrSubscriptionEnded) {
		r.logger.Debug("best-effort unsubscribe failed",
			"address", r.sub.Address(), "error", err)
	}
	r.finish(EndCancelled)
}

func (r *Runner) end(reason EndReason) {
	r.setState(StateTerminating)
	r.finish(reason)
}

func (r *Runner) finish(reason EndReason) {
	r.sub.markEnded()
	r.setState(StateTerminated)
	r.consumer.OnEnded(reason)
	r.logger.Info("subscription runner ended",
		"address", r.sub.Address(), "reason", reason.String())
}

// terminalPullError reports failures no retry can fix: the device
// answered and rejected the subscription itself.
func terminalPullError(err error) bool {
	var fault *wire.Fault
	if errors.As(err, &fault) {
		if fault.HasSubcode(wire.SubcodeResourceUnknown) ||
			fault.HasSubcode("PullPointUnavailableFault") {
			return true
		}
		return fault.IsSenderFault()
	}
	var status *transport.StatusError
	if errors.As(err, &status) {
		return status.Code >= 400 && status.Code < 500
	}
	return false
}
