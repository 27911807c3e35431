package interactive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nvtkit/onvif-go/pkg/events"
)

// cmdTopics handles the topics command.
func (c *Console) cmdTopics(ctx context.Context) {
	sess := c.session()
	if sess == nil {
		return
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	ev, err := sess.Events()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	tree, err := ev.TopicTree(opCtx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	topics := tree.Topics()
	if len(topics) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "Device advertises no subscribable topics")
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "\nSubscribable Topics (%d):\n", len(topics))
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	for _, t := range topics {
		fmt.Fprintf(c.rl.Stdout(), "  tns1:%s\n", t)
	}
	fmt.Fprintln(c.rl.Stdout())
}

// cmdSubscribe handles the subscribe command.
func (c *Console) cmdSubscribe(ctx context.Context, args []string) {
	sess := c.session()
	if sess == nil {
		return
	}
	if c.runner != nil {
		fmt.Fprintln(c.rl.Stdout(), "Replacing active subscription...")
		c.stopRunner()
	}

	filter := events.Filter{}
	for _, topic := range args {
		if !strings.Contains(topic, ":") {
			topic = "tns1:" + topic
		}
		filter.Topics = append(filter.Topics, topic)
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	ev, err := sess.Events()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	sub, err := ev.CreatePullPoint(opCtx, filter, 0)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Subscribe failed: %v\n", err)
		return
	}

	cfg := events.DefaultRunnerConfig()
	cfg.Logger = c.logger
	runner, err := events.Run(sub, events.ConsumerFuncs{
		Batch: c.displayBatch,
		Ended: c.displayEnded,
	}, cfg)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Subscribe failed: %v\n", err)
		return
	}
	c.runner = runner

	fmt.Fprintf(c.rl.Stdout(), "Subscribed (manager %s, expires %s)\n",
		sub.Address(), sub.TerminationTime().Format("15:04:05"))
}

// cmdUnsubscribe handles the unsubscribe command.
func (c *Console) cmdUnsubscribe() {
	if c.runner == nil {
		fmt.Fprintln(c.rl.Stdout(), "No active subscription")
		return
	}
	c.stopRunner()
	fmt.Fprintln(c.rl.Stdout(), "Unsubscribed")
}

// stopRunner stops the active runner and awaits the worker.
func (c *Console) stopRunner() {
	c.runner.Stop()
	select {
	case <-c.runner.Done():
	case <-time.After(30 * time.Second):
		fmt.Fprintln(c.rl.Stdout(), "Timed out waiting for the poller to finish")
	}
	c.runner = nil
}

// displayBatch prints delivered notifications. It runs on the poller
// goroutine, so output goes through the readline-coordinated writer.
func (c *Console) displayBatch(b events.Batch) {
	for _, msg := range b.Messages {
		ts := msg.UTCTime
		if ts.IsZero() {
			ts = time.Now()
		}
		fmt.Fprintf(c.rl.Stdout(), "\n[%s] %s", ts.Format("15:04:05"), msg.Topic)
		if msg.Operation != "" {
			fmt.Fprintf(c.rl.Stdout(), " (%s)", msg.Operation)
		}
		fmt.Fprintln(c.rl.Stdout())
		for _, item := range msg.Source {
			fmt.Fprintf(c.rl.Stdout(), "    source %s=%s\n", item.Name, item.Value)
		}
		for _, item := range msg.Data {
			fmt.Fprintf(c.rl.Stdout(), "    %s=%s\n", item.Name, item.Value)
		}
	}
	c.rl.Refresh()
}

// displayEnded reports why delivery stopped.
func (c *Console) displayEnded(reason events.EndReason) {
	if reason == events.EndCancelled {
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "\nSubscription ended: %s\n", reason)
	c.rl.Refresh()
}
