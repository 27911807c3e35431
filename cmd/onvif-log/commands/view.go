// Package commands implements the onvif-log CLI commands.
package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nvtkit/onvif-go/pkg/log"
)

// followInterval is how long follow mode waits before re-reading a file
// that has not grown.
const followInterval = 500 * time.Millisecond

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Service    string
	Category   *log.Category
	Action     string
	FaultsOnly bool
}

// toFilter converts the view criteria into a reader filter.
func (f ViewFilter) toFilter() log.Filter {
	return log.Filter{
		Service:    f.Service,
		Category:   f.Category,
		Action:     f.Action,
		FaultsOnly: f.FaultsOnly,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [sess:id] CATEGORY service Label
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	sessID := shortenSessionID(event.SessionID)

	var typeLabel string
	switch {
	case event.Exchange != nil:
		typeLabel = ActionLabel(event.Exchange.Action)
	case event.StateChange != nil:
		typeLabel = event.StateChange.Entity.String()
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	service := event.Service
	if service == "" {
		service = "-"
	}

	fmt.Fprintf(w, "%s [sess:%s] %-8s %-8s %s\n", ts, sessID, event.Category.String(), service, typeLabel)

	switch {
	case event.Exchange != nil:
		formatExchangeDetails(w, event.Exchange)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// ActionLabel returns the operation name of a SOAP action URI, the part
// after the last '/' or '#' separator.
func ActionLabel(action string) string {
	if i := strings.LastIndexAny(action, "/#"); i >= 0 && i+1 < len(action) {
		return action[i+1:]
	}
	return action
}

// formatExchangeDetails writes round-trip details.
func formatExchangeDetails(w io.Writer, ex *log.ExchangeEvent) {
	if ex.Status != 0 {
		fmt.Fprintf(w, "  Status: %d  RTT: %s\n", ex.Status, formatDuration(ex.RTT))
	} else {
		fmt.Fprintf(w, "  RTT: %s\n", formatDuration(ex.RTT))
	}
	fmt.Fprintf(w, "  Size: %d -> %d bytes", ex.RequestSize, ex.ResponseSize)
	if ex.Truncated {
		fmt.Fprintf(w, " (capture truncated)")
	}
	fmt.Fprintln(w)
	if ex.Fault != "" {
		fmt.Fprintf(w, "  Fault: %s\n", ex.Fault)
	}
	if ex.Digest {
		fmt.Fprintln(w, "  Auth: HTTP digest")
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
	if err.Timeout {
		fmt.Fprintln(w, "  Timeout: yes")
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseCategoryFlag parses a category flag value (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "exchange":
		return log.CategoryExchange, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be exchange, state, or error)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.toFilter())
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		formatEvent(output, event)
	}

	return nil
}

// RunFollow executes the view command in follow mode. At end of file it
// waits for the capture to grow and keeps printing new events until ctx
// is cancelled.
func RunFollow(ctx context.Context, path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.toFilter())
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			// An unexpected EOF here means the writer is mid-append.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(followInterval):
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		formatEvent(output, event)
	}
}
