package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/nvtkit/onvif-go/pkg/log"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents      int
	EventsByCategory map[log.Category]int
	EventsByService  map[string]int
	Actions          map[string]*ActionStats
	Sessions         map[string]*SessionStats
	Faults           int
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// ActionStats holds per-operation round-trip statistics.
type ActionStats struct {
	Count  int
	Faults int
	RTTMin time.Duration
	RTTMax time.Duration
	RTTSum time.Duration
}

// SessionStats holds statistics for a single device session.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Endpoint  string
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory: make(map[log.Category]int),
		EventsByService:  make(map[string]int),
		Actions:          make(map[string]*ActionStats),
		Sessions:         make(map[string]*SessionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		if event.Service != "" {
			stats.EventsByService[event.Service]++
		}

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		// Track session stats
		sess, ok := stats.Sessions[event.SessionID]
		if !ok {
			sess = &SessionStats{
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
			}
			stats.Sessions[event.SessionID] = sess
		}
		sess.Events++
		if event.Timestamp.After(sess.LastSeen) {
			sess.LastSeen = event.Timestamp
		}
		if event.Endpoint != "" && sess.Endpoint == "" {
			sess.Endpoint = event.Endpoint
		}

		// Per-action round-trip stats
		if ex := event.Exchange; ex != nil {
			label := ActionLabel(ex.Action)
			as, ok := stats.Actions[label]
			if !ok {
				as = &ActionStats{RTTMin: ex.RTT}
				stats.Actions[label] = as
			}
			as.Count++
			as.RTTSum += ex.RTT
			if ex.RTT < as.RTTMin {
				as.RTTMin = ex.RTT
			}
			if ex.RTT > as.RTTMax {
				as.RTTMax = ex.RTT
			}
			if ex.Fault != "" || ex.Status >= 400 {
				as.Faults++
				stats.Faults++
			}
		}

		// Count errors
		if event.Error != nil {
			stats.Errors++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== ONVIF Capture Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	// Total events
	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	// Events by category
	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryExchange, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Events by service
	if len(stats.EventsByService) > 0 {
		fmt.Fprintln(w, "Events by Service:")
		services := make([]string, 0, len(stats.EventsByService))
		for svc := range stats.EventsByService {
			services = append(services, svc)
		}
		sort.Strings(services)
		for _, svc := range services {
			fmt.Fprintf(w, "  %-12s %d\n", svc+":", stats.EventsByService[svc])
		}
		fmt.Fprintln(w)
	}

	// Per-action round trips
	if len(stats.Actions) > 0 {
		fmt.Fprintln(w, "Operations:")
		labels := make([]string, 0, len(stats.Actions))
		for label := range stats.Actions {
			labels = append(labels, label)
		}
		sort.Slice(labels, func(i, j int) bool {
			a, b := stats.Actions[labels[i]], stats.Actions[labels[j]]
			if a.Count != b.Count {
				return a.Count > b.Count
			}
			return labels[i] < labels[j]
		})
		for _, label := range labels {
			as := stats.Actions[label]
			avg := as.RTTSum / time.Duration(as.Count)
			fmt.Fprintf(w, "  %-32s %5d calls  rtt %s/%s/%s",
				label, as.Count,
				formatDuration(as.RTTMin), formatDuration(avg), formatDuration(as.RTTMax))
			if as.Faults > 0 {
				fmt.Fprintf(w, "  %d faults", as.Faults)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}

	// Sessions
	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		// Sort by first seen time
		type sessInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w, "")
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenSessionID(s.id), s.stats.Events, duration)
			if s.stats.Endpoint != "" {
				fmt.Fprintf(w, "           Endpoint: %s\n", s.stats.Endpoint)
			}
		}
	}

	// Failures
	if stats.Faults > 0 || stats.Errors > 0 {
		fmt.Fprintln(w)
		if stats.Faults > 0 {
			fmt.Fprintf(w, "Faults: %d\n", stats.Faults)
		}
		if stats.Errors > 0 {
			fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
		}
	}
}
