package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nvtkit/onvif-go/pkg/log"
)

func TestFormatExchangeEvent(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	event := log.Event{
		Timestamp: ts,
		SessionID: "abc12345-6789-0123-4567-890abcdef012",
		Service:   "device",
		Category:  log.CategoryExchange,
		Exchange: &log.ExchangeEvent{
			Action:       "http://www.onvif.org/ver10/device/wsdl/GetDeviceInformation",
			Status:       200,
			RTT:          34200 * time.Microsecond,
			RequestSize:  312,
			ResponseSize: 1480,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	// Check timestamp format
	if !strings.Contains(output, "2026-01-28T10:15:32.123456Z") {
		t.Errorf("expected microsecond timestamp, got: %s", output)
	}

	// Check session ID (shortened)
	if !strings.Contains(output, "[sess:abc12345]") {
		t.Errorf("expected shortened session ID, got: %s", output)
	}

	// Check category and service
	if !strings.Contains(output, "EXCHANGE") {
		t.Errorf("expected EXCHANGE category, got: %s", output)
	}
	if !strings.Contains(output, "device") {
		t.Errorf("expected device service, got: %s", output)
	}

	// Check operation label
	if !strings.Contains(output, "GetDeviceInformation") {
		t.Errorf("expected operation label, got: %s", output)
	}

	// Check status and round trip
	if !strings.Contains(output, "Status: 200") {
		t.Errorf("expected Status: 200, got: %s", output)
	}
	if !strings.Contains(output, "RTT: 34.200ms") {
		t.Errorf("expected RTT, got: %s", output)
	}
	if !strings.Contains(output, "312 -> 1480 bytes") {
		t.Errorf("expected sizes, got: %s", output)
	}
}

func TestFormatExchangeFault(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	event := log.Event{
		Timestamp: ts,
		SessionID: "abc12345",
		Service:   "ptz",
		Category:  log.CategoryExchange,
		Exchange: &log.ExchangeEvent{
			Action:      "http://www.onvif.org/ver20/ptz/wsdl/ContinuousMove",
			Status:      500,
			RTT:         8 * time.Millisecond,
			RequestSize: 400,
			Fault:       "s:Sender/ter:InvalidArgVal",
			Digest:      true,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Fault: s:Sender/ter:InvalidArgVal") {
		t.Errorf("expected fault chain, got: %s", output)
	}
	if !strings.Contains(output, "Auth: HTTP digest") {
		t.Errorf("expected digest marker, got: %s", output)
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 30, 0, time.UTC)
	event := log.Event{
		Timestamp: ts,
		SessionID: "abc12345-6789-0123-4567-890abcdef012",
		Service:   "events",
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityWorker,
			OldState: "polling",
			NewState: "stopped",
			Reason:   "subscription expired",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "STATE") {
		t.Errorf("expected STATE category, got: %s", output)
	}
	if !strings.Contains(output, "WORKER") {
		t.Errorf("expected WORKER entity, got: %s", output)
	}
	if !strings.Contains(output, "polling -> stopped") {
		t.Errorf("expected state transition, got: %s", output)
	}
	if !strings.Contains(output, "Reason: subscription expired") {
		t.Errorf("expected reason, got: %s", output)
	}
}

func TestFormatErrorEvent(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 35, 0, time.UTC)
	event := log.Event{
		Timestamp: ts,
		SessionID: "abc12345",
		Service:   "events",
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Message: "context deadline exceeded",
			Context: "PullMessages",
			Timeout: true,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "ERROR") {
		t.Errorf("expected ERROR category, got: %s", output)
	}
	if !strings.Contains(output, "Message: context deadline exceeded") {
		t.Errorf("expected message, got: %s", output)
	}
	if !strings.Contains(output, "Context: PullMessages") {
		t.Errorf("expected context, got: %s", output)
	}
	if !strings.Contains(output, "Timeout: yes") {
		t.Errorf("expected timeout marker, got: %s", output)
	}
}

func TestActionLabel(t *testing.T) {
	tests := []struct {
		action   string
		expected string
	}{
		{"http://www.onvif.org/ver10/device/wsdl/GetDeviceInformation", "GetDeviceInformation"},
		{"http://www.onvif.org/ver10/events/wsdl/PullPointSubscription/PullMessagesRequest", "PullMessagesRequest"},
		{"http://docs.oasis-open.org/wsn/bw-2/SubscriptionManager#Unsubscribe", "Unsubscribe"},
		{"GetProfiles", "GetProfiles"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ActionLabel(tt.action); got != tt.expected {
			t.Errorf("ActionLabel(%q) = %q, want %q", tt.action, got, tt.expected)
		}
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input    string
		expected log.Category
		wantErr  bool
	}{
		{"exchange", log.CategoryExchange, false},
		{"EXCHANGE", log.CategoryExchange, false},
		{"state", log.CategoryState, false},
		{"error", log.CategoryError, false},
		{"invalid", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseCategoryFlag(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCategoryFlag(%q) expected error", tt.input)
			}
		} else {
			if err != nil {
				t.Errorf("ParseCategoryFlag(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseCategoryFlag(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		}
	}
}

func TestRunViewFiltersByService(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, SessionID: "s1", Service: "device", Category: log.CategoryExchange,
			Exchange: &log.ExchangeEvent{Action: "GetCapabilities", RequestSize: 100}},
		{Timestamp: ts, SessionID: "s1", Service: "events", Category: log.CategoryExchange,
			Exchange: &log.ExchangeEvent{Action: "PullMessagesRequest", RequestSize: 100}},
		{Timestamp: ts, SessionID: "s1", Service: "media", Category: log.CategoryExchange,
			Exchange: &log.ExchangeEvent{Action: "GetProfiles", RequestSize: 100}},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	err := RunView(path, ViewFilter{Service: "events"}, &buf)
	if err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "PullMessagesRequest") {
		t.Errorf("expected events exchange, got: %s", output)
	}
	if strings.Contains(output, "GetCapabilities") || strings.Contains(output, "GetProfiles") {
		t.Errorf("expected other services filtered out, got: %s", output)
	}
}

func TestRunViewFaultsOnly(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, SessionID: "s1", Service: "device", Category: log.CategoryExchange,
			Exchange: &log.ExchangeEvent{Action: "GetCapabilities", Status: 200, RequestSize: 100}},
		{Timestamp: ts, SessionID: "s1", Service: "ptz", Category: log.CategoryExchange,
			Exchange: &log.ExchangeEvent{Action: "ContinuousMove", Status: 500, Fault: "s:Receiver/ter:Action", RequestSize: 100}},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	err := RunView(path, ViewFilter{FaultsOnly: true}, &buf)
	if err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "ContinuousMove") {
		t.Errorf("expected faulted exchange, got: %s", output)
	}
	if strings.Contains(output, "GetCapabilities") {
		t.Errorf("expected clean exchange filtered out, got: %s", output)
	}
}

func TestRunFollowPrintsAppendedEvents(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, SessionID: "s1", Service: "device", Category: log.CategoryExchange,
			Exchange: &log.ExchangeEvent{Action: "GetCapabilities", RequestSize: 100}},
	}

	path := createTestLogFile(t, events)

	ctx, cancel := context.WithCancel(context.Background())
	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- RunFollow(ctx, path, ViewFilter{}, &buf)
	}()

	// Give the follower time to drain the existing event, then append.
	time.Sleep(200 * time.Millisecond)

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to reopen capture: %v", err)
	}
	logger.Log(log.Event{Timestamp: ts.Add(time.Second), SessionID: "s1", Service: "media",
		Category: log.CategoryExchange,
		Exchange: &log.ExchangeEvent{Action: "GetSnapshotUri", RequestSize: 100}})
	logger.Close()

	// Wait past the poll interval so the new event is picked up.
	time.Sleep(2 * followInterval)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunFollow failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunFollow did not return after cancel")
	}

	output := buf.String()
	if !strings.Contains(output, "GetCapabilities") {
		t.Errorf("expected initial event, got: %s", output)
	}
	if !strings.Contains(output, "GetSnapshotUri") {
		t.Errorf("expected appended event, got: %s", output)
	}
}
