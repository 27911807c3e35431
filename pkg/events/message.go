package events

import (
	"strings"
	"time"
)

// PropertyOperation describes what a property notification reports.
// Devices send values outside the known set; those pass through as
// received rather than being dropped.
type PropertyOperation string

// Known property operations.
const (
	OpInitialized PropertyOperation = "Initialized"
	OpUpdated     PropertyOperation = "Updated"
	OpDeleted     PropertyOperation = "Deleted"
	OpChanged     PropertyOperation = "Changed"
)

// Item is one name/value pair of a notification payload.
type Item struct {
	Name  string
	Value string
}

// NotificationMessage is one delivered event.
type NotificationMessage struct {
	// Topic is the concrete topic path as sent by the device,
	// prefixes included.
	Topic string

	// Operation is the property operation, empty for non-property
	// events.
	Operation PropertyOperation

	// UTCTime is the device timestamp of the event.
	UTCTime time.Time

	// Source identifies the emitting entity, Data carries the payload.
	Source []Item
	Data   []Item
}

// SourceItem returns the named source item value.
func (m NotificationMessage) SourceItem(name string) (string, bool) {
	return findItem(m.Source, name)
}

// DataItem returns the named data item value.
func (m NotificationMessage) DataItem(name string) (string, bool) {
	return findItem(m.Data, name)
}

func findItem(items []Item, name string) (string, bool) {
	for _, it := range items {
		if it.Name == name {
			return it.Value, true
		}
	}
	return "", false
}

// Batch is the yield of one pull: messages in device order plus the
// device-reported clock and expiry.
type Batch struct {
	Messages        []NotificationMessage
	CurrentTime     time.Time
	TerminationTime time.Time
}

type simpleItemXML struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr"`
}

type itemListXML struct {
	SimpleItems []simpleItemXML `xml:"SimpleItem"`
}

func (l itemListXML) items() []Item {
	if len(l.SimpleItems) == 0 {
		return nil
	}
	out := make([]Item, len(l.SimpleItems))
	for i, it := range l.SimpleItems {
		out[i] = Item{Name: it.Name, Value: it.Value}
	}
	return out
}

// notificationMessageXML mirrors wsnt:NotificationMessage: the topic
// expression plus a wrapped tt:Message element.
type notificationMessageXML struct {
	Topic struct {
		Dialect string `xml:"Dialect,attr"`
		Value   string `xml:",chardata"`
	} `xml:"Topic"`
	Message struct {
		Message struct {
			UtcTime           string      `xml:"UtcTime,attr"`
			PropertyOperation string      `xml:"PropertyOperation,attr"`
			Source            itemListXML `xml:"Source"`
			Data              itemListXML `xml:"Data"`
		} `xml:"Message"`
	} `xml:"Message"`
}

func (x notificationMessageXML) message() NotificationMessage {
	inner := x.Message.Message
	return NotificationMessage{
		Topic:     strings.TrimSpace(x.Topic.Value),
		Operation: PropertyOperation(inner.PropertyOperation),
		UTCTime:   parseDeviceTime(inner.UtcTime),
		Source:    inner.Source.items(),
		Data:      inner.Data.items(),
	}
}

// parseDeviceTime reads device timestamps. Cameras are loose about the
// zone designator; a missing one means UTC.
func parseDeviceTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
