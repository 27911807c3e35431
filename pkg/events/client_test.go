package events_test

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nvtkit/onvif-go/pkg/binding"
	"github.com/nvtkit/onvif-go/pkg/events"
	"github.com/nvtkit/onvif-go/pkg/transport"
	"github.com/nvtkit/onvif-go/pkg/wire"
)

const (
	eventServiceAddr = "http://192.168.1.64/onvif/event_service"
	managerAddr      = "http://192.168.1.64/onvif/Events/PullSubManager_0"
)

const createEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:wsa5="http://www.w3.org/2005/08/addressing"
    xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2"
    xmlns:tev="http://www.onvif.org/ver10/events/wsdl">
  <SOAP-ENV:Body>
    <tev:CreatePullPointSubscriptionResponse>
      <tev:SubscriptionReference>
        <wsa5:Address>http://192.168.1.64/onvif/Events/PullSubManager_0</wsa5:Address>
      </tev:SubscriptionReference>
      <wsnt:CurrentTime>2026-08-22T10:00:00Z</wsnt:CurrentTime>
      <wsnt:TerminationTime>2026-08-22T10:01:00Z</wsnt:TerminationTime>
    </tev:CreatePullPointSubscriptionResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const pullEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2"
    xmlns:tev="http://www.onvif.org/ver10/events/wsdl"
    xmlns:tt="http://www.onvif.org/ver10/schema"
    xmlns:tns1="http://www.onvif.org/ver10/topics">
  <SOAP-ENV:Body>
    <tev:PullMessagesResponse>
      <tev:CurrentTime>2026-08-22T10:00:05Z</tev:CurrentTime>
      <tev:TerminationTime>2026-08-22T10:01:05Z</tev:TerminationTime>
      <wsnt:NotificationMessage>
        <wsnt:Topic Dialect="http://www.onvif.org/ver10/tev/topicExpression/ConcreteSet">tns1:RuleEngine/CellMotionDetector/Motion</wsnt:Topic>
        <wsnt:Message>
          <tt:Message UtcTime="2026-08-22T10:00:04.500Z" PropertyOperation="Initialized">
            <tt:Source>
              <tt:SimpleItem Name="VideoSourceConfigurationToken" Value="VideoSourceToken"/>
            </tt:Source>
            <tt:Data>
              <tt:SimpleItem Name="IsMotion" Value="false"/>
            </tt:Data>
          </tt:Message>
        </wsnt:Message>
      </wsnt:NotificationMessage>
      <wsnt:NotificationMessage>
        <wsnt:Topic Dialect="http://www.onvif.org/ver10/tev/topicExpression/ConcreteSet">tns1:Device/Trigger/Relay</wsnt:Topic>
        <wsnt:Message>
          <tt:Message UtcTime="2026-08-22T10:00:05Z" PropertyOperation="Sparked">
            <tt:Source>
              <tt:SimpleItem Name="RelayToken" Value="Relay_1"/>
            </tt:Source>
            <tt:Data>
              <tt:SimpleItem Name="LogicalState" Value="active"/>
            </tt:Data>
          </tt:Message>
        </wsnt:Message>
      </wsnt:NotificationMessage>
    </tev:PullMessagesResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const pullEmptyEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:tev="http://www.onvif.org/ver10/events/wsdl">
  <SOAP-ENV:Body>
    <tev:PullMessagesResponse>
      <tev:CurrentTime>2026-08-22T10:00:15Z</tev:CurrentTime>
      <tev:TerminationTime>2026-08-22T10:01:15Z</tev:TerminationTime>
    </tev:PullMessagesResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const renewEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2">
  <SOAP-ENV:Body>
    <wsnt:RenewResponse>
      <wsnt:TerminationTime>2026-08-22T10:02:00Z</wsnt:TerminationTime>
      <wsnt:CurrentTime>2026-08-22T10:00:00Z</wsnt:CurrentTime>
    </wsnt:RenewResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const unsubscribeEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2">
  <SOAP-ENV:Body>
    <wsnt:UnsubscribeResponse/>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

// subscriptionGoneEnvelope is the fault a manager returns once the
// subscription has expired or been torn down.
const subscriptionGoneEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:wsrf-rw="http://docs.oasis-open.org/wsrf/rw-2">
  <SOAP-ENV:Body>
    <SOAP-ENV:Fault>
      <SOAP-ENV:Code>
        <SOAP-ENV:Value>SOAP-ENV:Sender</SOAP-ENV:Value>
        <SOAP-ENV:Subcode>
          <SOAP-ENV:Value>wsrf-rw:ResourceUnknownFault</SOAP-ENV:Value>
        </SOAP-ENV:Subcode>
      </SOAP-ENV:Code>
      <SOAP-ENV:Reason>
        <SOAP-ENV:Text xml:lang="en">The resource is unknown</SOAP-ENV:Text>
      </SOAP-ENV:Reason>
    </SOAP-ENV:Fault>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const deviceBusyEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2">
  <SOAP-ENV:Body>
    <SOAP-ENV:Fault>
      <SOAP-ENV:Code>
        <SOAP-ENV:Value>SOAP-ENV:Receiver</SOAP-ENV:Value>
        <SOAP-ENV:Subcode>
          <SOAP-ENV:Value>wsnt:UnableToGetMessagesFault</SOAP-ENV:Value>
        </SOAP-ENV:Subcode>
      </SOAP-ENV:Code>
      <SOAP-ENV:Reason>
        <SOAP-ENV:Text xml:lang="en">Try again later</SOAP-ENV:Text>
      </SOAP-ENV:Reason>
    </SOAP-ENV:Fault>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const topicTreeEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:tev="http://www.onvif.org/ver10/events/wsdl"
    xmlns:tns1="http://www.onvif.org/ver10/topics"
    xmlns:wstop="http://docs.oasis-open.org/wsn/t-1">
  <SOAP-ENV:Body>
    <tev:GetEventPropertiesResponse>
      <tev:TopicNamespaceLocation>http://www.onvif.org/onvif/ver10/topics/topicns.xml</tev:TopicNamespaceLocation>
      <tev:TopicSet>
        <tns1:VideoSource>
          <MotionAlarm wstop:topic="true"/>
        </tns1:VideoSource>
      </tev:TopicSet>
    </tev:GetEventPropertiesResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

// TestCreatePullPointBuildsFilter verifies the subscription request
// carries one concrete topic expression per filter entry and the
// requested lifetime.
func TestCreatePullPointBuildsFilter(t *testing.T) {
	script := newScript()
	var captured string
	script.on("CreatePullPointSubscriptionRequest", func(call *transport.Call) error {
		data, err := xml.Marshal(call.Request)
		if err != nil {
			return err
		}
		captured = string(data)
		return respondXML(createEnvelope)(call)
	})

	client := events.NewClient(eventsHandle(script))
	filter := events.Filter{Topics: []string{
		"tns1:RuleEngine/CellMotionDetector/Motion",
		"tns1:Device/Trigger/Relay",
	}}
	if _, err := client.CreatePullPoint(context.Background(), filter, 2*time.Minute); err != nil {
		t.Fatalf("Failed to create pull point: %v", err)
	}

	for _, want := range []string{
		"<Filter>",
		`Dialect="` + events.ConcreteSetDialect + `"`,
		`xmlns:tns1="` + events.TopicNamespace + `"`,
		">tns1:RuleEngine/CellMotionDetector/Motion</",
		">tns1:Device/Trigger/Relay</",
		"<InitialTerminationTime>PT2M</InitialTerminationTime>",
	} {
		if !strings.Contains(captured, want) {
			t.Errorf("Request %s\nmissing %s", captured, want)
		}
	}

	wantAction := "http://www.onvif.org/ver10/events/wsdl/EventPortType/CreatePullPointSubscriptionRequest"
	if got := script.lastAction(); got != wantAction {
		t.Errorf("Action = %q, want %q", got, wantAction)
	}
}

// TestCreatePullPointDefaults verifies an empty filter subscribes to
// everything and a zero lifetime falls back to the default.
func TestCreatePullPointDefaults(t *testing.T) {
	script := newScript()
	var captured string
	script.on("CreatePullPointSubscriptionRequest", func(call *transport.Call) error {
		data, err := xml.Marshal(call.Request)
		if err != nil {
			return err
		}
		captured = string(data)
		return respondXML(createEnvelope)(call)
	})

	client := events.NewClient(eventsHandle(script))
	if _, err := client.CreatePullPoint(context.Background(), events.Filter{}, 0); err != nil {
		t.Fatalf("Failed to create pull point: %v", err)
	}

	if strings.Contains(captured, "<Filter>") {
		t.Errorf("Request %s\ncarries a filter, want none", captured)
	}
	if !strings.Contains(captured, "<InitialTerminationTime>PT1M</InitialTerminationTime>") {
		t.Errorf("Request %s\nmissing default lifetime", captured)
	}
}

// TestCreatePullPointBindsManager verifies the subscription is bound to
// the manager address from the response, not the event service address.
func TestCreatePullPointBindsManager(t *testing.T) {
	script := newScript()
	script.on("CreatePullPointSubscriptionRequest", respondXML(createEnvelope))
	script.on("PullMessagesRequest", respondXML(pullEmptyEnvelope))

	client := events.NewClient(eventsHandle(script))
	sub, err := client.CreatePullPoint(context.Background(), events.Filter{}, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create pull point: %v", err)
	}

	if sub.Address() != managerAddr {
		t.Errorf("Address() = %q, want %q", sub.Address(), managerAddr)
	}
	if got := sub.Handle().Endpoint(); got != managerAddr {
		t.Errorf("Handle endpoint = %q, want %q", got, managerAddr)
	}
	if sub.CreatedAt().IsZero() {
		t.Error("CreatedAt() is zero, want device current time")
	}
	want := time.Date(2026, 8, 22, 10, 1, 0, 0, time.UTC)
	if !sub.TerminationTime().Equal(want) {
		t.Errorf("TerminationTime() = %v, want %v", sub.TerminationTime(), want)
	}

	if _, err := sub.Pull(context.Background(), 10*time.Second, 10); err != nil {
		t.Fatalf("Failed to pull: %v", err)
	}
	if got := script.lastEndpoint(); got != managerAddr {
		t.Errorf("Pull endpoint = %q, want manager address %q", got, managerAddr)
	}
}

// TestCreatePullPointRejected verifies every refusal shape maps to
// ErrSubscriptionRejected and yields no subscription.
func TestCreatePullPointRejected(t *testing.T) {
	refEnvelope := func(addr string) string {
		return strings.Replace(createEnvelope,
			"http://192.168.1.64/onvif/Events/PullSubManager_0", addr, 1)
	}

	tests := []struct {
		name    string
		handler invokeFunc
		fault   bool
	}{
		{"fault", respondXML(subscriptionGoneEnvelope), true},
		{"transport error", failWith(errors.New("connection reset")), false},
		{"empty address", respondXML(refEnvelope("")), false},
		{"blank address", respondXML(refEnvelope("   ")), false},
		{"relative address", respondXML(refEnvelope("/onvif/Events/Sub_0")), false},
		{"bad scheme", respondXML(refEnvelope("ftp://192.168.1.64/sub")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := newScript()
			script.on("CreatePullPointSubscriptionRequest", tt.handler)

			client := events.NewClient(eventsHandle(script))
			sub, err := client.CreatePullPoint(context.Background(), events.Filter{}, time.Minute)
			if !errors.Is(err, events.ErrSubscriptionRejected) {
				t.Fatalf("Error = %v, want ErrSubscriptionRejected", err)
			}
			if sub != nil {
				t.Error("Subscription is non-nil after rejection")
			}

			var fault *wire.Fault
			if got := errors.As(err, &fault); got != tt.fault {
				t.Errorf("errors.As(*wire.Fault) = %v, want %v", got, tt.fault)
			}
		})
	}
}

// TestTopicTree verifies the topic forest round trip.
func TestTopicTree(t *testing.T) {
	script := newScript()
	script.on("GetEventPropertiesRequest", respondXML(topicTreeEnvelope))

	client := events.NewClient(eventsHandle(script))
	ts, err := client.TopicTree(context.Background())
	if err != nil {
		t.Fatalf("Failed to fetch topic tree: %v", err)
	}

	wantPaths := []string{"VideoSource", "VideoSource/MotionAlarm"}
	if got := ts.Paths(); !reflect.DeepEqual(got, wantPaths) {
		t.Errorf("Paths() = %v, want %v", got, wantPaths)
	}
	wantTopics := []string{"VideoSource/MotionAlarm"}
	if got := ts.Topics(); !reflect.DeepEqual(got, wantTopics) {
		t.Errorf("Topics() = %v, want %v", got, wantTopics)
	}

	wantAction := "http://www.onvif.org/ver10/events/wsdl/EventPortType/GetEventPropertiesRequest"
	if got := script.lastAction(); got != wantAction {
		t.Errorf("Action = %q, want %q", got, wantAction)
	}
}

// invokeFunc scripts one call outcome.
type invokeFunc func(call *transport.Call) error

// scriptInvoker dispatches calls to scripted handlers keyed by the last
// segment of the action URI. Queued handlers are consumed first, then the
// fallback handler answers every further call.
type scriptInvoker struct {
	mu        sync.Mutex
	queues    map[string][]invokeFunc
	fallbacks map[string]invokeFunc
	counts    map[string]int
	actions   []string
	endpoints []string
}

func newScript() *scriptInvoker {
	return &scriptInvoker{
		queues:    map[string][]invokeFunc{},
		fallbacks: map[string]invokeFunc{},
		counts:    map[string]int{},
	}
}

func (s *scriptInvoker) on(op string, fn invokeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallbacks[op] = fn
}

func (s *scriptInvoker) queue(op string, fns ...invokeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[op] = append(s.queues[op], fns...)
}

func (s *scriptInvoker) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[op]
}

func (s *scriptInvoker) lastAction() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.actions) == 0 {
		return ""
	}
	return s.actions[len(s.actions)-1]
}

func (s *scriptInvoker) lastEndpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.endpoints) == 0 {
		return ""
	}
	return s.endpoints[len(s.endpoints)-1]
}

func (s *scriptInvoker) Invoke(_ context.Context, call *transport.Call) error {
	op := call.Action
	if i := strings.LastIndexByte(op, '/'); i >= 0 {
		op = op[i+1:]
	}

	s.mu.Lock()
	s.actions = append(s.actions, call.Action)
	s.endpoints = append(s.endpoints, call.Endpoint)
	s.counts[op]++
	var fn invokeFunc
	if q := s.queues[op]; len(q) > 0 {
		fn = q[0]
		s.queues[op] = q[1:]
	} else {
		fn = s.fallbacks[op]
	}
	s.mu.Unlock()

	if fn == nil {
		return fmt.Errorf("unscripted operation %s", call.Action)
	}
	return fn(call)
}

// respondXML decodes a canned response envelope into the call, faults
// included, the way the real transport does.
func respondXML(envelope string) invokeFunc {
	return func(call *transport.Call) error {
		return wire.DecodeResponse([]byte(envelope), call.Response)
	}
}

// failWith fails the call before any response arrives.
func failWith(err error) invokeFunc {
	return func(*transport.Call) error {
		return err
	}
}

func eventsHandle(inv transport.Invoker) *binding.Handle {
	desc := binding.SharedCache().GetOrCreate(binding.KindEvents)
	return binding.Bind(desc, eventServiceAddr, binding.BindOptions{Invoker: inv})
}

func newSubscription(t *testing.T, script *scriptInvoker) *events.Subscription {
	t.Helper()
	script.on("CreatePullPointSubscriptionRequest", respondXML(createEnvelope))
	sub, err := events.NewClient(eventsHandle(script)).CreatePullPoint(context.Background(), events.Filter{}, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create pull point: %v", err)
	}
	return sub
}
