// Package testdev runs an in-process fake network video device for tests.
// It answers the SOAP surface the library speaks on a live test listener,
// with scriptable responses, authentication, and pull-point bookkeeping.
package testdev

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/nvtkit/onvif-go/pkg/duration"
)

// Request is one SOAP call the device received.
type Request struct {
	// Path is the endpoint path the call hit.
	Path string

	// Op is the local name of the operation element in the body.
	Op string

	// Body is the raw envelope.
	Body string

	// Security reports a WS-Security UsernameToken header.
	Security bool

	// Digest reports the call authenticated with HTTP digest.
	Digest bool
}

// Handler scripts one operation. It returns the HTTP status and the
// response envelope.
type Handler func(r Request) (int, string)

// Services selects which sections the capability document advertises.
type Services struct {
	Media   bool
	Events  bool
	PTZ     bool
	Imaging bool
}

// AllServices advertises everything the fake serves.
func AllServices() Services {
	return Services{Media: true, Events: true, PTZ: true, Imaging: true}
}

// Device is a fake ONVIF device. Zero or more behaviors are scripted on
// top of built-in defaults for the common operations.
type Device struct {
	srv *httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	requests []Request
	services Services

	username   string
	password   string
	digestOnly bool
	nonce      string
	opaque     string

	lifetime time.Duration
	pullWait time.Duration
	queue    []string
	subs     map[string]time.Time
	subSeq   int
	dropNext int
}

// New starts a fake device with every service advertised and no
// authentication required. Callers own the shutdown via Close.
func New() *Device {
	d := &Device{
		handlers: map[string]Handler{},
		services: AllServices(),
		lifetime: time.Minute,
		pullWait: 5 * time.Millisecond,
		subs:     map[string]time.Time{},
		nonce:    newNonce(),
		opaque:   newNonce(),
	}
	d.srv = httptest.NewServer(http.HandlerFunc(d.serveHTTP))
	return d
}

// Close shuts the listener down.
func (d *Device) Close() {
	d.srv.Close()
}

// URL returns the live base address.
func (d *Device) URL() string {
	return d.srv.URL
}

// DeviceService returns the address a session opens against.
func (d *Device) DeviceService() string {
	return d.srv.URL + "/onvif/device_service"
}

// SetServices controls which services the capability document advertises.
func (d *Device) SetServices(s Services) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.services = s
}

// SetAuth demands authentication on every call, WS-UsernameToken or HTTP
// digest.
func (d *Device) SetAuth(username, password string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.username = username
	d.password = password
	d.digestOnly = false
}

// RequireDigest refuses UsernameToken headers, answering 401 with a digest
// challenge instead. Devices with this behavior exist in the field.
func (d *Device) RequireDigest(username, password string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.username = username
	d.password = password
	d.digestOnly = true
}

// SetLifetime sets the subscription lifetime granted on creation and
// renewal, regardless of what the client asks for.
func (d *Device) SetLifetime(dur time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lifetime = dur
}

// SetPullWait sets how long an empty pull blocks before answering.
func (d *Device) SetPullWait(dur time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pullWait = dur
}

// Handle scripts op with full control over status and body.
func (d *Device) Handle(op string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[op] = h
}

// Respond scripts op with a fixed 200 envelope.
func (d *Device) Respond(op, envelope string) {
	d.Handle(op, func(Request) (int, string) {
		return http.StatusOK, envelope
	})
}

// FailStatus scripts op with a bare HTTP rejection.
func (d *Device) FailStatus(op string, status int) {
	d.Handle(op, func(Request) (int, string) {
		return status, ""
	})
}

// DropNext drops the connection on the next n calls, whatever they are.
func (d *Device) DropNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropNext = n
}

// QueueBatch queues one pull answer carrying the given notification
// fragments, built with Motion or handwritten. Pulls consume batches in
// order; an empty queue answers empty batches.
func (d *Device) QueueBatch(messages ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, strings.Join(messages, "\n"))
}

// Requests returns every call received so far, rejected ones included.
func (d *Device) Requests() []Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Request(nil), d.requests...)
}

// Count returns how many calls carried the given operation.
func (d *Device) Count(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, r := range d.requests {
		if r.Op == op {
			n++
		}
	}
	return n
}

// Subscriptions returns how many pull points are alive.
func (d *Device) Subscriptions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

func (d *Device) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	d.mu.Lock()
	if d.dropNext > 0 {
		d.dropNext--
		d.mu.Unlock()
		panic(http.ErrAbortHandler)
	}
	d.mu.Unlock()

	env := parseInbound(body)
	req := Request{
		Path:     r.URL.Path,
		Op:       env.op,
		Body:     string(body),
		Security: env.security != nil,
	}

	verdict := d.authenticate(r, env)
	req.Digest = verdict == authDigest

	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()

	if verdict == authRejected {
		d.challenge(w)
		return
	}

	status, envelope := d.dispatch(req)
	w.Header().Set("Content-Type", "application/soap+xml; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, envelope)
}

func (d *Device) dispatch(req Request) (int, string) {
	d.mu.Lock()
	h := d.handlers[req.Op]
	d.mu.Unlock()
	if h != nil {
		return h(req)
	}

	switch req.Op {
	case "GetCapabilities":
		d.mu.Lock()
		services := d.services
		d.mu.Unlock()
		return http.StatusOK, capabilitiesEnvelope(d.srv.URL, services)
	case "GetDeviceInformation":
		return http.StatusOK, deviceInformationEnvelope
	case "GetSystemDateAndTime":
		return http.StatusOK, systemDateTimeEnvelope(time.Now())
	case "GetEventProperties":
		return http.StatusOK, topicSetEnvelope
	case "GetProfiles":
		return http.StatusOK, profilesEnvelope
	case "GetStreamUri":
		return http.StatusOK, streamURIEnvelope
	case "GetSnapshotUri":
		return http.StatusOK, snapshotURIEnvelope
	case "CreatePullPointSubscription":
		return d.createSubscription(req)
	case "PullMessages":
		return d.pullMessages(req)
	case "Renew":
		return d.renew(req)
	case "Unsubscribe":
		return d.unsubscribe(req)
	}
	return http.StatusBadRequest, actionNotSupportedEnvelope
}

func (d *Device) createSubscription(req Request) (int, string) {
	now := time.Now().UTC()

	d.mu.Lock()
	lifetime := d.lifetime
	if itt := innerText(req.Body, "InitialTerminationTime"); itt != "" {
		if dur, err := duration.Parse(itt); err == nil && dur < lifetime {
			lifetime = dur
		}
	}
	d.subSeq++
	path := fmt.Sprintf("/onvif/Events/sub_%d", d.subSeq)
	expiry := now.Add(lifetime)
	d.subs[path] = expiry
	d.mu.Unlock()

	return http.StatusOK, fmt.Sprintf(createResponseTemplate,
		d.srv.URL+path, timestamp(now), timestamp(expiry))
}

func (d *Device) pullMessages(req Request) (int, string) {
	now := time.Now().UTC()

	d.mu.Lock()
	expiry, ok := d.subs[req.Path]
	if !ok || now.After(expiry) {
		delete(d.subs, req.Path)
		d.mu.Unlock()
		return http.StatusBadRequest, resourceUnknownEnvelope
	}
	var batch string
	if len(d.queue) > 0 {
		batch = d.queue[0]
		d.queue = d.queue[1:]
	}
	wait := d.pullWait
	d.mu.Unlock()

	if batch == "" {
		time.Sleep(wait)
		return http.StatusOK, fmt.Sprintf(pullEmptyTemplate, timestamp(now), timestamp(expiry))
	}
	return http.StatusOK, fmt.Sprintf(pullTemplate, timestamp(now), timestamp(expiry), batch)
}

func (d *Device) renew(req Request) (int, string) {
	now := time.Now().UTC()

	d.mu.Lock()
	if _, ok := d.subs[req.Path]; !ok {
		d.mu.Unlock()
		return http.StatusBadRequest, resourceUnknownEnvelope
	}
	lifetime := d.lifetime
	if tt := innerText(req.Body, "TerminationTime"); tt != "" {
		if dur, err := duration.Parse(tt); err == nil {
			lifetime = dur
		}
	}
	expiry := now.Add(lifetime)
	d.subs[req.Path] = expiry
	d.mu.Unlock()

	return http.StatusOK, fmt.Sprintf(renewResponseTemplate, timestamp(expiry), timestamp(now))
}

func (d *Device) unsubscribe(req Request) (int, string) {
	d.mu.Lock()
	_, ok := d.subs[req.Path]
	delete(d.subs, req.Path)
	d.mu.Unlock()

	if !ok {
		return http.StatusBadRequest, resourceUnknownEnvelope
	}
	return http.StatusOK, unsubscribeResponseEnvelope
}

// inbound is the parsed shape of one received envelope.
type inbound struct {
	op       string
	security *wsseToken
}

type inboundEnvelope struct {
	Header struct {
		Security *wsseToken `xml:"Security"`
	} `xml:"Header"`
	Body struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"Body"`
}

func parseInbound(body []byte) inbound {
	var env inboundEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return inbound{}
	}
	out := inbound{security: env.Header.Security}

	dec := xml.NewDecoder(strings.NewReader(string(env.Body.Inner)))
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		if se, ok := tok.(xml.StartElement); ok {
			out.op = se.Name.Local
			return out
		}
	}
}

// innerText returns the text of the first element with the given local
// name, empty when absent.
func innerText(body, local string) string {
	dec := xml.NewDecoder(strings.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != local {
			continue
		}
		var text string
		if err := dec.DecodeElement(&text, &se); err != nil {
			return ""
		}
		return strings.TrimSpace(text)
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
