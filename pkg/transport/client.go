package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	dac "github.com/xinsnake/go-http-digest-auth-client"

	"github.com/nvtkit/onvif-go/pkg/log"
	"github.com/nvtkit/onvif-go/pkg/version"
	"github.com/nvtkit/onvif-go/pkg/wire"
)

// Transport defaults.
const (
	// DefaultConnectTimeout bounds dialing a device.
	DefaultConnectTimeout = 36 * time.Second

	// DefaultReceiveTimeout bounds one full exchange when the caller's
	// context carries no deadline. Event long-polls must stay below it.
	DefaultReceiveTimeout = 32 * time.Second

	// DefaultMaxResponseSize caps response bodies (8 MiB).
	DefaultMaxResponseSize = 8 << 20

	// DefaultCaptureLimit caps captured payload copies per direction.
	DefaultCaptureLimit = 16 << 10
)

// Config configures a Client.
type Config struct {
	// ConnectTimeout bounds dialing the device.
	ConnectTimeout time.Duration

	// ReceiveTimeout bounds one full exchange when the caller's context
	// carries no deadline.
	ReceiveTimeout time.Duration

	// MaxResponseSize caps response bodies in bytes.
	MaxResponseSize int64

	// CaptureLimit caps the payload bytes copied into capture events,
	// per direction.
	CaptureLimit int

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// InsecureTLS accepts self-signed device certificates on https
	// endpoints. Common on cameras; off by default.
	InsecureTLS bool

	// Capture receives one event per exchange. Nil disables capture.
	Capture log.Logger

	// Logger receives transport warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with all defaults filled in.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:  DefaultConnectTimeout,
		ReceiveTimeout:  DefaultReceiveTimeout,
		MaxResponseSize: DefaultMaxResponseSize,
		CaptureLimit:    DefaultCaptureLimit,
		UserAgent:       "onvif-go/" + version.Current,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.ConnectTimeout < 0 || c.ReceiveTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.MaxResponseSize < 0 || c.CaptureLimit < 0 {
		return fmt.Errorf("size limits must not be negative")
	}
	return nil
}

// Client posts SOAP envelopes to device endpoints.
// It is safe for concurrent use.
type Client struct {
	config Config
	logger *slog.Logger

	// http performs plain calls; the caller's context governs deadlines.
	http *http.Client

	// digestHTTP backs the digest fallback, which builds its own requests
	// without a context, so it carries the receive timeout directly.
	digestHTTP *http.Client

	mu              sync.Mutex
	digestEndpoints map[string]bool
	digestStates    map[string]*digestState
}

// digestState serializes digest exchanges per endpoint and credential, so
// the server nonce count stays consistent.
type digestState struct {
	mu sync.Mutex
	dr dac.DigestRequest
}

// NewClient creates a Client.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transport config: %w", err)
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.ReceiveTimeout == 0 {
		config.ReceiveTimeout = DefaultReceiveTimeout
	}
	if config.MaxResponseSize == 0 {
		config.MaxResponseSize = DefaultMaxResponseSize
	}
	if config.CaptureLimit == 0 {
		config.CaptureLimit = DefaultCaptureLimit
	}
	if config.UserAgent == "" {
		config.UserAgent = "onvif-go/" + version.Current
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	rt := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: config.ConnectTimeout}).DialContext,
		TLSHandshakeTimeout: config.ConnectTimeout,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	if config.InsecureTLS {
		rt.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		config:          config,
		logger:          config.Logger,
		http:            &http.Client{Transport: rt},
		digestHTTP:      &http.Client{Transport: rt, Timeout: config.ReceiveTimeout},
		digestEndpoints: make(map[string]bool),
		digestStates:    make(map[string]*digestState),
	}, nil
}

// Invoke posts one SOAP request and decodes the response.
//
// Faults come back as *wire.Fault regardless of the HTTP status code the
// device wrapped them in. Non-fault HTTP rejections come back as
// *StatusError. Timeouts and dial failures come back wrapped; classify with
// IsTimeout and IsConnRefused.
func (c *Client) Invoke(ctx context.Context, call *Call) error {
	if err := call.validate(); err != nil {
		return err
	}

	var sec *wire.Security
	if cred := call.Credential; cred != nil && cred.Username != "" {
		sec = wire.NewSecurity(cred.Username, cred.Password, call.ClockOffset)
	}
	envelope, err := wire.EncodeRequest(&wire.Request{
		Action:   call.Action,
		To:       call.Endpoint,
		Security: sec,
		Body:     call.Request,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", call.Action, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ReceiveTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, viaDigest, err := c.post(ctx, call, envelope)
	if err != nil {
		c.captureError(call, err)
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseSize+1))
	if err != nil {
		err = fmt.Errorf("read response from %s: %w", call.Endpoint, err)
		c.captureError(call, err)
		return err
	}
	if int64(len(data)) > c.config.MaxResponseSize {
		err = fmt.Errorf("response from %s exceeds %d bytes", call.Endpoint, c.config.MaxResponseSize)
		c.captureError(call, err)
		return err
	}
	rtt := time.Since(start)

	// Devices wrap faults in 400/500 responses; extract the fault before
	// judging the status line.
	decodeErr := wire.DecodeResponse(data, call.Response)
	var fault *wire.Fault
	isFault := errors.As(decodeErr, &fault)

	var callErr error
	switch {
	case isFault:
		callErr = decodeErr
	case resp.StatusCode != http.StatusOK:
		callErr = &StatusError{Code: resp.StatusCode, Status: resp.Status}
	case decodeErr != nil:
		callErr = fmt.Errorf("decode %s response: %w", call.Action, decodeErr)
	}

	c.captureExchange(call, envelope, data, resp.StatusCode, rtt, viaDigest, fault)
	return callErr
}

// post delivers the envelope, switching to digest authentication when the
// endpoint demands it. The bool result reports whether digest was used.
func (c *Client) post(ctx context.Context, call *Call, envelope []byte) (*http.Response, bool, error) {
	if call.Credential != nil && c.endpointWantsDigest(call.Endpoint) {
		resp, err := c.digestDo(call, envelope)
		return resp, true, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.Endpoint, bytes.NewReader(envelope))
	if err != nil {
		return nil, false, fmt.Errorf("build request for %s: %w", call.Endpoint, err)
	}
	req.Header.Set("Content-Type", soapContentType(call.Action))
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("post %s: %w", call.Endpoint, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && call.Credential != nil {
		challenge := resp.Header.Get("WWW-Authenticate")
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if !strings.HasPrefix(strings.ToLower(challenge), "digest") {
			return nil, false, &StatusError{Code: resp.StatusCode, Status: resp.Status}
		}

		c.markDigest(call.Endpoint)
		c.logger.Debug("switching to http digest auth", "endpoint", call.Endpoint)
		resp, err = c.digestDo(call, envelope)
		return resp, true, err
	}
	return resp, false, nil
}

// digestDo replays the call through the RFC 2617 digest client.
func (c *Client) digestDo(call *Call, envelope []byte) (*http.Response, error) {
	st := c.digestStateFor(call.Endpoint, call.Credential)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.dr.UpdateRequest(call.Credential.Username, call.Credential.Password,
		http.MethodPost, call.Endpoint, string(envelope))
	st.dr.Header = http.Header{
		"Content-Type": []string{soapContentType(call.Action)},
		"User-Agent":   []string{c.config.UserAgent},
	}

	resp, err := st.dr.Execute()
	if err != nil {
		return nil, fmt.Errorf("digest post %s: %w", call.Endpoint, err)
	}
	return resp, nil
}

func (c *Client) digestStateFor(endpoint string, cred *Credential) *digestState {
	key := endpoint + "|" + cred.Username
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.digestStates[key]
	if !ok {
		st = &digestState{
			dr: dac.NewRequest(cred.Username, cred.Password, http.MethodPost, endpoint, ""),
		}
		st.dr.HTTPClient = c.digestHTTP
		c.digestStates[key] = st
	}
	return st
}

func (c *Client) endpointWantsDigest(endpoint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.digestEndpoints[endpoint]
}

func (c *Client) markDigest(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.digestEndpoints[endpoint] = true
}

func soapContentType(action string) string {
	return fmt.Sprintf("application/soap+xml; charset=utf-8; action=%q", action)
}
