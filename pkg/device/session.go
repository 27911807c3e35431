package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nvtkit/onvif-go/pkg/binding"
	"github.com/nvtkit/onvif-go/pkg/events"
	"github.com/nvtkit/onvif-go/pkg/imaging"
	"github.com/nvtkit/onvif-go/pkg/media"
	"github.com/nvtkit/onvif-go/pkg/ptz"
	"github.com/nvtkit/onvif-go/pkg/transport"
)

// Session is one authenticated connection surface to one device.
// Safe for concurrent use.
type Session struct {
	id      string
	baseURL string
	cred    *transport.Credential
	invoker transport.Invoker
	cache   *binding.Cache
	logger  *slog.Logger
	rewrite bool

	caps   Capabilities
	device *binding.Handle
	client *Client

	// offset holds the device clock skew in nanoseconds.
	offset atomic.Int64
	closed atomic.Bool

	mu      sync.RWMutex
	handles map[binding.Kind]*binding.Handle
}

// Open connects to the device at rawURL with default configuration.
// An empty username calls anonymously.
func Open(ctx context.Context, rawURL string, cred transport.Credential) (*Session, error) {
	return OpenWithConfig(ctx, rawURL, cred, DefaultConfig())
}

// OpenWithConfig connects to the device at rawURL.
//
// The address is normalized down to scheme, host, and port; any path is
// dropped. The capability document is fetched before Open returns, so a
// returned session always has capabilities loaded.
func OpenWithConfig(ctx context.Context, rawURL string, cred transport.Credential, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	base, err := cleanURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("device address %q: %w", rawURL, err)
	}

	invoker := cfg.Invoker
	if invoker == nil {
		client, err := transport.NewClient(cfg.Transport)
		if err != nil {
			return nil, err
		}
		invoker = client
	}
	cache := cfg.Cache
	if cache == nil {
		cache = binding.SharedCache()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		id:      uuid.NewString()[:8],
		baseURL: base,
		invoker: invoker,
		cache:   cache,
		logger:  logger,
		rewrite: cfg.RewriteXAddrHost,
		handles: make(map[binding.Kind]*binding.Handle),
	}
	if cred.Username != "" {
		s.cred = &cred
	}

	desc := cache.GetOrCreate(binding.KindDevice)
	s.device = binding.Bind(desc, base+desc.Path, s.bindOptions())
	s.client = &Client{h: s.device, sess: s}

	var resp getCapabilitiesResponse
	req := getCapabilitiesRequest{Category: []string{"All"}}
	if err := s.device.Call(ctx, "GetCapabilities", &req, &resp); err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", base, ErrUnreachable, err)
	}
	if resp.Capabilities.Empty() {
		return nil, fmt.Errorf("open %s: %w", base, ErrCapabilitiesMissing)
	}
	s.caps = resp.Capabilities

	if cfg.SyncClock {
		if _, err := s.client.SystemDateAndTime(ctx); err != nil {
			logger.Warn("clock sync failed", "session_id", s.id, "error", err)
		}
	}

	logger.Info("session opened",
		"session_id", s.id,
		"address", base,
		"clock_offset", s.ClockOffset())
	return s, nil
}

// cleanURL reduces a device address to scheme://host[:port]. A bare host
// gets the http scheme.
func cleanURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty address")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("address has no host")
	}
	return u.Scheme + "://" + u.Host, nil
}

func (s *Session) bindOptions() binding.BindOptions {
	return binding.BindOptions{
		Invoker:     s.invoker,
		Credential:  s.cred,
		SessionID:   s.id,
		ClockOffset: s.ClockOffset,
	}
}

// ID returns the session's capture correlation label.
func (s *Session) ID() string {
	return s.id
}

// Address returns the normalized base URL the session was opened against.
func (s *Session) Address() string {
	return s.baseURL
}

// Capabilities returns the snapshot fetched at open.
func (s *Session) Capabilities() Capabilities {
	return s.caps
}

// XAddr returns the capability-advertised address for kind.
func (s *Session) XAddr(kind binding.Kind) (string, bool) {
	return s.caps.XAddr(kind)
}

// ClockOffset returns the measured device clock skew.
func (s *Session) ClockOffset() time.Duration {
	return time.Duration(s.offset.Load())
}

func (s *Session) setClockOffset(d time.Duration) {
	s.offset.Store(int64(d))
	s.logger.Debug("device clock offset updated", "session_id", s.id, "offset", d)
}

// Service returns the handle for kind, resolving it from the capability
// snapshot on first use. A kind the device does not advertise fails with
// ErrServiceUnavailable, permanently for this session.
func (s *Session) Service(kind binding.Kind) (*binding.Handle, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	if kind == binding.KindDevice {
		return s.device, nil
	}

	s.mu.RLock()
	h := s.handles[kind]
	s.mu.RUnlock()
	if h != nil {
		return h, nil
	}

	xaddr, ok := s.caps.XAddr(kind)
	if !ok {
		return nil, fmt.Errorf("%s service: %w", kind, ErrServiceUnavailable)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h := s.handles[kind]; h != nil {
		return h, nil
	}

	addr, err := s.serviceAddress(xaddr)
	if err != nil {
		return nil, fmt.Errorf("%s service address %q: %v: %w",
			kind, xaddr, err, ErrServiceUnavailable)
	}
	h = binding.Bind(s.cache.GetOrCreate(kind), addr, s.bindOptions())
	s.handles[kind] = h
	s.logger.Debug("service resolved",
		"session_id", s.id, "service", kind.String(), "endpoint", addr)
	return h, nil
}

// serviceAddress validates an advertised XAddr and applies the NAT host
// rewrite when configured.
func (s *Session) serviceAddress(xaddr string) (string, error) {
	u, err := url.Parse(xaddr)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("no host")
	}
	if s.rewrite {
		return s.baseURL + u.Path, nil
	}
	return xaddr, nil
}

// Device returns the device management client. Always available.
func (s *Session) Device() *Client {
	return s.client
}

// Media returns the media client, resolving the service on first use.
func (s *Session) Media() (*media.Client, error) {
	h, err := s.Service(binding.KindMedia)
	if err != nil {
		return nil, err
	}
	return media.NewClient(h), nil
}

// PTZ returns the PTZ client, resolving the service on first use.
func (s *Session) PTZ() (*ptz.Client, error) {
	h, err := s.Service(binding.KindPTZ)
	if err != nil {
		return nil, err
	}
	return ptz.NewClient(h), nil
}

// Imaging returns the imaging client, resolving the service on first use.
func (s *Session) Imaging() (*imaging.Client, error) {
	h, err := s.Service(binding.KindImaging)
	if err != nil {
		return nil, err
	}
	return imaging.NewClient(h), nil
}

// Events returns the event client, resolving the service on first use.
func (s *Session) Events() (*events.Client, error) {
	h, err := s.Service(binding.KindEvents)
	if err != nil {
		return nil, err
	}
	return events.NewClient(h), nil
}

// Resolved reports whether kind already has a bound handle.
func (s *Session) Resolved(kind binding.Kind) bool {
	if kind == binding.KindDevice {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handles[kind] != nil
}

// ResolvedCount returns the number of bound handles, the eager device
// handle included.
func (s *Session) ResolvedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return 1 + len(s.handles)
}

// Close marks the session closed. Later session operations fail with
// ErrSessionClosed. Close is idempotent.
func (s *Session) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.logger.Info("session closed", "session_id", s.id)
	}
}
