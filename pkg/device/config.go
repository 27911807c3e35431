package device

import (
	"fmt"
	"log/slog"

	"github.com/nvtkit/onvif-go/pkg/binding"
	"github.com/nvtkit/onvif-go/pkg/transport"
)

// Config tunes session behavior beyond the defaults.
type Config struct {
	// Invoker performs the SOAP exchanges. Nil builds a
	// transport.Client from Transport.
	Invoker transport.Invoker

	// Transport configures the client built when Invoker is nil,
	// including timeouts and the capture logger.
	Transport transport.Config

	// Cache supplies service descriptors. Nil uses the process-wide
	// cache.
	Cache *binding.Cache

	// Logger receives session lifecycle logs. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// SyncClock measures the device clock offset at open and stamps
	// security tokens with device time. Devices with drifted clocks
	// reject client-stamped tokens.
	SyncClock bool

	// RewriteXAddrHost replaces the host of capability-advertised
	// service addresses with the address the session was opened
	// against. Devices behind NAT advertise their internal addresses.
	RewriteXAddrHost bool
}

// DefaultConfig returns the session defaults.
func DefaultConfig() Config {
	return Config{Transport: transport.DefaultConfig()}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Invoker == nil {
		if err := c.Transport.Validate(); err != nil {
			return fmt.Errorf("transport: %w", err)
		}
	}
	return nil
}
