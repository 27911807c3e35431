// Package discovery finds network video devices with WS-Discovery: one
// multicast probe on the local network, answered unicast by every device
// listening on the well-known group.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
)

const (
	// MulticastAddress is the WS-Discovery multicast group and port.
	MulticastAddress = "239.255.255.250:3702"

	// DefaultWait bounds how long a probe collects answers.
	DefaultWait = 3 * time.Second

	// maxDatagram is the receive buffer size for one answer.
	maxDatagram = 8192
)

// Config controls one probe round.
type Config struct {
	// Wait is how long to collect answers. Default DefaultWait.
	Wait time.Duration

	// Interface restricts the probe to one network interface by name.
	// Empty sends on the default route.
	Interface string

	// Types are the qualified device types to probe for. The dn prefix
	// is bound to the ONVIF network wsdl namespace in the probe message.
	// Default dn:NetworkVideoTransmitter.
	Types []string

	// Logger receives per-answer debug logging. Default slog.Default().
	Logger *slog.Logger

	// Conn overrides the UDP socket; Probe closes it when done. Tests
	// inject scripted connections here. Leave nil to open a real one.
	Conn net.PacketConn
}

// DefaultConfig returns the probe configuration used by Probe without
// overrides.
func DefaultConfig() Config {
	return Config{Wait: DefaultWait}
}

// Probe sends one WS-Discovery probe and collects device answers until the
// configured wait or the context deadline elapses, whichever comes first.
// Duplicate answers for the same endpoint are dropped and malformed
// datagrams are skipped. Cancelling ctx aborts the collection early and
// returns the answers gathered so far alongside the context error.
func Probe(ctx context.Context, cfg Config) ([]Match, error) {
	if cfg.Wait <= 0 {
		cfg.Wait = DefaultWait
	}
	if len(cfg.Types) == 0 {
		cfg.Types = []string{"dn:NetworkVideoTransmitter"}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn := cfg.Conn
	if conn == nil {
		var err error
		conn, err = listen(cfg.Interface)
		if err != nil {
			return nil, fmt.Errorf("open probe socket: %w", err)
		}
	}
	defer conn.Close()

	dst, err := net.ResolveUDPAddr("udp4", MulticastAddress)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", MulticastAddress, err)
	}

	id := uuid.NewString()
	payload, err := encodeProbe(id, cfg.Types)
	if err != nil {
		return nil, err
	}
	if _, err := conn.WriteTo(payload, dst); err != nil {
		return nil, fmt.Errorf("send probe: %w", err)
	}
	logger.Debug("probe sent", "message_id", id, "types", cfg.Types)

	deadline := time.Now().Add(cfg.Wait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("arm read deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	var (
		matches []Match
		seen    = map[string]struct{}{}
		buf     = make([]byte, maxDatagram)
	)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return matches, ctx.Err()
			}
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				return matches, nil
			}
			return matches, fmt.Errorf("collect answers: %w", err)
		}

		answer, err := parseAnswer(buf[:n])
		if err != nil {
			logger.Debug("skipping malformed answer", "from", from.String(), "error", err)
			continue
		}
		for _, m := range answer {
			key := m.EndpointRef
			if key == "" && len(m.XAddrs) > 0 {
				key = m.XAddrs[0]
			}
			if key == "" {
				logger.Debug("skipping anonymous answer", "from", from.String())
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			matches = append(matches, m)
			logger.Debug("device answered",
				"from", from.String(),
				"endpoint", m.EndpointRef,
				"xaddrs", m.XAddrs)
		}
	}
}

// listen opens the UDP socket the probe goes out on, bound to the named
// interface's first IPv4 address when one is given.
func listen(ifname string) (net.PacketConn, error) {
	if ifname == "" {
		return net.ListenPacket("udp4", ":0")
	}
	ifi, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, err
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.To4() == nil {
			continue
		}
		return net.ListenPacket("udp4", net.JoinHostPort(ipnet.IP.String(), "0"))
	}
	return nil, fmt.Errorf("interface %s has no IPv4 address", ifname)
}
