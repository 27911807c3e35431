package interactive

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nvtkit/onvif-go/pkg/binding"
	"github.com/nvtkit/onvif-go/pkg/device"
	"github.com/nvtkit/onvif-go/pkg/discovery"
)

// open connects to target and swaps out any previous session.
func (c *Console) open(ctx context.Context, target string) error {
	addr, cred := c.resolveTarget(target)

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	fmt.Fprintf(c.rl.Stdout(), "Connecting to %s...\n", addr)
	sess, err := device.OpenWithConfig(opCtx, addr, cred, c.cfg.Session)
	if err != nil {
		return err
	}

	c.teardown()
	c.sess = sess
	c.profile = ""

	fmt.Fprintf(c.rl.Stdout(), "Connected to %s (session %s)\n", sess.Address(), sess.ID())
	for _, kind := range []binding.Kind{binding.KindMedia, binding.KindEvents, binding.KindPTZ, binding.KindImaging} {
		if _, ok := sess.XAddr(kind); ok {
			fmt.Fprintf(c.rl.Stdout(), "  %s service available\n", kind)
		}
	}
	return nil
}

// cmdConnect handles the connect command.
func (c *Console) cmdConnect(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: connect <url|name>")
		return
	}
	if err := c.open(ctx, args[0]); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Connect failed: %v\n", err)
	}
}

// cmdInfo handles the info command.
func (c *Console) cmdInfo(ctx context.Context) {
	sess := c.session()
	if sess == nil {
		return
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	info, err := sess.Device().Information(opCtx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	fmt.Fprintln(c.rl.Stdout(), "\nDevice Information")
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(c.rl.Stdout(), "  Manufacturer: %s\n", info.Manufacturer)
	fmt.Fprintf(c.rl.Stdout(), "  Model:        %s\n", info.Model)
	fmt.Fprintf(c.rl.Stdout(), "  Firmware:     %s\n", info.FirmwareVersion)
	fmt.Fprintf(c.rl.Stdout(), "  Serial:       %s\n", info.SerialNumber)
	fmt.Fprintf(c.rl.Stdout(), "  Hardware:     %s\n", info.HardwareID)
	fmt.Fprintln(c.rl.Stdout())
}

// cmdCaps handles the caps command.
func (c *Console) cmdCaps() {
	sess := c.session()
	if sess == nil {
		return
	}

	caps := sess.Capabilities()
	fmt.Fprintln(c.rl.Stdout(), "\nService Capabilities")
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	for _, kind := range []binding.Kind{
		binding.KindDevice, binding.KindMedia, binding.KindEvents,
		binding.KindPTZ, binding.KindImaging,
	} {
		addr, ok := caps.XAddr(kind)
		if !ok {
			fmt.Fprintf(c.rl.Stdout(), "  %-8s not advertised\n", kind)
			continue
		}
		fmt.Fprintf(c.rl.Stdout(), "  %-8s %s\n", kind, addr)
	}
	if caps.Media != nil {
		fmt.Fprintf(c.rl.Stdout(), "  streaming: multicast=%t rtp/tcp=%t rtsp/tcp=%t\n",
			caps.Media.Streaming.RTPMulticast,
			caps.Media.Streaming.RTPTCP,
			caps.Media.Streaming.RTPRTSPTCP)
	}
	if caps.Events != nil {
		fmt.Fprintf(c.rl.Stdout(), "  events:    pull-point=%t\n", caps.Events.WSPullPointSupport)
	}
	fmt.Fprintln(c.rl.Stdout())
}

// cmdServices handles the services command.
func (c *Console) cmdServices(ctx context.Context) {
	sess := c.session()
	if sess == nil {
		return
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	services, err := sess.Device().Services(opCtx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "\nDevice Services (%d):\n", len(services))
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	for _, svc := range services {
		fmt.Fprintf(c.rl.Stdout(), "  %s\n", svc.Namespace)
		fmt.Fprintf(c.rl.Stdout(), "      Version: %d.%d\n", svc.Version.Major, svc.Version.Minor)
		fmt.Fprintf(c.rl.Stdout(), "      XAddr:   %s\n", svc.XAddr)
	}
	fmt.Fprintln(c.rl.Stdout())
}

// cmdTime handles the time command.
func (c *Console) cmdTime(ctx context.Context) {
	sess := c.session()
	if sess == nil {
		return
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	dt, err := sess.Device().SystemDateAndTime(opCtx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "Device time:  %s\n", dt.UTC.Format(time.RFC3339))
	fmt.Fprintf(c.rl.Stdout(), "Local time:   %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(c.rl.Stdout(), "Clock offset: %s\n", sess.ClockOffset().Round(time.Millisecond))
	if dt.TimeZone != "" {
		fmt.Fprintf(c.rl.Stdout(), "Time zone:    %s\n", dt.TimeZone)
	}
}

// cmdReboot handles the reboot command.
func (c *Console) cmdReboot(ctx context.Context) {
	sess := c.session()
	if sess == nil {
		return
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	msg, err := sess.Device().Reboot(opCtx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Reboot failed: %v\n", err)
		return
	}
	if msg == "" {
		msg = "Rebooting"
	}
	fmt.Fprintf(c.rl.Stdout(), "%s\n", msg)
}

// cmdDiscover handles the discover command.
func (c *Console) cmdDiscover(ctx context.Context, args []string) {
	cfg := discovery.DefaultConfig()
	cfg.Logger = c.logger
	if len(args) > 0 {
		secs, err := strconv.Atoi(args[0])
		if err != nil || secs <= 0 {
			fmt.Fprintln(c.rl.Stdout(), "Usage: discover [seconds]")
			return
		}
		cfg.Wait = time.Duration(secs) * time.Second
	}

	fmt.Fprintf(c.rl.Stdout(), "Probing for devices (%s)...\n", cfg.Wait)
	matches, err := discovery.Probe(ctx, cfg)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Discovery error: %v\n", err)
		return
	}
	if len(matches) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No devices answered")
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "Found %d device(s):\n", len(matches))
	for idx, m := range matches {
		name := m.Name()
		if name == "" {
			name = m.EndpointRef
		}
		fmt.Fprintf(c.rl.Stdout(), "  %d. %s\n", idx+1, name)
		if hw := m.Hardware(); hw != "" {
			fmt.Fprintf(c.rl.Stdout(), "     Hardware: %s\n", hw)
		}
		if loc := m.Location(); loc != "" {
			fmt.Fprintf(c.rl.Stdout(), "     Location: %s\n", loc)
		}
		for _, xaddr := range m.XAddrs {
			fmt.Fprintf(c.rl.Stdout(), "     XAddr:    %s\n", xaddr)
		}
	}
}
