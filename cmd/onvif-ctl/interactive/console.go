// Package interactive provides the interactive command-line interface
// for onvif-ctl.
package interactive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"gopkg.in/yaml.v3"

	"github.com/nvtkit/onvif-go/pkg/device"
	"github.com/nvtkit/onvif-go/pkg/events"
	"github.com/nvtkit/onvif-go/pkg/transport"
)

// commandTimeout bounds one console command against a stuck device.
const commandTimeout = 20 * time.Second

// DeviceEntry is one named device from the device file. Empty credential
// fields fall back to the environment credential.
type DeviceEntry struct {
	Name     string `yaml:"name"`
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoadDeviceFile reads a YAML device file.
func LoadDeviceFile(path string) ([]DeviceEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file struct {
		Devices []DeviceEntry `yaml:"devices"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse device file: %w", err)
	}
	return file.Devices, nil
}

// Config provides the console with its environment.
type Config struct {
	// Credentials is the default credential, usually from the
	// environment.
	Credentials transport.Credential

	// Devices are the named entries of the device file.
	Devices []DeviceEntry

	// Session configures sessions the console opens, the capture
	// logger included.
	Session device.Config

	// Logger receives console diagnostics.
	Logger *slog.Logger
}

// Console handles interactive mode for onvif-ctl.
type Console struct {
	cfg    Config
	logger *slog.Logger
	rl     *readline.Instance

	sess    *device.Session
	profile string

	runner *events.Runner
}

// New creates a new interactive console handler.
func New(cfg Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "onvif> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Console{
		cfg:    cfg,
		logger: logger,
		rl:     rl,
	}, nil
}

// Stdout returns a writer that coordinates with the readline input. Use
// this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Connect opens a session before the loop starts, for the -device flag.
func (c *Console) Connect(ctx context.Context, target string) error {
	return c.open(ctx, target)
}

// Close interrupts a blocked Readline so Run can return. Safe to call
// from a signal handler goroutine.
func (c *Console) Close() {
	c.rl.Close()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()
	defer c.teardown()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "connect", "c":
			c.cmdConnect(ctx, args)

		case "info", "i":
			c.cmdInfo(ctx)

		case "caps":
			c.cmdCaps()

		case "services":
			c.cmdServices(ctx)

		case "time":
			c.cmdTime(ctx)

		case "reboot":
			c.cmdReboot(ctx)

		case "discover", "d":
			c.cmdDiscover(ctx, args)

		case "profiles", "p":
			c.cmdProfiles(ctx)

		case "snapshot":
			c.cmdSnapshot(ctx, args)

		case "stream":
			c.cmdStream(ctx, args)

		case "imaging":
			c.cmdImaging(ctx, args)

		case "move", "m":
			c.cmdMove(ctx, args)

		case "stop":
			c.cmdStop(ctx)

		case "topics", "t":
			c.cmdTopics(ctx)

		case "subscribe", "sub":
			c.cmdSubscribe(ctx, args)

		case "unsubscribe", "unsub":
			c.cmdUnsubscribe()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
ONVIF Console Commands:
  Connection:
    connect <url|name>   - Connect to a device (name from the device file)
    discover [seconds]   - Probe the local network for devices
    info                 - Show device information
    caps                 - Show advertised service capabilities
    services             - List device services and versions
    time                 - Show device clock and measured offset
    reboot               - Reboot the device

  Media:
    profiles             - List media profiles (first becomes default)
    snapshot <profile>   - Show the snapshot URI of a profile
    stream <profile>     - Show the RTSP stream URI of a profile
    imaging <source>     - Show imaging settings of a video source

  PTZ:
    move <pan> <tilt> [zoom] - Start a continuous move (values -1..1)
    stop                     - Stop all movement

  Events:
    topics               - List subscribable event topics
    subscribe [topic...] - Start pulling events (all topics when empty)
    unsubscribe          - Stop pulling and await teardown

  General:
    help                 - Show this help
    quit                 - Exit console`)
}

// teardown stops a live subscription and closes the session on exit.
func (c *Console) teardown() {
	if c.runner != nil {
		c.runner.Stop()
		select {
		case <-c.runner.Done():
		case <-time.After(10 * time.Second):
		}
		c.runner = nil
	}
	if c.sess != nil {
		c.sess.Close()
		c.sess = nil
	}
}

// session returns the open session or reports the missing connection.
func (c *Console) session() *device.Session {
	if c.sess == nil {
		fmt.Fprintln(c.rl.Stdout(), "Not connected (use 'connect <url|name>')")
		return nil
	}
	return c.sess
}

// opCtx derives the per-command timeout context.
func (c *Console) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, commandTimeout)
}

// resolveTarget maps a device-file name to its address and credential.
// Unknown names are treated as addresses with the default credential.
func (c *Console) resolveTarget(target string) (string, transport.Credential) {
	for _, entry := range c.cfg.Devices {
		if strings.EqualFold(entry.Name, target) {
			cred := c.cfg.Credentials
			if entry.Username != "" {
				cred = transport.Credential{Username: entry.Username, Password: entry.Password}
			}
			return entry.Address, cred
		}
	}
	return target, c.cfg.Credentials
}
