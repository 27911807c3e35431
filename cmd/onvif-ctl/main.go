// Command onvif-ctl is an interactive console for ONVIF network video
// devices.
//
// It connects to a device, inspects its services, lists media profiles
// and stream addresses, drives PTZ movement, and pulls event
// notifications to the terminal.
//
// Usage:
//
//	onvif-ctl [flags]
//
// Flags:
//
//	-device string   Device URL or device-file name to connect at startup
//	-config string   YAML device file with named devices and credentials
//	-capture string  Write a protocol capture of all exchanges (.ovlog)
//	-v               Enable debug logging
//	-version         Print the version and exit
//
// Credentials come from the ONVIF_USERNAME and ONVIF_PASSWORD
// environment variables; entries in the device file override them per
// device.
//
// Examples:
//
//	# Connect to a camera by address
//	ONVIF_USERNAME=admin ONVIF_PASSWORD=secret onvif-ctl -device 192.168.1.64
//
//	# Use a device file and record a capture
//	onvif-ctl -config devices.yaml -capture session.ovlog
//
// Interactive Commands:
//
//	connect <url|name>  - Connect to a device
//	discover            - Probe the local network for devices
//	info                - Show device information
//	profiles            - List media profiles
//	stream <profile>    - Show the RTSP stream URI
//	move <pan> <tilt>   - Start a continuous PTZ move
//	subscribe [topic]   - Pull event notifications
//	quit                - Exit the console
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kelseyhightower/envconfig"

	"github.com/nvtkit/onvif-go/cmd/onvif-ctl/interactive"
	"github.com/nvtkit/onvif-go/pkg/device"
	"github.com/nvtkit/onvif-go/pkg/log"
	"github.com/nvtkit/onvif-go/pkg/transport"
	"github.com/nvtkit/onvif-go/pkg/version"
)

// Config holds the console configuration.
type Config struct {
	Device      string
	ConfigFile  string
	CaptureFile string
	Verbose     bool
	Version     bool
}

// credentials is filled from ONVIF_USERNAME and ONVIF_PASSWORD.
type credentials struct {
	Username string
	Password string
}

var config Config

func init() {
	flag.StringVar(&config.Device, "device", "", "Device URL or device-file name to connect at startup")
	flag.StringVar(&config.ConfigFile, "config", "", "YAML device file with named devices and credentials")
	flag.StringVar(&config.CaptureFile, "capture", "", "Write a protocol capture of all exchanges (.ovlog)")
	flag.BoolVar(&config.Verbose, "v", false, "Enable debug logging")
	flag.BoolVar(&config.Version, "version", false, "Print the version and exit")
}

func main() {
	flag.Parse()

	if config.Version {
		fmt.Printf("onvif-ctl %s\n", version.Current)
		return
	}

	logger := setupLogging(config.Verbose)

	var creds credentials
	if err := envconfig.Process("onvif", &creds); err != nil {
		fmt.Fprintf(os.Stderr, "Error: reading credentials: %v\n", err)
		os.Exit(1)
	}

	var devices []interactive.DeviceEntry
	if config.ConfigFile != "" {
		entries, err := interactive.LoadDeviceFile(config.ConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		devices = entries
		logger.Debug("device file loaded", "path", config.ConfigFile, "devices", len(devices))
	}

	sessionCfg := device.DefaultConfig()
	sessionCfg.Logger = logger
	if config.CaptureFile != "" {
		capture, err := log.NewFileLogger(config.CaptureFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: opening capture file: %v\n", err)
			os.Exit(1)
		}
		defer capture.Close()
		sessionCfg.Transport.Capture = capture
		logger.Info("capturing exchanges", "path", config.CaptureFile)
	}

	console, err := interactive.New(interactive.Config{
		Credentials: transport.Credential{Username: creds.Username, Password: creds.Password},
		Devices:     devices,
		Session:     sessionCfg,
		Logger:      logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		console.Close()
	}()

	if config.Device != "" {
		if err := console.Connect(ctx, config.Device); err != nil {
			fmt.Fprintf(console.Stdout(), "Connect failed: %v\n", err)
		}
	}

	console.Run(ctx, cancel)
}

func setupLogging(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
