package testdev_test

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nvtkit/onvif-go/internal/testdev"
	"github.com/nvtkit/onvif-go/pkg/transport"
	"github.com/nvtkit/onvif-go/pkg/wire"
)

// TestScriptedOperation verifies scripted handlers override defaults and
// traffic is recorded.
func TestScriptedOperation(t *testing.T) {
	dev := testdev.New()
	defer dev.Close()
	dev.Respond("GetHostname", `<?xml version="1.0"?>
<e:Envelope xmlns:e="http://www.w3.org/2003/05/soap-envelope">
  <e:Body><GetHostnameResponse><HostnameInformation><Name>fake-cam</Name></HostnameInformation></GetHostnameResponse></e:Body>
</e:Envelope>`)

	var resp struct {
		XMLName xml.Name `xml:"GetHostnameResponse"`
		Info    struct {
			Name string `xml:"Name"`
		} `xml:"HostnameInformation"`
	}
	err := invokeDevice(t, dev, nil, "GetHostname", &resp)
	if err != nil {
		t.Fatalf("Failed to call fake: %v", err)
	}
	if resp.Info.Name != "fake-cam" {
		t.Errorf("Name = %q, want fake-cam", resp.Info.Name)
	}
	if dev.Count("GetHostname") != 1 {
		t.Errorf("Recorded %d calls, want 1", dev.Count("GetHostname"))
	}
}

// TestDefaultCapabilities verifies the capability document advertises the
// live listener address and honors service selection.
func TestDefaultCapabilities(t *testing.T) {
	dev := testdev.New()
	defer dev.Close()
	dev.SetServices(testdev.Services{Media: true})

	var resp struct {
		XMLName      xml.Name `xml:"GetCapabilitiesResponse"`
		Capabilities struct {
			Device struct {
				XAddr string `xml:"XAddr"`
			} `xml:"Device"`
			Media struct {
				XAddr string `xml:"XAddr"`
			} `xml:"Media"`
			Events struct {
				XAddr string `xml:"XAddr"`
			} `xml:"Events"`
		} `xml:"Capabilities"`
	}
	if err := invokeDevice(t, dev, nil, "GetCapabilities", &resp); err != nil {
		t.Fatalf("Failed to get capabilities: %v", err)
	}
	if resp.Capabilities.Device.XAddr != dev.DeviceService() {
		t.Errorf("Device XAddr = %q, want %q", resp.Capabilities.Device.XAddr, dev.DeviceService())
	}
	if resp.Capabilities.Media.XAddr != dev.URL()+"/onvif/Media" {
		t.Errorf("Media XAddr = %q", resp.Capabilities.Media.XAddr)
	}
	if resp.Capabilities.Events.XAddr != "" {
		t.Errorf("Events advertised at %q despite being off", resp.Capabilities.Events.XAddr)
	}
}

// TestSubscriptionLifecycle verifies create, pull, and unsubscribe
// bookkeeping including the fault after teardown.
func TestSubscriptionLifecycle(t *testing.T) {
	dev := testdev.New()
	defer dev.Close()
	dev.QueueBatch(testdev.Motion(true), testdev.DigitalInput("io_1", false))

	var created struct {
		XMLName xml.Name `xml:"CreatePullPointSubscriptionResponse"`
		Ref     struct {
			Address string `xml:"Address"`
		} `xml:"SubscriptionReference"`
	}
	if err := invokeDevice(t, dev, nil, "CreatePullPointSubscription", &created); err != nil {
		t.Fatalf("Failed to create subscription: %v", err)
	}
	manager := created.Ref.Address
	if !strings.HasPrefix(manager, dev.URL()+"/onvif/Events/sub_") {
		t.Fatalf("Manager address = %q", manager)
	}
	if dev.Subscriptions() != 1 {
		t.Fatalf("Subscriptions = %d, want 1", dev.Subscriptions())
	}

	var pulled struct {
		XMLName  xml.Name `xml:"PullMessagesResponse"`
		Messages []struct {
			Topic string `xml:"Topic"`
		} `xml:"NotificationMessage"`
	}
	if err := invokeEndpoint(t, manager, nil, "PullMessages", &pulled); err != nil {
		t.Fatalf("Failed to pull: %v", err)
	}
	if len(pulled.Messages) != 2 {
		t.Fatalf("Pulled %d messages, want 2", len(pulled.Messages))
	}
	if !strings.Contains(pulled.Messages[0].Topic, "CellMotionDetector/Motion") {
		t.Errorf("Topic = %q", pulled.Messages[0].Topic)
	}

	if err := invokeEndpoint(t, manager, nil, "Unsubscribe", nil); err != nil {
		t.Fatalf("Failed to unsubscribe: %v", err)
	}
	if dev.Subscriptions() != 0 {
		t.Errorf("Subscriptions = %d after unsubscribe", dev.Subscriptions())
	}

	err := invokeEndpoint(t, manager, nil, "PullMessages", nil)
	var fault *wire.Fault
	if !errors.As(err, &fault) || !fault.HasSubcode(wire.SubcodeResourceUnknown) {
		t.Errorf("Error = %v, want ResourceUnknownFault", err)
	}
}

// TestExpiredSubscription verifies pulls fault once the granted lifetime
// has passed.
func TestExpiredSubscription(t *testing.T) {
	dev := testdev.New()
	defer dev.Close()
	dev.SetLifetime(20 * time.Millisecond)

	var created struct {
		XMLName xml.Name `xml:"CreatePullPointSubscriptionResponse"`
		Ref     struct {
			Address string `xml:"Address"`
		} `xml:"SubscriptionReference"`
	}
	if err := invokeDevice(t, dev, nil, "CreatePullPointSubscription", &created); err != nil {
		t.Fatalf("Failed to create subscription: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	err := invokeEndpoint(t, created.Ref.Address, nil, "PullMessages", nil)
	var fault *wire.Fault
	if !errors.As(err, &fault) {
		t.Fatalf("Error = %v, want fault after expiry", err)
	}
}

// TestUsernameTokenAuth verifies the fake validates WS-Security digests.
func TestUsernameTokenAuth(t *testing.T) {
	dev := testdev.New()
	defer dev.Close()
	dev.SetAuth("admin", "secret")

	err := invokeDevice(t, dev, &transport.Credential{Username: "admin", Password: "wrong"}, "GetDeviceInformation", nil)
	if err == nil {
		t.Fatal("Bad password accepted")
	}

	var resp struct {
		XMLName      xml.Name `xml:"GetDeviceInformationResponse"`
		Manufacturer string   `xml:"Manufacturer"`
	}
	if err := invokeDevice(t, dev, &transport.Credential{Username: "admin", Password: "secret"}, "GetDeviceInformation", &resp); err != nil {
		t.Fatalf("Failed with good credential: %v", err)
	}
	if resp.Manufacturer != "TestDev" {
		t.Errorf("Manufacturer = %q", resp.Manufacturer)
	}

	requests := dev.Requests()
	if len(requests) == 0 || !requests[len(requests)-1].Security {
		t.Error("Accepted call carried no security header")
	}
}

// TestDigestFallback verifies a digest-only device walks the client through
// 401 into an authenticated digest exchange.
func TestDigestFallback(t *testing.T) {
	dev := testdev.New()
	defer dev.Close()
	dev.RequireDigest("admin", "secret")

	var resp struct {
		XMLName      xml.Name `xml:"GetDeviceInformationResponse"`
		Manufacturer string   `xml:"Manufacturer"`
	}
	if err := invokeDevice(t, dev, &transport.Credential{Username: "admin", Password: "secret"}, "GetDeviceInformation", &resp); err != nil {
		t.Fatalf("Failed to authenticate with digest: %v", err)
	}
	if resp.Manufacturer != "TestDev" {
		t.Errorf("Manufacturer = %q", resp.Manufacturer)
	}

	var digested bool
	for _, r := range dev.Requests() {
		if r.Digest {
			digested = true
		}
	}
	if !digested {
		t.Error("No request authenticated with http digest")
	}
}

// TestDroppedConnection verifies DropNext surfaces as a transport error,
// not a decoded response.
func TestDroppedConnection(t *testing.T) {
	dev := testdev.New()
	defer dev.Close()
	dev.DropNext(1)

	if err := invokeDevice(t, dev, nil, "GetDeviceInformation", nil); err == nil {
		t.Fatal("Dropped connection did not error")
	}
	if err := invokeDevice(t, dev, nil, "GetDeviceInformation", nil); err != nil {
		t.Fatalf("Second call should succeed: %v", err)
	}
}

// TestUnknownOperation verifies unscripted operations fault.
func TestUnknownOperation(t *testing.T) {
	dev := testdev.New()
	defer dev.Close()

	err := invokeDevice(t, dev, nil, "SetSynchronizationPoint", nil)
	var fault *wire.Fault
	if !errors.As(err, &fault) || !fault.HasSubcode("ActionNotSupported") {
		t.Errorf("Error = %v, want ActionNotSupported fault", err)
	}
}

func invokeDevice(t *testing.T, dev *testdev.Device, cred *transport.Credential, op string, resp any) error {
	t.Helper()
	return invokeEndpoint(t, dev.DeviceService(), cred, op, resp)
}

// invokeEndpoint drives the fake through the real SOAP transport.
func invokeEndpoint(t *testing.T, endpoint string, cred *transport.Credential, op string, resp any) error {
	t.Helper()

	cfg := transport.DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := transport.NewClient(cfg)
	if err != nil {
		t.Fatalf("Failed to build transport: %v", err)
	}

	req := struct {
		XMLName xml.Name
	}{XMLName: xml.Name{Space: "http://www.onvif.org/ver10/device/wsdl", Local: op}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Invoke(ctx, &transport.Call{
		Endpoint:   endpoint,
		Action:     "http://www.onvif.org/ver10/device/wsdl/" + op,
		Request:    &req,
		Response:   resp,
		Credential: cred,
		NoCapture:  true,
	})
}
