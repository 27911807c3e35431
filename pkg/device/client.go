package device

import (
	"context"
	"encoding/xml"
	"time"

	"github.com/nvtkit/onvif-go/pkg/binding"
)

// Client runs device management operations against the device service.
type Client struct {
	h    *binding.Handle
	sess *Session
}

// NewClient wraps a bound device-service handle. Clients obtained from a
// Session additionally feed the session's clock offset.
func NewClient(h *binding.Handle) *Client {
	return &Client{h: h}
}

// Handle returns the underlying bound handle.
func (c *Client) Handle() *binding.Handle {
	return c.h
}

func (c *Client) call(ctx context.Context, op string, req, resp any) error {
	if c.sess != nil && c.sess.closed.Load() {
		return ErrSessionClosed
	}
	return c.h.Call(ctx, op, req, resp)
}

// Information is the device identity block.
type Information struct {
	Manufacturer    string `xml:"Manufacturer"`
	Model           string `xml:"Model"`
	FirmwareVersion string `xml:"FirmwareVersion"`
	SerialNumber    string `xml:"SerialNumber"`
	HardwareID      string `xml:"HardwareId"`
}

// Information fetches manufacturer, model, firmware, serial, and hardware
// identifiers.
func (c *Client) Information(ctx context.Context) (Information, error) {
	var resp struct {
		XMLName xml.Name `xml:"GetDeviceInformationResponse"`
		Information
	}
	req := struct {
		XMLName xml.Name `xml:"http://www.onvif.org/ver10/device/wsdl GetDeviceInformation"`
	}{}
	if err := c.call(ctx, "GetDeviceInformation", &req, &resp); err != nil {
		return Information{}, err
	}
	return resp.Information, nil
}

// HostnameInformation reports the device hostname and how it was obtained.
type HostnameInformation struct {
	FromDHCP bool   `xml:"FromDHCP"`
	Name     string `xml:"Name"`
}

// Hostname fetches the device hostname.
func (c *Client) Hostname(ctx context.Context) (HostnameInformation, error) {
	var resp struct {
		XMLName xml.Name            `xml:"GetHostnameResponse"`
		Info    HostnameInformation `xml:"HostnameInformation"`
	}
	req := struct {
		XMLName xml.Name `xml:"http://www.onvif.org/ver10/device/wsdl GetHostname"`
	}{}
	if err := c.call(ctx, "GetHostname", &req, &resp); err != nil {
		return HostnameInformation{}, err
	}
	return resp.Info, nil
}

// SetHostname sets the device hostname.
func (c *Client) SetHostname(ctx context.Context, name string) error {
	req := struct {
		XMLName xml.Name `xml:"http://www.onvif.org/ver10/device/wsdl SetHostname"`
		Name    string   `xml:"Name"`
	}{Name: name}
	return c.call(ctx, "SetHostname", &req, nil)
}

// SystemDateTime is the device clock state.
type SystemDateTime struct {
	// Type is Manual or NTP.
	Type            string
	DaylightSavings bool
	TimeZone        string
	// UTC is the device clock reading. Zero when the device reported
	// no UTC time.
	UTC time.Time
}

type dateTimeXML struct {
	Time struct {
		Hour   int `xml:"Hour"`
		Minute int `xml:"Minute"`
		Second int `xml:"Second"`
	} `xml:"Time"`
	Date struct {
		Year  int `xml:"Year"`
		Month int `xml:"Month"`
		Day   int `xml:"Day"`
	} `xml:"Date"`
}

type timeZoneXML struct {
	TZ string `xml:"TZ"`
}

// SystemDateAndTime fetches the device clock. On a session-backed client
// the measured offset feeds later security token timestamps.
func (c *Client) SystemDateAndTime(ctx context.Context) (SystemDateTime, error) {
	var resp struct {
		XMLName xml.Name `xml:"GetSystemDateAndTimeResponse"`
		Payload struct {
			DateTimeType    string       `xml:"DateTimeType"`
			DaylightSavings bool         `xml:"DaylightSavings"`
			TimeZone        timeZoneXML  `xml:"TimeZone"`
			UTCDateTime     *dateTimeXML `xml:"UTCDateTime"`
		} `xml:"SystemDateAndTime"`
	}
	req := struct {
		XMLName xml.Name `xml:"http://www.onvif.org/ver10/device/wsdl GetSystemDateAndTime"`
	}{}
	if err := c.call(ctx, "GetSystemDateAndTime", &req, &resp); err != nil {
		return SystemDateTime{}, err
	}

	out := SystemDateTime{
		Type:            resp.Payload.DateTimeType,
		DaylightSavings: resp.Payload.DaylightSavings,
		TimeZone:        resp.Payload.TimeZone.TZ,
	}
	if dt := resp.Payload.UTCDateTime; dt != nil {
		out.UTC = time.Date(dt.Date.Year, time.Month(dt.Date.Month), dt.Date.Day,
			dt.Time.Hour, dt.Time.Minute, dt.Time.Second, 0, time.UTC)
	}
	if c.sess != nil && !out.UTC.IsZero() {
		c.sess.setClockOffset(time.Until(out.UTC))
	}
	return out, nil
}

type setSystemDateTimeRequest struct {
	XMLName         xml.Name     `xml:"http://www.onvif.org/ver10/device/wsdl SetSystemDateAndTime"`
	DateTimeType    string       `xml:"DateTimeType"`
	DaylightSavings bool         `xml:"DaylightSavings"`
	TimeZone        *timeZoneXML `xml:"TimeZone"`
	UTCDateTime     *dateTimeXML `xml:"UTCDateTime"`
}

// SetSystemDateAndTime sets the device clock manually.
func (c *Client) SetSystemDateAndTime(ctx context.Context, utc time.Time, timezone string, daylightSavings bool) error {
	utc = utc.UTC()
	req := setSystemDateTimeRequest{
		DateTimeType:    "Manual",
		DaylightSavings: daylightSavings,
		UTCDateTime:     &dateTimeXML{},
	}
	req.UTCDateTime.Time.Hour = utc.Hour()
	req.UTCDateTime.Time.Minute = utc.Minute()
	req.UTCDateTime.Time.Second = utc.Second()
	req.UTCDateTime.Date.Year = utc.Year()
	req.UTCDateTime.Date.Month = int(utc.Month())
	req.UTCDateTime.Date.Day = utc.Day()
	if timezone != "" {
		req.TimeZone = &timeZoneXML{TZ: timezone}
	}
	return c.call(ctx, "SetSystemDateAndTime", &req, nil)
}

// ResetSystemDateAndTime switches the device clock back to NTP.
func (c *Client) ResetSystemDateAndTime(ctx context.Context) error {
	req := setSystemDateTimeRequest{DateTimeType: "NTP"}
	return c.call(ctx, "SetSystemDateAndTime", &req, nil)
}

// Reboot restarts the device and returns its farewell message.
func (c *Client) Reboot(ctx context.Context) (string, error) {
	var resp struct {
		XMLName xml.Name `xml:"SystemRebootResponse"`
		Message string   `xml:"Message"`
	}
	req := struct {
		XMLName xml.Name `xml:"http://www.onvif.org/ver10/device/wsdl SystemReboot"`
	}{}
	if err := c.call(ctx, "SystemReboot", &req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Service is one entry of the device's service listing.
type Service struct {
	Namespace string `xml:"Namespace"`
	XAddr     string `xml:"XAddr"`
	Version   struct {
		Major int `xml:"Major"`
		Minor int `xml:"Minor"`
	} `xml:"Version"`
}

// Services fetches the namespaced service listing.
func (c *Client) Services(ctx context.Context) ([]Service, error) {
	var resp struct {
		XMLName  xml.Name  `xml:"GetServicesResponse"`
		Services []Service `xml:"Service"`
	}
	req := struct {
		XMLName           xml.Name `xml:"http://www.onvif.org/ver10/device/wsdl GetServices"`
		IncludeCapability bool     `xml:"IncludeCapability"`
	}{}
	if err := c.call(ctx, "GetServices", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Services, nil
}
