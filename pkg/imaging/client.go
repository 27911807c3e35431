// Package imaging exposes the ONVIF imaging service: picture settings per
// video source.
package imaging

import (
	"context"
	"encoding/xml"

	"github.com/nvtkit/onvif-go/pkg/binding"
)

// Exposure is the exposure control block.
type Exposure struct {
	Mode string `xml:"Mode"`
}

// Focus is the focus control block.
type Focus struct {
	AutoFocusMode string  `xml:"AutoFocusMode"`
	DefaultSpeed  float64 `xml:"DefaultSpeed,omitempty"`
}

// WhiteBalance is the white balance control block.
type WhiteBalance struct {
	Mode string `xml:"Mode"`
}

// Settings carries the imaging parameters of one video source. Nil fields
// are absent in responses and left untouched by SetSettings.
type Settings struct {
	Brightness      *float64      `xml:"http://www.onvif.org/ver10/schema Brightness"`
	ColorSaturation *float64      `xml:"http://www.onvif.org/ver10/schema ColorSaturation"`
	Contrast        *float64      `xml:"http://www.onvif.org/ver10/schema Contrast"`
	Exposure        *Exposure     `xml:"http://www.onvif.org/ver10/schema Exposure"`
	Focus           *Focus        `xml:"http://www.onvif.org/ver10/schema Focus"`
	Sharpness       *float64      `xml:"http://www.onvif.org/ver10/schema Sharpness"`
	WhiteBalance    *WhiteBalance `xml:"http://www.onvif.org/ver10/schema WhiteBalance"`
}

// FloatRange is an allowed value interval.
type FloatRange struct {
	Min float64 `xml:"Min"`
	Max float64 `xml:"Max"`
}

// Options reports the adjustable ranges a source supports. Nil fields are
// not adjustable.
type Options struct {
	Brightness      *FloatRange `xml:"Brightness"`
	ColorSaturation *FloatRange `xml:"ColorSaturation"`
	Contrast        *FloatRange `xml:"Contrast"`
	Sharpness       *FloatRange `xml:"Sharpness"`
}

// Client runs imaging operations over a bound imaging-service handle.
type Client struct {
	h *binding.Handle
}

// NewClient wraps a bound imaging-service handle.
func NewClient(h *binding.Handle) *Client {
	return &Client{h: h}
}

// Handle returns the underlying bound handle.
func (c *Client) Handle() *binding.Handle {
	return c.h
}

// Settings fetches the imaging settings of a video source.
func (c *Client) Settings(ctx context.Context, videoSourceToken string) (Settings, error) {
	var resp struct {
		XMLName  xml.Name `xml:"GetImagingSettingsResponse"`
		Settings Settings `xml:"ImagingSettings"`
	}
	req := struct {
		XMLName          xml.Name `xml:"http://www.onvif.org/ver20/imaging/wsdl GetImagingSettings"`
		VideoSourceToken string   `xml:"VideoSourceToken"`
	}{VideoSourceToken: videoSourceToken}
	if err := c.h.Call(ctx, "GetImagingSettings", &req, &resp); err != nil {
		return Settings{}, err
	}
	return resp.Settings, nil
}

// SetSettings applies imaging settings to a video source. Only non-nil
// fields are sent.
func (c *Client) SetSettings(ctx context.Context, videoSourceToken string, s Settings) error {
	req := struct {
		XMLName          xml.Name `xml:"http://www.onvif.org/ver20/imaging/wsdl SetImagingSettings"`
		VideoSourceToken string   `xml:"VideoSourceToken"`
		ImagingSettings  Settings `xml:"ImagingSettings"`
		ForcePersistence bool     `xml:"ForcePersistence"`
	}{VideoSourceToken: videoSourceToken, ImagingSettings: s, ForcePersistence: true}
	return c.h.Call(ctx, "SetImagingSettings", &req, nil)
}

// Options fetches the adjustable ranges of a video source.
func (c *Client) Options(ctx context.Context, videoSourceToken string) (Options, error) {
	var resp struct {
		XMLName xml.Name `xml:"GetOptionsResponse"`
		Options Options  `xml:"ImagingOptions"`
	}
	req := struct {
		XMLName          xml.Name `xml:"http://www.onvif.org/ver20/imaging/wsdl GetOptions"`
		VideoSourceToken string   `xml:"VideoSourceToken"`
	}{VideoSourceToken: videoSourceToken}
	if err := c.h.Call(ctx, "GetOptions", &req, &resp); err != nil {
		return Options{}, err
	}
	return resp.Options, nil
}
