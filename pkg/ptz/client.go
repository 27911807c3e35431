// Package ptz exposes the ONVIF pan/tilt/zoom service.
package ptz

import (
	"context"
	"encoding/xml"
	"time"

	"github.com/nvtkit/onvif-go/pkg/binding"
)

// Vector2D is a pan/tilt pair, position or speed depending on context.
// Values use the device's default space, normalized to [-1, 1].
type Vector2D struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
}

// Vector1D is a zoom value, position or speed depending on context.
type Vector1D struct {
	X float64 `xml:"x,attr"`
}

// Velocity is a movement speed. Nil axes stay untouched.
type Velocity struct {
	PanTilt *Vector2D `xml:"http://www.onvif.org/ver10/schema PanTilt"`
	Zoom    *Vector1D `xml:"http://www.onvif.org/ver10/schema Zoom"`
}

// Position is a coordinate set. Nil axes stay untouched.
type Position struct {
	PanTilt *Vector2D `xml:"http://www.onvif.org/ver10/schema PanTilt"`
	Zoom    *Vector1D `xml:"http://www.onvif.org/ver10/schema Zoom"`
}

// MoveStatus reports per-axis motion, IDLE or MOVING.
type MoveStatus struct {
	PanTilt string `xml:"PanTilt"`
	Zoom    string `xml:"Zoom"`
}

// Status is the device-reported PTZ state.
type Status struct {
	Position   Position
	MoveStatus MoveStatus
	UTCTime    time.Time
}

// Client runs PTZ operations over a bound PTZ-service handle.
type Client struct {
	h *binding.Handle
}

// NewClient wraps a bound PTZ-service handle.
func NewClient(h *binding.Handle) *Client {
	return &Client{h: h}
}

// Handle returns the underlying bound handle.
func (c *Client) Handle() *binding.Handle {
	return c.h
}

// ContinuousMove starts moving at the given velocity until Stop.
func (c *Client) ContinuousMove(ctx context.Context, profileToken string, v Velocity) error {
	req := struct {
		XMLName      xml.Name `xml:"http://www.onvif.org/ver20/ptz/wsdl ContinuousMove"`
		ProfileToken string   `xml:"ProfileToken"`
		Velocity     Velocity `xml:"Velocity"`
	}{ProfileToken: profileToken, Velocity: v}
	return c.h.Call(ctx, "ContinuousMove", &req, nil)
}

// Stop halts motion on the selected axes.
func (c *Client) Stop(ctx context.Context, profileToken string, stopPanTilt, stopZoom bool) error {
	req := struct {
		XMLName      xml.Name `xml:"http://www.onvif.org/ver20/ptz/wsdl Stop"`
		ProfileToken string   `xml:"ProfileToken"`
		PanTilt      bool     `xml:"PanTilt"`
		Zoom         bool     `xml:"Zoom"`
	}{ProfileToken: profileToken, PanTilt: stopPanTilt, Zoom: stopZoom}
	return c.h.Call(ctx, "Stop", &req, nil)
}

// GotoHome moves to the device's home position.
func (c *Client) GotoHome(ctx context.Context, profileToken string) error {
	req := struct {
		XMLName      xml.Name `xml:"http://www.onvif.org/ver20/ptz/wsdl GotoHomePosition"`
		ProfileToken string   `xml:"ProfileToken"`
	}{ProfileToken: profileToken}
	return c.h.Call(ctx, "GotoHomePosition", &req, nil)
}

// AbsoluteMove moves to an absolute position, optionally at a speed.
func (c *Client) AbsoluteMove(ctx context.Context, profileToken string, pos Position, speed *Velocity) error {
	req := struct {
		XMLName      xml.Name  `xml:"http://www.onvif.org/ver20/ptz/wsdl AbsoluteMove"`
		ProfileToken string    `xml:"ProfileToken"`
		Position     Position  `xml:"Position"`
		Speed        *Velocity `xml:"Speed"`
	}{ProfileToken: profileToken, Position: pos, Speed: speed}
	return c.h.Call(ctx, "AbsoluteMove", &req, nil)
}

// RelativeMove moves by a translation, optionally at a speed.
func (c *Client) RelativeMove(ctx context.Context, profileToken string, translation Position, speed *Velocity) error {
	req := struct {
		XMLName      xml.Name  `xml:"http://www.onvif.org/ver20/ptz/wsdl RelativeMove"`
		ProfileToken string    `xml:"ProfileToken"`
		Translation  Position  `xml:"Translation"`
		Speed        *Velocity `xml:"Speed"`
	}{ProfileToken: profileToken, Translation: translation, Speed: speed}
	return c.h.Call(ctx, "RelativeMove", &req, nil)
}

// Status fetches the current PTZ state.
func (c *Client) Status(ctx context.Context, profileToken string) (Status, error) {
	var resp struct {
		XMLName xml.Name `xml:"GetStatusResponse"`
		Payload struct {
			Position   Position   `xml:"Position"`
			MoveStatus MoveStatus `xml:"MoveStatus"`
			UTCTime    string     `xml:"UtcTime"`
		} `xml:"PTZStatus"`
	}
	req := struct {
		XMLName      xml.Name `xml:"http://www.onvif.org/ver20/ptz/wsdl GetStatus"`
		ProfileToken string   `xml:"ProfileToken"`
	}{ProfileToken: profileToken}
	if err := c.h.Call(ctx, "GetStatus", &req, &resp); err != nil {
		return Status{}, err
	}

	out := Status{
		Position:   resp.Payload.Position,
		MoveStatus: resp.Payload.MoveStatus,
	}
	if ts, err := time.Parse(time.RFC3339, resp.Payload.UTCTime); err == nil {
		out.UTCTime = ts
	}
	return out, nil
}
