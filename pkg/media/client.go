// Package media exposes the ONVIF media service: profile enumeration and
// stream or snapshot address resolution.
package media

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/nvtkit/onvif-go/pkg/binding"
)

// Client runs media operations over a bound media-service handle.
type Client struct {
	h *binding.Handle
}

// NewClient wraps a bound media-service handle.
func NewClient(h *binding.Handle) *Client {
	return &Client{h: h}
}

// Handle returns the underlying bound handle.
func (c *Client) Handle() *binding.Handle {
	return c.h
}

// Profiles lists every media profile of the device.
func (c *Client) Profiles(ctx context.Context) ([]Profile, error) {
	var resp struct {
		XMLName  xml.Name  `xml:"GetProfilesResponse"`
		Profiles []Profile `xml:"Profiles"`
	}
	req := struct {
		XMLName xml.Name `xml:"http://www.onvif.org/ver10/media/wsdl GetProfiles"`
	}{}
	if err := c.h.Call(ctx, "GetProfiles", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Profiles, nil
}

// Profile fetches one media profile by token.
func (c *Client) Profile(ctx context.Context, token string) (Profile, error) {
	var resp struct {
		XMLName xml.Name `xml:"GetProfileResponse"`
		Profile Profile  `xml:"Profile"`
	}
	req := struct {
		XMLName      xml.Name `xml:"http://www.onvif.org/ver10/media/wsdl GetProfile"`
		ProfileToken string   `xml:"ProfileToken"`
	}{ProfileToken: token}
	if err := c.h.Call(ctx, "GetProfile", &req, &resp); err != nil {
		return Profile{}, err
	}
	return resp.Profile, nil
}

// VideoSources lists the physical capture sources.
func (c *Client) VideoSources(ctx context.Context) ([]VideoSource, error) {
	var resp struct {
		XMLName xml.Name      `xml:"GetVideoSourcesResponse"`
		Sources []VideoSource `xml:"VideoSources"`
	}
	req := struct {
		XMLName xml.Name `xml:"http://www.onvif.org/ver10/media/wsdl GetVideoSources"`
	}{}
	if err := c.h.Call(ctx, "GetVideoSources", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Sources, nil
}

type mediaURIResponse struct {
	MediaURI struct {
		URI string `xml:"Uri"`
	} `xml:"MediaUri"`
}

// SnapshotURI resolves the JPEG snapshot address for a profile.
func (c *Client) SnapshotURI(ctx context.Context, profileToken string) (string, error) {
	var resp struct {
		XMLName xml.Name `xml:"GetSnapshotUriResponse"`
		mediaURIResponse
	}
	req := struct {
		XMLName      xml.Name `xml:"http://www.onvif.org/ver10/media/wsdl GetSnapshotUri"`
		ProfileToken string   `xml:"ProfileToken"`
	}{ProfileToken: profileToken}
	if err := c.h.Call(ctx, "GetSnapshotUri", &req, &resp); err != nil {
		return "", err
	}
	if resp.MediaURI.URI == "" {
		return "", fmt.Errorf("profile %s: device returned no snapshot uri", profileToken)
	}
	return resp.MediaURI.URI, nil
}

type streamSetup struct {
	Stream    string `xml:"http://www.onvif.org/ver10/schema Stream"`
	Transport struct {
		Protocol string `xml:"Protocol"`
	} `xml:"http://www.onvif.org/ver10/schema Transport"`
}

// StreamURI resolves the RTSP stream address for a profile.
func (c *Client) StreamURI(ctx context.Context, profileToken string, proto StreamProtocol) (string, error) {
	var resp struct {
		XMLName xml.Name `xml:"GetStreamUriResponse"`
		mediaURIResponse
	}
	req := struct {
		XMLName      xml.Name    `xml:"http://www.onvif.org/ver10/media/wsdl GetStreamUri"`
		StreamSetup  streamSetup `xml:"StreamSetup"`
		ProfileToken string      `xml:"ProfileToken"`
	}{ProfileToken: profileToken}
	req.StreamSetup.Stream = proto.String()
	req.StreamSetup.Transport.Protocol = proto.transport()

	if err := c.h.Call(ctx, "GetStreamUri", &req, &resp); err != nil {
		return "", err
	}
	if resp.MediaURI.URI == "" {
		return "", fmt.Errorf("profile %s: device returned no stream uri", profileToken)
	}
	return resp.MediaURI.URI, nil
}
