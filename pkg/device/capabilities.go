package device

import (
	"encoding/xml"
	"strings"

	"github.com/nvtkit/onvif-go/pkg/binding"
)

// Capabilities is the capability snapshot taken at session open. A nil
// section means the device did not report that service at all.
type Capabilities struct {
	Device  *DeviceCapability  `xml:"Device"`
	Media   *MediaCapability   `xml:"Media"`
	Events  *EventsCapability  `xml:"Events"`
	PTZ     *ServiceCapability `xml:"PTZ"`
	Imaging *ServiceCapability `xml:"Imaging"`
}

// ServiceCapability is the minimal capability entry: where the service
// answers.
type ServiceCapability struct {
	XAddr string `xml:"XAddr"`
}

// DeviceCapability describes the device management service.
type DeviceCapability struct {
	XAddr string `xml:"XAddr"`
}

// MediaCapability describes the media service and its streaming modes.
type MediaCapability struct {
	XAddr     string `xml:"XAddr"`
	Streaming struct {
		RTPMulticast bool `xml:"RTPMulticast"`
		RTPTCP       bool `xml:"RTP_TCP"`
		RTPRTSPTCP   bool `xml:"RTP_RTSP_TCP"`
	} `xml:"StreamingCapabilities"`
}

// EventsCapability describes the event service.
type EventsCapability struct {
	XAddr                       string `xml:"XAddr"`
	WSSubscriptionPolicySupport bool   `xml:"WSSubscriptionPolicySupport"`
	WSPullPointSupport          bool   `xml:"WSPullPointSupport"`
}

// XAddr returns the advertised address for kind. Entries that are missing
// or carry a blank address report false.
func (c Capabilities) XAddr(kind binding.Kind) (string, bool) {
	var addr string
	switch kind {
	case binding.KindDevice:
		if c.Device != nil {
			addr = c.Device.XAddr
		}
	case binding.KindMedia:
		if c.Media != nil {
			addr = c.Media.XAddr
		}
	case binding.KindEvents:
		if c.Events != nil {
			addr = c.Events.XAddr
		}
	case binding.KindPTZ:
		if c.PTZ != nil {
			addr = c.PTZ.XAddr
		}
	case binding.KindImaging:
		if c.Imaging != nil {
			addr = c.Imaging.XAddr
		}
	}
	addr = strings.TrimSpace(addr)
	return addr, addr != ""
}

// Empty reports a capability document with no service entries at all.
func (c Capabilities) Empty() bool {
	return c.Device == nil && c.Media == nil && c.Events == nil &&
		c.PTZ == nil && c.Imaging == nil
}

type getCapabilitiesRequest struct {
	XMLName  xml.Name `xml:"http://www.onvif.org/ver10/device/wsdl GetCapabilities"`
	Category []string `xml:"Category"`
}

type getCapabilitiesResponse struct {
	XMLName      xml.Name     `xml:"GetCapabilitiesResponse"`
	Capabilities Capabilities `xml:"Capabilities"`
}
