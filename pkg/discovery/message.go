package discovery

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/nvtkit/onvif-go/pkg/wire"
)

// WS-Discovery uses the April 2005 spec with its own addressing version,
// older than the one the SOAP transport speaks.
const (
	namespaceDiscovery  = "http://schemas.xmlsoap.org/ws/2005/04/discovery"
	namespaceAddressing = "http://schemas.xmlsoap.org/ws/2004/08/addressing"
	namespaceNetworkWSD = "http://www.onvif.org/ver10/network/wsdl"

	actionProbe = namespaceDiscovery + "/Probe"
	toDiscovery = "urn:schemas-xmlsoap-org:ws:2005:04:discovery"
)

// probeEnvelope is the marshalling scaffold for outgoing probes. The
// prefixed tag names are literal; encoding/xml has no prefix support on
// marshal, so the prefixes are declared as plain attributes on the root.
type probeEnvelope struct {
	XMLName xml.Name    `xml:"s:Envelope"`
	NSEnv   string      `xml:"xmlns:s,attr"`
	NSAddr  string      `xml:"xmlns:a,attr"`
	NSDisc  string      `xml:"xmlns:d,attr"`
	NSNet   string      `xml:"xmlns:dn,attr"`
	Header  probeHeader `xml:"s:Header"`
	Body    probeBody   `xml:"s:Body"`
}

type probeHeader struct {
	Action    string `xml:"a:Action"`
	MessageID string `xml:"a:MessageID"`
	To        string `xml:"a:To"`
}

type probeBody struct {
	Probe probePayload `xml:"d:Probe"`
}

type probePayload struct {
	Types string `xml:"d:Types"`
}

// encodeProbe serializes one probe datagram for the given qualified types.
func encodeProbe(id string, types []string) ([]byte, error) {
	env := probeEnvelope{
		NSEnv:  wire.NamespaceEnvelope,
		NSAddr: namespaceAddressing,
		NSDisc: namespaceDiscovery,
		NSNet:  namespaceNetworkWSD,
		Header: probeHeader{
			Action:    actionProbe,
			MessageID: "urn:uuid:" + id,
			To:        toDiscovery,
		},
	}
	env.Body.Probe.Types = strings.Join(types, " ")

	out, err := xml.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("marshal probe: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

type probeMatches struct {
	XMLName xml.Name     `xml:"ProbeMatches"`
	Matches []probeMatch `xml:"ProbeMatch"`
}

type probeMatch struct {
	EndpointReference struct {
		Address string `xml:"Address"`
	} `xml:"EndpointReference"`
	Types  string `xml:"Types"`
	Scopes string `xml:"Scopes"`
	XAddrs string `xml:"XAddrs"`
}

// parseAnswer decodes one ProbeMatches datagram. The whitespace-separated
// list fields are split into slices.
func parseAnswer(data []byte) ([]Match, error) {
	var pm probeMatches
	if err := wire.DecodeResponse(data, &pm); err != nil {
		return nil, err
	}

	out := make([]Match, 0, len(pm.Matches))
	for _, m := range pm.Matches {
		out = append(out, Match{
			EndpointRef: strings.TrimSpace(m.EndpointReference.Address),
			Types:       strings.Fields(m.Types),
			Scopes:      strings.Fields(m.Scopes),
			XAddrs:      strings.Fields(m.XAddrs),
		})
	}
	return out, nil
}
