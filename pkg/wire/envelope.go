package wire

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Namespaces used in every envelope.
const (
	NamespaceEnvelope   = "http://www.w3.org/2003/05/soap-envelope"
	NamespaceAddressing = "http://www.w3.org/2005/08/addressing"

	// anonymousAddress is the WS-Addressing ReplyTo for request/response
	// exchanges over the same connection.
	anonymousAddress = "http://www.w3.org/2005/08/addressing/anonymous"
)

// Envelope-level errors.
var (
	ErrMissingAction = errors.New("request has no action URI")
	ErrMissingTo     = errors.New("request has no destination address")
	ErrMissingBody   = errors.New("request has no body payload")
	ErrEmptyBody     = errors.New("empty soap body")
)

// Request describes one outgoing SOAP request.
type Request struct {
	// Action is the SOAP action URI identifying the operation.
	Action string

	// To is the endpoint address the request is addressed to.
	To string

	// Security optionally carries the WS-Security UsernameToken header.
	Security *Security

	// Body is the single operation element of the request.
	Body any
}

// requestEnvelope is the marshalling scaffold for outgoing requests. The
// prefixed tag names are literal; encoding/xml has no prefix support on
// marshal, so the prefixes are declared as plain attributes on the root.
type requestEnvelope struct {
	XMLName xml.Name      `xml:"s:Envelope"`
	NSEnv   string        `xml:"xmlns:s,attr"`
	NSAddr  string        `xml:"xmlns:a,attr"`
	Header  requestHeader `xml:"s:Header"`
	Body    rawBody       `xml:"s:Body"`
}

type requestHeader struct {
	Action    flaggedText `xml:"a:Action"`
	MessageID string      `xml:"a:MessageID"`
	ReplyTo   replyTo     `xml:"a:ReplyTo"`
	To        flaggedText `xml:"a:To"`
	Security  *Security   `xml:"Security"`
}

// flaggedText is a text header element carrying s:mustUnderstand.
type flaggedText struct {
	MustUnderstand string `xml:"s:mustUnderstand,attr"`
	Value          string `xml:",chardata"`
}

type replyTo struct {
	Address string `xml:"a:Address"`
}

type rawBody struct {
	Inner []byte `xml:",innerxml"`
}

// EncodeRequest serializes req into a complete SOAP 1.2 envelope, including
// the XML declaration. A fresh urn:uuid MessageID is generated per call.
func EncodeRequest(req *Request) ([]byte, error) {
	switch {
	case req.Action == "":
		return nil, ErrMissingAction
	case req.To == "":
		return nil, ErrMissingTo
	case req.Body == nil:
		return nil, ErrMissingBody
	}

	body, err := xml.Marshal(req.Body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	env := requestEnvelope{
		NSEnv:  NamespaceEnvelope,
		NSAddr: NamespaceAddressing,
		Header: requestHeader{
			Action:    flaggedText{MustUnderstand: "1", Value: req.Action},
			MessageID: "urn:uuid:" + uuid.NewString(),
			ReplyTo:   replyTo{Address: anonymousAddress},
			To:        flaggedText{MustUnderstand: "1", Value: req.To},
			Security:  req.Security,
		},
		Body: rawBody{Inner: body},
	}

	out, err := xml.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// responseEnvelope matches incoming envelopes by local name only, so any
// namespace prefixing a device chooses is accepted.
type responseEnvelope struct {
	XMLName xml.Name     `xml:"Envelope"`
	Body    responseBody `xml:"Body"`
}

type responseBody struct {
	Fault *faultXML `xml:"Fault"`
	Inner []byte    `xml:",innerxml"`
}

// DecodeResponse parses a response envelope. A Fault body is returned as a
// *Fault error. Otherwise the first body element is unmarshalled into out;
// pass nil to discard the body (operations with empty responses).
func DecodeResponse(data []byte, out any) error {
	var env responseEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("malformed envelope: %w", err)
	}
	if env.Body.Fault != nil {
		return env.Body.Fault.fault()
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(env.Body.Inner)) == 0 {
		return ErrEmptyBody
	}
	if err := xml.Unmarshal(env.Body.Inner, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
