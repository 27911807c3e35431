package wire

import (
	"strings"
)

// SOAP 1.2 fault code local names.
const (
	// FaultCodeSender marks a request the device considers invalid.
	// Resending the same request cannot succeed.
	FaultCodeSender = "Sender"

	// FaultCodeReceiver marks a failure on the device side. The request
	// itself may be fine.
	FaultCodeReceiver = "Receiver"
)

// Well-known fault subcodes from the WS-BaseNotification bindings. Devices
// prefix these with their own namespace prefixes; match with HasSubcode.
const (
	// SubcodeResourceUnknown means the addressed subscription manager no
	// longer exists (expired or unsubscribed).
	SubcodeResourceUnknown = "ResourceUnknownFault"

	// SubcodeInvalidFilter means the subscription filter was rejected.
	SubcodeInvalidFilter = "InvalidFilterFault"

	// SubcodeInvalidTopicExpression means a topic expression did not parse
	// under the requested dialect.
	SubcodeInvalidTopicExpression = "InvalidTopicExpressionFault"

	// SubcodeTopicNotSupported means the topic is valid but not offered.
	SubcodeTopicNotSupported = "TopicNotSupportedFault"

	// SubcodeUnacceptableInitialTerminationTime means the requested
	// subscription lifetime was refused.
	SubcodeUnacceptableInitialTerminationTime = "UnacceptableInitialTerminationTimeFault"

	// SubcodeUnacceptableTerminationTime is the Renew-time equivalent.
	SubcodeUnacceptableTerminationTime = "UnacceptableTerminationTimeFault"

	// SubcodeUnableToCreatePullPoint means the device cannot take another
	// pull-point subscription right now.
	SubcodeUnableToCreatePullPoint = "UnableToCreatePullPointFault"
)

// Fault is a SOAP fault returned by a device.
type Fault struct {
	// Code is the top-level fault code as transmitted (prefix retained),
	// normally mapping to Sender or Receiver.
	Code string

	// Subcodes is the subcode chain, outermost first, prefixes retained.
	Subcodes []string

	// Reason is the human-readable fault text.
	Reason string

	// Detail is the raw inner XML of the Detail element, if any.
	Detail string
}

// Error renders the fault compactly: code, subcode chain, reason.
func (f *Fault) Error() string {
	var b strings.Builder
	b.WriteString("soap fault ")
	b.WriteString(f.Code)
	for _, sc := range f.Subcodes {
		b.WriteByte('/')
		b.WriteString(sc)
	}
	if f.Reason != "" {
		b.WriteString(": ")
		b.WriteString(f.Reason)
	}
	return b.String()
}

// HasSubcode reports whether any subcode in the chain has the given local
// name, ignoring namespace prefixes.
func (f *Fault) HasSubcode(local string) bool {
	for _, sc := range f.Subcodes {
		if localName(sc) == local {
			return true
		}
	}
	return false
}

// IsSenderFault reports whether the device blamed the request.
func (f *Fault) IsSenderFault() bool {
	return localName(f.Code) == FaultCodeSender
}

// IsReceiverFault reports whether the device blamed itself.
func (f *Fault) IsReceiverFault() bool {
	return localName(f.Code) == FaultCodeReceiver
}

// localName strips a namespace prefix from a qualified name.
func localName(qname string) string {
	if i := strings.LastIndexByte(qname, ':'); i >= 0 {
		return qname[i+1:]
	}
	return qname
}

// faultXML matches the SOAP 1.2 fault layout on decode.
type faultXML struct {
	Code   faultCode `xml:"Code"`
	Reason struct {
		Text []string `xml:"Text"`
	} `xml:"Reason"`
	Detail struct {
		Inner string `xml:",innerxml"`
	} `xml:"Detail"`
}

type faultCode struct {
	Value   string     `xml:"Value"`
	Subcode *faultCode `xml:"Subcode"`
}

// fault flattens the parsed XML into the exported Fault type.
func (x *faultXML) fault() *Fault {
	f := &Fault{
		Code:   strings.TrimSpace(x.Code.Value),
		Detail: strings.TrimSpace(x.Detail.Inner),
	}
	for sc := x.Code.Subcode; sc != nil; sc = sc.Subcode {
		if v := strings.TrimSpace(sc.Value); v != "" {
			f.Subcodes = append(f.Subcodes, v)
		}
	}
	if len(x.Reason.Text) > 0 {
		f.Reason = strings.TrimSpace(x.Reason.Text[0])
	}
	return f
}
