package binding

import (
	"fmt"
	"time"
)

// Service namespaces.
const (
	NamespaceDevice  = "http://www.onvif.org/ver10/device/wsdl"
	NamespaceMedia   = "http://www.onvif.org/ver10/media/wsdl"
	NamespaceEvents  = "http://www.onvif.org/ver10/events/wsdl"
	NamespacePTZ     = "http://www.onvif.org/ver20/ptz/wsdl"
	NamespaceImaging = "http://www.onvif.org/ver20/imaging/wsdl"

	// namespaceSubscriptionManager covers the WS-BaseNotification
	// operations of a pull point, which advertise their own actions.
	namespaceSubscriptionManager = "http://docs.oasis-open.org/wsn/bw-2/SubscriptionManager"
)

// DevicePath is the well-known device service path every conformant device
// answers on.
const DevicePath = "/onvif/device_service"

// Descriptor is the address-free binding metadata for one service kind.
// Descriptors are shared between sessions; treat them as read-only.
type Descriptor struct {
	// Kind is the service this descriptor binds.
	Kind Kind

	// Namespace is the service WSDL namespace. Request payloads and
	// regular action URIs live under it.
	Namespace string

	// Path is the well-known service path, where the kind has one.
	// Empty for kinds resolved through capability discovery.
	Path string

	// AttachCredential marks operations of this kind as authenticated
	// when a credential is available.
	AttachCredential bool

	// Capture marks exchanges of this kind as capture-worthy.
	Capture bool

	// ConnectTimeout and ReceiveTimeout are the per-kind exchange
	// budgets applied when the caller brings no deadline of its own.
	ConnectTimeout time.Duration
	ReceiveTimeout time.Duration

	// actions overrides the namespace/operation action rule for
	// operations whose WSDL declares an irregular action URI.
	actions map[string]string
}

// ActionURI returns the SOAP action for an operation of this service.
func (d *Descriptor) ActionURI(op string) string {
	if uri, ok := d.actions[op]; ok {
		return uri
	}
	return d.Namespace + "/" + op
}

// newDescriptor builds the descriptor for kind. Panics for a kind outside
// the known set; the cache only ever asks for declared kinds.
func newDescriptor(kind Kind) *Descriptor {
	d := &Descriptor{
		Kind:             kind,
		AttachCredential: true,
		Capture:          true,
		ConnectTimeout:   36 * time.Second,
		ReceiveTimeout:   32 * time.Second,
	}

	switch kind {
	case KindDevice:
		d.Namespace = NamespaceDevice
		d.Path = DevicePath
	case KindMedia:
		d.Namespace = NamespaceMedia
	case KindPTZ:
		d.Namespace = NamespacePTZ
	case KindImaging:
		d.Namespace = NamespaceImaging
	case KindEvents:
		d.Namespace = NamespaceEvents
		// Long polls need headroom beyond the regular exchange budget.
		d.ReceiveTimeout = 70 * time.Second
		d.actions = map[string]string{
			"CreatePullPointSubscription": NamespaceEvents + "/EventPortType/CreatePullPointSubscriptionRequest",
			"GetEventProperties":          NamespaceEvents + "/EventPortType/GetEventPropertiesRequest",
			"PullMessages":                NamespaceEvents + "/PullPointSubscription/PullMessagesRequest",
			"SetSynchronizationPoint":     NamespaceEvents + "/PullPointSubscription/SetSynchronizationPointRequest",
			"Renew":                       namespaceSubscriptionManager + "/RenewRequest",
			"Unsubscribe":                 namespaceSubscriptionManager + "/UnsubscribeRequest",
		}
	default:
		panic(fmt.Sprintf("binding: unknown kind %d", kind))
	}
	return d
}
