package binding

import (
	"context"
	"errors"
	"time"

	"github.com/nvtkit/onvif-go/pkg/transport"
)

// ErrNoInvoker reports a handle bound without a transport.
var ErrNoInvoker = errors.New("handle has no invoker")

// BindOptions carries the per-device parts of a binding.
type BindOptions struct {
	// Invoker performs the exchanges. Required.
	Invoker transport.Invoker

	// Credential authenticates calls; nil calls anonymously.
	Credential *transport.Credential

	// SessionID labels capture events from this handle.
	SessionID string

	// ClockOffset supplies the device clock skew applied to security
	// token timestamps. Nil means no adjustment.
	ClockOffset func() time.Duration
}

// Handle is a descriptor bound to one endpoint address.
type Handle struct {
	desc *Descriptor
	addr string
	opts BindOptions
}

// Bind attaches desc to the service endpoint at addr.
func Bind(desc *Descriptor, addr string, opts BindOptions) *Handle {
	return &Handle{desc: desc, addr: addr, opts: opts}
}

// Rebind returns a handle for addr sharing this handle's descriptor,
// credential, and transport. The descriptor cache is not consulted.
func (h *Handle) Rebind(addr string) *Handle {
	return &Handle{desc: h.desc, addr: addr, opts: h.opts}
}

// Descriptor returns the bound service metadata.
func (h *Handle) Descriptor() *Descriptor {
	return h.desc
}

// Endpoint returns the bound service address.
func (h *Handle) Endpoint() string {
	return h.addr
}

// Call performs one operation of the bound service. The action URI comes
// from the descriptor; req is the operation element, resp receives the
// response body (nil discards it). When ctx carries no deadline the
// descriptor's receive timeout bounds the exchange.
func (h *Handle) Call(ctx context.Context, op string, req, resp any) error {
	if h.opts.Invoker == nil {
		return ErrNoInvoker
	}

	call := &transport.Call{
		Endpoint:  h.addr,
		Action:    h.desc.ActionURI(op),
		Request:   req,
		Response:  resp,
		SessionID: h.opts.SessionID,
		Service:   h.desc.Kind.String(),
		NoCapture: !h.desc.Capture,
	}
	if h.desc.AttachCredential {
		call.Credential = h.opts.Credential
	}
	if h.opts.ClockOffset != nil {
		call.ClockOffset = h.opts.ClockOffset()
	}

	if _, ok := ctx.Deadline(); !ok && h.desc.ReceiveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.desc.ReceiveTimeout)
		defer cancel()
	}
	return h.opts.Invoker.Invoke(ctx, call)
}
