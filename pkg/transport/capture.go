package transport

import (
	"strings"
	"time"

	"github.com/nvtkit/onvif-go/pkg/log"
	"github.com/nvtkit/onvif-go/pkg/wire"
)

func (c *Client) captureExchange(call *Call, reqBody, respBody []byte, status int, rtt time.Duration, viaDigest bool, fault *wire.Fault) {
	if c.config.Capture == nil || call.NoCapture {
		return
	}

	ex := &log.ExchangeEvent{
		Action:       call.Action,
		Status:       status,
		RTT:          rtt,
		RequestSize:  len(reqBody),
		ResponseSize: len(respBody),
		Digest:       viaDigest,
	}
	var reqTrunc, respTrunc bool
	ex.Request, reqTrunc = clip(reqBody, c.config.CaptureLimit)
	ex.Response, respTrunc = clip(respBody, c.config.CaptureLimit)
	ex.Truncated = reqTrunc || respTrunc
	if fault != nil {
		parts := append([]string{fault.Code}, fault.Subcodes...)
		ex.Fault = strings.Join(parts, "/")
	}

	c.config.Capture.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: call.SessionID,
		Endpoint:  call.Endpoint,
		Service:   call.Service,
		Category:  log.CategoryExchange,
		Exchange:  ex,
	})
}

func (c *Client) captureError(call *Call, err error) {
	if c.config.Capture == nil || call.NoCapture {
		return
	}
	c.config.Capture.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: call.SessionID,
		Endpoint:  call.Endpoint,
		Service:   call.Service,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Message: err.Error(),
			Context: call.Action,
			Timeout: IsTimeout(err),
		},
	})
}

// clip copies at most limit bytes of b for the capture record.
func clip(b []byte, limit int) ([]byte, bool) {
	if len(b) <= limit {
		return b, false
	}
	out := make([]byte, limit)
	copy(out, b)
	return out, true
}
