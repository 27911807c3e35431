package events

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nvtkit/onvif-go/pkg/binding"
	"github.com/nvtkit/onvif-go/pkg/duration"
)

// ConcreteSetDialect is the topic filter dialect every conformant device
// supports.
const ConcreteSetDialect = "http://www.onvif.org/ver10/tev/topicExpression/ConcreteSet"

// TopicNamespace is the root ONVIF topic namespace, declared on filter
// expressions so the customary tns1 prefix resolves.
const TopicNamespace = "http://www.onvif.org/ver10/topics"

// DefaultLifetime is the subscription lifetime requested when the caller
// passes none. Pulls refresh the expiry, so short is safe.
const DefaultLifetime = time.Minute

// Filter selects topics for a subscription.
type Filter struct {
	// Topics are concrete topic expressions, prefixes included
	// (tns1:RuleEngine/CellMotionDetector/Motion). Empty subscribes to
	// every topic.
	Topics []string
}

// Client runs event operations over a bound event-service handle.
type Client struct {
	h *binding.Handle
}

// NewClient wraps a bound event-service handle.
func NewClient(h *binding.Handle) *Client {
	return &Client{h: h}
}

// Handle returns the underlying bound handle.
func (c *Client) Handle() *binding.Handle {
	return c.h
}

type topicExpressionXML struct {
	XMLName xml.Name `xml:"http://docs.oasis-open.org/wsn/b-2 TopicExpression"`
	Dialect string   `xml:"Dialect,attr"`
	TNS1    string   `xml:"xmlns:tns1,attr"`
	Value   string   `xml:",chardata"`
}

type filterXML struct {
	TopicExpression []topicExpressionXML
}

type createPullPointRequest struct {
	XMLName                xml.Name   `xml:"http://www.onvif.org/ver10/events/wsdl CreatePullPointSubscription"`
	Filter                 *filterXML `xml:"Filter"`
	InitialTerminationTime string     `xml:"InitialTerminationTime"`
}

type createPullPointResponse struct {
	XMLName               xml.Name `xml:"CreatePullPointSubscriptionResponse"`
	SubscriptionReference struct {
		Address string `xml:"Address"`
	} `xml:"SubscriptionReference"`
	CurrentTime     string `xml:"CurrentTime"`
	TerminationTime string `xml:"TerminationTime"`
}

// CreatePullPoint creates a pull-point subscription with the given filter
// and lifetime (DefaultLifetime when zero). Device refusal of any shape,
// fault, transport error, or a malformed subscription reference, comes
// back wrapping ErrSubscriptionRejected; no subscription exists then.
func (c *Client) CreatePullPoint(ctx context.Context, filter Filter, lifetime time.Duration) (*Subscription, error) {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	req := createPullPointRequest{
		InitialTerminationTime: duration.Format(lifetime),
	}
	if len(filter.Topics) > 0 {
		req.Filter = &filterXML{}
		for _, topic := range filter.Topics {
			req.Filter.TopicExpression = append(req.Filter.TopicExpression, topicExpressionXML{
				Dialect: ConcreteSetDialect,
				TNS1:    TopicNamespace,
				Value:   topic,
			})
		}
	}

	var resp createPullPointResponse
	if err := c.h.Call(ctx, "CreatePullPointSubscription", &req, &resp); err != nil {
		return nil, fmt.Errorf("create pull point: %w: %w", ErrSubscriptionRejected, err)
	}

	addr := strings.TrimSpace(resp.SubscriptionReference.Address)
	if addr == "" {
		return nil, fmt.Errorf("create pull point: %w: device returned no manager address", ErrSubscriptionRejected)
	}
	if u, err := url.Parse(addr); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("create pull point: %w: malformed manager address %q", ErrSubscriptionRejected, addr)
	}

	sub := &Subscription{
		h:       c.h.Rebind(addr),
		address: addr,
		created: parseDeviceTime(resp.CurrentTime),
	}
	sub.termination = parseDeviceTime(resp.TerminationTime)
	if sub.termination.IsZero() {
		sub.termination = time.Now().Add(lifetime)
	}
	return sub, nil
}

type getEventPropertiesResponse struct {
	XMLName  xml.Name `xml:"GetEventPropertiesResponse"`
	TopicSet TopicSet `xml:"TopicSet"`
}

// TopicTree fetches the topic forest the device advertises.
func (c *Client) TopicTree(ctx context.Context) (TopicSet, error) {
	var resp getEventPropertiesResponse
	req := struct {
		XMLName xml.Name `xml:"http://www.onvif.org/ver10/events/wsdl GetEventProperties"`
	}{}
	if err := c.h.Call(ctx, "GetEventProperties", &req, &resp); err != nil {
		return TopicSet{}, err
	}
	return resp.TopicSet, nil
}
