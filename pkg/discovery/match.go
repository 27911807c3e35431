package discovery

import (
	"net/url"
	"strings"
)

// Match is one device that answered a probe.
type Match struct {
	// EndpointRef is the device's stable WS-Addressing identity,
	// typically in urn:uuid form.
	EndpointRef string

	// XAddrs lists the device service addresses the device advertises.
	// Any of them can seed a session.
	XAddrs []string

	// Types are the qualified device types from the answer.
	Types []string

	// Scopes are the scope URIs from the answer.
	Scopes []string
}

// scopePrefix starts every ONVIF-defined scope URI.
const scopePrefix = "onvif://www.onvif.org/"

// ScopeValue extracts the value of an onvif://www.onvif.org/<key>/... scope,
// URL-unescaped. Multi-segment values keep their inner slashes. The key is
// matched case-insensitively; the result is empty when the key is absent.
func (m Match) ScopeValue(key string) string {
	for _, s := range m.Scopes {
		rest, ok := strings.CutPrefix(s, scopePrefix)
		if !ok {
			continue
		}
		k, v, ok := strings.Cut(rest, "/")
		if !ok || !strings.EqualFold(k, key) {
			continue
		}
		if dec, err := url.PathUnescape(v); err == nil {
			return dec
		}
		return v
	}
	return ""
}

// Name returns the device's friendly name scope.
func (m Match) Name() string { return m.ScopeValue("name") }

// Hardware returns the device's hardware model scope.
func (m Match) Hardware() string { return m.ScopeValue("hardware") }

// Location returns the device's location scope.
func (m Match) Location() string { return m.ScopeValue("location") }

// HasType reports whether the answer carries the given type, compared by
// local name so the device's prefix choice does not matter.
func (m Match) HasType(local string) bool {
	for _, t := range m.Types {
		if i := strings.LastIndexByte(t, ':'); i >= 0 {
			t = t[i+1:]
		}
		if strings.EqualFold(t, local) {
			return true
		}
	}
	return false
}
