// Package transport moves SOAP envelopes between this process and ONVIF
// devices over HTTP.
//
// The transport layer handles:
//   - HTTP POST delivery with connect and receive timeouts
//   - WS-Security UsernameToken attachment
//   - HTTP digest fallback for devices that reject UsernameToken
//   - Response size limiting and fault extraction
//   - Protocol capture events for every exchange
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│    Operation payload structs   │
//	├────────────────────────────────┤
//	│     SOAP 1.2 (pkg/wire)        │
//	├────────────────────────────────┤
//	│      HTTP/1.1 POST             │
//	├────────────────────────────────┤
//	│       TCP (+TLS)               │
//	└────────────────────────────────┘
//
// # Authentication
//
// Calls carrying a Credential get a WS-Security UsernameToken header. Some
// devices ignore that header and answer 401 with a digest challenge; the
// client then replays the call with RFC 2617 digest authentication and
// remembers the endpoint, so later calls take the digest path directly.
//
// # Timeouts
//
// ConnectTimeout bounds dialing. ReceiveTimeout bounds a whole exchange when
// the caller's context carries no deadline; event pulls pass their own
// deadlines with headroom above the long-poll window.
package transport
