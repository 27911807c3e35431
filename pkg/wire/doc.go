// Package wire implements the SOAP 1.2 wire format for ONVIF exchanges.
//
// Every ONVIF operation is one HTTP POST carrying a SOAP envelope. This
// package builds request envelopes and takes response envelopes apart; it
// knows nothing about HTTP, which is pkg/transport's job.
//
// # Envelope Layout
//
// Requests carry WS-Addressing headers (Action, MessageID, ReplyTo, To) and
// optionally a WS-Security header. The body holds exactly one operation
// element, marshalled from the typed payload structs of the service
// packages.
//
// # WS-Security
//
// Devices authenticate requests with the UsernameToken profile: a password
// digest computed as Base64(SHA1(nonce || created || password)) over a
// random nonce and a UTC timestamp. Devices validate the timestamp against
// their own clock, so Security carries an optional clock offset.
//
// # Faults
//
// A response body holding a SOAP Fault decodes into *Fault, which implements
// error. The fault's subcode chain is what distinguishes "subscription no
// longer exists" from "device had a bad moment", so Fault keeps the chain
// intact for callers to match on.
package wire
