// Package device opens and manages sessions against ONVIF devices.
//
// # Opening
//
// Open normalizes the device address down to scheme, host, and port, binds
// the device service at its well-known path, and fetches the capability
// document in the same call. A session therefore always knows which
// services its device offers:
//
//	sess, err := device.Open(ctx, "10.0.0.5:8080", transport.Credential{
//		Username: "admin",
//		Password: "secret",
//	})
//
// Open fails with ErrUnreachable when the device does not answer and with
// ErrCapabilitiesMissing when it answers without any capability data.
//
// # Services
//
// Service handles for the other kinds resolve lazily from the capability
// snapshot on first use and stay bound for the session's lifetime. A kind
// the device never advertised stays unavailable; there is no re-probing.
// The typed accessors Media, PTZ, Imaging, and Events wrap Service with
// operation surfaces.
//
// # Clock offset
//
// Devices with drifted clocks reject security tokens stamped with client
// time. When Config.SyncClock is set, Open measures the offset against the
// device clock and every later call stamps its tokens accordingly. The
// offset refreshes on each SystemDateAndTime call.
package device
