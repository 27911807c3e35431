// Package binding holds the per-service SOAP binding metadata and the
// process-wide descriptor cache.
//
// # Descriptors
//
// A Descriptor captures everything about one ONVIF service kind that does
// not depend on a particular device: the service namespace, the action URI
// scheme, the credential policy, and the timeout defaults. Descriptors are
// built once per kind and shared; they never embed a device address.
//
// # Cache
//
// Cache deduplicates descriptor construction. The shared process-wide
// instance is reached through SharedCache; sessions may carry their own
// cache instead, which keeps tests independent of process state.
//
// # Handles
//
// Bind attaches a descriptor to a concrete endpoint address, producing a
// Handle that performs operations through a transport.Invoker. Binding the
// same descriptor to many addresses is the normal path: a pull-point
// subscription manager gets its own Handle sharing the events descriptor.
package binding
