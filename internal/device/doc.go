// Package device defines the boundary between a remotte session and the radio:
// the asynchronous Transport interface, the Callbacks it reports through,
// the shared error taxonomy, and UUID helpers.
//
// Concrete transports live in subpackages (see go-ble).
package device
