package device

import (
	"github.com/go-ble/ble"
	"github.com/srg/remotte/internal/bledb"
)

// NormalizeUUID is re-exported from bledb for convenience.
// It converts a UUID string to the internal BLE library format (lowercase, no dashes).
func NormalizeUUID(uuid string) string {
	return bledb.NormalizeUUID(uuid)
}

// UUIDKey returns the normalized string form of u, suitable as a map key.
func UUIDKey(u ble.UUID) string {
	if len(u) == 0 {
		return ""
	}
	return bledb.NormalizeUUID(u.String())
}

// SameUUID reports whether a and b name the same attribute.
func SameUUID(a, b ble.UUID) bool {
	return UUIDKey(a) == UUIDKey(b)
}

// ShortenUUID returns a truncated version of a UUID for display purposes.
// Returns the first eight characters for long UUIDs and short UUIDs by themselves.
func ShortenUUID(uuid string) string {
	if len(uuid) > 8 {
		return uuid[:8]
	}
	return uuid
}

// DisplayName returns the known name for u, falling back to its short form.
func DisplayName(u ble.UUID) string {
	key := UUIDKey(u)
	if name := bledb.Lookup(key); name != "" {
		return name
	}
	return ShortenUUID(key)
}
