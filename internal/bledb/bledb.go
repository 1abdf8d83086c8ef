// Package bledb resolves human-readable names for the GATT services,
// characteristics and descriptors a remotte session talks to.
//
// UUIDs are kept in the go-ble string form: lowercase, no dashes, and
// Bluetooth SIG base UUIDs collapsed to their 16-bit short form.
package bledb

import "strings"

const sigBaseSuffix = "00001000800000805f9b34fb"

// NormalizeUUID converts a UUID string to the internal BLE library format (lowercase, no dashes).
// Strips braces and a 0x prefix. Full 128-bit UUIDs in the Bluetooth SIG base
// (0000xxxx-0000-1000-8000-00805f9b34fb) collapse to the 16-bit form (xxxx).
func NormalizeUUID(uuid string) string {
	u := strings.ToLower(strings.TrimSpace(uuid))
	u = strings.TrimPrefix(u, "0x")
	u = strings.NewReplacer("-", "", "{", "", "}", "").Replace(u)

	if len(u) == 32 && strings.HasPrefix(u, "0000") && strings.HasSuffix(u, sigBaseSuffix) {
		return u[4:8]
	}
	return u
}

// NormalizeUUIDs normalizes a slice of UUID strings.
func NormalizeUUIDs(uuids []string) []string {
	out := make([]string, 0, len(uuids))
	for _, u := range uuids {
		out = append(out, NormalizeUUID(u))
	}
	return out
}

// LookupService returns the service name or "" when unknown.
func LookupService(uuid string) string {
	return services[NormalizeUUID(uuid)]
}

// LookupCharacteristic returns the characteristic name or "" when unknown.
func LookupCharacteristic(uuid string) string {
	return characteristics[NormalizeUUID(uuid)]
}

// LookupDescriptor returns the descriptor name or "" when unknown.
func LookupDescriptor(uuid string) string {
	return descriptors[NormalizeUUID(uuid)]
}

// Lookup searches services, characteristics and descriptors in that order.
func Lookup(uuid string) string {
	u := NormalizeUUID(uuid)
	if name, ok := services[u]; ok {
		return name
	}
	if name, ok := characteristics[u]; ok {
		return name
	}
	return descriptors[u]
}
