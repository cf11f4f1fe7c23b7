package snapshot

import (
	"strconv"
	"strings"

	"zha_status/core-go/internal/registry"
)

// Sentinels used when enrichment lookups come up empty.
const (
	UnknownName = "Unknown"

	// AreaNone means the device asserts no area at all; AreaUnresolved means
	// it asserts one the area registry does not know. Deliberately distinct.
	AreaNone       = "N/A"
	AreaUnresolved = "Unknown Area"
)

// ResolveName picks the user-assigned name, then the service-assigned name,
// then the Unknown sentinel.
func ResolveName(d DeviceRecord) string {
	if name := strings.TrimSpace(d.UserGivenName); name != "" {
		return name
	}
	if name := strings.TrimSpace(d.Name); name != "" {
		return name
	}
	return UnknownName
}

// ResolveArea maps the device's area id through the area index.
func ResolveArea(areaID string, areas map[string]string) string {
	if areaID == "" {
		return AreaNone
	}
	if name, ok := areas[areaID]; ok {
		return name
	}
	return AreaUnresolved
}

// IsBatterySensor reports whether an entity looks like a battery-level sensor:
// either its device class says so, or its id mentions "battery" and it is
// measured in percent.
func IsBatterySensor(e registry.EntityRecord) bool {
	if e.DeviceClass == "battery" {
		return true
	}
	return strings.Contains(strings.ToLower(e.EntityID), "battery") &&
		e.UnitOfMeasurement == "%"
}

// BatteryLevel coerces a state value to a number. Non-numeric states such as
// "unavailable" report ok=false, which renders as an absent battery level.
func BatteryLevel(state string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(state), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
