package snapshot

import (
	"testing"

	"zha_status/core-go/internal/registry"
)

func TestResolveName(t *testing.T) {
	tests := []struct {
		name string
		dev  DeviceRecord
		want string
	}{
		{"user name wins", DeviceRecord{UserGivenName: "Hall Plug", Name: "TS011F"}, "Hall Plug"},
		{"service name fallback", DeviceRecord{Name: "TS011F"}, "TS011F"},
		{"whitespace user name ignored", DeviceRecord{UserGivenName: "  ", Name: "TS011F"}, "TS011F"},
		{"nothing known", DeviceRecord{}, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveName(tt.dev); got != tt.want {
				t.Fatalf("ResolveName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveArea(t *testing.T) {
	areas := map[string]string{"A1": "Kitchen"}

	if got := ResolveArea("A1", areas); got != "Kitchen" {
		t.Fatalf("resolved area = %q", got)
	}
	if got := ResolveArea("A9", areas); got != AreaUnresolved {
		t.Fatalf("unresolved area = %q, want %q", got, AreaUnresolved)
	}
	if got := ResolveArea("", areas); got != AreaNone {
		t.Fatalf("absent area = %q, want %q", got, AreaNone)
	}
}

func TestIsBatterySensor(t *testing.T) {
	tests := []struct {
		name string
		ent  registry.EntityRecord
		want bool
	}{
		{
			"device class battery",
			registry.EntityRecord{EntityID: "sensor.plug_power_cell", DeviceClass: "battery"},
			true,
		},
		{
			"id substring with percent unit",
			registry.EntityRecord{EntityID: "sensor.plug_battery", UnitOfMeasurement: "%"},
			true,
		},
		{
			"id substring case insensitive",
			registry.EntityRecord{EntityID: "sensor.Plug_BATTERY_level", UnitOfMeasurement: "%"},
			true,
		},
		{
			"id substring wrong unit",
			registry.EntityRecord{EntityID: "sensor.plug_battery_voltage", UnitOfMeasurement: "V"},
			false,
		},
		{
			"neither",
			registry.EntityRecord{EntityID: "sensor.plug_power", DeviceClass: "power", UnitOfMeasurement: "W"},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBatterySensor(tt.ent); got != tt.want {
				t.Fatalf("IsBatterySensor(%+v) = %v, want %v", tt.ent, got, tt.want)
			}
		})
	}
}

func TestBatteryLevel(t *testing.T) {
	if v, ok := BatteryLevel("47"); !ok || v != 47.0 {
		t.Fatalf("BatteryLevel(47) = %v, %v", v, ok)
	}
	if v, ok := BatteryLevel(" 99.5 "); !ok || v != 99.5 {
		t.Fatalf("BatteryLevel(99.5) = %v, %v", v, ok)
	}
	if _, ok := BatteryLevel("unavailable"); ok {
		t.Fatalf("expected unavailable to be non-numeric")
	}
	if _, ok := BatteryLevel(""); ok {
		t.Fatalf("expected empty state to be non-numeric")
	}
}
