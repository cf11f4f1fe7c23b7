package snapshot

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "zha_data.json")

	level := 47.0
	in := RunSnapshot{
		Timestamp: "2026-08-29T12:00:00Z",
		Devices: []DeviceSnapshot{
			{
				Name:         "Hall Plug",
				IEEE:         "00:11:22:33:44:55:66:77",
				Area:         "Kitchen",
				Sensors:      []string{"sensor.plug_battery"},
				BatteryLevel: &level,
				Neighbors:    []json.RawMessage{},
				OfflineCount: 2,
			},
		},
	}

	if err := Write(path, in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Timestamp != in.Timestamp || len(out.Devices) != 1 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if out.Devices[0].BatteryLevel == nil || *out.Devices[0].BatteryLevel != 47.0 {
		t.Fatalf("battery level lost: %+v", out.Devices[0])
	}
}

func TestWrite_OmitsAbsentBatteryLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zha_data.json")
	snap := RunSnapshot{
		Timestamp: "2026-08-29T12:00:00Z",
		Devices:   []DeviceSnapshot{{Name: "Plug", Neighbors: []json.RawMessage{}, Sensors: []string{}}},
	}
	if err := Write(path, snap); err != nil {
		t.Fatalf("Write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "battery_level") {
		t.Fatalf("expected battery_level to be omitted, got %s", raw)
	}
	if !strings.Contains(string(raw), `"neighbors": []`) {
		t.Fatalf("expected empty neighbors array, got %s", raw)
	}
}

func TestWrite_ReplacesPreviousSnapshotWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zha_data.json")
	if err := Write(path, RunSnapshot{Timestamp: "old", Devices: []DeviceSnapshot{{Name: "a"}, {Name: "b"}}}); err != nil {
		t.Fatal(err)
	}
	if err := Write(path, RunSnapshot{Timestamp: "new", Devices: []DeviceSnapshot{{Name: "c"}}}); err != nil {
		t.Fatal(err)
	}

	out, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if out.Timestamp != "new" || len(out.Devices) != 1 {
		t.Fatalf("expected wholesale replacement, got %+v", out)
	}
}

func TestWrite_LeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	if err := Write(filepath.Join(dir, "zha_data.json"), RunSnapshot{Timestamp: "t"}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "zha_data.json" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}
