package snapshot

import "encoding/json"

// DeviceRecord is a raw device row as returned by the hub's device-list pull.
type DeviceRecord struct {
	IEEE          string `json:"ieee"`
	DeviceRegID   string `json:"device_reg_id"`
	Name          string `json:"name"`
	UserGivenName string `json:"user_given_name"`
	AreaID        string `json:"area_id"`
	Manufacturer  string `json:"manufacturer"`
	Model         string `json:"model"`
	Quirk         string `json:"quirk_class"`
	LQI           *int   `json:"lqi"`
	RSSI          *int   `json:"rssi"`
	NWK           int    `json:"nwk"`
	DeviceType    string `json:"device_type"`
	PowerSource   string `json:"power_source"`
	LastSeen      string `json:"last_seen"`
}

// DeviceSnapshot is the enriched per-device output record.
//
// Neighbors is protocol-dependent and passed through verbatim; it is always a
// non-nil sequence, empty when the capability is unavailable. BatteryLevel is
// omitted entirely when no usable battery reading exists.
type DeviceSnapshot struct {
	Name         string            `json:"name"`
	IEEE         string            `json:"ieee"`
	LastSeen     string            `json:"last_seen,omitempty"`
	Area         string            `json:"area"`
	Manufacturer string            `json:"manufacturer"`
	Model        string            `json:"model"`
	Quirk        string            `json:"quirk"`
	LQI          *int              `json:"lqi"`
	RSSI         *int              `json:"rssi"`
	NWK          int               `json:"nwk"`
	DeviceType   string            `json:"device_type"`
	PowerSource  string            `json:"power_source"`
	Sensors      []string          `json:"sensors"`
	BatteryLevel *float64          `json:"battery_level,omitempty"`
	Neighbors    []json.RawMessage `json:"neighbors"`
	OfflineCount int               `json:"offline_count"`
	Offline      bool              `json:"offline"`
}

// RunSnapshot is the complete output of one collection run. A new snapshot
// replaces the previous one wholesale.
type RunSnapshot struct {
	Timestamp string           `json:"timestamp"`
	Devices   []DeviceSnapshot `json:"devices"`
}
