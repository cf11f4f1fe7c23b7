package registry

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"zha_status/core-go/internal/haws"
)

// Caller is the slice of a hub session the registry pulls need.
// *haws.Session satisfies this.
type Caller interface {
	Call(ctx context.Context, msgType string, fields map[string]any) (*haws.Envelope, error)
}

// AreaRecord is one entry of the hub's area registry.
type AreaRecord struct {
	AreaID string `json:"area_id"`
	Name   string `json:"name"`
}

// EntityRecord is one entry of the hub's entity registry. DeviceID is empty
// for entities not backed by a physical device.
type EntityRecord struct {
	EntityID          string `json:"entity_id"`
	DeviceID          string `json:"device_id"`
	DeviceClass       string `json:"device_class"`
	UnitOfMeasurement string `json:"unit_of_measurement"`
}

// StateRecord is the current state of one entity.
type StateRecord struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// Fetcher pulls the hub's reference registries and builds lookup indices for
// the snapshot joins. Each fetch is exactly one correlated request; a refused
// or malformed response degrades to an empty index rather than failing the
// run.
type Fetcher struct {
	log    zerolog.Logger
	caller Caller
}

func NewFetcher(log zerolog.Logger, caller Caller) *Fetcher {
	return &Fetcher{log: log, caller: caller}
}

// Areas returns area_id -> area name.
func (f *Fetcher) Areas(ctx context.Context) (map[string]string, error) {
	var records []AreaRecord
	if err := f.fetch(ctx, "config/area_registry/list", &records); err != nil {
		return nil, err
	}

	index := make(map[string]string, len(records))
	for _, r := range records {
		// Last write wins; the registry is key-unique in practice.
		index[r.AreaID] = r.Name
	}
	return index, nil
}

// Entities returns device_id -> entities, preserving response order per
// device. Entities without a device are dropped.
func (f *Fetcher) Entities(ctx context.Context) (map[string][]EntityRecord, error) {
	var records []EntityRecord
	if err := f.fetch(ctx, "config/entity_registry/list", &records); err != nil {
		return nil, err
	}

	index := make(map[string][]EntityRecord)
	for _, r := range records {
		if r.DeviceID == "" {
			continue
		}
		index[r.DeviceID] = append(index[r.DeviceID], r)
	}
	return index, nil
}

// States returns entity_id -> current state.
func (f *Fetcher) States(ctx context.Context) (map[string]StateRecord, error) {
	var records []StateRecord
	if err := f.fetch(ctx, "get_states", &records); err != nil {
		return nil, err
	}

	index := make(map[string]StateRecord, len(records))
	for _, r := range records {
		index[r.EntityID] = r
	}
	return index, nil
}

// fetch issues one correlated pull and decodes its result array into dst.
// Transport errors are returned as-is (fatal to the run). A success=false
// response or an undecodable result logs a warning and degrades to whatever
// was decoded, which downstream joins treat as missing data.
func (f *Fetcher) fetch(ctx context.Context, msgType string, dst any) error {
	env, err := f.caller.Call(ctx, msgType, nil)
	if err != nil {
		return err
	}
	if !env.OK() {
		f.log.Warn().
			Str("command", msgType).
			Str("error", env.ErrorMessage()).
			Msg("registry pull refused; continuing with empty dataset")
		return nil
	}
	if len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, dst); err != nil {
		f.log.Warn().
			Str("command", msgType).
			Err(err).
			Msg("registry pull undecodable; continuing with empty dataset")
	}
	return nil
}
