package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"zha_status/core-go/internal/history"
	"zha_status/core-go/internal/ledger"
	"zha_status/core-go/internal/registry"
	"zha_status/core-go/internal/snapshot"
)

// datasets bundles the reference indices consumed by the snapshot build.
type datasets struct {
	areas    map[string]string
	entities map[string][]registry.EntityRecord
	states   map[string]registry.StateRecord
}

func (w *Worker) collect(ctx context.Context, start time.Time) error {
	prior, lerr := ledger.Load(w.ledgerPath)
	if lerr != nil {
		w.log.Warn().Err(lerr).Msg("ledger unreadable; starting from empty ledger")
	}

	sess, err := w.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = sess.Close() }()

	f := registry.NewFetcher(w.log, sess)

	ds := datasets{}
	if ds.areas, err = f.Areas(ctx); err != nil {
		return fmt.Errorf("fetch areas: %w", err)
	}
	if ds.entities, err = f.Entities(ctx); err != nil {
		return fmt.Errorf("fetch entities: %w", err)
	}
	if ds.states, err = f.States(ctx); err != nil {
		return fmt.Errorf("fetch states: %w", err)
	}

	devices, next, err := w.buildSnapshots(ctx, sess, ds, prior, start)
	if err != nil {
		return err
	}

	snap := snapshot.RunSnapshot{
		Timestamp: start.UTC().Format(time.RFC3339),
		Devices:   devices,
	}
	if err := snapshot.Write(w.snapshotPath, snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := ledger.Save(w.ledgerPath, next); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}

	offline := 0
	for _, d := range devices {
		if d.Offline {
			offline++
		}
	}
	w.metrics.SetDeviceCounts(len(devices), offline)
	w.log.Info().
		Int("devices", len(devices)).
		Int("offline", offline).
		Dur("took", time.Since(start)).
		Msg("collection run completed")

	if w.hist != nil {
		rec := history.RunRecord{
			StartedAt:    start,
			CompletedAt:  time.Now(),
			DeviceCount:  len(devices),
			OfflineCount: offline,
		}
		if err := w.hist.RecordRun(ctx, rec, devices); err != nil {
			w.log.Warn().Err(err).Msg("run history write failed")
		}
	}
	return nil
}

// buildSnapshots pulls the device list and produces one enriched record per
// device, updating the offline ledger as it goes. Devices are processed
// strictly in the order the hub returned them, with a fixed pacing pause in
// between.
func (w *Worker) buildSnapshots(ctx context.Context, sess Session, ds datasets, prior ledger.Ledger, now time.Time) ([]snapshot.DeviceSnapshot, ledger.Ledger, error) {
	env, err := sess.Call(ctx, "zha/devices", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch devices: %w", err)
	}

	var raw []snapshot.DeviceRecord
	if !env.OK() {
		w.log.Warn().Str("error", env.ErrorMessage()).Msg("device list pull refused; snapshot will be empty")
	} else if len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, &raw); err != nil {
			w.log.Warn().Err(err).Msg("device list undecodable; snapshot will be empty")
			raw = nil
		}
	}

	next := prior.Clone()
	out := make([]snapshot.DeviceSnapshot, 0, len(raw))

	for i, d := range raw {
		if i > 0 && w.deviceDelay > 0 {
			t := time.NewTimer(w.deviceDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, nil, ctx.Err()
			case <-t.C:
			}
		}

		sensors := make([]string, 0)
		var batteryEnt *registry.EntityRecord
		ents := ds.entities[d.DeviceRegID]
		for j := range ents {
			sensors = append(sensors, ents[j].EntityID)
			if batteryEnt == nil && snapshot.IsBatterySensor(ents[j]) {
				batteryEnt = &ents[j]
			}
		}

		var battery *float64
		if batteryEnt != nil {
			if st, ok := ds.states[batteryEnt.EntityID]; ok {
				if v, numeric := snapshot.BatteryLevel(st.State); numeric {
					battery = &v
				}
			}
		}

		neighbors, err := w.fetchNeighbors(ctx, sess, d.IEEE)
		if err != nil {
			return nil, nil, err
		}

		offline := ledger.IsOffline(d.LastSeen, now, w.offlineThreshold)
		entry := ledger.Transition(next[d.IEEE], offline)
		next[d.IEEE] = entry

		out = append(out, snapshot.DeviceSnapshot{
			Name:         snapshot.ResolveName(d),
			IEEE:         d.IEEE,
			LastSeen:     d.LastSeen,
			Area:         snapshot.ResolveArea(d.AreaID, ds.areas),
			Manufacturer: d.Manufacturer,
			Model:        d.Model,
			Quirk:        d.Quirk,
			LQI:          d.LQI,
			RSSI:         d.RSSI,
			NWK:          d.NWK,
			DeviceType:   d.DeviceType,
			PowerSource:  d.PowerSource,
			Sensors:      sensors,
			BatteryLevel: battery,
			Neighbors:    neighbors,
			OfflineCount: entry.Count,
			Offline:      offline,
		})
	}

	return out, next, nil
}

// fetchNeighbors pulls the mesh neighbor table for one device. The capability
// is optional on the hub side: a refusal or an undecodable payload degrades to
// an empty list, never to null.
func (w *Worker) fetchNeighbors(ctx context.Context, sess Session, ieee string) ([]json.RawMessage, error) {
	if !w.neighborsEnabled {
		return []json.RawMessage{}, nil
	}

	env, err := sess.Call(ctx, "zha/device_neighbors", map[string]any{"ieee": ieee})
	if err != nil {
		return nil, fmt.Errorf("fetch neighbors for %s: %w", ieee, err)
	}
	if !env.OK() {
		w.log.Debug().Str("ieee", ieee).Str("error", env.ErrorMessage()).Msg("neighbor pull unavailable")
		return []json.RawMessage{}, nil
	}

	var neighbors []json.RawMessage
	if len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, &neighbors); err != nil {
			w.log.Debug().Str("ieee", ieee).Err(err).Msg("neighbor payload undecodable")
			return []json.RawMessage{}, nil
		}
	}
	if neighbors == nil {
		neighbors = []json.RawMessage{}
	}
	return neighbors, nil
}
