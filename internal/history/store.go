// Package history is an optional Postgres sink that records one row per
// collection run plus per-device observations. The file snapshot stays the
// source of truth; history exists for trend queries and is always best-effort.
package history

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"zha_status/core-go/internal/snapshot"
)

const schema = `
CREATE TABLE IF NOT EXISTS collector_runs (
	id            BIGSERIAL PRIMARY KEY,
	started_at    TIMESTAMPTZ NOT NULL,
	completed_at  TIMESTAMPTZ NOT NULL,
	device_count  INTEGER NOT NULL,
	offline_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS device_observations (
	run_id   BIGINT NOT NULL REFERENCES collector_runs(id) ON DELETE CASCADE,
	ieee     TEXT NOT NULL,
	name     TEXT NOT NULL,
	area     TEXT NOT NULL,
	lqi      INTEGER,
	rssi     INTEGER,
	battery  DOUBLE PRECISION,
	offline  BOOLEAN NOT NULL,
	offline_count INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS device_observations_ieee_idx
	ON device_observations (ieee, run_id);
`

type Store struct {
	pool *pgxpool.Pool
}

// Open connects, verifies connectivity, and ensures the schema exists.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	p, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	if _, err := p.Exec(ctx, schema); err != nil {
		p.Close()
		return nil, err
	}

	return &Store{pool: p}, nil
}

func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// RunRecord summarizes one completed collection run.
type RunRecord struct {
	StartedAt    time.Time
	CompletedAt  time.Time
	DeviceCount  int
	OfflineCount int
}

// RecordRun inserts the run row and its device observations in one
// transaction, so readers never see a run with half its devices.
func (s *Store) RecordRun(ctx context.Context, run RunRecord, devices []snapshot.DeviceSnapshot) error {
	if s == nil || s.pool == nil {
		return nil
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var runID int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO collector_runs (started_at, completed_at, device_count, offline_count)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			run.StartedAt, run.CompletedAt, run.DeviceCount, run.OfflineCount,
		).Scan(&runID); err != nil {
			return err
		}

		for _, d := range devices {
			if _, err := tx.Exec(ctx,
				`INSERT INTO device_observations (run_id, ieee, name, area, lqi, rssi, battery, offline, offline_count)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				runID, d.IEEE, d.Name, d.Area, d.LQI, d.RSSI, d.BatteryLevel, d.Offline, d.OfflineCount,
			); err != nil {
				return err
			}
		}
		return nil
	})
}
