package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Write serializes the snapshot and replaces path atomically, creating parent
// directories as needed. A reader never observes a partially written file.
func Write(path string, snap RunSnapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ErrNoSnapshot is returned by Load when no run has completed yet.
var ErrNoSnapshot = errors.New("snapshot: no snapshot file")

// Load reads the latest snapshot back, for the status API.
func Load(path string) (RunSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RunSnapshot{}, ErrNoSnapshot
		}
		return RunSnapshot{}, err
	}

	var snap RunSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return RunSnapshot{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return snap, nil
}
