// Package ledger tracks per-device offline state across collection runs.
// It is the only state in the collector that outlives a single run.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry is the persisted record for one device identity.
type Entry struct {
	Count      int  `json:"count"`
	WasOffline bool `json:"was_offline"`
}

// Ledger maps device identity (IEEE address) to its offline record.
// Entries are never deleted: a device that vanishes from the fleet keeps its
// last state and resumes counting if it reappears.
type Ledger map[string]Entry

// Clone returns a copy that can be mutated without touching the original.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Load reads the ledger file. A missing file is a normal first run and yields
// an empty ledger with no error. A corrupt file also yields an empty ledger,
// with the parse error returned so the caller can log it; it is never fatal.
func Load(path string) (Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Ledger{}, nil
		}
		return Ledger{}, err
	}

	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return Ledger{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if l == nil {
		l = Ledger{}
	}
	return l, nil
}

// Save writes the ledger atomically: the previous file stays intact until the
// replacement is fully on disk.
func Save(path string, l Ledger) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Timestamp layouts the hub has been seen emitting for last_seen.
var lastSeenLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// IsOffline is the staleness test: a device is offline when its last_seen is
// absent, unparseable, or older than now minus threshold.
func IsOffline(lastSeen string, now time.Time, threshold time.Duration) bool {
	lastSeen = strings.TrimSpace(lastSeen)
	if lastSeen == "" {
		return true
	}
	for _, layout := range lastSeenLayouts {
		if ts, err := time.Parse(layout, lastSeen); err == nil {
			return now.Sub(ts) > threshold
		}
	}
	return true
}

// Transition applies the counting rule: the count increments by exactly one
// on a false->true flip of the offline flag and in no other case.
func Transition(prev Entry, offline bool) Entry {
	next := Entry{Count: prev.Count, WasOffline: offline}
	if offline && !prev.WasOffline {
		next.Count++
	}
	return next
}
