package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileIsEmptyLedger(t *testing.T) {
	l, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(l) != 0 {
		t.Fatalf("expected empty ledger, got %v", l)
	}
}

func TestLoad_CorruptFileIsEmptyLedgerWithError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := Load(path)
	if err == nil {
		t.Fatalf("expected parse error for diagnostics")
	}
	if len(l) != 0 {
		t.Fatalf("expected empty ledger on corrupt file, got %v", l)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "ledger.json")
	in := Ledger{
		"00:11:22:33:44:55:66:77": {Count: 3, WasOffline: true},
		"aa:bb:cc:dd:ee:ff:00:11": {Count: 0, WasOffline: false},
	}

	if err := Save(path, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 || out["00:11:22:33:44:55:66:77"] != in["00:11:22:33:44:55:66:77"] {
		t.Fatalf("round trip mismatch: %v", out)
	}
}

func TestSave_ReplacesExistingFileWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := Save(path, Ledger{"old": {Count: 9}}); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, Ledger{"new": {Count: 1}}); err != nil {
		t.Fatal(err)
	}

	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := out["old"]; ok {
		t.Fatalf("expected wholesale replacement, got %v", out)
	}
}

func TestIsOffline(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	threshold := 60 * time.Minute

	tests := []struct {
		name     string
		lastSeen string
		want     bool
	}{
		{"recent", "2026-08-29T11:30:00+00:00", false},
		{"exactly at threshold", "2026-08-29T11:00:00+00:00", false},
		{"stale", "2026-08-29T10:59:59+00:00", true},
		{"absent", "", true},
		{"unparseable", "yesterday-ish", true},
		{"naive layout recent", "2026-08-29T11:45:00.123456", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOffline(tt.lastSeen, now, threshold); got != tt.want {
				t.Fatalf("IsOffline(%q) = %v, want %v", tt.lastSeen, got, tt.want)
			}
		})
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		prev    Entry
		offline bool
		want    Entry
	}{
		{"online stays online", Entry{Count: 2, WasOffline: false}, false, Entry{Count: 2, WasOffline: false}},
		{"goes offline", Entry{Count: 2, WasOffline: false}, true, Entry{Count: 3, WasOffline: true}},
		{"stays offline no double count", Entry{Count: 3, WasOffline: true}, true, Entry{Count: 3, WasOffline: true}},
		{"comes back online", Entry{Count: 3, WasOffline: true}, false, Entry{Count: 3, WasOffline: false}},
		{"first seen offline", Entry{}, true, Entry{Count: 1, WasOffline: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transition(tt.prev, tt.offline); got != tt.want {
				t.Fatalf("Transition(%+v, %v) = %+v, want %+v", tt.prev, tt.offline, got, tt.want)
			}
		})
	}
}

func TestClone_DoesNotAliasOriginal(t *testing.T) {
	orig := Ledger{"a": {Count: 1}}
	c := orig.Clone()
	c["a"] = Entry{Count: 5}
	c["b"] = Entry{Count: 1}

	if orig["a"].Count != 1 || len(orig) != 1 {
		t.Fatalf("original mutated: %v", orig)
	}
}
