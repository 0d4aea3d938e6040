package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/klauspost/compress/zstd"

	"github.com/pthm-cable/fauna/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("", false)
	if err != nil || om != nil {
		t.Fatalf("empty dir should disable output, got %v, %v", om, err)
	}
	// nil manager is a no-op
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Errorf("nil WriteTelemetry: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestOutputManagerCSV(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, false)
	if err != nil {
		t.Fatal(err)
	}

	for _, end := range []uint64{600, 1200} {
		if err := om.WriteTelemetry(WindowStats{WindowEndTick: end, Herbivores: 12, Kills: 1}); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.WriteGoals([]GoalRow{{WindowEnd: 600, Behavior: "ToFood", Started: 3, Completed: 2}}); err != nil {
		t.Fatal(err)
	}
	if err := om.WriteBookmark(Bookmark{Type: BookmarkKillSpike, Tick: 1200, Description: "spike"}); err != nil {
		t.Fatal(err)
	}
	if err := om.WriteConfig(config.Cfg()); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var rows []WindowStats
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("telemetry rows = %d, want 2 (header written once)", len(rows))
	}
	if rows[1].WindowEndTick != 1200 || rows[1].Herbivores != 12 || rows[1].Kills != 1 {
		t.Errorf("row = %+v", rows[1])
	}

	for _, name := range []string{"goals.csv", "perf.csv", "bookmarks.csv", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestOutputManagerCompressed(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	rows := []GoalRow{
		{WindowEnd: 600, Behavior: "ToHunt", Started: 4, Completed: 1, Failed: 3},
		{WindowEnd: 600, Behavior: "ToWater", Started: 2, Completed: 2},
	}
	if err := om.WriteGoals(rows); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "goals.csv.zst"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()

	var got []GoalRow
	if err := gocsv.Unmarshal(dec, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != rows[0] || got[1] != rows[1] {
		t.Errorf("goals = %+v, want %+v", got, rows)
	}
}
