package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/fauna/ai"
	"github.com/pthm-cable/fauna/config"
	"github.com/pthm-cable/fauna/scenario"
	"github.com/pthm-cable/fauna/systems"
	"github.com/pthm-cable/fauna/telemetry"
)

func init() {
	config.MustInit("")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSim(t *testing.T, cfg *config.Config, opts Options) *Sim {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	s, err := New(cfg, opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

const pasture = `
name: pasture
terrain:
  flat: true
  height: 1
vegetation:
  - position: [100, 100]
    radius: 30
    density: 1
spawns:
  - name: herd
    archetype: grazer
    position: [100, 100]
    count: 4
    spread: 8
  - name: stalker
    archetype: raptor
    position: [130, 100]
    targets:
      - spawn: herd
        kind: enemy
`

func loadPasture(t *testing.T) *scenario.Scenario {
	t.Helper()
	sc, err := scenario.Parse([]byte(pasture))
	if err != nil {
		t.Fatal(err)
	}
	return sc
}

// ---------- Construction ----------

func TestNewSpawnsArchetypeCounts(t *testing.T) {
	cfg := config.Cfg().Clone()
	s := newSim(t, cfg, Options{Seed: 1})

	want := 0
	for _, arch := range cfg.Archetypes {
		want += arch.Count
	}
	if got := s.Registry().Count(); got != want {
		t.Errorf("agents = %d, want %d", got, want)
	}

	herbs, carns := s.Population()
	if herbs+carns != want {
		t.Errorf("population = %d + %d, want %d", herbs, carns, want)
	}
	if s.Seed() != 1 {
		t.Errorf("seed = %d, want 1", s.Seed())
	}

	margin := cfg.Population.SpawnMargin
	s.Registry().Each(func(a *ai.Agent) {
		p := a.Position()
		if p.X < margin || p.Z < margin || p.X > cfg.World.Size-margin || p.Z > cfg.World.Size-margin {
			t.Errorf("agent %d spawned outside the margin at %v", a.Org.ID, p)
		}
	})
}

func TestNewWithScenario(t *testing.T) {
	cfg := config.Cfg().Clone()
	s := newSim(t, cfg, Options{Seed: 1, Scenario: loadPasture(t)})

	if got := s.Registry().Count(); got != 5 {
		t.Fatalf("agents = %d, want 5", got)
	}
	if len(s.Group("herd")) != 4 || len(s.Group("stalker")) != 1 {
		t.Errorf("groups herd=%d stalker=%d", len(s.Group("herd")), len(s.Group("stalker")))
	}
	if h := s.Terrain().GroundHeight(10, 10); h != 1 {
		t.Errorf("flat scenario terrain height = %v, want 1", h)
	}
}

func TestNewRejectsBadScenario(t *testing.T) {
	sc := loadPasture(t)
	sc.Spawns[0].Archetype = "unicorn"
	if _, err := New(config.Cfg().Clone(), Options{Seed: 1, Scenario: sc, Logger: quietLogger()}); err == nil {
		t.Error("expected an error for an unknown archetype")
	}
}

// ---------- Stepping ----------

func TestStepIsDeterministic(t *testing.T) {
	run := func() []float64 {
		s := newSim(t, config.Cfg().Clone(), Options{Seed: 7})
		for i := 0; i < 100; i++ {
			s.Step()
		}
		var out []float64
		s.Registry().Each(func(a *ai.Agent) {
			p := a.Position()
			out = append(out, p.X, p.Y, p.Z, a.Vitals.Food)
		})
		return out
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("agent counts differ: %d vs %d", len(a)/4, len(b)/4)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs diverged at value %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestStepMovesAgents(t *testing.T) {
	s := newSim(t, config.Cfg().Clone(), Options{Seed: 3, Scenario: loadPasture(t)})

	start := make(map[uint32]float64)
	s.Registry().Each(func(a *ai.Agent) {
		start[a.Org.ID] = a.Position().X + a.Position().Z
	})
	for i := 0; i < 200; i++ {
		s.Step()
	}
	if s.Tick() != 200 {
		t.Errorf("tick = %d, want 200", s.Tick())
	}

	moved := 0
	s.Registry().Each(func(a *ai.Agent) {
		if a.Position().X+a.Position().Z != start[a.Org.ID] {
			moved++
		}
	})
	if moved == 0 {
		t.Error("no agent moved in 200 ticks")
	}
}

func TestCorpsesDecay(t *testing.T) {
	cfg := config.Cfg().Clone()
	cfg.Sim.CorpseDecay = 1
	s := newSim(t, cfg, Options{Seed: 1, Scenario: loadPasture(t)})

	victim := s.Group("herd")[0]
	a, ok := s.Registry().Agent(victim)
	if !ok {
		t.Fatal("victim missing")
	}
	systems.Kill(a)

	// One second of decay at dt=0.05 plus a tick to exceed it
	for i := 0; i < 25; i++ {
		s.Step()
	}
	if _, ok := s.Registry().Agent(victim); ok {
		t.Error("carcass should have been removed")
	}
	if got := s.Registry().Count(); got != 4 {
		t.Errorf("agents = %d, want 4", got)
	}
}

func TestRunHonoursContext(t *testing.T) {
	s := newSim(t, config.Cfg().Clone(), Options{Seed: 1, Scenario: loadPasture(t)})

	if err := s.Run(context.Background(), 10); err != nil {
		t.Fatal(err)
	}
	if s.Tick() != 10 {
		t.Errorf("tick = %d, want 10", s.Tick())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

// ---------- Telemetry ----------

func TestStatsWindows(t *testing.T) {
	var windows []telemetry.WindowStats
	s := newSim(t, config.Cfg().Clone(), Options{
		Seed:           1,
		Scenario:       loadPasture(t),
		StatsWindowSec: 1,
		StatsCallback:  func(ws telemetry.WindowStats) { windows = append(windows, ws) },
	})

	for i := 0; i < 40; i++ {
		s.Step()
	}
	if len(windows) != 2 {
		t.Fatalf("windows = %d, want 2", len(windows))
	}
	if windows[0].WindowEndTick != 20 || windows[1].WindowStartTick != 20 {
		t.Errorf("window bounds = %d..%d", windows[0].WindowEndTick, windows[1].WindowStartTick)
	}
	if got := windows[0].Herbivores + windows[0].Carnivores + windows[0].Carcasses; got != 5 {
		t.Errorf("census = %d agents, want 5", got)
	}
	if windows[0].GoalsStarted == 0 {
		t.Error("expected goals to start in the first window")
	}
}

func TestOutputFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(config.Cfg().Clone(), Options{
		Seed:           1,
		Scenario:       loadPasture(t),
		StatsWindowSec: 1,
		OutputDir:      dir,
		Logger:         quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		s.Step()
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"config.yaml", "telemetry.csv", "goals.csv", "perf.csv", "bookmarks.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	info, err := os.Stat(filepath.Join(dir, "telemetry.csv"))
	if err == nil && info.Size() == 0 {
		t.Error("telemetry.csv is empty after a full window")
	}
}
