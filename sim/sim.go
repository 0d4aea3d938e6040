// Package sim wires the decision core, the world and the physical systems
// into a headless fixed-step simulation.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fauna/ai"
	"github.com/pthm-cable/fauna/config"
	"github.com/pthm-cable/fauna/scenario"
	"github.com/pthm-cable/fauna/systems"
	"github.com/pthm-cable/fauna/telemetry"
	"github.com/pthm-cable/fauna/world"
)

// Options configures a simulation run.
type Options struct {
	Seed           int64              // 0 = time-based
	Scenario       *scenario.Scenario // nil = spawn archetype counts on generated terrain
	LogStats       bool               // log window stats, perf and bookmarks
	StatsWindowSec float64            // 0 = use config
	OutputDir      string             // empty = no CSV output
	Compress       bool               // zstd-compress CSV output
	Logger         *slog.Logger       // nil = slog.Default()

	// StatsCallback receives every flushed window, if set.
	StatsCallback func(telemetry.WindowStats)
}

// Sim owns one world and runs its per-tick pipeline.
type Sim struct {
	cfg    *config.Config
	rng    *rand.Rand
	seed   int64
	logger *slog.Logger

	terrain *world.Terrain
	reg     *world.Registry
	brain   *ai.Brain
	groups  map[string][]ecs.Entity

	collision  *systems.CollisionSystem
	locomotion *systems.LocomotionSystem
	combat     *systems.CombatSystem
	metabolism *systems.MetabolismSystem
	phases     *systems.SystemRegistry

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	bookmarks *telemetry.BookmarkDetector
	output    *telemetry.OutputManager

	logStats      bool
	statsCallback func(telemetry.WindowStats)

	tick       uint64
	corpseBuf  []ecs.Entity
	herbivores int
	carnivores int
	carcasses  int
}

// New builds a world from cfg and opts and spawns the initial population.
func New(cfg *config.Config, opts Options) (*Sim, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	seed := opts.Seed
	if opts.Scenario != nil && opts.Scenario.Seed != 0 {
		seed = opts.Scenario.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}

	s := &Sim{
		cfg:           cfg,
		rng:           rand.New(rand.NewSource(seed)),
		seed:          seed,
		logger:        logger,
		phases:        systems.NewSystemRegistry(),
		collector:     telemetry.NewCollector(statsWindow, cfg.Sim.DT),
		perf:          telemetry.NewPerfCollector(int(cfg.Derived.TicksPerSecond)),
		bookmarks:     telemetry.NewBookmarkDetector(10),
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
	}

	if sc := opts.Scenario; sc != nil {
		if err := sc.Check(cfg); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		s.terrain = sc.BuildTerrain(cfg, seed)
	} else {
		s.terrain = world.NewTerrain(cfg.World, seed)
	}

	s.reg = world.NewRegistry(cfg, s.terrain)
	s.brain = ai.NewBrain(cfg, s.reg, s.rng, logger)
	s.brain.SetRecorder(s.collector)

	s.collision = systems.NewCollisionSystem(s.reg)
	s.locomotion = systems.NewLocomotionSystem(s.reg, cfg.Steering)
	s.combat = systems.NewCombatSystem(s.reg, cfg, s.collector)
	s.metabolism = systems.NewMetabolismSystem(s.reg, cfg, s.collector)

	if sc := opts.Scenario; sc != nil {
		groups, err := sc.Populate(s.reg, cfg, s.rng)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		s.groups = groups
	} else {
		s.spawnInitialPopulation()
	}
	s.countPopulation()

	output, err := telemetry.NewOutputManager(opts.OutputDir, opts.Compress || cfg.Telemetry.Compress)
	if err != nil {
		return nil, err
	}
	s.output = output
	if err := output.WriteConfig(cfg); err != nil {
		output.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	scenarioName := ""
	if opts.Scenario != nil {
		scenarioName = opts.Scenario.Name
	}
	logger.Info("simulation ready",
		"seed", seed,
		"scenario", scenarioName,
		"agents", s.reg.Count(),
		"herbivores", s.herbivores,
		"carnivores", s.carnivores,
		"stats_window", statsWindow,
		"output_dir", output.Dir(),
	)
	return s, nil
}

// Step runs a single tick of the simulation.
func (s *Sim) Step() {
	dt := s.cfg.Sim.DT
	s.perf.StartTick()

	// 1. Re-bucket agents for neighbor queries
	s.perf.StartPhase(systems.PhaseSpatialGrid)
	s.brain.SetTick(s.tick)
	s.reg.Rebuild()

	// 2. Register obstacles ahead of each agent
	s.perf.StartPhase(systems.PhaseCollision)
	s.collision.Update()

	// 3. Decide: sensors, arbiter, steering, executor
	s.perf.StartPhase(systems.PhaseDecision)
	s.reg.Each(s.brain.Think)

	// 4. Move along the intent
	s.perf.StartPhase(systems.PhaseLocomotion)
	s.locomotion.Update(dt)

	// 5. Resolve bites
	s.perf.StartPhase(systems.PhaseCombat)
	s.combat.Update(dt)

	// 6. Vitals and starvation
	s.perf.StartPhase(systems.PhaseMetabolism)
	s.metabolism.Update(dt)

	// 7. Vegetation recovers
	s.perf.StartPhase(systems.PhaseRegrowth)
	s.terrain.Regrow(dt)

	// 8. Drop decayed carcasses
	s.perf.StartPhase(systems.PhaseCleanup)
	s.cleanupCorpses()

	s.tick++

	// 9. Window stats
	s.perf.StartPhase(systems.PhaseTelemetry)
	s.flushTelemetry()

	s.perf.EndTick()
}

// Run steps until maxTicks is reached (0 = unlimited) or ctx is cancelled.
func (s *Sim) Run(ctx context.Context, maxTicks uint64) error {
	for maxTicks == 0 || s.tick < maxTicks {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Step()
	}
	s.logger.Info("max ticks reached", "tick", s.tick)
	return nil
}

// cleanupCorpses removes carcasses that have lain longer than corpse_decay.
// Entities are collected first; the ECS may not change during a query.
func (s *Sim) cleanupCorpses() {
	decay := s.cfg.Sim.CorpseDecay
	s.corpseBuf = s.corpseBuf[:0]
	s.reg.Each(func(a *ai.Agent) {
		if a.Vitals.Dead && a.Vitals.DeadTime > decay {
			s.corpseBuf = append(s.corpseBuf, a.Entity)
		}
	})
	for _, e := range s.corpseBuf {
		s.reg.Remove(e)
	}
	if n := len(s.corpseBuf); n > 0 {
		s.logger.Debug("carcasses removed", "tick", s.tick, "count", n)
	}
}

// countPopulation refreshes the living and dead tallies.
func (s *Sim) countPopulation() {
	c := s.census()
	s.herbivores, s.carnivores, s.carcasses = c.Herbivores, c.Carnivores, c.Carcasses
}

// Close flushes and closes run output.
func (s *Sim) Close() error {
	return s.output.Close()
}

// Tick returns the number of completed ticks.
func (s *Sim) Tick() uint64 {
	return s.tick
}

// Seed returns the RNG seed in use.
func (s *Sim) Seed() int64 {
	return s.seed
}

// Registry returns the agent registry.
func (s *Sim) Registry() *world.Registry {
	return s.reg
}

// Terrain returns the world terrain.
func (s *Sim) Terrain() *world.Terrain {
	return s.terrain
}

// Group returns the entities spawned by a named scenario group.
func (s *Sim) Group(name string) []ecs.Entity {
	return s.groups[name]
}

// Population returns the living herbivore and carnivore counts as of the
// last window flush or construction.
func (s *Sim) Population() (herbivores, carnivores int) {
	return s.herbivores, s.carnivores
}
