package main

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/fauna/ai"
	"github.com/pthm-cable/fauna/components"
	"github.com/pthm-cable/fauna/config"
	"github.com/pthm-cable/fauna/scenario"
	"github.com/pthm-cable/fauna/sim"
	"github.com/pthm-cable/fauna/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    uint64
	seeds       []int64
	baseConfig  *config.Config
	scenario    *scenario.Scenario
	statsWindow float64
	logger      *slog.Logger

	mu          sync.Mutex
	bestFitness float64
	bestWindows []telemetry.WindowStats
	lastQuality float64 // quality from most recent Evaluate call
	lastSurvive float64 // mean survival in ticks from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. scen may be nil.
func NewFitnessEvaluator(params *ParamVector, maxTicks uint64, seeds []int64, baseCfg *config.Config, scen *scenario.Scenario) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		scenario:    scen,
		statsWindow: 10.0,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		bestFitness: math.Inf(1),
	}
}

// BestWindows returns the window stats of the best seed of the best evaluation.
func (fe *FitnessEvaluator) BestWindows() []telemetry.WindowStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestWindows
}

// LastSurvival returns the mean survival in ticks from the most recent evaluation.
func (fe *FitnessEvaluator) LastSurvival() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSurvive
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// A diet group below minViablePop for extinctionGraceSec counts as
// functionally extinct.
const (
	minViablePop       = 2
	extinctionGraceSec = 30.0
	warmupSec          = 5.0
)

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks uint64                  // ticks before functional extinction (or maxTicks if survived)
	windowStats   []telemetry.WindowStats // collected via StatsCallback each window
}

type seedResult struct {
	fitness float64
	survive uint64
	quality float64
	windows []telemetry.WindowStats
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(x, s)
			results[idx] = seedResult{
				fitness: fe.computeFitness(result),
				survive: result.survivalTicks,
				quality: computeQuality(result.windowStats),
				windows: result.windowStats,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality, totalSurvive float64
	bestSeed := 0
	for i, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		totalSurvive += float64(r.survive)
		if r.fitness < results[bestSeed].fitness {
			bestSeed = i
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestWindows = results[bestSeed].windows
	}
	fe.lastQuality = totalQuality / n
	fe.lastSurvive = totalSurvive / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless run until functional extinction
// of either diet or maxTicks, whichever comes first.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)

	result := &runResult{}
	s, err := sim.New(cfg, sim.Options{
		Seed:           seed,
		Scenario:       fe.scenario,
		StatsWindowSec: fe.statsWindow,
		Logger:         fe.logger,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		fe.logger.Error("failed to create simulation", "error", err)
		return result
	}
	defer s.Close()

	dt := cfg.Sim.DT
	graceTicks := uint64(extinctionGraceSec / dt)
	warmupTicks := uint64(warmupSec / dt)
	var herbBelow, carnBelow uint64

	for s.Tick() < fe.maxTicks {
		s.Step()

		tick := s.Tick()
		if tick < warmupTicks || tick%uint64(cfg.Derived.TicksPerSecond) != 0 {
			continue
		}

		// Population is refreshed once per stats window; sample the registry
		// directly on a one-second cadence instead.
		herbs, carns := livingCounts(s)
		if herbs == 0 || carns == 0 {
			result.survivalTicks = tick
			return result
		}

		step := uint64(cfg.Derived.TicksPerSecond)
		herbBelow = belowFor(herbs, herbBelow, step)
		carnBelow = belowFor(carns, carnBelow, step)
		if herbBelow >= graceTicks || carnBelow >= graceTicks {
			result.survivalTicks = tick
			return result
		}
	}

	result.survivalTicks = fe.maxTicks
	return result
}

// livingCounts counts live agents by diet.
func livingCounts(s *sim.Sim) (herbs, carns int) {
	s.Registry().Each(func(a *ai.Agent) {
		if a.Vitals.Dead {
			return
		}
		if a.Org.Diet == components.Carnivore {
			carns++
		} else {
			herbs++
		}
	})
	return herbs, carns
}

// belowFor extends a below-viable streak by step ticks or resets it.
func belowFor(pop int, streak, step uint64) uint64 {
	if pop < minViablePop {
		return streak + step
	}
	return 0
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalTicks × (1.0 + 0.2 × quality))
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	survival := float64(r.survivalTicks)
	quality := computeQuality(r.windowStats)
	return -(survival * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightCompletion = 0.30
	qualityWeightStability  = 0.25
	qualityWeightVitals     = 0.25
	qualityWeightHunting    = 0.20

	qualityWarmupWindows = 3 // skip first N windows
	qualityMinPop        = 2 // exclude windows where either diet < this
)

// computeQuality scores ecosystem quality in [0, 1] from window stats:
// goals that finish, steady populations, fed and watered agents and
// carnivores that land some of their bites.
func computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	var completionSum, vitalsSum, huntSum float64
	var count, huntCount int
	herbs := make([]float64, 0, len(valid))
	carns := make([]float64, 0, len(valid))

	for _, w := range valid {
		if w.Herbivores < qualityMinPop || w.Carnivores < qualityMinPop {
			continue
		}
		herbs = append(herbs, float64(w.Herbivores))
		carns = append(carns, float64(w.Carnivores))

		completionSum += w.CompletionRate

		// Needs met: median food and water well above empty
		foodH := math.Exp(-math.Pow((w.FoodP50-70)/30, 2))
		waterH := math.Exp(-math.Pow((w.WaterP50-70)/30, 2))
		vitalsSum += (foodH + waterH) / 2
		count++

		if w.Bites > 0 {
			huntSum += math.Exp(-math.Pow((w.HitRate-0.5)/0.3, 2))
			huntCount++
		}
	}
	if count == 0 {
		return 0
	}

	stability := 0.0
	if len(herbs) >= 2 {
		cvHerb, cvCarn := cv(herbs), cv(carns)
		stability = math.Exp(-(cvHerb*cvHerb + cvCarn*cvCarn))
	}
	hunting := 0.0
	if huntCount > 0 {
		hunting = huntSum / float64(huntCount)
	}

	quality := qualityWeightCompletion*completionSum/float64(count) +
		qualityWeightStability*stability +
		qualityWeightVitals*vitalsSum/float64(count) +
		qualityWeightHunting*hunting
	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
