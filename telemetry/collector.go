// Package telemetry provides windowed population and decision statistics,
// bookmarks, performance timing and CSV output.
package telemetry

import (
	"github.com/pthm-cable/fauna/ai"
	"github.com/pthm-cable/fauna/components"
	"github.com/pthm-cable/fauna/systems"
)

// GoalCounts tallies goal events for one behavior within a window.
type GoalCounts struct {
	Started     int
	Completed   int
	Interrupted int
	TimedOut    int
	Stale       int
	GaveUp      int
	Died        int
}

// Ended returns the number of goals that ended for any reason.
func (g GoalCounts) Ended() int {
	return g.Completed + g.Interrupted + g.TimedOut + g.Stale + g.GaveUp + g.Died
}

func (g *GoalCounts) add(o ai.Outcome) {
	switch o {
	case ai.OutcomeStarted:
		g.Started++
	case ai.OutcomeCompleted:
		g.Completed++
	case ai.OutcomeInterrupted:
		g.Interrupted++
	case ai.OutcomeTimedOut:
		g.TimedOut++
	case ai.OutcomeStale:
		g.Stale++
	case ai.OutcomeGaveUp:
		g.GaveUp++
	case ai.OutcomeDied:
		g.Died++
	}
}

// Census is the population sample taken at window end.
type Census struct {
	Herbivores int
	Carnivores int
	Carcasses  int

	// Vitals of living agents, one entry per agent
	Health  []float64
	Food    []float64
	Water   []float64
	Stamina []float64
}

// Collector accumulates events within time windows and produces WindowStats.
// It implements ai.Recorder and systems.Observer.
type Collector struct {
	windowDurationTicks uint64
	dt                  float64

	// Current window tracking
	windowStartTick uint64

	goals       GoalCounts
	byBehavior  map[components.Behavior]*GoalCounts
	bites       int
	bitesLanded int
	kills       int
	starved     int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := uint64(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		byBehavior:          make(map[components.Behavior]*GoalCounts),
	}
}

// RecordGoal records a goal start or end.
func (c *Collector) RecordGoal(ev ai.GoalEvent) {
	c.goals.add(ev.Outcome)
	counts, ok := c.byBehavior[ev.Behavior]
	if !ok {
		counts = &GoalCounts{}
		c.byBehavior[ev.Behavior] = counts
	}
	counts.add(ev.Outcome)
}

// RecordBite records a bite attempt.
func (c *Collector) RecordBite(ev systems.BiteEvent) {
	c.bites++
	if ev.Landed {
		c.bitesLanded++
	}
}

// RecordDeath records a death.
func (c *Collector) RecordDeath(ev systems.DeathEvent) {
	if ev.Cause == systems.CauseKilled {
		c.kills++
	} else {
		c.starved++
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and per-behavior rows, then resets counters
// for the next window.
func (c *Collector) Flush(currentTick uint64, census Census) (WindowStats, []GoalRow) {
	var hitRate, completion float64
	if c.bites > 0 {
		hitRate = float64(c.bitesLanded) / float64(c.bites)
	}
	if ended := c.goals.Ended(); ended > 0 {
		completion = float64(c.goals.Completed) / float64(ended)
	}

	health := ComputeVitalStats(census.Health)
	food := ComputeVitalStats(census.Food)
	water := ComputeVitalStats(census.Water)
	stamina := ComputeVitalStats(census.Stamina)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Herbivores: census.Herbivores,
		Carnivores: census.Carnivores,
		Carcasses:  census.Carcasses,

		GoalsStarted:     c.goals.Started,
		GoalsCompleted:   c.goals.Completed,
		GoalsInterrupted: c.goals.Interrupted,
		GoalsTimedOut:    c.goals.TimedOut,
		GoalsStale:       c.goals.Stale,
		GoalsGaveUp:      c.goals.GaveUp,
		CompletionRate:   completion,

		Bites:       c.bites,
		BitesLanded: c.bitesLanded,
		Kills:       c.kills,
		Starved:     c.starved,
		HitRate:     hitRate,

		HealthMean: health.Mean,
		HealthP10:  health.P10,
		HealthP50:  health.P50,
		FoodMean:   food.Mean,
		FoodP10:    food.P10,
		FoodP50:    food.P50,
		WaterMean:  water.Mean,
		WaterP10:   water.P10,
		WaterP50:   water.P50,

		StaminaMean: stamina.Mean,
		StaminaStd:  stamina.Std,
	}

	rows := make([]GoalRow, 0, len(c.byBehavior))
	for _, b := range components.AllBehaviors() {
		counts, ok := c.byBehavior[b]
		if !ok {
			continue
		}
		rows = append(rows, GoalRow{
			WindowEnd: currentTick,
			Behavior:  b.String(),
			Started:   counts.Started,
			Completed: counts.Completed,
			Failed:    counts.Ended() - counts.Completed,
		})
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.goals = GoalCounts{}
	c.byBehavior = make(map[components.Behavior]*GoalCounts)
	c.bites = 0
	c.bitesLanded = 0
	c.kills = 0
	c.starved = 0

	return stats, rows
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() uint64 {
	return c.windowDurationTicks
}
