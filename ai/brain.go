// Package ai implements the creature decision core: sensors that scan the
// world for goal candidates, the arbiter that picks a goal, the steering
// solver that turns a goal into a reachable waypoint, and the executor that
// runs the behavior state machine.
//
// Everything runs synchronously inside one agent's tick. Failures never
// propagate: a sensor that finds nothing leaves the goal untouched, a stale
// target ends the goal, an exhausted budget stops the agent.
package ai

import (
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/components"
	"github.com/pthm-cable/fauna/config"
)

// Outcome classifies a goal event.
type Outcome uint8

const (
	OutcomeStarted Outcome = iota
	OutcomeCompleted
	OutcomeInterrupted
	OutcomeTimedOut
	OutcomeStale
	OutcomeGaveUp
	OutcomeDied
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeCompleted:
		return "completed"
	case OutcomeInterrupted:
		return "interrupted"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeStale:
		return "stale"
	case OutcomeGaveUp:
		return "gave_up"
	case OutcomeDied:
		return "died"
	default:
		return "unknown"
	}
}

// GoalEvent is emitted whenever a goal starts or ends.
type GoalEvent struct {
	Tick     uint64
	Agent    uint32
	Species  string
	Behavior components.Behavior
	Outcome  Outcome
}

// Recorder receives goal events, typically a telemetry collector.
type Recorder interface {
	RecordGoal(ev GoalEvent)
}

// Brain runs the decision pipeline for every agent of one world.
type Brain struct {
	cfg   config.AIConfig
	steer config.SteeringConfig
	world World
	rng   *rand.Rand
	log   *slog.Logger
	rec   Recorder
	tick  uint64

	nearby []Snapshot // reused scan buffer
}

// NewBrain creates a brain over the given world.
func NewBrain(cfg *config.Config, w World, rng *rand.Rand, logger *slog.Logger) *Brain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Brain{
		cfg:    cfg.AI,
		steer:  cfg.Steering,
		world:  w,
		rng:    rng,
		log:    logger,
		nearby: make([]Snapshot, 0, 64),
	}
}

// SetRecorder installs a goal event sink.
func (b *Brain) SetRecorder(r Recorder) {
	b.rec = r
}

// SetTick advances the brain's clock. Called once per simulation tick.
func (b *Brain) SetTick(t uint64) {
	b.tick = t
}

// Tick returns the current simulation tick.
func (b *Brain) Tick() uint64 {
	return b.tick
}

// chance rolls a percentage gate.
func (b *Brain) chance(pct float64) bool {
	if pct <= 0 {
		return false
	}
	return b.rng.Float64()*100 < pct
}

// threatTick reports whether the throttled enemy scans run for a this tick.
// Agents are staggered by ID so scans spread over the interval.
func (b *Brain) threatTick(a *Agent) bool {
	k := b.cfg.ThreatInterval
	if k <= 1 {
		return true
	}
	return (b.tick+uint64(a.Org.ID))%uint64(k) == 0
}

func (b *Brain) scan(a *Agent) []Snapshot {
	b.nearby = b.world.Nearby(a.Position(), b.cfg.MaxRange, b.nearby[:0])
	return b.nearby
}

// assign starts a new goal with a fresh budget, interrupting any current one.
func (b *Brain) assign(a *Agent, beh components.Behavior, pos r3.Vec, target ecs.Entity) {
	if a.Goal.Active {
		b.emit(a, a.Goal.Behavior, OutcomeInterrupted)
	}
	a.Goal.Set(beh, pos, target, b.cfg.GoalBudget)
	b.emit(a, beh, OutcomeStarted)
	b.log.Debug("goal assigned",
		"tick", b.tick,
		"agent", a.Org.ID,
		"species", a.Org.Species,
		"behavior", beh.String(),
	)
}

// transition moves a running goal to another state, keeping its budget.
// Edges missing from the transition table end the goal instead.
func (b *Brain) transition(a *Agent, beh components.Behavior, pos r3.Vec, target ecs.Entity) {
	if !components.CanTransition(a.Goal.Behavior, beh) {
		b.log.Warn("illegal transition",
			"agent", a.Org.ID,
			"from", a.Goal.Behavior.String(),
			"to", beh.String(),
		)
		b.finish(a, OutcomeInterrupted)
		return
	}
	a.Goal.Retarget(beh, pos, target)
}

// finish ends the current goal and stops the agent.
func (b *Brain) finish(a *Agent, outcome Outcome) {
	if a.Goal.Active {
		b.emit(a, a.Goal.Behavior, outcome)
		if outcome != OutcomeCompleted {
			b.log.Debug("goal ended",
				"tick", b.tick,
				"agent", a.Org.ID,
				"behavior", a.Goal.Behavior.String(),
				"outcome", outcome.String(),
			)
		}
	}
	a.Goal.Clear()
	a.Intent.Stop()
}

func (b *Brain) emit(a *Agent, beh components.Behavior, outcome Outcome) {
	if b.rec == nil {
		return
	}
	b.rec.RecordGoal(GoalEvent{
		Tick:     b.tick,
		Agent:    a.Org.ID,
		Species:  a.Org.Species,
		Behavior: beh,
		Outcome:  outcome,
	})
}
