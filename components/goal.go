package components

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

// Goal is the decision core's per-agent state. Only the owning agent's tick
// mutates it, always through Set, Retarget and Clear, so an inactive goal
// never carries a target.
type Goal struct {
	Behavior Behavior
	Active   bool
	Target   ecs.Entity // zero when the goal is position-only
	Position r3.Vec
	LookAt   r3.Vec
	Counter  int // ticks left before the goal times out

	// Per-tick scratch written by the executor
	Distance float64
	Delta    float64 // signed yaw error toward the steering point
}

// Set assigns a fresh goal with a full countdown budget.
func (g *Goal) Set(b Behavior, pos r3.Vec, target ecs.Entity, budget int) {
	g.Behavior = b
	g.Active = true
	g.Target = target
	g.Position = pos
	g.LookAt = pos
	g.Counter = budget
}

// Retarget switches the state of a running goal without refreshing its budget.
func (g *Goal) Retarget(b Behavior, pos r3.Vec, target ecs.Entity) {
	g.Behavior = b
	g.Target = target
	g.Position = pos
	g.LookAt = pos
}

// Track follows a moving target without changing state.
func (g *Goal) Track(pos, lookAt r3.Vec) {
	g.Position = pos
	g.LookAt = lookAt
}

// Clear drops the goal. Position and target are reset together.
func (g *Goal) Clear() {
	*g = Goal{}
}

// HasTarget reports whether the goal references another entity.
func (g *Goal) HasTarget() bool {
	return g.Active && !g.Target.IsZero()
}

// Steering carries the steering solver and obstacle state across ticks.
type Steering struct {
	Widen float64 // degrees added to the search cone after rejected candidates
	Avoid float64 // turn bias in degrees, consumed on the next tick

	HasObstacle bool
	Obstacle    ecs.Entity // zero for static obstacles such as trees
	ObstaclePos r3.Vec
}

// SetObstacle registers a collision hint.
func (s *Steering) SetObstacle(e ecs.Entity, pos r3.Vec) {
	s.HasObstacle = true
	s.Obstacle = e
	s.ObstaclePos = pos
}

// ClearObstacle forgets the collision hint after separation.
func (s *Steering) ClearObstacle() {
	s.HasObstacle = false
	s.Obstacle = ecs.Entity{}
	s.ObstaclePos = r3.Vec{}
}

// Gait is the locomotion class requested from the animation layer.
type Gait uint8

const (
	GaitIdle Gait = iota
	GaitWalk
	GaitRun
	GaitAction
)

func (g Gait) String() string {
	switch g {
	case GaitWalk:
		return "walk"
	case GaitRun:
		return "run"
	case GaitAction:
		return "action"
	default:
		return "idle"
	}
}

// ActionFlags are one-shot action requests for this tick.
type ActionFlags uint8

const (
	ActEat ActionFlags = 1 << iota
	ActDrink
	ActSleep
	ActAttack
)

// Has reports whether all bits in f are set.
func (a ActionFlags) Has(f ActionFlags) bool {
	return a&f == f
}

// Intent is the movement record handed to locomotion and animation.
type Intent struct {
	Gait     Gait
	Throttle float64 // 0..1 within the gait
	Yaw      float64 // turn target
	Pitch    float64 // climb target for flyers and swimmers
	LookAt   r3.Vec
	Flags    ActionFlags
	Variant  int // animation variant rolled this tick
}

// Stop zeroes the intent but keeps the current turn target.
func (i *Intent) Stop() {
	yaw := i.Yaw
	*i = Intent{Yaw: yaw}
}

// WaypointAction is performed on arrival at a scripted waypoint.
type WaypointAction uint8

const (
	ActionNone WaypointAction = iota
	ActionSleep
	ActionEat
	ActionDrink
)

// ParseWaypointAction maps scenario spellings to actions.
func ParseWaypointAction(s string) WaypointAction {
	switch s {
	case "sleep":
		return ActionSleep
	case "eat":
		return ActionEat
	case "drink":
		return ActionDrink
	default:
		return ActionNone
	}
}

// Waypoint is a scripted destination.
type Waypoint struct {
	Position r3.Vec
	Priority float64 // chance in percent to pick this waypoint when idle
	Action   WaypointAction
}

// TargetKind tags a scripted custom target.
type TargetKind uint8

const (
	TargetEnemy TargetKind = iota
	TargetFriend
)

// CustomTarget is a scripted enemy or friend.
type CustomTarget struct {
	Entity   ecs.Entity
	Kind     TargetKind
	MaxRange float64 // 0 = unlimited
}

// Script holds scripted overrides. Optional component.
type Script struct {
	Waypoints []Waypoint
	Next      int // index of the next waypoint to consider
	Targets   []CustomTarget
}
