package ai

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/components"
)

// Agent is a mutable view over one entity's components for the duration of
// a tick. Script is nil for agents without scripted overrides.
type Agent struct {
	Entity ecs.Entity
	Org    *components.Organism
	Xf     *components.Transform
	Body   *components.Body
	Vitals *components.Vitals
	Loco   *components.Locomotion
	Goal   *components.Goal
	Steer  *components.Steering
	Intent *components.Intent
	Script *components.Script
}

// Position returns the agent's feet position.
func (a *Agent) Position() r3.Vec {
	return a.Xf.Position
}

// Size returns the withers radius.
func (a *Agent) Size() float64 {
	return a.Body.Size
}

// Eye returns the point casts start from.
func (a *Agent) Eye() r3.Vec {
	return r3.Add(a.Xf.Position, r3.Scale(a.Body.Size, components.Up))
}

// CenterOfMass returns the body center.
func (a *Agent) CenterOfMass() r3.Vec {
	return CenterOfMass(a.Xf.Position, a.Body.Size)
}

// CenterOfMass returns the body center of an agent standing at pos.
func CenterOfMass(pos r3.Vec, size float64) r3.Vec {
	return r3.Add(pos, r3.Scale(size*0.5, components.Up))
}

// Snapshot copies the agent's shareable state.
func (a *Agent) Snapshot() Snapshot {
	return Snapshot{
		Entity:       a.Entity,
		ID:           a.Org.ID,
		Species:      a.Org.Species,
		Diet:         a.Org.Diet,
		Dead:         a.Vitals.Dead,
		Health:       a.Vitals.Health,
		Size:         a.Body.Size,
		Reach:        a.Body.Reach(),
		Position:     a.Xf.Position,
		CenterOfMass: a.CenterOfMass(),
		Behavior:     a.Goal.Behavior,
		Target:       a.Goal.Target,
		TargetPos:    a.Goal.Position,
		InWater:      a.Loco.InWater,
		Underwater:   a.Loco.Underwater,
		CanSwim:      a.Loco.CanSwim,
		CanWalk:      a.Loco.CanWalk,
		CanFly:       a.Loco.CanFly,
	}
}

// reachable reports whether the agent's habitat lets it get to other.
// Swim-only agents stay in the water; non-swimmers cannot follow below the surface.
func (a *Agent) reachable(other Snapshot) bool {
	if a.Loco.SwimOnly() {
		return other.InWater
	}
	if !a.Loco.CanSwim {
		return !other.Underwater
	}
	return true
}

func distance(p, q r3.Vec) float64 {
	return r3.Norm(r3.Sub(p, q))
}

func flatDistance(p, q r3.Vec) float64 {
	return r3.Norm(components.Flat(r3.Sub(p, q)))
}
