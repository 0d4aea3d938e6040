// Package systems contains the ECS systems that consume the decision core's
// intent: locomotion, collision hints, combat and metabolism.
package systems

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/ai"
	"github.com/pthm-cable/fauna/components"
	"github.com/pthm-cable/fauna/config"
	"github.com/pthm-cable/fauna/world"
)

// groundTolerance is how far above the ground an agent still counts as
// standing on it.
const groundTolerance = 0.05

// LocomotionSystem turns and moves agents along their intent and keeps the
// habitat flags up to date.
type LocomotionSystem struct {
	reg     *world.Registry
	terrain *world.Terrain
	steer   config.SteeringConfig
}

// NewLocomotionSystem creates a locomotion system over the registry's terrain.
func NewLocomotionSystem(reg *world.Registry, steer config.SteeringConfig) *LocomotionSystem {
	return &LocomotionSystem{reg: reg, terrain: reg.Ground(), steer: steer}
}

// Update moves every agent by one step of dt seconds.
func (s *LocomotionSystem) Update(dt float64) {
	if s.terrain == nil {
		return
	}
	s.reg.Each(func(a *ai.Agent) {
		Move(a, s.terrain, s.steer, dt)
	})
}

// Move advances a single agent. Dead agents sink to the ground and stay put.
func Move(a *ai.Agent, t *world.Terrain, steer config.SteeringConfig, dt float64) {
	xf, loco, in := a.Xf, a.Loco, a.Intent

	if a.Vitals.Dead {
		loco.Flying = false
		xf.Position.Y = t.GroundHeight(xf.Position.X, xf.Position.Z)
		xf.Pitch = 0
		updateHabitat(a, t)
		return
	}

	turn := loco.TurnRate * dt
	xf.Yaw = approachAngle(xf.Yaw, in.Yaw, turn)

	speed := gaitSpeed(a)
	if loco.CanFly && !loco.Flying && (in.Gait == components.GaitRun || !loco.CanWalk) {
		loco.Flying = true
	}

	switch {
	case loco.Flying:
		xf.Pitch = approachAngle(xf.Pitch, in.Pitch, turn)
		fly(a, t, steer, speed, dt)
	case loco.CanSwim && loco.InWater && (!loco.CanWalk || loco.Underwater):
		xf.Pitch = approachAngle(xf.Pitch, in.Pitch, turn)
		swim(a, t, speed, dt)
	default:
		xf.Pitch = 0
		walk(a, t, speed, dt)
	}
	updateHabitat(a, t)
}

// gaitSpeed returns the requested speed. Exhausted runners only walk.
func gaitSpeed(a *ai.Agent) float64 {
	in, loco := a.Intent, a.Loco
	switch in.Gait {
	case components.GaitWalk:
		return loco.WalkSpeed * in.Throttle
	case components.GaitRun:
		if a.Vitals.Stamina <= 0 {
			return loco.WalkSpeed
		}
		return loco.RunSpeed * in.Throttle
	default:
		return 0
	}
}

// step returns pos moved along dir, clamped to the map.
func step(t *world.Terrain, pos, dir r3.Vec, dist float64) r3.Vec {
	next := r3.Add(pos, r3.Scale(dist, dir))
	next.X = clampFloat(next.X, 0, t.Size())
	next.Z = clampFloat(next.Z, 0, t.Size())
	return next
}

// blockedByTree reports a move that walks further into a trunk.
func blockedByTree(t *world.Terrain, from, to r3.Vec, radius float64) bool {
	tree, ok := t.TreeNear(to, radius)
	if !ok {
		return false
	}
	return flatDistance(to, tree.Base) < flatDistance(from, tree.Base)
}

func walk(a *ai.Agent, t *world.Terrain, speed, dt float64) {
	xf := a.Xf
	size := a.Body.Size
	next := step(t, xf.Position, components.YawDir(xf.Yaw), speed*dt)

	ground := t.GroundHeight(next.X, next.Z)
	depth := t.WaterLevel() - ground
	if depth > size && !a.Loco.CanSwim {
		// Too deep to wade
		xf.Position.Y = t.GroundHeight(xf.Position.X, xf.Position.Z)
		return
	}
	next.Y = ground
	if speed > 0 && blockedByTree(t, xf.Position, r3.Add(next, r3.Scale(size*0.5, components.Up)), size*0.25) {
		xf.Position.Y = t.GroundHeight(xf.Position.X, xf.Position.Z)
		return
	}
	if depth > size {
		// Paddle at the surface
		next.Y = t.WaterLevel() - size*0.5
	}
	xf.Position = next
}

func swim(a *ai.Agent, t *world.Terrain, speed, dt float64) {
	xf := a.Xf
	size := a.Body.Size
	next := step(t, xf.Position, components.Dir(xf.Yaw, xf.Pitch), speed*dt)

	ground := t.GroundHeight(next.X, next.Z)
	wl := t.WaterLevel()
	if ground >= wl-size*0.5 {
		if a.Loco.SwimOnly() {
			return
		}
		next.Y = ground
		xf.Position = next
		return
	}
	next.Y = clampFloat(next.Y, ground+size*0.25, wl-size*0.25)
	xf.Position = next
}

func fly(a *ai.Agent, t *world.Terrain, steer config.SteeringConfig, speed, dt float64) {
	xf, loco := a.Xf, a.Loco
	size := a.Body.Size
	next := step(t, xf.Position, components.Dir(xf.Yaw, xf.Pitch), speed*dt)
	if speed == 0 && loco.CanWalk {
		// Idle walkers glide down to land
		next.Y -= loco.WalkSpeed * dt
	}

	ground := t.GroundHeight(next.X, next.Z)
	floor := ground
	if wl := t.WaterLevel(); wl > floor {
		floor = wl
	}
	if ceiling := floor + steer.MaxAltitude*2; next.Y > ceiling {
		next.Y = ceiling
	}
	if speed > 0 && blockedByTree(t, xf.Position, next, size*0.25) {
		return
	}
	if next.Y <= floor {
		next.Y = floor
		// Touch down on dry ground unless still climbing out of a takeoff
		if loco.CanWalk && ground >= t.WaterLevel() && (speed == 0 || xf.Pitch < 0) {
			loco.Flying = false
			xf.Pitch = 0
		}
	}
	xf.Position = next
}

// updateHabitat derives the habitat flags from the position.
func updateHabitat(a *ai.Agent, t *world.Terrain) {
	pos, loco := a.Xf.Position, a.Loco
	ground := t.GroundHeight(pos.X, pos.Z)
	wl := t.WaterLevel()

	loco.InWater = !loco.Flying && ground < wl && pos.Y < wl
	loco.Underwater = loco.InWater && pos.Y+a.Body.Size < wl
	loco.OnGround = !loco.Flying && pos.Y-ground <= groundTolerance
}
