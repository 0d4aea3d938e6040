package ai

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/components"
)

// Bias steers the candidate cone relative to another position instead of
// the agent's heading.
type Bias struct {
	Active   bool
	Position r3.Vec
	Away     bool // point the cone away from Position
	Rest     bool // flyers must find ground under the candidate
}

type moveMode uint8

const (
	modeGround moveMode = iota
	modeSwim
	modeFly
)

// Pitch ranges for flyers and swimmers, in degrees.
const (
	climbMin, climbMax     = 10.0, 30.0
	descendMin, descendMax = 5.0, 15.0
	landPitch              = 30.0
	cruisePitch            = 5.0
	swimPitch              = 20.0
	surfaceDive            = 30.0
)

func modeOf(l *components.Locomotion) moveMode {
	switch {
	case l.CanFly && (l.Flying || !l.CanWalk):
		return modeFly
	case l.CanSwim && l.InWater && (!l.CanWalk || l.Underwater):
		return modeSwim
	}
	return modeGround
}

// FindPath proposes one waypoint per call. A rejected candidate widens the
// cone by WidenStep for the next call; once the widening passes MaxWiden the
// search gives up, the goal is cleared and the agent stops.
func (b *Brain) FindPath(a *Agent, bias Bias) (r3.Vec, bool) {
	pos := a.Position()
	size := math.Max(a.Size(), 0.1)

	heading := a.Xf.Yaw
	cone := b.steer.FreeCone
	if bias.Active {
		heading = components.YawTo(pos, bias.Position)
		if bias.Away {
			heading += math.Pi
		}
		cone = b.steer.BiasCone
	}
	cone = math.Min(cone+a.Steer.Widen, 180)

	yaw := components.NormalizeAngle(heading + deg2rad((b.rng.Float64()*2-1)*cone))
	dist := size * (b.steer.MinStep + b.rng.Float64()*(b.steer.MaxStep-b.steer.MinStep))

	var p r3.Vec
	var ok bool
	switch modeOf(a.Loco) {
	case modeFly:
		p, ok = b.flyCandidate(a, yaw, dist, bias.Rest)
	case modeSwim:
		p, ok = b.swimCandidate(a, yaw, dist)
	default:
		p, ok = b.groundCandidate(a, yaw, dist)
	}
	if ok {
		a.Steer.Widen = 0
		return p, true
	}

	a.Steer.Widen += b.steer.WidenStep
	if a.Steer.Widen > b.steer.MaxWiden {
		a.Steer.Widen = 0
		b.finish(a, OutcomeGaveUp)
	}
	return r3.Vec{}, false
}

func (b *Brain) groundCandidate(a *Agent, yaw, dist float64) (r3.Vec, bool) {
	size := a.Size()
	p := r3.Add(a.Position(), r3.Scale(dist, components.YawDir(yaw)))
	if t := b.world.Terrain(); t != nil {
		p.Y = t.GroundHeight(p.X, p.Z)
	}
	phys := b.world.Physics()
	if phys == nil {
		return p, true
	}

	head := r3.Add(p, r3.Scale(size, components.Up))
	if hit, blocked := phys.Linecast(a.Eye(), head); blocked && hit.Layer != LayerWater {
		return r3.Vec{}, false
	}
	down, ok := phys.Linecast(head, r3.Sub(p, r3.Scale(size+1, components.Up)))
	if !ok || down.Layer == LayerTree {
		return r3.Vec{}, false
	}
	if down.Layer == LayerWater && !a.Loco.CanSwim {
		return r3.Vec{}, false
	}
	if phys.OverlapSphere(CenterOfMass(down.Point, size), size*0.5, LayerTree) {
		return r3.Vec{}, false
	}
	return down.Point, true
}

// altitude returns the height above ground or water.
func (b *Brain) altitude(p r3.Vec) float64 {
	t := b.world.Terrain()
	if t == nil {
		return p.Y
	}
	floor := math.Max(t.GroundHeight(p.X, p.Z), t.WaterLevel())
	return p.Y - floor
}

func (b *Brain) flyCandidate(a *Agent, yaw, dist float64, rest bool) (r3.Vec, bool) {
	pos := a.Position()
	alt := b.altitude(pos)

	var pitch float64
	switch {
	case rest:
		pitch = -landPitch
	case alt < b.steer.MinAltitude:
		pitch = climbMin + b.rng.Float64()*(climbMax-climbMin)
	case alt > b.steer.MaxAltitude || a.Loco.LowFlight:
		pitch = -(descendMin + b.rng.Float64()*(descendMax-descendMin))
	default:
		pitch = (b.rng.Float64()*2 - 1) * cruisePitch
	}

	p := r3.Add(pos, r3.Scale(dist, components.Dir(yaw, deg2rad(pitch))))
	if t := b.world.Terrain(); t != nil {
		if p.Y < t.WaterLevel() || p.Y < t.GroundHeight(p.X, p.Z) {
			return r3.Vec{}, false
		}
	}
	phys := b.world.Physics()
	if phys == nil {
		return p, true
	}
	if _, blocked := phys.Linecast(a.CenterOfMass(), p); blocked {
		return r3.Vec{}, false
	}
	if !rest {
		return p, true
	}

	floor := r3.Sub(p, r3.Scale(b.steer.MaxAltitude*2, components.Up))
	hit, ok := phys.Linecast(p, floor)
	if !ok || hit.Layer != LayerGround {
		return r3.Vec{}, false
	}
	return hit.Point, true
}

func (b *Brain) swimCandidate(a *Agent, yaw, dist float64) (r3.Vec, bool) {
	var pitch float64
	if a.Loco.Underwater {
		pitch = (b.rng.Float64()*2 - 1) * swimPitch
	} else {
		pitch = -b.rng.Float64() * surfaceDive
	}

	p := r3.Add(a.Position(), r3.Scale(dist, components.Dir(yaw, deg2rad(pitch))))
	if t := b.world.Terrain(); t != nil {
		if p.Y > t.WaterLevel() || p.Y < t.GroundHeight(p.X, p.Z) {
			return r3.Vec{}, false
		}
	}
	phys := b.world.Physics()
	if phys == nil {
		return p, true
	}
	if hit, blocked := phys.Linecast(a.CenterOfMass(), p); blocked && hit.Layer != LayerWater {
		return r3.Vec{}, false
	}
	return p, true
}
