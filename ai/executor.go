package ai

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/components"
)

// Contact returns the distance at which an agent with the given reach can
// touch a target of the given size. Combat uses the same measure.
func Contact(reach, targetSize float64) float64 {
	return reach + targetSize*0.5
}

// ExecuteBehavior advances a's goal state machine by one tick. Every tick
// spends one unit of the goal budget; an exhausted budget or a vanished
// target ends the goal whatever state it is in.
func (b *Brain) ExecuteBehavior(a *Agent) {
	g := a.Goal
	if !g.Active {
		a.Intent.Stop()
		return
	}
	g.Counter--
	if g.Counter <= 0 {
		b.finish(a, OutcomeTimedOut)
		return
	}

	var t Snapshot
	if !g.Target.IsZero() {
		s, ok := b.world.Lookup(g.Target)
		if !ok {
			b.finish(a, OutcomeStale)
			return
		}
		t = s
	}

	a.Intent.Flags = 0
	if b.cfg.Variants > 0 {
		a.Intent.Variant = b.rng.Intn(b.cfg.Variants)
	}

	switch g.Behavior {
	case components.ToPath:
		if b.approach(a, g.Position, b.arrival(a), false) {
			b.finish(a, OutcomeCompleted)
		}
	case components.ToWaypoint:
		if b.approach(a, g.Position, b.arrival(a), false) {
			b.arriveWaypoint(a)
		}
	case components.ToTarget:
		b.execToTarget(a, t)
	case components.ToFriend:
		b.execFollow(a, t, false)
	case components.ToHerd:
		b.execFollow(a, t, true)
	case components.ToFlee:
		b.execFlee(a, t)
	case components.Contest:
		b.execContest(a, t)
	case components.Battle:
		b.execBattle(a, t)
	case components.ToHunt, components.Hunt:
		b.execHunt(a, t)
	case components.ToFood, components.Food:
		b.execFood(a, t)
	case components.ToWater, components.Water:
		b.execWater(a)
	case components.ToRepose, components.Repose:
		b.execRepose(a)
	default:
		b.finish(a, OutcomeInterrupted)
	}

	b.avoid(a)
}

func (b *Brain) arrival(a *Agent) float64 {
	return b.cfg.ArrivalRange * a.Size()
}

// approach steers toward dest and reports whether a is within radius. Run
// is only allowed when the caller permits it and the remaining distance is
// more than RunRatio action radii.
func (b *Brain) approach(a *Agent, dest r3.Vec, radius float64, run bool) bool {
	g := a.Goal
	in := a.Intent
	pos := a.Position()
	mode := modeOf(a.Loco)

	d := flatDistance(pos, dest)
	if mode != modeGround {
		d = distance(pos, dest)
	}
	yaw := components.YawTo(pos, dest)
	g.Distance = d
	g.Delta = components.NormalizeAngle(yaw - a.Xf.Yaw)
	in.LookAt = g.LookAt

	if d <= radius {
		in.Gait = components.GaitIdle
		in.Throttle = 0
		in.Pitch = 0
		in.Yaw = yaw
		return true
	}

	in.Yaw = components.NormalizeAngle(yaw + deg2rad(a.Steer.Avoid))
	in.Pitch = 0
	if mode != modeGround {
		in.Pitch = math.Atan2(dest.Y-pos.Y, flatDistance(pos, dest))
	}

	ratio := d / (b.cfg.RunRatio * math.Max(radius, 1e-3))
	if run && ratio > 1 {
		in.Gait = components.GaitRun
		in.Throttle = math.Min(1, 0.5*ratio)
	} else {
		in.Gait = components.GaitWalk
		in.Throttle = math.Max(0.3, math.Min(1, ratio))
	}
	return false
}

// act holds position facing dest and raises flags.
func (b *Brain) act(a *Agent, dest r3.Vec, flags components.ActionFlags) {
	in := a.Intent
	in.Gait = components.GaitAction
	in.Throttle = 0
	in.Pitch = 0
	if flatDistance(a.Position(), dest) > 1e-6 {
		in.Yaw = components.YawTo(a.Position(), dest)
	}
	in.LookAt = dest
	in.Flags |= flags
}

func (b *Brain) arriveWaypoint(a *Agent) {
	action := components.ActionNone
	if s := a.Script; s != nil && len(s.Waypoints) > 0 {
		idx := s.Next % len(s.Waypoints)
		action = s.Waypoints[idx].Action
		s.Next = (idx + 1) % len(s.Waypoints)
	}
	pos := a.Goal.Position
	switch action {
	case components.ActionSleep:
		b.transition(a, components.Repose, pos, noTarget)
	case components.ActionEat:
		b.transition(a, components.Food, pos, noTarget)
	case components.ActionDrink:
		b.transition(a, components.Water, pos, noTarget)
	default:
		b.finish(a, OutcomeCompleted)
	}
}

func (b *Brain) execToTarget(a *Agent, t Snapshot) {
	if t.Dead {
		b.finish(a, OutcomeCompleted)
		return
	}
	a.Goal.Track(t.Position, t.CenterOfMass)
	if b.approach(a, t.Position, Contact(a.Body.Reach(), t.Size), true) {
		b.transition(a, components.Battle, t.Position, t.Entity)
	}
}

// execFollow closes in on a friend. Herding may turn into a contest on arrival.
func (b *Brain) execFollow(a *Agent, t Snapshot, herd bool) {
	if t.Dead {
		b.finish(a, OutcomeStale)
		return
	}
	a.Goal.Track(t.Position, t.CenterOfMass)
	if !b.approach(a, t.Position, b.cfg.FriendMinSeparation*a.Size(), false) {
		return
	}
	if herd && b.chance(b.cfg.ContestChance) && b.startContest(a, t) {
		return
	}
	b.finish(a, OutcomeCompleted)
}

// startContest puts both agents into a synchronized contest with a short budget.
func (b *Brain) startContest(a *Agent, t Snapshot) bool {
	other, ok := b.world.Agent(t.Entity)
	if !ok || other.Vitals.Dead {
		return false
	}
	if og := other.Goal.Behavior; og.IsEscalated() || og == components.Contest {
		return false
	}
	b.transition(a, components.Contest, t.Position, t.Entity)
	a.Goal.Counter = b.cfg.ContestBudget

	b.assign(other, components.Contest, a.Position(), a.Entity)
	other.Goal.Counter = b.cfg.ContestBudget
	return true
}

func (b *Brain) execContest(a *Agent, t Snapshot) {
	if t.Dead || t.Behavior != components.Contest || t.Target != a.Entity {
		b.finish(a, OutcomeCompleted)
		return
	}
	a.Goal.Track(t.Position, t.CenterOfMass)
	if b.approach(a, t.Position, Contact(a.Body.Reach(), t.Size), false) {
		b.act(a, t.CenterOfMass, 0)
	}
}

func (b *Brain) execFlee(a *Agent, t Snapshot) {
	g := a.Goal
	hasThreat := !g.Target.IsZero()
	if hasThreat {
		if t.Dead || distance(a.Position(), t.Position) > b.cfg.FleeRange {
			b.finish(a, OutcomeCompleted)
			return
		}
		g.LookAt = t.Position
	}
	if !b.approach(a, g.Position, b.arrival(a), true) {
		return
	}
	if !hasThreat {
		b.finish(a, OutcomeCompleted)
		return
	}
	// Still in range: pick the next leg. A rejected candidate retries next tick.
	p, ok := b.FindPath(a, Bias{Active: true, Position: t.Position, Away: true})
	if !ok {
		return
	}
	b.transition(a, components.ToFlee, p, t.Entity)
	a.Goal.LookAt = t.Position
}

func (b *Brain) execBattle(a *Agent, t Snapshot) {
	carnivore := a.Org.Diet == components.Carnivore
	if t.Dead {
		if carnivore {
			b.transition(a, components.ToFood, t.CenterOfMass, t.Entity)
		} else {
			b.finish(a, OutcomeCompleted)
		}
		return
	}
	a.Goal.Track(t.Position, t.CenterOfMass)
	contact := Contact(a.Body.Reach(), t.Size)
	d := distance(a.Position(), t.Position)
	a.Goal.Distance = d
	if d > contact*b.cfg.AttackRange {
		if carnivore {
			b.transition(a, components.ToHunt, t.Position, t.Entity)
		} else {
			b.transition(a, components.ToTarget, t.Position, t.Entity)
		}
		return
	}
	var flags components.ActionFlags
	if a.Loco.CanAttack {
		flags = components.ActAttack
	}
	b.act(a, t.CenterOfMass, flags)
}

// execHunt covers the approach and the chase. The chase escalates to a
// battle when the prey fights back and degrades to feeding once it dies.
func (b *Brain) execHunt(a *Agent, t Snapshot) {
	if t.Dead {
		b.transition(a, components.ToFood, t.CenterOfMass, t.Entity)
		return
	}
	if !a.reachable(t) {
		b.finish(a, OutcomeInterrupted)
		return
	}
	g := a.Goal
	g.Track(t.Position, t.CenterOfMass)
	huntRange := b.cfg.HuntRange * a.Size()

	if g.Behavior == components.ToHunt {
		if b.approach(a, t.Position, huntRange, true) {
			b.transition(a, components.Hunt, t.Position, t.Entity)
		}
		return
	}

	d := distance(a.Position(), t.Position)
	if d > huntRange*1.5 {
		b.transition(a, components.ToHunt, t.Position, t.Entity)
		return
	}
	contact := Contact(a.Body.Reach(), t.Size)
	if !b.approach(a, t.Position, contact, true) {
		return
	}
	if t.Behavior.IsFighting() {
		b.transition(a, components.Battle, t.Position, t.Entity)
	}
	b.act(a, t.CenterOfMass, components.ActAttack)
}

func (b *Brain) execFood(a *Agent, t Snapshot) {
	g := a.Goal
	if a.Vitals.Food >= a.Vitals.Max {
		b.finish(a, OutcomeCompleted)
		return
	}
	radius := a.Body.Reach()
	if !g.Target.IsZero() {
		if !t.Dead || !a.reachable(t) {
			b.finish(a, OutcomeInterrupted)
			return
		}
		g.Track(t.CenterOfMass, t.CenterOfMass)
		radius = Contact(a.Body.Reach(), t.Size)
	}

	if g.Behavior == components.ToFood {
		if b.approach(a, g.Position, radius, false) {
			b.transition(a, components.Food, g.Position, g.Target)
		}
		return
	}

	if g.Target.IsZero() && b.foodGone(a) {
		b.finish(a, OutcomeCompleted)
		return
	}
	if flatDistance(a.Position(), g.Position) > radius*1.5 {
		b.transition(a, components.ToFood, g.Position, g.Target)
		return
	}
	b.act(a, g.Position, components.ActEat)
}

// foodGone reports an exhausted position-only food source. Carnivores have
// nothing to eat without a carcass; grazers run cells down to zero.
func (b *Brain) foodGone(a *Agent) bool {
	if a.Org.Diet == components.Carnivore {
		return true
	}
	if a.Size() > b.cfg.LargeHerbivoreSize {
		return false
	}
	t := b.world.Terrain()
	if t == nil {
		return false
	}
	return t.Vegetation(t.CellOf(a.Goal.Position)) <= 0
}

func (b *Brain) execWater(a *Agent) {
	g := a.Goal
	if a.Vitals.Water >= a.Vitals.Max {
		b.finish(a, OutcomeCompleted)
		return
	}
	if g.Behavior == components.ToWater {
		if b.approach(a, g.Position, a.Body.Reach()+b.arrival(a), false) {
			b.transition(a, components.Water, g.Position, noTarget)
		}
		return
	}
	b.act(a, g.Position, components.ActDrink)
}

func (b *Brain) execRepose(a *Agent) {
	g := a.Goal
	if a.Vitals.Stamina >= a.Vitals.Max {
		b.finish(a, OutcomeCompleted)
		return
	}
	if g.Behavior == components.ToRepose {
		if b.approach(a, g.Position, b.arrival(a), false) {
			b.transition(a, components.Repose, g.Position, noTarget)
		}
		return
	}
	in := a.Intent
	in.Gait = components.GaitIdle
	in.Throttle = 0
	in.Pitch = 0
	in.Flags |= components.ActSleep
}

// avoid updates the turn bias applied by approach on the next tick. An
// obstacle other than the goal target pulls the bias toward the side away
// from it; otherwise the bias decays to zero.
func (b *Brain) avoid(a *Agent) {
	s := a.Steer
	if s.HasObstacle && (s.Obstacle.IsZero() || s.Obstacle != a.Goal.Target) {
		side := components.NormalizeAngle(components.YawTo(a.Position(), s.ObstaclePos) - a.Xf.Yaw)
		want := b.steer.AvoidAngle
		if side > 0 {
			want = -want
		}
		s.Avoid += (want - s.Avoid) * b.steer.AvoidRate
		return
	}
	s.Avoid *= b.steer.AvoidDecay
	if math.Abs(s.Avoid) < 0.01 {
		s.Avoid = 0
	}
}
