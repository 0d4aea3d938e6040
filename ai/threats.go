package ai

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/components"
)

// FindEnemy reacts to nearby fights. It only runs on the agent's throttle
// tick and never while the agent is already fleeing or fighting.
func (b *Brain) FindEnemy(a *Agent) bool {
	if !b.threatTick(a) || a.Goal.Behavior.IsEscalated() {
		return false
	}
	if a.Org.Diet == components.Carnivore {
		return b.carnivoreThreat(a)
	}
	return b.herbivoreThreat(a)
}

func (b *Brain) carnivoreThreat(a *Agent) bool {
	size := a.Size()
	for _, s := range b.scan(a) {
		if s.Entity == a.Entity || s.Dead || s.Species == a.Org.Species || !a.reachable(s) {
			continue
		}
		if s.Diet != components.Herbivore && (s.Behavior.IsHunting() || s.Behavior == components.Battle) {
			if s.Size > size*b.cfg.SizeRatio {
				b.flee(a, s)
			} else {
				b.assign(a, components.ToHunt, s.Position, s.Entity)
			}
			return true
		}
		if s.Diet == components.Herbivore && s.Behavior == components.Battle && s.Target == a.Entity && size < s.Size {
			b.flee(a, s)
			return true
		}
	}
	return false
}

func (b *Brain) herbivoreThreat(a *Agent) bool {
	pos := a.Position()
	size := a.Size()
	for _, s := range b.scan(a) {
		if s.Dead || s.Diet != components.Carnivore {
			continue
		}
		attacking := s.Behavior.IsFighting() && s.Target == a.Entity
		engaged := s.Behavior == components.Battle && distance(pos, s.Position) < size*b.cfg.HuntRange
		if !attacking && !engaged {
			continue
		}
		if a.Loco.CanAttack && a.Vitals.Health > b.cfg.FightHealth && s.Size < size*b.cfg.SizeRatio {
			b.assign(a, components.ToTarget, s.Position, s.Entity)
		} else {
			b.flee(a, s)
		}
		return true
	}
	return false
}

// flee runs from threat, asking the steering solver for a point biased away
// from it. When the solver rejects its candidate the agent bolts straight away,
// unless the solver gave up, which leaves the agent without a goal this tick.
func (b *Brain) flee(a *Agent, threat Snapshot) {
	pos := a.Position()
	p, ok := b.FindPath(a, Bias{Active: true, Position: threat.Position, Away: true})
	if !ok {
		// A give-up resets the widening; a plain rejection leaves it raised
		if a.Steer.Widen == 0 {
			return
		}
		away := components.Flat(r3.Sub(pos, threat.Position))
		if r3.Norm(away) < 1e-9 {
			away = r3.Scale(-1, a.Xf.Forward())
		}
		p = r3.Add(pos, r3.Scale(a.Size()*b.steer.MinStep, r3.Unit(away)))
	}
	b.assign(a, components.ToFlee, p, threat.Entity)
	a.Goal.LookAt = threat.Position
}

// FindCustomTarget walks the scripted target list on the throttle tick,
// dropping entries whose entity is gone. The first live entry in range wins.
func (b *Brain) FindCustomTarget(a *Agent) bool {
	if a.Script == nil || len(a.Script.Targets) == 0 || !b.threatTick(a) {
		return false
	}
	pos := a.Position()
	found := false
	kept := a.Script.Targets[:0]
	for _, ct := range a.Script.Targets {
		s, ok := b.world.Lookup(ct.Entity)
		if !ok {
			continue
		}
		kept = append(kept, ct)
		if found || s.Dead || s.Entity == a.Entity {
			continue
		}
		dist := distance(pos, s.Position)
		if ct.MaxRange > 0 && dist > ct.MaxRange {
			continue
		}
		found = b.engage(a, ct.Kind, s, dist)
	}
	a.Script.Targets = kept
	return found
}

func (b *Brain) engage(a *Agent, kind components.TargetKind, s Snapshot, dist float64) bool {
	g := a.Goal
	switch kind {
	case components.TargetEnemy:
		if g.Active && g.Target == s.Entity && g.Behavior.IsEscalated() {
			return true
		}
		if a.Loco.CanAttack && a.Vitals.Health > b.cfg.FightHealth {
			b.assign(a, components.ToTarget, s.Position, s.Entity)
		} else {
			b.flee(a, s)
		}
		return true
	case components.TargetFriend:
		if dist > b.cfg.FriendMinSeparation*a.Size() {
			if g.Active && g.Behavior == components.ToFriend && g.Target == s.Entity {
				return true
			}
			b.assign(a, components.ToFriend, s.Position, s.Entity)
			return true
		}
		return b.shareGoal(a, s)
	}
	return false
}

// noTarget is the zero entity, used for position-only goals.
var noTarget ecs.Entity
