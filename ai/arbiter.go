package ai

import "github.com/pthm-cable/fauna/components"

// Think runs one decision tick for a: pick a goal when idle, let the
// interrupt scans override a running one, then execute it.
func (b *Brain) Think(a *Agent) {
	if a.Vitals.Dead {
		b.finish(a, OutcomeDied)
		return
	}

	if !a.Goal.Active {
		b.choose(a)
	} else if !b.FindCustomTarget(a) {
		b.FindEnemy(a)
	}

	if a.Goal.Active {
		b.ExecuteBehavior(a)
	} else {
		a.Intent.Stop()
	}
}

// choose walks the gates in priority order. The first gate that both rolls
// and finds a target wins; otherwise the agent wanders.
func (b *Brain) choose(a *Agent) {
	if b.pickWaypoint(a) {
		return
	}
	v := a.Vitals
	if v.Water < b.cfg.Thirst && b.chance(b.cfg.WaterChance) && b.FindWater(a) {
		return
	}
	if v.Food < b.cfg.Hunger && b.chance(b.cfg.FoodChance) && b.seekFood(a) {
		return
	}
	if v.Stamina < b.cfg.Tiredness && b.chance(b.cfg.ReposeChance) && b.seekRest(a) {
		return
	}
	if b.chance(b.cfg.FriendChance) && b.FindFriend(a) {
		return
	}
	if p, ok := b.FindPath(a, Bias{}); ok {
		b.assign(a, components.ToPath, p, noTarget)
	}
}

func (b *Brain) pickWaypoint(a *Agent) bool {
	s := a.Script
	if s == nil || len(s.Waypoints) == 0 {
		return false
	}
	n := len(s.Waypoints)
	if s.Next < 0 || s.Next >= n {
		s.Next = 0
	}
	for i := 0; i < n; i++ {
		idx := (s.Next + i) % n
		wp := s.Waypoints[idx]
		if !b.chance(wp.Priority) {
			continue
		}
		s.Next = idx
		b.assign(a, components.ToWaypoint, wp.Position, noTarget)
		return true
	}
	return false
}

func (b *Brain) seekFood(a *Agent) bool {
	if b.FindFood(a) {
		return true
	}
	return a.Org.Diet == components.Carnivore && b.FindPrey(a)
}

func (b *Brain) seekRest(a *Agent) bool {
	p, ok := b.FindPath(a, Bias{Rest: true})
	if !ok {
		return false
	}
	b.assign(a, components.ToRepose, p, noTarget)
	return true
}
