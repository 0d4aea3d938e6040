package ai

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/components"
)

// sweepStep is the angular step of ring sweeps, in degrees.
const sweepStep = 15.0

func deg2rad(d float64) float64 {
	return d * math.Pi / 180
}

// FindWater sweeps rings of growing radius around the agent, casting down
// onto each sample, and targets the first water surface with clear water
// beneath it.
func (b *Brain) FindWater(a *Agent) bool {
	phys := b.world.Physics()
	size := a.Size()
	if phys == nil || size <= 0 {
		return false
	}
	terrain := b.world.Terrain()
	pos := a.Position()
	probe := b.cfg.WaterProbeHeight

	for radius := size; radius <= b.cfg.MaxRange; radius += size {
		for deg := 0.0; deg < 360; deg += sweepStep {
			dir := components.YawDir(a.Xf.Yaw + deg2rad(deg))
			sample := r3.Add(pos, r3.Scale(radius, dir))
			ground := pos.Y
			if terrain != nil {
				ground = terrain.GroundHeight(sample.X, sample.Z)
			}
			from := r3.Vec{X: sample.X, Y: ground + probe, Z: sample.Z}
			to := r3.Vec{X: sample.X, Y: ground - probe, Z: sample.Z}

			hit, ok := phys.Linecast(from, to)
			if !ok || hit.Layer != LayerWater {
				continue
			}
			if !b.clearWaterBelow(phys, hit.Point) {
				continue
			}
			b.assign(a, components.ToWater, hit.Point, ecs.Entity{})
			return true
		}
	}
	return false
}

// clearWaterBelow checks that the bed is deeper than the minimum drinking depth.
func (b *Brain) clearWaterBelow(phys Physics, surface r3.Vec) bool {
	from := r3.Sub(surface, r3.Scale(0.01, components.Up))
	to := r3.Sub(surface, r3.Scale(b.cfg.WaterMinDepth, components.Up))
	hit, ok := phys.Linecast(from, to)
	return !ok || hit.Layer != LayerGround
}

// FindFood targets a carcass for carnivores, tree foliage for large
// herbivores and vegetation for the rest.
func (b *Brain) FindFood(a *Agent) bool {
	if a.Org.Diet == components.Carnivore {
		return b.findCarcass(a)
	}
	if a.Size() > b.cfg.LargeHerbivoreSize {
		return b.findTree(a)
	}
	return b.findGrass(a)
}

func (b *Brain) findCarcass(a *Agent) bool {
	for _, s := range b.scan(a) {
		if s.Entity == a.Entity || !s.Dead || !a.reachable(s) {
			continue
		}
		b.assign(a, components.ToFood, s.CenterOfMass, s.Entity)
		return true
	}
	return false
}

func (b *Brain) findTree(a *Agent) bool {
	phys := b.world.Physics()
	if phys == nil {
		return false
	}
	eye := a.Eye()
	radius := b.cfg.MaxRange / 4
	for deg := 0.0; deg < 360; deg += sweepStep {
		dir := components.YawDir(a.Xf.Yaw + deg2rad(deg))
		hit, ok := phys.Linecast(eye, r3.Add(eye, r3.Scale(radius, dir)))
		if ok && hit.Layer == LayerTree {
			b.assign(a, components.ToFood, hit.Point, ecs.Entity{})
			return true
		}
	}
	return false
}

func (b *Brain) findGrass(a *Agent) bool {
	terrain := b.world.Terrain()
	if terrain == nil {
		return false
	}
	phys := b.world.Physics()
	pos := a.Position()

	// The 2x2 block of cells sharing the corner nearest to the agent
	c := terrain.CellOf(pos)
	center := terrain.CellCenter(c)
	x0, z0 := c.X, c.Z
	if pos.X < center.X {
		x0--
	}
	if pos.Z < center.Z {
		z0--
	}

	eye := a.Eye()
	for dz := 0; dz < 2; dz++ {
		for dx := 0; dx < 2; dx++ {
			cell := Cell{X: x0 + dx, Z: z0 + dz}
			if terrain.Vegetation(cell) <= 0 {
				continue
			}
			p := terrain.CellCenter(cell)
			if phys != nil {
				if _, blocked := phys.Linecast(eye, r3.Add(p, r3.Scale(0.5, components.Up))); blocked {
					continue
				}
			}
			b.assign(a, components.ToFood, p, ecs.Entity{})
			return true
		}
	}
	return false
}

// FindPrey picks live prey by preference rather than distance: herbivores
// under the prey size ratio, then smaller carnivores of another species, and
// only when starving any smaller agent including its own kind.
func (b *Brain) FindPrey(a *Agent) bool {
	if a.Org.Diet != components.Carnivore {
		return false
	}
	size := a.Size()
	var herb, rival, any *Snapshot

	near := b.scan(a)
	for i := range near {
		s := &near[i]
		if s.Entity == a.Entity || s.Dead || !a.reachable(*s) {
			continue
		}
		switch {
		case s.Diet == components.Herbivore && s.Size < size*b.cfg.PreySizeRatio:
			if herb == nil {
				herb = s
			}
		case s.Diet == components.Carnivore && s.Species != a.Org.Species && s.Size < size*b.cfg.SizeRatio:
			if rival == nil {
				rival = s
			}
		case s.Size < size:
			if any == nil {
				any = s
			}
		}
		if herb != nil {
			break
		}
	}

	pick := herb
	if pick == nil {
		pick = rival
	}
	if pick == nil && a.Vitals.Food <= b.cfg.CannibalFood {
		pick = any
	}
	if pick == nil {
		return false
	}
	b.assign(a, components.ToHunt, pick.Position, pick.Entity)
	return true
}

// FindFriend joins the first same-species agent beyond the minimum
// separation, adopting its goal when useful and herding toward it otherwise.
func (b *Brain) FindFriend(a *Agent) bool {
	pos := a.Position()
	minSep := b.cfg.FriendMinSeparation * a.Size()
	for _, s := range b.scan(a) {
		if s.Entity == a.Entity || s.Dead || s.Species != a.Org.Species || !a.reachable(s) {
			continue
		}
		if distance(pos, s.Position) <= minSep {
			continue
		}
		if !b.shareGoal(a, s) {
			b.assign(a, components.ToHerd, s.Position, s.Entity)
		}
		return true
	}
	return false
}

// shareGoal copies a friend's goal by priority: hunt or battle target, then
// food when hungry, then water when thirsty.
func (b *Brain) shareGoal(a *Agent, s Snapshot) bool {
	var beh components.Behavior
	target := s.Target

	switch {
	case (s.Behavior.IsHunting() || s.Behavior == components.Battle) && !s.Target.IsZero() && s.Target != a.Entity:
		switch {
		case a.Org.Diet == components.Carnivore:
			beh = components.ToHunt
		case a.Loco.CanAttack:
			beh = components.ToTarget
		}
	case s.Behavior.IsEating() && a.Vitals.Food < b.cfg.Hunger:
		beh = components.ToFood
	case s.Behavior.IsDrinking() && a.Vitals.Water < b.cfg.Thirst:
		beh = components.ToWater
		target = ecs.Entity{}
	}
	if beh == components.BehaviorNone {
		return false
	}
	if a.Goal.Active && a.Goal.Behavior == beh && a.Goal.Target == target {
		return true
	}
	b.assign(a, beh, s.TargetPos, target)
	return true
}
