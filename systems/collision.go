package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/ai"
	"github.com/pthm-cable/fauna/world"
)

// probeFactor scales body size into the look-ahead distance for obstacles.
const probeFactor = 2.0

// noEntity marks static obstacles.
var noEntity ecs.Entity

// CollisionSystem registers the nearest obstacle ahead of every agent as a
// steering hint and clears it once the way is free.
type CollisionSystem struct {
	reg     *world.Registry
	terrain *world.Terrain
	buf     []ai.Snapshot
}

// NewCollisionSystem creates a collision system.
func NewCollisionSystem(reg *world.Registry) *CollisionSystem {
	return &CollisionSystem{
		reg:     reg,
		terrain: reg.Ground(),
		buf:     make([]ai.Snapshot, 0, 32),
	}
}

// Update refreshes every agent's obstacle hint.
func (s *CollisionSystem) Update() {
	s.reg.Each(func(a *ai.Agent) {
		s.buf = DetectObstacle(a, s.reg, s.terrain, s.buf[:0])
	})
}

// DetectObstacle sets a's obstacle to the closest agent or trunk in front of
// it within the probe distance, or clears it. buf is scratch space and is
// returned for reuse. A nil terrain skips trees.
func DetectObstacle(a *ai.Agent, w ai.World, t *world.Terrain, buf []ai.Snapshot) []ai.Snapshot {
	steer := a.Steer
	if a.Vitals.Dead {
		steer.ClearObstacle()
		return buf
	}

	pos, yaw, size := a.Position(), a.Xf.Yaw, a.Size()
	probe := size * probeFactor

	var (
		found   bool
		best    = probe
		hit     ai.Snapshot
		hitTree bool
		treePos r3.Vec
	)

	buf = w.Nearby(pos, probe+size, buf)
	for _, o := range buf {
		if o.Entity == a.Entity || !ahead(pos, yaw, o.Position) {
			continue
		}
		gap := flatDistance(pos, o.Position) - (size+o.Size)*0.5
		if gap < best {
			best = gap
			hit = o
			found = true
		}
	}

	if t != nil {
		if tree, ok := t.NearestTree(pos, probe+size); ok && ahead(pos, yaw, tree.Base) {
			if gap := flatDistance(pos, tree.Base) - tree.Radius - size*0.5; gap < best {
				hitTree = true
				treePos = tree.Base
			}
		}
	}

	switch {
	case hitTree:
		steer.SetObstacle(noEntity, treePos)
	case found:
		steer.SetObstacle(hit.Entity, hit.Position)
	default:
		steer.ClearObstacle()
	}
	return buf
}
