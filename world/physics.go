package world

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/ai"
	"github.com/pthm-cable/fauna/components"
)

// Physics answers line and overlap queries against terrain, water and trees
// by marching along the segment in fixed steps.
type Physics struct {
	terrain *Terrain
	step    float64
}

// NewPhysics creates a physics view over terrain.
func NewPhysics(t *Terrain, step float64) *Physics {
	if step <= 0 {
		step = 0.5
	}
	return &Physics{terrain: t, step: step}
}

// Linecast returns the first tree, water surface or ground hit between from
// and to. Casts that start under water ignore the surface.
func (p *Physics) Linecast(from, to r3.Vec) (ai.Hit, bool) {
	d := r3.Sub(to, from)
	length := r3.Norm(d)
	if length < 1e-9 {
		return ai.Hit{}, false
	}
	dir := r3.Scale(1/length, d)
	wl := p.terrain.WaterLevel()
	wet := from.Y < wl

	prev := from
	steps := int(math.Ceil(length / p.step))
	for i := 1; i <= steps; i++ {
		q := r3.Add(from, r3.Scale(math.Min(float64(i)*p.step, length), dir))

		if tree, ok := p.terrain.TreeNear(q, 0); ok {
			n := components.Flat(r3.Sub(q, tree.Base))
			if r3.Norm(n) > 1e-9 {
				n = r3.Unit(n)
			}
			return ai.Hit{Point: q, Normal: n, Layer: ai.LayerTree}, true
		}

		if !wet && prev.Y >= wl && q.Y < wl {
			s := (prev.Y - wl) / (prev.Y - q.Y)
			surface := r3.Add(prev, r3.Scale(s, r3.Sub(q, prev)))
			surface.Y = wl
			if p.terrain.GroundHeight(surface.X, surface.Z) < wl {
				return ai.Hit{Point: surface, Normal: components.Up, Layer: ai.LayerWater}, true
			}
		}

		if g := p.terrain.GroundHeight(q.X, q.Z); q.Y <= g {
			point := r3.Vec{X: q.X, Y: g, Z: q.Z}
			return ai.Hit{Point: point, Normal: p.terrain.GroundNormal(q.X, q.Z), Layer: ai.LayerGround}, true
		}
		prev = q
	}
	return ai.Hit{}, false
}

// OverlapSphere reports whether a sphere touches any geometry in mask.
func (p *Physics) OverlapSphere(center r3.Vec, radius float64, mask ai.Layer) bool {
	if mask&ai.LayerTree != 0 {
		if _, ok := p.terrain.TreeNear(center, radius); ok {
			return true
		}
	}
	if mask&ai.LayerGround != 0 && center.Y-radius <= p.terrain.GroundHeight(center.X, center.Z) {
		return true
	}
	if mask&ai.LayerWater != 0 && center.Y-radius < p.terrain.WaterLevel() {
		return true
	}
	return false
}
