package ai

import (
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/components"
	"github.com/pthm-cable/fauna/config"
)

func init() {
	config.MustInit("")
}

// fakeWorld is an in-memory World. Entities come from a real ark world so
// handles behave like the registry's.
type fakeWorld struct {
	ecs     *ecs.World
	orgs    *ecs.Map1[components.Organism]
	agents  []*Agent
	terrain Terrain
	phys    Physics
}

func newFakeWorld() *fakeWorld {
	w := ecs.NewWorld()
	return &fakeWorld{
		ecs:  w,
		orgs: ecs.NewMap1[components.Organism](w),
	}
}

func (f *fakeWorld) add(species string, diet components.Diet, size float64, pos r3.Vec) *Agent {
	org := components.Organism{ID: uint32(len(f.agents) + 1), Species: species, Diet: diet}
	e := f.orgs.NewEntity(&org)
	vitals := components.NewVitals(100)
	a := &Agent{
		Entity: e,
		Org:    &org,
		Xf:     &components.Transform{Position: pos},
		Body:   &components.Body{Size: size, BoxScale: r3.Vec{X: size, Y: size, Z: size * 1.5}},
		Vitals: &vitals,
		Loco: &components.Locomotion{
			CanWalk:   true,
			CanAttack: diet == components.Carnivore,
			OnGround:  true,
		},
		Goal:   &components.Goal{},
		Steer:  &components.Steering{},
		Intent: &components.Intent{},
	}
	f.agents = append(f.agents, a)
	return a
}

func (f *fakeWorld) remove(a *Agent) {
	for i, other := range f.agents {
		if other == a {
			f.agents = append(f.agents[:i], f.agents[i+1:]...)
			break
		}
	}
	f.ecs.RemoveEntity(a.Entity)
}

func (f *fakeWorld) Nearby(center r3.Vec, radius float64, dst []Snapshot) []Snapshot {
	for _, a := range f.agents {
		if distance(center, a.Position()) <= radius {
			dst = append(dst, a.Snapshot())
		}
	}
	return dst
}

func (f *fakeWorld) Lookup(e ecs.Entity) (Snapshot, bool) {
	if a, ok := f.Agent(e); ok {
		return a.Snapshot(), true
	}
	return Snapshot{}, false
}

func (f *fakeWorld) Agent(e ecs.Entity) (*Agent, bool) {
	if e.IsZero() || !f.ecs.Alive(e) {
		return nil, false
	}
	for _, a := range f.agents {
		if a.Entity == e {
			return a, true
		}
	}
	return nil, false
}

func (f *fakeWorld) Terrain() Terrain { return f.terrain }
func (f *fakeWorld) Physics() Physics { return f.phys }

// fakePhysics answers casts through optional callbacks; nil callbacks miss.
type fakePhysics struct {
	linecast func(from, to r3.Vec) (Hit, bool)
	overlap  func(center r3.Vec, radius float64, mask Layer) bool
}

func (p *fakePhysics) Linecast(from, to r3.Vec) (Hit, bool) {
	if p.linecast == nil {
		return Hit{}, false
	}
	return p.linecast(from, to)
}

func (p *fakePhysics) OverlapSphere(center r3.Vec, radius float64, mask Layer) bool {
	if p.overlap == nil {
		return false
	}
	return p.overlap(center, radius, mask)
}

// flatGround is open ground at y=0: downward casts land on it, nothing else hits.
func flatGround() *fakePhysics {
	return &fakePhysics{linecast: func(from, to r3.Vec) (Hit, bool) {
		if from.Y > 0 && to.Y <= 0 && from.X == to.X && from.Z == to.Z {
			return Hit{Point: r3.Vec{X: to.X, Z: to.Z}, Normal: components.Up, Layer: LayerGround}, true
		}
		return Hit{}, false
	}}
}

// walledIn blocks every cast with a tree.
func walledIn() *fakePhysics {
	return &fakePhysics{linecast: func(from, to r3.Vec) (Hit, bool) {
		return Hit{Point: from, Layer: LayerTree}, true
	}}
}

// fakeTerrain is flat ground with a vegetation lookup.
type fakeTerrain struct {
	cell  float64
	water float64
	veg   map[Cell]float64
}

func (t *fakeTerrain) GroundHeight(x, z float64) float64 { return 0 }
func (t *fakeTerrain) GroundNormal(x, z float64) r3.Vec  { return components.Up }
func (t *fakeTerrain) WaterLevel() float64               { return t.water }

func (t *fakeTerrain) CellOf(p r3.Vec) Cell {
	return Cell{X: int(math.Floor(p.X / t.cell)), Z: int(math.Floor(p.Z / t.cell))}
}

func (t *fakeTerrain) CellCenter(c Cell) r3.Vec {
	return r3.Vec{X: (float64(c.X) + 0.5) * t.cell, Z: (float64(c.Z) + 0.5) * t.cell}
}

func (t *fakeTerrain) Vegetation(c Cell) float64 { return t.veg[c] }

// testBrain returns a brain with the scan throttle disabled.
func testBrain(w World, seed int64) *Brain {
	cfg := config.Cfg().Clone()
	cfg.AI.ThreatInterval = 1
	return NewBrain(cfg, w, rand.New(rand.NewSource(seed)), nil)
}

// recorder collects goal events.
type recorder struct {
	events []GoalEvent
}

func (r *recorder) RecordGoal(ev GoalEvent) {
	r.events = append(r.events, ev)
}

func (r *recorder) last() GoalEvent {
	if len(r.events) == 0 {
		return GoalEvent{}
	}
	return r.events[len(r.events)-1]
}

// checkGoalInvariant fails when an inactive goal still carries state.
func checkGoalInvariant(t interface{ Errorf(string, ...any) }, a *Agent) {
	g := a.Goal
	if g.Active {
		return
	}
	if !g.Target.IsZero() || g.Position != (r3.Vec{}) || g.Behavior != components.BehaviorNone {
		t.Errorf("inactive goal carries state: %+v", *g)
	}
}
