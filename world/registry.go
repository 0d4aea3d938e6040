package world

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/ai"
	"github.com/pthm-cable/fauna/components"
	"github.com/pthm-cable/fauna/config"
)

// Registry owns the ECS world and implements ai.World over it.
type Registry struct {
	world *ecs.World

	mapper *ecs.Map8[
		components.Organism,
		components.Transform,
		components.Body,
		components.Vitals,
		components.Locomotion,
		components.Goal,
		components.Steering,
		components.Intent,
	]
	filter *ecs.Filter8[
		components.Organism,
		components.Transform,
		components.Body,
		components.Vitals,
		components.Locomotion,
		components.Goal,
		components.Steering,
		components.Intent,
	]
	scripts *ecs.Map[components.Script]

	grid    *Grid
	terrain *Terrain
	physics *Physics

	nextID   uint32
	maxVital float64
	scratch  []ecs.Entity
}

// NewRegistry creates an empty registry. A nil terrain yields a world
// without terrain or physics queries.
func NewRegistry(cfg *config.Config, terrain *Terrain) *Registry {
	w := ecs.NewWorld()
	r := &Registry{
		world: w,
		mapper: ecs.NewMap8[
			components.Organism,
			components.Transform,
			components.Body,
			components.Vitals,
			components.Locomotion,
			components.Goal,
			components.Steering,
			components.Intent,
		](w),
		filter: ecs.NewFilter8[
			components.Organism,
			components.Transform,
			components.Body,
			components.Vitals,
			components.Locomotion,
			components.Goal,
			components.Steering,
			components.Intent,
		](w),
		scripts:  ecs.NewMap[components.Script](w),
		grid:     NewGrid(cfg.World.Size, cfg.Sim.GridCellSize),
		terrain:  terrain,
		nextID:   1,
		maxVital: cfg.Vitals.Max,
		scratch:  make([]ecs.Entity, 0, queryCapacity),
	}
	if terrain != nil {
		r.physics = NewPhysics(terrain, cfg.World.RaycastStep)
	}
	return r
}

// ECS returns the underlying ark world.
func (r *Registry) ECS() *ecs.World {
	return r.world
}

// Spawn creates an agent of the given archetype standing at pos.
func (r *Registry) Spawn(arch *config.ArchetypeConfig, archID uint8, pos r3.Vec, yaw float64) ecs.Entity {
	org := components.Organism{
		ID:          r.nextID,
		Species:     arch.Name,
		Diet:        components.ParseDiet(arch.Diet),
		ArchetypeID: archID,
	}
	r.nextID++

	loco := components.LocomotionFromArchetype(arch)
	loco.OnGround = true
	if r.terrain != nil {
		ground := r.terrain.GroundHeight(pos.X, pos.Z)
		wl := r.terrain.WaterLevel()
		pos.Y = ground
		if loco.SwimOnly() && ground < wl {
			pos.Y = (ground + wl) * 0.5
			loco.OnGround = false
		}
		loco.InWater = ground < wl
		loco.Underwater = loco.InWater && pos.Y+arch.Size < wl
	}
	xf := components.Transform{Position: pos, Yaw: yaw}
	body := components.BodyFromArchetype(arch)
	vitals := components.NewVitals(r.maxVital)
	goal := components.Goal{}
	steer := components.Steering{}
	intent := components.Intent{Yaw: yaw}

	e := r.mapper.NewEntity(&org, &xf, &body, &vitals, &loco, &goal, &steer, &intent)
	r.grid.Insert(e, pos)
	return e
}

// SetScript attaches scripted overrides to e.
func (r *Registry) SetScript(e ecs.Entity, s *components.Script) {
	if !r.world.Alive(e) {
		return
	}
	if r.scripts.Has(e) {
		*r.scripts.Get(e) = *s
		return
	}
	r.scripts.Add(e, s)
}

// Remove destroys e. Must not be called while a query is running.
func (r *Registry) Remove(e ecs.Entity) {
	if r.world.Alive(e) {
		r.world.RemoveEntity(e)
	}
}

// Rebuild re-buckets every agent into the spatial grid. Call once per tick
// before the decision pass.
func (r *Registry) Rebuild() {
	r.grid.Clear()
	query := r.filter.Query()
	for query.Next() {
		_, xf, _, _, _, _, _, _ := query.Get()
		r.grid.Insert(query.Entity(), xf.Position)
	}
}

// Each calls fn with a view of every agent. fn may mutate the view's
// components but must not add or remove entities.
func (r *Registry) Each(fn func(a *ai.Agent)) {
	var a ai.Agent
	query := r.filter.Query()
	for query.Next() {
		e := query.Entity()
		org, xf, body, vitals, loco, goal, steer, intent := query.Get()
		a = ai.Agent{
			Entity: e,
			Org:    org,
			Xf:     xf,
			Body:   body,
			Vitals: vitals,
			Loco:   loco,
			Goal:   goal,
			Steer:  steer,
			Intent: intent,
			Script: r.script(e),
		}
		fn(&a)
	}
}

// Count returns the number of agents.
func (r *Registry) Count() int {
	n := 0
	query := r.filter.Query()
	for query.Next() {
		n++
	}
	return n
}

func (r *Registry) script(e ecs.Entity) *components.Script {
	if !r.scripts.Has(e) {
		return nil
	}
	return r.scripts.Get(e)
}

// Nearby appends live snapshots of every agent within radius of center.
func (r *Registry) Nearby(center r3.Vec, radius float64, dst []ai.Snapshot) []ai.Snapshot {
	r.scratch = r.grid.QueryInto(r.scratch[:0], center, radius)
	radiusSq := radius * radius
	for _, e := range r.scratch {
		a, ok := r.Agent(e)
		if !ok {
			continue
		}
		d := r3.Sub(a.Position(), center)
		if r3.Dot(d, d) <= radiusSq {
			dst = append(dst, a.Snapshot())
		}
	}
	return dst
}

// Lookup copies the current state of e.
func (r *Registry) Lookup(e ecs.Entity) (ai.Snapshot, bool) {
	a, ok := r.Agent(e)
	if !ok {
		return ai.Snapshot{}, false
	}
	return a.Snapshot(), true
}

// Agent returns a mutable view of e.
func (r *Registry) Agent(e ecs.Entity) (*ai.Agent, bool) {
	if e.IsZero() || !r.world.Alive(e) {
		return nil, false
	}
	org, xf, body, vitals, loco, goal, steer, intent := r.mapper.Get(e)
	if org == nil {
		return nil, false
	}
	return &ai.Agent{
		Entity: e,
		Org:    org,
		Xf:     xf,
		Body:   body,
		Vitals: vitals,
		Loco:   loco,
		Goal:   goal,
		Steer:  steer,
		Intent: intent,
		Script: r.script(e),
	}, true
}

// Terrain returns the terrain, or nil.
func (r *Registry) Terrain() ai.Terrain {
	if r.terrain == nil {
		return nil
	}
	return r.terrain
}

// Physics returns the physics view, or nil.
func (r *Registry) Physics() ai.Physics {
	if r.physics == nil {
		return nil
	}
	return r.physics
}

// Ground returns the concrete terrain for collaborator systems.
func (r *Registry) Ground() *Terrain {
	return r.terrain
}
