package ai

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/components"
)

// Layer tags what a physics query hit.
type Layer uint8

const (
	LayerGround Layer = 1 << iota
	LayerWater
	LayerTree

	LayerNone Layer = 0
)

func (l Layer) String() string {
	switch l {
	case LayerGround:
		return "ground"
	case LayerWater:
		return "water"
	case LayerTree:
		return "tree"
	default:
		return "none"
	}
}

// Hit is the result of a line cast.
type Hit struct {
	Point  r3.Vec
	Normal r3.Vec
	Layer  Layer
}

// Cell indexes the terrain vegetation grid.
type Cell struct {
	X, Z int
}

// Snapshot is a value copy of another agent taken at read time.
type Snapshot struct {
	Entity       ecs.Entity
	ID           uint32
	Species      string
	Diet         components.Diet
	Dead         bool
	Health       float64
	Size         float64
	Reach        float64
	Position     r3.Vec
	CenterOfMass r3.Vec
	Behavior     components.Behavior
	Target       ecs.Entity
	TargetPos    r3.Vec
	InWater      bool
	Underwater   bool
	CanSwim      bool
	CanWalk      bool
	CanFly       bool
}

// World is the read interface the decision core consumes.
type World interface {
	// Nearby appends every agent within radius of center to dst.
	Nearby(center r3.Vec, radius float64, dst []Snapshot) []Snapshot
	// Lookup reports whether e still exists and copies its state.
	Lookup(e ecs.Entity) (Snapshot, bool)
	// Agent returns a mutable view of another agent.
	Agent(e ecs.Entity) (*Agent, bool)
	// Terrain returns nil when the world has no terrain.
	Terrain() Terrain
	// Physics returns nil when the world has no collision geometry.
	Physics() Physics
}

// Terrain answers height, normal and vegetation queries.
type Terrain interface {
	GroundHeight(x, z float64) float64
	GroundNormal(x, z float64) r3.Vec
	WaterLevel() float64
	CellOf(p r3.Vec) Cell
	CellCenter(c Cell) r3.Vec
	Vegetation(c Cell) float64
}

// Physics answers line and overlap queries against static geometry.
type Physics interface {
	Linecast(from, to r3.Vec) (Hit, bool)
	OverlapSphere(center r3.Vec, radius float64, mask Layer) bool
}
