package components

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/config"
)

// Body holds the scale-derived extents of an agent.
type Body struct {
	Size     float64 // withers radius, used for every range check
	BoxScale r3.Vec  // bounding box; Z is the reach of the head
}

// Reach returns the eating and biting distance.
func (b Body) Reach() float64 {
	return b.BoxScale.Z
}

// BodyFromArchetype returns the body for the given archetype.
func BodyFromArchetype(arch *config.ArchetypeConfig) Body {
	return Body{
		Size:     arch.Size,
		BoxScale: r3.Vec{X: arch.Size, Y: arch.Size, Z: arch.Reach},
	}
}

// Locomotion holds movement capabilities and the habitat state the
// locomotion system maintains each tick.
type Locomotion struct {
	CanWalk   bool
	CanSwim   bool
	CanFly    bool
	LowFlight bool
	CanAttack bool

	WalkSpeed float64
	RunSpeed  float64
	TurnRate  float64

	OnGround   bool
	InWater    bool
	Underwater bool
	Flying     bool
}

// LocomotionFromArchetype returns capabilities for the given archetype.
func LocomotionFromArchetype(arch *config.ArchetypeConfig) Locomotion {
	return Locomotion{
		CanWalk:   arch.CanWalk,
		CanSwim:   arch.CanSwim,
		CanFly:    arch.CanFly,
		LowFlight: arch.LowFlight,
		CanAttack: arch.CanAttack,
		WalkSpeed: arch.WalkSpeed,
		RunSpeed:  arch.RunSpeed,
		TurnRate:  arch.TurnRate,
	}
}

// SwimOnly reports an agent that cannot leave the water.
func (l Locomotion) SwimOnly() bool {
	return l.CanSwim && !l.CanWalk && !l.CanFly
}
