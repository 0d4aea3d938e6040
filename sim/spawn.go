package sim

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/components"
	"github.com/pthm-cable/fauna/config"
)

// spawnAttempts bounds the search for a position matching an archetype's habitat.
const spawnAttempts = 64

// spawnInitialPopulation creates count agents of every archetype at random
// positions inside the spawn margin.
func (s *Sim) spawnInitialPopulation() {
	for i := range s.cfg.Archetypes {
		arch := &s.cfg.Archetypes[i]
		for n := 0; n < arch.Count; n++ {
			s.spawnAgent(arch, uint8(i))
		}
	}
}

// spawnAgent places one agent where its archetype can live: swimmers in
// water deeper than their body, everything else on dry ground. Falls back to
// the last sample when no suitable spot turns up.
func (s *Sim) spawnAgent(arch *config.ArchetypeConfig, archID uint8) ecs.Entity {
	loco := components.LocomotionFromArchetype(arch)
	var pos r3.Vec
	for i := 0; i < spawnAttempts; i++ {
		pos = s.randomPosition()
		if s.habitable(loco, arch.Size, pos) {
			break
		}
	}
	yaw := s.rng.Float64()*2*math.Pi - math.Pi
	return s.reg.Spawn(arch, archID, pos, yaw)
}

func (s *Sim) randomPosition() r3.Vec {
	size := s.cfg.World.Size
	margin := math.Min(s.cfg.Population.SpawnMargin, size*0.5)
	span := size - 2*margin
	return r3.Vec{
		X: margin + s.rng.Float64()*span,
		Z: margin + s.rng.Float64()*span,
	}
}

func (s *Sim) habitable(loco components.Locomotion, size float64, pos r3.Vec) bool {
	ground := s.terrain.GroundHeight(pos.X, pos.Z)
	wl := s.terrain.WaterLevel()
	if loco.SwimOnly() {
		return ground < wl-size
	}
	return ground >= wl
}
