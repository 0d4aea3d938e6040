// Package components defines the ECS components attached to agents.
package components

// Diet determines food sources and the predator/prey relationship.
type Diet uint8

const (
	Herbivore Diet = iota
	Carnivore
)

func (d Diet) String() string {
	if d == Carnivore {
		return "carnivore"
	}
	return "herbivore"
}

// ParseDiet maps the config spelling to a Diet. Unknown values are herbivores.
func ParseDiet(s string) Diet {
	if s == "carnivore" {
		return Carnivore
	}
	return Herbivore
}

// Organism bundles identity and diet.
type Organism struct {
	ID          uint32
	Species     string
	Diet        Diet
	ArchetypeID uint8
}

// Vitals are owned by the metabolism system and read by the decision core.
// All values are clamped to [0, Max].
type Vitals struct {
	Health  float64
	Food    float64
	Water   float64
	Stamina float64
	Max     float64

	Dead     bool
	DeadTime float64 // seconds since death
	Cooldown float64 // seconds until the next bite lands
}

// NewVitals returns full vitals for a fresh spawn.
func NewVitals(max float64) Vitals {
	return Vitals{Health: max, Food: max, Water: max, Stamina: max, Max: max}
}

// Clamp keeps all vitals inside [0, Max].
func (v *Vitals) Clamp() {
	v.Health = clampRange(v.Health, 0, v.Max)
	v.Food = clampRange(v.Food, 0, v.Max)
	v.Water = clampRange(v.Water, 0, v.Max)
	v.Stamina = clampRange(v.Stamina, 0, v.Max)
}

func clampRange(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
