// Package main provides CMA-ES optimization of decision gates and budgets.
package main

import (
	"math"

	"github.com/pthm-cable/fauna/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Arbiter gates (percent per idle tick)
			{Name: "water_chance", Path: "ai.water_chance", Min: 1, Max: 60, Default: 25},
			{Name: "food_chance", Path: "ai.food_chance", Min: 1, Max: 60, Default: 25},
			{Name: "repose_chance", Path: "ai.repose_chance", Min: 0, Max: 40, Default: 10},
			{Name: "friend_chance", Path: "ai.friend_chance", Min: 0, Max: 30, Default: 5},
			{Name: "contest_chance", Path: "ai.contest_chance", Min: 0, Max: 30, Default: 5},
			// Need thresholds
			{Name: "hunger", Path: "ai.hunger", Min: 30, Max: 95, Default: 75},
			{Name: "thirst", Path: "ai.thirst", Min: 30, Max: 95, Default: 75},
			{Name: "tiredness", Path: "ai.tiredness", Min: 10, Max: 90, Default: 50},
			// Threat response
			{Name: "fight_health", Path: "ai.fight_health", Min: 10, Max: 90, Default: 50},
			{Name: "size_ratio", Path: "ai.size_ratio", Min: 1.0, Max: 3.0, Default: 1.5},
			{Name: "flee_range", Path: "ai.flee_range", Min: 30, Max: 200, Default: 100},
			// Hunting
			{Name: "hunt_range", Path: "ai.hunt_range", Min: 2, Max: 12, Default: 6},
			{Name: "attack_range", Path: "ai.attack_range", Min: 1.0, Max: 3.0, Default: 1.5},
			// Budgets (ticks)
			{Name: "goal_budget", Path: "ai.goal_budget", Min: 200, Max: 4000, Default: 1200},
			{Name: "contest_budget", Path: "ai.contest_budget", Min: 20, Max: 400, Default: 100},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = math.Max(spec.Min, math.Min(spec.Max, v[i]))
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	i := 0
	next := func() float64 {
		v := clamped[i]
		i++
		return v
	}

	ai := &cfg.AI
	ai.WaterChance = next()
	ai.FoodChance = next()
	ai.ReposeChance = next()
	ai.FriendChance = next()
	ai.ContestChance = next()

	ai.Hunger = next()
	ai.Thirst = next()
	ai.Tiredness = next()

	ai.FightHealth = next()
	ai.SizeRatio = next()
	ai.FleeRange = next()

	ai.HuntRange = next()
	ai.AttackRange = next()

	ai.GoalBudget = int(math.Round(next()))
	ai.ContestBudget = int(math.Round(next()))
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	ai := cfg.AI
	return []float64{
		ai.WaterChance,
		ai.FoodChance,
		ai.ReposeChance,
		ai.FriendChance,
		ai.ContestChance,
		ai.Hunger,
		ai.Thirst,
		ai.Tiredness,
		ai.FightHealth,
		ai.SizeRatio,
		ai.FleeRange,
		ai.HuntRange,
		ai.AttackRange,
		float64(ai.GoalBudget),
		float64(ai.ContestBudget),
	}
}
