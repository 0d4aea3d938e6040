package systems

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/ai"
	"github.com/pthm-cable/fauna/components"
	"github.com/pthm-cable/fauna/config"
	"github.com/pthm-cable/fauna/world"
)

// restRecovery is the fraction of the sleep rate recovered while not running.
const restRecovery = 0.1

// Pasture is the vegetation a grazer feeds on.
type Pasture interface {
	CellOf(p r3.Vec) ai.Cell
	Graze(c ai.Cell, amount float64) float64
}

// MetabolismSystem drains and restores vitals and kills agents whose health
// runs out.
type MetabolismSystem struct {
	reg         *world.Registry
	pasture     Pasture
	cfg         config.VitalsConfig
	largeGrazer float64
	obs         Observer
}

// NewMetabolismSystem creates a metabolism system. obs may be nil.
func NewMetabolismSystem(reg *world.Registry, cfg *config.Config, obs Observer) *MetabolismSystem {
	s := &MetabolismSystem{
		reg:         reg,
		cfg:         cfg.Vitals,
		largeGrazer: cfg.AI.LargeHerbivoreSize,
		obs:         observerOrNop(obs),
	}
	if t := reg.Ground(); t != nil {
		s.pasture = t
	}
	return s
}

// Update applies one step of dt seconds to every agent.
func (s *MetabolismSystem) Update(dt float64) {
	s.reg.Each(func(a *ai.Agent) {
		if Metabolize(a, s.pasture, s.cfg, s.largeGrazer, dt) {
			s.obs.RecordDeath(DeathEvent{Agent: a.Org.ID, Species: a.Org.Species, Cause: CauseStarved})
		}
	})
}

// Metabolize updates one agent's vitals from its action flags and reports
// whether it died this step. Dead agents only age.
func Metabolize(a *ai.Agent, p Pasture, cfg config.VitalsConfig, largeGrazer, dt float64) bool {
	v := a.Vitals
	if v.Dead {
		v.DeadTime += dt
		return false
	}
	in := a.Intent

	v.Food -= cfg.FoodDrain * dt
	v.Water -= cfg.WaterDrain * dt

	switch {
	case in.Gait == components.GaitRun:
		v.Stamina -= cfg.StaminaDrain * in.Throttle * dt
	case in.Flags.Has(components.ActSleep):
		v.Stamina += cfg.SleepRate * dt
	default:
		v.Stamina += cfg.SleepRate * restRecovery * dt
	}

	if in.Flags.Has(components.ActEat) {
		v.Food += eat(a, p, cfg, largeGrazer, dt)
	}
	if in.Flags.Has(components.ActDrink) {
		v.Water += cfg.DrinkRate * dt
	}

	if v.Food <= 0 || v.Water <= 0 {
		v.Health -= cfg.StarveDamage * dt
	} else if v.Food > v.Max*0.5 && v.Water > v.Max*0.5 {
		v.Health += cfg.HealRate * dt
	}

	v.Clamp()
	if v.Health <= 0 {
		Kill(a)
		return true
	}
	return false
}

// eat returns the food gained this step. Carcasses and trees never run out;
// grass is taken from the goal's cell.
func eat(a *ai.Agent, p Pasture, cfg config.VitalsConfig, largeGrazer, dt float64) float64 {
	bite := cfg.EatRate * dt
	switch {
	case a.Goal.HasTarget():
		return bite
	case a.Org.Diet == components.Carnivore:
		return 0
	case a.Body.Size > largeGrazer:
		return bite
	case p == nil:
		return 0
	}
	eaten := p.Graze(p.CellOf(a.Goal.Position), bite/a.Vitals.Max)
	return eaten * a.Vitals.Max
}

// Kill marks the agent dead and stops it where it stands.
func Kill(a *ai.Agent) {
	a.Vitals.Dead = true
	a.Vitals.Health = 0
	a.Vitals.DeadTime = 0
	a.Intent.Stop()
}
