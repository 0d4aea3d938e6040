package systems

import (
	"math"

	"github.com/pthm-cable/fauna/ai"
	"github.com/pthm-cable/fauna/components"
	"github.com/pthm-cable/fauna/config"
	"github.com/pthm-cable/fauna/world"
)

// Bite damage scales with the attacker/victim size ratio within these bounds.
const (
	minSizeAdvantage = 0.25
	maxSizeAdvantage = 4.0
)

// CombatSystem resolves attack intents against the goal target.
type CombatSystem struct {
	reg         *world.Registry
	cfg         config.CombatConfig
	attackRange float64
	obs         Observer
}

// NewCombatSystem creates a combat system. obs may be nil.
func NewCombatSystem(reg *world.Registry, cfg *config.Config, obs Observer) *CombatSystem {
	return &CombatSystem{
		reg:         reg,
		cfg:         cfg.Combat,
		attackRange: cfg.AI.AttackRange,
		obs:         observerOrNop(obs),
	}
}

// Update ticks bite cooldowns and lands bites for agents that asked to attack.
func (s *CombatSystem) Update(dt float64) {
	s.reg.Each(func(a *ai.Agent) {
		v := a.Vitals
		if v.Dead {
			return
		}
		if v.Cooldown > 0 {
			v.Cooldown = math.Max(0, v.Cooldown-dt)
		}
		if !a.Intent.Flags.Has(components.ActAttack) || v.Cooldown > 0 || !a.Goal.HasTarget() {
			return
		}
		victim, ok := s.reg.Agent(a.Goal.Target)
		if !ok || victim.Vitals.Dead {
			return
		}

		damage, landed, killed := Bite(a, victim, s.cfg, s.attackRange)
		s.obs.RecordBite(BiteEvent{
			Attacker: a.Org.ID,
			Victim:   victim.Org.ID,
			Species:  a.Org.Species,
			Damage:   damage,
			Landed:   landed,
		})
		if killed {
			s.obs.RecordDeath(DeathEvent{
				Agent:   victim.Org.ID,
				Species: victim.Org.Species,
				Cause:   CauseKilled,
				Killer:  a.Org.ID,
			})
		}
	})
}

// Bite resolves one attack. A bite is only attempted within contact range
// scaled by attackRange; every attempt starts the cooldown.
func Bite(attacker, victim *ai.Agent, cfg config.CombatConfig, attackRange float64) (damage float64, landed, killed bool) {
	attacker.Vitals.Cooldown = cfg.Cooldown

	reach := ai.Contact(attacker.Body.Reach(), victim.Body.Size) * attackRange
	apos, vpos := attacker.Position(), victim.Position()
	if flatDistance(apos, vpos) > reach {
		return 0, false, false
	}
	if math.Abs(apos.Y-vpos.Y) > attacker.Body.Size+victim.Body.Size {
		return 0, false, false
	}

	ratio := clampFloat(attacker.Body.Size/victim.Body.Size, minSizeAdvantage, maxSizeAdvantage)
	damage = cfg.Damage * cfg.Cooldown * ratio
	victim.Vitals.Health -= damage
	if victim.Vitals.Health <= 0 {
		Kill(victim)
		return damage, true, true
	}
	return damage, true, false
}
