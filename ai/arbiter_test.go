package ai

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/components"
)

func TestThink_FallsBackToPath(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		w := newFakeWorld()
		a := w.add("grazer", components.Herbivore, 1, r3.Vec{})
		b := testBrain(w, seed)

		b.Think(a)

		if a.Goal.Behavior != components.ToPath {
			t.Fatalf("seed %d: expected ToPath, got %s", seed, a.Goal.Behavior)
		}
		if a.Goal.Counter != b.cfg.GoalBudget-1 {
			t.Errorf("seed %d: expected budget %d after one tick, got %d", seed, b.cfg.GoalBudget-1, a.Goal.Counter)
		}
		if a.Intent.Gait != components.GaitWalk {
			t.Errorf("seed %d: expected walk toward the waypoint, got %s", seed, a.Intent.Gait)
		}
	}
}

func TestThink_DeadAgentCleared(t *testing.T) {
	w := newFakeWorld()
	a := w.add("grazer", components.Herbivore, 1, r3.Vec{})
	b := testBrain(w, 1)
	rec := &recorder{}
	b.SetRecorder(rec)

	a.Goal.Set(components.ToPath, r3.Vec{X: 10}, noTarget, 100)
	a.Intent.Gait = components.GaitRun
	a.Vitals.Dead = true

	b.Think(a)

	if a.Goal.Active {
		t.Error("dead agent kept its goal")
	}
	if a.Intent.Gait != components.GaitIdle {
		t.Error("dead agent should not move")
	}
	if rec.last().Outcome != OutcomeDied {
		t.Errorf("expected died event, got %s", rec.last().Outcome)
	}
	checkGoalInvariant(t, a)
}

func TestThink_WaypointGate(t *testing.T) {
	w := newFakeWorld()
	a := w.add("grazer", components.Herbivore, 1, r3.Vec{})
	a.Script = &components.Script{Waypoints: []components.Waypoint{
		{Position: r3.Vec{X: 10}, Priority: 0},
		{Position: r3.Vec{X: 20}, Priority: 100},
	}}
	b := testBrain(w, 1)

	b.Think(a)

	if a.Goal.Behavior != components.ToWaypoint {
		t.Fatalf("expected ToWaypoint, got %s", a.Goal.Behavior)
	}
	if a.Goal.Position != (r3.Vec{X: 20}) {
		t.Errorf("expected second waypoint, got %v", a.Goal.Position)
	}
	if a.Script.Next != 1 {
		t.Errorf("expected Next=1, got %d", a.Script.Next)
	}
}

func TestThink_ThirstGate(t *testing.T) {
	w := newFakeWorld()
	a := w.add("grazer", components.Herbivore, 1, r3.Vec{})
	a.Vitals.Water = 10
	w.phys = &fakePhysics{linecast: func(from, to r3.Vec) (Hit, bool) {
		if from.Y-to.Y > 1 {
			return Hit{Point: r3.Vec{X: from.X, Z: from.Z}, Layer: LayerWater}, true
		}
		return Hit{}, false
	}}
	b := testBrain(w, 1)
	b.cfg.WaterChance = 100

	b.Think(a)

	// The first ring is within drinking distance, so the executor may
	// already have switched to drinking on the same tick.
	if !a.Goal.Behavior.IsDrinking() {
		t.Errorf("expected a drinking goal, got %s", a.Goal.Behavior)
	}
}

func TestThink_HungryCarnivoreHunts(t *testing.T) {
	w := newFakeWorld()
	a := w.add("raptor", components.Carnivore, 1, r3.Vec{})
	a.Vitals.Food = 10
	prey := w.add("grazer", components.Herbivore, 1, r3.Vec{X: 30})
	b := testBrain(w, 1)
	b.cfg.FoodChance = 100

	b.Think(a)

	if a.Goal.Behavior != components.ToHunt || a.Goal.Target != prey.Entity {
		t.Errorf("expected ToHunt on prey, got %s", a.Goal.Behavior)
	}
}

func TestThink_EnemyInterruptsGoal(t *testing.T) {
	w := newFakeWorld()
	a := w.add("grazer", components.Herbivore, 1, r3.Vec{})
	a.Loco.CanAttack = false
	a.Goal.Set(components.ToPath, r3.Vec{X: 50}, noTarget, 100)
	carn := w.add("raptor", components.Carnivore, 1, r3.Vec{X: 10})
	carn.Goal.Set(components.ToHunt, a.Position(), a.Entity, 100)
	b := testBrain(w, 1)
	rec := &recorder{}
	b.SetRecorder(rec)

	b.Think(a)

	if a.Goal.Behavior != components.ToFlee {
		t.Fatalf("expected ToFlee, got %s", a.Goal.Behavior)
	}
	if a.Goal.Target != carn.Entity {
		t.Error("flee target should be the hunter")
	}
	interrupted := false
	for _, ev := range rec.events {
		if ev.Behavior == components.ToPath && ev.Outcome == OutcomeInterrupted {
			interrupted = true
		}
	}
	if !interrupted {
		t.Error("expected the wander goal to be reported as interrupted")
	}
}

func TestThink_CustomTargetBeforeEnemy(t *testing.T) {
	w := newFakeWorld()
	a := w.add("browser", components.Herbivore, 3, r3.Vec{})
	a.Loco.CanAttack = true
	a.Goal.Set(components.ToPath, r3.Vec{X: 50}, noTarget, 100)

	rival := w.add("browser", components.Herbivore, 3, r3.Vec{Z: 20})
	carn := w.add("raptor", components.Carnivore, 1, r3.Vec{X: 10})
	carn.Goal.Set(components.Hunt, a.Position(), a.Entity, 100)

	a.Script = &components.Script{Targets: []components.CustomTarget{
		{Entity: rival.Entity, Kind: components.TargetEnemy},
	}}
	b := testBrain(w, 1)

	b.Think(a)

	if a.Goal.Target != rival.Entity {
		t.Fatal("scripted enemy should take priority over the enemy scan")
	}
	if a.Goal.Behavior != components.ToTarget {
		t.Errorf("healthy attacker should engage, got %s", a.Goal.Behavior)
	}
}

// ---------- FindEnemy ----------

func TestFindEnemy_HerbivoreFleesHunter(t *testing.T) {
	w := newFakeWorld()
	a := w.add("grazer", components.Herbivore, 1, r3.Vec{})
	a.Loco.CanAttack = false
	carn := w.add("raptor", components.Carnivore, 1, r3.Vec{X: 10})
	carn.Goal.Set(components.Hunt, a.Position(), a.Entity, 100)
	b := testBrain(w, 1)

	if !b.FindEnemy(a) {
		t.Fatal("expected a threat")
	}
	if a.Goal.Behavior != components.ToFlee {
		t.Fatalf("expected ToFlee, got %s", a.Goal.Behavior)
	}
	if a.Goal.LookAt != carn.Position() {
		t.Errorf("flee should look at the threat, got %v", a.Goal.LookAt)
	}
	if a.Goal.Position.X >= 0 {
		t.Errorf("flee point %v should lie away from the threat", a.Goal.Position)
	}
}

func TestFindEnemy_FleeBoltsWhenCandidateRejected(t *testing.T) {
	w := newFakeWorld()
	a := w.add("grazer", components.Herbivore, 1, r3.Vec{})
	a.Loco.CanAttack = false
	carn := w.add("raptor", components.Carnivore, 1, r3.Vec{X: 10})
	carn.Goal.Set(components.Hunt, a.Position(), a.Entity, 100)
	w.phys = walledIn()
	b := testBrain(w, 1)

	if !b.FindEnemy(a) {
		t.Fatal("expected a threat")
	}
	if a.Goal.Behavior != components.ToFlee || a.Goal.Position.X >= 0 {
		t.Errorf("expected a straight bolt away, got %s toward %v", a.Goal.Behavior, a.Goal.Position)
	}
	if a.Steer.Widen != b.steer.WidenStep {
		t.Errorf("widen = %v, want %v", a.Steer.Widen, b.steer.WidenStep)
	}
}

func TestFindEnemy_FleeGiveUpLeavesNoGoal(t *testing.T) {
	w := newFakeWorld()
	a := w.add("grazer", components.Herbivore, 1, r3.Vec{})
	a.Loco.CanAttack = false
	carn := w.add("raptor", components.Carnivore, 1, r3.Vec{X: 10})
	carn.Goal.Set(components.Hunt, a.Position(), a.Entity, 100)
	w.phys = walledIn()
	b := testBrain(w, 1)
	rec := &recorder{}
	b.SetRecorder(rec)

	a.Goal.Set(components.ToFood, r3.Vec{X: -5}, noTarget, 100)
	a.Steer.Widen = b.steer.MaxWiden

	if !b.FindEnemy(a) {
		t.Fatal("expected a threat")
	}
	if a.Goal.Active {
		t.Fatalf("give-up should leave no goal, got %s", a.Goal.Behavior)
	}
	if len(rec.events) != 1 || rec.last().Outcome != OutcomeGaveUp {
		t.Errorf("expected a single gave_up event, got %+v", rec.events)
	}
	if a.Intent.Throttle != 0 {
		t.Errorf("agent should be stopped, got %+v", *a.Intent)
	}
	checkGoalInvariant(t, a)
}

func TestFindEnemy_HerbivoreFightsBack(t *testing.T) {
	w := newFakeWorld()
	a := w.add("browser", components.Herbivore, 3, r3.Vec{})
	a.Loco.CanAttack = true
	carn := w.add("raptor", components.Carnivore, 1, r3.Vec{X: 10})
	carn.Goal.Set(components.ToHunt, a.Position(), a.Entity, 100)
	b := testBrain(w, 1)

	if !b.FindEnemy(a) {
		t.Fatal("expected a threat")
	}
	if a.Goal.Behavior != components.ToTarget || a.Goal.Target != carn.Entity {
		t.Errorf("expected ToTarget on the hunter, got %s", a.Goal.Behavior)
	}
}

func TestFindEnemy_CarnivoreSizeDecision(t *testing.T) {
	tests := []struct {
		name  string
		other float64
		want  components.Behavior
	}{
		{"smaller hunter is hunted", 1.2, components.ToHunt},
		{"larger hunter is fled", 2, components.ToFlee},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newFakeWorld()
			a := w.add("raptor", components.Carnivore, 1, r3.Vec{})
			other := w.add("tyrant", components.Carnivore, tt.other, r3.Vec{X: 10})
			prey := w.add("grazer", components.Herbivore, 1, r3.Vec{X: 20})
			other.Goal.Set(components.Hunt, prey.Position(), prey.Entity, 100)
			b := testBrain(w, 1)

			if !b.FindEnemy(a) {
				t.Fatal("expected a reaction")
			}
			if a.Goal.Behavior != tt.want || a.Goal.Target != other.Entity {
				t.Errorf("expected %s on the other hunter, got %s", tt.want, a.Goal.Behavior)
			}
		})
	}
}

func TestFindEnemy_SkippedWhileEscalated(t *testing.T) {
	w := newFakeWorld()
	a := w.add("grazer", components.Herbivore, 1, r3.Vec{})
	carn := w.add("raptor", components.Carnivore, 1, r3.Vec{X: 10})
	carn.Goal.Set(components.Hunt, a.Position(), a.Entity, 100)
	a.Goal.Set(components.ToFlee, r3.Vec{X: -10}, carn.Entity, 100)
	b := testBrain(w, 1)

	if b.FindEnemy(a) {
		t.Error("enemy scan should not run while fleeing")
	}
}

func TestFindEnemy_Throttled(t *testing.T) {
	w := newFakeWorld()
	a := w.add("grazer", components.Herbivore, 1, r3.Vec{})
	carn := w.add("raptor", components.Carnivore, 1, r3.Vec{X: 10})
	carn.Goal.Set(components.Hunt, a.Position(), a.Entity, 100)
	b := testBrain(w, 1)
	b.cfg.ThreatInterval = 10

	// ID 1: scans on ticks where (tick+1) % 10 == 0
	b.SetTick(3)
	if b.FindEnemy(a) {
		t.Error("scan should be throttled on tick 3")
	}
	b.SetTick(9)
	if !b.FindEnemy(a) {
		t.Error("scan should run on tick 9")
	}
}

// ---------- FindCustomTarget ----------

func TestFindCustomTarget_PrunesMissing(t *testing.T) {
	w := newFakeWorld()
	a := w.add("grazer", components.Herbivore, 1, r3.Vec{})
	gone := w.add("grazer", components.Herbivore, 1, r3.Vec{X: 10})
	kept := w.add("grazer", components.Herbivore, 1, r3.Vec{X: 500})
	a.Script = &components.Script{Targets: []components.CustomTarget{
		{Entity: gone.Entity, Kind: components.TargetFriend},
		{Entity: kept.Entity, Kind: components.TargetFriend, MaxRange: 50},
	}}
	w.remove(gone)
	b := testBrain(w, 1)

	if b.FindCustomTarget(a) {
		t.Error("no live target is in range")
	}
	if len(a.Script.Targets) != 1 || a.Script.Targets[0].Entity != kept.Entity {
		t.Errorf("expected only the live target to remain, got %d", len(a.Script.Targets))
	}
	if a.Goal.Active {
		t.Error("not found must leave the goal untouched")
	}
}

func TestFindCustomTarget_FriendApproach(t *testing.T) {
	w := newFakeWorld()
	a := w.add("grazer", components.Herbivore, 1, r3.Vec{})
	friend := w.add("browser", components.Herbivore, 3, r3.Vec{X: 30})
	a.Script = &components.Script{Targets: []components.CustomTarget{
		{Entity: friend.Entity, Kind: components.TargetFriend},
	}}
	b := testBrain(w, 1)

	if !b.FindCustomTarget(a) {
		t.Fatal("expected the scripted friend")
	}
	if a.Goal.Behavior != components.ToFriend || a.Goal.Target != friend.Entity {
		t.Errorf("expected ToFriend, got %s", a.Goal.Behavior)
	}
	counter := a.Goal.Counter

	// A second scan keeps the running goal
	if !b.FindCustomTarget(a) || a.Goal.Counter != counter {
		t.Error("an existing ToFriend goal should not be reassigned")
	}
}

func TestFindCustomTarget_EnemyWithoutAttackFlees(t *testing.T) {
	w := newFakeWorld()
	a := w.add("grazer", components.Herbivore, 1, r3.Vec{})
	a.Loco.CanAttack = false
	enemy := w.add("grazer", components.Herbivore, 1, r3.Vec{X: 10})
	a.Script = &components.Script{Targets: []components.CustomTarget{
		{Entity: enemy.Entity, Kind: components.TargetEnemy},
	}}
	b := testBrain(w, 1)

	if !b.FindCustomTarget(a) {
		t.Fatal("expected the scripted enemy")
	}
	if a.Goal.Behavior != components.ToFlee {
		t.Errorf("expected ToFlee, got %s", a.Goal.Behavior)
	}
}
