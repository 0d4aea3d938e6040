package scenario

import (
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/fauna/ai"
	"github.com/pthm-cable/fauna/components"
	"github.com/pthm-cable/fauna/config"
	"github.com/pthm-cable/fauna/world"
)

func init() {
	config.MustInit("")
}

const duel = `
name: duel
terrain:
  flat: true
  height: 2
trees:
  - position: [40, 40]
vegetation:
  - position: [100, 100]
    radius: 10
    density: 0.5
spawns:
  - name: hunter
    archetype: raptor
    position: [50, 50]
    yaw: 90
    waypoints:
      - position: [60, 50]
        priority: 50
        action: sleep
      - position: [70, 5, 70]
    targets:
      - spawn: prey
        kind: enemy
  - name: prey
    archetype: grazer
    position: [80, 50]
    count: 3
    spread: 5
`

// ---------- Parse ----------

func TestParse(t *testing.T) {
	s, err := Parse([]byte(duel))
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "duel" || len(s.Spawns) != 2 {
		t.Fatalf("unexpected scenario %+v", s)
	}
	if s.Terrain == nil || !s.Terrain.Flat || s.Terrain.Height != 2 {
		t.Errorf("terrain = %+v", s.Terrain)
	}
	hunter := s.Spawns[0]
	if hunter.Yaw != 90 || len(hunter.Waypoints) != 2 || hunter.Targets[0].Spawn != "prey" {
		t.Errorf("hunter = %+v", hunter)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "name: [unclosed"},
		{"missing spawns", "name: empty\n"},
		{"missing name", "spawns:\n  - name: a\n    archetype: grazer\n    position: [1, 2]\n"},
		{"short position", "name: x\nspawns:\n  - name: a\n    archetype: grazer\n    position: [1]\n"},
		{"unknown field", "name: x\nbogus: 1\nspawns:\n  - name: a\n    archetype: grazer\n    position: [1, 2]\n"},
		{"bad action", "name: x\nspawns:\n  - name: a\n    archetype: grazer\n    position: [1, 2]\n    waypoints:\n      - position: [3, 4]\n        action: dance\n"},
		{"bad kind", "name: x\nspawns:\n  - name: a\n    archetype: grazer\n    position: [1, 2]\n    targets:\n      - spawn: a\n        kind: rival\n"},
		{"density above one", "name: x\nvegetation:\n  - position: [1, 2]\n    radius: 3\n    density: 2\nspawns:\n  - name: a\n    archetype: grazer\n    position: [1, 2]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadBundledScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "scenarios", "*.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no bundled scenarios found")
	}
	for _, p := range paths {
		t.Run(filepath.Base(p), func(t *testing.T) {
			s, err := Load(p)
			if err != nil {
				t.Fatal(err)
			}
			if err := s.Check(config.Cfg()); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

// ---------- Check ----------

func TestCheck(t *testing.T) {
	cfg := config.Cfg()
	base := func() *Scenario {
		s, err := Parse([]byte(duel))
		if err != nil {
			t.Fatal(err)
		}
		return s
	}

	if err := base().Check(cfg); err != nil {
		t.Fatalf("valid scenario rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(s *Scenario)
		want   string
	}{
		{"unknown archetype", func(s *Scenario) { s.Spawns[1].Archetype = "unicorn" }, "unknown archetype"},
		{"duplicate name", func(s *Scenario) { s.Spawns[1].Name = "hunter" }, "duplicate spawn"},
		{"dangling target", func(s *Scenario) { s.Spawns[0].Targets[0].Spawn = "ghost" }, "is not a spawn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(s)
			err := s.Check(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Check() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

// ---------- BuildTerrain / Populate ----------

func TestBuildTerrain(t *testing.T) {
	s, err := Parse([]byte(duel))
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Cfg()
	ter := s.BuildTerrain(cfg, 1)

	if h := ter.GroundHeight(10, 10); h != 2 {
		t.Errorf("flat height = %v, want 2", h)
	}
	if len(ter.Trees()) != 1 {
		t.Fatalf("trees = %d, want 1", len(ter.Trees()))
	}
	if tree := ter.Trees()[0]; tree.Radius != cfg.World.TreeRadius || tree.Height != cfg.World.TreeHeight {
		t.Errorf("tree should take world defaults, got %+v", tree)
	}
	if v := ter.Vegetation(ai.Cell{X: 25, Z: 25}); v != 0.5 {
		t.Errorf("patch center vegetation = %v, want 0.5", v)
	}
	if v := ter.Vegetation(ai.Cell{X: 5, Z: 5}); v != 0 {
		t.Errorf("vegetation outside patches = %v, want 0", v)
	}
}

func TestPopulate(t *testing.T) {
	s, err := Parse([]byte(duel))
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Cfg().Clone()
	reg := world.NewRegistry(cfg, s.BuildTerrain(cfg, 1))

	groups, err := s.Populate(reg, cfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	if len(groups["hunter"]) != 1 || len(groups["prey"]) != 3 {
		t.Fatalf("groups = %v", groups)
	}
	if reg.Count() != 4 {
		t.Errorf("agents = %d, want 4", reg.Count())
	}

	hunter, ok := reg.Agent(groups["hunter"][0])
	if !ok {
		t.Fatal("hunter missing")
	}
	if hunter.Org.Species != "raptor" {
		t.Errorf("species = %q", hunter.Org.Species)
	}
	if hunter.Script == nil {
		t.Fatal("hunter should carry a script")
	}
	if got := len(hunter.Script.Targets); got != 3 {
		t.Errorf("custom targets = %d, want one per prey", got)
	}
	for _, tg := range hunter.Script.Targets {
		if tg.Kind != components.TargetEnemy {
			t.Errorf("target kind = %v, want enemy", tg.Kind)
		}
	}

	wps := hunter.Script.Waypoints
	if wps[0].Action != components.ActionSleep || wps[0].Priority != 50 {
		t.Errorf("waypoint 0 = %+v", wps[0])
	}
	if wps[0].Position.Y != 2 {
		t.Errorf("ground waypoint y = %v, want terrain height 2", wps[0].Position.Y)
	}
	if wps[1].Position.Y != 5 {
		t.Errorf("explicit waypoint y = %v, want 5", wps[1].Position.Y)
	}

	for _, e := range groups["prey"] {
		prey, _ := reg.Agent(e)
		if prey.Script != nil {
			t.Error("unscripted spawn should have no script")
		}
		p := prey.Position()
		if dx, dz := p.X-80, p.Z-50; dx*dx+dz*dz > 25+1e-9 {
			t.Errorf("prey spawned outside spread: %v", p)
		}
	}
}
