// Package scenario loads scripted worlds: hand-placed spawns with waypoints
// and custom targets, trees and vegetation patches, on flat or generated
// terrain. Files are YAML validated against an embedded JSON schema.
package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sync"

	"github.com/mlange-42/ark/ecs"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/fauna/components"
	"github.com/pthm-cable/fauna/config"
	"github.com/pthm-cable/fauna/world"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://github.com/pthm-cable/fauna/scenario.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("adding scenario schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Scenario is a scripted world setup.
type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Seed        int64        `yaml:"seed"` // 0 = use the run seed
	Terrain     *TerrainSpec `yaml:"terrain"`
	Trees       []TreeSpec   `yaml:"trees"`
	Vegetation  []PatchSpec  `yaml:"vegetation"`
	Spawns      []Spawn      `yaml:"spawns"`
}

// TerrainSpec overrides generated terrain.
type TerrainSpec struct {
	Flat       bool    `yaml:"flat"`
	Height     float64 `yaml:"height"`
	WaterLevel float64 `yaml:"water_level"`
}

// TreeSpec places a trunk. Zero radius or height takes the world default.
type TreeSpec struct {
	Position []float64 `yaml:"position"` // x, z
	Radius   float64   `yaml:"radius"`
	Height   float64   `yaml:"height"`
}

// PatchSpec paints a disc of vegetation.
type PatchSpec struct {
	Position []float64 `yaml:"position"` // x, z
	Radius   float64   `yaml:"radius"`
	Density  float64   `yaml:"density"`
}

// Spawn places one or more agents of an archetype.
type Spawn struct {
	Name      string         `yaml:"name"`
	Archetype string         `yaml:"archetype"`
	Position  []float64      `yaml:"position"` // x, z
	Yaw       float64        `yaml:"yaw"`      // degrees
	Count     int            `yaml:"count"`    // default 1
	Spread    float64        `yaml:"spread"`   // scatter radius for count > 1
	Waypoints []WaypointSpec `yaml:"waypoints"`
	Targets   []TargetSpec   `yaml:"targets"`
}

// WaypointSpec is a scripted destination. A two-element position is placed
// on the ground.
type WaypointSpec struct {
	Position []float64 `yaml:"position"` // x, z or x, y, z
	Priority float64   `yaml:"priority"`
	Action   string    `yaml:"action"`
}

// TargetSpec names another spawn group as an enemy or friend.
type TargetSpec struct {
	Spawn    string  `yaml:"spawn"`
	Kind     string  `yaml:"kind"` // "enemy" or "friend"
	MaxRange float64 `yaml:"max_range"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse validates YAML scenario data against the schema and decodes it.
func Parse(data []byte) (*Scenario, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	// Round-trip through JSON so the validator sees JSON types.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("converting to json: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("converting to json: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("validating: %w", err)
	}

	s := &Scenario{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}
	return s, nil
}

// Check resolves names against cfg: archetypes must exist, spawn names must be
// unique and every target must name a spawn.
func (s *Scenario) Check(cfg *config.Config) error {
	names := make(map[string]bool, len(s.Spawns))
	for _, sp := range s.Spawns {
		if names[sp.Name] {
			return fmt.Errorf("duplicate spawn %q", sp.Name)
		}
		names[sp.Name] = true
		if _, ok := cfg.Derived.ArchetypeIndex[sp.Archetype]; !ok {
			return fmt.Errorf("spawn %q: unknown archetype %q", sp.Name, sp.Archetype)
		}
	}
	for _, sp := range s.Spawns {
		for _, tg := range sp.Targets {
			if !names[tg.Spawn] {
				return fmt.Errorf("spawn %q: target %q is not a spawn", sp.Name, tg.Spawn)
			}
		}
	}
	return nil
}

// BuildTerrain returns the terrain the scenario runs on, with its trees and
// vegetation patches applied.
func (s *Scenario) BuildTerrain(cfg *config.Config, seed int64) *world.Terrain {
	var t *world.Terrain
	if s.Terrain != nil && s.Terrain.Flat {
		t = world.NewFlat(cfg.World.Size, cfg.World.CellSize, s.Terrain.Height, s.Terrain.WaterLevel)
		t.SetRegrowth(cfg.World.Regrowth)
	} else {
		t = world.NewTerrain(cfg.World, seed)
	}

	for _, tr := range s.Trees {
		radius, height := tr.Radius, tr.Height
		if radius == 0 {
			radius = cfg.World.TreeRadius
		}
		if height == 0 {
			height = cfg.World.TreeHeight
		}
		t.AddTree(tr.Position[0], tr.Position[1], radius, height)
	}
	for _, p := range s.Vegetation {
		t.PaintVegetation(p.Position[0], p.Position[1], p.Radius, p.Density)
	}
	return t
}

// Populate spawns every group into reg and attaches scripts. Returns the
// entities of each spawn group by name. Call Check first.
func (s *Scenario) Populate(reg *world.Registry, cfg *config.Config, rng *rand.Rand) (map[string][]ecs.Entity, error) {
	groups := make(map[string][]ecs.Entity, len(s.Spawns))
	ground := reg.Ground()

	for _, sp := range s.Spawns {
		archID, ok := cfg.Derived.ArchetypeIndex[sp.Archetype]
		if !ok {
			return nil, fmt.Errorf("spawn %q: unknown archetype %q", sp.Name, sp.Archetype)
		}
		arch := &cfg.Archetypes[archID]

		count := max(sp.Count, 1)
		yaw := sp.Yaw * math.Pi / 180
		for i := 0; i < count; i++ {
			pos := r3.Vec{X: sp.Position[0], Z: sp.Position[1]}
			if count > 1 && sp.Spread > 0 {
				a := rng.Float64() * 2 * math.Pi
				d := sp.Spread * math.Sqrt(rng.Float64())
				pos.X += math.Cos(a) * d
				pos.Z += math.Sin(a) * d
			}
			groups[sp.Name] = append(groups[sp.Name], reg.Spawn(arch, archID, pos, yaw))
		}
	}

	// Scripts reference other groups, so attach them once everything exists.
	for _, sp := range s.Spawns {
		if len(sp.Waypoints) == 0 && len(sp.Targets) == 0 {
			continue
		}
		waypoints := make([]components.Waypoint, 0, len(sp.Waypoints))
		for _, wp := range sp.Waypoints {
			waypoints = append(waypoints, components.Waypoint{
				Position: waypointPosition(wp.Position, ground),
				Priority: wp.Priority,
				Action:   components.ParseWaypointAction(wp.Action),
			})
		}
		for _, e := range groups[sp.Name] {
			script := &components.Script{Waypoints: waypoints}
			for _, tg := range sp.Targets {
				members, ok := groups[tg.Spawn]
				if !ok {
					return nil, fmt.Errorf("spawn %q: target %q is not a spawn", sp.Name, tg.Spawn)
				}
				kind := components.TargetEnemy
				if tg.Kind == "friend" {
					kind = components.TargetFriend
				}
				for _, m := range members {
					if m == e {
						continue
					}
					script.Targets = append(script.Targets, components.CustomTarget{
						Entity:   m,
						Kind:     kind,
						MaxRange: tg.MaxRange,
					})
				}
			}
			reg.SetScript(e, script)
		}
	}
	return groups, nil
}

func waypointPosition(p []float64, ground *world.Terrain) r3.Vec {
	if len(p) == 3 {
		return r3.Vec{X: p[0], Y: p[1], Z: p[2]}
	}
	v := r3.Vec{X: p[0], Z: p[1]}
	if ground != nil {
		v.Y = ground.GroundHeight(v.X, v.Z)
	}
	return v
}
