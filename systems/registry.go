package systems

// SystemInfo describes a simulation phase for perf reports and logs.
type SystemInfo struct {
	ID          string // Internal identifier (used for perf tracking)
	Name        string // Display name
	Description string // What this system does
	Category    string // Grouping (e.g., "core", "ai", "physics")
}

// Phase IDs, in tick order.
const (
	PhaseSpatialGrid = "spatial_grid"
	PhaseCollision   = "collision"
	PhaseDecision    = "decision"
	PhaseLocomotion  = "locomotion"
	PhaseCombat      = "combat"
	PhaseMetabolism  = "metabolism"
	PhaseRegrowth    = "regrowth"
	PhaseCleanup     = "cleanup"
	PhaseTelemetry   = "telemetry"
)

// SystemRegistry holds metadata about all systems.
// This centralizes system naming so the perf tracker and logs stay in sync.
type SystemRegistry struct {
	systems []SystemInfo
	byID    map[string]SystemInfo
}

// NewSystemRegistry creates a registry with all known systems.
func NewSystemRegistry() *SystemRegistry {
	reg := &SystemRegistry{
		byID: make(map[string]SystemInfo),
	}
	reg.registerDefaults()
	return reg
}

// registerDefaults adds all known systems to the registry.
// Update this when adding new systems.
func (r *SystemRegistry) registerDefaults() {
	r.Register(SystemInfo{ID: PhaseSpatialGrid, Name: "Spatial Grid", Description: "Rebuckets agents for neighbor queries", Category: "core"})

	// AI
	r.Register(SystemInfo{ID: PhaseCollision, Name: "Collision", Description: "Registers obstacles ahead of each agent", Category: "ai"})
	r.Register(SystemInfo{ID: PhaseDecision, Name: "Decision", Description: "Sensors, arbiter, steering and behavior execution", Category: "ai"})

	// Physics and movement
	r.Register(SystemInfo{ID: PhaseLocomotion, Name: "Locomotion", Description: "Turns and moves agents along their intent", Category: "physics"})
	r.Register(SystemInfo{ID: PhaseCombat, Name: "Combat", Description: "Resolves bites", Category: "physics"})

	// Life cycle
	r.Register(SystemInfo{ID: PhaseMetabolism, Name: "Metabolism", Description: "Drains and restores vitals", Category: "lifecycle"})
	r.Register(SystemInfo{ID: PhaseRegrowth, Name: "Regrowth", Description: "Restores grazed vegetation", Category: "environment"})

	r.Register(SystemInfo{ID: PhaseCleanup, Name: "Cleanup", Description: "Removes decayed carcasses", Category: "core"})
	r.Register(SystemInfo{ID: PhaseTelemetry, Name: "Telemetry", Description: "Flushes window stats", Category: "internal"})
}

// Register adds a system to the registry.
func (r *SystemRegistry) Register(info SystemInfo) {
	r.systems = append(r.systems, info)
	r.byID[info.ID] = info
}

// GetName returns the display name for a system ID.
// Falls back to the ID itself if not found.
func (r *SystemRegistry) GetName(id string) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id
}

// ByCategory returns systems filtered by category.
func (r *SystemRegistry) ByCategory(category string) []SystemInfo {
	var result []SystemInfo
	for _, info := range r.systems {
		if info.Category == category {
			result = append(result, info)
		}
	}
	return result
}

// IDs returns all system IDs in registration order.
func (r *SystemRegistry) IDs() []string {
	ids := make([]string, len(r.systems))
	for i, info := range r.systems {
		ids[i] = info.ID
	}
	return ids
}
