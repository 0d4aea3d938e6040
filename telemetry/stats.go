package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	Herbivores int `csv:"herbivores"`
	Carnivores int `csv:"carnivores"`
	Carcasses  int `csv:"carcasses"`

	// Decision outcomes during window
	GoalsStarted     int     `csv:"goals_started"`
	GoalsCompleted   int     `csv:"goals_completed"`
	GoalsInterrupted int     `csv:"goals_interrupted"`
	GoalsTimedOut    int     `csv:"goals_timed_out"`
	GoalsStale       int     `csv:"goals_stale"`
	GoalsGaveUp      int     `csv:"goals_gave_up"`
	CompletionRate   float64 `csv:"completion_rate"`

	// Combat and deaths
	Bites       int     `csv:"bites"`
	BitesLanded int     `csv:"bites_landed"`
	Kills       int     `csv:"kills"`
	Starved     int     `csv:"starved"`
	HitRate     float64 `csv:"hit_rate"`

	// Vitals distribution (sampled at window end)
	HealthMean  float64 `csv:"health_mean"`
	HealthP10   float64 `csv:"health_p10"`
	HealthP50   float64 `csv:"health_p50"`
	FoodMean    float64 `csv:"food_mean"`
	FoodP10     float64 `csv:"food_p10"`
	FoodP50     float64 `csv:"food_p50"`
	WaterMean   float64 `csv:"water_mean"`
	WaterP10    float64 `csv:"water_p10"`
	WaterP50    float64 `csv:"water_p50"`
	StaminaMean float64 `csv:"stamina_mean"`
	StaminaStd  float64 `csv:"stamina_std"`
}

// GoalRow is one behavior's goal tally within a window.
type GoalRow struct {
	WindowEnd uint64 `csv:"window_end"`
	Behavior  string `csv:"behavior"`
	Started   int    `csv:"started"`
	Completed int    `csv:"completed"`
	Failed    int    `csv:"failed"`
}

// VitalStats summarizes one vital across the population.
type VitalStats struct {
	Mean float64
	Std  float64
	P10  float64
	P50  float64
	P90  float64
}

// ComputeVitalStats calculates mean, standard deviation and empirical
// percentiles. Returns zeros for an empty sample.
func ComputeVitalStats(values []float64) VitalStats {
	n := len(values)
	if n == 0 {
		return VitalStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if n == 1 {
		std = 0
	}
	return VitalStats{
		Mean: mean,
		Std:  std,
		P10:  stat.Quantile(0.10, stat.Empirical, sorted, nil),
		P50:  stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P90:  stat.Quantile(0.90, stat.Empirical, sorted, nil),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("herbivores", s.Herbivores),
		slog.Int("carnivores", s.Carnivores),
		slog.Int("carcasses", s.Carcasses),
		slog.Int("goals_started", s.GoalsStarted),
		slog.Int("goals_completed", s.GoalsCompleted),
		slog.Int("goals_interrupted", s.GoalsInterrupted),
		slog.Int("goals_timed_out", s.GoalsTimedOut),
		slog.Int("goals_stale", s.GoalsStale),
		slog.Int("goals_gave_up", s.GoalsGaveUp),
		slog.Float64("completion_rate", s.CompletionRate),
		slog.Int("bites", s.Bites),
		slog.Int("bites_landed", s.BitesLanded),
		slog.Int("kills", s.Kills),
		slog.Int("starved", s.Starved),
		slog.Float64("hit_rate", s.HitRate),
		slog.Float64("health_mean", s.HealthMean),
		slog.Float64("food_mean", s.FoodMean),
		slog.Float64("water_mean", s.WaterMean),
		slog.Float64("stamina_mean", s.StaminaMean),
	)
}

// LogStats logs the window stats using the given logger.
func (s WindowStats) LogStats(logger *slog.Logger) {
	logger.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"herbivores", s.Herbivores,
		"carnivores", s.Carnivores,
		"carcasses", s.Carcasses,
		"goals_started", s.GoalsStarted,
		"goals_completed", s.GoalsCompleted,
		"goals_gave_up", s.GoalsGaveUp,
		"completion_rate", s.CompletionRate,
		"bites", s.Bites,
		"kills", s.Kills,
		"starved", s.Starved,
		"hit_rate", s.HitRate,
		"health_p10", s.HealthP10,
		"food_p10", s.FoodP10,
		"water_p10", s.WaterP10,
	)
}
