package sim

import (
	"github.com/pthm-cable/fauna/ai"
	"github.com/pthm-cable/fauna/components"
	"github.com/pthm-cable/fauna/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Sim) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	census := s.census()
	s.herbivores, s.carnivores, s.carcasses = census.Herbivores, census.Carnivores, census.Carcasses

	stats, goals := s.collector.Flush(s.tick, census)
	perfStats := s.perf.Stats()

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	if s.logStats {
		stats.LogStats(s.logger)
		perfStats.LogStats(s.logger, s.phases)
	}

	if err := s.output.WriteTelemetry(stats); err != nil {
		s.logger.Error("failed to write telemetry", "error", err)
	}
	if err := s.output.WriteGoals(goals); err != nil {
		s.logger.Error("failed to write goals", "error", err)
	}
	if err := s.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		s.logger.Error("failed to write perf", "error", err)
	}

	for _, bm := range s.bookmarks.Check(stats) {
		if s.logStats {
			bm.LogBookmark(s.logger)
		}
		if err := s.output.WriteBookmark(bm); err != nil {
			s.logger.Error("failed to write bookmark", "error", err)
		}
	}
}

// census samples population counts and the vitals of living agents.
func (s *Sim) census() telemetry.Census {
	var c telemetry.Census
	s.reg.Each(func(a *ai.Agent) {
		v := a.Vitals
		if v.Dead {
			c.Carcasses++
			return
		}
		if a.Org.Diet == components.Carnivore {
			c.Carnivores++
		} else {
			c.Herbivores++
		}
		c.Health = append(c.Health, v.Health)
		c.Food = append(c.Food, v.Food)
		c.Water = append(c.Water, v.Water)
		c.Stamina = append(c.Stamina, v.Stamina)
	})
	return c
}
