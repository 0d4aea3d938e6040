package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkKillSpike        BookmarkType = "kill_spike"
	BookmarkGiveUpSpike      BookmarkType = "give_up_spike"
	BookmarkHerbivoreCrash   BookmarkType = "herbivore_crash"
	BookmarkCarnivoreExtinct BookmarkType = "carnivore_extinct"
	BookmarkStableEcosystem  BookmarkType = "stable_ecosystem"
)

// Detector thresholds.
const (
	spikeFactor      = 2.0
	minSpikeKills    = 3
	minSpikeGiveUps  = 10
	crashFraction    = 0.30
	minCrashDrop     = 5
	stableWindows    = 5
	stableSpan       = 4
	stableMaxCVSq    = 0.04 // CV < 0.2
	minStableHerd    = 10
	minStableHunters = 2
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        uint64       `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark.
func (b Bookmark) LogBookmark(logger *slog.Logger) {
	logger.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	recentHerbPeak     int  // peak herbivore count since the last crash
	hadCarnivores      bool // carnivores were alive in the previous window
	stableWindowsCount int  // consecutive windows with stable populations
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < stableWindows {
		historySize = stableWindows
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		for _, check := range []func(WindowStats) *Bookmark{
			bd.checkKillSpike,
			bd.checkGiveUpSpike,
			bd.checkHerbivoreCrash,
			bd.checkCarnivoreExtinct,
			bd.checkStableEcosystem,
		} {
			if b := check(stats); b != nil {
				bookmarks = append(bookmarks, *b)
			}
		}
	}

	bd.addToHistory(stats)

	if stats.Herbivores > bd.recentHerbPeak {
		bd.recentHerbPeak = stats.Herbivores
	}
	bd.hadCarnivores = stats.Carnivores > 0

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// getHistory returns the recorded windows, oldest first.
func (bd *BookmarkDetector) getHistory() []WindowStats {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	ordered := make([]WindowStats, 0, bd.historySize)
	ordered = append(ordered, bd.history[bd.historyIdx:]...)
	return append(ordered, bd.history[:bd.historyIdx]...)
}

func (bd *BookmarkDetector) checkKillSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 || stats.Kills < minSpikeKills {
		return nil
	}

	kills := make([]float64, len(history))
	for i, h := range history {
		kills[i] = float64(h.Kills)
	}
	avg := stat.Mean(kills, nil)
	if avg == 0 || float64(stats.Kills) <= avg*spikeFactor {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkKillSpike,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d kills is %.1fx average (%.1f)", stats.Kills, float64(stats.Kills)/avg, avg),
	}
}

func (bd *BookmarkDetector) checkGiveUpSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 || stats.GoalsGaveUp < minSpikeGiveUps {
		return nil
	}

	gaveUp := make([]float64, len(history))
	for i, h := range history {
		gaveUp[i] = float64(h.GoalsGaveUp)
	}
	avg := stat.Mean(gaveUp, nil)
	if avg == 0 || float64(stats.GoalsGaveUp) <= avg*spikeFactor {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkGiveUpSpike,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d goals abandoned is %.1fx average (%.1f)", stats.GoalsGaveUp, float64(stats.GoalsGaveUp)/avg, avg),
	}
}

func (bd *BookmarkDetector) checkHerbivoreCrash(stats WindowStats) *Bookmark {
	if bd.recentHerbPeak == 0 {
		return nil
	}

	drop := 1.0 - float64(stats.Herbivores)/float64(bd.recentHerbPeak)
	if drop <= crashFraction || stats.Herbivores > bd.recentHerbPeak-minCrashDrop {
		return nil
	}

	oldPeak := bd.recentHerbPeak
	bd.recentHerbPeak = stats.Herbivores
	return &Bookmark{
		Type:        BookmarkHerbivoreCrash,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Herbivores crashed %.0f%% from peak %d to %d", drop*100, oldPeak, stats.Herbivores),
	}
}

func (bd *BookmarkDetector) checkCarnivoreExtinct(stats WindowStats) *Bookmark {
	if !bd.hadCarnivores || stats.Carnivores > 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkCarnivoreExtinct,
		Tick:        stats.WindowEndTick,
		Description: "Last carnivore died",
	}
}

func (bd *BookmarkDetector) checkStableEcosystem(stats WindowStats) *Bookmark {
	if stats.Herbivores < minStableHerd || stats.Carnivores < minStableHunters {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < stableSpan {
		return nil
	}

	recent := history[len(history)-stableSpan:]
	herbs := make([]float64, stableSpan)
	carns := make([]float64, stableSpan)
	for i, h := range recent {
		herbs[i] = float64(h.Herbivores)
		carns[i] = float64(h.Carnivores)
	}

	if cvSquared(herbs) < stableMaxCVSq && cvSquared(carns) < stableMaxCVSq {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount != stableWindows { // trigger exactly once
		return nil
	}
	return &Bookmark{
		Type:        BookmarkStableEcosystem,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Stable ecosystem with %d herbivores, %d carnivores over %d+ windows", stats.Herbivores, stats.Carnivores, stableWindows),
	}
}

// cvSquared returns the squared coefficient of variation of x.
func cvSquared(x []float64) float64 {
	mean, variance := stat.PopMeanVariance(x, nil)
	if mean == 0 {
		return 0
	}
	return variance / (mean * mean)
}
