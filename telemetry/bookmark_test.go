package telemetry

import (
	"testing"

	"github.com/pthm-cable/fauna/config"
)

func init() {
	config.MustInit("")
}

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_KillSpike(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: uint64(i * 600), Kills: 2})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 3000, Kills: 8})
	if !hasBookmark(bookmarks, BookmarkKillSpike) {
		t.Error("expected kill_spike bookmark")
	}
	if bookmarks[0].Tick != 3000 {
		t.Errorf("bookmark tick = %d, want 3000", bookmarks[0].Tick)
	}
}

func TestBookmarkDetector_KillSpikeNeedsMinimum(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: uint64(i * 600), Kills: 0})
	}
	bd.Check(WindowStats{WindowEndTick: 3000, Kills: 1})

	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 3600, Kills: 2}), BookmarkKillSpike) {
		t.Error("two kills should not count as a spike")
	}
}

func TestBookmarkDetector_GiveUpSpike(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: uint64(i * 600), GoalsGaveUp: 5})
	}

	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 3000, GoalsGaveUp: 20}), BookmarkGiveUpSpike) {
		t.Error("expected give_up_spike bookmark")
	}
}

func TestBookmarkDetector_HerbivoreCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: uint64(i * 600), Herbivores: 100, Carnivores: 10})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 3000, Herbivores: 50, Carnivores: 10})
	if !hasBookmark(bookmarks, BookmarkHerbivoreCrash) {
		t.Fatal("expected herbivore_crash bookmark")
	}

	// Peak resets after a crash
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 3600, Herbivores: 45, Carnivores: 10}), BookmarkHerbivoreCrash) {
		t.Error("crash should not retrigger against the old peak")
	}
}

func TestBookmarkDetector_CarnivoreExtinct(t *testing.T) {
	bd := NewBookmarkDetector(10)

	bd.Check(WindowStats{WindowEndTick: 600, Herbivores: 40, Carnivores: 3})
	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 1200, Herbivores: 40}), BookmarkCarnivoreExtinct) {
		t.Fatal("expected carnivore_extinct bookmark")
	}
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 1800, Herbivores: 40}), BookmarkCarnivoreExtinct) {
		t.Error("extinction should trigger once")
	}
}

func TestBookmarkDetector_StableEcosystem(t *testing.T) {
	bd := NewBookmarkDetector(10)

	triggered := -1
	for i := 0; i < 10; i++ {
		bookmarks := bd.Check(WindowStats{
			WindowEndTick: uint64(i * 600),
			Herbivores:    100,
			Carnivores:    20,
		})
		if hasBookmark(bookmarks, BookmarkStableEcosystem) {
			if triggered >= 0 {
				t.Fatalf("stable_ecosystem triggered twice (windows %d and %d)", triggered, i)
			}
			triggered = i
		}
	}

	// Stability is measured once four windows of history exist
	if triggered != 8 {
		t.Errorf("stable_ecosystem triggered at window %d, want 8", triggered)
	}
}

func TestBookmarkDetector_UnstableResets(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 12; i++ {
		herbs := 100
		if i%2 == 0 {
			herbs = 40
		}
		if hasBookmark(bd.Check(WindowStats{WindowEndTick: uint64(i * 600), Herbivores: herbs, Carnivores: 20}), BookmarkStableEcosystem) {
			t.Fatalf("oscillating population flagged stable at window %d", i)
		}
	}
}
