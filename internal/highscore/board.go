// Package highscore keeps the bounded top-ten list and player settings.
package highscore

import (
	"context"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/reflex/internal/game"
)

// MaxEntries bounds the list.
const MaxEntries = 10

const saveTimeout = 5 * time.Second

// Persister loads and saves the list.
type Persister interface {
	LoadHighScores(ctx context.Context) ([]game.HighScoreEntry, error)
	SaveHighScores(ctx context.Context, entries []game.HighScoreEntry) error
}

// SettingsStore loads and saves player settings.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
}

// Store is the full persistence surface.
type Store interface {
	Persister
	SettingsStore
}

// Board is the in-memory top list, shared by every engine that records into it.
type Board struct {
	mu      sync.RWMutex
	entries []game.HighScoreEntry

	saveMu  sync.Mutex
	saves   sync.WaitGroup
	persist Persister
	logger  *log.Logger
}

// Compile-time check that Board records engine results.
var _ game.Recorder = (*Board)(nil)

// NewBoard creates an empty board. p may be nil for a memory-only board.
func NewBoard(p Persister, logger *log.Logger) *Board {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Board{persist: p, logger: logger}
}

// Load replaces the list with the persisted one, re-sorted and trimmed.
func (b *Board) Load(ctx context.Context) error {
	if b.persist == nil {
		return nil
	}
	loaded, err := b.persist.LoadHighScores(ctx)
	if err != nil {
		return err
	}
	var entries []game.HighScoreEntry
	for _, e := range loaded {
		entries, _ = Insert(entries, e)
	}
	b.mu.Lock()
	b.entries = entries
	b.mu.Unlock()
	return nil
}

// Add inserts an entry and returns its 1-based rank, or 0 if it did not place.
func (b *Board) Add(entry game.HighScoreEntry) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	var rank int
	b.entries, rank = Insert(b.entries, entry)
	return rank
}

// Record adds the finished session and persists the list in the background.
func (b *Board) Record(r game.Result) {
	b.RecordRank(r)
}

// RecordRank is Record returning the entry's rank, 0 if it did not place.
// The save runs on its own goroutine; Wait blocks until it is done.
func (b *Board) RecordRank(r game.Result) int {
	rank := b.Add(r.Entry)
	b.logger.Debug("high score recorded", "difficulty", r.Entry.Difficulty, "score", r.Entry.Score, "rank", rank)
	if b.persist == nil {
		return rank
	}

	b.saves.Add(1)
	go func() {
		defer b.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := b.Save(ctx); err != nil {
			b.logger.Error("save high scores", "err", err)
		}
	}()
	return rank
}

// Wait blocks until every background save has finished.
func (b *Board) Wait() {
	b.saves.Wait()
}

// Save writes the current list through the persister.
func (b *Board) Save(ctx context.Context) error {
	if b.persist == nil {
		return nil
	}
	b.saveMu.Lock()
	defer b.saveMu.Unlock()
	return b.persist.SaveHighScores(ctx, b.Entries())
}

// Entries returns a copy of the list, best first.
func (b *Board) Entries() []game.HighScoreEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.entries)
}

// Top returns up to n entries, optionally restricted to one difficulty.
func (b *Board) Top(difficulty string, n int) []game.HighScoreEntry {
	difficulty = strings.ToLower(strings.TrimSpace(difficulty))
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []game.HighScoreEntry
	for _, e := range b.entries {
		if n > 0 && len(out) >= n {
			break
		}
		if difficulty != "" && e.Difficulty != difficulty {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Best returns the highest entry for a difficulty.
func (b *Board) Best(difficulty string) (game.HighScoreEntry, bool) {
	top := b.Top(difficulty, 1)
	if len(top) == 0 {
		return game.HighScoreEntry{}, false
	}
	return top[0], true
}

// Insert places entry into a list sorted by descending score, after any
// existing entries with the same score, and trims to MaxEntries. It returns
// the new list and the entry's 1-based rank (0 if it fell off).
func Insert(entries []game.HighScoreEntry, entry game.HighScoreEntry) ([]game.HighScoreEntry, int) {
	i := len(entries)
	for j, e := range entries {
		if e.Score < entry.Score {
			i = j
			break
		}
	}
	entries = slices.Insert(entries, i, entry)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	if i >= MaxEntries {
		return entries, 0
	}
	return entries, i + 1
}
