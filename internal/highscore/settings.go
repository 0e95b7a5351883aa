package highscore

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/tomz197/reflex/internal/game"
)

// Settings are the player preferences.
type Settings struct {
	Difficulty      string `json:"difficulty"`
	SoundEnabled    bool   `json:"soundEnabled"`
	ParticleEffects bool   `json:"particleEffects"`
	ScreenShake     bool   `json:"screenShake"`
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Difficulty:      game.Easy.Name,
		SoundEnabled:    true,
		ParticleEffects: true,
		ScreenShake:     true,
	}
}

// Validate returns s with an unknown difficulty reverted to easy.
func (s Settings) Validate() Settings {
	s.Difficulty = strings.ToLower(strings.TrimSpace(s.Difficulty))
	if _, err := game.LookupDifficulty(s.Difficulty); err != nil {
		s.Difficulty = game.Easy.Name
	}
	return s
}

// MemoryStore is a Store that keeps everything in process.
type MemoryStore struct {
	mu       sync.Mutex
	entries  []game.HighScoreEntry
	settings *Settings
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) LoadHighScores(ctx context.Context) ([]game.HighScoreEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries), nil
}

func (m *MemoryStore) SaveHighScores(ctx context.Context, entries []game.HighScoreEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	m.entries = slices.Clone(entries)
	return nil
}

func (m *MemoryStore) LoadSettings(ctx context.Context) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return DefaultSettings(), nil
	}
	return m.settings.Validate(), nil
}

func (m *MemoryStore) SaveSettings(ctx context.Context, s Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s = s.Validate()
	m.mu.Lock()
	m.settings = &s
	m.mu.Unlock()
	return nil
}
