// Package sqlite provides a SQLite-backed high-score store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomz197/reflex/internal/game"
	"github.com/tomz197/reflex/internal/highscore"
	"github.com/tomz197/reflex/internal/highscore/sqlite/migrations"
	"github.com/tomz197/reflex/internal/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// Store persists the top list and settings in one SQLite file.
type Store struct {
	sqlDB *sql.DB
}

var _ highscore.Store = (*Store)(nil)

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// LoadHighScores returns the stored list, best first.
func (s *Store) LoadHighScores(ctx context.Context) ([]game.HighScoreEntry, error) {
	return loadHighScores(ctx, s.sqlDB)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadHighScores(ctx context.Context, q querier) ([]game.HighScoreEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT difficulty, score, avg_reaction_ms FROM high_scores ORDER BY position LIMIT ?`,
		highscore.MaxEntries,
	)
	if err != nil {
		return nil, fmt.Errorf("query high scores: %w", err)
	}
	defer rows.Close()

	var entries []game.HighScoreEntry
	for rows.Next() {
		var e game.HighScoreEntry
		if err := rows.Scan(&e.Difficulty, &e.Score, &e.AvgReactionMs); err != nil {
			return nil, fmt.Errorf("scan high score: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate high scores: %w", err)
	}
	return entries, nil
}

// SaveHighScores merges entries into the stored list and keeps the best
// ten. Several processes can share one file, each saving the list it holds
// in memory, so rows already stored are kept: an entry present in both is
// counted once, and rows another process wrote survive.
func (s *Store) SaveHighScores(ctx context.Context, entries []game.HighScoreEntry) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored, err := loadHighScores(ctx, tx)
	if err != nil {
		return err
	}
	merged := mergeHighScores(stored, entries)

	if _, err := tx.ExecContext(ctx, `DELETE FROM high_scores`); err != nil {
		return fmt.Errorf("clear high scores: %w", err)
	}
	now := time.Now().UTC().UnixMilli()
	for i, e := range merged {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO high_scores (position, difficulty, score, avg_reaction_ms, recorded_at) VALUES (?, ?, ?, ?, ?)`,
			i+1, e.Difficulty, e.Score, e.AvgReactionMs, now,
		); err != nil {
			return fmt.Errorf("insert high score %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// mergeHighScores returns the top list of stored plus entries. Equal
// entries count max(stored, entries) times, not the sum, since a process
// saves back the rows it loaded.
func mergeHighScores(stored, entries []game.HighScoreEntry) []game.HighScoreEntry {
	var out []game.HighScoreEntry
	seen := make(map[game.HighScoreEntry]int, len(stored))
	for _, e := range stored {
		seen[e]++
		out, _ = highscore.Insert(out, e)
	}
	for _, e := range entries {
		if seen[e] > 0 {
			seen[e]--
			continue
		}
		out, _ = highscore.Insert(out, e)
	}
	return out
}

// LoadSettings returns the saved settings merged over the defaults.
func (s *Store) LoadSettings(ctx context.Context) (highscore.Settings, error) {
	var payload string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT payload FROM settings WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return highscore.DefaultSettings(), nil
	}
	if err != nil {
		return highscore.Settings{}, fmt.Errorf("query settings: %w", err)
	}
	settings := highscore.DefaultSettings()
	if err := json.Unmarshal([]byte(payload), &settings); err != nil {
		return highscore.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings.Validate(), nil
}

// SaveSettings stores the settings.
func (s *Store) SaveSettings(ctx context.Context, settings highscore.Settings) error {
	payload, err := json.Marshal(settings.Validate())
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO settings (id, payload, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(payload), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
