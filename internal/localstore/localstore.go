// Package localstore is a JSON-file key/value store holding the per-level
// high scores and the last successfully fetched leaderboard copy. It plays
// the role browser localStorage plays for the site pages: advisory local
// state, not a durability boundary.
package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

type Store struct {
	mu     sync.Mutex
	path   string
	data   map[string]json.RawMessage
	logger zerolog.Logger
}

func New(dir string, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		path:   filepath.Join(dir, "local_state.json"),
		data:   make(map[string]json.RawMessage),
		logger: logger,
	}

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local state: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		// corrupt state file is not worth failing startup over
		logger.Warn().Err(err).Str("path", s.path).Msg("local state unreadable, starting empty")
		s.data = make(map[string]json.RawMessage)
	}
	return s, nil
}

// Get unmarshals the value under key into out. ok is false when absent.
func (s *Store) Get(key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode local state %q: %w", key, err)
	}
	return true, nil
}

// Set stores value under key and flushes the whole file.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode local state %q: %w", key, err)
	}
	s.data[key] = raw
	return s.flush()
}

func (s *Store) flush() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write local state: %w", err)
	}
	return nil
}

// HighScoreKey is the per-level high score slot, one per game and tier.
func HighScoreKey(game, level string) string {
	return fmt.Sprintf("%sGameHighScore_%s", game, level)
}

// BackupKey is the last-known-good leaderboard slot for a game.
func BackupKey(game string) string {
	return fmt.Sprintf("%sGameRanking_backup", game)
}

// HighScore reads the recorded high score for a game and level, zero when
// none is recorded yet.
func (s *Store) HighScore(game, level string) int {
	var score int
	ok, err := s.Get(HighScoreKey(game, level), &score)
	if err != nil {
		s.logger.Warn().Err(err).Str("game", game).Str("level", level).Msg("failed to read high score")
		return 0
	}
	if !ok {
		return 0
	}
	return score
}

// RecordHighScore persists score if it beats the stored value and reports
// whether it did.
func (s *Store) RecordHighScore(game, level string, score int) bool {
	if score <= s.HighScore(game, level) {
		return false
	}
	if err := s.Set(HighScoreKey(game, level), score); err != nil {
		s.logger.Warn().Err(err).Str("game", game).Str("level", level).Msg("failed to record high score")
		return false
	}
	return true
}
