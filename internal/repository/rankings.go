package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mtmath-games/internal/domain"

	"github.com/rs/zerolog"
)

// RankingsRepository is the leaderboard store adapter: append a score
// record, query the top N ordered by score with earliest-first tie-break.
// Entries are immutable once written.
type RankingsRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRankingsRepository(sqlDB *sql.DB, logger zerolog.Logger) *RankingsRepository {
	return &RankingsRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// Add appends an entry. CreatedAt is assigned here, on the server side; it
// is authoritative for tie-break ordering.
func (r *RankingsRepository) Add(ctx context.Context, entry *domain.LeaderboardEntry) (time.Time, error) {
	sessionJSON, err := json.Marshal(entry.Session)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to encode session data: %w", err)
	}

	createdAt := time.Now().UTC()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO rankings (id, game, score, nickname, affiliation, client_ip, session_data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Game, entry.Score, entry.Nickname, entry.Affiliation,
		entry.ClientIP, string(sessionJSON), createdAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("game", entry.Game).Str("id", entry.ID).Msg("failed to insert ranking entry")
		return time.Time{}, fmt.Errorf("failed to insert ranking entry: %w", err)
	}

	r.logger.Debug().
		Str("game", entry.Game).
		Str("id", entry.ID).
		Int("score", entry.Score).
		Msg("ranking entry recorded")

	return createdAt, nil
}

// Top returns up to limit entries ordered by score descending, ties broken
// by earliest creation time.
func (r *RankingsRepository) Top(ctx context.Context, game string, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, game, score, nickname, affiliation, session_data, created_at
		 FROM rankings
		 WHERE game = ?
		 ORDER BY score DESC, created_at ASC
		 LIMIT ?`,
		game, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var entry domain.LeaderboardEntry
		var sessionJSON string
		if err := rows.Scan(&entry.ID, &entry.Game, &entry.Score, &entry.Nickname,
			&entry.Affiliation, &sessionJSON, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ranking entry: %w", err)
		}
		if err := json.Unmarshal([]byte(sessionJSON), &entry.Session); err != nil {
			r.logger.Warn().Err(err).Str("id", entry.ID).Msg("malformed session data, keeping entry")
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the total number of entries recorded for a game.
func (r *RankingsRepository) Count(ctx context.Context, game string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rankings WHERE game = ?`, game,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rankings: %w", err)
	}
	return count, nil
}
