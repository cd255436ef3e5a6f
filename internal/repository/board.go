package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mtmath-games/internal/domain"

	"github.com/rs/zerolog"
)

type BoardRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewBoardRepository(sqlDB *sql.DB, logger zerolog.Logger) *BoardRepository {
	return &BoardRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *BoardRepository) Add(ctx context.Context, post *domain.BoardPost) (time.Time, error) {
	createdAt := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO board_posts (id, nickname, content, created_at) VALUES (?, ?, ?, ?)`,
		post.ID, post.Nickname, post.Content, createdAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("id", post.ID).Msg("failed to insert board post")
		return time.Time{}, fmt.Errorf("failed to insert board post: %w", err)
	}
	return createdAt, nil
}

// List returns the newest posts first.
func (r *BoardRepository) List(ctx context.Context, limit int) ([]domain.BoardPost, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, nickname, content, created_at
		 FROM board_posts
		 ORDER BY created_at DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query board posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.BoardPost
	for rows.Next() {
		var post domain.BoardPost
		if err := rows.Scan(&post.ID, &post.Nickname, &post.Content, &post.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan board post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}
