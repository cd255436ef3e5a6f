package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mtmath-games/internal/domain"

	"github.com/rs/zerolog"
)

type ArticlesRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewArticlesRepository(sqlDB *sql.DB, logger zerolog.Logger) *ArticlesRepository {
	return &ArticlesRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// ListPublished returns published articles newest first, optionally
// filtered by exact category and tag substring.
func (r *ArticlesRepository) ListPublished(ctx context.Context, category, tag string, limit int) ([]domain.Article, error) {
	query := `SELECT slug, title, summary, content, category, tags, status, difficulty_level, niche_score, created_at, updated_at
	          FROM articles
	          WHERE status = 'published'`
	args := []any{}

	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	if tag != "" {
		query += ` AND tags LIKE ?`
		args = append(args, "%"+tag+"%")
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// GetBySlug returns one article regardless of status.
func (r *ArticlesRepository) GetBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT slug, title, summary, content, category, tags, status, difficulty_level, niche_score, created_at, updated_at
		 FROM articles WHERE slug = ?`, slug,
	)
	article, err := scanArticle(row.Scan)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article %q: %w", slug, err)
	}
	return &article, nil
}

// Upsert writes an article fetched from the content API.
func (r *ArticlesRepository) Upsert(ctx context.Context, article *domain.Article) error {
	tags, err := json.Marshal(article.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO articles (slug, title, summary, content, category, tags, status, difficulty_level, niche_score, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(slug) DO UPDATE SET
		   title = excluded.title,
		   summary = excluded.summary,
		   content = excluded.content,
		   category = excluded.category,
		   tags = excluded.tags,
		   status = excluded.status,
		   difficulty_level = excluded.difficulty_level,
		   niche_score = excluded.niche_score,
		   updated_at = excluded.updated_at`,
		article.Slug, article.Title, article.Summary, article.Content, article.Category,
		string(tags), article.Status, article.DifficultyLevel, article.NicheScore,
		article.CreatedAt, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("slug", article.Slug).Msg("failed to upsert article")
		return fmt.Errorf("failed to upsert article %q: %w", article.Slug, err)
	}
	return nil
}

func scanArticle(scan func(...any) error) (domain.Article, error) {
	var article domain.Article
	var tags string
	err := scan(&article.Slug, &article.Title, &article.Summary, &article.Content,
		&article.Category, &tags, &article.Status, &article.DifficultyLevel,
		&article.NicheScore, &article.CreatedAt, &article.UpdatedAt)
	if err != nil {
		return domain.Article{}, err
	}
	if tags != "" && !strings.EqualFold(tags, "null") {
		if err := json.Unmarshal([]byte(tags), &article.Tags); err != nil {
			return domain.Article{}, fmt.Errorf("failed to decode tags for %q: %w", article.Slug, err)
		}
	}
	return article, nil
}
