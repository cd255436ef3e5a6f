package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mtmath-games/internal/api"
	"mtmath-games/internal/constants"
	"mtmath-games/internal/domain"
	"mtmath-games/internal/repository"

	"github.com/rs/zerolog"
)

// ArticleService serves the read-only article surface and pulls published
// content from the hosted store into the local table at startup. The sync
// is a single awaited initialization, not a readiness poll.
type ArticleService struct {
	repo   *repository.ArticlesRepository
	client *api.ContentClient
	logger zerolog.Logger
}

func NewArticleService(repo *repository.ArticlesRepository, client *api.ContentClient, logger zerolog.Logger) *ArticleService {
	return &ArticleService{
		repo:   repo,
		client: client,
		logger: logger,
	}
}

// List returns published articles newest first, optionally filtered by
// category and tag substring.
func (s *ArticleService) List(ctx context.Context, category, tag string) ([]domain.Article, error) {
	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	articles, err := s.repo.ListPublished(dbCtx, category, tag, constants.ArticleListLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return articles, nil
}

// Get returns one article by slug. sql.ErrNoRows passes through for the
// handler's not-found mapping.
func (s *ArticleService) Get(ctx context.Context, slug string) (*domain.Article, error) {
	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	article, err := s.repo.GetBySlug(dbCtx, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return article, nil
}

// Sync pulls all published articles from the content API page by page.
// A failure mid-sync keeps whatever is already local; the next startup
// picks up from the source of truth again.
func (s *ArticleService) Sync(ctx context.Context) error {
	if !s.client.Enabled() {
		s.logger.Info().Msg("content API not configured, skipping article sync")
		return nil
	}

	syncCtx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	const pageSize = 50
	total := 0
	for page := 1; ; page++ {
		apiCtx, apiCancel := context.WithTimeout(syncCtx, constants.ContentAPITimeout)
		resp, err := s.client.ListArticles(apiCtx, page, pageSize)
		apiCancel()
		if err != nil {
			return fmt.Errorf("failed to fetch article page %d: %w", page, err)
		}

		for i := range resp.Articles {
			article := fromContentArticle(&resp.Articles[i])
			if err := s.repo.Upsert(syncCtx, article); err != nil {
				return err
			}
			total++
		}

		if !resp.HasMore {
			break
		}
	}

	s.logger.Info().Int("articles", total).Msg("article sync completed")
	return nil
}

func fromContentArticle(data *api.ArticleData) *domain.Article {
	createdAt, err := time.Parse(time.RFC3339, data.CreatedAt)
	if err != nil {
		createdAt = time.Now().UTC()
	}
	return &domain.Article{
		Slug:            data.Slug,
		Title:           data.Title,
		Summary:         data.Summary,
		Content:         data.Content,
		Category:        data.Category,
		Tags:            data.Tags,
		Status:          data.Status,
		DifficultyLevel: data.DifficultyLevel,
		NicheScore:      data.NicheScore,
		CreatedAt:       createdAt,
	}
}
