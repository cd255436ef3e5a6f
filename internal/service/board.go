package service

import (
	"context"
	"fmt"
	"strings"

	"mtmath-games/internal/constants"
	"mtmath-games/internal/domain"
	"mtmath-games/internal/repository"
	"mtmath-games/internal/validate"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// BoardService is the message board: post and list, nothing else. Board
// fields run looser bounds than the game leaderboard and are enforced
// here, server side, authoritatively.
type BoardService struct {
	repo   *repository.BoardRepository
	logger zerolog.Logger
}

func NewBoardService(repo *repository.BoardRepository, logger zerolog.Logger) *BoardService {
	return &BoardService{
		repo:   repo,
		logger: logger,
	}
}

func (s *BoardService) Post(ctx context.Context, nickname, content string) (*domain.BoardPost, error) {
	if err := validate.BoardNickname(nickname); err != nil {
		return nil, err
	}
	if err := validate.BoardContent(content); err != nil {
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate post id: %w", err)
	}

	post := &domain.BoardPost{
		ID:       id,
		Nickname: strings.TrimSpace(nickname),
		Content:  strings.TrimSpace(content),
	}

	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	createdAt, err := s.repo.Add(dbCtx, post)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	post.CreatedAt = createdAt

	s.logger.Info().Str("id", id).Str("nickname", post.Nickname).Msg("board post recorded")
	return post, nil
}

func (s *BoardService) List(ctx context.Context) ([]domain.BoardPost, error) {
	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	posts, err := s.repo.List(dbCtx, constants.BoardListLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return posts, nil
}
