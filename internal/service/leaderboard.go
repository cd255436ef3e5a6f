package service

import (
	"context"
	"fmt"
	"time"

	"mtmath-games/internal/constants"
	"mtmath-games/internal/domain"
	"mtmath-games/internal/localstore"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// LeaderboardService serves ordered rankings and keeps the last-known-good
// local copy for the read fallback. The refreshed copy may lag an
// eventually consistent store; read-your-writes is not guaranteed.
type LeaderboardService struct {
	repo   RankingsStore
	local  *localstore.Store
	logger zerolog.Logger
}

func NewLeaderboardService(repo RankingsStore, local *localstore.Store, logger zerolog.Logger) *LeaderboardService {
	return &LeaderboardService{
		repo:   repo,
		local:  local,
		logger: logger,
	}
}

// Get returns the top rankings for a game. On store failure it falls back
// to the last successfully fetched copy; only when both fail does the
// caller see an error.
func (s *LeaderboardService) Get(ctx context.Context, game string) (*domain.RankingList, error) {
	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	var entries []domain.LeaderboardEntry
	var total int

	g, gCtx := errgroup.WithContext(dbCtx)
	g.Go(func() error {
		var err error
		entries, err = s.repo.Top(gCtx, game, constants.LeaderboardLimit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gCtx, game)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Warn().Err(err).Str("game", game).Msg("leaderboard read failed, trying backup")
		return s.fromBackup(game, err)
	}

	list := &domain.RankingList{
		Rankings:          entries,
		TotalParticipants: total,
		LastUpdated:       time.Now().UTC(),
	}

	if err := s.local.Set(localstore.BackupKey(game), entries); err != nil {
		s.logger.Warn().Err(err).Str("game", game).Msg("failed to store leaderboard backup")
	}

	return list, nil
}

func (s *LeaderboardService) fromBackup(game string, cause error) (*domain.RankingList, error) {
	var entries []domain.LeaderboardEntry
	ok, err := s.local.Get(localstore.BackupKey(game), &entries)
	if err != nil || !ok {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, cause)
	}
	s.logger.Info().Str("game", game).Int("entries", len(entries)).Msg("serving leaderboard from backup")
	return &domain.RankingList{
		Rankings:          entries,
		TotalParticipants: len(entries),
		LastUpdated:       time.Now().UTC(),
		FromBackup:        true,
	}, nil
}

// RefreshBackup re-reads the top of the board and replaces the local copy.
func (s *LeaderboardService) RefreshBackup(ctx context.Context, game string) error {
	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	entries, err := s.repo.Top(dbCtx, game, constants.BackupFetchLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch rankings for backup: %w", err)
	}
	return s.local.Set(localstore.BackupKey(game), entries)
}
