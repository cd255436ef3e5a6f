package service

import (
	"context"
	"fmt"
	"time"

	"mtmath-games/internal/constants"
	"mtmath-games/internal/domain"
	"mtmath-games/internal/game"
	"mtmath-games/internal/ratelimit"
	"mtmath-games/internal/validate"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// RankingsStore is the leaderboard store adapter contract. The SQLite
// repository satisfies it; tests substitute fakes.
type RankingsStore interface {
	Add(ctx context.Context, entry *domain.LeaderboardEntry) (time.Time, error)
	Top(ctx context.Context, game string, limit int) ([]domain.LeaderboardEntry, error)
	Count(ctx context.Context, game string) (int, error)
}

// SubmissionService runs the leaderboard submission pipeline: state gate,
// eligibility, validators, rate limit, store write, backup refresh. Each
// step is an independent failure point; none is retried automatically.
type SubmissionService struct {
	repo        RankingsStore
	limiter     *ratelimit.Limiter
	leaderboard *LeaderboardService
	logger      zerolog.Logger
}

func NewSubmissionService(
	repo RankingsStore,
	limiter *ratelimit.Limiter,
	leaderboard *LeaderboardService,
	logger zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		repo:        repo,
		limiter:     limiter,
		leaderboard: leaderboard,
		logger:      logger,
	}
}

type SubmitResult struct {
	ID        string
	Timestamp time.Time
}

// Submit records one finished session on the leaderboard. The snapshot is
// taken at call time; nothing here mutates the session, so a response
// arriving after the session has moved on is simply stale data for the
// caller to drop.
func (s *SubmissionService) Submit(ctx context.Context, snap game.Snapshot, clientIP string) (*SubmitResult, error) {
	if snap.Phase != game.PhaseTerminal && snap.Phase != game.PhaseSummary {
		return nil, fmt.Errorf("%w: submit from %s", domain.ErrInvalidState, snap.Phase)
	}
	if snap.Level != game.LevelHard {
		return nil, fmt.Errorf("%w: only the hard tier joins the leaderboard", domain.ErrValidation)
	}
	if snap.Score <= 0 {
		return nil, fmt.Errorf("%w: nothing to record for a zero score", domain.ErrValidation)
	}

	if err := validate.Score(snap.Score, snap.Kind, snap.Level, snap.QuestionsAnswered); err != nil {
		return nil, err
	}
	if err := validate.Nickname(snap.Nickname); err != nil {
		return nil, err
	}
	if err := validate.Affiliation(snap.Affiliation); err != nil {
		return nil, err
	}

	key := validate.RateLimitKey(clientIP, snap.Nickname)
	if !s.limiter.CheckAndRecord(key) {
		s.logger.Info().Str("key", key).Msg("submission rate limited")
		return nil, fmt.Errorf("%w: one submission per minute, please wait and retry", domain.ErrRateLimited)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate entry id: %w", err)
	}

	accuracy := 0
	if snap.QuestionsAnswered > 0 {
		accuracy = int(float64(snap.CorrectAnswers)/float64(snap.QuestionsAnswered)*100 + 0.5)
	}

	entry := &domain.LeaderboardEntry{
		ID:          id,
		Game:        string(snap.Kind),
		Score:       snap.Score,
		Nickname:    snap.Nickname,
		Affiliation: snap.Affiliation,
		ClientIP:    clientIP,
		Session: domain.SessionData{
			Duration:          snap.EndedAt.Sub(snap.StartedAt).Seconds(),
			QuestionsAnswered: snap.QuestionsAnswered,
			CorrectAnswers:    snap.CorrectAnswers,
			Accuracy:          accuracy,
			Level:             string(snap.Level),
			StartTime:         snap.StartedAt.UTC().Format(time.RFC3339),
			EndTime:           snap.EndedAt.UTC().Format(time.RFC3339),
			GameVersion:       GameVersion,
		},
	}

	storeCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	createdAt, err := s.repo.Add(storeCtx, entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	s.logger.Info().
		Str("game", entry.Game).
		Str("id", id).
		Int("score", entry.Score).
		Str("nickname", entry.Nickname).
		Msg("score recorded")

	// best effort: keep the offline copy fresh for the read fallback
	if s.leaderboard != nil {
		if err := s.leaderboard.RefreshBackup(ctx, entry.Game); err != nil {
			s.logger.Warn().Err(err).Str("game", entry.Game).Msg("failed to refresh leaderboard backup")
		}
	}

	return &SubmitResult{ID: id, Timestamp: createdAt}, nil
}

// GameVersion tags submitted session metadata.
const GameVersion = "mtmath-v1.0"
