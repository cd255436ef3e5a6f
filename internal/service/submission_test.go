package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"mtmath-games/internal/domain"
	"mtmath-games/internal/game"
	"mtmath-games/internal/localstore"
	"mtmath-games/internal/ratelimit"

	"github.com/rs/zerolog"
)

// fakeRankings keeps entries in memory and can be told to fail.
type fakeRankings struct {
	entries []domain.LeaderboardEntry
	addErr  error
	topErr  error
	clock   time.Time
}

func newFakeRankings() *fakeRankings {
	return &fakeRankings{clock: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeRankings) Add(_ context.Context, entry *domain.LeaderboardEntry) (time.Time, error) {
	if f.addErr != nil {
		return time.Time{}, f.addErr
	}
	f.clock = f.clock.Add(time.Second)
	stored := *entry
	stored.CreatedAt = f.clock
	f.entries = append(f.entries, stored)
	return stored.CreatedAt, nil
}

func (f *fakeRankings) Top(_ context.Context, gameName string, limit int) ([]domain.LeaderboardEntry, error) {
	if f.topErr != nil {
		return nil, f.topErr
	}
	var out []domain.LeaderboardEntry
	for _, e := range f.entries {
		if e.Game == gameName {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRankings) Count(_ context.Context, gameName string) (int, error) {
	if f.topErr != nil {
		return 0, f.topErr
	}
	count := 0
	for _, e := range f.entries {
		if e.Game == gameName {
			count++
		}
	}
	return count, nil
}

func finishedSnapshot() game.Snapshot {
	started := time.Date(2025, 6, 1, 11, 58, 0, 0, time.UTC)
	return game.Snapshot{
		Kind:              game.KindArithmetic,
		Level:             game.LevelHard,
		Phase:             game.PhaseSummary,
		Reason:            game.ReasonTimeUp,
		Score:             160,
		QuestionsAnswered: 8,
		CorrectAnswers:    8,
		StartedAt:         started,
		EndedAt:           started.Add(60 * time.Second),
		Nickname:          "tester",
		Affiliation:       "testing",
	}
}

func newSubmissionHarness(t *testing.T, repo RankingsStore) (*SubmissionService, *ratelimit.Limiter, func(time.Duration)) {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := ratelimit.New(ratelimit.WithClock(func() time.Time { return now }))
	local, err := localstore.New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("localstore: %v", err)
	}
	leaderboard := NewLeaderboardService(repo, local, zerolog.Nop())
	svc := NewSubmissionService(repo, limiter, leaderboard, zerolog.Nop())
	advance := func(d time.Duration) { now = now.Add(d) }
	return svc, limiter, advance
}

func TestSubmitRecordsEntry(t *testing.T) {
	repo := newFakeRankings()
	svc, _, _ := newSubmissionHarness(t, repo)

	result, err := svc.Submit(context.Background(), finishedSnapshot(), "1.2.3.4")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.ID == "" {
		t.Fatal("empty entry id")
	}
	if len(repo.entries) != 1 {
		t.Fatalf("stored entries = %d, want 1", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.Score != 160 || entry.Nickname != "tester" || entry.Game != "calculation" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Session.Accuracy != 100 || entry.Session.Level != "hard" {
		t.Fatalf("unexpected session metadata %+v", entry.Session)
	}
}

func TestSubmitRejectsActiveSession(t *testing.T) {
	svc, _, _ := newSubmissionHarness(t, newFakeRankings())

	snap := finishedSnapshot()
	snap.Phase = game.PhaseActive
	_, err := svc.Submit(context.Background(), snap, "1.2.3.4")
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("err = %v, want invalid state", err)
	}
}

func TestSubmitRejectsIneligibleLevel(t *testing.T) {
	svc, _, _ := newSubmissionHarness(t, newFakeRankings())

	snap := finishedSnapshot()
	snap.Level = game.LevelEasy
	_, err := svc.Submit(context.Background(), snap, "1.2.3.4")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestSubmitRejectsImplausibleScore(t *testing.T) {
	svc, _, _ := newSubmissionHarness(t, newFakeRankings())

	snap := finishedSnapshot()
	// 8 answered at hard tier caps at 8*20 + 50 = 210
	snap.Score = 211
	_, err := svc.Submit(context.Background(), snap, "1.2.3.4")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestSubmitRejectsLongNickname(t *testing.T) {
	svc, _, _ := newSubmissionHarness(t, newFakeRankings())

	snap := finishedSnapshot()
	snap.Nickname = "elevenchars"
	_, err := svc.Submit(context.Background(), snap, "1.2.3.4")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestSubmitRateLimitsSameIdentity(t *testing.T) {
	repo := newFakeRankings()
	svc, _, advance := newSubmissionHarness(t, repo)

	if _, err := svc.Submit(context.Background(), finishedSnapshot(), "1.2.3.4"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := svc.Submit(context.Background(), finishedSnapshot(), "1.2.3.4")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want rate limited", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("stored entries = %d after rejected submit, want 1", len(repo.entries))
	}

	advance(61 * time.Second)
	if _, err := svc.Submit(context.Background(), finishedSnapshot(), "1.2.3.4"); err != nil {
		t.Fatalf("submit after window: %v", err)
	}
}

func TestSubmitSurfacesStoreFailure(t *testing.T) {
	repo := newFakeRankings()
	repo.addErr = errors.New("disk on fire")
	svc, _, _ := newSubmissionHarness(t, repo)

	_, err := svc.Submit(context.Background(), finishedSnapshot(), "1.2.3.4")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want store unavailable", err)
	}
}
