package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mtmath-games/internal/constants"
	"mtmath-games/internal/domain"
	"mtmath-games/internal/game"
	"mtmath-games/internal/localstore"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// SessionService owns the running game sessions. Each session is driven
// only by its own events; the countdown is advanced lazily from wall-clock
// elapsed time on every touch, so there is no background timer goroutine
// and no cross-session interleaving.
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*managedSession

	submission *SubmissionService
	local      *localstore.Store
	logger     zerolog.Logger
	now        func() time.Time
}

type managedSession struct {
	session     *game.Session
	lastTicked  time.Time
	lastTouched time.Time
	summary     *game.Summary
	newHigh     bool
}

type Option func(*SessionService)

// WithClock swaps the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) { s.now = now }
}

func NewSessionService(submission *SubmissionService, local *localstore.Store, logger zerolog.Logger, opts ...Option) *SessionService {
	s := &SessionService{
		sessions:   make(map[string]*managedSession),
		submission: submission,
		local:      local,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionView is the state a caller renders.
type SessionView struct {
	ID                string        `json:"id"`
	Game              game.Kind     `json:"game"`
	Level             game.Level    `json:"level"`
	Phase             string        `json:"phase"`
	Score             int           `json:"score"`
	Streak            int           `json:"streak"`
	Lives             int           `json:"lives,omitempty"`
	TimeRemaining     int           `json:"timeRemaining,omitempty"`
	QuestionsAnswered int           `json:"questionsAnswered"`
	CorrectAnswers    int           `json:"correctAnswers"`
	Problem           string        `json:"problem,omitempty"`
	HighScore         int           `json:"highScore"`
	Summary           *game.Summary `json:"summary,omitempty"`
	NewHighScore      bool          `json:"newHighScore,omitempty"`
}

// AnswerResult pairs the evaluated outcome with the effects to render.
type AnswerResult struct {
	Outcome game.Outcome
	Effects []game.Effect
	View    *SessionView
}

// Start creates a session, selects the level, captures identity when the
// tier requires it, and poses the first problem.
func (s *SessionService) Start(kind game.Kind, level game.Level, identity game.Identity) (*SessionView, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown game %q", domain.ErrValidation, kind)
	}

	session := game.NewSession(kind)
	if err := session.SelectLevel(level); err != nil {
		return nil, err
	}
	if session.Phase() == game.PhaseConfiguring {
		if err := session.Configure(identity); err != nil {
			return nil, err
		}
	}
	if err := session.Start(); err != nil {
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictIdle()

	now := s.now()
	ms := &managedSession{
		session:     session,
		lastTicked:  now,
		lastTouched: now,
	}
	s.sessions[id] = ms

	s.logger.Info().
		Str("session_id", id).
		Str("game", string(kind)).
		Str("level", string(level)).
		Msg("session started")

	return s.view(id, ms), nil
}

// AnswerArithmetic evaluates numeric input for a calculation session.
func (s *SessionService) AnswerArithmetic(id, input string) (*AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms, err := s.touch(id)
	if err != nil {
		return nil, err
	}

	outcome, effects, err := ms.session.AnswerArithmetic(input)
	if err != nil {
		return nil, err
	}
	s.settle(id, ms)

	return &AnswerResult{Outcome: outcome, Effects: effects, View: s.view(id, ms)}, nil
}

// AnswerPrime evaluates a prime-or-not call for a prime session.
func (s *SessionService) AnswerPrime(id string, saysPrime bool) (*AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms, err := s.touch(id)
	if err != nil {
		return nil, err
	}

	outcome, effects, err := ms.session.AnswerPrime(saysPrime)
	if err != nil {
		return nil, err
	}
	s.settle(id, ms)

	return &AnswerResult{Outcome: outcome, Effects: effects, View: s.view(id, ms)}, nil
}

// Get returns the current state, advancing the countdown first.
func (s *SessionService) Get(id string) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms, err := s.touch(id)
	if err != nil {
		return nil, err
	}
	return s.view(id, ms), nil
}

// Restart replays the same level on a finished session. The countdown is
// advanced first so a run whose clock expired between requests restarts
// instead of reporting a stale active phase.
func (s *SessionService) Restart(id string) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms, err := s.touch(id)
	if err != nil {
		return nil, err
	}
	if err := ms.session.Restart(); err != nil {
		return nil, err
	}
	now := s.now()
	ms.lastTicked = now
	ms.lastTouched = now
	ms.summary = nil
	ms.newHigh = false
	return s.view(id, ms), nil
}

// BackToLevelSelect abandons the run and returns the session to tier
// selection, discarding the captured identity and any summary.
func (s *SessionService) BackToLevelSelect(id string) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown session %q", domain.ErrValidation, id)
	}
	ms.session.BackToLevelSelect()
	now := s.now()
	ms.lastTicked = now
	ms.lastTouched = now
	ms.summary = nil
	ms.newHigh = false
	return s.view(id, ms), nil
}

// Submit sends a finished session's score through the submission pipeline.
// The snapshot is taken under the lock; a response that lands after the
// session has been restarted refers to the old run and leaves the current
// one untouched.
func (s *SessionService) Submit(ctx context.Context, id, clientIP string) (*SubmitResult, error) {
	s.mu.Lock()
	ms, err := s.touch(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	snap := ms.session.Snapshot()
	s.mu.Unlock()

	return s.submission.Submit(ctx, snap, clientIP)
}

// touch looks up a session, advances its countdown from elapsed wall time
// and refreshes the idle deadline.
func (s *SessionService) touch(id string) (*managedSession, error) {
	s.evictIdle()

	ms, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown session %q", domain.ErrValidation, id)
	}
	ms.lastTouched = s.now()

	if ms.session.Kind() == game.KindArithmetic && ms.session.Phase() == game.PhaseActive {
		elapsed := int(s.now().Sub(ms.lastTicked).Seconds())
		for i := 0; i < elapsed && ms.session.Phase() == game.PhaseActive; i++ {
			if _, err := ms.session.Tick(); err != nil {
				break
			}
		}
		ms.lastTicked = ms.lastTicked.Add(time.Duration(elapsed) * time.Second)
		s.settle(id, ms)
	}
	return ms, nil
}

// settle finalizes a session that just hit its terminal condition: compute
// the summary once and record a beaten high score.
func (s *SessionService) settle(id string, ms *managedSession) {
	if ms.session.Phase() != game.PhaseTerminal {
		return
	}
	summary, err := ms.session.Finish()
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", id).Msg("failed to finalize session")
		return
	}
	ms.summary = &summary
	ms.newHigh = s.local.RecordHighScore(string(summary.Kind), string(summary.Level), summary.Score)

	s.logger.Info().
		Str("session_id", id).
		Str("game", string(summary.Kind)).
		Str("level", string(summary.Level)).
		Str("reason", summary.Reason.String()).
		Int("score", summary.Score).
		Int("accuracy", summary.Accuracy).
		Bool("new_high_score", ms.newHigh).
		Msg("session finished")
}

func (s *SessionService) evictIdle() {
	now := s.now()
	for id, ms := range s.sessions {
		if now.Sub(ms.lastTouched) > constants.SessionIdleTimeout {
			delete(s.sessions, id)
		}
	}
}

func (s *SessionService) view(id string, ms *managedSession) *SessionView {
	sess := ms.session
	v := &SessionView{
		ID:                id,
		Game:              sess.Kind(),
		Level:             sess.Level(),
		Phase:             sess.Phase().String(),
		Score:             sess.Score(),
		Streak:            sess.Streak(),
		Lives:             sess.Lives(),
		TimeRemaining:     sess.TimeRemaining(),
		QuestionsAnswered: sess.QuestionsAnswered(),
		CorrectAnswers:    sess.CorrectAnswers(),
		HighScore:         s.local.HighScore(string(sess.Kind()), string(sess.Level())),
		Summary:           ms.summary,
		NewHighScore:      ms.newHigh,
	}
	if problem, ok := sess.Problem(); ok {
		v.Problem = problem.Text
	}
	return v
}
