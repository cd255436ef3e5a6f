package game

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"mtmath-games/internal/domain"
)

type Phase int

const (
	PhaseLevelSelect Phase = iota
	PhaseConfiguring
	PhaseActive
	PhaseTerminal
	PhaseSummary
)

func (p Phase) String() string {
	switch p {
	case PhaseLevelSelect:
		return "level_select"
	case PhaseConfiguring:
		return "configuring"
	case PhaseActive:
		return "active"
	case PhaseTerminal:
		return "terminal"
	case PhaseSummary:
		return "summary"
	}
	return "unknown"
}

type TerminalReason int

const (
	ReasonNone TerminalReason = iota
	ReasonTimeUp
	ReasonOutOfLives
)

func (r TerminalReason) String() string {
	switch r {
	case ReasonTimeUp:
		return "time_up"
	case ReasonOutOfLives:
		return "out_of_lives"
	}
	return "none"
}

func (r TerminalReason) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// Effect is a side effect the caller should render. The engine itself
// never touches any output surface.
type Effect int

const (
	// EffectCelebrate fires on every StreakInterval-th consecutive correct
	// answer.
	EffectCelebrate Effect = iota
	// EffectLifeLost fires when a wrong answer costs a life.
	EffectLifeLost
	// EffectTimeWarning fires on ticks at ten seconds or less remaining.
	EffectTimeWarning
	// EffectGameOver fires on the transition into the terminal phase.
	EffectGameOver
)

type Identity struct {
	Nickname    string
	Affiliation string
}

// Outcome describes one evaluated answer.
type Outcome struct {
	Correct   bool
	Expected  int
	Candidate int
	WasPrime  bool
	Factors   []int
	Points    int
	Bonus     int
	Streak    int
	LivesLeft int
}

// Summary is the terminal report of one play-through.
type Summary struct {
	Kind              Kind           `json:"game"`
	Level             Level          `json:"level"`
	Reason            TerminalReason `json:"reason"`
	Score             int            `json:"score"`
	QuestionsAnswered int            `json:"questionsAnswered"`
	CorrectAnswers    int            `json:"correctAnswers"`
	Accuracy          int            `json:"accuracy"`
	Duration          float64        `json:"duration"`
	StartedAt         time.Time      `json:"startedAt"`
	EndedAt           time.Time      `json:"endedAt"`
}

// Snapshot is the immutable view the submission pipeline consumes.
type Snapshot struct {
	Kind              Kind
	Level             Level
	Phase             Phase
	Reason            TerminalReason
	Score             int
	Streak            int
	Lives             int
	TimeRemaining     int
	QuestionsAnswered int
	CorrectAnswers    int
	StartedAt         time.Time
	EndedAt           time.Time
	Nickname          string
	Affiliation       string
}

// Session owns one play-through from level select to summary. All state
// lives here, mutated only through the event methods, so independent
// sessions never share anything.
type Session struct {
	kind   Kind
	level  Level
	phase  Phase
	reason TerminalReason

	score             int
	streak            int
	lives             int
	timeRemaining     int
	questionsAnswered int
	correctAnswers    int

	startedAt time.Time
	endedAt   time.Time

	identity   Identity
	problem    Problem
	hasProblem bool

	rng *rand.Rand
	now func() time.Time
}

type Option func(*Session)

// WithRand swaps the problem-draw source, for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) { s.rng = rng }
}

// WithClock swaps the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func NewSession(kind Kind, opts ...Option) *Session {
	s := &Session{
		kind:  kind,
		phase: PhaseLevelSelect,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Kind() Kind             { return s.kind }
func (s *Session) Level() Level           { return s.level }
func (s *Session) Phase() Phase           { return s.phase }
func (s *Session) Reason() TerminalReason { return s.reason }
func (s *Session) Score() int             { return s.score }
func (s *Session) Streak() int            { return s.streak }
func (s *Session) Lives() int             { return s.lives }
func (s *Session) TimeRemaining() int     { return s.timeRemaining }
func (s *Session) QuestionsAnswered() int { return s.questionsAnswered }
func (s *Session) CorrectAnswers() int    { return s.correctAnswers }
func (s *Session) StartedAt() time.Time   { return s.startedAt }
func (s *Session) Identity() Identity     { return s.identity }

// Problem returns the problem currently posed. ok is false outside the
// active phase.
func (s *Session) Problem() (Problem, bool) {
	return s.problem, s.hasProblem
}

// SelectLevel picks the difficulty tier. Tiers that feed the leaderboard
// move the session into the configuring phase for identity capture.
func (s *Session) SelectLevel(level Level) error {
	if s.phase != PhaseLevelSelect {
		return fmt.Errorf("%w: select level in %s", domain.ErrInvalidState, s.phase)
	}
	if !level.Valid() {
		return fmt.Errorf("%w: unknown level %q", domain.ErrValidation, level)
	}
	s.level = level
	if level.RequiresIdentity() {
		s.phase = PhaseConfiguring
	}
	return nil
}

// Configure captures nickname and affiliation before a leaderboard-eligible
// run. Both must be non-empty after trimming; on rejection no field changes.
func (s *Session) Configure(id Identity) error {
	if s.phase != PhaseConfiguring {
		return fmt.Errorf("%w: configure in %s", domain.ErrInvalidState, s.phase)
	}
	nickname := strings.TrimSpace(id.Nickname)
	affiliation := strings.TrimSpace(id.Affiliation)
	if nickname == "" || affiliation == "" {
		return fmt.Errorf("%w: nickname and affiliation are required to join the leaderboard", domain.ErrValidation)
	}
	s.identity = Identity{Nickname: nickname, Affiliation: affiliation}
	return nil
}

// Start transitions into the active phase and poses the first problem.
func (s *Session) Start() error {
	switch s.phase {
	case PhaseLevelSelect:
		if s.level == "" {
			return fmt.Errorf("%w: no level selected", domain.ErrValidation)
		}
	case PhaseConfiguring:
		if s.identity.Nickname == "" || s.identity.Affiliation == "" {
			return fmt.Errorf("%w: nickname and affiliation are required to join the leaderboard", domain.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: start in %s", domain.ErrInvalidState, s.phase)
	}
	s.begin()
	return nil
}

func (s *Session) begin() {
	s.phase = PhaseActive
	s.reason = ReasonNone
	s.score = 0
	s.streak = 0
	s.questionsAnswered = 0
	s.correctAnswers = 0
	s.startedAt = s.now()
	s.endedAt = time.Time{}

	switch s.kind {
	case KindArithmetic:
		s.timeRemaining = arithmeticLevels[s.level].TimeSeconds
		s.lives = 0
	case KindPrime:
		s.timeRemaining = 0
		s.lives = MaxLives
	}
	s.nextProblem()
}

func (s *Session) nextProblem() {
	switch s.kind {
	case KindArithmetic:
		s.problem = generateArithmetic(s.rng, s.level)
	case KindPrime:
		s.problem = generatePrime(s.rng, s.level)
	}
	s.hasProblem = true
}

// AnswerArithmetic evaluates numeric input against the posed problem.
// Non-numeric input is rejected without consuming a turn: the session is
// left exactly as it was and the caller re-prompts.
func (s *Session) AnswerArithmetic(input string) (Outcome, []Effect, error) {
	if s.kind != KindArithmetic {
		return Outcome{}, nil, fmt.Errorf("%w: numeric answer for %s game", domain.ErrInvalidState, s.kind)
	}
	if s.phase != PhaseActive {
		return Outcome{}, nil, fmt.Errorf("%w: answer in %s", domain.ErrInvalidState, s.phase)
	}

	value, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return Outcome{}, nil, fmt.Errorf("%w: answer must be a number", domain.ErrValidation)
	}

	correct := value == s.problem.Answer
	outcome := Outcome{
		Correct:  correct,
		Expected: s.problem.Answer,
	}

	cfg := arithmeticLevels[s.level]
	base := int(math.Round(arithmeticBaseScore * cfg.Multiplier))
	effects := s.applyAnswer(&outcome, correct, base, arithmeticStreakBonus)

	if s.phase == PhaseActive {
		s.nextProblem()
	}
	return outcome, effects, nil
}

// AnswerPrime evaluates a prime-or-not call. A wrong call costs a life and
// reports the factorization of composite candidates; the third lost life
// ends the session.
func (s *Session) AnswerPrime(saysPrime bool) (Outcome, []Effect, error) {
	if s.kind != KindPrime {
		return Outcome{}, nil, fmt.Errorf("%w: prime answer for %s game", domain.ErrInvalidState, s.kind)
	}
	if s.phase != PhaseActive {
		return Outcome{}, nil, fmt.Errorf("%w: answer in %s", domain.ErrInvalidState, s.phase)
	}

	actuallyPrime := IsPrime(s.problem.Candidate)
	correct := saysPrime == actuallyPrime
	outcome := Outcome{
		Correct:   correct,
		Candidate: s.problem.Candidate,
		WasPrime:  actuallyPrime,
	}
	if !actuallyPrime {
		outcome.Factors = Factorize(s.problem.Candidate)
	}

	effects := s.applyAnswer(&outcome, correct, primeBaseScore, primeStreakBonus)

	if s.phase == PhaseActive {
		s.nextProblem()
	}
	return outcome, effects, nil
}

func (s *Session) applyAnswer(outcome *Outcome, correct bool, base, bonus int) []Effect {
	var effects []Effect
	s.questionsAnswered++

	if correct {
		s.correctAnswers++
		s.streak++
		points := base
		if s.streak%StreakInterval == 0 {
			points += bonus
			outcome.Bonus = bonus
			effects = append(effects, EffectCelebrate)
		}
		s.score += points
		outcome.Points = points
	} else {
		s.streak = 0
		if s.kind == KindPrime {
			s.lives--
			effects = append(effects, EffectLifeLost)
			if s.lives <= 0 {
				s.terminate(ReasonOutOfLives)
				effects = append(effects, EffectGameOver)
			}
		}
	}

	outcome.Streak = s.streak
	outcome.LivesLeft = s.lives
	return effects
}

// Tick advances the countdown by one second. Reaching zero forces the
// terminal phase regardless of any in-flight answer.
func (s *Session) Tick() ([]Effect, error) {
	if s.kind != KindArithmetic {
		return nil, fmt.Errorf("%w: tick for %s game", domain.ErrInvalidState, s.kind)
	}
	if s.phase != PhaseActive {
		return nil, fmt.Errorf("%w: tick in %s", domain.ErrInvalidState, s.phase)
	}

	s.timeRemaining--
	if s.timeRemaining <= 0 {
		s.timeRemaining = 0
		s.terminate(ReasonTimeUp)
		return []Effect{EffectGameOver}, nil
	}
	if s.timeRemaining <= 10 {
		return []Effect{EffectTimeWarning}, nil
	}
	return nil, nil
}

func (s *Session) terminate(reason TerminalReason) {
	s.phase = PhaseTerminal
	s.reason = reason
	s.endedAt = s.now()
	s.hasProblem = false
}

// Finish moves from terminal to summary and computes the final report.
// Accuracy guards the nothing-answered case with zero, not a panic.
func (s *Session) Finish() (Summary, error) {
	if s.phase != PhaseTerminal {
		return Summary{}, fmt.Errorf("%w: finish in %s", domain.ErrInvalidState, s.phase)
	}
	s.phase = PhaseSummary

	accuracy := 0
	if s.questionsAnswered > 0 {
		accuracy = int(math.Round(100 * float64(s.correctAnswers) / float64(s.questionsAnswered)))
	}

	return Summary{
		Kind:              s.kind,
		Level:             s.level,
		Reason:            s.reason,
		Score:             s.score,
		QuestionsAnswered: s.questionsAnswered,
		CorrectAnswers:    s.correctAnswers,
		Accuracy:          accuracy,
		Duration:          s.endedAt.Sub(s.startedAt).Seconds(),
		StartedAt:         s.startedAt,
		EndedAt:           s.endedAt,
	}, nil
}

// Restart replays the same level (and identity) from a finished session.
func (s *Session) Restart() error {
	if s.phase != PhaseTerminal && s.phase != PhaseSummary {
		return fmt.Errorf("%w: restart in %s", domain.ErrInvalidState, s.phase)
	}
	s.begin()
	return nil
}

// BackToLevelSelect discards the run entirely, including the captured
// identity.
func (s *Session) BackToLevelSelect() {
	s.phase = PhaseLevelSelect
	s.reason = ReasonNone
	s.level = ""
	s.identity = Identity{}
	s.score = 0
	s.streak = 0
	s.lives = 0
	s.timeRemaining = 0
	s.questionsAnswered = 0
	s.correctAnswers = 0
	s.startedAt = time.Time{}
	s.endedAt = time.Time{}
	s.hasProblem = false
}

// Eligible reports whether this session may enter the leaderboard: a
// finished hard-tier run with a positive score.
func (s *Session) Eligible() bool {
	if s.phase != PhaseTerminal && s.phase != PhaseSummary {
		return false
	}
	return s.level == LevelHard && s.score > 0
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Kind:              s.kind,
		Level:             s.level,
		Phase:             s.phase,
		Reason:            s.reason,
		Score:             s.score,
		Streak:            s.streak,
		Lives:             s.lives,
		TimeRemaining:     s.timeRemaining,
		QuestionsAnswered: s.questionsAnswered,
		CorrectAnswers:    s.correctAnswers,
		StartedAt:         s.startedAt,
		EndedAt:           s.endedAt,
		Nickname:          s.identity.Nickname,
		Affiliation:       s.identity.Affiliation,
	}
}
