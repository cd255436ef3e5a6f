package game

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"mtmath-games/internal/domain"
)

func startedSession(t *testing.T, kind Kind, level Level) *Session {
	t.Helper()
	s := NewSession(kind, WithRand(rand.New(rand.NewSource(42))))
	if err := s.SelectLevel(level); err != nil {
		t.Fatalf("select level: %v", err)
	}
	if s.Phase() == PhaseConfiguring {
		if err := s.Configure(Identity{Nickname: "tester", Affiliation: "testing"}); err != nil {
			t.Fatalf("configure: %v", err)
		}
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return s
}

func answerCorrectly(t *testing.T, s *Session) Outcome {
	t.Helper()
	p, ok := s.Problem()
	if !ok {
		t.Fatal("no problem posed")
	}
	var outcome Outcome
	var err error
	switch s.Kind() {
	case KindArithmetic:
		outcome, _, err = s.AnswerArithmetic(fmt.Sprintf("%d", p.Answer))
	case KindPrime:
		outcome, _, err = s.AnswerPrime(IsPrime(p.Candidate))
	}
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !outcome.Correct {
		t.Fatal("expected correct outcome")
	}
	return outcome
}

func answerWrong(t *testing.T, s *Session) Outcome {
	t.Helper()
	p, ok := s.Problem()
	if !ok {
		t.Fatal("no problem posed")
	}
	var outcome Outcome
	var err error
	switch s.Kind() {
	case KindArithmetic:
		outcome, _, err = s.AnswerArithmetic(fmt.Sprintf("%d", p.Answer+1))
	case KindPrime:
		outcome, _, err = s.AnswerPrime(!IsPrime(p.Candidate))
	}
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if outcome.Correct {
		t.Fatal("expected incorrect outcome")
	}
	return outcome
}

func TestEasyFiveCorrectScoresHundred(t *testing.T) {
	s := startedSession(t, KindArithmetic, LevelEasy)
	for i := 0; i < 5; i++ {
		answerCorrectly(t, s)
	}
	// 5 * 10 base + 50 streak bonus
	if s.Score() != 100 {
		t.Fatalf("score = %d, want 100", s.Score())
	}
	if s.Streak() != 5 {
		t.Fatalf("streak = %d, want 5", s.Streak())
	}
}

func TestStreakBonusEmitsCelebrate(t *testing.T) {
	s := startedSession(t, KindArithmetic, LevelEasy)
	for i := 0; i < 4; i++ {
		out := answerCorrectly(t, s)
		if out.Bonus != 0 {
			t.Fatalf("unexpected bonus on answer %d", i+1)
		}
	}
	p, _ := s.Problem()
	out, effects, err := s.AnswerArithmetic(fmt.Sprintf("%d", p.Answer))
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if out.Bonus != 50 {
		t.Fatalf("bonus = %d, want 50", out.Bonus)
	}
	found := false
	for _, e := range effects {
		if e == EffectCelebrate {
			found = true
		}
	}
	if !found {
		t.Fatal("expected celebrate effect on fifth consecutive correct answer")
	}
}

func TestStreakResetsToZeroOnMiss(t *testing.T) {
	s := startedSession(t, KindArithmetic, LevelMedium)
	for i := 0; i < 7; i++ {
		answerCorrectly(t, s)
	}
	if s.Streak() != 7 {
		t.Fatalf("streak = %d, want 7", s.Streak())
	}
	answerWrong(t, s)
	if s.Streak() != 0 {
		t.Fatalf("streak = %d after miss, want 0", s.Streak())
	}
}

func TestHardMultiplierScoring(t *testing.T) {
	s := startedSession(t, KindArithmetic, LevelHard)
	answerCorrectly(t, s)
	if s.Score() != 20 {
		t.Fatalf("score = %d, want 20 for hard tier", s.Score())
	}
}

func TestNonNumericInputDoesNotConsumeTurn(t *testing.T) {
	s := startedSession(t, KindArithmetic, LevelEasy)
	before, _ := s.Problem()
	_, _, err := s.AnswerArithmetic("not a number")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	after, _ := s.Problem()
	if before != after {
		t.Fatal("problem changed after rejected input")
	}
	if s.QuestionsAnswered() != 0 || s.Streak() != 0 || s.Score() != 0 {
		t.Fatal("state mutated by rejected input")
	}
}

func TestPrimeLivesExhaustionTerminates(t *testing.T) {
	s := startedSession(t, KindPrime, LevelMedium)
	if s.Lives() != MaxLives {
		t.Fatalf("lives = %d, want %d", s.Lives(), MaxLives)
	}
	for i := 0; i < MaxLives-1; i++ {
		answerWrong(t, s)
		if s.Phase() != PhaseActive {
			t.Fatalf("terminated after %d misses", i+1)
		}
	}
	out := answerWrong(t, s)
	if out.LivesLeft != 0 {
		t.Fatalf("lives left = %d, want 0", out.LivesLeft)
	}
	if s.Phase() != PhaseTerminal || s.Reason() != ReasonOutOfLives {
		t.Fatalf("phase=%s reason=%s, want terminal/out_of_lives", s.Phase(), s.Reason())
	}
}

func TestPrimeWrongAnswerReportsFactors(t *testing.T) {
	s := startedSession(t, KindPrime, LevelHard)
	for s.Phase() == PhaseActive {
		p, _ := s.Problem()
		if IsPrime(p.Candidate) {
			answerCorrectly(t, s)
			continue
		}
		out := answerWrong(t, s)
		if len(out.Factors) < 2 {
			t.Fatalf("composite %d reported factors %v", p.Candidate, out.Factors)
		}
		product := 1
		for _, f := range out.Factors {
			product *= f
		}
		if product != p.Candidate {
			t.Fatalf("factors %v do not recompose %d", out.Factors, p.Candidate)
		}
		return
	}
	t.Fatal("never saw a composite candidate")
}

func TestTimerExpiryForcesTerminal(t *testing.T) {
	s := startedSession(t, KindArithmetic, LevelHard)
	if s.TimeRemaining() != 60 {
		t.Fatalf("time = %d, want 60 for hard tier", s.TimeRemaining())
	}
	sawWarning := false
	for s.Phase() == PhaseActive {
		effects, err := s.Tick()
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
		for _, e := range effects {
			if e == EffectTimeWarning {
				sawWarning = true
			}
		}
	}
	if s.Reason() != ReasonTimeUp {
		t.Fatalf("reason = %s, want time_up", s.Reason())
	}
	if s.TimeRemaining() != 0 {
		t.Fatalf("time remaining = %d at terminal", s.TimeRemaining())
	}
	if !sawWarning {
		t.Fatal("expected a time warning in the final ten seconds")
	}
}

func TestAnswerAfterTerminalFailsFast(t *testing.T) {
	s := startedSession(t, KindPrime, LevelEasy)
	for i := 0; i < MaxLives; i++ {
		answerWrong(t, s)
	}
	_, _, err := s.AnswerPrime(true)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("err = %v, want invalid state", err)
	}
}

func TestSummaryAccuracy(t *testing.T) {
	s := startedSession(t, KindArithmetic, LevelEasy)
	answerCorrectly(t, s)
	answerCorrectly(t, s)
	answerWrong(t, s)
	for s.Phase() == PhaseActive {
		if _, err := s.Tick(); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	summary, err := s.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if summary.QuestionsAnswered != 3 || summary.CorrectAnswers != 2 {
		t.Fatalf("answered=%d correct=%d, want 3/2", summary.QuestionsAnswered, summary.CorrectAnswers)
	}
	if summary.Accuracy != 67 {
		t.Fatalf("accuracy = %d, want 67", summary.Accuracy)
	}
}

func TestSummaryAccuracyZeroQuestions(t *testing.T) {
	s := startedSession(t, KindArithmetic, LevelEasy)
	for s.Phase() == PhaseActive {
		if _, err := s.Tick(); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	summary, err := s.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if summary.Accuracy != 0 {
		t.Fatalf("accuracy = %d with nothing answered, want 0", summary.Accuracy)
	}
}

func TestConfigureRejectsBlankIdentityAtomically(t *testing.T) {
	s := NewSession(KindArithmetic)
	if err := s.SelectLevel(LevelHard); err != nil {
		t.Fatalf("select level: %v", err)
	}
	if s.Phase() != PhaseConfiguring {
		t.Fatalf("phase = %s, want configuring for hard tier", s.Phase())
	}
	err := s.Configure(Identity{Nickname: "   ", Affiliation: "school"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if s.Identity() != (Identity{}) {
		t.Fatal("identity partially updated on rejected configure")
	}
	if err := s.Start(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("start without identity: err = %v, want validation error", err)
	}
}

func TestEasyLevelSkipsConfiguring(t *testing.T) {
	s := NewSession(KindPrime)
	if err := s.SelectLevel(LevelEasy); err != nil {
		t.Fatalf("select level: %v", err)
	}
	if s.Phase() != PhaseLevelSelect {
		t.Fatalf("phase = %s, easy tier should not configure", s.Phase())
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Phase() != PhaseActive {
		t.Fatalf("phase = %s, want active", s.Phase())
	}
}

func TestRestartResetsRun(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession(KindPrime, WithClock(func() time.Time { return now }))
	if err := s.SelectLevel(LevelEasy); err != nil {
		t.Fatalf("select level: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	answerCorrectly(t, s)
	for i := 0; i < MaxLives; i++ {
		answerWrong(t, s)
	}
	if s.Phase() != PhaseTerminal {
		t.Fatalf("phase = %s, want terminal", s.Phase())
	}
	if err := s.Restart(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if s.Phase() != PhaseActive || s.Score() != 0 || s.Lives() != MaxLives || s.QuestionsAnswered() != 0 {
		t.Fatal("restart did not reset the run")
	}
}

func TestBackToLevelSelectClearsRun(t *testing.T) {
	s := startedSession(t, KindArithmetic, LevelHard)
	answerCorrectly(t, s)

	s.BackToLevelSelect()

	if s.Phase() != PhaseLevelSelect {
		t.Fatalf("phase = %s, want level_select", s.Phase())
	}
	if s.Identity() != (Identity{}) {
		t.Fatal("identity survived the return to level select")
	}
	if s.Level() != "" || s.Score() != 0 || s.QuestionsAnswered() != 0 || s.TimeRemaining() != 0 {
		t.Fatal("run state survived the return to level select")
	}
	if _, ok := s.Problem(); ok {
		t.Fatal("problem still posed after leaving the run")
	}

	// the session is reusable: a fresh tier selection starts cleanly
	if err := s.SelectLevel(LevelEasy); err != nil {
		t.Fatalf("select level after reset: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start after reset: %v", err)
	}
	if s.Phase() != PhaseActive {
		t.Fatalf("phase = %s, want active", s.Phase())
	}
}

func TestEligibleOnlyForFinishedHardRuns(t *testing.T) {
	s := startedSession(t, KindArithmetic, LevelHard)
	answerCorrectly(t, s)
	if s.Eligible() {
		t.Fatal("active session reported eligible")
	}
	for s.Phase() == PhaseActive {
		if _, err := s.Tick(); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	if !s.Eligible() {
		t.Fatal("finished hard run with score not eligible")
	}

	easy := startedSession(t, KindArithmetic, LevelEasy)
	answerCorrectly(t, easy)
	for easy.Phase() == PhaseActive {
		if _, err := easy.Tick(); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	if easy.Eligible() {
		t.Fatal("easy run reported eligible")
	}
}
