package game

import "math"

// Kind selects the game variant sharing the session engine.
type Kind string

const (
	// KindArithmetic is the timed calculation challenge.
	KindArithmetic Kind = "calculation"
	// KindPrime is the lives-based prime-or-not game.
	KindPrime Kind = "prime"
)

func (k Kind) Valid() bool {
	return k == KindArithmetic || k == KindPrime
}

// Level is the difficulty tier. It gates numeric ranges, operators and
// leaderboard eligibility, and is immutable for the session's duration.
type Level string

const (
	LevelEasy   Level = "easy"
	LevelMedium Level = "medium"
	LevelHard   Level = "hard"
)

func (l Level) Valid() bool {
	return l == LevelEasy || l == LevelMedium || l == LevelHard
}

// RequiresIdentity reports whether starting at this level goes through the
// Configuring phase. Only the hardest tier feeds the leaderboard, so only
// it captures nickname and affiliation up front.
func (l Level) RequiresIdentity() bool {
	return l == LevelHard
}

type Operator string

const (
	OpAdd Operator = "+"
	OpSub Operator = "-"
	OpMul Operator = "×"
	OpDiv Operator = "÷"
)

type ArithmeticConfig struct {
	TimeSeconds int
	OperandMin  int
	OperandMax  int
	// MulCap keeps products sane: multiplication operands draw from
	// [1, MulCap] instead of the full range.
	MulCap     int
	Operators  []Operator
	Multiplier float64
}

var arithmeticLevels = map[Level]ArithmeticConfig{
	LevelEasy: {
		TimeSeconds: 90,
		OperandMin:  1,
		OperandMax:  9,
		MulCap:      9,
		Operators:   []Operator{OpAdd, OpSub, OpMul},
		Multiplier:  1,
	},
	LevelMedium: {
		TimeSeconds: 75,
		OperandMin:  10,
		OperandMax:  99,
		MulCap:      12,
		Operators:   []Operator{OpAdd, OpSub, OpMul, OpDiv},
		Multiplier:  1.5,
	},
	LevelHard: {
		TimeSeconds: 60,
		OperandMin:  10,
		OperandMax:  999,
		MulCap:      25,
		Operators:   []Operator{OpAdd, OpSub, OpMul, OpDiv},
		Multiplier:  2,
	},
}

// ArithmeticLevel returns the tier configuration for the calculation game.
func ArithmeticLevel(l Level) ArithmeticConfig {
	return arithmeticLevels[l]
}

// primeMaxCandidate bounds the odd candidate drawn per tier.
var primeMaxCandidate = map[Level]int{
	LevelEasy:   99,
	LevelMedium: 299,
	LevelHard:   999,
}

func PrimeMaxCandidate(l Level) int {
	return primeMaxCandidate[l]
}

const (
	arithmeticBaseScore   = 10
	arithmeticStreakBonus = 50

	primeBaseScore   = 10
	primeStreakBonus = 20

	// StreakInterval is how many consecutive correct answers earn a bonus.
	StreakInterval = 5

	// MaxLives for the lives-based variant.
	MaxLives = 3

	// DivisorMin..QuotientMax bound division construction: divisor and
	// quotient are drawn first, the dividend is derived, so the answer is
	// always an exact integer.
	DivisorMin  = 2
	DivisorMax  = 13
	QuotientMin = 1
	QuotientMax = 20
)

// ScoreParams returns the per-correct-answer value and the streak bonus
// for a variant and tier.
func ScoreParams(kind Kind, level Level) (perAnswer, bonus int) {
	switch kind {
	case KindArithmetic:
		cfg := arithmeticLevels[level]
		return int(math.Round(arithmeticBaseScore * cfg.Multiplier)), arithmeticStreakBonus
	case KindPrime:
		return primeBaseScore, primeStreakBonus
	}
	return 0, 0
}
