package game

import (
	"fmt"
	"math/rand"
)

// Problem is a transient value: regenerated after every answer, never
// persisted. For the prime variant only Candidate is set; Answer holds the
// expected numeric result for arithmetic problems.
type Problem struct {
	Text      string
	Operator  Operator
	Left      int
	Right     int
	Answer    int
	Candidate int
}

func generateArithmetic(rng *rand.Rand, level Level) Problem {
	cfg := arithmeticLevels[level]
	op := cfg.Operators[rng.Intn(len(cfg.Operators))]

	span := cfg.OperandMax - cfg.OperandMin + 1
	var left, right, answer int

	switch op {
	case OpAdd:
		left = cfg.OperandMin + rng.Intn(span)
		right = cfg.OperandMin + rng.Intn(span)
		answer = left + right
	case OpSub:
		// right stays <= left so the result is never negative
		left = cfg.OperandMin + rng.Intn(span)
		right = 1 + rng.Intn(left)
		answer = left - right
	case OpMul:
		left = 1 + rng.Intn(cfg.MulCap)
		right = 1 + rng.Intn(cfg.MulCap)
		answer = left * right
	case OpDiv:
		// divisor and quotient first, dividend derived, so the division is
		// always exact
		right = DivisorMin + rng.Intn(DivisorMax-DivisorMin+1)
		answer = QuotientMin + rng.Intn(QuotientMax-QuotientMin+1)
		left = right * answer
	}

	return Problem{
		Text:     fmt.Sprintf("%d %s %d", left, op, right),
		Operator: op,
		Left:     left,
		Right:    right,
		Answer:   answer,
	}
}

func generatePrime(rng *rand.Rand, level Level) Problem {
	// odd candidates only: evens above 2 are giveaways
	maxOddIndex := (primeMaxCandidate[level] - 1) / 2
	candidate := (1+rng.Intn(maxOddIndex))*2 + 1

	return Problem{
		Text:      fmt.Sprintf("%d", candidate),
		Candidate: candidate,
	}
}
