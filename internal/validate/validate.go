// Package validate holds the pure input checks shared by the submission
// pipeline and the board handlers. Server-side enforcement here is
// authoritative; any client-side mirror exists only for UX.
package validate

import (
	"fmt"
	"strings"

	"mtmath-games/internal/domain"
	"mtmath-games/internal/game"
)

const (
	// Game leaderboard identity bounds.
	NicknameMax    = 10
	AffiliationMax = 10

	// The message board runs its own, looser bounds.
	BoardNicknameMax = 15
	BoardContentMax  = 300
)

// Nickname checks a game-leaderboard nickname: trimmed length in
// [1, NicknameMax].
func Nickname(s string) error {
	return boundedField("nickname", s, NicknameMax)
}

// Affiliation checks a game-leaderboard affiliation: trimmed length in
// [1, AffiliationMax].
func Affiliation(s string) error {
	return boundedField("affiliation", s, AffiliationMax)
}

// BoardNickname checks a message-board nickname: trimmed length in
// [1, BoardNicknameMax].
func BoardNickname(s string) error {
	return boundedField("nickname", s, BoardNicknameMax)
}

// BoardContent checks a message-board post body: trimmed length in
// [1, BoardContentMax].
func BoardContent(s string) error {
	return boundedField("content", s, BoardContentMax)
}

func boundedField(name, s string, max int) error {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrValidation, name)
	}
	if length := len([]rune(trimmed)); length > max {
		return fmt.Errorf("%w: %s exceeds %d characters", domain.ErrValidation, name, max)
	}
	return nil
}

// MaxScoreFor derives the theoretical score ceiling for a session: every
// answered question correct at full value plus the maximum possible number
// of streak bonuses. The bound guards against obviously tampered state; a
// fully trusted client cannot be perfectly defended.
func MaxScoreFor(kind game.Kind, level game.Level, questionsAnswered int) int {
	if questionsAnswered <= 0 {
		return 0
	}
	perAnswer, bonus := game.ScoreParams(kind, level)
	return questionsAnswered*perAnswer + bonus*(questionsAnswered/game.StreakInterval)
}

// Score checks plausibility of a submitted score against the session's own
// counters.
func Score(score int, kind game.Kind, level game.Level, questionsAnswered int) error {
	if score < 0 {
		return fmt.Errorf("%w: score must be non-negative", domain.ErrValidation)
	}
	if max := MaxScoreFor(kind, level, questionsAnswered); score > max {
		return fmt.Errorf("%w: score %d exceeds maximum %d for %d answered questions", domain.ErrValidation, score, max, questionsAnswered)
	}
	return nil
}

// RateLimitKey derives the throttle identity from the network address and
// the submitted nickname.
func RateLimitKey(clientIP, nickname string) string {
	return clientIP + "_" + strings.TrimSpace(nickname)
}
