package domain

import (
	"time"
)

// LeaderboardEntry is one completed eligible session's score. Entries are
// append-only: no update or delete path exists anywhere in the system.
type LeaderboardEntry struct {
	ID          string
	Game        string
	Score       int
	Nickname    string
	Affiliation string
	ClientIP    string
	Session     SessionData
	CreatedAt   time.Time
}

// SessionData is the informational metadata bag attached to an entry.
// It is stored as-is and never validated beyond shape.
type SessionData struct {
	Duration          float64 `json:"duration"`
	QuestionsAnswered int     `json:"questionsAnswered"`
	CorrectAnswers    int     `json:"correctAnswers"`
	Accuracy          int     `json:"accuracy"`
	Level             string  `json:"level"`
	StartTime         string  `json:"startTime,omitempty"`
	EndTime           string  `json:"endTime,omitempty"`
	GameVersion       string  `json:"gameVersion,omitempty"`
}

// RankingList is the read-side view of a leaderboard.
type RankingList struct {
	Rankings          []LeaderboardEntry
	TotalParticipants int
	LastUpdated       time.Time
	FromBackup        bool
}

type Article struct {
	Slug            string
	Title           string
	Summary         string
	Content         string
	Category        string
	Tags            []string
	Status          string
	DifficultyLevel int
	NicheScore      int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type BoardPost struct {
	ID        string
	Nickname  string
	Content   string
	CreatedAt time.Time
}
