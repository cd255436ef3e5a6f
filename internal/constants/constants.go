package constants

import "time"

const (
	// SubmitWindow is the minimum gap between accepted leaderboard
	// submissions for the same rate-limit key.
	SubmitWindow = 60 * time.Second

	// RateLimitEvictAfter bounds limiter memory: entries whose last accepted
	// submission is older than this are purged opportunistically.
	RateLimitEvictAfter = 5 * time.Minute
)

const (
	LeaderboardLimit   = 10
	BackupFetchLimit   = 20
	ArticleListLimit   = 20
	BoardListLimit     = 50
	SessionIdleTimeout = 10 * time.Minute
)

const (
	ContentAPITimeout = 10 * time.Second
	DatabaseTimeout   = 5 * time.Second
	RequestTimeout    = 30 * time.Second
)

// SQLite in WAL mode serves many readers but a single writer; a small pool
// keeps writers queueing in-process instead of piling up on busy_timeout.
const (
	DBMaxOpenConns    = 8
	DBMaxIdleConns    = 4
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)
