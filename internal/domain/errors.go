package domain

import "errors"

// Error kinds for the submission pipeline. Handlers map these to HTTP
// status categories; nothing here is fatal to the process.
var (
	// ErrValidation marks malformed input. Never retried, surfaced with a
	// specific message.
	ErrValidation = errors.New("validation failed")

	// ErrRateLimited marks a submission inside the per-key window. The
	// caller should wait and retry manually.
	ErrRateLimited = errors.New("rate limited")

	// ErrStoreUnavailable marks a store read/write failure. Reads fall back
	// to the last-known-good backup; writes surface the failure but keep
	// the session summary intact.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidState marks an operation attempted in the wrong session
	// state. A programming-contract violation, fails fast.
	ErrInvalidState = errors.New("invalid session state")
)
