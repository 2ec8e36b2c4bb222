package session

import "errors"

// Validation rejections surfaced verbatim to the UI. None of these crash the
// system; every mutating operation is safe to retry on the unique keys.
var (
	// ErrNotFound is returned when no joinable session has the given code.
	ErrNotFound = errors.New("session not found")
	// ErrAlreadyStarted is returned when joining or starting a session that
	// has left the lobby.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrSessionFull is returned when a session is at the player cap.
	ErrSessionFull = errors.New("session is full")
	// ErrForbidden is returned when a non-host attempts a host-only action.
	ErrForbidden = errors.New("host-only action")
	// ErrNotEnoughPlayers is returned when starting with fewer than two players.
	ErrNotEnoughPlayers = errors.New("not enough players")
	// ErrEliminated is returned when an eliminated player submits a score.
	ErrEliminated = errors.New("player is eliminated")
	// ErrDuplicateSubmission is returned on a second score for the same round.
	ErrDuplicateSubmission = errors.New("score already submitted for round")
	// ErrRoundMismatch is returned when a submission targets a round other
	// than the session's current one.
	ErrRoundMismatch = errors.New("round number does not match current round")
	// ErrRoundIncomplete is returned when advancing before every active
	// player has submitted.
	ErrRoundIncomplete = errors.New("round incomplete")
	// ErrGameNotOver is returned when finalizing a session that still has
	// more than one player in play.
	ErrGameNotOver = errors.New("game not over")
	// ErrInvalidName is returned for empty or over-long player names.
	ErrInvalidName = errors.New("invalid player name")
	// ErrInvalidScore is returned for negative score values.
	ErrInvalidScore = errors.New("invalid score value")

	// ErrStoreUnavailable wraps store timeouts and connection failures. It is
	// always retryable; the operation must never be assumed to have partially
	// succeeded.
	ErrStoreUnavailable = errors.New("store unavailable")

	// errCodeTaken signals a join-code collision among active sessions; the
	// app retries generation.
	errCodeTaken = errors.New("session code taken")
)
