package session

import (
	"github.com/google/uuid"

	"github.com/lobascore/lobascore/go/internal/models"
)

// CreateSessionRequest carries the data for a new session plus its host player.
type CreateSessionRequest struct {
	Code         string `json:"code"`
	HostName     string `json:"host_name"`
	SessionToken string `json:"session_token"`
}

// CreateSessionResult is the session and host player created together.
type CreateSessionResult struct {
	Session *models.Session `json:"session"`
	Host    *models.Player  `json:"host"`
}

// JoinPlayerRequest carries the data for a player joining a session.
type JoinPlayerRequest struct {
	SessionID    uuid.UUID `json:"session_id"`
	Name         string    `json:"name"`
	SessionToken string    `json:"session_token"`
}

// SubmitScoreRequest carries one round submission. When Cards is non-nil the
// value was picked in quick input mode and Value is recomputed from the
// card labels.
type SubmitScoreRequest struct {
	SessionID   uuid.UUID `json:"session_id"`
	PlayerID    uuid.UUID `json:"player_id"`
	RoundNumber int       `json:"round_number"`
	Value       int       `json:"value"`
	Cards       []string  `json:"cards,omitempty"`
}

// RankedEntry is one row of the ranked session view.
type RankedEntry struct {
	Player models.Player `json:"player"`
	Alert  string        `json:"alert"`
}
