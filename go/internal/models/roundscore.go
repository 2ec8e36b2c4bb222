package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundScore is one player's immutable result for one round. Cards holds the
// card labels the value was computed from when the score came from quick
// input; it is nil for manually typed scores. A second row for the same
// (session, player, round) key is a protocol violation rejected by the store.
type RoundScore struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	PlayerID    uuid.UUID `json:"player_id"`
	RoundNumber int       `json:"round_number"`
	Value       int       `json:"value"`
	Cards       []string  `json:"cards,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsCut reports whether this submission was a cut (zero points).
func (r RoundScore) IsCut() bool {
	return r.Value == 0
}
