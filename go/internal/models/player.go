package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxPlayersPerSession is the hard cap on players in one session.
const MaxPlayersPerSession = 8

// MaxPlayerNameLength bounds the display name a player can join with.
const MaxPlayerNameLength = 30

// Player is one participant in a session. SessionToken is the opaque device
// identity the player joined with; it is unique per session so a rejoin from
// the same device resolves to the same player row. TotalScore only grows and
// IsEliminated never reverts once set.
type Player struct {
	ID           uuid.UUID `json:"id"`
	SessionID    uuid.UUID `json:"session_id"`
	Name         string    `json:"name"`
	SessionToken string    `json:"session_token"`
	IsHost       bool      `json:"is_host"`
	TotalScore   int       `json:"total_score"`
	IsEliminated bool      `json:"is_eliminated"`
	JoinedAt     time.Time `json:"joined_at"`
}
