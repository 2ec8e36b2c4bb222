package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus defines the lifecycle state of a game session.
type SessionStatus string

const (
	SessionStatusWaiting  SessionStatus = "waiting"
	SessionStatusPlaying  SessionStatus = "playing"
	SessionStatusFinished SessionStatus = "finished"
)

// Forward reports whether moving from s to next is a legal progression.
// Status never regresses: waiting -> playing -> finished.
func (s SessionStatus) Forward(next SessionStatus) bool {
	rank := map[SessionStatus]int{
		SessionStatusWaiting:  0,
		SessionStatusPlaying:  1,
		SessionStatusFinished: 2,
	}
	return rank[next] > rank[s]
}

// Session represents one played instance of La Loba, identified by a short
// shareable code. CurrentRound is 0 while the session sits in the lobby and
// becomes 1 when the host starts the game. CutBy is set while a player's
// zero-point "cut" is pending and cleared on round advance.
type Session struct {
	ID           uuid.UUID     `json:"id"`
	Code         string        `json:"code"`
	HostPlayerID uuid.UUID     `json:"host_player_id"`
	Status       SessionStatus `json:"status"`
	CurrentRound int           `json:"current_round"`
	CutBy        *uuid.UUID    `json:"cut_by,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}
