package models

import (
	"time"

	"github.com/google/uuid"
)

// SummaryPlayer is one player's final line in a finished-game summary.
type SummaryPlayer struct {
	Name     string `json:"name"`
	Score    int    `json:"score"`
	IsWinner bool   `json:"is_winner"`
	IsLoser  bool   `json:"is_loser"`
}

// GameSummary is the record archived locally once per session when game over
// is first observed. Winner is the best-placed surviving player, Loser the
// player whose elimination ended the game.
type GameSummary struct {
	SessionID  uuid.UUID       `json:"session_id"`
	Date       time.Time       `json:"date"`
	Players    []SummaryPlayer `json:"players"`
	WinnerName string          `json:"winner_name"`
	LoserName  string          `json:"loser_name,omitempty"`
}
