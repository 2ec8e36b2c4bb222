// Package scorecard holds the fixed scoring rules of La Loba: card point
// values, alert thresholds and the ranking order. These are game constants,
// not configuration.
package scorecard

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lobascore/lobascore/go/internal/models"
)

// Elimination and alert thresholds.
const (
	EliminationThreshold = 100
	CriticalThreshold    = 90
	WarningThreshold     = 80
)

// cardValues maps a card label to its point value. Numeric cards count face
// value, figures count 10, the Ace 11 and the Joker 15.
var cardValues = map[string]int{
	"A":     11,
	"Joker": 15,
	"J":     10,
	"Q":     10,
	"K":     10,
	"2":     2,
	"3":     3,
	"4":     4,
	"5":     5,
	"6":     6,
	"7":     7,
	"8":     8,
	"9":     9,
	"10":    10,
}

// Cards lists every selectable card label in display order.
var Cards = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "Joker"}

// CardValue returns the point value of a card label, 0 for unknown labels.
func CardValue(card string) int {
	return cardValues[card]
}

// ComputeScore sums the point values of the selected cards. An empty
// selection (a cut) scores 0. Repeated labels count every occurrence.
func ComputeScore(cards []string) int {
	total := 0
	for _, card := range cards {
		total += cardValues[card]
	}
	return total
}

// AlertLevel classifies how close a player is to elimination.
type AlertLevel string

const (
	AlertSafe       AlertLevel = "safe"
	AlertWarning    AlertLevel = "warning"
	AlertCritical   AlertLevel = "critical"
	AlertGameOver   AlertLevel = "game-over"
	AlertEliminated AlertLevel = "eliminated"
)

// ClassifyAlert returns the alert level for a total score. A player already
// flagged as eliminated stays at AlertEliminated no matter the score.
func ClassifyAlert(totalScore int, isEliminated bool) AlertLevel {
	switch {
	case isEliminated:
		return AlertEliminated
	case totalScore >= EliminationThreshold:
		return AlertGameOver
	case totalScore >= CriticalThreshold:
		return AlertCritical
	case totalScore >= WarningThreshold:
		return AlertWarning
	default:
		return AlertSafe
	}
}

// AlertMessage returns the banner text shown for an alert level.
func AlertMessage(level AlertLevel) string {
	switch level {
	case AlertCritical:
		return "¡ÚLTIMO AVISO! Estás al borde de ser eliminado"
	case AlertWarning:
		return "¡Cuidado! Te estás acercando a 100 puntos"
	case AlertGameOver:
		return "¡Fuiste eliminado! Llegaste a 100 puntos"
	case AlertEliminated:
		return "Eliminado - Esperando a que termine la partida"
	default:
		return ""
	}
}

// Rank orders players for display: active players before eliminated ones,
// each partition ascending by total score (lower is better). Ties break by
// join time, then id, so the order is identical on every client regardless of
// event arrival order.
func Rank(players []models.Player) []models.Player {
	ranked := make([]models.Player, len(players))
	copy(ranked, players)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.IsEliminated != b.IsEliminated {
			return !a.IsEliminated
		}
		if a.TotalScore != b.TotalScore {
			return a.TotalScore < b.TotalScore
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return ranked
}

// CheckGameOver reports whether the session has reached its terminal
// condition: at most one player still in play.
func CheckGameOver(players []models.Player) bool {
	active := 0
	for _, p := range players {
		if !p.IsEliminated {
			active++
		}
	}
	return active <= 1
}

// Summarize builds the finished-game record. The winner is the best-placed
// surviving player; the loser is the player whose elimination ended the game,
// resolved as the eliminated player with the latest scoring round (higher
// total breaks a tie).
func Summarize(sessionID uuid.UUID, at time.Time, players []models.Player, scores []models.RoundScore) models.GameSummary {
	lastRound := make(map[uuid.UUID]int, len(players))
	for _, s := range scores {
		if s.RoundNumber > lastRound[s.PlayerID] {
			lastRound[s.PlayerID] = s.RoundNumber
		}
	}

	ranked := Rank(players)

	var winner, loser *models.Player
	for i := range ranked {
		p := &ranked[i]
		if !p.IsEliminated {
			if winner == nil {
				winner = p
			}
			continue
		}
		if loser == nil {
			loser = p
			continue
		}
		lr, cur := lastRound[p.ID], lastRound[loser.ID]
		if lr > cur || (lr == cur && p.TotalScore > loser.TotalScore) {
			loser = p
		}
	}
	// Everyone eliminated: best placed still wins the summary line.
	if winner == nil && len(ranked) > 0 {
		winner = &ranked[0]
	}

	summary := models.GameSummary{
		SessionID: sessionID,
		Date:      at,
		Players:   make([]models.SummaryPlayer, 0, len(ranked)),
	}
	for i := range ranked {
		p := &ranked[i]
		line := models.SummaryPlayer{
			Name:     p.Name,
			Score:    p.TotalScore,
			IsWinner: p == winner,
			IsLoser:  p == loser,
		}
		summary.Players = append(summary.Players, line)
	}
	if winner != nil {
		summary.WinnerName = winner.Name
	}
	if loser != nil {
		summary.LoserName = loser.Name
	}
	return summary
}
