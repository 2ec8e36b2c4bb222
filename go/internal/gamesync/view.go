package gamesync

import (
	"time"

	"github.com/lobascore/lobascore/go/internal/models"
	"github.com/lobascore/lobascore/go/internal/scorecard"
	"github.com/lobascore/lobascore/go/internal/session"
)

// View is one client's local mirror of a session: the tentative echo the UI
// renders between authoritative re-reads.
type View struct {
	Session *models.Session
	Players []models.Player
	Scores  []models.RoundScore
}

func (v View) clone() View {
	out := View{}
	if v.Session != nil {
		s := *v.Session
		out.Session = &s
	}
	out.Players = append([]models.Player(nil), v.Players...)
	out.Scores = append([]models.RoundScore(nil), v.Scores...)
	return out
}

// PlayerByToken resolves the device's own player row.
func (v View) PlayerByToken(token string) (models.Player, bool) {
	for _, p := range v.Players {
		if p.SessionToken == token {
			return p, true
		}
	}
	return models.Player{}, false
}

// CutBy returns the player whose pending cut is marked on the session.
func (v View) CutBy() (models.Player, bool) {
	if v.Session == nil || v.Session.CutBy == nil {
		return models.Player{}, false
	}
	for _, p := range v.Players {
		if p.ID == *v.Session.CutBy {
			return p, true
		}
	}
	return models.Player{}, false
}

// AllSubmitted reports whether the submission gate for the current round is
// open in this mirror. The host uses it to enable the advance action; the
// store re-checks before the advance commits.
func (v View) AllSubmitted() bool {
	if v.Session == nil {
		return false
	}
	return session.AllSubmitted(v.Players, v.Scores, v.Session.CurrentRound)
}

// SubmittedCount returns how many active players have submitted for the
// current round, and how many are active.
func (v View) SubmittedCount() (submitted, active int) {
	if v.Session == nil {
		return 0, 0
	}
	activeSet := make(map[string]bool)
	for _, p := range v.Players {
		if !p.IsEliminated {
			activeSet[p.ID.String()] = true
			active++
		}
	}
	for _, s := range v.Scores {
		if s.RoundNumber == v.Session.CurrentRound && activeSet[s.PlayerID.String()] {
			submitted++
		}
	}
	return submitted, active
}

// GameOver reports whether at most one player remains in play.
func (v View) GameOver() bool {
	if len(v.Players) == 0 {
		return false
	}
	return scorecard.CheckGameOver(v.Players)
}

// Ranking returns the mirrored players in display order.
func (v View) Ranking() []models.Player {
	return scorecard.Rank(v.Players)
}

// Summary builds the finished-game record from the mirror, dated at. It
// reports false while the game is still live.
func (v View) Summary(at time.Time) (models.GameSummary, bool) {
	if v.Session == nil || !v.GameOver() {
		return models.GameSummary{}, false
	}
	return scorecard.Summarize(v.Session.ID, at, v.Players, v.Scores), true
}
