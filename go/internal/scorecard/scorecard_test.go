package scorecard_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/lobascore/lobascore/go/internal/models"
	"github.com/lobascore/lobascore/go/internal/scorecard"
)

func TestCardValue(t *testing.T) {
	tests := []struct {
		card string
		want int
	}{
		{"A", 11},
		{"Joker", 15},
		{"J", 10},
		{"Q", 10},
		{"K", 10},
		{"2", 2},
		{"7", 7},
		{"10", 10},
		{"nope", 0},
	}
	for _, tt := range tests {
		if got := scorecard.CardValue(tt.card); got != tt.want {
			t.Errorf("CardValue(%q) = %d, want %d", tt.card, got, tt.want)
		}
	}
}

func TestComputeScore(t *testing.T) {
	tests := []struct {
		name  string
		cards []string
		want  int
	}{
		{"empty is a cut", nil, 0},
		{"single card", []string{"7"}, 7},
		{"mixed hand", []string{"A", "K", "3"}, 24},
		{"repeated cards", []string{"Joker", "Joker"}, 30},
		{"unknown labels ignored", []string{"A", "??"}, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scorecard.ComputeScore(tt.cards); got != tt.want {
				t.Errorf("ComputeScore(%v) = %d, want %d", tt.cards, got, tt.want)
			}
		})
	}
}

func TestClassifyAlert(t *testing.T) {
	tests := []struct {
		score      int
		eliminated bool
		want       scorecard.AlertLevel
	}{
		{0, false, scorecard.AlertSafe},
		{79, false, scorecard.AlertSafe},
		{80, false, scorecard.AlertWarning},
		{85, false, scorecard.AlertWarning},
		{90, false, scorecard.AlertCritical},
		{99, false, scorecard.AlertCritical},
		{100, false, scorecard.AlertGameOver},
		{130, false, scorecard.AlertGameOver},
		// Once flagged, eliminated wins over every score bracket.
		{105, true, scorecard.AlertEliminated},
		{0, true, scorecard.AlertEliminated},
	}
	for _, tt := range tests {
		if got := scorecard.ClassifyAlert(tt.score, tt.eliminated); got != tt.want {
			t.Errorf("ClassifyAlert(%d, %v) = %s, want %s", tt.score, tt.eliminated, got, tt.want)
		}
	}
}

func TestAlertMessage(t *testing.T) {
	if msg := scorecard.AlertMessage(scorecard.AlertSafe); msg != "" {
		t.Errorf("safe level should have no message, got %q", msg)
	}
	for _, level := range []scorecard.AlertLevel{
		scorecard.AlertWarning,
		scorecard.AlertCritical,
		scorecard.AlertGameOver,
		scorecard.AlertEliminated,
	} {
		if scorecard.AlertMessage(level) == "" {
			t.Errorf("level %s should have a message", level)
		}
	}
}

func rankPlayer(name string, score int, eliminated bool, joined time.Time) models.Player {
	return models.Player{
		Name:         name,
		TotalScore:   score,
		IsEliminated: eliminated,
		JoinedAt:     joined,
	}
}

func TestRank(t *testing.T) {
	base := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	players := []models.Player{
		rankPlayer("ana", 102, true, base),
		rankPlayer("bruno", 45, false, base.Add(time.Minute)),
		rankPlayer("carla", 45, false, base.Add(2*time.Minute)),
		rankPlayer("diego", 12, false, base.Add(3*time.Minute)),
		rankPlayer("eva", 110, true, base.Add(4*time.Minute)),
	}

	ranked := scorecard.Rank(players)

	wantOrder := []string{"diego", "bruno", "carla", "ana", "eva"}
	for i, want := range wantOrder {
		if ranked[i].Name != want {
			t.Fatalf("rank[%d] = %s, want %s", i, ranked[i].Name, want)
		}
	}

	// Eliminated players sort after actives regardless of score.
	if !ranked[3].IsEliminated || !ranked[4].IsEliminated {
		t.Error("eliminated players must occupy the tail of the ranking")
	}

	// Input slice is left untouched.
	if players[0].Name != "ana" {
		t.Error("Rank must not mutate its input")
	}
}

func TestCheckGameOver(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		players []models.Player
		want    bool
	}{
		{
			"two active players",
			[]models.Player{
				rankPlayer("a", 40, false, now),
				rankPlayer("b", 99, false, now),
			},
			false,
		},
		{
			"one survivor",
			[]models.Player{
				rankPlayer("a", 40, false, now),
				rankPlayer("b", 104, true, now),
				rankPlayer("c", 121, true, now),
			},
			true,
		},
		{
			"everyone eliminated",
			[]models.Player{
				rankPlayer("a", 100, true, now),
				rankPlayer("b", 104, true, now),
			},
			true,
		},
		{"no players", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scorecard.CheckGameOver(tt.players); got != tt.want {
				t.Errorf("CheckGameOver = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2025, 3, 1, 22, 0, 0, 0, time.UTC)
	sessionID := uuid.New()

	ana := models.Player{ID: uuid.New(), Name: "Ana", TotalScore: 45, JoinedAt: now}
	bruno := models.Player{ID: uuid.New(), Name: "Bruno", TotalScore: 104, IsEliminated: true, JoinedAt: now}
	carla := models.Player{ID: uuid.New(), Name: "Carla", TotalScore: 112, IsEliminated: true, JoinedAt: now}

	// Carla busted in round 2, Bruno's elimination in round 4 ended the game.
	scores := []models.RoundScore{
		{PlayerID: carla.ID, RoundNumber: 2, Value: 60},
		{PlayerID: bruno.ID, RoundNumber: 4, Value: 30},
		{PlayerID: ana.ID, RoundNumber: 4, Value: 10},
	}

	summary := scorecard.Summarize(sessionID, now, []models.Player{ana, bruno, carla}, scores)

	if summary.SessionID != sessionID || !summary.Date.Equal(now) {
		t.Errorf("summary header = %v %v", summary.SessionID, summary.Date)
	}
	if summary.WinnerName != "Ana" {
		t.Errorf("WinnerName = %q, want Ana", summary.WinnerName)
	}
	if summary.LoserName != "Bruno" {
		t.Errorf("LoserName = %q, want Bruno", summary.LoserName)
	}

	wantLines := []models.SummaryPlayer{
		{Name: "Ana", Score: 45, IsWinner: true},
		{Name: "Bruno", Score: 104, IsLoser: true},
		{Name: "Carla", Score: 112},
	}
	if diff := cmp.Diff(wantLines, summary.Players); diff != "" {
		t.Errorf("summary lines (-want +got):\n%s", diff)
	}
}

func TestSummarizeEveryoneEliminated(t *testing.T) {
	now := time.Date(2025, 3, 1, 22, 0, 0, 0, time.UTC)
	a := models.Player{ID: uuid.New(), Name: "Ana", TotalScore: 100, IsEliminated: true, JoinedAt: now}
	b := models.Player{ID: uuid.New(), Name: "Bruno", TotalScore: 130, IsEliminated: true, JoinedAt: now}

	scores := []models.RoundScore{
		{PlayerID: a.ID, RoundNumber: 3, Value: 20},
		{PlayerID: b.ID, RoundNumber: 3, Value: 40},
	}

	summary := scorecard.Summarize(uuid.New(), now, []models.Player{a, b}, scores)

	// Best placed still heads the summary; the higher bust total loses.
	if summary.WinnerName != "Ana" {
		t.Errorf("WinnerName = %q, want Ana", summary.WinnerName)
	}
	if summary.LoserName != "Bruno" {
		t.Errorf("LoserName = %q, want Bruno", summary.LoserName)
	}
}
