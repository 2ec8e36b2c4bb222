package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lobascore/lobascore/go/internal/gamecode"
	"github.com/lobascore/lobascore/go/internal/models"
	"github.com/lobascore/lobascore/go/internal/scorecard"
)

// Store defines what the app layer needs from the repository.
type Store interface {
	CreateSessionWithHost(ctx context.Context, req CreateSessionRequest) (*CreateSessionResult, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetSessionByCode(ctx context.Context, code string) (*models.Session, error)
	StartSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	AdvanceRound(ctx context.Context, id uuid.UUID, fromRound int) (*models.Session, error)
	FinishSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	CreatePlayer(ctx context.Context, req JoinPlayerRequest) (*models.Player, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	GetPlayerByToken(ctx context.Context, sessionID uuid.UUID, token string) (*models.Player, error)
	ListPlayers(ctx context.Context, sessionID uuid.UUID) ([]models.Player, error)
	SubmitRoundScore(ctx context.Context, req SubmitScoreRequest) (*models.RoundScore, *models.Player, error)
	ListRoundScores(ctx context.Context, sessionID uuid.UUID) ([]models.RoundScore, error)
}

// TokenSource supplies the device's opaque session token. Injected so the
// core never reads ambient device state directly.
type TokenSource interface {
	Token() (string, error)
}

// Config holds app tunables.
type Config struct {
	// StoreTimeout bounds every store call.
	StoreTimeout time.Duration
	// CodeAttempts is how many join codes to try before giving up on
	// collisions with active sessions.
	CodeAttempts int
}

// DefaultConfig returns default app configuration.
func DefaultConfig() Config {
	return Config{
		StoreTimeout: 5 * time.Second,
		CodeAttempts: 5,
	}
}

// App is the session state machine. It validates transitions, delegates
// persistence to the store and derives ranking, elimination and game-over
// state. Fan-out to other clients happens at the store level, not here.
type App struct {
	store  Store
	tokens TokenSource
	cfg    Config
}

// NewApp creates a new session App.
func NewApp(store Store, tokens TokenSource, cfg Config) *App {
	return &App{store: store, tokens: tokens, cfg: cfg}
}

func (a *App) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.cfg.StoreTimeout)
}

// CreateSession allocates a join code and creates a waiting session with the
// caller as host. Code collisions against active sessions are retried with a
// fresh code.
func (a *App) CreateSession(ctx context.Context, hostName string) (*CreateSessionResult, error) {
	name, err := validateName(hostName)
	if err != nil {
		return nil, err
	}
	token, err := a.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("resolve session token: %w", err)
	}

	for attempt := 0; attempt < a.cfg.CodeAttempts; attempt++ {
		sctx, cancel := a.storeCtx(ctx)
		res, err := a.store.CreateSessionWithHost(sctx, CreateSessionRequest{
			Code:         gamecode.Generate(),
			HostName:     name,
			SessionToken: token,
		})
		cancel()
		if errors.Is(err, errCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("session_id", res.Session.ID.String()).
			Str("code", res.Session.Code).
			Str("host", res.Host.Name).
			Msg("session created")
		return res, nil
	}
	return nil, fmt.Errorf("no free code after %d attempts: %w", a.cfg.CodeAttempts, errCodeTaken)
}

// JoinSession adds a player to a waiting session by code. Rejoining with a
// token that already has a player row returns that row idempotently.
func (a *App) JoinSession(ctx context.Context, code, playerName string) (*models.Player, error) {
	name, err := validateName(playerName)
	if err != nil {
		return nil, err
	}
	normalized := gamecode.Normalize(code)
	if !gamecode.Valid(normalized) {
		return nil, fmt.Errorf("code %q: %w", code, ErrNotFound)
	}
	token, err := a.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("resolve session token: %w", err)
	}

	sctx, cancel := a.storeCtx(ctx)
	defer cancel()

	sess, err := a.store.GetSessionByCode(sctx, normalized)
	if err != nil {
		return nil, err
	}

	// Rejoin is legal at any stage; a device that already holds a seat just
	// gets it back, even mid-game.
	if existing, err := a.store.GetPlayerByToken(sctx, sess.ID, token); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if sess.Status != models.SessionStatusWaiting {
		return nil, ErrAlreadyStarted
	}

	players, err := a.store.ListPlayers(sctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if len(players) >= models.MaxPlayersPerSession {
		return nil, ErrSessionFull
	}

	player, err := a.store.CreatePlayer(sctx, JoinPlayerRequest{
		SessionID:    sess.ID,
		Name:         name,
		SessionToken: token,
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("session_id", sess.ID.String()).
		Str("player", player.Name).
		Int("players", len(players)+1).
		Msg("player joined")
	return player, nil
}

// StartSession moves the session into play. Host-only; needs at least two
// players.
func (a *App) StartSession(ctx context.Context, sessionID, requesterID uuid.UUID) (*models.Session, error) {
	sctx, cancel := a.storeCtx(ctx)
	defer cancel()

	requester, err := a.store.GetPlayer(sctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !requester.IsHost || requester.SessionID != sessionID {
		return nil, ErrForbidden
	}

	players, err := a.store.ListPlayers(sctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(players) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	sess, err := a.store.StartSession(sctx, sessionID)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("session_id", sess.ID.String()).
		Int("players", len(players)).
		Msg("session started")
	return sess, nil
}

// SubmitRoundScore records one player's result for the current round. When
// the request carries card labels the value is computed from them. A zero
// value is a cut and marks the session until the round advances.
func (a *App) SubmitRoundScore(ctx context.Context, req SubmitScoreRequest) (*models.RoundScore, error) {
	if req.Cards != nil {
		req.Value = scorecard.ComputeScore(req.Cards)
	}
	if req.Value < 0 {
		return nil, ErrInvalidScore
	}

	sctx, cancel := a.storeCtx(ctx)
	defer cancel()

	player, err := a.store.GetPlayer(sctx, req.PlayerID)
	if err != nil {
		return nil, err
	}
	if player.SessionID != req.SessionID {
		return nil, ErrForbidden
	}
	if player.IsEliminated {
		return nil, ErrEliminated
	}

	sess, err := a.store.GetSession(sctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionStatusPlaying {
		return nil, ErrRoundMismatch
	}
	if req.RoundNumber != sess.CurrentRound {
		return nil, ErrRoundMismatch
	}

	score, updated, err := a.store.SubmitRoundScore(sctx, req)
	if err != nil {
		return nil, err
	}

	evt := log.Info().
		Str("session_id", req.SessionID.String()).
		Str("player", updated.Name).
		Int("round", req.RoundNumber).
		Int("value", req.Value).
		Int("total", updated.TotalScore)
	if score.IsCut() {
		evt = evt.Bool("cut", true)
	}
	if updated.IsEliminated && !player.IsEliminated {
		evt = evt.Bool("eliminated", true)
	}
	evt.Msg("score submitted")
	return score, nil
}

// AdvanceRound moves the session to the next round once every non-eliminated
// player has submitted for the current one. Host-only. The gate is re-checked
// on every attempt, so a submission racing the check is caught next time.
func (a *App) AdvanceRound(ctx context.Context, sessionID, requesterID uuid.UUID) (*models.Session, error) {
	sctx, cancel := a.storeCtx(ctx)
	defer cancel()

	requester, err := a.store.GetPlayer(sctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !requester.IsHost || requester.SessionID != sessionID {
		return nil, ErrForbidden
	}

	sess, err := a.store.GetSession(sctx, sessionID)
	if err != nil {
		return nil, err
	}
	players, err := a.store.ListPlayers(sctx, sessionID)
	if err != nil {
		return nil, err
	}
	scores, err := a.store.ListRoundScores(sctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !AllSubmitted(players, scores, sess.CurrentRound) {
		return nil, ErrRoundIncomplete
	}

	advanced, err := a.store.AdvanceRound(sctx, sessionID, sess.CurrentRound)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("session_id", sessionID.String()).
		Int("round", advanced.CurrentRound).
		Msg("round advanced")
	return advanced, nil
}

// GameOver reports whether at most one player remains in play.
func (a *App) GameOver(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	sctx, cancel := a.storeCtx(ctx)
	defer cancel()

	players, err := a.store.ListPlayers(sctx, sessionID)
	if err != nil {
		return false, err
	}
	return scorecard.CheckGameOver(players), nil
}

// FinishSession persists the terminal status. Refused while more than one
// player is still in play: an abandoned session has no well-defined winner
// and must not be summarized.
func (a *App) FinishSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	sctx, cancel := a.storeCtx(ctx)
	defer cancel()

	players, err := a.store.ListPlayers(sctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !scorecard.CheckGameOver(players) {
		return nil, ErrGameNotOver
	}
	sess, err := a.store.FinishSession(sctx, sessionID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("session_id", sessionID.String()).Msg("session finished")
	return sess, nil
}

// RankedView returns the session's players in display order with their alert
// levels.
func (a *App) RankedView(ctx context.Context, sessionID uuid.UUID) ([]RankedEntry, error) {
	sctx, cancel := a.storeCtx(ctx)
	defer cancel()

	players, err := a.store.ListPlayers(sctx, sessionID)
	if err != nil {
		return nil, err
	}
	ranked := scorecard.Rank(players)
	view := make([]RankedEntry, len(ranked))
	for i, p := range ranked {
		view[i] = RankedEntry{
			Player: p,
			Alert:  string(scorecard.ClassifyAlert(p.TotalScore, p.IsEliminated)),
		}
	}
	return view, nil
}

// AlertFor returns a player's current alert level.
func (a *App) AlertFor(ctx context.Context, playerID uuid.UUID) (scorecard.AlertLevel, error) {
	sctx, cancel := a.storeCtx(ctx)
	defer cancel()

	player, err := a.store.GetPlayer(sctx, playerID)
	if err != nil {
		return "", err
	}
	return scorecard.ClassifyAlert(player.TotalScore, player.IsEliminated), nil
}

// AllSubmitted is the submission gate: every non-eliminated player has
// exactly one score row for the given round. A player eliminated during the
// round neither blocks nor satisfies the gate.
func AllSubmitted(players []models.Player, scores []models.RoundScore, round int) bool {
	active := make(map[uuid.UUID]bool)
	for _, p := range players {
		if !p.IsEliminated {
			active[p.ID] = true
		}
	}
	submitted := 0
	for _, s := range scores {
		if s.RoundNumber == round && active[s.PlayerID] {
			submitted++
		}
	}
	return submitted == len(active)
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || len(name) > models.MaxPlayerNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}
