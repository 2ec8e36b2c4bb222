package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lobascore/lobascore/go/internal/models"
	"github.com/lobascore/lobascore/go/internal/scorecard"
	"github.com/lobascore/lobascore/go/internal/sqlutil"
)

// DB is the slice of pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository implements session data access on Postgres. The row-change
// fan-out is not done here: table triggers NOTIFY the relay on every write,
// which republishes to the bus.
type Repository struct {
	db DB
}

// NewRepository creates a new session repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const sessionColumns = "id, code, host_player_id, status, current_round, cut_by, created_at"
const playerColumns = "id, session_id, name, session_token, is_host, total_score, is_eliminated, joined_at"
const scoreColumns = "id, session_id, player_id, round_number, value, cards, created_at"

// CreateSessionWithHost inserts a waiting session together with its host
// player in one transaction. A join-code collision among active sessions
// surfaces as errCodeTaken for the caller to retry.
func (r *Repository) CreateSessionWithHost(ctx context.Context, req CreateSessionRequest) (*CreateSessionResult, error) {
	sessionID := uuid.New()
	hostID := uuid.New()

	var result CreateSessionResult
	err := sqlutil.Run(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO sessions (id, code, status, current_round) VALUES ($1, $2, 'waiting', 0)`,
			sessionID, req.Code)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("code %s: %w", req.Code, errCodeTaken)
			}
			return fmt.Errorf("insert session: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO players (id, session_id, name, session_token, is_host, total_score, is_eliminated)
			 VALUES ($1, $2, $3, $4, TRUE, 0, FALSE)`,
			hostID, sessionID, req.HostName, req.SessionToken)
		if err != nil {
			return fmt.Errorf("insert host player: %w", err)
		}

		var sess models.Session
		err = tx.QueryRow(ctx,
			`UPDATE sessions SET host_player_id = $2 WHERE id = $1 RETURNING `+sessionColumns,
			sessionID, hostID).
			Scan(&sess.ID, &sess.Code, &sess.HostPlayerID, &sess.Status, &sess.CurrentRound, &sess.CutBy, &sess.CreatedAt)
		if err != nil {
			return fmt.Errorf("set host: %w", err)
		}

		host, err := scanPlayerRow(tx.QueryRow(ctx,
			`SELECT `+playerColumns+` FROM players WHERE id = $1`, hostID))
		if err != nil {
			return fmt.Errorf("read host player: %w", err)
		}

		result = CreateSessionResult{Session: &sess, Host: host}
		return nil
	})
	if err != nil {
		if errors.Is(err, errCodeTaken) {
			return nil, err
		}
		return nil, storeErr("create session", err)
	}
	return &result, nil
}

// GetSession retrieves a session by id.
func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return scanSessionRow(r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
}

// GetSessionByCode retrieves a non-finished session by join code. Codes are
// only unique among active sessions, so finished ones are excluded.
func (r *Repository) GetSessionByCode(ctx context.Context, code string) (*models.Session, error) {
	return scanSessionRow(r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE code = $1 AND status <> 'finished'`, code))
}

// StartSession moves a waiting session into play at round 1. Returns
// ErrAlreadyStarted if the session already left the lobby.
func (r *Repository) StartSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess, err := scanSessionRow(r.db.QueryRow(ctx,
		`UPDATE sessions SET status = 'playing', current_round = 1
		 WHERE id = $1 AND status = 'waiting'
		 RETURNING `+sessionColumns, id))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAlreadyStarted
	}
	return sess, err
}

// AdvanceRound increments the round and clears the pending cut marker. The
// fromRound guard makes the host's read-then-act window harmless: a stale
// advance simply matches no row.
func (r *Repository) AdvanceRound(ctx context.Context, id uuid.UUID, fromRound int) (*models.Session, error) {
	sess, err := scanSessionRow(r.db.QueryRow(ctx,
		`UPDATE sessions SET current_round = current_round + 1, cut_by = NULL
		 WHERE id = $1 AND current_round = $2 AND status = 'playing'
		 RETURNING `+sessionColumns, id, fromRound))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrRoundMismatch
	}
	return sess, err
}

// FinishSession marks a session finished. Idempotent: finishing a finished
// session returns it unchanged, and status never regresses.
func (r *Repository) FinishSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess, err := scanSessionRow(r.db.QueryRow(ctx,
		`UPDATE sessions SET status = 'finished'
		 WHERE id = $1 AND status <> 'finished'
		 RETURNING `+sessionColumns, id))
	if errors.Is(err, ErrNotFound) {
		return r.GetSession(ctx, id)
	}
	return sess, err
}

// CreatePlayer inserts a joining player. If the device token already has a
// player row in this session (two tabs racing the same join) the existing
// row is returned instead.
func (r *Repository) CreatePlayer(ctx context.Context, req JoinPlayerRequest) (*models.Player, error) {
	player, err := scanPlayerRow(r.db.QueryRow(ctx,
		`INSERT INTO players (id, session_id, name, session_token, is_host, total_score, is_eliminated)
		 VALUES ($1, $2, $3, $4, FALSE, 0, FALSE)
		 RETURNING `+playerColumns,
		uuid.New(), req.SessionID, req.Name, req.SessionToken))
	if err != nil && isUniqueViolation(err) {
		return r.GetPlayerByToken(ctx, req.SessionID, req.SessionToken)
	}
	return player, err
}

// GetPlayer retrieves a player by id.
func (r *Repository) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	return scanPlayerRow(r.db.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
}

// GetPlayerByToken retrieves the player a device token joined a session as.
func (r *Repository) GetPlayerByToken(ctx context.Context, sessionID uuid.UUID, token string) (*models.Player, error) {
	return scanPlayerRow(r.db.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE session_id = $1 AND session_token = $2`,
		sessionID, token))
}

// ListPlayers returns a session's players ordered by join time, the stable
// order every client renders.
func (r *Repository) ListPlayers(ctx context.Context, sessionID uuid.UUID) ([]models.Player, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+playerColumns+` FROM players WHERE session_id = $1 ORDER BY joined_at, id`,
		sessionID)
	if err != nil {
		return nil, storeErr("list players", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Name, &p.SessionToken, &p.IsHost,
			&p.TotalScore, &p.IsEliminated, &p.JoinedAt); err != nil {
			return nil, storeErr("scan player", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list players", err)
	}
	return players, nil
}

// SubmitRoundScore writes the immutable score row, bumps the player's total
// and elimination flag, and marks the cut on the session when value is 0 —
// all in one transaction so a failed insert can never leave a stale cut
// marker or a drifted total. The (session, player, round) unique constraint
// rejects the second writer with ErrDuplicateSubmission.
func (r *Repository) SubmitRoundScore(ctx context.Context, req SubmitScoreRequest) (*models.RoundScore, *models.Player, error) {
	var cards []byte
	if req.Cards != nil {
		var err error
		if cards, err = json.Marshal(req.Cards); err != nil {
			return nil, nil, fmt.Errorf("marshal cards: %w", err)
		}
	}

	var (
		score  *models.RoundScore
		player *models.Player
	)
	err := sqlutil.Run(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		score, err = scanScoreRow(tx.QueryRow(ctx,
			`INSERT INTO round_scores (id, session_id, player_id, round_number, value, cards)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING `+scoreColumns,
			uuid.New(), req.SessionID, req.PlayerID, req.RoundNumber, req.Value, cards))
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateSubmission
			}
			return fmt.Errorf("insert score: %w", err)
		}

		player, err = scanPlayerRow(tx.QueryRow(ctx,
			`UPDATE players
			 SET total_score = total_score + $2,
			     is_eliminated = is_eliminated OR total_score + $2 >= $3
			 WHERE id = $1
			 RETURNING `+playerColumns,
			req.PlayerID, req.Value, scorecard.EliminationThreshold))
		if err != nil {
			return fmt.Errorf("bump total: %w", err)
		}

		if req.Value == 0 {
			if _, err := tx.Exec(ctx,
				`UPDATE sessions SET cut_by = $2 WHERE id = $1`,
				req.SessionID, req.PlayerID); err != nil {
				return fmt.Errorf("mark cut: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSubmission) || errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
		return nil, nil, storeErr("submit score", err)
	}
	return score, player, nil
}

// ListRoundScores returns every score row of a session ordered by round.
func (r *Repository) ListRoundScores(ctx context.Context, sessionID uuid.UUID) ([]models.RoundScore, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+scoreColumns+` FROM round_scores WHERE session_id = $1 ORDER BY round_number, created_at`,
		sessionID)
	if err != nil {
		return nil, storeErr("list scores", err)
	}
	defer rows.Close()

	var scores []models.RoundScore
	for rows.Next() {
		var s models.RoundScore
		var cards []byte
		if err := rows.Scan(&s.ID, &s.SessionID, &s.PlayerID, &s.RoundNumber, &s.Value, &cards, &s.CreatedAt); err != nil {
			return nil, storeErr("scan score", err)
		}
		if len(cards) > 0 {
			if err := json.Unmarshal(cards, &s.Cards); err != nil {
				return nil, fmt.Errorf("unmarshal cards: %w", err)
			}
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list scores", err)
	}
	return scores, nil
}

func scanSessionRow(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.Code, &s.HostPlayerID, &s.Status, &s.CurrentRound, &s.CutBy, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storeErr("scan session", err)
	}
	return &s, nil
}

func scanPlayerRow(row pgx.Row) (*models.Player, error) {
	var p models.Player
	err := row.Scan(&p.ID, &p.SessionID, &p.Name, &p.SessionToken, &p.IsHost,
		&p.TotalScore, &p.IsEliminated, &p.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storeErr("scan player", err)
	}
	return &p, nil
}

func scanScoreRow(row pgx.Row) (*models.RoundScore, error) {
	var s models.RoundScore
	var cards []byte
	err := row.Scan(&s.ID, &s.SessionID, &s.PlayerID, &s.RoundNumber, &s.Value, &cards, &s.CreatedAt)
	if err != nil {
		return nil, storeErr("scan score", err)
	}
	if len(cards) > 0 {
		if err := json.Unmarshal(cards, &s.Cards); err != nil {
			return nil, fmt.Errorf("unmarshal cards: %w", err)
		}
	}
	return &s, nil
}

// storeErr wraps a database failure. Timeouts and connection loss map to
// ErrStoreUnavailable so callers know the write may be retried and must not
// be assumed to have partially succeeded.
func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
	var netLike *pgconn.ConnectError
	if errors.As(err, &netLike) {
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
