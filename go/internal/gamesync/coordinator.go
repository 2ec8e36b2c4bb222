// Package gamesync keeps one client's local mirror of a session in step with
// the shared store. The notification bus is a wake-up signal, never an
// authoritative delta: every event triggers a re-read of the affected
// collection, which makes duplicate and out-of-order delivery harmless.
package gamesync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/lobascore/lobascore/go/internal/bus"
	"github.com/lobascore/lobascore/go/internal/models"
)

// Reader is the read side of the store the coordinator reconciles against.
type Reader interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ListPlayers(ctx context.Context, sessionID uuid.UUID) ([]models.Player, error)
	ListRoundScores(ctx context.Context, sessionID uuid.UUID) ([]models.RoundScore, error)
}

// Config holds coordinator tunables.
type Config struct {
	// StoreTimeout bounds each re-read.
	StoreTimeout time.Duration
	// MaxRetries is how many times a failed re-read is retried before the
	// failure surfaces.
	MaxRetries int
	// RetryDelay is the linear backoff base between retries.
	RetryDelay time.Duration
	// Clock defaults to the real clock; tests install a fake.
	Clock clockwork.Clock
}

// DefaultConfig returns default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		StoreTimeout: 5 * time.Second,
		MaxRetries:   3,
		RetryDelay:   500 * time.Millisecond,
	}
}

// Coordinator mirrors one session for one client. It consumes the session's
// change-event stream and reconciles by re-reading, so its view converges on
// store state no matter how notifications arrive.
type Coordinator struct {
	store     Reader
	sub       bus.Subscriber
	sessionID uuid.UUID
	cfg       Config
	clock     clockwork.Clock

	// OnStatusChange fires when a session re-read observes a status
	// transition, e.g. every non-host client moving to the playing phase
	// when the host starts. Called from the Run goroutine.
	OnStatusChange func(from, to models.SessionStatus)
	// OnViewChange fires after any reconcile updates the mirror.
	OnViewChange func(View)

	mu   sync.RWMutex
	view View
}

// NewCoordinator creates a coordinator for one session.
func NewCoordinator(store Reader, sub bus.Subscriber, sessionID uuid.UUID, cfg Config) *Coordinator {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Coordinator{
		store:     store,
		sub:       sub,
		sessionID: sessionID,
		cfg:       cfg,
		clock:     clock,
	}
}

// Snapshot returns a copy of the current local view.
func (c *Coordinator) Snapshot() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view.clone()
}

// Run subscribes and reconciles until the context is done. On a dropped
// connection it resubscribes and forces a full re-read: missed events are
// never assumed irrelevant.
func (c *Coordinator) Run(ctx context.Context) error {
	if err := c.resync(ctx); err != nil {
		return fmt.Errorf("initial sync: %w", err)
	}

	sub, err := c.sub.Subscribe(ctx, c.sessionID)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()

	log.Info().
		Str("session_id", c.sessionID.String()).
		Msg("sync coordinator running")

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("session_id", c.sessionID.String()).
				Msg("sync coordinator stopping")
			return nil
		case event := <-sub.Events:
			if err := c.reconcile(ctx, event); err != nil {
				log.Error().
					Err(err).
					Str("entity", string(event.Entity)).
					Msg("reconcile failed")
			}
		case cause := <-sub.Dropped:
			log.Warn().
				Err(cause).
				Str("session_id", c.sessionID.String()).
				Msg("notification gap, forcing full re-read")
			if err := c.resync(ctx); err != nil {
				log.Error().Err(err).Msg("post-reconnect resync failed")
			}
		}
	}
}

// reconcile re-reads the collection an event touched. The event's op and row
// id are deliberately ignored: partial or duplicate payloads cannot be
// misinterpreted if the store stays the single source of truth.
func (c *Coordinator) reconcile(ctx context.Context, event models.ChangeEvent) error {
	if event.SessionID != c.sessionID {
		return nil
	}
	switch event.Entity {
	case models.ChangeEntityPlayer:
		return c.withRetry(ctx, "players", c.refreshPlayers)
	case models.ChangeEntityRoundScore:
		return c.withRetry(ctx, "round scores", c.refreshScores)
	case models.ChangeEntitySession:
		return c.withRetry(ctx, "session", c.refreshSession)
	default:
		log.Debug().Str("entity", string(event.Entity)).Msg("ignoring unknown entity")
		return nil
	}
}

// resync re-reads everything, used at startup and after notification gaps.
func (c *Coordinator) resync(ctx context.Context) error {
	if err := c.withRetry(ctx, "session", c.refreshSession); err != nil {
		return err
	}
	if err := c.withRetry(ctx, "players", c.refreshPlayers); err != nil {
		return err
	}
	return c.withRetry(ctx, "round scores", c.refreshScores)
}

func (c *Coordinator) refreshSession(ctx context.Context) error {
	sess, err := c.store.GetSession(ctx, c.sessionID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	var prev models.SessionStatus
	if c.view.Session != nil {
		prev = c.view.Session.Status
	}
	c.view.Session = sess
	view := c.view.clone()
	c.mu.Unlock()

	// Forward-only: a stale re-read can never look like a status regression.
	if prev != "" && prev.Forward(sess.Status) && c.OnStatusChange != nil {
		c.OnStatusChange(prev, sess.Status)
	}
	c.notify(view)
	return nil
}

func (c *Coordinator) refreshPlayers(ctx context.Context) error {
	// The store returns players ordered by join time, so the mirror's order
	// never depends on event arrival order.
	players, err := c.store.ListPlayers(ctx, c.sessionID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.view.Players = players
	view := c.view.clone()
	c.mu.Unlock()

	c.notify(view)
	return nil
}

func (c *Coordinator) refreshScores(ctx context.Context) error {
	scores, err := c.store.ListRoundScores(ctx, c.sessionID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.view.Scores = scores
	view := c.view.clone()
	c.mu.Unlock()

	c.notify(view)
	return nil
}

func (c *Coordinator) notify(view View) {
	if c.OnViewChange != nil {
		c.OnViewChange(view)
	}
}

// withRetry runs a re-read under the store timeout, retrying store failures
// with linear backoff before surfacing them.
func (c *Coordinator) withRetry(ctx context.Context, what string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.clock.After(c.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		rctx, cancel := context.WithTimeout(ctx, c.cfg.StoreTimeout)
		err := fn(rctx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn().
			Err(err).
			Str("collection", what).
			Int("attempt", attempt+1).
			Msg("re-read failed, retrying")
	}
	return fmt.Errorf("re-read %s after %d attempts: %w", what, c.cfg.MaxRetries+1, lastErr)
}
