package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/lobascore/lobascore/go/internal/models"
)

// RelayConfig holds configuration for the Postgres-to-bus relay.
type RelayConfig struct {
	DatabaseURL   string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel string        // channel the row-change triggers notify on
	MaxRetries    int
	RetryDelay    time.Duration
	PingInterval  time.Duration
}

// DefaultRelayConfig returns default relay configuration.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		NotifyChannel: "loba_row_changes",
		MaxRetries:    5,
		RetryDelay:    200 * time.Millisecond,
		PingInterval:  90 * time.Second,
	}
}

// Relay turns Postgres row-change notifications into bus events. The table
// triggers NOTIFY a JSON payload for every insert/update/delete; the relay
// republishes each one to the session's subject. Losing a notification is
// tolerable: subscribers already treat the stream as at-least-once and
// re-read on reconnect.
type Relay struct {
	listener  *pq.Listener
	publisher Publisher
	cfg       RelayConfig
}

// rowChange is the trigger payload shape.
type rowChange struct {
	Entity    models.ChangeEntity `json:"entity"`
	Op        models.ChangeOp     `json:"op"`
	SessionID uuid.UUID           `json:"session_id"`
	RowID     uuid.UUID           `json:"row_id"`
}

// NewRelay starts LISTENing on the configured channel.
func NewRelay(publisher Publisher, cfg RelayConfig) (*Relay, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("relay listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.NotifyChannel, err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("relay listening for row changes")

	return &Relay{
		listener:  l,
		publisher: publisher,
		cfg:       cfg,
	}, nil
}

// Start pumps notifications until the context is done.
func (r *Relay) Start(ctx context.Context) error {
	pingTicker := time.NewTicker(r.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("relay shutting down")
			return r.Stop()
		case note := <-r.listener.Notify:
			if note == nil {
				// nil notification means the connection was re-established;
				// anything notified in between never reached us. Subscribers
				// absorb the gap through their reconnect re-read.
				continue
			}
			if err := r.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to relay notification")
			}
		case <-pingTicker.C:
			if err := r.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

// Stop closes the underlying listener.
func (r *Relay) Stop() error {
	return r.listener.Close()
}

func (r *Relay) handleNotification(ctx context.Context, payload string) error {
	var change rowChange
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return fmt.Errorf("malformed row change payload: %w", err)
	}

	event := models.ChangeEvent{
		ID:         uuid.New(),
		Entity:     change.Entity,
		Op:         change.Op,
		SessionID:  change.SessionID,
		RowID:      change.RowID,
		OccurredAt: time.Now().UTC(),
	}

	if err := r.publishWithRetry(ctx, event); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}

	log.Debug().
		Str("entity", string(event.Entity)).
		Str("op", string(event.Op)).
		Str("session_id", event.SessionID.String()).
		Msg("relayed row change")
	return nil
}

// publishWithRetry attempts to publish with linear backoff.
func (r *Relay) publishWithRetry(ctx context.Context, event models.ChangeEvent) error {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := r.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("session_id", event.SessionID.String()).
				Msg("failed to publish, retrying")
			continue
		}

		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("session_id", event.SessionID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}
