package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/lobascore/lobascore/go/internal/models"
)

// Config holds NATS connection settings.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	BufferSize    int // per-subscription channel buffer
}

// DefaultConfig returns default NATS bus configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "loba.events",
		MaxReconnects: -1, // infinite
		ReconnectWait: 2 * time.Second,
		BufferSize:    64,
	}
}

// NATSBus is the production bus: one subject per session, plain core NATS.
// The at-least-once/unordered contract and the consumers' re-read policy
// make stream durability unnecessary.
type NATSBus struct {
	nc     *nats.Conn
	config Config

	mu      sync.Mutex
	dropped map[uint64]chan error
	nextID  uint64
}

// Connect establishes the NATS connection with reconnect handling.
func Connect(cfg Config) (*NATSBus, error) {
	b := &NATSBus{
		config:  cfg,
		dropped: make(map[uint64]chan error),
	}

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
			b.signalDropped()
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	b.nc = nc
	return b, nil
}

// signalDropped tells every live subscription that the connection gap may
// have swallowed events.
func (b *NATSBus) signalDropped() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.dropped {
		select {
		case ch <- fmt.Errorf("notification gap after reconnect"):
		default:
		}
	}
}

func (b *NATSBus) subjectFor(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s.%s", b.config.SubjectPrefix, sessionID)
}

// Publish sends a change event to the session's subject.
func (b *NATSBus) Publish(ctx context.Context, event models.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := b.nc.Publish(b.subjectFor(event.SessionID), data); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	log.Debug().
		Str("session_id", event.SessionID.String()).
		Str("entity", string(event.Entity)).
		Str("op", string(event.Op)).
		Msg("change event published")
	return nil
}

// deliver hands a decoded event to the consumer without blocking. A full
// buffer signals the subscription's dropped channel instead of discarding
// silently: the lost event might be the only one for its entity, so the
// consumer must fall back to a full re-read.
func deliver(events chan<- models.ChangeEvent, dropped chan<- error, event models.ChangeEvent) {
	select {
	case events <- event:
		return
	default:
	}
	select {
	case dropped <- fmt.Errorf("subscription buffer overflow"):
	default:
	}
	log.Warn().
		Str("session_id", event.SessionID.String()).
		Str("entity", string(event.Entity)).
		Msg("subscription buffer full, forcing full re-read")
}

// Subscribe opens a stream of change events for one session. Malformed
// payloads are logged and skipped. Buffer overflow surfaces on Dropped so
// the consumer re-reads instead of missing the event.
func (b *NATSBus) Subscribe(ctx context.Context, sessionID uuid.UUID) (*Subscription, error) {
	events := make(chan models.ChangeEvent, b.config.BufferSize)
	dropped := make(chan error, 1)

	sub, err := b.nc.Subscribe(b.subjectFor(sessionID), func(msg *nats.Msg) {
		var event models.ChangeEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject).Msg("malformed change event")
			return
		}
		deliver(events, dropped, event)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", sessionID, err)
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.dropped[id] = dropped
	b.mu.Unlock()

	var once sync.Once
	return &Subscription{
		Events:  events,
		Dropped: dropped,
		close: func() {
			once.Do(func() {
				if err := sub.Unsubscribe(); err != nil {
					log.Error().Err(err).Msg("unsubscribe failed")
				}
				b.mu.Lock()
				delete(b.dropped, id)
				b.mu.Unlock()
			})
		},
	}, nil
}

// Close shuts the connection down.
func (b *NATSBus) Close() {
	if b.nc != nil {
		b.nc.Close()
	}
}
