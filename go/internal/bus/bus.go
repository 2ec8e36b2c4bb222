// Package bus carries row-change notifications between clients. Delivery is
// at-least-once and unordered across entities; consumers treat every event
// as a wake-up signal and re-read authoritative state from the store.
package bus

import (
	"context"

	"github.com/google/uuid"

	"github.com/lobascore/lobascore/go/internal/models"
)

// Publisher fans a change event out to every client subscribed to its
// session.
type Publisher interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
}

// Subscriber opens per-session event streams.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID uuid.UUID) (*Subscription, error)
}

// Subscription is one client's stream of change events for one session.
//
// Events delivers change notifications until Close. Dropped signals that the
// underlying connection was lost and re-established: anything published in
// between is gone, so the consumer must force a full re-read rather than
// assume the missed events were irrelevant.
type Subscription struct {
	Events  <-chan models.ChangeEvent
	Dropped <-chan error

	close func()
}

// Close tears down the subscription and releases the underlying consumer.
// Safe to call at any time, any number of times.
func (s *Subscription) Close() {
	if s.close != nil {
		s.close()
	}
}
