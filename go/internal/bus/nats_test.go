package bus

import (
	"testing"

	"github.com/google/uuid"

	"github.com/lobascore/lobascore/go/internal/models"
)

func TestDeliverBuffersUntilFull(t *testing.T) {
	events := make(chan models.ChangeEvent, 2)
	dropped := make(chan error, 1)

	for i := 0; i < 2; i++ {
		deliver(events, dropped, models.ChangeEvent{ID: uuid.New()})
	}
	if len(events) != 2 {
		t.Fatalf("buffered %d events, want 2", len(events))
	}
	if len(dropped) != 0 {
		t.Error("no drop signal expected while the buffer has room")
	}
}

func TestDeliverSignalsDropOnOverflow(t *testing.T) {
	events := make(chan models.ChangeEvent, 1)
	dropped := make(chan error, 1)

	queued := models.ChangeEvent{ID: uuid.New(), Entity: models.ChangeEntityRoundScore}
	deliver(events, dropped, queued)

	// The backlog is all score events; the overflowing event is the session's
	// final status update. Dropping it silently would leave the mirror stale
	// forever, so the subscription must demand a full re-read.
	lost := models.ChangeEvent{ID: uuid.New(), Entity: models.ChangeEntitySession}
	deliver(events, dropped, lost)

	select {
	case <-dropped:
	default:
		t.Fatal("overflow must signal the dropped channel")
	}

	got := <-events
	if got.ID != queued.ID {
		t.Errorf("queued event was displaced: got %s, want %s", got.ID, queued.ID)
	}
}

func TestDeliverOverflowNeverBlocks(t *testing.T) {
	events := make(chan models.ChangeEvent, 1)
	dropped := make(chan error, 1)

	// Fill both the buffer and the pending drop signal, then overflow twice
	// more. deliver runs on the NATS callback goroutine and must not stall it.
	for i := 0; i < 4; i++ {
		deliver(events, dropped, models.ChangeEvent{ID: uuid.New()})
	}
	if len(dropped) != 1 {
		t.Errorf("dropped signal should coalesce, have %d", len(dropped))
	}
}
