package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangeEntity identifies which collection a row-change event touched.
type ChangeEntity string

const (
	ChangeEntitySession    ChangeEntity = "session"
	ChangeEntityPlayer     ChangeEntity = "player"
	ChangeEntityRoundScore ChangeEntity = "round_score"
)

// ChangeOp is the row-level operation a change event describes.
type ChangeOp string

const (
	ChangeOpInsert ChangeOp = "insert"
	ChangeOpUpdate ChangeOp = "update"
	ChangeOpDelete ChangeOp = "delete"
)

// ChangeEvent is the wake-up signal fanned out to every client subscribed to
// a session. Delivery is at-least-once and unordered across entities, so
// consumers treat it as a hint to re-read, never as an authoritative delta.
type ChangeEvent struct {
	ID         uuid.UUID    `json:"id"`
	Entity     ChangeEntity `json:"entity"`
	Op         ChangeOp     `json:"op"`
	SessionID  uuid.UUID    `json:"session_id"`
	RowID      uuid.UUID    `json:"row_id"`
	OccurredAt time.Time    `json:"occurred_at"`
}
