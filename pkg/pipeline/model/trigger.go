package model

import (
	"time"

	"github.com/google/uuid"
)

// TriggerKind is the reason a pipeline run started.
type TriggerKind string

const (
	TriggerScheduled TriggerKind = "scheduled"
	TriggerManual    TriggerKind = "manual"
)

// TriggerEvent is created once per pipeline invocation and never modified.
type TriggerEvent struct {
	ID        uuid.UUID
	Kind      TriggerKind
	Timestamp time.Time
	Source    string
}
