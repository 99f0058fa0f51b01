package pipeline

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// EventDescriptor is the raw event handed to the pipeline by a schedule or a user.
type EventDescriptor struct {
	Kind      string
	Timestamp time.Time
	Source    string
}

// ManualEvent returns the descriptor of a manual invocation.
func ManualEvent(source string) EventDescriptor {
	return EventDescriptor{Kind: string(model.TriggerManual), Source: source}
}

// ScheduledEvent returns the descriptor emitted when the schedule expression fires.
func ScheduledEvent(expr string, at time.Time) EventDescriptor {
	return EventDescriptor{Kind: string(model.TriggerScheduled), Timestamp: at, Source: expr}
}

func classifyTrigger(kind string) (model.TriggerKind, bool) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "schedule", "scheduled", "cron":
		return model.TriggerScheduled, true
	case "manual", "workflow_dispatch", "dispatch":
		return model.TriggerManual, true
	default:
		return "", false
	}
}

// EvaluateTrigger decides whether the descriptor starts a pipeline run.
// It returns false for events it cannot classify.
func EvaluateTrigger(desc EventDescriptor) (model.TriggerEvent, bool) {
	return evaluateTrigger(desc, time.Now)
}

func evaluateTrigger(desc EventDescriptor, now func() time.Time) (model.TriggerEvent, bool) {
	kind, ok := classifyTrigger(desc.Kind)
	if !ok {
		return model.TriggerEvent{}, false
	}

	timestamp := desc.Timestamp
	if timestamp.IsZero() {
		timestamp = now()
	}

	return model.TriggerEvent{
		ID:        uuid.New(),
		Kind:      kind,
		Timestamp: timestamp.UTC(),
		Source:    desc.Source,
	}, true
}
