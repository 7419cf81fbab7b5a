package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventTypeAnalysisCompleted is emitted once per orchestrated analysis
const EventTypeAnalysisCompleted = "ai.analysis.completed"

// Envelope is the wire shape accepted by every event sink
type Envelope struct {
	EventID     string         `json:"eventId"`
	EventType   string         `json:"eventType"`
	AggregateID string         `json:"aggregateId"`
	TenantID    string         `json:"tenantId"`
	EventData   map[string]any `json:"eventData"`
	Timestamp   time.Time      `json:"timestamp"`
}

// NewEnvelope stamps a new event with a fresh id and the current time
func NewEnvelope(eventType, aggregateID, tenantID string, data map[string]any) Envelope {
	return Envelope{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		AggregateID: aggregateID,
		TenantID:    tenantID,
		EventData:   data,
		Timestamp:   time.Now().UTC(),
	}
}

// Publisher delivers envelopes to a sink
type Publisher interface {
	Publish(ctx context.Context, event Envelope) error
}
