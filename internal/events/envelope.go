package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/staff-account-service/internal/domain"
)

// Envelope is the wire form of a domain event.
type Envelope struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Timestamp   time.Time       `json:"timestamp"`
	Payload     json.RawMessage `json:"payload"`
}

// NewEnvelope wraps event with a fresh id.
func NewEnvelope(event domain.Event) (Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", event.EventName(), err)
	}
	return Envelope{
		ID:          uuid.NewString(),
		Type:        event.EventName(),
		AggregateID: event.AggregateID(),
		Timestamp:   event.OccurredAt().UTC(),
		Payload:     payload,
	}, nil
}

// Values flattens the envelope into stream entry fields.
func (e Envelope) Values() map[string]any {
	return map[string]any{
		"id":           e.ID,
		"type":         e.Type,
		"aggregate_id": e.AggregateID,
		"timestamp":    e.Timestamp.Format(time.RFC3339Nano),
		"payload":      string(e.Payload),
	}
}
