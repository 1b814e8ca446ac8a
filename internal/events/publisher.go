package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glowdesk/glowdesk-api/internal/queue"
)

// Publisher serializes event envelopes onto the booking events queue.
type Publisher struct {
	queue queue.Queue
}

// NewPublisher creates a publisher over the given queue.
func NewPublisher(q queue.Queue) *Publisher {
	if q == nil {
		panic("events: queue cannot be nil")
	}
	return &Publisher{queue: q}
}

// Publish wraps the payload in an envelope stamped now and sends it.
func (p *Publisher) Publish(ctx context.Context, companyID, eventType string, payload any) error {
	body, err := json.Marshal(Envelope{
		Type:       eventType,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		CompanyID:  companyID,
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("events: failed to marshal %s: %w", eventType, err)
	}
	if err := p.queue.Send(ctx, string(body)); err != nil {
		return fmt.Errorf("events: failed to publish %s: %w", eventType, err)
	}
	return nil
}
