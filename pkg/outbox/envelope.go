package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef names the seller behind an event, when one is known.
type ActorRef struct {
	SellerID uuid.UUID `json:"sellerId"`
	Role     string    `json:"role,omitempty"`
}

// PayloadEnvelope is the versioned payload shape written to outbox_events.
// Consumers dispatch on Version before touching Data.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
