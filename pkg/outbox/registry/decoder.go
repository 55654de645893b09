package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bitetrack/bitetrack-backend/pkg/enums"
)

// DecodeFunc turns a raw envelope payload into a typed event value.
type DecodeFunc func(payload json.RawMessage) (any, error)

// DecodeInto returns a DecodeFunc that unmarshals the payload into a fresh T.
func DecodeInto[T any]() DecodeFunc {
	return func(payload json.RawMessage) (any, error) {
		var evt T
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	}
}

type decoderKey struct {
	event   enums.OutboxEventType
	version int
}

// DecoderRegistry stores versioned payload decoders for consumers. Producers
// bump the envelope version when a payload changes shape; a consumer keeps
// one decoder per shape it understands.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[decoderKey]DecodeFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[decoderKey]DecodeFunc)}
}

// Register stores the decoder for one event type and payload version.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, fn DecodeFunc) {
	r.mu.Lock()
	r.decoders[decoderKey{event: eventType, version: version}] = fn
	r.mu.Unlock()
}

// Decode runs the registered decoder. Unknown pairs fail loudly so a
// consumer never silently drops an event shape it has not opted into.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	r.mu.RLock()
	fn, ok := r.decoders[decoderKey{event: eventType, version: version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no decoder for %s v%d", eventType, version)
	}
	return fn(payload)
}
