package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageEnvelopeBuilder wraps a document for the broker.
type MessageEnvelopeBuilder struct {
	envelope *MessageEnvelope
}

func NewMessageEnvelopeBuilder() *MessageEnvelopeBuilder {
	return &MessageEnvelopeBuilder{
		envelope: &MessageEnvelope{
			Payload:  make(map[string]interface{}),
			Metadata: Metadata{},
		},
	}
}

func (b *MessageEnvelopeBuilder) WithID(id string) *MessageEnvelopeBuilder {
	b.envelope.ID = id
	return b
}

func (b *MessageEnvelopeBuilder) WithSource(source string) *MessageEnvelopeBuilder {
	b.envelope.Source = source
	return b
}

// WithDocument stores doc without its action field; the consumer
// reclassifies anyway.
func (b *MessageEnvelopeBuilder) WithDocument(doc Document) *MessageEnvelopeBuilder {
	payload := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if k != ActionKey {
			payload[k] = v
		}
	}
	b.envelope.Payload = payload
	return b
}

// Build fills in a random ID and the current time when they were not set.
func (b *MessageEnvelopeBuilder) Build() *MessageEnvelope {
	if b.envelope.ID == "" {
		b.envelope.ID = uuid.NewString()
	}
	if b.envelope.Timestamp.IsZero() {
		b.envelope.Timestamp = time.Now()
	}
	return b.envelope
}
