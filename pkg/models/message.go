package models

import (
	"bytes"
	"encoding/json"
	"time"
)

type MessageEnvelope struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`  // Document being classified
	Metadata  Metadata               `json:"metadata"` // Pipeline metadata (trace_id, classification)

	// rawPayload holds a payload that is not a JSON object.
	rawPayload interface{}
}

type Metadata struct {
	TraceID        string                 `json:"trace_id,omitempty"`
	Classification *ClassificationInfo    `json:"classification,omitempty"`
	Extra          map[string]interface{} `json:"extra,omitempty"`
}

type ClassificationInfo struct {
	Action       ActionTag `json:"action"`
	ClassifiedAt time.Time `json:"classified_at"`
}

// Body is what gets classified: the object payload, or whatever non-object
// value arrived in its place. A missing or null payload yields nil.
func (msg *MessageEnvelope) Body() interface{} {
	if msg.Payload != nil {
		return msg.Payload
	}
	return msg.rawPayload
}

type envelopeFields MessageEnvelope

// UnmarshalJSON accepts any payload value. Objects land in Payload, anything
// else is kept aside for the classifier to reject. Numbers stay json.Number.
func (msg *MessageEnvelope) UnmarshalJSON(data []byte) error {
	aux := struct {
		*envelopeFields
		Payload json.RawMessage `json:"payload"`
	}{envelopeFields: (*envelopeFields)(msg)}
	if err := decodeNumbers(data, &aux); err != nil {
		return err
	}

	msg.Payload = nil
	msg.rawPayload = nil
	if len(aux.Payload) == 0 {
		return nil
	}

	var body interface{}
	if err := decodeNumbers(aux.Payload, &body); err != nil {
		return err
	}
	if obj, ok := body.(map[string]interface{}); ok {
		msg.Payload = obj
	} else {
		msg.rawPayload = body
	}
	return nil
}

// MarshalJSON writes a non-object payload back unchanged, so dead-lettered
// messages keep what was received.
func (msg MessageEnvelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		envelopeFields
		Payload interface{} `json:"payload"`
	}{envelopeFields: envelopeFields(msg), Payload: msg.Body()})
}

func decodeNumbers(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
