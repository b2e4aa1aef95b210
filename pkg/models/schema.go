package models

import (
	"encoding/json"
	"fmt"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// DecodeEnvelope reads a broker message body. Only a malformed envelope or
// a missing ID fails here; a payload that is not an object is left for the
// classifier to reject, see MessageEnvelope.Body.
func DecodeEnvelope(data []byte) (*MessageEnvelope, error) {
	var msg MessageEnvelope
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := ValidateMessageEnvelope(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func ValidateMessageEnvelope(msg *MessageEnvelope) error {
	if msg == nil {
		return &ValidationError{
			Field:   "envelope",
			Message: "message envelope cannot be nil",
		}
	}

	if msg.ID == "" {
		return &ValidationError{
			Field:   "id",
			Message: "message ID is required",
		}
	}

	return nil
}

func (msg *MessageEnvelope) SetExtra(name string, value interface{}) {
	if msg.Metadata.Extra == nil {
		msg.Metadata.Extra = make(map[string]interface{})
	}

	msg.Metadata.Extra[name] = value
}
