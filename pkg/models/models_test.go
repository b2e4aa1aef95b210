package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentKeys(t *testing.T) {
	doc := Document{"user": "U", "date": "D", "action": "quiet", "System/planet": "P"}
	assert.Equal(t, []string{"System/planet", "date", "user"}, doc.Keys())
}

func TestDocumentAction(t *testing.T) {
	action, ok := Document{"action": "userJoin"}.Action()
	assert.True(t, ok)
	assert.Equal(t, ActionUserJoin, action)

	_, ok = Document{"action": 7}.Action()
	assert.False(t, ok)
}

func TestDocumentClone(t *testing.T) {
	doc := Document{"user": "U"}
	clone := doc.Clone()
	clone["action"] = "quiet"

	assert.NotContains(t, doc, "action")
}

func TestBuilder(t *testing.T) {
	doc := Document{"user": "U", "action": "messageSent"}
	msg := NewMessageEnvelopeBuilder().WithSource("cli").WithDocument(doc).Build()

	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, "cli", msg.Source)
	assert.Equal(t, map[string]interface{}{"user": "U"}, msg.Payload)
	assert.Contains(t, doc, "action")
}

func TestDecodeEnvelope(t *testing.T) {
	msg, err := DecodeEnvelope([]byte(`{"id":"m-1","payload":{"user":"U","n":12}}`))
	require.NoError(t, err)
	assert.Equal(t, "m-1", msg.ID)
	assert.Equal(t, json.Number("12"), msg.Payload["n"])

	msg, err = DecodeEnvelope([]byte(`{"id":"m-2","payload":null}`))
	require.NoError(t, err)
	assert.Nil(t, msg.Payload)

	msg, err = DecodeEnvelope([]byte(`{"id":"m-3","payload":["x","y"]}`))
	require.NoError(t, err)
	assert.Nil(t, msg.Payload)
	assert.Equal(t, []interface{}{"x", "y"}, msg.Body())

	_, err = DecodeEnvelope([]byte(`{"payload":{}}`))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "id", vErr.Field)

	_, err = DecodeEnvelope([]byte(`{"id":`))
	assert.Error(t, err)
}

func TestEnvelope_NonObjectPayloadSurvivesEncoding(t *testing.T) {
	msg, err := DecodeEnvelope([]byte(`{"id":"m-1","payload":["x",7],"metadata":{"extra":{"n":5}}}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("5"), msg.Metadata.Extra["n"])

	msg.SetExtra("dlq_reason", "permanent_error")
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, []interface{}{"x", 7.0}, out["payload"])
	assert.Equal(t, "m-1", out["id"])

	again, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"x", json.Number("7")}, again.Body())
}

func TestEnvelope_ObjectPayloadEncoding(t *testing.T) {
	msg := NewMessageEnvelopeBuilder().WithID("m-2").WithDocument(Document{"user": "U"}).Build()

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"payload":{"user":"U"}`)

	var empty MessageEnvelope
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"payload":null`)
}

func TestSetExtra(t *testing.T) {
	var msg MessageEnvelope
	msg.SetExtra("dlq_reason", "permanent_error")
	assert.Equal(t, "permanent_error", msg.Metadata.Extra["dlq_reason"])
}
