package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetLogFields(ctx))

	ctx = WithTraceID(ctx, "t-1")
	ctx = WithDocumentName(ctx, "chat-42")

	assert.Equal(t, []interface{}{"trace_id", "t-1", "document", "chat-42"}, GetLogFields(ctx))
	assert.Equal(t, "", GetMessageID(ctx))
}

func TestContextKeysDoNotCollide(t *testing.T) {
	ctx := context.WithValue(context.Background(), TraceIDKey, "plain-string-key")
	assert.Equal(t, "", GetTraceID(ctx))
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-9")
	assert.Equal(t, "req-9", GetRequestID(ctx))
	assert.Equal(t, []interface{}{"request_id", "req-9"}, GetLogFields(ctx))
}
