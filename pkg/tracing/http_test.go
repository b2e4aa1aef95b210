package tracing

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracedSkipsProbes(t *testing.T) {
	assert.True(t, traced(httptest.NewRequest("POST", "/api/v1/classify", nil)))
	assert.False(t, traced(httptest.NewRequest("GET", "/health", nil)))
	assert.False(t, traced(httptest.NewRequest("GET", "/metrics", nil)))
}
