package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actiontag/internal/config"
)

func TestInit_Disabled(t *testing.T) {
	tp, err := Init(config.TracingConfig{}, "actiontag-test")
	require.NoError(t, err)
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestCreateSampler(t *testing.T) {
	tests := map[string]string{
		"always_off":               "AlwaysOffSampler",
		"always_on":                "AlwaysOnSampler",
		"":                         "AlwaysOnSampler",
		"traceidratio":             "TraceIDRatioBased{0.5}",
		"parentbased_always_on":    "ParentBased{root:AlwaysOnSampler",
		"parentbased_traceidratio": "ParentBased{root:TraceIDRatioBased{0.5}",
	}

	for typ, want := range tests {
		s := createSampler(config.SamplerConfig{Type: typ, Param: 0.5})
		assert.Contains(t, s.Description(), want, typ)
	}
}

func TestStartClassifySpan(t *testing.T) {
	ctx, span := StartClassifySpan(context.Background(), "classification.test", "cli")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
}
