package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actiontag/internal/config"
	"actiontag/pkg/logging"
)

func TestNew_Levels(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		log, err := New(config.LoggingConfig{Level: level, Format: "json"})
		require.NoError(t, err, level)
		assert.NotNil(t, log)
	}

	log, err := New(config.LoggingConfig{Level: "info", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_OutputPathAndServiceName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	log, err := New(config.LoggingConfig{Level: "info"}, WithOutputPaths(path), WithServiceName("actiontag"))
	require.NoError(t, err)

	log.InfowCtx(context.Background(), "classified", "action", "quiet")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"classified"`)
	assert.Contains(t, string(data), `"service_name":"actiontag"`)
	assert.Contains(t, string(data), `"action":"quiet"`)
}

func TestContextFields_ServiceName(t *testing.T) {
	l := &SugaredLogger{}
	l.SetServiceName("actiontag")

	fields := l.getContextFields(context.Background())
	assert.Equal(t, []interface{}{"service_name", "actiontag"}, fields)

	ctx := logging.WithServiceName(context.Background(), "other")
	fields = l.getContextFields(ctx)
	assert.Equal(t, []interface{}{"service_name", "other"}, fields)
}
