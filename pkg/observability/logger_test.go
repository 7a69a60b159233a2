package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticebi/lattice/pkg/contextkeys"
)

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("user_id", int64(7)).Info("decision requested")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "decision requested", entry["msg"])
	assert.Equal(t, float64(7), entry["user_id"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.NotZero(t, buf.Len())
}

func TestLogger_SetLevelAffectsDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)
	derived := logger.WithField("component", "engine")

	derived.Debug("hidden")
	assert.Zero(t, buf.Len())

	logger.SetLevel(DebugLevel)
	derived.Debug("shown")
	assert.NotZero(t, buf.Len())
}

func TestFromContext_AnnotatesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := WithContextLogger(context.Background(), logger)
	ctx = contextkeys.WithRequestID(ctx, "req-123")

	FromContext(ctx).Info("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-123", entry["request_id"])
}

func TestFromContext_DefaultLogger(t *testing.T) {
	logger := FromContext(context.Background())
	assert.NotNil(t, logger)
}
