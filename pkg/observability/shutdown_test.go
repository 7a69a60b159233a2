package observability

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdownManager_RunsRegisteredFuncs(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)
	sm := NewShutdownManager(logger, nil, time.Second)

	var ran bool
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		ran = true
		return nil
	})

	assert.NoError(t, sm.Shutdown(context.Background()))
	assert.True(t, ran)
}

func TestShutdownManager_ReportsErrors(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)
	sm := NewShutdownManager(logger, nil, time.Second)

	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		return errors.New("close failed")
	})

	assert.Error(t, sm.Shutdown(context.Background()))
}
