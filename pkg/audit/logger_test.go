package audit

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticebi/lattice/pkg/schema/testdb"
)

func TestDBLogger_Record(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	logger := NewDBLogger(db)

	userID := int64(7)
	resourceID := int64(42)
	event := &Event{
		EventType:    EventTypeDecision,
		UserID:       &userID,
		Action:       "Cards.View",
		ResourceKind: "card",
		ResourceID:   &resourceID,
		Outcome:      OutcomeAllow,
		Cause:        "granted",
		RequestID:    "req-1",
	}

	require.NoError(t, logger.Record(ctx, event))
	assert.NotZero(t, event.ID)
	assert.NotEmpty(t, event.EventID, "an event id is assigned on insert")

	var outcome, cause string
	err := db.QueryRowContext(ctx, `SELECT outcome, cause FROM audit_events WHERE id = $1`, event.ID).Scan(&outcome, &cause)
	require.NoError(t, err)
	assert.Equal(t, "allow", outcome)
	assert.Equal(t, "granted", cause)
}

func TestDBLogger_KeepsCallerEventID(t *testing.T) {
	db := testdb.New(t)
	logger := NewDBLogger(db)

	event := &Event{EventID: "fixed-id", EventType: EventTypeRoleGrant, Outcome: OutcomeAllow}
	require.NoError(t, logger.Record(context.Background(), event))
	assert.Equal(t, "fixed-id", event.EventID)
}

type failingLogger struct{ err error }

func (f failingLogger) Record(context.Context, *Event) error { return f.err }

type countingLogger struct{ n int }

func (c *countingLogger) Record(context.Context, *Event) error {
	c.n++
	return nil
}

func TestMultiLogger_AttemptsAllLoggers(t *testing.T) {
	boom := errors.New("boom")
	counter := &countingLogger{}
	multi := NewMultiLogger(failingLogger{err: boom}, counter)

	err := multi.Record(context.Background(), &Event{EventType: EventTypeDecision, Outcome: OutcomeDeny})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, counter.n, "later loggers still run after a failure")
}

func TestLogrusLogger_Record(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.InfoLevel)

	logger := NewLogrusLogger(log)
	assert.NoError(t, logger.Record(context.Background(), &Event{EventType: EventTypeDecision, Outcome: OutcomeAllow}))
}
