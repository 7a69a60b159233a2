package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/latticebi/lattice/pkg/schema"
)

// Logger records audit events.
type Logger interface {
	Record(ctx context.Context, event *Event) error
}

// DBLogger writes audit events to the audit_events table.
type DBLogger struct {
	db schema.DBTX
}

// NewDBLogger creates a database-backed audit logger.
func NewDBLogger(db schema.DBTX) *DBLogger {
	return &DBLogger{db: db}
}

// Record inserts the event. An EventID is assigned if the caller did not
// set one.
func (l *DBLogger) Record(ctx context.Context, event *Event) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}

	query := `
		INSERT INTO audit_events (event_id, event_type, user_id, action, resource_kind, resource_id, outcome, cause, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := l.db.QueryRowContext(ctx, query,
		event.EventID,
		event.EventType,
		event.UserID,
		event.Action,
		event.ResourceKind,
		event.ResourceID,
		event.Outcome,
		event.Cause,
		event.RequestID,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}

// NopLogger discards events. Used in tests and when auditing is disabled.
type NopLogger struct{}

func (NopLogger) Record(context.Context, *Event) error { return nil }

// LogrusLogger mirrors events into the structured application log. Useful
// alongside the DB logger in multi-logger setups.
type LogrusLogger struct {
	log *logrus.Logger
}

// NewLogrusLogger creates a log-mirroring audit logger.
func NewLogrusLogger(log *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{log: log}
}

func (l *LogrusLogger) Record(_ context.Context, event *Event) error {
	l.log.WithFields(logrus.Fields{
		"event_type":    event.EventType,
		"user_id":       event.UserID,
		"action":        event.Action,
		"resource_kind": event.ResourceKind,
		"resource_id":   event.ResourceID,
		"outcome":       event.Outcome,
		"cause":         event.Cause,
		"request_id":    event.RequestID,
	}).Info("audit event")
	return nil
}

// MultiLogger fans an event out to several loggers. The first error is
// returned but every logger is attempted.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger combines loggers.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Record(ctx context.Context, event *Event) error {
	var first error
	for _, l := range m.loggers {
		if err := l.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
