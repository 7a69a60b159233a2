// Package audit records authorization-relevant events: every access
// decision, plus grant and share mutations. Events are append-only;
// recording failures are reported to the caller but must never change an
// access answer.
package audit

import (
	"time"
)

// EventType categorizes an audit event.
type EventType string

const (
	EventTypeDecision    EventType = "authz.decision"
	EventTypeRoleGrant   EventType = "authz.role_grant"
	EventTypeRoleRevoke  EventType = "authz.role_revoke"
	EventTypeShareCreate EventType = "authz.share_create"
	EventTypeShareRevoke EventType = "authz.share_revoke"
)

// Outcome is the result recorded for an event.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeDeny  Outcome = "deny"
	OutcomeError Outcome = "error"
)

// Event is a single audit record.
type Event struct {
	ID           int64     `json:"id"`
	EventID      string    `json:"event_id"`
	EventType    EventType `json:"event_type"`
	UserID       *int64    `json:"user_id,omitempty"`
	Action       string    `json:"action,omitempty"`
	ResourceKind string    `json:"resource_kind,omitempty"`
	ResourceID   *int64    `json:"resource_id,omitempty"`
	Outcome      Outcome   `json:"outcome"`
	Cause        string    `json:"cause,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
