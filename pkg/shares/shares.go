// Package shares models explicit, resource-specific access grants on cards
// and dashboards. Shares are additive only: they can open access a role
// grant would not, and they never revoke anything. Deleting the row is the
// only revocation path; shares do not expire.
package shares

import (
	"context"
	"fmt"
	"time"

	"github.com/latticebi/lattice/pkg/schema"
)

// TargetKind names a shareable resource kind.
type TargetKind string

const (
	TargetCard      TargetKind = "card"
	TargetDashboard TargetKind = "dashboard"
)

// SubjectKind names who a share is granted to.
type SubjectKind string

const (
	SubjectUser  SubjectKind = "user"
	SubjectGroup SubjectKind = "group"
)

// AccessLevel orders share strength: Edit > View > None.
type AccessLevel int

const (
	LevelNone AccessLevel = iota
	LevelView
	LevelEdit
)

func (l AccessLevel) String() string {
	switch l {
	case LevelView:
		return "view"
	case LevelEdit:
		return "edit"
	default:
		return "none"
	}
}

// ParseLevel converts a stored level string back to an AccessLevel.
// Unrecognized values collapse to None.
func ParseLevel(s string) AccessLevel {
	switch s {
	case "view":
		return LevelView
	case "edit":
		return LevelEdit
	default:
		return LevelNone
	}
}

// Share is an explicit grant of View or Edit on one resource to one user or
// group.
type Share struct {
	ID          int64       `json:"id"`
	TargetKind  TargetKind  `json:"target_kind"`
	TargetID    int64       `json:"target_id"`
	SubjectKind SubjectKind `json:"subject_kind"`
	SubjectID   int64       `json:"subject_id"`
	Level       AccessLevel `json:"level"`
	CreatedBy   *int64      `json:"created_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Store persists shares.
type Store struct {
	db schema.DBTX
}

// NewStore creates a share store over a database or transaction.
func NewStore(db schema.DBTX) *Store {
	return &Store{db: db}
}

// Create inserts a share. Re-sharing the same target to the same subject
// upgrades or downgrades the level in place.
func (s *Store) Create(ctx context.Context, share *Share) error {
	query := `
		INSERT INTO shares (target_kind, target_id, subject_kind, subject_id, level, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (target_kind, target_id, subject_kind, subject_id)
		DO UPDATE SET level = EXCLUDED.level
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		share.TargetKind,
		share.TargetID,
		share.SubjectKind,
		share.SubjectID,
		share.Level.String(),
		share.CreatedBy,
	).Scan(&share.ID)
	if err != nil {
		return fmt.Errorf("failed to create share: %w", err)
	}

	return nil
}

// Delete removes a share. The only revocation path.
func (s *Store) Delete(ctx context.Context, shareID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM shares WHERE id = $1`, shareID); err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}
	return nil
}

// ListForTarget returns every share on a resource.
func (s *Store) ListForTarget(ctx context.Context, kind TargetKind, targetID int64) ([]Share, error) {
	query := `
		SELECT id, target_kind, target_id, subject_kind, subject_id, level, created_by, created_at
		FROM shares
		WHERE target_kind = $1 AND target_id = $2
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, kind, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	defer rows.Close()

	var out []Share
	for rows.Next() {
		var sh Share
		var level string
		var createdBy *int64
		if err := rows.Scan(&sh.ID, &sh.TargetKind, &sh.TargetID, &sh.SubjectKind, &sh.SubjectID, &level, &createdBy, &sh.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		sh.Level = ParseLevel(level)
		sh.CreatedBy = createdBy
		out = append(out, sh)
	}

	return out, rows.Err()
}
