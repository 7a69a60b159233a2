package shares

import (
	"context"
	"fmt"

	"github.com/latticebi/lattice/pkg/schema"
)

// Resolver answers what level of shared access a user holds on a resource,
// combining direct shares with shares given to any live group the user
// belongs to.
type Resolver struct {
	db schema.DBTX
}

// NewResolver creates a share resolver.
func NewResolver(db schema.DBTX) *Resolver {
	return &Resolver{db: db}
}

// AccessLevel returns the strongest share level for the user on the target.
// Direct and group-mediated shares are considered together; a user in a
// group shared at Edit keeps Edit even if their direct share is View.
// Shares through soft-deleted groups confer nothing.
func (r *Resolver) AccessLevel(ctx context.Context, db schema.DBTX, userID int64, kind TargetKind, targetID int64) (AccessLevel, error) {
	if db == nil {
		db = r.db
	}

	query := `
		SELECT s.level
		FROM shares s
		WHERE s.target_kind = $1 AND s.target_id = $2
		  AND (
			(s.subject_kind = 'user' AND s.subject_id = $3)
			OR (s.subject_kind = 'group' AND s.subject_id IN (
				SELECT gm.group_id
				FROM group_members gm
				JOIN groups g ON g.id = gm.group_id AND g.deleted_at IS NULL
				WHERE gm.user_id = $3
			))
		  )
	`

	rows, err := db.QueryContext(ctx, query, kind, targetID, userID)
	if err != nil {
		return LevelNone, fmt.Errorf("failed to resolve share level: %w", err)
	}
	defer rows.Close()

	highest := LevelNone
	for rows.Next() {
		var level string
		if err := rows.Scan(&level); err != nil {
			return LevelNone, fmt.Errorf("failed to scan share level: %w", err)
		}
		if l := ParseLevel(level); l > highest {
			highest = l
		}
	}

	return highest, rows.Err()
}
