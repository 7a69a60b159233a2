// Package groups models flat user groups owned by a company. Groups carry
// their own role grants (resolved in pkg/grants) and can own resources and
// receive shares; membership lookups here feed all three resolvers.
package groups

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/latticebi/lattice/pkg/schema"
)

// ErrGroupNotFound is returned for unknown or soft-deleted groups.
var ErrGroupNotFound = errors.New("group not found")

// Group is a flat collection of users under one company. No nesting.
type Group struct {
	ID        int64      `json:"id"`
	CompanyID int64      `json:"company_id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Member records a user's membership in a group.
type Member struct {
	ID      int64     `json:"id"`
	GroupID int64     `json:"group_id"`
	UserID  int64     `json:"user_id"`
	AddedBy *int64    `json:"added_by,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

// Store reads groups and memberships. Soft-deleted groups confer nothing:
// every query joins through deleted_at IS NULL.
type Store struct {
	db schema.DBTX
}

// NewStore creates a group store over a database or transaction.
func NewStore(db schema.DBTX) *Store {
	return &Store{db: db}
}

// GetGroup retrieves a live group by id.
func (s *Store) GetGroup(ctx context.Context, groupID int64) (*Group, error) {
	query := `
		SELECT id, company_id, name, created_at, updated_at
		FROM groups
		WHERE id = $1 AND deleted_at IS NULL
	`

	var g Group
	err := s.db.QueryRowContext(ctx, query, groupID).Scan(
		&g.ID, &g.CompanyID, &g.Name, &g.CreatedAt, &g.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %d: %w", groupID, ErrGroupNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return &g, nil
}

// GroupsForUser returns the ids of every live group the user belongs to.
func (s *Store) GroupsForUser(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT g.id
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = $1 AND g.deleted_at IS NULL
		ORDER BY g.id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups for user: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// IsMember reports whether the user belongs to the live group.
func (s *Store) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	query := `
		SELECT COUNT(1)
		FROM group_members gm
		JOIN groups g ON g.id = gm.group_id AND g.deleted_at IS NULL
		WHERE gm.group_id = $1 AND gm.user_id = $2
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, groupID, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}

	return count > 0, nil
}

// ListMembers returns the membership rows for a live group.
func (s *Store) ListMembers(ctx context.Context, groupID int64) ([]Member, error) {
	query := `
		SELECT gm.id, gm.group_id, gm.user_id, gm.added_by, gm.added_at
		FROM group_members gm
		JOIN groups g ON g.id = gm.group_id AND g.deleted_at IS NULL
		WHERE gm.group_id = $1
		ORDER BY gm.added_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		var addedBy sql.NullInt64
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &addedBy, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if addedBy.Valid {
			ab := addedBy.Int64
			m.AddedBy = &ab
		}
		members = append(members, m)
	}

	return members, rows.Err()
}
