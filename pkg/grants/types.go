// Package grants holds roles, the grant records binding them to users and
// groups at a tenancy scope, and the resolver that computes a user's
// effective permission set for a scope.
package grants

import (
	"sort"
	"time"

	"github.com/latticebi/lattice/pkg/permissions"
)

// Role is a named set of permissions. A role is either system-wide
// (IsSystem, applies everywhere) or tenant-scoped: bound to exactly one
// client OR one company (profile), never both. Name is unique within its
// (client, profile) pair among non-deleted roles.
type Role struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	ClientID    *int64           `json:"client_id,omitempty"`
	ProfileID   *int64           `json:"profile_id,omitempty"`
	IsSystem    bool             `json:"is_system"`
	Permissions []permissions.ID `json:"permissions"`
	CreatedBy   *int64           `json:"created_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// UserTenantRole binds a role to a user at a scope: exactly one of ClientID
// and ProfileID is set. A client-level grant may carry a CompanyIDs
// restriction narrowing its effect to a subset of the client's companies;
// empty means all of them.
type UserTenantRole struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	RoleID     int64     `json:"role_id"`
	ClientID   *int64    `json:"client_id,omitempty"`
	ProfileID  *int64    `json:"profile_id,omitempty"`
	CompanyIDs []int64   `json:"company_ids,omitempty"`
	GrantedBy  *int64    `json:"granted_by,omitempty"`
	GrantedAt  time.Time `json:"granted_at"`
}

// GroupTenantRole binds a role to a group at a scope, with the same
// client-XOR-profile shape and optional company narrowing as user grants.
type GroupTenantRole struct {
	ID         int64     `json:"id"`
	GroupID    int64     `json:"group_id"`
	RoleID     int64     `json:"role_id"`
	ClientID   *int64    `json:"client_id,omitempty"`
	ProfileID  *int64    `json:"profile_id,omitempty"`
	CompanyIDs []int64   `json:"company_ids,omitempty"`
	GrantedBy  *int64    `json:"granted_by,omitempty"`
	GrantedAt  time.Time `json:"granted_at"`
}

// CompanyAvailability marks a company a client-level user may operate in at
// all. Without a row for a company the user cannot act there, whatever
// grants would otherwise apply. Availability gates grants; it grants nothing
// by itself.
type CompanyAvailability struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ClientID  int64     `json:"client_id"`
	CompanyID int64     `json:"company_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Set is a deduplicated collection of permission ids.
type Set map[permissions.ID]struct{}

// NewSet builds a set from the given ids.
func NewSet(ids ...permissions.ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether the set contains the id.
func (s Set) Has(id permissions.ID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts an id into the set.
func (s Set) Add(id permissions.ID) {
	s[id] = struct{}{}
}

// Sorted returns the set's ids in sorted order.
func (s Set) Sorted() []permissions.ID {
	ids := make([]permissions.ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
