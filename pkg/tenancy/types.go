// Package tenancy models the tenant hierarchy: top-level Clients and the
// Companies (business units) under them, plus the Scope value that names the
// tenancy level a grant or lookup applies to.
package tenancy

import "time"

// PlanTier represents subscription plan tiers
type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanPro        PlanTier = "pro"
	PlanEnterprise PlanTier = "enterprise"
)

// Client is a top-level tenant. It owns zero or more Companies.
type Client struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	PlanTier  PlanTier   `json:"plan_tier"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Company is a business unit under exactly one Client. Companies cannot
// outlive their Client (restrict-delete at the schema level).
type Company struct {
	ID        int64      `json:"id"`
	ClientID  int64      `json:"client_id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	PlanTier  PlanTier   `json:"plan_tier"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// User carries the authorization-relevant user fields. A user is either
// client-level (ClientID set, allowed into companies via availability rows)
// or company-scoped. PlatformAdmin is the reserved system role that bypasses
// all scoping.
type User struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	ClientID      int64      `json:"client_id,omitempty"`
	PlatformAdmin bool       `json:"platform_admin"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// IsClientLevel reports whether the user operates at client level and is
// therefore gated by company availability rows.
func (u User) IsClientLevel() bool {
	return u.ClientID != 0
}
