// Package access composes grant resolution, ownership visibility and
// explicit shares into a single ALLOW/DENY decision per (user, action,
// resource) triple. The engine is stateless; each Decide call reads one
// consistent snapshot of grants, memberships and shares.
package access

import (
	"github.com/latticebi/lattice/pkg/ownership"
	"github.com/latticebi/lattice/pkg/permissions"
	"github.com/latticebi/lattice/pkg/shares"
)

// Identity is the caller identity handed to every Decide call. It comes
// from the service's auth layer; the engine never reads ambient identity
// from anywhere else. IsPlatformAdmin is an explicit override so that
// environment-gated adapters in calling services can substitute a fixed
// admin identity without the engine knowing about environments.
type Identity struct {
	UserID          int64 `json:"user_id"`
	ClientID        int64 `json:"client_id"`
	CompanyID       int64 `json:"company_id"`
	IsAuthenticated bool  `json:"is_authenticated"`
	IsPlatformAdmin bool  `json:"is_platform_admin"`
}

// ResourceKind names the kind of resource a decision is about.
type ResourceKind string

const (
	KindCard        ResourceKind = "card"
	KindDashboard   ResourceKind = "dashboard"
	KindIntegration ResourceKind = "integration"
)

// Resource identifies one resource and how it is owned.
type Resource struct {
	Kind  ResourceKind         `json:"kind"`
	ID    int64                `json:"id"`
	Owner ownership.Descriptor `json:"owner"`
}

// shareTarget maps a resource kind to its share target kind. Integrations
// are not shareable.
func (r Resource) shareTarget() (shares.TargetKind, bool) {
	switch r.Kind {
	case KindCard:
		return shares.TargetCard, true
	case KindDashboard:
		return shares.TargetDashboard, true
	default:
		return "", false
	}
}

// category returns the permission category that governs this resource kind.
func (r Resource) category() permissions.Category {
	switch r.Kind {
	case KindCard:
		return permissions.CategoryCards
	case KindDashboard:
		return permissions.CategoryDashboards
	case KindIntegration:
		return permissions.CategoryIntegrations
	default:
		return ""
	}
}

// Cause explains a decision. Causes appear in audit logs only; API layers
// must collapse them to forbidden/not-found so the reason for a denial
// never leaks to callers.
type Cause string

const (
	CausePlatformAdmin Cause = "platform_admin"
	CauseGranted       Cause = "granted"
	CauseShared        Cause = "shared"
	CauseNotVisible    Cause = "not_visible"
	CauseUnpermitted   Cause = "unpermitted"
)

// Decision is the outcome of one Decide call.
type Decision struct {
	Allowed bool           `json:"allowed"`
	Cause   Cause          `json:"cause"`
	Action  permissions.ID `json:"action"`
}

// NotFound reports whether callers should present this denial as a 404.
// Denials on invisible resources must not confirm existence.
func (d Decision) NotFound() bool {
	return !d.Allowed && d.Cause == CauseNotVisible
}

func allow(action permissions.ID, cause Cause) Decision {
	return Decision{Allowed: true, Cause: cause, Action: action}
}

func deny(action permissions.ID, cause Cause) Decision {
	return Decision{Allowed: false, Cause: cause, Action: action}
}
