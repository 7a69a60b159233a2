package ownership

import (
	"context"
	"errors"
	"fmt"

	"github.com/latticebi/lattice/pkg/groups"
	"github.com/latticebi/lattice/pkg/schema"
)

// Requester is the tenancy context a visibility question is asked from.
type Requester struct {
	UserID    int64
	ClientID  int64
	CompanyID int64
}

// Resolver answers visibility questions. It is stateless; lookups go
// through the DBTX handed to each call.
//
// For group-owned resources the resolver answers the membership case only.
// The same-company-with-permission case depends on the requester's effective
// permissions and is composed in the decision engine, not here. Platform
// admins never reach this resolver; the engine bypasses it for them.
type Resolver struct{}

// NewResolver creates an ownership resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Visible reports whether ownership and inheritance rules put the resource
// in the requester's view. The descriptor is validated eagerly: malformed
// shapes error rather than quietly denying.
func (r *Resolver) Visible(ctx context.Context, db schema.DBTX, desc Descriptor, req Requester) (bool, error) {
	if err := desc.Validate(); err != nil {
		return false, err
	}

	switch desc.Kind {
	case OwnerCompany:
		return req.CompanyID == desc.CompanyID, nil

	case OwnerGroup:
		member, err := groups.NewStore(db).IsMember(ctx, desc.GroupID, req.UserID)
		if err != nil {
			return false, fmt.Errorf("failed to resolve group visibility: %w", err)
		}
		return member, nil

	case OwnerClient:
		if req.ClientID != desc.ClientID {
			return false, nil
		}
		// Empty narrowing means the resource is inherited client-wide.
		if len(desc.CompanyIDs) == 0 {
			return true, nil
		}
		for _, id := range desc.CompanyIDs {
			if id == req.CompanyID {
				return true, nil
			}
		}
		return false, nil

	default:
		// Unreachable after Validate; kept so a new owner kind cannot
		// fall through silently.
		return false, fmt.Errorf("owner kind %q: %w", desc.Kind, ErrInvalidDescriptor)
	}
}

// OwningGroupCompany returns the owning company of a group-owned resource,
// used by the decision engine for the delegated same-company visibility
// case. Returns false when the group is gone.
func (r *Resolver) OwningGroupCompany(ctx context.Context, db schema.DBTX, desc Descriptor) (int64, bool, error) {
	if desc.Kind != OwnerGroup {
		return 0, false, fmt.Errorf("not group-owned: %w", ErrInvalidDescriptor)
	}
	g, err := groups.NewStore(db).GetGroup(ctx, desc.GroupID)
	if errors.Is(err, groups.ErrGroupNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return g.CompanyID, true, nil
}
