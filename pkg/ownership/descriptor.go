// Package ownership decides whether a resource exists in a requester's
// tenancy view at all, independent of permissions. Ownership is a closed sum
// over three owner kinds; every consumer must handle all of them.
package ownership

import (
	"errors"
	"fmt"
)

// ErrInvalidDescriptor marks a malformed ownership descriptor. It is a
// data-integrity error from upstream, not an access answer: it must surface
// loudly, never be downgraded to a deny.
var ErrInvalidDescriptor = errors.New("invalid resource descriptor")

// OwnerKind names the tenancy level that owns a resource.
type OwnerKind string

const (
	OwnerCompany OwnerKind = "company"
	OwnerGroup   OwnerKind = "group"
	OwnerClient  OwnerKind = "client"
)

// Descriptor states which tenant owns a resource and which companies may see
// it. Exactly one of the owner fields is meaningful per kind:
//
//   - OwnerCompany: CompanyID
//   - OwnerGroup:   GroupID
//   - OwnerClient:  ClientID, plus an optional CompanyIDs narrowing list
//     (empty means every company of the client).
type Descriptor struct {
	Kind       OwnerKind `json:"kind"`
	CompanyID  int64     `json:"company_id,omitempty"`
	GroupID    int64     `json:"group_id,omitempty"`
	ClientID   int64     `json:"client_id,omitempty"`
	CompanyIDs []int64   `json:"company_ids,omitempty"`
}

// CompanyOwned describes a resource owned by one company.
func CompanyOwned(companyID int64) Descriptor {
	return Descriptor{Kind: OwnerCompany, CompanyID: companyID}
}

// GroupOwned describes a resource owned by a group.
func GroupOwned(groupID int64) Descriptor {
	return Descriptor{Kind: OwnerGroup, GroupID: groupID}
}

// ClientOwned describes a resource owned at client level, optionally
// restricted to a subset of the client's companies.
func ClientOwned(clientID int64, companyIDs ...int64) Descriptor {
	return Descriptor{Kind: OwnerClient, ClientID: clientID, CompanyIDs: companyIDs}
}

// Validate checks the descriptor shape eagerly. Malformed descriptors
// indicate a bug upstream (a resource saved with mismatched owner fields)
// and always error.
func (d Descriptor) Validate() error {
	switch d.Kind {
	case OwnerCompany:
		if d.CompanyID <= 0 {
			return fmt.Errorf("company ownership requires a company id: %w", ErrInvalidDescriptor)
		}
	case OwnerGroup:
		if d.GroupID <= 0 {
			return fmt.Errorf("group ownership requires a group id: %w", ErrInvalidDescriptor)
		}
	case OwnerClient:
		if d.ClientID <= 0 {
			return fmt.Errorf("client ownership requires a client id: %w", ErrInvalidDescriptor)
		}
		for _, id := range d.CompanyIDs {
			if id <= 0 {
				return fmt.Errorf("client ownership narrowing contains company id %d: %w", id, ErrInvalidDescriptor)
			}
		}
	default:
		return fmt.Errorf("owner kind %q: %w", d.Kind, ErrInvalidDescriptor)
	}
	return nil
}

func (d Descriptor) String() string {
	switch d.Kind {
	case OwnerCompany:
		return fmt.Sprintf("company:%d", d.CompanyID)
	case OwnerGroup:
		return fmt.Sprintf("group:%d", d.GroupID)
	case OwnerClient:
		if len(d.CompanyIDs) == 0 {
			return fmt.Sprintf("client:%d", d.ClientID)
		}
		return fmt.Sprintf("client:%d%v", d.ClientID, d.CompanyIDs)
	default:
		return fmt.Sprintf("invalid:%q", string(d.Kind))
	}
}
