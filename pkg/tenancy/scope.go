package tenancy

import (
	"errors"
	"fmt"
)

// ErrInvalidScope is returned for scope values that name no tenant or a
// company without its parent client.
var ErrInvalidScope = errors.New("invalid scope")

// Scope names the tenancy level a grant or permission lookup applies to:
// either a whole client, or one company under a client. A company scope
// always carries the parent client id so client-level grants can be matched
// without an extra lookup.
type Scope struct {
	ClientID  int64 `json:"client_id"`
	CompanyID int64 `json:"company_id,omitempty"`
}

// ClientScope returns a scope covering a whole client.
func ClientScope(clientID int64) Scope {
	return Scope{ClientID: clientID}
}

// CompanyScope returns a scope covering one company under its parent client.
func CompanyScope(clientID, companyID int64) Scope {
	return Scope{ClientID: clientID, CompanyID: companyID}
}

// IsCompany reports whether the scope targets a single company.
func (s Scope) IsCompany() bool {
	return s.CompanyID != 0
}

// Validate checks the scope is well formed.
func (s Scope) Validate() error {
	if s.ClientID <= 0 {
		return fmt.Errorf("client id %d: %w", s.ClientID, ErrInvalidScope)
	}
	if s.CompanyID < 0 {
		return fmt.Errorf("company id %d: %w", s.CompanyID, ErrInvalidScope)
	}
	return nil
}

func (s Scope) String() string {
	if s.IsCompany() {
		return fmt.Sprintf("company:%d(client:%d)", s.CompanyID, s.ClientID)
	}
	return fmt.Sprintf("client:%d", s.ClientID)
}
