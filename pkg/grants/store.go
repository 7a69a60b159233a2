package grants

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/latticebi/lattice/pkg/permissions"
	"github.com/latticebi/lattice/pkg/schema"
)

var (
	// ErrRoleNotFound is returned for unknown or soft-deleted roles.
	ErrRoleNotFound = errors.New("role not found")

	// ErrScopeMismatch is returned at write time when a grant's scope kind
	// does not match the role's scope kind, or when a grant names both or
	// neither of client and profile.
	ErrScopeMismatch = errors.New("grant scope does not match role scope")

	// ErrCompanyOutsideClient is returned at write time when a grant's
	// company narrowing lists a company that does not belong to the
	// grant's client.
	ErrCompanyOutsideClient = errors.New("company is not owned by the grant's client")
)

// Store persists roles, grants and availability rows. Writes validate shape
// here so the read path never has to trust grant rows blindly; reads still
// exclude malformed rows defensively.
type Store struct {
	db      schema.DBTX
	catalog *permissions.Catalog
}

// NewStore creates a grant store over a database or transaction.
func NewStore(db schema.DBTX, catalog *permissions.Catalog) *Store {
	return &Store{db: db, catalog: catalog}
}

// CreateRole creates a role after validating its permission ids against the
// catalog and its scope shape. Unknown permission ids are an error, never
// silently dropped.
func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	if err := s.catalog.Validate(role.Permissions...); err != nil {
		return err
	}
	if !role.IsSystem && bothOrNeither(role.ClientID, role.ProfileID) {
		return fmt.Errorf("role must be bound to exactly one of client or profile: %w", ErrScopeMismatch)
	}

	permsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	query := `
		INSERT INTO roles (name, description, client_id, profile_id, is_system, permissions, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	now := time.Now()
	err = s.db.QueryRowContext(ctx, query,
		role.Name,
		role.Description,
		role.ClientID,
		role.ProfileID,
		role.IsSystem,
		string(permsJSON),
		role.CreatedBy,
		now,
		now,
	).Scan(&role.ID)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	role.CreatedAt = now
	role.UpdatedAt = now
	return nil
}

// GetRole retrieves a live role by id.
func (s *Store) GetRole(ctx context.Context, roleID int64) (*Role, error) {
	query := `
		SELECT id, name, description, client_id, profile_id, is_system, permissions, created_by, created_at, updated_at
		FROM roles
		WHERE id = $1 AND deleted_at IS NULL
	`

	var role Role
	var description sql.NullString
	var clientID, profileID, createdBy sql.NullInt64
	var permsJSON string

	err := s.db.QueryRowContext(ctx, query, roleID).Scan(
		&role.ID,
		&role.Name,
		&description,
		&clientID,
		&profileID,
		&role.IsSystem,
		&permsJSON,
		&createdBy,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("role %d: %w", roleID, ErrRoleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	if description.Valid {
		role.Description = description.String
	}
	if clientID.Valid {
		id := clientID.Int64
		role.ClientID = &id
	}
	if profileID.Valid {
		id := profileID.Int64
		role.ProfileID = &id
	}
	if createdBy.Valid {
		id := createdBy.Int64
		role.CreatedBy = &id
	}
	if err := json.Unmarshal([]byte(permsJSON), &role.Permissions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
	}

	return &role, nil
}

// AssignRoleToUser creates a user grant after validating its shape against
// the role's scope kind and the client's company set. Write time is the
// enforcement point; the resolver only excludes bad rows defensively.
func (s *Store) AssignRoleToUser(ctx context.Context, grant *UserTenantRole) error {
	if err := s.validateGrantShape(ctx, grant.RoleID, grant.ClientID, grant.ProfileID, grant.CompanyIDs); err != nil {
		return err
	}

	companyIDsJSON, err := json.Marshal(emptyIfNil(grant.CompanyIDs))
	if err != nil {
		return fmt.Errorf("failed to marshal company ids: %w", err)
	}

	query := `
		INSERT INTO user_tenant_roles (user_id, role_id, client_id, profile_id, company_ids, granted_by, granted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	err = s.db.QueryRowContext(ctx, query,
		grant.UserID,
		grant.RoleID,
		grant.ClientID,
		grant.ProfileID,
		string(companyIDsJSON),
		grant.GrantedBy,
		now,
	).Scan(&grant.ID)
	if err != nil {
		return fmt.Errorf("failed to assign role to user: %w", err)
	}

	grant.GrantedAt = now
	return nil
}

// RevokeUserRole deletes a user grant. Deletion is the only revocation path.
func (s *Store) RevokeUserRole(ctx context.Context, grantID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_tenant_roles WHERE id = $1`, grantID); err != nil {
		return fmt.Errorf("failed to revoke user role: %w", err)
	}
	return nil
}

// AssignRoleToGroup creates a group grant with the same validation as user
// grants.
func (s *Store) AssignRoleToGroup(ctx context.Context, grant *GroupTenantRole) error {
	if err := s.validateGrantShape(ctx, grant.RoleID, grant.ClientID, grant.ProfileID, grant.CompanyIDs); err != nil {
		return err
	}

	companyIDsJSON, err := json.Marshal(emptyIfNil(grant.CompanyIDs))
	if err != nil {
		return fmt.Errorf("failed to marshal company ids: %w", err)
	}

	query := `
		INSERT INTO group_tenant_roles (group_id, role_id, client_id, profile_id, company_ids, granted_by, granted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	err = s.db.QueryRowContext(ctx, query,
		grant.GroupID,
		grant.RoleID,
		grant.ClientID,
		grant.ProfileID,
		string(companyIDsJSON),
		grant.GrantedBy,
		now,
	).Scan(&grant.ID)
	if err != nil {
		return fmt.Errorf("failed to assign role to group: %w", err)
	}

	grant.GrantedAt = now
	return nil
}

// RevokeGroupRole deletes a group grant.
func (s *Store) RevokeGroupRole(ctx context.Context, grantID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM group_tenant_roles WHERE id = $1`, grantID); err != nil {
		return fmt.Errorf("failed to revoke group role: %w", err)
	}
	return nil
}

// GrantAvailability marks a company available to a client-level user.
func (s *Store) GrantAvailability(ctx context.Context, userID, clientID, companyID int64) error {
	query := `
		INSERT INTO company_availability (user_id, client_id, company_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, client_id, company_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, userID, clientID, companyID); err != nil {
		return fmt.Errorf("failed to grant availability: %w", err)
	}
	return nil
}

// RevokeAvailability removes a company from a user's availability set.
func (s *Store) RevokeAvailability(ctx context.Context, userID, clientID, companyID int64) error {
	query := `DELETE FROM company_availability WHERE user_id = $1 AND client_id = $2 AND company_id = $3`
	if _, err := s.db.ExecContext(ctx, query, userID, clientID, companyID); err != nil {
		return fmt.Errorf("failed to revoke availability: %w", err)
	}
	return nil
}

// HasAvailability reports whether the user may operate in the company at all.
func (s *Store) HasAvailability(ctx context.Context, userID, clientID, companyID int64) (bool, error) {
	query := `SELECT COUNT(1) FROM company_availability WHERE user_id = $1 AND client_id = $2 AND company_id = $3`

	var count int
	if err := s.db.QueryRowContext(ctx, query, userID, clientID, companyID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return count > 0, nil
}

// grantRow is the joined shape the resolver consumes: the grant's scope, its
// narrowing list, and the role's scope kind and permission set. Group rows
// also carry the owning company.
type grantRow struct {
	grantClientID  sql.NullInt64
	grantProfileID sql.NullInt64
	companyIDs     []int64
	roleClientID   sql.NullInt64
	roleProfileID  sql.NullInt64
	roleIsSystem   bool
	perms          []permissions.ID
	groupCompanyID int64
}

// userGrantRows returns every live grant row for the user joined with its
// role. Scope filtering happens in the resolver.
func (s *Store) userGrantRows(ctx context.Context, userID int64) ([]grantRow, error) {
	query := `
		SELECT utr.client_id, utr.profile_id, utr.company_ids,
		       r.client_id, r.profile_id, r.is_system, r.permissions
		FROM user_tenant_roles utr
		JOIN roles r ON r.id = utr.role_id AND r.deleted_at IS NULL
		WHERE utr.user_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user grants: %w", err)
	}
	defer rows.Close()

	return scanGrantRows(rows, false)
}

// groupGrantRowsForUser returns every live grant row held by the user's
// groups, joined with the role and the group's owning company. Membership
// through a soft-deleted group confers nothing.
func (s *Store) groupGrantRowsForUser(ctx context.Context, userID int64) ([]grantRow, error) {
	query := `
		SELECT gtr.client_id, gtr.profile_id, gtr.company_ids,
		       r.client_id, r.profile_id, r.is_system, r.permissions,
		       g.company_id
		FROM group_tenant_roles gtr
		JOIN groups g ON g.id = gtr.group_id AND g.deleted_at IS NULL
		JOIN group_members gm ON gm.group_id = gtr.group_id AND gm.user_id = $1
		JOIN roles r ON r.id = gtr.role_id AND r.deleted_at IS NULL
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group grants: %w", err)
	}
	defer rows.Close()

	return scanGrantRows(rows, true)
}

func scanGrantRows(rows *sql.Rows, withGroup bool) ([]grantRow, error) {
	var out []grantRow
	for rows.Next() {
		var row grantRow
		var companyIDsJSON, permsJSON string

		dest := []interface{}{
			&row.grantClientID, &row.grantProfileID, &companyIDsJSON,
			&row.roleClientID, &row.roleProfileID, &row.roleIsSystem, &permsJSON,
		}
		if withGroup {
			dest = append(dest, &row.groupCompanyID)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan grant row: %w", err)
		}

		if err := json.Unmarshal([]byte(companyIDsJSON), &row.companyIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal company ids: %w", err)
		}
		if err := json.Unmarshal([]byte(permsJSON), &row.perms); err != nil {
			return nil, fmt.Errorf("failed to unmarshal role permissions: %w", err)
		}

		out = append(out, row)
	}
	return out, rows.Err()
}

// validateGrantShape enforces the write-time invariants: client XOR profile,
// scope kind matching the role's, and company narrowing limited to the
// client's own companies.
func (s *Store) validateGrantShape(ctx context.Context, roleID int64, clientID, profileID *int64, companyIDs []int64) error {
	if bothOrNeither(clientID, profileID) {
		return fmt.Errorf("grant must name exactly one of client or profile: %w", ErrScopeMismatch)
	}
	if profileID != nil && len(companyIDs) > 0 {
		return fmt.Errorf("company narrowing only applies to client-level grants: %w", ErrScopeMismatch)
	}

	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if !role.IsSystem {
		if clientID != nil && role.ClientID == nil {
			return fmt.Errorf("role %d is not client-scoped: %w", roleID, ErrScopeMismatch)
		}
		if profileID != nil && role.ProfileID == nil {
			return fmt.Errorf("role %d is not company-scoped: %w", roleID, ErrScopeMismatch)
		}
	}

	if clientID != nil && len(companyIDs) > 0 {
		owned, err := s.companiesOfClient(ctx, *clientID)
		if err != nil {
			return err
		}
		for _, id := range companyIDs {
			if !owned[id] {
				return fmt.Errorf("company %d: %w", id, ErrCompanyOutsideClient)
			}
		}
	}

	return nil
}

func (s *Store) companiesOfClient(ctx context.Context, clientID int64) (map[int64]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM companies WHERE client_id = $1 AND deleted_at IS NULL`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list client companies: %w", err)
	}
	defer rows.Close()

	owned := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan company id: %w", err)
		}
		owned[id] = true
	}
	return owned, rows.Err()
}

func bothOrNeither(a, b *int64) bool {
	return (a == nil) == (b == nil)
}

func emptyIfNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
