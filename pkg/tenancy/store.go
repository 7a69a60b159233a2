package tenancy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/latticebi/lattice/pkg/schema"
)

// Not-found sentinels. Soft-deleted rows are treated as absent everywhere.
var (
	ErrClientNotFound  = errors.New("client not found")
	ErrCompanyNotFound = errors.New("company not found")
	ErrUserNotFound    = errors.New("user not found")
)

// Store reads tenants and users. All queries exclude soft-deleted rows.
type Store struct {
	db schema.DBTX
}

// NewStore creates a tenancy store over a database or transaction.
func NewStore(db schema.DBTX) *Store {
	return &Store{db: db}
}

// GetClient retrieves a live client by id.
func (s *Store) GetClient(ctx context.Context, clientID int64) (*Client, error) {
	query := `
		SELECT id, name, slug, plan_tier, active, created_at, updated_at
		FROM clients
		WHERE id = $1 AND deleted_at IS NULL
	`

	var c Client
	err := s.db.QueryRowContext(ctx, query, clientID).Scan(
		&c.ID, &c.Name, &c.Slug, &c.PlanTier, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("client %d: %w", clientID, ErrClientNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	return &c, nil
}

// GetClientBySlug retrieves a live client by slug, case-insensitively.
func (s *Store) GetClientBySlug(ctx context.Context, slug string) (*Client, error) {
	query := `
		SELECT id, name, slug, plan_tier, active, created_at, updated_at
		FROM clients
		WHERE LOWER(slug) = LOWER($1) AND deleted_at IS NULL
	`

	var c Client
	err := s.db.QueryRowContext(ctx, query, slug).Scan(
		&c.ID, &c.Name, &c.Slug, &c.PlanTier, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("client %q: %w", slug, ErrClientNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client by slug: %w", err)
	}

	return &c, nil
}

// GetCompany retrieves a live company by id.
func (s *Store) GetCompany(ctx context.Context, companyID int64) (*Company, error) {
	query := `
		SELECT id, client_id, name, slug, plan_tier, active, created_at, updated_at
		FROM companies
		WHERE id = $1 AND deleted_at IS NULL
	`

	var c Company
	err := s.db.QueryRowContext(ctx, query, companyID).Scan(
		&c.ID, &c.ClientID, &c.Name, &c.Slug, &c.PlanTier, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("company %d: %w", companyID, ErrCompanyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return &c, nil
}

// GetCompanyBySlug retrieves a live company by slug, case-insensitively.
func (s *Store) GetCompanyBySlug(ctx context.Context, slug string) (*Company, error) {
	query := `
		SELECT id, client_id, name, slug, plan_tier, active, created_at, updated_at
		FROM companies
		WHERE LOWER(slug) = LOWER($1) AND deleted_at IS NULL
	`

	var c Company
	err := s.db.QueryRowContext(ctx, query, slug).Scan(
		&c.ID, &c.ClientID, &c.Name, &c.Slug, &c.PlanTier, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("company %q: %w", slug, ErrCompanyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company by slug: %w", err)
	}

	return &c, nil
}

// ListCompanies lists the live companies under a client.
func (s *Store) ListCompanies(ctx context.Context, clientID int64) ([]Company, error) {
	query := `
		SELECT id, client_id, name, slug, plan_tier, active, created_at, updated_at
		FROM companies
		WHERE client_id = $1 AND deleted_at IS NULL
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(
			&c.ID, &c.ClientID, &c.Name, &c.Slug, &c.PlanTier, &c.Active, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}

	return companies, rows.Err()
}

// GetUser retrieves a live user by id.
func (s *Store) GetUser(ctx context.Context, userID int64) (*User, error) {
	query := `
		SELECT id, email, client_id, platform_admin, active, created_at, updated_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`

	var u User
	var clientID sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&u.ID, &u.Email, &clientID, &u.PlatformAdmin, &u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if clientID.Valid {
		u.ClientID = clientID.Int64
	}

	return &u, nil
}
