package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all authorization-store migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create clients and companies tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS clients (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL,
					plan_tier VARCHAR(50) NOT NULL DEFAULT 'free',
					active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP
				);

				CREATE UNIQUE INDEX idx_clients_slug_live ON clients(LOWER(slug)) WHERE deleted_at IS NULL;

				CREATE TABLE IF NOT EXISTS companies (
					id BIGSERIAL PRIMARY KEY,
					client_id BIGINT NOT NULL REFERENCES clients(id) ON DELETE RESTRICT,
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL,
					plan_tier VARCHAR(50) NOT NULL DEFAULT 'free',
					active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP
				);

				CREATE UNIQUE INDEX idx_companies_slug_live ON companies(LOWER(slug)) WHERE deleted_at IS NULL;
				CREATE INDEX idx_companies_client_id ON companies(client_id);
			`,
		},
		{
			Version:     2,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					email VARCHAR(255) NOT NULL,
					client_id BIGINT REFERENCES clients(id) ON DELETE RESTRICT,
					platform_admin BOOLEAN NOT NULL DEFAULT FALSE,
					active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP
				);

				CREATE UNIQUE INDEX idx_users_email_live ON users(LOWER(email)) WHERE deleted_at IS NULL;
				CREATE INDEX idx_users_client_id ON users(client_id);
			`,
		},
		{
			Version:     3,
			Description: "Create groups and group_members tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS groups (
					id BIGSERIAL PRIMARY KEY,
					company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP
				);

				CREATE UNIQUE INDEX idx_groups_company_name_live ON groups(company_id, LOWER(name)) WHERE deleted_at IS NULL;
				CREATE INDEX idx_groups_company_id ON groups(company_id);

				CREATE TABLE IF NOT EXISTS group_members (
					id BIGSERIAL PRIMARY KEY,
					group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					added_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					added_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(group_id, user_id)
				);

				CREATE INDEX idx_group_members_group_id ON group_members(group_id);
				CREATE INDEX idx_group_members_user_id ON group_members(user_id);
			`,
		},
		{
			Version:     4,
			Description: "Create roles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS roles (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT,
					client_id BIGINT REFERENCES clients(id) ON DELETE CASCADE,
					profile_id BIGINT REFERENCES companies(id) ON DELETE CASCADE,
					is_system BOOLEAN NOT NULL DEFAULT FALSE,
					permissions JSONB NOT NULL DEFAULT '[]',
					created_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP,
					CHECK (client_id IS NULL OR profile_id IS NULL)
				);

				CREATE UNIQUE INDEX idx_roles_name_scope_live
					ON roles(name, COALESCE(client_id, 0), COALESCE(profile_id, 0)) WHERE deleted_at IS NULL;
				CREATE INDEX idx_roles_client_id ON roles(client_id);
				CREATE INDEX idx_roles_profile_id ON roles(profile_id);
			`,
		},
		{
			Version:     5,
			Description: "Create user_tenant_roles and group_tenant_roles tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_tenant_roles (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					client_id BIGINT REFERENCES clients(id) ON DELETE CASCADE,
					profile_id BIGINT REFERENCES companies(id) ON DELETE CASCADE,
					company_ids JSONB NOT NULL DEFAULT '[]',
					granted_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					granted_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CHECK ((client_id IS NULL) <> (profile_id IS NULL))
				);

				CREATE INDEX idx_user_tenant_roles_user_id ON user_tenant_roles(user_id);
				CREATE INDEX idx_user_tenant_roles_role_id ON user_tenant_roles(role_id);

				CREATE TABLE IF NOT EXISTS group_tenant_roles (
					id BIGSERIAL PRIMARY KEY,
					group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
					role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					client_id BIGINT REFERENCES clients(id) ON DELETE CASCADE,
					profile_id BIGINT REFERENCES companies(id) ON DELETE CASCADE,
					company_ids JSONB NOT NULL DEFAULT '[]',
					granted_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					granted_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CHECK ((client_id IS NULL) <> (profile_id IS NULL))
				);

				CREATE INDEX idx_group_tenant_roles_group_id ON group_tenant_roles(group_id);
				CREATE INDEX idx_group_tenant_roles_role_id ON group_tenant_roles(role_id);
			`,
		},
		{
			Version:     6,
			Description: "Create company_availability table",
			SQL: `
				CREATE TABLE IF NOT EXISTS company_availability (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					client_id BIGINT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
					company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(user_id, client_id, company_id)
				);

				CREATE INDEX idx_company_availability_user_id ON company_availability(user_id);
				CREATE INDEX idx_company_availability_company_id ON company_availability(company_id);
			`,
		},
		{
			Version:     7,
			Description: "Create shares table",
			SQL: `
				CREATE TABLE IF NOT EXISTS shares (
					id BIGSERIAL PRIMARY KEY,
					target_kind VARCHAR(50) NOT NULL,
					target_id BIGINT NOT NULL,
					subject_kind VARCHAR(50) NOT NULL,
					subject_id BIGINT NOT NULL,
					level VARCHAR(20) NOT NULL,
					created_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(target_kind, target_id, subject_kind, subject_id)
				);

				CREATE INDEX idx_shares_target ON shares(target_kind, target_id);
				CREATE INDEX idx_shares_subject ON shares(subject_kind, subject_id);
			`,
		},
		{
			Version:     8,
			Description: "Create audit_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_events (
					id BIGSERIAL PRIMARY KEY,
					event_id VARCHAR(64) NOT NULL,
					event_type VARCHAR(100) NOT NULL,
					user_id BIGINT,
					action VARCHAR(100),
					resource_kind VARCHAR(50),
					resource_id BIGINT,
					outcome VARCHAR(20) NOT NULL,
					cause VARCHAR(50),
					request_id VARCHAR(64),
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_audit_events_user_id ON audit_events(user_id);
				CREATE INDEX idx_audit_events_created_at ON audit_events(created_at);
				CREATE INDEX idx_audit_events_event_type ON audit_events(event_type);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	// Create migration tracking table
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS lattice_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get applied migrations
	rows, err := db.QueryContext(ctx, "SELECT version FROM lattice_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	// Run pending migrations
	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO lattice_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
