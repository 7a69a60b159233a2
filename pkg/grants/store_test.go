package grants

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticebi/lattice/pkg/permissions"
	"github.com/latticebi/lattice/pkg/schema/testdb"
)

func TestStore_CreateRole_Validation(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	store := NewStore(db, permissions.NewCatalog())

	companyID := int64(1)
	clientID := int64(1)

	// Unknown permission ids are rejected, never dropped.
	err := store.CreateRole(ctx, &Role{
		Name:        "Broken",
		ProfileID:   &companyID,
		Permissions: []permissions.ID{permissions.CardsView, "Widgets.Spin"},
	})
	assert.ErrorIs(t, err, permissions.ErrUnknownPermission)

	// A tenant role bound to both client and profile is malformed.
	err = store.CreateRole(ctx, &Role{
		Name:        "Confused",
		ClientID:    &clientID,
		ProfileID:   &companyID,
		Permissions: []permissions.ID{permissions.CardsView},
	})
	assert.ErrorIs(t, err, ErrScopeMismatch)

	// As is one bound to neither (unless it is a system role).
	err = store.CreateRole(ctx, &Role{
		Name:        "Floating",
		Permissions: []permissions.ID{permissions.CardsView},
	})
	assert.ErrorIs(t, err, ErrScopeMismatch)

	err = store.CreateRole(ctx, &Role{
		Name:        "Platform Admin",
		IsSystem:    true,
		Permissions: []permissions.ID{permissions.SettingsEdit},
	})
	assert.NoError(t, err)
}

func TestStore_AssignRoleToUser_Validation(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	store := NewStore(db, permissions.NewCatalog())

	_, err := db.Exec("INSERT INTO clients (name, slug) VALUES ('Acme', 'acme')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO companies (client_id, name, slug) VALUES (1, 'North', 'north')")
	require.NoError(t, err)

	clientID := int64(1)
	companyID := int64(1)

	clientRole := &Role{Name: "Client Viewer", ClientID: &clientID, Permissions: []permissions.ID{permissions.CardsView}}
	require.NoError(t, store.CreateRole(ctx, clientRole))
	companyRole := &Role{Name: "Company Editor", ProfileID: &companyID, Permissions: []permissions.ID{permissions.CardsEdit}}
	require.NoError(t, store.CreateRole(ctx, companyRole))

	// Scope kinds must match: client-scoped role cannot attach via a
	// profile grant, and vice versa.
	err = store.AssignRoleToUser(ctx, &UserTenantRole{UserID: 1, RoleID: clientRole.ID, ProfileID: &companyID})
	assert.ErrorIs(t, err, ErrScopeMismatch)
	err = store.AssignRoleToUser(ctx, &UserTenantRole{UserID: 1, RoleID: companyRole.ID, ClientID: &clientID})
	assert.ErrorIs(t, err, ErrScopeMismatch)

	// Narrowing lists must stay within the client's companies.
	err = store.AssignRoleToUser(ctx, &UserTenantRole{
		UserID: 1, RoleID: clientRole.ID, ClientID: &clientID, CompanyIDs: []int64{99},
	})
	assert.ErrorIs(t, err, ErrCompanyOutsideClient)

	// Narrowing on a profile grant is meaningless and rejected.
	err = store.AssignRoleToUser(ctx, &UserTenantRole{
		UserID: 1, RoleID: companyRole.ID, ProfileID: &companyID, CompanyIDs: []int64{1},
	})
	assert.ErrorIs(t, err, ErrScopeMismatch)

	// Unknown role.
	badRole := int64(999)
	err = store.AssignRoleToUser(ctx, &UserTenantRole{UserID: 1, RoleID: badRole, ClientID: &clientID})
	assert.ErrorIs(t, err, ErrRoleNotFound)

	// Well-formed grants round-trip.
	grant := &UserTenantRole{UserID: 1, RoleID: clientRole.ID, ClientID: &clientID, CompanyIDs: []int64{1}}
	require.NoError(t, store.AssignRoleToUser(ctx, grant))
	assert.NotZero(t, grant.ID)
	assert.False(t, grant.GrantedAt.IsZero())
}

func TestStore_HasAvailability_Query(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db, permissions.NewCatalog())

	mock.ExpectQuery("SELECT COUNT\\(1\\) FROM company_availability").
		WithArgs(int64(42), int64(1), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := store.HasAvailability(context.Background(), 42, 1, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RevokeUserRole_Query(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db, permissions.NewCatalog())

	mock.ExpectExec("DELETE FROM user_tenant_roles WHERE id = \\$1").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.RevokeUserRole(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}
