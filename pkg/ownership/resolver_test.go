package ownership

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticebi/lattice/pkg/schema/testdb"
)

func TestDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr bool
	}{
		{"company owned", CompanyOwned(3), false},
		{"group owned", GroupOwned(9), false},
		{"client owned wide", ClientOwned(1), false},
		{"client owned narrowed", ClientOwned(1, 5, 7), false},
		{"company without id", Descriptor{Kind: OwnerCompany}, true},
		{"group without id", Descriptor{Kind: OwnerGroup}, true},
		{"client without id", Descriptor{Kind: OwnerClient}, true},
		{"client with bad narrowing", Descriptor{Kind: OwnerClient, ClientID: 1, CompanyIDs: []int64{0}}, true},
		{"unknown kind", Descriptor{Kind: "workspace", CompanyID: 1}, true},
		{"zero value", Descriptor{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDescriptor)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolver_Visible_CompanyOwned(t *testing.T) {
	db := testdb.New(t)
	r := NewResolver()
	ctx := context.Background()

	visible, err := r.Visible(ctx, db, CompanyOwned(7), Requester{UserID: 1, ClientID: 1, CompanyID: 7})
	require.NoError(t, err)
	assert.True(t, visible)

	visible, err = r.Visible(ctx, db, CompanyOwned(7), Requester{UserID: 1, ClientID: 1, CompanyID: 8})
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestResolver_Visible_ClientOwned(t *testing.T) {
	db := testdb.New(t)
	r := NewResolver()
	ctx := context.Background()

	// Client-wide: every company under the client sees it.
	wide := ClientOwned(1)
	for _, companyID := range []int64{1, 2, 99} {
		visible, err := r.Visible(ctx, db, wide, Requester{UserID: 1, ClientID: 1, CompanyID: companyID})
		require.NoError(t, err)
		assert.True(t, visible, "company %d", companyID)
	}

	// Same descriptor, different client: never visible.
	visible, err := r.Visible(ctx, db, wide, Requester{UserID: 1, ClientID: 2, CompanyID: 1})
	require.NoError(t, err)
	assert.False(t, visible)

	// Narrowed to company 7: only company 7 sees it, same client id or not.
	narrowed := ClientOwned(1, 7)
	visible, err = r.Visible(ctx, db, narrowed, Requester{UserID: 1, ClientID: 1, CompanyID: 7})
	require.NoError(t, err)
	assert.True(t, visible)

	visible, err = r.Visible(ctx, db, narrowed, Requester{UserID: 1, ClientID: 1, CompanyID: 8})
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestResolver_Visible_GroupOwned(t *testing.T) {
	db := testdb.New(t)
	r := NewResolver()
	ctx := context.Background()

	_, err := db.Exec("INSERT INTO groups (company_id, name) VALUES (2, 'Finance')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO group_members (group_id, user_id) VALUES (1, 42)")
	require.NoError(t, err)

	visible, err := r.Visible(ctx, db, GroupOwned(1), Requester{UserID: 42, ClientID: 1, CompanyID: 2})
	require.NoError(t, err)
	assert.True(t, visible)

	// Non-members are not visible here even from the owning company; the
	// permission-delegated case is the decision engine's to compose.
	visible, err = r.Visible(ctx, db, GroupOwned(1), Requester{UserID: 7, ClientID: 1, CompanyID: 2})
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestResolver_Visible_InvalidDescriptor(t *testing.T) {
	db := testdb.New(t)
	r := NewResolver()

	_, err := r.Visible(context.Background(), db, Descriptor{Kind: OwnerCompany}, Requester{UserID: 1, CompanyID: 1})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
}

func TestResolver_OwningGroupCompany(t *testing.T) {
	db := testdb.New(t)
	r := NewResolver()
	ctx := context.Background()

	_, err := db.Exec("INSERT INTO groups (company_id, name) VALUES (5, 'Ops')")
	require.NoError(t, err)

	companyID, ok, err := r.OwningGroupCompany(ctx, db, GroupOwned(1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), companyID)

	// Missing group: not an error, just absent.
	_, ok, err = r.OwningGroupCompany(ctx, db, GroupOwned(99))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = r.OwningGroupCompany(ctx, db, CompanyOwned(1))
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
}
