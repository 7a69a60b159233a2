package groups

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticebi/lattice/pkg/schema/testdb"
)

func TestStore_GetGroup(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	store := NewStore(db)

	_, err := db.ExecContext(ctx, "INSERT INTO groups (company_id, name) VALUES (2, 'Finance')")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO groups (company_id, name, deleted_at) VALUES (2, 'Old Guard', CURRENT_TIMESTAMP)")
	require.NoError(t, err)

	g, err := store.GetGroup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Finance", g.Name)
	assert.Equal(t, int64(2), g.CompanyID)

	_, err = store.GetGroup(ctx, 2)
	assert.True(t, errors.Is(err, ErrGroupNotFound))
}

func TestStore_GroupsForUser(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	store := NewStore(db)

	_, err := db.ExecContext(ctx, "INSERT INTO groups (company_id, name) VALUES (1, 'Alpha'), (1, 'Beta')")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO groups (company_id, name, deleted_at) VALUES (1, 'Deleted', CURRENT_TIMESTAMP)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO group_members (group_id, user_id) VALUES (1, 42), (3, 42), (2, 7)")
	require.NoError(t, err)

	ids, err := store.GroupsForUser(ctx, 42)
	require.NoError(t, err)
	// Membership via a soft-deleted group confers nothing.
	assert.Equal(t, []int64{1}, ids)

	ids, err = store.GroupsForUser(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStore_IsMember(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	store := NewStore(db)

	_, err := db.ExecContext(ctx, "INSERT INTO groups (company_id, name) VALUES (1, 'Alpha')")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO groups (company_id, name, deleted_at) VALUES (1, 'Dead', CURRENT_TIMESTAMP)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO group_members (group_id, user_id) VALUES (1, 42), (2, 42)")
	require.NoError(t, err)

	ok, err := store.IsMember(ctx, 1, 42)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.IsMember(ctx, 1, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.IsMember(ctx, 2, 42)
	require.NoError(t, err)
	assert.False(t, ok, "soft-deleted group must not count")
}

func TestStore_ListMembers(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	store := NewStore(db)

	_, err := db.ExecContext(ctx, "INSERT INTO groups (company_id, name) VALUES (1, 'Alpha')")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO group_members (group_id, user_id, added_by) VALUES (1, 42, 1), (1, 7, NULL)")
	require.NoError(t, err)

	members, err := store.ListMembers(ctx, 1)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, int64(42), members[0].UserID)
	require.NotNil(t, members[0].AddedBy)
	assert.Equal(t, int64(1), *members[0].AddedBy)
	assert.Nil(t, members[1].AddedBy)
}
