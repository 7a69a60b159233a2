package permissions

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_IsKnown(t *testing.T) {
	c := NewCatalog()

	assert.True(t, c.IsKnown(CardsView))
	assert.True(t, c.IsKnown(IntegrationsDelete))
	assert.False(t, c.IsKnown(ID("Cards.Explode")))
	assert.False(t, c.IsKnown(ID("")))
}

func TestCatalog_CategoryOf(t *testing.T) {
	c := NewCatalog()

	cat, err := c.CategoryOf(DashboardsEdit)
	require.NoError(t, err)
	assert.Equal(t, CategoryDashboards, cat)

	_, err = c.CategoryOf(ID("Nope.Nope"))
	assert.True(t, errors.Is(err, ErrUnknownPermission))
}

func TestCatalog_IsReadOnly(t *testing.T) {
	c := NewCatalog()

	assert.True(t, c.IsReadOnly(CardsView))
	assert.True(t, c.IsReadOnly(GroupsViewResources))
	assert.False(t, c.IsReadOnly(CardsEdit))
	assert.False(t, c.IsReadOnly(CardsShare))
	// Unknown ids are never read-only.
	assert.False(t, c.IsReadOnly(ID("Bogus.View")))
}

func TestCatalog_All(t *testing.T) {
	c := NewCatalog()

	all := c.All()
	require.NotEmpty(t, all)
	assert.True(t, sort.SliceIsSorted(all, func(i, j int) bool { return all[i] < all[j] }))

	for _, id := range all {
		assert.True(t, c.IsKnown(id))
	}
}

func TestCatalog_InCategory(t *testing.T) {
	c := NewCatalog()

	cards := c.InCategory(CategoryCards)
	assert.ElementsMatch(t, []ID{CardsView, CardsCreate, CardsEdit, CardsDelete, CardsShare}, cards)

	assert.Empty(t, c.InCategory(Category("Nonexistent")))
}

func TestCatalog_Validate(t *testing.T) {
	c := NewCatalog()

	require.NoError(t, c.Validate(CardsView, RolesEdit))

	err := c.Validate(CardsView, ID("Widgets.Spin"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPermission))
	assert.Contains(t, err.Error(), "Widgets.Spin")
}
