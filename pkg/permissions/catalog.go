// Package permissions defines the fixed permission catalog shared by every
// tenant. Permission ids are stable strings ("Cards.Edit") grouped by
// category; the registry is initialized once at process start and is safe
// for concurrent reads. Permissions are never created at runtime.
package permissions

import (
	"fmt"
	"sort"
)

// ID is a stable permission identifier such as "Cards.View".
type ID string

// Category groups permissions by the resource family they govern.
type Category string

const (
	CategoryCards        Category = "Cards"
	CategoryDashboards   Category = "Dashboards"
	CategoryIntegrations Category = "Integrations"
	CategoryUsers        Category = "Users"
	CategoryRoles        Category = "Roles"
	CategoryGroups       Category = "Groups"
	CategorySettings     Category = "Settings"
)

// Permission ids known to the platform.
const (
	CardsView   ID = "Cards.View"
	CardsCreate ID = "Cards.Create"
	CardsEdit   ID = "Cards.Edit"
	CardsDelete ID = "Cards.Delete"
	CardsShare  ID = "Cards.Share"

	DashboardsView   ID = "Dashboards.View"
	DashboardsCreate ID = "Dashboards.Create"
	DashboardsEdit   ID = "Dashboards.Edit"
	DashboardsDelete ID = "Dashboards.Delete"
	DashboardsShare  ID = "Dashboards.Share"

	IntegrationsView   ID = "Integrations.View"
	IntegrationsCreate ID = "Integrations.Create"
	IntegrationsEdit   ID = "Integrations.Edit"
	IntegrationsDelete ID = "Integrations.Delete"

	UsersView       ID = "Users.View"
	UsersInvite     ID = "Users.Invite"
	UsersEdit       ID = "Users.Edit"
	UsersDeactivate ID = "Users.Deactivate"

	RolesView ID = "Roles.View"
	RolesEdit ID = "Roles.Edit"

	GroupsView          ID = "Groups.View"
	GroupsEdit          ID = "Groups.Edit"
	GroupsManageMembers ID = "Groups.ManageMembers"
	// GroupsViewResources lets a user in the owning company see resources
	// owned by a group without being a member of it.
	GroupsViewResources ID = "Groups.ViewResources"

	SettingsView ID = "Settings.View"
	SettingsEdit ID = "Settings.Edit"
)

// entry describes a single catalog row.
type entry struct {
	Category    Category
	Description string
	ReadOnly    bool
}

// Catalog is the process-wide, read-only permission registry.
type Catalog struct {
	entries map[ID]entry
	all     []ID
}

// NewCatalog builds the catalog from the fixed permission table.
func NewCatalog() *Catalog {
	entries := map[ID]entry{
		CardsView:   {CategoryCards, "View cards", true},
		CardsCreate: {CategoryCards, "Create cards", false},
		CardsEdit:   {CategoryCards, "Edit cards", false},
		CardsDelete: {CategoryCards, "Delete cards", false},
		CardsShare:  {CategoryCards, "Share cards with users and groups", false},

		DashboardsView:   {CategoryDashboards, "View dashboards", true},
		DashboardsCreate: {CategoryDashboards, "Create dashboards", false},
		DashboardsEdit:   {CategoryDashboards, "Edit dashboards", false},
		DashboardsDelete: {CategoryDashboards, "Delete dashboards", false},
		DashboardsShare:  {CategoryDashboards, "Share dashboards with users and groups", false},

		IntegrationsView:   {CategoryIntegrations, "View integration connections", true},
		IntegrationsCreate: {CategoryIntegrations, "Create integration connections", false},
		IntegrationsEdit:   {CategoryIntegrations, "Edit integration connections", false},
		IntegrationsDelete: {CategoryIntegrations, "Delete integration connections", false},

		UsersView:       {CategoryUsers, "View users", true},
		UsersInvite:     {CategoryUsers, "Invite users", false},
		UsersEdit:       {CategoryUsers, "Edit users", false},
		UsersDeactivate: {CategoryUsers, "Deactivate users", false},

		RolesView: {CategoryRoles, "View roles", true},
		RolesEdit: {CategoryRoles, "Create and edit roles", false},

		GroupsView:          {CategoryGroups, "View groups", true},
		GroupsEdit:          {CategoryGroups, "Create and edit groups", false},
		GroupsManageMembers: {CategoryGroups, "Manage group membership", false},
		GroupsViewResources: {CategoryGroups, "View resources owned by groups in the same company", true},

		SettingsView: {CategorySettings, "View tenant settings", true},
		SettingsEdit: {CategorySettings, "Edit tenant settings", false},
	}

	all := make([]ID, 0, len(entries))
	for id := range entries {
		all = append(all, id)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })

	return &Catalog{entries: entries, all: all}
}

// IsKnown reports whether the permission id exists in the catalog.
func (c *Catalog) IsKnown(id ID) bool {
	_, ok := c.entries[id]
	return ok
}

// CategoryOf returns the category for a known permission id.
func (c *Catalog) CategoryOf(id ID) (Category, error) {
	e, ok := c.entries[id]
	if !ok {
		return "", fmt.Errorf("%q: %w", id, ErrUnknownPermission)
	}
	return e.Category, nil
}

// Describe returns the human description for a known permission id.
func (c *Catalog) Describe(id ID) (string, error) {
	e, ok := c.entries[id]
	if !ok {
		return "", fmt.Errorf("%q: %w", id, ErrUnknownPermission)
	}
	return e.Description, nil
}

// IsReadOnly reports whether the permission names a view-class action. A View
// share satisfies read-only actions; anything else requires an Edit share.
func (c *Catalog) IsReadOnly(id ID) bool {
	e, ok := c.entries[id]
	return ok && e.ReadOnly
}

// All returns every known permission id in sorted order. Callers must not
// mutate the returned slice.
func (c *Catalog) All() []ID {
	return c.all
}

// InCategory returns the sorted permission ids belonging to a category.
func (c *Catalog) InCategory(cat Category) []ID {
	var ids []ID
	for _, id := range c.all {
		if c.entries[id].Category == cat {
			ids = append(ids, id)
		}
	}
	return ids
}
