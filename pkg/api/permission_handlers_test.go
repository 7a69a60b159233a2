package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticebi/lattice/pkg/permissions"
)

func TestEffectivePermissions_CompanyScope(t *testing.T) {
	db, handler, store := newTestServer(t)
	userID := addTestUser(t, db, "a@acme.test")
	grantViewerRole(t, store, userID, 1, permissions.CardsView, permissions.DashboardsView)

	rec := doJSON(t, handler, "GET",
		fmt.Sprintf("/v1/users/%d/permissions?client_id=1&company_id=1", userID), userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		UserID      int64    `json:"user_id"`
		Scope       string   `json:"scope"`
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, userID, resp.UserID)
	assert.ElementsMatch(t, []string{string(permissions.CardsView), string(permissions.DashboardsView)}, resp.Permissions)
}

func TestEffectivePermissions_SiblingCompanyIsEmpty(t *testing.T) {
	db, handler, store := newTestServer(t)
	userID := addTestUser(t, db, "a@acme.test")
	grantViewerRole(t, store, userID, 1, permissions.CardsView)

	rec := doJSON(t, handler, "GET",
		fmt.Sprintf("/v1/users/%d/permissions?client_id=1&company_id=2", userID), userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Permissions)
}

func TestEffectivePermissions_SlugScopedRoute(t *testing.T) {
	db, handler, store := newTestServer(t)
	userID := addTestUser(t, db, "a@acme.test")
	grantViewerRole(t, store, userID, 1, permissions.CardsView)

	rec := doJSON(t, handler, "GET",
		fmt.Sprintf("/v1/clients/acme/companies/north/users/%d/permissions", userID), userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{string(permissions.CardsView)}, resp.Permissions)

	// Unknown slugs 404 before the handler runs.
	rec = doJSON(t, handler, "GET",
		fmt.Sprintf("/v1/clients/nosuch/companies/north/users/%d/permissions", userID), userID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEffectivePermissions_MissingClientIDRejected(t *testing.T) {
	db, handler, _ := newTestServer(t)
	userID := addTestUser(t, db, "a@acme.test")

	rec := doJSON(t, handler, "GET", fmt.Sprintf("/v1/users/%d/permissions", userID), userID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
