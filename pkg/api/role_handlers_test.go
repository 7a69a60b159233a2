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

func TestRoles_CreateAndGet(t *testing.T) {
	db, handler, _ := newTestServer(t)
	adminID := addTestUser(t, db, "admin@acme.test")

	rec := doJSON(t, handler, "POST", "/v1/roles", adminID, map[string]interface{}{
		"name":        "analyst",
		"profile_id":  1,
		"permissions": []string{string(permissions.CardsView), string(permissions.DashboardsView)},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID        int64   `json:"id"`
		Name      string  `json:"name"`
		CreatedBy *int64  `json:"created_by"`
		ProfileID *int64  `json:"profile_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "analyst", created.Name)
	require.NotNil(t, created.CreatedBy)
	assert.Equal(t, adminID, *created.CreatedBy)

	got := doJSON(t, handler, "GET", fmt.Sprintf("/v1/roles/%d", created.ID), adminID, nil)
	assert.Equal(t, http.StatusOK, got.Code)
}

func TestRoles_UnknownPermissionRejected(t *testing.T) {
	db, handler, _ := newTestServer(t)
	adminID := addTestUser(t, db, "admin@acme.test")

	rec := doJSON(t, handler, "POST", "/v1/roles", adminID, map[string]interface{}{
		"name":        "bogus",
		"profile_id":  1,
		"permissions": []string{"Cards.Frobnicate"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoles_ScopelessRoleRejected(t *testing.T) {
	db, handler, _ := newTestServer(t)
	adminID := addTestUser(t, db, "admin@acme.test")

	rec := doJSON(t, handler, "POST", "/v1/roles", adminID, map[string]interface{}{
		"name":        "floating",
		"permissions": []string{string(permissions.CardsView)},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoles_GetMissingIs404(t *testing.T) {
	db, handler, _ := newTestServer(t)
	adminID := addTestUser(t, db, "admin@acme.test")

	rec := doJSON(t, handler, "GET", "/v1/roles/999", adminID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGrants_AssignAndRevokeUserRole(t *testing.T) {
	db, handler, _ := newTestServer(t)
	adminID := addTestUser(t, db, "admin@acme.test")
	userID := addTestUser(t, db, "a@acme.test")

	created := doJSON(t, handler, "POST", "/v1/roles", adminID, map[string]interface{}{
		"name":        "viewer",
		"profile_id":  1,
		"permissions": []string{string(permissions.CardsView)},
	})
	require.Equal(t, http.StatusCreated, created.Code)
	var role struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &role))

	rec := doJSON(t, handler, "POST", "/v1/grants/users", adminID, map[string]interface{}{
		"user_id":    userID,
		"role_id":    role.ID,
		"profile_id": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var grant struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grant))

	// The grant is live: the user can now read cards in company 1.
	dec := doJSON(t, handler, "POST", "/v1/decisions", userID, decisionBody(string(permissions.CardsView), 1))
	assert.Equal(t, http.StatusOK, dec.Code)

	// Revocation takes effect on the very next decision.
	del := doJSON(t, handler, "DELETE", fmt.Sprintf("/v1/grants/users/%d", grant.ID), adminID, nil)
	require.Equal(t, http.StatusNoContent, del.Code)

	dec = doJSON(t, handler, "POST", "/v1/decisions", userID, decisionBody(string(permissions.CardsView), 1))
	assert.Equal(t, http.StatusForbidden, dec.Code)
}

func TestGrants_ScopeMismatchRejected(t *testing.T) {
	db, handler, _ := newTestServer(t)
	adminID := addTestUser(t, db, "admin@acme.test")
	userID := addTestUser(t, db, "a@acme.test")

	created := doJSON(t, handler, "POST", "/v1/roles", adminID, map[string]interface{}{
		"name":        "viewer",
		"profile_id":  1,
		"permissions": []string{string(permissions.CardsView)},
	})
	require.Equal(t, http.StatusCreated, created.Code)
	var role struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &role))

	// A company-scoped role cannot be granted at client scope.
	rec := doJSON(t, handler, "POST", "/v1/grants/users", adminID, map[string]interface{}{
		"user_id":   userID,
		"role_id":   role.ID,
		"client_id": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrants_MutationsAreAudited(t *testing.T) {
	db, handler, _ := newTestServer(t)
	adminID := addTestUser(t, db, "admin@acme.test")
	userID := addTestUser(t, db, "a@acme.test")

	created := doJSON(t, handler, "POST", "/v1/roles", adminID, map[string]interface{}{
		"name":        "viewer",
		"profile_id":  1,
		"permissions": []string{string(permissions.CardsView)},
	})
	require.Equal(t, http.StatusCreated, created.Code)
	var role struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &role))

	rec := doJSON(t, handler, "POST", "/v1/grants/users", adminID, map[string]interface{}{
		"user_id":    userID,
		"role_id":    role.ID,
		"profile_id": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var count int
	err := db.QueryRow("SELECT COUNT(1) FROM audit_events WHERE event_type = 'authz.role_grant'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAvailability_GrantAndRevoke(t *testing.T) {
	db, handler, store := newTestServer(t)
	adminID := addTestUser(t, db, "admin@acme.test")
	userID := addTestUser(t, db, "a@acme.test")

	rec := doJSON(t, handler, "POST", "/v1/availability", adminID, map[string]interface{}{
		"user_id":    userID,
		"client_id":  1,
		"company_id": 2,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	has, err := store.HasAvailability(t.Context(), userID, 1, 2)
	require.NoError(t, err)
	assert.True(t, has)

	del := doJSON(t, handler, "DELETE", fmt.Sprintf("/v1/availability?user_id=%d&client_id=1&company_id=2", userID), adminID, nil)
	require.Equal(t, http.StatusNoContent, del.Code)

	has, err = store.HasAvailability(t.Context(), userID, 1, 2)
	require.NoError(t, err)
	assert.False(t, has)
}
