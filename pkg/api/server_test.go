package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticebi/lattice/pkg/access"
	"github.com/latticebi/lattice/pkg/audit"
	"github.com/latticebi/lattice/pkg/config"
	"github.com/latticebi/lattice/pkg/grants"
	"github.com/latticebi/lattice/pkg/middleware"
	"github.com/latticebi/lattice/pkg/permissions"
	"github.com/latticebi/lattice/pkg/schema/testdb"
)

// newTestServer seeds one client (id 1) with companies North (1) and South
// (2) and returns the server wrapped in the identity middleware, the way it
// is mounted in production.
func newTestServer(t *testing.T) (*sql.DB, http.Handler, *grants.Store) {
	t.Helper()

	db := testdb.New(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "INSERT INTO clients (name, slug) VALUES ('Acme', 'acme')")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO companies (client_id, name, slug) VALUES (1, 'North', 'north'), (1, 'South', 'south')")
	require.NoError(t, err)

	catalog := permissions.NewCatalog()
	auditLog := audit.NewDBLogger(db)
	engine := access.NewEngine(db, catalog, auditLog, nil, nil)
	server := NewServer(db, engine, catalog, auditLog, nil)

	identity := middleware.NewIdentityMiddleware(config.DevConfig{})
	return db, identity.Handler(server), grants.NewStore(db, catalog)
}

func addTestUser(t *testing.T, db *sql.DB, email string) int64 {
	t.Helper()
	res, err := db.Exec("INSERT INTO users (email) VALUES (?)", email)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func doJSON(t *testing.T, handler http.Handler, method, path string, userID int64, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if userID > 0 {
		req.Header.Set(middleware.HeaderUserID, fmt.Sprintf("%d", userID))
		req.Header.Set(middleware.HeaderClientID, "1")
		req.Header.Set(middleware.HeaderCompanyID, "1")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_UnauthenticatedRequestIsRejected(t *testing.T) {
	_, handler, _ := newTestServer(t)

	rec := doJSON(t, handler, "POST", "/v1/decisions", 0, map[string]interface{}{
		"action": "Cards.View",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_ListPermissionsExposesCatalog(t *testing.T) {
	_, handler, _ := newTestServer(t)

	rec := doJSON(t, handler, "GET", "/v1/permissions", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Permissions []struct {
			ID       string `json:"id"`
			Category string `json:"category"`
			ReadOnly bool   `json:"read_only"`
		} `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Permissions)

	byID := map[string]bool{}
	for _, p := range resp.Permissions {
		byID[p.ID] = p.ReadOnly
	}
	readOnly, present := byID[string(permissions.CardsView)]
	require.True(t, present)
	assert.True(t, readOnly)
	readOnly, present = byID[string(permissions.CardsEdit)]
	require.True(t, present)
	assert.False(t, readOnly)
}
