package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticebi/lattice/pkg/schema/testdb"
	"github.com/latticebi/lattice/pkg/tenancy"
)

func TestTenantContextMiddleware_ResolvesSlugs(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	_, err := db.ExecContext(ctx, "INSERT INTO clients (name, slug) VALUES ('Acme', 'acme')")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO companies (client_id, name, slug) VALUES (1, 'North', 'north')")
	require.NoError(t, err)

	m := NewTenantContextMiddleware(tenancy.NewStore(db), 16, time.Minute)

	var gotClient *tenancy.Client
	var gotCompany *tenancy.Company
	router := mux.NewRouter()
	router.Handle("/v1/clients/{client}/companies/{company}",
		m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotClient = GetClient(r)
			gotCompany = GetCompany(r)
		})))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/clients/acme/companies/north", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotClient)
	require.NotNil(t, gotCompany)
	assert.Equal(t, "acme", gotClient.Slug)
	assert.Equal(t, gotClient.ID, gotCompany.ClientID)
}

func TestTenantContextMiddleware_UnknownSlugIs404(t *testing.T) {
	db := testdb.New(t)
	m := NewTenantContextMiddleware(tenancy.NewStore(db), 16, time.Minute)

	router := mux.NewRouter()
	router.Handle("/v1/clients/{client}", m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/clients/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTenantContextMiddleware_CompanyUnderWrongClientIs404(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	_, err := db.ExecContext(ctx, "INSERT INTO clients (name, slug) VALUES ('Acme', 'acme'), ('Globex', 'globex')")
	require.NoError(t, err)
	// North belongs to Acme, not Globex.
	_, err = db.ExecContext(ctx, "INSERT INTO companies (client_id, name, slug) VALUES (1, 'North', 'north')")
	require.NoError(t, err)

	m := NewTenantContextMiddleware(tenancy.NewStore(db), 16, time.Minute)
	router := mux.NewRouter()
	router.Handle("/v1/clients/{client}/companies/{company}",
		m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/clients/globex/companies/north", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTenantContextMiddleware_CacheExpires(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	_, err := db.ExecContext(ctx, "INSERT INTO clients (name, slug) VALUES ('Acme', 'acme')")
	require.NoError(t, err)

	m := NewTenantContextMiddleware(tenancy.NewStore(db), 16, 20*time.Millisecond)
	router := mux.NewRouter()
	router.Handle("/v1/clients/{client}", m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/clients/acme", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// Soft-delete the client; the cached entry serves until the TTL lapses.
	_, err = db.ExecContext(ctx, "UPDATE clients SET deleted_at = CURRENT_TIMESTAMP WHERE slug = 'acme'")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/clients/acme", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
