package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/latticebi/lattice/pkg/contextkeys"
	"github.com/latticebi/lattice/pkg/httputil"
	"github.com/latticebi/lattice/pkg/tenancy"
)

// TenantContextMiddleware resolves the {client} (and optional {company})
// slug path variables to tenancy rows and stores them on the context.
// Slug lookups are cached briefly; deletes and renames converge within the
// TTL.
type TenantContextMiddleware struct {
	store     *tenancy.Store
	clients   *lru.LRU[string, *tenancy.Client]
	companies *lru.LRU[string, *tenancy.Company]
}

// NewTenantContextMiddleware creates the middleware with a slug cache of
// the given size and TTL.
func NewTenantContextMiddleware(store *tenancy.Store, cacheSize int, ttl time.Duration) *TenantContextMiddleware {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &TenantContextMiddleware{
		store:     store,
		clients:   lru.NewLRU[string, *tenancy.Client](cacheSize, nil, ttl),
		companies: lru.NewLRU[string, *tenancy.Company](cacheSize, nil, ttl),
	}
}

// Handler resolves tenant slugs for the request.
func (m *TenantContextMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		ctx := r.Context()

		clientSlug, ok := vars["client"]
		if !ok || clientSlug == "" {
			next.ServeHTTP(w, r)
			return
		}

		client, found := m.clients.Get(clientSlug)
		if !found {
			var err error
			client, err = m.store.GetClientBySlug(ctx, clientSlug)
			if errors.Is(err, tenancy.ErrClientNotFound) {
				httputil.WriteNotFound(w)
				return
			}
			if err != nil {
				httputil.WriteInternalError(w)
				return
			}
			m.clients.Add(clientSlug, client)
		}
		ctx = contextkeys.WithClient(ctx, client)

		if companySlug := vars["company"]; companySlug != "" {
			cacheKey := clientSlug + "/" + companySlug
			company, found := m.companies.Get(cacheKey)
			if !found {
				var err error
				company, err = m.store.GetCompanyBySlug(ctx, companySlug)
				if errors.Is(err, tenancy.ErrCompanyNotFound) {
					httputil.WriteNotFound(w)
					return
				}
				if err != nil {
					httputil.WriteInternalError(w)
					return
				}
				m.companies.Add(cacheKey, company)
			}

			// A company slug under the wrong client must 404, not leak.
			if company.ClientID != client.ID {
				httputil.WriteNotFound(w)
				return
			}
			ctx = contextkeys.WithCompany(ctx, company)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClient retrieves the client resolved by Handler.
func GetClient(r *http.Request) *tenancy.Client {
	if client, ok := r.Context().Value(contextkeys.ClientKey).(*tenancy.Client); ok {
		return client
	}
	return nil
}

// GetCompany retrieves the company resolved by Handler.
func GetCompany(r *http.Request) *tenancy.Company {
	if company, ok := r.Context().Value(contextkeys.CompanyKey).(*tenancy.Company); ok {
		return company
	}
	return nil
}
