// Package middleware provides the HTTP middleware for the authorization
// service: caller identity extraction, tenant context resolution, and rate
// limiting.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/latticebi/lattice/pkg/access"
	"github.com/latticebi/lattice/pkg/config"
	"github.com/latticebi/lattice/pkg/contextkeys"
	"github.com/latticebi/lattice/pkg/httputil"
)

// Identity headers set by the API gateway after session validation.
const (
	HeaderUserID        = "X-Lattice-User-Id"
	HeaderClientID      = "X-Lattice-Client-Id"
	HeaderCompanyID     = "X-Lattice-Company-Id"
	HeaderPlatformAdmin = "X-Lattice-Platform-Admin"
)

// IdentityMiddleware extracts the caller identity from gateway headers.
// When no identity is present and the development fallback is enabled, a
// fixed identity is substituted; the decision engine itself never knows
// about environments. Without identity or fallback the request is
// rejected.
type IdentityMiddleware struct {
	dev config.DevConfig
}

// NewIdentityMiddleware creates the identity middleware.
func NewIdentityMiddleware(dev config.DevConfig) *IdentityMiddleware {
	return &IdentityMiddleware{dev: dev}
}

// Handler resolves the identity and stores it on the request context.
func (m *IdentityMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := identityFromHeaders(r)
		if !ok {
			if !m.dev.FallbackEnabled {
				httputil.WriteUnauthorized(w, "missing identity")
				return
			}
			ident = access.Identity{
				UserID:          m.dev.FallbackUserID,
				IsAuthenticated: false,
				IsPlatformAdmin: m.dev.FallbackAdmin,
			}
		}

		ctx := contextkeys.WithIdentity(r.Context(), &ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFromHeaders(r *http.Request) (access.Identity, bool) {
	rawUser := r.Header.Get(HeaderUserID)
	if rawUser == "" {
		return access.Identity{}, false
	}

	userID, err := strconv.ParseInt(rawUser, 10, 64)
	if err != nil || userID <= 0 {
		return access.Identity{}, false
	}

	ident := access.Identity{UserID: userID, IsAuthenticated: true}
	if raw := r.Header.Get(HeaderClientID); raw != "" {
		ident.ClientID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw := r.Header.Get(HeaderCompanyID); raw != "" {
		ident.CompanyID, _ = strconv.ParseInt(raw, 10, 64)
	}
	ident.IsPlatformAdmin = r.Header.Get(HeaderPlatformAdmin) == "true"

	return ident, true
}

// GetIdentity retrieves the identity placed on the context by Handler.
func GetIdentity(r *http.Request) *access.Identity {
	if ident, ok := r.Context().Value(contextkeys.IdentityKey).(*access.Identity); ok {
		return ident
	}
	return nil
}
