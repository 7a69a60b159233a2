// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/latticebi/lattice/pkg/contextkeys"
//   ctx = context.WithValue(ctx, contextkeys.IdentityKey, ident)
//   ident := ctx.Value(contextkeys.IdentityKey).(*access.Identity)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// IdentityKey contains the caller identity resolved by middleware
	// Set by: middleware.IdentityMiddleware (pkg/middleware/identity.go)
	// Required by: All decision endpoints
	// Type: *access.Identity
	IdentityKey Key = "identity"

	// ClientKey contains *tenancy.Client
	// Set by: middleware.TenantContextMiddleware (pkg/middleware/tenant.go)
	// Required by: Tenant-scoped endpoints
	// Type: *tenancy.Client
	ClientKey Key = "client"

	// CompanyKey contains *tenancy.Company
	// Set by: middleware.TenantContextMiddleware (pkg/middleware/tenant.go)
	// Required by: Company-scoped endpoints
	// Type: *tenancy.Company
	CompanyKey Key = "company"

	// RequestIDKey contains request ID string (UUID)
	// Set by: HTTP middleware, observability layer
	// Used by: Logger, audit trail, distributed tracing
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: Observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// Helper functions for type-safe context operations

// WithIdentity adds the caller identity to the context
func WithIdentity(ctx context.Context, ident interface{}) context.Context {
	return context.WithValue(ctx, IdentityKey, ident)
}

// WithClient adds the resolved client to the context
func WithClient(ctx context.Context, client interface{}) context.Context {
	return context.WithValue(ctx, ClientKey, client)
}

// WithCompany adds the resolved company to the context
func WithCompany(ctx context.Context, company interface{}) context.Context {
	return context.WithValue(ctx, CompanyKey, company)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
