package api

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/latticebi/lattice/pkg/access"
	"github.com/latticebi/lattice/pkg/audit"
	"github.com/latticebi/lattice/pkg/grants"
	"github.com/latticebi/lattice/pkg/middleware"
	"github.com/latticebi/lattice/pkg/permissions"
	"github.com/latticebi/lattice/pkg/shares"
	"github.com/latticebi/lattice/pkg/tenancy"
)

// Server is the HTTP surface of the authorization service.
type Server struct {
	db      *sql.DB
	engine  *access.Engine
	catalog *permissions.Catalog
	router  *mux.Router
	log     *logrus.Logger

	decisionHandlers   *DecisionHandlers
	permissionHandlers *PermissionHandlers
	roleHandlers       *RoleHandlers
	shareHandlers      *ShareHandlers
}

// NewServer creates the API server and registers all routes.
func NewServer(db *sql.DB, engine *access.Engine, catalog *permissions.Catalog, auditLog audit.Logger, log *logrus.Logger) *Server {
	if auditLog == nil {
		auditLog = audit.NopLogger{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Server{
		db:      db,
		engine:  engine,
		catalog: catalog,
		router:  mux.NewRouter(),
		log:     log,
	}

	s.decisionHandlers = NewDecisionHandlers(engine, log)
	s.permissionHandlers = NewPermissionHandlers(engine, catalog, log)
	s.roleHandlers = NewRoleHandlers(grants.NewStore(db, catalog), auditLog, log)
	s.shareHandlers = NewShareHandlers(shares.NewStore(db), auditLog, log)

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes.
func (s *Server) setupRoutes() {
	s.decisionHandlers.RegisterRoutes(s.router)
	s.permissionHandlers.RegisterRoutes(s.router)
	s.roleHandlers.RegisterRoutes(s.router)
	s.shareHandlers.RegisterRoutes(s.router)

	// Slug-addressed routes used by the dashboard frontend. The tenant
	// middleware 404s unknown slugs and company slugs under the wrong
	// client before any handler runs.
	tenant := middleware.NewTenantContextMiddleware(tenancy.NewStore(s.db), 0, 0)
	scoped := s.router.PathPrefix("/v1/clients/{client}/companies/{company}").Subrouter()
	scoped.Use(tenant.Handler)
	scoped.HandleFunc("/users/{id}/permissions", s.permissionHandlers.companyPermissions).Methods("GET")
}

// Router returns the underlying router so callers can wrap it in middleware.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
