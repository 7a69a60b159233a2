package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/latticebi/lattice/pkg/access"
	"github.com/latticebi/lattice/pkg/httputil"
	"github.com/latticebi/lattice/pkg/middleware"
	"github.com/latticebi/lattice/pkg/permissions"
	"github.com/latticebi/lattice/pkg/tenancy"
)

// PermissionHandlers exposes the permission catalog and per-user effective
// permission sets.
type PermissionHandlers struct {
	engine  *access.Engine
	catalog *permissions.Catalog
	log     *logrus.Logger
}

// NewPermissionHandlers creates permission handlers.
func NewPermissionHandlers(engine *access.Engine, catalog *permissions.Catalog, log *logrus.Logger) *PermissionHandlers {
	return &PermissionHandlers{engine: engine, catalog: catalog, log: log}
}

// RegisterRoutes registers permission routes.
func (h *PermissionHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/v1/permissions", h.listPermissions).Methods("GET")
	router.HandleFunc("/v1/users/{id}/permissions", h.effectivePermissions).Methods("GET")
}

type permissionInfo struct {
	ID          permissions.ID       `json:"id"`
	Category    permissions.Category `json:"category"`
	Description string               `json:"description"`
	ReadOnly    bool                 `json:"read_only"`
}

// listPermissions handles GET /v1/permissions
func (h *PermissionHandlers) listPermissions(w http.ResponseWriter, r *http.Request) {
	ids := h.catalog.All()
	out := make([]permissionInfo, 0, len(ids))
	for _, id := range ids {
		cat, err := h.catalog.CategoryOf(id)
		if err != nil {
			continue
		}
		desc, _ := h.catalog.Describe(id)
		out = append(out, permissionInfo{
			ID:          id,
			Category:    cat,
			Description: desc,
			ReadOnly:    h.catalog.IsReadOnly(id),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"permissions": out})
}

// effectivePermissions handles GET /v1/users/{id}/permissions
func (h *PermissionHandlers) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	clientID, err := httputil.ParseQueryInt64(r, "client_id", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid client_id")
		return
	}
	if clientID <= 0 {
		httputil.WriteBadRequest(w, "client_id is required")
		return
	}
	companyID, err := httputil.ParseQueryInt64(r, "company_id", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid company_id")
		return
	}

	scope := tenancy.ClientScope(clientID)
	if companyID > 0 {
		scope = tenancy.CompanyScope(clientID, companyID)
	}

	h.writePermissions(w, r, userID, scope)
}

// companyPermissions handles GET /v1/clients/{client}/companies/{company}/users/{id}/permissions
// The tenant middleware has already resolved the slugs.
func (h *PermissionHandlers) companyPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	company := middleware.GetCompany(r)
	if company == nil {
		httputil.WriteNotFound(w)
		return
	}

	h.writePermissions(w, r, userID, tenancy.CompanyScope(company.ClientID, company.ID))
}

func (h *PermissionHandlers) writePermissions(w http.ResponseWriter, r *http.Request, userID int64, scope tenancy.Scope) {
	set, err := h.engine.EffectivePermissions(r.Context(), userID, scope)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("failed to resolve effective permissions")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":     userID,
		"scope":       scope.String(),
		"permissions": set.Sorted(),
	})
}
