package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/latticebi/lattice/pkg/audit"
	"github.com/latticebi/lattice/pkg/contextkeys"
	"github.com/latticebi/lattice/pkg/grants"
	"github.com/latticebi/lattice/pkg/httputil"
	"github.com/latticebi/lattice/pkg/middleware"
	"github.com/latticebi/lattice/pkg/permissions"
)

// RoleHandlers manages roles, grant assignments, and company availability.
// Every grant mutation is audited; revocation takes effect on the next
// decision with no grace period.
type RoleHandlers struct {
	store    *grants.Store
	auditLog audit.Logger
	log      *logrus.Logger
}

// NewRoleHandlers creates role handlers.
func NewRoleHandlers(store *grants.Store, auditLog audit.Logger, log *logrus.Logger) *RoleHandlers {
	return &RoleHandlers{store: store, auditLog: auditLog, log: log}
}

// RegisterRoutes registers role and grant routes.
func (h *RoleHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/v1/roles", h.createRole).Methods("POST")
	router.HandleFunc("/v1/roles/{id}", h.getRole).Methods("GET")

	router.HandleFunc("/v1/grants/users", h.assignUserRole).Methods("POST")
	router.HandleFunc("/v1/grants/users/{id}", h.revokeUserRole).Methods("DELETE")
	router.HandleFunc("/v1/grants/groups", h.assignGroupRole).Methods("POST")
	router.HandleFunc("/v1/grants/groups/{id}", h.revokeGroupRole).Methods("DELETE")

	router.HandleFunc("/v1/availability", h.grantAvailability).Methods("POST")
	router.HandleFunc("/v1/availability", h.revokeAvailability).Methods("DELETE")
}

// createRole handles POST /v1/roles
func (h *RoleHandlers) createRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string           `json:"name"`
		Description string           `json:"description"`
		ClientID    *int64           `json:"client_id"`
		ProfileID   *int64           `json:"profile_id"`
		IsSystem    bool             `json:"is_system"`
		Permissions []permissions.ID `json:"permissions"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	role := &grants.Role{
		Name:        req.Name,
		Description: req.Description,
		ClientID:    req.ClientID,
		ProfileID:   req.ProfileID,
		IsSystem:    req.IsSystem,
		Permissions: req.Permissions,
		CreatedBy:   actorID(r),
	}
	if err := h.store.CreateRole(r.Context(), role); err != nil {
		if errors.Is(err, permissions.ErrUnknownPermission) || errors.Is(err, grants.ErrScopeMismatch) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		h.log.WithError(err).Error("failed to create role")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteCreated(w, role)
}

// getRole handles GET /v1/roles/{id}
func (h *RoleHandlers) getRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	role, err := h.store.GetRole(r.Context(), roleID)
	if err != nil {
		if errors.Is(err, grants.ErrRoleNotFound) {
			httputil.WriteNotFound(w)
			return
		}
		h.log.WithError(err).WithField("role_id", roleID).Error("failed to get role")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, role)
}

// assignUserRole handles POST /v1/grants/users
func (h *RoleHandlers) assignUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     int64   `json:"user_id"`
		RoleID     int64   `json:"role_id"`
		ClientID   *int64  `json:"client_id"`
		ProfileID  *int64  `json:"profile_id"`
		CompanyIDs []int64 `json:"company_ids"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequirePositive(w, req.UserID, "user_id") || !httputil.RequirePositive(w, req.RoleID, "role_id") {
		return
	}

	grant := &grants.UserTenantRole{
		UserID:     req.UserID,
		RoleID:     req.RoleID,
		ClientID:   req.ClientID,
		ProfileID:  req.ProfileID,
		CompanyIDs: req.CompanyIDs,
		GrantedBy:  actorID(r),
	}
	if err := h.store.AssignRoleToUser(r.Context(), grant); err != nil {
		h.writeGrantError(w, err)
		return
	}

	h.recordGrantEvent(r, audit.EventTypeRoleGrant, &grant.UserID, grant.RoleID, fmt.Sprintf("user_grant:%d", grant.ID))
	httputil.WriteCreated(w, grant)
}

// revokeUserRole handles DELETE /v1/grants/users/{id}
func (h *RoleHandlers) revokeUserRole(w http.ResponseWriter, r *http.Request) {
	grantID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.RevokeUserRole(r.Context(), grantID); err != nil {
		h.log.WithError(err).WithField("grant_id", grantID).Error("failed to revoke user role")
		httputil.WriteInternalError(w)
		return
	}

	h.recordGrantEvent(r, audit.EventTypeRoleRevoke, nil, 0, fmt.Sprintf("user_grant:%d", grantID))
	httputil.WriteNoContent(w)
}

// assignGroupRole handles POST /v1/grants/groups
func (h *RoleHandlers) assignGroupRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GroupID    int64   `json:"group_id"`
		RoleID     int64   `json:"role_id"`
		ClientID   *int64  `json:"client_id"`
		ProfileID  *int64  `json:"profile_id"`
		CompanyIDs []int64 `json:"company_ids"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequirePositive(w, req.GroupID, "group_id") || !httputil.RequirePositive(w, req.RoleID, "role_id") {
		return
	}

	grant := &grants.GroupTenantRole{
		GroupID:    req.GroupID,
		RoleID:     req.RoleID,
		ClientID:   req.ClientID,
		ProfileID:  req.ProfileID,
		CompanyIDs: req.CompanyIDs,
		GrantedBy:  actorID(r),
	}
	if err := h.store.AssignRoleToGroup(r.Context(), grant); err != nil {
		h.writeGrantError(w, err)
		return
	}

	h.recordGrantEvent(r, audit.EventTypeRoleGrant, nil, grant.RoleID, fmt.Sprintf("group_grant:%d group:%d", grant.ID, grant.GroupID))
	httputil.WriteCreated(w, grant)
}

// revokeGroupRole handles DELETE /v1/grants/groups/{id}
func (h *RoleHandlers) revokeGroupRole(w http.ResponseWriter, r *http.Request) {
	grantID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.RevokeGroupRole(r.Context(), grantID); err != nil {
		h.log.WithError(err).WithField("grant_id", grantID).Error("failed to revoke group role")
		httputil.WriteInternalError(w)
		return
	}

	h.recordGrantEvent(r, audit.EventTypeRoleRevoke, nil, 0, fmt.Sprintf("group_grant:%d", grantID))
	httputil.WriteNoContent(w)
}

// grantAvailability handles POST /v1/availability
func (h *RoleHandlers) grantAvailability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    int64 `json:"user_id"`
		ClientID  int64 `json:"client_id"`
		CompanyID int64 `json:"company_id"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequirePositive(w, req.UserID, "user_id") ||
		!httputil.RequirePositive(w, req.ClientID, "client_id") ||
		!httputil.RequirePositive(w, req.CompanyID, "company_id") {
		return
	}

	if err := h.store.GrantAvailability(r.Context(), req.UserID, req.ClientID, req.CompanyID); err != nil {
		h.log.WithError(err).Error("failed to grant availability")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteNoContent(w)
}

// revokeAvailability handles DELETE /v1/availability
func (h *RoleHandlers) revokeAvailability(w http.ResponseWriter, r *http.Request) {
	userID, err1 := httputil.ParseQueryInt64(r, "user_id", 0)
	clientID, err2 := httputil.ParseQueryInt64(r, "client_id", 0)
	companyID, err3 := httputil.ParseQueryInt64(r, "company_id", 0)
	if err1 != nil || err2 != nil || err3 != nil || userID <= 0 || clientID <= 0 || companyID <= 0 {
		httputil.WriteBadRequest(w, "user_id, client_id and company_id are required")
		return
	}

	if err := h.store.RevokeAvailability(r.Context(), userID, clientID, companyID); err != nil {
		h.log.WithError(err).Error("failed to revoke availability")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *RoleHandlers) writeGrantError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, grants.ErrRoleNotFound):
		httputil.WriteNotFound(w)
	case errors.Is(err, grants.ErrScopeMismatch), errors.Is(err, grants.ErrCompanyOutsideClient):
		httputil.WriteBadRequest(w, err.Error())
	default:
		h.log.WithError(err).Error("grant mutation failed")
		httputil.WriteInternalError(w)
	}
}

// recordGrantEvent audits a grant mutation. Audit failures are logged and
// swallowed; the mutation already happened.
func (h *RoleHandlers) recordGrantEvent(r *http.Request, eventType audit.EventType, subjectUser *int64, roleID int64, cause string) {
	event := &audit.Event{
		EventType: eventType,
		UserID:    subjectUser,
		Outcome:   audit.OutcomeAllow,
		Cause:     cause,
		RequestID: contextkeys.GetRequestID(r.Context()),
	}
	if roleID > 0 {
		event.ResourceKind = "role"
		event.ResourceID = &roleID
	}
	if err := h.auditLog.Record(r.Context(), event); err != nil {
		h.log.WithError(err).Warn("failed to record audit event")
	}
}

// actorID extracts the acting user from the request identity, if any.
func actorID(r *http.Request) *int64 {
	ident := middleware.GetIdentity(r)
	if ident == nil || ident.UserID <= 0 {
		return nil
	}
	id := ident.UserID
	return &id
}
