package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/latticebi/lattice/pkg/access"
	"github.com/latticebi/lattice/pkg/httputil"
	"github.com/latticebi/lattice/pkg/middleware"
	"github.com/latticebi/lattice/pkg/ownership"
	"github.com/latticebi/lattice/pkg/permissions"
)

// DecisionHandlers answers access checks for other services. A deny never
// explains itself: invisible resources 404 and everything else 403 with
// identical bodies.
type DecisionHandlers struct {
	engine *access.Engine
	log    *logrus.Logger
}

// NewDecisionHandlers creates decision handlers backed by the engine.
func NewDecisionHandlers(engine *access.Engine, log *logrus.Logger) *DecisionHandlers {
	return &DecisionHandlers{engine: engine, log: log}
}

// RegisterRoutes registers decision routes.
func (h *DecisionHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/v1/decisions", h.decide).Methods("POST")
}

type decisionRequest struct {
	Action   permissions.ID  `json:"action"`
	Resource access.Resource `json:"resource"`
}

type decisionResponse struct {
	Allowed bool           `json:"allowed"`
	Action  permissions.ID `json:"action"`
}

// decide handles POST /v1/decisions
func (h *DecisionHandlers) decide(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r)
	if ident == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req decisionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Action == "" {
		httputil.WriteBadRequest(w, "action is required")
		return
	}
	if req.Resource.ID <= 0 {
		httputil.WriteBadRequest(w, "resource.id must be positive")
		return
	}

	decision, err := h.engine.Decide(r.Context(), *ident, req.Action, req.Resource)
	if err != nil {
		if errors.Is(err, permissions.ErrUnknownPermission) || errors.Is(err, ownership.ErrInvalidDescriptor) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		h.log.WithError(err).WithFields(logrus.Fields{
			"action":        req.Action,
			"resource_kind": req.Resource.Kind,
			"resource_id":   req.Resource.ID,
		}).Error("access decision failed")
		httputil.WriteInternalError(w)
		return
	}

	if decision.Allowed {
		httputil.WriteJSON(w, http.StatusOK, decisionResponse{Allowed: true, Action: decision.Action})
		return
	}
	if decision.NotFound() {
		httputil.WriteNotFound(w)
		return
	}
	httputil.WriteForbidden(w)
}
