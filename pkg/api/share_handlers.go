package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/latticebi/lattice/pkg/audit"
	"github.com/latticebi/lattice/pkg/contextkeys"
	"github.com/latticebi/lattice/pkg/httputil"
	"github.com/latticebi/lattice/pkg/shares"
)

// ShareHandlers manages per-resource shares. Only cards and dashboards are
// shareable; integrations never are.
type ShareHandlers struct {
	store    *shares.Store
	auditLog audit.Logger
	log      *logrus.Logger
}

// NewShareHandlers creates share handlers.
func NewShareHandlers(store *shares.Store, auditLog audit.Logger, log *logrus.Logger) *ShareHandlers {
	return &ShareHandlers{store: store, auditLog: auditLog, log: log}
}

// RegisterRoutes registers share routes.
func (h *ShareHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/v1/shares", h.createShare).Methods("POST")
	router.HandleFunc("/v1/shares", h.listShares).Methods("GET")
	router.HandleFunc("/v1/shares/{id}", h.deleteShare).Methods("DELETE")
}

// createShare handles POST /v1/shares
func (h *ShareHandlers) createShare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetKind  shares.TargetKind  `json:"target_kind"`
		TargetID    int64              `json:"target_id"`
		SubjectKind shares.SubjectKind `json:"subject_kind"`
		SubjectID   int64              `json:"subject_id"`
		Level       string             `json:"level"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.TargetKind != shares.TargetCard && req.TargetKind != shares.TargetDashboard {
		httputil.WriteBadRequest(w, "target_kind must be card or dashboard")
		return
	}
	if req.SubjectKind != shares.SubjectUser && req.SubjectKind != shares.SubjectGroup {
		httputil.WriteBadRequest(w, "subject_kind must be user or group")
		return
	}
	if !httputil.RequirePositive(w, req.TargetID, "target_id") || !httputil.RequirePositive(w, req.SubjectID, "subject_id") {
		return
	}
	level := shares.ParseLevel(req.Level)
	if level == shares.LevelNone {
		httputil.WriteBadRequest(w, "level must be view or edit")
		return
	}

	share := &shares.Share{
		TargetKind:  req.TargetKind,
		TargetID:    req.TargetID,
		SubjectKind: req.SubjectKind,
		SubjectID:   req.SubjectID,
		Level:       level,
		CreatedBy:   actorID(r),
	}
	if err := h.store.Create(r.Context(), share); err != nil {
		h.log.WithError(err).Error("failed to create share")
		httputil.WriteInternalError(w)
		return
	}

	h.recordShareEvent(r, audit.EventTypeShareCreate, share.TargetKind, share.TargetID,
		fmt.Sprintf("%s:%d level:%s", share.SubjectKind, share.SubjectID, level))
	httputil.WriteCreated(w, share)
}

// listShares handles GET /v1/shares
func (h *ShareHandlers) listShares(w http.ResponseWriter, r *http.Request) {
	kind := shares.TargetKind(httputil.ParseQueryString(r, "target_kind", ""))
	if kind != shares.TargetCard && kind != shares.TargetDashboard {
		httputil.WriteBadRequest(w, "target_kind must be card or dashboard")
		return
	}
	targetID, err := httputil.ParseQueryInt64(r, "target_id", 0)
	if err != nil || targetID <= 0 {
		httputil.WriteBadRequest(w, "target_id is required")
		return
	}

	out, err := h.store.ListForTarget(r.Context(), kind, targetID)
	if err != nil {
		h.log.WithError(err).Error("failed to list shares")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"shares": out})
}

// deleteShare handles DELETE /v1/shares/{id}
func (h *ShareHandlers) deleteShare(w http.ResponseWriter, r *http.Request) {
	shareID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), shareID); err != nil {
		h.log.WithError(err).WithField("share_id", shareID).Error("failed to delete share")
		httputil.WriteInternalError(w)
		return
	}

	h.recordShareEvent(r, audit.EventTypeShareRevoke, "", 0, fmt.Sprintf("share:%d", shareID))
	httputil.WriteNoContent(w)
}

func (h *ShareHandlers) recordShareEvent(r *http.Request, eventType audit.EventType, kind shares.TargetKind, targetID int64, cause string) {
	event := &audit.Event{
		EventType: eventType,
		UserID:    actorID(r),
		Outcome:   audit.OutcomeAllow,
		Cause:     cause,
		RequestID: contextkeys.GetRequestID(r.Context()),
	}
	if targetID > 0 {
		event.ResourceKind = string(kind)
		event.ResourceID = &targetID
	}
	if err := h.auditLog.Record(r.Context(), event); err != nil {
		h.log.WithError(err).Warn("failed to record audit event")
	}
}
