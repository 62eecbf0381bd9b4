package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/enrollment"
	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/plan"
	"github.com/openlms-dev/openlms/modules/learning/services"
	"github.com/openlms-dev/openlms/pkg/composables"
	"github.com/openlms-dev/openlms/pkg/outbox"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		panic(err)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *services.ServiceError
	switch {
	case errors.As(err, &svcErr):
		writeJSON(w, svcErr.Status, &apiError{Code: svcErr.Code, Message: svcErr.Message})
	case errors.Is(err, outbox.ErrBusUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, &apiError{Code: "OUTBOX_BUS_UNAVAILABLE", Message: "event bus unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, &apiError{Code: "LEARN_INTERNAL", Message: "internal error"})
	}
}

type LearningAPIController struct {
	cascade  *services.CascadeService
	archive  *services.ArchiveService
	plans    *services.PlanService
	reassign *services.ReassignmentService
}

func NewLearningAPIController(
	cascade *services.CascadeService,
	archive *services.ArchiveService,
	plans *services.PlanService,
	reassign *services.ReassignmentService,
) *LearningAPIController {
	return &LearningAPIController{
		cascade:  cascade,
		archive:  archive,
		plans:    plans,
		reassign: reassign,
	}
}

func (c *LearningAPIController) Register(r *mux.Router) {
	api := r.PathPrefix("/api/v1/learning").Subrouter()
	api.HandleFunc("/enrollments/{id}/status", c.ChangeStatus).Methods(http.MethodPut)
	api.HandleFunc("/enrollments/{id}", c.ArchiveEnrollment).Methods(http.MethodDelete)
	api.HandleFunc("/plans", c.MergePlan).Methods(http.MethodPost)
	api.HandleFunc("/plans/{id}/due-date", c.UpdateDueDate).Methods(http.MethodPut)
	api.HandleFunc("/plans/{id}:reassign", c.ReassignPlan).Methods(http.MethodPost)
	api.HandleFunc("/plans:reassign", c.ReassignTarget).Methods(http.MethodPost)
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

type enrollmentResponse struct {
	ID        int64  `json:"id"`
	ContentID int64  `json:"lo_id"`
	UserID    int64  `json:"profile_id"`
	Status    string `json:"status"`
}

func (c *LearningAPIController) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req changeStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	actorID, _ := composables.UseActorID(r.Context())
	e, err := c.cascade.ChangeStatus(r.Context(), id, enrollment.Status(req.Status), actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &enrollmentResponse{
		ID:        e.ID,
		ContentID: e.ContentID,
		UserID:    e.UserID,
		Status:    string(e.Status),
	})
}

func (c *LearningAPIController) ArchiveEnrollment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	opts := services.DefaultArchiveOptions()
	if r.URL.Query().Get("children") == "false" {
		opts.Children = false
	}
	if r.URL.Query().Get("silent") == "true" {
		opts.Notify = false
	}

	if err := c.archive.Archive(r.Context(), id, opts); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type planReferenceRequest struct {
	SourceType string `json:"source_type"`
	SourceID   int64  `json:"source_id"`
}

type mergePlanRequest struct {
	UserID     int64                  `json:"user_id"`
	AssignerID int64                  `json:"assigner_id"`
	EntityID   int64                  `json:"entity_id"`
	DueAt      time.Time              `json:"due_date"`
	Note       string                 `json:"note"`
	Silent     bool                   `json:"silent"`
	References []planReferenceRequest `json:"references"`
}

type planResponse struct {
	ID int64 `json:"id"`
}

func (c *LearningAPIController) MergePlan(w http.ResponseWriter, r *http.Request) {
	var req mergePlanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tenantID, err := composables.UseTenantID(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, &apiError{Code: "LEARN_NO_PORTAL", Message: "portal id required"})
		return
	}

	refs := make([]plan.Reference, 0, len(req.References))
	for _, ref := range req.References {
		refs = append(refs, plan.Reference{SourceType: ref.SourceType, SourceID: ref.SourceID})
	}

	id, err := c.plans.Merge(r.Context(), &plan.Plan{
		TenantID:   tenantID,
		UserID:     req.UserID,
		AssignerID: req.AssignerID,
		EntityID:   req.EntityID,
		DueAt:      req.DueAt,
		Note:       req.Note,
	}, !req.Silent, refs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &planResponse{ID: id})
}

type dueDateRequest struct {
	DueAt time.Time `json:"due_date"`
}

func (c *LearningAPIController) UpdateDueDate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dueDateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := c.plans.UpdateDueDate(r.Context(), id, req.DueAt); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type reassignRequest struct {
	UserID     int64     `json:"user_id"`
	ContentID  int64     `json:"content_id"`
	AssignerID int64     `json:"assigner_id"`
	DueAt      time.Time `json:"due_date"`
	ReassignAt time.Time `json:"reassign_date"`
}

func (c *LearningAPIController) ReassignPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req reassignRequest
	if !decodeBody(w, r, &req) {
		return
	}

	newID, err := c.reassign.ReassignPlan(r.Context(), id, req.DueAt, req.ReassignAt, req.AssignerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &planResponse{ID: newID})
}

func (c *LearningAPIController) ReassignTarget(w http.ResponseWriter, r *http.Request) {
	var req reassignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tenantID, err := composables.UseTenantID(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, &apiError{Code: "LEARN_NO_PORTAL", Message: "portal id required"})
		return
	}

	newID, err := c.reassign.ReassignTarget(r.Context(), tenantID, req.UserID, req.ContentID, req.DueAt, req.ReassignAt, req.AssignerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &planResponse{ID: newID})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, &apiError{Code: "LEARN_BAD_ID", Message: "invalid id"})
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, &apiError{Code: "LEARN_BAD_REQUEST", Message: "invalid request body"})
		return false
	}
	return true
}
