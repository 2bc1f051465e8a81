package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"ticketdesk-backoffice/internal/domain"
	"ticketdesk-backoffice/internal/service"
)

type RegistrationHandler struct {
	svc       service.RegistrationService
	approvals service.ApprovalService
}

func NewRegistrationHandler(svc service.RegistrationService, approvals service.ApprovalService) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, approvals: approvals}
}

// Submit handles the public access request form.
func (h *RegistrationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reg, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     reg.ID,
		"status": reg.Status,
	})
}

func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.RegistrationFilter{
		Status:     domain.RegistrationStatus(q.Get("status")),
		Search:     q.Get("search"),
		Preference: q.Get("preference"),
		SortField:  domain.SortField(q.Get("sort")),
		SortDesc:   !strings.EqualFold(q.Get("order"), "asc"),
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	page, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *RegistrationHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	mode := domain.MatchExact
	switch r.URL.Query().Get("mode") {
	case "", "exact":
	case "case_insensitive", "insensitive", "ci":
		mode = domain.MatchCaseInsensitive
	default:
		writeError(w, http.StatusBadRequest, "mode must be exact or case_insensitive")
		return
	}
	regs, err := h.svc.Lookup(r.Context(), r.URL.Query().Get("email"), mode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

func (h *RegistrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	reg, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (h *RegistrationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	res := h.approvals.Approve(r.Context(), mux.Vars(r)["id"])
	writeJSON(w, statusForCode(res.Code), res)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *RegistrationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	// The body is optional; an empty one, chunked or not, means no reason.
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res := h.approvals.Reject(r.Context(), mux.Vars(r)["id"], strings.TrimSpace(req.Reason))
	writeJSON(w, statusForCode(res.Code), res)
}

func (h *RegistrationHandler) Resend(w http.ResponseWriter, r *http.Request) {
	res := h.approvals.ResendConfirmation(r.Context(), mux.Vars(r)["id"])
	writeJSON(w, statusForCode(res.Code), res)
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (h *RegistrationHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.UpdateNotes(r.Context(), mux.Vars(r)["id"], req.Notes); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *RegistrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *RegistrationHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Deliveries(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *RegistrationHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := service.ExportFormat(strings.ToLower(r.URL.Query().Get("format")))
	if format == "" {
		format = service.ExportCSV
	}
	data, contentType, err := h.svc.Export(r.Context(), format)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	filename := "registrations-" + time.Now().UTC().Format("20060102") + "." + string(format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
