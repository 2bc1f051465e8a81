package http

import (
	"net/http"
	"strconv"

	"ticketdesk-backoffice/internal/service"
)

type ReportHandler struct {
	svc service.ReportingService
}

func NewReportHandler(svc service.ReportingService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

func (h *ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	days := service.DefaultReportDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}
	ov, err := h.svc.Overview(r.Context(), days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (h *ReportHandler) EmailStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.EmailStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
