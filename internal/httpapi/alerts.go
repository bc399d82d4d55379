package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"restostock/backend/internal/domain"
)

func (a *API) handleRecipients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		enabledOnly := r.URL.Query().Get("enabled") == "true"
		recipients, err := a.service.ListRecipients(r.Context(), enabledOnly)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		a.writeSuccess(w, http.StatusOK, "recipients retrieved", recipients)
	case http.MethodPost:
		var req struct {
			Email string `json:"email"`
		}
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		recipient, err := a.service.AddRecipient(r.Context(), req.Email)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		a.writeSuccess(w, http.StatusCreated, "recipient added", recipient)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleRecipientByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		a.writeMethodNotAllowed(w)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/alerts/recipients/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 1 {
		a.writeError(w, http.StatusBadRequest, errors.New("invalid recipient id"))
		return
	}

	var update domain.RecipientUpdate
	if err := decodeJSON(r, &update); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	recipient, err := a.service.UpdateRecipient(r.Context(), id, update)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusOK, "recipient updated", recipient)
}

func (a *API) handleSendReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}

	var req struct {
		ReportType string `json:"report_type"`
		StartDate  string `json:"start_date"`
		EndDate    string `json:"end_date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	sent, failures, err := a.service.SendManualReport(r.Context(), req.ReportType, req.StartDate, req.EndDate)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusOK, "report dispatched", map[string]any{
		"sent":   sent,
		"failed": failures,
	})
}

func (a *API) handleAlertLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveInt(r.URL.Query().Get("limit"), 100, 500)
	logs, err := a.service.AlertHistory(r.Context(), limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusOK, "alert logs retrieved", logs)
}
