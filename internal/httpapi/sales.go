package httpapi

import (
	"errors"
	"net/http"
	"time"

	"restostock/backend/internal/domain"
)

// saleSubmission accepts either a single sale or a batch of independent
// groups in one POST body.
type saleSubmission struct {
	Items    []domain.SaleItemInput `json:"items,omitempty"`
	SaleDate *time.Time             `json:"sale_date,omitempty"`
	Notes    string                 `json:"notes,omitempty"`
	Groups   []domain.BulkSaleGroup `json:"groups,omitempty"`
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.salesByDate(w, r)
	case http.MethodPost:
		a.recordSale(w, r)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) recordSale(w http.ResponseWriter, r *http.Request) {
	var req saleSubmission
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	if len(req.Groups) > 0 {
		if len(req.Items) > 0 {
			a.writeError(w, http.StatusBadRequest, errors.New("provide either items or groups, not both"))
			return
		}
		result, err := a.service.BulkRecordSales(r.Context(), req.Groups)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		a.writeSuccess(w, http.StatusOK, "bulk sales processed", result)
		return
	}

	sale, err := a.service.RecordSale(r.Context(), domain.SaleRequest{
		Items:    req.Items,
		SaleDate: req.SaleDate,
		Notes:    req.Notes,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusCreated, "sale recorded", sale)
}

func (a *API) salesByDate(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	day := time.Now().UTC()
	if dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, errors.New("date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	lines, err := a.service.SalesByDate(r.Context(), day)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusOK, "sales retrieved", map[string]any{
		"date":  day.Format("2006-01-02"),
		"count": len(lines),
		"sales": lines,
	})
}

func (a *API) handleSalesUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}

	file, err := multipartFile(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	defer func() { _ = file.Close() }()

	result, err := a.service.ImportSales(r.Context(), file)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusOK, "sales import finished", result)
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	reportType := query.Get("type")
	startDate := query.Get("startDate")
	endDate := query.Get("endDate")
	if reportType == "" && startDate != "" && endDate != "" {
		reportType = domain.ReportTypeCustom
	}

	report, err := a.service.SalesReport(r.Context(), reportType, startDate, endDate)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusOK, "sales report generated", report)
}

func (a *API) handlePurchases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}

	var req domain.PurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	purchase, err := a.service.RecordPurchase(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusCreated, "purchase recorded", purchase)
}

func (a *API) handlePurchaseReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	reportType := query.Get("type")
	startDate := query.Get("startDate")
	endDate := query.Get("endDate")
	if date := query.Get("date"); date != "" {
		reportType = domain.ReportTypeCustom
		startDate, endDate = date, date
	} else if reportType == "" && startDate != "" && endDate != "" {
		reportType = domain.ReportTypeCustom
	}

	report, err := a.service.PurchaseReport(r.Context(), reportType, startDate, endDate)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusOK, "purchase report generated", report)
}
