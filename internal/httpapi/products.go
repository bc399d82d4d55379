package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"restostock/backend/internal/domain"
)

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listProducts(w, r)
	case http.MethodPost:
		a.addProduct(w, r)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.ProductFilter{
		Search:   query.Get("search"),
		Category: query.Get("category"),
		Page:     parsePositiveInt(query.Get("page"), 1, 0),
		Limit:    parsePositiveInt(query.Get("limit"), 20, 200),
	}

	page, err := a.service.ListProducts(r.Context(), filter)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	a.writeSuccess(w, http.StatusOK, "products retrieved", page)
}

func (a *API) addProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpsert
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	product, created, err := a.service.AddProduct(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	if created {
		a.writeSuccess(w, http.StatusCreated, "product created", product)
		return
	}
	a.writeSuccess(w, http.StatusOK, "product merged into existing stock", product)
}

func (a *API) handleProductByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/products/")
	if idStr == "" || strings.Contains(idStr, "/") {
		a.writeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 1 {
		a.writeError(w, http.StatusBadRequest, errors.New("invalid product id"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		product, err := a.service.GetProduct(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		a.writeSuccess(w, http.StatusOK, "product retrieved", product)
	case http.MethodPut:
		a.updateProduct(w, r, id)
	default:
		a.writeMethodNotAllowed(w)
	}
}

// productUpdateRequest keeps nullable fields as raw JSON so an explicit null
// (clear the value) is distinguishable from an absent key (leave unchanged).
type productUpdateRequest struct {
	Name         *string          `json:"name"`
	Category     *string          `json:"category"`
	Unit         *string          `json:"unit"`
	Quantity     *decimal.Decimal `json:"quantity"`
	Price        json.RawMessage  `json:"price"`
	ExpiryDate   json.RawMessage  `json:"expiry_date"`
	ReorderLevel *int             `json:"reorder_level"`
	SupplierID   json.RawMessage  `json:"supplier_id"`
}

func (a *API) updateProduct(w http.ResponseWriter, r *http.Request, id int64) {
	var req productUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	update := domain.ProductUpdate{
		Name:         req.Name,
		Category:     req.Category,
		Unit:         req.Unit,
		Quantity:     req.Quantity,
		ReorderLevel: req.ReorderLevel,
	}

	if len(req.Price) > 0 {
		if isJSONNull(req.Price) || isJSONEmptyString(req.Price) {
			update.ClearPrice = true
		} else {
			var price decimal.Decimal
			if err := json.Unmarshal(req.Price, &price); err != nil {
				a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid price: %w", err))
				return
			}
			update.Price = &price
		}
	}

	if len(req.ExpiryDate) > 0 {
		if isJSONNull(req.ExpiryDate) {
			update.ClearExpiry = true
		} else {
			var raw string
			if err := json.Unmarshal(req.ExpiryDate, &raw); err != nil {
				a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid expiry_date: %w", err))
				return
			}
			if raw == "" {
				update.ClearExpiry = true
			} else {
				expiry, err := time.Parse("2006-01-02", raw)
				if err != nil {
					a.writeError(w, http.StatusBadRequest, errors.New("expiry_date must be YYYY-MM-DD"))
					return
				}
				update.ExpiryDate = &expiry
			}
		}
	}

	if len(req.SupplierID) > 0 {
		if isJSONNull(req.SupplierID) || isJSONEmptyString(req.SupplierID) {
			update.ClearSupplier = true
		} else {
			var supplierID int64
			if err := json.Unmarshal(req.SupplierID, &supplierID); err != nil {
				a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid supplier_id: %w", err))
				return
			}
			update.SupplierID = &supplierID
		}
	}

	product, err := a.service.UpdateProduct(r.Context(), id, update)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusOK, "product updated", product)
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	products, err := a.service.LowStockProducts(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusOK, "low stock products retrieved", map[string]any{
		"count":    len(products),
		"products": products,
	})
}

func (a *API) handleProductUpload(w http.ResponseWriter, r *http.Request) {
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

	result, err := a.service.ImportProducts(r.Context(), file)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeSuccess(w, http.StatusOK, "product import finished", result)
}

func (a *API) handleProductExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	workbook, err := a.service.ExportProducts(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := workbook.Write(&buf); err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}

	filename := fmt.Sprintf("products_%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func multipartFile(r *http.Request) (interface {
	Read([]byte) (int, error)
	Close() error
}, error) {
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		return nil, fmt.Errorf("invalid multipart upload: %w", err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("missing file field")
	}
	return file, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// Empty strings clear nullable fields, same as an explicit null.
func isJSONEmptyString(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == `""`
}
