package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"restostock/backend/internal/domain"
	"restostock/backend/internal/mailer"
	"restostock/backend/internal/service"
	"restostock/backend/internal/store/memory"
)

func newTestAPI(t *testing.T) (*httptest.Server, string, string) {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, mailer.Noop{}, nil)
	auth := NewAuthManager("test-secret", time.Hour, repo)
	api := New(svc, auth, "*", nil)

	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)

	return server, login(t, server, "admin", "admin123"), login(t, server, "staff", "staff123")
}

func login(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env struct {
		Data domain.LoginResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.NotEmpty(t, env.Data.AccessToken)
	return env.Data.AccessToken
}

func doJSON(t *testing.T, method, url, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, url, &body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	server, _, _ := newTestAPI(t)

	body, _ := json.Marshal(domain.LoginRequest{Username: "admin", Password: "wrong"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	server, _, _ := newTestAPI(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/products", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, false, body["success"])
}

func TestRecordSaleEndpoint(t *testing.T) {
	server, _, staffToken := newTestAPI(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/sales", staffToken, map[string]any{
		"items": []map[string]any{{"product_id": 1, "quantity": "10"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, true, body["success"])

	data := body["data"].(map[string]any)
	order := data["order"].(map[string]any)
	require.Equal(t, "500", order["total_amount"])
}

func TestRecordSaleInsufficientStockIs409(t *testing.T) {
	server, _, staffToken := newTestAPI(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/sales", staffToken, map[string]any{
		"items": []map[string]any{{"product_id": 1, "quantity": "100000"}},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, false, body["success"])
}

func TestRecordSaleUnknownProductIs404(t *testing.T) {
	server, _, staffToken := newTestAPI(t)

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/sales", staffToken, map[string]any{
		"items": []map[string]any{{"product_id": 424242, "quantity": "1"}},
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecordSaleEmptyItemsIs400(t *testing.T) {
	server, _, staffToken := newTestAPI(t)

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/sales", staffToken, map[string]any{
		"items": []map[string]any{},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddProductIsAdminOnly(t *testing.T) {
	server, adminToken, staffToken := newTestAPI(t)

	payload := map[string]any{
		"name": "Garlic", "category": "Vegetable", "unit": "kg", "quantity": "10",
	}

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/products", staffToken, payload)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/products", adminToken, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "product created", body["message"])

	// Same identity again merges.
	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/products", adminToken, payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body["message"], "merged")
}

func TestUpdateProductEndpoint(t *testing.T) {
	server, adminToken, _ := newTestAPI(t)

	resp, body := doJSON(t, http.MethodPut, server.URL+"/api/products/1", adminToken, map[string]any{
		"quantity": "55.5",
		"price":    nil,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := body["data"].(map[string]any)
	require.Equal(t, "55.5", data["quantity"])
	require.Nil(t, data["price"], "explicit null clears the price")

	resp, _ = doJSON(t, http.MethodPut, server.URL+"/api/products/1", adminToken, map[string]any{
		"name": "Onion",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPut, server.URL+"/api/products/999", adminToken, map[string]any{
		"quantity": "1",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateProductEmptyStringClearsNullableFields(t *testing.T) {
	server, adminToken, _ := newTestAPI(t)

	resp, body := doJSON(t, http.MethodPut, server.URL+"/api/products/1", adminToken, map[string]any{
		"supplier_id": 7,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	require.EqualValues(t, 7, data["supplier_id"])

	resp, body = doJSON(t, http.MethodPut, server.URL+"/api/products/1", adminToken, map[string]any{
		"price":       "",
		"supplier_id": "",
		"expiry_date": "",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = body["data"].(map[string]any)
	require.Nil(t, data["price"])
	require.Nil(t, data["supplier_id"])
	require.Nil(t, data["expiry_date"])
}

func TestListProductsPagination(t *testing.T) {
	server, adminToken, _ := newTestAPI(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/products?page=1&limit=2", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := body["data"].(map[string]any)
	require.Len(t, data["products"], 2)
	require.EqualValues(t, 5, data["total"])
}

func TestLowStockEndpoint(t *testing.T) {
	server, adminToken, _ := newTestAPI(t)

	resp, _ := doJSON(t, http.MethodPut, server.URL+"/api/products/4", adminToken, map[string]any{
		"quantity": "2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/products/low-stock", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	require.EqualValues(t, 1, data["count"])
}

func TestSalesReportEndpoint(t *testing.T) {
	server, adminToken, staffToken := newTestAPI(t)

	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/sales", staffToken, map[string]any{
			"items": []map[string]any{{"product_id": 1, "quantity": "5"}},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/sales/report?type=daily", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := body["data"].(map[string]any)
	summary := data["summary"].(map[string]any)
	require.EqualValues(t, 2, summary["total_orders"])
	require.Equal(t, "500", summary["total_revenue"])

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/sales/report?type=custom", adminToken, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "custom without bounds")

	resp, _ = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/sales/report?startDate=%s&endDate=%s", server.URL, "2000-01-01", "2000-01-02"),
		adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRecipientLifecycle(t *testing.T) {
	server, adminToken, staffToken := newTestAPI(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/alerts/recipients", adminToken, map[string]any{
		"email": "chef@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	id := int64(data["recipient_id"].(float64))

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/alerts/recipients", adminToken, map[string]any{
		"email": "chef@example.com",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/alerts/recipients", adminToken, map[string]any{
		"email": "not-an-email",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPut,
		fmt.Sprintf("%s/api/alerts/recipients/%d", server.URL, id), adminToken, map[string]any{
			"auto_alerts": false,
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = body["data"].(map[string]any)
	require.Equal(t, false, data["auto_alerts"])

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/alerts/recipients", staffToken, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestListRecipientsEnabledFilter(t *testing.T) {
	server, adminToken, _ := newTestAPI(t)

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/alerts/recipients", adminToken, map[string]any{
		"email": "chef@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/alerts/recipients", adminToken, map[string]any{
		"email": "former-chef@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	disabledID := int64(body["data"].(map[string]any)["recipient_id"].(float64))

	resp, _ = doJSON(t, http.MethodPut,
		fmt.Sprintf("%s/api/alerts/recipients/%d", server.URL, disabledID), adminToken, map[string]any{
			"enabled": false,
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/alerts/recipients", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["data"], 2)

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/alerts/recipients?enabled=true", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	recipients := body["data"].([]any)
	require.Len(t, recipients, 1)
	require.Equal(t, "chef@example.com", recipients[0].(map[string]any)["email"])
}

func TestPurchaseEndpoints(t *testing.T) {
	server, adminToken, _ := newTestAPI(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/purchases", adminToken, map[string]any{
		"items": []map[string]any{
			{"product_id": 1, "quantity": "20", "unit_price": "45"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	require.Equal(t, "900", data["total_amount"])

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/purchase-report?type=daily", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = body["data"].(map[string]any)
	summary := data["summary"].(map[string]any)
	require.EqualValues(t, 1, summary["total_purchases"])
}
