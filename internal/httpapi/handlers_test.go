package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jumjum/backend/internal/domain"
	"jumjum/backend/internal/service"
	"jumjum/backend/internal/store/memory"
)

// newTestAPI builds a full API over the seeded in-memory store with the
// default staff accounts in place.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	catalog := service.NewCatalog(repo, nil)
	billing := service.NewBilling(repo, catalog, service.BillingOptions{
		TaxRatePercent: 5,
		Location:       time.UTC,
	})
	identity := service.NewIdentity(repo, "", service.SeedPasswords{}, nil)
	_, err := identity.SeedDefaultUsers(context.Background())
	require.NoError(t, err)

	return New(Services{
		Catalog:   catalog,
		Billing:   billing,
		Inventory: service.NewInventory(repo, nil),
		Identity:  identity,
	}, NewAuthManager("test-secret-key-with-enough-length!", time.Hour), Options{
		AllowedOrigin:        "*",
		Location:             time.UTC,
		ExposeInternalErrors: true,
	})
}

func doJSON(t *testing.T, h http.Handler, method string, path string, body any, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	}
	return rec, decoded
}

func TestRootAndHealth(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec, body := doJSON(t, h, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "JumJum Backend API is running!", body["message"])
	assert.Equal(t, "1.0.0", body["version"])
	assert.Contains(t, body, "endpoints")

	rec, body = doJSON(t, h, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestUnknownRouteReturnsEnvelope(t *testing.T) {
	rec, body := doJSON(t, newTestAPI(t).Handler(), http.MethodGet, "/api/nope", nil, "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Endpoint not found", body["error"])
}

func TestMenuItemLifecycle(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec, body := doJSON(t, h, http.MethodPost, "/api/menu-items", domain.MenuItemCreateRequest{
		ItemID: "BAR-BIR-01", Name: "Bintang", Price: 35000, Category: "beer", Stock: 24,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "BAR-BIR-01", body["data"].(map[string]any)["itemId"])

	rec, body = doJSON(t, h, http.MethodPost, "/api/menu-items", domain.MenuItemCreateRequest{
		ItemID: "BAR-BIR-01", Name: "Other", Price: 1, Category: "beer",
	}, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, body = doJSON(t, h, http.MethodPatch, "/api/menu-items/BAR-BIR-01/stock", map[string]int{"quantity": -30}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, -6, body["data"].(map[string]any)["stock"])

	rec, _ = doJSON(t, h, http.MethodPatch, "/api/menu-items/BAR-BIR-01/stock", map[string]any{}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = doJSON(t, h, http.MethodGet, "/api/menu-items/low-stock", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	rec, body = doJSON(t, h, http.MethodGet, "/api/menu-items/kitchen", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["count"])

	rec, body = doJSON(t, h, http.MethodPut, "/api/menu-items/BAR-BIR-01", map[string]any{"itemId": "BAR-BIR-02"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, _ = doJSON(t, h, http.MethodDelete, "/api/menu-items/BAR-BIR-01", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = doJSON(t, h, http.MethodGet, "/api/menu-items/BAR-BIR-01", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Item not found", body["error"])
}

func TestSubmitBillCreatesThenMerges(t *testing.T) {
	h := newTestAPI(t).Handler()
	customer := &domain.Customer{Name: "Ayu", Phone: "0812"}

	rec, body := doJSON(t, h, http.MethodPost, "/api/billing", domain.BillSubmitRequest{
		Customer: customer,
		Items:    []domain.LineItem{{ItemID: "BAR-ESP-01", Name: "Espresso", Price: 25000, Quantity: 2}},
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, false, body["isUpdate"])
	assert.Nil(t, body["kitchenOrder"])
	billID := body["data"].(map[string]any)["billId"].(string)

	rec, body = doJSON(t, h, http.MethodPost, "/api/billing", domain.BillSubmitRequest{
		Customer: customer,
		Items:    []domain.LineItem{{ItemID: "KIT-NGR-01", Name: "Nasi Goreng", Price: 38000, Quantity: 1, IsKitchen: true}},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["isUpdate"])
	bill := body["data"].(map[string]any)
	assert.Equal(t, billID, bill["billId"])
	assert.Len(t, bill["items"], 2)
	assert.NotNil(t, body["kitchenOrder"])
	assert.Len(t, body["stockAdjustments"], 1)

	rec, body = doJSON(t, h, http.MethodGet, "/api/menu-items/BAR-ESP-01", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 98, body["data"].(map[string]any)["stock"])

	rec, body = doJSON(t, h, http.MethodGet, "/api/billing/find-by-phone/0812", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["exists"])

	rec, body = doJSON(t, h, http.MethodGet, "/api/billing/find-by-phone/0999", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["exists"])
	assert.Nil(t, body["data"])
}

func TestSubmitBillValidation(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec, body := doJSON(t, h, http.MethodPost, "/api/billing", domain.BillSubmitRequest{}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, _ = doJSON(t, h, http.MethodPost, "/api/billing", map[string]any{"customer": map[string]string{"name": "x"}, "tableNo": 4}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplaceAndCloseBill(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec, body := doJSON(t, h, http.MethodPost, "/api/billing", domain.BillSubmitRequest{
		Customer: &domain.Customer{Name: "Budi"},
		Items:    []domain.LineItem{{ItemID: "BAR-TEA-01", Name: "Iced Lemon Tea", Price: 18000, Quantity: 3}},
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	billID := body["data"].(map[string]any)["billId"].(string)

	rec, body = doJSON(t, h, http.MethodPut, "/api/billing/"+billID, domain.BillReplaceRequest{
		Items: []domain.LineItem{{ItemID: "BAR-TEA-01", Name: "Iced Lemon Tea", Price: 18000, Quantity: 1}},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, body["stockAdjustments"], 1)

	rec, body = doJSON(t, h, http.MethodGet, "/api/menu-items/BAR-TEA-01", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 79, body["data"].(map[string]any)["stock"])

	rec, body = doJSON(t, h, http.MethodPatch, "/api/billing/"+billID+"/status", domain.BillStatusRequest{Status: domain.BillStatusCompleted}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.BillStatusCompleted, body["data"].(map[string]any)["status"])

	rec, body = doJSON(t, h, http.MethodGet, "/api/billing/pending", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["count"])

	rec, body = doJSON(t, h, http.MethodGet, "/api/billing/BILL-NOPE", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Bill not found", body["error"])
}

func TestBillQueries(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec, _ := doJSON(t, h, http.MethodPost, "/api/billing", domain.BillSubmitRequest{
		Customer: &domain.Customer{Name: "Citra"},
		Items:    []domain.LineItem{{ItemID: "BAR-LAT-01", Name: "Cafe Latte", Price: 32000, Quantity: 1}},
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := doJSON(t, h, http.MethodGet, "/api/billing?limit=5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	rec, body = doJSON(t, h, http.MethodGet, "/api/billing/today", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	today := time.Now().UTC().Format(dateLayout)
	rec, body = doJSON(t, h, http.MethodGet, "/api/billing/range?from="+today+"&to="+today, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, body["count"])

	rec, _ = doJSON(t, h, http.MethodGet, "/api/billing/range?from=yesterday&to="+today, nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = doJSON(t, h, http.MethodGet, "/api/billing/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := body["data"].(map[string]any)
	assert.EqualValues(t, 1, stats["totalBills"])
	assert.EqualValues(t, 33600, stats["totalRevenue"])
}

func TestInventoryEndpoints(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec, body := doJSON(t, h, http.MethodPost, "/api/kitchen-inventory", map[string]any{"name": "Beras", "quantity": 3, "unit": "kg"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := body["data"].(map[string]any)
	assert.Equal(t, domain.InventoryStatusLow, item["status"])
	inventoryID := item["inventoryId"].(string)

	rec, _ = doJSON(t, h, http.MethodPost, "/api/kitchen-inventory", map[string]any{"name": "Garam", "status": "available"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = doJSON(t, h, http.MethodGet, "/api/kitchen-inventory/low-stock", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	rec, _ = doJSON(t, h, http.MethodPatch, "/api/kitchen-inventory/"+inventoryID+"/refill", map[string]int{"quantity": -1}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = doJSON(t, h, http.MethodPatch, "/api/kitchen-inventory/"+inventoryID+"/refill", map[string]int{"quantity": 25}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	item = body["data"].(map[string]any)
	assert.Equal(t, domain.InventoryStatusAvailable, item["status"])
	assert.NotNil(t, item["lastRefilled"])

	rec, _ = doJSON(t, h, http.MethodPatch, "/api/kitchen-inventory/"+inventoryID+"/status", domain.InventoryStatusRequest{Status: "gone"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, h, http.MethodDelete, "/api/kitchen-inventory/"+inventoryID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = doJSON(t, h, http.MethodGet, "/api/kitchen-inventory/"+inventoryID, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Inventory item not found", body["error"])
}

func TestInventoryUpdateKeepsStoredThresholdAndQuantity(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec, body := doJSON(t, h, http.MethodPost, "/api/kitchen-inventory", map[string]any{"name": "Gula", "quantity": 1, "minStock": 3}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inventoryID := body["data"].(map[string]any)["inventoryId"].(string)

	rec, body = doJSON(t, h, http.MethodPut, "/api/kitchen-inventory/"+inventoryID, map[string]any{"name": "Gula", "quantity": 5}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	item := body["data"].(map[string]any)
	assert.EqualValues(t, 5, item["quantity"])
	assert.EqualValues(t, 3, item["minStock"])
	assert.Equal(t, domain.InventoryStatusAvailable, item["status"])

	rec, body = doJSON(t, h, http.MethodPut, "/api/kitchen-inventory/"+inventoryID, map[string]any{"name": "Gula Aren"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	item = body["data"].(map[string]any)
	assert.Equal(t, "Gula Aren", item["name"])
	assert.EqualValues(t, 5, item["quantity"])
	assert.Equal(t, domain.InventoryStatusAvailable, item["status"])
}
