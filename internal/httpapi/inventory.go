package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"jumjum/backend/internal/domain"
)

const inventorySubject = "Inventory item"

func (a *API) handleListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := a.inventory.GetAll(r.Context())
	if err != nil {
		a.fail(w, r, inventorySubject, err)
		return
	}
	writeList(w, items)
}

func (a *API) handleLowStockInventory(w http.ResponseWriter, r *http.Request) {
	items, err := a.inventory.GetLowStock(r.Context())
	if err != nil {
		a.fail(w, r, inventorySubject, err)
		return
	}
	writeList(w, items)
}

func (a *API) handleCreateInventory(w http.ResponseWriter, r *http.Request) {
	var req domain.InventoryItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, err := a.inventory.Create(r.Context(), req)
	if err != nil {
		a.fail(w, r, inventorySubject, err)
		return
	}
	writeData(w, http.StatusCreated, item)
}

func (a *API) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	item, err := a.inventory.GetByID(r.Context(), chi.URLParam(r, "inventoryId"))
	if err != nil {
		a.fail(w, r, inventorySubject, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (a *API) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	var req domain.InventoryItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, err := a.inventory.Update(r.Context(), chi.URLParam(r, "inventoryId"), req)
	if err != nil {
		a.fail(w, r, inventorySubject, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (a *API) handleInventoryStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.InventoryStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, err := a.inventory.SetStatus(r.Context(), chi.URLParam(r, "inventoryId"), req.Status)
	if err != nil {
		a.fail(w, r, inventorySubject, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (a *API) handleRefillInventory(w http.ResponseWriter, r *http.Request) {
	var req domain.InventoryRefillRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == nil || *req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "Please provide valid quantity")
		return
	}
	item, err := a.inventory.Refill(r.Context(), chi.URLParam(r, "inventoryId"), *req.Quantity)
	if err != nil {
		a.fail(w, r, inventorySubject, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (a *API) handleDeleteInventory(w http.ResponseWriter, r *http.Request) {
	if err := a.inventory.Delete(r.Context(), chi.URLParam(r, "inventoryId")); err != nil {
		a.fail(w, r, inventorySubject, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Inventory item deleted",
	})
}
