package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"jumjum/backend/internal/domain"
)

const menuItemSubject = "Item"

func (a *API) handleListMenuItems(w http.ResponseWriter, r *http.Request) {
	items, err := a.catalog.GetAll(r.Context())
	if err != nil {
		a.fail(w, r, menuItemSubject, err)
		return
	}
	writeList(w, items)
}

func (a *API) handleListMenuItemsByType(isKitchen bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := a.catalog.GetByType(r.Context(), isKitchen)
		if err != nil {
			a.fail(w, r, menuItemSubject, err)
			return
		}
		writeList(w, items)
	}
}

func (a *API) handleLowStockMenuItems(w http.ResponseWriter, r *http.Request) {
	items, err := a.catalog.GetLowStock(r.Context())
	if err != nil {
		a.fail(w, r, menuItemSubject, err)
		return
	}
	writeList(w, items)
}

func (a *API) handleCreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var req domain.MenuItemCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, err := a.catalog.Create(r.Context(), req)
	if err != nil {
		a.fail(w, r, menuItemSubject, err)
		return
	}
	writeData(w, http.StatusCreated, item)
}

func (a *API) handleGetMenuItem(w http.ResponseWriter, r *http.Request) {
	item, err := a.catalog.GetByID(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		a.fail(w, r, menuItemSubject, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (a *API) handleUpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	var patch domain.MenuItemPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	item, err := a.catalog.Update(r.Context(), chi.URLParam(r, "itemId"), patch)
	if err != nil {
		a.fail(w, r, menuItemSubject, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (a *API) handleAdjustMenuItemStock(w http.ResponseWriter, r *http.Request) {
	var req domain.StockDeltaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "Please provide quantity")
		return
	}
	item, err := a.catalog.UpdateStock(r.Context(), chi.URLParam(r, "itemId"), *req.Quantity)
	if err != nil {
		a.fail(w, r, menuItemSubject, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (a *API) handleDeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	item, err := a.catalog.Delete(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		a.fail(w, r, menuItemSubject, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Item deleted successfully",
		"data":    item,
	})
}
