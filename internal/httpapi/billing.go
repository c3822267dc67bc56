package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"jumjum/backend/internal/domain"
)

const (
	billSubject   = "Bill"
	billListLimit = 1000
	dateLayout    = "2006-01-02"
)

func (a *API) handleListBills(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, billListLimit)
	bills, err := a.billing.GetAll(r.Context(), limit)
	if err != nil {
		a.fail(w, r, billSubject, err)
		return
	}
	writeList(w, bills)
}

func (a *API) handleSubmitBill(w http.ResponseWriter, r *http.Request) {
	var req domain.BillSubmitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := a.billing.AddOrCreate(r.Context(), req)
	if err != nil {
		a.fail(w, r, billSubject, err)
		return
	}
	status := http.StatusCreated
	if result.IsUpdate {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"success":          true,
		"isUpdate":         result.IsUpdate,
		"data":             result.Bill,
		"kitchenOrder":     result.KitchenOrder,
		"stockAdjustments": nonNilAdjustments(result.StockAdjustments),
	})
}

func (a *API) handlePendingBills(w http.ResponseWriter, r *http.Request) {
	bills, err := a.billing.GetPending(r.Context())
	if err != nil {
		a.fail(w, r, billSubject, err)
		return
	}
	writeList(w, bills)
}

func (a *API) handleTodayBills(w http.ResponseWriter, r *http.Request) {
	bills, err := a.billing.GetToday(r.Context())
	if err != nil {
		a.fail(w, r, billSubject, err)
		return
	}
	writeList(w, bills)
}

func (a *API) handleBillStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.billing.GetStats(r.Context())
	if err != nil {
		a.fail(w, r, billSubject, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

// handleBillsByRange treats both dates as calendar days in the restaurant's
// time zone, so the to day is included in full.
func (a *API) handleBillsByRange(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := time.ParseInLocation(dateLayout, strings.TrimSpace(query.Get("from")), a.location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be a date in YYYY-MM-DD format")
		return
	}
	to, err := time.ParseInLocation(dateLayout, strings.TrimSpace(query.Get("to")), a.location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be a date in YYYY-MM-DD format")
		return
	}
	bills, err := a.billing.GetByDateRange(r.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		a.fail(w, r, billSubject, err)
		return
	}
	writeList(w, bills)
}

func (a *API) handleFindBillByPhone(w http.ResponseWriter, r *http.Request) {
	bill, err := a.billing.FindOpenBillForPhoneToday(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		a.fail(w, r, billSubject, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"exists":  bill != nil,
		"data":    bill,
	})
}

func (a *API) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := a.billing.GetByID(r.Context(), chi.URLParam(r, "billId"))
	if err != nil {
		a.fail(w, r, billSubject, err)
		return
	}
	writeData(w, http.StatusOK, bill)
}

func (a *API) handleReplaceBill(w http.ResponseWriter, r *http.Request) {
	var req domain.BillReplaceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := a.billing.Replace(r.Context(), chi.URLParam(r, "billId"), req)
	if err != nil {
		a.fail(w, r, billSubject, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"data":             result.Bill,
		"stockAdjustments": nonNilAdjustments(result.StockAdjustments),
	})
}

func (a *API) handleBillStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.BillStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	bill, err := a.billing.SetStatus(r.Context(), chi.URLParam(r, "billId"), req.Status)
	if err != nil {
		a.fail(w, r, billSubject, err)
		return
	}
	writeData(w, http.StatusOK, bill)
}

func nonNilAdjustments(adjustments []domain.StockAdjustment) []domain.StockAdjustment {
	if adjustments == nil {
		return []domain.StockAdjustment{}
	}
	return adjustments
}
