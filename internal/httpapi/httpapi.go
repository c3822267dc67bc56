package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/netip"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"jumjum/backend/internal/domain"
	"jumjum/backend/internal/logging"
	"jumjum/backend/internal/service"
	"jumjum/backend/internal/store"
)

const apiVersion = "1.0.0"

type Services struct {
	Catalog   *service.Catalog
	Billing   *service.Billing
	Inventory *service.Inventory
	Identity  *service.Identity
}

type Options struct {
	AllowedOrigin        string
	Location             *time.Location
	ExposeInternalErrors bool
	Logger               *slog.Logger
}

type API struct {
	catalog       *service.Catalog
	billing       *service.Billing
	inventory     *service.Inventory
	identity      *service.Identity
	auth          *AuthManager
	allowedOrigin string
	location      *time.Location
	exposeErrors  bool
	loginLimiter  *attemptLimiter
	logger        *slog.Logger
}

func New(svc Services, auth *AuthManager, opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	location := opts.Location
	if location == nil {
		location = time.UTC
	}
	origin := strings.TrimSpace(opts.AllowedOrigin)
	if origin == "" {
		origin = "*"
	}
	return &API{
		catalog:       svc.Catalog,
		billing:       svc.Billing,
		inventory:     svc.Inventory,
		identity:      svc.Identity,
		auth:          auth,
		allowedOrigin: origin,
		location:      location,
		exposeErrors:  opts.ExposeInternalErrors,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		logger:        logger,
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.withMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/", a.handleRoot)
	r.Get("/healthz", a.handleHealth)

	r.Route("/api/menu-items", func(r chi.Router) {
		r.Get("/", a.handleListMenuItems)
		r.Post("/", a.handleCreateMenuItem)
		r.Get("/bar", a.handleListMenuItemsByType(false))
		r.Get("/kitchen", a.handleListMenuItemsByType(true))
		r.Get("/low-stock", a.handleLowStockMenuItems)
		r.Get("/{itemId}", a.handleGetMenuItem)
		r.Put("/{itemId}", a.handleUpdateMenuItem)
		r.Patch("/{itemId}", a.handleUpdateMenuItem)
		r.Patch("/{itemId}/stock", a.handleAdjustMenuItemStock)
		r.Delete("/{itemId}", a.handleDeleteMenuItem)
	})

	r.Route("/api/billing", func(r chi.Router) {
		r.Get("/", a.handleListBills)
		r.Post("/", a.handleSubmitBill)
		r.Get("/pending", a.handlePendingBills)
		r.Get("/today", a.handleTodayBills)
		r.Get("/stats", a.handleBillStats)
		r.Get("/range", a.handleBillsByRange)
		r.Get("/find-by-phone/{phone}", a.handleFindBillByPhone)
		r.Get("/{billId}", a.handleGetBill)
		r.Put("/{billId}", a.handleReplaceBill)
		r.Patch("/{billId}/status", a.handleBillStatus)
	})

	r.Route("/api/kitchen-inventory", func(r chi.Router) {
		r.Get("/", a.handleListInventory)
		r.Post("/", a.handleCreateInventory)
		r.Get("/low-stock", a.handleLowStockInventory)
		r.Get("/{inventoryId}", a.handleGetInventory)
		r.Put("/{inventoryId}", a.handleUpdateInventory)
		r.Patch("/{inventoryId}/status", a.handleInventoryStatus)
		r.Patch("/{inventoryId}/refill", a.handleRefillInventory)
		r.Delete("/{inventoryId}", a.handleDeleteInventory)
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", a.handleLogin)
		r.Post("/seed", a.handleSeedUsers)
		r.Post("/register", a.requireAuth(a.handleRegister, domain.RoleAdmin))
		r.Get("/users", a.requireAuth(a.handleListUsers, domain.RoleAdmin))
		r.Put("/users/{userId}", a.requireAuth(a.handleUpdateUser, domain.RoleAdmin))
		r.Delete("/users/{userId}", a.requireAuth(a.handleDeactivateUser, domain.RoleAdmin))
	})

	return r
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "JumJum Backend API is running!",
		"version": apiVersion,
		"endpoints": map[string]string{
			"menuItems":        "/api/menu-items",
			"billing":          "/api/billing",
			"kitchenInventory": "/api/kitchen-inventory",
			"auth":             "/api/auth",
		},
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  "ok",
		"at":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				a.logger.Error("handler panic",
					slog.String("action", "http_panic"),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				if ww.Status() == 0 {
					writeError(ww, http.StatusInternalServerError, "Internal server error")
				}
			}
			a.logger.Info("request",
				slog.String("action", "http_request"),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(startedAt)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// fail maps a service error to its HTTP status. subject names the resource
// in not-found messages.
func (a *API) fail(w http.ResponseWriter, r *http.Request, subject string, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, clientMessage(err, store.ErrInvalidInput))
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, subject+" not found")
	case errors.Is(err, store.ErrDuplicateKey):
		writeError(w, http.StatusConflict, clientMessage(err, store.ErrDuplicateKey))
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		a.logger.Error("request failed",
			slog.String("action", "http_error"),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		msg := "Internal server error"
		if a.exposeErrors {
			msg = err.Error()
		}
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func clientMessage(err error, sentinel error) string {
	msg := err.Error()
	if trimmed, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return trimmed
	}
	return msg
}

// decodeBody reports a 400 itself so handlers can return early.
func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := decodeJSON(r, dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(items),
		"data":    items,
	})
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{
		"success": true,
		"data":    data,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
