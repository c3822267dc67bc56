package store

import (
	"context"
	"errors"
	"time"

	"jumjum/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidInput = errors.New("invalid input")
)

// MenuItemFilter narrows a menu scan. A nil IsKitchen matches both bar and
// kitchen items.
type MenuItemFilter struct {
	IsKitchen *bool
}

// BillFilter narrows a bill scan. From is inclusive and To exclusive; zero
// values leave that bound open. Results are ordered by CreatedAt descending
// and truncated to Limit when Limit > 0.
type BillFilter struct {
	From     time.Time
	To       time.Time
	Phone    string
	Statuses []string
	Limit    int
}

type MenuItemStore interface {
	CreateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)
	GetMenuItem(ctx context.Context, itemID string) (*domain.MenuItem, error)
	ListMenuItems(ctx context.Context, filter MenuItemFilter) ([]domain.MenuItem, error)
	// UpdateMenuItem sets only the non-nil fields of patch in a single write.
	UpdateMenuItem(ctx context.Context, itemID string, patch domain.MenuItemPatch, at time.Time) (*domain.MenuItem, error)
	// AdjustMenuItemStock adds delta to the stored stock in a single write.
	AdjustMenuItemStock(ctx context.Context, itemID string, delta int, at time.Time) (*domain.MenuItem, error)
	DeleteMenuItem(ctx context.Context, itemID string) (*domain.MenuItem, error)
}

type BillStore interface {
	CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)
	GetBill(ctx context.Context, billID string) (*domain.Bill, error)
	ListBills(ctx context.Context, filter BillFilter) ([]domain.Bill, error)
	// UpdateBill overwrites customer, items, totals, status and updatedAt.
	UpdateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)
	UpdateBillStatus(ctx context.Context, billID string, status string, at time.Time) (*domain.Bill, error)
}

type InventoryStore interface {
	CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	GetInventoryItem(ctx context.Context, inventoryID string) (*domain.InventoryItem, error)
	ListInventoryItems(ctx context.Context) ([]domain.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, inventoryID string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) (*domain.User, error)
}

type Repository interface {
	MenuItemStore
	BillStore
	InventoryStore
	UserStore
}
