package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"jumjum/backend/internal/domain"
	"jumjum/backend/internal/store"
)

type Store struct {
	mu          sync.RWMutex
	menuItems   map[string]domain.MenuItem
	bills       map[string]domain.Bill
	inventory   map[string]domain.InventoryItem
	usersByID   map[string]domain.User
	userIDByKey map[string]string
}

func New() *Store {
	return &Store{
		menuItems:   make(map[string]domain.MenuItem),
		bills:       make(map[string]domain.Bill),
		inventory:   make(map[string]domain.InventoryItem),
		usersByID:   make(map[string]domain.User),
		userIDByKey: make(map[string]string),
	}
}

// NewSeeded returns a store with a small demo menu for dev mode.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	for _, item := range []domain.MenuItem{
		{ItemID: "BAR-ESP-01", Name: "Espresso", Price: 25000, Category: "coffee", Stock: 100},
		{ItemID: "BAR-LAT-01", Name: "Cafe Latte", Price: 32000, Category: "coffee", Stock: 100},
		{ItemID: "BAR-TEA-01", Name: "Iced Lemon Tea", Price: 18000, Category: "tea", Stock: 80},
		{ItemID: "KIT-NGR-01", Name: "Nasi Goreng", Price: 38000, Category: "main", Stock: 40, IsKitchen: true},
		{ItemID: "KIT-MGR-01", Name: "Mie Goreng", Price: 35000, Category: "main", Stock: 40, IsKitchen: true},
		{ItemID: "KIT-FRI-01", Name: "French Fries", Price: 22000, Category: "snack", Stock: 60, IsKitchen: true},
	} {
		item.LowStockThreshold = domain.DefaultLowStockThreshold
		item.CreatedAt = now
		item.UpdatedAt = now
		s.menuItems[item.ItemID] = item
	}
	return s
}

func (s *Store) CreateMenuItem(_ context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.menuItems[item.ItemID]; ok {
		return nil, fmt.Errorf("menu item %s: %w", item.ItemID, store.ErrDuplicateKey)
	}
	s.menuItems[item.ItemID] = item
	return &item, nil
}

func (s *Store) GetMenuItem(_ context.Context, itemID string) (*domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.menuItems[itemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (s *Store) ListMenuItems(_ context.Context, filter store.MenuItemFilter) ([]domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.MenuItem, 0, len(s.menuItems))
	for _, item := range s.menuItems {
		if filter.IsKitchen != nil && item.IsKitchen != *filter.IsKitchen {
			continue
		}
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b domain.MenuItem) int {
		return strings.Compare(a.ItemID, b.ItemID)
	})
	return out, nil
}

func (s *Store) UpdateMenuItem(_ context.Context, itemID string, patch domain.MenuItemPatch, at time.Time) (*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.menuItems[itemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Price != nil {
		item.Price = *patch.Price
	}
	if patch.Category != nil {
		item.Category = *patch.Category
	}
	if patch.Stock != nil {
		item.Stock = *patch.Stock
	}
	if patch.LowStockThreshold != nil {
		item.LowStockThreshold = *patch.LowStockThreshold
	}
	if patch.IsKitchen != nil {
		item.IsKitchen = *patch.IsKitchen
	}
	item.UpdatedAt = at
	s.menuItems[itemID] = item
	return &item, nil
}

func (s *Store) AdjustMenuItemStock(_ context.Context, itemID string, delta int, at time.Time) (*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.menuItems[itemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	item.Stock += delta
	item.UpdatedAt = at
	s.menuItems[itemID] = item
	return &item, nil
}

func (s *Store) DeleteMenuItem(_ context.Context, itemID string) (*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.menuItems[itemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(s.menuItems, itemID)
	return &item, nil
}

func (s *Store) CreateBill(_ context.Context, bill domain.Bill) (*domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bills[bill.BillID]; ok {
		return nil, fmt.Errorf("bill %s: %w", bill.BillID, store.ErrDuplicateKey)
	}
	bill = cloneBill(bill)
	s.bills[bill.BillID] = bill
	out := cloneBill(bill)
	return &out, nil
}

func (s *Store) GetBill(_ context.Context, billID string) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bill, ok := s.bills[billID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneBill(bill)
	return &out, nil
}

func (s *Store) ListBills(_ context.Context, filter store.BillFilter) ([]domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	phone := strings.TrimSpace(filter.Phone)
	out := make([]domain.Bill, 0)
	for _, bill := range s.bills {
		if !filter.From.IsZero() && bill.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !bill.CreatedAt.Before(filter.To) {
			continue
		}
		if phone != "" && strings.TrimSpace(bill.Customer.Phone) != phone {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, bill.Status) {
			continue
		}
		out = append(out, cloneBill(bill))
	}
	slices.SortFunc(out, newestBillFirst)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) UpdateBill(_ context.Context, bill domain.Bill) (*domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.bills[bill.BillID]
	if !ok {
		return nil, store.ErrNotFound
	}
	existing.Customer = bill.Customer
	existing.Items = bill.Items
	existing.BarItems = bill.BarItems
	existing.KitchenItems = bill.KitchenItems
	existing.Subtotal = bill.Subtotal
	existing.Tax = bill.Tax
	existing.Total = bill.Total
	existing.Status = bill.Status
	existing.UpdatedAt = bill.UpdatedAt
	existing = cloneBill(existing)
	s.bills[bill.BillID] = existing
	out := cloneBill(existing)
	return &out, nil
}

func (s *Store) UpdateBillStatus(_ context.Context, billID string, status string, at time.Time) (*domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bill, ok := s.bills[billID]
	if !ok {
		return nil, store.ErrNotFound
	}
	bill.Status = status
	bill.UpdatedAt = at
	s.bills[billID] = bill
	out := cloneBill(bill)
	return &out, nil
}

func (s *Store) CreateInventoryItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inventory[item.InventoryID]; ok {
		return nil, fmt.Errorf("inventory item %s: %w", item.InventoryID, store.ErrDuplicateKey)
	}
	s.inventory[item.InventoryID] = item
	return &item, nil
}

func (s *Store) GetInventoryItem(_ context.Context, inventoryID string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.inventory[inventoryID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (s *Store) ListInventoryItems(_ context.Context) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.InventoryItem, 0, len(s.inventory))
	for _, item := range s.inventory {
		out = append(out, item)
	}
	return out, nil
}

func (s *Store) UpdateInventoryItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inventory[item.InventoryID]; !ok {
		return nil, store.ErrNotFound
	}
	s.inventory[item.InventoryID] = item
	return &item, nil
}

func (s *Store) DeleteInventoryItem(_ context.Context, inventoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inventory[inventoryID]; !ok {
		return store.ErrNotFound
	}
	delete(s.inventory, inventoryID)
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Username)
	if _, ok := s.userIDByKey[key]; ok {
		return nil, fmt.Errorf("username %s: %w", user.Username, store.ErrDuplicateKey)
	}
	if _, ok := s.usersByID[user.UserID]; ok {
		return nil, fmt.Errorf("user %s: %w", user.UserID, store.ErrDuplicateKey)
	}
	s.usersByID[user.UserID] = user
	s.userIDByKey[key] = user.UserID
	return &user, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userIDByKey[strings.ToLower(username)]
	if !ok {
		return nil, store.ErrNotFound
	}
	user := s.usersByID[id]
	return &user, nil
}

func (s *Store) GetUserByID(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByID[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.User, 0, len(s.usersByID))
	for _, user := range s.usersByID {
		out = append(out, user)
	}
	slices.SortFunc(out, func(a, b domain.User) int {
		return strings.Compare(a.Username, b.Username)
	})
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.usersByID[user.UserID]
	if !ok {
		return nil, store.ErrNotFound
	}
	// username is the lookup key and stays fixed
	user.Username = existing.Username
	s.usersByID[user.UserID] = user
	return &user, nil
}

func newestBillFirst(a, b domain.Bill) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.BillID, a.BillID)
}

func cloneBill(in domain.Bill) domain.Bill {
	in.Items = slices.Clone(in.Items)
	in.BarItems = slices.Clone(in.BarItems)
	in.KitchenItems = slices.Clone(in.KitchenItems)
	return in
}
