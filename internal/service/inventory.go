package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"jumjum/backend/internal/domain"
	"jumjum/backend/internal/store"
	"jumjum/backend/internal/xid"
)

// Inventory owns raw kitchen stock. Status is stored as given; callers derive
// it with domain.DeriveInventoryStatus before create and update.
type Inventory struct {
	repo   store.InventoryStore
	logger *slog.Logger
	now    func() time.Time
}

func NewInventory(repo store.InventoryStore, logger *slog.Logger) *Inventory {
	return &Inventory{
		repo:   repo,
		logger: orDiscard(logger),
		now:    utcNow,
	}
}

func (s *Inventory) Create(ctx context.Context, req domain.InventoryItemRequest) (domain.InventoryItem, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.InventoryItem{}, invalidInput("please provide item name")
	}
	if req.Unit == "" {
		req.Unit = domain.DefaultInventoryUnit
	}
	if req.MinStock == 0 {
		req.MinStock = domain.DefaultInventoryMinStock
	}
	if req.Category == "" {
		req.Category = domain.DefaultInventoryCategory
	}
	quantity := 0
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	now := s.now()
	item := domain.InventoryItem{
		InventoryID: xid.NewAt("INV", now),
		Name:        req.Name,
		Quantity:    quantity,
		Unit:        req.Unit,
		MinStock:    req.MinStock,
		Status:      domain.DeriveInventoryStatus(quantity, req.MinStock),
		Category:    req.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.repo.CreateInventoryItem(ctx, item)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return *created, nil
}

func (s *Inventory) GetAll(ctx context.Context) ([]domain.InventoryItem, error) {
	items, err := s.repo.ListInventoryItems(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, func(a, b domain.InventoryItem) int {
		return strings.Compare(a.Name, b.Name)
	})
	return items, nil
}

func (s *Inventory) GetByID(ctx context.Context, inventoryID string) (domain.InventoryItem, error) {
	item, err := s.repo.GetInventoryItem(ctx, inventoryID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return *item, nil
}

func (s *Inventory) GetLowStock(ctx context.Context) ([]domain.InventoryItem, error) {
	items, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(items, func(item domain.InventoryItem) bool {
		return item.Status != domain.InventoryStatusLow && item.Status != domain.InventoryStatusOut
	}), nil
}

func (s *Inventory) Update(ctx context.Context, inventoryID string, req domain.InventoryItemRequest) (domain.InventoryItem, error) {
	item, err := s.repo.GetInventoryItem(ctx, inventoryID)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		item.Name = name
	}
	if req.Unit != "" {
		item.Unit = req.Unit
	}
	if req.MinStock != 0 {
		item.MinStock = req.MinStock
	}
	if req.Category != "" {
		item.Category = req.Category
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	item.Status = domain.DeriveInventoryStatus(item.Quantity, item.MinStock)
	item.UpdatedAt = s.now()

	return derefInventoryItem(s.repo.UpdateInventoryItem(ctx, *item))
}

func (s *Inventory) SetStatus(ctx context.Context, inventoryID string, status string) (domain.InventoryItem, error) {
	if !domain.IsInventoryStatus(status) {
		return domain.InventoryItem{}, invalidInput("please provide valid status (available, low, out)")
	}
	item, err := s.repo.GetInventoryItem(ctx, inventoryID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	item.Status = status
	item.UpdatedAt = s.now()
	return derefInventoryItem(s.repo.UpdateInventoryItem(ctx, *item))
}

// Refill sets the on-hand quantity and marks the item available.
func (s *Inventory) Refill(ctx context.Context, inventoryID string, quantity int) (domain.InventoryItem, error) {
	if quantity < 0 {
		return domain.InventoryItem{}, invalidInput("please provide valid quantity")
	}
	item, err := s.repo.GetInventoryItem(ctx, inventoryID)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	now := s.now()
	item.Quantity = quantity
	item.Status = domain.InventoryStatusAvailable
	item.LastRefilled = &now
	item.UpdatedAt = now

	refilled, err := s.repo.UpdateInventoryItem(ctx, *item)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	s.logger.Info("inventory refilled",
		slog.String("action", "inventory_refill"),
		slog.String("inventory_id", inventoryID),
		slog.Int("quantity", quantity),
	)
	return *refilled, nil
}

func (s *Inventory) Delete(ctx context.Context, inventoryID string) error {
	return s.repo.DeleteInventoryItem(ctx, inventoryID)
}

func derefInventoryItem(item *domain.InventoryItem, err error) (domain.InventoryItem, error) {
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return *item, nil
}
