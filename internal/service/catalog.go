package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"jumjum/backend/internal/domain"
	"jumjum/backend/internal/store"
)

// Catalog owns menu items and their stock counters.
type Catalog struct {
	repo   store.MenuItemStore
	logger *slog.Logger
	now    func() time.Time
}

func NewCatalog(repo store.MenuItemStore, logger *slog.Logger) *Catalog {
	return &Catalog{
		repo:   repo,
		logger: orDiscard(logger),
		now:    utcNow,
	}
}

func (c *Catalog) Create(ctx context.Context, req domain.MenuItemCreateRequest) (domain.MenuItem, error) {
	req.ItemID = strings.TrimSpace(req.ItemID)
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.ItemID == "" || req.Name == "" || req.Price <= 0 || req.Category == "" {
		return domain.MenuItem{}, invalidInput("please provide itemId, name, price, and category")
	}
	if req.LowStockThreshold == 0 {
		req.LowStockThreshold = domain.DefaultLowStockThreshold
	}

	now := c.now()
	created, err := c.repo.CreateMenuItem(ctx, domain.MenuItem{
		ItemID:            req.ItemID,
		Name:              req.Name,
		Price:             req.Price,
		Category:          req.Category,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
		IsKitchen:         req.IsKitchen,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return domain.MenuItem{}, err
	}

	c.logger.Info("menu item created", slog.String("action", "menu_item_create"), slog.String("item_id", created.ItemID))
	return *created, nil
}

func (c *Catalog) GetAll(ctx context.Context) ([]domain.MenuItem, error) {
	return c.repo.ListMenuItems(ctx, store.MenuItemFilter{})
}

func (c *Catalog) GetByType(ctx context.Context, isKitchen bool) ([]domain.MenuItem, error) {
	return c.repo.ListMenuItems(ctx, store.MenuItemFilter{IsKitchen: &isKitchen})
}

func (c *Catalog) GetByID(ctx context.Context, itemID string) (domain.MenuItem, error) {
	item, err := c.repo.GetMenuItem(ctx, itemID)
	if err != nil {
		return domain.MenuItem{}, err
	}
	return *item, nil
}

func (c *Catalog) GetLowStock(ctx context.Context) ([]domain.MenuItem, error) {
	items, err := c.repo.ListMenuItems(ctx, store.MenuItemFilter{})
	if err != nil {
		return nil, err
	}
	low := make([]domain.MenuItem, 0, len(items))
	for _, item := range items {
		if item.Stock <= item.LowStockThreshold {
			low = append(low, item)
		}
	}
	return low, nil
}

// Update writes only the fields present in patch. Stock is left alone unless
// the patch sets it, so concurrent bill deltas are never overwritten.
func (c *Catalog) Update(ctx context.Context, itemID string, patch domain.MenuItemPatch) (domain.MenuItem, error) {
	if patch.ItemID != nil && *patch.ItemID != itemID {
		return domain.MenuItem{}, invalidInput("itemId cannot be changed")
	}
	patch.ItemID = nil

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.MenuItem{}, invalidInput("name cannot be empty")
		}
		patch.Name = &name
	}
	if patch.Price != nil && *patch.Price <= 0 {
		return domain.MenuItem{}, invalidInput("price must be positive")
	}
	if patch.Category != nil {
		category := strings.TrimSpace(*patch.Category)
		if category == "" {
			return domain.MenuItem{}, invalidInput("category cannot be empty")
		}
		patch.Category = &category
	}

	return derefMenuItem(c.repo.UpdateMenuItem(ctx, itemID, patch, c.now()))
}

// UpdateStock applies a signed delta as one additive store write. Stock may
// go negative.
func (c *Catalog) UpdateStock(ctx context.Context, itemID string, delta int) (domain.MenuItem, error) {
	return derefMenuItem(c.repo.AdjustMenuItemStock(ctx, itemID, delta, c.now()))
}

func (c *Catalog) Delete(ctx context.Context, itemID string) (domain.MenuItem, error) {
	deleted, err := c.repo.DeleteMenuItem(ctx, itemID)
	if err != nil {
		return domain.MenuItem{}, err
	}
	c.logger.Info("menu item deleted", slog.String("action", "menu_item_delete"), slog.String("item_id", itemID))
	return *deleted, nil
}

func derefMenuItem(item *domain.MenuItem, err error) (domain.MenuItem, error) {
	if err != nil {
		return domain.MenuItem{}, err
	}
	return *item, nil
}
