package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"jumjum/backend/internal/cache"
	"jumjum/backend/internal/domain"
	"jumjum/backend/internal/messaging"
	"jumjum/backend/internal/store"
	"jumjum/backend/internal/xid"
)

const (
	defaultBillLimit    = 100
	statsScanLimit      = 1000
	statsCacheKeyPrefix = "jumjum:billing:stats:"
)

// StockAdjuster applies signed stock deltas to menu items.
type StockAdjuster interface {
	UpdateStock(ctx context.Context, itemID string, delta int) (domain.MenuItem, error)
}

type BillingOptions struct {
	TaxRatePercent float64
	Location       *time.Location
	Now            func() time.Time
	StatsCache     cache.StatsCache
	StatsTTL       time.Duration
	Kitchen        messaging.KitchenPublisher
	Logger         *slog.Logger
}

// Billing owns the bill lifecycle and keeps menu stock in step with bill
// contents.
type Billing struct {
	repo     store.BillStore
	stock    StockAdjuster
	taxRate  decimal.Decimal
	location *time.Location
	now      func() time.Time
	stats    cache.StatsCache
	statsTTL time.Duration
	kitchen  messaging.KitchenPublisher
	logger   *slog.Logger
}

func NewBilling(repo store.BillStore, stock StockAdjuster, opts BillingOptions) *Billing {
	b := &Billing{
		repo:     repo,
		stock:    stock,
		taxRate:  decimal.NewFromFloat(opts.TaxRatePercent),
		location: opts.Location,
		now:      opts.Now,
		stats:    opts.StatsCache,
		statsTTL: opts.StatsTTL,
		kitchen:  opts.Kitchen,
		logger:   orDiscard(opts.Logger),
	}
	if b.location == nil {
		b.location = time.Local
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.stats == nil {
		b.stats = cache.NoopStatsCache{}
	}
	if b.kitchen == nil {
		b.kitchen = messaging.NoopKitchenPublisher{}
	}
	return b
}

// Create persists a brand new bill without looking for one to merge into.
func (b *Billing) Create(ctx context.Context, customer domain.Customer, items []domain.LineItem, paymentMethod string, status string) (domain.Bill, error) {
	if err := validateLineItems(items); err != nil {
		return domain.Bill{}, err
	}
	if paymentMethod == "" {
		paymentMethod = domain.DefaultPaymentMethod
	}
	if status == "" {
		status = domain.BillStatusOpen
	}

	now := b.now().UTC()
	bill := domain.Bill{
		BillID:        xid.NewAt("BILL", now),
		Customer:      customer,
		PaymentMethod: paymentMethod,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.applyItems(&bill, items)

	created, err := b.repo.CreateBill(ctx, bill)
	if err != nil {
		return domain.Bill{}, err
	}
	b.invalidateStats(ctx)
	return *created, nil
}

// FindOpenBillForPhoneToday returns the newest bill created today (server
// location) for phone whose status is not completed, or nil.
func (b *Billing) FindOpenBillForPhoneToday(ctx context.Context, phone string) (*domain.Bill, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, nil
	}

	from, to := b.todayWindow()
	bills, err := b.repo.ListBills(ctx, store.BillFilter{From: from, To: to, Phone: phone})
	if err != nil {
		return nil, err
	}
	// ListBills orders newest first
	for i := range bills {
		if bills[i].Status != domain.BillStatusCompleted {
			return &bills[i], nil
		}
	}
	return nil, nil
}

// AddOrCreate merges items into today's open bill for the customer's phone,
// or creates a new bill when there is none. Stock failures never fail the
// call; they come back in StockAdjustments.
func (b *Billing) AddOrCreate(ctx context.Context, req domain.BillSubmitRequest) (domain.BillSubmitResult, error) {
	if req.Customer == nil || len(req.Items) == 0 {
		return domain.BillSubmitResult{}, invalidInput("please provide customer and items")
	}
	if err := validateLineItems(req.Items); err != nil {
		return domain.BillSubmitResult{}, err
	}

	existing, err := b.FindOpenBillForPhoneToday(ctx, req.Customer.Phone)
	if err != nil {
		return domain.BillSubmitResult{}, err
	}

	var (
		bill     domain.Bill
		isUpdate bool
	)
	if existing != nil {
		bill, err = b.mergeInto(ctx, *existing, *req.Customer, req.Items, req.Status)
		isUpdate = true
	} else {
		bill, err = b.Create(ctx, *req.Customer, req.Items, req.PaymentMethod, req.Status)
	}
	if err != nil {
		return domain.BillSubmitResult{}, err
	}

	deltas := make([]stockDelta, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ItemID != "" {
			deltas = append(deltas, stockDelta{itemID: item.ItemID, delta: -item.Quantity})
		}
	}
	adjustments := b.applyStockDeltas(ctx, bill.BillID, deltas)

	result := domain.BillSubmitResult{
		Bill:             bill,
		IsUpdate:         isUpdate,
		StockAdjustments: adjustments,
	}
	if len(bill.KitchenItems) > 0 {
		order := domain.KitchenOrder{
			BillID:   bill.BillID,
			Customer: bill.Customer,
			Items:    bill.KitchenItems,
			Added:    kitchenOnly(req.Items),
			Status:   domain.BillStatusPending,
			SentAt:   b.now().UTC(),
		}
		// the kitchen only hears about submissions that add kitchen lines
		if len(order.Added) > 0 {
			if err := b.kitchen.PublishKitchenOrder(ctx, order); err != nil {
				b.logger.Warn("kitchen order publish failed",
					slog.String("action", "kitchen_order_publish"),
					slog.String("bill_id", bill.BillID),
					slog.Any("error", err),
				)
			}
		}
		result.KitchenOrder = &order
	}

	b.logger.Info("bill submitted",
		slog.String("action", "bill_submit"),
		slog.String("bill_id", bill.BillID),
		slog.Bool("is_update", isUpdate),
		slog.Int("lines", len(bill.Items)),
	)
	return result, nil
}

func (b *Billing) mergeInto(ctx context.Context, existing domain.Bill, customer domain.Customer, incoming []domain.LineItem, status string) (domain.Bill, error) {
	merged := make([]domain.LineItem, len(existing.Items), len(existing.Items)+len(incoming))
	copy(merged, existing.Items)
	for _, item := range incoming {
		idx := -1
		if item.ItemID != "" {
			for i := range merged {
				if merged[i].ItemID == item.ItemID {
					idx = i
					break
				}
			}
		}
		if idx >= 0 {
			merged[idx].Quantity += item.Quantity
			continue
		}
		merged = append(merged, item)
	}

	if customer.Name != "" {
		existing.Customer.Name = customer.Name
	}
	if customer.Phone != "" {
		existing.Customer.Phone = customer.Phone
	}
	if status == "" {
		status = domain.BillStatusOpen
	}
	existing.Status = status
	existing.UpdatedAt = b.now().UTC()
	b.applyItems(&existing, merged)

	updated, err := b.repo.UpdateBill(ctx, existing)
	if err != nil {
		return domain.Bill{}, err
	}
	b.invalidateStats(ctx)
	return *updated, nil
}

// Replace overwrites a bill's items and reconciles stock against the previous
// contents: changed quantities move by the difference, dropped items are
// restored in full.
func (b *Billing) Replace(ctx context.Context, billID string, req domain.BillReplaceRequest) (domain.BillReplaceResult, error) {
	if len(req.Items) == 0 {
		return domain.BillReplaceResult{}, invalidInput("please provide items")
	}
	if err := validateLineItems(req.Items); err != nil {
		return domain.BillReplaceResult{}, err
	}

	existing, err := b.repo.GetBill(ctx, billID)
	if err != nil {
		return domain.BillReplaceResult{}, err
	}
	deltas := diffQuantities(existing.Items, req.Items)

	bill := *existing
	if req.Customer != nil {
		bill.Customer = *req.Customer
	}
	bill.Status = req.Status
	if bill.Status == "" {
		bill.Status = domain.BillStatusOpen
	}
	bill.UpdatedAt = b.now().UTC()
	b.applyItems(&bill, req.Items)

	adjustments := b.applyStockDeltas(ctx, billID, deltas)

	updated, err := b.repo.UpdateBill(ctx, bill)
	if err != nil {
		return domain.BillReplaceResult{}, err
	}
	b.invalidateStats(ctx)

	return domain.BillReplaceResult{Bill: *updated, StockAdjustments: adjustments}, nil
}

// SetStatus overwrites the status with no transition rules.
func (b *Billing) SetStatus(ctx context.Context, billID string, status string) (domain.Bill, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return domain.Bill{}, invalidInput("please provide status")
	}
	bill, err := b.repo.UpdateBillStatus(ctx, billID, status, b.now().UTC())
	if err != nil {
		return domain.Bill{}, err
	}
	b.invalidateStats(ctx)
	return *bill, nil
}

func (b *Billing) GetAll(ctx context.Context, limit int) ([]domain.Bill, error) {
	if limit <= 0 {
		limit = defaultBillLimit
	}
	return b.repo.ListBills(ctx, store.BillFilter{Limit: limit})
}

func (b *Billing) GetByID(ctx context.Context, billID string) (domain.Bill, error) {
	bill, err := b.repo.GetBill(ctx, billID)
	if err != nil {
		return domain.Bill{}, err
	}
	return *bill, nil
}

func (b *Billing) GetPending(ctx context.Context) ([]domain.Bill, error) {
	return b.repo.ListBills(ctx, store.BillFilter{
		Statuses: []string{domain.BillStatusOpen, domain.BillStatusPending},
	})
}

// GetByDateRange returns bills created in [from, to).
func (b *Billing) GetByDateRange(ctx context.Context, from time.Time, to time.Time) ([]domain.Bill, error) {
	if !to.After(from) {
		return nil, invalidInput("range end must be after range start")
	}
	return b.repo.ListBills(ctx, store.BillFilter{From: from, To: to})
}

func (b *Billing) GetToday(ctx context.Context) ([]domain.Bill, error) {
	from, to := b.todayWindow()
	return b.repo.ListBills(ctx, store.BillFilter{From: from, To: to})
}

func (b *Billing) GetStats(ctx context.Context) (domain.BillStats, error) {
	key := b.statsKey()
	if cached, ok, err := b.stats.Get(ctx, key); err != nil {
		b.logger.Warn("stats cache read failed", slog.Any("error", err))
	} else if ok {
		return *cached, nil
	}

	var all, today []domain.Bill
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = b.repo.ListBills(gctx, store.BillFilter{Limit: statsScanLimit})
		return err
	})
	g.Go(func() error {
		var err error
		today, err = b.GetToday(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.BillStats{}, err
	}

	totalRevenue := sumTotals(all)
	stats := domain.BillStats{
		TotalBills:   len(all),
		TodayBills:   len(today),
		TotalRevenue: totalRevenue.InexactFloat64(),
		TodayRevenue: sumTotals(today).InexactFloat64(),
	}
	if len(all) > 0 {
		stats.AvgOrderValue = totalRevenue.Div(decimal.NewFromInt(int64(len(all)))).Round(0).InexactFloat64()
	}

	if err := b.stats.Set(ctx, key, &stats, b.statsTTL); err != nil {
		b.logger.Warn("stats cache write failed", slog.Any("error", err))
	}
	return stats, nil
}

// Totals returns subtotal, tax and total for items. Tax is rounded to whole
// currency units on its own before being added.
func (b *Billing) Totals(items []domain.LineItem) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	tax = subtotal.Mul(b.taxRate).Div(decimal.NewFromInt(100)).Round(0)
	return subtotal, tax, subtotal.Add(tax)
}

func (b *Billing) applyItems(bill *domain.Bill, items []domain.LineItem) {
	bill.Items = items
	bill.BarItems = make([]domain.LineItem, 0, len(items))
	bill.KitchenItems = make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		if item.IsKitchen {
			bill.KitchenItems = append(bill.KitchenItems, item)
		} else {
			bill.BarItems = append(bill.BarItems, item)
		}
	}
	subtotal, tax, total := b.Totals(items)
	bill.Subtotal = subtotal.InexactFloat64()
	bill.Tax = tax.InexactFloat64()
	bill.Total = total.InexactFloat64()
}

type stockDelta struct {
	itemID string
	delta  int
}

func (b *Billing) applyStockDeltas(ctx context.Context, billID string, deltas []stockDelta) []domain.StockAdjustment {
	out := make([]domain.StockAdjustment, 0, len(deltas))
	for _, d := range deltas {
		adj := domain.StockAdjustment{ItemID: d.itemID, Delta: d.delta}
		item, err := b.stock.UpdateStock(ctx, d.itemID, d.delta)
		if err != nil {
			adj.Error = err.Error()
			b.logger.Warn("stock update failed",
				slog.String("action", "stock_adjust"),
				slog.String("bill_id", billID),
				slog.String("item_id", d.itemID),
				slog.Int("delta", d.delta),
				slog.Any("error", err),
			)
		} else {
			adj.Applied = true
			stock := item.Stock
			adj.Stock = &stock
		}
		out = append(out, adj)
	}
	return out
}

func (b *Billing) todayWindow() (time.Time, time.Time) {
	now := b.now().In(b.location)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, b.location)
	return from, from.AddDate(0, 0, 1)
}

// statsKey is scoped to the local day so today's figures roll over at
// midnight instead of when the cached entry expires.
func (b *Billing) statsKey() string {
	return statsCacheKeyPrefix + b.now().In(b.location).Format("2006-01-02")
}

func (b *Billing) invalidateStats(ctx context.Context) {
	if err := b.stats.Invalidate(ctx, b.statsKey()); err != nil {
		b.logger.Warn("stats cache invalidate failed", slog.Any("error", err))
	}
}

// diffQuantities sums quantities per itemId on each side and returns the
// stock movement that takes the catalog from old to next. Lines without an
// itemId carry no stock.
func diffQuantities(old []domain.LineItem, next []domain.LineItem) []stockDelta {
	oldQty, oldOrder := sumByItem(old)
	newQty, newOrder := sumByItem(next)

	deltas := make([]stockDelta, 0, len(newOrder)+len(oldOrder))
	for _, id := range newOrder {
		if diff := newQty[id] - oldQty[id]; diff != 0 {
			deltas = append(deltas, stockDelta{itemID: id, delta: -diff})
		}
	}
	for _, id := range oldOrder {
		if _, kept := newQty[id]; !kept && oldQty[id] != 0 {
			deltas = append(deltas, stockDelta{itemID: id, delta: oldQty[id]})
		}
	}
	return deltas
}

func sumByItem(items []domain.LineItem) (map[string]int, []string) {
	qty := make(map[string]int, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		if item.ItemID == "" {
			continue
		}
		if _, seen := qty[item.ItemID]; !seen {
			order = append(order, item.ItemID)
		}
		qty[item.ItemID] += item.Quantity
	}
	return qty, order
}

func kitchenOnly(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		if item.IsKitchen {
			out = append(out, item)
		}
	}
	return out
}

func sumTotals(bills []domain.Bill) decimal.Decimal {
	sum := decimal.Zero
	for _, bill := range bills {
		sum = sum.Add(decimal.NewFromFloat(bill.Total))
	}
	return sum
}

func validateLineItems(items []domain.LineItem) error {
	for i, item := range items {
		if item.Quantity < 1 {
			return invalidInput("item %d: quantity must be at least 1", i+1)
		}
		if item.Price < 0 {
			return invalidInput("item %d: price cannot be negative", i+1)
		}
	}
	return nil
}
