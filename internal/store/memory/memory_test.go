package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jumjum/backend/internal/domain"
	"jumjum/backend/internal/store"
)

func TestListBillsFiltersAndOrders(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 4, 2, 3, 0, 0, 0, time.UTC)

	for _, bill := range []domain.Bill{
		{BillID: "BILL-1", Customer: domain.Customer{Phone: "0812"}, Status: domain.BillStatusOpen, CreatedAt: base},
		{BillID: "BILL-3", Customer: domain.Customer{Phone: " 0812 "}, Status: domain.BillStatusOpen, CreatedAt: base.Add(time.Hour)},
		{BillID: "BILL-2", Customer: domain.Customer{Phone: "0812"}, Status: domain.BillStatusCompleted, CreatedAt: base.Add(time.Hour)},
		{BillID: "BILL-4", Customer: domain.Customer{Phone: "0999"}, Status: domain.BillStatusPending, CreatedAt: base.Add(-24 * time.Hour)},
	} {
		_, err := s.CreateBill(ctx, bill)
		require.NoError(t, err)
	}

	all, err := s.ListBills(ctx, store.BillFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"BILL-3", "BILL-2", "BILL-1", "BILL-4"}, billIDs(all))

	byPhone, err := s.ListBills(ctx, store.BillFilter{Phone: "0812", From: base, To: base.Add(24 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, []string{"BILL-3", "BILL-2", "BILL-1"}, billIDs(byPhone))

	open, err := s.ListBills(ctx, store.BillFilter{Statuses: []string{domain.BillStatusOpen, domain.BillStatusPending}, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"BILL-3", "BILL-1"}, billIDs(open))

	window, err := s.ListBills(ctx, store.BillFilter{From: base.Add(-24 * time.Hour), To: base})
	require.NoError(t, err)
	assert.Equal(t, []string{"BILL-4"}, billIDs(window))
}

func TestBillsAreCopiedInAndOut(t *testing.T) {
	s := New()
	ctx := context.Background()
	items := []domain.LineItem{{ItemID: "A", Quantity: 1}}

	_, err := s.CreateBill(ctx, domain.Bill{BillID: "BILL-1", Items: items})
	require.NoError(t, err)
	items[0].Quantity = 9

	got, err := s.GetBill(ctx, "BILL-1")
	require.NoError(t, err)
	got.Items[0].Quantity = 7

	again, err := s.GetBill(ctx, "BILL-1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)

	_, err = s.CreateBill(ctx, domain.Bill{BillID: "BILL-1"})
	require.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestAdjustMenuItemStockIsAdditive(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	at := time.Date(2026, 4, 2, 3, 0, 0, 0, time.UTC)

	item, err := s.AdjustMenuItemStock(ctx, "BAR-ESP-01", -120, at)
	require.NoError(t, err)
	assert.Equal(t, -20, item.Stock)
	assert.Equal(t, at, item.UpdatedAt)

	_, err = s.AdjustMenuItemStock(ctx, "NOPE", 1, at)
	require.ErrorIs(t, err, store.ErrNotFound)

	kitchen := true
	items, err := s.ListMenuItems(ctx, store.MenuItemFilter{IsKitchen: &kitchen})
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestUsersKeyedByLowercaseUsername(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CreateUser(ctx, domain.User{UserID: "USER-1", Username: "admin", Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, domain.User{UserID: "USER-2", Username: "ADMIN"})
	require.ErrorIs(t, err, store.ErrDuplicateKey)

	got, err := s.GetUserByUsername(ctx, "Admin")
	require.NoError(t, err)
	assert.Equal(t, "USER-1", got.UserID)

	updated, err := s.UpdateUser(ctx, domain.User{UserID: "USER-1", Username: "root", Role: domain.RoleBar})
	require.NoError(t, err)
	assert.Equal(t, "admin", updated.Username)
	assert.Equal(t, domain.RoleBar, updated.Role)
}

func billIDs(bills []domain.Bill) []string {
	ids := make([]string, 0, len(bills))
	for _, bill := range bills {
		ids = append(ids, bill.BillID)
	}
	return ids
}
