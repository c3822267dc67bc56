package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	_ "github.com/jackc/pgx/v5/stdlib"

	"jumjum/backend/internal/config"
	"jumjum/backend/internal/domain"
	"jumjum/backend/internal/store"
)

type Store struct {
	db *sql.DB

	menuTable      string
	billTable      string
	inventoryTable string
	userTable      string
}

func New(ctx context.Context, databaseURL string, tables config.Tables) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:             db,
		menuTable:      pgx.Identifier{tables.Menu}.Sanitize(),
		billTable:      pgx.Identifier{tables.Billing}.Sanitize(),
		inventoryTable: pgx.Identifier{tables.Inventory}.Sanitize(),
		userTable:      pgx.Identifier{tables.Users}.Sanitize(),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the four tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				item_id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				price NUMERIC(14,2) NOT NULL,
				category TEXT NOT NULL,
				stock INTEGER NOT NULL DEFAULT 0,
				low_stock_threshold INTEGER NOT NULL DEFAULT 10,
				is_kitchen BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`, s.menuTable),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				bill_id TEXT PRIMARY KEY,
				customer JSONB NOT NULL,
				customer_phone TEXT NOT NULL DEFAULT '',
				items JSONB NOT NULL,
				bar_items JSONB NOT NULL,
				kitchen_items JSONB NOT NULL,
				subtotal NUMERIC(14,2) NOT NULL,
				tax NUMERIC(14,2) NOT NULL,
				total NUMERIC(14,2) NOT NULL,
				status TEXT NOT NULL,
				payment_method TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`, s.billTable),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				inventory_id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				quantity INTEGER NOT NULL,
				unit TEXT NOT NULL,
				min_stock INTEGER NOT NULL,
				status TEXT NOT NULL,
				category TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL,
				last_refilled TIMESTAMPTZ
			)`, s.inventoryTable),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				user_id TEXT PRIMARY KEY,
				username TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				name TEXT NOT NULL,
				role TEXT NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`, s.userTable),
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

const menuColumns = `item_id, name, price, category, stock, low_stock_threshold, is_kitchen, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMenuItem(row rowScanner) (*domain.MenuItem, error) {
	var item domain.MenuItem
	if err := row.Scan(
		&item.ItemID, &item.Name, &item.Price, &item.Category, &item.Stock,
		&item.LowStockThreshold, &item.IsKitchen, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return &item, nil
}

func (s *Store) CreateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, s.menuTable, menuColumns),
		item.ItemID, item.Name, item.Price, item.Category, item.Stock,
		item.LowStockThreshold, item.IsKitchen, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("menu item %s: %w", item.ItemID, store.ErrDuplicateKey)
		}
		return nil, err
	}
	created := item
	return &created, nil
}

func (s *Store) GetMenuItem(ctx context.Context, itemID string) (*domain.MenuItem, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s WHERE item_id = $1
	`, menuColumns, s.menuTable), itemID)
	return scanMenuItem(row)
}

func (s *Store) ListMenuItems(ctx context.Context, filter store.MenuItemFilter) ([]domain.MenuItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, menuColumns, s.menuTable)
	args := []any{}
	if filter.IsKitchen != nil {
		query += ` WHERE is_kitchen = $1`
		args = append(args, *filter.IsKitchen)
	}
	query += ` ORDER BY item_id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.MenuItem, 0, 64)
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, itemID string, patch domain.MenuItemPatch, at time.Time) (*domain.MenuItem, error) {
	sets := []string{"updated_at = $2"}
	args := []any{itemID, at}
	set := func(column string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Price != nil {
		set("price", *patch.Price)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Stock != nil {
		set("stock", *patch.Stock)
	}
	if patch.LowStockThreshold != nil {
		set("low_stock_threshold", *patch.LowStockThreshold)
	}
	if patch.IsKitchen != nil {
		set("is_kitchen", *patch.IsKitchen)
	}

	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE item_id = $1
		RETURNING %s
	`, s.menuTable, strings.Join(sets, ", "), menuColumns), args...)
	return scanMenuItem(row)
}

func (s *Store) AdjustMenuItemStock(ctx context.Context, itemID string, delta int, at time.Time) (*domain.MenuItem, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET stock = stock + $2, updated_at = $3
		WHERE item_id = $1
		RETURNING %s
	`, s.menuTable, menuColumns), itemID, delta, at)
	return scanMenuItem(row)
}

func (s *Store) DeleteMenuItem(ctx context.Context, itemID string) (*domain.MenuItem, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE item_id = $1 RETURNING %s
	`, s.menuTable, menuColumns), itemID)
	return scanMenuItem(row)
}

const billColumns = `bill_id, customer, items, bar_items, kitchen_items, subtotal, tax, total, status, payment_method, created_at, updated_at`

func scanBill(row rowScanner) (*domain.Bill, error) {
	var (
		bill                                       domain.Bill
		customerRaw, itemsRaw, barRaw, kitchenRaw []byte
	)
	if err := row.Scan(
		&bill.BillID, &customerRaw, &itemsRaw, &barRaw, &kitchenRaw,
		&bill.Subtotal, &bill.Tax, &bill.Total, &bill.Status, &bill.PaymentMethod,
		&bill.CreatedAt, &bill.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(customerRaw, &bill.Customer); err != nil {
		return nil, fmt.Errorf("decode bill %s customer: %w", bill.BillID, err)
	}
	for _, part := range []struct {
		raw  []byte
		dest *[]domain.LineItem
	}{
		{itemsRaw, &bill.Items},
		{barRaw, &bill.BarItems},
		{kitchenRaw, &bill.KitchenItems},
	} {
		if err := json.Unmarshal(part.raw, part.dest); err != nil {
			return nil, fmt.Errorf("decode bill %s items: %w", bill.BillID, err)
		}
	}
	bill.CreatedAt = bill.CreatedAt.UTC()
	bill.UpdatedAt = bill.UpdatedAt.UTC()
	return &bill, nil
}

type billJSON struct {
	customer, items, bar, kitchen string
}

func encodeBill(bill domain.Bill) (billJSON, error) {
	var out billJSON
	customer, err := json.Marshal(bill.Customer)
	if err != nil {
		return out, err
	}
	items, err := json.Marshal(nonNilLines(bill.Items))
	if err != nil {
		return out, err
	}
	bar, err := json.Marshal(nonNilLines(bill.BarItems))
	if err != nil {
		return out, err
	}
	kitchen, err := json.Marshal(nonNilLines(bill.KitchenItems))
	if err != nil {
		return out, err
	}
	return billJSON{string(customer), string(items), string(bar), string(kitchen)}, nil
}

func (s *Store) CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
	enc, err := encodeBill(bill)
	if err != nil {
		return nil, fmt.Errorf("encode bill: %w", err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			bill_id, customer, customer_phone, items, bar_items, kitchen_items,
			subtotal, tax, total, status, payment_method, created_at, updated_at
		)
		VALUES ($1,$2::jsonb,$3,$4::jsonb,$5::jsonb,$6::jsonb,$7,$8,$9,$10,$11,$12,$13)
	`, s.billTable),
		bill.BillID, enc.customer, strings.TrimSpace(bill.Customer.Phone), enc.items, enc.bar, enc.kitchen,
		bill.Subtotal, bill.Tax, bill.Total, bill.Status, bill.PaymentMethod, bill.CreatedAt, bill.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("bill %s: %w", bill.BillID, store.ErrDuplicateKey)
		}
		return nil, err
	}
	created := bill
	return &created, nil
}

func (s *Store) GetBill(ctx context.Context, billID string) (*domain.Bill, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s WHERE bill_id = $1
	`, billColumns, s.billTable), billID)
	return scanBill(row)
}

func (s *Store) ListBills(ctx context.Context, filter store.BillFilter) ([]domain.Bill, error) {
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 5)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.From.IsZero() {
		clauses = append(clauses, "created_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "created_at < "+arg(filter.To))
	}
	if phone := strings.TrimSpace(filter.Phone); phone != "" {
		clauses = append(clauses, "customer_phone = "+arg(phone))
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status = ANY("+arg(filter.Statuses)+")")
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, billColumns, s.billTable)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, bill_id DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bills := make([]domain.Bill, 0, 32)
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, *bill)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bills, nil
}

func (s *Store) UpdateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
	enc, err := encodeBill(bill)
	if err != nil {
		return nil, fmt.Errorf("encode bill: %w", err)
	}

	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET customer = $2::jsonb, customer_phone = $3, items = $4::jsonb, bar_items = $5::jsonb,
			kitchen_items = $6::jsonb, subtotal = $7, tax = $8, total = $9, status = $10, updated_at = $11
		WHERE bill_id = $1
		RETURNING %s
	`, s.billTable, billColumns),
		bill.BillID, enc.customer, strings.TrimSpace(bill.Customer.Phone), enc.items, enc.bar, enc.kitchen,
		bill.Subtotal, bill.Tax, bill.Total, bill.Status, bill.UpdatedAt,
	)
	return scanBill(row)
}

func (s *Store) UpdateBillStatus(ctx context.Context, billID string, status string, at time.Time) (*domain.Bill, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE %s SET status = $2, updated_at = $3
		WHERE bill_id = $1
		RETURNING %s
	`, s.billTable, billColumns), billID, status, at)
	return scanBill(row)
}

const inventoryColumns = `inventory_id, name, quantity, unit, min_stock, status, category, created_at, updated_at, last_refilled`

func scanInventoryItem(row rowScanner) (*domain.InventoryItem, error) {
	var (
		item         domain.InventoryItem
		lastRefilled pgtype.Timestamptz
	)
	if err := row.Scan(
		&item.InventoryID, &item.Name, &item.Quantity, &item.Unit, &item.MinStock,
		&item.Status, &item.Category, &item.CreatedAt, &item.UpdatedAt, &lastRefilled,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	if lastRefilled.Valid {
		at := lastRefilled.Time.UTC()
		item.LastRefilled = &at
	}
	return &item, nil
}

func (s *Store) CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, s.inventoryTable, inventoryColumns),
		item.InventoryID, item.Name, item.Quantity, item.Unit, item.MinStock,
		item.Status, item.Category, item.CreatedAt, item.UpdatedAt, nullTime(item.LastRefilled),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("inventory item %s: %w", item.InventoryID, store.ErrDuplicateKey)
		}
		return nil, err
	}
	created := item
	return &created, nil
}

func (s *Store) GetInventoryItem(ctx context.Context, inventoryID string) (*domain.InventoryItem, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s WHERE inventory_id = $1
	`, inventoryColumns, s.inventoryTable), inventoryID)
	return scanInventoryItem(row)
}

func (s *Store) ListInventoryItems(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s
	`, inventoryColumns, s.inventoryTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.InventoryItem, 0, 32)
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET name = $2, quantity = $3, unit = $4, min_stock = $5, status = $6, category = $7,
			updated_at = $8, last_refilled = $9
		WHERE inventory_id = $1
		RETURNING %s
	`, s.inventoryTable, inventoryColumns),
		item.InventoryID, item.Name, item.Quantity, item.Unit, item.MinStock,
		item.Status, item.Category, item.UpdatedAt, nullTime(item.LastRefilled),
	)
	return scanInventoryItem(row)
}

func (s *Store) DeleteInventoryItem(ctx context.Context, inventoryID string) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE inventory_id = $1
	`, s.inventoryTable), inventoryID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

const userColumns = `user_id, username, password_hash, name, role, is_active, created_at, updated_at`

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.UserID, &user.Username, &user.PasswordHash, &user.Name, &user.Role,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, s.userTable, userColumns),
		user.UserID, user.Username, user.PasswordHash, user.Name, user.Role,
		user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username %s: %w", user.Username, store.ErrDuplicateKey)
		}
		return nil, err
	}
	created := user
	return &created, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s WHERE username = $1
	`, userColumns, s.userTable), strings.ToLower(strings.TrimSpace(username)))
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s WHERE user_id = $1
	`, userColumns, s.userTable), userID)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s ORDER BY username ASC
	`, userColumns, s.userTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, 16)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET password_hash = $2, name = $3, role = $4, is_active = $5, updated_at = $6
		WHERE user_id = $1
		RETURNING %s
	`, s.userTable, userColumns),
		user.UserID, user.PasswordHash, user.Name, user.Role, user.IsActive, user.UpdatedAt,
	)
	return scanUser(row)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func nonNilLines(items []domain.LineItem) []domain.LineItem {
	if items == nil {
		return []domain.LineItem{}
	}
	return items
}
