package domain

import "time"

type MenuItem struct {
	ItemID            string    `json:"itemId"`
	Name              string    `json:"name"`
	Price             float64   `json:"price"`
	Category          string    `json:"category"`
	Stock             int       `json:"stock"`
	LowStockThreshold int       `json:"lowStockThreshold"`
	IsKitchen         bool      `json:"isKitchen"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type MenuItemCreateRequest struct {
	ItemID            string  `json:"itemId"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Category          string  `json:"category"`
	Stock             int     `json:"stock"`
	LowStockThreshold int     `json:"lowStockThreshold"`
	IsKitchen         bool    `json:"isKitchen"`
}

// MenuItemPatch lists the mutable menu item fields. ItemID is accepted only
// so that a body echoing the current id is not rejected; changing it is.
type MenuItemPatch struct {
	ItemID            *string  `json:"itemId,omitempty"`
	Name              *string  `json:"name,omitempty"`
	Price             *float64 `json:"price,omitempty"`
	Category          *string  `json:"category,omitempty"`
	Stock             *int     `json:"stock,omitempty"`
	LowStockThreshold *int     `json:"lowStockThreshold,omitempty"`
	IsKitchen         *bool    `json:"isKitchen,omitempty"`
}

type StockDeltaRequest struct {
	Quantity *int `json:"quantity"`
}

type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type LineItem struct {
	ItemID    string  `json:"itemId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	IsKitchen bool    `json:"isKitchen"`
}

type Bill struct {
	BillID        string     `json:"billId"`
	Customer      Customer   `json:"customer"`
	Items         []LineItem `json:"items"`
	BarItems      []LineItem `json:"barItems"`
	KitchenItems  []LineItem `json:"kitchenItems"`
	Subtotal      float64    `json:"subtotal"`
	Tax           float64    `json:"tax"`
	Total         float64    `json:"total"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"paymentMethod"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type BillSubmitRequest struct {
	Customer      *Customer  `json:"customer"`
	Items         []LineItem `json:"items"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	Status        string     `json:"status,omitempty"`
}

type BillReplaceRequest struct {
	Customer *Customer  `json:"customer,omitempty"`
	Items    []LineItem `json:"items"`
	Status   string     `json:"status,omitempty"`
}

type BillStatusRequest struct {
	Status string `json:"status"`
}

// KitchenOrder is the kitchen-facing view of a bill. It is never persisted.
type KitchenOrder struct {
	BillID   string     `json:"billId"`
	Customer Customer   `json:"customer"`
	Items    []LineItem `json:"items"`
	Added    []LineItem `json:"added,omitempty"`
	Status   string     `json:"status"`
	SentAt   time.Time  `json:"sentAt"`
}

// StockAdjustment is the outcome of one catalog stock delta applied while
// reconciling a bill.
type StockAdjustment struct {
	ItemID  string `json:"itemId"`
	Delta   int    `json:"delta"`
	Applied bool   `json:"applied"`
	Stock   *int   `json:"stock,omitempty"`
	Error   string `json:"error,omitempty"`
}

type BillSubmitResult struct {
	Bill             Bill              `json:"bill"`
	IsUpdate         bool              `json:"isUpdate"`
	KitchenOrder     *KitchenOrder     `json:"kitchenOrder"`
	StockAdjustments []StockAdjustment `json:"stockAdjustments"`
}

type BillReplaceResult struct {
	Bill             Bill              `json:"bill"`
	StockAdjustments []StockAdjustment `json:"stockAdjustments"`
}

type BillStats struct {
	TotalBills    int     `json:"totalBills"`
	TodayBills    int     `json:"todayBills"`
	TotalRevenue  float64 `json:"totalRevenue"`
	TodayRevenue  float64 `json:"todayRevenue"`
	AvgOrderValue float64 `json:"avgOrderValue"`
}

type InventoryItem struct {
	InventoryID  string     `json:"inventoryId"`
	Name         string     `json:"name"`
	Quantity     int        `json:"quantity"`
	Unit         string     `json:"unit"`
	MinStock     int        `json:"minStock"`
	Status       string     `json:"status"`
	Category     string     `json:"category"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastRefilled *time.Time `json:"lastRefilled"`
}

// InventoryItemRequest carries create and update bodies. Status is never
// accepted from clients; it is derived from the stored quantity and minStock.
type InventoryItemRequest struct {
	Name     string `json:"name"`
	Quantity *int   `json:"quantity,omitempty"`
	Unit     string `json:"unit"`
	MinStock int    `json:"minStock"`
	Category string `json:"category"`
}

type InventoryStatusRequest struct {
	Status string `json:"status"`
}

type InventoryRefillRequest struct {
	Quantity *int `json:"quantity"`
}

// User is the persistence model. PasswordHash never leaves the service layer;
// handlers respond with UserView.
type User struct {
	UserID       string
	Username     string
	PasswordHash string
	Name         string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserView struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u User) View() UserView {
	return UserView{
		UserID:    u.UserID,
		Username:  u.Username,
		Name:      u.Name,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type UserPatch struct {
	Name     *string `json:"name,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
	Password *string `json:"password,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type LoginResponse struct {
	User      UserView `json:"user"`
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expiresAt"`
}

type Actor struct {
	UserID   string
	Username string
	Role     string
}

const (
	BillStatusOpen      = "open"
	BillStatusPending   = "pending"
	BillStatusCompleted = "completed"
)

const (
	InventoryStatusAvailable = "available"
	InventoryStatusLow       = "low"
	InventoryStatusOut       = "out"
)

const (
	RoleBar     = "bar"
	RoleKitchen = "kitchen"
	RoleAdmin   = "admin"
)

const (
	DefaultPaymentMethod     = "cash"
	DefaultLowStockThreshold = 10
	DefaultInventoryUnit     = "pcs"
	DefaultInventoryMinStock = 10
	DefaultInventoryCategory = "general"
)

// DeriveInventoryStatus maps a quantity against its minimum stock level.
func DeriveInventoryStatus(quantity int, minStock int) string {
	if minStock == 0 {
		minStock = DefaultInventoryMinStock
	}
	switch {
	case quantity == 0:
		return InventoryStatusOut
	case quantity <= minStock:
		return InventoryStatusLow
	default:
		return InventoryStatusAvailable
	}
}

func IsInventoryStatus(status string) bool {
	switch status {
	case InventoryStatusAvailable, InventoryStatusLow, InventoryStatusOut:
		return true
	default:
		return false
	}
}

func IsRole(role string) bool {
	switch role {
	case RoleBar, RoleKitchen, RoleAdmin:
		return true
	default:
		return false
	}
}
