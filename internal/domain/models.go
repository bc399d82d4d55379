package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is an inventory row. Quantity is a decimal because ingredients are
// tracked in fractional units (kg, litres). Price may be unset for items that
// are never sold directly.
type Product struct {
	ID           int64               `json:"product_id"`
	Name         string              `json:"name"`
	Category     string              `json:"category"`
	Unit         string              `json:"unit"`
	Quantity     decimal.Decimal     `json:"quantity"`
	Price        decimal.NullDecimal `json:"price"`
	ExpiryDate   *time.Time          `json:"expiry_date,omitempty"`
	ReorderLevel int                 `json:"reorder_level"`
	SupplierID   *int64              `json:"supplier_id,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// LowStock reports whether the product is at or below its reorder level.
func (p Product) LowStock() bool {
	return p.Quantity.Cmp(decimal.NewFromInt(int64(p.ReorderLevel))) <= 0
}

// ProductUpsert is the write shape shared by the add endpoint and the bulk
// importer. Merge identity is (name, category, unit): an existing row gets its
// quantity incremented and its metadata replaced, otherwise a new row is
// inserted.
type ProductUpsert struct {
	Name         string           `json:"name" validate:"required,min=2,max=255"`
	Category     string           `json:"category" validate:"required,max=100"`
	Unit         string           `json:"unit" validate:"required,max=50"`
	Quantity     decimal.Decimal  `json:"quantity"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	ExpiryDate   *time.Time       `json:"expiry_date,omitempty"`
	ReorderLevel *int             `json:"reorder_level,omitempty" validate:"omitempty,min=0"`
	SupplierID   *int64           `json:"supplier_id,omitempty"`
}

// ProductUpdate carries the whitelisted partial-update fields. A nil pointer
// means "leave unchanged"; empty strings on nullable fields are normalized to
// NULL by the service before the store sees them.
type ProductUpdate struct {
	Name          *string          `json:"name,omitempty"`
	Category      *string          `json:"category,omitempty"`
	Unit          *string          `json:"unit,omitempty"`
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	ClearPrice    bool             `json:"-"`
	ExpiryDate    *time.Time       `json:"expiry_date,omitempty"`
	ClearExpiry   bool             `json:"-"`
	ReorderLevel  *int             `json:"reorder_level,omitempty"`
	SupplierID    *int64           `json:"supplier_id,omitempty"`
	ClearSupplier bool             `json:"-"`
}

func (u ProductUpdate) Empty() bool {
	return u.Name == nil && u.Category == nil && u.Unit == nil &&
		u.Quantity == nil && u.Price == nil && !u.ClearPrice &&
		u.ExpiryDate == nil && !u.ClearExpiry &&
		u.ReorderLevel == nil && u.SupplierID == nil && !u.ClearSupplier
}

// ProductFilter drives the paginated listing. Page is 1-indexed.
type ProductFilter struct {
	Search   string `json:"search,omitempty"`
	Category string `json:"category,omitempty"`
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
}

type ProductPage struct {
	Products []Product `json:"products"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	Total    int64     `json:"total"`
}

// SaleItemInput is one requested line of a sale: the caller supplies only the
// product and desired quantity, never the price.
type SaleItemInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type SaleRequest struct {
	Items    []SaleItemInput `json:"items" validate:"required,min=1,dive"`
	SaleDate *time.Time      `json:"sale_date,omitempty"`
	Notes    string          `json:"notes,omitempty"`
}

// SalesOrder is the immutable order header written once per committed sale.
type SalesOrder struct {
	ID          int64           `json:"order_id"`
	OrderDate   time.Time       `json:"order_date"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// SalesItem snapshots the unit price at the moment of sale; it is not a live
// reference to the product price.
type SalesItem struct {
	ID          int64           `json:"order_item_id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type SaleResult struct {
	Order SalesOrder  `json:"order"`
	Items []SalesItem `json:"items"`
	Notes string      `json:"notes,omitempty"`
}

// BulkSaleGroup is one independent sale attempt within a bulk submission.
// Groups do not share a transaction: one group failing leaves the others alone.
type BulkSaleGroup struct {
	Ref      string          `json:"ref,omitempty"`
	SaleDate time.Time       `json:"sale_date"`
	Items    []SaleItemInput `json:"items"`
	Notes    string          `json:"notes,omitempty"`
}

type BulkSaleFailure struct {
	Ref    string `json:"ref,omitempty"`
	Group  int    `json:"group"`
	Reason string `json:"reason"`
}

type BulkSaleSummary struct {
	TotalGroups     int             `json:"total_groups"`
	TotalSuccessful int             `json:"total_successful"`
	TotalFailed     int             `json:"total_failed"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
}

type BulkSaleResult struct {
	Successful []SaleResult      `json:"successful"`
	Failed     []BulkSaleFailure `json:"failed"`
	Summary    BulkSaleSummary   `json:"summary"`
}

// DaySalesLine is one sale line joined with its product name, as returned by
// the daily sales query.
type DaySalesLine struct {
	OrderID     int64           `json:"order_id"`
	OrderDate   time.Time       `json:"order_date"`
	OrderTotal  decimal.Decimal `json:"total_amount"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type SalesSummary struct {
	TotalOrders    int64           `json:"total_orders"`
	TotalItemsSold int64           `json:"total_items_sold"`
	TotalQuantity  decimal.Decimal `json:"total_quantity"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	AvgOrderValue  decimal.Decimal `json:"avg_order_value"`
}

type ProductBreakdownRow struct {
	ProductName  string          `json:"product_name"`
	Category     string          `json:"category"`
	Unit         string          `json:"unit"`
	QuantitySold decimal.Decimal `json:"total_quantity_sold"`
	AvgUnitPrice decimal.Decimal `json:"avg_unit_price"`
	Revenue      decimal.Decimal `json:"total_revenue"`
}

type DailyBreakdownRow struct {
	Date    string          `json:"sale_date"`
	Orders  int64           `json:"orders_count"`
	Revenue decimal.Decimal `json:"day_revenue"`
}

type SalesReport struct {
	Summary          SalesSummary          `json:"summary"`
	ProductBreakdown []ProductBreakdownRow `json:"productBreakdown"`
	DailyBreakdown   []DailyBreakdownRow   `json:"dailyBreakdown"`
}

// Stock purchases feed the purchase report. Recording one increments product
// stock in the same transaction that writes the purchase rows.
type PurchaseItemInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type PurchaseRequest struct {
	PurchaseDate *time.Time          `json:"purchase_date,omitempty"`
	PurchaseType string              `json:"purchase_type,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	Items        []PurchaseItemInput `json:"items" validate:"required,min=1,dive"`
}

type StockPurchaseItem struct {
	ID         int64           `json:"purchase_item_id"`
	PurchaseID int64           `json:"purchase_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type StockPurchase struct {
	ID           int64               `json:"purchase_id"`
	PurchaseDate time.Time           `json:"purchase_date"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
	PurchaseType string              `json:"purchase_type"`
	Notes        string              `json:"notes,omitempty"`
	Items        []StockPurchaseItem `json:"items"`
}

type PurchaseSummary struct {
	TotalPurchases    int64           `json:"total_purchases"`
	TotalItems        int64           `json:"total_items"`
	TotalQuantity     decimal.Decimal `json:"total_quantity"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	AvgPurchaseAmount decimal.Decimal `json:"avg_purchase_amount"`
}

type PurchaseDailyRow struct {
	Date         string          `json:"purchase_date"`
	Purchases    int64           `json:"purchases_count"`
	DayTotal     decimal.Decimal `json:"day_total"`
	PurchaseType string          `json:"purchase_type"`
}

type PurchaseProductRow struct {
	ProductName       string          `json:"product_name"`
	Category          string          `json:"category"`
	Unit              string          `json:"unit"`
	QuantityPurchased decimal.Decimal `json:"total_quantity_purchased"`
	AvgUnitPrice      decimal.Decimal `json:"avg_unit_price"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
}

type PurchaseDetailRow struct {
	PurchaseID   int64           `json:"purchase_id"`
	PurchaseDate time.Time       `json:"purchase_date"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	PurchaseType string          `json:"purchase_type"`
	Notes        string          `json:"notes,omitempty"`
	ProductName  string          `json:"product_name"`
	Category     string          `json:"category"`
	Unit         string          `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

type PurchaseReport struct {
	Summary          PurchaseSummary      `json:"summary"`
	DailyBreakdown   []PurchaseDailyRow   `json:"dailyBreakdown"`
	ProductBreakdown []PurchaseProductRow `json:"productBreakdown"`
	Details          []PurchaseDetailRow  `json:"details"`
}

// Recipient is an alert-mail subscriber. AutoAlerts opts into scheduled
// low-stock mails, ManualReports into operator-triggered report mails.
type Recipient struct {
	ID            int64  `json:"recipient_id"`
	Email         string `json:"email"`
	Enabled       bool   `json:"enabled"`
	AutoAlerts    bool   `json:"auto_alerts"`
	ManualReports bool   `json:"manual_reports"`
}

type RecipientUpdate struct {
	Enabled       *bool `json:"enabled,omitempty"`
	AutoAlerts    *bool `json:"auto_alerts,omitempty"`
	ManualReports *bool `json:"manual_reports,omitempty"`
}

type AlertLog struct {
	ID          int64     `json:"alert_id"`
	Type        string    `json:"type"`
	RecipientID int64     `json:"recipient_id"`
	ProductID   *int64    `json:"product_id,omitempty"`
	Summary     string    `json:"summary"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	AlertTypeLowStock    = "low_stock"
	AlertTypeDailyReport = "daily_report"
	AlertTypeManual      = "manual_report"
)

const (
	ReportTypeDaily   = "daily"
	ReportTypeWeekly  = "weekly"
	ReportTypeMonthly = "monthly"
	ReportTypeCustom  = "custom"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)
