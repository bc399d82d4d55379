package store

import (
	"context"
	"errors"
	"time"

	"restostock/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
)

// Repository is the single store handle passed to every component. The write
// paths RecordSale and RecordPurchase must be atomic: either every row lands
// and stock moves, or nothing does.
type Repository interface {
	UpsertProduct(ctx context.Context, in domain.ProductUpsert) (*domain.Product, bool, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	FindProductByName(ctx context.Context, name string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) (domain.ProductPage, error)
	UpdateProduct(ctx context.Context, id int64, update domain.ProductUpdate) (*domain.Product, error)
	FindLowStock(ctx context.Context) ([]domain.Product, error)

	RecordSale(ctx context.Context, req domain.SaleRequest) (*domain.SaleResult, error)
	SalesByDate(ctx context.Context, day time.Time) ([]domain.DaySalesLine, error)
	SalesReport(ctx context.Context, start, end time.Time) (domain.SalesReport, error)

	RecordPurchase(ctx context.Context, req domain.PurchaseRequest) (*domain.StockPurchase, error)
	PurchaseReport(ctx context.Context, start, end time.Time) (domain.PurchaseReport, error)

	ListRecipients(ctx context.Context, enabledOnly bool) ([]domain.Recipient, error)
	ListRecipientsByKind(ctx context.Context, kind string) ([]domain.Recipient, error)
	AddRecipient(ctx context.Context, email string) (*domain.Recipient, error)
	UpdateRecipientSettings(ctx context.Context, id int64, update domain.RecipientUpdate) (*domain.Recipient, error)
	LogAlert(ctx context.Context, entry domain.AlertLog) error
	ListAlertLogs(ctx context.Context, limit int) ([]domain.AlertLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}

// Recipient kinds accepted by ListRecipientsByKind.
const (
	RecipientKindAuto   = "auto"
	RecipientKindManual = "manual"
)
