package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"restostock/backend/internal/domain"
	"restostock/backend/internal/store"
)

// RecordSale validates the request and delegates the atomic stock deduction to
// the store. Staff and admin may both record sales.
func (s *Service) RecordSale(ctx context.Context, req domain.SaleRequest) (*domain.SaleResult, error) {
	if err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
		return nil, err
	}
	if err := validateSaleRequest(req); err != nil {
		return nil, err
	}

	result, err := s.repo.RecordSale(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": result.Order.ID,
		"items":    len(result.Items),
		"total":    result.Order.TotalAmount.String(),
	}).Info("sale recorded")

	return result, nil
}

// BulkRecordSales runs each group as its own independent sale. A failed group
// is reported and skipped; it never rolls back its siblings.
func (s *Service) BulkRecordSales(ctx context.Context, groups []domain.BulkSaleGroup) (*domain.BulkSaleResult, error) {
	if err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: at least one sale group required", store.ErrInvalidInput)
	}

	result := &domain.BulkSaleResult{
		Successful: make([]domain.SaleResult, 0, len(groups)),
		Failed:     make([]domain.BulkSaleFailure, 0),
	}
	result.Summary.TotalGroups = len(groups)

	for i, group := range groups {
		req := domain.SaleRequest{Items: group.Items, Notes: group.Notes}
		if !group.SaleDate.IsZero() {
			saleDate := group.SaleDate
			req.SaleDate = &saleDate
		}

		sale, err := s.repo.RecordSale(ctx, req)
		if err != nil {
			result.Failed = append(result.Failed, domain.BulkSaleFailure{
				Ref:    group.Ref,
				Group:  i,
				Reason: err.Error(),
			})
			s.logger.WithFields(logrus.Fields{
				"ref":   group.Ref,
				"group": i,
			}).WithError(err).Warn("bulk sale group failed")
			continue
		}

		result.Successful = append(result.Successful, *sale)
		result.Summary.TotalRevenue = result.Summary.TotalRevenue.Add(sale.Order.TotalAmount)
	}

	result.Summary.TotalSuccessful = len(result.Successful)
	result.Summary.TotalFailed = len(result.Failed)
	return result, nil
}

func (s *Service) SalesByDate(ctx context.Context, day time.Time) ([]domain.DaySalesLine, error) {
	return s.repo.SalesByDate(ctx, day)
}

func (s *Service) RecordPurchase(ctx context.Context, req domain.PurchaseRequest) (*domain.StockPurchase, error) {
	if err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one purchase item required", store.ErrInvalidInput)
	}
	for i, item := range req.Items {
		if item.ProductID < 1 {
			return nil, fmt.Errorf("%w: item %d: invalid product id", store.ErrInvalidInput, i)
		}
		if !item.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: item %d: quantity must be positive", store.ErrInvalidInput, i)
		}
		if item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: item %d: unit price must not be negative", store.ErrInvalidInput, i)
		}
	}

	purchase, err := s.repo.RecordPurchase(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"purchase_id": purchase.ID,
		"items":       len(purchase.Items),
		"total":       purchase.TotalAmount.String(),
	}).Info("stock purchase recorded")

	return purchase, nil
}

func validateSaleRequest(req domain.SaleRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: at least one sale item required", store.ErrInvalidInput)
	}
	for i, item := range req.Items {
		if item.ProductID < 1 {
			return fmt.Errorf("%w: item %d: invalid product id", store.ErrInvalidInput, i)
		}
		if item.Quantity.Cmp(decimal.Zero) <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be positive", store.ErrInvalidInput, i)
		}
	}
	return nil
}
