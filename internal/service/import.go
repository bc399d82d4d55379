package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"restostock/backend/internal/domain"
	"restostock/backend/internal/importer"
	"restostock/backend/internal/store"
	"restostock/backend/internal/xid"
)

type ProductImportResult struct {
	BatchID  string              `json:"batch_id"`
	Created  int                 `json:"created"`
	Merged   int                 `json:"merged"`
	Failed   []importer.RowError `json:"failed"`
	RowCount int                 `json:"row_count"`
}

type SalesImportResult struct {
	BatchID  string                 `json:"batch_id"`
	Result   *domain.BulkSaleResult `json:"result"`
	Failed   []importer.RowError    `json:"failed"`
	RowCount int                    `json:"row_count"`
}

// ImportProducts parses a product spreadsheet and upserts row by row. Each row
// stands alone: a bad row is reported and skipped, the rest still land.
func (s *Service) ImportProducts(ctx context.Context, r io.Reader) (*ProductImportResult, error) {
	if err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}

	rows, rowErrs, err := importer.ParseProducts(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", store.ErrInvalidInput, err.Error())
	}

	result := &ProductImportResult{
		BatchID:  xid.New("imp"),
		Failed:   rowErrs,
		RowCount: len(rows) + len(rowErrs),
	}

	for _, row := range rows {
		_, created, err := s.repo.UpsertProduct(ctx, domain.ProductUpsert{
			Name:         row.Name,
			Category:     row.Category,
			Unit:         row.Unit,
			Quantity:     row.Quantity,
			Price:        row.Price,
			ExpiryDate:   row.ExpiryDate,
			ReorderLevel: row.ReorderLevel,
			SupplierID:   row.SupplierID,
		})
		if err != nil {
			result.Failed = append(result.Failed, importer.RowError{Row: row.Row, Reason: err.Error()})
			continue
		}
		if created {
			result.Created++
		} else {
			result.Merged++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"batch":   result.BatchID,
		"created": result.Created,
		"merged":  result.Merged,
		"failed":  len(result.Failed),
	}).Info("product import finished")

	return result, nil
}

// ImportSales parses a sales spreadsheet, resolves product names against
// inventory, groups rows into orders and records each group as an independent
// sale. Rows sharing (sale_date, order_ref) form one order; rows without a ref
// are batched five to an order per day.
func (s *Service) ImportSales(ctx context.Context, r io.Reader) (*SalesImportResult, error) {
	if err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}

	rows, rowErrs, err := importer.ParseSales(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", store.ErrInvalidInput, err.Error())
	}

	result := &SalesImportResult{
		BatchID:  xid.New("imp"),
		Failed:   rowErrs,
		RowCount: len(rows) + len(rowErrs),
	}

	type groupKey struct {
		date string
		ref  string
	}
	groups := make(map[groupKey]*domain.BulkSaleGroup)
	order := make([]groupKey, 0, len(rows))
	productIDs := make(map[string]int64)
	unreffed := make(map[string]int)

	for _, row := range rows {
		nameKey := strings.ToLower(row.ProductName)
		id, known := productIDs[nameKey]
		if !known {
			product, err := s.repo.FindProductByName(ctx, row.ProductName)
			if err != nil {
				return nil, err
			}
			if product == nil {
				result.Failed = append(result.Failed, importer.RowError{
					Row:    row.Row,
					Reason: fmt.Sprintf("unknown product %q", row.ProductName),
				})
				continue
			}
			id = product.ID
			productIDs[nameKey] = id
		}

		day := row.SaleDate.Format("2006-01-02")
		ref := row.OrderRef
		if ref == "" {
			ref = fmt.Sprintf("auto_%s_%d", day, unreffed[day]/5)
			unreffed[day]++
		}

		key := groupKey{date: day, ref: ref}
		group, ok := groups[key]
		if !ok {
			group = &domain.BulkSaleGroup{Ref: ref, SaleDate: row.SaleDate, Notes: row.Notes}
			groups[key] = group
			order = append(order, key)
		}
		group.Items = append(group.Items, domain.SaleItemInput{
			ProductID: id,
			Quantity:  row.Quantity,
		})
	}

	bulk := make([]domain.BulkSaleGroup, 0, len(order))
	for _, key := range order {
		bulk = append(bulk, *groups[key])
	}

	if len(bulk) == 0 {
		if len(result.Failed) > 0 {
			result.Result = &domain.BulkSaleResult{
				Successful: []domain.SaleResult{},
				Failed:     []domain.BulkSaleFailure{},
			}
			return result, nil
		}
		return nil, fmt.Errorf("%w: spreadsheet produced no sale groups", store.ErrInvalidInput)
	}

	bulkResult, err := s.BulkRecordSales(ctx, bulk)
	if err != nil {
		return nil, err
	}
	result.Result = bulkResult

	s.logger.WithFields(logrus.Fields{
		"batch":      result.BatchID,
		"groups":     bulkResult.Summary.TotalGroups,
		"successful": bulkResult.Summary.TotalSuccessful,
		"failed":     bulkResult.Summary.TotalFailed,
	}).Info("sales import finished")

	return result, nil
}

// ExportProducts renders the whole inventory as an xlsx workbook.
func (s *Service) ExportProducts(ctx context.Context) (*excelize.File, error) {
	if err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}

	page, err := s.repo.ListProducts(ctx, domain.ProductFilter{Page: 1, Limit: 10000})
	if err != nil {
		return nil, err
	}
	return importer.BuildProductWorkbook(page.Products)
}
