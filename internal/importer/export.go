package importer

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"restostock/backend/internal/domain"
)

var exportHeader = []string{"name", "category", "unit", "quantity", "price", "expiry_date", "reorder_level", "supplier_id"}

// BuildProductWorkbook renders the inventory into an xlsx workbook whose
// columns round-trip through ParseProducts.
func BuildProductWorkbook(products []domain.Product) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, h := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for rowIdx, p := range products {
		values := []any{
			p.Name,
			p.Category,
			p.Unit,
			p.Quantity.String(),
			"",
			"",
			p.ReorderLevel,
			"",
		}
		if p.Price.Valid {
			values[4] = p.Price.Decimal.String()
		}
		if p.ExpiryDate != nil {
			values[5] = p.ExpiryDate.Format("2006-01-02")
		}
		if p.SupplierID != nil {
			values[7] = *p.SupplierID
		}

		for colIdx, v := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", rowIdx+2, err)
			}
		}
	}

	return f, nil
}
