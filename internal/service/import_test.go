package service

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]any) io.Reader {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestImportProductsCreatesAndMerges(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	sheet := buildWorkbook(t, [][]any{
		{"name", "category", "unit", "quantity", "price"},
		{"Rice", "Grain", "kg", "5", "55"},
		{"Basil", "Herb", "bunch", "30", "15"},
		{"X", "Herb", "bunch", "1", ""},
	})

	result, err := svc.ImportProducts(ctx, sheet)
	require.NoError(t, err)
	require.Equal(t, 1, result.Created, "Basil is new")
	require.Equal(t, 1, result.Merged, "Rice merges into the seeded row")
	require.Len(t, result.Failed, 1)
	require.NotEmpty(t, result.BatchID)

	rice, err := svc.GetProduct(ctx, 1)
	require.NoError(t, err)
	require.True(t, rice.Quantity.Equal(qty("105")))
	require.True(t, rice.Price.Decimal.Equal(qty("55")), "merge replaces price")
}

func TestImportSalesGroupsByDateAndRef(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	sheet := buildWorkbook(t, [][]any{
		{"sale_date", "product_name", "quantity", "order_ref"},
		{"2026-08-30", "Rice", "2", "ORD-1"},
		{"2026-08-30", "Onion", "1", "ORD-1"},
		{"2026-08-30", "Rice", "3", "ORD-2"},
		{"2026-08-31", "Rice", "1", "ORD-1"},
	})

	result, err := svc.ImportSales(ctx, sheet)
	require.NoError(t, err)
	require.Empty(t, result.Failed)

	// ORD-1 on two different days is two orders.
	require.Equal(t, 3, result.Result.Summary.TotalGroups)
	require.Equal(t, 3, result.Result.Summary.TotalSuccessful)
	require.Equal(t, 0, result.Result.Summary.TotalFailed)

	rice, err := svc.GetProduct(ctx, 1)
	require.NoError(t, err)
	require.True(t, rice.Quantity.Equal(qty("94")))
}

func TestImportSalesAutoRefBatchesRowsOfSameDay(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	rows := [][]any{{"sale_date", "product_name", "quantity"}}
	for i := 0; i < 7; i++ {
		rows = append(rows, []any{"2026-08-30", "Rice", "1"})
	}

	sheet := buildWorkbook(t, rows)
	result, err := svc.ImportSales(ctx, sheet)
	require.NoError(t, err)

	// 7 unreferenced rows batch five to an order: two orders.
	require.Equal(t, 2, result.Result.Summary.TotalGroups)
	require.Equal(t, 2, result.Result.Summary.TotalSuccessful)
}

func TestImportSalesUnknownProductFailsRowNotFile(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	sheet := buildWorkbook(t, [][]any{
		{"sale_date", "product_name", "quantity"},
		{"2026-08-30", "Dragonfruit", "2"},
		{"2026-08-30", "Rice", "2"},
	})

	result, err := svc.ImportSales(ctx, sheet)
	require.NoError(t, err)
	require.Len(t, result.Failed, 1)
	require.Contains(t, result.Failed[0].Reason, "Dragonfruit")
	require.Equal(t, 1, result.Result.Summary.TotalSuccessful)
}

func TestImportSalesInsufficientStockFailsGroupOnly(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	sheet := buildWorkbook(t, [][]any{
		{"sale_date", "product_name", "quantity", "order_ref"},
		{"2026-08-30", "Rice", "5000", "BIG"},
		{"2026-08-30", "Onion", "2", "SMALL"},
	})

	result, err := svc.ImportSales(ctx, sheet)
	require.NoError(t, err)
	require.Equal(t, 1, result.Result.Summary.TotalFailed)
	require.Equal(t, 1, result.Result.Summary.TotalSuccessful)
	require.Equal(t, "BIG", result.Result.Failed[0].Ref)

	onion, err := svc.GetProduct(ctx, 4)
	require.NoError(t, err)
	require.True(t, onion.Quantity.Equal(qty("58")))
}

func TestExportProducts(t *testing.T) {
	svc := newTestService()

	workbook, err := svc.ExportProducts(adminCtx())
	require.NoError(t, err)

	sheet := workbook.GetSheetName(0)
	rows, err := workbook.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 6, "header plus five seeded products")
	require.Equal(t, "name", rows[0][0])

	_, err = svc.ExportProducts(staffCtx())
	require.Error(t, err, "export is admin only")
}
