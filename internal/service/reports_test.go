package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"restostock/backend/internal/domain"
	"restostock/backend/internal/store"
)

func nowDay() time.Time {
	return time.Now().UTC()
}

func TestSalesReportSummaryMatchesDailyBreakdown(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	sales := []domain.SaleRequest{
		{Items: []domain.SaleItemInput{{ProductID: 1, Quantity: qty("10")}}},
		{Items: []domain.SaleItemInput{{ProductID: 2, Quantity: qty("4")}}},
		{Items: []domain.SaleItemInput{{ProductID: 3, Quantity: qty("2")}}, SaleDate: &yesterday},
	}
	for _, req := range sales {
		_, err := svc.RecordSale(ctx, req)
		require.NoError(t, err)
	}

	report, err := svc.SalesReport(adminCtx(), domain.ReportTypeWeekly, "", "")
	require.NoError(t, err)

	require.EqualValues(t, 3, report.Summary.TotalOrders)
	require.EqualValues(t, 3, report.Summary.TotalItemsSold)

	// 10*50 + 4*120 + 2*220 = 500 + 480 + 440
	require.True(t, report.Summary.TotalRevenue.Equal(qty("1420")), "revenue %s", report.Summary.TotalRevenue)

	daySum := decimal.Zero
	for _, day := range report.DailyBreakdown {
		daySum = daySum.Add(day.Revenue)
	}
	require.True(t, report.Summary.TotalRevenue.Equal(daySum), "summary %s vs daily sum %s", report.Summary.TotalRevenue, daySum)

	productSum := decimal.Zero
	for _, row := range report.ProductBreakdown {
		productSum = productSum.Add(row.Revenue)
	}
	require.True(t, report.Summary.TotalRevenue.Equal(productSum))
	require.Len(t, report.DailyBreakdown, 2)
}

// Average order value weights each order by its item count, the way the SQL
// order-items join computes it.
func TestSalesReportAvgOrderValueIsItemWeighted(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	// One-item order: 10 kg rice at 50 = 500.
	_, err := svc.RecordSale(ctx, domain.SaleRequest{
		Items: []domain.SaleItemInput{{ProductID: 1, Quantity: qty("10")}},
	})
	require.NoError(t, err)

	// Two-item order: 1 kg rice + 1 litre oil = 50 + 120 = 170.
	_, err = svc.RecordSale(ctx, domain.SaleRequest{
		Items: []domain.SaleItemInput{
			{ProductID: 1, Quantity: qty("1")},
			{ProductID: 2, Quantity: qty("1")},
		},
	})
	require.NoError(t, err)

	report, err := svc.SalesReport(adminCtx(), domain.ReportTypeDaily, "", "")
	require.NoError(t, err)

	// (500*1 + 170*2) / 3 item rows = 280.
	require.True(t, report.Summary.AvgOrderValue.Equal(qty("280")), "avg %s", report.Summary.AvgOrderValue)
}

func TestSalesReportDailyExcludesOtherDays(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	_, err := svc.RecordSale(ctx, domain.SaleRequest{
		Items:    []domain.SaleItemInput{{ProductID: 1, Quantity: qty("10")}},
		SaleDate: &yesterday,
	})
	require.NoError(t, err)

	report, err := svc.SalesReport(adminCtx(), domain.ReportTypeDaily, "", "")
	require.NoError(t, err)
	require.EqualValues(t, 0, report.Summary.TotalOrders)
	require.True(t, report.Summary.TotalRevenue.IsZero())
}

func TestResolveReportWindow(t *testing.T) {
	now := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)

	start, end, err := ResolveReportWindow(domain.ReportTypeDaily, "", "", now)
	require.NoError(t, err)
	require.Equal(t, "2026-08-31", start.Format("2006-01-02"))
	require.Equal(t, "2026-08-31", end.Format("2006-01-02"))

	start, end, err = ResolveReportWindow(domain.ReportTypeWeekly, "", "", now)
	require.NoError(t, err)
	require.Equal(t, "2026-08-25", start.Format("2006-01-02"))
	require.Equal(t, "2026-08-31", end.Format("2006-01-02"))

	start, end, err = ResolveReportWindow(domain.ReportTypeCustom, "2026-08-01", "2026-08-15", now)
	require.NoError(t, err)
	require.Equal(t, "2026-08-01", start.Format("2006-01-02"))
	require.Equal(t, "2026-08-15", end.Format("2006-01-02"))

	_, _, err = ResolveReportWindow(domain.ReportTypeCustom, "", "", now)
	require.ErrorIs(t, err, store.ErrInvalidInput)

	_, _, err = ResolveReportWindow(domain.ReportTypeCustom, "2026-08-15", "2026-08-01", now)
	require.ErrorIs(t, err, store.ErrInvalidInput)

	_, _, err = ResolveReportWindow("quarterly", "", "", now)
	require.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestSalesByDate(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	_, err := svc.RecordSale(ctx, domain.SaleRequest{
		Items: []domain.SaleItemInput{
			{ProductID: 1, Quantity: qty("2")},
			{ProductID: 2, Quantity: qty("1")},
		},
	})
	require.NoError(t, err)

	lines, err := svc.SalesByDate(ctx, nowDay())
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, "Rice", lines[0].ProductName)

	empty, err := svc.SalesByDate(ctx, nowDay().AddDate(0, 0, -3))
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestPurchaseReportAggregates(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	_, err := svc.RecordPurchase(ctx, domain.PurchaseRequest{
		Items: []domain.PurchaseItemInput{
			{ProductID: 1, Quantity: qty("20"), UnitPrice: qty("45")},
			{ProductID: 2, Quantity: qty("10"), UnitPrice: qty("100")},
		},
	})
	require.NoError(t, err)

	report, err := svc.PurchaseReport(ctx, domain.ReportTypeDaily, "", "")
	require.NoError(t, err)
	require.EqualValues(t, 1, report.Summary.TotalPurchases)
	require.EqualValues(t, 2, report.Summary.TotalItems)
	require.True(t, report.Summary.TotalAmount.Equal(qty("1900")))
	require.Len(t, report.Details, 2)
	require.Len(t, report.DailyBreakdown, 1)
}
