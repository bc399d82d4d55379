package mailer

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"restostock/backend/internal/domain"
)

var lowStockTmpl = template.Must(template.New("low_stock").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
<h2>Low Stock Alert</h2>
<p>The following items are at or below their reorder level:</p>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Item</th><th>Category</th><th>Current Stock</th><th>Unit</th><th>Reorder Level</th></tr>
{{range .Products}}<tr>
<td>{{.Name}}</td><td>{{.Category}}</td><td>{{.Quantity}}</td><td>{{.Unit}}</td><td>{{.ReorderLevel}}</td>
</tr>
{{end}}</table>
<p>Checked at {{.CheckedAt}}.</p>
</body>
</html>`))

var salesReportTmpl = template.Must(template.New("sales_report").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
<h2>{{.Title}}</h2>
<p>Period: {{.Start}} to {{.End}}</p>
<h3>Summary</h3>
<table border="1" cellpadding="6" cellspacing="0">
<tr><td>Total orders</td><td>{{.Summary.TotalOrders}}</td></tr>
<tr><td>Items sold</td><td>{{.Summary.TotalItemsSold}}</td></tr>
<tr><td>Total quantity</td><td>{{.Summary.TotalQuantity}}</td></tr>
<tr><td>Total revenue</td><td>{{.Summary.TotalRevenue}}</td></tr>
<tr><td>Average order value</td><td>{{.Summary.AvgOrderValue}}</td></tr>
</table>
{{if .Products}}<h3>Top Products</h3>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Product</th><th>Category</th><th>Quantity</th><th>Revenue</th></tr>
{{range .Products}}<tr>
<td>{{.ProductName}}</td><td>{{.Category}}</td><td>{{.QuantitySold}} {{.Unit}}</td><td>{{.Revenue}}</td>
</tr>
{{end}}</table>
{{end}}</body>
</html>`))

// RenderLowStockAlert builds the subject and HTML body for the scheduled
// low-stock mail.
func RenderLowStockAlert(products []domain.Product, now time.Time) (string, string, error) {
	subject := fmt.Sprintf("Low stock alert: %d item(s) need restocking", len(products))

	var body strings.Builder
	err := lowStockTmpl.Execute(&body, struct {
		Products  []domain.Product
		CheckedAt string
	}{
		Products:  products,
		CheckedAt: now.UTC().Format("2006-01-02 15:04 MST"),
	})
	if err != nil {
		return "", "", err
	}
	return subject, body.String(), nil
}

// RenderSalesReport builds the subject and HTML body for a report mail. The
// product table is capped so a wide catalog does not produce an unreadable
// mail.
func RenderSalesReport(title string, report domain.SalesReport, start, end time.Time) (string, string, error) {
	subject := fmt.Sprintf("%s (%s to %s)", title, start.Format("2006-01-02"), end.Format("2006-01-02"))

	products := report.ProductBreakdown
	if len(products) > 10 {
		products = products[:10]
	}

	var body strings.Builder
	err := salesReportTmpl.Execute(&body, struct {
		Title    string
		Start    string
		End      string
		Summary  domain.SalesSummary
		Products []domain.ProductBreakdownRow
	}{
		Title:    title,
		Start:    start.Format("2006-01-02"),
		End:      end.Format("2006-01-02"),
		Summary:  report.Summary,
		Products: products,
	})
	if err != nil {
		return "", "", err
	}
	return subject, body.String(), nil
}
