// Package importer parses spreadsheet uploads into typed rows. It never
// touches storage: callers resolve names and persist.
package importer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// RowError ties a failed spreadsheet row to a human-readable reason. Row is
// the 1-indexed sheet row, header included, so it matches what the user sees
// in their spreadsheet program.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ProductRow is the typed form of one product sheet line.
type ProductRow struct {
	Row          int
	Name         string
	Category     string
	Unit         string
	Quantity     decimal.Decimal
	Price        *decimal.Decimal
	ExpiryDate   *time.Time
	ReorderLevel *int
	SupplierID   *int64
}

// SaleRow is the typed form of one sales sheet line. Products are referenced
// by name; the caller resolves them against inventory.
type SaleRow struct {
	Row         int
	SaleDate    time.Time
	ProductName string
	Quantity    decimal.Decimal
	OrderRef    string
	Notes       string
}

var productHeaderAliases = map[string]string{
	"name":          "name",
	"product_name":  "name",
	"product":       "name",
	"item":          "name",
	"category":      "category",
	"unit":          "unit",
	"quantity":      "quantity",
	"qty":           "quantity",
	"stock":         "quantity",
	"price":         "price",
	"unit_price":    "price",
	"expiry_date":   "expiry_date",
	"expiry":        "expiry_date",
	"reorder_level": "reorder_level",
	"reorder":       "reorder_level",
	"supplier_id":   "supplier_id",
}

var saleHeaderAliases = map[string]string{
	"sale_date":    "sale_date",
	"date":         "sale_date",
	"product_name": "product_name",
	"product":      "product_name",
	"name":         "product_name",
	"item":         "product_name",
	"quantity":     "quantity",
	"qty":          "quantity",
	"amount":       "quantity",
	"order_ref":    "order_ref",
	"ref":          "order_ref",
	"notes":        "notes",
}

// ParseProducts reads the first sheet of an xlsx stream into product rows.
// Structurally bad rows land in the error list; the workbook being unreadable
// at all is the only fatal error.
func ParseProducts(r io.Reader) ([]ProductRow, []RowError, error) {
	rows, err := sheetRows(r)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("spreadsheet has no data rows")
	}

	cols, err := mapHeaders(rows[0], productHeaderAliases, "name", "category", "unit", "quantity")
	if err != nil {
		return nil, nil, err
	}

	parsed := make([]ProductRow, 0, len(rows)-1)
	var failures []RowError
	for i, raw := range rows[1:] {
		rowNum := i + 2
		if blankRow(raw) {
			continue
		}

		row := ProductRow{
			Row:      rowNum,
			Name:     strings.TrimSpace(cell(raw, cols["name"])),
			Category: strings.TrimSpace(cell(raw, cols["category"])),
			Unit:     strings.TrimSpace(cell(raw, cols["unit"])),
		}

		switch {
		case len(row.Name) < 2 || len(row.Name) > 255:
			failures = append(failures, RowError{Row: rowNum, Reason: "name must be 2-255 characters"})
			continue
		case row.Category == "" || len(row.Category) > 100:
			failures = append(failures, RowError{Row: rowNum, Reason: "category must be 1-100 characters"})
			continue
		case row.Unit == "" || len(row.Unit) > 50:
			failures = append(failures, RowError{Row: rowNum, Reason: "unit must be 1-50 characters"})
			continue
		}

		qty, err := parseDecimal(cell(raw, cols["quantity"]))
		if err != nil || qty.IsNegative() {
			failures = append(failures, RowError{Row: rowNum, Reason: "quantity must be a non-negative number"})
			continue
		}
		row.Quantity = qty

		if v := strings.TrimSpace(cell(raw, cols["price"])); v != "" {
			price, err := parseDecimal(v)
			if err != nil || price.IsNegative() {
				failures = append(failures, RowError{Row: rowNum, Reason: "price must be a non-negative number"})
				continue
			}
			row.Price = &price
		}

		if v := strings.TrimSpace(cell(raw, cols["expiry_date"])); v != "" {
			expiry, err := parseDate(v)
			if err != nil {
				failures = append(failures, RowError{Row: rowNum, Reason: "expiry_date is not a recognizable date"})
				continue
			}
			row.ExpiryDate = &expiry
		}

		if v := strings.TrimSpace(cell(raw, cols["reorder_level"])); v != "" {
			level, err := parseDecimal(v)
			if err != nil || level.IsNegative() || !level.IsInteger() {
				failures = append(failures, RowError{Row: rowNum, Reason: "reorder_level must be a non-negative whole number"})
				continue
			}
			l := int(level.IntPart())
			row.ReorderLevel = &l
		}

		if v := strings.TrimSpace(cell(raw, cols["supplier_id"])); v != "" {
			id, err := parseDecimal(v)
			if err != nil || !id.IsInteger() || id.IntPart() < 1 {
				failures = append(failures, RowError{Row: rowNum, Reason: "supplier_id must be a positive whole number"})
				continue
			}
			sid := id.IntPart()
			row.SupplierID = &sid
		}

		parsed = append(parsed, row)
	}

	return parsed, failures, nil
}

// ParseSales reads the first sheet of an xlsx stream into sale rows.
func ParseSales(r io.Reader) ([]SaleRow, []RowError, error) {
	rows, err := sheetRows(r)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("spreadsheet has no data rows")
	}

	cols, err := mapHeaders(rows[0], saleHeaderAliases, "sale_date", "product_name", "quantity")
	if err != nil {
		return nil, nil, err
	}

	parsed := make([]SaleRow, 0, len(rows)-1)
	var failures []RowError
	for i, raw := range rows[1:] {
		rowNum := i + 2
		if blankRow(raw) {
			continue
		}

		row := SaleRow{
			Row:         rowNum,
			ProductName: strings.TrimSpace(cell(raw, cols["product_name"])),
			OrderRef:    strings.TrimSpace(cell(raw, cols["order_ref"])),
			Notes:       strings.TrimSpace(cell(raw, cols["notes"])),
		}

		if row.ProductName == "" {
			failures = append(failures, RowError{Row: rowNum, Reason: "product name is required"})
			continue
		}

		saleDate, err := parseDate(strings.TrimSpace(cell(raw, cols["sale_date"])))
		if err != nil {
			failures = append(failures, RowError{Row: rowNum, Reason: "sale_date is not a recognizable date"})
			continue
		}
		row.SaleDate = saleDate

		qty, err := parseDecimal(cell(raw, cols["quantity"]))
		if err != nil || !qty.IsPositive() {
			failures = append(failures, RowError{Row: rowNum, Reason: "quantity must be a positive number"})
			continue
		}
		row.Quantity = qty

		parsed = append(parsed, row)
	}

	return parsed, failures, nil
}

func sheetRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// mapHeaders normalizes the header row (lowercase, spaces to underscores),
// resolves aliases, and checks the required columns are present.
func mapHeaders(header []string, aliases map[string]string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
		canonical, ok := aliases[key]
		if !ok {
			continue
		}
		if _, dup := cols[canonical]; !dup {
			cols[canonical] = i
		}
	}

	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}

	// Absent optional columns map to -1 so cell() treats them as blank.
	for _, canonical := range aliases {
		if _, ok := cols[canonical]; !ok {
			cols[canonical] = -1
		}
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("empty")
	}
	return decimal.NewFromString(raw)
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01-02-06",
	"2006-01-02 15:04:05",
	"2/1/2006",
	time.RFC3339,
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	// excelize can surface dates as serial numbers when the sheet is unstyled.
	if serial, err := parseDecimal(raw); err == nil && serial.GreaterThan(decimal.NewFromInt(25569)) {
		f, _ := serial.Float64()
		if t, err := excelize.ExcelDateToTime(f, false); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
