package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"restostock/backend/internal/domain"
	"restostock/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const productColumns = `product_id, name, category, unit, quantity, price, expiry_date, reorder_level, supplier_id, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	var expiry sql.NullTime
	var supplier sql.NullInt64
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Unit, &p.Quantity, &p.Price,
		&expiry, &p.ReorderLevel, &supplier, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if expiry.Valid {
		e := expiry.Time.UTC()
		p.ExpiryDate = &e
	}
	if supplier.Valid {
		id := supplier.Int64
		p.SupplierID = &id
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// UpsertProduct merges by (name, category, unit): a matching row gets its
// quantity incremented and price/expiry/reorder/supplier replaced; otherwise a
// new row is inserted. The identity read locks the row so two imports of the
// same ingredient cannot both take the insert branch.
func (s *Store) UpsertProduct(ctx context.Context, in domain.ProductUpsert) (*domain.Product, bool, error) {
	if in.Name == "" || in.Category == "" || in.Unit == "" || in.Quantity.IsNegative() {
		return nil, false, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var existingID int64
	err = tx.QueryRowContext(ctx, `
		SELECT product_id
		FROM products
		WHERE LOWER(name) = LOWER($1) AND category = $2 AND unit = $3
		FOR UPDATE
	`, in.Name, in.Category, in.Unit).Scan(&existingID)

	reorder := 10
	if in.ReorderLevel != nil {
		reorder = *in.ReorderLevel
	}

	var created bool
	var productID int64
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET quantity = quantity + $2, price = $3, expiry_date = $4,
				reorder_level = $5, supplier_id = $6, updated_at = now()
			WHERE product_id = $1
		`, existingID, in.Quantity, nullDecimal(in.Price), nullDate(in.ExpiryDate), reorder, nullInt64(in.SupplierID))
		if err != nil {
			return nil, false, err
		}
		productID = existingID
	case errors.Is(err, sql.ErrNoRows):
		err = tx.QueryRowContext(ctx, `
			INSERT INTO products (name, category, unit, quantity, price, expiry_date, reorder_level, supplier_id, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
			RETURNING product_id
		`, in.Name, in.Category, in.Unit, in.Quantity, nullDecimal(in.Price), nullDate(in.ExpiryDate), reorder, nullInt64(in.SupplierID)).Scan(&productID)
		if err != nil {
			return nil, false, err
		}
		created = true
	default:
		return nil, false, err
	}

	product, err := scanProduct(tx.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE product_id = $1`, productID))
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return product, created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := scanProduct(s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE product_id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

// FindProductByName reports absence as (nil, nil): callers use it as an
// existence probe, not a fetch that is expected to succeed.
func (s *Store) FindProductByName(ctx context.Context, name string) (*domain.Product, error) {
	product, err := scanProduct(s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE LOWER(name) = LOWER($1)`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return product, nil
}

func (s *Store) ListProducts(ctx context.Context, filter domain.ProductFilter) (domain.ProductPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}

	where := `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%') AND ($2 = '' OR category = $2)`

	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products `+where, filter.Search, filter.Category).Scan(&total)
	if err != nil {
		return domain.ProductPage{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products `+where+`
		ORDER BY product_id DESC
		LIMIT $3 OFFSET $4
	`, filter.Search, filter.Category, limit, (page-1)*limit)
	if err != nil {
		return domain.ProductPage{}, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return domain.ProductPage{}, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return domain.ProductPage{}, err
	}

	return domain.ProductPage{Products: products, Page: page, Limit: limit, Total: total}, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, update domain.ProductUpdate) (*domain.Product, error) {
	if update.Empty() {
		return nil, store.ErrInvalidInput
	}
	if update.Quantity != nil && update.Quantity.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanProduct(tx.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE product_id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if update.Name != nil && !strings.EqualFold(*update.Name, current.Name) {
		var clashID int64
		err := tx.QueryRowContext(ctx,
			`SELECT product_id FROM products WHERE LOWER(name) = LOWER($1) AND product_id <> $2`,
			*update.Name, id).Scan(&clashID)
		if err == nil {
			return nil, store.ErrConflict
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	next := *current
	if update.Name != nil {
		next.Name = *update.Name
	}
	if update.Category != nil {
		next.Category = *update.Category
	}
	if update.Unit != nil {
		next.Unit = *update.Unit
	}
	if update.Quantity != nil {
		next.Quantity = *update.Quantity
	}
	if update.ClearPrice {
		next.Price = decimal.NullDecimal{}
	} else if update.Price != nil {
		next.Price = decimal.NullDecimal{Decimal: *update.Price, Valid: true}
	}
	if update.ClearExpiry {
		next.ExpiryDate = nil
	} else if update.ExpiryDate != nil {
		next.ExpiryDate = update.ExpiryDate
	}
	if update.ReorderLevel != nil {
		next.ReorderLevel = *update.ReorderLevel
	}
	if update.ClearSupplier {
		next.SupplierID = nil
	} else if update.SupplierID != nil {
		next.SupplierID = update.SupplierID
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, unit = $4, quantity = $5, price = $6,
			expiry_date = $7, reorder_level = $8, supplier_id = $9, updated_at = now()
		WHERE product_id = $1
	`, id, next.Name, next.Category, next.Unit, next.Quantity, next.Price,
		nullDate(next.ExpiryDate), next.ReorderLevel, nullInt64(next.SupplierID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	updated, err := scanProduct(tx.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE product_id = $1`, id))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) FindLowStock(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE quantity <= reorder_level
		ORDER BY quantity ASC, product_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 16)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// RecordSale runs the whole sale as one serializable transaction. Product rows
// are locked up front with FOR UPDATE, so two concurrent sales of the same
// product serialize at the stock check: the loser re-reads post-deduction
// stock and cannot drive quantity negative. The deducting UPDATE re-checks
// quantity as a second guard; zero rows affected means another path got there
// first.
func (s *Store) RecordSale(ctx context.Context, req domain.SaleRequest) (*domain.SaleResult, error) {
	if len(req.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	for _, item := range req.Items {
		if item.ProductID < 1 || !item.Quantity.IsPositive() {
			return nil, store.ErrInvalidInput
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ids := uniqueProductIDs(req.Items)
	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity, price
		FROM products
		WHERE product_id = ANY($1)
		ORDER BY product_id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}

	type productState struct {
		stock decimal.Decimal
		price decimal.Decimal
	}
	states := make(map[int64]productState, len(ids))
	for rows.Next() {
		var id int64
		var stock decimal.Decimal
		var price decimal.NullDecimal
		if err := rows.Scan(&id, &stock, &price); err != nil {
			_ = rows.Close()
			return nil, err
		}
		states[id] = productState{stock: stock, price: price.Decimal}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	// Requested totals per product: a sale may list the same product twice.
	requested := make(map[int64]decimal.Decimal, len(ids))
	for _, item := range req.Items {
		requested[item.ProductID] = requested[item.ProductID].Add(item.Quantity)
	}

	for _, id := range ids {
		state, ok := states[id]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", id, store.ErrNotFound)
		}
		if state.stock.Cmp(requested[id]) < 0 {
			return nil, fmt.Errorf("product %d: %w", id, store.ErrInsufficientStock)
		}
	}

	grand := decimal.Zero
	lines := make([]domain.SalesItem, 0, len(req.Items))
	for _, item := range req.Items {
		price := states[item.ProductID].price
		lineTotal := price.Mul(item.Quantity)
		grand = grand.Add(lineTotal)
		lines = append(lines, domain.SalesItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: price,
			LineTotal: lineTotal,
		})
	}

	orderDate := time.Now().UTC()
	if req.SaleDate != nil {
		orderDate = req.SaleDate.UTC()
	}

	var order domain.SalesOrder
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sales_orders (order_date, total_amount)
		VALUES ($1, $2)
		RETURNING order_id, order_date, total_amount
	`, orderDate, grand).Scan(&order.ID, &order.OrderDate, &order.TotalAmount)
	if err != nil {
		return nil, err
	}
	order.OrderDate = order.OrderDate.UTC()

	for i := range lines {
		lines[i].OrderID = order.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO sales_items (order_id, product_id, quantity, unit_price, line_total)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING order_item_id
		`, order.ID, lines[i].ProductID, lines[i].Quantity, lines[i].UnitPrice, lines[i].LineTotal).Scan(&lines[i].ID)
		if err != nil {
			return nil, err
		}
	}

	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET quantity = quantity - $2, updated_at = now()
			WHERE product_id = $1 AND quantity >= $2
		`, id, requested[id])
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected != 1 {
			return nil, fmt.Errorf("product %d: %w", id, store.ErrInsufficientStock)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &domain.SaleResult{Order: order, Items: lines, Notes: req.Notes}, nil
}

func (s *Store) SalesByDate(ctx context.Context, day time.Time) ([]domain.DaySalesLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT so.order_id, so.order_date, so.total_amount,
			si.product_id, p.name, si.quantity, si.unit_price, si.line_total
		FROM sales_orders so
		JOIN sales_items si ON si.order_id = so.order_id
		JOIN products p ON p.product_id = si.product_id
		WHERE so.order_date::date = $1::date
		ORDER BY so.order_id, si.order_item_id
	`, day.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.DaySalesLine, 0, 32)
	for rows.Next() {
		var line domain.DaySalesLine
		if err := rows.Scan(&line.OrderID, &line.OrderDate, &line.OrderTotal,
			&line.ProductID, &line.ProductName, &line.Quantity, &line.UnitPrice, &line.LineTotal); err != nil {
			return nil, err
		}
		line.OrderDate = line.OrderDate.UTC()
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) SalesReport(ctx context.Context, start, end time.Time) (domain.SalesReport, error) {
	startStr := start.Format("2006-01-02")
	endStr := end.Format("2006-01-02")

	var report domain.SalesReport
	var totalQty, totalRevenue, avgOrder decimal.NullDecimal
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT so.order_id),
			COUNT(si.order_item_id),
			COALESCE(SUM(si.quantity), 0),
			COALESCE(SUM(si.line_total), 0),
			AVG(so.total_amount)
		FROM sales_orders so
		JOIN sales_items si ON si.order_id = so.order_id
		WHERE so.order_date::date BETWEEN $1::date AND $2::date
	`, startStr, endStr).Scan(&report.Summary.TotalOrders, &report.Summary.TotalItemsSold,
		&totalQty, &totalRevenue, &avgOrder)
	if err != nil {
		return domain.SalesReport{}, err
	}
	report.Summary.TotalQuantity = totalQty.Decimal
	report.Summary.TotalRevenue = totalRevenue.Decimal
	report.Summary.AvgOrderValue = avgOrder.Decimal

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.name, p.category, p.unit,
			SUM(si.quantity), AVG(si.unit_price), SUM(si.line_total)
		FROM sales_orders so
		JOIN sales_items si ON si.order_id = so.order_id
		JOIN products p ON p.product_id = si.product_id
		WHERE so.order_date::date BETWEEN $1::date AND $2::date
		GROUP BY p.product_id, p.name, p.category, p.unit
		ORDER BY SUM(si.line_total) DESC
	`, startStr, endStr)
	if err != nil {
		return domain.SalesReport{}, err
	}
	defer rows.Close()

	report.ProductBreakdown = make([]domain.ProductBreakdownRow, 0, 16)
	for rows.Next() {
		var row domain.ProductBreakdownRow
		if err := rows.Scan(&row.ProductName, &row.Category, &row.Unit,
			&row.QuantitySold, &row.AvgUnitPrice, &row.Revenue); err != nil {
			return domain.SalesReport{}, err
		}
		report.ProductBreakdown = append(report.ProductBreakdown, row)
	}
	if err := rows.Err(); err != nil {
		return domain.SalesReport{}, err
	}

	dailyRows, err := s.db.QueryContext(ctx, `
		SELECT so.order_date::date, COUNT(DISTINCT so.order_id), SUM(so.total_amount)
		FROM sales_orders so
		WHERE so.order_date::date BETWEEN $1::date AND $2::date
		GROUP BY so.order_date::date
		ORDER BY so.order_date::date
	`, startStr, endStr)
	if err != nil {
		return domain.SalesReport{}, err
	}
	defer dailyRows.Close()

	report.DailyBreakdown = make([]domain.DailyBreakdownRow, 0, 8)
	for dailyRows.Next() {
		var day time.Time
		var row domain.DailyBreakdownRow
		if err := dailyRows.Scan(&day, &row.Orders, &row.Revenue); err != nil {
			return domain.SalesReport{}, err
		}
		row.Date = day.Format("2006-01-02")
		report.DailyBreakdown = append(report.DailyBreakdown, row)
	}
	if err := dailyRows.Err(); err != nil {
		return domain.SalesReport{}, err
	}

	return report, nil
}

// RecordPurchase writes the purchase header and items and increments product
// stock as one transaction, mirroring the sale path in the opposite direction.
func (s *Store) RecordPurchase(ctx context.Context, req domain.PurchaseRequest) (*domain.StockPurchase, error) {
	if len(req.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	for _, item := range req.Items {
		if item.ProductID < 1 || !item.Quantity.IsPositive() || item.UnitPrice.IsNegative() {
			return nil, store.ErrInvalidInput
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]int64, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}
	var known int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE product_id = ANY($1)`, uniqueInt64(ids)).Scan(&known); err != nil {
		return nil, err
	}
	if known != int64(len(uniqueInt64(ids))) {
		return nil, store.ErrNotFound
	}

	total := decimal.Zero
	for _, item := range req.Items {
		total = total.Add(item.UnitPrice.Mul(item.Quantity))
	}

	purchaseDate := time.Now().UTC()
	if req.PurchaseDate != nil {
		purchaseDate = req.PurchaseDate.UTC()
	}
	purchaseType := req.PurchaseType
	if purchaseType == "" {
		purchaseType = "manual"
	}

	purchase := domain.StockPurchase{
		PurchaseDate: purchaseDate,
		TotalAmount:  total,
		PurchaseType: purchaseType,
		Notes:        req.Notes,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO stock_purchases (purchase_date, total_amount, purchase_type, notes)
		VALUES ($1,$2,$3,$4)
		RETURNING purchase_id
	`, purchaseDate, total, purchaseType, req.Notes).Scan(&purchase.ID)
	if err != nil {
		return nil, err
	}

	purchase.Items = make([]domain.StockPurchaseItem, 0, len(req.Items))
	for _, item := range req.Items {
		line := domain.StockPurchaseItem{
			PurchaseID: purchase.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.UnitPrice.Mul(item.Quantity),
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO stock_purchase_items (purchase_id, product_id, quantity, unit_price, total_price)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING purchase_item_id
		`, line.PurchaseID, line.ProductID, line.Quantity, line.UnitPrice, line.TotalPrice).Scan(&line.ID)
		if err != nil {
			return nil, err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET quantity = quantity + $2, updated_at = now()
			WHERE product_id = $1
		`, item.ProductID, item.Quantity)
		if err != nil {
			return nil, err
		}
		purchase.Items = append(purchase.Items, line)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (s *Store) PurchaseReport(ctx context.Context, start, end time.Time) (domain.PurchaseReport, error) {
	startStr := start.Format("2006-01-02")
	endStr := end.Format("2006-01-02")

	var report domain.PurchaseReport
	var totalAmount, avgAmount decimal.NullDecimal
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0), AVG(total_amount)
		FROM stock_purchases
		WHERE purchase_date::date BETWEEN $1::date AND $2::date
	`, startStr, endStr).Scan(&report.Summary.TotalPurchases, &totalAmount, &avgAmount)
	if err != nil {
		return domain.PurchaseReport{}, err
	}

	var totalQty decimal.NullDecimal
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(spi.purchase_item_id), COALESCE(SUM(spi.quantity), 0)
		FROM stock_purchase_items spi
		JOIN stock_purchases sp ON sp.purchase_id = spi.purchase_id
		WHERE sp.purchase_date::date BETWEEN $1::date AND $2::date
	`, startStr, endStr).Scan(&report.Summary.TotalItems, &totalQty)
	if err != nil {
		return domain.PurchaseReport{}, err
	}
	report.Summary.TotalQuantity = totalQty.Decimal
	report.Summary.TotalAmount = totalAmount.Decimal
	report.Summary.AvgPurchaseAmount = avgAmount.Decimal

	dailyRows, err := s.db.QueryContext(ctx, `
		SELECT sp.purchase_date::date, COUNT(DISTINCT sp.purchase_id), SUM(sp.total_amount), sp.purchase_type
		FROM stock_purchases sp
		WHERE sp.purchase_date::date BETWEEN $1::date AND $2::date
		GROUP BY sp.purchase_date::date, sp.purchase_type
		ORDER BY sp.purchase_date::date DESC
	`, startStr, endStr)
	if err != nil {
		return domain.PurchaseReport{}, err
	}
	defer dailyRows.Close()

	report.DailyBreakdown = make([]domain.PurchaseDailyRow, 0, 8)
	for dailyRows.Next() {
		var day time.Time
		var row domain.PurchaseDailyRow
		if err := dailyRows.Scan(&day, &row.Purchases, &row.DayTotal, &row.PurchaseType); err != nil {
			return domain.PurchaseReport{}, err
		}
		row.Date = day.Format("2006-01-02")
		report.DailyBreakdown = append(report.DailyBreakdown, row)
	}
	if err := dailyRows.Err(); err != nil {
		return domain.PurchaseReport{}, err
	}

	productRows, err := s.db.QueryContext(ctx, `
		SELECT p.name, p.category, p.unit,
			SUM(spi.quantity), AVG(spi.unit_price), SUM(spi.total_price)
		FROM stock_purchases sp
		JOIN stock_purchase_items spi ON spi.purchase_id = sp.purchase_id
		JOIN products p ON p.product_id = spi.product_id
		WHERE sp.purchase_date::date BETWEEN $1::date AND $2::date
		GROUP BY p.product_id, p.name, p.category, p.unit
		ORDER BY SUM(spi.total_price) DESC
	`, startStr, endStr)
	if err != nil {
		return domain.PurchaseReport{}, err
	}
	defer productRows.Close()

	report.ProductBreakdown = make([]domain.PurchaseProductRow, 0, 16)
	for productRows.Next() {
		var row domain.PurchaseProductRow
		if err := productRows.Scan(&row.ProductName, &row.Category, &row.Unit,
			&row.QuantityPurchased, &row.AvgUnitPrice, &row.TotalSpent); err != nil {
			return domain.PurchaseReport{}, err
		}
		report.ProductBreakdown = append(report.ProductBreakdown, row)
	}
	if err := productRows.Err(); err != nil {
		return domain.PurchaseReport{}, err
	}

	detailRows, err := s.db.QueryContext(ctx, `
		SELECT sp.purchase_id, sp.purchase_date, sp.total_amount, sp.purchase_type, sp.notes,
			p.name, p.category, p.unit, spi.quantity, spi.unit_price, spi.total_price
		FROM stock_purchases sp
		JOIN stock_purchase_items spi ON spi.purchase_id = sp.purchase_id
		JOIN products p ON p.product_id = spi.product_id
		WHERE sp.purchase_date::date BETWEEN $1::date AND $2::date
		ORDER BY sp.purchase_date DESC, sp.purchase_id DESC
	`, startStr, endStr)
	if err != nil {
		return domain.PurchaseReport{}, err
	}
	defer detailRows.Close()

	report.Details = make([]domain.PurchaseDetailRow, 0, 32)
	for detailRows.Next() {
		var row domain.PurchaseDetailRow
		if err := detailRows.Scan(&row.PurchaseID, &row.PurchaseDate, &row.TotalAmount,
			&row.PurchaseType, &row.Notes, &row.ProductName, &row.Category, &row.Unit,
			&row.Quantity, &row.UnitPrice, &row.TotalPrice); err != nil {
			return domain.PurchaseReport{}, err
		}
		row.PurchaseDate = row.PurchaseDate.UTC()
		report.Details = append(report.Details, row)
	}
	if err := detailRows.Err(); err != nil {
		return domain.PurchaseReport{}, err
	}

	return report, nil
}

func (s *Store) ListRecipients(ctx context.Context, enabledOnly bool) ([]domain.Recipient, error) {
	query := `SELECT recipient_id, email, enabled, auto_alerts, manual_reports FROM alert_recipients`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY email`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecipients(rows)
}

func (s *Store) ListRecipientsByKind(ctx context.Context, kind string) ([]domain.Recipient, error) {
	field := "auto_alerts"
	if kind == store.RecipientKindManual {
		field = "manual_reports"
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT recipient_id, email, enabled, auto_alerts, manual_reports
		FROM alert_recipients
		WHERE enabled AND `+field+`
		ORDER BY email
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecipients(rows)
}

func (s *Store) AddRecipient(ctx context.Context, email string) (*domain.Recipient, error) {
	var r domain.Recipient
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO alert_recipients (email, enabled, auto_alerts, manual_reports)
		VALUES ($1, true, true, true)
		RETURNING recipient_id, email, enabled, auto_alerts, manual_reports
	`, email).Scan(&r.ID, &r.Email, &r.Enabled, &r.AutoAlerts, &r.ManualReports)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) UpdateRecipientSettings(ctx context.Context, id int64, update domain.RecipientUpdate) (*domain.Recipient, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var r domain.Recipient
	err = tx.QueryRowContext(ctx, `
		SELECT recipient_id, email, enabled, auto_alerts, manual_reports
		FROM alert_recipients
		WHERE recipient_id = $1
		FOR UPDATE
	`, id).Scan(&r.ID, &r.Email, &r.Enabled, &r.AutoAlerts, &r.ManualReports)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if update.Enabled != nil {
		r.Enabled = *update.Enabled
	}
	if update.AutoAlerts != nil {
		r.AutoAlerts = *update.AutoAlerts
	}
	if update.ManualReports != nil {
		r.ManualReports = *update.ManualReports
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE alert_recipients
		SET enabled = $2, auto_alerts = $3, manual_reports = $4
		WHERE recipient_id = $1
	`, id, r.Enabled, r.AutoAlerts, r.ManualReports)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) LogAlert(ctx context.Context, entry domain.AlertLog) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_logs (type, recipient_id, product_id, summary, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, entry.Type, entry.RecipientID, nullInt64(entry.ProductID), entry.Summary, createdAt)
	return err
}

func (s *Store) ListAlertLogs(ctx context.Context, limit int) ([]domain.AlertLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT alert_id, type, recipient_id, product_id, summary, created_at
		FROM alert_logs
		ORDER BY alert_id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AlertLog, 0, limit)
	for rows.Next() {
		var entry domain.AlertLog
		var productID sql.NullInt64
		if err := rows.Scan(&entry.ID, &entry.Type, &entry.RecipientID, &productID, &entry.Summary, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if productID.Valid {
			id := productID.Int64
			entry.ProductID = &id
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = u.CreatedAt.UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func collectRecipients(rows *sql.Rows) ([]domain.Recipient, error) {
	recipients := make([]domain.Recipient, 0, 8)
	for rows.Next() {
		var r domain.Recipient
		if err := rows.Scan(&r.ID, &r.Email, &r.Enabled, &r.AutoAlerts, &r.ManualReports); err != nil {
			return nil, err
		}
		recipients = append(recipients, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recipients, nil
}

func uniqueProductIDs(items []domain.SaleItemInput) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return uniqueInt64(ids)
}

func uniqueInt64(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
