package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"restostock/backend/internal/domain"
	"restostock/backend/internal/store"
)

// Store is an in-memory Repository used by tests and by dev mode when no
// DATABASE_URL is configured. A single mutex guards everything, so every
// operation is atomic the way a database transaction is.
type Store struct {
	mu sync.Mutex

	products  map[int64]*domain.Product
	orders    map[int64]*domain.SalesOrder
	orderRows map[int64][]domain.SalesItem
	purchases map[int64]*domain.StockPurchase

	recipients map[int64]*domain.Recipient
	alertLogs  []domain.AlertLog
	users      map[string]domain.UserAccount

	nextProductID   int64
	nextOrderID     int64
	nextOrderItemID int64
	nextPurchaseID  int64
	nextPurchItemID int64
	nextRecipientID int64
	nextAlertID     int64
}

func New() *Store {
	return &Store{
		products:   make(map[int64]*domain.Product),
		orders:     make(map[int64]*domain.SalesOrder),
		orderRows:  make(map[int64][]domain.SalesItem),
		purchases:  make(map[int64]*domain.StockPurchase),
		recipients: make(map[int64]*domain.Recipient),
		users:      make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store preloaded with a small pantry and the default
// admin/staff accounts, enough to exercise every endpoint out of the box.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	seed := []domain.Product{
		{Name: "Rice", Category: "Grain", Unit: "kg", Quantity: decimal.NewFromInt(100), Price: nd("50"), ReorderLevel: 20},
		{Name: "Cooking Oil", Category: "Oil", Unit: "litre", Quantity: decimal.NewFromInt(40), Price: nd("120"), ReorderLevel: 10},
		{Name: "Chicken Breast", Category: "Meat", Unit: "kg", Quantity: decimal.NewFromInt(25), Price: nd("220"), ReorderLevel: 8},
		{Name: "Onion", Category: "Vegetable", Unit: "kg", Quantity: decimal.NewFromInt(60), Price: nd("35"), ReorderLevel: 15},
		{Name: "Salt", Category: "Spice", Unit: "kg", Quantity: decimal.NewFromInt(12), Price: decimal.NullDecimal{}, ReorderLevel: 5},
	}
	for i := range seed {
		s.nextProductID++
		p := seed[i]
		p.ID = s.nextProductID
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = &p
	}

	s.seedUsers()
	return s
}

func nd(v string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(v), Valid: true}
}

func (s *Store) seedUsers() {
	now := time.Now().UTC()
	for _, u := range []struct {
		name, pass, role string
	}{
		{"admin", "admin123", domain.RoleAdmin},
		{"staff", "staff123", domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.pass), bcrypt.DefaultCost)
		if err != nil {
			continue
		}
		s.users[u.name] = domain.UserAccount{
			Username:  u.name,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) UpsertProduct(_ context.Context, in domain.ProductUpsert) (*domain.Product, bool, error) {
	if in.Name == "" || in.Category == "" || in.Unit == "" || in.Quantity.IsNegative() {
		return nil, false, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reorder := 10
	if in.ReorderLevel != nil {
		reorder = *in.ReorderLevel
	}

	now := time.Now().UTC()
	for _, p := range s.products {
		if strings.EqualFold(p.Name, in.Name) && p.Category == in.Category && p.Unit == in.Unit {
			p.Quantity = p.Quantity.Add(in.Quantity)
			p.Price = toNullDecimal(in.Price)
			p.ExpiryDate = copyTime(in.ExpiryDate)
			p.ReorderLevel = reorder
			p.SupplierID = copyInt64(in.SupplierID)
			p.UpdatedAt = now
			out := *p
			return &out, false, nil
		}
	}

	s.nextProductID++
	p := &domain.Product{
		ID:           s.nextProductID,
		Name:         in.Name,
		Category:     in.Category,
		Unit:         in.Unit,
		Quantity:     in.Quantity,
		Price:        toNullDecimal(in.Price),
		ExpiryDate:   copyTime(in.ExpiryDate),
		ReorderLevel: reorder,
		SupplierID:   copyInt64(in.SupplierID),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.products[p.ID] = p
	out := *p
	return &out, true, nil
}

func (s *Store) GetProductByID(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s *Store) FindProductByName(_ context.Context, name string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if strings.EqualFold(p.Name, name) {
			out := *p
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListProducts(_ context.Context, filter domain.ProductFilter) (domain.ProductPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}

	matched := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		matched = append(matched, *p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	return domain.ProductPage{
		Products: matched[start:end],
		Page:     page,
		Limit:    limit,
		Total:    total,
	}, nil
}

func (s *Store) UpdateProduct(_ context.Context, id int64, update domain.ProductUpdate) (*domain.Product, error) {
	if update.Empty() {
		return nil, store.ErrInvalidInput
	}
	if update.Quantity != nil && update.Quantity.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	if update.Name != nil && !strings.EqualFold(*update.Name, p.Name) {
		for _, other := range s.products {
			if other.ID != id && strings.EqualFold(other.Name, *update.Name) {
				return nil, store.ErrConflict
			}
		}
	}

	if update.Name != nil {
		p.Name = *update.Name
	}
	if update.Category != nil {
		p.Category = *update.Category
	}
	if update.Unit != nil {
		p.Unit = *update.Unit
	}
	if update.Quantity != nil {
		p.Quantity = *update.Quantity
	}
	if update.ClearPrice {
		p.Price = decimal.NullDecimal{}
	} else if update.Price != nil {
		p.Price = decimal.NullDecimal{Decimal: *update.Price, Valid: true}
	}
	if update.ClearExpiry {
		p.ExpiryDate = nil
	} else if update.ExpiryDate != nil {
		p.ExpiryDate = copyTime(update.ExpiryDate)
	}
	if update.ReorderLevel != nil {
		p.ReorderLevel = *update.ReorderLevel
	}
	if update.ClearSupplier {
		p.SupplierID = nil
	} else if update.SupplierID != nil {
		p.SupplierID = copyInt64(update.SupplierID)
	}
	p.UpdatedAt = time.Now().UTC()

	out := *p
	return &out, nil
}

func (s *Store) FindLowStock(_ context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	low := make([]domain.Product, 0, 8)
	for _, p := range s.products {
		if p.LowStock() {
			low = append(low, *p)
		}
	}
	sort.Slice(low, func(i, j int) bool {
		if c := low[i].Quantity.Cmp(low[j].Quantity); c != 0 {
			return c < 0
		}
		return low[i].ID < low[j].ID
	})
	return low, nil
}

func (s *Store) RecordSale(_ context.Context, req domain.SaleRequest) (*domain.SaleResult, error) {
	if len(req.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	for _, item := range req.Items {
		if item.ProductID < 1 || !item.Quantity.IsPositive() {
			return nil, store.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	requested := make(map[int64]decimal.Decimal, len(req.Items))
	for _, item := range req.Items {
		requested[item.ProductID] = requested[item.ProductID].Add(item.Quantity)
	}

	// Validate everything before touching state so a failure is all-or-nothing.
	for id, qty := range requested {
		p, ok := s.products[id]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", id, store.ErrNotFound)
		}
		if p.Quantity.Cmp(qty) < 0 {
			return nil, fmt.Errorf("product %d: %w", id, store.ErrInsufficientStock)
		}
	}

	orderDate := time.Now().UTC()
	if req.SaleDate != nil {
		orderDate = req.SaleDate.UTC()
	}

	grand := decimal.Zero
	lines := make([]domain.SalesItem, 0, len(req.Items))
	for _, item := range req.Items {
		p := s.products[item.ProductID]
		price := p.Price.Decimal
		lineTotal := price.Mul(item.Quantity)
		grand = grand.Add(lineTotal)
		s.nextOrderItemID++
		lines = append(lines, domain.SalesItem{
			ID:          s.nextOrderItemID,
			ProductID:   item.ProductID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			UnitPrice:   price,
			LineTotal:   lineTotal,
		})
	}

	s.nextOrderID++
	order := domain.SalesOrder{ID: s.nextOrderID, OrderDate: orderDate, TotalAmount: grand}
	s.orders[order.ID] = &order
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	s.orderRows[order.ID] = append([]domain.SalesItem(nil), lines...)

	now := time.Now().UTC()
	for id, qty := range requested {
		p := s.products[id]
		p.Quantity = p.Quantity.Sub(qty)
		p.UpdatedAt = now
	}

	return &domain.SaleResult{Order: order, Items: lines, Notes: req.Notes}, nil
}

func (s *Store) SalesByDate(_ context.Context, day time.Time) ([]domain.DaySalesLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := day.UTC().Format("2006-01-02")
	orderIDs := make([]int64, 0, len(s.orders))
	for id, o := range s.orders {
		if o.OrderDate.UTC().Format("2006-01-02") == target {
			orderIDs = append(orderIDs, id)
		}
	}
	sort.Slice(orderIDs, func(i, j int) bool { return orderIDs[i] < orderIDs[j] })

	lines := make([]domain.DaySalesLine, 0, 16)
	for _, id := range orderIDs {
		order := s.orders[id]
		for _, item := range s.orderRows[id] {
			lines = append(lines, domain.DaySalesLine{
				OrderID:     order.ID,
				OrderDate:   order.OrderDate,
				OrderTotal:  order.TotalAmount,
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				LineTotal:   item.LineTotal,
			})
		}
	}
	return lines, nil
}

func (s *Store) SalesReport(_ context.Context, start, end time.Time) (domain.SalesReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	startDay := start.UTC().Format("2006-01-02")
	endDay := end.UTC().Format("2006-01-02")
	inRange := func(t time.Time) bool {
		d := t.UTC().Format("2006-01-02")
		return d >= startDay && d <= endDay
	}

	var report domain.SalesReport

	type productAgg struct {
		name, category, unit string
		qty, revenue         decimal.Decimal
		priceSum             decimal.Decimal
		lineCount            int64
	}
	type dayAgg struct {
		orders  int64
		revenue decimal.Decimal
	}
	byProduct := make(map[int64]*productAgg)
	byDay := make(map[string]*dayAgg)

	orderIDs := make([]int64, 0, len(s.orders))
	for id := range s.orders {
		orderIDs = append(orderIDs, id)
	}
	sort.Slice(orderIDs, func(i, j int) bool { return orderIDs[i] < orderIDs[j] })

	// Average order value weights each order by its item count, like the
	// order-items join in the SQL store does.
	weightedTotalSum := decimal.Zero
	for _, id := range orderIDs {
		order := s.orders[id]
		if !inRange(order.OrderDate) {
			continue
		}
		report.Summary.TotalOrders++
		items := int64(len(s.orderRows[id]))
		weightedTotalSum = weightedTotalSum.Add(order.TotalAmount.Mul(decimal.NewFromInt(items)))

		day := order.OrderDate.UTC().Format("2006-01-02")
		if byDay[day] == nil {
			byDay[day] = &dayAgg{}
		}
		byDay[day].orders++
		byDay[day].revenue = byDay[day].revenue.Add(order.TotalAmount)

		for _, item := range s.orderRows[id] {
			report.Summary.TotalItemsSold++
			report.Summary.TotalQuantity = report.Summary.TotalQuantity.Add(item.Quantity)
			report.Summary.TotalRevenue = report.Summary.TotalRevenue.Add(item.LineTotal)

			agg := byProduct[item.ProductID]
			if agg == nil {
				agg = &productAgg{name: item.ProductName}
				if p, ok := s.products[item.ProductID]; ok {
					agg.name = p.Name
					agg.category = p.Category
					agg.unit = p.Unit
				}
				byProduct[item.ProductID] = agg
			}
			agg.qty = agg.qty.Add(item.Quantity)
			agg.revenue = agg.revenue.Add(item.LineTotal)
			agg.priceSum = agg.priceSum.Add(item.UnitPrice)
			agg.lineCount++
		}
	}

	if report.Summary.TotalItemsSold > 0 {
		report.Summary.AvgOrderValue = weightedTotalSum.Div(decimal.NewFromInt(report.Summary.TotalItemsSold))
	}

	report.ProductBreakdown = make([]domain.ProductBreakdownRow, 0, len(byProduct))
	for _, agg := range byProduct {
		row := domain.ProductBreakdownRow{
			ProductName:  agg.name,
			Category:     agg.category,
			Unit:         agg.unit,
			QuantitySold: agg.qty,
			Revenue:      agg.revenue,
		}
		if agg.lineCount > 0 {
			row.AvgUnitPrice = agg.priceSum.Div(decimal.NewFromInt(agg.lineCount))
		}
		report.ProductBreakdown = append(report.ProductBreakdown, row)
	}
	sort.Slice(report.ProductBreakdown, func(i, j int) bool {
		return report.ProductBreakdown[i].Revenue.Cmp(report.ProductBreakdown[j].Revenue) > 0
	})

	report.DailyBreakdown = make([]domain.DailyBreakdownRow, 0, len(byDay))
	for day, agg := range byDay {
		report.DailyBreakdown = append(report.DailyBreakdown, domain.DailyBreakdownRow{
			Date:    day,
			Orders:  agg.orders,
			Revenue: agg.revenue,
		})
	}
	sort.Slice(report.DailyBreakdown, func(i, j int) bool {
		return report.DailyBreakdown[i].Date < report.DailyBreakdown[j].Date
	})

	return report, nil
}

func (s *Store) RecordPurchase(_ context.Context, req domain.PurchaseRequest) (*domain.StockPurchase, error) {
	if len(req.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	for _, item := range req.Items {
		if item.ProductID < 1 || !item.Quantity.IsPositive() || item.UnitPrice.IsNegative() {
			return nil, store.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range req.Items {
		if _, ok := s.products[item.ProductID]; !ok {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, store.ErrNotFound)
		}
	}

	purchaseDate := time.Now().UTC()
	if req.PurchaseDate != nil {
		purchaseDate = req.PurchaseDate.UTC()
	}
	purchaseType := req.PurchaseType
	if purchaseType == "" {
		purchaseType = "manual"
	}

	s.nextPurchaseID++
	purchase := &domain.StockPurchase{
		ID:           s.nextPurchaseID,
		PurchaseDate: purchaseDate,
		PurchaseType: purchaseType,
		Notes:        req.Notes,
	}

	now := time.Now().UTC()
	for _, item := range req.Items {
		s.nextPurchItemID++
		line := domain.StockPurchaseItem{
			ID:         s.nextPurchItemID,
			PurchaseID: purchase.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.UnitPrice.Mul(item.Quantity),
		}
		purchase.TotalAmount = purchase.TotalAmount.Add(line.TotalPrice)
		purchase.Items = append(purchase.Items, line)

		p := s.products[item.ProductID]
		p.Quantity = p.Quantity.Add(item.Quantity)
		p.UpdatedAt = now
	}

	s.purchases[purchase.ID] = purchase
	out := *purchase
	out.Items = append([]domain.StockPurchaseItem(nil), purchase.Items...)
	return &out, nil
}

func (s *Store) PurchaseReport(_ context.Context, start, end time.Time) (domain.PurchaseReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	startDay := start.UTC().Format("2006-01-02")
	endDay := end.UTC().Format("2006-01-02")

	var report domain.PurchaseReport

	type dayKey struct {
		date string
		kind string
	}
	type dayAgg struct {
		purchases int64
		total     decimal.Decimal
	}
	type productAgg struct {
		name, category, unit string
		qty, spent, priceSum decimal.Decimal
		lineCount            int64
	}
	byDay := make(map[dayKey]*dayAgg)
	byProduct := make(map[int64]*productAgg)

	ids := make([]int64, 0, len(s.purchases))
	for id := range s.purchases {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	for _, id := range ids {
		purchase := s.purchases[id]
		day := purchase.PurchaseDate.UTC().Format("2006-01-02")
		if day < startDay || day > endDay {
			continue
		}
		report.Summary.TotalPurchases++
		report.Summary.TotalAmount = report.Summary.TotalAmount.Add(purchase.TotalAmount)

		key := dayKey{date: day, kind: purchase.PurchaseType}
		if byDay[key] == nil {
			byDay[key] = &dayAgg{}
		}
		byDay[key].purchases++
		byDay[key].total = byDay[key].total.Add(purchase.TotalAmount)

		for _, item := range purchase.Items {
			report.Summary.TotalItems++
			report.Summary.TotalQuantity = report.Summary.TotalQuantity.Add(item.Quantity)

			agg := byProduct[item.ProductID]
			if agg == nil {
				agg = &productAgg{}
				if p, ok := s.products[item.ProductID]; ok {
					agg.name = p.Name
					agg.category = p.Category
					agg.unit = p.Unit
				}
				byProduct[item.ProductID] = agg
			}
			agg.qty = agg.qty.Add(item.Quantity)
			agg.spent = agg.spent.Add(item.TotalPrice)
			agg.priceSum = agg.priceSum.Add(item.UnitPrice)
			agg.lineCount++

			detail := domain.PurchaseDetailRow{
				PurchaseID:   purchase.ID,
				PurchaseDate: purchase.PurchaseDate,
				TotalAmount:  purchase.TotalAmount,
				PurchaseType: purchase.PurchaseType,
				Notes:        purchase.Notes,
				ProductName:  agg.name,
				Category:     agg.category,
				Unit:         agg.unit,
				Quantity:     item.Quantity,
				UnitPrice:    item.UnitPrice,
				TotalPrice:   item.TotalPrice,
			}
			report.Details = append(report.Details, detail)
		}
	}

	if report.Summary.TotalPurchases > 0 {
		report.Summary.AvgPurchaseAmount = report.Summary.TotalAmount.Div(decimal.NewFromInt(report.Summary.TotalPurchases))
	}

	report.DailyBreakdown = make([]domain.PurchaseDailyRow, 0, len(byDay))
	for key, agg := range byDay {
		report.DailyBreakdown = append(report.DailyBreakdown, domain.PurchaseDailyRow{
			Date:         key.date,
			Purchases:    agg.purchases,
			DayTotal:     agg.total,
			PurchaseType: key.kind,
		})
	}
	sort.Slice(report.DailyBreakdown, func(i, j int) bool {
		return report.DailyBreakdown[i].Date > report.DailyBreakdown[j].Date
	})

	report.ProductBreakdown = make([]domain.PurchaseProductRow, 0, len(byProduct))
	for _, agg := range byProduct {
		row := domain.PurchaseProductRow{
			ProductName:       agg.name,
			Category:          agg.category,
			Unit:              agg.unit,
			QuantityPurchased: agg.qty,
			TotalSpent:        agg.spent,
		}
		if agg.lineCount > 0 {
			row.AvgUnitPrice = agg.priceSum.Div(decimal.NewFromInt(agg.lineCount))
		}
		report.ProductBreakdown = append(report.ProductBreakdown, row)
	}
	sort.Slice(report.ProductBreakdown, func(i, j int) bool {
		return report.ProductBreakdown[i].TotalSpent.Cmp(report.ProductBreakdown[j].TotalSpent) > 0
	})

	if report.Details == nil {
		report.Details = []domain.PurchaseDetailRow{}
	}
	return report, nil
}

func (s *Store) ListRecipients(_ context.Context, enabledOnly bool) ([]domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Recipient, 0, len(s.recipients))
	for _, r := range s.recipients {
		if enabledOnly && !r.Enabled {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Store) ListRecipientsByKind(_ context.Context, kind string) ([]domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Recipient, 0, len(s.recipients))
	for _, r := range s.recipients {
		if !r.Enabled {
			continue
		}
		if kind == store.RecipientKindManual && !r.ManualReports {
			continue
		}
		if kind != store.RecipientKindManual && !r.AutoAlerts {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Store) AddRecipient(_ context.Context, email string) (*domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.recipients {
		if strings.EqualFold(r.Email, email) {
			return nil, store.ErrConflict
		}
	}

	s.nextRecipientID++
	r := &domain.Recipient{
		ID:            s.nextRecipientID,
		Email:         email,
		Enabled:       true,
		AutoAlerts:    true,
		ManualReports: true,
	}
	s.recipients[r.ID] = r
	out := *r
	return &out, nil
}

func (s *Store) UpdateRecipientSettings(_ context.Context, id int64, update domain.RecipientUpdate) (*domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipients[id]
	if !ok {
		return nil, store.ErrNotFound
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
	out := *r
	return &out, nil
}

func (s *Store) LogAlert(_ context.Context, entry domain.AlertLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAlertID++
	entry.ID = s.nextAlertID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.alertLogs = append(s.alertLogs, entry)
	return nil
}

func (s *Store) ListAlertLogs(_ context.Context, limit int) ([]domain.AlertLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 100
	}
	out := make([]domain.AlertLog, 0, limit)
	for i := len(s.alertLogs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.alertLogs[i])
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Username)
	if _, ok := s.users[key]; ok {
		return store.ErrConflict
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[key] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
