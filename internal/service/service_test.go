package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"restostock/backend/internal/domain"
	"restostock/backend/internal/store"
)

func TestAddProductMergeIncrementsQuantity(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	price := qty("80")
	first, created, err := svc.AddProduct(ctx, domain.ProductUpsert{
		Name: "Tomato", Category: "Vegetable", Unit: "kg",
		Quantity: qty("5"), Price: &price,
	})
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, first.Quantity.Equal(qty("5")))

	newPrice := qty("90")
	second, created, err := svc.AddProduct(ctx, domain.ProductUpsert{
		Name: "tomato", Category: "Vegetable", Unit: "kg",
		Quantity: qty("3"), Price: &newPrice,
	})
	require.NoError(t, err)
	require.False(t, created, "matching identity must merge, not insert")
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.Quantity.Equal(qty("8")), "5 + 3 must land in one row")
	require.True(t, second.Price.Decimal.Equal(qty("90")), "price is replaced, not added")

	page, err := svc.ListProducts(ctx, domain.ProductFilter{Search: "tomato"})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
}

func TestAddProductDifferentUnitInsertsNewRow(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	_, created, err := svc.AddProduct(ctx, domain.ProductUpsert{
		Name: "Rice", Category: "Grain", Unit: "sack", Quantity: qty("4"),
	})
	require.NoError(t, err)
	require.True(t, created, "same name but different unit is a distinct product")
}

func TestAddProductValidation(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	cases := []domain.ProductUpsert{
		{Name: "X", Category: "Vegetable", Unit: "kg", Quantity: qty("1")},
		{Name: "Valid Name", Category: "", Unit: "kg", Quantity: qty("1")},
		{Name: "Valid Name", Category: "Vegetable", Unit: "", Quantity: qty("1")},
		{Name: "Valid Name", Category: "Vegetable", Unit: "kg", Quantity: qty("-1")},
	}
	for i, in := range cases {
		_, _, err := svc.AddProduct(ctx, in)
		require.ErrorIs(t, err, store.ErrInvalidInput, "case %d", i)
	}

	negativePrice := qty("-5")
	_, _, err := svc.AddProduct(ctx, domain.ProductUpsert{
		Name: "Valid Name", Category: "Vegetable", Unit: "kg",
		Quantity: qty("1"), Price: &negativePrice,
	})
	require.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestAddProductRequiresAdmin(t *testing.T) {
	svc := newTestService()

	_, _, err := svc.AddProduct(staffCtx(), domain.ProductUpsert{
		Name: "Tomato", Category: "Vegetable", Unit: "kg", Quantity: qty("5"),
	})
	require.Error(t, err)
}

func TestUpdateProductPartial(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	newQty := qty("7")
	updated, err := svc.UpdateProduct(ctx, 1, domain.ProductUpdate{Quantity: &newQty})
	require.NoError(t, err)
	require.True(t, updated.Quantity.Equal(qty("7")))
	require.Equal(t, "Rice", updated.Name, "untouched fields stay")

	badQty := qty("-1")
	_, err = svc.UpdateProduct(ctx, 1, domain.ProductUpdate{Quantity: &badQty})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = svc.UpdateProduct(ctx, 1, domain.ProductUpdate{})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = svc.UpdateProduct(ctx, 9999, domain.ProductUpdate{Quantity: &newQty})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateProductNameConflict(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	name := "Onion"
	_, err := svc.UpdateProduct(ctx, 1, domain.ProductUpdate{Name: &name})
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestUpdateProductClearsNullableFields(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	updated, err := svc.UpdateProduct(ctx, 1, domain.ProductUpdate{ClearPrice: true})
	require.NoError(t, err)
	require.False(t, updated.Price.Valid)
}

func TestLowStockProducts(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	low, err := svc.LowStockProducts(ctx)
	require.NoError(t, err)
	require.Empty(t, low)

	level := qty("3")
	_, err = svc.UpdateProduct(ctx, 4, domain.ProductUpdate{Quantity: &level})
	require.NoError(t, err)

	low, err = svc.LowStockProducts(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "Onion", low[0].Name)
}

func TestFindProductByNameAbsentIsNotAnError(t *testing.T) {
	svc := newTestService()

	product, err := svc.FindProductByName(adminCtx(), "No Such Item")
	require.NoError(t, err)
	require.Nil(t, product)
}
