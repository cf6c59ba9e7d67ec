package stock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/marketsim-backend/internal/modules/catalog"
	"github.com/georgemunganga/marketsim-backend/internal/modules/provider"
	"github.com/georgemunganga/marketsim-backend/internal/modules/stock"
	"github.com/georgemunganga/marketsim-backend/internal/store"
)

type fixture struct {
	store     *store.Memory
	catalog   catalog.Service
	providers provider.Service
	stock     stock.Service
}

func newFixture(t *testing.T, specializations map[string][]string, maxStock int) *fixture {
	t.Helper()
	mem := store.NewMemory()
	cat := catalog.NewService(mem)
	providers := provider.NewService(mem, specializations)
	return &fixture{
		store:     mem,
		catalog:   cat,
		providers: providers,
		stock:     stock.NewService(mem, cat, providers, maxStock),
	}
}

func (f *fixture) createProduct(t *testing.T, category string) *catalog.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), "supplier_"+category, catalog.Attributes{
		Name: category + " item", Category: category, Price: 100,
	})
	require.NoError(t, err)
	return p
}

func TestStockRespectsSpecialization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string][]string{"merchant_travel": {"Travel", "Events"}}, 0)

	travel := f.createProduct(t, "Travel")
	electronics := f.createProduct(t, "Electronics")

	added, err := f.stock.Stock(ctx, "merchant_travel", travel)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.stock.Stock(ctx, "merchant_travel", electronics)
	require.NoError(t, err)
	assert.False(t, added, "specialized merchant must skip other categories")

	ids, err := f.stock.List(ctx, "merchant_travel")
	require.NoError(t, err)
	assert.Equal(t, []string{travel.ProductID}, ids)
}

func TestStockGeneralistTakesEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, 0)

	travel := f.createProduct(t, "Travel")
	electronics := f.createProduct(t, "Electronics")

	for _, p := range []*catalog.Product{travel, electronics} {
		added, err := f.stock.Stock(ctx, "merchant_any", p)
		require.NoError(t, err)
		assert.True(t, added)
	}
}

func TestStockIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, 0)
	p := f.createProduct(t, "Home")

	added, err := f.stock.Stock(ctx, "merchant_1", p)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.stock.Stock(ctx, "merchant_1", p)
	require.NoError(t, err)
	assert.False(t, added)

	ids, err := f.stock.List(ctx, "merchant_1")
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestStockCeiling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, 2)

	first := f.createProduct(t, "Books")
	second := f.createProduct(t, "Toys")
	third := f.createProduct(t, "Sports")

	for _, p := range []*catalog.Product{first, second} {
		added, err := f.stock.Stock(ctx, "merchant_1", p)
		require.NoError(t, err)
		assert.True(t, added)
	}

	added, err := f.stock.Stock(ctx, "merchant_1", third)
	require.NoError(t, err)
	assert.False(t, added, "ceiling reached")

	// Restocking an already-held product is not blocked by the ceiling.
	added, err = f.stock.Stock(ctx, "merchant_1", first)
	require.NoError(t, err)
	assert.False(t, added)

	has, err := f.stock.Has(ctx, "merchant_1", third.ProductID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCatchUpStocksExistingCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string][]string{"merchant_travel": {"Travel"}}, 0)
	_, err := f.providers.Register(ctx, "merchant_travel", nil)
	require.NoError(t, err)
	_, err = f.providers.Register(ctx, "merchant_any", nil)
	require.NoError(t, err)

	travel := f.createProduct(t, "Travel")
	electronics := f.createProduct(t, "Electronics")

	require.NoError(t, f.stock.CatchUp(ctx))

	travelStock, err := f.stock.List(ctx, "merchant_travel")
	require.NoError(t, err)
	assert.Equal(t, []string{travel.ProductID}, travelStock)

	anyStock, err := f.stock.List(ctx, "merchant_any")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{travel.ProductID, electronics.ProductID}, anyStock)
}
