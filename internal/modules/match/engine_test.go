package match_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/marketsim-backend/internal/modules/catalog"
	"github.com/georgemunganga/marketsim-backend/internal/modules/match"
	"github.com/georgemunganga/marketsim-backend/internal/modules/need"
	"github.com/georgemunganga/marketsim-backend/internal/modules/offer"
	"github.com/georgemunganga/marketsim-backend/internal/modules/provider"
	"github.com/georgemunganga/marketsim-backend/internal/modules/stock"
	"github.com/georgemunganga/marketsim-backend/internal/modules/user"
	"github.com/georgemunganga/marketsim-backend/internal/store"
)

type fixture struct {
	store     *store.Memory
	users     user.Service
	providers provider.Service
	catalog   catalog.Service
	stock     stock.Service
	needs     need.Service
	offers    offer.Service
	engine    *match.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	users := user.NewService(mem)
	providers := provider.NewService(mem, nil)
	cat := catalog.NewService(mem)
	stocks := stock.NewService(mem, cat, providers, 0)
	needs := need.NewService(mem, users, cat)
	offers := offer.NewService(mem, cat, stocks, providers)
	return &fixture{
		store:     mem,
		users:     users,
		providers: providers,
		catalog:   cat,
		stock:     stocks,
		needs:     needs,
		offers:    offers,
		engine:    match.NewEngine(mem, needs, offers, stocks, 10*time.Second),
	}
}

// seedMarket registers u1 and merchant_1 and stocks one Travel product
// tagged eco-friendly at price 380.
func (f *fixture) seedMarket(t *testing.T) *catalog.Product {
	t.Helper()
	ctx := context.Background()
	_, err := f.users.Create(ctx, "u1", nil)
	require.NoError(t, err)
	_, err = f.providers.Register(ctx, "merchant_1", nil)
	require.NoError(t, err)
	p, err := f.catalog.CreateProduct(ctx, "supplier_travel", catalog.Attributes{
		Name: "Flight to Paris", Category: "Travel", Price: 380,
		Tags: []string{"eco-friendly"},
	})
	require.NoError(t, err)
	_, err = f.stock.Stock(ctx, "merchant_1", p)
	require.NoError(t, err)
	return p
}

// putNeed writes a need record directly, bypassing the catalog binding
// that Submit performs.
func (f *fixture) putNeed(t *testing.T, n *need.Need) {
	t.Helper()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(n)
	require.NoError(t, err)
	require.NoError(t, f.store.Put(context.Background(), "need:"+n.NeedID, payload, time.Minute))
}

func TestProcessOfferAcceptsAndRemovesNeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedMarket(t)

	n, err := f.needs.Submit(ctx, "u1", need.Preferences{
		Tags: []string{"eco-friendly"}, PriceMax: 400,
	}, time.Minute)
	require.NoError(t, err)

	o, err := f.offers.Generate(ctx, "merchant_1", offer.StrategyMatchScore, 10*time.Second)
	require.NoError(t, err)
	require.NotNil(t, o)

	require.NoError(t, f.engine.ProcessOffer(ctx, o))

	_, err = f.needs.Get(ctx, n.NeedID)
	assert.ErrorIs(t, err, store.ErrNotFound, "accepted need must be removed")

	traces, err := f.engine.TracesForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, traces, 1)
	trace := traces[0]
	assert.Equal(t, n.NeedID, trace.NeedID)
	assert.Equal(t, o.OfferID, trace.OfferID)
	assert.Equal(t, offer.StatusAccepted, trace.Negotiation.Status)
	assert.True(t, trace.NeedRemoved)
	assert.Equal(t, 380.0, trace.Negotiation.OfferedPrice)
	assert.Equal(t, 400.0, trace.Negotiation.MaxUserPrice)
	// base 1.0 plus one overlapping tag, no trust history yet.
	assert.Equal(t, 1.05, trace.Score)

	count, err := f.store.Counter(ctx, "metrics:needs_satisfied")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestProcessOfferSkipsDisjointTags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.seedMarket(t)

	f.putNeed(t, &need.Need{
		NeedID:      "need_u1_disjoint",
		UserID:      "u1",
		ProductID:   p.ProductID,
		Preferences: need.Preferences{Tags: []string{"unobtainium"}, PriceMax: 400},
	})

	o, err := f.offers.Generate(ctx, "merchant_1", offer.StrategyMatchScore, 10*time.Second)
	require.NoError(t, err)
	require.NotNil(t, o)

	require.NoError(t, f.engine.ProcessOffer(ctx, o))

	traces, err := f.engine.TracesForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, traces, "disjoint tag sets are filtered before tracing")

	_, err = f.needs.Get(ctx, "need_u1_disjoint")
	assert.NoError(t, err, "filtered need stays live")
}

func TestProcessOfferDiscardsUnstockedOffer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.seedMarket(t)

	_, err := f.needs.Submit(ctx, "u1", need.Preferences{
		Tags: []string{"eco-friendly"}, PriceMax: 400,
	}, time.Minute)
	require.NoError(t, err)

	stale := &offer.Offer{
		OfferID:    "offer_ghost_01",
		ProvidedBy: "merchant_ghost",
		ProductID:  p.ProductID,
		Product: offer.ProductSnapshot{
			Name: p.Attributes.Name, Category: p.Attributes.Category,
			Price: 380, Tags: p.Attributes.Tags,
		},
		Strategy: offer.StrategyMatchScore,
	}
	require.NoError(t, f.engine.ProcessOffer(ctx, stale))

	traces, err := f.engine.TracesForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, traces, "offer without backing stock must be discarded")

	active, err := f.needs.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestProcessOfferOverBudgetEmitsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.seedMarket(t)

	f.putNeed(t, &need.Need{
		NeedID:      "need_u1_broke",
		UserID:      "u1",
		ProductID:   p.ProductID,
		Preferences: need.Preferences{Tags: []string{"eco-friendly"}, PriceMax: 300},
	})

	o, err := f.offers.Generate(ctx, "merchant_1", offer.StrategyMatchScore, 10*time.Second)
	require.NoError(t, err)
	require.NotNil(t, o)

	require.NoError(t, f.engine.ProcessOffer(ctx, o))

	traces, err := f.engine.TracesForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, traces, "a zero score never reaches negotiation")

	samples, err := f.store.ListRange(ctx, "trust:merchant_1", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, samples, "no negotiation attempt, no trust sample")
}

func TestProcessOfferAddsTrustBoost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedMarket(t)

	// Historical outcomes for the merchant: one acceptance, one
	// rejection, averaging to 0.5.
	require.NoError(t, f.store.ListPush(ctx, "trust:merchant_1", []byte("1")))
	require.NoError(t, f.store.ListPush(ctx, "trust:merchant_1", []byte("0")))

	_, err := f.needs.Submit(ctx, "u1", need.Preferences{
		Tags: []string{"eco-friendly"}, PriceMax: 400,
	}, time.Minute)
	require.NoError(t, err)

	o, err := f.offers.Generate(ctx, "merchant_1", offer.StrategyMatchScore, 10*time.Second)
	require.NoError(t, err)
	require.NotNil(t, o)

	require.NoError(t, f.engine.ProcessOffer(ctx, o))

	traces, err := f.engine.TracesForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, traces, 1)
	// 1.0 base + 0.05 tag boost + 0.2 * 0.5 trust.
	assert.Equal(t, 1.15, traces[0].Score)

	// The sweep itself appended a third sample for the acceptance.
	samples, err := f.store.ListRange(ctx, "trust:merchant_1", 0, -1)
	require.NoError(t, err)
	assert.Len(t, samples, 3)
}

func TestProcessOfferMatchesEveryFittingNeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.seedMarket(t)

	for _, id := range []string{"need_u1_a", "need_u1_b"} {
		f.putNeed(t, &need.Need{
			NeedID:      id,
			UserID:      "u1",
			ProductID:   p.ProductID,
			Preferences: need.Preferences{Tags: []string{"eco-friendly"}, PriceMax: 400},
		})
	}

	o, err := f.offers.Generate(ctx, "merchant_1", offer.StrategyMatchScore, 10*time.Second)
	require.NoError(t, err)
	require.NotNil(t, o)

	require.NoError(t, f.engine.ProcessOffer(ctx, o))

	// Both needs fit the offer and both negotiate to acceptance; each
	// removal succeeds independently and both traces record it.
	traces, err := f.engine.TracesForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, traces, 2)
	for _, trace := range traces {
		assert.Equal(t, offer.StatusAccepted, trace.Negotiation.Status)
		assert.True(t, trace.NeedRemoved)
	}

	active, err := f.needs.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}
