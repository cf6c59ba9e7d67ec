package need_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/marketsim-backend/internal/modules/catalog"
	"github.com/georgemunganga/marketsim-backend/internal/modules/need"
	"github.com/georgemunganga/marketsim-backend/internal/modules/user"
	"github.com/georgemunganga/marketsim-backend/internal/store"
)

type fixture struct {
	store   *store.Memory
	users   user.Service
	catalog catalog.Service
	needs   need.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	users := user.NewService(mem)
	cat := catalog.NewService(mem)
	return &fixture{
		store:   mem,
		users:   users,
		catalog: cat,
		needs:   need.NewService(mem, users, cat),
	}
}

func TestSubmitUnknownUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.needs.Submit(ctx, "ghost", need.Preferences{PriceMax: 400}, time.Second)
	assert.ErrorIs(t, err, need.ErrUnknownUser)
}

func TestSubmitBindsCatalogProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.users.Create(ctx, "u1", nil)
	require.NoError(t, err)
	p, err := f.catalog.CreateProduct(ctx, "supplier_travel", catalog.Attributes{
		Name: "Flight to Paris", Category: "Travel", Price: 380,
	})
	require.NoError(t, err)

	n, err := f.needs.Submit(ctx, "u1", need.Preferences{
		Tags: []string{"eco-friendly"}, PriceMax: 400,
	}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, p.ProductID, n.ProductID)
	assert.Equal(t, "Flight to Paris", n.ProductName)
	assert.Equal(t, "u1", n.UserID)
	assert.NotEmpty(t, n.NeedID)

	got, err := f.needs.Get(ctx, n.NeedID)
	require.NoError(t, err)
	assert.Equal(t, n.NeedID, got.NeedID)
	assert.Equal(t, n.Preferences, got.Preferences)
}

func TestSubmitWithEmptyCatalogLeavesUnbound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.users.Create(ctx, "u1", nil)
	require.NoError(t, err)

	n, err := f.needs.Submit(ctx, "u1", need.Preferences{PriceMax: 300}, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, n.ProductID)
	assert.Empty(t, n.ProductName)
}

func TestRemoveIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.users.Create(ctx, "u1", nil)
	require.NoError(t, err)

	n, err := f.needs.Submit(ctx, "u1", need.Preferences{PriceMax: 400}, time.Minute)
	require.NoError(t, err)

	removed, err := f.needs.Remove(ctx, n.NeedID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.needs.Remove(ctx, n.NeedID)
	require.NoError(t, err)
	assert.False(t, removed, "second remove must be a no-op")

	satisfied, err := f.store.SetHas(ctx, "needs:satisfied", n.NeedID)
	require.NoError(t, err)
	assert.True(t, satisfied)

	count, err := f.store.Counter(ctx, "metrics:needs_satisfied")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "only the winning remove counts")
}

func TestListActiveSkipsExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.users.Create(ctx, "u1", nil)
	require.NoError(t, err)

	short, err := f.needs.Submit(ctx, "u1", need.Preferences{PriceMax: 300}, 50*time.Millisecond)
	require.NoError(t, err)
	long, err := f.needs.Submit(ctx, "u1", need.Preferences{PriceMax: 300}, time.Minute)
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)

	active, err := f.needs.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, long.NeedID, active[0].NeedID)

	_, err = f.needs.Get(ctx, short.NeedID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// putAgedNeed writes a need whose created_at is already in the past.
func putAgedNeed(t *testing.T, mem *store.Memory, n *need.Need) {
	t.Helper()
	payload, err := json.Marshal(n)
	require.NoError(t, err)
	require.NoError(t, mem.Put(context.Background(), "need:"+n.NeedID, payload, time.Minute))
}

func TestDetectUnsatisfied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	aged := &need.Need{
		NeedID:      "need_u1_aged",
		UserID:      "u1",
		Preferences: need.Preferences{PriceMax: 400},
		CreatedAt:   time.Now().UTC().Add(-10 * time.Second),
	}
	fresh := &need.Need{
		NeedID:      "need_u1_fresh",
		UserID:      "u1",
		Preferences: need.Preferences{PriceMax: 400},
		CreatedAt:   time.Now().UTC(),
	}
	putAgedNeed(t, f.store, aged)
	putAgedNeed(t, f.store, fresh)

	sub, err := f.store.Subscribe(ctx, need.TopicUnsatisfied)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, f.needs.DetectUnsatisfied(ctx, 5*time.Second))

	select {
	case msg := <-sub.C():
		var event need.UnsatisfiedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, aged.NeedID, event.NeedID)
		assert.Greater(t, event.AgeS, 5.0)
	default:
		t.Fatal("expected an unsatisfied event for the aged need")
	}

	// Flagging is monotonic: a second scan emits nothing new.
	require.NoError(t, f.needs.DetectUnsatisfied(ctx, 5*time.Second))
	select {
	case msg := <-sub.C():
		t.Fatalf("need %s flagged twice", msg.Payload)
	default:
	}
}

func TestDetectUnsatisfiedSkipsSatisfied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.users.Create(ctx, "u1", nil)
	require.NoError(t, err)

	aged := &need.Need{
		NeedID:      "need_u1_done",
		UserID:      "u1",
		Preferences: need.Preferences{PriceMax: 400},
		CreatedAt:   time.Now().UTC().Add(-10 * time.Second),
	}
	putAgedNeed(t, f.store, aged)

	removed, err := f.needs.Remove(ctx, aged.NeedID)
	require.NoError(t, err)
	require.True(t, removed)

	sub, err := f.store.Subscribe(ctx, need.TopicUnsatisfied)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, f.needs.DetectUnsatisfied(ctx, 5*time.Second))
	select {
	case <-sub.C():
		t.Fatal("satisfied need must never be flagged unsatisfied")
	default:
	}
}
