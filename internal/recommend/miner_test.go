package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/shoprecs/internal/cache"
)

const (
	prodA int64 = 1
	prodB int64 = 2
	prodC int64 = 3
)

func findRecord(records []AssociationRecord, a, b int64) (AssociationRecord, bool) {
	for _, r := range records {
		if r.ProductID == a && r.RecommendedProductID == b {
			return r, true
		}
	}
	return AssociationRecord{}, false
}

func TestMineAssociations_BasketScenario(t *testing.T) {
	orders := []Order{
		{ID: 1, ProductIDs: []int64{prodA, prodB}},
		{ID: 2, ProductIDs: []int64{prodA, prodB}},
		{ID: 3, ProductIDs: []int64{prodA, prodC}},
	}

	records := MineAssociations(orders, 2, 0.1)

	ab, ok := findRecord(records, prodA, prodB)
	require.True(t, ok, "A->B should be persisted")
	assert.InDelta(t, 2.0/3.0, ab.Score, 1e-9)
	assert.Equal(t, EngineAssociation, ab.Engine)

	ba, ok := findRecord(records, prodB, prodA)
	require.True(t, ok, "B->A should be persisted")
	assert.Equal(t, 1.0, ba.Score)

	_, ok = findRecord(records, prodA, prodC)
	assert.False(t, ok, "A->C is below min support")
	_, ok = findRecord(records, prodC, prodA)
	assert.False(t, ok, "C->A is below min support")

	assert.Len(t, records, 2)
}

func TestMineAssociations_MinConfidence(t *testing.T) {
	orders := []Order{
		{ProductIDs: []int64{prodA, prodB}},
		{ProductIDs: []int64{prodA, prodB}},
		{ProductIDs: []int64{prodA}},
		{ProductIDs: []int64{prodA}},
		{ProductIDs: []int64{prodA}},
		{ProductIDs: []int64{prodA}},
		{ProductIDs: []int64{prodA}},
		{ProductIDs: []int64{prodA}},
		{ProductIDs: []int64{prodA}},
		{ProductIDs: []int64{prodA}},
		{ProductIDs: []int64{prodA}},
	}

	// A appears in 11 orders, B in 2: A->B = 2/11 < 0.5, B->A = 1.0.
	records := MineAssociations(orders, 1, 0.5)

	_, ok := findRecord(records, prodA, prodB)
	assert.False(t, ok)
	_, ok = findRecord(records, prodB, prodA)
	assert.True(t, ok)
}

func TestMineAssociations_DuplicateLineItemsCountOnce(t *testing.T) {
	orders := []Order{
		{ProductIDs: []int64{prodA, prodA, prodB}},
		{ProductIDs: []int64{prodA, prodC}},
	}

	records := MineAssociations(orders, 1, 0.01)

	ab, ok := findRecord(records, prodA, prodB)
	require.True(t, ok)
	assert.InDelta(t, 0.5, ab.Score, 1e-9)

	_, ok = findRecord(records, prodA, prodA)
	assert.False(t, ok, "a product is never associated with itself")

	for _, r := range records {
		assert.Greater(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestMineAssociations_Deterministic(t *testing.T) {
	orders := []Order{
		{ProductIDs: []int64{5, 4, 3, 2, 1}},
		{ProductIDs: []int64{1, 2, 3}},
		{ProductIDs: []int64{4, 5}},
		{ProductIDs: []int64{2, 5}},
	}

	first := MineAssociations(orders, 1, 0.1)
	second := MineAssociations(orders, 1, 0.1)

	assert.Equal(t, first, second)
	assert.Equal(t, Checksum(first), Checksum(second))
	assert.Len(t, Checksum(first), 64)

	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		assert.LessOrEqual(t, prev.ProductID, cur.ProductID)
		if prev.ProductID == cur.ProductID {
			assert.GreaterOrEqual(t, prev.Score, cur.Score)
		}
	}
}

func TestMineAssociations_NoOrders(t *testing.T) {
	assert.Empty(t, MineAssociations(nil, 2, 0.1))
}

func TestMiner_RebuildReplacesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	orders := &fakeOrders{orders: []Order{
		{ProductIDs: []int64{prodA, prodB}},
		{ProductIDs: []int64{prodA, prodB}},
	}}
	store := &fakeStore{records: []AssociationRecord{
		{ProductID: 9, RecommendedProductID: 8, Engine: EngineAssociation, Score: 0.9},
		{ProductID: 9, RecommendedProductID: 7, Engine: EngineContent, Score: 0.5},
	}}
	c := cache.NewMemory(0)
	c.Set(ctx, CacheGroupAssociations, "assoc_recs_9_4", []int64{8}, time.Minute)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMiner(orders, store, c, nil)
	m.now = func() time.Time { return now }

	res, err := m.Rebuild(ctx, RebuildParams{DaysBack: 30, MinSupport: 2, MinConfidence: 0.1})
	require.NoError(t, err)

	assert.Equal(t, 2, res.OrdersScanned)
	assert.Equal(t, 2, res.RecordsWritten)
	assert.Equal(t, now.AddDate(0, 0, -30), orders.after)
	assert.ElementsMatch(t, []string{OrderStatusCompleted, OrderStatusProcessing}, orders.statuses)

	_, ok := findRecord(store.records, 9, 8)
	assert.False(t, ok, "old association rows are replaced")
	_, ok = findRecord(store.records, 9, 7)
	assert.True(t, ok, "content rows are left alone")

	ab, ok := findRecord(store.records, prodA, prodB)
	require.True(t, ok)
	assert.Equal(t, now, ab.CreatedAt)
	assert.Equal(t, now, ab.UpdatedAt)

	_, hit := c.Get(ctx, CacheGroupAssociations, "assoc_recs_9_4")
	assert.False(t, hit, "lookup cache is invalidated")
}

func TestMiner_RebuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	orders := &fakeOrders{orders: []Order{
		{ProductIDs: []int64{prodA, prodB, prodC}},
		{ProductIDs: []int64{prodA, prodB}},
		{ProductIDs: []int64{prodB, prodC}},
	}}
	store := &fakeStore{}
	m := NewMiner(orders, store, nil, nil)

	first, err := m.Rebuild(ctx, RebuildParams{DaysBack: 365, MinSupport: 1, MinConfidence: 0.1})
	require.NoError(t, err)
	snapshot := append([]AssociationRecord(nil), store.records...)

	second, err := m.Rebuild(ctx, RebuildParams{DaysBack: 365, MinSupport: 1, MinConfidence: 0.1})
	require.NoError(t, err)

	assert.Equal(t, first.Checksum, second.Checksum)
	require.Len(t, store.records, len(snapshot))
	for i := range snapshot {
		assert.Equal(t, snapshot[i].ProductID, store.records[i].ProductID)
		assert.Equal(t, snapshot[i].RecommendedProductID, store.records[i].RecommendedProductID)
		assert.Equal(t, snapshot[i].Score, store.records[i].Score)
	}
}

func TestMiner_RebuildFailureKeepsExistingData(t *testing.T) {
	ctx := context.Background()
	existing := []AssociationRecord{{ProductID: 9, RecommendedProductID: 8, Engine: EngineAssociation, Score: 0.9}}

	t.Run("order source down", func(t *testing.T) {
		store := &fakeStore{records: append([]AssociationRecord(nil), existing...)}
		m := NewMiner(&fakeOrders{err: errBoom}, store, nil, nil)

		_, err := m.Rebuild(ctx, RebuildParams{DaysBack: 1, MinSupport: 1, MinConfidence: 0.1})
		require.ErrorIs(t, err, errBoom)
		assert.Equal(t, existing, store.records)
	})

	t.Run("store write fails", func(t *testing.T) {
		store := &fakeStore{records: append([]AssociationRecord(nil), existing...), replaceErr: errBoom}
		orders := &fakeOrders{orders: []Order{{ProductIDs: []int64{prodA, prodB}}}}
		m := NewMiner(orders, store, nil, nil)

		_, err := m.Rebuild(ctx, RebuildParams{DaysBack: 1, MinSupport: 1, MinConfidence: 0.1})
		require.ErrorIs(t, err, errBoom)
		assert.Equal(t, existing, store.records)
	})
}
