package recommend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/xelth-com/shoprecs/internal/logger"
)

// Cache groups shared by the lookup and maintenance paths.
const (
	CacheGroupAssociations = "associations"
	CacheGroupStats        = "stats"
)

type pairKey struct {
	a, b int64
}

// MineAssociations turns baskets into directed pair confidences.
//
// Each order contributes once per distinct product: repeated line items of the
// same product do not inflate counts. For every directed pair (a, b) with
// support >= minSupport, confidence = support(a, b) / count(a) and the pair is
// emitted when confidence >= minConfidence.
//
// The result is ordered by product ID, then score descending, then
// recommended product ID, so identical input always yields identical output.
func MineAssociations(orders []Order, minSupport int, minConfidence float64) []AssociationRecord {
	if minSupport < 1 {
		minSupport = 1
	}

	productCounts := make(map[int64]int)
	pairCounts := make(map[pairKey]int)

	for _, order := range orders {
		ids := distinctIDs(order.ProductIDs)
		for _, id := range ids {
			productCounts[id]++
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				pairCounts[pairKey{ids[i], ids[j]}]++
				pairCounts[pairKey{ids[j], ids[i]}]++
			}
		}
	}

	records := make([]AssociationRecord, 0, len(pairCounts))
	for pair, support := range pairCounts {
		if support < minSupport {
			continue
		}
		confidence := float64(support) / float64(productCounts[pair.a])
		if confidence < minConfidence {
			continue
		}
		records = append(records, AssociationRecord{
			ProductID:            pair.a,
			RecommendedProductID: pair.b,
			Engine:               EngineAssociation,
			Score:                confidence,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		ri, rj := records[i], records[j]
		if ri.ProductID != rj.ProductID {
			return ri.ProductID < rj.ProductID
		}
		if ri.Score != rj.Score {
			return ri.Score > rj.Score
		}
		return ri.RecommendedProductID < rj.RecommendedProductID
	})
	return records
}

// Checksum hashes the (product, recommended, engine, score) content of records,
// ignoring timestamps. Records must already be in MineAssociations order.
func Checksum(records []AssociationRecord) string {
	h := sha256.New()
	for _, r := range records {
		h.Write([]byte(strconv.FormatInt(r.ProductID, 10)))
		h.Write([]byte{':'})
		h.Write([]byte(strconv.FormatInt(r.RecommendedProductID, 10)))
		h.Write([]byte{':'})
		h.Write([]byte(r.Engine))
		h.Write([]byte{':'})
		h.Write([]byte(strconv.FormatFloat(r.Score, 'f', 6, 64)))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RebuildParams are the miner thresholds, usually taken from AssociationSettings.
type RebuildParams struct {
	DaysBack      int
	MinSupport    int
	MinConfidence float64
}

// RebuildParamsFrom extracts miner thresholds from settings.
func RebuildParamsFrom(s AssociationSettings) RebuildParams {
	return RebuildParams{
		DaysBack:      s.DaysBack,
		MinSupport:    s.MinSupport,
		MinConfidence: s.MinConfidence,
	}
}

// RebuildResult summarizes a successful rebuild.
type RebuildResult struct {
	OrdersScanned  int
	RecordsWritten int
	Checksum       string
	Since          time.Time
}

// Miner rebuilds the stored association dataset from order history.
type Miner struct {
	orders OrderSource
	store  AssociationStore
	cache  Cache
	log    *logger.Logger
	now    func() time.Time
}

// NewMiner wires a miner. cache may be nil.
func NewMiner(orders OrderSource, store AssociationStore, cache Cache, log *logger.Logger) *Miner {
	return &Miner{
		orders: orders,
		store:  store,
		cache:  cache,
		log:    logger.OrNop(log),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Rebuild replaces every association record with a freshly mined set.
// The new set is computed completely before the store swaps it in, so a failing
// order source or store leaves the previous dataset untouched.
func (m *Miner) Rebuild(ctx context.Context, p RebuildParams) (RebuildResult, error) {
	now := m.now()
	since := now.AddDate(0, 0, -p.DaysBack)

	orders, err := m.orders.FetchOrders(ctx, []string{OrderStatusCompleted, OrderStatusProcessing}, since)
	if err != nil {
		return RebuildResult{}, fmt.Errorf("fetch orders: %w", err)
	}

	records := MineAssociations(orders, p.MinSupport, p.MinConfidence)
	for i := range records {
		records[i].CreatedAt = now
		records[i].UpdatedAt = now
	}

	if err := m.store.ReplaceAll(ctx, EngineAssociation, records); err != nil {
		return RebuildResult{}, fmt.Errorf("replace associations: %w", err)
	}

	if m.cache != nil {
		m.cache.InvalidateGroup(ctx, CacheGroupAssociations)
		m.cache.InvalidateGroup(ctx, CacheGroupStats)
	}

	res := RebuildResult{
		OrdersScanned:  len(orders),
		RecordsWritten: len(records),
		Checksum:       Checksum(records),
		Since:          since,
	}
	m.log.Info("associations rebuilt",
		"orders", res.OrdersScanned,
		"records", res.RecordsWritten,
		"since", since.Format(time.RFC3339),
		"checksum", res.Checksum,
	)
	return res, nil
}

func distinctIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
