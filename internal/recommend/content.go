package recommend

import (
	"context"
	"fmt"
	"math"
)

// overFetch leaves room for exclusion and stock filtering downstream.
const overFetch = 3

// ContentMatcher finds products sharing categories or tags with a seed product.
type ContentMatcher struct {
	catalog Catalog
}

func NewContentMatcher(catalog Catalog) *ContentMatcher {
	return &ContentMatcher{catalog: catalog}
}

// Match returns up to ceil(limit) in-stock products related to seed by taxonomy.
// limit may be fractional (hybrid mode splits it in half).
func (c *ContentMatcher) Match(ctx context.Context, seed int64, limit float64, cs ContentSettings) ([]int64, error) {
	if limit <= 0 {
		return nil, nil
	}

	product, err := c.catalog.GetProduct(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("get seed product %d: %w", seed, err)
	}
	if product == nil {
		return nil, nil
	}

	q := ProductQuery{
		ExcludeIDs:  []int64{seed},
		InStockOnly: true,
		SortBy:      normalizeSort(cs.SortBy),
		Limit:       int(limit * overFetch),
	}
	if cs.MatchCategories {
		q.CategoryIDs = product.CategoryIDs
	}
	if cs.MatchTags {
		q.TagIDs = product.TagIDs
	}
	if q.Limit < 1 {
		q.Limit = 1
	}

	ids, err := c.catalog.SearchProducts(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search products for %d: %w", seed, err)
	}

	return truncate(ids, int(math.Ceil(limit))), nil
}

func normalizeSort(s SortBy) SortBy {
	switch s {
	case SortPopularity, SortRating, SortPriceLow, SortPriceHigh, SortDate:
		return s
	default:
		return SortPopularity
	}
}

func truncate(ids []int64, n int) []int64 {
	if n < 0 {
		n = 0
	}
	if len(ids) > n {
		return ids[:n]
	}
	return ids
}
