package recommend

import (
	"context"
	"fmt"
	"sort"
)

// Scoring weights for the cart ranking heuristic.
const (
	salesWeight   = 0.1
	ratingWeight  = 10.0
	priceBonus    = 5.0
	priceBonusCap = 1000.0
	inStockBonus  = 20.0
)

// Score rates a product for cart ranking: sales and rating weighted, plus flat
// bonuses for a price in (0, 1000) and for being in stock.
func Score(p Product) float64 {
	score := float64(p.TotalSales)*salesWeight + p.AverageRating*ratingWeight
	if p.Price > 0 && p.Price < priceBonusCap {
		score += priceBonus
	}
	if p.InStock {
		score += inStockBonus
	}
	return score
}

// Scorer ranks candidate products with Score.
type Scorer struct {
	catalog Catalog
}

func NewScorer(catalog Catalog) *Scorer {
	return &Scorer{catalog: catalog}
}

type scored struct {
	id    int64
	score float64
}

// ScoreAndRank orders candidates by descending Score, keeping input order on ties.
// Candidates the catalog cannot resolve are dropped. The context IDs (the cart)
// are accepted for callers but do not influence the score.
func (s *Scorer) ScoreAndRank(ctx context.Context, candidates, _ []int64) ([]int64, error) {
	ranked := make([]scored, 0, len(candidates))
	for _, id := range candidates {
		p, err := s.catalog.GetProduct(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("score product %d: %w", id, err)
		}
		if p == nil {
			continue
		}
		ranked = append(ranked, scored{id: id, score: Score(*p)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]int64, len(ranked))
	for i, r := range ranked {
		out[i] = r.id
	}
	return out, nil
}
