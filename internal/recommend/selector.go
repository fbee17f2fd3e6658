package recommend

import (
	"context"
	"fmt"

	"github.com/xelth-com/shoprecs/internal/logger"
)

// Deps are the collaborators a Selector needs. Cache and Logger are optional.
type Deps struct {
	Settings     SettingsProvider
	Catalog      Catalog
	Overrides    OverrideStore
	Associations AssociationStore
	Cache        Cache
	Logger       *logger.Logger
}

// Selector merges overrides, engines, exclusions and availability into a final
// recommendation list for a product or a whole cart.
type Selector struct {
	settings  SettingsProvider
	catalog   Catalog
	overrides OverrideStore
	content   *ContentMatcher
	lookup    *AssociationLookup
	scorer    *Scorer
	log       *logger.Logger
}

func NewSelector(d Deps) *Selector {
	log := logger.OrNop(d.Logger)
	return &Selector{
		settings:  d.Settings,
		catalog:   d.Catalog,
		overrides: d.Overrides,
		content:   NewContentMatcher(d.Catalog),
		lookup:    NewAssociationLookup(d.Associations, d.Cache, log),
		scorer:    NewScorer(d.Catalog),
		log:       log,
	}
}

// Recommend returns up to limit products to show next to productID.
// A limit <= 0 means the configured maximum.
func (s *Selector) Recommend(ctx context.Context, productID int64, limit int) ([]int64, error) {
	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if limit <= 0 {
		limit = settings.MaxRecommendations
	}
	return s.recommend(ctx, settings, productID, limit)
}

// RecommendForCart gathers recommendations for every product in the cart,
// drops anything already in the cart and ranks the rest with the Scorer.
func (s *Selector) RecommendForCart(ctx context.Context, cartProductIDs []int64, limit int) ([]int64, error) {
	cart := distinctIDs(cartProductIDs)
	if len(cart) == 0 {
		return nil, nil
	}

	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if limit <= 0 {
		limit = settings.MaxRecommendations
	}

	var pool []int64
	for _, id := range cart {
		recs, err := s.recommend(ctx, settings, id, limit*2)
		if err != nil {
			return nil, err
		}
		pool = append(pool, recs...)
	}

	inCart := toSet(cart)
	candidates := make([]int64, 0, len(pool))
	for _, id := range distinctIDs(pool) {
		if _, ok := inCart[id]; !ok {
			candidates = append(candidates, id)
		}
	}

	ranked, err := s.scorer.ScoreAndRank(ctx, candidates, cart)
	if err != nil {
		return nil, err
	}

	s.log.Debug("cart recommendations", "cart", cart, "candidates", len(candidates), "limit", limit)
	return truncate(ranked, limit), nil
}

func (s *Selector) recommend(ctx context.Context, settings Settings, productID int64, limit int) ([]int64, error) {
	if !settings.Enabled || limit <= 0 {
		return nil, nil
	}

	custom, err := s.overrides.CustomRecommendations(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("custom recommendations for %d: %w", productID, err)
	}
	if len(custom) > 0 {
		// Manual curation wins outright, exclusions and stock included.
		out := make([]int64, len(custom))
		copy(out, custom)
		return truncate(out, limit), nil
	}

	var recs []int64
	switch settings.ActiveEngine {
	case EngineContent:
		recs, err = s.content.Match(ctx, productID, float64(limit), settings.Content)
	case EngineAssociation:
		recs = s.lookup.Lookup(ctx, productID, float64(limit))
	case EngineHybrid:
		half := float64(limit) / 2
		var content []int64
		content, err = s.content.Match(ctx, productID, half, settings.Content)
		if err == nil {
			merged := make([]int64, 0, len(content)+limit)
			merged = append(merged, content...)
			merged = append(merged, s.lookup.Lookup(ctx, productID, half)...)
			recs = truncate(distinctIDs(merged), limit)
		}
	default:
		s.log.Warn("unknown recommendation engine", "engine", settings.ActiveEngine)
	}
	if err != nil {
		return nil, err
	}

	excluded, err := s.overrides.ExcludedRecommendations(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("excluded recommendations for %d: %w", productID, err)
	}
	if len(excluded) > 0 {
		skip := toSet(excluded)
		kept := make([]int64, 0, len(recs))
		for _, id := range recs {
			if _, ok := skip[id]; !ok {
				kept = append(kept, id)
			}
		}
		recs = kept
	}

	return s.available(ctx, recs)
}

// available keeps products that resolve and are purchasable and in stock.
func (s *Selector) available(ctx context.Context, ids []int64) ([]int64, error) {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		p, err := s.catalog.GetProduct(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get product %d: %w", id, err)
		}
		if p != nil && p.Purchasable && p.InStock {
			out = append(out, id)
		}
	}
	return out, nil
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
