package recommend

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type fakeCatalog struct {
	products map[int64]*Product
	queries  []ProductQuery
	results  []int64
	err      error
}

func newFakeCatalog(products ...Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[int64]*Product)}
	for i := range products {
		p := products[i]
		c.products[p.ID] = &p
	}
	return c
}

func (c *fakeCatalog) GetProduct(_ context.Context, id int64) (*Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (c *fakeCatalog) SearchProducts(_ context.Context, q ProductQuery) ([]int64, error) {
	c.queries = append(c.queries, q)
	if c.err != nil {
		return nil, c.err
	}
	skip := toSet(q.ExcludeIDs)
	out := make([]int64, 0, len(c.results))
	for _, id := range c.results {
		if _, ok := skip[id]; !ok {
			out = append(out, id)
		}
	}
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

type fakeOrders struct {
	orders   []Order
	err      error
	statuses []string
	after    time.Time
}

func (o *fakeOrders) FetchOrders(_ context.Context, statuses []string, createdAfter time.Time) ([]Order, error) {
	o.statuses = statuses
	o.after = createdAfter
	return o.orders, o.err
}

type fakeOverrides struct {
	custom   map[int64][]int64
	excluded map[int64][]int64
}

func (f *fakeOverrides) CustomRecommendations(_ context.Context, id int64) ([]int64, error) {
	return f.custom[id], nil
}

func (f *fakeOverrides) ExcludedRecommendations(_ context.Context, id int64) ([]int64, error) {
	return f.excluded[id], nil
}

type fakeSettings struct {
	s Settings
}

func (f fakeSettings) Settings(context.Context) (Settings, error) { return f.s, nil }

type fakeStore struct {
	mu          sync.Mutex
	records     []AssociationRecord
	replaceErr  error
	queryErr    error
	queries     int
	unpublished int64
	staleCutoff time.Time
	truncated   bool
}

func (s *fakeStore) ReplaceAll(_ context.Context, engine Engine, records []AssociationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	kept := make([]AssociationRecord, 0, len(s.records)+len(records))
	for _, r := range s.records {
		if r.Engine != engine {
			kept = append(kept, r)
		}
	}
	s.records = append(kept, records...)
	return nil
}

func (s *fakeStore) Query(_ context.Context, productID int64, engine Engine, limit int) ([]AssociationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var out []AssociationRecord
	for _, r := range s.records {
		if r.ProductID == productID && r.Engine == engine {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) DeleteUnpublished(context.Context) (int64, error) {
	return s.unpublished, nil
}

func (s *fakeStore) DeleteStale(_ context.Context, engine Engine, before time.Time) (int64, error) {
	s.staleCutoff = before
	var n int64
	kept := s.records[:0]
	for _, r := range s.records {
		if r.Engine == engine && r.UpdatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return n, nil
}

func (s *fakeStore) Truncate(context.Context) error {
	s.records = nil
	s.truncated = true
	return nil
}

func (s *fakeStore) CountByEngine(context.Context) (map[Engine]int64, error) {
	out := make(map[Engine]int64)
	for _, r := range s.records {
		out[r.Engine]++
	}
	return out, nil
}

var errBoom = errors.New("boom")
