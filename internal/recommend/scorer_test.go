package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		p    Product
		want float64
	}{
		{"popular in stock", Product{TotalSales: 10, AverageRating: 4, Price: 50, InStock: true}, 66},
		{"nothing going for it", Product{}, 0},
		{"expensive", Product{Price: 1000, InStock: true}, 20},
		{"cheap out of stock", Product{Price: 0.5}, 5},
		{"sales only", Product{TotalSales: 250}, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.p), 1e-9)
		})
	}
}

func TestScorer_ScoreAndRank(t *testing.T) {
	catalog := newFakeCatalog(
		Product{ID: 10, TotalSales: 10, AverageRating: 4, Price: 50, InStock: true},
		Product{ID: 11},
		Product{ID: 12, AverageRating: 5, InStock: true},
	)
	s := NewScorer(catalog)

	ranked, err := s.ScoreAndRank(context.Background(), []int64{11, 99, 10, 12}, []int64{1})
	require.NoError(t, err)

	// 10 -> 66, 12 -> 70, 11 -> 0; 99 does not resolve.
	assert.Equal(t, []int64{12, 10, 11}, ranked)
}

func TestScorer_TiesKeepInputOrder(t *testing.T) {
	catalog := newFakeCatalog(
		Product{ID: 3, InStock: true},
		Product{ID: 1, InStock: true},
		Product{ID: 2, InStock: true},
	)
	s := NewScorer(catalog)

	ranked, err := s.ScoreAndRank(context.Background(), []int64{3, 1, 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ranked)
}

func TestScorer_CatalogError(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.err = errBoom
	s := NewScorer(catalog)

	_, err := s.ScoreAndRank(context.Background(), []int64{1}, nil)
	assert.ErrorIs(t, err, errBoom)
}
