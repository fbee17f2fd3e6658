package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOdooString(t *testing.T) {
	var v struct {
		Code OdooString `json:"default_code"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"default_code":false}`), &v))
	assert.Equal(t, OdooString(""), v.Code)

	require.NoError(t, json.Unmarshal([]byte(`{"default_code":"SKU-1"}`), &v))
	assert.Equal(t, "SKU-1", v.Code.String())
}

func TestOdooMany2One(t *testing.T) {
	var v struct {
		Categ OdooMany2One `json:"categ_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"categ_id":[7,"All / Shoes"]}`), &v))
	assert.Equal(t, OdooMany2One{ID: 7, Name: "All / Shoes"}, v.Categ)

	require.NoError(t, json.Unmarshal([]byte(`{"categ_id":false}`), &v))
	assert.Equal(t, OdooMany2One{}, v.Categ)

	require.NoError(t, json.Unmarshal([]byte(`{"categ_id":12}`), &v))
	assert.Equal(t, int64(12), v.Categ.ID)
}

func TestOdooTime(t *testing.T) {
	var v struct {
		At OdooTime `json:"create_date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"create_date":"2026-03-04 05:06:07"}`), &v))
	assert.Equal(t, time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC), v.At.Time)

	require.NoError(t, json.Unmarshal([]byte(`{"create_date":false}`), &v))
	assert.True(t, v.At.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"create_date":"yesterday"}`), &v))
}

func TestProductHelpers(t *testing.T) {
	p := Product{
		ID:          5,
		Status:      ProductStatusPublish,
		StockStatus: StockStatusOnBackorder,
		Terms: []ProductTerm{
			{Taxonomy: TaxonomyCategory, TermID: 1},
			{Taxonomy: TaxonomyTag, TermID: 9},
			{Taxonomy: TaxonomyCategory, TermID: 2},
		},
	}
	assert.True(t, p.IsPublished())
	assert.True(t, p.IsInStock())
	assert.Equal(t, []int64{1, 2}, p.TermIDs(TaxonomyCategory))
	assert.Equal(t, []int64{9}, p.TermIDs(TaxonomyTag))

	p.StockStatus = StockStatusOutOfStock
	assert.False(t, p.IsInStock())
}

func TestSalesOrderProductIDs(t *testing.T) {
	o := SalesOrder{Lines: []SalesOrderLine{{ProductID: 3}, {ProductID: 0}, {ProductID: 3}, {ProductID: 8}}}
	assert.Equal(t, []int64{3, 3, 8}, o.ProductIDs())
}
