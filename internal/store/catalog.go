package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/shoprecs/internal/models"
	"github.com/xelth-com/shoprecs/internal/recommend"
)

// Catalog reads the local product mirror
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// GetProduct returns (nil, nil) when the product does not exist
func (c *Catalog) GetProduct(ctx context.Context, id int64) (*recommend.Product, error) {
	var p models.Product
	err := c.db.WithContext(ctx).Preload("Terms").First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	view := toView(p)
	return &view, nil
}

// SearchProducts lists published products matching q. Category and tag
// filters are OR-ed; with neither set every published product qualifies.
func (c *Catalog) SearchProducts(ctx context.Context, q recommend.ProductQuery) ([]int64, error) {
	if q.Limit <= 0 {
		return nil, nil
	}
	tx := c.db.WithContext(ctx)

	query := tx.Model(&models.Product{}).Where("status = ?", models.ProductStatusPublish)
	if q.InStockOnly {
		query = query.Where("stock_status = ?", models.StockStatusInStock)
	}
	if len(q.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", q.ExcludeIDs)
	}

	var facets *gorm.DB
	addFacet := func(taxonomy string, termIDs []int64) {
		if len(termIDs) == 0 {
			return
		}
		sub := tx.Model(&models.ProductTerm{}).
			Select("product_id").
			Where("taxonomy = ? AND term_id IN ?", taxonomy, termIDs)
		if facets == nil {
			facets = tx.Where("id IN (?)", sub)
		} else {
			facets = facets.Or("id IN (?)", sub)
		}
	}
	addFacet(models.TaxonomyCategory, q.CategoryIDs)
	addFacet(models.TaxonomyTag, q.TagIDs)
	if facets != nil {
		query = query.Where(facets)
	}

	var ids []int64
	err := query.
		Order(sortClause(q.SortBy)).
		Order("id ASC").
		Limit(q.Limit).
		Pluck("id", &ids).Error
	return ids, err
}

func sortClause(s recommend.SortBy) string {
	switch s {
	case recommend.SortRating:
		return "average_rating DESC"
	case recommend.SortPriceLow:
		return "price ASC"
	case recommend.SortPriceHigh:
		return "price DESC"
	case recommend.SortDate:
		return "created_at DESC"
	default:
		return "total_sales DESC"
	}
}

// UpsertProduct stores p and replaces its taxonomy terms
func (c *Catalog) UpsertProduct(ctx context.Context, p *models.Product) error {
	if p.LastSyncedAt.IsZero() {
		p.LastSyncedAt = time.Now().UTC()
	}
	terms := p.Terms
	p.Terms = nil
	defer func() { p.Terms = terms }()

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(p).Error; err != nil {
			return fmt.Errorf("upsert product %d: %w", p.ID, err)
		}
		if err := tx.Where("product_id = ?", p.ID).Delete(&models.ProductTerm{}).Error; err != nil {
			return fmt.Errorf("clear terms of %d: %w", p.ID, err)
		}
		if len(terms) == 0 {
			return nil
		}
		rows := make([]models.ProductTerm, 0, len(terms))
		for _, t := range terms {
			rows = append(rows, models.ProductTerm{ProductID: p.ID, Taxonomy: t.Taxonomy, TermID: t.TermID})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return fmt.Errorf("insert terms of %d: %w", p.ID, err)
		}
		return nil
	})
}

// CountProducts returns the number of mirrored products
func (c *Catalog) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.WithContext(ctx).Model(&models.Product{}).Count(&n).Error
	return n, err
}

func toView(p models.Product) recommend.Product {
	return recommend.Product{
		ID:            p.ID,
		CategoryIDs:   p.TermIDs(models.TaxonomyCategory),
		TagIDs:        p.TermIDs(models.TaxonomyTag),
		Price:         p.Price,
		AverageRating: p.AverageRating,
		TotalSales:    p.TotalSales,
		InStock:       p.IsInStock(),
		Purchasable:   p.Purchasable && p.IsPublished(),
		Published:     p.IsPublished(),
		CreatedAt:     p.CreatedAt,
	}
}
