package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/xelth-com/shoprecs/internal/models"
	"github.com/xelth-com/shoprecs/internal/recommend"
)

const insertBatchSize = 500

// Associations persists recommendation pairs in product_recommendations
type Associations struct {
	db *gorm.DB
}

func NewAssociations(db *gorm.DB) *Associations {
	return &Associations{db: db}
}

// ReplaceAll swaps every row of engine in a single transaction, so readers
// see either the old set or the new one.
func (a *Associations) ReplaceAll(ctx context.Context, engine recommend.Engine, records []recommend.AssociationRecord) error {
	rows := make([]models.ProductRecommendation, 0, len(records))
	for _, r := range records {
		rows = append(rows, toRow(r))
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("engine = ?", string(engine)).Delete(&models.ProductRecommendation{}).Error; err != nil {
			return fmt.Errorf("delete %s rows: %w", engine, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
			return fmt.Errorf("insert %s rows: %w", engine, err)
		}
		return nil
	})
}

func (a *Associations) Query(ctx context.Context, productID int64, engine recommend.Engine, limit int) ([]recommend.AssociationRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []models.ProductRecommendation
	err := a.db.WithContext(ctx).
		Where("product_id = ? AND engine = ?", productID, string(engine)).
		Order("score DESC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]recommend.AssociationRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out, nil
}

// DeleteUnpublished removes rows whose product or recommended product is no
// longer a published catalog entry.
func (a *Associations) DeleteUnpublished(ctx context.Context) (int64, error) {
	tx := a.db.WithContext(ctx)
	published := tx.Model(&models.Product{}).Select("id").Where("status = ?", models.ProductStatusPublish)

	res := tx.
		Where("product_id NOT IN (?) OR recommended_product_id NOT IN (?)", published, published).
		Delete(&models.ProductRecommendation{})
	return res.RowsAffected, res.Error
}

func (a *Associations) DeleteStale(ctx context.Context, engine recommend.Engine, before time.Time) (int64, error) {
	res := a.db.WithContext(ctx).
		Where("engine = ? AND updated_at < ?", string(engine), before).
		Delete(&models.ProductRecommendation{})
	return res.RowsAffected, res.Error
}

func (a *Associations) Truncate(ctx context.Context) error {
	return a.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.ProductRecommendation{}).Error
}

func (a *Associations) CountByEngine(ctx context.Context) (map[recommend.Engine]int64, error) {
	var rows []struct {
		Engine string
		Count  int64
	}
	err := a.db.WithContext(ctx).
		Model(&models.ProductRecommendation{}).
		Select("engine, COUNT(*) AS count").
		Group("engine").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[recommend.Engine]int64, len(rows))
	for _, r := range rows {
		out[recommend.Engine(r.Engine)] = r.Count
	}
	return out, nil
}

func toRow(r recommend.AssociationRecord) models.ProductRecommendation {
	return models.ProductRecommendation{
		ProductID:            r.ProductID,
		RecommendedProductID: r.RecommendedProductID,
		Engine:               string(r.Engine),
		Score:                r.Score,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func fromRow(r models.ProductRecommendation) recommend.AssociationRecord {
	return recommend.AssociationRecord{
		ProductID:            r.ProductID,
		RecommendedProductID: r.RecommendedProductID,
		Engine:               recommend.Engine(r.Engine),
		Score:                r.Score,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}
