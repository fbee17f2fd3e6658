package store

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/shoprecs/internal/models"
)

// Overrides reads per-product manual curation
type Overrides struct {
	db *gorm.DB
}

func NewOverrides(db *gorm.DB) *Overrides {
	return &Overrides{db: db}
}

func (o *Overrides) CustomRecommendations(ctx context.Context, productID int64) ([]int64, error) {
	row, err := o.get(ctx, productID)
	if err != nil || row == nil {
		return nil, err
	}
	return []int64(row.Custom), nil
}

func (o *Overrides) ExcludedRecommendations(ctx context.Context, productID int64) ([]int64, error) {
	row, err := o.get(ctx, productID)
	if err != nil || row == nil {
		return nil, err
	}
	return []int64(row.Excluded), nil
}

// SetOverride stores the curated and excluded lists for productID.
// Two empty lists remove the override.
func (o *Overrides) SetOverride(ctx context.Context, productID int64, custom, excluded []int64) error {
	tx := o.db.WithContext(ctx)
	if len(custom) == 0 && len(excluded) == 0 {
		return tx.Delete(&models.ProductRecommendationOverride{}, "product_id = ?", productID).Error
	}
	row := models.ProductRecommendationOverride{
		ProductID: productID,
		Custom:    datatypes.JSONSlice[int64](custom),
		Excluded:  datatypes.JSONSlice[int64](excluded),
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"custom_recommendations", "excluded_recommendations", "updated_at"}),
	}).Create(&row).Error
}

func (o *Overrides) get(ctx context.Context, productID int64) (*models.ProductRecommendationOverride, error) {
	var row models.ProductRecommendationOverride
	err := o.db.WithContext(ctx).First(&row, "product_id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
