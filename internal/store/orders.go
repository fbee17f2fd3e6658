package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/shoprecs/internal/models"
	"github.com/xelth-com/shoprecs/internal/recommend"
)

const orderBatchSize = 1000

// Orders reads and writes the local order history
type Orders struct {
	db *gorm.DB
}

func NewOrders(db *gorm.DB) *Orders {
	return &Orders{db: db}
}

// FetchOrders returns orders in one of statuses created at or after createdAfter
func (o *Orders) FetchOrders(ctx context.Context, statuses []string, createdAfter time.Time) ([]recommend.Order, error) {
	var out []recommend.Order
	var batch []models.SalesOrder

	res := o.db.WithContext(ctx).
		Preload("Lines").
		Where("status IN ? AND date_created >= ?", statuses, createdAfter).
		FindInBatches(&batch, orderBatchSize, func(tx *gorm.DB, _ int) error {
			for _, so := range batch {
				out = append(out, recommend.Order{ID: so.ID, ProductIDs: so.ProductIDs()})
			}
			return nil
		})
	if res.Error != nil {
		return nil, res.Error
	}
	return out, nil
}

// SaveOrder upserts an order and replaces its lines
func (o *Orders) SaveOrder(ctx context.Context, so *models.SalesOrder) error {
	if so.LastSyncedAt.IsZero() {
		so.LastSyncedAt = time.Now().UTC()
	}
	lines := so.Lines
	so.Lines = nil
	defer func() { so.Lines = lines }()

	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(so).Error; err != nil {
			return fmt.Errorf("upsert order %d: %w", so.ID, err)
		}
		if err := tx.Where("order_id = ?", so.ID).Delete(&models.SalesOrderLine{}).Error; err != nil {
			return fmt.Errorf("clear lines of %d: %w", so.ID, err)
		}
		if len(lines) == 0 {
			return nil
		}
		for i := range lines {
			lines[i].OrderID = so.ID
		}
		if err := tx.Create(&lines).Error; err != nil {
			return fmt.Errorf("insert lines of %d: %w", so.ID, err)
		}
		return nil
	})
}

// CountOrders returns the number of stored orders
func (o *Orders) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	err := o.db.WithContext(ctx).Model(&models.SalesOrder{}).Count(&n).Error
	return n, err
}
