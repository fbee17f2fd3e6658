package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/xelth-com/shoprecs/internal/models"
)

// Models lists every table owned by the service, in dependency order
var Models = []interface{}{
	&models.Product{},
	&models.ProductTerm{},
	&models.SalesOrder{},
	&models.SalesOrderLine{},
	&models.ProductRecommendation{},
	&models.ProductRecommendationOverride{},
	&models.RecommendationBuild{},
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
