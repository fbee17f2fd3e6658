package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProductRecommendation is a stored, scored product pair for one engine
type ProductRecommendation struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	ProductID            int64     `gorm:"not null;uniqueIndex:unique_recommendation,priority:1;index" json:"product_id"`
	RecommendedProductID int64     `gorm:"not null;uniqueIndex:unique_recommendation,priority:2;index" json:"recommended_product_id"`
	Engine               string    `gorm:"size:50;not null;uniqueIndex:unique_recommendation,priority:3;index" json:"engine"`
	Score                float64   `gorm:"type:decimal(10,4);not null;default:0;index" json:"score"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (ProductRecommendation) TableName() string { return "product_recommendations" }

// ProductRecommendationOverride holds manual curation for one product
type ProductRecommendationOverride struct {
	ProductID int64                     `gorm:"primaryKey;autoIncrement:false" json:"product_id"`
	Custom    datatypes.JSONSlice[int64] `gorm:"column:custom_recommendations" json:"custom_recommendations"`
	Excluded  datatypes.JSONSlice[int64] `gorm:"column:excluded_recommendations" json:"excluded_recommendations"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

func (ProductRecommendationOverride) TableName() string { return "product_recommendation_overrides" }

// BuildStatus is the outcome of a recommendation data build
type BuildStatus string

const (
	BuildStatusRunning   BuildStatus = "running"
	BuildStatusSucceeded BuildStatus = "succeeded"
	BuildStatusFailed    BuildStatus = "failed"
)

// RecommendationBuild records one run of the build job
type RecommendationBuild struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Status         BuildStatus `gorm:"size:20;not null;index" json:"status"`
	Trigger        string      `gorm:"size:50" json:"trigger"`
	StartedAt      time.Time   `gorm:"not null" json:"started_at"`
	FinishedAt     *time.Time  `gorm:"index" json:"finished_at,omitempty"`
	OrdersScanned  int         `json:"orders_scanned"`
	RecordsWritten int         `json:"records_written"`
	Pruned         int64       `json:"pruned"`
	Checksum       string      `gorm:"size:64" json:"checksum"`
	Error          string      `gorm:"type:text" json:"error,omitempty"`
}

func (RecommendationBuild) TableName() string { return "recommendation_builds" }

// BeforeCreate assigns an ID when none was set
func (b *RecommendationBuild) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
