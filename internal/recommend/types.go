package recommend

import (
	"context"
	"time"
)

// Engine identifies a recommendation strategy.
type Engine string

const (
	EngineContent     Engine = "content"     // taxonomy similarity, computed live
	EngineAssociation Engine = "association" // historical co-purchase, precomputed
	EngineHybrid      Engine = "hybrid"      // selection mode only, never stored
)

// SortBy controls the ordering of content-matched candidates.
type SortBy string

const (
	SortPopularity SortBy = "popularity"
	SortRating     SortBy = "rating"
	SortPriceLow   SortBy = "price_low"
	SortPriceHigh  SortBy = "price_high"
	SortDate       SortBy = "date"
)

// Order statuses that count towards basket analysis.
const (
	OrderStatusCompleted  = "completed"
	OrderStatusProcessing = "processing"
)

// AssociationRecord is one directed, scored product pair.
type AssociationRecord struct {
	ProductID            int64
	RecommendedProductID int64
	Engine               Engine
	Score                float64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Product is the catalog view the core needs.
type Product struct {
	ID            int64
	CategoryIDs   []int64
	TagIDs        []int64
	Price         float64
	AverageRating float64
	TotalSales    int64
	InStock       bool
	Purchasable   bool
	Published     bool
	CreatedAt     time.Time
}

// Order is a purchased basket. ProductIDs may repeat when an order has several
// line items for the same product.
type Order struct {
	ID         int64
	ProductIDs []int64
}

// ProductQuery is the filter handed to Catalog.SearchProducts.
// CategoryIDs and TagIDs are OR-ed together; both empty means no taxonomy filter.
type ProductQuery struct {
	ExcludeIDs  []int64
	CategoryIDs []int64
	TagIDs      []int64
	InStockOnly bool
	SortBy      SortBy
	Limit       int
}

// ContentSettings configures the content matcher.
type ContentSettings struct {
	MatchCategories bool   `yaml:"match_categories"`
	MatchTags       bool   `yaml:"match_tags"`
	MatchAttributes bool   `yaml:"match_attributes"` // reserved
	SortBy          SortBy `yaml:"sort_by" validate:"oneof=popularity rating price_low price_high date"`
	ExcludeCurrent  bool   `yaml:"exclude_current"` // reserved, the seed is always excluded
}

// AssociationSettings configures the association miner.
type AssociationSettings struct {
	MinSupport    int     `yaml:"min_support" validate:"min=1"`
	DaysBack      int     `yaml:"days_back" validate:"min=1"`
	MinConfidence float64 `yaml:"min_confidence" validate:"gt=0,lte=1"`
	UseViews      bool    `yaml:"use_views"` // reserved
}

// Settings is the read-only recommendation configuration.
type Settings struct {
	Enabled            bool                `yaml:"enabled"`
	ActiveEngine       Engine              `yaml:"active_engine" validate:"oneof=content association hybrid"`
	MaxRecommendations int                 `yaml:"max_recommendations" validate:"min=1"`
	Content            ContentSettings     `yaml:"content_engine"`
	Association        AssociationSettings `yaml:"association_engine"`
}

// DefaultSettings mirrors the values a fresh installation starts with.
func DefaultSettings() Settings {
	return Settings{
		Enabled:            true,
		ActiveEngine:       EngineContent,
		MaxRecommendations: 4,
		Content: ContentSettings{
			MatchCategories: true,
			MatchTags:       true,
			SortBy:          SortPopularity,
			ExcludeCurrent:  true,
		},
		Association: AssociationSettings{
			MinSupport:    2,
			DaysBack:      365,
			MinConfidence: 0.1,
		},
	}
}

// OrderSource yields historical orders.
type OrderSource interface {
	FetchOrders(ctx context.Context, statuses []string, createdAfter time.Time) ([]Order, error)
}

// Catalog resolves and searches products. GetProduct returns (nil, nil) for unknown IDs.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)
	SearchProducts(ctx context.Context, q ProductQuery) ([]int64, error)
}

// OverrideStore holds per-product manual curation.
type OverrideStore interface {
	CustomRecommendations(ctx context.Context, productID int64) ([]int64, error)
	ExcludedRecommendations(ctx context.Context, productID int64) ([]int64, error)
}

// SettingsProvider returns the current settings.
type SettingsProvider interface {
	Settings(ctx context.Context) (Settings, error)
}

// AssociationStore persists AssociationRecords.
type AssociationStore interface {
	// ReplaceAll atomically swaps every record of engine for records.
	ReplaceAll(ctx context.Context, engine Engine, records []AssociationRecord) error
	// Query returns up to limit records for productID ordered by score descending.
	Query(ctx context.Context, productID int64, engine Engine, limit int) ([]AssociationRecord, error)
	// DeleteUnpublished removes records referencing a missing or unpublished product.
	DeleteUnpublished(ctx context.Context) (int64, error)
	// DeleteStale removes records of engine last updated before the cutoff.
	DeleteStale(ctx context.Context, engine Engine, before time.Time) (int64, error)
	Truncate(ctx context.Context) error
	CountByEngine(ctx context.Context) (map[Engine]int64, error)
}

// Cache stores product ID lists under a group so a whole group can be dropped at once.
type Cache interface {
	Get(ctx context.Context, group, key string) ([]int64, bool)
	Set(ctx context.Context, group, key string, ids []int64, ttl time.Duration)
	InvalidateGroup(ctx context.Context, group string)
}
