package models

import (
	"time"

	"gorm.io/datatypes"
)

// Product publication states
const (
	ProductStatusPublish = "publish"
	ProductStatusDraft   = "draft"
	ProductStatusTrash   = "trash"
)

// Stock states. Backordered products still count as in stock for display
// but are not offered by the content matcher.
const (
	StockStatusInStock     = "instock"
	StockStatusOutOfStock  = "outofstock"
	StockStatusOnBackorder = "onbackorder"
)

// Taxonomies attached to products
const (
	TaxonomyCategory = "product_cat"
	TaxonomyTag      = "product_tag"
)

// Product mirrors a storefront catalog entry
type Product struct {
	ID            int64      `gorm:"primaryKey;autoIncrement:false" json:"id" xmlrpc:"id"`
	SKU           OdooString `gorm:"index" json:"sku" xmlrpc:"default_code"`
	Name          string     `json:"name" xmlrpc:"name"`
	Status        string     `gorm:"size:20;index;not null" json:"status"`
	Price         float64    `json:"price" xmlrpc:"list_price"`
	AverageRating float64    `json:"average_rating"`
	TotalSales    int64      `gorm:"index" json:"total_sales"`
	StockStatus   string     `gorm:"size:20;index;not null" json:"stock_status"`
	Purchasable   bool       `json:"purchasable" xmlrpc:"sale_ok"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	LastSyncedAt time.Time      `json:"last_synced_at"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"raw_data,omitempty"`

	Terms []ProductTerm `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"terms,omitempty"`
}

func (Product) TableName() string { return "products" }

// IsPublished reports whether the product is visible in the storefront
func (p Product) IsPublished() bool { return p.Status == ProductStatusPublish }

// IsInStock reports whether the product can currently ship
func (p Product) IsInStock() bool { return p.StockStatus != StockStatusOutOfStock }

// TermIDs returns the term IDs of one taxonomy
func (p Product) TermIDs(taxonomy string) []int64 {
	var ids []int64
	for _, t := range p.Terms {
		if t.Taxonomy == taxonomy {
			ids = append(ids, t.TermID)
		}
	}
	return ids
}

// ProductTerm links a product to a category or tag
type ProductTerm struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	ProductID int64  `gorm:"not null;uniqueIndex:idx_product_term,priority:1" json:"product_id"`
	Taxonomy  string `gorm:"size:32;not null;uniqueIndex:idx_product_term,priority:2;index:idx_term_lookup,priority:1" json:"taxonomy"`
	TermID    int64  `gorm:"not null;uniqueIndex:idx_product_term,priority:3;index:idx_term_lookup,priority:2" json:"term_id"`
}

func (ProductTerm) TableName() string { return "product_terms" }
