package models

import "time"

// OrderStatus defines possible order statuses
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"    // Awaiting payment
	OrderStatusProcessing OrderStatus = "processing" // Paid, not shipped
	OrderStatusCompleted  OrderStatus = "completed"  // Fulfilled
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// Order sources
const (
	OrderSourceStore = "store"
	OrderSourceOdoo  = "odoo"
)

// SalesOrder is a customer order used as basket-analysis input
type SalesOrder struct {
	ID          int64       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Number      string      `gorm:"index" json:"number"`
	Status      OrderStatus `gorm:"size:20;not null;index:idx_order_status_date,priority:1" json:"status"`
	DateCreated time.Time   `gorm:"not null;index:idx_order_status_date,priority:2" json:"date_created"`
	Source      string      `gorm:"size:20" json:"source"`

	LastSyncedAt time.Time `json:"last_synced_at"`

	Lines []SalesOrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
}

func (SalesOrder) TableName() string { return "sales_orders" }

// ProductIDs lists line item products in line order, repeats included
func (o SalesOrder) ProductIDs() []int64 {
	ids := make([]int64, 0, len(o.Lines))
	for _, l := range o.Lines {
		if l.ProductID != 0 {
			ids = append(ids, l.ProductID)
		}
	}
	return ids
}

// SalesOrderLine is one line item of a SalesOrder
type SalesOrderLine struct {
	ID        uint    `gorm:"primaryKey" json:"-"`
	OrderID   int64   `gorm:"not null;index" json:"order_id"`
	ProductID int64   `gorm:"not null;index" json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

func (SalesOrderLine) TableName() string { return "sales_order_lines" }
