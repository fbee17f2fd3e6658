// Package demo generates a small storefront catalog and order history for
// trying the recommendation builder locally.
package demo

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/xelth-com/shoprecs/internal/models"
)

// Category and tag term IDs used by the demo catalog
const (
	CategoryAnalyzers   int64 = 1
	CategoryConsumables int64 = 2
	CategoryAccessories int64 = 3

	TagProfessional int64 = 10
	TagHome         int64 = 11
	TagClinic       int64 = 12
)

type item struct {
	id       int64
	sku      string
	name     string
	price    float64
	rating   float64
	category int64
	tags     []int64
	stock    string
	status   string
}

var catalog = []item{
	{1, "IB270", "InBody 270 Body Composition Analyzer", 4990, 4.6, CategoryAnalyzers, []int64{TagProfessional}, models.StockStatusInStock, models.ProductStatusPublish},
	{2, "IB570", "InBody 570 Professional Scanner", 8990, 4.8, CategoryAnalyzers, []int64{TagProfessional, TagClinic}, models.StockStatusInStock, models.ProductStatusPublish},
	{3, "IB770", "InBody 770 Clinical Model", 14990, 4.9, CategoryAnalyzers, []int64{TagClinic}, models.StockStatusOnBackorder, models.ProductStatusPublish},
	{4, "IBS10", "InBody S10 Body Water Analyzer", 11990, 4.2, CategoryAnalyzers, []int64{TagClinic}, models.StockStatusOutOfStock, models.ProductStatusPublish},
	{5, "IB-ELEC-SET", "InBody Electrode Replacement Set", 89, 4.4, CategoryConsumables, []int64{TagProfessional, TagClinic}, models.StockStatusInStock, models.ProductStatusPublish},
	{6, "IB-PAPER-10", "InBody Thermal Paper Roll (10 pack)", 39, 4.1, CategoryConsumables, []int64{TagProfessional}, models.StockStatusInStock, models.ProductStatusPublish},
	{7, "IB-WIPES", "Electrode Cleaning Wipes", 19, 3.9, CategoryConsumables, []int64{TagHome, TagProfessional}, models.StockStatusInStock, models.ProductStatusPublish},
	{8, "IB-CASE", "Carrying Case", 149, 4.0, CategoryAccessories, []int64{TagProfessional}, models.StockStatusInStock, models.ProductStatusPublish},
	{9, "IB-STAND", "Display Stand", 299, 3.7, CategoryAccessories, []int64{TagClinic}, models.StockStatusInStock, models.ProductStatusPublish},
	{10, "IB-DIAL", "InBody Dial Home Scale", 349, 4.3, CategoryAnalyzers, []int64{TagHome}, models.StockStatusInStock, models.ProductStatusPublish},
	{11, "IB-BAND", "InBody Band Fitness Tracker", 129, 3.5, CategoryAccessories, []int64{TagHome}, models.StockStatusInStock, models.ProductStatusDraft},
}

// companions lists what tends to be bought together with an analyzer
var companions = map[int64][]int64{
	1:  {5, 6, 8},
	2:  {5, 6, 9},
	3:  {5, 6, 9},
	4:  {5, 7},
	10: {7, 11},
}

// Products returns the demo catalog
func Products(now time.Time) []models.Product {
	out := make([]models.Product, 0, len(catalog))
	for i, it := range catalog {
		p := models.Product{
			ID:            it.id,
			SKU:           models.OdooString(it.sku),
			Name:          it.name,
			Status:        it.status,
			Price:         it.price,
			AverageRating: it.rating,
			StockStatus:   it.stock,
			Purchasable:   true,
			CreatedAt:     now.AddDate(0, -len(catalog)+i, 0),
			LastSyncedAt:  now,
		}
		p.Terms = append(p.Terms, models.ProductTerm{Taxonomy: models.TaxonomyCategory, TermID: it.category})
		for _, tag := range it.tags {
			p.Terms = append(p.Terms, models.ProductTerm{Taxonomy: models.TaxonomyTag, TermID: tag})
		}
		out = append(out, p)
	}
	return out
}

// Orders generates n orders spread over the last 180 days. The same seed
// always yields the same history.
func Orders(now time.Time, n int, seed int64) []models.SalesOrder {
	rng := rand.New(rand.NewSource(seed))
	anchors := []int64{1, 2, 3, 4, 10}
	statuses := []models.OrderStatus{
		models.OrderStatusCompleted, models.OrderStatusCompleted, models.OrderStatusCompleted,
		models.OrderStatusProcessing, models.OrderStatusCancelled,
	}

	out := make([]models.SalesOrder, 0, n)
	for i := 0; i < n; i++ {
		id := int64(1000 + i)
		anchor := anchors[rng.Intn(len(anchors))]
		o := models.SalesOrder{
			ID:          id,
			Number:      fmt.Sprintf("DEMO-%05d", id),
			Status:      statuses[rng.Intn(len(statuses))],
			DateCreated: now.Add(-time.Duration(rng.Intn(180*24)) * time.Hour),
			Source:      models.OrderSourceStore,
		}
		o.Lines = append(o.Lines, models.SalesOrderLine{ProductID: anchor, Quantity: 1})
		for _, c := range companions[anchor] {
			if rng.Float64() < 0.6 {
				o.Lines = append(o.Lines, models.SalesOrderLine{ProductID: c, Quantity: float64(1 + rng.Intn(3))})
			}
		}
		out = append(out, o)
	}
	return out
}

// TotalSales counts units per product across completed and processing orders
func TotalSales(orders []models.SalesOrder) map[int64]int64 {
	out := make(map[int64]int64)
	for _, o := range orders {
		if o.Status != models.OrderStatusCompleted && o.Status != models.OrderStatusProcessing {
			continue
		}
		for _, l := range o.Lines {
			out[l.ProductID] += int64(l.Quantity)
		}
	}
	return out
}

// ProductWriter stores products
type ProductWriter interface {
	UpsertProduct(ctx context.Context, p *models.Product) error
}

// OrderWriter stores orders
type OrderWriter interface {
	SaveOrder(ctx context.Context, o *models.SalesOrder) error
}

// Result reports what Seed wrote
type Result struct {
	Products int
	Orders   int
}

// Seed writes the demo catalog and n generated orders
func Seed(ctx context.Context, products ProductWriter, orders OrderWriter, n int, seed int64, now time.Time) (Result, error) {
	var res Result
	history := Orders(now, n, seed)
	sales := TotalSales(history)

	for _, p := range Products(now) {
		p := p
		p.TotalSales = sales[p.ID]
		if err := products.UpsertProduct(ctx, &p); err != nil {
			return res, fmt.Errorf("seed product %d: %w", p.ID, err)
		}
		res.Products++
	}

	for i := range history {
		if err := orders.SaveOrder(ctx, &history[i]); err != nil {
			return res, fmt.Errorf("seed order %d: %w", history[i].ID, err)
		}
		res.Orders++
	}
	return res, nil
}
