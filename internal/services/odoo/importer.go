package odoo

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"

	"github.com/xelth-com/shoprecs/internal/logger"
	"github.com/xelth-com/shoprecs/internal/models"
)

// Source is the read side of the Odoo API used by the importer
type Source interface {
	SearchRead(model string, domain []interface{}, fields []string, limit, offset int, result interface{}) error
}

// ProductWriter stores imported products
type ProductWriter interface {
	UpsertProduct(ctx context.Context, p *models.Product) error
}

// OrderWriter stores imported orders
type OrderWriter interface {
	SaveOrder(ctx context.Context, o *models.SalesOrder) error
}

var productFields = []string{
	"id", "default_code", "name", "type", "list_price", "qty_available",
	"sale_ok", "active", "categ_id", "product_tag_ids", "sales_count", "create_date",
}

var orderFields = []string{"id", "name", "state", "date_order"}

var orderLineFields = []string{"id", "order_id", "product_id", "product_uom_qty"}

type odooProduct struct {
	ID           int64               `json:"id"`
	DefaultCode  models.OdooString   `json:"default_code"`
	Name         models.OdooString   `json:"name"`
	Type         models.OdooString   `json:"type"`
	ListPrice    float64             `json:"list_price"`
	QtyAvailable float64             `json:"qty_available"`
	SaleOK       bool                `json:"sale_ok"`
	Active       bool                `json:"active"`
	Category     models.OdooMany2One `json:"categ_id"`
	TagIDs       []int64             `json:"product_tag_ids"`
	SalesCount   float64             `json:"sales_count"`
	CreateDate   models.OdooTime     `json:"create_date"`
}

type odooOrder struct {
	ID        int64             `json:"id"`
	Name      models.OdooString `json:"name"`
	State     models.OdooString `json:"state"`
	DateOrder models.OdooTime   `json:"date_order"`
}

type odooOrderLine struct {
	ID       int64               `json:"id"`
	Order    models.OdooMany2One `json:"order_id"`
	Product  models.OdooMany2One `json:"product_id"`
	Quantity float64             `json:"product_uom_qty"`
}

// Result summarizes an import run
type Result struct {
	Products int
	Orders   int
	Failed   int
}

// Importer copies the Odoo catalog and confirmed sales into local tables so
// the recommendation builder can mine them.
type Importer struct {
	source    Source
	products  ProductWriter
	orders    OrderWriter
	batchSize int
	log       *logger.Logger
}

func NewImporter(source Source, products ProductWriter, orders OrderWriter, batchSize int, log *logger.Logger) *Importer {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Importer{
		source:    source,
		products:  products,
		orders:    orders,
		batchSize: batchSize,
		log:       logger.OrNop(log).With("component", "odoo-import"),
	}
}

// Run imports products, then orders created since the cutoff
func (im *Importer) Run(ctx context.Context, since time.Time) (Result, error) {
	var res Result

	n, failed, err := im.ImportProducts(ctx)
	res.Products, res.Failed = n, failed
	if err != nil {
		return res, err
	}

	n, failed, err = im.ImportOrders(ctx, since)
	res.Orders, res.Failed = n, res.Failed+failed
	if err != nil {
		return res, err
	}

	im.log.Info("odoo import finished", "products", res.Products, "orders", res.Orders, "failed", res.Failed)
	return res, nil
}

// ImportProducts pages through product.product, archived records included
// so they can be unpublished locally.
func (im *Importer) ImportProducts(ctx context.Context) (saved, failed int, err error) {
	domain := []interface{}{
		[]interface{}{"active", "in", []interface{}{true, false}},
	}

	for offset := 0; ; offset += im.batchSize {
		if err := ctx.Err(); err != nil {
			return saved, failed, err
		}

		var rows []odooProduct
		if err := im.source.SearchRead("product.product", domain, productFields, im.batchSize, offset, &rows); err != nil {
			return saved, failed, fmt.Errorf("fetch products: %w", err)
		}

		for _, row := range rows {
			p := mapProduct(row)
			if err := im.products.UpsertProduct(ctx, p); err != nil {
				im.log.Warn("failed to save product", "id", row.ID, "error", err)
				failed++
				continue
			}
			saved++
		}

		if len(rows) < im.batchSize {
			break
		}
	}

	im.log.Info("products imported", "saved", saved, "failed", failed)
	return saved, failed, nil
}

// ImportOrders pages through sale.order records dated on or after since and
// stores them with their lines.
func (im *Importer) ImportOrders(ctx context.Context, since time.Time) (saved, failed int, err error) {
	domain := []interface{}{
		[]interface{}{"state", "in", []interface{}{"sale", "done"}},
		[]interface{}{"date_order", ">=", since.UTC().Format(models.OdooTimeLayout)},
	}

	for offset := 0; ; offset += im.batchSize {
		if err := ctx.Err(); err != nil {
			return saved, failed, err
		}

		var rows []odooOrder
		if err := im.source.SearchRead("sale.order", domain, orderFields, im.batchSize, offset, &rows); err != nil {
			return saved, failed, fmt.Errorf("fetch orders: %w", err)
		}
		if len(rows) == 0 {
			break
		}

		lines, err := im.fetchLines(rows)
		if err != nil {
			return saved, failed, err
		}

		for _, row := range rows {
			o := mapOrder(row, lines[row.ID])
			if err := im.orders.SaveOrder(ctx, o); err != nil {
				im.log.Warn("failed to save order", "id", row.ID, "error", err)
				failed++
				continue
			}
			saved++
		}

		if len(rows) < im.batchSize {
			break
		}
	}

	im.log.Info("orders imported", "saved", saved, "failed", failed)
	return saved, failed, nil
}

func (im *Importer) fetchLines(orders []odooOrder) (map[int64][]models.SalesOrderLine, error) {
	ids := make([]interface{}, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	domain := []interface{}{
		[]interface{}{"order_id", "in", ids},
		[]interface{}{"product_id", "!=", false},
	}

	out := make(map[int64][]models.SalesOrderLine, len(orders))
	for offset := 0; ; offset += im.batchSize {
		var rows []odooOrderLine
		if err := im.source.SearchRead("sale.order.line", domain, orderLineFields, im.batchSize, offset, &rows); err != nil {
			return nil, fmt.Errorf("fetch order lines: %w", err)
		}
		for _, l := range rows {
			if l.Product.ID == 0 {
				continue
			}
			out[l.Order.ID] = append(out[l.Order.ID], models.SalesOrderLine{
				OrderID:   l.Order.ID,
				ProductID: l.Product.ID,
				Quantity:  l.Quantity,
			})
		}
		if len(rows) < im.batchSize {
			break
		}
	}
	return out, nil
}

func mapProduct(row odooProduct) *models.Product {
	p := &models.Product{
		ID:           row.ID,
		SKU:          row.DefaultCode,
		Name:         row.Name.String(),
		Status:       models.ProductStatusDraft,
		Price:        row.ListPrice,
		TotalSales:   int64(row.SalesCount),
		StockStatus:  models.StockStatusOutOfStock,
		Purchasable:  row.SaleOK,
		CreatedAt:    row.CreateDate.Time,
		LastSyncedAt: time.Now().UTC(),
	}
	if row.Active {
		p.Status = models.ProductStatusPublish
	}
	// only storable products track quantities
	if row.Type != "product" || row.QtyAvailable > 0 {
		p.StockStatus = models.StockStatusInStock
	}
	if row.Category.ID != 0 {
		p.Terms = append(p.Terms, models.ProductTerm{Taxonomy: models.TaxonomyCategory, TermID: row.Category.ID})
	}
	for _, tag := range row.TagIDs {
		p.Terms = append(p.Terms, models.ProductTerm{Taxonomy: models.TaxonomyTag, TermID: tag})
	}
	if raw, err := json.Marshal(row); err == nil {
		p.RawData = datatypes.JSON(raw)
	}
	return p
}

func mapOrder(row odooOrder, lines []models.SalesOrderLine) *models.SalesOrder {
	return &models.SalesOrder{
		ID:           row.ID,
		Number:       row.Name.String(),
		Status:       mapOrderState(row.State.String()),
		DateCreated:  row.DateOrder.Time,
		Source:       models.OrderSourceOdoo,
		LastSyncedAt: time.Now().UTC(),
		Lines:        lines,
	}
}

// mapOrderState translates sale.order states into storefront order statuses
func mapOrderState(state string) models.OrderStatus {
	switch state {
	case "done":
		return models.OrderStatusCompleted
	case "sale":
		return models.OrderStatusProcessing
	case "cancel":
		return models.OrderStatusCancelled
	default:
		return models.OrderStatusPending
	}
}
