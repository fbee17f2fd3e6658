package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/xelth-com/shoprecs/internal/config"
	"github.com/xelth-com/shoprecs/internal/database"
	"github.com/xelth-com/shoprecs/internal/demo"
	"github.com/xelth-com/shoprecs/internal/logger"
	"github.com/xelth-com/shoprecs/internal/models"
	"github.com/xelth-com/shoprecs/internal/store"
)

func main() {
	orders := flag.Int("orders", 400, "number of demo orders to generate")
	seed := flag.Int64("seed", 1, "random seed for the order history")
	force := flag.Bool("force", false, "clear existing catalog and orders without asking")
	flag.Parse()

	fmt.Println("🌱 shoprecs demo data seeder")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	zl, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("❌ Failed to init logger: %v", err)
	}
	defer zl.Sync()

	db, err := database.Connect(cfg.Database, zl)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db.DB); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	ctx := context.Background()
	catalog := store.NewCatalog(db.DB)
	history := store.NewOrders(db.DB)

	count, err := catalog.CountProducts(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to count products: %v", err)
	}
	if count > 0 {
		if !*force {
			fmt.Printf("⚠️  Database already has %d products. Clear it first? (y/N): ", count)
			var answer string
			fmt.Scanln(&answer)
			if answer != "y" && answer != "Y" {
				fmt.Println("❌ Aborted. Database not modified.")
				return
			}
		}
		fmt.Println("🗑️  Clearing existing data...")
		for _, table := range []string{
			(models.SalesOrderLine{}).TableName(),
			(models.SalesOrder{}).TableName(),
			(models.ProductTerm{}).TableName(),
			(models.Product{}).TableName(),
		} {
			if err := db.Exec("TRUNCATE TABLE " + table + " CASCADE").Error; err != nil {
				log.Fatalf("❌ Failed to clear %s: %v", table, err)
			}
		}
	}

	res, err := demo.Seed(ctx, catalog, history, *orders, *seed, time.Now().UTC())
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	fmt.Printf("✅ Created %d products and %d orders\n", res.Products, res.Orders)
	fmt.Println("   Next: recs rebuild && recs recommend 1")
}
