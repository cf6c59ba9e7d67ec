package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/georgemunganga/marketsim-backend/internal/modules/catalog"
)

// Suppliers seeds one supplier per category with its initial products,
// then keeps cataloging random products at a fixed interval.
type Suppliers struct {
	catalog  catalog.Service
	interval time.Duration
	jitter   time.Duration
	log      *slog.Logger
}

func NewSuppliers(cat catalog.Service, interval, jitter time.Duration) *Suppliers {
	return &Suppliers{
		catalog:  cat,
		interval: interval,
		jitter:   jitter,
		log:      slog.Default().With("component", "supplier_worker"),
	}
}

func supplierID(category string) string {
	return "supplier_" + strings.ReplaceAll(strings.ToLower(category), " ", "_")
}

// Seed registers every supplier and catalogs its full product line.
func (w *Suppliers) Seed(ctx context.Context) error {
	for _, category := range supplierCategories {
		sup := supplierID(category)
		if err := w.catalog.RegisterSupplier(ctx, sup); err != nil {
			return fmt.Errorf("seed supplier %s: %w", sup, err)
		}
		for _, name := range productsByCategory[category] {
			attrs := catalog.Attributes{
				Name:     name,
				Category: category,
				Price:    randomPrice(),
				Tags:     sampleTags(2),
			}
			if _, err := w.catalog.CreateProduct(ctx, sup, attrs); err != nil {
				return fmt.Errorf("seed product %q: %w", name, err)
			}
		}
	}
	w.log.Info("seeded catalog", "suppliers", len(supplierCategories),
		"products", len(supplierCategories)*10)
	return nil
}

func (w *Suppliers) Run(ctx context.Context) error {
	w.log.Info("started", "interval", w.interval)
	for {
		suppliers, err := w.catalog.ListSuppliers(ctx)
		switch {
		case err != nil:
			w.log.Error("list suppliers failed, retrying next cycle", "err", err)
		case len(suppliers) == 0:
			w.log.Debug("no suppliers registered, skipping product generation")
		default:
			category := supplierCategories[rand.IntN(len(supplierCategories))]
			names := productsByCategory[category]
			attrs := catalog.Attributes{
				Name:     names[rand.IntN(len(names))],
				Category: category,
				Price:    randomPrice(),
				Tags:     sampleTags(2),
			}
			p, err := w.catalog.CreateProduct(ctx, supplierID(category), attrs)
			if err != nil {
				w.log.Error("create product failed", "err", err)
			} else {
				w.log.Info("cataloged product", "product", p.ProductID, "name", attrs.Name)
			}
		}
		if !wait(ctx, w.interval, w.jitter) {
			return ctx.Err()
		}
	}
}
