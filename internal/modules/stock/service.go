// Package stock maintains the per-merchant index of products a merchant
// is permitted to offer, populated by the category-specialization
// stocking policy.
package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/georgemunganga/marketsim-backend/internal/modules/catalog"
	"github.com/georgemunganga/marketsim-backend/internal/modules/provider"
	"github.com/georgemunganga/marketsim-backend/internal/store"
)

// Service is the merchant stock index. Entries are additive and have no
// TTL; stocking an already-stocked product is a no-op.
type Service interface {
	// Stock applies the stocking policy for one (merchant, product)
	// pair and reports whether the product was newly stocked.
	Stock(ctx context.Context, merchantID string, product *catalog.Product) (bool, error)
	Has(ctx context.Context, merchantID, productID string) (bool, error)
	List(ctx context.Context, merchantID string) ([]string, error)
	// CatchUp runs the policy once over the full existing catalog.
	CatchUp(ctx context.Context) error
	// Run consumes new-product events until ctx is canceled.
	Run(ctx context.Context) error
}

type service struct {
	store     store.Store
	catalog   catalog.Service
	providers provider.Service
	maxStock  int // 0 disables the ceiling
	log       *slog.Logger
}

// NewService creates the stock index. maxStock of 0 means merchants may
// stock without limit.
func NewService(st store.Store, cat catalog.Service, providers provider.Service, maxStock int) Service {
	return &service{
		store:     st,
		catalog:   cat,
		providers: providers,
		maxStock:  maxStock,
		log:       slog.Default().With("component", "stock"),
	}
}

func stockKey(merchantID string) string { return "stock:" + merchantID }

func (s *service) Stock(ctx context.Context, merchantID string, product *catalog.Product) (bool, error) {
	if product == nil || product.ProductID == "" {
		return false, nil
	}
	// Specialized merchants only stock matching categories.
	if allowed := s.providers.Specialization(merchantID); len(allowed) > 0 {
		if !slices.Contains(allowed, product.Attributes.Category) {
			return false, nil
		}
	}
	if s.maxStock > 0 {
		current, err := s.store.SetMembers(ctx, stockKey(merchantID))
		if err != nil {
			return false, fmt.Errorf("stock %s: %w", merchantID, err)
		}
		if len(current) >= s.maxStock && !slices.Contains(current, product.ProductID) {
			s.log.Info("stock ceiling reached, skipping product",
				"merchant", merchantID, "product", product.ProductID, "ceiling", s.maxStock)
			return false, nil
		}
	}
	added, err := s.store.SetAdd(ctx, stockKey(merchantID), product.ProductID)
	if err != nil {
		return false, fmt.Errorf("stock %s: %w", merchantID, err)
	}
	return added, nil
}

func (s *service) Has(ctx context.Context, merchantID, productID string) (bool, error) {
	return s.store.SetHas(ctx, stockKey(merchantID), productID)
}

func (s *service) List(ctx context.Context, merchantID string) ([]string, error) {
	return s.store.SetMembers(ctx, stockKey(merchantID))
}

func (s *service) CatchUp(ctx context.Context) error {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("stock catch-up: %w", err)
	}
	merchants, err := s.providers.List(ctx)
	if err != nil {
		return fmt.Errorf("stock catch-up: %w", err)
	}
	for _, p := range products {
		for _, m := range merchants {
			if _, err := s.Stock(ctx, m, p); err != nil {
				return err
			}
		}
	}
	s.log.Info("stock catch-up complete", "products", len(products), "merchants", len(merchants))
	return nil
}

func (s *service) Run(ctx context.Context) error {
	sub, err := s.store.Subscribe(ctx, catalog.TopicProducts)
	if err != nil {
		return err
	}
	defer sub.Close()

	s.log.Info("listening for new products")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			var p catalog.Product
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				continue
			}
			merchants, err := s.providers.List(ctx)
			if err != nil {
				s.log.Error("list providers failed, retrying next event", "err", err)
				continue
			}
			for _, m := range merchants {
				if _, err := s.Stock(ctx, m, &p); err != nil {
					s.log.Error("stocking failed", "merchant", m, "product", p.ProductID, "err", err)
				}
			}
		}
	}
}
