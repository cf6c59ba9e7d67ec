package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/georgemunganga/marketsim-backend/internal/store"
)

// TopicProducts broadcasts every newly cataloged product; the stocking
// policy consumes it.
const TopicProducts = "products_stream"

const (
	keyPrefix = "product:"

	counterCreated  = "metrics:products_created"
	counterStreamed = "metrics:products_streamed"

	suppliersSet = "suppliers"
)

// Service manages the durable product catalog.
type Service interface {
	RegisterSupplier(ctx context.Context, supplierID string) error
	ListSuppliers(ctx context.Context) ([]string, error)
	// CreateProduct persists a new product indefinitely and publishes it.
	CreateProduct(ctx context.Context, supplierID string, attrs Attributes) (*Product, error)
	GetProduct(ctx context.Context, productID string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
}

type service struct {
	store store.Store
}

// NewService creates a catalog backed by the shared store.
func NewService(st store.Store) Service { return &service{store: st} }

func (s *service) RegisterSupplier(ctx context.Context, supplierID string) error {
	_, err := s.store.SetAdd(ctx, suppliersSet, supplierID)
	return err
}

func (s *service) ListSuppliers(ctx context.Context) ([]string, error) {
	return s.store.SetMembers(ctx, suppliersSet)
}

func (s *service) CreateProduct(ctx context.Context, supplierID string, attrs Attributes) (*Product, error) {
	p := &Product{
		ProductID:  fmt.Sprintf("product_%s_%s", supplierID, ulid.Make()),
		SupplierID: supplierID,
		Attributes: attrs,
		CreatedAt:  time.Now().UTC(),
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal product: %w", err)
	}
	if err := s.store.Put(ctx, keyPrefix+p.ProductID, payload, 0); err != nil {
		return nil, err
	}
	if err := s.store.Publish(ctx, TopicProducts, payload); err != nil {
		return nil, err
	}
	if _, err := s.store.Incr(ctx, counterCreated); err != nil {
		return nil, err
	}
	if _, err := s.store.Incr(ctx, counterStreamed); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, productID string) (*Product, error) {
	raw, err := s.store.Get(ctx, keyPrefix+productID)
	if err != nil {
		return nil, err
	}
	var p Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product %s: %w", productID, err)
	}
	return &p, nil
}

func (s *service) ListProducts(ctx context.Context) ([]*Product, error) {
	values, err := s.store.Scan(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	products := make([]*Product, 0, len(values))
	for _, raw := range values {
		var p Product
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		products = append(products, &p)
	}
	return products, nil
}
