package offer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/georgemunganga/marketsim-backend/internal/modules/catalog"
	"github.com/georgemunganga/marketsim-backend/internal/store"
)

// Offer event topics.
const (
	TopicOffers        = "offers_stream"
	TopicRemoved       = "offers_removed_stream"
	TopicPendingOffers = "pending_offers_stream"
)

const (
	keyPrefix     = "offer:"
	pendingPrefix = "pending_offer:"
)

// ErrOfferNotFound is returned when an operation targets an offer that
// already expired or was removed. This is an expected race, not a
// failure: callers skip and continue.
var ErrOfferNotFound = errors.New("offer: not found")

// StockIndex is the slice of the stock module offer generation draws
// from.
type StockIndex interface {
	List(ctx context.Context, merchantID string) ([]string, error)
}

// ProviderRegistry supplies the merchant pool and specializations.
type ProviderRegistry interface {
	List(ctx context.Context) ([]string, error)
	Specialization(providerID string) []string
}

// Service manages the offer lifecycle and the pure negotiation policy.
type Service interface {
	// Generate creates one offer from the merchant's stocked products.
	// A nil offer with a nil error means no eligible product exists
	// (empty catalog, empty stock, or specialization mismatch).
	// When merchantID is empty one is picked uniformly among merchants
	// with non-empty stock.
	Generate(ctx context.Context, merchantID, strategy string, ttl time.Duration) (*Offer, error)
	// Stage generates an offer and additionally records a non-expiring
	// pending audit copy, published on the pending topic.
	Stage(ctx context.Context, merchantID, strategy string, ttl time.Duration) (*Offer, error)
	Get(ctx context.Context, offerID string) (*Offer, error)
	ListActive(ctx context.Context) ([]*Offer, error)
	// AdjustPrice overwrites the price, refreshes timestamp and TTL and
	// republishes the full offer.
	AdjustPrice(ctx context.Context, offerID string, newPrice float64, ttl time.Duration) (*Offer, error)
	// Remove deletes the offer if present and reports whether anything
	// was removed. Idempotent.
	Remove(ctx context.Context, offerID string) (bool, error)
}

type service struct {
	store     store.Store
	catalog   catalog.Service
	stock     StockIndex
	providers ProviderRegistry
}

// NewService creates an offer lifecycle manager.
func NewService(st store.Store, cat catalog.Service, stock StockIndex, providers ProviderRegistry) Service {
	return &service{store: st, catalog: cat, stock: stock, providers: providers}
}

func (s *service) Generate(ctx context.Context, merchantID, strategy string, ttl time.Duration) (*Offer, error) {
	if merchantID == "" {
		picked, err := s.pickMerchant(ctx)
		if err != nil || picked == "" {
			return nil, err
		}
		merchantID = picked
	}

	products, err := s.eligibleProducts(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}
	p := products[rand.IntN(len(products))]

	o := &Offer{
		OfferID:    fmt.Sprintf("offer_%s_%s", merchantID, ulid.Make()),
		ProvidedBy: merchantID,
		ProductID:  p.ProductID,
		Product: ProductSnapshot{
			Name:     p.Attributes.Name,
			Category: p.Attributes.Category,
			Price:    p.Attributes.Price,
			Tags:     p.Attributes.Tags,
			Brand:    p.Attributes.Brand,
		},
		Strategy:  strategy,
		CreatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshal offer: %w", err)
	}
	if err := s.store.Put(ctx, keyPrefix+o.OfferID, payload, ttl); err != nil {
		return nil, err
	}
	if err := s.store.Publish(ctx, TopicOffers, payload); err != nil {
		return nil, err
	}
	return o, nil
}

// pickMerchant chooses uniformly among merchants that currently have
// non-empty stock; empty string means no merchant qualifies.
func (s *service) pickMerchant(ctx context.Context) (string, error) {
	merchants, err := s.providers.List(ctx)
	if err != nil {
		return "", fmt.Errorf("pick merchant: %w", err)
	}
	eligible := make([]string, 0, len(merchants))
	for _, m := range merchants {
		stocked, err := s.stock.List(ctx, m)
		if err != nil {
			return "", fmt.Errorf("pick merchant: %w", err)
		}
		if len(stocked) > 0 {
			eligible = append(eligible, m)
		}
	}
	if len(eligible) == 0 {
		return "", nil
	}
	return eligible[rand.IntN(len(eligible))], nil
}

// eligibleProducts resolves the merchant's stocked product ids against
// the catalog, re-applying the specialization filter in case of stale
// stock. Products that vanished from the catalog are skipped.
func (s *service) eligibleProducts(ctx context.Context, merchantID string) ([]*catalog.Product, error) {
	stocked, err := s.stock.List(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("generate offer for %s: %w", merchantID, err)
	}
	allowed := s.providers.Specialization(merchantID)
	products := make([]*catalog.Product, 0, len(stocked))
	for _, productID := range stocked {
		p, err := s.catalog.GetProduct(ctx, productID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(allowed) > 0 && !slices.Contains(allowed, p.Attributes.Category) {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func (s *service) Stage(ctx context.Context, merchantID, strategy string, ttl time.Duration) (*Offer, error) {
	o, err := s.Generate(ctx, merchantID, strategy, ttl)
	if err != nil || o == nil {
		return nil, err
	}
	payload, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshal pending offer: %w", err)
	}
	// Audit copy never expires so staged offers can be reviewed later.
	if err := s.store.Put(ctx, pendingPrefix+o.OfferID, payload, 0); err != nil {
		return nil, err
	}
	if err := s.store.Publish(ctx, TopicPendingOffers, payload); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) Get(ctx context.Context, offerID string) (*Offer, error) {
	raw, err := s.store.Get(ctx, keyPrefix+offerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, err
	}
	var o Offer
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("unmarshal offer %s: %w", offerID, err)
	}
	return &o, nil
}

func (s *service) ListActive(ctx context.Context) ([]*Offer, error) {
	values, err := s.store.Scan(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	offers := make([]*Offer, 0, len(values))
	for _, raw := range values {
		var o Offer
		if err := json.Unmarshal(raw, &o); err != nil {
			continue
		}
		offers = append(offers, &o)
	}
	return offers, nil
}

func (s *service) AdjustPrice(ctx context.Context, offerID string, newPrice float64, ttl time.Duration) (*Offer, error) {
	o, err := s.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	o.Product.Price = newPrice
	o.CreatedAt = time.Now().UTC()
	payload, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshal offer: %w", err)
	}
	// Full-offer republish with a fresh TTL, never a delta.
	if err := s.store.Put(ctx, keyPrefix+o.OfferID, payload, ttl); err != nil {
		return nil, err
	}
	if err := s.store.Publish(ctx, TopicOffers, payload); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) Remove(ctx context.Context, offerID string) (bool, error) {
	removed, err := s.store.Delete(ctx, keyPrefix+offerID)
	if err != nil {
		return false, fmt.Errorf("remove offer %s: %w", offerID, err)
	}
	if !removed {
		return false, nil
	}
	payload, err := json.Marshal(map[string]string{"offer_id": offerID})
	if err != nil {
		return true, fmt.Errorf("marshal removal event: %w", err)
	}
	if err := s.store.Publish(ctx, TopicRemoved, payload); err != nil {
		return true, err
	}
	return true, nil
}
