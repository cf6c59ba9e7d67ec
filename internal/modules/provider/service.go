package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgemunganga/marketsim-backend/internal/store"
)

// TopicProviders broadcasts provider registration changes.
const TopicProviders = "providers_stream"

const providersSet = "providers:set"

// Service is the merchant registry. Specializations are static
// configuration: a merchant with an allow-list may only stock matching
// categories, one without stocks anything.
type Service interface {
	Register(ctx context.Context, providerID string, metadata map[string]string) (bool, error)
	Unregister(ctx context.Context, providerID string) (bool, error)
	List(ctx context.Context) ([]string, error)
	// Specialization returns the category allow-list for a merchant,
	// or nil when the merchant is generic.
	Specialization(providerID string) []string
	SetMetadata(ctx context.Context, providerID string, metadata map[string]string) error
	GetMetadata(ctx context.Context, providerID string) (map[string]string, error)
}

type service struct {
	store           store.Store
	specializations map[string][]string
}

// NewService creates a provider registry with the given static
// specialization table.
func NewService(st store.Store, specializations map[string][]string) Service {
	return &service{store: st, specializations: specializations}
}

func (s *service) Register(ctx context.Context, providerID string, metadata map[string]string) (bool, error) {
	added, err := s.store.SetAdd(ctx, providersSet, providerID)
	if err != nil {
		return false, fmt.Errorf("register provider %s: %w", providerID, err)
	}
	if err := s.publish(ctx, providerID, "registered", metadata); err != nil {
		return added, err
	}
	return added, nil
}

func (s *service) Unregister(ctx context.Context, providerID string) (bool, error) {
	removed, err := s.store.SetRemove(ctx, providersSet, providerID)
	if err != nil {
		return false, fmt.Errorf("unregister provider %s: %w", providerID, err)
	}
	if removed {
		if _, err := s.store.Delete(ctx, metadataKey(providerID)); err != nil {
			return false, fmt.Errorf("unregister provider %s: %w", providerID, err)
		}
	}
	if err := s.publish(ctx, providerID, "unregistered", nil); err != nil {
		return removed, err
	}
	return removed, nil
}

func (s *service) List(ctx context.Context) ([]string, error) {
	members, err := s.store.SetMembers(ctx, providersSet)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return members, nil
}

func (s *service) Specialization(providerID string) []string {
	return s.specializations[providerID]
}

func (s *service) SetMetadata(ctx context.Context, providerID string, metadata map[string]string) error {
	payload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := s.store.Put(ctx, metadataKey(providerID), payload, 0); err != nil {
		return err
	}
	return s.publish(ctx, providerID, "metadata_updated", metadata)
}

func (s *service) GetMetadata(ctx context.Context, providerID string) (map[string]string, error) {
	raw, err := s.store.Get(ctx, metadataKey(providerID))
	if err != nil {
		return nil, err
	}
	var metadata map[string]string
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return metadata, nil
}

func (s *service) publish(ctx context.Context, providerID, action string, metadata map[string]string) error {
	event := Event{
		ProviderID: providerID,
		Action:     action,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal provider event: %w", err)
	}
	return s.store.Publish(ctx, TopicProviders, payload)
}

func metadataKey(providerID string) string {
	return fmt.Sprintf("provider:%s:metadata", providerID)
}
