package need

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/georgemunganga/marketsim-backend/internal/modules/catalog"
	"github.com/georgemunganga/marketsim-backend/internal/store"
)

// Need event topics.
const (
	TopicNeeds       = "needs_stream"
	TopicRemoved     = "needs_removed_stream"
	TopicUnsatisfied = "needs_unsatisfied_stream"
)

const (
	keyPrefix      = "need:"
	satisfiedSet   = "needs:satisfied"
	unsatisfiedSet = "needs:unsatisfied"

	counterRequested = "metrics:needs_requested"
	counterSatisfied = "metrics:needs_satisfied"
)

// ErrUnknownUser is returned when a need is submitted for a user the
// registry has never seen.
var ErrUnknownUser = errors.New("need: user is not registered")

// UserRegistry is the slice of the user module the need lifecycle
// consults before creating a need.
type UserRegistry interface {
	IsRegistered(ctx context.Context, userID string) (bool, error)
}

// Service manages the need lifecycle.
type Service interface {
	// Submit persists a need with the given TTL and publishes it.
	// When prefs omit an explicit product, one is chosen uniformly at
	// random from the current catalog.
	Submit(ctx context.Context, userID string, prefs Preferences, ttl time.Duration) (*Need, error)
	Get(ctx context.Context, needID string) (*Need, error)
	// Remove deletes the need if still present and reports whether a
	// record was actually removed. Idempotent.
	Remove(ctx context.Context, needID string) (bool, error)
	// ListActive returns all live needs. Full scan; eventual consistency
	// with concurrent expiry.
	ListActive(ctx context.Context) ([]*Need, error)
	// DetectUnsatisfied flags every live need older than threshold that
	// is neither satisfied nor already flagged. Flagging is monotonic.
	DetectUnsatisfied(ctx context.Context, threshold time.Duration) error
}

type service struct {
	store   store.Store
	users   UserRegistry
	catalog catalog.Service
}

// NewService creates a need lifecycle manager.
func NewService(st store.Store, users UserRegistry, cat catalog.Service) Service {
	return &service{store: st, users: users, catalog: cat}
}

func (s *service) Submit(ctx context.Context, userID string, prefs Preferences, ttl time.Duration) (*Need, error) {
	registered, err := s.users.IsRegistered(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("submit need: %w", err)
	}
	if !registered {
		return nil, fmt.Errorf("submit need for %s: %w", userID, ErrUnknownUser)
	}

	n := &Need{
		NeedID:      fmt.Sprintf("need_%s_%s", userID, ulid.Make()),
		UserID:      userID,
		Preferences: prefs,
		CreatedAt:   time.Now().UTC(),
	}

	// Bind a random catalog product unless the caller asked for one.
	// An empty catalog leaves the need unbound (tag-only matching).
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("submit need: %w", err)
	}
	if len(products) > 0 {
		p := products[rand.IntN(len(products))]
		n.ProductID = p.ProductID
		n.ProductName = p.Attributes.Name
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal need: %w", err)
	}
	if err := s.store.Put(ctx, keyPrefix+n.NeedID, payload, ttl); err != nil {
		return nil, err
	}
	if err := s.store.Publish(ctx, TopicNeeds, payload); err != nil {
		return nil, err
	}
	if _, err := s.store.Incr(ctx, counterRequested); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *service) Get(ctx context.Context, needID string) (*Need, error) {
	raw, err := s.store.Get(ctx, keyPrefix+needID)
	if err != nil {
		return nil, err
	}
	var n Need
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("unmarshal need %s: %w", needID, err)
	}
	return &n, nil
}

func (s *service) Remove(ctx context.Context, needID string) (bool, error) {
	removed, err := s.store.Delete(ctx, keyPrefix+needID)
	if err != nil {
		return false, fmt.Errorf("remove need %s: %w", needID, err)
	}
	if !removed {
		return false, nil
	}
	payload, err := json.Marshal(map[string]string{"need_id": needID})
	if err != nil {
		return true, fmt.Errorf("marshal removal event: %w", err)
	}
	if err := s.store.Publish(ctx, TopicRemoved, payload); err != nil {
		return true, err
	}
	// Satisfied marker keeps a later unsatisfied scan from flagging a
	// need that was already matched.
	if _, err := s.store.SetAdd(ctx, satisfiedSet, needID); err != nil {
		return true, err
	}
	if _, err := s.store.Incr(ctx, counterSatisfied); err != nil {
		return true, err
	}
	return true, nil
}

func (s *service) ListActive(ctx context.Context) ([]*Need, error) {
	values, err := s.store.Scan(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	needs := make([]*Need, 0, len(values))
	for _, raw := range values {
		var n Need
		if err := json.Unmarshal(raw, &n); err != nil {
			continue
		}
		needs = append(needs, &n)
	}
	return needs, nil
}

func (s *service) DetectUnsatisfied(ctx context.Context, threshold time.Duration) error {
	needs, err := s.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("detect unsatisfied: %w", err)
	}
	now := time.Now().UTC()
	for _, n := range needs {
		satisfied, err := s.store.SetHas(ctx, satisfiedSet, n.NeedID)
		if err != nil {
			return err
		}
		flagged, err := s.store.SetHas(ctx, unsatisfiedSet, n.NeedID)
		if err != nil {
			return err
		}
		if satisfied || flagged {
			continue
		}
		age := now.Sub(n.CreatedAt)
		if age <= threshold {
			continue
		}
		if _, err := s.store.SetAdd(ctx, unsatisfiedSet, n.NeedID); err != nil {
			return err
		}
		event := UnsatisfiedEvent{
			NeedID: n.NeedID,
			AgeS:   math.Round(age.Seconds()*10) / 10,
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal unsatisfied event: %w", err)
		}
		if err := s.store.Publish(ctx, TopicUnsatisfied, payload); err != nil {
			return err
		}
	}
	return nil
}
