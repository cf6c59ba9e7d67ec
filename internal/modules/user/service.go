package user

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/georgemunganga/marketsim-backend/internal/store"
)

// TopicUsers broadcasts every newly registered user.
const TopicUsers = "users_stream"

const usersSet = "users:all"

// Service is the user registry consulted before any need is created.
type Service interface {
	Create(ctx context.Context, userID string, attrs map[string]string) (*User, error)
	IsRegistered(ctx context.Context, userID string) (bool, error)
	// List returns all registered user ids in sorted order.
	List(ctx context.Context) ([]string, error)
}

type service struct {
	store store.Store
}

// NewService creates a user registry backed by the shared store.
func NewService(st store.Store) Service { return &service{store: st} }

func (s *service) Create(ctx context.Context, userID string, attrs map[string]string) (*User, error) {
	u := &User{
		UserID:    userID,
		Attrs:     attrs,
		CreatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	if _, err := s.store.SetAdd(ctx, usersSet, userID); err != nil {
		return nil, fmt.Errorf("register user %s: %w", userID, err)
	}
	if err := s.store.Publish(ctx, TopicUsers, payload); err != nil {
		return nil, fmt.Errorf("publish user %s: %w", userID, err)
	}
	return u, nil
}

func (s *service) IsRegistered(ctx context.Context, userID string) (bool, error) {
	return s.store.SetHas(ctx, usersSet, userID)
}

func (s *service) List(ctx context.Context) ([]string, error) {
	ids, err := s.store.SetMembers(ctx, usersSet)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}
