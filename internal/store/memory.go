package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory implements Store entirely in process. It backs the test suite
// and the self-contained run mode. Expiry is an explicit liveness check
// at read time (now < created_at + ttl), so the observable semantics
// match the Redis backend even though nothing evicts in the background.
type Memory struct {
	mu       sync.Mutex
	now      func() time.Time
	items    map[string]memItem
	sets     map[string]map[string]struct{}
	lists    map[string][][]byte
	counters map[string]int64
	subs     map[*memorySubscription][]string
}

type memItem struct {
	value     []byte
	expiresAt time.Time // zero means the record never expires
}

func (it memItem) live(now time.Time) bool {
	return it.expiresAt.IsZero() || now.Before(it.expiresAt)
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		now:      time.Now,
		items:    make(map[string]memItem),
		sets:     make(map[string]map[string]struct{}),
		lists:    make(map[string][][]byte),
		counters: make(map[string]int64),
		subs:     make(map[*memorySubscription][]string),
	}
}

func (s *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := memItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		it.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = it
	return nil
}

func (s *Memory) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	if !ok || !it.live(s.now()) {
		delete(s.items, key)
		return nil, ErrNotFound
	}
	return append([]byte(nil), it.value...), nil
}

func (s *Memory) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	delete(s.items, key)
	return ok && it.live(s.now()), nil
}

func (s *Memory) Scan(_ context.Context, prefix string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	keys := make([]string, 0)
	for key, it := range s.items {
		if strings.HasPrefix(key, prefix) && it.live(now) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, 0, len(keys))
	for _, key := range keys {
		values = append(values, append([]byte(nil), s.items[key].value...))
	}
	return values, nil
}

func (s *Memory) Publish(_ context.Context, topic string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := Message{Topic: topic, Payload: append([]byte(nil), payload...)}
	for sub, topics := range s.subs {
		for _, t := range topics {
			if t != topic {
				continue
			}
			// Best-effort: a listener that cannot keep up loses the
			// message rather than blocking the publisher.
			select {
			case sub.ch <- msg:
			default:
			}
			break
		}
	}
	return nil
}

func (s *Memory) Subscribe(_ context.Context, topics ...string) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &memorySubscription{store: s, ch: make(chan Message, 64)}
	s.subs[sub] = append([]string(nil), topics...)
	return sub, nil
}

type memorySubscription struct {
	store *Memory
	ch    chan Message
	once  sync.Once
}

func (s *memorySubscription) C() <-chan Message { return s.ch }

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.store.mu.Lock()
		delete(s.store.subs, s)
		s.store.mu.Unlock()
		close(s.ch)
	})
	return nil
}

func (s *Memory) SetAdd(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	if _, exists := set[member]; exists {
		return false, nil
	}
	set[member] = struct{}{}
	return true, nil
}

func (s *Memory) SetRemove(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		return false, nil
	}
	if _, exists := set[member]; !exists {
		return false, nil
	}
	delete(set, member)
	return true, nil
}

func (s *Memory) SetHas(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sets[key][member]
	return ok, nil
}

func (s *Memory) SetMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		members = append(members, m)
	}
	return members, nil
}

func (s *Memory) ListPush(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append(s.lists[key], append([]byte(nil), value...))
	return nil
}

func (s *Memory) ListRange(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	n := int64(len(list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return nil, nil
	}
	out := make([][]byte, 0, stop-start+1)
	for _, v := range list[start : stop+1] {
		out = append(out, append([]byte(nil), v...))
	}
	return out, nil
}

func (s *Memory) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

func (s *Memory) Counter(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key], nil
}

func (s *Memory) Close() error { return nil }
