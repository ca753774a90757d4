package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"pubquiz-service/internal/domain"
)

// Store is an in-memory DocumentStore: single-process, offset always zero.
// It doubles as the reference implementation for tests.
type Store struct {
	mu          sync.RWMutex
	values      map[string]json.RawMessage
	lists       map[string][]json.RawMessage
	subscribers map[string]map[chan struct{}]struct{}
}

func NewStore() *Store {
	return &Store{
		values:      make(map[string]json.RawMessage),
		lists:       make(map[string][]json.RawMessage),
		subscribers: make(map[string]map[chan struct{}]struct{}),
	}
}

func (s *Store) Read(_ context.Context, path string, v any) error {
	s.mu.RLock()
	data, ok := s.values[path]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrPathNotFound
	}
	return json.Unmarshal(data, v)
}

func (s *Store) Write(_ context.Context, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values[path] = data
	s.notifyLocked(path)
	s.mu.Unlock()
	return nil
}

func (s *Store) Merge(_ context.Context, path string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[string]json.RawMessage)
	if existing, ok := s.values[path]; ok {
		if err := json.Unmarshal(existing, &merged); err != nil {
			return err
		}
	}
	for name, value := range fields {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		merged[name] = data
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	s.values[path] = data
	s.notifyLocked(path)
	return nil
}

func (s *Store) Append(_ context.Context, path string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.lists[path] = append(s.lists[path], data)
	key := pushKey(len(s.lists[path]))
	s.notifyLocked(path)
	s.mu.Unlock()
	return key, nil
}

func (s *Store) Elements(_ context.Context, path string) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]json.RawMessage, len(s.lists[path]))
	copy(out, s.lists[path])
	return out, nil
}

func (s *Store) Children(_ context.Context, path string) ([]string, error) {
	prefix := path + "/"
	seen := make(map[string]struct{})

	s.mu.RLock()
	for key := range s.lists {
		if strings.HasPrefix(key, prefix) {
			segment := strings.SplitN(key[len(prefix):], "/", 2)[0]
			seen[segment] = struct{}{}
		}
	}
	s.mu.RUnlock()

	children := make([]string, 0, len(seen))
	for segment := range seen {
		children = append(children, segment)
	}
	return children, nil
}

func (s *Store) Subscribe(path string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	if s.subscribers[path] == nil {
		s.subscribers[path] = make(map[chan struct{}]struct{})
	}
	s.subscribers[path][ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if subs, ok := s.subscribers[path]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(s.subscribers, path)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Store) ServerOffset(context.Context) (time.Duration, error) {
	return 0, nil
}

// notifyLocked signals subscribers of path and of its parent. Signals are
// coalesced: a pending signal already covers the newest state.
func (s *Store) notifyLocked(path string) {
	s.signalLocked(path)
	if i := strings.LastIndex(path, "/"); i > 0 {
		s.signalLocked(path[:i])
	}
}

func (s *Store) signalLocked(path string) {
	for ch := range s.subscribers[path] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func pushKey(n int) string {
	return fmt.Sprintf("entry-%06d", n)
}
