package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"pubquiz-service/internal/domain"
)

const (
	docPrefix    = "doc:"
	notifyPrefix = "notify:"
)

// Store is a Redis-backed DocumentStore. Values live as JSON strings under
// doc:{path}, appended lists as Redis lists, and change notification rides
// pub/sub channels named notify:{path} so multiple service instances observe
// each other's writes. ServerOffset is derived from the Redis TIME command,
// giving all instances one clock basis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl, now: time.Now}
}

func (s *Store) Read(ctx context.Context, path string, v any) error {
	data, err := s.client.Get(ctx, docPrefix+path).Bytes()
	if err == redis.Nil {
		return domain.ErrPathNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Store) Write(ctx context.Context, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, docPrefix+path, data, s.ttl).Err(); err != nil {
		return err
	}
	s.notify(ctx, path)
	return nil
}

// Merge is a read-modify-write on the JSON object at path. There is no
// cross-instance isolation here; mutations are expected to funnel through a
// single writer (the engine serializes per room).
func (s *Store) Merge(ctx context.Context, path string, fields map[string]any) error {
	merged := make(map[string]json.RawMessage)
	existing, err := s.client.Get(ctx, docPrefix+path).Bytes()
	if err != nil && err != redis.Nil {
		return err
	}
	if err == nil {
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
	if err := s.client.Set(ctx, docPrefix+path, data, s.ttl).Err(); err != nil {
		return err
	}
	s.notify(ctx, path)
	return nil
}

func (s *Store) Append(ctx context.Context, path string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	length, err := s.client.RPush(ctx, docPrefix+path, data).Result()
	if err != nil {
		return "", err
	}
	if s.ttl > 0 {
		_ = s.client.Expire(ctx, docPrefix+path, s.ttl).Err()
	}
	s.notify(ctx, path)
	return "entry-" + strconv.FormatInt(length, 10), nil
}

func (s *Store) Elements(ctx context.Context, path string) ([]json.RawMessage, error) {
	items, err := s.client.LRange(ctx, docPrefix+path, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		out = append(out, json.RawMessage(item))
	}
	return out, nil
}

func (s *Store) Children(ctx context.Context, path string) ([]string, error) {
	keys, err := s.client.Keys(ctx, docPrefix+path+"/*").Result()
	if err != nil {
		return nil, err
	}
	prefix := docPrefix + path + "/"
	seen := make(map[string]struct{})
	for _, key := range keys {
		segment := strings.SplitN(strings.TrimPrefix(key, prefix), "/", 2)[0]
		seen[segment] = struct{}{}
	}
	children := make([]string, 0, len(seen))
	for segment := range seen {
		children = append(children, segment)
	}
	return children, nil
}

func (s *Store) Subscribe(path string) (<-chan struct{}, func()) {
	pubsub := s.client.Subscribe(context.Background(), notifyPrefix+path)
	ch := make(chan struct{}, 1)

	go func() {
		for range pubsub.Channel() {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
		close(ch)
	}()

	cancel := func() {
		_ = pubsub.Close()
	}
	return ch, cancel
}

// ServerOffset reports Redis server time minus local time.
func (s *Store) ServerOffset(ctx context.Context) (time.Duration, error) {
	serverTime, err := s.client.Time(ctx).Result()
	if err != nil {
		return 0, err
	}
	return serverTime.Sub(s.now()), nil
}

// notify signals the path and its parent; subscription loss is tolerable,
// updates only coalesce faster.
func (s *Store) notify(ctx context.Context, path string) {
	_ = s.client.Publish(ctx, notifyPrefix+path, "1").Err()
	if i := strings.LastIndex(path, "/"); i > 0 {
		_ = s.client.Publish(ctx, notifyPrefix+path[:i], "1").Err()
	}
}
