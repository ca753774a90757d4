package bank

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// RedisRepository caches question sets as JSON under bank:set:{id} so every
// service instance shares one cache, falling back to the loader on miss.
type RedisRepository struct {
	client *redis.Client
	loader Loader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewRedisRepository(client *redis.Client, loader Loader, ttl time.Duration) *RedisRepository {
	return &RedisRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *RedisRepository) GetSet(ctx context.Context, id string) (QuestionSet, error) {
	key := r.key(id)

	if set, ok := r.fromCache(ctx, key); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if set, ok := r.fromCache(ctx, key); ok {
			return set, nil
		}

		set, err := r.loader.LoadSet(ctx, id)
		if err != nil {
			return QuestionSet{}, err
		}

		data, err := json.Marshal(set)
		if err != nil {
			return QuestionSet{}, err
		}
		_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		return set, nil
	})
	if err != nil {
		return QuestionSet{}, err
	}
	return result.(QuestionSet), nil
}

func (r *RedisRepository) fromCache(ctx context.Context, key string) (QuestionSet, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return QuestionSet{}, false
	}
	var set QuestionSet
	if err := json.Unmarshal(data, &set); err != nil {
		return QuestionSet{}, false
	}
	return set, true
}

func (r *RedisRepository) key(id string) string {
	return "bank:set:" + id
}

func (r *RedisRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
