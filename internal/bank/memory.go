package bank

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CachedRepository caches question sets with a TTL to avoid repeated loader
// hits; concurrent misses for the same set collapse into one load.
type CachedRepository struct {
	loader Loader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	set       QuestionSet
	expiresAt time.Time
}

func NewCachedRepository(loader Loader, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *CachedRepository) GetSet(ctx context.Context, id string) (QuestionSet, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.set, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.set, nil
		}
		r.mu.RUnlock()

		set, err := r.loader.LoadSet(ctx, id)
		if err != nil {
			return QuestionSet{}, err
		}

		r.mu.Lock()
		r.cache[id] = cachedSet{set: set, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return QuestionSet{}, err
	}
	return result.(QuestionSet), nil
}

func (r *CachedRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
