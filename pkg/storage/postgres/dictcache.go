package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/observability"
)

// CachedDictStore layers two caches over a DictStore: an in-process LRU
// and Redis. Dictionary types are read on nearly every form render and
// mutate rarely, so both layers cache the per-type listing and every
// mutation invalidates its type.
type CachedDictStore struct {
	inner   api.DictStore
	l1      *lru.Cache[string, []*api.Dict]
	redis   *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewCachedDictStore wraps inner. redisClient may be nil to run with the
// L1 cache only; metrics may be nil.
func NewCachedDictStore(inner api.DictStore, redisClient *redis.Client, l1Size int, ttl time.Duration, metrics *observability.Metrics) (*CachedDictStore, error) {
	if l1Size <= 0 {
		l1Size = 64
	}
	l1, err := lru.New[string, []*api.Dict](l1Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create dict cache: %w", err)
	}
	return &CachedDictStore{
		inner:   inner,
		l1:      l1,
		redis:   redisClient,
		ttl:     ttl,
		metrics: metrics,
	}, nil
}

func dictTypeKey(dictType string) string {
	return "dict:type:" + dictType
}

func (s *CachedDictStore) countCache(level string, hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHitsTotal.WithLabelValues(level).Inc()
	} else {
		s.metrics.CacheMissesTotal.WithLabelValues(level).Inc()
	}
}

// ListByType serves from L1, then Redis, then the database, populating
// the layers it missed on the way back.
func (s *CachedDictStore) ListByType(ctx context.Context, dictType string) ([]*api.Dict, error) {
	key := dictTypeKey(dictType)

	if entries, ok := s.l1.Get(key); ok {
		s.countCache("l1", true)
		return entries, nil
	}
	s.countCache("l1", false)

	if s.redis != nil {
		data, err := s.redis.Get(ctx, key).Bytes()
		if err == nil {
			var entries []*api.Dict
			if err := json.Unmarshal(data, &entries); err == nil {
				s.countCache("l2", true)
				s.l1.Add(key, entries)
				return entries, nil
			}
		}
		s.countCache("l2", false)
	}

	entries, err := s.inner.ListByType(ctx, dictType)
	if err != nil {
		return nil, err
	}

	s.l1.Add(key, entries)
	if s.redis != nil {
		if data, err := json.Marshal(entries); err == nil {
			// Best effort: a Redis outage degrades to L1 + database.
			s.redis.Set(ctx, key, data, s.ttl)
		}
	}

	return entries, nil
}

func (s *CachedDictStore) invalidate(ctx context.Context, dictType string) {
	key := dictTypeKey(dictType)
	s.l1.Remove(key)
	if s.redis != nil {
		s.redis.Del(ctx, key)
	}
}

func (s *CachedDictStore) Create(ctx context.Context, dict *api.Dict) error {
	if err := s.inner.Create(ctx, dict); err != nil {
		return err
	}
	s.invalidate(ctx, dict.Type)
	return nil
}

func (s *CachedDictStore) Update(ctx context.Context, dict *api.Dict) error {
	if err := s.inner.Update(ctx, dict); err != nil {
		return err
	}
	if dict.Type != "" {
		s.invalidate(ctx, dict.Type)
		return nil
	}
	// Type not supplied on update requests; look it up for invalidation.
	if current, err := s.inner.GetByID(ctx, dict.ID); err == nil {
		s.invalidate(ctx, current.Type)
	}
	return nil
}

func (s *CachedDictStore) Delete(ctx context.Context, id int64) error {
	current, err := s.inner.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.inner.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, current.Type)
	return nil
}

func (s *CachedDictStore) GetByID(ctx context.Context, id int64) (*api.Dict, error) {
	return s.inner.GetByID(ctx, id)
}

func (s *CachedDictStore) GetByTypeAndCode(ctx context.Context, dictType, code string) (*api.Dict, error) {
	return s.inner.GetByTypeAndCode(ctx, dictType, code)
}

func (s *CachedDictStore) Search(ctx context.Context, filter api.DictFilter, page api.PageRequest) ([]*api.Dict, int64, error) {
	return s.inner.Search(ctx, filter, page)
}

var _ api.DictStore = (*CachedDictStore)(nil)
