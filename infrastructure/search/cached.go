package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/hoopstats/domain/cache"
	"github.com/felixgeelhaar/hoopstats/infrastructure/logging"
	"github.com/felixgeelhaar/hoopstats/infrastructure/telemetry"
)

// Namespace is the cache namespace for search responses.
const Namespace = "search"

// Cached serves repeated queries from a cache. Cache failures are logged
// and fall through to the wrapped searcher.
type Cached struct {
	inner   Searcher
	cache   cache.Cache
	ttl     time.Duration
	metrics telemetry.Metrics
}

// NewCached wraps inner with c. A nil metrics records nothing.
func NewCached(inner Searcher, c cache.Cache, ttl time.Duration, metrics telemetry.Metrics) *Cached {
	if metrics == nil {
		metrics = telemetry.NoopMetrics{}
	}
	return &Cached{inner: inner, cache: c, ttl: ttl, metrics: metrics}
}

// Name returns the wrapped searcher name.
func (s *Cached) Name() string {
	return s.inner.Name()
}

// Search implements Searcher.
func (s *Cached) Search(ctx context.Context, query string) (Response, error) {
	key := cache.Key(Namespace, query)

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logging.Warn().
			Add(logging.Component("search")).
			Add(logging.Operation("cache_get")).
			Add(logging.ErrorField(err)).
			Msg("search cache unavailable")
	}
	if ok {
		var resp Response
		if err := json.Unmarshal(data, &resp); err == nil {
			s.metrics.RecordCacheLookup(ctx, Namespace, true)
			resp.Cached = true
			return resp, nil
		}
	}
	s.metrics.RecordCacheLookup(ctx, Namespace, false)

	resp, err := s.inner.Search(ctx, query)
	if err != nil {
		return Response{}, err
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			logging.Warn().
				Add(logging.Component("search")).
				Add(logging.Operation("cache_set")).
				Add(logging.ErrorField(err)).
				Msg("search cache write failed")
		}
	}
	return resp, nil
}

var _ Searcher = (*Cached)(nil)
