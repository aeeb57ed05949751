package engine

import (
	"context"
	"time"

	"github.com/adminlove520/daily-stock-analysis/internal/adapters/redis"
	"github.com/adminlove520/daily-stock-analysis/internal/domain/analysis"
	"github.com/adminlove520/daily-stock-analysis/pkg/logger"
)

// Compile-time check
var _ analysis.Engine = (*CachedEngine)(nil)

// CachedEngine caches single-stock results in Redis so a repeated /analysis
// for the same code inside the TTL window skips the multi-second pipeline
// call. Market reviews are never cached: they are point-in-time by nature.
type CachedEngine struct {
	inner analysis.Engine
	cache *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedEngine wraps an engine with a Redis result cache
func NewCachedEngine(inner analysis.Engine, cache *redis.Client, ttl time.Duration, log *logger.Logger) *CachedEngine {
	return &CachedEngine{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   log.With("component", "engine_cache"),
	}
}

// ProcessSingleStock returns a cached result when present, otherwise calls
// through and stores the result. Cache failures fall through to the engine;
// a broken Redis must never break analysis.
func (e *CachedEngine) ProcessSingleStock(ctx context.Context, code string) (*analysis.Result, error) {
	key := "analysis:result:" + code

	var cached analysis.Result
	err := e.cache.Get(ctx, key, &cached)
	if err == nil {
		e.log.Debugw("Analysis cache hit", "code", code)
		return &cached, nil
	}
	if err != redis.Nil {
		e.log.Warnw("Analysis cache read failed", "code", code, "error", err)
	}

	result, err := e.inner.ProcessSingleStock(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Set(ctx, key, result, e.ttl); err != nil {
		e.log.Warnw("Analysis cache write failed", "code", code, "error", err)
	}

	return result, nil
}

// MarketReview passes through to the wrapped engine
func (e *CachedEngine) MarketReview(ctx context.Context) (string, error) {
	return e.inner.MarketReview(ctx)
}
