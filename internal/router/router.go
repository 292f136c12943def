// Package router decides whether a SQL computation is served from the cache
// or routed to the compute engine, and records fresh results back into the
// cache.
package router

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/slokhande/dataos/internal/cache"
	"github.com/slokhande/dataos/internal/engine"
)

// Source identifies where a query result came from.
type Source string

// Decision sources.
const (
	SourceCache   Source = "cache"
	SourceCompute Source = "compute"
)

// Estimated cost classes. Informational only; they do not change routing.
const (
	costCacheHit = 0
	costRead     = 50
	costWrite    = 500
)

// Decision is the routing outcome for one query.
type Decision struct {
	Source        Source `json:"source"`
	EstimatedCost int    `json:"estimatedCost"`
	Query         string `json:"query"`
}

// Router routes SQL between the cache and the compute engine.
type Router struct {
	engine engine.Engine
	cache  *cache.Store
	ttl    time.Duration
}

// New creates a router. A ttl <= 0 uses the cache default.
func New(eng engine.Engine, store *cache.Store, ttl time.Duration) *Router {
	return &Router{engine: eng, cache: store, ttl: ttl}
}

// Hash derives the deterministic cache key for a SQL text. Byte-identical
// queries always map to the same key; distinct queries colliding is a
// tolerated theoretical risk.
func Hash(query string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(query))
	return fmt.Sprintf("q_%x", h.Sum64())
}

// isWrite classifies write-shaped statements for cost estimation and cache
// bypass.
func isWrite(query string) bool {
	lower := strings.ToLower(query)
	return strings.Contains(lower, "create") || strings.Contains(lower, "insert") ||
		strings.Contains(lower, "drop") || strings.Contains(lower, "alter")
}

// Optimize reports the routing decision for a query without executing it.
func (r *Router) Optimize(ctx context.Context, query string) (Decision, error) {
	if isWrite(query) {
		return Decision{Source: SourceCompute, EstimatedCost: costWrite, Query: query}, nil
	}

	var rows []engine.Row
	hit, err := r.cache.Get(ctx, Hash(query), &rows)
	if err != nil {
		return Decision{}, err
	}
	if hit {
		return Decision{Source: SourceCache, EstimatedCost: costCacheHit, Query: query}, nil
	}
	return Decision{Source: SourceCompute, EstimatedCost: costRead, Query: query}, nil
}

// Execute runs a query. Reads are served from the cache when possible and
// cached after computing; write-shaped statements always hit the engine and
// are never cached.
func (r *Router) Execute(ctx context.Context, query string) ([]engine.Row, error) {
	if isWrite(query) {
		return r.engine.Query(ctx, query)
	}

	key := Hash(query)
	var cached []engine.Row
	hit, err := r.cache.Get(ctx, key, &cached)
	if err != nil {
		return nil, err
	}
	if hit {
		log.Debug().Str("hash", key).Msg("router: serving from cache")
		return cached, nil
	}

	rows, err := r.engine.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, key, rows, r.ttl); err != nil {
		log.Warn().Err(err).Str("hash", key).Msg("router: caching result failed")
	}
	return rows, nil
}

// Explain always bypasses the cache and asks the engine for its plan.
func (r *Router) Explain(ctx context.Context, query string) (string, error) {
	return r.engine.Explain(ctx, query)
}
