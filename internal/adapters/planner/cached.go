package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"
	"trip-console/internal/domain"
	"trip-console/internal/platform/obs"
	"trip-console/internal/ports"

	"github.com/cespare/xxhash/v2"
)

// CachingPlanner decorates a TripPlanner with a response cache.
//
// The remote calls are stateless and keyed only by the payload, so a hit is
// served without touching the network. Only successful responses are stored.
// Cache failures are logged and bypassed; they never fail a request.
//
// Keys are scoped by namespace, normally the planner base URL, so a cache
// shared across deployments never serves another service's responses.
type CachingPlanner struct {
	next      ports.TripPlanner
	cache     ports.ResponseCache
	ttl       time.Duration
	namespace string
}

func NewCachingPlanner(next ports.TripPlanner, cache ports.ResponseCache, ttl time.Duration, namespace string) *CachingPlanner {
	return &CachingPlanner{next: next, cache: cache, ttl: ttl, namespace: namespace}
}

// CacheKey derives the cache key for one kind of call and payload within namespace.
func CacheKey(namespace, kind string, req domain.TripRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("cache key: marshal request: %w", err)
	}
	return fmt.Sprintf("trip:%016x:%s:%016x", xxhash.Sum64String(namespace), kind, xxhash.Sum64(body)), nil
}

func (c *CachingPlanner) Plan(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error) {
	return cached(ctx, c, "plan", req, c.next.Plan)
}

func (c *CachingPlanner) Simulate(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error) {
	return cached(ctx, c, "simulate", req, c.next.Simulate)
}

func (c *CachingPlanner) Alerts(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error) {
	alerts, err := cached(ctx, c, "alerts", req, c.next.Alerts)
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	return alerts, nil
}

func cached[T any](
	ctx context.Context,
	c *CachingPlanner,
	kind string,
	req domain.TripRequest,
	fetch func(context.Context, domain.TripRequest) (T, error),
) (T, error) {
	key, err := CacheKey(c.namespace, kind, req)
	if err != nil {
		return fetch(ctx, req)
	}

	if hit, ok := c.lookup(ctx, key); ok {
		var v T
		if err := json.Unmarshal(hit, &v); err == nil {
			return v, nil
		}
		log.Printf("req_id=%s response cache entry undecodable key=%s", obs.RequestID(ctx), key)
	}

	v, err := fetch(ctx, req)
	if err != nil {
		return v, err
	}

	c.store(ctx, key, v)
	return v, nil
}

func (c *CachingPlanner) lookup(ctx context.Context, key string) ([]byte, bool) {
	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Printf("req_id=%s response cache read failed key=%s: %v", obs.RequestID(ctx), key, err)
		return nil, false
	}
	return body, ok
}

func (c *CachingPlanner) store(ctx context.Context, key string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Printf("req_id=%s response cache encode failed key=%s: %v", obs.RequestID(ctx), key, err)
		return
	}
	if err := c.cache.Put(ctx, key, body, c.ttl); err != nil {
		log.Printf("req_id=%s response cache write failed key=%s: %v", obs.RequestID(ctx), key, err)
	}
}
