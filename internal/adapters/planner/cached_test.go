package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"trip-console/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNamespace = "http://planner.test"

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	b, ok := m.entries[key]
	return b, ok, nil
}

func (m *memoryCache) Put(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = body
	m.ttls[key] = ttl
	return nil
}

func TestCachingPlannerServesHits(t *testing.T) {
	mock := &MockTripPlanner{
		PlanFunc: func(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error) {
			return &domain.RoutePlan{FinalSoc: 0.35, Stops: []domain.ChargeStop{{Name: "A"}}}, nil
		},
	}
	cache := newMemoryCache()
	cp := NewCachingPlanner(mock, cache, time.Hour, testNamespace)

	first, err := cp.Plan(context.Background(), testRequest())
	require.NoError(t, err)
	second, err := cp.Plan(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, mock.Calls(), 1)

	key, err := CacheKey(testNamespace, "plan", testRequest())
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cache.ttls[key])
}

func TestCachingPlannerKeysByKindAndPayload(t *testing.T) {
	req := testRequest()
	other := req
	other.PricePerKwh = 0.2

	planKey, _ := CacheKey(testNamespace, "plan", req)
	simKey, _ := CacheKey(testNamespace, "simulate", req)
	otherKey, _ := CacheKey(testNamespace, "plan", other)
	againKey, _ := CacheKey(testNamespace, "plan", testRequest())

	assert.NotEqual(t, planKey, simKey)
	assert.NotEqual(t, planKey, otherKey)
	assert.Equal(t, planKey, againKey)
}

func TestCachingPlannerDoesNotStoreFailures(t *testing.T) {
	mock := &MockTripPlanner{
		SimulateFunc: func(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error) {
			return nil, errors.New("upstream down")
		},
	}
	cache := newMemoryCache()
	cp := NewCachingPlanner(mock, cache, time.Minute, testNamespace)

	_, err := cp.Simulate(context.Background(), testRequest())
	require.Error(t, err)
	_, err = cp.Simulate(context.Background(), testRequest())
	require.Error(t, err)

	assert.Empty(t, cache.entries)
	assert.Len(t, mock.Calls(), 2)
}

func TestCachingPlannerBypassesBrokenCache(t *testing.T) {
	mock := &MockTripPlanner{
		AlertsFunc: func(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error) {
			return nil, nil
		},
	}
	cache := newMemoryCache()
	cache.getErr = errors.New("connection refused")
	cp := NewCachingPlanner(mock, cache, time.Minute, testNamespace)

	alerts, err := cp.Alerts(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, []domain.Alert{}, alerts)
	assert.Len(t, mock.Calls(), 1)
}

func TestCachingPlannerScopesKeysByNamespace(t *testing.T) {
	calls := 0
	mock := &MockTripPlanner{
		PlanFunc: func(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error) {
			calls++
			return &domain.RoutePlan{FinalSoc: float64(calls) / 10}, nil
		},
	}
	cache := newMemoryCache()

	oldKey, _ := CacheKey("http://planner-a:8000", "plan", testRequest())
	newKey, _ := CacheKey("http://planner-b:8000", "plan", testRequest())
	assert.NotEqual(t, oldKey, newKey)

	_, err := NewCachingPlanner(mock, cache, time.Hour, "http://planner-a:8000").Plan(context.Background(), testRequest())
	require.NoError(t, err)

	plan, err := NewCachingPlanner(mock, cache, time.Hour, "http://planner-b:8000").Plan(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, 0.2, plan.FinalSoc, "a different planner must not be served the old entry")
	assert.Len(t, mock.Calls(), 2)
	assert.Len(t, cache.entries, 2)
}
