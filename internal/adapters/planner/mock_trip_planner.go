package planner

import (
	"context"
	"errors"
	"sync"
	"trip-console/internal/domain"
)

// MockCall records one request received by MockTripPlanner.
type MockCall struct {
	Kind    string
	Request domain.TripRequest
}

// MockTripPlanner is an in-memory ports.TripPlanner for tests and local runs.
// Unset funcs fail with an error so a test only configures what it exercises.
type MockTripPlanner struct {
	PlanFunc     func(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error)
	SimulateFunc func(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error)
	AlertsFunc   func(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error)

	mu    sync.Mutex
	calls []MockCall
}

func (m *MockTripPlanner) record(kind string, req domain.TripRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Kind: kind, Request: req})
}

// Calls returns a copy of the calls received so far, in arrival order.
func (m *MockTripPlanner) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockTripPlanner) Plan(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error) {
	m.record("plan", req)
	if m.PlanFunc == nil {
		return nil, errors.New("mock planner: plan not configured")
	}
	return m.PlanFunc(ctx, req)
}

func (m *MockTripPlanner) Simulate(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error) {
	m.record("simulate", req)
	if m.SimulateFunc == nil {
		return nil, errors.New("mock planner: simulate not configured")
	}
	return m.SimulateFunc(ctx, req)
}

func (m *MockTripPlanner) Alerts(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error) {
	m.record("alerts", req)
	if m.AlertsFunc == nil {
		return nil, errors.New("mock planner: alerts not configured")
	}
	return m.AlertsFunc(ctx, req)
}
