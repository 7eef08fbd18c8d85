package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
	"trip-console/internal/adapters/planner"
	"trip-console/internal/domain"
	"trip-console/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlan(finalSoc float64) *domain.RoutePlan {
	return &domain.RoutePlan{
		Route: domain.Route{Geometry: []domain.LatLon{
			{Lat: 11.1085, Lon: 77.3411},
			{Lat: 11.0168, Lon: 76.9558},
		}},
		Stops: []domain.ChargeStop{
			{Name: "Avinashi", Lat: 11.19, Lon: 77.27, ArriveSoc: 0.42, EnergyAddedKwh: 12.345, ChargeMinutes: 25, CostUsd: 1.9752},
		},
		TotalEnergyKwh: 12.345,
		TotalCostUsd:   1.9752,
		FinalSoc:       finalSoc,
	}
}

func sampleSim(baseline float64) *domain.SimulationResult {
	return &domain.SimulationResult{
		Baseline:     domain.Scenario{Route: domain.ScenarioRoute{DurationMin: baseline}},
		HeavyTraffic: domain.Scenario{Route: domain.ScenarioRoute{DurationMin: baseline * 1.4}},
	}
}

// gatedPlanner blocks every call until the gate for its kind is released.
type gatedPlanner struct {
	*planner.MockTripPlanner
	gates map[string]chan struct{}
}

func newGatedPlanner(plan *domain.RoutePlan, sim *domain.SimulationResult, alerts []domain.Alert) *gatedPlanner {
	g := &gatedPlanner{gates: map[string]chan struct{}{
		"plan":     make(chan struct{}),
		"simulate": make(chan struct{}),
		"alerts":   make(chan struct{}),
	}}
	g.MockTripPlanner = &planner.MockTripPlanner{
		PlanFunc: func(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error) {
			<-g.gates["plan"]
			return plan, nil
		},
		SimulateFunc: func(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error) {
			<-g.gates["simulate"]
			return sim, nil
		},
		AlertsFunc: func(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error) {
			<-g.gates["alerts"]
			return alerts, nil
		},
	}
	return g
}

func loading(s State, kind string) bool {
	switch kind {
	case "plan":
		return s.Plan.Loading
	case "simulate":
		return s.Simulation.Loading
	default:
		return s.Alerts.Loading
	}
}

func TestRecalculateIssuesThreeIdenticalRequests(t *testing.T) {
	mock := &planner.MockTripPlanner{
		PlanFunc: func(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error) {
			return samplePlan(0.35), nil
		},
		SimulateFunc: func(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error) {
			return sampleSim(50), nil
		},
		AlertsFunc: func(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error) {
			return nil, nil
		},
	}
	o := NewTripOrchestrator(mock, time.Second)
	defer o.Close()

	require.NoError(t, o.UpdateField("battery_kwh", "62"))

	gen, err := o.Recalculate()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)
	o.Wait()

	calls := mock.Calls()
	require.Len(t, calls, 3)

	kinds := map[string]bool{}
	for _, c := range calls {
		kinds[c.Kind] = true
		assert.Equal(t, calls[0].Request, c.Request)
	}
	assert.Equal(t, map[string]bool{"plan": true, "simulate": true, "alerts": true}, kinds)
	assert.Equal(t, 62.0, calls[0].Request.Vehicle.BatteryKwh)

	s := o.Snapshot()
	assert.Equal(t, samplePlan(0.35), s.Plan.Value)
	assert.Equal(t, sampleSim(50), s.Simulation.Value)
	assert.Equal(t, []domain.Alert{}, s.Alerts.Value)
	assert.False(t, s.Plan.Loading || s.Simulation.Loading || s.Alerts.Loading)
}

func TestRecalculateOrderIndependence(t *testing.T) {
	orders := [][]string{
		{"plan", "simulate", "alerts"},
		{"plan", "alerts", "simulate"},
		{"simulate", "plan", "alerts"},
		{"simulate", "alerts", "plan"},
		{"alerts", "plan", "simulate"},
		{"alerts", "simulate", "plan"},
	}

	alerts := []domain.Alert{{Type: "weather", Message: "Rain expected"}}
	var states []State

	for _, order := range orders {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			g := newGatedPlanner(samplePlan(0.35), sampleSim(52.3), alerts)
			o := NewTripOrchestrator(g, 0)
			defer o.Close()

			_, err := o.Recalculate()
			require.NoError(t, err)

			for _, kind := range order {
				close(g.gates[kind])
				require.Eventually(t, func() bool {
					return !loading(o.Snapshot(), kind)
				}, time.Second, time.Millisecond)
			}
			o.Wait()

			states = append(states, o.Snapshot())
		})
	}

	require.Len(t, states, len(orders))
	for _, s := range states[1:] {
		assert.Equal(t, states[0], s)
	}
}

func TestRecalculateDiscardsStaleGeneration(t *testing.T) {
	release := map[float64]chan struct{}{
		0.16: make(chan struct{}),
		0.20: make(chan struct{}),
	}
	mock := &planner.MockTripPlanner{
		PlanFunc: func(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error) {
			<-release[req.PricePerKwh]
			return samplePlan(req.PricePerKwh), nil
		},
		SimulateFunc: func(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error) {
			<-release[req.PricePerKwh]
			return sampleSim(req.PricePerKwh * 100), nil
		},
		AlertsFunc: func(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error) {
			<-release[req.PricePerKwh]
			return []domain.Alert{{Type: "price", Message: fmt.Sprint(req.PricePerKwh)}}, nil
		},
	}
	o := NewTripOrchestrator(mock, 0)
	defer o.Close()

	genA, err := o.Recalculate()
	require.NoError(t, err)

	require.NoError(t, o.UpdateField("price_per_kwh", "0.20"))
	genB, err := o.Recalculate()
	require.NoError(t, err)
	assert.Greater(t, genB, genA)

	// B lands first, then the slower A responses arrive.
	close(release[0.20])
	require.Eventually(t, func() bool {
		s := o.Snapshot()
		return !s.Plan.Loading && !s.Simulation.Loading && !s.Alerts.Loading
	}, time.Second, time.Millisecond)

	close(release[0.16])
	o.Wait()

	s := o.Snapshot()
	assert.Equal(t, genB, s.Generation)
	assert.Equal(t, 0.20, s.Plan.Value.FinalSoc)
	assert.InDelta(t, 20.0, s.Simulation.Value.Baseline.Route.DurationMin, 1e-9)
	assert.Equal(t, []domain.Alert{{Type: "price", Message: "0.2"}}, s.Alerts.Value)
	assert.Equal(t, uint64(1), s.Plan.Revision)
}

func TestRecalculatePartialFailureKeepsOtherSlots(t *testing.T) {
	fail := false
	var mu sync.Mutex
	mock := &planner.MockTripPlanner{
		PlanFunc: func(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error) {
			mu.Lock()
			defer mu.Unlock()
			if fail {
				return nil, &ports.StatusError{Code: 502, Body: "bad gateway"}
			}
			return samplePlan(0.35), nil
		},
		SimulateFunc: func(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error) {
			return sampleSim(40), nil
		},
		AlertsFunc: func(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error) {
			return []domain.Alert{}, nil
		},
	}
	o := NewTripOrchestrator(mock, time.Second)
	defer o.Close()

	_, err := o.Recalculate()
	require.NoError(t, err)
	o.Wait()

	mu.Lock()
	fail = true
	mu.Unlock()

	_, err = o.Recalculate()
	require.NoError(t, err)
	o.Wait()

	s := o.Snapshot()
	assert.Equal(t, samplePlan(0.35), s.Plan.Value, "previous plan stays visible")
	require.Error(t, s.Plan.Err)
	assert.Equal(t, FailureStatus, FailureKind(s.Plan.Err))
	assert.False(t, s.Plan.Loading)

	assert.NoError(t, s.Simulation.Err)
	assert.Equal(t, uint64(2), s.Simulation.Revision)
	assert.NoError(t, s.Alerts.Err)
}

func TestRecalculateSuccessClearsSlotError(t *testing.T) {
	calls := 0
	mock := &planner.MockTripPlanner{
		PlanFunc: func(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error) {
			calls++
			if calls == 1 {
				return nil, fmt.Errorf("plan: %w", ports.ErrMalformedResponse)
			}
			return samplePlan(0.5), nil
		},
		SimulateFunc: func(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error) {
			return sampleSim(40), nil
		},
		AlertsFunc: func(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error) {
			return nil, nil
		},
	}
	o := NewTripOrchestrator(mock, time.Second)
	defer o.Close()

	_, err := o.Recalculate()
	require.NoError(t, err)
	o.Wait()
	assert.Equal(t, FailureMalformed, FailureKind(o.Snapshot().Plan.Err))
	assert.Nil(t, o.Snapshot().Plan.Value)

	_, err = o.Recalculate()
	require.NoError(t, err)
	o.Wait()

	s := o.Snapshot()
	assert.NoError(t, s.Plan.Err)
	assert.Equal(t, 0.5, s.Plan.Value.FinalSoc)
}

func TestRecalculateInvalidInput(t *testing.T) {
	mock := &planner.MockTripPlanner{}
	o := NewTripOrchestrator(mock, time.Second)
	defer o.Close()

	require.NoError(t, o.UpdateField("origin_lat", "-"))
	assert.Equal(t, "-", o.Snapshot().Form[domain.FieldOriginLat])

	gen, err := o.Recalculate()
	assert.Zero(t, gen)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	s := o.Snapshot()
	assert.Equal(t, uint64(0), s.Generation)
	require.NotNil(t, s.InputErr)
	assert.Contains(t, s.InputErr.ByField(), domain.FieldOriginLat)
	assert.Empty(t, mock.Calls())
	assert.False(t, s.Plan.Loading)
}

func TestRecalculateInvalidInputKeepsInFlightCurrent(t *testing.T) {
	g := newGatedPlanner(samplePlan(0.35), sampleSim(50), nil)
	o := NewTripOrchestrator(g, 0)
	defer o.Close()

	gen, err := o.Recalculate()
	require.NoError(t, err)

	require.NoError(t, o.UpdateField("battery_kwh", ""))
	_, err = o.Recalculate()
	require.Error(t, err)

	for _, ch := range g.gates {
		close(ch)
	}
	o.Wait()

	s := o.Snapshot()
	assert.Equal(t, gen, s.Generation)
	assert.Equal(t, samplePlan(0.35), s.Plan.Value)
	assert.NotNil(t, s.InputErr)

	require.NoError(t, o.UpdateField("battery_kwh", "40"))
	_, err = o.Recalculate()
	require.NoError(t, err)
	assert.Nil(t, o.Snapshot().InputErr)
}

func TestUpdateFieldUnknownKey(t *testing.T) {
	o := NewTripOrchestrator(&planner.MockTripPlanner{}, 0)
	defer o.Close()

	err := o.UpdateField("oLat", "1")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestMountRunsOnce(t *testing.T) {
	mock := &planner.MockTripPlanner{
		PlanFunc: func(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error) {
			return samplePlan(0.35), nil
		},
		SimulateFunc: func(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error) {
			return sampleSim(40), nil
		},
		AlertsFunc: func(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error) {
			return nil, nil
		},
	}
	o := NewTripOrchestrator(mock, time.Second)
	defer o.Close()

	require.NoError(t, o.Mount())
	require.NoError(t, o.Mount())
	o.Wait()

	assert.Len(t, mock.Calls(), 3)
	assert.Equal(t, uint64(1), o.Snapshot().Generation)
}

func TestRecalculateTimeout(t *testing.T) {
	block := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	mock := &planner.MockTripPlanner{
		PlanFunc: func(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error) {
			return nil, block(ctx)
		},
		SimulateFunc: func(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error) {
			return sampleSim(40), nil
		},
		AlertsFunc: func(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error) {
			return nil, nil
		},
	}
	o := NewTripOrchestrator(mock, 20*time.Millisecond)
	defer o.Close()

	_, err := o.Recalculate()
	require.NoError(t, err)
	o.Wait()

	s := o.Snapshot()
	assert.Equal(t, FailureTimeout, FailureKind(s.Plan.Err))
	assert.Equal(t, sampleSim(40), s.Simulation.Value)
}

func TestRecalculateRecoversPlannerPanic(t *testing.T) {
	mock := &planner.MockTripPlanner{
		PlanFunc: func(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error) {
			panic("nil map")
		},
		SimulateFunc: func(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error) {
			return sampleSim(40), nil
		},
		AlertsFunc: func(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error) {
			return nil, nil
		},
	}
	o := NewTripOrchestrator(mock, time.Second)
	defer o.Close()

	_, err := o.Recalculate()
	require.NoError(t, err)
	o.Wait()

	s := o.Snapshot()
	require.Error(t, s.Plan.Err)
	assert.Contains(t, s.Plan.Err.Error(), "panic")
	assert.Equal(t, sampleSim(40), s.Simulation.Value)
}

func TestCloseCancelsInFlight(t *testing.T) {
	mock := &planner.MockTripPlanner{
		PlanFunc: func(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		SimulateFunc: func(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		AlertsFunc: func(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	o := NewTripOrchestrator(mock, 0)

	_, err := o.Recalculate()
	require.NoError(t, err)

	o.Close()

	s := o.Snapshot()
	assert.Equal(t, FailureCancelled, FailureKind(s.Plan.Err))

	_, err = o.Recalculate()
	assert.ErrorIs(t, err, ErrClosed)
}

type recordingSink struct {
	mu        sync.Mutex
	revisions []uint64
	last      *domain.RoutePlan
}

func (r *recordingSink) SyncPlan(revision uint64, plan *domain.RoutePlan) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revisions = append(r.revisions, revision)
	r.last = plan
	return true
}

func TestBindMapReceivesLatestPlan(t *testing.T) {
	mock := &planner.MockTripPlanner{
		PlanFunc: func(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error) {
			return samplePlan(req.Vehicle.SocStart / 2), nil
		},
		SimulateFunc: func(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error) {
			return nil, errors.New("simulation offline")
		},
		AlertsFunc: func(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error) {
			return nil, nil
		},
	}
	o := NewTripOrchestrator(mock, time.Second)
	defer o.Close()

	sink := &recordingSink{}
	o.BindMap(sink)

	_, err := o.Recalculate()
	require.NoError(t, err)
	o.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.NotEmpty(t, sink.revisions)
	assert.Equal(t, uint64(1), sink.revisions[len(sink.revisions)-1])
	assert.Equal(t, 0.4, sink.last.FinalSoc)
}

func TestFailureKind(t *testing.T) {
	assert.Equal(t, "", FailureKind(nil))
	assert.Equal(t, FailureTimeout, FailureKind(fmt.Errorf("plan: %w", context.DeadlineExceeded)))
	assert.Equal(t, FailureStatus, FailureKind(fmt.Errorf("plan: %w", &ports.StatusError{Code: 400})))
	assert.Equal(t, FailureMalformed, FailureKind(fmt.Errorf("plan: %w", ports.ErrMalformedResponse)))
	assert.Equal(t, FailureCancelled, FailureKind(context.Canceled))
	assert.Equal(t, FailureTransport, FailureKind(errors.New("connection refused")))
}

func TestWaitConcurrentWithRecalculate(t *testing.T) {
	mock := &planner.MockTripPlanner{
		PlanFunc: func(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error) {
			time.Sleep(time.Millisecond)
			return samplePlan(0.35), nil
		},
		SimulateFunc: func(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error) {
			return sampleSim(40), nil
		},
		AlertsFunc: func(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error) {
			return nil, nil
		},
	}
	o := NewTripOrchestrator(mock, time.Second)
	defer o.Close()

	const cycles = 20
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < cycles; i++ {
			_, err := o.Recalculate()
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < cycles; i++ {
			o.Wait()
		}
	}()
	wg.Wait()

	o.Wait()
	s := o.Snapshot()
	assert.Equal(t, uint64(cycles), s.Generation)
	assert.False(t, s.Plan.Loading || s.Simulation.Loading || s.Alerts.Loading)
	assert.Len(t, mock.Calls(), 3*cycles)
}
