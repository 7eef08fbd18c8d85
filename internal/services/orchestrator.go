package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
	"trip-console/internal/domain"
	"trip-console/internal/platform/obs"
	"trip-console/internal/ports"
)

var (
	ErrUnknownField = errors.New("unknown trip field")
	ErrClosed       = errors.New("trip orchestrator closed")
)

// PlanSink receives the plan slot whenever it may have changed.
type PlanSink interface {
	SyncPlan(revision uint64, plan *domain.RoutePlan) bool
}

// TripOrchestrator owns the trip form and drives the plan, simulate and
// alerts requests for it.
//
// Every Recalculate starts a new generation. The three requests of a
// generation run concurrently and commit to their own slot independently;
// a response whose generation is no longer current is dropped, so a slow
// answer to an earlier cycle can never overwrite a later one.
type TripOrchestrator struct {
	planner ports.TripPlanner
	timeout time.Duration

	// Requests are bound to the orchestrator, not to whoever triggered them.
	ctx    context.Context
	cancel context.CancelFunc

	mountOnce sync.Once

	mu       sync.Mutex
	state    State
	closed   bool
	inflight int
	idle     *sync.Cond // signalled on mu when inflight drops to zero

	// emitMu serialises notifications; each one reads a fresh snapshot.
	emitMu      sync.Mutex
	subscribers []func(State)
}

// NewTripOrchestrator creates an orchestrator with the default trip form.
// A timeout of zero disables the per-request deadline.
func NewTripOrchestrator(planner ports.TripPlanner, timeout time.Duration) *TripOrchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &TripOrchestrator{
		planner: planner,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		state:   State{Form: domain.DefaultTripForm()},
	}
	o.idle = sync.NewCond(&o.mu)
	return o
}

// Subscribe registers fn to receive a snapshot after every committed change.
// fn runs synchronously and must not call Subscribe, UpdateField or Recalculate.
func (o *TripOrchestrator) Subscribe(fn func(State)) {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()
	o.subscribers = append(o.subscribers, fn)
}

// BindMap keeps sink in step with the plan slot.
func (o *TripOrchestrator) BindMap(sink PlanSink) {
	o.Subscribe(func(s State) {
		sink.SyncPlan(s.Plan.Revision, s.Plan.Value)
	})
}

func (o *TripOrchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *TripOrchestrator) snapshotLocked() State {
	s := o.state
	s.Form = o.state.Form.Clone()
	return s
}

func (o *TripOrchestrator) emit() {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	if len(o.subscribers) == 0 {
		return
	}
	s := o.Snapshot()
	for _, fn := range o.subscribers {
		fn(s)
	}
}

// UpdateField stores raw verbatim. Nothing is parsed until Recalculate.
func (o *TripOrchestrator) UpdateField(key, raw string) error {
	field, ok := domain.LookupField(key)
	if !ok {
		return fmt.Errorf("update field %q: %w", key, ErrUnknownField)
	}

	o.mu.Lock()
	o.state.Form[field] = raw
	o.mu.Unlock()

	o.emit()
	return nil
}

// Mount runs the first recalculation. Later calls do nothing.
func (o *TripOrchestrator) Mount() error {
	var err error
	o.mountOnce.Do(func() {
		_, err = o.Recalculate()
	})
	return err
}

// Recalculate parses the form and, if it is valid, issues the plan, simulate
// and alerts requests for it under a new generation, which is returned.
//
// An invalid form is recorded as the input error and returned as a
// *domain.ValidationError; no request is sent and the generation is unchanged,
// so responses already in flight stay current.
func (o *TripOrchestrator) Recalculate() (uint64, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return 0, ErrClosed
	}

	in, err := o.state.Form.Parse()
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			o.state.InputErr = verr
		}
		gen := o.state.Generation
		o.mu.Unlock()

		log.Printf("op=recalculate generation=%d rejected: %v", gen, err)
		o.emit()
		return 0, err
	}

	o.state.InputErr = nil
	o.state.Generation++
	gen := o.state.Generation
	o.state.Plan.Loading = true
	o.state.Simulation.Loading = true
	o.state.Alerts.Loading = true
	o.inflight += 3
	o.mu.Unlock()

	req := in.Request()
	ctx, reqID := obs.WithRequestID(o.ctx)
	log.Printf("req_id=%s op=recalculate generation=%d", reqID, gen)

	o.emit()

	go fetch(o, ctx, gen, "plan", req, o.planner.Plan, func(s *State) *Slot[*domain.RoutePlan] { return &s.Plan })
	go fetch(o, ctx, gen, "simulate", req, o.planner.Simulate, func(s *State) *Slot[*domain.SimulationResult] { return &s.Simulation })
	go fetch(o, ctx, gen, "alerts", req, o.alerts, func(s *State) *Slot[[]domain.Alert] { return &s.Alerts })

	return gen, nil
}

func (o *TripOrchestrator) alerts(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error) {
	alerts, err := o.planner.Alerts(ctx, req)
	if err == nil && alerts == nil {
		alerts = []domain.Alert{}
	}
	return alerts, err
}

// fetch performs one remote call and commits its outcome to the slot if the
// generation is still current.
func fetch[T any](
	o *TripOrchestrator,
	ctx context.Context,
	gen uint64,
	name string,
	req domain.TripRequest,
	call func(context.Context, domain.TripRequest) (T, error),
	slot func(*State) *Slot[T],
) {
	defer o.done()

	v, err := guardedCall(ctx, o.timeout, name, req, call)
	reqID := obs.RequestID(ctx)

	o.mu.Lock()
	current := o.state.Generation
	if gen != current {
		o.mu.Unlock()
		log.Printf("req_id=%s op=%s generation=%d current=%d stale response discarded", reqID, name, gen, current)
		return
	}

	s := slot(&o.state)
	s.Loading = false
	if err != nil {
		s.Err = err
	} else {
		s.Value = v
		s.Err = nil
		s.Revision++
	}
	o.mu.Unlock()

	if err != nil {
		log.Printf("req_id=%s op=%s generation=%d failure=%s err=%v", reqID, name, gen, FailureKind(err), err)
	}
	o.emit()
}

// guardedCall applies the per-request timeout and turns a panicking planner
// into an ordinary error.
func guardedCall[T any](
	ctx context.Context,
	timeout time.Duration,
	name string,
	req domain.TripRequest,
	call func(context.Context, domain.TripRequest) (T, error),
) (v T, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", name, r)
		}
	}()

	return call(ctx, req)
}

func (o *TripOrchestrator) done() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inflight--
	if o.inflight == 0 {
		o.idle.Broadcast()
	}
}

// Wait blocks until no request is in flight. It may run concurrently with
// Recalculate; it then returns at the first moment every issued request has
// committed or been discarded.
func (o *TripOrchestrator) Wait() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for o.inflight > 0 {
		o.idle.Wait()
	}
}

// Close cancels in-flight requests and waits for them to finish.
// Cancelled requests still land in their slot as failures.
func (o *TripOrchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.Wait()
}
