package ports

import (
	"context"
	"trip-console/internal/domain"
)

// Contract for the remote planning service. All three calls take the same
// payload, are idempotent, and are independent of each other.
type TripPlanner interface {
	// Return the route and charging schedule for the trip.
	Plan(ctx context.Context, req domain.TripRequest) (*domain.RoutePlan, error)
	// Return baseline and heavy-traffic durations for the trip.
	Simulate(ctx context.Context, req domain.TripRequest) (*domain.SimulationResult, error)
	// Return advisory alerts for the trip. An empty list is a valid answer.
	Alerts(ctx context.Context, req domain.TripRequest) ([]domain.Alert, error)
}
