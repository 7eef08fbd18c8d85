package planner

import (
	"fmt"
	"math"
	"trip-console/internal/domain"
	"trip-console/internal/ports"
)

// Wire shapes of the remote service. Required fields are pointers so a
// missing field can be told apart from a zero value.

type wirePoint struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type wireStop struct {
	Name           string   `json:"name"`
	Lat            *float64 `json:"lat"`
	Lon            *float64 `json:"lon"`
	ArriveSoc      *float64 `json:"arrive_soc"`
	EnergyAddedKwh *float64 `json:"energy_added_kwh"`
	ChargeMinutes  *float64 `json:"charge_minutes"`
	CostUsd        *float64 `json:"cost_usd"`
}

type planResponse struct {
	Route *struct {
		Geometry *[]wirePoint `json:"geometry"`
	} `json:"route"`
	Stops          *[]wireStop `json:"stops"`
	TotalEnergyKwh *float64    `json:"total_energy_kwh"`
	TotalCostUsd   *float64    `json:"total_cost_usd"`
	FinalSoc       *float64    `json:"final_soc"`
}

type wireScenario struct {
	Route *struct {
		DurationMin *float64 `json:"duration_min"`
	} `json:"route"`
}

type simulateResponse struct {
	Baseline     *wireScenario `json:"baseline"`
	HeavyTraffic *wireScenario `json:"heavyTraffic"`
}

type alertsResponse struct {
	Alerts []domain.Alert `json:"alerts"`
}

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", ports.ErrMalformedResponse, field)
}

func (r planResponse) toDomain() (*domain.RoutePlan, error) {
	if r.Route == nil || r.Route.Geometry == nil {
		return nil, missing("route.geometry")
	}
	if r.Stops == nil {
		return nil, missing("stops")
	}
	if r.TotalEnergyKwh == nil {
		return nil, missing("total_energy_kwh")
	}
	if r.TotalCostUsd == nil {
		return nil, missing("total_cost_usd")
	}
	if r.FinalSoc == nil {
		return nil, missing("final_soc")
	}

	geometry := make([]domain.LatLon, 0, len(*r.Route.Geometry))
	for i, p := range *r.Route.Geometry {
		if p.Lat == nil || p.Lon == nil {
			return nil, missing(fmt.Sprintf("route.geometry[%d].lat/lon", i))
		}
		geometry = append(geometry, domain.LatLon{Lat: *p.Lat, Lon: *p.Lon})
	}

	stops := make([]domain.ChargeStop, 0, len(*r.Stops))
	for i, s := range *r.Stops {
		stop, err := s.toDomain()
		if err != nil {
			return nil, fmt.Errorf("stops[%d]: %w", i, err)
		}
		stops = append(stops, stop)
	}

	return &domain.RoutePlan{
		Route:          domain.Route{Geometry: geometry},
		Stops:          stops,
		TotalEnergyKwh: *r.TotalEnergyKwh,
		TotalCostUsd:   *r.TotalCostUsd,
		FinalSoc:       *r.FinalSoc,
	}, nil
}

func (s wireStop) toDomain() (domain.ChargeStop, error) {
	required := []struct {
		name string
		v    *float64
	}{
		{"lat", s.Lat},
		{"lon", s.Lon},
		{"arrive_soc", s.ArriveSoc},
		{"energy_added_kwh", s.EnergyAddedKwh},
		{"charge_minutes", s.ChargeMinutes},
		{"cost_usd", s.CostUsd},
	}
	for _, f := range required {
		if f.v == nil {
			return domain.ChargeStop{}, missing(f.name)
		}
	}

	return domain.ChargeStop{
		Name:           s.Name,
		Lat:            *s.Lat,
		Lon:            *s.Lon,
		ArriveSoc:      *s.ArriveSoc,
		EnergyAddedKwh: *s.EnergyAddedKwh,
		// Some planners report fractional minutes; the schedule shows whole minutes.
		ChargeMinutes: int(math.Round(*s.ChargeMinutes)),
		CostUsd:       *s.CostUsd,
	}, nil
}

func (s *wireScenario) duration(name string) (float64, error) {
	if s == nil || s.Route == nil || s.Route.DurationMin == nil {
		return 0, missing(name + ".route.duration_min")
	}
	return *s.Route.DurationMin, nil
}

func (r simulateResponse) toDomain() (*domain.SimulationResult, error) {
	baseline, err := r.Baseline.duration("baseline")
	if err != nil {
		return nil, err
	}
	heavy, err := r.HeavyTraffic.duration("heavyTraffic")
	if err != nil {
		return nil, err
	}

	return &domain.SimulationResult{
		Baseline:     domain.Scenario{Route: domain.ScenarioRoute{DurationMin: baseline}},
		HeavyTraffic: domain.Scenario{Route: domain.ScenarioRoute{DurationMin: heavy}},
	}, nil
}

// An absent list is the same as an empty one.
func (r alertsResponse) toDomain() []domain.Alert {
	if r.Alerts == nil {
		return []domain.Alert{}
	}
	return r.Alerts
}
