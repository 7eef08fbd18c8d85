package domain

// Represents a single charging stop along a planned route.
// A ChargeStop has no lifecycle of its own; it belongs to its RoutePlan.
type ChargeStop struct {
	Name           string  `json:"name"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	ArriveSoc      float64 `json:"arrive_soc"`
	EnergyAddedKwh float64 `json:"energy_added_kwh"`
	ChargeMinutes  int     `json:"charge_minutes"`
	CostUsd        float64 `json:"cost_usd"`
}

func (s ChargeStop) Position() LatLon { return LatLon{Lat: s.Lat, Lon: s.Lon} }

type Route struct {
	Geometry []LatLon `json:"geometry"`
}

// Represents the plan returned by the remote planner for one trip request.
// It is immutable once received and is replaced wholesale by the next
// successful plan, never merged.
type RoutePlan struct {
	Route          Route        `json:"route"`
	Stops          []ChargeStop `json:"stops"`
	TotalEnergyKwh float64      `json:"total_energy_kwh"`
	TotalCostUsd   float64      `json:"total_cost_usd"`
	FinalSoc       float64      `json:"final_soc"`
}
