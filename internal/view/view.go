// Package view derives the display model of the console from orchestrator state.
package view

import (
	"strconv"
	"strings"
	"trip-console/internal/domain"
	"trip-console/internal/numfmt"
	"trip-console/internal/services"
)

type View struct {
	Generation  uint64            `json:"generation"`
	Fields      []FieldView       `json:"fields"`
	InputErrors map[string]string `json:"input_errors,omitempty"`
	Plan        PlanView          `json:"plan"`
	Traffic     TrafficView       `json:"traffic"`
	Alerts      AlertsView        `json:"alerts"`
}

type FieldView struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
	Error string `json:"error,omitempty"`
}

// SlotStatus reports whether a request is pending and how the last one failed.
type SlotStatus struct {
	Loading bool   `json:"loading"`
	Failure string `json:"failure,omitempty"`
	Error   string `json:"error,omitempty"`
}

type PlanView struct {
	SlotStatus
	Stops   []StopRow `json:"stops"`
	Summary *Summary  `json:"summary,omitempty"`
}

type StopRow struct {
	Name          string `json:"name"`
	ArriveSoc     string `json:"arrive_soc"`
	EnergyKwh     string `json:"energy_kwh"`
	ChargeMinutes string `json:"charge_minutes"`
	Cost          string `json:"cost"`
}

type Summary struct {
	TotalEnergy string `json:"total_energy"`
	TotalCost   string `json:"total_cost"`
	FinalSoc    string `json:"final_soc"`
}

type TrafficView struct {
	SlotStatus
	Baseline     string `json:"baseline,omitempty"`
	HeavyTraffic string `json:"heavy_traffic,omitempty"`
}

type AlertsView struct {
	SlotStatus
	Items []AlertRow `json:"items"`
}

type AlertRow struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Build formats a state snapshot for display.
func Build(s services.State) View {
	v := View{
		Generation: s.Generation,
		Fields:     make([]FieldView, 0, len(domain.Fields)),
		Plan:       PlanView{SlotStatus: status(s.Plan.Loading, s.Plan.Err), Stops: []StopRow{}},
		Traffic:    TrafficView{SlotStatus: status(s.Simulation.Loading, s.Simulation.Err)},
		Alerts:     AlertsView{SlotStatus: status(s.Alerts.Loading, s.Alerts.Err), Items: []AlertRow{}},
	}

	var fieldErrs map[domain.Field]string
	if s.InputErr != nil {
		fieldErrs = s.InputErr.ByField()
		v.InputErrors = make(map[string]string, len(fieldErrs))
		for k, msg := range fieldErrs {
			v.InputErrors[string(k)] = msg
		}
	}

	for _, f := range domain.Fields {
		v.Fields = append(v.Fields, FieldView{
			Key:   string(f.Key),
			Label: f.Label,
			Value: s.Form[f.Key],
			Error: fieldErrs[f.Key],
		})
	}

	if p := s.Plan.Value; p != nil {
		for _, stop := range p.Stops {
			v.Plan.Stops = append(v.Plan.Stops, StopRow{
				Name:          stop.Name,
				ArriveSoc:     numfmt.Percent(stop.ArriveSoc),
				EnergyKwh:     numfmt.Fixed(stop.EnergyAddedKwh, 2),
				ChargeMinutes: strconv.Itoa(stop.ChargeMinutes),
				Cost:          numfmt.Money(stop.CostUsd),
			})
		}
		v.Plan.Summary = &Summary{
			TotalEnergy: numfmt.Fixed(p.TotalEnergyKwh, 2) + " kWh",
			TotalCost:   numfmt.Money(p.TotalCostUsd),
			FinalSoc:    numfmt.Percent(p.FinalSoc),
		}
	}

	if sim := s.Simulation.Value; sim != nil {
		v.Traffic.Baseline = numfmt.Fixed(sim.Baseline.Route.DurationMin, 1)
		v.Traffic.HeavyTraffic = numfmt.Fixed(sim.HeavyTraffic.Route.DurationMin, 1)
	}

	for _, a := range s.Alerts.Value {
		v.Alerts.Items = append(v.Alerts.Items, AlertRow{Type: strings.ToUpper(a.Type), Message: a.Message})
	}

	return v
}

func status(loading bool, err error) SlotStatus {
	st := SlotStatus{Loading: loading}
	if err != nil {
		st.Failure = services.FailureKind(err)
		st.Error = err.Error()
	}
	return st
}
