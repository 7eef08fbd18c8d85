package domain

// Traffic simulation for a trip request: the same route timed under
// baseline and heavy-traffic conditions.
type SimulationResult struct {
	Baseline     Scenario `json:"baseline"`
	HeavyTraffic Scenario `json:"heavyTraffic"`
}

type Scenario struct {
	Route ScenarioRoute `json:"route"`
}

type ScenarioRoute struct {
	DurationMin float64 `json:"duration_min"`
}

// Advisory message attached to a planning cycle. Type is a category tag.
type Alert struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
