package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field identifies one editable trip input.
type Field string

const (
	FieldOriginLat   Field = "origin_lat"
	FieldOriginLon   Field = "origin_lon"
	FieldDestLat     Field = "dest_lat"
	FieldDestLon     Field = "dest_lon"
	FieldBatteryKwh  Field = "battery_kwh"
	FieldSocStart    Field = "soc_start"
	FieldSocMin      Field = "soc_min"
	FieldPricePerKwh Field = "price_per_kwh"
)

type FieldSpec struct {
	Key     Field
	Label   string
	Default string
}

// Fields lists the trip inputs in form order.
var Fields = []FieldSpec{
	{Key: FieldOriginLat, Label: "Origin Lat", Default: "11.1085"},
	{Key: FieldOriginLon, Label: "Origin Lon", Default: "77.3411"},
	{Key: FieldDestLat, Label: "Dest Lat", Default: "11.0168"},
	{Key: FieldDestLon, Label: "Dest Lon", Default: "76.9558"},
	{Key: FieldBatteryKwh, Label: "Battery kWh", Default: "40"},
	{Key: FieldSocStart, Label: "Start SOC", Default: "0.8"},
	{Key: FieldSocMin, Label: "Min SOC", Default: "0.1"},
	{Key: FieldPricePerKwh, Label: "$/kWh", Default: "0.16"},
}

// LookupField resolves a raw key to a known Field.
func LookupField(key string) (Field, bool) {
	for _, f := range Fields {
		if string(f.Key) == key {
			return f.Key, true
		}
	}
	return "", false
}

// TripForm holds the raw, user-typed value of every trip input.
// Values are kept verbatim so transient states like "-" or "" survive editing.
type TripForm map[Field]string

// DefaultTripForm returns the form pre-filled with the default trip.
func DefaultTripForm() TripForm {
	form := make(TripForm, len(Fields))
	for _, f := range Fields {
		form[f.Key] = f.Default
	}
	return form
}

func (f TripForm) Clone() TripForm {
	out := make(TripForm, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// TripInput is the parsed, validated form.
type TripInput struct {
	Origin      LatLon
	Destination LatLon
	BatteryKwh  float64
	SocStart    float64
	SocMin      float64
	PricePerKwh float64
}

// FieldError describes why a single raw input was rejected.
type FieldError struct {
	Field Field
	Raw   string
	Msg   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// ValidationError is returned when a form cannot be turned into a request payload.
type ValidationError struct {
	Fields []*FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, fe := range e.Fields {
		msgs = append(msgs, fe.Error())
	}
	return "invalid trip input: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Fields))
	for _, fe := range e.Fields {
		errs = append(errs, fe)
	}
	return errs
}

// ByField indexes the messages by field key.
func (e *ValidationError) ByField() map[Field]string {
	out := make(map[Field]string, len(e.Fields))
	for _, fe := range e.Fields {
		out[fe.Field] = fe.Msg
	}
	return out
}

// Parse coerces every raw field and checks the trip invariants.
// All problems are reported at once through a *ValidationError.
func (f TripForm) Parse() (TripInput, error) {
	var verr ValidationError

	num := func(key Field) float64 {
		raw := f[key]
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			verr.Fields = append(verr.Fields, &FieldError{Field: key, Raw: raw, Msg: "must be a number"})
			return math.NaN()
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			verr.Fields = append(verr.Fields, &FieldError{Field: key, Raw: raw, Msg: "must be a finite number"})
			return math.NaN()
		}
		return v
	}

	in := TripInput{
		Origin:      LatLon{Lat: num(FieldOriginLat), Lon: num(FieldOriginLon)},
		Destination: LatLon{Lat: num(FieldDestLat), Lon: num(FieldDestLon)},
		BatteryKwh:  num(FieldBatteryKwh),
		SocStart:    num(FieldSocStart),
		SocMin:      num(FieldSocMin),
		PricePerKwh: num(FieldPricePerKwh),
	}

	// Range checks only apply to values that parsed; NaN fails every comparison.
	check := func(key Field, v float64, ok bool, msg string) {
		if math.IsNaN(v) || ok {
			return
		}
		verr.Fields = append(verr.Fields, &FieldError{Field: key, Raw: f[key], Msg: msg})
	}

	check(FieldOriginLat, in.Origin.Lat, in.Origin.Lat >= -90 && in.Origin.Lat <= 90, "must be between -90 and 90")
	check(FieldOriginLon, in.Origin.Lon, in.Origin.Lon >= -180 && in.Origin.Lon <= 180, "must be between -180 and 180")
	check(FieldDestLat, in.Destination.Lat, in.Destination.Lat >= -90 && in.Destination.Lat <= 90, "must be between -90 and 90")
	check(FieldDestLon, in.Destination.Lon, in.Destination.Lon >= -180 && in.Destination.Lon <= 180, "must be between -180 and 180")
	check(FieldBatteryKwh, in.BatteryKwh, in.BatteryKwh > 0, "must be greater than 0")
	check(FieldSocStart, in.SocStart, in.SocStart >= 0 && in.SocStart <= 1, "must be between 0 and 1")
	check(FieldSocMin, in.SocMin, in.SocMin >= 0 && in.SocMin <= 1, "must be between 0 and 1")
	check(FieldPricePerKwh, in.PricePerKwh, in.PricePerKwh >= 0, "must not be negative")

	if !math.IsNaN(in.SocStart) && !math.IsNaN(in.SocMin) && in.SocStart <= in.SocMin {
		verr.Fields = append(verr.Fields, &FieldError{
			Field: FieldSocStart,
			Raw:   f[FieldSocStart],
			Msg:   "must be greater than " + string(FieldSocMin),
		})
	}

	if len(verr.Fields) > 0 {
		return TripInput{}, &verr
	}
	return in, nil
}

// TripRequest is the payload shared by the plan, simulate and alerts calls.
type TripRequest struct {
	Origin      LatLon      `json:"origin"`
	Destination LatLon      `json:"destination"`
	PricePerKwh float64     `json:"price_per_kwh"`
	Vehicle     VehicleSpec `json:"vehicle"`
}

type VehicleSpec struct {
	BatteryKwh float64 `json:"battery_kwh"`
	SocStart   float64 `json:"soc_start"`
	SocMin     float64 `json:"soc_min"`
}

func (in TripInput) Request() TripRequest {
	return TripRequest{
		Origin:      in.Origin,
		Destination: in.Destination,
		PricePerKwh: in.PricePerKwh,
		Vehicle: VehicleSpec{
			BatteryKwh: in.BatteryKwh,
			SocStart:   in.SocStart,
			SocMin:     in.SocMin,
		},
	}
}
