package emissions

import (
	"slices"

	"github.com/google/uuid"
)

// Bundle holds the decomposed CO2 emission sources of a step, a bucket or an
// aggregated date, in tonnes.
type Bundle struct {
	PrimaryUnit         float64 `json:"primary_unit" yaml:"primary_unit"`
	AuxiliaryUnit       float64 `json:"auxiliary_unit" yaml:"auxiliary_unit"`
	SupportVessels      float64 `json:"support_vessels" yaml:"support_vessels"`
	AirTransport        float64 `json:"air_transport" yaml:"air_transport"`
	Consumables         float64 `json:"consumables" yaml:"consumables"`
	ExternalPowerSupply float64 `json:"external_power_supply" yaml:"external_power_supply"`
}

// Scale multiplies every component by f.
func (b Bundle) Scale(f float64) Bundle {
	return Bundle{
		PrimaryUnit:         b.PrimaryUnit * f,
		AuxiliaryUnit:       b.AuxiliaryUnit * f,
		SupportVessels:      b.SupportVessels * f,
		AirTransport:        b.AirTransport * f,
		Consumables:         b.Consumables * f,
		ExternalPowerSupply: b.ExternalPowerSupply * f,
	}
}

// Add sums two bundles component-wise.
func (b Bundle) Add(o Bundle) Bundle {
	return Bundle{
		PrimaryUnit:         b.PrimaryUnit + o.PrimaryUnit,
		AuxiliaryUnit:       b.AuxiliaryUnit + o.AuxiliaryUnit,
		SupportVessels:      b.SupportVessels + o.SupportVessels,
		AirTransport:        b.AirTransport + o.AirTransport,
		Consumables:         b.Consumables + o.Consumables,
		ExternalPowerSupply: b.ExternalPowerSupply + o.ExternalPowerSupply,
	}
}

// Total is the sum of all components.
func (b Bundle) Total() float64 {
	return b.PrimaryUnit + b.AuxiliaryUnit + b.SupportVessels + b.AirTransport + b.Consumables + b.ExternalPowerSupply
}

// Reduction is the share of a target figure attributed to one emission
// reduction initiative.
type Reduction struct {
	InitiativeID uuid.UUID `json:"id"`
	Type         string    `json:"type"`
	Name         string    `json:"name"`
	Value        float64   `json:"value"`
}

// TargetBundle is a Bundle computed with reduction initiatives applied. It
// carries the per-initiative breakdown alongside the components.
type TargetBundle struct {
	Bundle
	Reductions []Reduction `json:"emission_reduction_initiatives"`
}

// Scale multiplies every component and every reduction value by f.
// Initiative metadata is carried through unchanged.
func (t TargetBundle) Scale(f float64) TargetBundle {
	out := TargetBundle{Bundle: t.Bundle.Scale(f)}
	if len(t.Reductions) > 0 {
		out.Reductions = make([]Reduction, len(t.Reductions))
		for i, r := range t.Reductions {
			r.Value *= f
			out.Reductions[i] = r
		}
	}
	return out
}

// Add sums components and merges reductions by InitiativeID. Initiatives keep
// the order in which they were first seen, receiver first.
func (t TargetBundle) Add(o TargetBundle) TargetBundle {
	out := TargetBundle{
		Bundle:     t.Bundle.Add(o.Bundle),
		Reductions: slices.Clone(t.Reductions),
	}
	for _, r := range o.Reductions {
		idx := slices.IndexFunc(out.Reductions, func(e Reduction) bool { return e.InitiativeID == r.InitiativeID })
		if idx < 0 {
			out.Reductions = append(out.Reductions, r)
			continue
		}
		out.Reductions[idx].Value += r.Value
	}
	return out
}

// Reduce returns the value attributed to the given initiative, or 0.
func (t TargetBundle) Reduce(id uuid.UUID) float64 {
	var v float64
	for _, r := range t.Reductions {
		if r.InitiativeID == id {
			v += r.Value
		}
	}
	return v
}

// Scalable is satisfied by bundle types that support scalar multiplication.
type Scalable[T any] interface {
	Scale(f float64) T
}

// Summable is satisfied by bundle types that support component-wise addition.
type Summable[T any] interface {
	Add(o T) T
}
