package wellplan

import (
	"fmt"

	"emissions-mcp/internal/emissions"
)

// BaselineCalculator computes a step's total emissions as if no reduction
// initiative were applied: the step's raw totals plus its share of the
// seasonal and plan-wide allocations, using planned durations.
type BaselineCalculator struct {
	Plan *Plan
}

// Calculate implements emissions.Calculator.
func (c BaselineCalculator) Calculate(step emissions.Step, sc emissions.StepContext) (emissions.Bundle, error) {
	ps, ok := c.Plan.step(step.ID)
	if !ok {
		return emissions.Bundle{}, fmt.Errorf("step %s is not part of plan %s", step.ID, c.Plan.ID)
	}
	total := ps.Emissions.Add(c.Plan.allocated(step, emissions.Planned, sc.Totals))
	return total, nil
}

// TargetCalculator computes a step's total emissions with the improved
// duration and attributes each deployed initiative's contribution.
type TargetCalculator struct {
	Plan *Plan
}

// Calculate implements emissions.Calculator.
func (c TargetCalculator) Calculate(step emissions.Step, sc emissions.StepContext) (emissions.TargetBundle, error) {
	ps, ok := c.Plan.step(step.ID)
	if !ok {
		return emissions.TargetBundle{}, fmt.Errorf("step %s is not part of plan %s", step.ID, c.Plan.ID)
	}

	improved := ps.Emissions.Scale(step.DurationOf(emissions.Improved) / step.Duration)
	if ps.ImprovedEmissions != nil {
		improved = *ps.ImprovedEmissions
	}

	out := emissions.TargetBundle{
		Bundle: improved.Add(c.Plan.allocated(step, emissions.Improved, sc.Totals)),
	}

	for _, in := range c.Plan.Initiatives {
		value, ok := in.Contributions[ps.Order]
		if !ok {
			continue
		}
		// Deployment is gated per step: an initiative deployed after the
		// step starts counts from the next step onward.
		if in.DeploymentDate != nil && in.DeploymentDate.After(sc.Start) {
			continue
		}
		out.Reductions = append(out.Reductions, emissions.Reduction{
			InitiativeID: in.ID,
			Type:         in.Type,
			Name:         in.Name,
			Value:        value,
		})
	}

	return out, nil
}

// allocated returns the step's share of the seasonal and plan-wide
// allocations, proportional to its duration over the matching total.
func (p *Plan) allocated(step emissions.Step, kind emissions.DurationKind, totals emissions.PlanTotals) emissions.Bundle {
	var share emissions.Bundle
	duration := step.DurationOf(kind)

	if alloc, ok := p.SeasonAllocations[step.Season]; ok {
		if seasonTotal := totals.Seasons[step.Season]; seasonTotal > 0 {
			share = share.Add(alloc.Scale(duration / seasonTotal))
		}
	}
	if p.PlanAllocations != nil && totals.Duration > 0 {
		share = share.Add(p.PlanAllocations.Scale(duration / totals.Duration))
	}

	return share
}
