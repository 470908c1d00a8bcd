package emissions

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ErrNonPositiveDuration is returned when a step cannot be prorated because
// its duration is zero, negative or not finite.
var ErrNonPositiveDuration = errors.New("step duration must be positive and finite")

// Season selects the seasonal divisor a step contributes to.
type Season string

const (
	Summer Season = "summer"
	Winter Season = "winter"
)

// Valid reports whether s is a known season.
func (s Season) Valid() bool {
	return s == Summer || s == Winter
}

// DurationKind selects which of a step's durations drives the proration.
type DurationKind int

const (
	// Planned uses Step.Duration (baseline figures).
	Planned DurationKind = iota
	// Improved uses Step.ImprovedDuration (target figures).
	Improved
)

func (k DurationKind) String() string {
	if k == Improved {
		return "improved"
	}
	return "planned"
}

// Step is one scheduled phase/mode segment of a well plan. Durations are in
// fractional days.
type Step struct {
	ID               uuid.UUID `json:"id"`
	Order            int       `json:"order"`
	Phase            string    `json:"phase"`
	Mode             string    `json:"mode"`
	Season           Season    `json:"season"`
	Duration         float64   `json:"duration"`
	ImprovedDuration float64   `json:"improved_duration"`
}

// DurationOf returns the step duration for the given kind. An unset improved
// duration falls back to the planned one.
func (s Step) DurationOf(kind DurationKind) float64 {
	if kind == Improved && s.ImprovedDuration > 0 {
		return s.ImprovedDuration
	}
	return s.Duration
}

// SortSteps returns a copy of steps ordered by Order. Ties keep their input
// order.
func SortSteps(steps []Step) []Step {
	sorted := slices.Clone(steps)
	slices.SortStableFunc(sorted, func(a, b Step) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return sorted
}

// PlanTotals is the plan-wide divisor context handed to a Calculator.
type PlanTotals struct {
	Duration float64            `json:"duration"`
	Seasons  map[Season]float64 `json:"seasons"`
}

// PlanTotalsFor sums step durations of the given kind overall and per season.
func PlanTotalsFor(steps []Step, kind DurationKind) PlanTotals {
	totals := PlanTotals{Seasons: make(map[Season]float64)}
	for _, s := range steps {
		d := s.DurationOf(kind)
		totals.Duration += d
		totals.Seasons[s.Season] += d
	}
	return totals
}

// StepContext is what a Calculator knows about a step beyond the step itself.
type StepContext struct {
	Totals PlanTotals
	// Start is the absolute instant the step begins.
	Start time.Time
}

// Calculator produces the raw emission bundle for an entire step.
type Calculator[T any] interface {
	Calculate(step Step, sc StepContext) (T, error)
}

// CalculatorFunc adapts a function to the Calculator interface.
type CalculatorFunc[T any] func(step Step, sc StepContext) (T, error)

func (f CalculatorFunc[T]) Calculate(step Step, sc StepContext) (T, error) {
	return f(step, sc)
}
