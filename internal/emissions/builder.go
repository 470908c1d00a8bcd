package emissions

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Row is one persisted bucket of one step.
type Row[T any] struct {
	StepID   uuid.UUID `json:"step_id"`
	Datetime time.Time `json:"datetime"`
	Bundle   T         `json:"bundle"`
}

// Build prorates every step's calculated bundle over calendar buckets.
//
// Steps are processed in ascending Order. For each step the calculator's
// total is converted into a per-unit rate (total / duration in units), the
// step is split starting at the running elapsed offset, and each bucket gets
// the rate scaled by its duration. The rows for a step sum back to its total.
//
// All durations are checked before the calculator is called, so an error
// never leaves a partial result.
func Build[T Scalable[T]](start time.Time, steps []Step, kind DurationKind, unit Unit, calc Calculator[T]) ([]Row[T], error) {
	ordered := SortSteps(steps)
	for _, s := range ordered {
		if d := s.DurationOf(kind); !(d > 0) || math.IsInf(d, 1) {
			return nil, fmt.Errorf("step %d (%s): %w", s.Order, s.ID, ErrNonPositiveDuration)
		}
	}

	totals := PlanTotalsFor(ordered, kind)
	rows := make([]Row[T], 0, len(ordered))
	elapsed := 0.0

	for _, s := range ordered {
		duration := s.DurationOf(kind)
		sc := StepContext{
			Totals: totals,
			Start:  start.UTC().Add(fromUnits(elapsed, Day.Length())),
		}

		total, err := calc.Calculate(s, sc)
		if err != nil {
			return nil, fmt.Errorf("calculate step %d (%s): %w", s.Order, s.ID, err)
		}

		rate := total.Scale(1 / (duration * unit.PerDay()))
		for b := range Split(start, elapsed, duration, unit) {
			rows = append(rows, Row[T]{
				StepID:   s.ID,
				Datetime: b.Start,
				Bundle:   rate.Scale(b.Duration),
			})
		}

		elapsed += duration
	}

	return rows, nil
}
