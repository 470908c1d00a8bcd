package emissions

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var planStart = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

func testSteps() []Step {
	return []Step{
		{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Order: 1, Season: Winter, Duration: 2.5, ImprovedDuration: 2},
		{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Order: 0, Season: Summer, Duration: 1.25},
		{ID: uuid.MustParse("00000000-0000-0000-0000-000000000003"), Order: 2, Season: Winter, Duration: 0.4, ImprovedDuration: 0.3},
	}
}

// durationCalculator returns sampleBundle scaled by the step's planned duration.
var durationCalculator = CalculatorFunc[Bundle](func(step Step, sc StepContext) (Bundle, error) {
	return sampleBundle.Scale(step.Duration), nil
})

func sumForStep[T Summable[T]](rows []Row[T], id uuid.UUID, zero T) T {
	sum := zero
	for _, r := range rows {
		if r.StepID == id {
			sum = sum.Add(r.Bundle)
		}
	}
	return sum
}

func TestBuild_Conservation(t *testing.T) {
	for _, unit := range []Unit{Day, Hour} {
		t.Run(string(unit), func(t *testing.T) {
			rows, err := Build[Bundle](planStart, testSteps(), Planned, unit, durationCalculator)
			require.NoError(t, err)

			for _, s := range testSteps() {
				assertBundleInDelta(t, sampleBundle.Scale(s.Duration), sumForStep(rows, s.ID, Bundle{}))
			}
		})
	}
}

func TestBuild_OrdersByStepOrder(t *testing.T) {
	rows, err := Build[Bundle](planStart, testSteps(), Planned, Day, durationCalculator)
	require.NoError(t, err)

	// step 0: 1.25d -> Jan 1 (1.0), Jan 2 (0.25)
	// step 1: 2.5d from 1.25 -> Jan 2 (0.75), Jan 3 (1.0), Jan 4 (0.75)
	// step 2: 0.4d from 3.75 -> Jan 4 (0.25), Jan 5 (0.15)
	require.Len(t, rows, 7)
	wantSteps := []string{"1", "1", "2", "2", "2", "3", "3"}
	for i, r := range rows {
		assert.Equal(t, "00000000-0000-0000-0000-00000000000"+wantSteps[i], r.StepID.String(), "row %d", i)
		if i > 0 {
			assert.False(t, r.Datetime.Before(rows[i-1].Datetime), "rows must be time-ordered")
		}
	}

	assert.Equal(t, time.Date(2022, 1, 2, 6, 0, 0, 0, time.UTC), rows[2].Datetime)
	assert.InDelta(t, sampleBundle.PrimaryUnit*0.75, rows[2].Bundle.PrimaryUnit, tolerance)
	assert.Equal(t, time.Date(2022, 1, 5, 0, 0, 0, 0, time.UTC), rows[6].Datetime)
}

func TestBuild_RateThenScale(t *testing.T) {
	steps := []Step{{ID: uuid.New(), Order: 0, Season: Summer, Duration: 3.5 / 24}}
	start := time.Date(2022, 6, 1, 5, 15, 0, 0, time.UTC)
	total := Bundle{PrimaryUnit: 7}
	calc := CalculatorFunc[Bundle](func(Step, StepContext) (Bundle, error) { return total, nil })

	rows, err := Build[Bundle](start, steps, Planned, Hour, calc)
	require.NoError(t, err)

	require.Len(t, rows, 4)
	// 7 tonnes over 3.5 hours is 2 t/h.
	assert.InDelta(t, 1.5, rows[0].Bundle.PrimaryUnit, tolerance)
	assert.InDelta(t, 2.0, rows[1].Bundle.PrimaryUnit, tolerance)
	assert.InDelta(t, 2.0, rows[2].Bundle.PrimaryUnit, tolerance)
	assert.InDelta(t, 1.5, rows[3].Bundle.PrimaryUnit, tolerance)
}

func TestBuild_ImprovedDurations(t *testing.T) {
	var seen []float64
	calc := CalculatorFunc[Bundle](func(step Step, sc StepContext) (Bundle, error) {
		seen = append(seen, step.DurationOf(Improved))
		return sampleBundle, nil
	})

	rows, err := Build[Bundle](planStart, testSteps(), Improved, Day, calc)
	require.NoError(t, err)

	assert.Equal(t, []float64{1.25, 2, 0.3}, seen)
	last := rows[len(rows)-1]
	// 1.25 + 2 = 3.25 elapsed, 0.3 long -> ends inside Jan 4.
	assert.Equal(t, time.Date(2022, 1, 4, 6, 0, 0, 0, time.UTC), last.Datetime)
}

func TestBuild_PassesTotalsAndStart(t *testing.T) {
	var contexts []StepContext
	calc := CalculatorFunc[Bundle](func(step Step, sc StepContext) (Bundle, error) {
		contexts = append(contexts, sc)
		return Bundle{}, nil
	})

	_, err := Build[Bundle](planStart, testSteps(), Planned, Day, calc)
	require.NoError(t, err)

	require.Len(t, contexts, 3)
	assert.InDelta(t, 4.15, contexts[0].Totals.Duration, tolerance)
	assert.InDelta(t, 1.25, contexts[0].Totals.Seasons[Summer], tolerance)
	assert.InDelta(t, 2.9, contexts[0].Totals.Seasons[Winter], tolerance)
	assert.Equal(t, planStart, contexts[0].Start)
	assert.Equal(t, time.Date(2022, 1, 2, 6, 0, 0, 0, time.UTC), contexts[1].Start)
	assert.Equal(t, time.Date(2022, 1, 4, 18, 0, 0, 0, time.UTC), contexts[2].Start)
}

func TestBuild_TargetRowsScaleReductions(t *testing.T) {
	initiative := uuid.New()
	calc := CalculatorFunc[TargetBundle](func(step Step, sc StepContext) (TargetBundle, error) {
		return TargetBundle{
			Bundle:     sampleBundle,
			Reductions: []Reduction{{InitiativeID: initiative, Type: "productivity", Name: "Batch drilling", Value: 10}},
		}, nil
	})

	rows, err := Build[TargetBundle](planStart, testSteps(), Improved, Hour, calc)
	require.NoError(t, err)

	for _, s := range testSteps() {
		sum := sumForStep(rows, s.ID, TargetBundle{})
		assert.InDelta(t, 10.0, sum.Reduce(initiative), tolerance)
		assertBundleInDelta(t, sampleBundle, sum.Bundle)
		require.Len(t, sum.Reductions, 1)
		assert.Equal(t, "Batch drilling", sum.Reductions[0].Name)
	}
}

func TestBuild_EmptySteps(t *testing.T) {
	rows, err := Build[Bundle](planStart, nil, Planned, Day, durationCalculator)

	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBuild_NonPositiveDuration(t *testing.T) {
	called := false
	calc := CalculatorFunc[Bundle](func(Step, StepContext) (Bundle, error) {
		called = true
		return Bundle{}, nil
	})
	steps := append(testSteps(), Step{ID: uuid.New(), Order: 3, Season: Summer, Duration: 0})

	rows, err := Build[Bundle](planStart, steps, Planned, Day, calc)

	assert.ErrorIs(t, err, ErrNonPositiveDuration)
	assert.Nil(t, rows)
	assert.False(t, called, "calculator must not run when a duration is invalid")
}

func TestBuild_InfiniteDuration(t *testing.T) {
	steps := []Step{{ID: uuid.New(), Order: 0, Season: Summer, Duration: math.Inf(1)}}

	rows, err := Build[Bundle](planStart, steps, Planned, Hour, CalculatorFunc[Bundle](func(Step, StepContext) (Bundle, error) { return Bundle{PrimaryUnit: 1}, nil }))

	assert.ErrorIs(t, err, ErrNonPositiveDuration)
	assert.Nil(t, rows)
}

func TestBuild_CalculatorError(t *testing.T) {
	boom := errors.New("boom")
	calc := CalculatorFunc[Bundle](func(Step, StepContext) (Bundle, error) { return Bundle{}, boom })

	rows, err := Build[Bundle](planStart, testSteps(), Planned, Day, calc)

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, rows)
}

func TestBuild_Idempotent(t *testing.T) {
	first, err := Build[Bundle](planStart, testSteps(), Planned, Hour, durationCalculator)
	require.NoError(t, err)
	second, err := Build[Bundle](planStart, testSteps(), Planned, Hour, durationCalculator)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuild_DoesNotReorderInput(t *testing.T) {
	steps := testSteps()

	_, err := Build[Bundle](planStart, steps, Planned, Day, durationCalculator)
	require.NoError(t, err)

	assert.Equal(t, 1, steps[0].Order)
}
