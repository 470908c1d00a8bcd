package emissions

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_SumsSharedBucket(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	rows := []Row[Bundle]{
		{StepID: a, Datetime: time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC), Bundle: sampleBundle.Scale(0.25)},
		{StepID: b, Datetime: time.Date(2022, 1, 2, 6, 0, 0, 0, time.UTC), Bundle: sampleBundle.Scale(0.75)},
	}

	got := Aggregate(rows, Day, nil)

	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC), got[0].Date)
	assertBundleInDelta(t, sampleBundle, got[0].Bundle)
}

func TestAggregate_HourKeysAreExactHours(t *testing.T) {
	rows := []Row[Bundle]{
		{Datetime: time.Date(2022, 6, 1, 8, 0, 0, 0, time.UTC), Bundle: Bundle{PrimaryUnit: 1}},
		{Datetime: time.Date(2022, 6, 1, 5, 15, 0, 0, time.UTC), Bundle: Bundle{PrimaryUnit: 2}},
		{Datetime: time.Date(2022, 6, 1, 5, 45, 0, 0, time.UTC), Bundle: Bundle{PrimaryUnit: 3}},
	}

	got := Aggregate(rows, Hour, nil)

	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2022, 6, 1, 5, 0, 0, 0, time.UTC), got[0].Date)
	assert.InDelta(t, 5.0, got[0].Bundle.PrimaryUnit, tolerance)
	assert.Equal(t, time.Date(2022, 6, 1, 8, 0, 0, 0, time.UTC), got[1].Date)
}

func TestAggregate_WindowFilter(t *testing.T) {
	rows, err := Build[Bundle](planStart, testSteps(), Planned, Day, durationCalculator)
	require.NoError(t, err)

	window := NewWindow(time.Date(2022, 1, 2, 12, 0, 0, 0, time.UTC), time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC), Day)
	got := Aggregate(rows, Day, &window)

	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC), got[0].Date)
	assert.Equal(t, time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC), got[1].Date)
	// Jan 2 holds 0.25d of step 0 and 0.75d of step 1, both whole buckets.
	assertBundleInDelta(t, sampleBundle, got[0].Bundle)
}

func TestAggregate_ConservesTotals(t *testing.T) {
	rows, err := Build[Bundle](planStart, testSteps(), Planned, Hour, durationCalculator)
	require.NoError(t, err)

	hourly := Aggregate(rows, Hour, nil)
	daily := Aggregate(rows, Day, nil)

	var hourTotal, dayTotal float64
	for _, r := range hourly {
		hourTotal += r.Bundle.Total()
	}
	for _, r := range daily {
		dayTotal += r.Bundle.Total()
	}

	assert.InDelta(t, sampleBundle.Total()*4.15, hourTotal, 1e-6)
	assert.InDelta(t, hourTotal, dayTotal, 1e-6)
	assert.Len(t, daily, 5)
}

func TestAggregate_TargetReductions(t *testing.T) {
	id := uuid.New()
	rows := []Row[TargetBundle]{
		{Datetime: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), Bundle: TargetBundle{Reductions: []Reduction{{InitiativeID: id, Value: 1}}}},
		{Datetime: time.Date(2022, 1, 1, 12, 0, 0, 0, time.UTC), Bundle: TargetBundle{Reductions: []Reduction{{InitiativeID: id, Value: 2}}}},
	}

	got := Aggregate(rows, Day, nil)

	require.Len(t, got, 1)
	assert.InDelta(t, 3.0, got[0].Bundle.Reduce(id), tolerance)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate[Bundle](nil, Day, nil))
}

func TestFlatten_JSONShape(t *testing.T) {
	rows := []AggregatedRow[TargetBundle]{
		{Date: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), Bundle: TargetBundle{Bundle: Bundle{PrimaryUnit: 1.5, Consumables: 0.5}}},
	}

	out, err := json.Marshal(Flatten(rows, Day))
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "2022-01-01", decoded[0]["date"])
	assert.InDelta(t, 1.5, decoded[0]["primary_unit"], tolerance)
	assert.InDelta(t, 2.0, decoded[0]["total"], tolerance)
	assert.Contains(t, decoded[0], "external_power_supply")
}
