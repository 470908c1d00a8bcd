// Package storetest holds the behaviour shared by every store.Store
// implementation, run from each implementation's tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"emissions-mcp/internal/emissions"
	"emissions-mcp/internal/store"
	"emissions-mcp/internal/wellplan"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Plan returns a minimal valid plan with a fresh ID.
func Plan(name string) *wellplan.Plan {
	return &wellplan.Plan{
		ID:        uuid.New(),
		Name:      name,
		StartDate: wellplan.NewDate(2022, time.January, 1),
		State:     wellplan.Planning,
		Steps: []wellplan.PlanStep{
			{ID: uuid.New(), Order: 0, Phase: "drilling", Mode: "operating", Season: emissions.Winter, Duration: 1.5,
				Emissions: emissions.Bundle{PrimaryUnit: 3}},
		},
	}
}

// Rows returns a small row set for plan covering both series and units.
func Rows(plan *wellplan.Plan, scale float64) store.RowSet {
	step := plan.Steps[0].ID
	d0 := plan.Start()
	initiative := uuid.New()

	rs := store.NewRowSet()
	rs.Baseline[emissions.Day] = []emissions.Row[emissions.Bundle]{
		{StepID: step, Datetime: d0, Bundle: emissions.Bundle{PrimaryUnit: 2 * scale, Consumables: 0.25}},
		{StepID: step, Datetime: d0.AddDate(0, 0, 1), Bundle: emissions.Bundle{PrimaryUnit: 1 * scale}},
	}
	rs.Baseline[emissions.Hour] = []emissions.Row[emissions.Bundle]{
		{StepID: step, Datetime: d0.Add(time.Hour), Bundle: emissions.Bundle{AirTransport: scale}},
	}
	rs.Target[emissions.Day] = []emissions.Row[emissions.TargetBundle]{
		{StepID: step, Datetime: d0, Bundle: emissions.TargetBundle{
			Bundle: emissions.Bundle{PrimaryUnit: scale},
			Reductions: []emissions.Reduction{
				{InitiativeID: initiative, Type: "power_systems", Name: "Shore power", Value: 0.5 * scale},
				{InitiativeID: uuid.New(), Type: "productivity", Name: "Batch drilling", Value: 0.125},
			},
		}},
	}
	return rs
}

// ManyTargetRows returns n consecutive hourly target rows. Row i has
// PrimaryUnit i and, cycling by i%3, no reduction, a Shore power reduction
// of i/10, or a batch drilling reduction of i/100 followed by Shore power.
func ManyTargetRows(plan *wellplan.Plan, n int, shore, batch uuid.UUID) []emissions.Row[emissions.TargetBundle] {
	step := plan.Steps[0].ID
	rows := make([]emissions.Row[emissions.TargetBundle], n)
	for i := range n {
		var reductions []emissions.Reduction
		switch i % 3 {
		case 1:
			reductions = []emissions.Reduction{
				{InitiativeID: shore, Type: "power_systems", Name: "Shore power", Value: float64(i) / 10},
			}
		case 2:
			reductions = []emissions.Reduction{
				{InitiativeID: batch, Type: "productivity", Name: "Batch drilling", Value: float64(i) / 100},
				{InitiativeID: shore, Type: "power_systems", Name: "Shore power", Value: 1},
			}
		}
		rows[i] = emissions.Row[emissions.TargetBundle]{
			StepID:   step,
			Datetime: plan.Start().Add(time.Duration(i) * time.Hour),
			Bundle: emissions.TargetBundle{
				Bundle:     emissions.Bundle{PrimaryUnit: float64(i)},
				Reductions: reductions,
			},
		}
	}
	return rows
}

// Opener returns a store rooted at dir. Opening the same dir twice must see
// the same data.
type Opener func(t *testing.T, dir string) store.Store

// Run exercises a store.Store implementation.
func Run(t *testing.T, open Opener) {
	ctx := context.Background()

	t.Run("GetUnknownPlan", func(t *testing.T) {
		dir := t.TempDir()
		s := open(t, dir)
		_, err := s.GetPlan(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.BaselineRows(ctx, uuid.New(), emissions.Day)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("SaveAndGetPlan", func(t *testing.T) {
		dir := t.TempDir()
		s := open(t, dir)
		plan := Plan("Alpha")
		require.NoError(t, s.SavePlan(ctx, plan))

		got, err := s.GetPlan(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, plan.Name, got.Name)
		assert.Equal(t, plan.Steps, got.Steps)
		assert.True(t, plan.Start().Equal(got.Start()))
	})

	t.Run("ListPlans", func(t *testing.T) {
		dir := t.TempDir()
		s := open(t, dir)
		require.NoError(t, s.SavePlan(ctx, Plan("Bravo")))
		require.NoError(t, s.SavePlan(ctx, Plan("Alpha")))

		plans, err := s.ListPlans(ctx)
		require.NoError(t, err)
		require.Len(t, plans, 2)
		assert.Equal(t, "Alpha", plans[0].Name)
		assert.Equal(t, wellplan.Planning, plans[0].State)
	})

	t.Run("ReplaceRows", func(t *testing.T) {
		dir := t.TempDir()
		s := open(t, dir)
		plan := Plan("Alpha")
		require.NoError(t, s.SavePlan(ctx, plan))
		first := Rows(plan, 1)
		require.NoError(t, s.ReplacePlanRows(ctx, plan.ID, first))

		second := Rows(plan, 2)
		second.Baseline[emissions.Day] = second.Baseline[emissions.Day][:1]
		require.NoError(t, s.ReplacePlanRows(ctx, plan.ID, second))

		daily, err := s.BaselineRows(ctx, plan.ID, emissions.Day)
		require.NoError(t, err)
		require.Len(t, daily, 1)
		assert.InDelta(t, 4.0, daily[0].Bundle.PrimaryUnit, 1e-12)
		assert.True(t, plan.Start().Equal(daily[0].Datetime))

		target, err := s.TargetRows(ctx, plan.ID, emissions.Day)
		require.NoError(t, err)
		require.Len(t, target, 1)
		require.Len(t, target[0].Bundle.Reductions, 2)
		assert.Equal(t, "Shore power", target[0].Bundle.Reductions[0].Name)
		assert.InDelta(t, 1.0, target[0].Bundle.Reductions[0].Value, 1e-12)
		assert.Equal(t, "Batch drilling", target[0].Bundle.Reductions[1].Name)

		hourly, err := s.TargetRows(ctx, plan.ID, emissions.Hour)
		require.NoError(t, err)
		assert.Empty(t, hourly)
	})

	t.Run("ManyRowsKeepReductions", func(t *testing.T) {
		dir := t.TempDir()
		s := open(t, dir)
		plan := Plan("Alpha")
		require.NoError(t, s.SavePlan(ctx, plan))

		const n = 1200
		shore, batch := uuid.New(), uuid.New()
		rs := store.NewRowSet()
		rs.Target[emissions.Hour] = ManyTargetRows(plan, n, shore, batch)
		require.NoError(t, s.ReplacePlanRows(ctx, plan.ID, rs))

		got, err := s.TargetRows(ctx, plan.ID, emissions.Hour)
		require.NoError(t, err)
		require.Len(t, got, n)
		for i, r := range got {
			assert.InDelta(t, float64(i), r.Bundle.PrimaryUnit, 1e-12, "row %d", i)
			switch i % 3 {
			case 0:
				assert.Empty(t, r.Bundle.Reductions, "row %d", i)
			case 1:
				require.Len(t, r.Bundle.Reductions, 1, "row %d", i)
				assert.Equal(t, shore, r.Bundle.Reductions[0].InitiativeID)
				assert.InDelta(t, float64(i)/10, r.Bundle.Reductions[0].Value, 1e-12, "row %d", i)
			case 2:
				require.Len(t, r.Bundle.Reductions, 2, "row %d", i)
				assert.Equal(t, batch, r.Bundle.Reductions[0].InitiativeID)
				assert.Equal(t, shore, r.Bundle.Reductions[1].InitiativeID)
				assert.InDelta(t, float64(i)/100, r.Bundle.Reductions[0].Value, 1e-12, "row %d", i)
			}
		}
	})

	t.Run("ReplaceRowsUnknownPlan", func(t *testing.T) {
		dir := t.TempDir()
		s := open(t, dir)
		err := s.ReplacePlanRows(ctx, uuid.New(), store.NewRowSet())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("SavePlanKeepsRows", func(t *testing.T) {
		dir := t.TempDir()
		s := open(t, dir)
		plan := Plan("Alpha")
		require.NoError(t, s.SavePlan(ctx, plan))
		require.NoError(t, s.ReplacePlanRows(ctx, plan.ID, Rows(plan, 1)))

		plan.State = wellplan.Review
		require.NoError(t, s.SavePlan(ctx, plan))

		got, err := s.GetPlan(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, wellplan.Review, got.State)
		rows, err := s.BaselineRows(ctx, plan.ID, emissions.Day)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("Persistence", func(t *testing.T) {
		dir := t.TempDir()
		s := open(t, dir)
		plan := Plan("Alpha")
		require.NoError(t, s.SavePlan(ctx, plan))
		require.NoError(t, s.ReplacePlanRows(ctx, plan.ID, Rows(plan, 1)))
		require.NoError(t, s.Close())

		reopened := open(t, dir)
		rows, err := reopened.BaselineRows(ctx, plan.ID, emissions.Hour)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.InDelta(t, 1.0, rows[0].Bundle.AirTransport, 1e-12)
		assert.True(t, plan.Start().Add(time.Hour).Equal(rows[0].Datetime))
	})
}
