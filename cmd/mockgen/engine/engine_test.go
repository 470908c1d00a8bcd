package engine

import (
	"testing"
	"time"

	"emissions-mcp/internal/emissions"
	"emissions-mcp/internal/planning"
	"emissions-mcp/internal/wellplan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Scenarios(t *testing.T) {
	start := time.Date(2023, 9, 20, 0, 0, 0, 0, time.UTC)
	for _, scenario := range Scenarios() {
		for _, dist := range []string{"uniform", "weibull"} {
			t.Run(scenario+"/"+dist, func(t *testing.T) {
				plan, err := Generate(GeneratorConfig{Scenario: scenario, Distribution: dist, Seed: 42, Start: start, Wells: 2})
				require.NoError(t, err)

				assert.Equal(t, wellplan.Planning, plan.State)
				assert.NotEmpty(t, plan.Steps)
				for i, s := range plan.Steps {
					assert.Equal(t, i, s.Order)
					assert.Positive(t, s.Duration)
				}
				assert.Len(t, plan.Initiatives, 2)
			})
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := GeneratorConfig{Scenario: "exploration", Seed: 7, Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}

	a, err := Generate(cfg)
	require.NoError(t, err)
	b, err := Generate(cfg)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestGenerate_UnknownScenario(t *testing.T) {
	_, err := Generate(GeneratorConfig{Scenario: "fracking"})
	assert.Error(t, err)
}

func TestSave_RoundTripsAndBuilds(t *testing.T) {
	plan, err := Generate(GeneratorConfig{Scenario: "plug", Seed: 1, Start: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	path, err := Save(t.TempDir(), plan)
	require.NoError(t, err)

	loaded, err := wellplan.Load(path)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, loaded.ID)
	assert.Equal(t, plan.Steps, loaded.Steps)

	rows, err := planning.BuildRows(loaded)
	require.NoError(t, err)
	assert.Positive(t, rows.Len())

	var built float64
	for _, r := range rows.Baseline[emissions.Day] {
		built += r.Bundle.Total()
	}
	var raw float64
	for _, s := range loaded.Steps {
		raw += s.Emissions.Total()
	}
	raw += loaded.PlanAllocations.Total()
	if alloc, ok := loaded.SeasonAllocations[emissions.Winter]; ok {
		raw += alloc.Total()
	}
	assert.InDelta(t, raw, built, 1e-6)
}
