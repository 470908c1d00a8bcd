package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planYAML = `
id: 9a4c7f52-3b1d-4e0a-8f6e-2d5b1c9e7a30
name: Snorre A-21
start_date: 2023-03-01
steps:
  - order: 0
    phase: completion
    mode: operating
    season: summer
    duration: 1.5
    emissions:
      primary_unit: 6
      air_transport: 1.5
initiatives:
  - name: Offline cementing
    type: productivity
    contributions:
      0: 0.75
`

func run(t *testing.T, args ...string) string {
	t.Helper()
	asJSON, seriesFlag, unitFlag, startFlag, endFlag = false, "baseline", "", "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	shutdown()
	require.NoError(t, err)
	return out.String()
}

func setupEnv(t *testing.T, driver string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("LOGS_FOLDER", filepath.Join(dir, "logs"))
	t.Setenv("STORE_DRIVER", driver)
	t.Setenv("METRICS_ADDR", "")

	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(planYAML), 0o644))
	return path
}

func TestRecomputeThenQuery(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			path := setupEnv(t, driver)

			out := run(t, "recompute", path)
			assert.Contains(t, out, "Snorre A-21")
			assert.Contains(t, out, "1 PLANS")

			out = run(t, "emissions", "9a4c7f52-3b1d-4e0a-8f6e-2d5b1c9e7a30", "--json")
			var rows []map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &rows))
			require.Len(t, rows, 2)
			assert.Equal(t, "2023-03-01", rows[0]["date"])
			assert.InDelta(t, 5.0, rows[0]["total"], 1e-9)
			assert.InDelta(t, 2.5, rows[1]["total"], 1e-9)

			out = run(t, "reductions", "9a4c7f52-3b1d-4e0a-8f6e-2d5b1c9e7a30")
			assert.Contains(t, out, "Offline cementing")
			assert.Contains(t, out, "0.750")

			out = run(t, "plans", "--json")
			assert.Contains(t, out, `"name": "Snorre A-21"`)
		})
	}
}

func TestEmissionsTable(t *testing.T) {
	path := setupEnv(t, "file")
	run(t, "recompute", path)

	out := run(t, "emissions", "9a4c7f52-3b1d-4e0a-8f6e-2d5b1c9e7a30", "--unit", "hour", "--start", "2023-03-02")

	assert.Contains(t, out, "2023-03-02 11:00")
	assert.NotContains(t, out, "2023-03-01")
	assert.Contains(t, out, "TOTAL")
}
