package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"emissions-mcp/internal/planning"
	"emissions-mcp/internal/store/filestore"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planYAML = `
id: 0b6f3f0e-54f4-4c6a-9a57-6a3c1f3b2d10
name: Johan Sverdrup P4
start_date: 2022-01-01
steps:
  - order: 0
    phase: drilling
    mode: operating
    season: winter
    duration: 2.5
    improved_duration: 2
    emissions:
      primary_unit: 10
initiatives:
  - name: Shore power
    type: power_systems
    contributions:
      0: 3
`

const planID = "0b6f3f0e-54f4-4c6a-9a57-6a3c1f3b2d10"

func connect(t *testing.T, opts Options) *mcpsdk.ClientSession {
	t.Helper()

	fs, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	srv := NewServer(planning.NewService(fs), opts)

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		<-serverDone
	})
	return session
}

func call(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	return res
}

func text(t *testing.T, res *mcpsdk.CallToolResult, i int) string {
	t.Helper()
	require.Greater(t, len(res.Content), i)
	tc, ok := res.Content[i].(*mcpsdk.TextContent)
	require.True(t, ok, "content %d is %T", i, res.Content[i])
	return tc.Text
}

func loadPlan(t *testing.T, session *mcpsdk.ClientSession) {
	t.Helper()
	res := call(t, session, ToolNameLoadPlan, map[string]any{"document": planYAML})
	require.False(t, res.IsError, text(t, res, 0))
}

func TestServer_ListTools(t *testing.T) {
	session := connect(t, Options{})

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}
	assert.ElementsMatch(t, []string{
		ToolNameLoadPlan, ToolNameListPlans, ToolNameGetPlan,
		ToolNameRecompute, ToolNameEmissions, ToolNameReductions,
	}, names)
}

func TestServer_LoadPlanFromFile(t *testing.T) {
	session := connect(t, Options{})
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(planYAML), 0o644))

	res := call(t, session, ToolNameLoadPlan, map[string]any{"path": path})
	require.False(t, res.IsError, text(t, res, 0))

	var out struct {
		PlanID     string `json:"plan_id"`
		Recomputed struct {
			Total int `json:"total"`
		} `json:"recomputed"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res, 0)), &out))
	assert.Equal(t, planID, out.PlanID)
	assert.Positive(t, out.Recomputed.Total)
}

func TestServer_LoadPlanErrors(t *testing.T) {
	session := connect(t, Options{})

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"NoSource", map[string]any{}, ErrNoPlanSource.Error()},
		{"BothSources", map[string]any{"path": "a.yaml", "document": planYAML}, ErrTwoPlanSource.Error()},
		{"InvalidPlan", map[string]any{"document": "name: x\n"}, "start_date is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, session, ToolNameLoadPlan, tt.args)
			assert.True(t, res.IsError)
			assert.Contains(t, text(t, res, 0), tt.want)
		})
	}
}

func TestServer_Emissions(t *testing.T) {
	session := connect(t, Options{DefaultUnit: "day"})
	loadPlan(t, session)

	res := call(t, session, ToolNameEmissions, map[string]any{"plan_id": planID})
	require.False(t, res.IsError, text(t, res, 0))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, res, 0)), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "2022-01-01", rows[0]["date"])
	assert.InDelta(t, 4.0, rows[0]["primary_unit"], 1e-9)
	assert.InDelta(t, 2.0, rows[2]["total"], 1e-9)
	assert.Len(t, res.Content, 1, "charts are off by default")
}

func TestServer_EmissionsTargetHourlyWindow(t *testing.T) {
	session := connect(t, Options{})
	loadPlan(t, session)

	res := call(t, session, ToolNameEmissions, map[string]any{
		"plan_id": planID,
		"series":  "target",
		"unit":    "hour",
		"start":   "2022-01-02",
		"end":     "2022-01-02",
	})
	require.False(t, res.IsError, text(t, res, 0))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, res, 0)), &rows))
	require.Len(t, rows, 24)
	assert.Equal(t, "2022-01-02 00:00", rows[0]["date"])
	// 8 tonnes over 48 improved hours.
	assert.InDelta(t, 8.0/48, rows[0]["primary_unit"], 1e-9)
}

func TestServer_EmissionsBadInput(t *testing.T) {
	session := connect(t, Options{})
	loadPlan(t, session)

	for name, args := range map[string]map[string]any{
		"PlanID":   {"plan_id": "nope"},
		"Series":   {"plan_id": planID, "series": "forecast"},
		"Unit":     {"plan_id": planID, "unit": "week"},
		"Date":     {"plan_id": planID, "start": "01/02/2022"},
		"Reversed": {"plan_id": planID, "start": "2022-01-03", "end": "2022-01-01"},
		"Unknown":  {"plan_id": "3d3b1a8e-7c55-4b55-8e4c-1f5f7e9f2a11"},
	} {
		t.Run(name, func(t *testing.T) {
			res := call(t, session, ToolNameEmissions, args)
			assert.True(t, res.IsError)
		})
	}
}

func TestServer_ReductionsWithChart(t *testing.T) {
	session := connect(t, Options{EnableCharts: true})
	loadPlan(t, session)

	res := call(t, session, ToolNameReductions, map[string]any{"plan_id": planID})
	require.False(t, res.IsError, text(t, res, 0))

	var entries []struct {
		Date        string `json:"date"`
		Initiatives []struct {
			Name       string  `json:"name"`
			TotalValue float64 `json:"total_value"`
		} `json:"emission_reduction_initiatives"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res, 0)), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "2022-01-01", entries[0].Date)
	assert.InDelta(t, 1.5, entries[0].Initiatives[0].TotalValue, 1e-9)
	assert.Contains(t, text(t, res, 1), "xychart-beta")
}

func TestServer_RecomputeApprovedPlan(t *testing.T) {
	session := connect(t, Options{})
	res := call(t, session, ToolNameLoadPlan, map[string]any{"document": planYAML + "state: approved\n"})
	require.False(t, res.IsError, text(t, res, 0))

	res = call(t, session, ToolNameRecompute, map[string]any{"plan_id": planID})

	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res, 0), planning.ErrPlanNotEditable.Error())
}

func TestServer_ListAndGetPlan(t *testing.T) {
	session := connect(t, Options{})
	loadPlan(t, session)

	res := call(t, session, ToolNameListPlans, map[string]any{})
	require.False(t, res.IsError)
	assert.Contains(t, text(t, res, 0), "Johan Sverdrup P4")

	res = call(t, session, ToolNameGetPlan, map[string]any{"plan_id": planID})
	require.False(t, res.IsError, text(t, res, 0))
	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, res, 0)), &view))
	assert.InDelta(t, 2.5, view["planned_duration"], 1e-9)
	assert.InDelta(t, 2.0, view["improved_duration"], 1e-9)
	assert.InDelta(t, 2.0, view["date_range_days"], 1e-9)
}
