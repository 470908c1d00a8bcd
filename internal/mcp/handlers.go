package mcp

import (
	"context"
	"fmt"

	"emissions-mcp/internal/emissions"
	"emissions-mcp/internal/store"
	"emissions-mcp/internal/visuals"
	"emissions-mcp/internal/wellplan"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// planView adds the derived durations to the stored document.
type planView struct {
	*wellplan.Plan
	PlannedDuration  float64 `json:"planned_duration"`
	ImprovedDuration float64 `json:"improved_duration"`
	DateRangeDays    int     `json:"date_range_days"`
}

type loadResult struct {
	PlanID     string `json:"plan_id"`
	Name       string `json:"name"`
	State      string `json:"state"`
	Recomputed any    `json:"recomputed,omitempty"`
}

func (s *Server) handleLoadPlan(ctx context.Context, _ *mcpsdk.CallToolRequest, in LoadPlanInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	var (
		plan *wellplan.Plan
		err  error
	)
	switch {
	case in.Path != "" && in.Document != "":
		return errorResult(ErrTwoPlanSource)
	case in.Path != "":
		plan, err = wellplan.Load(in.Path)
	case in.Document != "":
		plan, err = wellplan.Parse([]byte(in.Document))
	default:
		return errorResult(ErrNoPlanSource)
	}
	if err != nil {
		return errorResult(err)
	}

	res, err := s.svc.Import(ctx, plan)
	if err != nil {
		return errorResult(err)
	}

	out := loadResult{PlanID: plan.ID.String(), Name: plan.Name, State: string(plan.State)}
	if res != nil {
		out.Recomputed = res
	}
	return jsonResult(out, "")
}

func (s *Server) handleListPlans(ctx context.Context, _ *mcpsdk.CallToolRequest, _ ListPlansInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	plans, err := s.svc.ListPlans(ctx)
	if err != nil {
		return errorResult(err)
	}
	if plans == nil {
		plans = []store.PlanSummary{}
	}
	return jsonResult(plans, "")
}

func (s *Server) handleGetPlan(ctx context.Context, _ *mcpsdk.CallToolRequest, in PlanInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	id, err := parsePlanID(in.PlanID)
	if err != nil {
		return errorResult(err)
	}
	plan, err := s.svc.GetPlan(ctx, id)
	if err != nil {
		return errorResult(err)
	}

	view := planView{
		Plan:             plan,
		PlannedDuration:  plan.TotalDuration(emissions.Planned),
		ImprovedDuration: plan.TotalDuration(emissions.Improved),
	}
	if w, ok := plan.DateRange(emissions.Improved); ok {
		view.DateRangeDays = w.DayCount()
	}
	return jsonResult(view, "")
}

func (s *Server) handleRecompute(ctx context.Context, _ *mcpsdk.CallToolRequest, in PlanInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	id, err := parsePlanID(in.PlanID)
	if err != nil {
		return errorResult(err)
	}
	res, err := s.svc.Recompute(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res, "")
}

func (s *Server) handleEmissions(ctx context.Context, _ *mcpsdk.CallToolRequest, in EmissionsInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	id, err := parsePlanID(in.PlanID)
	if err != nil {
		return errorResult(err)
	}
	series, err := store.ParseSeries(in.Series)
	if err != nil {
		return errorResult(err)
	}
	unitName := in.Unit
	if unitName == "" {
		unitName = s.opts.DefaultUnit
	}
	unit, err := emissions.ParseUnit(unitName)
	if err != nil {
		return errorResult(err)
	}
	window, err := emissions.ParseWindow(in.Start, in.End, unit)
	if err != nil {
		return errorResult(err)
	}

	rows, err := s.svc.Emissions(ctx, id, series, unit, window)
	if err != nil {
		return errorResult(err)
	}

	chart := ""
	if s.opts.EnableCharts {
		chart = visuals.GenerateEmissionsChart(fmt.Sprintf("%s emissions per %s", series, unit), rows)
	}
	if rows == nil {
		rows = []emissions.DailyEmission{}
	}
	return jsonResult(rows, chart)
}

func (s *Server) handleReductions(ctx context.Context, _ *mcpsdk.CallToolRequest, in PlanInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	id, err := parsePlanID(in.PlanID)
	if err != nil {
		return errorResult(err)
	}
	entries, err := s.svc.Reductions(ctx, id)
	if err != nil {
		return errorResult(err)
	}

	chart := ""
	if s.opts.EnableCharts {
		chart = visuals.GenerateReductionsChart(entries)
	}
	return jsonResult(entries, chart)
}
