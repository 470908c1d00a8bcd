package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names.
const (
	ToolNameLoadPlan   = "load_well_plan"
	ToolNameListPlans  = "list_well_plans"
	ToolNameGetPlan    = "get_well_plan"
	ToolNameRecompute  = "recompute_well_plan"
	ToolNameEmissions  = "get_emissions"
	ToolNameReductions = "get_emission_reductions"
)

var (
	ErrNoPlanSource  = errors.New("either path or document is required")
	ErrTwoPlanSource = errors.New("path and document are mutually exclusive")
	ErrBadPlanID     = errors.New("plan_id must be a UUID")
)

// LoadPlanInput is the input of load_well_plan.
type LoadPlanInput struct {
	Path     string `json:"path,omitempty"     jsonschema:"path to a YAML well plan file"`
	Document string `json:"document,omitempty" jsonschema:"inline YAML well plan document"`
}

// ListPlansInput is the input of list_well_plans.
type ListPlansInput struct{}

// PlanInput addresses a single plan.
type PlanInput struct {
	PlanID string `json:"plan_id" jsonschema:"UUID of the well plan"`
}

// EmissionsInput is the input of get_emissions.
type EmissionsInput struct {
	PlanID string `json:"plan_id"          jsonschema:"UUID of the well plan"`
	Series string `json:"series,omitempty" jsonschema:"baseline (default) or target"`
	Unit   string `json:"unit,omitempty"   jsonschema:"day or hour (server default when omitted)"`
	Start  string `json:"start,omitempty"  jsonschema:"first date to include (YYYY-MM-DD or RFC3339)"`
	End    string `json:"end,omitempty"    jsonschema:"last date to include (YYYY-MM-DD or RFC3339)"`
}

// ToolOutput is the structured output of every tool.
type ToolOutput struct {
	Data any `json:"data"`
}

func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult encodes value as indented JSON text. A non-empty chart is
// appended as a second text block.
func jsonResult(value any, chart string) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	content := []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}}
	if chart != "" {
		content = append(content, &mcpsdk.TextContent{Text: chart})
	}
	return &mcpsdk.CallToolResult{Content: content}, ToolOutput{Data: value}, nil
}

func parsePlanID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrBadPlanID, s)
	}
	return id, nil
}
