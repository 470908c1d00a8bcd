// Package mcp exposes the emission engine as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"emissions-mcp/internal/planning"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const (
	serverName    = "emissions-mcp"
	serverVersion = "0.3.0"
)

// Options tune the server. Zero values are production defaults.
type Options struct {
	// EnableCharts appends mermaid charts to series results.
	EnableCharts bool
	// DefaultUnit is used when a request omits the unit.
	DefaultUnit string
}

// Server wraps the MCP SDK server with the emission tools.
type Server struct {
	inner *mcpsdk.Server
	svc   *planning.Service
	opts  Options
	mu    sync.RWMutex
	tools []string
}

// NewServer creates a server with every tool registered.
func NewServer(svc *planning.Service, opts Options) *Server {
	inner := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	s := &Server{inner: inner, svc: svc, opts: opts}
	s.registerTools()
	return s
}

// Run serves on stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on the given transport.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	log.Info().Strs("tools", s.ListToolNames()).Msg("MCP server starting")
	if err := s.inner.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)
	return names
}

func (s *Server) registerTools() {
	addTool(s, ToolNameLoadPlan, loadPlanDescription, s.handleLoadPlan)
	addTool(s, ToolNameListPlans, listPlansDescription, s.handleListPlans)
	addTool(s, ToolNameGetPlan, getPlanDescription, s.handleGetPlan)
	addTool(s, ToolNameRecompute, recomputeDescription, s.handleRecompute)
	addTool(s, ToolNameEmissions, emissionsDescription, s.handleEmissions)
	addTool(s, ToolNameReductions, reductionsDescription, s.handleReductions)
}

// addTool registers handler with an input schema derived from In.
func addTool[In any](s *Server, name, description string, handler mcpsdk.ToolHandlerFor[In, ToolOutput]) {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		panic(fmt.Sprintf("input schema for %s: %v", name, err))
	}
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}, withLogging(name, handler))

	s.mu.Lock()
	s.tools = append(s.tools, name)
	s.mu.Unlock()
}

func withLogging[In any](name string, handler mcpsdk.ToolHandlerFor[In, ToolOutput]) mcpsdk.ToolHandlerFor[In, ToolOutput] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, in In) (*mcpsdk.CallToolResult, ToolOutput, error) {
		log.Debug().Str("tool", name).Msg("Tool called")
		result, out, err := handler(ctx, req, in)
		if err != nil || (result != nil && result.IsError) {
			ev := log.Warn().Str("tool", name)
			if err != nil {
				ev = ev.Err(err)
			}
			ev.Msg("Tool failed")
		}
		return result, out, err
	}
}

// Tool descriptions.
const (
	loadPlanDescription = "Load a well plan from a YAML file path or inline YAML document, " +
		"store it and, when the plan is in the planning state, compute its emission series."
	listPlansDescription = "List stored well plans with their workflow state and start date."
	getPlanDescription   = "Return a stored well plan document with its planned and improved durations."
	recomputeDescription = "Recompute all baseline and target emission rows (daily and hourly) of a plan. " +
		"Only plans in the planning state can be recomputed."
	emissionsDescription = "Return the aggregated emission series of a plan per day or hour, " +
		"for the baseline or target scenario, optionally limited to a date range."
	reductionsDescription = "Return one entry per calendar day of the plan with the CO2 reduction " +
		"of each initiative on that day. Days without activity have an empty list."
)
