// Package planning recomputes and serves the emission series of well plans.
package planning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"emissions-mcp/internal/emissions"
	"emissions-mcp/internal/observability"
	"emissions-mcp/internal/store"
	"emissions-mcp/internal/wellplan"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrPlanNotFound is returned for unknown plan ids.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrPlanNotEditable is returned when a plan outside the planning state
	// is asked to recompute.
	ErrPlanNotEditable = errors.New("plan is not editable")
)

// Units are the bucket sizes materialised on every recompute.
var Units = []emissions.Unit{emissions.Day, emissions.Hour}

// Service owns recomputation and the read paths over a store.Store.
type Service struct {
	store   store.Store
	metrics *observability.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records recompute outcomes on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService returns a Service over st.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{store: st}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecomputeResult summarises a recompute.
type RecomputeResult struct {
	PlanID uuid.UUID                 `json:"plan_id"`
	Rows   map[string]map[string]int `json:"rows"`
	Total  int                       `json:"total"`
}

// SavePlan validates and stores a plan document.
func (s *Service) SavePlan(ctx context.Context, plan *wellplan.Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if err := s.store.SavePlan(ctx, plan); err != nil {
		return fmt.Errorf("failed to save plan %s: %w", plan.ID, err)
	}
	log.Info().Str("plan", plan.ID.String()).Str("name", plan.Name).Int("steps", len(plan.Steps)).Msg("Plan saved")
	return nil
}

// Import saves a plan and, when it is still editable, recomputes it.
func (s *Service) Import(ctx context.Context, plan *wellplan.Plan) (*RecomputeResult, error) {
	if err := s.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	if plan.State != wellplan.Planning {
		log.Info().Str("plan", plan.ID.String()).Str("state", string(plan.State)).Msg("Plan not editable, keeping stored rows")
		return nil, nil
	}
	return s.Recompute(ctx, plan.ID)
}

// GetPlan returns a stored plan.
func (s *Service) GetPlan(ctx context.Context, planID uuid.UUID) (*wellplan.Plan, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, mapNotFound(planID, err)
	}
	return plan, nil
}

// ListPlans returns the stored plans.
func (s *Service) ListPlans(ctx context.Context) ([]store.PlanSummary, error) {
	return s.store.ListPlans(ctx)
}

// Recompute rebuilds every row of a plan. The full row set is built in
// memory before the store is touched; the store then swaps it in as one unit.
func (s *Service) Recompute(ctx context.Context, planID uuid.UUID) (res *RecomputeResult, err error) {
	started := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.ObserveRecompute(status, time.Since(started))
	}()

	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.State != wellplan.Planning {
		return nil, fmt.Errorf("%w: %s is %s", ErrPlanNotEditable, plan.Name, plan.State)
	}

	rows, err := BuildRows(plan)
	if err != nil {
		return nil, err
	}
	if err := s.store.ReplacePlanRows(ctx, planID, rows); err != nil {
		return nil, fmt.Errorf("failed to replace rows for plan %s: %w", planID, mapNotFound(planID, err))
	}

	res = &RecomputeResult{PlanID: planID, Rows: make(map[string]map[string]int), Total: rows.Len()}
	res.Rows[string(store.Baseline)] = make(map[string]int)
	res.Rows[string(store.Target)] = make(map[string]int)
	for _, unit := range Units {
		nb, nt := len(rows.Baseline[unit]), len(rows.Target[unit])
		res.Rows[string(store.Baseline)][string(unit)] = nb
		res.Rows[string(store.Target)][string(unit)] = nt
		s.metrics.AddRows(string(store.Baseline), string(unit), nb)
		s.metrics.AddRows(string(store.Target), string(unit), nt)
	}

	log.Info().
		Str("plan", planID.String()).
		Int("rows", res.Total).
		Dur("elapsed", time.Since(started)).
		Msg("Plan recomputed")
	return res, nil
}

// BuildRows computes the complete replacement row set of a plan: baseline
// rows over planned durations and target rows over improved durations, for
// every unit in Units.
func BuildRows(plan *wellplan.Plan) (store.RowSet, error) {
	rows := store.NewRowSet()
	steps := plan.EngineSteps()
	baseline := wellplan.BaselineCalculator{Plan: plan}
	target := wellplan.TargetCalculator{Plan: plan}

	for _, unit := range Units {
		b, err := emissions.Build[emissions.Bundle](plan.Start(), steps, emissions.Planned, unit, baseline)
		if err != nil {
			return store.RowSet{}, fmt.Errorf("baseline %s rows: %w", unit, err)
		}
		t, err := emissions.Build[emissions.TargetBundle](plan.Start(), steps, emissions.Improved, unit, target)
		if err != nil {
			return store.RowSet{}, fmt.Errorf("target %s rows: %w", unit, err)
		}
		rows.Baseline[unit] = b
		rows.Target[unit] = t
	}
	return rows, nil
}

// Emissions returns the aggregated series of a plan, optionally limited to
// window.
func (s *Service) Emissions(ctx context.Context, planID uuid.UUID, series store.Series, unit emissions.Unit, window *emissions.Window) ([]emissions.DailyEmission, error) {
	switch series {
	case store.Baseline:
		rows, err := s.store.BaselineRows(ctx, planID, unit)
		if err != nil {
			return nil, mapNotFound(planID, err)
		}
		return emissions.Flatten(emissions.Aggregate(rows, unit, window), unit), nil
	case store.Target:
		rows, err := s.store.TargetRows(ctx, planID, unit)
		if err != nil {
			return nil, mapNotFound(planID, err)
		}
		return emissions.Flatten(emissions.Aggregate(rows, unit, window), unit), nil
	default:
		return nil, fmt.Errorf("unknown series %q", series)
	}
}

// Reductions returns one entry per calendar day of the plan's improved
// schedule with the initiative totals of that day.
func (s *Service) Reductions(ctx context.Context, planID uuid.UUID) ([]emissions.ReductionEntry, error) {
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	window, ok := plan.DateRange(emissions.Improved)
	if !ok {
		return []emissions.ReductionEntry{}, nil
	}

	rows, err := s.store.TargetRows(ctx, planID, emissions.Day)
	if err != nil {
		return nil, mapNotFound(planID, err)
	}
	return emissions.AggregateReductions(emissions.ContributionsOf(rows), window), nil
}

func mapNotFound(planID uuid.UUID, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	return err
}
