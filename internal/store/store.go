// Package store defines the persistence contract for well plans and their
// emission rows. Implementations live in the sqlstore and filestore
// subpackages.
package store

import (
	"context"
	"errors"

	"emissions-mcp/internal/emissions"
	"emissions-mcp/internal/wellplan"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a plan does not exist.
var ErrNotFound = errors.New("plan not found")

// Series names the two emission row families kept per plan.
type Series string

const (
	Baseline Series = "baseline"
	Target   Series = "target"
)

// ParseSeries accepts "baseline", "target" or an empty string (baseline).
func ParseSeries(s string) (Series, error) {
	switch Series(s) {
	case "", Baseline:
		return Baseline, nil
	case Target:
		return Target, nil
	default:
		return "", errors.New("series must be baseline or target")
	}
}

// RowSet is the complete replacement row set of one plan, per unit.
type RowSet struct {
	Baseline map[emissions.Unit][]emissions.Row[emissions.Bundle]
	Target   map[emissions.Unit][]emissions.Row[emissions.TargetBundle]
}

// NewRowSet returns an empty RowSet ready to be filled.
func NewRowSet() RowSet {
	return RowSet{
		Baseline: make(map[emissions.Unit][]emissions.Row[emissions.Bundle]),
		Target:   make(map[emissions.Unit][]emissions.Row[emissions.TargetBundle]),
	}
}

// Len returns the number of rows across all series and units.
func (rs RowSet) Len() int {
	n := 0
	for _, rows := range rs.Baseline {
		n += len(rows)
	}
	for _, rows := range rs.Target {
		n += len(rows)
	}
	return n
}

// PlanSummary is the listing view of a stored plan.
type PlanSummary struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	State     wellplan.State `json:"state"`
	StartDate wellplan.Date  `json:"start_date"`
}

// Store persists plans and their emission rows.
//
// ReplacePlanRows must be all-or-nothing: readers observe either the
// previous row set or the new one, never a mix.
type Store interface {
	SavePlan(ctx context.Context, plan *wellplan.Plan) error
	GetPlan(ctx context.Context, id uuid.UUID) (*wellplan.Plan, error)
	ListPlans(ctx context.Context) ([]PlanSummary, error)
	ReplacePlanRows(ctx context.Context, planID uuid.UUID, rows RowSet) error
	BaselineRows(ctx context.Context, planID uuid.UUID, unit emissions.Unit) ([]emissions.Row[emissions.Bundle], error)
	TargetRows(ctx context.Context, planID uuid.UUID, unit emissions.Unit) ([]emissions.Row[emissions.TargetBundle], error)
	Close() error
}
