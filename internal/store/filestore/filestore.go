// Package filestore keeps plans and their emission rows in memory, partitioned
// by plan, and snapshots each partition to a JSONL file.
package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"emissions-mcp/internal/emissions"
	"emissions-mcp/internal/store"
	"emissions-mcp/internal/wellplan"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	kindPlan     = "plan"
	kindBaseline = "baseline"
	kindTarget   = "target"
)

// record is one JSONL line of a plan snapshot.
type record struct {
	Kind     string                  `json:"kind"`
	Plan     *wellplan.Plan          `json:"plan,omitempty"`
	Unit     emissions.Unit          `json:"unit,omitempty"`
	StepID   uuid.UUID               `json:"step_id,omitzero"`
	Datetime time.Time               `json:"datetime,omitzero"`
	Baseline *emissions.Bundle       `json:"baseline,omitempty"`
	Target   *emissions.TargetBundle `json:"target,omitempty"`
}

type partition struct {
	plan *wellplan.Plan
	rows store.RowSet
}

// Store is a thread-safe file-backed store.Store.
type Store struct {
	mu    sync.RWMutex
	dir   string
	plans map[uuid.UUID]*partition
}

var _ store.Store = (*Store)(nil)

// New returns a Store persisting into dir. Snapshots are read lazily.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &Store{
		dir:   dir,
		plans: make(map[uuid.UUID]*partition),
	}, nil
}

func (s *Store) path(id uuid.UUID) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.jsonl", id))
}

// SavePlan stores the plan document, keeping any rows already computed.
func (s *Store) SavePlan(ctx context.Context, plan *wellplan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.partitionLocked(plan.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if p == nil {
		p = &partition{rows: store.NewRowSet()}
	}
	next := &partition{plan: plan, rows: p.rows}
	if err := s.save(plan.ID, next); err != nil {
		return err
	}
	s.plans[plan.ID] = next
	return nil
}

func (s *Store) GetPlan(ctx context.Context, id uuid.UUID) (*wellplan.Plan, error) {
	p, err := s.partition(id)
	if err != nil {
		return nil, err
	}
	return p.plan, nil
}

// ListPlans returns every plan in the store directory ordered by name.
func (s *Store) ListPlans(ctx context.Context) ([]store.PlanSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list store directory: %w", err)
	}

	var out []store.PlanSummary
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".jsonl")
		if !ok || e.IsDir() {
			continue
		}
		id, err := uuid.Parse(name)
		if err != nil {
			continue
		}
		p, err := s.partition(id)
		if err != nil {
			log.Warn().Err(err).Str("plan", name).Msg("Skipping unreadable plan snapshot")
			continue
		}
		out = append(out, store.PlanSummary{ID: p.plan.ID, Name: p.plan.Name, State: p.plan.State, StartDate: p.plan.StartDate})
	}
	slices.SortFunc(out, func(a, b store.PlanSummary) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// ReplacePlanRows swaps the plan's rows for rows. The in-memory partition is
// only replaced once the snapshot has been renamed into place.
func (s *Store) ReplacePlanRows(ctx context.Context, planID uuid.UUID, rows store.RowSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.partitionLocked(planID)
	if err != nil {
		return err
	}
	next := &partition{plan: p.plan, rows: rows}
	if err := s.save(planID, next); err != nil {
		return err
	}
	s.plans[planID] = next
	return nil
}

func (s *Store) BaselineRows(ctx context.Context, planID uuid.UUID, unit emissions.Unit) ([]emissions.Row[emissions.Bundle], error) {
	p, err := s.partition(planID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(p.rows.Baseline[unit]), nil
}

func (s *Store) TargetRows(ctx context.Context, planID uuid.UUID, unit emissions.Unit) ([]emissions.Row[emissions.TargetBundle], error) {
	p, err := s.partition(planID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(p.rows.Target[unit]), nil
}

func (s *Store) Close() error { return nil }

func (s *Store) partition(id uuid.UUID) (*partition, error) {
	s.mu.RLock()
	p, ok := s.plans[id]
	s.mu.RUnlock()
	if ok {
		return p, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partitionLocked(id)
}

// partitionLocked returns the cached partition or loads its snapshot.
// Callers hold the write lock.
func (s *Store) partitionLocked(id uuid.UUID) (*partition, error) {
	if p, ok := s.plans[id]; ok {
		return p, nil
	}
	p, err := s.load(id)
	if err != nil {
		return nil, err
	}
	s.plans[id] = p
	return p, nil
}

func (s *Store) load(id uuid.UUID) (*partition, error) {
	file, err := os.Open(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	p := &partition{rows: store.NewRowSet()}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var r record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			log.Warn().Err(err).Str("plan", id.String()).Msg("Skipping invalid JSON line in snapshot")
			continue
		}
		switch {
		case r.Kind == kindPlan && r.Plan != nil:
			p.plan = r.Plan
		case r.Kind == kindBaseline && r.Baseline != nil:
			p.rows.Baseline[r.Unit] = append(p.rows.Baseline[r.Unit], emissions.Row[emissions.Bundle]{StepID: r.StepID, Datetime: r.Datetime, Bundle: *r.Baseline})
		case r.Kind == kindTarget && r.Target != nil:
			p.rows.Target[r.Unit] = append(p.rows.Target[r.Unit], emissions.Row[emissions.TargetBundle]{StepID: r.StepID, Datetime: r.Datetime, Bundle: *r.Target})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading snapshot: %w", err)
	}
	if p.plan == nil {
		return nil, fmt.Errorf("snapshot %s has no plan record", id)
	}

	log.Debug().Str("plan", id.String()).Int("rows", p.rows.Len()).Msg("Loaded plan snapshot")
	return p, nil
}

// save writes the partition to a temp file and renames it over the snapshot.
func (s *Store) save(id uuid.UUID, p *partition) error {
	path := s.path(id)
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}

	writer := bufio.NewWriter(file)
	if err := encode(json.NewEncoder(writer), p); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}

	log.Debug().Str("plan", id.String()).Int("rows", p.rows.Len()).Msg("Plan snapshot saved")
	return nil
}

func encode(enc *json.Encoder, p *partition) error {
	if err := enc.Encode(record{Kind: kindPlan, Plan: p.plan}); err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	for _, unit := range sortedUnits(p.rows.Baseline) {
		for _, r := range p.rows.Baseline[unit] {
			b := r.Bundle
			if err := enc.Encode(record{Kind: kindBaseline, Unit: unit, StepID: r.StepID, Datetime: r.Datetime, Baseline: &b}); err != nil {
				return fmt.Errorf("failed to encode row: %w", err)
			}
		}
	}
	for _, unit := range sortedUnits(p.rows.Target) {
		for _, r := range p.rows.Target[unit] {
			b := r.Bundle
			if err := enc.Encode(record{Kind: kindTarget, Unit: unit, StepID: r.StepID, Datetime: r.Datetime, Target: &b}); err != nil {
				return fmt.Errorf("failed to encode row: %w", err)
			}
		}
	}
	return nil
}

func sortedUnits[V any](m map[emissions.Unit]V) []emissions.Unit {
	units := make([]emissions.Unit, 0, len(m))
	for u := range m {
		units = append(units, u)
	}
	slices.Sort(units)
	return units
}
