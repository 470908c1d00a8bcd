// Package sqlstore is the gorm-backed store.Store, using SQLite.
package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"emissions-mcp/internal/emissions"
	"emissions-mcp/internal/store"
	"emissions-mcp/internal/wellplan"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const batchSize = 500

// Store persists plans and rows in a SQLite database.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return New(db)
}

// New wraps an open gorm connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&PlanRecord{}, &EmissionRecord{}, &ReductionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) SavePlan(ctx context.Context, plan *wellplan.Plan) error {
	doc, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	rec := PlanRecord{
		ID:        plan.ID,
		Name:      plan.Name,
		State:     string(plan.State),
		StartDate: plan.Start(),
		Document:  datatypes.JSON(doc),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, id uuid.UUID) (*wellplan.Plan, error) {
	rec, err := s.planRecord(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	var plan wellplan.Plan
	if err := json.Unmarshal(rec.Document, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan %s: %w", id, err)
	}
	return &plan, nil
}

func (s *Store) ListPlans(ctx context.Context) ([]store.PlanSummary, error) {
	var recs []PlanRecord
	if err := s.db.WithContext(ctx).
		Select("id", "name", "state", "start_date").
		Order("name ASC").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	out := make([]store.PlanSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, store.PlanSummary{
			ID:        r.ID,
			Name:      r.Name,
			State:     wellplan.State(r.State),
			StartDate: wellplan.Date{Time: r.StartDate.UTC()},
		})
	}
	return out, nil
}

// ReplacePlanRows deletes every row of the plan and inserts rows inside one
// transaction.
func (s *Store) ReplacePlanRows(ctx context.Context, planID uuid.UUID, rows store.RowSet) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.planRecord(tx, planID); err != nil {
			return err
		}
		if err := tx.Where("plan_id = ?", planID).Delete(&ReductionRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete reduction rows: %w", err)
		}
		if err := tx.Where("plan_id = ?", planID).Delete(&EmissionRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete emission rows: %w", err)
		}

		for _, unit := range sortedUnits(rows.Baseline) {
			recs := make([]EmissionRecord, 0, len(rows.Baseline[unit]))
			for i, r := range rows.Baseline[unit] {
				recs = append(recs, newEmissionRecord(planID, string(store.Baseline), unit, i, r.StepID, r.Datetime, r.Bundle))
			}
			if err := insert(tx, recs); err != nil {
				return err
			}
		}

		for _, unit := range sortedUnits(rows.Target) {
			target := rows.Target[unit]
			recs := make([]EmissionRecord, 0, len(target))
			for i, r := range target {
				recs = append(recs, newEmissionRecord(planID, string(store.Target), unit, i, r.StepID, r.Datetime, r.Bundle.Bundle))
			}
			if err := insert(tx, recs); err != nil {
				return err
			}

			var reductions []ReductionRecord
			for i, r := range target {
				for pos, red := range r.Bundle.Reductions {
					reductions = append(reductions, ReductionRecord{
						PlanID:       planID,
						Unit:         string(unit),
						EmissionID:   recs[i].ID,
						Position:     pos,
						InitiativeID: red.InitiativeID,
						Type:         red.Type,
						Name:         red.Name,
						Value:        red.Value,
					})
				}
			}
			if err := insert(tx, reductions); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) BaselineRows(ctx context.Context, planID uuid.UUID, unit emissions.Unit) ([]emissions.Row[emissions.Bundle], error) {
	db := s.db.WithContext(ctx)
	recs, err := s.emissionRecords(db, planID, store.Baseline, unit)
	if err != nil {
		return nil, err
	}
	out := make([]emissions.Row[emissions.Bundle], 0, len(recs))
	for _, r := range recs {
		out = append(out, emissions.Row[emissions.Bundle]{StepID: r.StepID, Datetime: r.Datetime.UTC(), Bundle: r.bundle()})
	}
	return out, nil
}

func (s *Store) TargetRows(ctx context.Context, planID uuid.UUID, unit emissions.Unit) ([]emissions.Row[emissions.TargetBundle], error) {
	db := s.db.WithContext(ctx)
	recs, err := s.emissionRecords(db, planID, store.Target, unit)
	if err != nil {
		return nil, err
	}

	var reductions []ReductionRecord
	if err := db.Where("plan_id = ? AND unit = ?", planID, string(unit)).
		Order("emission_id ASC, position ASC").
		Find(&reductions).Error; err != nil {
		return nil, fmt.Errorf("failed to load reduction rows: %w", err)
	}
	byEmission := make(map[uint][]emissions.Reduction)
	for _, r := range reductions {
		byEmission[r.EmissionID] = append(byEmission[r.EmissionID], emissions.Reduction{
			InitiativeID: r.InitiativeID,
			Type:         r.Type,
			Name:         r.Name,
			Value:        r.Value,
		})
	}

	out := make([]emissions.Row[emissions.TargetBundle], 0, len(recs))
	for _, r := range recs {
		out = append(out, emissions.Row[emissions.TargetBundle]{
			StepID:   r.StepID,
			Datetime: r.Datetime.UTC(),
			Bundle:   emissions.TargetBundle{Bundle: r.bundle(), Reductions: byEmission[r.ID]},
		})
	}
	return out, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) planRecord(db *gorm.DB, id uuid.UUID) (*PlanRecord, error) {
	var rec PlanRecord
	if err := db.Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load plan %s: %w", id, err)
	}
	return &rec, nil
}

func (s *Store) emissionRecords(db *gorm.DB, planID uuid.UUID, series store.Series, unit emissions.Unit) ([]EmissionRecord, error) {
	var n int64
	if err := db.Model(&PlanRecord{}).Where("id = ?", planID).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("failed to load plan %s: %w", planID, err)
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	var recs []EmissionRecord
	if err := db.Where("plan_id = ? AND series = ? AND unit = ?", planID, string(series), string(unit)).
		Order("seq ASC").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s rows: %w", series, err)
	}
	return recs, nil
}

func insert[T any](tx *gorm.DB, recs []T) error {
	if len(recs) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(&recs, batchSize).Error; err != nil {
		return fmt.Errorf("failed to insert rows: %w", err)
	}
	return nil
}

func sortedUnits[V any](m map[emissions.Unit]V) []emissions.Unit {
	units := make([]emissions.Unit, 0, len(m))
	for u := range m {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i] < units[j] })
	return units
}
