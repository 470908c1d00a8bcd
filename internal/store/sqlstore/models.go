package sqlstore

import (
	"time"

	"emissions-mcp/internal/emissions"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PlanRecord holds the plan document as JSON plus the columns used for
// listing.
type PlanRecord struct {
	ID        uuid.UUID      `gorm:"type:text;primaryKey"`
	Name      string         `gorm:"index"`
	State     string         `gorm:"not null"`
	StartDate time.Time      `gorm:"not null"`
	Document  datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PlanRecord) TableName() string { return "well_plans" }

// EmissionRecord is one proration row of either series.
type EmissionRecord struct {
	ID       uint      `gorm:"primaryKey"`
	PlanID   uuid.UUID `gorm:"type:text;not null;index:idx_emission_rows_lookup,priority:1"`
	Series   string    `gorm:"not null;index:idx_emission_rows_lookup,priority:2"`
	Unit     string    `gorm:"not null;index:idx_emission_rows_lookup,priority:3"`
	Seq      int       `gorm:"not null"`
	StepID   uuid.UUID `gorm:"type:text;not null"`
	Datetime time.Time `gorm:"not null"`

	PrimaryUnit         float64
	AuxiliaryUnit       float64
	SupportVessels      float64
	AirTransport        float64
	Consumables         float64
	ExternalPowerSupply float64
}

func (EmissionRecord) TableName() string { return "emission_rows" }

func (r EmissionRecord) bundle() emissions.Bundle {
	return emissions.Bundle{
		PrimaryUnit:         r.PrimaryUnit,
		AuxiliaryUnit:       r.AuxiliaryUnit,
		SupportVessels:      r.SupportVessels,
		AirTransport:        r.AirTransport,
		Consumables:         r.Consumables,
		ExternalPowerSupply: r.ExternalPowerSupply,
	}
}

func newEmissionRecord(planID uuid.UUID, series string, unit emissions.Unit, seq int, stepID uuid.UUID, at time.Time, b emissions.Bundle) EmissionRecord {
	return EmissionRecord{
		PlanID:              planID,
		Series:              series,
		Unit:                string(unit),
		Seq:                 seq,
		StepID:              stepID,
		Datetime:            at.UTC(),
		PrimaryUnit:         b.PrimaryUnit,
		AuxiliaryUnit:       b.AuxiliaryUnit,
		SupportVessels:      b.SupportVessels,
		AirTransport:        b.AirTransport,
		Consumables:         b.Consumables,
		ExternalPowerSupply: b.ExternalPowerSupply,
	}
}

// ReductionRecord is one initiative contribution attached to a target row.
type ReductionRecord struct {
	ID           uint      `gorm:"primaryKey"`
	PlanID       uuid.UUID `gorm:"type:text;not null;index:idx_reduction_rows_lookup,priority:1"`
	Unit         string    `gorm:"not null;index:idx_reduction_rows_lookup,priority:2"`
	EmissionID   uint      `gorm:"not null;index"`
	Position     int       `gorm:"not null"`
	InitiativeID uuid.UUID `gorm:"type:text;not null"`
	Type         string
	Name         string
	Value        float64
}

func (ReductionRecord) TableName() string { return "reduction_rows" }
