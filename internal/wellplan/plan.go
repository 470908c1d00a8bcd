package wellplan

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"emissions-mcp/internal/emissions"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPlan wraps every validation failure of a plan document.
var ErrInvalidPlan = errors.New("invalid well plan")

// State is the workflow state of a plan. Emission rows may only be
// recomputed while a plan is in Planning.
type State string

const (
	Planning State = "planning"
	Review   State = "review"
	Approved State = "approved"
)

const dateLayout = "2006-01-02"

// Date is a calendar date serialised as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate returns the UTC midnight of the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalYAML() (interface{}, error) {
	return d.Format(dateLayout), nil
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	t, err := time.Parse(dateLayout, value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if len(b) < 2 {
		return fmt.Errorf("invalid date %s", b)
	}
	t, err := time.Parse(dateLayout, string(b[1:len(b)-1]))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Plan is a well plan document: the scheduled steps with their raw emission
// totals plus the initiatives expected to reduce them.
type Plan struct {
	ID                uuid.UUID                             `yaml:"id" json:"id"`
	Name              string                                `yaml:"name" json:"name"`
	StartDate         Date                                  `yaml:"start_date" json:"start_date"`
	State             State                                 `yaml:"state" json:"state"`
	Steps             []PlanStep                            `yaml:"steps" json:"steps"`
	SeasonAllocations map[emissions.Season]emissions.Bundle `yaml:"season_allocations,omitempty" json:"season_allocations,omitempty"`
	PlanAllocations   *emissions.Bundle                     `yaml:"plan_allocations,omitempty" json:"plan_allocations,omitempty"`
	Initiatives       []Initiative                          `yaml:"initiatives,omitempty" json:"initiatives,omitempty"`
}

// PlanStep is a step of the plan document.
type PlanStep struct {
	ID                uuid.UUID         `yaml:"id,omitempty" json:"id"`
	Order             int               `yaml:"order" json:"order"`
	Phase             string            `yaml:"phase" json:"phase"`
	Mode              string            `yaml:"mode" json:"mode"`
	Season            emissions.Season  `yaml:"season" json:"season"`
	Duration          float64           `yaml:"duration" json:"duration"`
	ImprovedDuration  float64           `yaml:"improved_duration,omitempty" json:"improved_duration,omitempty"`
	Emissions         emissions.Bundle  `yaml:"emissions" json:"emissions"`
	ImprovedEmissions *emissions.Bundle `yaml:"improved_emissions,omitempty" json:"improved_emissions,omitempty"`
}

// Initiative is an emission reduction initiative with its per-step
// contributions, keyed by step order. Contributions are tonnes over the
// whole step.
type Initiative struct {
	ID             uuid.UUID       `yaml:"id,omitempty" json:"id"`
	Name           string          `yaml:"name" json:"name"`
	Type           string          `yaml:"type" json:"type"`
	DeploymentDate *Date           `yaml:"deployment_date,omitempty" json:"deployment_date,omitempty"`
	Contributions  map[int]float64 `yaml:"contributions" json:"contributions"`
}

// Load reads and validates a plan document from a YAML file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML plan document, assigns missing IDs and validates it.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	p.assignIDs()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Marshal encodes the plan as YAML.
func (p *Plan) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

func (p *Plan) assignIDs() {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.State == "" {
		p.State = Planning
	}
	for i := range p.Steps {
		if p.Steps[i].ID == uuid.Nil {
			p.Steps[i].ID = uuid.New()
		}
	}
	for i := range p.Initiatives {
		if p.Initiatives[i].ID == uuid.Nil {
			p.Initiatives[i].ID = uuid.New()
		}
	}
}

// Validate checks the invariants the emission engine relies on.
func (p *Plan) Validate() error {
	if p.StartDate.IsZero() {
		return fmt.Errorf("%w: start_date is required", ErrInvalidPlan)
	}
	switch p.State {
	case Planning, Review, Approved:
	default:
		return fmt.Errorf("%w: unknown state %q", ErrInvalidPlan, p.State)
	}

	orders := make(map[int]bool, len(p.Steps))
	for _, s := range p.Steps {
		if orders[s.Order] {
			return fmt.Errorf("%w: duplicate step order %d", ErrInvalidPlan, s.Order)
		}
		orders[s.Order] = true
		if !(s.Duration > 0) || math.IsInf(s.Duration, 1) {
			return fmt.Errorf("%w: step %d duration must be positive and finite", ErrInvalidPlan, s.Order)
		}
		if !(s.ImprovedDuration >= 0) || math.IsInf(s.ImprovedDuration, 1) {
			return fmt.Errorf("%w: step %d improved_duration must be finite and not negative", ErrInvalidPlan, s.Order)
		}
		if !s.Season.Valid() {
			return fmt.Errorf("%w: step %d has unknown season %q", ErrInvalidPlan, s.Order, s.Season)
		}
	}

	for season := range p.SeasonAllocations {
		if !season.Valid() {
			return fmt.Errorf("%w: unknown season allocation %q", ErrInvalidPlan, season)
		}
	}

	for _, in := range p.Initiatives {
		if in.Name == "" {
			return fmt.Errorf("%w: initiative %s has no name", ErrInvalidPlan, in.ID)
		}
		for order := range in.Contributions {
			if !orders[order] {
				return fmt.Errorf("%w: initiative %q contributes to unknown step %d", ErrInvalidPlan, in.Name, order)
			}
		}
	}

	return nil
}

// EngineSteps converts the plan steps into engine steps.
func (p *Plan) EngineSteps() []emissions.Step {
	steps := make([]emissions.Step, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = emissions.Step{
			ID:               s.ID,
			Order:            s.Order,
			Phase:            s.Phase,
			Mode:             s.Mode,
			Season:           s.Season,
			Duration:         s.Duration,
			ImprovedDuration: s.ImprovedDuration,
		}
	}
	return steps
}

// Start returns the plan start instant (UTC midnight of the start date).
func (p *Plan) Start() time.Time {
	return p.StartDate.UTC()
}

// TotalDuration sums step durations of the given kind.
func (p *Plan) TotalDuration(kind emissions.DurationKind) float64 {
	return emissions.PlanTotalsFor(p.EngineSteps(), kind).Duration
}

// DateRange is the daily window spanned by the plan for the given kind.
func (p *Plan) DateRange(kind emissions.DurationKind) (emissions.Window, bool) {
	return emissions.PlanDateRange(p.Start(), p.TotalDuration(kind))
}

func (p *Plan) step(id uuid.UUID) (PlanStep, bool) {
	for _, s := range p.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return PlanStep{}, false
}
