package emissions

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Contribution is one initiative's reduction value inside one bucket.
type Contribution struct {
	Datetime     time.Time
	InitiativeID uuid.UUID
	Type         string
	Name         string
	Value        float64
}

// ContributionsOf flattens the reduction breakdown of target rows.
func ContributionsOf(rows []Row[TargetBundle]) []Contribution {
	var out []Contribution
	for _, r := range rows {
		for _, red := range r.Bundle.Reductions {
			out = append(out, Contribution{
				Datetime:     r.Datetime,
				InitiativeID: red.InitiativeID,
				Type:         red.Type,
				Name:         red.Name,
				Value:        red.Value,
			})
		}
	}
	return out
}

// InitiativeTotal is the summed reduction of one initiative on one date.
type InitiativeTotal struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Name       string    `json:"name"`
	TotalValue float64   `json:"total_value"`
}

// ReductionEntry lists every initiative that contributed on a date. The
// list is empty, never nil, on dates without contributions.
type ReductionEntry struct {
	Date        time.Time         `json:"-"`
	Initiatives []InitiativeTotal `json:"emission_reduction_initiatives"`
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (e ReductionEntry) MarshalJSON() ([]byte, error) {
	type alias ReductionEntry
	return json.Marshal(struct {
		Date string `json:"date"`
		alias
	}{Date: Day.GenerateLabel(e.Date), alias: alias(e)})
}

// AggregateReductions groups contributions by calendar date and initiative
// and returns one entry for every date of the window, ascending. Within a
// date, initiatives appear in the order they were first grouped.
// Contributions outside the window are ignored.
func AggregateReductions(contributions []Contribution, window Window) []ReductionEntry {
	dates := window.Subdivide()
	entries := make([]ReductionEntry, len(dates))
	index := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		entries[i] = ReductionEntry{Date: d, Initiatives: []InitiativeTotal{}}
		index[d] = i
	}

	for _, c := range contributions {
		i, ok := index[SnapToStart(c.Datetime, window.Unit)]
		if !ok {
			continue
		}
		inits := entries[i].Initiatives
		j := slices.IndexFunc(inits, func(t InitiativeTotal) bool { return t.ID == c.InitiativeID })
		if j < 0 {
			entries[i].Initiatives = append(inits, InitiativeTotal{
				ID:         c.InitiativeID,
				Type:       c.Type,
				Name:       c.Name,
				TotalValue: c.Value,
			})
			continue
		}
		inits[j].TotalValue += c.Value
	}

	return entries
}
