package emissions

import (
	"encoding/json"
	"slices"
	"time"
)

// AggregatedRow is the sum of all rows sharing a calendar bucket.
type AggregatedRow[T any] struct {
	Date   time.Time `json:"date"`
	Bundle T         `json:"bundle"`
}

// Aggregate groups rows by their calendar bucket (date for Day, exact hour
// for Hour) and sums each group. When window is non-nil, rows whose bucket
// lies outside it are dropped before grouping. The result is ascending.
func Aggregate[T Summable[T]](rows []Row[T], unit Unit, window *Window) []AggregatedRow[T] {
	groups := make(map[time.Time]int)
	var results []AggregatedRow[T]

	for _, r := range rows {
		key := SnapToStart(r.Datetime, unit)
		if window != nil && !window.Contains(key) {
			continue
		}
		if idx, ok := groups[key]; ok {
			results[idx].Bundle = results[idx].Bundle.Add(r.Bundle)
			continue
		}
		groups[key] = len(results)
		results = append(results, AggregatedRow[T]{Date: key, Bundle: r.Bundle})
	}

	slices.SortStableFunc(results, func(a, b AggregatedRow[T]) int {
		return a.Date.Compare(b.Date)
	})

	return results
}

// DailyEmission is the flat shape of an aggregated baseline row:
// {date, <component fields>}.
type DailyEmission struct {
	Date time.Time
	Bundle
	Unit Unit
}

// MarshalJSON flattens the bundle next to a unit-formatted date.
func (d DailyEmission) MarshalJSON() ([]byte, error) {
	type flat struct {
		Date string `json:"date"`
		Bundle
		Total float64 `json:"total"`
	}
	return json.Marshal(flat{Date: d.Unit.GenerateLabel(d.Date), Bundle: d.Bundle, Total: d.Bundle.Total()})
}

// Flatten converts aggregated rows of either bundle type into their flat
// serialisable form.
func Flatten[T interface{ Components() Bundle }](rows []AggregatedRow[T], unit Unit) []DailyEmission {
	out := make([]DailyEmission, len(rows))
	for i, r := range rows {
		out[i] = DailyEmission{Date: r.Date, Bundle: r.Bundle.Components(), Unit: unit}
	}
	return out
}

// Components returns the bundle itself.
func (b Bundle) Components() Bundle { return b }
