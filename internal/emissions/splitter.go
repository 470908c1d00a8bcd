package emissions

import (
	"iter"
	"math"
	"time"
)

// durationTolerance absorbs float drift when a position or a remainder lands
// a hair away from a unit boundary.
const durationTolerance = 1e-9

// TimeBucket is a calendar-aligned slice of a step. Duration is the fraction
// of one unit covered, in (0, 1].
type TimeBucket struct {
	Start    time.Time `json:"start"`
	Duration float64   `json:"duration"`
}

// Split slices a span of durationDays, beginning elapsedDays after start,
// into buckets aligned to unit boundaries. The first bucket starts at the
// absolute start instant and runs to the next boundary; the following
// buckets are full units and the last one holds the remainder.
//
// The sequence is restartable and the bucket durations, expressed in units,
// sum to durationDays * unit.PerDay(). A zero duration yields no buckets.
func Split(start time.Time, elapsedDays, durationDays float64, unit Unit) iter.Seq[TimeBucket] {
	return func(yield func(TimeBucket) bool) {
		if durationDays <= 0 {
			return
		}

		unitLen := unit.Length()
		anchor := SnapToStart(start, unit)
		offset := float64(start.UTC().Sub(anchor)) / float64(unitLen)

		pos := snap(offset + elapsedDays*unit.PerDay())
		remaining := durationDays * unit.PerDay()

		index := math.Floor(pos)
		first := math.Min(index+1-pos, remaining)
		if !yield(TimeBucket{Start: anchor.Add(fromUnits(pos, unitLen)), Duration: first}) {
			return
		}
		remaining = snap(remaining - first)

		for remaining > durationTolerance {
			index++
			chunk := math.Min(1, remaining)
			if !yield(TimeBucket{Start: anchor.Add(time.Duration(index) * unitLen), Duration: chunk}) {
				return
			}
			remaining = snap(remaining - chunk)
		}
	}
}

// SplitAll collects Split into a slice.
func SplitAll(start time.Time, elapsedDays, durationDays float64, unit Unit) []TimeBucket {
	var buckets []TimeBucket
	for b := range Split(start, elapsedDays, durationDays, unit) {
		buckets = append(buckets, b)
	}
	return buckets
}

// snap rounds v to the nearest integer when it is within tolerance of it.
func snap(v float64) float64 {
	if r := math.Round(v); math.Abs(v-r) < durationTolerance {
		return r
	}
	return v
}

func fromUnits(v float64, unitLen time.Duration) time.Duration {
	return time.Duration(math.Round(v * float64(unitLen)))
}
