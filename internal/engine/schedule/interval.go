package schedule

import (
	"time"

	"upkeep/internal/domain"
)

// IntervalDays converts the working hours between two services of a tier
// into calendar days, rounding up to whole days.
func IntervalDays(hours, dailyWorkingHours int) int {
	if hours <= 0 || dailyWorkingHours <= 0 {
		return 0
	}
	return (hours + dailyWorkingHours - 1) / dailyWorkingHours
}

// Window is an inclusive range of calendar days.
type Window struct {
	Start time.Time
	End   time.Time
}

// Fits reports whether o lies entirely inside the window.
func (w Window) Fits(o Occurrence) bool {
	return !o.Start.Before(w.Start) && !o.End.After(w.End)
}

// Occurrence is one dated service of a tier, inclusive on both ends.
type Occurrence struct {
	Level domain.Level
	Start time.Time
	End   time.Time
	// Booked marks a slot already held by another plan's event. Booked
	// occurrences steer the merge but are never emitted as new events.
	Booked bool
}

// Overlaps reports whether the two inclusive ranges share a day.
func (o Occurrence) Overlaps(other Occurrence) bool {
	return !o.End.Before(other.Start) && !other.End.Before(o.Start)
}

// Cadence is the recurrence of one tier expressed in calendar days.
type Cadence struct {
	Level    domain.Level
	Interval int
	Duration int
}

// CadenceFor derives the calendar cadence of a plan tier.
func CadenceFor(level domain.Level, tier domain.Tier, dailyWorkingHours int) Cadence {
	return Cadence{
		Level:    level,
		Interval: IntervalDays(tier.Hours, dailyWorkingHours),
		Duration: tier.DurationDays,
	}
}

// At returns the occurrence starting on day start.
func (c Cadence) At(start time.Time) Occurrence {
	return Occurrence{
		Level: c.Level,
		Start: start,
		End:   domain.AddDays(start, c.Duration-1),
	}
}
