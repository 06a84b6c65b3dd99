package status

import (
	"errors"
	"fmt"
	"time"

	"upkeep/internal/domain"
)

// ErrInvalidTransition is returned when an event cannot be completed from its
// current state.
var ErrInvalidTransition = errors.New("invalid status transition")

// Thresholds are the day counts that separate the lifecycle states.
type Thresholds struct {
	// CompleteWithinDays: a service performed fewer than this many days after
	// its scheduled date counts as complete.
	CompleteWithinDays int `yaml:"complete_within_days"`
	// OverdueWithinDays: performed late but fewer than this many days after.
	OverdueWithinDays int `yaml:"overdue_within_days"`
	// IncompleteAfterDays: an unperformed event more than this many days past
	// its date is incomplete.
	IncompleteAfterDays int `yaml:"incomplete_after_days"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{CompleteWithinDays: 3, OverdueWithinDays: 10, IncompleteAfterDays: 10}
}

func (t Thresholds) Validate() error {
	if t.CompleteWithinDays <= 0 {
		return fmt.Errorf("status.complete_within_days must be > 0")
	}
	if t.OverdueWithinDays < t.CompleteWithinDays {
		return fmt.Errorf("status.overdue_within_days must be >= complete_within_days")
	}
	if t.IncompleteAfterDays < 0 {
		return fmt.Errorf("status.incomplete_after_days must be >= 0")
	}
	return nil
}

// Classifier maps dates to lifecycle states.
type Classifier struct {
	Thresholds Thresholds
}

func New(t Thresholds) Classifier {
	return Classifier{Thresholds: t}
}

// AtGeneration classifies an event that has not been performed yet.
func (c Classifier) AtGeneration(today, scheduled time.Time) domain.Status {
	today, scheduled = domain.Midnight(today), domain.Midnight(scheduled)
	if !today.After(scheduled) {
		return domain.StatusUpcoming
	}
	if domain.DaysBetween(today, scheduled) > c.Thresholds.IncompleteAfterDays {
		return domain.StatusIncomplete
	}
	return domain.StatusOverdue
}

// AtCompletion classifies an event from the day it was actually performed.
func (c Classifier) AtCompletion(performed, scheduled time.Time) domain.Status {
	late := domain.DaysBetween(performed, scheduled)
	switch {
	case late < c.Thresholds.CompleteWithinDays:
		return domain.StatusComplete
	case late < c.Thresholds.OverdueWithinDays:
		return domain.StatusOverdue
	default:
		return domain.StatusIncomplete
	}
}

// Resolve applies the completion contract to e. A forced incomplete always
// wins over the date arithmetic. Emergency events close as complete.
func (c Classifier) Resolve(e domain.Event, performed time.Time, forced *domain.Status) (domain.Status, error) {
	if err := CanComplete(e.Status); err != nil {
		return "", err
	}
	if forced != nil {
		if *forced != domain.StatusIncomplete {
			return "", fmt.Errorf("%w: only %q can be forced", ErrInvalidTransition, domain.StatusIncomplete)
		}
		return domain.StatusIncomplete, nil
	}
	if e.Level == domain.LevelE || e.Status == domain.StatusEmergency {
		return domain.StatusComplete, nil
	}
	scheduled, err := domain.ParseDate(e.ScheduledAt)
	if err != nil {
		return "", err
	}
	return c.AtCompletion(performed, scheduled), nil
}

// CanComplete reports whether the completion contract may run from s.
// Incomplete stays open to a manual override; complete is terminal.
func CanComplete(s domain.Status) error {
	switch s {
	case domain.StatusUpcoming, domain.StatusOverdue, domain.StatusIncomplete, domain.StatusEmergency:
		return nil
	case domain.StatusComplete:
		return fmt.Errorf("%w: event already complete", ErrInvalidTransition)
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, s)
	}
}

// SweepCutoff returns the day before which an overdue, unperformed event is
// moved to incomplete by the batch sweep.
func (c Classifier) SweepCutoff(today time.Time) time.Time {
	return domain.AddDays(domain.Midnight(today), -c.Thresholds.IncompleteAfterDays)
}

// Sweepable reports whether the batch sweep applies to e on day today.
func (c Classifier) Sweepable(today time.Time, e domain.Event) bool {
	return SweepableBefore(e, domain.FormatDate(c.SweepCutoff(today)))
}

// SweepableBefore is the sweep rule against a formatted cutoff day: overdue,
// never performed and starting strictly before cutoff. Stores that filter in
// memory call it directly; SQL stores must select the same rows.
func SweepableBefore(e domain.Event, cutoff string) bool {
	return e.Status == domain.StatusOverdue && e.PerformedAt == nil && e.Start < cutoff
}
