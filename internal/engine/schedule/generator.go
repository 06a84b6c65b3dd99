package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"upkeep/internal/domain"
	"upkeep/internal/engine/status"
)

// ErrInvalidRange is returned when the generation window cannot be resolved.
var ErrInvalidRange = errors.New("invalid datetime range/format")

// Generator expands a maintenance plan into dated events.
type Generator struct {
	Classifier status.Classifier
	// DropFirst discards the chronologically first event of the merged
	// schedule. Off by default.
	DropFirst bool
	Now       func() time.Time
}

func (g Generator) today() time.Time {
	if g.Now != nil {
		return domain.Midnight(g.Now())
	}
	return domain.Midnight(time.Now())
}

// ResolveWindow picks the generation window from the overrides or the plan's
// service dates, truncated to whole days.
func ResolveWindow(plan domain.Plan, startOverride, endOverride string) (Window, error) {
	startRaw, endRaw := plan.ServiceStartDate, plan.ServiceEndDate
	if startOverride != "" {
		startRaw = startOverride
	}
	if endOverride != "" {
		endRaw = endOverride
	}
	start, err := domain.ParseDate(startRaw)
	if err != nil {
		return Window{}, fmt.Errorf("%w: start: %v", ErrInvalidRange, err)
	}
	end, err := domain.ParseDate(endRaw)
	if err != nil {
		return Window{}, fmt.Errorf("%w: end: %v", ErrInvalidRange, err)
	}
	if start.After(end) {
		return Window{}, fmt.Errorf("%w: start %s after end %s", ErrInvalidRange, domain.FormatDate(start), domain.FormatDate(end))
	}
	return Window{Start: start, End: end}, nil
}

// Occurrences merges every active tier of plan inside w, highest priority
// first.
func Occurrences(plan domain.Plan, w Window) []Occurrence {
	return OccurrencesAround(plan, w, nil)
}

// OccurrencesAround merges the active tiers of plan around booked, the slots
// other plans already hold on the same equipment. Booked slots outrank every
// tier of plan and are left out of the result.
func OccurrencesAround(plan domain.Plan, w Window, booked []Occurrence) []Occurrence {
	var merged []Occurrence
	for _, o := range booked {
		if o.End.Before(w.Start) || o.Start.After(w.End) {
			continue
		}
		o.Booked = true
		merged = append(merged, o)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Start.Before(merged[j].Start) })
	for _, level := range domain.PriorityOrder {
		tier := plan.Tier(level)
		if !tier.Active() {
			continue
		}
		merged = Merge(merged, CadenceFor(level, tier, plan.DailyWorkingHours), w)
	}
	out := merged[:0]
	for _, o := range merged {
		if !o.Booked {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Generate returns the events of plan for equipment eq. Empty overrides fall
// back to the plan's service window.
func (g Generator) Generate(plan domain.Plan, eq domain.Equipment, startOverride, endOverride string) ([]domain.Event, error) {
	return g.GenerateAround(plan, eq, nil, startOverride, endOverride)
}

// GenerateAround is Generate with the equipment's already booked slots kept
// clear of the new events.
func (g Generator) GenerateAround(plan domain.Plan, eq domain.Equipment, booked []Occurrence, startOverride, endOverride string) ([]domain.Event, error) {
	if plan.DailyWorkingHours < 1 || plan.DailyWorkingHours > 24 {
		return nil, fmt.Errorf("daily working hours must be between 1 and 24, got %d", plan.DailyWorkingHours)
	}
	w, err := ResolveWindow(plan, startOverride, endOverride)
	if err != nil {
		return nil, err
	}
	occ := OccurrencesAround(plan, w, booked)
	if g.DropFirst && len(occ) > 0 {
		occ = occ[1:]
	}
	today := g.today()
	events := make([]domain.Event, 0, len(occ))
	for _, o := range occ {
		start := domain.FormatDate(o.Start)
		events = append(events, domain.Event{
			PlanID:      plan.ID,
			EquipmentID: eq.ID,
			Level:       o.Level,
			Title:       fmt.Sprintf("%s maintenance", eq.Name),
			Description: fmt.Sprintf("%s %s maintenance works level %s", eq.Name, eq.AssetID, o.Level),
			Status:      g.Classifier.AtGeneration(today, o.Start),
			Start:       start,
			End:         domain.FormatDate(o.End),
			ScheduledAt: start,
		})
	}
	return events, nil
}
