package engine

import (
	"context"
	"fmt"
	"time"

	"upkeep/internal/domain"
	"upkeep/internal/engine/health"
	"upkeep/internal/events"
	"upkeep/internal/observability"
	"upkeep/internal/ports"
)

// CompleteOptions are parameters for recording a performed service.
type CompleteOptions struct {
	EventID     string
	PerformedAt string
	// Forced may only be incomplete. PerformedAt is optional when set.
	Forced *domain.Status
}

// CompletionResult reports the updated event and the health index after any
// penalty was deducted.
type CompletionResult struct {
	Event       domain.Event `json:"event"`
	Penalty     float64      `json:"penalty"`
	HealthIndex *float64     `json:"health_index,omitempty"`
}

// CompleteEvent resolves the event's status from its performed date, stores
// it, and deducts the tier penalty from the equipment health index in the
// same transaction. A concurrent write to the event status or health index
// surfaces as ConflictError.
func (e Engine) CompleteEvent(ctx context.Context, opts CompleteOptions) (CompletionResult, error) {
	defer observe("complete_event", time.Now())
	if opts.EventID == "" {
		return CompletionResult{}, invalid("event id is required")
	}
	var performed *time.Time
	if opts.PerformedAt != "" {
		t, err := domain.ParseDate(opts.PerformedAt)
		if err != nil {
			return CompletionResult{}, invalid("performed at: %v", err)
		}
		if t.After(e.today()) {
			return CompletionResult{}, invalid("performed date %s is in the future", domain.FormatDate(t))
		}
		performed = &t
	}
	if performed == nil && opts.Forced == nil {
		return CompletionResult{}, invalid("performed date is required")
	}

	var res CompletionResult
	err := e.Store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		ev, err := tx.GetEvent(ctx, opts.EventID)
		if err != nil {
			return notFound(err, ErrEventNotFound, opts.EventID)
		}
		when := e.today()
		if performed != nil {
			when = *performed
		}
		next, err := e.classifier().Resolve(ev, when, opts.Forced)
		if err != nil {
			return ValidationError{Err: err}
		}
		previous := ev.Status
		patch := ports.EventPatch{Status: &next, ExpectStatus: &previous}
		if performed != nil {
			p := domain.FormatDate(*performed)
			patch.PerformedAt = &p
			if ev.Level == domain.LevelE {
				end := p
				if end < ev.Start {
					end = ev.Start
				}
				patch.End = &end
			}
		}

		eq, err := tx.GetEquipment(ctx, ev.EquipmentID)
		if err != nil {
			return notFound(err, ErrEquipmentNotFound, ev.EquipmentID)
		}
		penalty := e.config().Penalty.Penalty(ev.Level, next)
		index := eq.HealthIndex
		if penalty > 0 {
			v, err := health.Deduct(eq.HealthIndex, penalty)
			if err != nil {
				return ValidationError{Err: fmt.Errorf("%w: equipment %s", err, eq.ID)}
			}
			if err := tx.UpdateEquipmentHealthIndex(ctx, eq.ID, v, eq.HealthIndex); err != nil {
				return err
			}
			index = &v
		}

		updated, err := tx.UpdateEvent(ctx, ev.ID, patch)
		if err != nil {
			return notFound(err, ErrEventNotFound, ev.ID)
		}
		if err := e.writer().Append(ctx, tx, events.Entry{
			Action:      "update",
			Title:       "Maintenance event completed",
			Description: fmt.Sprintf("%s level %s resolved as %s", eq.Name, ev.Level, next),
			EquipmentID: eq.ID,
			EntityKind:  "event",
			EntityID:    ev.ID,
			Payload: events.EventPayload{
				"from":         previous,
				"to":           next,
				"performed_at": updated.PerformedAt,
				"penalty":      penalty,
			},
		}); err != nil {
			return err
		}
		res = CompletionResult{Event: updated, Penalty: penalty, HealthIndex: index}
		return nil
	})
	if err != nil {
		if conflict(err) {
			e.log().Warnw("completion lost a race", "event_id", opts.EventID, "error", err)
		}
		return CompletionResult{}, classify("complete event", err)
	}
	observability.EventCompletions.WithLabelValues(string(res.Event.Status)).Inc()
	if res.Penalty > 0 {
		observability.HealthPenalty.Add(res.Penalty)
	}
	res.Event.Color = e.palette().Color(res.Event)
	e.log().Infow("event completed", "event_id", res.Event.ID, "status", res.Event.Status, "penalty", res.Penalty)
	return res, nil
}

// EmergencyOptions are parameters for opening an emergency event.
type EmergencyOptions struct {
	EquipmentID string
	Title       string
	Description string
	// Start defaults to today.
	Start string
}

// OpenEmergency records an out-of-band emergency service on the latest plan
// of the equipment. Its end follows today until it is completed.
func (e Engine) OpenEmergency(ctx context.Context, opts EmergencyOptions) (domain.Event, error) {
	if opts.EquipmentID == "" {
		return domain.Event{}, invalid("equipment is required")
	}
	start := e.today()
	if opts.Start != "" {
		t, err := domain.ParseDate(opts.Start)
		if err != nil {
			return domain.Event{}, ValidationError{Err: err}
		}
		if t.After(start) {
			return domain.Event{}, invalid("emergency start %s is in the future", domain.FormatDate(t))
		}
		start = t
	}
	var ev domain.Event
	err := e.Store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		eq, err := tx.GetEquipment(ctx, opts.EquipmentID)
		if err != nil {
			return notFound(err, ErrEquipmentNotFound, opts.EquipmentID)
		}
		plan, err := latestPlan(ctx, tx, eq.ID)
		if err != nil {
			return err
		}
		day := domain.FormatDate(start)
		ev = domain.Event{
			ID:          e.newID(),
			PlanID:      plan.ID,
			EquipmentID: eq.ID,
			Level:       domain.LevelE,
			Title:       opts.Title,
			Description: opts.Description,
			Status:      domain.StatusEmergency,
			Start:       day,
			End:         domain.FormatDate(e.today()),
			ScheduledAt: day,
		}
		if ev.Title == "" {
			ev.Title = fmt.Sprintf("%s emergency maintenance", eq.Name)
		}
		if ev.Description == "" {
			ev.Description = fmt.Sprintf("%s %s emergency maintenance works", eq.Name, eq.AssetID)
		}
		if err := tx.InsertEvents(ctx, []domain.Event{ev}); err != nil {
			return fmt.Errorf("insert emergency event: %w", err)
		}
		return e.writer().Append(ctx, tx, events.Entry{
			Action:      "add",
			Title:       "Emergency maintenance opened",
			Description: ev.Title,
			EquipmentID: eq.ID,
			EntityKind:  "event",
			EntityID:    ev.ID,
			Payload:     events.EventPayload{"start": ev.Start},
		})
	})
	if err != nil {
		return domain.Event{}, classify("open emergency", err)
	}
	ev.Color = e.palette().Color(ev)
	e.log().Infow("emergency opened", "event_id", ev.ID, "equipment_id", ev.EquipmentID)
	return ev, nil
}
