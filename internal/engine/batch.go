package engine

import (
	"context"
	"fmt"
	"time"

	"upkeep/internal/domain"
	"upkeep/internal/events"
	"upkeep/internal/observability"
	"upkeep/internal/ports"
)

// SweepIncomplete moves every overdue, unperformed event that started more
// than the incomplete threshold ago to incomplete and returns the moved ids.
// Each row is re-checked at write time, so an event completed concurrently
// is skipped. Running it twice on the same day changes nothing the second
// time. No penalty is applied.
func (e Engine) SweepIncomplete(ctx context.Context) ([]string, error) {
	defer observe("sweep_incomplete", time.Now())
	today := e.today()
	cutoff := domain.FormatDate(e.classifier().SweepCutoff(today))
	var moved []string
	err := e.Store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		moved = moved[:0]
		candidates, err := tx.ListSweepCandidates(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("list sweep candidates: %w", err)
		}
		for _, ev := range candidates {
			if !e.classifier().Sweepable(today, ev) {
				e.log().Warnw("store returned an event outside the sweep rule", "event_id", ev.ID, "status", ev.Status, "start", ev.Start)
				continue
			}
			ok, err := tx.MarkIncomplete(ctx, ev.ID, cutoff)
			if err != nil {
				return fmt.Errorf("mark %s incomplete: %w", ev.ID, err)
			}
			if ok {
				moved = append(moved, ev.ID)
			}
		}
		if len(moved) == 0 {
			return nil
		}
		return e.writer().Append(ctx, tx, events.Entry{
			Action:      "update",
			Title:       "Overdue events marked incomplete",
			Description: fmt.Sprintf("%d overdue events started before %s", len(moved), cutoff),
			EntityKind:  "event",
			Payload:     events.EventPayload{"events": moved, "cutoff": cutoff},
		})
	})
	if err != nil {
		e.log().Errorw("sweep failed", "cutoff", cutoff, "error", err)
		return nil, classify("sweep incomplete", err)
	}
	observability.SweepTransitions.Add(float64(len(moved)))
	e.log().Infow("sweep finished", "cutoff", cutoff, "moved", len(moved))
	return moved, nil
}

// CloseEmergencyEvents advances the end of every open emergency event to
// today and returns the events it changed. Idempotent within a day.
func (e Engine) CloseEmergencyEvents(ctx context.Context) ([]domain.Event, error) {
	defer observe("close_emergency_events", time.Now())
	today := domain.FormatDate(e.today())
	var changed []domain.Event
	err := e.Store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		changed, err = tx.MoveEmergencyEnds(ctx, today)
		if err != nil {
			return fmt.Errorf("move emergency ends: %w", err)
		}
		if len(changed) == 0 {
			return nil
		}
		ids := make([]string, 0, len(changed))
		for _, ev := range changed {
			ids = append(ids, ev.ID)
		}
		return e.writer().Append(ctx, tx, events.Entry{
			Action:      "update",
			Title:       "Emergency events extended",
			Description: fmt.Sprintf("%d emergency events now end on %s", len(changed), today),
			EntityKind:  "event",
			Payload:     events.EventPayload{"events": ids, "end": today},
		})
	})
	if err != nil {
		e.log().Errorw("emergency close failed", "today", today, "error", err)
		return nil, classify("close emergency events", err)
	}
	observability.EmergencyMoves.Add(float64(len(changed)))
	return e.palette().Paint(changed), nil
}
