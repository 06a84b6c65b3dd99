package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"upkeep/internal/domain"
)

// Appender persists activity rows; every ports.Tx satisfies it.
type Appender interface {
	AppendActivity(ctx context.Context, a domain.Activity) error
}

type Writer struct {
	Now func() time.Time
}

type EventPayload map[string]any

// Entry describes one activity row.
type Entry struct {
	Action      string
	Title       string
	Description string
	EquipmentID string
	EntityKind  string
	EntityID    string
	Payload     EventPayload
}

func (w Writer) Append(ctx context.Context, tx Appender, e Entry) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if e.Payload == nil {
		e.Payload = EventPayload{}
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal activity payload: %w", err)
	}
	return tx.AppendActivity(ctx, domain.Activity{
		TS:          ts,
		Action:      e.Action,
		Title:       e.Title,
		Description: e.Description,
		EquipmentID: e.EquipmentID,
		EntityKind:  e.EntityKind,
		EntityID:    e.EntityID,
		Payload:     string(data),
	})
}
