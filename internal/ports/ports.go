// Package ports declares the persistence boundary consumed by the scheduling
// engine. Implementations live in internal/repo (SQLite),
// internal/store/postgres and internal/store/memory.
package ports

import (
	"context"
	"errors"

	"upkeep/internal/domain"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional write lost a race.
	ErrConflict = errors.New("concurrent modification")
)

// Store opens transactions. fn's changes are committed when it returns nil
// and rolled back otherwise.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// EventPatch lists the mutable event columns. Nil fields are left unchanged.
// When ExpectStatus is set the update only applies while the stored status
// still equals it; otherwise UpdateEvent returns ErrConflict.
type EventPatch struct {
	Status       *domain.Status
	PerformedAt  *string
	End          *string
	ExpectStatus *domain.Status
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	InsertEquipment(ctx context.Context, eq domain.Equipment) error
	GetEquipment(ctx context.Context, id string) (domain.Equipment, error)
	// UpdateEquipmentHealthIndex stores value when the current index still
	// equals expected (nil meaning unset) and returns ErrConflict otherwise.
	UpdateEquipmentHealthIndex(ctx context.Context, id string, value float64, expected *float64) error

	InsertPlan(ctx context.Context, p domain.Plan) error
	GetPlan(ctx context.Context, id string) (domain.Plan, error)
	// ListPlansForEquipment returns plans newest first.
	ListPlansForEquipment(ctx context.Context, equipmentID string) ([]domain.Plan, error)

	InsertEvents(ctx context.Context, events []domain.Event) error
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	// ListEvents returns events ordered by start date.
	ListEvents(ctx context.Context, f domain.EventFilter) ([]domain.Event, error)
	UpdateEvent(ctx context.Context, id string, patch EventPatch) (domain.Event, error)

	// ListSweepCandidates returns overdue, unperformed events starting before startBefore.
	ListSweepCandidates(ctx context.Context, startBefore string) ([]domain.Event, error)
	// MarkIncomplete moves event id to incomplete only if it is still
	// overdue, unperformed and starts before startBefore.
	MarkIncomplete(ctx context.Context, id, startBefore string) (bool, error)
	// MoveEmergencyEnds sets end=today on every open emergency event whose
	// end differs and returns the changed events.
	MoveEmergencyEnds(ctx context.Context, today string) ([]domain.Event, error)

	CountByStatus(ctx context.Context) ([]domain.StatusSummary, error)
	AppendActivity(ctx context.Context, a domain.Activity) error
	ListActivities(ctx context.Context, equipmentID string, limit int) ([]domain.Activity, error)
}
