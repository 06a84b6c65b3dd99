// Package memory is an in-process ports.Store. Transactions are serialized
// and work on a copy of the data that replaces the live state on commit.
package memory

import (
	"context"
	"sort"
	"sync"

	"upkeep/internal/domain"
	"upkeep/internal/engine/status"
	"upkeep/internal/ports"
)

type state struct {
	equipment  map[string]domain.Equipment
	plans      map[string]domain.Plan
	events     map[string]domain.Event
	activities []domain.Activity
	nextID     int64
}

func (s state) clone() state {
	out := state{
		equipment:  make(map[string]domain.Equipment, len(s.equipment)),
		plans:      make(map[string]domain.Plan, len(s.plans)),
		events:     make(map[string]domain.Event, len(s.events)),
		activities: append([]domain.Activity(nil), s.activities...),
		nextID:     s.nextID,
	}
	for k, v := range s.equipment {
		out.equipment[k] = v
	}
	for k, v := range s.plans {
		out.plans[k] = v
	}
	for k, v := range s.events {
		out.events[k] = v
	}
	return out
}

type Store struct {
	mu       sync.Mutex
	data     state
	failures map[string]error
}

func New() *Store {
	return &Store{
		data: state{
			equipment: map[string]domain.Equipment{},
			plans:     map[string]domain.Plan{},
			events:    map[string]domain.Event{},
		},
		failures: map[string]error{},
	}
}

// FailOn makes every later call of the named Tx method return err. A nil
// err clears the fault.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.data.clone()
	if err := fn(ctx, &tx{st: &work, failures: s.failures}); err != nil {
		return err
	}
	s.data = work
	return nil
}

type tx struct {
	st       *state
	failures map[string]error
}

func (t *tx) fail(method string) error {
	return t.failures[method]
}

func (t *tx) InsertEquipment(ctx context.Context, eq domain.Equipment) error {
	if err := t.fail("InsertEquipment"); err != nil {
		return err
	}
	if _, ok := t.st.equipment[eq.ID]; ok {
		return ports.ErrConflict
	}
	t.st.equipment[eq.ID] = eq
	return nil
}

func (t *tx) GetEquipment(ctx context.Context, id string) (domain.Equipment, error) {
	if err := t.fail("GetEquipment"); err != nil {
		return domain.Equipment{}, err
	}
	eq, ok := t.st.equipment[id]
	if !ok {
		return domain.Equipment{}, ports.ErrNotFound
	}
	return eq, nil
}

func (t *tx) UpdateEquipmentHealthIndex(ctx context.Context, id string, value float64, expected *float64) error {
	if err := t.fail("UpdateEquipmentHealthIndex"); err != nil {
		return err
	}
	eq, ok := t.st.equipment[id]
	if !ok {
		return ports.ErrNotFound
	}
	if !sameIndex(eq.HealthIndex, expected) {
		return ports.ErrConflict
	}
	v := value
	eq.HealthIndex = &v
	t.st.equipment[id] = eq
	return nil
}

func sameIndex(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (t *tx) InsertPlan(ctx context.Context, p domain.Plan) error {
	if err := t.fail("InsertPlan"); err != nil {
		return err
	}
	if _, ok := t.st.plans[p.ID]; ok {
		return ports.ErrConflict
	}
	t.st.plans[p.ID] = p
	return nil
}

func (t *tx) GetPlan(ctx context.Context, id string) (domain.Plan, error) {
	if err := t.fail("GetPlan"); err != nil {
		return domain.Plan{}, err
	}
	p, ok := t.st.plans[id]
	if !ok {
		return domain.Plan{}, ports.ErrNotFound
	}
	return p, nil
}

func (t *tx) ListPlansForEquipment(ctx context.Context, equipmentID string) ([]domain.Plan, error) {
	if err := t.fail("ListPlansForEquipment"); err != nil {
		return nil, err
	}
	var out []domain.Plan
	for _, p := range t.st.plans {
		if p.EquipmentID == equipmentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (t *tx) InsertEvents(ctx context.Context, events []domain.Event) error {
	if err := t.fail("InsertEvents"); err != nil {
		return err
	}
	for _, ev := range events {
		if _, ok := t.st.events[ev.ID]; ok {
			return ports.ErrConflict
		}
		ev.Color = ""
		t.st.events[ev.ID] = ev
	}
	return nil
}

func (t *tx) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	if err := t.fail("GetEvent"); err != nil {
		return domain.Event{}, err
	}
	ev, ok := t.st.events[id]
	if !ok {
		return domain.Event{}, ports.ErrNotFound
	}
	return ev, nil
}

func matches(ev domain.Event, f domain.EventFilter) bool {
	switch {
	case f.EquipmentID != "" && ev.EquipmentID != f.EquipmentID:
		return false
	case f.PlanID != "" && ev.PlanID != f.PlanID:
		return false
	case f.Status != "" && ev.Status != f.Status:
		return false
	case f.Level != "" && ev.Level != f.Level:
		return false
	case f.From != "" && ev.Start < f.From:
		return false
	case f.To != "" && ev.Start > f.To:
		return false
	}
	return true
}

func sortByStart(evs []domain.Event) {
	sort.Slice(evs, func(i, j int) bool {
		if evs[i].Start != evs[j].Start {
			return evs[i].Start < evs[j].Start
		}
		return evs[i].ID < evs[j].ID
	})
}

func (t *tx) ListEvents(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	if err := t.fail("ListEvents"); err != nil {
		return nil, err
	}
	var out []domain.Event
	for _, ev := range t.st.events {
		if matches(ev, f) {
			out = append(out, ev)
		}
	}
	sortByStart(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *tx) UpdateEvent(ctx context.Context, id string, patch ports.EventPatch) (domain.Event, error) {
	if err := t.fail("UpdateEvent"); err != nil {
		return domain.Event{}, err
	}
	ev, ok := t.st.events[id]
	if !ok {
		return domain.Event{}, ports.ErrNotFound
	}
	if patch.ExpectStatus != nil && ev.Status != *patch.ExpectStatus {
		return domain.Event{}, ports.ErrConflict
	}
	if patch.Status != nil {
		ev.Status = *patch.Status
	}
	if patch.PerformedAt != nil {
		p := *patch.PerformedAt
		ev.PerformedAt = &p
	}
	if patch.End != nil {
		ev.End = *patch.End
	}
	t.st.events[id] = ev
	return ev, nil
}

func (t *tx) ListSweepCandidates(ctx context.Context, startBefore string) ([]domain.Event, error) {
	if err := t.fail("ListSweepCandidates"); err != nil {
		return nil, err
	}
	var out []domain.Event
	for _, ev := range t.st.events {
		if status.SweepableBefore(ev, startBefore) {
			out = append(out, ev)
		}
	}
	sortByStart(out)
	return out, nil
}

func (t *tx) MarkIncomplete(ctx context.Context, id, startBefore string) (bool, error) {
	if err := t.fail("MarkIncomplete"); err != nil {
		return false, err
	}
	ev, ok := t.st.events[id]
	if !ok || !status.SweepableBefore(ev, startBefore) {
		return false, nil
	}
	ev.Status = domain.StatusIncomplete
	t.st.events[id] = ev
	return true, nil
}

func (t *tx) MoveEmergencyEnds(ctx context.Context, today string) ([]domain.Event, error) {
	if err := t.fail("MoveEmergencyEnds"); err != nil {
		return nil, err
	}
	var out []domain.Event
	for id, ev := range t.st.events {
		if ev.Level != domain.LevelE || ev.Status != domain.StatusEmergency || ev.End == today {
			continue
		}
		ev.End = today
		t.st.events[id] = ev
		out = append(out, ev)
	}
	sortByStart(out)
	return out, nil
}

var statusOrder = []domain.Status{
	domain.StatusUpcoming,
	domain.StatusOverdue,
	domain.StatusComplete,
	domain.StatusIncomplete,
	domain.StatusEmergency,
}

func (t *tx) CountByStatus(ctx context.Context) ([]domain.StatusSummary, error) {
	if err := t.fail("CountByStatus"); err != nil {
		return nil, err
	}
	counts := map[domain.Status]int{}
	equipment := map[domain.Status]map[string]struct{}{}
	for _, ev := range t.st.events {
		counts[ev.Status]++
		if equipment[ev.Status] == nil {
			equipment[ev.Status] = map[string]struct{}{}
		}
		equipment[ev.Status][ev.EquipmentID] = struct{}{}
	}
	var out []domain.StatusSummary
	for _, s := range statusOrder {
		if counts[s] == 0 {
			continue
		}
		out = append(out, domain.StatusSummary{Status: s, Events: counts[s], EquipmentCount: len(equipment[s])})
	}
	return out, nil
}

func (t *tx) AppendActivity(ctx context.Context, a domain.Activity) error {
	if err := t.fail("AppendActivity"); err != nil {
		return err
	}
	t.st.nextID++
	a.ID = t.st.nextID
	t.st.activities = append(t.st.activities, a)
	return nil
}

func (t *tx) ListActivities(ctx context.Context, equipmentID string, limit int) ([]domain.Activity, error) {
	if err := t.fail("ListActivities"); err != nil {
		return nil, err
	}
	var out []domain.Activity
	for i := len(t.st.activities) - 1; i >= 0; i-- {
		a := t.st.activities[i]
		if equipmentID != "" && a.EquipmentID != equipmentID {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
