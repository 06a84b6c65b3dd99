package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"upkeep/internal/config"
	"upkeep/internal/domain"
	"upkeep/internal/engine/health"
	"upkeep/internal/engine/schedule"
	"upkeep/internal/engine/status"
	"upkeep/internal/events"
	"upkeep/internal/observability"
	"upkeep/internal/ports"
)

type Engine struct {
	Store  ports.Store
	Events events.Writer
	Config *config.Config
	Log    *zap.SugaredLogger
	Now    func() time.Time
	NewID  func() string
}

func New(store ports.Store, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		Store:  store,
		Events: events.Writer{Now: time.Now},
		Config: cfg,
		Log:    observability.New("engine"),
		Now:    time.Now,
		NewID:  uuid.NewString,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) today() time.Time {
	return domain.Midnight(e.now())
}

func (e Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e Engine) log() *zap.SugaredLogger {
	if e.Log != nil {
		return e.Log
	}
	return observability.Nop()
}

func (e Engine) config() *config.Config {
	if e.Config != nil {
		return e.Config
	}
	return config.Default()
}

func (e Engine) classifier() status.Classifier {
	return status.New(e.config().Status)
}

func (e Engine) palette() status.Palette {
	return e.config().Palette
}

func (e Engine) writer() events.Writer {
	w := e.Events
	w.Now = e.now
	return w
}

func (e Engine) generator() schedule.Generator {
	return schedule.Generator{
		Classifier: e.classifier(),
		DropFirst:  e.config().Scheduling.DropFirstOccurrence,
		Now:        e.now,
	}
}

func observe(op string, started time.Time) {
	observability.OperationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// EquipmentCreateOptions are parameters for registering equipment.
type EquipmentCreateOptions struct {
	ID                   string
	Name                 string
	AssetID              string
	DateOfManufacturing  string
	UsefulLifeSpanMonths int
}

func (e Engine) RegisterEquipment(ctx context.Context, opts EquipmentCreateOptions) (domain.Equipment, error) {
	if opts.Name == "" {
		return domain.Equipment{}, invalid("name is required")
	}
	if opts.UsefulLifeSpanMonths <= 0 {
		return domain.Equipment{}, ValidationError{Err: health.ErrInvalidLifespan}
	}
	made, err := domain.ParseDate(opts.DateOfManufacturing)
	if err != nil {
		return domain.Equipment{}, invalid("date of manufacturing: %v", err)
	}
	if made.After(e.today()) {
		return domain.Equipment{}, invalid("date of manufacturing %s is in the future", domain.FormatDate(made))
	}
	eq := domain.Equipment{
		ID:                   opts.ID,
		Name:                 opts.Name,
		AssetID:              opts.AssetID,
		DateOfManufacturing:  domain.FormatDate(made),
		UsefulLifeSpanMonths: opts.UsefulLifeSpanMonths,
		CreatedAt:            e.now().UTC().Format(time.RFC3339),
	}
	if eq.ID == "" {
		eq.ID = e.newID()
	}
	err = e.Store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := tx.InsertEquipment(ctx, eq); err != nil {
			return fmt.Errorf("insert equipment: %w", err)
		}
		return e.writer().Append(ctx, tx, events.Entry{
			Action:      "add",
			Title:       "Equipment registered",
			Description: fmt.Sprintf("%s (%s) registered", eq.Name, eq.AssetID),
			EquipmentID: eq.ID,
			EntityKind:  "equipment",
			EntityID:    eq.ID,
			Payload:     events.EventPayload{"useful_life_span_months": eq.UsefulLifeSpanMonths},
		})
	})
	if err != nil {
		return domain.Equipment{}, classify("register equipment", err)
	}
	e.log().Infow("equipment registered", "equipment_id", eq.ID, "name", eq.Name)
	return eq, nil
}

func (e Engine) GetEquipment(ctx context.Context, id string) (domain.Equipment, error) {
	var eq domain.Equipment
	err := e.Store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		eq, err = tx.GetEquipment(ctx, id)
		return notFound(err, ErrEquipmentNotFound, id)
	})
	return eq, classify("get equipment", err)
}

// PlanCreateOptions are parameters for creating a maintenance plan. The
// overrides replace the plan's service window for generation only.
type PlanCreateOptions struct {
	ID                string
	EquipmentID       string
	DailyWorkingHours int
	ServiceStartDate  string
	ServiceEndDate    string
	GivenHealthIndex  int
	Tiers             map[domain.Level]domain.Tier
	StartOverride     string
	EndOverride       string
}

// PlanResult is a persisted plan with its generated schedule and the
// equipment health index computed for it.
type PlanResult struct {
	Plan        domain.Plan    `json:"plan"`
	Events      []domain.Event `json:"events"`
	HealthIndex float64        `json:"health_index"`
}

func validatePlan(opts PlanCreateOptions) (domain.Plan, error) {
	if opts.EquipmentID == "" {
		return domain.Plan{}, invalid("equipment is required")
	}
	if opts.DailyWorkingHours < 1 || opts.DailyWorkingHours > 24 {
		return domain.Plan{}, invalid("daily working hours must be between 1 and 24, got %d", opts.DailyWorkingHours)
	}
	if opts.GivenHealthIndex == 0 {
		opts.GivenHealthIndex = int(health.MaxIndex)
	}
	if opts.GivenHealthIndex < 1 || opts.GivenHealthIndex > int(health.MaxIndex) {
		return domain.Plan{}, invalid("given health index must be between 1 and 100, got %d", opts.GivenHealthIndex)
	}
	tiers := make(map[domain.Level]domain.Tier, len(domain.PriorityOrder))
	for level, tier := range opts.Tiers {
		if level == domain.LevelE || !level.Valid() {
			return domain.Plan{}, invalid("unknown maintenance level %q", level)
		}
		if tier.Hours < 0 || tier.DurationDays < 0 {
			return domain.Plan{}, invalid("level %s hours and duration must not be negative", level)
		}
		tiers[level] = tier
	}
	p := domain.Plan{
		EquipmentID:       opts.EquipmentID,
		DailyWorkingHours: opts.DailyWorkingHours,
		GivenHealthIndex:  opts.GivenHealthIndex,
		Tiers:             tiers,
	}
	if !p.HasActiveTier() {
		return domain.Plan{}, ValidationError{Err: ErrNoActiveTier}
	}
	w, err := schedule.ResolveWindow(domain.Plan{ServiceStartDate: opts.ServiceStartDate, ServiceEndDate: opts.ServiceEndDate}, "", "")
	if err != nil {
		return domain.Plan{}, ValidationError{Err: err}
	}
	p.ServiceStartDate = domain.FormatDate(w.Start)
	p.ServiceEndDate = domain.FormatDate(w.End)
	return p, nil
}

// CreatePlan persists a plan, its generated events and the equipment's new
// health index in one transaction. Nothing is written when any step fails.
func (e Engine) CreatePlan(ctx context.Context, opts PlanCreateOptions) (PlanResult, error) {
	defer observe("create_plan", time.Now())
	plan, err := validatePlan(opts)
	if err != nil {
		return PlanResult{}, err
	}
	plan.ID = opts.ID
	if plan.ID == "" {
		plan.ID = e.newID()
	}
	plan.CreatedAt = e.now().UTC().Format(time.RFC3339)

	var res PlanResult
	err = e.Store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		eq, err := tx.GetEquipment(ctx, plan.EquipmentID)
		if err != nil {
			return notFound(err, ErrEquipmentNotFound, plan.EquipmentID)
		}
		if err := tx.InsertPlan(ctx, plan); err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}
		booked, err := bookedSlots(ctx, tx, eq.ID)
		if err != nil {
			return err
		}
		evs, err := e.generator().GenerateAround(plan, eq, booked, opts.StartOverride, opts.EndOverride)
		if err != nil {
			return ValidationError{Err: err}
		}
		for i := range evs {
			evs[i].ID = e.newID()
		}
		if err := tx.InsertEvents(ctx, evs); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
		index, err := health.Assess(eq, plan.GivenHealthIndex, e.now())
		if err != nil {
			return ValidationError{Err: err}
		}
		if err := tx.UpdateEquipmentHealthIndex(ctx, eq.ID, index, eq.HealthIndex); err != nil {
			return fmt.Errorf("update health index: %w", err)
		}
		if err := e.writer().Append(ctx, tx, events.Entry{
			Action:      "add",
			Title:       "Maintenance plan created",
			Description: fmt.Sprintf("%d maintenance events scheduled for %s", len(evs), eq.Name),
			EquipmentID: eq.ID,
			EntityKind:  "plan",
			EntityID:    plan.ID,
			Payload: events.EventPayload{
				"events":       len(evs),
				"health_index": index,
				"start":        plan.ServiceStartDate,
				"end":          plan.ServiceEndDate,
			},
		}); err != nil {
			return err
		}
		res = PlanResult{Plan: plan, Events: evs, HealthIndex: index}
		return nil
	})
	if err != nil {
		e.log().Warnw("create plan failed", "equipment_id", plan.EquipmentID, "error", err)
		return PlanResult{}, classify("create plan", err)
	}
	observability.PlansCreated.Inc()
	for _, ev := range res.Events {
		observability.EventsGenerated.WithLabelValues(string(ev.Level)).Inc()
	}
	res.Events = e.palette().Paint(res.Events)
	e.log().Infow("plan created", "plan_id", plan.ID, "equipment_id", plan.EquipmentID, "events", len(res.Events), "health_index", res.HealthIndex)
	return res, nil
}

// bookedSlots returns the planned events already scheduled on equipment.
// Emergencies are ad hoc and do not reserve a slot.
func bookedSlots(ctx context.Context, tx ports.Tx, equipmentID string) ([]schedule.Occurrence, error) {
	evs, err := tx.ListEvents(ctx, domain.EventFilter{EquipmentID: equipmentID})
	if err != nil {
		return nil, fmt.Errorf("list booked events: %w", err)
	}
	out := make([]schedule.Occurrence, 0, len(evs))
	for _, ev := range evs {
		if ev.Level == domain.LevelE {
			continue
		}
		start, err := domain.ParseDate(ev.Start)
		if err != nil {
			return nil, fmt.Errorf("event %s start: %w", ev.ID, err)
		}
		end := start
		if ev.End != "" {
			if end, err = domain.ParseDate(ev.End); err != nil {
				return nil, fmt.Errorf("event %s end: %w", ev.ID, err)
			}
		}
		out = append(out, schedule.Occurrence{Level: ev.Level, Start: start, End: end})
	}
	return out, nil
}

func (e Engine) GetPlan(ctx context.Context, id string) (domain.Plan, error) {
	var p domain.Plan
	err := e.Store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		p, err = tx.GetPlan(ctx, id)
		return notFound(err, ErrPlanNotFound, id)
	})
	return p, classify("get plan", err)
}

// latestPlan returns the newest plan of equipmentID.
func latestPlan(ctx context.Context, tx ports.Tx, equipmentID string) (domain.Plan, error) {
	plans, err := tx.ListPlansForEquipment(ctx, equipmentID)
	if err != nil {
		return domain.Plan{}, err
	}
	if len(plans) == 0 {
		return domain.Plan{}, NotFoundError{Err: fmt.Errorf("%w: no plan for equipment %s", ErrPlanNotFound, equipmentID)}
	}
	return plans[0], nil
}

// RecalculateHealthIndex reassesses equipment from its age and the given
// index of planID, or of its latest plan when planID is empty.
func (e Engine) RecalculateHealthIndex(ctx context.Context, equipmentID, planID string) (float64, error) {
	var index float64
	err := e.Store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		eq, err := tx.GetEquipment(ctx, equipmentID)
		if err != nil {
			return notFound(err, ErrEquipmentNotFound, equipmentID)
		}
		var plan domain.Plan
		if planID == "" {
			if plan, err = latestPlan(ctx, tx, equipmentID); err != nil {
				return err
			}
		} else {
			if plan, err = tx.GetPlan(ctx, planID); err != nil {
				return notFound(err, ErrPlanNotFound, planID)
			}
			if plan.EquipmentID != equipmentID {
				return invalid("plan %s does not belong to equipment %s", planID, equipmentID)
			}
		}
		index, err = health.Assess(eq, plan.GivenHealthIndex, e.now())
		if err != nil {
			return ValidationError{Err: err}
		}
		if err := tx.UpdateEquipmentHealthIndex(ctx, eq.ID, index, eq.HealthIndex); err != nil {
			return err
		}
		return e.writer().Append(ctx, tx, events.Entry{
			Action:      "update",
			Title:       "Health index recalculated",
			Description: fmt.Sprintf("%s health index set to %.2f", eq.Name, index),
			EquipmentID: eq.ID,
			EntityKind:  "equipment",
			EntityID:    eq.ID,
			Payload:     events.EventPayload{"plan_id": plan.ID, "health_index": index},
		})
	})
	if err != nil {
		return 0, classify("recalculate health index", err)
	}
	return index, nil
}

// ListEvents returns events matching f ordered by start date, with colors.
func (e Engine) ListEvents(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("unknown status %q", f.Status)
	}
	if f.Level != "" && !f.Level.Valid() {
		return nil, invalid("unknown maintenance level %q", f.Level)
	}
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := domain.ParseDate(d); err != nil {
			return nil, ValidationError{Err: err}
		}
	}
	var out []domain.Event
	err := e.Store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		out, err = tx.ListEvents(ctx, f)
		return err
	})
	if err != nil {
		return nil, classify("list events", err)
	}
	return e.palette().Paint(out), nil
}

func (e Engine) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	var ev domain.Event
	err := e.Store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		ev, err = tx.GetEvent(ctx, id)
		return notFound(err, ErrEventNotFound, id)
	})
	if err != nil {
		return domain.Event{}, classify("get event", err)
	}
	ev.Color = e.palette().Color(ev)
	return ev, nil
}

// Nearest holds the closest events before and after today. Events starting
// today belong to neither side.
type Nearest struct {
	Previous *domain.Event `json:"previous,omitempty"`
	Next     *domain.Event `json:"next,omitempty"`
}

func (e Engine) NearestEvents(ctx context.Context, equipmentID string) (Nearest, error) {
	if _, err := e.GetEquipment(ctx, equipmentID); err != nil {
		return Nearest{}, err
	}
	evs, err := e.ListEvents(ctx, domain.EventFilter{EquipmentID: equipmentID})
	if err != nil {
		return Nearest{}, err
	}
	today := domain.FormatDate(e.today())
	var out Nearest
	for i := range evs {
		ev := evs[i]
		switch {
		case ev.Start < today:
			out.Previous = &ev
		case ev.Start > today && out.Next == nil:
			out.Next = &ev
		}
	}
	return out, nil
}

// Summary counts events and distinct equipment per status.
func (e Engine) Summary(ctx context.Context) ([]domain.StatusSummary, error) {
	var out []domain.StatusSummary
	err := e.Store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		out, err = tx.CountByStatus(ctx)
		return err
	})
	return out, classify("summary", err)
}

func (e Engine) Activities(ctx context.Context, equipmentID string, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.Activity
	err := e.Store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		out, err = tx.ListActivities(ctx, equipmentID, limit)
		return err
	})
	return out, classify("list activities", err)
}

// conflict reports whether err came from a lost compare-and-set.
func conflict(err error) bool {
	return errors.Is(err, ports.ErrConflict)
}
