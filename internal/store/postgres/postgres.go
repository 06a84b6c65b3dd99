// Package postgres implements ports.Store on PostgreSQL through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"upkeep/internal/domain"
	"upkeep/internal/migrate"
	"upkeep/internal/ports"
)

// Config holds the connection pool settings.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Store struct {
	db *sqlx.DB
}

var _ ports.Store = (*Store)(nil)

// Connect opens and pings the database.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return New(db), nil
}

// New wraps an existing connection.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Migrate applies the PostgreSQL schema.
func (s *Store) Migrate() error {
	return migrate.Apply(s.db.DB, migrate.Postgres)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	if err := fn(ctx, &txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type txStore struct {
	tx *sqlx.Tx
}

type equipmentRow struct {
	ID                   string          `db:"id"`
	Name                 string          `db:"name"`
	AssetID              string          `db:"asset_id"`
	DateOfManufacturing  string          `db:"date_of_manufacturing"`
	UsefulLifeSpanMonths int             `db:"useful_life_span_months"`
	HealthIndex          sql.NullFloat64 `db:"health_index"`
	CreatedAt            string          `db:"created_at"`
}

func (r equipmentRow) domain() domain.Equipment {
	eq := domain.Equipment{
		ID:                   r.ID,
		Name:                 r.Name,
		AssetID:              r.AssetID,
		DateOfManufacturing:  r.DateOfManufacturing,
		UsefulLifeSpanMonths: r.UsefulLifeSpanMonths,
		CreatedAt:            r.CreatedAt,
	}
	if r.HealthIndex.Valid {
		v := r.HealthIndex.Float64
		eq.HealthIndex = &v
	}
	return eq
}

type planRow struct {
	ID                string `db:"id"`
	EquipmentID       string `db:"equipment_id"`
	DailyWorkingHours int    `db:"daily_working_hours"`
	ServiceStartDate  string `db:"service_start_date"`
	ServiceEndDate    string `db:"service_end_date"`
	GivenHealthIndex  int    `db:"given_health_index"`
	TiersJSON         string `db:"tiers_json"`
	CreatedAt         string `db:"created_at"`
}

func (r planRow) domain() (domain.Plan, error) {
	p := domain.Plan{
		ID:                r.ID,
		EquipmentID:       r.EquipmentID,
		DailyWorkingHours: r.DailyWorkingHours,
		ServiceStartDate:  r.ServiceStartDate,
		ServiceEndDate:    r.ServiceEndDate,
		GivenHealthIndex:  r.GivenHealthIndex,
		CreatedAt:         r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.TiersJSON), &p.Tiers); err != nil {
		return p, fmt.Errorf("decode tiers of plan %s: %w", r.ID, err)
	}
	return p, nil
}

type eventRow struct {
	ID          string         `db:"id"`
	PlanID      string         `db:"plan_id"`
	EquipmentID string         `db:"equipment_id"`
	Level       string         `db:"level"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Status      string         `db:"status"`
	Start       string         `db:"start_date"`
	End         string         `db:"end_date"`
	ScheduledAt string         `db:"scheduled_at"`
	PerformedAt sql.NullString `db:"performed_at"`
}

func newEventRow(ev domain.Event) eventRow {
	r := eventRow{
		ID:          ev.ID,
		PlanID:      ev.PlanID,
		EquipmentID: ev.EquipmentID,
		Level:       string(ev.Level),
		Title:       ev.Title,
		Description: ev.Description,
		Status:      string(ev.Status),
		Start:       ev.Start,
		End:         ev.End,
		ScheduledAt: ev.ScheduledAt,
	}
	if ev.PerformedAt != nil {
		r.PerformedAt = sql.NullString{String: *ev.PerformedAt, Valid: true}
	}
	return r
}

func (r eventRow) domain() domain.Event {
	ev := domain.Event{
		ID:          r.ID,
		PlanID:      r.PlanID,
		EquipmentID: r.EquipmentID,
		Level:       domain.Level(r.Level),
		Title:       r.Title,
		Description: r.Description,
		Status:      domain.Status(r.Status),
		Start:       r.Start,
		End:         r.End,
		ScheduledAt: r.ScheduledAt,
	}
	if r.PerformedAt.Valid {
		v := r.PerformedAt.String
		ev.PerformedAt = &v
	}
	return ev
}

func toEvents(rows []eventRow) []domain.Event {
	if len(rows) == 0 {
		return nil
	}
	out := make([]domain.Event, len(rows))
	for i, r := range rows {
		out[i] = r.domain()
	}
	return out
}

const (
	equipmentColumns = `id, name, asset_id, date_of_manufacturing, useful_life_span_months, health_index, created_at`
	planColumns      = `id, equipment_id, daily_working_hours, service_start_date, service_end_date, given_health_index, tiers_json, created_at`
	eventColumns     = `id, plan_id, equipment_id, level, title, description, status, start_date, end_date, scheduled_at, performed_at`
)

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ports.ErrNotFound
	}
	return err
}

func (t *txStore) InsertEquipment(ctx context.Context, eq domain.Equipment) error {
	row := equipmentRow{
		ID:                   eq.ID,
		Name:                 eq.Name,
		AssetID:              eq.AssetID,
		DateOfManufacturing:  eq.DateOfManufacturing,
		UsefulLifeSpanMonths: eq.UsefulLifeSpanMonths,
		CreatedAt:            eq.CreatedAt,
	}
	if eq.HealthIndex != nil {
		row.HealthIndex = sql.NullFloat64{Float64: *eq.HealthIndex, Valid: true}
	}
	_, err := t.tx.NamedExecContext(ctx, `INSERT INTO equipment (`+equipmentColumns+`)
		VALUES (:id, :name, :asset_id, :date_of_manufacturing, :useful_life_span_months, :health_index, :created_at)`, row)
	if err != nil {
		return fmt.Errorf("failed to insert equipment: %w", err)
	}
	return nil
}

func (t *txStore) GetEquipment(ctx context.Context, id string) (domain.Equipment, error) {
	var row equipmentRow
	if err := t.tx.GetContext(ctx, &row, `SELECT `+equipmentColumns+` FROM equipment WHERE id = $1`, id); err != nil {
		return domain.Equipment{}, notFound(err)
	}
	return row.domain(), nil
}

func (t *txStore) UpdateEquipmentHealthIndex(ctx context.Context, id string, value float64, expected *float64) error {
	var want sql.NullFloat64
	if expected != nil {
		want = sql.NullFloat64{Float64: *expected, Valid: true}
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE equipment SET health_index = $1 WHERE id = $2 AND health_index IS NOT DISTINCT FROM $3::double precision`, value, id, want)
	if err != nil {
		return fmt.Errorf("failed to update health index: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return t.missingOrConflict(ctx, "equipment", id)
}

// missingOrConflict explains a conditional update that matched no row.
func (t *txStore) missingOrConflict(ctx context.Context, table, id string) error {
	var exists bool
	if err := t.tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id); err != nil {
		return err
	}
	if !exists {
		return ports.ErrNotFound
	}
	return ports.ErrConflict
}

func (t *txStore) InsertPlan(ctx context.Context, p domain.Plan) error {
	tiers, err := json.Marshal(p.Tiers)
	if err != nil {
		return err
	}
	row := planRow{
		ID:                p.ID,
		EquipmentID:       p.EquipmentID,
		DailyWorkingHours: p.DailyWorkingHours,
		ServiceStartDate:  p.ServiceStartDate,
		ServiceEndDate:    p.ServiceEndDate,
		GivenHealthIndex:  p.GivenHealthIndex,
		TiersJSON:         string(tiers),
		CreatedAt:         p.CreatedAt,
	}
	_, err = t.tx.NamedExecContext(ctx, `INSERT INTO plans (`+planColumns+`)
		VALUES (:id, :equipment_id, :daily_working_hours, :service_start_date, :service_end_date, :given_health_index, :tiers_json, :created_at)`, row)
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}
	return nil
}

func (t *txStore) GetPlan(ctx context.Context, id string) (domain.Plan, error) {
	var row planRow
	if err := t.tx.GetContext(ctx, &row, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id); err != nil {
		return domain.Plan{}, notFound(err)
	}
	return row.domain()
}

func (t *txStore) ListPlansForEquipment(ctx context.Context, equipmentID string) ([]domain.Plan, error) {
	var rows []planRow
	if err := t.tx.SelectContext(ctx, &rows,
		`SELECT `+planColumns+` FROM plans WHERE equipment_id = $1 ORDER BY created_at DESC, id DESC`, equipmentID); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	out := make([]domain.Plan, 0, len(rows))
	for _, r := range rows {
		p, err := r.domain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (t *txStore) InsertEvents(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareNamedContext(ctx, `INSERT INTO events (`+eventColumns+`)
		VALUES (:id, :plan_id, :equipment_id, :level, :title, :description, :status, :start_date, :end_date, :scheduled_at, :performed_at)`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer stmt.Close()
	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, newEventRow(ev)); err != nil {
			return fmt.Errorf("failed to insert event %s: %w", ev.ID, err)
		}
	}
	return nil
}

func (t *txStore) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	var row eventRow
	if err := t.tx.GetContext(ctx, &row, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id); err != nil {
		return domain.Event{}, notFound(err)
	}
	return row.domain(), nil
}

func (t *txStore) selectEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	var rows []eventRow
	if err := t.tx.SelectContext(ctx, &rows, t.tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return toEvents(rows), nil
}

func (t *txStore) ListEvents(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	var clauses []string
	var args []any
	add := func(clause string, v any) {
		clauses = append(clauses, clause)
		args = append(args, v)
	}
	if f.EquipmentID != "" {
		add("equipment_id = ?", f.EquipmentID)
	}
	if f.PlanID != "" {
		add("plan_id = ?", f.PlanID)
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	if f.Level != "" {
		add("level = ?", string(f.Level))
	}
	if f.From != "" {
		add("start_date >= ?", f.From)
	}
	if f.To != "" {
		add("start_date <= ?", f.To)
	}
	query := `SELECT ` + eventColumns + ` FROM events`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY start_date ASC, id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return t.selectEvents(ctx, query, args...)
}

func (t *txStore) UpdateEvent(ctx context.Context, id string, patch ports.EventPatch) (domain.Event, error) {
	var (
		fields []string
		args   []any
	)
	if patch.Status != nil {
		fields = append(fields, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.PerformedAt != nil {
		fields = append(fields, "performed_at = ?")
		args = append(args, *patch.PerformedAt)
	}
	if patch.End != nil {
		fields = append(fields, "end_date = ?")
		args = append(args, *patch.End)
	}
	if len(fields) == 0 {
		return t.GetEvent(ctx, id)
	}
	query := `UPDATE events SET ` + strings.Join(fields, ", ") + ` WHERE id = ?`
	args = append(args, id)
	if patch.ExpectStatus != nil {
		query += ` AND status = ?`
		args = append(args, string(*patch.ExpectStatus))
	}
	query += ` RETURNING ` + eventColumns
	var row eventRow
	err := t.tx.GetContext(ctx, &row, t.tx.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, t.missingOrConflict(ctx, "events", id)
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to update event: %w", err)
	}
	return row.domain(), nil
}

// sweepCondition selects the rows status.SweepableBefore accepts.
const sweepCondition = `status = 'overdue' AND performed_at IS NULL AND start_date < ?`

func (t *txStore) ListSweepCandidates(ctx context.Context, startBefore string) ([]domain.Event, error) {
	return t.selectEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE `+sweepCondition+` ORDER BY start_date ASC, id ASC`, startBefore)
}

func (t *txStore) MarkIncomplete(ctx context.Context, id, startBefore string) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		t.tx.Rebind(`UPDATE events SET status = 'incomplete' WHERE id = ? AND `+sweepCondition), id, startBefore)
	if err != nil {
		return false, fmt.Errorf("failed to mark event incomplete: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (t *txStore) MoveEmergencyEnds(ctx context.Context, today string) ([]domain.Event, error) {
	var rows []eventRow
	err := t.tx.SelectContext(ctx, &rows, `UPDATE events SET end_date = $1
		WHERE level = 'E' AND status = 'emergency' AND end_date <> $1
		RETURNING `+eventColumns, today)
	if err != nil {
		return nil, fmt.Errorf("failed to move emergency ends: %w", err)
	}
	events := toEvents(rows)
	sortByStart(events)
	return events, nil
}

func sortByStart(evs []domain.Event) {
	sort.Slice(evs, func(i, j int) bool {
		if evs[i].Start != evs[j].Start {
			return evs[i].Start < evs[j].Start
		}
		return evs[i].ID < evs[j].ID
	})
}

func (t *txStore) CountByStatus(ctx context.Context) ([]domain.StatusSummary, error) {
	var rows []struct {
		Status         string `db:"status"`
		Events         int    `db:"events"`
		EquipmentCount int    `db:"equipment_count"`
	}
	err := t.tx.SelectContext(ctx, &rows, `SELECT status, count(*) AS events, count(DISTINCT equipment_id) AS equipment_count
		FROM events GROUP BY status
		ORDER BY array_position(ARRAY['upcoming','overdue','complete','incomplete','emergency'], status)`)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	var out []domain.StatusSummary
	for _, r := range rows {
		out = append(out, domain.StatusSummary{Status: domain.Status(r.Status), Events: r.Events, EquipmentCount: r.EquipmentCount})
	}
	return out, nil
}

type activityRow struct {
	ID          int64          `db:"id"`
	TS          string         `db:"ts"`
	Action      string         `db:"action"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	EquipmentID sql.NullString `db:"equipment_id"`
	EntityKind  string         `db:"entity_kind"`
	EntityID    sql.NullString `db:"entity_id"`
	Payload     string         `db:"payload_json"`
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (t *txStore) AppendActivity(ctx context.Context, a domain.Activity) error {
	row := activityRow{
		TS:          a.TS,
		Action:      a.Action,
		Title:       a.Title,
		Description: a.Description,
		EquipmentID: nullString(a.EquipmentID),
		EntityKind:  a.EntityKind,
		EntityID:    nullString(a.EntityID),
		Payload:     a.Payload,
	}
	_, err := t.tx.NamedExecContext(ctx, `INSERT INTO activities (ts, action, title, description, equipment_id, entity_kind, entity_id, payload_json)
		VALUES (:ts, :action, :title, :description, :equipment_id, :entity_kind, :entity_id, :payload_json)`, row)
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

func (t *txStore) ListActivities(ctx context.Context, equipmentID string, limit int) ([]domain.Activity, error) {
	query := `SELECT id, ts, action, title, description, equipment_id, entity_kind, entity_id, payload_json FROM activities`
	var args []any
	if equipmentID != "" {
		query += ` WHERE equipment_id = ?`
		args = append(args, equipmentID)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var rows []activityRow
	if err := t.tx.SelectContext(ctx, &rows, t.tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	out := make([]domain.Activity, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Activity{
			ID:          r.ID,
			TS:          r.TS,
			Action:      r.Action,
			Title:       r.Title,
			Description: r.Description,
			EquipmentID: r.EquipmentID.String,
			EntityKind:  r.EntityKind,
			EntityID:    r.EntityID.String,
			Payload:     r.Payload,
		})
	}
	return out, nil
}
