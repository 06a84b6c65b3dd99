package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"upkeep/internal/domain"
	"upkeep/internal/ports"
)

// Repo is the SQLite implementation of ports.Store.
type Repo struct {
	DB *sql.DB
}

var ErrNotFound = ports.ErrNotFound

var (
	_ ports.Store = Repo{}
	_ ports.Tx    = Tx{}
)

func (r Repo) InTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(ctx, Tx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// Tx runs every query on one *sql.Tx.
type Tx struct {
	tx *sql.Tx
}

const equipmentColumns = `id,name,asset_id,date_of_manufacturing,useful_life_span_months,health_index,created_at`

func scanEquipment(row interface{ Scan(...any) error }) (domain.Equipment, error) {
	var eq domain.Equipment
	var index sql.NullFloat64
	err := row.Scan(&eq.ID, &eq.Name, &eq.AssetID, &eq.DateOfManufacturing, &eq.UsefulLifeSpanMonths, &index, &eq.CreatedAt)
	if err == sql.ErrNoRows {
		return eq, ErrNotFound
	}
	if index.Valid {
		eq.HealthIndex = &index.Float64
	}
	return eq, err
}

func (t Tx) InsertEquipment(ctx context.Context, eq domain.Equipment) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO equipment(`+equipmentColumns+`) VALUES (?,?,?,?,?,?,?)`,
		eq.ID, eq.Name, eq.AssetID, eq.DateOfManufacturing, eq.UsefulLifeSpanMonths, nullableFloat(eq.HealthIndex), eq.CreatedAt)
	return err
}

func (t Tx) GetEquipment(ctx context.Context, id string) (domain.Equipment, error) {
	return scanEquipment(t.tx.QueryRowContext(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE id=?`, id))
}

func (t Tx) UpdateEquipmentHealthIndex(ctx context.Context, id string, value float64, expected *float64) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE equipment SET health_index=? WHERE id=? AND health_index IS ?`,
		value, id, nullableFloat(expected))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return t.missingOrConflict(ctx, `SELECT 1 FROM equipment WHERE id=?`, id)
}

// missingOrConflict explains a conditional write that matched no row.
func (t Tx) missingOrConflict(ctx context.Context, query, id string) error {
	var one int
	err := t.tx.QueryRowContext(ctx, query, id).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ports.ErrConflict
}

const planColumns = `id,equipment_id,daily_working_hours,service_start_date,service_end_date,given_health_index,tiers_json,created_at`

func scanPlan(row interface{ Scan(...any) error }) (domain.Plan, error) {
	var p domain.Plan
	var tiers string
	err := row.Scan(&p.ID, &p.EquipmentID, &p.DailyWorkingHours, &p.ServiceStartDate, &p.ServiceEndDate, &p.GivenHealthIndex, &tiers, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(tiers), &p.Tiers); err != nil {
		return p, fmt.Errorf("decode tiers of plan %s: %w", p.ID, err)
	}
	return p, nil
}

func (t Tx) InsertPlan(ctx context.Context, p domain.Plan) error {
	tiers, err := json.Marshal(p.Tiers)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `INSERT INTO plans(`+planColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		p.ID, p.EquipmentID, p.DailyWorkingHours, p.ServiceStartDate, p.ServiceEndDate, p.GivenHealthIndex, string(tiers), p.CreatedAt)
	return err
}

func (t Tx) GetPlan(ctx context.Context, id string) (domain.Plan, error) {
	return scanPlan(t.tx.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id=?`, id))
}

func (t Tx) ListPlansForEquipment(ctx context.Context, equipmentID string) ([]domain.Plan, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+planColumns+` FROM plans WHERE equipment_id=? ORDER BY created_at DESC, id DESC`, equipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

const eventColumns = `id,plan_id,equipment_id,level,title,description,status,start_date,end_date,scheduled_at,performed_at`

func scanEvent(row interface{ Scan(...any) error }) (domain.Event, error) {
	var ev domain.Event
	var performed sql.NullString
	err := row.Scan(&ev.ID, &ev.PlanID, &ev.EquipmentID, &ev.Level, &ev.Title, &ev.Description, &ev.Status,
		&ev.Start, &ev.End, &ev.ScheduledAt, &performed)
	if err == sql.ErrNoRows {
		return ev, ErrNotFound
	}
	if performed.Valid {
		ev.PerformedAt = &performed.String
	}
	return ev, err
}

func (t Tx) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}

func (t Tx) InsertEvents(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO events(`+eventColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, ev.ID, ev.PlanID, ev.EquipmentID, string(ev.Level), ev.Title, ev.Description, string(ev.Status),
			ev.Start, ev.End, ev.ScheduledAt, nullableStringPtr(ev.PerformedAt)); err != nil {
			return fmt.Errorf("insert event %s: %w", ev.ID, err)
		}
	}
	return nil
}

func (t Tx) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	return scanEvent(t.tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id=?`, id))
}

func eventWhere(f domain.EventFilter) (string, []any) {
	var clauses []string
	var args []any
	if f.EquipmentID != "" {
		clauses = append(clauses, "equipment_id=?")
		args = append(args, f.EquipmentID)
	}
	if f.PlanID != "" {
		clauses = append(clauses, "plan_id=?")
		args = append(args, f.PlanID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, string(f.Status))
	}
	if f.Level != "" {
		clauses = append(clauses, "level=?")
		args = append(args, string(f.Level))
	}
	if f.From != "" {
		clauses = append(clauses, "start_date>=?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "start_date<=?")
		args = append(args, f.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (t Tx) ListEvents(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	where, args := eventWhere(f)
	query := `SELECT ` + eventColumns + ` FROM events ` + where + ` ORDER BY start_date ASC, id ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return t.queryEvents(ctx, query, args...)
}

func (t Tx) UpdateEvent(ctx context.Context, id string, patch ports.EventPatch) (domain.Event, error) {
	var (
		fields []string
		args   []any
	)
	if patch.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, string(*patch.Status))
	}
	if patch.PerformedAt != nil {
		fields = append(fields, "performed_at=?")
		args = append(args, *patch.PerformedAt)
	}
	if patch.End != nil {
		fields = append(fields, "end_date=?")
		args = append(args, *patch.End)
	}
	if len(fields) == 0 {
		return t.GetEvent(ctx, id)
	}
	where := "id=?"
	args = append(args, id)
	if patch.ExpectStatus != nil {
		where += " AND status=?"
		args = append(args, string(*patch.ExpectStatus))
	}
	res, err := t.tx.ExecContext(ctx, fmt.Sprintf(`UPDATE events SET %s WHERE %s`, strings.Join(fields, ","), where), args...)
	if err != nil {
		return domain.Event{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Event{}, t.missingOrConflict(ctx, `SELECT 1 FROM events WHERE id=?`, id)
	}
	return t.GetEvent(ctx, id)
}

// sweepCondition selects the rows status.SweepableBefore accepts.
const sweepCondition = `status='overdue' AND performed_at IS NULL AND start_date<?`

func (t Tx) ListSweepCandidates(ctx context.Context, startBefore string) ([]domain.Event, error) {
	return t.queryEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE `+sweepCondition+` ORDER BY start_date ASC, id ASC`, startBefore)
}

func (t Tx) MarkIncomplete(ctx context.Context, id, startBefore string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `UPDATE events SET status='incomplete' WHERE id=? AND `+sweepCondition, id, startBefore)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (t Tx) MoveEmergencyEnds(ctx context.Context, today string) ([]domain.Event, error) {
	const open = `level='E' AND status='emergency' AND end_date<>?`
	events, err := t.queryEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE `+open+` ORDER BY start_date ASC, id ASC`, today)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	if _, err := t.tx.ExecContext(ctx, `UPDATE events SET end_date=? WHERE `+open, today, today); err != nil {
		return nil, err
	}
	for i := range events {
		events[i].End = today
	}
	return events, nil
}

func (t Tx) CountByStatus(ctx context.Context) ([]domain.StatusSummary, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT status, count(*), count(DISTINCT equipment_id) FROM events GROUP BY status
ORDER BY CASE status WHEN 'upcoming' THEN 0 WHEN 'overdue' THEN 1 WHEN 'complete' THEN 2 WHEN 'incomplete' THEN 3 ELSE 4 END`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StatusSummary
	for rows.Next() {
		var s domain.StatusSummary
		if err := rows.Scan(&s.Status, &s.Events, &s.EquipmentCount); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (t Tx) AppendActivity(ctx context.Context, a domain.Activity) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO activities(ts,action,title,description,equipment_id,entity_kind,entity_id,payload_json) VALUES (?,?,?,?,?,?,?,?)`,
		a.TS, a.Action, a.Title, a.Description, nullable(a.EquipmentID), a.EntityKind, nullable(a.EntityID), a.Payload)
	return err
}

func (t Tx) ListActivities(ctx context.Context, equipmentID string, limit int) ([]domain.Activity, error) {
	query := `SELECT id,ts,action,title,description,COALESCE(equipment_id,''),entity_kind,COALESCE(entity_id,''),payload_json FROM activities`
	var args []any
	if equipmentID != "" {
		query += ` WHERE equipment_id=?`
		args = append(args, equipmentID)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.TS, &a.Action, &a.Title, &a.Description, &a.EquipmentID, &a.EntityKind, &a.EntityID, &a.Payload); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
