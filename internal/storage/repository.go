package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"fixops/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements every gateway port on a single SQLite
// database. One instance is shared by the server and the worker.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Ping checks database liveness, for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- schedules ---

func (r *SQLiteRepository) CreateSchedule(ctx context.Context, s core.ScheduleRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO schedules (title, employee_name, start_ts, end_ts, revenue, material_cost, daily_wage, extra_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Title, s.EmployeeName, s.StartTS.Format(time.RFC3339), nullTime(s.EndTS),
		nullFloat(s.Revenue), nullFloat(s.MaterialCost), nullFloat(s.DailyWage), nullFloat(s.ExtraCost))
	if err != nil {
		return 0, fmt.Errorf("create schedule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("schedule insert id: %w", err)
	}

	slog.InfoContext(ctx, "Schedule saved",
		"id", id,
		"title", s.Title,
		"day", s.DayKey())
	return id, nil
}

func (r *SQLiteRepository) UpdateSchedule(ctx context.Context, s core.ScheduleRecord) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedules
		SET title = ?, employee_name = ?, start_ts = ?, end_ts = ?,
		    revenue = ?, material_cost = ?, daily_wage = ?, extra_cost = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		s.Title, s.EmployeeName, s.StartTS.Format(time.RFC3339), nullTime(s.EndTS),
		nullFloat(s.Revenue), nullFloat(s.MaterialCost), nullFloat(s.DailyWage), nullFloat(s.ExtraCost),
		s.ID)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return requireRow(res, "schedule", s.ID)
}

func (r *SQLiteRepository) DeleteSchedule(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return requireRow(res, "schedule", id)
}

func (r *SQLiteRepository) GetSchedule(ctx context.Context, id int64) (core.ScheduleRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, employee_name, start_ts, end_ts, revenue, material_cost, daily_wage, extra_cost
		FROM schedules WHERE id = ?`, id)
	s, err := scanSchedule(row)
	if err != nil {
		return core.ScheduleRecord{}, fmt.Errorf("get schedule %d: %w", id, err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListSchedules(ctx context.Context, rng core.DateRange) ([]core.ScheduleRecord, error) {
	query := `
		SELECT id, title, employee_name, start_ts, end_ts, revenue, material_cost, daily_wage, extra_cost
		FROM schedules`
	args := []any{}
	if !rng.Empty() {
		query += ` WHERE substr(start_ts, 1, 10) BETWEEN ? AND ?`
		args = append(args, rng.From, rng.To)
	}
	query += ` ORDER BY start_ts, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var out []core.ScheduleRecord
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// --- ledger entries ---

func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.LedgerEntry) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (item_date, category, amount, label, employee_name)
		VALUES (?, ?, ?, ?, ?)`,
		e.ItemDate, string(e.Category), e.Amount, e.Label, e.EmployeeName)
	if err != nil {
		return 0, fmt.Errorf("create ledger entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ledger entry insert id: %w", err)
	}

	slog.InfoContext(ctx, "Ledger entry saved",
		"id", id,
		"category", e.Category,
		"day", e.ItemDate)
	return id, nil
}

func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e core.LedgerEntry) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ledger_entries
		SET item_date = ?, category = ?, amount = ?, label = ?, employee_name = ?
		WHERE id = ?`,
		e.ItemDate, string(e.Category), e.Amount, e.Label, e.EmployeeName, e.ID)
	if err != nil {
		return fmt.Errorf("update ledger entry: %w", err)
	}
	return requireRow(res, "ledger entry", e.ID)
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	return requireRow(res, "ledger entry", id)
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (core.LedgerEntry, error) {
	var e core.LedgerEntry
	var category string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, item_date, category, amount, label, employee_name
		FROM ledger_entries WHERE id = ?`, id).
		Scan(&e.ID, &e.ItemDate, &category, &e.Amount, &e.Label, &e.EmployeeName)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get ledger entry %d: %w", id, err)
	}
	e.Category = core.Category(category)
	return e, nil
}

func (r *SQLiteRepository) ListEntries(ctx context.Context, rng core.DateRange) ([]core.LedgerEntry, error) {
	query := `SELECT id, item_date, category, amount, label, employee_name FROM ledger_entries`
	args := []any{}
	if !rng.Empty() {
		query += ` WHERE item_date BETWEEN ? AND ?`
		args = append(args, rng.From, rng.To)
	}
	query += ` ORDER BY item_date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerEntry
	for rows.Next() {
		var e core.LedgerEntry
		var category string
		if err := rows.Scan(&e.ID, &e.ItemDate, &category, &e.Amount, &e.Label, &e.EmployeeName); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Category = core.Category(category)
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- materials ---

func (r *SQLiteRepository) CreateMaterial(ctx context.Context, m core.Material) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO materials (name, unit, stock, unit_cost) VALUES (?, ?, ?, ?)`,
		m.Name, m.Unit, m.Stock, m.UnitCost)
	if err != nil {
		return 0, fmt.Errorf("create material: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("material insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetMaterial(ctx context.Context, id int64) (core.Material, error) {
	var m core.Material
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, unit, stock, unit_cost FROM materials WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.Unit, &m.Stock, &m.UnitCost)
	if err != nil {
		return core.Material{}, fmt.Errorf("get material %d: %w", id, err)
	}
	return m, nil
}

func (r *SQLiteRepository) ListMaterials(ctx context.Context) ([]core.Material, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, unit, stock, unit_cost FROM materials ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var out []core.Material
	for rows.Next() {
		var m core.Material
		if err := rows.Scan(&m.ID, &m.Name, &m.Unit, &m.Stock, &m.UnitCost); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AdjustStock applies a signed delta inside a transaction so concurrent
// adjustments cannot drive stock below zero.
func (r *SQLiteRepository) AdjustStock(ctx context.Context, id int64, delta float64) (core.Material, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Material{}, fmt.Errorf("begin adjust stock: %w", err)
	}
	defer tx.Rollback()

	var m core.Material
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, unit, stock, unit_cost FROM materials WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.Unit, &m.Stock, &m.UnitCost)
	if err != nil {
		return core.Material{}, fmt.Errorf("get material %d: %w", id, err)
	}

	next := m.Stock + delta
	if next < 0 {
		return core.Material{}, core.ErrNegativeStock
	}

	if _, err := tx.ExecContext(ctx, `UPDATE materials SET stock = ? WHERE id = ?`, next, id); err != nil {
		return core.Material{}, fmt.Errorf("update stock: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Material{}, fmt.Errorf("commit adjust stock: %w", err)
	}

	m.Stock = next
	slog.InfoContext(ctx, "Stock adjusted", "material_id", id, "delta", delta, "stock", next)
	return m, nil
}

// --- users and employees ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		u.Username, u.PasswordHash, string(u.Role))
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	var u core.User
	var role string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &role)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %q: %w", username, err)
	}
	u.Role = core.Role(role)
	return u, nil
}

func (r *SQLiteRepository) CreateEmployee(ctx context.Context, e core.Employee) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO employees (name, phone, daily_pay, active) VALUES (?, ?, ?, ?)`,
		e.Name, e.Phone, e.DailyPay, e.Active)
	if err != nil {
		return 0, fmt.Errorf("create employee: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("employee insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListEmployees(ctx context.Context, activeOnly bool) ([]core.Employee, error) {
	query := `SELECT id, name, phone, daily_pay, active FROM employees`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []core.Employee
	for rows.Next() {
		var e core.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Phone, &e.DailyPay, &e.Active); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- report snapshots ---

func (r *SQLiteRepository) UpsertSnapshot(ctx context.Context, day string, net float64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO report_snapshots (day, net, computed_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (day) DO UPDATE SET net = excluded.net, computed_at = excluded.computed_at`,
		day, net)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", day, err)
	}
	return nil
}

func (r *SQLiteRepository) ListSnapshots(ctx context.Context, rng core.DateRange) (map[string]float64, error) {
	if rng.Empty() {
		return map[string]float64{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT day, net FROM report_snapshots WHERE day BETWEEN ? AND ?`, rng.From, rng.To)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var day string
		var net float64
		if err := rows.Scan(&day, &net); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out[day] = net
	}
	return out, rows.Err()
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (core.ScheduleRecord, error) {
	var (
		s        core.ScheduleRecord
		startStr string
		endStr   sql.NullString
		revenue  sql.NullFloat64
		material sql.NullFloat64
		wage     sql.NullFloat64
		extra    sql.NullFloat64
	)
	if err := row.Scan(&s.ID, &s.Title, &s.EmployeeName, &startStr, &endStr, &revenue, &material, &wage, &extra); err != nil {
		return core.ScheduleRecord{}, err
	}

	// A row with a corrupt start keeps its zero StartTS; the aggregator
	// skips it rather than erroring.
	if ts, err := time.Parse(time.RFC3339, startStr); err == nil {
		s.StartTS = ts
	}
	if endStr.Valid {
		if ts, err := time.Parse(time.RFC3339, endStr.String); err == nil {
			s.EndTS = &ts
		}
	}
	s.Revenue = floatOrNaN(revenue)
	s.MaterialCost = floatOrNaN(material)
	s.DailyWage = floatOrNaN(wage)
	s.ExtraCost = floatOrNaN(extra)
	return s, nil
}

// nullFloat maps non-finite values to NULL; NULL reads back as NaN.
func nullFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func requireRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, sql.ErrNoRows)
	}
	return nil
}
