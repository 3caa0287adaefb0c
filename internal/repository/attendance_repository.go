package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/putra-agung/hrms-api/internal/models"
)

// AttendanceRepository handles persistence for punch-clock records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// FindByEmployeeAndDate returns the punch record for one employee-day.
func (r *AttendanceRepository) FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*models.AttendanceRecord, error) {
	const query = `SELECT id, employee_id, date, clock_in, clock_out, status, created_at, updated_at
FROM attendance_records WHERE employee_id = $1 AND date = $2 LIMIT 1`
	var rec models.AttendanceRecord
	if err := r.db.GetContext(ctx, &rec, query, employeeID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance record: %w", err)
	}
	return &rec, nil
}

// PunchIn inserts the day's record. The unique (employee_id, date) index
// rejects a second punch-in for the same day.
func (r *AttendanceRepository) PunchIn(ctx context.Context, rec *models.AttendanceRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	const query = `INSERT INTO attendance_records (id, employee_id, date, clock_in, clock_out, status, created_at, updated_at)
VALUES (:id, :employee_id, :date, :clock_in, :clock_out, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return mapUniqueViolation(fmt.Errorf("punch in: %w", err))
	}
	return nil
}

// PunchOut stamps the clock-out time on an open record and downgrades the
// status to HALF_DAY when less than four hours were worked. Returns
// sql.ErrNoRows when there is no open record for that employee-day.
func (r *AttendanceRepository) PunchOut(ctx context.Context, employeeID string, date time.Time, clockOut time.Time) (*models.AttendanceRecord, error) {
	const query = `UPDATE attendance_records SET clock_out = $3, updated_at = $4,
status = CASE WHEN $3 - clock_in < interval '4 hours' THEN 'HALF_DAY' ELSE status END
WHERE employee_id = $1 AND date = $2 AND clock_out IS NULL
RETURNING id, employee_id, date, clock_in, clock_out, status, created_at, updated_at`
	var rec models.AttendanceRecord
	if err := r.db.GetContext(ctx, &rec, query, employeeID, date, clockOut, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("punch out: %w", err)
	}
	return &rec, nil
}

// List returns attendance rows matching the provided filter.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error) {
	base := `FROM attendance_records a
JOIN employees e ON e.id = a.employee_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.EmployeeID != "" {
		where = append(where, fmt.Sprintf("a.employee_id = $%d", len(args)+1))
		args = append(args, filter.EmployeeID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	sortBy := filter.SortBy
	allowedSort := map[string]string{
		"date":       "a.date",
		"status":     "a.status",
		"created_at": "a.created_at",
	}
	sortColumn, ok := allowedSort[sortBy]
	if !ok {
		sortColumn = "a.date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.employee_id, a.date, a.clock_in, a.clock_out, a.status, a.created_at, a.updated_at,
e.first_name || ' ' || e.last_name AS employee_name
%s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var rows []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// CountByDateAndStatus returns how many records carry the status on a date.
func (r *AttendanceRepository) CountByDateAndStatus(ctx context.Context, date time.Time, status models.AttendanceStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance_records WHERE date = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, date, status); err != nil {
		return 0, fmt.Errorf("count attendance by date: %w", err)
	}
	return count, nil
}
