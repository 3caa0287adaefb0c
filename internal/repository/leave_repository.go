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

// LeaveRepository handles persistence for leave requests.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

const leaveColumns = `id, employee_id, type, start_date, end_date, reason, status, reviewer_id, review_note, reviewed_at, created_at, updated_at`

// Create inserts a new leave request.
func (r *LeaveRepository) Create(ctx context.Context, req *models.LeaveRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt, req.UpdatedAt = now, now
	const query = `INSERT INTO leave_requests (id, employee_id, type, start_date, end_date, reason, status, created_at, updated_at)
VALUES (:id, :employee_id, :type, :start_date, :end_date, :reason, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// FindByID returns a leave request by identifier.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM leave_requests WHERE id = $1 LIMIT 1`, leaveColumns)
	var req models.LeaveRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find leave request: %w", err)
	}
	return &req, nil
}

// HasOverlap reports whether the employee already has a pending or approved
// request intersecting the given range.
func (r *LeaveRepository) HasOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
	const query = `SELECT EXISTS (
SELECT 1 FROM leave_requests
WHERE employee_id = $1 AND status IN ('PENDING', 'APPROVED') AND start_date <= $3 AND end_date >= $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, employeeID, start, end); err != nil {
		return false, fmt.Errorf("check leave overlap: %w", err)
	}
	return exists, nil
}

// UpdateStatus records a review decision. Only PENDING rows are touched so a
// second reviewer cannot overwrite a decision; sql.ErrNoRows signals the
// request was already decided or absent.
func (r *LeaveRepository) UpdateStatus(ctx context.Context, id string, status models.LeaveStatus, reviewerID, note string) (*models.LeaveRequest, error) {
	query := fmt.Sprintf(`UPDATE leave_requests SET status = $2, reviewer_id = $3, review_note = $4, reviewed_at = $5, updated_at = $5
WHERE id = $1 AND status = 'PENDING'
RETURNING %s`, leaveColumns)
	var req models.LeaveRequest
	if err := r.db.GetContext(ctx, &req, query, id, status, reviewerID, note, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update leave status: %w", err)
	}
	return &req, nil
}

// List returns leave requests matching the filter.
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.EmployeeID != "" {
		where = append(where, fmt.Sprintf("employee_id = $%d", len(args)+1))
		args = append(args, filter.EmployeeID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM leave_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		leaveColumns, whereClause, size, offset)
	var rows []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leave_requests WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count leave requests: %w", err)
	}
	return rows, total, nil
}

// CountPending returns the number of undecided requests.
func (r *LeaveRepository) CountPending(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM leave_requests WHERE status = 'PENDING'`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count pending leave: %w", err)
	}
	return count, nil
}

// ApprovedUnpaidDays sums approved unpaid-leave days overlapping the given
// range; payroll converts them into a salary deduction.
func (r *LeaveRepository) ApprovedUnpaidDays(ctx context.Context, employeeID string, start, end time.Time) (int, error) {
	const query = `SELECT COALESCE(SUM(LEAST(end_date, $3::date) - GREATEST(start_date, $2::date) + 1), 0)
FROM leave_requests
WHERE employee_id = $1 AND type = 'UNPAID' AND status = 'APPROVED' AND start_date <= $3 AND end_date >= $2`
	var days int
	if err := r.db.GetContext(ctx, &days, query, employeeID, start, end); err != nil {
		return 0, fmt.Errorf("sum unpaid leave days: %w", err)
	}
	return days, nil
}
