package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/putra-agung/hrms-api/internal/models"
)

// PayrollRepository handles persistence for payroll runs and records.
type PayrollRepository struct {
	db *sqlx.DB
}

// NewPayrollRepository constructs the repository.
func NewPayrollRepository(db *sqlx.DB) *PayrollRepository {
	return &PayrollRepository{db: db}
}

const runColumns = `id, period, status, triggered_by, error, created_at, completed_at`
const recordColumns = `id, run_id, employee_id, period, basic, allowances, deductions, leave_deduction, net, payslip_path, created_at`

// CreateRun inserts a run row. The unique index on period rejects a second
// run for the same month.
func (r *PayrollRepository) CreateRun(ctx context.Context, run *models.PayrollRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payroll_runs (id, period, status, triggered_by, error, created_at, completed_at)
VALUES (:id, :period, :status, :triggered_by, :error, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return mapUniqueViolation(fmt.Errorf("create payroll run: %w", err))
	}
	return nil
}

// UpdateRunStatus transitions a run and optionally records an error message
// and completion time.
func (r *PayrollRepository) UpdateRunStatus(ctx context.Context, id string, status models.PayrollRunStatus, runErr *string, completedAt *time.Time) error {
	const query = `UPDATE payroll_runs SET status = $2, error = $3, completed_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, runErr, completedAt); err != nil {
		return fmt.Errorf("update payroll run: %w", err)
	}
	return nil
}

// FindRunByID returns a run by identifier.
func (r *PayrollRepository) FindRunByID(ctx context.Context, id string) (*models.PayrollRun, error) {
	query := fmt.Sprintf(`SELECT %s FROM payroll_runs WHERE id = $1 LIMIT 1`, runColumns)
	var run models.PayrollRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payroll run: %w", err)
	}
	return &run, nil
}

// LatestRun returns the most recently created run, or sql.ErrNoRows.
func (r *PayrollRepository) LatestRun(ctx context.Context) (*models.PayrollRun, error) {
	query := fmt.Sprintf(`SELECT %s FROM payroll_runs ORDER BY created_at DESC LIMIT 1`, runColumns)
	var run models.PayrollRun
	if err := r.db.GetContext(ctx, &run, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("latest payroll run: %w", err)
	}
	return &run, nil
}

// InsertRecord stores one employee's computed pay. Conflicts on
// (employee_id, period) are ignored so run retries stay idempotent.
func (r *PayrollRepository) InsertRecord(ctx context.Context, rec *models.PayrollRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payroll_records (id, run_id, employee_id, period, basic, allowances, deductions, leave_deduction, net, payslip_path, created_at)
VALUES (:id, :run_id, :employee_id, :period, :basic, :allowances, :deductions, :leave_deduction, :net, :payslip_path, :created_at)
ON CONFLICT (employee_id, period) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("insert payroll record: %w", err)
	}
	return nil
}

// FindRecordByID returns a payroll record by identifier.
func (r *PayrollRepository) FindRecordByID(ctx context.Context, id string) (*models.PayrollRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM payroll_records WHERE id = $1 LIMIT 1`, recordColumns)
	var rec models.PayrollRecord
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payroll record: %w", err)
	}
	return &rec, nil
}

// ListRecordsByRun returns every record produced by a run.
func (r *PayrollRepository) ListRecordsByRun(ctx context.Context, runID string) ([]models.PayrollRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM payroll_records WHERE run_id = $1 ORDER BY created_at ASC`, recordColumns)
	var rows []models.PayrollRecord
	if err := r.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("list payroll records by run: %w", err)
	}
	return rows, nil
}

// ListRecordsByEmployee returns an employee's pay history, newest first.
func (r *PayrollRepository) ListRecordsByEmployee(ctx context.Context, employeeID string) ([]models.PayrollRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM payroll_records WHERE employee_id = $1 ORDER BY period DESC`, recordColumns)
	var rows []models.PayrollRecord
	if err := r.db.SelectContext(ctx, &rows, query, employeeID); err != nil {
		return nil, fmt.Errorf("list payroll records by employee: %w", err)
	}
	return rows, nil
}
