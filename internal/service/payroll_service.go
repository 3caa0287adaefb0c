package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/putra-agung/hrms-api/internal/models"
	"github.com/putra-agung/hrms-api/internal/repository"
	appErrors "github.com/putra-agung/hrms-api/pkg/errors"
	"github.com/putra-agung/hrms-api/pkg/export"
	"github.com/putra-agung/hrms-api/pkg/jobs"
	"github.com/putra-agung/hrms-api/pkg/storage"
)

type payrollRepository interface {
	CreateRun(ctx context.Context, run *models.PayrollRun) error
	UpdateRunStatus(ctx context.Context, id string, status models.PayrollRunStatus, runErr *string, completedAt *time.Time) error
	FindRunByID(ctx context.Context, id string) (*models.PayrollRun, error)
	LatestRun(ctx context.Context) (*models.PayrollRun, error)
	InsertRecord(ctx context.Context, rec *models.PayrollRecord) error
	FindRecordByID(ctx context.Context, id string) (*models.PayrollRecord, error)
	ListRecordsByRun(ctx context.Context, runID string) ([]models.PayrollRecord, error)
	ListRecordsByEmployee(ctx context.Context, employeeID string) ([]models.PayrollRecord, error)
}

type payrollEmployeeRepository interface {
	ListActive(ctx context.Context) ([]models.EmployeeDetail, error)
}

type payrollLeaveRepository interface {
	ApprovedUnpaidDays(ctx context.Context, employeeID string, start, end time.Time) (int, error)
}

type payrollAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type payrollQueue interface {
	Enqueue(job jobs.Job) error
}

// JobTypeGeneratePayroll names the queued payroll generation job.
const JobTypeGeneratePayroll = "payroll.generate"

// PayrollJobPayload is carried by each queued run.
type PayrollJobPayload struct {
	RunID  string
	Period string
}

// PayslipURL is a short-lived signed reference to a rendered payslip.
type PayslipURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PayrollService generates monthly payroll off the request path: triggering a
// run inserts the run row and enqueues a job; workers compute per-employee
// records and render payslip PDFs.
type PayrollService struct {
	runs        payrollRepository
	employees   payrollEmployeeRepository
	leaves      payrollLeaveRepository
	audits      payrollAuditRepository
	exporter    *export.PDFExporter
	files       *storage.LocalStorage
	signer      *storage.SignedURLSigner
	queue       payrollQueue
	logger      *zap.Logger
	companyName string
}

// NewPayrollService constructs a PayrollService. The queue is attached
// afterwards via SetQueue because the queue's handler needs the service.
func NewPayrollService(runs payrollRepository, employees payrollEmployeeRepository, leaves payrollLeaveRepository, audits payrollAuditRepository, files *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, companyName string) *PayrollService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if companyName == "" {
		companyName = "HRMS"
	}
	return &PayrollService{
		runs:        runs,
		employees:   employees,
		leaves:      leaves,
		audits:      audits,
		exporter:    export.NewPDFExporter(),
		files:       files,
		signer:      signer,
		logger:      logger,
		companyName: companyName,
	}
}

// SetQueue attaches the job queue used by TriggerRun.
func (s *PayrollService) SetQueue(q payrollQueue) { s.queue = q }

// TriggerRun creates a pending run for the period (YYYY-MM) and enqueues the
// generation job. The unique index on period guarantees one run per month.
func (s *PayrollService) TriggerRun(ctx context.Context, actorID, period string) (*models.PayrollRun, error) {
	if _, err := time.Parse("2006-01", period); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period must be YYYY-MM")
	}

	run := &models.PayrollRun{
		Period:      period,
		Status:      models.PayrollRunPending,
		TriggeredBy: actorID,
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		if errors.Is(err, repository.ErrDuplicateRow) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "payroll already generated for this period")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payroll run")
	}

	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{
			ID:      uuid.NewString(),
			Type:    JobTypeGeneratePayroll,
			Payload: PayrollJobPayload{RunID: run.ID, Period: period},
		}); err != nil {
			msg := err.Error()
			now := time.Now().UTC()
			if uerr := s.runs.UpdateRunStatus(ctx, run.ID, models.PayrollRunFailed, &msg, &now); uerr != nil {
				s.logger.Warn("failed to mark payroll run failed", zap.Error(uerr))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue payroll run")
		}
	}

	if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionPayrollRun,
		Resource:   "payroll_runs",
		ResourceID: &run.ID,
		NewValues:  []byte(`{"period":"` + period + `"}`),
	}); err != nil {
		s.logger.Warn("failed to record payroll audit log", zap.Error(err))
	}

	return run, nil
}

// HandleJob is the queue handler: it computes every active employee's pay for
// the period and renders their payslip. Record inserts are idempotent on
// (employee_id, period), so a retried job does not duplicate pay.
func (s *PayrollService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(PayrollJobPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	return s.generate(ctx, payload.RunID, payload.Period)
}

func (s *PayrollService) generate(ctx context.Context, runID, period string) error {
	if err := s.runs.UpdateRunStatus(ctx, runID, models.PayrollRunRunning, nil, nil); err != nil {
		return err
	}

	start, err := time.Parse("2006-01", period)
	if err != nil {
		return s.failRun(ctx, runID, fmt.Errorf("bad period %q: %w", period, err))
	}
	end := start.AddDate(0, 1, -1)
	daysInMonth := end.Day()

	staff, err := s.employees.ListActive(ctx)
	if err != nil {
		return s.failRun(ctx, runID, err)
	}

	var failures []string
	for _, emp := range staff {
		if err := s.generateRecord(ctx, runID, period, start, end, daysInMonth, emp); err != nil {
			s.logger.Warn("payslip generation failed",
				zap.String("employee_id", emp.Employee.ID), zap.String("period", period), zap.Error(err))
			failures = append(failures, emp.Employee.ID)
		}
	}

	now := time.Now().UTC()
	if len(failures) > 0 {
		msg := fmt.Sprintf("failed for %d employee(s): %s", len(failures), strings.Join(failures, ", "))
		return s.runs.UpdateRunStatus(ctx, runID, models.PayrollRunFailed, &msg, &now)
	}
	return s.runs.UpdateRunStatus(ctx, runID, models.PayrollRunCompleted, nil, &now)
}

func (s *PayrollService) generateRecord(ctx context.Context, runID, period string, start, end time.Time, daysInMonth int, emp models.EmployeeDetail) error {
	unpaidDays, err := s.leaves.ApprovedUnpaidDays(ctx, emp.Employee.ID, start, end)
	if err != nil {
		return err
	}

	leaveDeduction := 0.0
	if unpaidDays > 0 {
		leaveDeduction = emp.BasicSalary / float64(daysInMonth) * float64(unpaidDays)
	}
	net := emp.BasicSalary + emp.Allowances - emp.Deductions - leaveDeduction

	rec := &models.PayrollRecord{
		ID:             uuid.NewString(),
		RunID:          runID,
		EmployeeID:     emp.Employee.ID,
		Period:         period,
		Basic:          emp.BasicSalary,
		Allowances:     emp.Allowances,
		Deductions:     emp.Deductions,
		LeaveDeduction: leaveDeduction,
		Net:            net,
	}

	pdf, err := s.exporter.RenderPayslip(export.PayslipDocument{
		CompanyName:  s.companyName,
		EmployeeName: emp.FirstName + " " + emp.LastName,
		LoginID:      emp.LoginID,
		Designation:  emp.Designation,
		Department:   emp.DepartmentName,
		Period:       period,
		Earnings: []export.PayslipLine{
			{Label: "Basic Salary", Amount: money(emp.BasicSalary)},
			{Label: "Allowances", Amount: money(emp.Allowances)},
		},
		Deductions: []export.PayslipLine{
			{Label: "Standard Deductions", Amount: money(emp.Deductions)},
			{Label: fmt.Sprintf("Unpaid Leave (%d day(s))", unpaidDays), Amount: money(leaveDeduction)},
		},
		NetPay: money(net),
	})
	if err != nil {
		return err
	}

	if s.files != nil {
		relPath := filepath.Join(period, rec.ID+".pdf")
		saved, err := s.files.Save(relPath, pdf)
		if err != nil {
			return err
		}
		rec.PayslipPath = &saved
	}

	return s.runs.InsertRecord(ctx, rec)
}

func (s *PayrollService) failRun(ctx context.Context, runID string, cause error) error {
	msg := cause.Error()
	now := time.Now().UTC()
	if err := s.runs.UpdateRunStatus(ctx, runID, models.PayrollRunFailed, &msg, &now); err != nil {
		s.logger.Warn("failed to mark payroll run failed", zap.Error(err))
	}
	return cause
}

// GetRun returns a payroll run by ID.
func (s *PayrollService) GetRun(ctx context.Context, id string) (*models.PayrollRun, error) {
	run, err := s.runs.FindRunByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payroll run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payroll run")
	}
	return run, nil
}

// RecordsForRun lists every record produced by a run.
func (s *PayrollService) RecordsForRun(ctx context.Context, runID string) ([]models.PayrollRecord, error) {
	rows, err := s.runs.ListRecordsByRun(ctx, runID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payroll records")
	}
	return rows, nil
}

// RecordsForEmployee lists an employee's pay history.
func (s *PayrollService) RecordsForEmployee(ctx context.Context, employeeID string) ([]models.PayrollRecord, error) {
	rows, err := s.runs.ListRecordsByEmployee(ctx, employeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payroll records")
	}
	return rows, nil
}

// PayslipURL issues a signed, short-lived download link for a payslip.
// requesterEmployeeID restricts non-HR callers to their own records; pass ""
// to skip the ownership check.
func (s *PayrollService) PayslipURL(ctx context.Context, requesterEmployeeID, recordID string) (*PayslipURL, error) {
	rec, err := s.runs.FindRecordByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payroll record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payroll record")
	}
	if requesterEmployeeID != "" && rec.EmployeeID != requesterEmployeeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "payslip belongs to another employee")
	}
	if rec.PayslipPath == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "payslip file not generated")
	}

	token, expiresAt, err := s.signer.Generate(rec.ID, *rec.PayslipPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign payslip URL")
	}
	return &PayslipURL{
		URL:       "/payroll/payslips/download?token=" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// OpenPayslip validates a signed token and opens the referenced file. The
// token's embedded path must match the record's stored path.
func (s *PayrollService) OpenPayslip(ctx context.Context, token string) (*os.File, error) {
	recordID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "invalid or expired download token")
	}

	rec, err := s.runs.FindRecordByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payroll record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payroll record")
	}
	if rec.PayslipPath == nil || *rec.PayslipPath != relPath {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "download token does not match record")
	}

	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open payslip file")
	}
	return file, nil
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
