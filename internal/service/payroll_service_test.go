package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/putra-agung/hrms-api/internal/models"
	"github.com/putra-agung/hrms-api/internal/repository"
	appErrors "github.com/putra-agung/hrms-api/pkg/errors"
	"github.com/putra-agung/hrms-api/pkg/jobs"
	"github.com/putra-agung/hrms-api/pkg/storage"
)

type mockPayrollRepo struct {
	runs       map[string]*models.PayrollRun
	periods    map[string]bool
	records    map[string]*models.PayrollRecord
	audits     []*models.AuditLog
	unpaidDays map[string]int
	employees  []models.EmployeeDetail
}

func newMockPayrollRepo() *mockPayrollRepo {
	return &mockPayrollRepo{
		runs:       map[string]*models.PayrollRun{},
		periods:    map[string]bool{},
		records:    map[string]*models.PayrollRecord{},
		unpaidDays: map[string]int{},
	}
}

func (m *mockPayrollRepo) CreateRun(ctx context.Context, run *models.PayrollRun) error {
	if m.periods[run.Period] {
		return repository.ErrDuplicateRow
	}
	m.periods[run.Period] = true
	copied := *run
	m.runs[run.ID] = &copied
	return nil
}

func (m *mockPayrollRepo) UpdateRunStatus(ctx context.Context, id string, status models.PayrollRunStatus, runErr *string, completedAt *time.Time) error {
	if run, ok := m.runs[id]; ok {
		run.Status = status
		run.Error = runErr
		run.CompletedAt = completedAt
	}
	return nil
}

func (m *mockPayrollRepo) FindRunByID(ctx context.Context, id string) (*models.PayrollRun, error) {
	if run, ok := m.runs[id]; ok {
		copied := *run
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPayrollRepo) LatestRun(ctx context.Context) (*models.PayrollRun, error) {
	for _, run := range m.runs {
		copied := *run
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPayrollRepo) InsertRecord(ctx context.Context, rec *models.PayrollRecord) error {
	for _, existing := range m.records {
		if existing.EmployeeID == rec.EmployeeID && existing.Period == rec.Period {
			return nil // ON CONFLICT DO NOTHING
		}
	}
	copied := *rec
	m.records[rec.ID] = &copied
	return nil
}

func (m *mockPayrollRepo) FindRecordByID(ctx context.Context, id string) (*models.PayrollRecord, error) {
	if rec, ok := m.records[id]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPayrollRepo) ListRecordsByRun(ctx context.Context, runID string) ([]models.PayrollRecord, error) {
	var rows []models.PayrollRecord
	for _, rec := range m.records {
		if rec.RunID == runID {
			rows = append(rows, *rec)
		}
	}
	return rows, nil
}

func (m *mockPayrollRepo) ListRecordsByEmployee(ctx context.Context, employeeID string) ([]models.PayrollRecord, error) {
	var rows []models.PayrollRecord
	for _, rec := range m.records {
		if rec.EmployeeID == employeeID {
			rows = append(rows, *rec)
		}
	}
	return rows, nil
}

func (m *mockPayrollRepo) ListActive(ctx context.Context) ([]models.EmployeeDetail, error) {
	return m.employees, nil
}

func (m *mockPayrollRepo) ApprovedUnpaidDays(ctx context.Context, employeeID string, start, end time.Time) (int, error) {
	return m.unpaidDays[employeeID], nil
}

func (m *mockPayrollRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

type syncQueue struct {
	handler jobs.Handler
	jobs    []jobs.Job
}

func (q *syncQueue) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	if q.handler != nil {
		return q.handler(context.Background(), job)
	}
	return nil
}

func payrollEmployee(id string, basic, allowances, deductions float64) models.EmployeeDetail {
	return models.EmployeeDetail{
		Employee: models.Employee{
			ID:          id,
			FirstName:   "John",
			LastName:    "Anderson",
			Designation: "Engineer",
			BasicSalary: basic,
			Allowances:  allowances,
			Deductions:  deductions,
		},
		LoginID:        "OIJOAN20240001",
		DepartmentName: "Engineering",
	}
}

func newTestPayrollService(t *testing.T, repo *mockPayrollRepo) *PayrollService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	svc := NewPayrollService(repo, repo, repo, repo, files, signer, zap.NewNop(), "Acme Corp")
	q := &syncQueue{handler: svc.HandleJob}
	svc.SetQueue(q)
	return svc
}

func TestPayrollServiceTriggerRunGeneratesRecords(t *testing.T) {
	repo := newMockPayrollRepo()
	repo.employees = []models.EmployeeDetail{
		payrollEmployee("emp-1", 6000, 500, 200),
		payrollEmployee("emp-2", 4000, 0, 100),
	}
	svc := newTestPayrollService(t, repo)

	run, err := svc.TriggerRun(context.Background(), "hr-1", "2024-06")
	require.NoError(t, err)

	stored, err := svc.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayrollRunCompleted, stored.Status)

	records, err := svc.RecordsForRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "2024-06", rec.Period)
		require.NotNil(t, rec.PayslipPath)
		assert.Contains(t, *rec.PayslipPath, ".pdf")
	}
	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionPayrollRun, repo.audits[0].Action)
}

func TestPayrollServiceTriggerRunDuplicatePeriod(t *testing.T) {
	repo := newMockPayrollRepo()
	svc := newTestPayrollService(t, repo)

	_, err := svc.TriggerRun(context.Background(), "hr-1", "2024-06")
	require.NoError(t, err)

	_, err = svc.TriggerRun(context.Background(), "hr-1", "2024-06")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestPayrollServiceTriggerRunBadPeriod(t *testing.T) {
	svc := newTestPayrollService(t, newMockPayrollRepo())

	_, err := svc.TriggerRun(context.Background(), "hr-1", "June 2024")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPayrollServiceUnpaidLeaveDeduction(t *testing.T) {
	repo := newMockPayrollRepo()
	repo.employees = []models.EmployeeDetail{payrollEmployee("emp-1", 3000, 0, 0)}
	repo.unpaidDays["emp-1"] = 3
	svc := newTestPayrollService(t, repo)

	run, err := svc.TriggerRun(context.Background(), "hr-1", "2024-06")
	require.NoError(t, err)

	records, err := svc.RecordsForRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// June has 30 days: 3000/30 * 3 = 300.
	assert.InDelta(t, 300.0, records[0].LeaveDeduction, 0.001)
	assert.InDelta(t, 2700.0, records[0].Net, 0.001)
}

func TestPayrollServicePayslipDownloadRoundTrip(t *testing.T) {
	repo := newMockPayrollRepo()
	repo.employees = []models.EmployeeDetail{payrollEmployee("emp-1", 5000, 0, 0)}
	svc := newTestPayrollService(t, repo)

	run, err := svc.TriggerRun(context.Background(), "hr-1", "2024-06")
	require.NoError(t, err)
	records, err := svc.RecordsForRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	link, err := svc.PayslipURL(context.Background(), "emp-1", records[0].ID)
	require.NoError(t, err)
	assert.Contains(t, link.URL, "token=")
	assert.True(t, link.ExpiresAt.After(time.Now()))

	token := link.URL[len("/payroll/payslips/download?token="):]
	file, err := svc.OpenPayslip(context.Background(), token)
	require.NoError(t, err)
	defer file.Close()

	header := make([]byte, 4)
	_, err = file.Read(header)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(header))
}

func TestPayrollServicePayslipURLForbiddenForOtherEmployee(t *testing.T) {
	repo := newMockPayrollRepo()
	repo.employees = []models.EmployeeDetail{payrollEmployee("emp-1", 5000, 0, 0)}
	svc := newTestPayrollService(t, repo)

	run, err := svc.TriggerRun(context.Background(), "hr-1", "2024-06")
	require.NoError(t, err)
	records, err := svc.RecordsForRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	_, err = svc.PayslipURL(context.Background(), "emp-other", records[0].ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// HR path skips the ownership check.
	_, err = svc.PayslipURL(context.Background(), "", records[0].ID)
	assert.NoError(t, err)
}

func TestPayrollServiceOpenPayslipRejectsTamperedToken(t *testing.T) {
	repo := newMockPayrollRepo()
	repo.employees = []models.EmployeeDetail{payrollEmployee("emp-1", 5000, 0, 0)}
	svc := newTestPayrollService(t, repo)

	_, err := svc.TriggerRun(context.Background(), "hr-1", "2024-06")
	require.NoError(t, err)

	_, err = svc.OpenPayslip(context.Background(), "rec.9999999999.cGF0aA.deadbeef")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
}

func TestPayrollServiceRerunIsIdempotentPerEmployeePeriod(t *testing.T) {
	repo := newMockPayrollRepo()
	repo.employees = []models.EmployeeDetail{payrollEmployee("emp-1", 5000, 0, 0)}
	svc := newTestPayrollService(t, repo)

	run, err := svc.TriggerRun(context.Background(), "hr-1", "2024-06")
	require.NoError(t, err)

	// Replay the job, as the queue would after a transient failure.
	err = svc.HandleJob(context.Background(), jobs.Job{
		Type:    JobTypeGeneratePayroll,
		Payload: PayrollJobPayload{RunID: run.ID, Period: "2024-06"},
	})
	require.NoError(t, err)

	history, err := svc.RecordsForEmployee(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
