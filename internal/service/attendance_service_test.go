package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/putra-agung/hrms-api/internal/models"
	"github.com/putra-agung/hrms-api/internal/repository"
	appErrors "github.com/putra-agung/hrms-api/pkg/errors"
)

type mockAttendanceRepo struct {
	records map[string]*models.AttendanceRecord // keyed employeeID + date
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{records: map[string]*models.AttendanceRecord{}}
}

func attendanceKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format("2006-01-02")
}

func (m *mockAttendanceRepo) FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*models.AttendanceRecord, error) {
	if rec, ok := m.records[attendanceKey(employeeID, date)]; ok {
		return rec, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttendanceRepo) PunchIn(ctx context.Context, rec *models.AttendanceRecord) error {
	key := attendanceKey(rec.EmployeeID, rec.Date)
	if _, ok := m.records[key]; ok {
		return repository.ErrDuplicateRow
	}
	rec.ID = "att-" + key
	m.records[key] = rec
	return nil
}

func (m *mockAttendanceRepo) PunchOut(ctx context.Context, employeeID string, date time.Time, clockOut time.Time) (*models.AttendanceRecord, error) {
	rec, ok := m.records[attendanceKey(employeeID, date)]
	if !ok || rec.ClockOut != nil {
		return nil, sql.ErrNoRows
	}
	rec.ClockOut = &clockOut
	if clockOut.Sub(rec.ClockIn) < halfDayThreshold {
		rec.Status = models.AttendanceHalfDay
	}
	return rec, nil
}

func (m *mockAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error) {
	var rows []models.AttendanceDetail
	for _, rec := range m.records {
		rows = append(rows, models.AttendanceDetail{AttendanceRecord: *rec, EmployeeName: "John Anderson"})
	}
	return rows, len(rows), nil
}

func TestAttendanceServicePunchInOnce(t *testing.T) {
	repo := newMockAttendanceRepo()
	svc := NewAttendanceService(repo, zap.NewNop())

	rec, err := svc.PunchIn(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, rec.Status)

	_, err = svc.PunchIn(context.Background(), "emp-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServicePunchOutWithoutPunchIn(t *testing.T) {
	svc := NewAttendanceService(newMockAttendanceRepo(), zap.NewNop())

	_, err := svc.PunchOut(context.Background(), "emp-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceShortDayBecomesHalfDay(t *testing.T) {
	repo := newMockAttendanceRepo()
	svc := NewAttendanceService(repo, zap.NewNop())

	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	_, err := svc.PunchIn(context.Background(), "emp-1")
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(2 * time.Hour) }
	rec, err := svc.PunchOut(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceHalfDay, rec.Status)
}

func TestAttendanceServiceFullDayStaysPresent(t *testing.T) {
	repo := newMockAttendanceRepo()
	svc := NewAttendanceService(repo, zap.NewNop())

	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	_, err := svc.PunchIn(context.Background(), "emp-1")
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(8 * time.Hour) }
	rec, err := svc.PunchOut(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, rec.Status)
}

func TestAttendanceServiceExportCSV(t *testing.T) {
	repo := newMockAttendanceRepo()
	svc := NewAttendanceService(repo, zap.NewNop())

	_, err := svc.PunchIn(context.Background(), "emp-1")
	require.NoError(t, err)

	data, err := svc.ExportCSV(context.Background(), models.AttendanceFilter{})
	require.NoError(t, err)

	out := string(data)
	assert.True(t, strings.HasPrefix(out, "Employee,Date,Clock In,Clock Out,Status"))
	assert.Contains(t, out, "John Anderson")
	assert.Contains(t, out, "PRESENT")
}

func TestStatusForDuration(t *testing.T) {
	assert.Equal(t, models.AttendanceHalfDay, StatusForDuration(3*time.Hour+59*time.Minute))
	assert.Equal(t, models.AttendancePresent, StatusForDuration(4*time.Hour))
}
