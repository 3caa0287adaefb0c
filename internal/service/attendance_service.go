package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/putra-agung/hrms-api/internal/models"
	"github.com/putra-agung/hrms-api/internal/repository"
	"github.com/putra-agung/hrms-api/pkg/export"
	appErrors "github.com/putra-agung/hrms-api/pkg/errors"
)

type attendanceRepository interface {
	FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*models.AttendanceRecord, error)
	PunchIn(ctx context.Context, rec *models.AttendanceRecord) error
	PunchOut(ctx context.Context, employeeID string, date time.Time, clockOut time.Time) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error)
}

// halfDayThreshold marks the boundary between a HALF_DAY and a PRESENT day.
const halfDayThreshold = 4 * time.Hour

// AttendanceService handles daily punch-in/punch-out and reporting.
type AttendanceService struct {
	records attendanceRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(records attendanceRepository, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{records: records, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// PunchIn records the start of the working day. One punch-in per employee per
// calendar day; the unique index backs this up against concurrent punches.
func (s *AttendanceService) PunchIn(ctx context.Context, employeeID string) (*models.AttendanceRecord, error) {
	now := s.now()
	rec := &models.AttendanceRecord{
		EmployeeID: employeeID,
		Date:       dateOnly(now),
		ClockIn:    now,
		Status:     models.AttendancePresent,
	}
	if err := s.records.PunchIn(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateRow) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already punched in today")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to punch in")
	}
	return rec, nil
}

// PunchOut closes today's open record. Worked duration under the half-day
// threshold downgrades the status to HALF_DAY.
func (s *AttendanceService) PunchOut(ctx context.Context, employeeID string) (*models.AttendanceRecord, error) {
	now := s.now()
	rec, err := s.records.PunchOut(ctx, employeeID, dateOnly(now), now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "no open punch-in for today")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to punch out")
	}
	return rec, nil
}

// Today returns the employee's record for the current day, if any.
func (s *AttendanceService) Today(ctx context.Context, employeeID string) (*models.AttendanceRecord, error) {
	rec, err := s.records.FindByEmployeeAndDate(ctx, employeeID, dateOnly(s.now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no attendance record for today")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return rec, nil
}

// List returns attendance records matching the filter.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, *models.Pagination, error) {
	rows, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ExportCSV renders the filtered attendance records as a CSV dataset.
func (s *AttendanceService) ExportCSV(ctx context.Context, filter models.AttendanceFilter) ([]byte, error) {
	filter.Page = 1
	filter.PageSize = 100
	var all []models.AttendanceDetail
	for {
		rows, total, err := s.records.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export attendance")
		}
		all = append(all, rows...)
		if len(all) >= total || len(rows) == 0 {
			break
		}
		filter.Page++
	}

	ds := export.Dataset{
		Headers: []string{"Employee", "Date", "Clock In", "Clock Out", "Status"},
	}
	for _, rec := range all {
		clockOut := ""
		if rec.ClockOut != nil {
			clockOut = rec.ClockOut.Format(time.RFC3339)
		}
		ds.Rows = append(ds.Rows, map[string]string{
			"Employee":  rec.EmployeeName,
			"Date":      rec.Date.Format("2006-01-02"),
			"Clock In":  rec.ClockIn.Format(time.RFC3339),
			"Clock Out": clockOut,
			"Status":    string(rec.Status),
		})
	}

	data, err := export.NewCSVExporter().Render(ds)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render CSV")
	}
	return data, nil
}

// StatusForDuration classifies a worked duration.
func StatusForDuration(worked time.Duration) models.AttendanceStatus {
	if worked < halfDayThreshold {
		return models.AttendanceHalfDay
	}
	return models.AttendancePresent
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
