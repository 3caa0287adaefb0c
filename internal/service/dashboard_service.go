package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/putra-agung/hrms-api/internal/models"
	appErrors "github.com/putra-agung/hrms-api/pkg/errors"
)

type dashboardEmployeeRepository interface {
	Counts(ctx context.Context) (total, active int, err error)
	CountByDepartment(ctx context.Context) ([]models.DepartmentHeadcount, error)
}

type dashboardLeaveRepository interface {
	CountPending(ctx context.Context) (int, error)
}

type dashboardAttendanceRepository interface {
	CountByDateAndStatus(ctx context.Context, date time.Time, status models.AttendanceStatus) (int, error)
}

type dashboardPayrollRepository interface {
	LatestRun(ctx context.Context) (*models.PayrollRun, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

const dashboardCacheKey = "dashboard:summary"

// DashboardService aggregates the overview served to HR. The summary is
// cached under a short TTL; a cold or unavailable cache falls through to the
// database.
type DashboardService struct {
	employees  dashboardEmployeeRepository
	leaves     dashboardLeaveRepository
	attendance dashboardAttendanceRepository
	payroll    dashboardPayrollRepository
	cache      dashboardCache
	cacheTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewDashboardService constructs a DashboardService. cache may be nil.
func NewDashboardService(employees dashboardEmployeeRepository, leaves dashboardLeaveRepository, attendance dashboardAttendanceRepository, payroll dashboardPayrollRepository, cache dashboardCache, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &DashboardService{
		employees:  employees,
		leaves:     leaves,
		attendance: attendance,
		payroll:    payroll,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Summary returns the aggregated dashboard, from cache when fresh.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	if s.cache != nil {
		var cached models.DashboardSummary
		if err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	summary, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

func (s *DashboardService) build(ctx context.Context) (*models.DashboardSummary, error) {
	total, active, err := s.employees.Counts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count employees")
	}

	headcount, err := s.employees.CountByDepartment(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute headcount")
	}

	pending, err := s.leaves.CountPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending leaves")
	}

	today := dateOnly(s.now())
	present, err := s.attendance.CountByDateAndStatus(ctx, today, models.AttendancePresent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	onLeave, err := s.attendance.CountByDateAndStatus(ctx, today, models.AttendanceOnLeave)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}

	summary := &models.DashboardSummary{
		TotalEmployees:  total,
		ActiveEmployees: active,
		Headcount:       headcount,
		PendingLeaves:   pending,
		PresentToday:    present,
		OnLeaveToday:    onLeave,
		GeneratedAt:     s.now(),
	}

	run, err := s.payroll.LatestRun(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load latest payroll run")
		}
	} else {
		summary.LatestPayrollRun = run
	}

	return summary, nil
}
