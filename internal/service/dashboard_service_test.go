package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/putra-agung/hrms-api/internal/models"
	appErrors "github.com/putra-agung/hrms-api/pkg/errors"
)

type mockDashboardRepo struct {
	total, active int
	pending       int
	present       int
	onLeave       int
	latestRun     *models.PayrollRun
	countsCalls   int
}

func (m *mockDashboardRepo) Counts(ctx context.Context) (int, int, error) {
	m.countsCalls++
	return m.total, m.active, nil
}

func (m *mockDashboardRepo) CountByDepartment(ctx context.Context) ([]models.DepartmentHeadcount, error) {
	return []models.DepartmentHeadcount{{DepartmentID: "d1", DepartmentName: "Engineering", Count: m.total}}, nil
}

func (m *mockDashboardRepo) CountPending(ctx context.Context) (int, error) {
	return m.pending, nil
}

func (m *mockDashboardRepo) CountByDateAndStatus(ctx context.Context, date time.Time, status models.AttendanceStatus) (int, error) {
	if status == models.AttendancePresent {
		return m.present, nil
	}
	return m.onLeave, nil
}

func (m *mockDashboardRepo) LatestRun(ctx context.Context) (*models.PayrollRun, error) {
	if m.latestRun == nil {
		return nil, sql.ErrNoRows
	}
	return m.latestRun, nil
}

type mapCache struct {
	entries map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{entries: map[string][]byte{}} }

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func TestDashboardServiceSummary(t *testing.T) {
	repo := &mockDashboardRepo{total: 12, active: 10, pending: 3, present: 8, onLeave: 1}
	svc := NewDashboardService(repo, repo, repo, repo, nil, time.Minute, zap.NewNop())

	summary, err := svc.Summary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 12, summary.TotalEmployees)
	assert.Equal(t, 10, summary.ActiveEmployees)
	assert.Equal(t, 3, summary.PendingLeaves)
	assert.Equal(t, 8, summary.PresentToday)
	assert.Equal(t, 1, summary.OnLeaveToday)
	assert.Nil(t, summary.LatestPayrollRun)
	require.Len(t, summary.Headcount, 1)
}

func TestDashboardServiceSummaryCached(t *testing.T) {
	repo := &mockDashboardRepo{total: 5, active: 5}
	cache := newMapCache()
	svc := NewDashboardService(repo, repo, repo, repo, cache, time.Minute, zap.NewNop())

	_, err := svc.Summary(context.Background())
	require.NoError(t, err)
	_, err = svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, repo.countsCalls, "second call must be served from cache")
}

func TestDashboardServiceIncludesLatestPayrollRun(t *testing.T) {
	repo := &mockDashboardRepo{latestRun: &models.PayrollRun{ID: "run-1", Period: "2024-06", Status: models.PayrollRunCompleted}}
	svc := NewDashboardService(repo, repo, repo, repo, nil, time.Minute, zap.NewNop())

	summary, err := svc.Summary(context.Background())

	require.NoError(t, err)
	require.NotNil(t, summary.LatestPayrollRun)
	assert.Equal(t, "2024-06", summary.LatestPayrollRun.Period)
}
