package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/putra-agung/hrms-api/internal/models"
	appErrors "github.com/putra-agung/hrms-api/pkg/errors"
)

type leaveRepository interface {
	Create(ctx context.Context, req *models.LeaveRequest) error
	FindByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	HasOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id string, status models.LeaveStatus, reviewerID, note string) (*models.LeaveRequest, error)
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error)
}

type leaveAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SubmitLeaveRequest is the payload for requesting time off.
type SubmitLeaveRequest struct {
	Type      models.LeaveType `json:"type" validate:"required,oneof=ANNUAL SICK UNPAID"`
	StartDate string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string           `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason    string           `json:"reason" validate:"required,max=500"`
}

// LeaveDecisionRequest approves or rejects a pending leave request.
type LeaveDecisionRequest struct {
	Status models.LeaveStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Note   string             `json:"note" validate:"max=500"`
}

// LeaveService manages the leave request workflow. Status only moves out of
// PENDING, exactly once.
type LeaveService struct {
	leaves    leaveRepository
	audits    leaveAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLeaveService constructs a LeaveService instance.
func NewLeaveService(leaves leaveRepository, audits leaveAuditRepository, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LeaveService{leaves: leaves, audits: audits, validator: validate, logger: logger}
}

// Submit files a leave request for the employee. Ranges may not run backwards
// and may not overlap an existing pending or approved request.
func (s *LeaveService) Submit(ctx context.Context, employeeID string, req SubmitLeaveRequest) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}

	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date is before start date")
	}

	overlaps, err := s.leaves.HasOverlap(ctx, employeeID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check leave overlap")
	}
	if overlaps {
		return nil, appErrors.Clone(appErrors.ErrConflict, "leave dates overlap an existing request")
	}

	leave := &models.LeaveRequest{
		EmployeeID: employeeID,
		Type:       req.Type,
		StartDate:  start,
		EndDate:    end,
		Reason:     req.Reason,
		Status:     models.LeavePending,
	}
	if err := s.leaves.Create(ctx, leave); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}
	return leave, nil
}

// Decide approves or rejects a pending request. Deciding a request that is
// not pending (already decided, or decided concurrently) conflicts.
func (s *LeaveService) Decide(ctx context.Context, reviewerID, leaveID string, req LeaveDecisionRequest) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}

	if _, err := s.leaves.FindByID(ctx, leaveID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}

	leave, err := s.leaves.UpdateStatus(ctx, leaveID, req.Status, reviewerID, req.Note)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "leave request already decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update leave request")
	}

	if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &reviewerID,
		Action:     models.AuditActionLeaveDecision,
		Resource:   "leave_requests",
		ResourceID: &leaveID,
		NewValues:  []byte(`{"status":"` + string(req.Status) + `"}`),
	}); err != nil {
		s.logger.Warn("failed to record leave decision audit log", zap.Error(err))
	}

	return leave, nil
}

// Get returns a leave request by ID.
func (s *LeaveService) Get(ctx context.Context, id string) (*models.LeaveRequest, error) {
	leave, err := s.leaves.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	return leave, nil
}

// List returns leave requests matching the filter.
func (s *LeaveService) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, *models.Pagination, error) {
	rows, total, err := s.leaves.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
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
