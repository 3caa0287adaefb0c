package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/putra-agung/hrms-api/internal/models"
	"github.com/putra-agung/hrms-api/internal/repository"
	appErrors "github.com/putra-agung/hrms-api/pkg/errors"
)

type employeeUserRepository interface {
	LoginIDsByYear(ctx context.Context, year string) ([]string, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetRefreshToken(ctx context.Context, id string, token *string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type employeeRepository interface {
	CreateWithUser(ctx context.Context, user *models.User, employee *models.Employee, actorID string) error
	FindByID(ctx context.Context, id string) (*models.EmployeeDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.EmployeeDetail, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.EmployeeDetail, int, error)
	Update(ctx context.Context, employee *models.Employee) error
}

type departmentRepository interface {
	List(ctx context.Context) ([]models.Department, error)
	FindByID(ctx context.Context, id string) (*models.Department, error)
	Create(ctx context.Context, dept *models.Department) error
	Update(ctx context.Context, dept *models.Department) error
}

// ProvisionConfig tunes employee provisioning.
type ProvisionConfig struct {
	CompanyCode        string
	TempPasswordLength int
	MaxRetries         int
}

// EmployeeService owns provisioning and profile management.
type EmployeeService struct {
	users       employeeUserRepository
	employees   employeeRepository
	departments departmentRepository
	validator   *validator.Validate
	logger      *zap.Logger
	config      ProvisionConfig
}

// NewEmployeeService constructs an EmployeeService instance.
func NewEmployeeService(users employeeUserRepository, employees employeeRepository, departments departmentRepository, validate *validator.Validate, logger *zap.Logger, config ProvisionConfig) *EmployeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = 3
	}
	return &EmployeeService{users: users, employees: employees, departments: departments, validator: validate, logger: logger, config: config}
}

// Provision creates a user plus employee pair: allocates the login ID from a
// snapshot of existing IDs, generates a temporary password, and commits both
// rows in one transaction. When a concurrent provision wins the race for the
// same serial the unique index rejects the insert and the whole attempt is
// retried with a fresh snapshot, up to the configured limit.
func (s *EmployeeService) Provision(ctx context.Context, actorID string, req models.CreateEmployeeRequest) (*models.ProvisionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role %q", req.Role))
	}

	dateOfJoining, err := time.Parse("2006-01-02", req.DateOfJoining)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_of_joining must be YYYY-MM-DD")
	}

	if _, err := s.departments.FindByID(ctx, req.DepartmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "department does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department")
	}

	taken, err := s.employees.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use")
	}

	tempPassword, err := GenerateTempPassword(s.config.TempPasswordLength)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate temporary password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash temporary password")
	}

	year := fmt.Sprintf("%04d", dateOfJoining.Year())

	for attempt := 1; attempt <= s.config.MaxRetries; attempt++ {
		snapshot, err := s.users.LoginIDsByYear(ctx, year)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load login ID snapshot")
		}

		loginID, err := AllocateLoginID(snapshot, s.config.CompanyCode, req.FirstName, req.LastName, dateOfJoining)
		if err != nil {
			return nil, err
		}

		user := &models.User{
			LoginID:      loginID,
			PasswordHash: string(hash),
			Role:         req.Role,
			IsActive:     true,
			IsFirstLogin: true,
		}
		employee := &models.Employee{
			FirstName:     req.FirstName,
			LastName:      req.LastName,
			Email:         req.Email,
			Designation:   req.Designation,
			DepartmentID:  req.DepartmentID,
			ManagerID:     req.ManagerID,
			DateOfJoining: dateOfJoining,
			Phone:         req.Phone,
			Address:       req.Address,
			BankName:      req.BankName,
			BankAccount:   req.BankAccount,
			BasicSalary:   req.BasicSalary,
			Allowances:    req.Allowances,
			Deductions:    req.Deductions,
		}

		err = s.employees.CreateWithUser(ctx, user, employee, actorID)
		if err == nil {
			return &models.ProvisionResponse{
				EmployeeID:   employee.ID,
				LoginID:      loginID,
				TempPassword: tempPassword,
				Role:         req.Role,
			}, nil
		}
		if errors.Is(err, repository.ErrDuplicateLoginID) {
			s.logger.Warn("login ID allocation race lost, retrying",
				zap.String("login_id", loginID), zap.Int("attempt", attempt))
			continue
		}
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision employee")
	}

	return nil, appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique login ID, please retry")
}

// Get returns an employee profile by ID.
func (s *EmployeeService) Get(ctx context.Context, id string) (*models.EmployeeDetail, error) {
	detail, err := s.employees.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	return detail, nil
}

// GetByUserID returns the employee profile linked to a user account.
func (s *EmployeeService) GetByUserID(ctx context.Context, userID string) (*models.EmployeeDetail, error) {
	detail, err := s.employees.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	return detail, nil
}

// List returns employees matching the filter with pagination metadata.
func (s *EmployeeService) List(ctx context.Context, filter models.EmployeeFilter) ([]models.EmployeeDetail, *models.Pagination, error) {
	rows, total, err := s.employees.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list employees")
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

// Update applies partial profile changes and records the previous values in
// the audit trail.
func (s *EmployeeService) Update(ctx context.Context, actorID, id string, req models.UpdateEmployeeRequest) (*models.EmployeeDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before, _ := json.Marshal(detail.Employee)

	employee := detail.Employee
	applyString(&employee.FirstName, req.FirstName)
	applyString(&employee.LastName, req.LastName)
	applyString(&employee.Designation, req.Designation)
	applyString(&employee.Phone, req.Phone)
	applyString(&employee.Address, req.Address)
	applyString(&employee.BankName, req.BankName)
	applyString(&employee.BankAccount, req.BankAccount)
	if req.DepartmentID != nil {
		if _, err := s.departments.FindByID(ctx, *req.DepartmentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "department does not exist")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department")
		}
		employee.DepartmentID = *req.DepartmentID
	}
	if req.ManagerID != nil {
		employee.ManagerID = req.ManagerID
	}
	if req.BasicSalary != nil {
		employee.BasicSalary = *req.BasicSalary
	}
	if req.Allowances != nil {
		employee.Allowances = *req.Allowances
	}
	if req.Deductions != nil {
		employee.Deductions = *req.Deductions
	}

	if err := s.employees.Update(ctx, &employee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update employee")
	}

	after, _ := json.Marshal(employee)
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionEmployeeUpdate,
		Resource:   "employees",
		ResourceID: &id,
		OldValues:  before,
		NewValues:  after,
	}); err != nil {
		s.logger.Warn("failed to record employee update audit log", zap.Error(err))
	}

	return s.Get(ctx, id)
}

// Deactivate disables the employee's user account and clears any outstanding
// refresh token so live sessions cannot be refreshed. Access tokens already
// issued expire on their own.
func (s *EmployeeService) Deactivate(ctx context.Context, actorID, id string) error {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.users.SetActive(ctx, detail.UserID, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate account")
	}
	if err := s.users.SetRefreshToken(ctx, detail.UserID, nil); err != nil {
		s.logger.Warn("failed to clear refresh token on deactivation", zap.Error(err))
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionEmployeeDisable,
		Resource:   "employees",
		ResourceID: &id,
		NewValues:  []byte(`{"is_active":false}`),
	}); err != nil {
		s.logger.Warn("failed to record deactivation audit log", zap.Error(err))
	}
	return nil
}

// ListDepartments returns all departments.
func (s *EmployeeService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	rows, err := s.departments.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return rows, nil
}

// CreateDepartment adds a department; names are unique.
func (s *EmployeeService) CreateDepartment(ctx context.Context, name string) (*models.Department, error) {
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department name is required")
	}
	dept := &models.Department{Name: name}
	if err := s.departments.Create(ctx, dept); err != nil {
		if errors.Is(err, repository.ErrDuplicateRow) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "department name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create department")
	}
	return dept, nil
}

// UpdateDepartment renames a department; names stay unique.
func (s *EmployeeService) UpdateDepartment(ctx context.Context, id, name string) (*models.Department, error) {
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department name is required")
	}
	dept, err := s.departments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	dept.Name = name
	if err := s.departments.Update(ctx, dept); err != nil {
		if errors.Is(err, repository.ErrDuplicateRow) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "department name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update department")
	}
	return dept, nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
