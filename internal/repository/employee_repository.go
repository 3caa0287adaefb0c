package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/putra-agung/hrms-api/internal/models"
)

// EmployeeRepository provides database access for employee profiles and owns
// the provisioning transaction that creates a user and employee atomically.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository creates a new instance of EmployeeRepository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = `e.id, e.user_id, e.first_name, e.last_name, e.email, e.designation, e.department_id, e.manager_id, e.date_of_joining, e.phone, e.address, e.bank_name, e.bank_account, e.basic_salary, e.allowances, e.deductions, e.created_at, e.updated_at`

// CreateWithUser inserts the user, the linked employee, and the provisioning
// audit entry in a single transaction. Either all three rows land or none
// do. Unique-constraint violations are mapped to sentinel errors so the
// caller can distinguish a lost login-ID race from a duplicate email.
func (r *EmployeeRepository) CreateWithUser(ctx context.Context, user *models.User, employee *models.Employee, actorID string) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	employee.UserID = user.ID
	user.CreatedAt, user.UpdatedAt = now, now
	employee.CreatedAt, employee.UpdatedAt = now, now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin provisioning: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const userQuery = `INSERT INTO users (id, login_id, password_hash, role, is_active, is_first_login, created_at, updated_at)
VALUES (:id, :login_id, :password_hash, :role, :is_active, :is_first_login, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, userQuery, user); err != nil {
		return mapUniqueViolation(fmt.Errorf("insert user: %w", err))
	}

	const employeeQuery = `INSERT INTO employees (id, user_id, first_name, last_name, email, designation, department_id, manager_id, date_of_joining, phone, address, bank_name, bank_account, basic_salary, allowances, deductions, created_at, updated_at)
VALUES (:id, :user_id, :first_name, :last_name, :email, :designation, :department_id, :manager_id, :date_of_joining, :phone, :address, :bank_name, :bank_account, :basic_salary, :allowances, :deductions, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, employeeQuery, employee); err != nil {
		return mapUniqueViolation(fmt.Errorf("insert employee: %w", err))
	}

	payload, _ := json.Marshal(map[string]interface{}{"login_id": user.LoginID, "email": employee.Email, "role": user.Role})
	audit := &models.AuditLog{
		ID:         uuid.NewString(),
		UserID:     &actorID,
		Action:     models.AuditActionEmployeeCreate,
		Resource:   "employees",
		ResourceID: &employee.ID,
		NewValues:  payload,
		CreatedAt:  now,
	}
	const auditQuery = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := tx.NamedExecContext(ctx, auditQuery, audit); err != nil {
		return fmt.Errorf("insert provisioning audit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return mapUniqueViolation(fmt.Errorf("commit provisioning: %w", err))
	}
	committed = true
	return nil
}

// FindByID returns an employee with user and department context.
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*models.EmployeeDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.login_id, u.role, u.is_active, d.name AS department_name
FROM employees e
JOIN users u ON u.id = e.user_id
JOIN departments d ON d.id = e.department_id
WHERE e.id = $1 LIMIT 1`, employeeColumns)
	var detail models.EmployeeDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find employee by id: %w", err)
	}
	return &detail, nil
}

// FindByUserID returns the employee profile linked to a user.
func (r *EmployeeRepository) FindByUserID(ctx context.Context, userID string) (*models.EmployeeDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.login_id, u.role, u.is_active, d.name AS department_name
FROM employees e
JOIN users u ON u.id = e.user_id
JOIN departments d ON d.id = e.department_id
WHERE e.user_id = $1 LIMIT 1`, employeeColumns)
	var detail models.EmployeeDetail
	if err := r.db.GetContext(ctx, &detail, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find employee by user id: %w", err)
	}
	return &detail, nil
}

// EmailExists reports whether the email is already taken by any employee.
func (r *EmployeeRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM employees WHERE LOWER(email) = LOWER($1))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return exists, nil
}

// List returns employees based on filters with total count.
func (r *EmployeeRepository) List(ctx context.Context, filter models.EmployeeFilter) ([]models.EmployeeDetail, int, error) {
	base := `FROM employees e
JOIN users u ON u.id = e.user_id
JOIN departments d ON d.id = e.department_id`
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.DepartmentID != "" {
		where = append(where, fmt.Sprintf("e.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.ManagerID != "" {
		where = append(where, fmt.Sprintf("e.manager_id = $%d", len(args)+1))
		args = append(args, filter.ManagerID)
	}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("u.is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(LOWER(e.first_name || ' ' || e.last_name) LIKE $%d OR LOWER(e.email) LIKE $%d OR LOWER(u.login_id) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	whereClause := strings.Join(where, " AND ")

	sortBy := filter.SortBy
	allowedSort := map[string]string{
		"name":            "e.last_name",
		"email":           "e.email",
		"date_of_joining": "e.date_of_joining",
		"created_at":      "e.created_at",
	}
	sortColumn, ok := allowedSort[sortBy]
	if !ok {
		sortColumn = "e.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	listQuery := fmt.Sprintf(`SELECT %s, u.login_id, u.role, u.is_active, d.name AS department_name
%s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, employeeColumns, base, whereClause, sortColumn, order, size, offset)

	var rows []models.EmployeeDetail
	if err := r.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}

	return rows, total, nil
}

// ListActive returns every employee whose linked user is active; payroll
// iterates this set.
func (r *EmployeeRepository) ListActive(ctx context.Context) ([]models.EmployeeDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.login_id, u.role, u.is_active, d.name AS department_name
FROM employees e
JOIN users u ON u.id = e.user_id
JOIN departments d ON d.id = e.department_id
WHERE u.is_active = TRUE
ORDER BY e.last_name ASC`, employeeColumns)
	var rows []models.EmployeeDetail
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}
	return rows, nil
}

// Update modifies mutable employee fields.
func (r *EmployeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	employee.UpdatedAt = time.Now().UTC()
	const query = `UPDATE employees SET first_name = :first_name, last_name = :last_name, designation = :designation, department_id = :department_id, manager_id = :manager_id, phone = :phone, address = :address, bank_name = :bank_name, bank_account = :bank_account, basic_salary = :basic_salary, allowances = :allowances, deductions = :deductions, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, employee); err != nil {
		return mapUniqueViolation(fmt.Errorf("update employee: %w", err))
	}
	return nil
}

// CountByDepartment returns headcount grouped by department.
func (r *EmployeeRepository) CountByDepartment(ctx context.Context) ([]models.DepartmentHeadcount, error) {
	const query = `SELECT d.id AS department_id, d.name AS department_name, COUNT(e.id) AS count
FROM departments d
LEFT JOIN employees e ON e.department_id = d.id
GROUP BY d.id, d.name
ORDER BY d.name ASC`
	var rows []models.DepartmentHeadcount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count employees by department: %w", err)
	}
	return rows, nil
}

// Counts returns total and active employee counts.
func (r *EmployeeRepository) Counts(ctx context.Context) (total, active int, err error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE u.is_active) AS active
FROM employees e JOIN users u ON u.id = e.user_id`
	row := r.db.QueryRowxContext(ctx, query)
	if err := row.Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("count employees: %w", err)
	}
	return total, active, nil
}
