package models

import "time"

// Employee is the profile record linked 1:1 with a User via UserID.
type Employee struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	Email         string    `db:"email" json:"email"`
	Designation   string    `db:"designation" json:"designation"`
	DepartmentID  string    `db:"department_id" json:"department_id"`
	ManagerID     *string   `db:"manager_id" json:"manager_id,omitempty"`
	DateOfJoining time.Time `db:"date_of_joining" json:"date_of_joining"`
	Phone         string    `db:"phone" json:"phone"`
	Address       string    `db:"address" json:"address"`
	BankName      string    `db:"bank_name" json:"bank_name"`
	BankAccount   string    `db:"bank_account" json:"bank_account"`
	BasicSalary   float64   `db:"basic_salary" json:"basic_salary"`
	Allowances    float64   `db:"allowances" json:"allowances"`
	Deductions    float64   `db:"deductions" json:"deductions"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// EmployeeDetail joins employee rows with user and department context for
// list and detail responses.
type EmployeeDetail struct {
	Employee
	LoginID        string   `db:"login_id" json:"login_id"`
	Role           UserRole `db:"role" json:"role"`
	IsActive       bool     `db:"is_active" json:"is_active"`
	DepartmentName string   `db:"department_name" json:"department_name"`
}

// CreateEmployeeRequest is the payload for provisioning a new employee plus
// their linked user account.
type CreateEmployeeRequest struct {
	FirstName     string   `json:"first_name" validate:"required,min=2"`
	LastName      string   `json:"last_name" validate:"required,min=2"`
	Email         string   `json:"email" validate:"required,email"`
	Designation   string   `json:"designation" validate:"required"`
	DepartmentID  string   `json:"department_id" validate:"required,uuid"`
	ManagerID     *string  `json:"manager_id,omitempty" validate:"omitempty,uuid"`
	DateOfJoining string   `json:"date_of_joining" validate:"required,datetime=2006-01-02"`
	Role          UserRole `json:"role" validate:"required"`
	Phone         string   `json:"phone"`
	Address       string   `json:"address"`
	BankName      string   `json:"bank_name"`
	BankAccount   string   `json:"bank_account"`
	BasicSalary   float64  `json:"basic_salary" validate:"gte=0"`
	Allowances    float64  `json:"allowances" validate:"gte=0"`
	Deductions    float64  `json:"deductions" validate:"gte=0"`
}

// ProvisionResponse returns the provisioning outcome. TempPassword carries
// the generated plaintext exactly once; it is never stored or shown again.
type ProvisionResponse struct {
	EmployeeID   string   `json:"employee_id"`
	LoginID      string   `json:"login_id"`
	TempPassword string   `json:"temp_password"`
	Role         UserRole `json:"role"`
}

// UpdateEmployeeRequest carries mutable profile fields; nil means unchanged.
type UpdateEmployeeRequest struct {
	FirstName    *string  `json:"first_name,omitempty" validate:"omitempty,min=2"`
	LastName     *string  `json:"last_name,omitempty" validate:"omitempty,min=2"`
	Designation  *string  `json:"designation,omitempty"`
	DepartmentID *string  `json:"department_id,omitempty" validate:"omitempty,uuid"`
	ManagerID    *string  `json:"manager_id,omitempty" validate:"omitempty,uuid"`
	Phone        *string  `json:"phone,omitempty"`
	Address      *string  `json:"address,omitempty"`
	BankName     *string  `json:"bank_name,omitempty"`
	BankAccount  *string  `json:"bank_account,omitempty"`
	BasicSalary  *float64 `json:"basic_salary,omitempty" validate:"omitempty,gte=0"`
	Allowances   *float64 `json:"allowances,omitempty" validate:"omitempty,gte=0"`
	Deductions   *float64 `json:"deductions,omitempty" validate:"omitempty,gte=0"`
}

// SelfServiceOnly reports whether the update touches only the contact and
// bank fields an employee may change on their own profile.
func (r UpdateEmployeeRequest) SelfServiceOnly() bool {
	return r.FirstName == nil && r.LastName == nil && r.Designation == nil &&
		r.DepartmentID == nil && r.ManagerID == nil &&
		r.BasicSalary == nil && r.Allowances == nil && r.Deductions == nil
}

// EmployeeFilter captures filtering criteria for listing employees.
type EmployeeFilter struct {
	DepartmentID string
	ManagerID    string
	Active       *bool
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// Department groups employees; Name is unique.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
