package models

import "time"

// PayrollRunStatus tracks the lifecycle of an asynchronous payroll run.
type PayrollRunStatus string

const (
	PayrollRunPending   PayrollRunStatus = "PENDING"
	PayrollRunRunning   PayrollRunStatus = "RUNNING"
	PayrollRunCompleted PayrollRunStatus = "COMPLETED"
	PayrollRunFailed    PayrollRunStatus = "FAILED"
)

// PayrollRun is one generation pass over all active employees for a period
// (YYYY-MM). Period is unique so a month is never generated twice.
type PayrollRun struct {
	ID          string           `db:"id" json:"id"`
	Period      string           `db:"period" json:"period"`
	Status      PayrollRunStatus `db:"status" json:"status"`
	TriggeredBy string           `db:"triggered_by" json:"triggered_by"`
	Error       *string          `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	CompletedAt *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
}

// PayrollRecord is one employee's computed pay for a period;
// (EmployeeID, Period) is unique.
type PayrollRecord struct {
	ID             string    `db:"id" json:"id"`
	RunID          string    `db:"run_id" json:"run_id"`
	EmployeeID     string    `db:"employee_id" json:"employee_id"`
	Period         string    `db:"period" json:"period"`
	Basic          float64   `db:"basic" json:"basic"`
	Allowances     float64   `db:"allowances" json:"allowances"`
	Deductions     float64   `db:"deductions" json:"deductions"`
	LeaveDeduction float64   `db:"leave_deduction" json:"leave_deduction"`
	Net            float64   `db:"net" json:"net"`
	PayslipPath    *string   `db:"payslip_path" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
