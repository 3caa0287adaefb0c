package models

import "time"

// DepartmentHeadcount is one slice of the headcount breakdown.
type DepartmentHeadcount struct {
	DepartmentID   string `db:"department_id" json:"department_id"`
	DepartmentName string `db:"department_name" json:"department_name"`
	Count          int    `db:"count" json:"count"`
}

// DashboardSummary aggregates the role-aware overview served at
// /dashboard/summary. Cached in Redis under a short TTL.
type DashboardSummary struct {
	TotalEmployees    int                   `json:"total_employees"`
	ActiveEmployees   int                   `json:"active_employees"`
	Headcount         []DepartmentHeadcount `json:"headcount_by_department"`
	PendingLeaves     int                   `json:"pending_leaves"`
	PresentToday      int                   `json:"present_today"`
	OnLeaveToday      int                   `json:"on_leave_today"`
	LatestPayrollRun  *PayrollRun           `json:"latest_payroll_run,omitempty"`
	GeneratedAt       time.Time             `json:"generated_at"`
}
