package models

import "time"

// LeaveType enumerates supported leave categories.
type LeaveType string

const (
	LeaveAnnual LeaveType = "ANNUAL"
	LeaveSick   LeaveType = "SICK"
	LeaveUnpaid LeaveType = "UNPAID"
)

// LeaveStatus is the request workflow state. Transitions are only allowed
// out of PENDING.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "PENDING"
	LeaveApproved LeaveStatus = "APPROVED"
	LeaveRejected LeaveStatus = "REJECTED"
)

// LeaveRequest is an employee's request for a date range off.
type LeaveRequest struct {
	ID         string      `db:"id" json:"id"`
	EmployeeID string      `db:"employee_id" json:"employee_id"`
	Type       LeaveType   `db:"type" json:"type"`
	StartDate  time.Time   `db:"start_date" json:"start_date"`
	EndDate    time.Time   `db:"end_date" json:"end_date"`
	Reason     string      `db:"reason" json:"reason"`
	Status     LeaveStatus `db:"status" json:"status"`
	ReviewerID *string     `db:"reviewer_id" json:"reviewer_id,omitempty"`
	ReviewNote *string     `db:"review_note" json:"review_note,omitempty"`
	ReviewedAt *time.Time  `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// LeaveFilter captures listing criteria for leave requests.
type LeaveFilter struct {
	EmployeeID string
	Status     *LeaveStatus
	Page       int
	PageSize   int
}
