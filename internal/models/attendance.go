package models

import "time"

// AttendanceStatus enumerates the day-level states of a punch record.
type AttendanceStatus string

const (
	AttendancePresent  AttendanceStatus = "PRESENT"
	AttendanceHalfDay  AttendanceStatus = "HALF_DAY"
	AttendanceAbsent   AttendanceStatus = "ABSENT"
	AttendanceOnLeave  AttendanceStatus = "ON_LEAVE"
)

// AttendanceRecord is one employee-day punch row; (EmployeeID, Date) is
// unique.
type AttendanceRecord struct {
	ID         string           `db:"id" json:"id"`
	EmployeeID string           `db:"employee_id" json:"employee_id"`
	Date       time.Time        `db:"date" json:"date"`
	ClockIn    time.Time        `db:"clock_in" json:"clock_in"`
	ClockOut   *time.Time       `db:"clock_out" json:"clock_out,omitempty"`
	Status     AttendanceStatus `db:"status" json:"status"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceDetail joins attendance rows with employee names for listings.
type AttendanceDetail struct {
	AttendanceRecord
	EmployeeName string `db:"employee_name" json:"employee_name"`
}

// AttendanceFilter captures listing criteria for attendance records.
type AttendanceFilter struct {
	EmployeeID string
	DateFrom   *time.Time
	DateTo     *time.Time
	Status     *AttendanceStatus
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
