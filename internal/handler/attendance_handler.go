package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/putra-agung/hrms-api/internal/models"
	"github.com/putra-agung/hrms-api/internal/service"
	appErrors "github.com/putra-agung/hrms-api/pkg/errors"
	"github.com/putra-agung/hrms-api/pkg/response"
)

// AttendanceHandler wires punch-clock endpoints.
type AttendanceHandler struct {
	service   *service.AttendanceService
	employees *service.EmployeeService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(svc *service.AttendanceService, employees *service.EmployeeService) *AttendanceHandler {
	return &AttendanceHandler{service: svc, employees: employees}
}

func (h *AttendanceHandler) callerEmployeeID(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	detail, err := h.employees.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		return "", err
	}
	return detail.Employee.ID, nil
}

// PunchIn godoc
// @Summary Punch in for today
// @Tags Attendance
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/punch-in [post]
func (h *AttendanceHandler) PunchIn(c *gin.Context) {
	employeeID, err := h.callerEmployeeID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	rec, err := h.service.PunchIn(c.Request.Context(), employeeID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, rec)
}

// PunchOut godoc
// @Summary Punch out for today
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/punch-out [post]
func (h *AttendanceHandler) PunchOut(c *gin.Context) {
	employeeID, err := h.callerEmployeeID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	rec, err := h.service.PunchOut(c.Request.Context(), employeeID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rec, nil)
}

// Today godoc
// @Summary Today's attendance record for the caller
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/today [get]
func (h *AttendanceHandler) Today(c *gin.Context) {
	employeeID, err := h.callerEmployeeID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	rec, err := h.service.Today(c.Request.Context(), employeeID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rec, nil)
}

func attendanceFilterFromQuery(c *gin.Context) models.AttendanceFilter {
	filter := models.AttendanceFilter{
		EmployeeID: c.Query("employee_id"),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if raw := c.Query("date_from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateFrom = &t
		}
	}
	if raw := c.Query("date_to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateTo = &t
		}
	}
	if raw := c.Query("status"); raw != "" {
		status := models.AttendanceStatus(raw)
		filter.Status = &status
	}
	return filter
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param employee_id query string false "Filter by employee"
// @Param date_from query string false "From date (YYYY-MM-DD)"
// @Param date_to query string false "To date (YYYY-MM-DD)"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	rows, pagination, err := h.service.List(c.Request.Context(), attendanceFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rows, pagination)
}

// ExportCSV godoc
// @Summary Export attendance records as CSV
// @Tags Attendance
// @Produce text/csv
// @Success 200 {string} string "CSV content"
// @Router /attendance/export [get]
func (h *AttendanceHandler) ExportCSV(c *gin.Context) {
	data, err := h.service.ExportCSV(c.Request.Context(), attendanceFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="attendance.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}
