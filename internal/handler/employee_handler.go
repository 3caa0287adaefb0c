package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/putra-agung/hrms-api/internal/models"
	"github.com/putra-agung/hrms-api/internal/service"
	appErrors "github.com/putra-agung/hrms-api/pkg/errors"
	"github.com/putra-agung/hrms-api/pkg/response"
)

// EmployeeHandler wires employee provisioning and profile endpoints.
type EmployeeHandler struct {
	service *service.EmployeeService
	metrics *service.MetricsService
}

// NewEmployeeHandler creates a new handler.
func NewEmployeeHandler(svc *service.EmployeeService, metrics *service.MetricsService) *EmployeeHandler {
	return &EmployeeHandler{service: svc, metrics: metrics}
}

// Create godoc
// @Summary Provision a new employee
// @Description Create the user account and employee profile; returns the generated login ID and one-time temporary password
// @Tags Employees
// @Accept json
// @Produce json
// @Param payload body models.CreateEmployeeRequest true "Employee payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /employees [post]
func (h *EmployeeHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid employee payload"))
		return
	}

	res, err := h.service.Provision(c.Request.Context(), claims.UserID, req)
	if err != nil {
		if appErrors.FromError(err).Status == http.StatusConflict {
			h.metrics.RecordProvision("conflict")
		} else {
			h.metrics.RecordProvision("error")
		}
		response.Error(c, err)
		return
	}

	h.metrics.RecordProvision("success")
	response.Created(c, res)
}

// List godoc
// @Summary List employees
// @Tags Employees
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param department_id query string false "Filter by department"
// @Param active query bool false "Filter by active flag"
// @Param search query string false "Search name, email or login ID"
// @Success 200 {object} response.Envelope
// @Router /employees [get]
func (h *EmployeeHandler) List(c *gin.Context) {
	filter := models.EmployeeFilter{
		DepartmentID: c.Query("department_id"),
		ManagerID:    c.Query("manager_id"),
		Search:       c.Query("search"),
		SortBy:       c.Query("sort_by"),
		SortOrder:    c.Query("sort_order"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err == nil {
			filter.Active = &active
		}
	}

	rows, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rows, pagination)
}

// Get godoc
// @Summary Get an employee
// @Tags Employees
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /employees/{id} [get]
func (h *EmployeeHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	// Non-HR callers may only read their own profile.
	if !isHR(claims) && claims != nil && detail.UserID != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Update an employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param id path string true "Employee ID"
// @Param payload body models.UpdateEmployeeRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /employees/{id} [patch]
func (h *EmployeeHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	// Non-HR callers may only touch contact and bank fields on their own
	// profile.
	if !isHR(claims) {
		own, err := h.service.GetByUserID(c.Request.Context(), claims.UserID)
		if err != nil || own.Employee.ID != c.Param("id") || !req.SelfServiceOnly() {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
	}

	detail, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Deactivate godoc
// @Summary Deactivate an employee
// @Description Disables the linked user account; the profile row is kept
// @Tags Employees
// @Produce json
// @Param id path string true "Employee ID"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Router /employees/{id} [delete]
func (h *EmployeeHandler) Deactivate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListDepartments godoc
// @Summary List departments
// @Tags Departments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *EmployeeHandler) ListDepartments(c *gin.Context) {
	rows, err := h.service.ListDepartments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// CreateDepartment godoc
// @Summary Create a department
// @Tags Departments
// @Accept json
// @Produce json
// @Param payload body object true "Department name"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /departments [post]
func (h *EmployeeHandler) CreateDepartment(c *gin.Context) {
	var payload struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "department name required"))
		return
	}

	dept, err := h.service.CreateDepartment(c.Request.Context(), payload.Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dept)
}

// UpdateDepartment godoc
// @Summary Rename a department
// @Tags Departments
// @Accept json
// @Produce json
// @Param id path string true "Department ID"
// @Param payload body object true "Department name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /departments/{id} [patch]
func (h *EmployeeHandler) UpdateDepartment(c *gin.Context) {
	var payload struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "department name required"))
		return
	}

	dept, err := h.service.UpdateDepartment(c.Request.Context(), c.Param("id"), payload.Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dept, nil)
}
