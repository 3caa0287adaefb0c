package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/putra-agung/hrms-api/internal/service"
	appErrors "github.com/putra-agung/hrms-api/pkg/errors"
	"github.com/putra-agung/hrms-api/pkg/response"
)

// PayrollHandler wires payroll run and payslip endpoints.
type PayrollHandler struct {
	service   *service.PayrollService
	employees *service.EmployeeService
}

// NewPayrollHandler creates a new handler.
func NewPayrollHandler(svc *service.PayrollService, employees *service.EmployeeService) *PayrollHandler {
	return &PayrollHandler{service: svc, employees: employees}
}

// TriggerRun godoc
// @Summary Trigger payroll generation for a period
// @Description Creates the run and enqueues generation; poll the run for status
// @Tags Payroll
// @Accept json
// @Produce json
// @Param payload body object true "Period (YYYY-MM)"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payroll/runs [post]
func (h *PayrollHandler) TriggerRun(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Period string `json:"period" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "period required"))
		return
	}

	run, err := h.service.TriggerRun(c.Request.Context(), claims.UserID, payload.Period)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, run, nil)
}

// GetRun godoc
// @Summary Get a payroll run
// @Tags Payroll
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payroll/runs/{id} [get]
func (h *PayrollHandler) GetRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// RunRecords godoc
// @Summary List records produced by a run
// @Tags Payroll
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /payroll/runs/{id}/records [get]
func (h *PayrollHandler) RunRecords(c *gin.Context) {
	rows, err := h.service.RecordsForRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// MyRecords godoc
// @Summary Pay history for the caller
// @Tags Payroll
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payroll/records [get]
func (h *PayrollHandler) MyRecords(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.employees.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	rows, err := h.service.RecordsForEmployee(c.Request.Context(), detail.Employee.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// PayslipURL godoc
// @Summary Issue a signed payslip download link
// @Tags Payroll
// @Produce json
// @Param id path string true "Payroll record ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payroll/records/{id}/payslip [get]
func (h *PayrollHandler) PayslipURL(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	// HR roles may fetch any payslip; everyone else only their own.
	requesterEmployeeID := ""
	if !isHR(claims) {
		detail, err := h.employees.GetByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		requesterEmployeeID = detail.Employee.ID
	}

	link, err := h.service.PayslipURL(c.Request.Context(), requesterEmployeeID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download a payslip with a signed token
// @Tags Payroll
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} file "PDF content"
// @Failure 401 {object} response.Envelope
// @Router /payroll/payslips/download [get]
func (h *PayrollHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}

	file, err := h.service.OpenPayslip(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", `attachment; filename="payslip.pdf"`)
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
