package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/putra-agung/hrms-api/internal/handler"
	"github.com/putra-agung/hrms-api/internal/middleware"
	"github.com/putra-agung/hrms-api/internal/models"
	"github.com/putra-agung/hrms-api/internal/service"
	"github.com/putra-agung/hrms-api/pkg/config"
	"github.com/putra-agung/hrms-api/pkg/logger"
	corsmiddleware "github.com/putra-agung/hrms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/putra-agung/hrms-api/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler wired by the router.
type Handlers struct {
	Auth       *handler.AuthHandler
	Employee   *handler.EmployeeHandler
	Attendance *handler.AttendanceHandler
	Leave      *handler.LeaveHandler
	Payroll    *handler.PayrollHandler
	Dashboard  *handler.DashboardHandler
	Metrics    *handler.MetricsHandler
}

// New builds the gin engine with all middleware and routes registered.
func New(cfg *config.Config, logr *zap.Logger, auth *service.AuthService, metrics *service.MetricsService, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")

	// Unauthenticated: credential exchange and signed payslip downloads.
	v1.POST("/auth/login", h.Auth.Login)
	v1.POST("/auth/refresh-token", h.Auth.Refresh)
	v1.GET("/payroll/payslips/download", h.Payroll.Download)

	authed := v1.Group("")
	authed.Use(middleware.JWT(auth))

	authed.PATCH("/auth/change-password", h.Auth.ChangePassword)
	authed.POST("/auth/logout", h.Auth.Logout)
	authed.GET("/auth/me", h.Auth.Me)

	hr := authed.Group("")
	hr.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleHROfficer))

	hrOrManager := authed.Group("")
	hrOrManager.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleHROfficer, models.RoleManager))

	// Employees. Reads of a single profile pass through so non-HR staff can
	// fetch their own record; the handler rejects anything else.
	hr.POST("/employees", h.Employee.Create)
	hrOrManager.GET("/employees", h.Employee.List)
	authed.GET("/employees/:id", h.Employee.Get)
	authed.PATCH("/employees/:id", h.Employee.Update)
	hr.DELETE("/employees/:id", h.Employee.Deactivate)

	authed.GET("/departments", h.Employee.ListDepartments)
	hr.POST("/departments", h.Employee.CreateDepartment)
	hr.PATCH("/departments/:id", h.Employee.UpdateDepartment)

	// Attendance.
	authed.POST("/attendance/punch-in", h.Attendance.PunchIn)
	authed.POST("/attendance/punch-out", h.Attendance.PunchOut)
	authed.GET("/attendance/today", h.Attendance.Today)
	hrOrManager.GET("/attendance", h.Attendance.List)
	hrOrManager.GET("/attendance/export", h.Attendance.ExportCSV)

	// Leave. Employees see only their own requests; the handler scopes the
	// list filter by role.
	authed.POST("/leaves", h.Leave.Submit)
	authed.GET("/leaves", h.Leave.List)
	authed.GET("/leaves/:id", h.Leave.Get)
	hrOrManager.PATCH("/leaves/:id/decision", h.Leave.Decide)

	// Payroll.
	hr.POST("/payroll/runs", h.Payroll.TriggerRun)
	hr.GET("/payroll/runs/:id", h.Payroll.GetRun)
	hr.GET("/payroll/runs/:id/records", h.Payroll.RunRecords)
	authed.GET("/payroll/records", h.Payroll.MyRecords)
	authed.GET("/payroll/records/:id/payslip", h.Payroll.PayslipURL)

	hrOrManager.GET("/dashboard/summary", h.Dashboard.Summary)

	return r
}
