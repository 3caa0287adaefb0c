package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	_ "github.com/putra-agung/hrms-api/api/swagger"
	"github.com/putra-agung/hrms-api/internal/handler"
	"github.com/putra-agung/hrms-api/internal/repository"
	"github.com/putra-agung/hrms-api/internal/router"
	"github.com/putra-agung/hrms-api/internal/service"
	"github.com/putra-agung/hrms-api/pkg/cache"
	"github.com/putra-agung/hrms-api/pkg/config"
	"github.com/putra-agung/hrms-api/pkg/database"
	"github.com/putra-agung/hrms-api/pkg/jobs"
	"github.com/putra-agung/hrms-api/pkg/logger"
	"github.com/putra-agung/hrms-api/pkg/storage"
)

// @title HRMS API
// @version 1.0.0
// @description Employee lifecycle, attendance, leave and payroll management
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	users := repository.NewUserRepository(db)
	employees := repository.NewEmployeeRepository(db)
	departments := repository.NewDepartmentRepository(db)
	attendance := repository.NewAttendanceRepository(db)
	leaves := repository.NewLeaveRepository(db)
	payroll := repository.NewPayrollRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(users, employees, validate, logr, service.AuthConfig{
		AccessSecret:      cfg.JWT.AccessSecret,
		RefreshSecret:     cfg.JWT.RefreshSecret,
		AccessExpiration:  cfg.JWT.AccessExpiration,
		RefreshExpiration: cfg.JWT.RefreshExpiration,
		Issuer:            cfg.JWT.Issuer,
	})

	employeeSvc := service.NewEmployeeService(users, employees, departments, validate, logr, service.ProvisionConfig{
		CompanyCode:        cfg.Provisioning.CompanyCode,
		TempPasswordLength: cfg.Provisioning.TempPasswordLength,
		MaxRetries:         cfg.Provisioning.MaxRetries,
	})

	attendanceSvc := service.NewAttendanceService(attendance, logr)
	leaveSvc := service.NewLeaveService(leaves, users, validate, logr)

	payslipStore, err := storage.NewLocalStorage(cfg.Payroll.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init payslip storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Payroll.SignedURLSecret, cfg.Payroll.SignedURLTTL)

	payrollSvc := service.NewPayrollService(payroll, employees, leaves, users, payslipStore, signer, logr, cfg.Provisioning.CompanyName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	payrollQueue := jobs.NewQueue("payroll", payrollSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Payroll.WorkerConcurrency,
		MaxRetries: cfg.Payroll.WorkerRetries,
		Logger:     logr,
	})
	payrollQueue.Start(ctx)
	defer payrollQueue.Stop()
	payrollSvc.SetQueue(payrollQueue)

	dashboardSvc := service.NewDashboardService(employees, leaves, attendance, payroll, cacheRepo, cfg.Dashboard.CacheTTL, logr)

	handlers := router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc, metricsSvc),
		Employee:   handler.NewEmployeeHandler(employeeSvc, metricsSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc, employeeSvc),
		Leave:      handler.NewLeaveHandler(leaveSvc, employeeSvc),
		Payroll:    handler.NewPayrollHandler(payrollSvc, employeeSvc),
		Dashboard:  handler.NewDashboardHandler(dashboardSvc),
		Metrics:    handler.NewMetricsHandler(metricsSvc),
	}

	engine := router.New(cfg, logr, authSvc, metricsSvc, handlers)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
