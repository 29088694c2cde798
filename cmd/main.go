package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"plumbline/internal/caching"
	"plumbline/internal/common"
	"plumbline/internal/config"
	"plumbline/internal/handlers"
	"plumbline/internal/identity"
	"plumbline/internal/jobs/background"
	"plumbline/internal/middleware"
	"plumbline/internal/models"
	"plumbline/internal/repositories"
	"plumbline/internal/services"
	"plumbline/internal/webhooks"
	"plumbline/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Database connection pool
	pool, err := database.NewPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	cacheSvc := caching.NewRedisCacheServiceWithClient(redisClient)

	// MinIO
	minioSvc, err := services.NewMinioService(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("Failed to initialize MinIO service: %v", err)
	}

	// Token verification: JWKS endpoint when configured, static secret for
	// development setups
	var verifier identity.TokenVerifier
	if cfg.JWKSURL != "" {
		jwksVerifier, err := identity.NewJWKSVerifier(cfg.JWKSURL)
		if err != nil {
			log.Fatalf("Failed to initialize JWKS verifier: %v", err)
		}
		defer jwksVerifier.Close()
		verifier = jwksVerifier
	} else {
		log.Printf("WARN: JWKS_URL not set, verifying tokens with the static JWT_SECRET")
		verifier = identity.NewStaticVerifier(cfg.JWTSecret)
	}

	// Repositories
	store := repositories.NewScopedStore(pool)
	userRepo := repositories.NewUserRepo(pool)
	tenantRepo := repositories.NewTenantRepo(pool)
	membershipRepo := repositories.NewMembershipRepo(pool)
	customerRepo := repositories.NewCustomerRepo(store)
	jobRepo := repositories.NewJobRepo(store)
	appointmentRepo := repositories.NewAppointmentRepo(store)
	invoiceRepo := repositories.NewInvoiceRepo(store, pool)
	materialRepo := repositories.NewMaterialRepo(store)
	auditLogsRepo := repositories.NewAuditLogsRepo(pool)
	webhookEventRepo := repositories.NewWebhookEventRepo(pool)

	// Services
	auditSvc := services.NewAuditLogsService(auditLogsRepo)
	customerSvc := services.NewCustomerService(customerRepo, cacheSvc)
	jobSvc := services.NewJobService(jobRepo, customerRepo, cacheSvc)
	appointmentSvc := services.NewAppointmentService(appointmentRepo, jobRepo)
	mollieSvc := services.NewMollieService(cfg.MollieAPIKey, "")
	invoiceSvc := services.NewInvoiceService(invoiceRepo, jobRepo, mollieSvc)
	materialSvc := services.NewMaterialService(materialRepo)
	tenantSvc := services.NewTenantService(tenantRepo, membershipRepo, userRepo)
	userSvc := services.NewUserService(userRepo, membershipRepo)
	webhookSvc := webhooks.NewService(pool, webhookEventRepo, webhooks.ApplierFunc(invoiceSvc.ApplyPayment), "mollie", cfg.MollieWebhookSecret).
		WithOutcomeCache(cacheSvc)

	// Identity resolution
	resolver := identity.NewResolver(verifier, userRepo, membershipRepo, tenantRepo)

	// Middleware
	rbac := middleware.NewRBACMiddleware(auditSvc)
	auditMw := middleware.NewAuditMiddleware(auditSvc)
	rateLimiter := middleware.NewRateLimitMiddleware(cacheSvc, func(c echo.Context) string {
		ctx := c.Request().Context()
		tenantID, ok := common.GetTenantIDFromContext(ctx)
		if !ok {
			return models.PlanTierFree
		}
		if tenant, err := cacheSvc.GetTenant(ctx, tenantID); err == nil && tenant != nil {
			return tenant.PlanTier
		}
		tenant, err := tenantRepo.GetByID(ctx, tenantID)
		if err != nil {
			return models.PlanTierFree
		}
		_ = cacheSvc.SetTenant(ctx, tenant, 5*time.Minute)
		return tenant.PlanTier
	})

	// Handlers
	authHandlers := handlers.NewAuthHandlers(userSvc)
	customerHandlers := handlers.NewCustomerHandlers(customerSvc)
	jobHandlers := handlers.NewJobHandlers(jobSvc)
	appointmentHandlers := handlers.NewAppointmentHandlers(appointmentSvc)
	invoiceHandlers := handlers.NewInvoiceHandlers(invoiceSvc, customerSvc, minioSvc)
	materialHandlers := handlers.NewMaterialHandlers(materialSvc)
	tenantHandlers := handlers.NewTenantHandlers(tenantSvc, verifier)
	userHandlers := handlers.NewUserHandlers(userSvc)
	auditLogsHandlers := handlers.NewAuditLogsHandlers(auditSvc)
	webhookHandlers := handlers.NewWebhookHandlers(webhookSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, redisClient, minioSvc)

	// Background jobs
	scheduler, err := background.NewJobScheduler(webhookSvc, invoiceSvc)
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("WARN: scheduler shutdown: %v", err)
		}
	}()

	// Echo instance
	e := echo.New()
	e.HideBanner = true

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)

	v1 := e.Group("/v1")

	// Provider callbacks carry an HMAC signature instead of a bearer token
	webhooksGroup := v1.Group("/webhooks")
	webhooksGroup.Use(rateLimiter.LimitByIP(middleware.FreeTierLimit))
	webhooksGroup.POST("/mollie", webhookHandlers.HandleMollie)

	// Tenant signup happens before any membership exists
	v1.POST("/tenants", tenantHandlers.CreateTenant, rateLimiter.LimitByIP(middleware.FreeTierLimit))

	// Everything else requires a resolved identity
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(resolver))
	protected.Use(rateLimiter.LimitByTenant())
	protected.Use(auditMw.AuditRequest(middleware.SensitivityHigh))

	protected.GET("/auth/me", authHandlers.Me)

	// Tenant
	protected.GET("/tenants/current", tenantHandlers.GetTenant, rbac.RequirePermission("tenant:read"))
	protected.PUT("/tenants/current", tenantHandlers.UpdateTenant, rbac.RequirePermission("tenant:update"))
	protected.POST("/tenants/current/suspend", tenantHandlers.SuspendTenant, rbac.RequirePermission("tenant:suspend"))
	protected.POST("/tenants/current/reactivate", tenantHandlers.ReactivateTenant, rbac.RequirePermission("tenant:update"))

	// Members
	protected.GET("/members", userHandlers.ListMembers, rbac.RequirePermission("users:read"))
	protected.POST("/members", userHandlers.InviteMember, rbac.RequirePermission("users:invite"))
	protected.PATCH("/members/:id/role", userHandlers.ChangeRole, rbac.RequirePermission("users:update"))
	protected.DELETE("/members/:id", userHandlers.RemoveMember, rbac.RequirePermission("users:remove"))

	// Customers
	protected.GET("/customers", customerHandlers.ListCustomers, rbac.RequirePermission("customers:read"))
	protected.POST("/customers", customerHandlers.CreateCustomer, rbac.RequirePermission("customers:create"))
	protected.GET("/customers/:id", customerHandlers.GetCustomer, rbac.RequirePermission("customers:read"))
	protected.PUT("/customers/:id", customerHandlers.UpdateCustomer, rbac.RequirePermission("customers:update"))
	protected.DELETE("/customers/:id", customerHandlers.DeleteCustomer, rbac.RequirePermission("customers:delete"))

	// Jobs
	protected.GET("/jobs", jobHandlers.ListJobs, rbac.RequirePermission("jobs:read"))
	protected.POST("/jobs", jobHandlers.CreateJob, rbac.RequirePermission("jobs:create"))
	protected.GET("/jobs/:id", jobHandlers.GetJob, rbac.RequirePermission("jobs:read"))
	protected.PUT("/jobs/:id", jobHandlers.UpdateJob, rbac.RequirePermission("jobs:update"))
	protected.PATCH("/jobs/:id/status", jobHandlers.UpdateJobStatus, rbac.RequirePermission("jobs:update"))
	protected.PATCH("/jobs/:id/assign", jobHandlers.AssignTechnician, rbac.RequirePermission("jobs:assign"))
	protected.DELETE("/jobs/:id", jobHandlers.DeleteJob, rbac.RequirePermission("jobs:delete"))

	// Appointments
	protected.GET("/appointments", appointmentHandlers.ListAppointments, rbac.RequirePermission("appointments:read"))
	protected.POST("/appointments", appointmentHandlers.CreateAppointment, rbac.RequirePermission("appointments:create"))
	protected.GET("/appointments/:id", appointmentHandlers.GetAppointment, rbac.RequirePermission("appointments:read"))
	protected.PUT("/appointments/:id", appointmentHandlers.UpdateAppointment, rbac.RequirePermission("appointments:update"))
	protected.PATCH("/appointments/:id/cancel", appointmentHandlers.CancelAppointment, rbac.RequirePermission("appointments:update"))
	protected.DELETE("/appointments/:id", appointmentHandlers.DeleteAppointment, rbac.RequirePermission("appointments:delete"))

	// Invoices
	protected.GET("/invoices", invoiceHandlers.ListInvoices, rbac.RequirePermission("invoices:read"))
	protected.POST("/invoices", invoiceHandlers.CreateInvoice, rbac.RequirePermission("invoices:create"))
	protected.GET("/invoices/:id", invoiceHandlers.GetInvoice, rbac.RequirePermission("invoices:read"))
	protected.POST("/invoices/:id/send", invoiceHandlers.SendInvoice, rbac.RequirePermission("invoices:send"))
	protected.PATCH("/invoices/:id/status", invoiceHandlers.UpdateInvoiceStatus, rbac.RequirePermission("invoices:update"))
	protected.GET("/invoices/:id/pdf", invoiceHandlers.GetInvoicePDF, rbac.RequirePermission("invoices:pdf"))
	protected.DELETE("/invoices/:id", invoiceHandlers.DeleteInvoice, rbac.RequirePermission("invoices:delete"))

	// Materials
	protected.GET("/materials", materialHandlers.ListMaterials, rbac.RequirePermission("materials:read"))
	protected.POST("/materials", materialHandlers.CreateMaterial, rbac.RequirePermission("materials:create"))
	protected.GET("/materials/:id", materialHandlers.GetMaterial, rbac.RequirePermission("materials:read"))
	protected.PUT("/materials/:id", materialHandlers.UpdateMaterial, rbac.RequirePermission("materials:update"))
	protected.PATCH("/materials/:id/stock", materialHandlers.AdjustStock, rbac.RequirePermission("materials:update"))
	protected.DELETE("/materials/:id", materialHandlers.DeleteMaterial, rbac.RequirePermission("materials:delete"))

	// Audit logs
	protected.GET("/audit-logs", auditLogsHandlers.ListAuditLogs, rbac.RequirePermission("audit:read"))
	protected.GET("/audit-logs/:id", auditLogsHandlers.GetAuditLog, rbac.RequirePermission("audit:read"))
	protected.GET("/audit-logs/history/:table/:id", auditLogsHandlers.GetEntityHistory, rbac.RequirePermission("audit:read"))

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Printf("Shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			log.Printf("WARN: server shutdown: %v", err)
		}
	}()

	log.Printf("Plumbline server v%s starting on port %d", version, cfg.Port)
	if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
