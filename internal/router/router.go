// internal/router/router.go
package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gorm.io/gorm"

	"github.com/javajoker/eco-backend/internal/config"
	"github.com/javajoker/eco-backend/internal/handlers"
	"github.com/javajoker/eco-backend/internal/metrics"
	"github.com/javajoker/eco-backend/internal/middleware"
	"github.com/javajoker/eco-backend/internal/realtime"
	"github.com/javajoker/eco-backend/internal/services"
	"github.com/javajoker/eco-backend/internal/utils"
)

func init() {
	// Unknown JSON fields are a client error.
	binding.EnableDecoderDisallowUnknownFields = true
}

func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, error) {
	jwtManager := utils.NewJWTManager(
		cfg.JWT.SecretKey,
		time.Duration(cfg.JWT.AccessTokenTTL)*time.Minute,
		time.Duration(cfg.JWT.RefreshTokenTTL)*time.Hour,
	)

	// Initialize services
	authorizationService, err := services.NewAuthorizationService(cfg.Permissions.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	hub := realtime.NewHub()
	notificationService := services.NewNotificationService(db, hub)
	tokenStore := services.NewTokenStore(db, cfg.Redis)
	authService := services.NewAuthService(db, cfg, jwtManager, tokenStore)
	userService := services.NewUserService(db, authService)
	productService := services.NewProductService(db, notificationService)
	bomService := services.NewBoMService(db)
	ecoService := services.NewECOService(db, authorizationService, notificationService, storageService)
	adminService := services.NewAdminService(db)
	reportService := services.NewReportService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService, storageService)
	productHandler := handlers.NewProductHandler(productService)
	bomHandler := handlers.NewBoMHandler(bomService)
	ecoHandler := handlers.NewECOHandler(ecoService, storageService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, hub)
	adminHandler := handlers.NewAdminHandler(adminService)
	reportHandler := handlers.NewReportHandler(reportService)

	limits := middleware.NewRateLimits(cfg.RateLimit)
	authRequired := middleware.AuthRequired(jwtManager)
	can := func(action string) gin.HandlerFunc {
		return middleware.RequirePermission(authorizationService, action)
	}

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(metrics.Middleware())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.I18nMiddleware())
	r.Use(limits.General())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": "1.0.0",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if !storageService.UsesS3() {
		r.Static("/uploads", cfg.Storage.LocalDir)
	}

	api := r.Group("/api")

	// Long-lived; exempt from the request timeout.
	api.GET("/ws/notifications", middleware.WebsocketAuthRequired(jwtManager), notificationHandler.Stream)

	v := api.Group("")
	v.Use(middleware.Timeout(time.Duration(cfg.Server.RequestTimeout) * time.Second))
	{
		// Authentication routes
		auth := v.Group("/auth")
		auth.Use(limits.Auth())
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authRequired, authHandler.Logout)
		}

		protected := v.Group("")
		protected.Use(authRequired, middleware.ActivityLog(adminService))

		// Product routes
		products := protected.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/categories", productHandler.GetCategories)
			products.GET("/:id", productHandler.GetProduct)
			products.POST("", can(services.PermCatalogWrite), productHandler.CreateProduct)
			products.PUT("/:id", can(services.PermCatalogWrite), productHandler.UpdateProduct)
			products.DELETE("/:id", can(services.PermCatalogDelete), productHandler.DeleteProduct)
		}

		// BoM routes
		boms := protected.Group("/bom")
		{
			boms.GET("", bomHandler.GetBoMs)
			boms.GET("/:id", bomHandler.GetBoM)
			boms.POST("", can(services.PermCatalogWrite), bomHandler.CreateBoM)
			boms.PUT("/:id", can(services.PermCatalogWrite), bomHandler.UpdateBoM)
			boms.DELETE("/:id", can(services.PermCatalogDelete), bomHandler.DeleteBoM)
		}

		// ECO routes; transition permissions are enforced by the workflow
		ecos := protected.Group("/eco")
		{
			ecos.GET("", ecoHandler.GetECOs)
			ecos.GET("/:id", ecoHandler.GetECO)
			ecos.POST("", can(services.PermECOCreate), ecoHandler.CreateECO)
			ecos.PUT("/:id", can(services.PermECOCreate), ecoHandler.UpdateECO)
			ecos.DELETE("/:id", ecoHandler.DeleteECO)
			ecos.POST("/:id/submit", ecoHandler.Transition(services.ActionSubmit))
			ecos.POST("/:id/approve", ecoHandler.Transition(services.ActionApprove))
			ecos.POST("/:id/reject", ecoHandler.Transition(services.ActionReject))
			ecos.POST("/:id/implement", ecoHandler.Transition(services.ActionImplement))
			ecos.POST("/:id/complete", ecoHandler.Transition(services.ActionComplete))
			ecos.POST("/:id/archive", ecoHandler.Transition(services.ActionArchive))
			ecos.POST("/:id/attachments", limits.Upload(), ecoHandler.UploadAttachment)
			ecos.GET("/:id/attachments/url", ecoHandler.GetAttachmentURL)
		}

		// User routes
		users := protected.Group("/users")
		{
			users.GET("", userHandler.GetUsers)
			users.GET("/:id", userHandler.GetUser)
			users.POST("", can(services.PermUsersManage), userHandler.CreateUser)
			users.PUT("/:id", can(services.PermUsersManage), userHandler.UpdateUser)
			users.DELETE("/:id", can(services.PermUsersManage), userHandler.DeleteUser)
		}

		profile := protected.Group("/profile")
		{
			profile.GET("", userHandler.GetProfile)
			profile.PUT("", userHandler.UpdateProfile)
			profile.PUT("/password", userHandler.ChangePassword)
			profile.POST("/picture", limits.Upload(), userHandler.UploadPicture)
		}

		// Administration routes
		protected.GET("/roles", adminHandler.GetRoles)
		protected.POST("/roles", can(services.PermRolesManage), adminHandler.CreateRole)
		protected.GET("/settings", adminHandler.GetSettings)
		protected.PUT("/settings", can(services.PermSettingsManage), adminHandler.UpdateSettings)

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.GET("/unread-count", notificationHandler.GetUnreadCount)
			notifications.POST("", notificationHandler.PostNotification)
		}

		// Dashboard and reports
		reports := protected.Group("")
		reports.Use(can(services.PermReportsView))
		{
			reports.GET("/dashboard/stats", reportHandler.GetDashboardStats)
			reports.GET("/reports/eco-summary", reportHandler.GetECOSummary)
			reports.GET("/reports/eco-trend", reportHandler.GetECOTrend)
			reports.GET("/reports/ecos/export", reportHandler.ExportECOs)
		}
	}

	return r, nil
}
