package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/config"
	"github.com/smartpark/parking-backend/internal/database"
	"github.com/smartpark/parking-backend/internal/handlers"
	"github.com/smartpark/parking-backend/internal/metrics"
	"github.com/smartpark/parking-backend/internal/middleware"
	"github.com/smartpark/parking-backend/internal/models"
	"github.com/smartpark/parking-backend/internal/services"
	"github.com/smartpark/parking-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

// idle per-IP limiters are dropped after this long
const limiterIdleTTL = 30 * time.Minute

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SmartPark parking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	// Package-level logrus is used by the middleware
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logLevel)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if cfg.Database.RunMigrations {
		logger.Info("Applying database migrations...")
		schemaVersion, err := database.RunMigrations(cfg.Database.URL)
		if err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
		logger.WithField("schema_version", schemaVersion).Info("Database schema is up to date")
	}

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if err := handlers.RegisterValidators(); err != nil {
		logger.Fatalf("Failed to register request validators: %v", err)
	}

	// Repositories
	userRepository := database.NewUserRepository(db)
	adminRepository := database.NewAdminUserRepository(db)
	sessionRepository := database.NewSessionRepository(db)
	lotRepository := database.NewParkingLotRepository(db)
	reservationRepository := database.NewReservationRepository(db)
	searchRepository := database.NewSearchRepository(db)

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.SessionExpiry)
	rateLimitService := services.NewRateLimitService(db, services.RateLimitConfig{
		MaxUsernameAttempts: cfg.RateLimit.LoginMaxAttempts,
		Window:              cfg.RateLimit.LoginWindow,
	})
	auditService := services.NewAuditService(db, cfg.Security.EnableAuditLog)
	authService := services.NewAuthService(
		userRepository,
		adminRepository,
		sessionRepository,
		rateLimitService,
		jwtService,
		cfg.Security.BcryptCost,
		logger,
	)
	lotService := services.NewLotService(lotRepository, userRepository, cfg.Parking.MaxSpotsPerLot, logger)
	bookingService := services.NewBookingService(reservationRepository, logger)
	searchService := services.NewSearchService(searchRepository, logger)
	statsService := services.NewStatsService(reservationRepository, lotRepository)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	_, err = authService.EnsureDefaultAdmin(seedCtx, cfg.Admin.Username, cfg.Admin.Password)
	seedCancel()
	if err != nil {
		logger.Fatalf("Failed to seed administrator: %v", err)
	}

	authLimiter := middleware.NewClientRateLimiter(float64(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)

	cronService := services.NewCronService(services.HousekeepingConfig{
		Auth:             authService,
		RateLimits:       rateLimitService,
		Audit:            auditService,
		AuditRetention:   time.Duration(cfg.Security.AuditRetentionDays) * 24 * time.Hour,
		SessionRetention: 24 * time.Hour,
		SweepLimiters: func() int {
			return authLimiter.Cleanup(limiterIdleTTL)
		},
	}, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("✓ Cron service started - session and audit housekeeping enabled")

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, auditService, cfg.Session, logger)
	adminHandler := handlers.NewAdminHandler(lotService, searchService, auditService, logger)
	userHandler := handlers.NewUserHandler(bookingService, statsService, auditService, logger)

	router := gin.New()
	// Forwarding headers are honoured only from these peers; per-IP throttling keys on the result
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}
	router.Use(gin.Recovery())
	router.Use(metrics.GinMiddleware())
	router.Use(requestLogger(logger))

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthCheckHandler(db))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	if !cfg.IsProduction() {
		router.GET("/debug/headers", debugHeadersHandler())
	}

	cookieName := cfg.Session.CookieName

	// Public auth routes
	router.POST("/register", authLimiter.Handler(), authHandler.Register)
	router.POST("/user/login", authLimiter.Handler(), authHandler.UserLogin)
	router.POST("/admin/login", authLimiter.Handler(), authHandler.AdminLogin)

	logout := middleware.OptionalAuth(authService, cookieName)
	router.GET("/logout", logout, authHandler.Logout)
	router.POST("/logout", logout, authHandler.Logout)

	admin := router.Group("/admin")
	admin.Use(middleware.AuthMiddleware(authService, cookieName))
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/dashboard", adminHandler.Dashboard)
		admin.POST("/create_lot", adminHandler.CreateLot)
		admin.GET("/view_lot/:id", adminHandler.ViewLot)
		admin.GET("/delete_lot/:id", adminHandler.DeleteLot)
		admin.POST("/search", adminHandler.Search)
	}

	user := router.Group("/user")
	user.Use(middleware.AuthMiddleware(authService, cookieName))
	user.Use(middleware.RequireRole(models.RoleUser))
	{
		user.GET("/dashboard", userHandler.Dashboard)
		user.POST("/book_spot/:lotId", userHandler.BookSpot)
		user.GET("/release_spot/:reservationId", userHandler.ReleaseSpot)
		user.GET("/parking_stats", userHandler.ParkingStats)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping cron service...")
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		// Never log the token itself
		_, hasCookie := c.Request.Header["Cookie"]
		fields["has_auth"] = c.GetHeader("Authorization") != "" || hasCookie

		if identity, ok := middleware.GetIdentity(c); ok {
			fields["principal_id"] = identity.PrincipalID
			fields["role"] = identity.Role
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}

// debugHeadersHandler shows the headers used for client IP detection
func debugHeadersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ip_detection": gin.H{
				"gin_clientip":    c.ClientIP(),
				"remote_addr":     c.Request.RemoteAddr,
				"x_real_ip":       c.Request.Header.Get("X-Real-IP"),
				"x_forwarded_for": c.Request.Header.Get("X-Forwarded-For"),
			},
			"user_agent": c.Request.UserAgent(),
			"timestamp":  time.Now().Unix(),
		})
	}
}
