package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"artisan-marketplace/internal/clients"
	"artisan-marketplace/internal/config"
	"artisan-marketplace/internal/events"
	"artisan-marketplace/internal/handlers"
	"artisan-marketplace/internal/mcptools"
	"artisan-marketplace/internal/middleware"
	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/razorpay"
	"artisan-marketplace/internal/repository"
	"artisan-marketplace/internal/services"
	"artisan-marketplace/internal/storage"
	"artisan-marketplace/internal/ws"
)

// @title Artisan Marketplace API
// @version 1.0.0
// @description Marketplace for handmade goods: catalog, admin and artisan chat, order tracking, Razorpay payments and AI listing tools

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.bearer BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load environment variables
	_ = godotenv.Load()

	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel)
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	// Initialize database
	db, err := config.InitDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}

	// Optional Redis cache
	redisClient := config.InitRedis(cfg, logger)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize event publisher (optional - service works without NATS)
	publisher, err := events.NewPublisher(rootCtx, cfg.NATSURL, logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize event publisher, events will not be published")
		publisher, _ = events.NewPublisher(rootCtx, "", logger)
	}

	// WebSocket hub for realtime chat
	hub := ws.NewHub(logger)
	go hub.Run(rootCtx)

	// With a running relay every instance pushes chat events it consumes;
	// otherwise each instance pushes only to its own connections.
	relayed := false
	if publisher.Enabled() {
		relay := events.NewMessageRelay(publisher.JetStream(), hub, logger)
		if err := relay.Start(rootCtx); err != nil {
			logger.WithError(err).Warn("Message relay not started, chat delivery limited to this instance")
		} else {
			relayed = true
		}
	}

	// Third-party integrations stay nil interfaces when not configured
	var gateway razorpay.Gateway
	if client, err := razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret); err != nil {
		logger.WithError(err).Warn("Razorpay not configured, payments disabled")
	} else {
		gateway = client
	}

	var media storage.MediaStore
	if store, err := storage.NewMediaStore(cfg); err != nil {
		logger.WithError(err).Warn("Media storage not configured, uploads disabled")
	} else {
		media = store
	}

	var generator clients.Generator
	if gemini, err := clients.NewGeminiClient(rootCtx, clients.GeminiConfig{
		APIKey:            cfg.GeminiAPIKey,
		TextModel:         cfg.GeminiTextModel,
		ImageModel:        cfg.GeminiImageModel,
		RequestsPerSecond: cfg.AIRequestsPerSecond,
	}, logger); err != nil {
		logger.WithError(err).Warn("Gemini not configured, AI tools disabled")
	} else {
		generator = gemini
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db, redisClient)
	messageRepo := repository.NewMessageRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	aiRepo := repository.NewAIGenerationRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour, logger)
	productService := services.NewProductService(productRepo, userRepo, publisher, cfg.DefaultCurrency, logger)
	messageService := services.NewMessageService(messageRepo, userRepo, publisher, hub, logger)
	messageService.SetRelayed(relayed)
	orderService := services.NewOrderService(orderRepo, productRepo, userRepo, publisher, services.OrderConfig{
		Currency:              cfg.DefaultCurrency,
		FlatShippingCost:      cfg.FlatShippingCost,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
	}, logger)
	paymentService := services.NewPaymentService(paymentRepo, orderRepo, userRepo, gateway, publisher, logger)
	invoiceService := services.NewInvoiceService(orderService)
	exportService := services.NewExportService(productRepo, orderRepo)
	mediaService := services.NewMediaService(media, cfg.MediaFolder, cfg.MaxUploadBytes, logger)
	aiService := services.NewAIService(generator, media, aiRepo, services.AIConfig{
		Currency:          cfg.DefaultCurrency,
		DefaultHourlyRate: cfg.DefaultHourlyRate,
		MediaFolder:       cfg.MediaFolder,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		ImageURLPrefixes:  storage.PublicURLPrefixes(cfg),
	}, logger)
	dashboardService := services.NewDashboardService(dashboardRepo)

	bootstrapCtx, cancelBootstrap := context.WithTimeout(rootCtx, 10*time.Second)
	if err := authService.EnsureAdmin(bootstrapCtx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
		logger.WithError(err).Error("Failed to bootstrap admin account")
	}
	cancelBootstrap()

	// Initialize handlers
	pager := handlers.Pager{DefaultLimit: cfg.DefaultPageSize, MaxLimit: cfg.MaxPageSize}
	healthHandler := handlers.NewHealthHandler(readinessChecks(db, redisClient))
	authHandler := handlers.NewAuthHandler(authService, pager)
	productHandler := handlers.NewProductHandler(productService, exportService, pager)
	messageHandler := handlers.NewMessageHandler(messageService, hub, pager)
	orderHandler := handlers.NewOrderHandler(orderService, invoiceService, exportService, pager)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	mediaHandler := handlers.NewMediaHandler(mediaService, cfg.MaxUploadBytes)
	aiHandler := handlers.NewAIHandler(aiService, cfg.MaxUploadBytes, pager)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	limits := middleware.NewRateLimits()
	requireAuth := middleware.AuthMiddleware(cfg.JWTSecret)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleArtisan)

	// Health check endpoints (no auth required)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// AI tools for MCP clients
	router.Any("/mcp", requireAuth, staff, middleware.RateLimitMiddleware(limits.AI, "user"),
		handlers.MCP(mcptools.Handler(aiService, logger)))

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(limits.APIGeneral, "ip"))

	// Payment gateway callbacks are authenticated by signature
	api.POST("/payments/webhook", middleware.RateLimitMiddleware(limits.Webhook, "ip"), paymentHandler.Webhook)

	auth := api.Group("/auth")
	{
		auth.POST("/register", middleware.RateLimitMiddleware(limits.Auth, "ip"), authHandler.Register)
		auth.POST("/login", middleware.RateLimitMiddleware(limits.Auth, "ip"), authHandler.Login)
		auth.GET("/me", requireAuth, authHandler.Me)
		auth.PUT("/profile", requireAuth, authHandler.UpdateProfile)
		auth.PUT("/password", requireAuth, authHandler.ChangePassword)
	}

	// Public catalog; a token unlocks the owner's drafts
	catalog := api.Group("/products", middleware.OptionalAuth(cfg.JWTSecret))
	{
		catalog.GET("", productHandler.ListProducts)
		catalog.GET("/categories", productHandler.ListCategories)
		catalog.GET("/:id", productHandler.GetProduct)
	}

	protected := api.Group("", requireAuth)

	artisan := protected.Group("/artisan", middleware.RequireRole(models.RoleArtisan))
	{
		artisan.GET("/products", productHandler.ListMyProducts)
		artisan.POST("/products", productHandler.CreateProduct)
		artisan.PUT("/products/:id", productHandler.UpdateProduct)
		artisan.PUT("/products/:id/stock", productHandler.UpdateStock)
		artisan.DELETE("/products/:id", productHandler.DeleteProduct)
	}

	messages := protected.Group("/messages", staff)
	{
		messages.POST("", messageHandler.SendMessage)
		messages.GET("/conversations", messageHandler.ListConversations)
		messages.GET("/conversations/:userId", messageHandler.GetConversation)
		messages.PUT("/conversations/:userId/read", messageHandler.MarkRead)
		messages.GET("/unread-count", messageHandler.UnreadCount)
		messages.GET("/contacts", messageHandler.ListContacts)
		messages.GET("/ws", messageHandler.Connect)
	}

	orders := protected.Group("/orders")
	{
		orders.POST("", middleware.RequireRole(models.RoleCustomer), orderHandler.PlaceOrder)
		orders.GET("", orderHandler.ListOrders)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.PUT("/:id/status", staff, orderHandler.UpdateStatus)
		orders.POST("/:id/cancel", orderHandler.CancelOrder)
		orders.GET("/:id/tracking", orderHandler.Tracking)
		orders.GET("/:id/invoice", orderHandler.Invoice)
		orders.GET("/:id/payments", paymentHandler.ListForOrder)
	}

	payments := protected.Group("/payments", middleware.RequireRole(models.RoleCustomer))
	{
		payments.POST("/checkout", paymentHandler.Checkout)
		payments.POST("/verify", paymentHandler.Verify)
	}

	mediaRoutes := protected.Group("/media")
	{
		mediaRoutes.POST("", mediaHandler.Upload)
		mediaRoutes.DELETE("", mediaHandler.Delete)
	}

	ai := protected.Group("/ai", staff, middleware.RateLimitMiddleware(limits.AI, "user"))
	{
		ai.GET("/status", aiHandler.Status)
		ai.GET("/history", aiHandler.History)
		ai.POST("/content", aiHandler.Content)
		ai.POST("/pricing", aiHandler.Pricing)
		ai.POST("/marketing", aiHandler.Marketing)
		ai.POST("/image", aiHandler.Image)
		ai.POST("/image/describe", aiHandler.DescribeUpload)
		ai.POST("/voice", aiHandler.Voice)
	}

	admin := protected.Group("/admin", adminOnly)
	{
		admin.GET("/dashboard", dashboardHandler.Stats)
		admin.GET("/users", authHandler.ListUsers)
		admin.PUT("/users/:id/verify", authHandler.VerifyArtisan)
		admin.GET("/products", productHandler.ListAllProducts)
		admin.GET("/products/export", productHandler.ExportProducts)
		admin.PUT("/products/:id/status", productHandler.ModerateProduct)
		admin.GET("/orders/export", orderHandler.ExportOrders)
		admin.POST("/orders/:id/refund", paymentHandler.Refund)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Artisan marketplace starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	// stops the hub and the message relay
	stop()
	publisher.Close()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("Server shutdown complete")
}

func readinessChecks(db *gorm.DB, redisClient *redis.Client) map[string]handlers.Check {
	checks := map[string]handlers.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
