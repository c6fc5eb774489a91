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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"stockflow/internal/config"
	"stockflow/internal/database"
	"stockflow/internal/handler"
	"stockflow/internal/mailer"
	"stockflow/internal/middleware"
	"stockflow/internal/monitor"
	"stockflow/internal/repository"
	"stockflow/internal/service"
	"stockflow/internal/websocket"
	"stockflow/internal/worker"
)

// @title           Stockflow API
// @version         1.0
// @description     Inventory and request-approval tracking service.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("APP_ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	middleware.SetJWTSecret(cfg.JWTSecret)

	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Msg("connected to postgres")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Redis-backed email pipeline. The server still runs without Redis; alert
	// emails are skipped and logged.
	var dispatcher worker.EmailEnqueuer
	if rdb, redisErr := worker.NewRedis(cfg.RedisURL); redisErr != nil {
		log.Warn().Err(redisErr).Msg("redis unavailable, alert emails disabled")
	} else {
		dispatcher = worker.NewDispatcher(rdb)
		worker.StartPool(ctx, rdb, mailer.New(cfg), cfg.WorkerPoolSize)
	}

	// Repositories
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	itemRepo := repository.NewItemRepository(db)
	issuanceRepo := repository.NewIssuanceRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	supervisorRepo := repository.NewSupervisorRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// Services
	userService := service.NewUserService(userRepo, auditRepo, txManager, cfg)
	categoryService := service.NewCategoryService(categoryRepo, auditRepo, txManager)
	itemService := service.NewItemService(itemRepo, categoryRepo, issuanceRepo, auditRepo, txManager, wsHub)
	requestService := service.NewRequestService(requestRepo, itemRepo, auditRepo, txManager, wsHub)
	supervisorService := service.NewSupervisorService(supervisorRepo, auditRepo, txManager)
	settingService := service.NewSettingService(settingRepo, auditRepo, txManager)
	auditService := service.NewAuditService(auditRepo)
	dashboardService := service.NewDashboardService(statsRepo)

	// Low-stock monitor
	lowStockMonitor := monitor.New(itemRepo, supervisorRepo, wsHub, dispatcher, cfg.LowStockInterval())
	go lowStockMonitor.Start(ctx)

	// Router
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// API routes
	root := router.Group("")
	handler.NewUserHandler(userService).RegisterRoutes(root)
	handler.NewCategoryHandler(categoryService).RegisterRoutes(root)
	handler.NewItemHandler(itemService).RegisterRoutes(root)
	handler.NewRequestHandler(requestService).RegisterRoutes(root)
	handler.NewSupervisorHandler(supervisorService).RegisterRoutes(root)
	handler.NewSettingHandler(settingService).RegisterRoutes(root)
	handler.NewAuditHandler(auditService).RegisterRoutes(root)
	handler.NewDashboardHandler(dashboardService).RegisterRoutes(root)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
