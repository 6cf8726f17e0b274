package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"peercall-backend/internal/config"
	authHandler "peercall-backend/internal/handler/http/auth"
	userHandler "peercall-backend/internal/handler/http/user"
	wsHandler "peercall-backend/internal/handler/ws"
	"peercall-backend/internal/middleware"
	"peercall-backend/internal/repository/memory"
	authService "peercall-backend/internal/service/auth"
	signalingService "peercall-backend/internal/service/signaling"
	"peercall-backend/pkg/constants"
	"peercall-backend/pkg/jwt"
	"peercall-backend/pkg/logger"
	"peercall-backend/pkg/metrics"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize logger
	if err := logger.Init(&logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 3. Setup JWT manager
	jwtManager := jwt.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TokenExpiry)

	// 4. Initialize metrics
	appMetrics := metrics.NewMetrics(cfg.Server.ServiceName)
	prometheusMiddleware := middleware.NewPrometheusMiddleware(appMetrics)

	// 5. Initialize repositories
	presenceRepo := memory.NewPresenceRepository()
	callRepo := memory.NewCallRepository(presenceRepo)

	// 6. Initialize WebSocket hub
	hub := wsHandler.NewHub(appMetrics)

	// 7. Initialize services
	signalingSvc := signalingService.NewService(presenceRepo, callRepo, hub, appMetrics)
	authSvc := authService.NewService(jwtManager)

	// 8. Initialize handlers
	wsHdlr := wsHandler.NewHandler(hub, signalingSvc, cfg.CORS.AllowedOrigins, cfg.WebSocket.MaxConnections)
	authHdlr := authHandler.NewHandler(authSvc)
	userHdlr := userHandler.NewHandler(signalingSvc)

	// 9. Setup Gin router
	router := gin.New() // Don't use Default() to have full control

	// Only loopback proxies are trusted for client IP resolution
	if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
		logger.Fatal("Failed to configure trusted proxies", zap.Error(err))
	}

	// Apply global middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	router.Use(prometheusMiddleware.Handler())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": cfg.Server.ServiceName,
			"time":    time.Now().UTC(),
		})
	})

	// Metrics endpoint (for Prometheus scraping)
	if cfg.Metrics.Enabled {
		router.GET("/metrics", middleware.MetricsHandler(appMetrics))
	}

	// WebSocket endpoint (signaling)
	router.GET("/ws", wsHdlr.ServeWS)

	// REST routes
	v1 := router.Group("/v1")
	{
		v1.POST("/auth/login", authHdlr.Login)
		v1.GET("/users", userHdlr.ListOnline)
		v1.GET("/users/me", middleware.AuthMiddleware(jwtManager), userHdlr.GetProfile)
	}

	// 10. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Sugar.Infof("🚀 Signaling Service starting on port %d", cfg.Server.Port)
		logger.Sugar.Infof("📡 WebSocket endpoint: /ws")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 11. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Shutdown does not touch hijacked connections, close the
	// signaling sockets explicitly.
	hub.CloseAll()

	logger.Info("Server exited")
}
