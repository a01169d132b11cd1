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

	"lifeline/internal/config"
	"lifeline/internal/handlers"
	"lifeline/internal/middleware"
	"lifeline/internal/repositories/mongodb"
	"lifeline/internal/services"
	"lifeline/internal/utils"
	"lifeline/pkg/cache"
	"lifeline/pkg/database"
	"lifeline/pkg/logger"
	"lifeline/pkg/maps"
	"lifeline/pkg/websocket"
	"lifeline/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// MongoDB
	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close()

	if err := database.EnsureIndexes(db.Database); err != nil {
		appLogger.Fatalf("Failed to ensure indexes: %v", err)
	}

	// Redis
	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	cacheService := services.NewCacheService(redisCache, appLogger)

	// Geocoding is optional; guest requests fall back to a placeholder
	// address when no provider is configured.
	var geocoder maps.Geocoder
	if cfg.Maps.GoogleMaps.APIKey != "" {
		geocoder, err = maps.NewGoogleMapsProvider(cfg.Maps.GoogleMaps.APIKey)
		if err != nil {
			appLogger.WithError(err).Warn("Failed to initialize geocoder, guest addresses will use the placeholder")
			geocoder = nil
		}
	}

	// Repositories
	requestRepo := mongodb.NewEmergencyRequestRepository(db.Database, cacheService)
	ambulanceRepo := mongodb.NewAmbulanceRepository(db.Database, cacheService)
	userRepo := mongodb.NewUserRepository(db.Database, cacheService)

	// Realtime hub first; the ambulance service is wired in as the
	// location sink once it exists.
	wsHandler := websocket.NewHandler(nil)

	broadcastService := services.NewBroadcastService(wsHandler.GetHub(), cacheService, appLogger)
	ambulanceService := services.NewAmbulanceService(ambulanceRepo, userRepo, broadcastService, appLogger)
	emergencyService := services.NewEmergencyService(requestRepo, ambulanceRepo, userRepo, broadcastService, geocoder, appLogger)

	wsHandler.SetLocationSink(ambulanceService)

	emergencyHandler := handlers.NewEmergencyHandler(emergencyService)
	ambulanceHandler := handlers.NewAmbulanceHandler(ambulanceService, emergencyService)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))

	v1 := router.Group("/api/v1")
	{
		routes.SetupEmergencyRoutes(v1, emergencyHandler, cfg.Security.JWTSecret)
		routes.SetupAmbulanceRoutes(v1, ambulanceHandler, cfg.Security.JWTSecret)
		routes.SetupWebSocketRoutes(v1, wsHandler, cfg.Security.JWTSecret)
	}

	router.GET("/health", func(c *gin.Context) {
		health := gin.H{
			"status":  "healthy",
			"name":    utils.AppName,
			"version": cfg.App.Version,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			health["status"] = "degraded"
			health["mongodb"] = "unreachable"
		}
		if err := cacheService.Ping(ctx); err != nil {
			health["status"] = "degraded"
			health["redis"] = "unreachable"
		}

		status := http.StatusOK
		if health["status"] != "healthy" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Errorf("Forced shutdown: %v", err)
	}
	appLogger.Info("Server stopped")
}
