// Package main runs the live commerce HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/streamcart/backend/config"
	"github.com/streamcart/backend/internal/analytics"
	"github.com/streamcart/backend/internal/auth"
	"github.com/streamcart/backend/internal/chat"
	"github.com/streamcart/backend/internal/clicks"
	"github.com/streamcart/backend/internal/middleware"
	"github.com/streamcart/backend/internal/presence"
	"github.com/streamcart/backend/internal/products"
	"github.com/streamcart/backend/internal/reactions"
	"github.com/streamcart/backend/internal/realtime"
	"github.com/streamcart/backend/internal/sessionproducts"
	"github.com/streamcart/backend/internal/sessions"
	"github.com/streamcart/backend/internal/zego"
	"github.com/streamcart/backend/pkg/database"
	"github.com/streamcart/backend/pkg/queue"
	"github.com/streamcart/backend/pkg/redis"
	"github.com/streamcart/backend/pkg/response"
	"github.com/streamcart/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ProductImagesBucket:  cfg.AWS.ProductImagesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Sessions and catalog
	sessionRepo := sessions.NewRepository(pool)
	productRepo := products.NewRepository(pool)
	productHandler := products.NewHandler(productRepo, s3Client, logger)
	sessionProductRepo := sessionproducts.NewRepository(pool)
	sessionProductHandler := sessionproducts.NewHandler(sessionProductRepo, sessionRepo)

	// Presence: durable view records plus the in-memory membership index
	presenceRepo := presence.NewRepository(pool)
	registry := presence.NewRegistry(presenceRepo, sessionRepo, logger)

	// In-memory aggregates
	reactionAgg := reactions.NewAggregator()
	clickRepo := clicks.NewRepository(pool)
	clickAgg := clicks.NewAggregator(registry, clickRepo)
	statsRunner := clicks.NewRunner(clickAgg, hub, cfg.Broadcast.IntervalSec, logger)

	// Chat
	chatRepo := chat.NewRepository(pool)
	chatService := chat.NewService(chatRepo, logger)
	chatHandler := chat.NewHandler(chatRepo)

	// Session lifecycle
	jobQueue := queue.NewQueue(rdb.Client, logger)
	coordinator := sessions.NewCoordinator(sessionRepo, sessionProductRepo, registry,
		reactionAgg, clickAgg, statsRunner, hub, jobQueue, logger)
	sessionHandler := sessions.NewHandler(sessionRepo, coordinator)

	// Analytics
	analyticsRepo := analytics.NewRepository(pool)
	analyticsHandler := analytics.NewHandler(analyticsRepo, presenceRepo, sessionRepo, reactionAgg, clickRepo)

	// Stream tokens
	zegoHandler := zego.NewHandler(cfg.Zego, sessionRepo)

	// WebSocket event routing
	wsRouter := realtime.NewRouter(hub, registry, reactionAgg, chatService,
		clickAgg, statsRunner, coordinator, sessionRepo, logger)
	wsValidate := realtime.TokenValidator(func(token string) (uuid.UUID, string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, "", err
		}
		return claims.UserID, claims.Name, nil
	})

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Public reads: session discovery, catalog and chat history
	router.GET("/sessions", sessionHandler.List)
	router.GET("/sessions/:id", sessionHandler.GetByID)
	router.GET("/sessions/:id/products", sessionProductHandler.List)
	router.GET("/sessions/:id/messages", chatHandler.List)
	router.GET("/products", productHandler.List)
	router.GET("/products/:id", productHandler.GetByID)

	// Stream tokens: anonymous viewers allowed, the creator needs their JWT
	// to receive publish privilege
	router.GET("/sessions/:id/stream-token", middleware.OptionalJWT(jwtService), zegoHandler.StreamToken)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Sessions (creator or admin; ownership enforced in handlers)
		api.POST("/sessions", middleware.RequireRole("creator", "admin"), sessionHandler.Create)
		api.PATCH("/sessions/:id", sessionHandler.Update)
		api.DELETE("/sessions/:id", sessionHandler.Delete)
		api.POST("/sessions/:id/start", sessionHandler.Start)
		api.POST("/sessions/:id/pause", sessionHandler.Pause)
		api.POST("/sessions/:id/end", sessionHandler.End)
		api.POST("/sessions/:id/showcase", sessionHandler.Showcase)
		api.GET("/sessions/:id/analytics", analyticsHandler.GetBySession)

		// Session catalog
		api.POST("/sessions/:id/products", sessionProductHandler.Attach)
		api.DELETE("/sessions/:id/products/:productId", sessionProductHandler.Detach)
		api.PATCH("/sessions/:id/products/:productId", sessionProductHandler.SetFeatured)

		// Products
		api.POST("/products", middleware.RequireRole("creator", "admin"), productHandler.Create)
		api.PATCH("/products/:id", productHandler.Update)
		api.DELETE("/products/:id", productHandler.Delete)
		api.POST("/products/:id/image", productHandler.UploadImage)
	}

	// WebSocket (token in query; anonymous connections allowed)
	router.GET("/ws", realtime.ServeWs(hub, wsRouter, wsValidate, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	statsRunner.StopAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
