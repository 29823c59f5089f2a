package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taskmanager/internal/auth"
	"taskmanager/internal/config"
	"taskmanager/internal/database"
	"taskmanager/internal/handler"
	"taskmanager/internal/middleware"
	"taskmanager/internal/recurrence"
	"taskmanager/internal/repository"
	"taskmanager/internal/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config
}

func Init(cfg *config.Config) (*Server, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("❌ %w", err)
	}
	log.Println("✅ Connected to database")

	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("❌ migration failed: %w", err)
		}
	}

	engine, err := NewEngine(cfg, db, NewLogger(cfg.LogLevel))
	if err != nil {
		return nil, err
	}

	return &Server{
		Engine: engine,
		DB:     db,
		Config: cfg,
	}, nil
}

// NewEngine wires repositories, the task service and handlers into a gin engine.
func NewEngine(cfg *config.Config, db *gorm.DB, logger *slog.Logger) (*gin.Engine, error) {
	policy, err := recurrence.ParsePolicy(cfg.RecurrencePolicy)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)))

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	// Initialize services
	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTExpiry)
	taskService := service.NewTaskService(taskRepo, userRepo,
		service.WithLogger(logger),
		service.WithRecurrencePolicy(policy),
	)

	// Initialize handlers
	authenticator := handler.NewAuthenticator(tokens)
	userHandler := handler.NewUserHandler(userRepo, tokens, authenticator, taskService)
	taskHandler := handler.NewTaskHandler(taskService, authenticator)

	// Public routes
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.POST("/auth/register", userHandler.Register)
	r.POST("/auth/login", userHandler.Login)

	// Each handler below verifies the bearer token itself
	r.GET("/me", userHandler.Me)
	r.POST("/me/reindex", userHandler.Reindex)

	tasks := r.Group("/tasks")
	{
		tasks.POST("", taskHandler.Create)
		tasks.GET("", taskHandler.GetAll)
		tasks.GET("/:id", taskHandler.GetByID)
		tasks.PUT("/:id", taskHandler.Update)
		tasks.DELETE("/:id", taskHandler.Delete)
		tasks.POST("/:id/share", taskHandler.Share)
	}

	return r, nil
}

// NewLogger builds the JSON slog logger used for request and service logs.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	go func() {
		log.Printf("🚀 Server running on port %s\n", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %s", err)
	}

	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Println("✅ Server exited properly")
}
