package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/aiglow/satbank/internal/database"
	"github.com/aiglow/satbank/internal/handler"
	"github.com/aiglow/satbank/internal/parser"
	"github.com/aiglow/satbank/internal/repository/postgres"
	"github.com/aiglow/satbank/internal/review"
	"github.com/aiglow/satbank/internal/service"
	"github.com/aiglow/satbank/internal/storage"
)

func main() {
	// Initialize database connection
	pool, err := database.ConnectPostgres(database.NewPostgresConfig())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := database.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis client
	redisClient, err := database.ConnectRedis(database.NewRedisConfig())
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize object storage
	objectStorage, err := storage.NewObjectStorage(storage.NewConfig())
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}
	if err := objectStorage.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("Failed to prepare image bucket: %v", err)
	}

	// Initialize parsing service client
	parsingClient := parser.NewClient(parser.NewConfig())

	// Initialize repositories
	questionRepo := postgres.NewQuestionRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	// Initialize review batch store
	batchStore := review.NewStore(redisClient)

	// Initialize services
	reviewService := service.NewReviewService(parsingClient, batchStore, objectStorage, questionRepo, review.DefaultBatchTTL)
	userService := service.NewUserService(userRepo, jwtSecret())

	// Initialize handlers
	questionHandler := handler.NewQuestionHandler(reviewService, questionRepo)
	userHandler := handler.NewUserHandler(userService)

	// Initialize Echo
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Routes
	questionHandler.Register(e)

	users := e.Group("/api/user")
	users.POST("/register", userHandler.Register)
	users.POST("/login", userHandler.Login)

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	// Start server
	go func() {
		if err := e.Start(":" + serverPort()); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}

func serverPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "3000"
}

func jwtSecret() string {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return secret
	}
	log.Println("JWT_SECRET not set, using development default")
	return "dev-secret-change-me"
}
