package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	_ "capsulevault/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"capsulevault/internal/auth"
	"capsulevault/internal/cache"
	"capsulevault/internal/config"
	"capsulevault/internal/db"
	"capsulevault/internal/handler"
	"capsulevault/internal/model"
	"capsulevault/internal/repository"
	"capsulevault/internal/router"
	"capsulevault/internal/service"
	"capsulevault/internal/sweeper"
)

// @title Capsule Vault API
// @version 1.0
// @description Time-capsule service: sealed messages that unlock at a future time and expire after a retention window.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Capsule{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	capsuleRepo := repository.NewCapsuleRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, cacheClient)
	capsuleService := service.NewCapsuleService(capsuleRepo, userRepo, cacheClient)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	capsuleHandler := handler.NewCapsuleHandler(capsuleService)

	// Register routes
	router.Register(e, jwtService, tokenStore, authHandler, capsuleHandler)

	// Background expiration sweep, cancelled at process shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper.New(capsuleRepo, cfg.SweepInterval).Start(ctx)

	log.Printf("Swagger documentation available at: %s", swaggerURL(cfg.SwaggerHost, cfg.ServerPort))

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}

// swaggerURL builds the externally reachable docs URL. SWAGGER_HOST may
// already carry a scheme.
func swaggerURL(host, port string) string {
	if host == "" {
		return "http://localhost:" + port + "/swagger/index.html"
	}
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host + "/swagger/index.html"
	}
	return "http://" + host + "/swagger/index.html"
}
