package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fuckdb/fuckdb-backend/internal/clients/redis"
	"github.com/fuckdb/fuckdb-backend/internal/db"
	"github.com/fuckdb/fuckdb-backend/internal/handlers"
	"github.com/fuckdb/fuckdb-backend/internal/logger"
	"github.com/fuckdb/fuckdb-backend/internal/middleware"
	"github.com/fuckdb/fuckdb-backend/internal/observability"
	"github.com/fuckdb/fuckdb-backend/internal/repos"
	"github.com/fuckdb/fuckdb-backend/internal/server"
	"github.com/fuckdb/fuckdb-backend/internal/services"
	"github.com/fuckdb/fuckdb-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Tracing
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "fuckdb-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if otelShutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	// Env
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	pg := postgresService.DB()

	// Mongo
	mongoService, err := db.NewMongoService(ctx, log)
	if err != nil {
		log.Error("Mongo init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoService.Close(closeCtx)
	}()

	// Repos
	log.Info("Setting up repos...")
	userRepo := repos.NewUserRepo(pg, log)
	userTokenRepo := repos.NewUserTokenRepo(pg, log)
	projectRepo := repos.NewProjectRepo(pg, log)
	versionRepo := repos.NewDictionaryVersionRepo(pg, log)
	dictRepo := repos.NewDictionaryRepo(mongoService.Dictionaries(), log)

	// Optional version-resolution cache
	var versionCache redis.VersionCache
	if cache, err := redis.NewVersionCache(log); err != nil {
		log.Warn("Running without version cache", "reason", err)
	} else {
		versionCache = cache
		defer cache.Close()
	}

	// Services
	log.Info("Setting up services...")
	authService := services.NewAuthService(
		pg,
		log,
		userRepo,
		userTokenRepo,
		jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second,
		time.Duration(refreshTokenTTL)*time.Second,
	)
	versionService := services.NewVersionService(pg, log, projectRepo, versionRepo, dictRepo, versionCache)
	projectService := services.NewProjectService(pg, log, projectRepo, versionService)
	tableService := services.NewTableService(log, versionService)

	// Handlers
	log.Info("Setting up handlers...")
	authHandler := handlers.NewAuthHandler(authService)
	projectHandler := handlers.NewProjectHandler(log, projectService)
	versionHandler := handlers.NewVersionHandler(log, versionService)
	tableHandler := handlers.NewTableHandler(log, tableService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		ProjectHandler: projectHandler,
		VersionHandler: versionHandler,
		TableHandler:   tableHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
