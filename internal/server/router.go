package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/fuckdb/fuckdb-backend/internal/handlers"
	"github.com/fuckdb/fuckdb-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler    *handlers.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	ProjectHandler *handlers.ProjectHandler
	VersionHandler *handlers.VersionHandler
	TableHandler   *handlers.TableHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware("fuckdb-backend"))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	v1 := router.Group("/api/v1")

	// Public auth surface
	auth := v1.Group("/auth")
	{
		auth.POST("/signup", cfg.AuthHandler.Signup)
		auth.POST("/login", cfg.AuthHandler.Login)
	}

	// Everything else requires a caller identity.
	protected := v1.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.POST("/auth/logout", cfg.AuthHandler.Logout)
	protected.GET("/auth/me", cfg.AuthHandler.Me)

	projects := protected.Group("/projects")
	{
		projects.GET("", cfg.ProjectHandler.List)
		projects.POST("", cfg.ProjectHandler.Create)
		projects.GET("/:project_id", cfg.ProjectHandler.Get)
		projects.PUT("/:project_id", cfg.ProjectHandler.Update)
		projects.DELETE("/:project_id", cfg.ProjectHandler.Delete)

		projects.GET("/:project_id/versions", cfg.VersionHandler.List)
		projects.POST("/:project_id/versions", cfg.VersionHandler.Create)
		projects.GET("/:project_id/versions/latest", cfg.VersionHandler.GetLatest)
		projects.GET("/:project_id/versions/:version", cfg.VersionHandler.Get)
		projects.PUT("/:project_id/versions/:version", cfg.VersionHandler.Update)
		projects.DELETE("/:project_id/versions/:version", cfg.VersionHandler.Delete)
	}

	tables := protected.Group("/tables/projects/:project_id/versions/:version/tables")
	{
		tables.GET("", cfg.TableHandler.List)
		tables.POST("", cfg.TableHandler.Create)
		tables.GET("/:table_name", cfg.TableHandler.Get)
		tables.PATCH("/:table_name", cfg.TableHandler.Patch)
		tables.DELETE("/:table_name", cfg.TableHandler.Delete)
		tables.DELETE("/:table_name/columns/:column_name", cfg.TableHandler.DeleteColumn)
	}

	return router
}
