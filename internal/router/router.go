package router

import (
	"time"

	"github.com/buildsite-dev/buildsite/internal/handlers"
	"github.com/buildsite-dev/buildsite/internal/middleware"
	"github.com/buildsite-dev/buildsite/internal/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocket)

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register)
			auth.POST("/login", handlers.Login)
			auth.POST("/logout", handlers.Logout)
			auth.POST("/refresh", middleware.AuthMiddleware(), handlers.RefreshToken)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
		}

		users := api.Group("/users", middleware.AuthMiddleware(), middleware.RequireRole(types.RoleAdmin))
		{
			users.GET("", handlers.ListUsers)
			users.PATCH("/:uid", handlers.UpdateUser)
			users.DELETE("/:uid", handlers.DeleteUser)
		}

		projects := api.Group("/projects", middleware.AuthMiddleware(), middleware.RequireModule(types.ModuleProjects))
		{
			projects.POST("", handlers.CreateProject)
			projects.GET("", handlers.ListProjects)
			projects.PATCH("/:project_id", handlers.UpdateProject)
			projects.DELETE("/:project_id", handlers.DeleteProject)
			projects.PUT("/:project_id/team", middleware.RequireModule(types.ModuleProjectTeam), handlers.UpdateTeam)
		}
	}

	return r
}
