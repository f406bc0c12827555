package router

import (
	"net/http"
	"time"

	"github.com/cuongbtq/job-tracker/internal/web/handler"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, h *handler.Handler) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	if origins := deps.Settings.AllowedOrigins; len(origins) > 0 {
		r.Use(CORSMiddleware(origins))
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":     "healthy",
			"service":    "tracker-web",
			"workspaces": h.Workspaces().Len(),
		}
		if deps.Hub != nil {
			body["ws_clients"] = deps.Hub.Count()
		}
		c.JSON(http.StatusOK, body)
	})

	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)

	protected := r.Group("/")
	protected.Use(SessionMiddleware(deps))
	{
		home := protected.Group("/home")
		{
			home.GET("", h.Home)
			home.POST("/refresh", h.Refresh)
			home.POST("/params", h.SetParam)
		}

		job := protected.Group("/job")
		{
			job.GET("/new", h.NewJob)
			job.POST("", h.CreateJob)
			job.GET("/:id", h.GetJob)
			job.PUT("/:id", h.UpdateJob)
			job.DELETE("/:id", h.DeleteJob)
		}

		protected.GET("/ws", h.Stream)
	}

	return r
}

// CORSMiddleware allows credentialed requests from the configured origins
func CORSMiddleware(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			config.AllowOriginFunc = func(string) bool { return true }
			return cors.New(config)
		}
	}
	config.AllowOrigins = origins
	return cors.New(config)
}
