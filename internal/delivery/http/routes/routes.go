package routes

import (
	"github.com/gin-gonic/gin"

	"todoagent/internal/delivery/http/handler"
	. "todoagent/pkg/auth"
	. "todoagent/pkg/config"
	. "todoagent/pkg/middlewares"
)

type HandlersConfig struct {
	TodoHandler    *handler.TodoHandler
	ToolHandler    *handler.ToolHandler
	SessionHandler *handler.SessionHandler
}

func SetupRouter(handlers HandlersConfig, metrics *AppMetrics, logger *LokiLogger, config *AppConfig) *gin.Engine {
	if gin.Mode() == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	SetupGinMiddleware(router, config.Telem.ServiceName, metrics, logger, config)
	setupRoutes(router, handlers, config.Auth.JWTSecret)

	return router
}

// SetupRouterForTests skips telemetry, logging and rate limiting.
func SetupRouterForTests(handlers HandlersConfig, jwtSecret string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())

	setupRoutes(router, handlers, jwtSecret)

	return router
}

func setupRoutes(router *gin.Engine, handlers HandlersConfig, jwtSecret string) {
	router.GET("/healthz", handler.HealthCheck)

	protected := router.Group("/")
	if jwtSecret != "" {
		protected.Use(GinJwtMiddleware(jwtSecret))
	}

	if h := handlers.TodoHandler; h != nil {
		protected.GET("/todos", h.ListTodos)
		protected.POST("/todos", h.CreateTodo)
		protected.GET("/todos/:id", h.GetTodo)
		protected.PATCH("/todos/:id", h.UpdateTodo)
		protected.DELETE("/todos/:id", h.DeleteTodo)
	}

	if h := handlers.ToolHandler; h != nil {
		protected.GET("/tools", h.ListTools)
		protected.POST("/tools/:name", h.InvokeTool)
	}

	if h := handlers.SessionHandler; h != nil {
		protected.GET("/sessions/:id", h.GetSession)
		protected.POST("/sessions/:id/messages", h.AppendMessages)
		protected.DELETE("/sessions/:id", h.ResetSession)
	}
}
