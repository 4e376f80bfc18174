package handlers

import (
	"time"

	"todo-api/internal/middleware"
	"todo-api/internal/monitoring"
	"todo-api/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	TodoService    services.TodoService
	Metrics        *monitoring.Metrics
	HealthChecker  *monitoring.HealthChecker
	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
	AllowedOrigins []string
}

func NewRouter(config RouterConfig) *gin.Engine {
	metrics := config.Metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	checker := config.HealthChecker
	if checker == nil {
		checker = monitoring.NewHealthChecker()
	}

	router := gin.New()
	router.Use(
		middleware.RecoveryWithLog(),
		middleware.RequestID(),
		middleware.AccessLog(),
		metrics.Middleware(),
		cors.New(corsConfig(config.AllowedOrigins)),
	)
	if config.RateLimiter != nil {
		router.Use(config.RateLimiter.Middleware())
	}

	router.GET("/health", monitoring.HealthHandler(checker, metrics))
	router.GET("/health/ready", monitoring.ReadinessHandler(checker))
	router.GET("/health/live", monitoring.LivenessHandler(metrics))
	router.GET("/metrics", monitoring.MetricsHandler(metrics, config.TodoService))

	todoHandler := NewTodoHandler(config.TodoService)
	todos := router.Group("/api/todos")
	{
		todos.GET("", todoHandler.GetTodos)
		todos.GET("/:id", todoHandler.GetTodo)
		todos.POST("", todoHandler.CreateTodo)
		todos.PUT("/:id", todoHandler.UpdateTodo)
		todos.PATCH("/:id/toggle", todoHandler.ToggleTodo)
		todos.DELETE("/:id", todoHandler.DeleteTodo)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Location", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	return config
}
