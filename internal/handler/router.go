package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/optifit/backend/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/swaggo/swag"
)

// RouterDeps wires handlers into the engine. Logs, Chat, Metrics, Gatherer
// and Docs are optional; their routes are skipped when nil.
type RouterDeps struct {
	Logger         *slog.Logger
	Tokens         accessVerifier
	RateLimiter    *IPRateLimiter
	AllowedOrigins []string

	Auth  *AuthHandler
	Users *UserHandler
	Logs  *LogsHandler
	Chat  *ChatHandler

	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
	Docs     *swag.Spec
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))
	if deps.Metrics != nil {
		router.Use(RequestMetrics(deps.Metrics))
	}
	router.Use(CORSMiddleware(deps.AllowedOrigins, true))

	router.GET("/ping", Ping)
	router.GET("/", Root)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(deps.Gatherer)))
	}
	if deps.Docs != nil {
		router.GET("/openapi.json", OpenAPIDoc(deps.Docs))
	}

	api := router.Group("/api/v1")

	limited := api.Group("")
	if deps.RateLimiter != nil {
		limited.Use(deps.RateLimiter.Middleware())
	}
	limited.POST("/register", deps.Auth.Register)
	limited.POST("/login", deps.Auth.Login)
	limited.POST("/auth/refresh", deps.Auth.Refresh)

	api.GET("/auth/external", deps.Auth.ExternalStart)
	api.GET("/auth/external/callback", deps.Auth.ExternalCallback)

	protected := api.Group("")
	protected.Use(AuthMiddleware(deps.Tokens))
	protected.GET("/auth/me", deps.Auth.Me)

	users := protected.Group("/users")
	users.GET("/profile", deps.Users.GetProfile)
	users.PUT("/profile", deps.Users.UpdateProfile)
	users.GET("/preferences", deps.Users.GetPreferences)
	users.PUT("/preferences", deps.Users.UpdatePreferences)
	users.GET("/validate", deps.Users.Validate)
	users.GET("/activity", deps.Users.Activity)
	users.PUT("/password", deps.Users.ChangePassword)
	users.DELETE("/me", deps.Users.Deactivate)

	if logs := deps.Logs; logs != nil {
		food := protected.Group("/food")
		food.POST("", logs.CreateFood)
		food.GET("", logs.ListFood)
		food.GET("/search/:query", logs.SearchFood)
		food.GET("/:id", logs.GetFood)
		food.PUT("/:id", logs.UpdateFood)
		food.DELETE("/:id", logs.DeleteFood)

		exercise := protected.Group("/exercise")
		exercise.GET("/types", logs.ExerciseTypes)
		exercise.POST("", logs.CreateExercise)
		exercise.GET("", logs.ListExercise)
		exercise.GET("/:id", logs.GetExercise)
		exercise.PUT("/:id", logs.UpdateExercise)
		exercise.DELETE("/:id", logs.DeleteExercise)

		sleep := protected.Group("/sleep")
		sleep.POST("", logs.CreateSleep)
		sleep.GET("", logs.ListSleep)
		sleep.GET("/:id", logs.GetSleep)
		sleep.PUT("/:id", logs.UpdateSleep)
		sleep.DELETE("/:id", logs.DeleteSleep)
	}

	if deps.Chat != nil {
		protected.POST("/ai/chat", deps.Chat.Chat)
	}

	return router
}
