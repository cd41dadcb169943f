package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/optifit/backend/docs"
	"github.com/optifit/backend/internal/client"
	"github.com/optifit/backend/internal/config"
	"github.com/optifit/backend/internal/db"
	"github.com/optifit/backend/internal/handler"
	"github.com/optifit/backend/internal/logger"
	"github.com/optifit/backend/internal/metrics"
	"github.com/optifit/backend/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// .env is optional outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.SetupDefault(os.Stdout, cfg.Server.LogLevel)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		if !cfg.IsDevelopment() {
			log.Error("JWT_SECRET is required")
			os.Exit(1)
		}
		secret = randomSecret()
		log.Warn("JWT_SECRET not set, using a random secret for this process")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	pg := db.New(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	tokens, err := service.NewTokenService(service.TokenConfig{
		Secret:     []byte(secret),
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	})
	if err != nil {
		log.Error("invalid token config", "error", err)
		os.Exit(1)
	}
	hasher, err := service.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		log.Error("invalid bcrypt cost", "error", err)
		os.Exit(1)
	}

	var provider service.ExternalProvider
	if cfg.OAuth.Enabled() {
		// The provider keeps its context for later key set refreshes.
		google, err := client.NewGoogleOAuthClient(context.Background(), cfg.OAuth)
		if err != nil {
			log.Error("failed to init google login", "error", err)
			os.Exit(1)
		}
		provider = google
	} else {
		log.Info("google login disabled")
	}

	var generator service.TextGenerator
	if gemini, err := client.NewGeminiClient(context.Background(), cfg.Gemini); err == nil {
		generator = gemini
	} else {
		log.Info("ai chat disabled", "reason", err)
	}

	var nutrition service.NutritionClient
	if edamam, err := client.NewEdamamClient(cfg.Nutrition); err == nil {
		nutrition = edamam
	} else {
		log.Info("food search disabled", "reason", err)
	}

	sameSite, err := service.ParseSameSite(cfg.Auth.CookieSameSite)
	if err != nil {
		log.Error("invalid cookie config", "error", err)
		os.Exit(1)
	}

	authSvc := service.NewAuthService(pg, tokens, hasher, provider, collector)
	userSvc := service.NewUserService(pg)
	logSvc := service.NewLoggingService(pg, nutrition)
	chatSvc := service.NewChatService(pg, generator)

	limiter := handler.NewIPRateLimiter(handler.RateLimiterConfig{PerMinute: cfg.Auth.RateLimitPerMin}, collector)
	defer limiter.Stop()

	router := handler.NewRouter(handler.RouterDeps{
		Logger:         log,
		Tokens:         tokens,
		RateLimiter:    limiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Auth: handler.NewAuthHandler(authSvc, handler.CookieConfig{
			Domain:   cfg.Auth.CookieDomain,
			Secure:   cfg.Auth.CookieSecure,
			SameSite: sameSite,
		}),
		Users:    handler.NewUserHandler(userSvc, authSvc),
		Logs:     handler.NewLogsHandler(logSvc),
		Chat:     handler.NewChatHandler(chatSvc),
		Metrics:  collector,
		Gatherer: registry,
		Docs:     docs.SwaggerInfo,
	})

	log.Info("server starting", "port", cfg.Server.Port, "env", cfg.Server.Env)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
