package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const EnvDevelopment = "development"

type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	OAuth     OAuthConfig
	Gemini    GeminiConfig
	Nutrition NutritionConfig
	Postgres  PostgresConfig
}

type ServerConfig struct {
	Env            string   `env:"APP_ENV" envDefault:"production"`
	Port           string   `env:"PORT" envDefault:"8080"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

type AuthConfig struct {
	JWTSecret       string        `env:"JWT_SECRET"`
	AccessTTL       time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL      time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"10"`
	RateLimitPerMin int           `env:"AUTH_RATE_LIMIT_PER_MIN" envDefault:"20"`
	CookieSecure    bool          `env:"OAUTH_STATE_COOKIE_SECURE" envDefault:"true"`
	CookieSameSite  string        `env:"OAUTH_STATE_COOKIE_SAMESITE" envDefault:"lax"`
	CookieDomain    string        `env:"OAUTH_STATE_COOKIE_DOMAIN"`
}

type OAuthConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
	IssuerURL    string `env:"GOOGLE_ISSUER_URL" envDefault:"https://accounts.google.com"`
}

// Enabled reports whether enough is set to run the Google login flow.
func (c OAuthConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

type GeminiConfig struct {
	APIKey string `env:"GEMINI_API_KEY"`
	Model  string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
}

type NutritionConfig struct {
	AppID   string        `env:"EDAMAM_APP_ID"`
	AppKey  string        `env:"EDAMAM_APP_KEY"`
	BaseURL string        `env:"EDAMAM_URL" envDefault:"https://api.edamam.com/api/food-database/v2/parser"`
	Timeout time.Duration `env:"EDAMAM_TIMEOUT" envDefault:"10s"`
}

type PostgresConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
	Host        string `env:"PGHOST" envDefault:"localhost"`
	Port        string `env:"PGPORT" envDefault:"5432"`
	User        string `env:"PGUSER"`
	Password    string `env:"PGPASSWORD"`
	Database    string `env:"PGDATABASE"`
	SSLMode     string `env:"PGSSLMODE" envDefault:"disable"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) IsDevelopment() bool {
	return c.Server.Env == EnvDevelopment
}
