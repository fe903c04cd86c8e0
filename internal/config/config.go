package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	AuthMode       string   `mapstructure:"AUTH_MODE"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	TokenTTLHours  int      `mapstructure:"TOKEN_TTL_HOURS"`
	GeminiAPIKey   string   `mapstructure:"GEMINI_API_KEY"`
	GeminiModel    string   `mapstructure:"GEMINI_MODEL"`
	GeminiBaseURL  string   `mapstructure:"GEMINI_BASE_URL"`
	RabbitMQURL    string   `mapstructure:"RABBITMQ_URL"`
	GuidelinesPath string   `mapstructure:"GUIDELINES_PATH"`
	HospitalsPath  string   `mapstructure:"HOSPITALS_PATH"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	LogLevel       string   `mapstructure:"LOG_LEVEL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "") // auto-detect: "" -> inferred from ENV
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("TOKEN_TTL_HOURS", 8)
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("AUTH_MODE")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("TOKEN_TTL_HOURS")
	v.BindEnv("GEMINI_API_KEY")
	v.BindEnv("GEMINI_MODEL")
	v.BindEnv("GEMINI_BASE_URL")
	v.BindEnv("RABBITMQ_URL")
	v.BindEnv("GUIDELINES_PATH")
	v.BindEnv("HOSPITALS_PATH")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("LOG_LEVEL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.GeminiAPIKey == "" {
		log.Println("WARNING: GEMINI_API_KEY is not set. LLM reasoning will use the deterministic fallback.")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active. Requests get a default identity.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure JWT_SECRET for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns the effective auth mode. If AUTH_MODE is explicitly
// set, it is returned. Otherwise the mode is inferred: ENV=development selects
// "development" (default identity, no token required), a configured JWT_SECRET
// selects "jwt" (signed HS256 tokens), and everything else falls back to
// "token" (in-memory opaque token store).
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return "development"
	}
	if c.JWTSecret != "" {
		return "jwt"
	}
	return "token"
}

// Validate checks that the configuration is safe to run. In jwt mode a signing
// secret must be present so tokens can actually be verified.
func (c *Config) Validate() error {
	mode := c.ResolvedAuthMode()
	if mode == "jwt" && c.JWTSecret == "" {
		return fmt.Errorf(
			"JWT_SECRET must be set when AUTH_MODE is \"jwt\" (current ENV=%q). "+
				"Refusing to start without a signing secret. "+
				"Use AUTH_MODE=token for the in-memory token store", c.Env)
	}
	if mode != "development" && mode != "token" && mode != "jwt" {
		return fmt.Errorf("AUTH_MODE must be \"development\", \"token\", or \"jwt\", got %q", mode)
	}
	if c.TokenTTLHours <= 0 {
		return fmt.Errorf("TOKEN_TTL_HOURS must be positive, got %d", c.TokenTTLHours)
	}
	return nil
}
