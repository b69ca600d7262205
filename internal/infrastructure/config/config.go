package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port        string   `env:"PORT,         default=8080"`
	Env         string   `env:"ENV,          default=development"`
	LogLevel    string   `env:"LOG_LEVEL,    default=info"`
	APIPrefix   string   `env:"API_PREFIX,   default=/api"`
	CORSOrigins []string `env:"CORS_ORIGINS, default=http://localhost:5173"`

	Security SecurityConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

type SecurityConfig struct {
	JWTSecret    string        `env:"JWT_SECRET, required"`
	TokenTTL     time.Duration `env:"TOKEN_TTL,     default=24h"`
	BcryptCost   int           `env:"BCRYPT_COST,   default=10"`
	CookieSecure bool          `env:"COOKIE_SECURE, default=true"`
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=gatekeeper"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr        string        `env:"REDIS_ADDR,         default=localhost:6379"`
	DB          int           `env:"REDIS_DB,           default=0"`
	Password    string        `env:"REDIS_PASSWORD"`
	IdentityTTL time.Duration `env:"REDIS_IDENTITY_TTL, default=30s"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through lookuper and validates it.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Security.JWTSecret) == "" {
		return fmt.Errorf("config: JWT_SECRET must not be blank")
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("config: TOKEN_TTL must be positive, got %s", c.Security.TokenTTL)
	}
	if c.Security.BcryptCost < bcrypt.MinCost || c.Security.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("config: BCRYPT_COST must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, c.Security.BcryptCost)
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		return fmt.Errorf("config: API_PREFIX must start with /, got %q", c.APIPrefix)
	}
	return nil
}

// IsDevelopment reports whether the service runs with developer ergonomics
// (pretty logs).
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}
