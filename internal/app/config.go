package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Cart storage backends.
const (
	CartBackendMemory   = "memory"
	CartBackendPostgres = "postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr            string `default:"0.0.0.0:8080" usage:"API server listen address"`
	CatalogURL      string `usage:"Base URL of the product catalog service" flag:"catalog-url"`
	OrderServiceURL string `usage:"Base URL of the order service" flag:"order-service-url"`
	AuthServiceURL  string `usage:"Base URL of the authentication service" flag:"auth-service-url"`
	DatabaseURL     string `usage:"PostgreSQL connection URL (required for the postgres cart backend)" flag:"database-url"`
	CartBackend     string `default:"memory" usage:"Cart storage backend: memory or postgres" flag:"cart-backend"`
	ImageBaseURL    string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com)" flag:"image-base-url"`
	Checkout        CheckoutConfig
	RateLimit       RateLimitConfig
	CORS            CORSConfig
	Graceful        GracefulConfig
}

// CheckoutConfig controls order submission behavior.
type CheckoutConfig struct {
	SubmitTimeout time.Duration `default:"10s" usage:"Order submission timeout" flag:"submit-timeout"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.CatalogURL == "" {
		return nil, errors.New("catalog URL is required: set SHOP_CATALOG_URL")
	}
	if cfg.OrderServiceURL == "" {
		return nil, errors.New("order service URL is required: set SHOP_ORDER_SERVICE_URL")
	}
	if cfg.AuthServiceURL == "" {
		return nil, errors.New("auth service URL is required: set SHOP_AUTH_SERVICE_URL")
	}
	switch cfg.CartBackend {
	case CartBackendMemory:
	case CartBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("database URL is required for the postgres cart backend: set SHOP_DATABASE_URL or DATABASE_URL")
		}
	default:
		return nil, errors.Errorf("unknown cart backend %q", cfg.CartBackend)
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's SHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
