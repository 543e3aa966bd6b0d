package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Cart persistence backends.
const (
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

type Config struct {
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8080"`
	CatalogAPIURL   string        `env:"CATALOG_API_URL" envDefault:"http://localhost:9000/api"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	CartBackend   string `env:"CART_BACKEND" envDefault:"redis"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDBName   string `env:"MONGO_DB_NAME" envDefault:"besteadb"`

	// Checkout events are optional; the poller only starts when brokers are
	// configured.
	KafkaBrokers []string `env:"KAFKA_BROKERS"`

	TaxRate float64 `env:"TAX_RATE" envDefault:"0.10"`

	ListingTTL     time.Duration `env:"LISTING_TTL" envDefault:"1m"`
	ProductTTL     time.Duration `env:"PRODUCT_TTL" envDefault:"15m"`
	BestSellersTTL time.Duration `env:"BEST_SELLERS_TTL" envDefault:"30m"`
	FeaturedTTL    time.Duration `env:"FEATURED_TTL" envDefault:"30m"`
	CategoriesTTL  time.Duration `env:"CATEGORIES_TTL" envDefault:"1h"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.CartBackend != BackendRedis && cfg.CartBackend != BackendMongo {
		return nil, fmt.Errorf("unknown cart backend %q", cfg.CartBackend)
	}
	return &cfg, nil
}
