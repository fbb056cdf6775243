package main

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-faster/errors"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/store"
)

// Config is read from AUCTIOND_* environment variables.
type Config struct {
	// Network is "tcp" or "vsock".
	Network    string `env:"AUCTIOND_NETWORK" envDefault:"tcp"`
	ListenAddr string `env:"AUCTIOND_LISTEN_ADDR" envDefault:"127.0.0.1:7700"`
	VsockPort  uint32 `env:"AUCTIOND_VSOCK_PORT" envDefault:"5000"`

	StoreBackend string `env:"AUCTIOND_STORE_BACKEND" envDefault:"pebble"`
	StorePath    string `env:"AUCTIOND_STORE_PATH" envDefault:"./auction-data"`

	AddressPrefix string `env:"AUCTIOND_ADDRESS_PREFIX" envDefault:"auction"`
	CacheSize     int    `env:"AUCTIOND_CACHE_SIZE" envDefault:"256"`

	MaxWorkers  int           `env:"AUCTIOND_MAX_WORKERS" envDefault:"16"`
	ReadTimeout time.Duration `env:"AUCTIOND_READ_TIMEOUT" envDefault:"30s"`
	// RateLimit is requests per second across all connections. Zero disables it.
	RateLimit float64 `env:"AUCTIOND_RATE_LIMIT" envDefault:"0"`
	RateBurst int     `env:"AUCTIOND_RATE_BURST" envDefault:"10"`

	MetricsAddr string `env:"AUCTIOND_METRICS_ADDR"`
	LogLevel    string `env:"AUCTIOND_LOG_LEVEL" envDefault:"info"`

	// AllowMint enables the mint request. Only for development setups.
	AllowMint bool `env:"AUCTIOND_ALLOW_MINT" envDefault:"false"`
}

// LoadConfig parses and validates the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Network {
	case auctionapi.NetworkTCP, auctionapi.NetworkVsock:
	default:
		return errors.Errorf("AUCTIOND_NETWORK must be tcp or vsock, got %q", c.Network)
	}
	switch c.StoreBackend {
	case store.BackendMemory, store.BackendPebble, store.BackendLevelDB:
	default:
		return errors.Errorf("AUCTIOND_STORE_BACKEND must be memory, pebble or leveldb, got %q", c.StoreBackend)
	}
	if c.MaxWorkers <= 0 {
		return errors.Errorf("AUCTIOND_MAX_WORKERS must be positive, got %d", c.MaxWorkers)
	}
	if c.CacheSize <= 0 {
		return errors.Errorf("AUCTIOND_CACHE_SIZE must be positive, got %d", c.CacheSize)
	}
	if c.RateLimit < 0 {
		return errors.Errorf("AUCTIOND_RATE_LIMIT must not be negative, got %v", c.RateLimit)
	}
	return nil
}
