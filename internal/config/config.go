package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
)

// Price sources.
const (
	PriceSourceYahoo  = "yahoo"
	PriceSourceStatic = "static"
)

// Auth modes.
const (
	AuthModeFernet = "fernet"
	AuthModeStatic = "static"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Portfolio PortfolioConfig
	Prices    PriceConfig
	Auth      AuthConfig
	CORS      CORSConfig
	Log       LogConfig
	Tracing   TracingConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// StoreConfig selects and locates the portfolio store.
type StoreConfig struct {
	Driver         string
	PortfoliosFile string
	DBPath         string
}

// PortfolioConfig holds ledger defaults.
type PortfolioConfig struct {
	StartingCash decimal.Decimal
}

// PriceConfig configures the market price source.
type PriceConfig struct {
	Source             string
	Timeout            time.Duration
	CacheTTL           time.Duration
	RefreshSchedule    string // empty disables the refresh job
	RefreshConcurrency int
	Static             map[string]string
}

// AuthConfig configures bearer token validation.
type AuthConfig struct {
	Mode       string
	FernetKey  string
	TokenTTL   time.Duration
	StaticUser string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Pretty bool
}

// TracingConfig toggles span export.
type TracingConfig struct {
	Enabled bool
}

// fileConfig mirrors the optional YAML configuration file.
type fileConfig struct {
	Server struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"server"`
	Store struct {
		Driver         string `yaml:"driver"`
		PortfoliosFile string `yaml:"portfolios_file"`
		DBPath         string `yaml:"db_path"`
	} `yaml:"store"`
	Portfolio struct {
		StartingCash string `yaml:"starting_cash"`
	} `yaml:"portfolio"`
	Prices struct {
		Source             string            `yaml:"source"`
		Timeout            time.Duration     `yaml:"timeout"`
		CacheTTL           time.Duration     `yaml:"cache_ttl"`
		RefreshSchedule    string            `yaml:"refresh_schedule"`
		RefreshConcurrency int               `yaml:"refresh_concurrency"`
		Static             map[string]string `yaml:"static"`
	} `yaml:"prices"`
	Auth struct {
		Mode       string        `yaml:"mode"`
		FernetKey  string        `yaml:"fernet_key"`
		TokenTTL   time.Duration `yaml:"token_ttl"`
		StaticUser string        `yaml:"static_user"`
	} `yaml:"auth"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty *bool  `yaml:"pretty"`
	} `yaml:"log"`
	Tracing struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"tracing"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8004",
			Host: "0.0.0.0",
		},
		Store: StoreConfig{
			Driver:         StoreDriverFile,
			PortfoliosFile: "portfolios.json",
			DBPath:         "./data/portfolio.db",
		},
		Portfolio: PortfolioConfig{
			StartingCash: decimal.NewFromInt(100000),
		},
		Prices: PriceConfig{
			Source:             PriceSourceYahoo,
			Timeout:            5 * time.Second,
			CacheTTL:           time.Minute,
			RefreshSchedule:    "@every 5m",
			RefreshConcurrency: 4,
		},
		Auth: AuthConfig{
			Mode:       AuthModeStatic,
			TokenTTL:   24 * time.Hour,
			StaticUser: "user_1",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the .env file, the optional YAML file named by
// CONFIG_FILE, and environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.Server.Host, fc.Server.Host)
	setString(&c.Server.Port, fc.Server.Port)
	setString(&c.Store.Driver, fc.Store.Driver)
	setString(&c.Store.PortfoliosFile, fc.Store.PortfoliosFile)
	setString(&c.Store.DBPath, fc.Store.DBPath)
	if fc.Portfolio.StartingCash != "" {
		cash, err := decimal.NewFromString(fc.Portfolio.StartingCash)
		if err != nil {
			return fmt.Errorf("invalid portfolio.starting_cash: %w", err)
		}
		c.Portfolio.StartingCash = cash
	}
	setString(&c.Prices.Source, fc.Prices.Source)
	setDuration(&c.Prices.Timeout, fc.Prices.Timeout)
	setDuration(&c.Prices.CacheTTL, fc.Prices.CacheTTL)
	setString(&c.Prices.RefreshSchedule, fc.Prices.RefreshSchedule)
	if fc.Prices.RefreshConcurrency > 0 {
		c.Prices.RefreshConcurrency = fc.Prices.RefreshConcurrency
	}
	if len(fc.Prices.Static) > 0 {
		c.Prices.Static = fc.Prices.Static
	}
	setString(&c.Auth.Mode, fc.Auth.Mode)
	setString(&c.Auth.FernetKey, fc.Auth.FernetKey)
	setDuration(&c.Auth.TokenTTL, fc.Auth.TokenTTL)
	setString(&c.Auth.StaticUser, fc.Auth.StaticUser)
	if len(fc.CORS.AllowedOrigins) > 0 {
		c.CORS.AllowedOrigins = fc.CORS.AllowedOrigins
	}
	setString(&c.Log.Level, fc.Log.Level)
	if fc.Log.Pretty != nil {
		c.Log.Pretty = *fc.Log.Pretty
	}
	if fc.Tracing.Enabled != nil {
		c.Tracing.Enabled = *fc.Tracing.Enabled
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.PortfoliosFile = getEnv("PORTFOLIOS_FILE", c.Store.PortfoliosFile)
	c.Store.DBPath = getEnv("DB_PATH", c.Store.DBPath)
	c.Prices.Source = getEnv("PRICE_SOURCE", c.Prices.Source)
	c.Prices.RefreshSchedule = getEnv("PRICE_REFRESH_SCHEDULE", c.Prices.RefreshSchedule)
	c.Auth.Mode = getEnv("AUTH_MODE", c.Auth.Mode)
	c.Auth.FernetKey = getEnv("AUTH_FERNET_KEY", c.Auth.FernetKey)
	c.Auth.StaticUser = getEnv("AUTH_STATIC_USER", c.Auth.StaticUser)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	var errs []error
	if v := os.Getenv("STARTING_CASH"); v != "" {
		cash, err := decimal.NewFromString(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid STARTING_CASH %q: %w", v, err))
		} else {
			c.Portfolio.StartingCash = cash
		}
	}
	errs = append(errs,
		envDuration("PRICE_TIMEOUT", &c.Prices.Timeout),
		envDuration("PRICE_CACHE_TTL", &c.Prices.CacheTTL),
		envDuration("AUTH_TOKEN_TTL", &c.Auth.TokenTTL),
		envInt("PRICE_REFRESH_CONCURRENCY", &c.Prices.RefreshConcurrency),
		envBool("LOG_PRETTY", &c.Log.Pretty),
		envBool("TRACING_ENABLED", &c.Tracing.Enabled),
	)
	if v := os.Getenv("STATIC_PRICES"); v != "" {
		c.Prices.Static = parsePairs(v)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORS.AllowedOrigins = splitList(v)
	}
	return errors.Join(errs...)
}

// Validate checks option values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case StoreDriverFile, StoreDriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	switch c.Prices.Source {
	case PriceSourceYahoo, PriceSourceStatic:
	default:
		errs = append(errs, fmt.Errorf("unknown price source %q", c.Prices.Source))
	}
	switch c.Auth.Mode {
	case AuthModeStatic:
		if c.Auth.StaticUser == "" {
			errs = append(errs, errors.New("AUTH_STATIC_USER is required in static auth mode"))
		}
	case AuthModeFernet:
		if c.Auth.FernetKey == "" {
			errs = append(errs, errors.New("AUTH_FERNET_KEY is required in fernet auth mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown auth mode %q", c.Auth.Mode))
	}
	if c.Portfolio.StartingCash.IsNegative() {
		errs = append(errs, errors.New("starting cash must not be negative"))
	}
	if c.Prices.Timeout <= 0 {
		errs = append(errs, errors.New("price timeout must be positive"))
	}
	return errors.Join(errs...)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parsePairs reads "AAPL=150,MSFT=400.5" into a map.
func parsePairs(v string) map[string]string {
	out := make(map[string]string)
	for _, part := range splitList(v) {
		k, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	return out
}
