package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all console configuration
type Config struct {
	App     AppConfig
	API     APIConfig
	Auth    AuthConfig
	Redis   RedisConfig
	Log     LogConfig
	Pages   PagesConfig
	Courier CourierConfig
	Storage StorageConfig
	Metrics MetricsConfig
	Media   MediaConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	// Locale drives number grouping in table output, e.g. "en-IN"
	Locale string
	// Currency is the symbol printed before amounts
	Currency string
}

// APIConfig describes the remote admin REST service
type APIConfig struct {
	BaseURL string
	// SalesBaseURL serves the dashboard statistics; defaults to BaseURL
	SalesBaseURL  string
	Timeout       time.Duration
	UserAgent     string
	TLSSkipVerify bool
	Headers       map[string]string
}

// AuthConfig selects how the bearer token is obtained.
// Type is one of "none", "bearer", "login".
type AuthConfig struct {
	Type      string
	Token     string
	Email     string
	Password  string
	LoginPath string
	// CacheTTL bounds how long a token without an exp claim is cached
	CacheTTL time.Duration
	// CacheInRedis persists the token across invocations
	CacheInRedis bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// PagesConfig holds page sizes per page
type PagesConfig struct {
	ProductsPageSize  int
	InventoryPageSize int
	OrdersPageSize    int
	DispatchPageSize  int
	ShipmentsPageSize int
}

// CourierConfig holds the pickup-scheduling and tracking collaborator settings
type CourierConfig struct {
	BaseURL      string
	PickupPath   string
	TrackingPath string
	Timeout      time.Duration
	RateLimitQPS float64
	RateBurst    int
	Shipper      ShipperConfig
}

// ShipperConfig holds the shipper identity constants sent with every pickup
type ShipperConfig struct {
	AccountNumber string
	CompanyName   string
	ContactName   string
	Phone         string
	Email         string
	Address       string
	City          string
	PostalCode    string
	CountryCode   string
}

// StorageConfig selects where attachments are read from and documents written to.
// Type is "local" or "s3".
type StorageConfig struct {
	Type         string
	Dir          string
	Bucket       string
	Prefix       string
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
}

// MetricsConfig toggles client request metrics
type MetricsConfig struct {
	Enabled bool
}

// MediaConfig resolves relative image references to previewable URLs
type MediaConfig struct {
	BaseURL string
}

// Load loads configuration from console.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with ERP_ prefix (e.g., ERP_API_BASE_URL)
// 2. console.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom behaves like Load but reads the given file when path is not empty.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("console")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.erp")
		v.AddConfigPath("/etc/erp")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			Locale:   v.GetString("app.locale"),
			Currency: v.GetString("app.currency"),
		},
		API: APIConfig{
			BaseURL:       v.GetString("api.base_url"),
			SalesBaseURL:  v.GetString("api.sales_base_url"),
			Timeout:       v.GetDuration("api.timeout"),
			UserAgent:     v.GetString("api.user_agent"),
			TLSSkipVerify: v.GetBool("api.tls_skip_verify"),
			Headers:       v.GetStringMapString("api.headers"),
		},
		Auth: AuthConfig{
			Type:         v.GetString("auth.type"),
			Token:        v.GetString("auth.token"),
			Email:        v.GetString("auth.email"),
			Password:     v.GetString("auth.password"),
			LoginPath:    v.GetString("auth.login_path"),
			CacheTTL:     v.GetDuration("auth.cache_ttl"),
			CacheInRedis: v.GetBool("auth.cache_in_redis"),
		},
		Redis: RedisConfig{
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Pages: PagesConfig{
			ProductsPageSize:  v.GetInt("pages.products_page_size"),
			InventoryPageSize: v.GetInt("pages.inventory_page_size"),
			OrdersPageSize:    v.GetInt("pages.orders_page_size"),
			DispatchPageSize:  v.GetInt("pages.dispatch_page_size"),
			ShipmentsPageSize: v.GetInt("pages.shipments_page_size"),
		},
		Courier: CourierConfig{
			BaseURL:      v.GetString("courier.base_url"),
			PickupPath:   v.GetString("courier.pickup_path"),
			TrackingPath: v.GetString("courier.tracking_path"),
			Timeout:      v.GetDuration("courier.timeout"),
			RateLimitQPS: v.GetFloat64("courier.rate_limit_qps"),
			RateBurst:    v.GetInt("courier.rate_burst"),
			Shipper: ShipperConfig{
				AccountNumber: v.GetString("courier.shipper.account_number"),
				CompanyName:   v.GetString("courier.shipper.company_name"),
				ContactName:   v.GetString("courier.shipper.contact_name"),
				Phone:         v.GetString("courier.shipper.phone"),
				Email:         v.GetString("courier.shipper.email"),
				Address:       v.GetString("courier.shipper.address"),
				City:          v.GetString("courier.shipper.city"),
				PostalCode:    v.GetString("courier.shipper.postal_code"),
				CountryCode:   v.GetString("courier.shipper.country_code"),
			},
		},
		Storage: StorageConfig{
			Type:         v.GetString("storage.type"),
			Dir:          v.GetString("storage.dir"),
			Bucket:       v.GetString("storage.bucket"),
			Prefix:       v.GetString("storage.prefix"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
		},
		Media: MediaConfig{
			BaseURL: v.GetString("media.base_url"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "erp-console"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Locale == "" {
		cfg.App.Locale = "en-IN"
	}
	if cfg.App.Currency == "" {
		cfg.App.Currency = "₹"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8011"
	}
	if cfg.API.SalesBaseURL == "" {
		cfg.API.SalesBaseURL = cfg.API.BaseURL
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}
	if cfg.API.UserAgent == "" {
		cfg.API.UserAgent = "ERP-Console/1.0"
	}
	if cfg.Auth.Type == "" {
		cfg.Auth.Type = "none"
	}
	if cfg.Auth.LoginPath == "" {
		cfg.Auth.LoginPath = "/api/admin/login"
	}
	if cfg.Auth.CacheTTL == 0 {
		cfg.Auth.CacheTTL = time.Hour
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "erp:console:"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	// Page sizes match the admin pages: 7 rows for catalog views, 6 for orders
	if cfg.Pages.ProductsPageSize == 0 {
		cfg.Pages.ProductsPageSize = 7
	}
	if cfg.Pages.InventoryPageSize == 0 {
		cfg.Pages.InventoryPageSize = 7
	}
	if cfg.Pages.OrdersPageSize == 0 {
		cfg.Pages.OrdersPageSize = 6
	}
	if cfg.Pages.DispatchPageSize == 0 {
		cfg.Pages.DispatchPageSize = 10
	}
	if cfg.Pages.ShipmentsPageSize == 0 {
		cfg.Pages.ShipmentsPageSize = 10
	}
	if cfg.Courier.BaseURL == "" {
		cfg.Courier.BaseURL = cfg.API.BaseURL
	}
	if cfg.Courier.PickupPath == "" {
		cfg.Courier.PickupPath = "/api/dhl/schedule-pickup"
	}
	if cfg.Courier.TrackingPath == "" {
		cfg.Courier.TrackingPath = "/api/dhl/fetch-tracking"
	}
	if cfg.Courier.Timeout == 0 {
		cfg.Courier.Timeout = 30 * time.Second
	}
	if cfg.Courier.RateLimitQPS == 0 {
		cfg.Courier.RateLimitQPS = 1
	}
	if cfg.Courier.RateBurst == 0 {
		cfg.Courier.RateBurst = 1
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "."
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Media.BaseURL == "" {
		cfg.Media.BaseURL = cfg.API.BaseURL
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url is invalid: %w", err)
	}
	if _, err := url.ParseRequestURI(c.Courier.BaseURL); err != nil {
		return fmt.Errorf("courier.base_url is invalid: %w", err)
	}

	switch c.Auth.Type {
	case "none":
	case "bearer":
		if c.Auth.Token == "" {
			return fmt.Errorf("auth.token is required for bearer auth")
		}
	case "login":
		if c.Auth.Email == "" || c.Auth.Password == "" {
			return fmt.Errorf("auth.email and auth.password are required for login auth")
		}
	default:
		return fmt.Errorf("unsupported auth.type %q", c.Auth.Type)
	}

	switch c.Storage.Type {
	case "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage.type %q", c.Storage.Type)
	}

	for name, size := range map[string]int{
		"pages.products_page_size":  c.Pages.ProductsPageSize,
		"pages.inventory_page_size": c.Pages.InventoryPageSize,
		"pages.orders_page_size":    c.Pages.OrdersPageSize,
		"pages.dispatch_page_size":  c.Pages.DispatchPageSize,
		"pages.shipments_page_size": c.Pages.ShipmentsPageSize,
	} {
		if size < 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.Courier.RateLimitQPS < 0 {
		return fmt.Errorf("courier.rate_limit_qps cannot be negative")
	}

	if c.App.Env == "production" {
		if !strings.HasPrefix(c.API.BaseURL, "https://") {
			return fmt.Errorf("api.base_url must use https in production")
		}
		if c.API.TLSSkipVerify {
			return fmt.Errorf("api.tls_skip_verify must be false in production")
		}
		// Long-lived tokens pasted into config are what the login flow replaces
		if c.Auth.Type == "bearer" {
			return fmt.Errorf("auth.type=bearer is not allowed in production, use login")
		}
	}

	return nil
}

// RedisAddr returns host:port for the Redis client
func (r *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
