package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(fx.Annotate(
		NewPolicyHolder,
		fx.As(fx.Self()),
		fx.As(new(taxdomain.PolicySource)),
	)),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string
	HTTPAddr    string
	NodeID      int64

	SeedDefaultRates bool

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis     RedisConfig
	Feature   FeatureConfig
	TaxJar    TaxJarConfig
	Geo       GeoConfig
	VIES      VIESConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Admin     AdminConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a redis server is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// FeatureConfig selects where collect_tax_<cc> flags are read from.
type FeatureConfig struct {
	Store       string
	StaticFlags []string
}

const (
	FeatureStoreDatabase = "database"
	FeatureStoreRedis    = "redis"
	FeatureStoreStatic   = "static"
)

type TaxJarConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Enabled reports whether the tax API should be consulted at all.
func (c TaxJarConfig) Enabled() bool {
	return c.APIKey != ""
}

type GeoConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func (c GeoConfig) Enabled() bool {
	return c.BaseURL != ""
}

// RateLimitConfig throttles calculate requests per client.
type RateLimitConfig struct {
	Enabled bool
	Rate    float64
	Burst   int
}

// CORSConfig lets checkout pages on other origins call the calculate endpoint.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

func (c CORSConfig) Enabled() bool {
	return len(c.AllowedOrigins) > 0
}

// AdminConfig lists the API keys accepted on the administration routes.
type AdminConfig struct {
	APIKeys []AdminAPIKey
}

// AdminAPIKey binds the sha256 of a key to the operator and role it was
// issued to.
type AdminAPIKey struct {
	Actor   string
	Role    string
	KeyHash string
}

type VIESConfig struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "salestax"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		NodeID:      getenvInt64("SNOWFLAKE_NODE", 1),

		SeedDefaultRates: getenvBool("SEED_DEFAULT_RATES", false),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "salestax"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 10)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 50)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		Feature: FeatureConfig{
			Store:       strings.ToLower(getenv("FEATURE_STORE", FeatureStoreDatabase)),
			StaticFlags: splitList(getenv("FEATURE_STATIC_FLAGS", "")),
		},
		TaxJar: TaxJarConfig{
			APIKey:  strings.TrimSpace(getenv("TAXJAR_API_KEY", "")),
			BaseURL: strings.TrimRight(getenv("TAXJAR_BASE_URL", "https://api.taxjar.com"), "/"),
			Timeout: getenvDuration("TAXJAR_TIMEOUT", 12*time.Second),
		},
		Geo: GeoConfig{
			BaseURL: strings.TrimRight(strings.TrimSpace(getenv("GEOIP_BASE_URL", "")), "/"),
			APIKey:  strings.TrimSpace(getenv("GEOIP_API_KEY", "")),
			Timeout: getenvDuration("GEOIP_TIMEOUT", 3*time.Second),
		},
		VIES: VIESConfig{
			Enabled: getenvBool("VIES_ENABLED", false),
			BaseURL: strings.TrimRight(getenv("VIES_BASE_URL", "https://ec.europa.eu/taxation_customs/vies/rest-api"), "/"),
			Timeout: getenvDuration("VIES_TIMEOUT", 5*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled: getenvBool("RATE_LIMIT_ENABLED", false),
			Rate:    getenvFloat("RATE_LIMIT_CALCULATE_RATE", 50),
			Burst:   int(getenvInt64("RATE_LIMIT_CALCULATE_BURST", 100)),
		},
		CORS: CORSConfig{
			AllowedOrigins:   splitList(getenv("CORS_ALLOWED_ORIGINS", "")),
			AllowedHeaders:   splitList(getenv("CORS_ALLOWED_HEADERS", "Origin,Content-Type,Accept,X-Request-ID")),
			AllowCredentials: getenvBool("CORS_ALLOW_CREDENTIALS", false),
		},
		Admin: AdminConfig{
			APIKeys: parseAdminAPIKeys(getenv("ADMIN_API_KEYS", "")),
		},
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// parseAdminAPIKeys reads "actor:role:sha256hex" entries. Malformed entries
// are skipped.
func parseAdminAPIKeys(raw string) []AdminAPIKey {
	entries := splitList(raw)
	keys := make([]AdminAPIKey, 0, len(entries))
	for _, entry := range entries {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			continue
		}
		actor := strings.TrimSpace(parts[0])
		role := strings.ToLower(strings.TrimSpace(parts[1]))
		hash := strings.ToLower(strings.TrimSpace(parts[2]))
		if actor == "" || role == "" || len(hash) != 64 {
			continue
		}
		keys = append(keys, AdminAPIKey{Actor: actor, Role: role, KeyHash: hash})
	}
	return keys
}
