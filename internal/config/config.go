package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// PublicBaseURL is the externally reachable base URL of this deployment.
	// When empty the base URL is derived from the inbound request.
	PublicBaseURL string
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-* headers are honoured.
	TrustedProxies []string

	OTLPEndpoint string

	// NodeID seeds the snowflake generator; unique per replica.
	NodeID int64

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

	Redis    RedisConfig
	Draft    DraftConfig
	Checkout CheckoutConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DraftConfig struct {
	Backend          string
	Retention        time.Duration
	AutosaveInterval time.Duration
	CookieSecure     bool
}

type CheckoutConfig struct {
	SessionURL    string
	APIKey        string
	Timeout       time.Duration
	RedirectDelay time.Duration
	LockTTL       time.Duration
	// AttemptsPerMinute and AttemptBurst bound checkout attempts per session.
	// They only apply when redis is configured.
	AttemptsPerMinute int
	AttemptBurst      int
	// SnapshotSecret seals the pending contract draft snapshot.
	SnapshotSecret string
}

const (
	DraftBackendMemory = "memory"
	DraftBackendRedis  = "redis"
	DraftBackendSQL    = "sql"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	cookieSecure := environment == "production"
	if !cookieSecure {
		cookieSecure = getenvBool("DRAFT_COOKIE_SECURE", false)
	}

	cfg := Config{
		AppName:        getenv("APP_SERVICE", "custodia360-onboarding"),
		AppVersion:     getenv("APP_VERSION", "0.1.0"),
		Environment:    environment,
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		PublicBaseURL:  strings.TrimRight(strings.TrimSpace(getenv("PUBLIC_BASE_URL", "")), "/"),
		TrustedProxies: getenvList("TRUSTED_PROXIES"),
		OTLPEndpoint:   getenv("OTLP_ENDPOINT", "localhost:4317"),
		NodeID:         int64(getenvInt("NODE_ID", 1)),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "custodia360"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Draft: DraftConfig{
			Backend:          normalizeDraftBackend(getenv("DRAFT_STORE_BACKEND", DraftBackendSQL)),
			Retention:        getenvDuration("DRAFT_RETENTION", 24*time.Hour),
			AutosaveInterval: getenvDuration("DRAFT_AUTOSAVE_INTERVAL", 10*time.Second),
			CookieSecure:     cookieSecure,
		},
		Checkout: CheckoutConfig{
			SessionURL:     strings.TrimSpace(getenv("CHECKOUT_SESSION_URL", "")),
			APIKey:         strings.TrimSpace(getenv("CHECKOUT_API_KEY", "")),
			Timeout:        getenvDuration("CHECKOUT_TIMEOUT", 12*time.Second),
			RedirectDelay:  getenvDuration("CHECKOUT_REDIRECT_DELAY", 1500*time.Millisecond),
			LockTTL:        getenvDuration("CHECKOUT_LOCK_TTL", 30*time.Second),
			SnapshotSecret: strings.TrimSpace(getenv("CHECKOUT_SNAPSHOT_SECRET", "")),

			AttemptsPerMinute: getenvInt("CHECKOUT_ATTEMPTS_PER_MINUTE", 6),
			AttemptBurst:      getenvInt("CHECKOUT_ATTEMPT_BURST", 3),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func normalizeDraftBackend(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case DraftBackendRedis:
		return DraftBackendRedis
	case DraftBackendMemory:
		return DraftBackendMemory
	case DraftBackendSQL, "db", "database":
		return DraftBackendSQL
	default:
		return DraftBackendSQL
	}
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

func getenvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
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
