package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PETIMAGE_DB_DSN"
	EnvDBHost = "PETIMAGE_DB_HOST"
	EnvDBUser = "PETIMAGE_DB_USER"
	EnvDBName = "PETIMAGE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Creem        CreemConfig
	Webhook      WebhookConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PETIMAGE_APP_ENV" required:"true"`
	Port         string `envconfig:"PETIMAGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PETIMAGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PETIMAGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PETIMAGE_DB_DSN"`
	Driver string `envconfig:"PETIMAGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PETIMAGE_DB_HOST"`
	LegacyPort     int    `envconfig:"PETIMAGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PETIMAGE_DB_USER"`
	LegacyPassword string `envconfig:"PETIMAGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"PETIMAGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"PETIMAGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PETIMAGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PETIMAGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PETIMAGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PETIMAGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PETIMAGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PETIMAGE_REDIS_ADDR"`
	Password     string        `envconfig:"PETIMAGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PETIMAGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PETIMAGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PETIMAGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PETIMAGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PETIMAGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PETIMAGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"PETIMAGE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"PETIMAGE_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PETIMAGE_AUTO_MIGRATE" default:"false"`
}

type CreemConfig struct {
	APIKey        string `envconfig:"PETIMAGE_CREEM_API_KEY"`
	WebhookSecret string `envconfig:"PETIMAGE_CREEM_WEBHOOK_SECRET"`
	BaseURL       string `envconfig:"PETIMAGE_CREEM_BASE_URL" default:"https://api.creem.io"`
	SuccessURL    string `envconfig:"PETIMAGE_CREEM_SUCCESS_URL" default:"https://petimage.app/account"`
	Env           string `envconfig:"PETIMAGE_CREEM_ENV" default:"test"`
}

// Environment returns the normalized Creem environment (test/live).
func (c CreemConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(c.Env))
	if env == "" {
		return "test"
	}
	return env
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"PETIMAGE_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type RateLimitConfig struct {
	CheckoutWindow time.Duration `envconfig:"PETIMAGE_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutLimit  int           `envconfig:"PETIMAGE_RATE_LIMIT_CHECKOUT_LIMIT" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
