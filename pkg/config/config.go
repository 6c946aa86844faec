package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "coupletime"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "COUPLETIME_APP_ENV"
	EnvDBDSN  = "COUPLETIME_DB_DSN"
	EnvDBHost = "COUPLETIME_DB_HOST"
	EnvDBUser = "COUPLETIME_DB_USER"
	EnvDBName = "COUPLETIME_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	APIRateLimit  APIRateLimitConfig
	Rentals       RentalsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	FeatureFlags  FeatureFlagsConfig
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COUPLETIME_AUTO_MIGRATE" default:"false"`
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
	Env          string `envconfig:"COUPLETIME_APP_ENV" required:"true"`
	Port         string `envconfig:"COUPLETIME_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COUPLETIME_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COUPLETIME_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"COUPLETIME_DB_DSN"`

	LegacyHost     string `envconfig:"COUPLETIME_DB_HOST"`
	LegacyPort     int    `envconfig:"COUPLETIME_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COUPLETIME_DB_USER"`
	LegacyPassword string `envconfig:"COUPLETIME_DB_PASSWORD"`
	LegacyName     string `envconfig:"COUPLETIME_DB_NAME"`
	LegacySSLMode  string `envconfig:"COUPLETIME_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COUPLETIME_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COUPLETIME_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COUPLETIME_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COUPLETIME_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COUPLETIME_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COUPLETIME_REDIS_ADDR"`
	Password     string        `envconfig:"COUPLETIME_REDIS_PASSWORD"`
	DB           int           `envconfig:"COUPLETIME_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COUPLETIME_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COUPLETIME_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COUPLETIME_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COUPLETIME_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COUPLETIME_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COUPLETIME_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COUPLETIME_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COUPLETIME_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"COUPLETIME_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"COUPLETIME_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"COUPLETIME_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"COUPLETIME_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"COUPLETIME_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"COUPLETIME_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"COUPLETIME_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"COUPLETIME_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"COUPLETIME_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"COUPLETIME_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"COUPLETIME_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type APIRateLimitConfig struct {
	Limit  int64         `envconfig:"COUPLETIME_API_RATE_LIMIT" default:"120"`
	Window time.Duration `envconfig:"COUPLETIME_API_RATE_LIMIT_WINDOW" default:"1m"`
}

type RentalsConfig struct {
	DefaultLoanDays    int `envconfig:"COUPLETIME_RENTALS_DEFAULT_LOAN_DAYS" default:"14"`
	MaxLoanDays        int `envconfig:"COUPLETIME_RENTALS_MAX_LOAN_DAYS" default:"60"`
	MaxItemsPerRequest int `envconfig:"COUPLETIME_RENTALS_MAX_ITEMS_PER_REQUEST" default:"3"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"COUPLETIME_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"COUPLETIME_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"COUPLETIME_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	RentalTopic              string        `envconfig:"COUPLETIME_PUBSUB_RENTAL_TOPIC" default:"ct-rental-events"`
	RentalSubscription       string        `envconfig:"COUPLETIME_PUBSUB_RENTAL_SUBSCRIPTION" required:"true"`
	NotificationTopic        string        `envconfig:"COUPLETIME_PUBSUB_NOTIFICATION_TOPIC" default:"ct-notification-events"`
	NotificationSubscription string        `envconfig:"COUPLETIME_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	IdempotencyTTL           time.Duration `envconfig:"COUPLETIME_PUBSUB_IDEMPOTENCY_TTL" default:"168h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"COUPLETIME_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"COUPLETIME_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"COUPLETIME_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"COUPLETIME_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval     time.Duration `envconfig:"COUPLETIME_CRON_INTERVAL" default:"24h"`
	OverdueGrace time.Duration `envconfig:"COUPLETIME_CRON_OVERDUE_GRACE" default:"24h"`
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
