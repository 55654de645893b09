// Package config loads all service settings from BITETRACK_ environment
// variables. One Config struct feeds every binary; each process reads the
// sections it needs and ignores the rest, so a single env file can drive the
// API, the outbox publisher, and the workers.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Idempotency   IdempotencyConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Jobs          JobsConfig
	Alerts        AlertsConfig
}

// Load parses the environment and derives the database DSN when only the
// discrete host/user/name variables are set.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.resolveDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BITETRACK_APP_ENV" required:"true"`
	Port         string `envconfig:"BITETRACK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BITETRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BITETRACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// ServiceConfig names which binary a deployment runs, stamped into logs so
// multi-service traces stay separable.
type ServiceConfig struct {
	Kind string `envconfig:"BITETRACK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BITETRACK_DB_DSN"`
	Driver string `envconfig:"BITETRACK_DB_DRIVER" default:"postgres"`

	// Discrete connection parts, honored only when DSN is unset.
	Host     string `envconfig:"BITETRACK_DB_HOST"`
	Port     int    `envconfig:"BITETRACK_DB_PORT" default:"5432"`
	User     string `envconfig:"BITETRACK_DB_USER"`
	Password string `envconfig:"BITETRACK_DB_PASSWORD"`
	Name     string `envconfig:"BITETRACK_DB_NAME"`
	SSLMode  string `envconfig:"BITETRACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BITETRACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BITETRACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BITETRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BITETRACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// resolveDSN assembles a postgres URL from the discrete variables when no
// DSN was given. Password and sslmode are optional; host, user, and name
// are not.
func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for _, part := range []struct{ env, value string }{
		{EnvDBHost, db.Host},
		{EnvDBUser, db.User},
		{EnvDBName, db.Name},
	} {
		if part.value == "" {
			missing = append(missing, part.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}

	db.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"BITETRACK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BITETRACK_REDIS_ADDR"`
	Password     string        `envconfig:"BITETRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"BITETRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BITETRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BITETRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BITETRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BITETRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BITETRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig drives token signing. The refresh TTL default is thirty days;
// the session manager refuses a refresh TTL at or under the access TTL.
type JWTConfig struct {
	Secret     string        `envconfig:"BITETRACK_JWT_SECRET" required:"true"`
	Issuer     string        `envconfig:"BITETRACK_JWT_ISSUER" required:"true"`
	AccessTTL  time.Duration `envconfig:"BITETRACK_JWT_ACCESS_TTL" default:"1h"`
	RefreshTTL time.Duration `envconfig:"BITETRACK_JWT_REFRESH_TTL" default:"720h"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BITETRACK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BITETRACK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BITETRACK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BITETRACK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BITETRACK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"BITETRACK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"BITETRACK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"BITETRACK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BITETRACK_AUTO_MIGRATE" default:"false"`
}

// IdempotencyConfig bounds how long replay snapshots of write responses are
// kept.
type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"BITETRACK_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BITETRACK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"BITETRACK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BITETRACK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"BITETRACK_PUBSUB_DOMAIN_TOPIC" required:"true"`
	DomainSubscription string `envconfig:"BITETRACK_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

// OutboxConfig tunes the publisher drain loop: rows per poll, poll cadence,
// and how many delivery attempts precede the dead letter queue.
type OutboxConfig struct {
	BatchSize      int `envconfig:"BITETRACK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BITETRACK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BITETRACK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// JobsConfig tunes the background sweeps: the undo-window sweep that
// finalizes expired drops and the outbox prune.
type JobsConfig struct {
	UndoSweepEnabled  bool          `envconfig:"BITETRACK_JOBS_UNDO_SWEEP_ENABLED" default:"true"`
	UndoSweepInterval time.Duration `envconfig:"BITETRACK_JOBS_UNDO_SWEEP_INTERVAL" default:"10m"`
	UndoSweepBatch    int           `envconfig:"BITETRACK_JOBS_UNDO_SWEEP_BATCH" default:"100"`
	OutboxKeepDays    int           `envconfig:"BITETRACK_JOBS_OUTBOX_KEEP_DAYS" default:"30"`
}

// AlertsConfig tunes the stock alert worker. EventTTL bounds the processed
// event dedupe markers in redis.
type AlertsConfig struct {
	LowStockThreshold int           `envconfig:"BITETRACK_ALERTS_LOW_STOCK_THRESHOLD" default:"5"`
	EventTTL          time.Duration `envconfig:"BITETRACK_ALERTS_EVENT_TTL" default:"72h"`
}
