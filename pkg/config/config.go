package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Workflow     WorkflowConfig
	Distribution DistributionConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Ops          OpsConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"ATLAS_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"ATLAS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ATLAS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ATLAS_SERVICE_KIND" default:"cron-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"ATLAS_DB_DSN"`
	Driver string `envconfig:"ATLAS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ATLAS_DB_HOST"`
	LegacyPort     int    `envconfig:"ATLAS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ATLAS_DB_USER"`
	LegacyPassword string `envconfig:"ATLAS_DB_PASSWORD"`
	LegacyName     string `envconfig:"ATLAS_DB_NAME"`
	LegacySSLMode  string `envconfig:"ATLAS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ATLAS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ATLAS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ATLAS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ATLAS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ATLAS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ATLAS_REDIS_ADDR"`
	Password     string        `envconfig:"ATLAS_REDIS_PASSWORD"`
	DB           int           `envconfig:"ATLAS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ATLAS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ATLAS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ATLAS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ATLAS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ATLAS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// WorkflowConfig tunes the order lifecycle engine.
type WorkflowConfig struct {
	StaleAfter       time.Duration `envconfig:"ATLAS_WORKFLOW_STALE_AFTER" default:"24h"`
	MaxNoAnswerCalls int           `envconfig:"ATLAS_WORKFLOW_MAX_NO_ANSWER_CALLS" default:"3"`
}

// DistributionConfig tunes the agent distribution engine.
type DistributionConfig struct {
	MaxOrdersPerAgent   int     `envconfig:"ATLAS_DIST_MAX_ORDERS_PER_AGENT" default:"50"`
	ConfirmRateWeight   float64 `envconfig:"ATLAS_DIST_CONFIRM_RATE_WEIGHT" default:"0.6"`
	AvgHandleTimeWeight float64 `envconfig:"ATLAS_DIST_AVG_HANDLE_TIME_WEIGHT" default:"0.4"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"ATLAS_CRON_INTERVAL" default:"1m"`
	LockTTL           time.Duration `envconfig:"ATLAS_CRON_LOCK_TTL" default:"5m"`
	StaleOrdersJob    bool          `envconfig:"ATLAS_CRON_STALE_ORDERS_ENABLED" default:"true"`
	AutoDistribution  bool          `envconfig:"ATLAS_CRON_AUTO_DISTRIBUTION_ENABLED" default:"true"`
	WorkloadBalancing bool          `envconfig:"ATLAS_CRON_WORKLOAD_BALANCING_ENABLED" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ATLAS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ATLAS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ATLAS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	Enabled          bool   `envconfig:"ATLAS_PUBSUB_ENABLED" default:"false"`
	OrderEventsTopic string `envconfig:"ATLAS_PUBSUB_ORDER_EVENTS_TOPIC" default:"atlas-order-events"`
}

// OpsConfig configures the operational HTTP listener (health and metrics).
type OpsConfig struct {
	Port string `envconfig:"ATLAS_OPS_PORT" default:"9090"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ATLAS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ATLAS_AUTO_MIGRATE" default:"false"`
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
