package config

import (
	"database/sql"
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
	Reservation  ReservationConfig
	Alerts       AlertsConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.DB.IsolationLevel(); err != nil {
		return nil, err
	}
	if cfg.Cron.JobTimeout >= cfg.Cron.LockTTL {
		return nil, fmt.Errorf("cron job timeout %s must be shorter than lock ttl %s", cfg.Cron.JobTimeout, cfg.Cron.LockTTL)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ALLOTMENTS_APP_ENV" required:"true"`
	Port         string `envconfig:"ALLOTMENTS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ALLOTMENTS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"ALLOTMENTS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"ALLOTMENTS_LOG_WARN_STACK" default:"false"`

	// CORSOrigins is a comma separated allow list for browser clients.
	CORSOrigins []string `envconfig:"ALLOTMENTS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ALLOTMENTS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN         string `envconfig:"ALLOTMENTS_DB_DSN"`
	Driver      string `envconfig:"ALLOTMENTS_DB_DRIVER" default:"postgres"`
	TxIsolation string `envconfig:"ALLOTMENTS_DB_TX_ISOLATION" default:"read_committed"`

	LegacyHost     string `envconfig:"ALLOTMENTS_DB_HOST"`
	LegacyPort     int    `envconfig:"ALLOTMENTS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ALLOTMENTS_DB_USER"`
	LegacyPassword string `envconfig:"ALLOTMENTS_DB_PASSWORD"`
	LegacyName     string `envconfig:"ALLOTMENTS_DB_NAME"`
	LegacySSLMode  string `envconfig:"ALLOTMENTS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ALLOTMENTS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ALLOTMENTS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ALLOTMENTS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ALLOTMENTS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsolationLevel translates TxIsolation into the database/sql level used for every transaction.
// An empty value keeps the driver default.
func (db DBConfig) IsolationLevel() (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(db.TxIsolation)) {
	case "", "default":
		return sql.LevelDefault, nil
	case "read_committed":
		return sql.LevelReadCommitted, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	default:
		return sql.LevelDefault, fmt.Errorf("unsupported %s %q", EnvDBTxIsolation, db.TxIsolation)
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"ALLOTMENTS_REDIS_URL"`
	Address      string        `envconfig:"ALLOTMENTS_REDIS_ADDR"`
	Password     string        `envconfig:"ALLOTMENTS_REDIS_PASSWORD"`
	DB           int           `envconfig:"ALLOTMENTS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ALLOTMENTS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ALLOTMENTS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ALLOTMENTS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ALLOTMENTS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ALLOTMENTS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ReservationConfig tunes the retry policy of the reservation protocol.
type ReservationConfig struct {
	MaxAttempts int           `envconfig:"ALLOTMENTS_RESERVATION_MAX_ATTEMPTS" default:"3"`
	BaseDelay   time.Duration `envconfig:"ALLOTMENTS_RESERVATION_BASE_DELAY" default:"100ms"`
}

type AlertsConfig struct {
	OptionWindow      time.Duration `envconfig:"ALLOTMENTS_ALERTS_OPTION_WINDOW" default:"168h"`
	ReservationWindow time.Duration `envconfig:"ALLOTMENTS_ALERTS_RESERVATION_WINDOW" default:"72h"`
	DangerThreshold   time.Duration `envconfig:"ALLOTMENTS_ALERTS_DANGER_THRESHOLD" default:"24h"`
	CacheTTL          time.Duration `envconfig:"ALLOTMENTS_ALERTS_CACHE_TTL" default:"60s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ALLOTMENTS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ALLOTMENTS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ALLOTMENTS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ALLOTMENTS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ReservationsTopic string `envconfig:"ALLOTMENTS_PUBSUB_RESERVATIONS_TOPIC" default:"allotments-reservation-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ALLOTMENTS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ALLOTMENTS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ALLOTMENTS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"ALLOTMENTS_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"ALLOTMENTS_CRON_INTERVAL" default:"15m"`
	LockTTL    time.Duration `envconfig:"ALLOTMENTS_CRON_LOCK_TTL" default:"10m"`
	// JobTimeout bounds each job so a cycle finishes before the lock expires.
	JobTimeout time.Duration `envconfig:"ALLOTMENTS_CRON_JOB_TIMEOUT" default:"4m"`
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

	switch strings.ToLower(db.Driver) {
	case DriverMySQL:
		cred := db.LegacyUser
		if db.LegacyPassword != "" {
			cred = cred + ":" + db.LegacyPassword
		}
		db.DSN = fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC", cred, db.LegacyHost, db.LegacyPort, db.LegacyName)
		return nil
	case DriverSQLite:
		db.DSN = db.LegacyName
		return nil
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
