package config

const (
	EnvPrefix = "ALLOTMENTS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"

	EnvAppEnv        = "ALLOTMENTS_APP_ENV"
	EnvPort          = "ALLOTMENTS_APP_PORT"
	EnvDBDSN         = "ALLOTMENTS_DB_DSN"
	EnvDBDriver      = "ALLOTMENTS_DB_DRIVER"
	EnvDBTxIsolation = "ALLOTMENTS_DB_TX_ISOLATION"
	EnvDBHost        = "ALLOTMENTS_DB_HOST"
	EnvDBPort        = "ALLOTMENTS_DB_PORT"
	EnvDBUser        = "ALLOTMENTS_DB_USER"
	EnvDBPassword    = "ALLOTMENTS_DB_PASSWORD"
	EnvDBName        = "ALLOTMENTS_DB_NAME"
	EnvRedisURL      = "ALLOTMENTS_REDIS_URL"

	EnvReservationMaxAttempts = "ALLOTMENTS_RESERVATION_MAX_ATTEMPTS"
	EnvReservationBaseDelay   = "ALLOTMENTS_RESERVATION_BASE_DELAY"
	EnvAlertsOptionWindow     = "ALLOTMENTS_ALERTS_OPTION_WINDOW"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
