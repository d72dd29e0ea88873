package config

const EnvPrefix = "ATLAS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "ATLAS_APP_ENV"
	EnvRedisURL = "ATLAS_REDIS_URL"
	EnvDBDSN    = "ATLAS_DB_DSN"
	EnvDBHost   = "ATLAS_DB_HOST"
	EnvDBUser   = "ATLAS_DB_USER"
	EnvDBName   = "ATLAS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
