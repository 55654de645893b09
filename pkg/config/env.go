package config

// EnvPrefix namespaces every BiteTrack environment variable.
const EnvPrefix = "bitetrack"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names shared with tests and ops tooling.
const (
	EnvAppEnv            = "BITETRACK_APP_ENV"
	EnvPort              = "BITETRACK_APP_PORT"
	EnvDBDSN             = "BITETRACK_DB_DSN"
	EnvDBHost            = "BITETRACK_DB_HOST"
	EnvDBUser            = "BITETRACK_DB_USER"
	EnvDBName            = "BITETRACK_DB_NAME"
	EnvRedisURL          = "BITETRACK_REDIS_URL"
	EnvJWTSecret         = "BITETRACK_JWT_SECRET"
	EnvJWTIssuer         = "BITETRACK_JWT_ISSUER"
	EnvJWTAccessTTL      = "BITETRACK_JWT_ACCESS_TTL"
	EnvJWTRefreshTTL     = "BITETRACK_JWT_REFRESH_TTL"
	EnvGCPProjectID      = "BITETRACK_GCP_PROJECT_ID"
	EnvPubSubDomainTopic = "BITETRACK_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSub   = "BITETRACK_PUBSUB_DOMAIN_SUBSCRIPTION"
)
