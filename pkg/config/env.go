package config

// EnvPrefix namespaces envconfig lookups; the explicit tags resolve as fallbacks.
const EnvPrefix = "MAHUWO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv            = "MAHUWO_APP_ENV"
	EnvPort              = "MAHUWO_APP_PORT"
	EnvDBDSN             = "MAHUWO_DB_DSN"
	EnvDBHost            = "MAHUWO_DB_HOST"
	EnvDBUser            = "MAHUWO_DB_USER"
	EnvDBName            = "MAHUWO_DB_NAME"
	EnvDBPassword        = "MAHUWO_DB_PASSWORD"
	EnvUseSQLite         = "MAHUWO_USE_SQLITE"
	EnvRedisURL          = "MAHUWO_REDIS_URL"
	EnvGCPProjectID      = "MAHUWO_GCP_PROJECT_ID"
	EnvGCSBucket         = "MAHUWO_GCS_BUCKET_NAME"
	EnvMaxVideos         = "MAHUWO_MEDIA_MAX_VIDEOS"
	EnvDraftTTL          = "MAHUWO_MEDIA_DRAFT_TTL"
	EnvDraftMaxAge       = "MAHUWO_MEDIA_DRAFT_MAX_AGE"
	EnvWidgetFormats     = "MAHUWO_VIDEO_WIDGET_ALLOWED_FORMATS"
	EnvPubSubListing     = "MAHUWO_PUBSUB_LISTING_TOPIC"
	EnvPubSubImageDelSub = "MAHUWO_PUBSUB_IMAGE_DELETION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
