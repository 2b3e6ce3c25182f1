package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const stagedImageGrace = time.Hour

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Media        MediaConfig
	VideoWidget  VideoWidgetConfig
	PubSub       PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if cfg.Media.DraftMaxAge <= 0 {
		return nil, fmt.Errorf("%s must be positive", EnvDraftMaxAge)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MAHUWO_APP_ENV" required:"true"`
	Port         string `envconfig:"MAHUWO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MAHUWO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MAHUWO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MAHUWO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MAHUWO_DB_DSN"`
	Driver string `envconfig:"MAHUWO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MAHUWO_DB_HOST"`
	LegacyPort     int    `envconfig:"MAHUWO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MAHUWO_DB_USER"`
	LegacyPassword string `envconfig:"MAHUWO_DB_PASSWORD"`
	LegacyName     string `envconfig:"MAHUWO_DB_NAME"`
	LegacySSLMode  string `envconfig:"MAHUWO_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"MAHUWO_SQLITE_PATH" default:"file:mahuwo.db?cache=shared"`

	MaxOpenConns    int           `envconfig:"MAHUWO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MAHUWO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MAHUWO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MAHUWO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MAHUWO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MAHUWO_REDIS_ADDR"`
	Password     string        `envconfig:"MAHUWO_REDIS_PASSWORD"`
	DB           int           `envconfig:"MAHUWO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MAHUWO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MAHUWO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MAHUWO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MAHUWO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MAHUWO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MAHUWO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MAHUWO_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MAHUWO_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"MAHUWO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MAHUWO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"MAHUWO_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string `envconfig:"MAHUWO_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

// MediaConfig bounds what a listing draft may hold.
type MediaConfig struct {
	ImageMaxUploadMB int           `envconfig:"MAHUWO_MEDIA_IMAGE_MAX_UPLOAD_MB" default:"20"`
	MaxVideos        int           `envconfig:"MAHUWO_MEDIA_MAX_VIDEOS" default:"5"`
	DraftTTL         time.Duration `envconfig:"MAHUWO_MEDIA_DRAFT_TTL" default:"12h"`
	DraftMaxAge      time.Duration `envconfig:"MAHUWO_MEDIA_DRAFT_MAX_AGE" default:"20h"`
	ImageAspectW     int           `envconfig:"MAHUWO_MEDIA_IMAGE_ASPECT_WIDTH" default:"1"`
	ImageAspectH     int           `envconfig:"MAHUWO_MEDIA_IMAGE_ASPECT_HEIGHT" default:"1"`
	ImageVariant     string        `envconfig:"MAHUWO_MEDIA_IMAGE_VARIANT_PREFIX" default:"listing-card"`
}

// ImageMaxUploadBytes converts the configured image limit to bytes.
func (m MediaConfig) ImageMaxUploadBytes() int64 {
	if m.ImageMaxUploadMB <= 0 {
		return 0
	}
	return int64(m.ImageMaxUploadMB) * 1024 * 1024
}

// StagedImageRetention is how long an unattached upload is kept. Images are
// uploaded after their draft was created, so once this passes no live draft
// can still reference them.
func (m MediaConfig) StagedImageRetention() time.Duration {
	return m.DraftMaxAge + stagedImageGrace
}

// VideoWidgetConfig mirrors the options handed to the hosted video upload widget.
type VideoWidgetConfig struct {
	CloudName        string   `envconfig:"MAHUWO_VIDEO_WIDGET_CLOUD_NAME" default:"mahuwo"`
	UploadPreset     string   `envconfig:"MAHUWO_VIDEO_WIDGET_UPLOAD_PRESET" default:"mahuwo"`
	MaxVideoFileSize int64    `envconfig:"MAHUWO_VIDEO_WIDGET_MAX_FILE_SIZE" default:"100000000"`
	AllowedFormats   []string `envconfig:"MAHUWO_VIDEO_WIDGET_ALLOWED_FORMATS" default:"mp4"`
}

type PubSubConfig struct {
	ListingTopic              string `envconfig:"MAHUWO_PUBSUB_LISTING_TOPIC"`
	ImageDeletionSubscription string `envconfig:"MAHUWO_PUBSUB_IMAGE_DELETION_SUBSCRIPTION"`
}

// Enabled reports whether listing events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.ListingTopic) != ""
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || db.IsSQLite() {
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
