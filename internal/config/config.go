package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DatabaseDriverPostgres = "postgres"
	DatabaseDriverSQLite   = "sqlite"
)

// Supported off-site backup archive destinations.
const (
	BackupStorageNone       = "none"
	BackupStorageS3         = "s3"
	BackupStorageCloudinary = "cloudinary"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName        string
	AppEnv         string
	AppPort        string
	DatabaseDriver string
	DatabaseURL    string
	RedisURL       string
	NATSURL        string
	NATSSubject    string

	JWTSecret    string
	TestMode     bool
	TestAuthID   string
	TestRole     string
	SuperAuthIDs []string

	ReportCacheTTL  time.Duration
	ReportLocation  *time.Location
	RecentLimit     int
	BackupStorage   string
	S3              S3Config
	Cloudinary      CloudinaryConfig
	RateLimitMax    int
	RateLimitWindow time.Duration
	ShutdownTimeout time.Duration
}

// S3Config contains settings for the S3 backup archive.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// CloudinaryConfig contains credentials for the Cloudinary backup archive.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("POINTS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "School Points API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", DatabaseDriverPostgres)
	v.SetDefault("nats.subject", "points.audit")
	v.SetDefault("auth.test_mode", false)
	v.SetDefault("auth.test_auth_id", "e2e-test-user")
	v.SetDefault("auth.test_role", "admin")
	v.SetDefault("report.cache_ttl", "5m")
	v.SetDefault("report.timezone", "Local")
	v.SetDefault("evaluations.recent_limit", 20)
	v.SetDefault("backup.storage", BackupStorageNone)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("cloudinary.folder", "school-points/backups")
	v.SetDefault("rate_limit.max", 20)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("shutdown_timeout", "5s")
}

func fromViper(v *viper.Viper) (Config, error) {
	ttl, err := parseDuration(v.GetString("report.cache_ttl"), 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid report cache ttl: %w", err)
	}

	window, err := parseDuration(v.GetString("rate_limit.window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	shutdown, err := parseDuration(v.GetString("shutdown_timeout"), 5*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	location, err := time.LoadLocation(strings.TrimSpace(v.GetString("report.timezone")))
	if err != nil {
		return Config{}, fmt.Errorf("invalid report timezone: %w", err)
	}

	cfg := Config{
		AppName:        v.GetString("app.name"),
		AppEnv:         v.GetString("app.env"),
		AppPort:        v.GetString("app.port"),
		DatabaseDriver: strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
		DatabaseURL:    v.GetString("database.url"),
		RedisURL:       v.GetString("redis.url"),
		NATSURL:        v.GetString("nats.url"),
		NATSSubject:    v.GetString("nats.subject"),
		JWTSecret:      v.GetString("auth.jwt_secret"),
		TestMode:       v.GetBool("auth.test_mode"),
		TestAuthID:     strings.TrimSpace(v.GetString("auth.test_auth_id")),
		TestRole:       strings.ToLower(strings.TrimSpace(v.GetString("auth.test_role"))),
		SuperAuthIDs:   splitList(v.GetString("auth.super_auth_ids")),
		ReportCacheTTL: ttl,
		ReportLocation: location,
		RecentLimit:    v.GetInt("evaluations.recent_limit"),
		BackupStorage:  strings.ToLower(strings.TrimSpace(v.GetString("backup.storage"))),
		S3: S3Config{
			Endpoint:  v.GetString("s3.endpoint"),
			Region:    v.GetString("s3.region"),
			Bucket:    v.GetString("s3.bucket"),
			AccessKey: v.GetString("s3.access_key"),
			SecretKey: v.GetString("s3.secret_key"),
			UseSSL:    v.GetBool("s3.use_ssl"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: v.GetString("cloudinary.cloud_name"),
			APIKey:    v.GetString("cloudinary.api_key"),
			APISecret: v.GetString("cloudinary.api_secret"),
			Folder:    v.GetString("cloudinary.folder"),
		},
		RateLimitMax:    v.GetInt("rate_limit.max"),
		RateLimitWindow: window,
		ShutdownTimeout: shutdown,
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !c.TestMode && c.JWTSecret == "" {
		return fmt.Errorf("jwt secret must be provided outside test mode")
	}

	if c.TestMode && c.TestAuthID == "" {
		return fmt.Errorf("test mode requires a test auth id")
	}

	switch c.DatabaseDriver {
	case DatabaseDriverPostgres, DatabaseDriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}

	switch c.BackupStorage {
	case "", BackupStorageNone:
		c.BackupStorage = BackupStorageNone
	case BackupStorageS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3 backup storage requires a bucket")
		}
	case BackupStorageCloudinary:
	default:
		return fmt.Errorf("unsupported backup storage %q", c.BackupStorage)
	}

	if c.RecentLimit <= 0 {
		c.RecentLimit = 20
	}

	if c.RateLimitMax <= 0 {
		c.RateLimitMax = 20
	}

	return nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}

func splitList(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
