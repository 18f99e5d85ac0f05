package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeRedis  CacheType = "redis"
)

type RemoteType string

const (
	RemoteTypeNone   RemoteType = "none"
	RemoteTypeMemory RemoteType = "memory"
	RemoteTypeMongo  RemoteType = "mongo"
	RemoteTypeArango RemoteType = "arango"
)

type MirrorType string

const (
	MirrorTypeNone   MirrorType = "none"
	MirrorTypeGitHub MirrorType = "github"
	MirrorTypeS3     MirrorType = "s3"
)

// Config holds the configuration for the loaderdesk server and its dependencies.
type Config struct {
	// Listen is the address the admin API will listen on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// ServerURL is the public base URL of the admin API.
	ServerURL string `yaml:"server_url" mapstructure:"server_url"`
	// SessionKey is the key used to encrypt session cookies.
	SessionKey string `yaml:"session_key" mapstructure:"session_key"`
	// SessionMaxAge is the maximum age of a session in seconds.
	SessionMaxAge int `yaml:"session_max_age" mapstructure:"session_max_age"`
	// LoaderServerURL is the endpoint generated loaders fetch their scripts from.
	LoaderServerURL string `yaml:"loader_server_url" mapstructure:"loader_server_url"`
	// APIBaseURL is the base URL of the key validation API.
	APIBaseURL string `yaml:"api_base_url" mapstructure:"api_base_url"`
	// Admin holds the static admin credentials.
	Admin *AdminConfig `yaml:"admin" mapstructure:"admin"`
	// Database holds the local cache database configuration.
	Database *DatabaseConfig `yaml:"database" mapstructure:"database"`
	// Cache holds the hot cache configuration.
	Cache *CacheConfig `yaml:"cache" mapstructure:"cache"`
	// Remote holds the remote document store configuration.
	Remote *RemoteConfig `yaml:"remote" mapstructure:"remote"`
	// Mirror holds the file mirror configuration.
	Mirror *MirrorConfig `yaml:"mirror" mapstructure:"mirror"`
	// AutoSave holds the automatic backup configuration.
	AutoSave *AutoSaveConfig `yaml:"autosave" mapstructure:"autosave"`
	// Profile holds the defaults of the public profile page.
	Profile *ProfileConfig `yaml:"profile" mapstructure:"profile"`
}

// AdminConfig holds the shared admin secret.
type AdminConfig struct {
	// DiscordID is the discord id of the admin. It is also the id of the sync document.
	DiscordID string `yaml:"discord_id" mapstructure:"discord_id"`
	// Key is the admin security key.
	Key string `yaml:"key" mapstructure:"key"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	// Path is the path to the database file.
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig holds the configuration for the hot cache in front of the database.
type CacheConfig struct {
	// Type is the type of cache to use (e.g., "memory", "redis").
	Type CacheType `yaml:"type" mapstructure:"type"`
	// RedisURL is the address of the Redis server.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
}

// RemoteConfig holds the remote document store configuration.
type RemoteConfig struct {
	// Type selects the backend ("none", "memory", "mongo", "arango").
	Type RemoteType `yaml:"type" mapstructure:"type"`
	// UserID is the id of the sync document. Defaults to the admin discord id.
	UserID string `yaml:"user_id" mapstructure:"user_id"`
	// ProbeInterval is the delay between two availability probes.
	ProbeInterval time.Duration `yaml:"probe_interval" mapstructure:"probe_interval"`
	// ProbeAttempts is the number of availability probes before giving up.
	ProbeAttempts int `yaml:"probe_attempts" mapstructure:"probe_attempts"`
	// Mongo holds the MongoDB settings.
	Mongo *MongoConfig `yaml:"mongo" mapstructure:"mongo"`
	// Arango holds the ArangoDB settings.
	Arango *ArangoConfig `yaml:"arango" mapstructure:"arango"`
}

// MongoConfig holds the MongoDB connection settings.
type MongoConfig struct {
	URI      string `yaml:"uri" mapstructure:"uri"`
	Database string `yaml:"database" mapstructure:"database"`
}

// ArangoConfig holds the ArangoDB connection settings.
type ArangoConfig struct {
	URL      string `yaml:"url" mapstructure:"url"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	// PollInterval is how often subscriptions check for a new document revision.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// MirrorConfig holds the file mirror configuration.
type MirrorConfig struct {
	// Type selects the backend ("none", "github", "s3").
	Type MirrorType `yaml:"type" mapstructure:"type"`
	// GitHub holds the GitHub contents API settings.
	GitHub *GitHubConfig `yaml:"github" mapstructure:"github"`
	// S3 holds the object storage settings.
	S3 *S3Config `yaml:"s3" mapstructure:"s3"`
}

// GitHubConfig holds the GitHub mirror settings.
type GitHubConfig struct {
	URL        string `yaml:"url" mapstructure:"url"`
	Token      string `yaml:"token" mapstructure:"token"`
	Owner      string `yaml:"owner" mapstructure:"owner"`
	Repository string `yaml:"repository" mapstructure:"repository"`
	Branch     string `yaml:"branch" mapstructure:"branch"`
}

// S3Config holds the S3 compatible object storage settings.
type S3Config struct {
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
	Region          string `yaml:"region" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	Prefix          string `yaml:"prefix" mapstructure:"prefix"`
}

// AutoSaveConfig holds the automatic backup configuration.
type AutoSaveConfig struct {
	// Schedule is the cron schedule of the auto-backup job.
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
}

// ProfileConfig holds the values shown when no profile was saved yet.
type ProfileConfig struct {
	DefaultUsername string `yaml:"default_username" mapstructure:"default_username"`
	DefaultBio      string `yaml:"default_bio" mapstructure:"default_bio"`
	DefaultLocation string `yaml:"default_location" mapstructure:"default_location"`
}

// Load reads the configuration from the specified path and returns a Config struct.
// If path is empty, it will use default search paths for config files.
func Load(path string) (*Config, error) {
	v := viper.New()

	// bind some weirdly unsupported nested env vars
	bindNestedEnv(v)

	// Set default values
	setDefaults(v)

	// Configure Viper
	v.SetConfigType("yaml")
	v.SetEnvPrefix("LOADERDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configFileFound bool
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.loaderdesk")
		v.AddConfigPath("/etc/loaderdesk")
	}

	if err := v.ReadInConfig(); err != nil {
		// If no config file is found, use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileFound = true
	}

	if configFileFound {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
		log.Debug("Some environment variables can be set with the LOADERDESK_ prefix to override config file values")
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	sanitizeConfig(&c)

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:3003")
	v.SetDefault("server_url", "http://localhost:3003")
	v.SetDefault("session_key", "")
	v.SetDefault("session_max_age", 172800) // 48 hour
	v.SetDefault("loader_server_url", "")
	v.SetDefault("api_base_url", "")

	// Admin defaults
	v.SetDefault("admin.discord_id", "")
	v.SetDefault("admin.key", "")

	// Database defaults
	v.SetDefault("database.path", "./data/loaderdesk.db")

	// Cache defaults
	v.SetDefault("cache.type", CacheTypeMemory)
	v.SetDefault("cache.redis_url", "")

	// Remote defaults
	v.SetDefault("remote.type", RemoteTypeNone)
	v.SetDefault("remote.user_id", "")
	v.SetDefault("remote.probe_interval", 500*time.Millisecond)
	v.SetDefault("remote.probe_attempts", 10)
	v.SetDefault("remote.mongo.database", "loaderdesk")
	v.SetDefault("remote.arango.database", "loaderdesk")
	v.SetDefault("remote.arango.poll_interval", 2*time.Second)

	// Mirror defaults
	v.SetDefault("mirror.type", MirrorTypeNone)
	v.SetDefault("mirror.github.url", "https://api.github.com")
	v.SetDefault("mirror.github.branch", "main")
	v.SetDefault("mirror.s3.region", "us-east-1")

	// Auto-save defaults
	v.SetDefault("autosave.schedule", "*/30 * * * *") // Every 30 minutes

	// Profile defaults
	v.SetDefault("profile.default_username", "4253")
	v.SetDefault("profile.default_bio", "Python/Lua Developer")
	v.SetDefault("profile.default_location", "nuh uh")
}

// the auto env function from viper only works for nested structs, if the struct to which a value binds isn't nil.
// Connection strings have no default so they must be bound manually.
func bindNestedEnv(v *viper.Viper) {
	// Mongo
	v.MustBindEnv("remote.mongo.uri", "LOADERDESK_REMOTE_MONGO_URI")

	// Arango
	v.MustBindEnv("remote.arango.url", "LOADERDESK_REMOTE_ARANGO_URL")
	v.MustBindEnv("remote.arango.username", "LOADERDESK_REMOTE_ARANGO_USERNAME")
	v.MustBindEnv("remote.arango.password", "LOADERDESK_REMOTE_ARANGO_PASSWORD")

	// GitHub
	v.MustBindEnv("mirror.github.token", "LOADERDESK_MIRROR_GITHUB_TOKEN")
	v.MustBindEnv("mirror.github.owner", "LOADERDESK_MIRROR_GITHUB_OWNER")
	v.MustBindEnv("mirror.github.repository", "LOADERDESK_MIRROR_GITHUB_REPOSITORY")

	// S3
	v.MustBindEnv("mirror.s3.endpoint", "LOADERDESK_MIRROR_S3_ENDPOINT")
	v.MustBindEnv("mirror.s3.bucket", "LOADERDESK_MIRROR_S3_BUCKET")
	v.MustBindEnv("mirror.s3.access_key_id", "LOADERDESK_MIRROR_S3_ACCESS_KEY_ID")
	v.MustBindEnv("mirror.s3.secret_access_key", "LOADERDESK_MIRROR_S3_SECRET_ACCESS_KEY")
	v.MustBindEnv("mirror.s3.prefix", "LOADERDESK_MIRROR_S3_PREFIX")
}

// validateConfig validates the configuration.
func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing loaderdesk config")
	}

	if c.SessionKey == "" {
		return fmt.Errorf("session key is required")
	}

	if c.Admin == nil || c.Admin.DiscordID == "" {
		return fmt.Errorf("admin discord id is required")
	}
	if c.Admin.Key == "" {
		return fmt.Errorf("admin key is required")
	}

	if c.Database == nil || c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.AutoSave == nil || c.AutoSave.Schedule == "" {
		return fmt.Errorf("autosave schedule is required")
	}
	// Basic validation for cron format (5 fields)
	if len(strings.Fields(c.AutoSave.Schedule)) != 5 {
		return fmt.Errorf("autosave schedule must be a valid cron expression with 5 fields (minute hour day month weekday)")
	}

	if c.Cache != nil {
		if c.Cache.Type == "" {
			return fmt.Errorf("cache type is required when cache is enabled")
		}
		if c.Cache.Type == CacheTypeRedis && c.Cache.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when Redis cache is enabled") //nolint:staticcheck
		}
	} else {
		c.Cache = &CacheConfig{
			Type: CacheTypeMemory,
		}
	}

	if c.Remote == nil {
		c.Remote = &RemoteConfig{
			Type:          RemoteTypeNone,
			ProbeInterval: 500 * time.Millisecond,
			ProbeAttempts: 10,
		}
	}
	if err := validateRemote(c.Remote); err != nil {
		return err
	}
	if c.Remote.UserID == "" {
		c.Remote.UserID = c.Admin.DiscordID
	}

	if c.Mirror == nil {
		c.Mirror = &MirrorConfig{Type: MirrorTypeNone}
	}
	if c.Mirror.Type == "" {
		c.Mirror.Type = MirrorTypeNone
	}
	if c.Mirror.GitHub == nil {
		c.Mirror.GitHub = &GitHubConfig{URL: "https://api.github.com", Branch: "main"}
	}

	return validateMirror(c.Mirror)
}

func validateRemote(r *RemoteConfig) error {
	if r == nil {
		return nil
	}
	switch r.Type {
	case RemoteTypeNone, RemoteTypeMemory, "":
	case RemoteTypeMongo:
		if r.Mongo == nil || r.Mongo.URI == "" {
			return fmt.Errorf("mongo URI is required when the mongo remote is configured")
		}
		if r.Mongo.Database == "" {
			return fmt.Errorf("mongo database is required when the mongo remote is configured")
		}
	case RemoteTypeArango:
		if r.Arango == nil || r.Arango.URL == "" {
			return fmt.Errorf("arango URL is required when the arango remote is configured")
		}
		if r.Arango.Database == "" {
			return fmt.Errorf("arango database is required when the arango remote is configured")
		}
	default:
		return fmt.Errorf("unknown remote type %q", r.Type)
	}
	if r.ProbeAttempts <= 0 {
		return fmt.Errorf("remote probe attempts must be greater than 0")
	}
	if r.ProbeInterval <= 0 {
		return fmt.Errorf("remote probe interval must be greater than 0")
	}
	return nil
}

func validateMirror(m *MirrorConfig) error {
	if m == nil {
		return nil
	}
	switch m.Type {
	case MirrorTypeNone, "":
	case MirrorTypeGitHub:
		// the token may also be stored at runtime through the settings API
		if m.GitHub == nil || m.GitHub.URL == "" {
			return fmt.Errorf("github API URL is required when the github mirror is configured")
		}
	case MirrorTypeS3:
		if m.S3 == nil || m.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required when the s3 mirror is configured")
		}
		if m.S3.Region == "" {
			return fmt.Errorf("s3 region is required when the s3 mirror is configured")
		}
	default:
		return fmt.Errorf("unknown mirror type %q", m.Type)
	}
	return nil
}

// sanitizeConfig sanitizes the configuration values.
func sanitizeConfig(c *Config) {
	if c == nil {
		return
	}

	c.Listen = urlSanitize(c.Listen)

	if c.ServerURL != "" {
		c.ServerURL = urlSanitize(c.ServerURL)
	}
	if c.LoaderServerURL != "" {
		c.LoaderServerURL = urlSanitize(c.LoaderServerURL)
	}
	if c.APIBaseURL != "" {
		c.APIBaseURL = urlSanitize(c.APIBaseURL)
	}

	if c.Admin != nil {
		c.Admin.DiscordID = strings.TrimSpace(c.Admin.DiscordID)
		c.Admin.Key = strings.TrimSpace(c.Admin.Key)
	}

	if c.Remote != nil && c.Remote.Arango != nil {
		c.Remote.Arango.URL = urlSanitize(c.Remote.Arango.URL)
	}

	if c.Mirror != nil {
		if c.Mirror.GitHub != nil {
			c.Mirror.GitHub.URL = urlSanitize(c.Mirror.GitHub.URL)
		}
		if c.Mirror.S3 != nil {
			c.Mirror.S3.Endpoint = urlSanitize(c.Mirror.S3.Endpoint)
			c.Mirror.S3.Prefix = strings.Trim(strings.TrimSpace(c.Mirror.S3.Prefix), "/")
		}
	}
}

func urlSanitize(url string) string {
	return strings.TrimSuffix(strings.TrimSpace(url), "/")
}
