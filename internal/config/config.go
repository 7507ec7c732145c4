package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the hostelfinder API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Firebase FirebaseConfig `yaml:"firebase"`
	Prefs    PrefsConfig    `yaml:"prefs"`
	Cache    CacheConfig    `yaml:"cache"`
	Search   SearchConfig   `yaml:"search"`
	Media    MediaConfig    `yaml:"media"`
	Auth     AuthConfig     `yaml:"auth"`
	CORS     CORSConfig     `yaml:"cors"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	// Disabled accepts "Bearer <uid>[:<role>]" tokens without verification. Local only.
	Disabled bool `yaml:"disabled"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig selects the document store.
type DatabaseConfig struct {
	Driver           string `yaml:"driver"` // firestore, memory (default: firestore)
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// FirebaseConfig holds Firebase project settings. Password reset emails are
// disabled when APIKey is empty.
type FirebaseConfig struct {
	ProjectID        string `yaml:"project_id"`
	CredentialsFile  string `yaml:"credentials_file"`
	APIKey           string `yaml:"api_key"`
	ResetContinueURL string `yaml:"reset_continue_url"`
}

// PrefsConfig selects where user preferences are persisted.
type PrefsConfig struct {
	Driver    string   `yaml:"driver"` // redis, memory (default: memory)
	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
	WriteSec  int      `yaml:"write_timeout_sec"`
}

// CacheConfig holds query cache and pagination settings.
type CacheConfig struct {
	PageSize        int    `yaml:"page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
	StaleSec        int    `yaml:"stale_sec"`
	GCSec           int    `yaml:"gc_sec"`
	FetchTimeoutSec int    `yaml:"fetch_timeout_sec"`
	GCSchedule      string `yaml:"gc_schedule"`
}

// SearchConfig holds text search and discovery settings.
type SearchConfig struct {
	DebounceMs     int     `yaml:"debounce_ms"`
	MinTermLength  int     `yaml:"min_term_length"`
	ScanLimit      int     `yaml:"scan_limit"`
	NearbyRadiusKm float64 `yaml:"nearby_radius_km"`
}

// MediaConfig holds media CDN settings. Uploads are disabled when CloudName is empty.
type MediaConfig struct {
	CloudName      string `yaml:"cloud_name"`
	UploadPreset   string `yaml:"upload_preset"`
	Folder         string `yaml:"folder"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	UploadsEnabled bool   `yaml:"uploads_enabled"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "firestore"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Prefs.Driver == "" {
		c.Prefs.Driver = "memory"
	}
	if c.Prefs.KeyPrefix == "" {
		c.Prefs.KeyPrefix = "hostelfinder:"
	}
	if c.Prefs.WriteSec <= 0 {
		c.Prefs.WriteSec = 2
	}
	if c.Cache.PageSize <= 0 {
		c.Cache.PageSize = 10
	}
	if c.Cache.MaxPageSize <= 0 {
		c.Cache.MaxPageSize = 50
	}
	if c.Cache.StaleSec <= 0 {
		c.Cache.StaleSec = 300
	}
	if c.Cache.GCSec <= 0 {
		c.Cache.GCSec = 600
	}
	if c.Cache.FetchTimeoutSec <= 0 {
		c.Cache.FetchTimeoutSec = 10
	}
	if c.Cache.GCSchedule == "" {
		c.Cache.GCSchedule = "@every 1m"
	}
	if c.Search.DebounceMs <= 0 {
		c.Search.DebounceMs = 300
	}
	if c.Search.MinTermLength <= 0 {
		c.Search.MinTermLength = 3
	}
	if c.Search.ScanLimit <= 0 {
		c.Search.ScanLimit = 200
	}
	if c.Search.NearbyRadiusKm <= 0 {
		c.Search.NearbyRadiusKm = 2
	}
	if c.Media.Folder == "" {
		c.Media.Folder = "hostels"
	}
	if c.Media.MaxUploadBytes <= 0 {
		c.Media.MaxUploadBytes = 10 << 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "firestore":
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("firebase.project_id is required for the firestore driver")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be \"firestore\" or \"memory\", got %q", c.Database.Driver)
	}
	if !c.Auth.Disabled && c.Firebase.ProjectID == "" {
		return fmt.Errorf("firebase.project_id is required unless auth.disabled is set")
	}
	if c.Firebase.ResetContinueURL != "" && c.Firebase.APIKey == "" {
		return fmt.Errorf("firebase.api_key is required when firebase.reset_continue_url is set")
	}
	switch c.Prefs.Driver {
	case "redis":
		if len(c.Prefs.Addrs) == 0 {
			return fmt.Errorf("prefs.addrs is required for the redis driver")
		}
	case "memory":
	default:
		return fmt.Errorf("prefs.driver must be \"redis\" or \"memory\", got %q", c.Prefs.Driver)
	}
	if c.Cache.PageSize > c.Cache.MaxPageSize {
		return fmt.Errorf("cache.page_size (%d) exceeds cache.max_page_size (%d)", c.Cache.PageSize, c.Cache.MaxPageSize)
	}
	if c.Media.UploadsEnabled && (c.Media.CloudName == "" || c.Media.UploadPreset == "") {
		return fmt.Errorf("media.cloud_name and media.upload_preset are required when uploads are enabled")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
