package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7344"
	DefaultDBFileName = ".blueprint.db"
	DefaultLogLevel   = "debug"

	AssetBackendSQLite = "sqlite"
	AssetBackendLocal  = "local"

	DefaultAssetBackend          = AssetBackendSQLite
	DefaultAssetMaxBytes   int64 = 512 * 1024 * 1024
	DefaultAssetMaxRetries       = 3

	DefaultNotificationBaseDuration  = 4 * time.Second
	DefaultNotificationExitAnimation = 300 * time.Millisecond
	DefaultNotificationMaxVisible    = 5

	DefaultDeletionGracePeriod = 5 * time.Second

	configFileName           = ".blueprint.toml"
	configDirEnvKey          = "BLUEPRINT_CONFIG_DIR"
	trustProjectConfigEnvKey = "BLUEPRINT_TRUST_PROJECT_CONFIG"
	apiURLEnvKey             = "BLUEPRINT_API_URL"
	dbPathEnvKey             = "BLUEPRINT_DB"
	blobDirEnvKey            = "BLUEPRINT_BLOB_DIR"
)

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses values such as "4s" or "1500ms".
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText renders the duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// AssetsConfig configures the blob store and resolver.
type AssetsConfig struct {
	Backend    string `toml:"backend"`
	Dir        string `toml:"dir"`
	MaxBytes   int64  `toml:"max_bytes"`
	MaxRetries int    `toml:"max_retries"`
}

// NotificationsConfig configures the notification center.
type NotificationsConfig struct {
	BaseDuration  Duration `toml:"base_duration"`
	ExitAnimation Duration `toml:"exit_animation"`
	MaxVisible    int      `toml:"max_visible"`
}

// DeletionConfig configures deferred deletion.
type DeletionConfig struct {
	GracePeriod Duration `toml:"grace_period"`
}

// Config defines runtime configuration for blueprint.
type Config struct {
	APIURL                   string              `toml:"api_url"`
	DBPath                   string              `toml:"db_path"`
	LogLevel                 string              `toml:"log_level"`
	Assets                   AssetsConfig        `toml:"assets"`
	Notifications            NotificationsConfig `toml:"notifications"`
	Deletion                 DeletionConfig      `toml:"deletion"`
	TrustedProjectConfigPath string              `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		DBPath:   "",
		LogLevel: DefaultLogLevel,
		Assets: AssetsConfig{
			Backend:    DefaultAssetBackend,
			MaxBytes:   DefaultAssetMaxBytes,
			MaxRetries: DefaultAssetMaxRetries,
		},
		Notifications: NotificationsConfig{
			BaseDuration:  Duration{DefaultNotificationBaseDuration},
			ExitAnimation: Duration{DefaultNotificationExitAnimation},
			MaxVisible:    DefaultNotificationMaxVisible,
		},
		Deletion: DeletionConfig{
			GracePeriod: Duration{DefaultDeletionGracePeriod},
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"assets.backend",
	"assets.dir",
	"assets.max_bytes",
	"assets.max_retries",
	"notifications.base_duration",
	"notifications.exit_animation",
	"notifications.max_visible",
	"deletion.grace_period",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "assets.backend":
		return c.Assets.Backend, nil
	case "assets.dir":
		return c.Assets.Dir, nil
	case "assets.max_bytes":
		return strconv.FormatInt(c.Assets.MaxBytes, 10), nil
	case "assets.max_retries":
		return strconv.Itoa(c.Assets.MaxRetries), nil
	case "notifications.base_duration":
		return c.Notifications.BaseDuration.String(), nil
	case "notifications.exit_animation":
		return c.Notifications.ExitAnimation.String(), nil
	case "notifications.max_visible":
		return strconv.Itoa(c.Notifications.MaxVisible), nil
	case "deletion.grace_period":
		return c.Deletion.GracePeriod.String(), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if blobDir := strings.TrimSpace(os.Getenv(blobDirEnvKey)); blobDir != "" {
		cfg.Assets.Dir = blobDir
	}

	cfg.normalize()

	return &cfg, nil
}

// BlobDir returns the directory of the local asset backend.
func (c *Config) BlobDir() string {
	if c.Assets.Dir != "" {
		return c.Assets.Dir
	}
	return filepath.Join(filepath.Dir(c.DBPath), ".blueprint", "assets")
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "assets.max_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "assets.max_retries":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer", key)
		}
		return parsed, nil
	case "notifications.max_visible":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "notifications.base_duration", "notifications.exit_animation", "deletion.grace_period":
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration such as 5s", key)
		}
		return parsed.String(), nil
	case "assets.backend":
		if value != AssetBackendSQLite && value != AssetBackendLocal {
			return nil, fmt.Errorf("%s must be %q or %q", key, AssetBackendSQLite, AssetBackendLocal)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	switch c.Assets.Backend {
	case AssetBackendSQLite, AssetBackendLocal:
	default:
		c.Assets.Backend = DefaultAssetBackend
	}
	if c.Assets.MaxBytes <= 0 {
		c.Assets.MaxBytes = DefaultAssetMaxBytes
	}
	if c.Assets.MaxRetries < 0 {
		c.Assets.MaxRetries = DefaultAssetMaxRetries
	}
	if c.Notifications.BaseDuration.Duration <= 0 {
		c.Notifications.BaseDuration.Duration = DefaultNotificationBaseDuration
	}
	if c.Notifications.ExitAnimation.Duration <= 0 {
		c.Notifications.ExitAnimation.Duration = DefaultNotificationExitAnimation
	}
	if c.Notifications.MaxVisible <= 0 {
		c.Notifications.MaxVisible = DefaultNotificationMaxVisible
	}
	if c.Deletion.GracePeriod.Duration <= 0 {
		c.Deletion.GracePeriod.Duration = DefaultDeletionGracePeriod
	}
}
