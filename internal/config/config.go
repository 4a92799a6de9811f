// Package config loads the registry server configuration from command-line
// flags, environment variables and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Data     DataConfig
	Store    StoreConfig
	Server   ServerConfig
	Auth     AuthConfig
	Paystack PaystackConfig
	Mail     MailConfig
	Sweep    SweepConfig
	Tags     TagsConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds the on-disk layout root.
type DataConfig struct {
	// BasePath holds the database, search index, images and auth key.
	BasePath string
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string // badger (default) or sqlite
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	PublicURL    string // Base URL used in emails and image links
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key, set by auth.LoadOrGenerateKey at startup.
	AccessTokenKey      []byte
	AccessTokenDuration time.Duration
	ResetTokenDuration  time.Duration
	// Signups with these addresses are granted the admin role.
	AdminEmails []string
}

// PaystackConfig holds payment provider settings.
type PaystackConfig struct {
	// SecretKey signs webhooks and authenticates API calls. Empty disables
	// webhook acceptance entirely.
	SecretKey         string
	BaseURL           string
	RequestsPerSecond float64
}

// MailConfig holds outbound SMTP settings. An empty Host logs mail instead.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SweepConfig controls the subscription expiry sweep.
type SweepConfig struct {
	Enabled  bool
	Interval time.Duration
}

// TagsConfig controls tag manifest provisioning.
type TagsConfig struct {
	// ImportDir is watched for tag manifests. Empty disables the watcher.
	ImportDir string
}

// Load reads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// args are the command-line arguments without the program name.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("tagreturn", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for registry data")
	driver := fs.String("store", "", "Store driver (badger, sqlite)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	publicURL := fs.String("public-url", "", "Public base URL of the API")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (e.g., 24h)")
	resetTokenDuration := fs.String("reset-token-duration", "", "Password reset token lifetime (e.g., 1h)")

	sweepEnabled := fs.String("sweep-enabled", "", "Run the subscription expiry sweep (default: true)")
	sweepInterval := fs.String("sweep-interval", "", "Expiry sweep interval (default: 1h)")
	importDir := fs.String("tags-import-dir", "", "Directory watched for tag manifests")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := loadEnvFile(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %q: %w", *envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getConfigValue(*driver, "STORE_DRIVER", DriverBadger)),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			PublicURL:   strings.TrimRight(getConfigValue(*publicURL, "PUBLIC_URL", ""), "/"),
			CORSOrigins: splitList(getConfigValue("", "CORS_ORIGINS", "*")),
		},
		Auth: AuthConfig{
			AdminEmails: splitList(strings.ToLower(getConfigValue("", "ADMIN_EMAILS", ""))),
		},
		Paystack: PaystackConfig{
			SecretKey:         getConfigValue("", "PAYSTACK_SECRET_KEY", ""),
			BaseURL:           strings.TrimRight(getConfigValue("", "PAYSTACK_BASE_URL", "https://api.paystack.co"), "/"),
			RequestsPerSecond: getFloatConfigValue("", "PAYSTACK_RPS", 5),
		},
		Mail: MailConfig{
			Host:     getConfigValue("", "SMTP_HOST", ""),
			Port:     getIntConfigValue("", "SMTP_PORT", 587),
			Username: getConfigValue("", "SMTP_USERNAME", ""),
			Password: getConfigValue("", "SMTP_PASSWORD", ""),
			From:     getConfigValue("", "MAIL_FROM", "TagReturn <no-reply@tagreturn.local>"),
		},
		Sweep: SweepConfig{
			Enabled: getBoolConfigValue(*sweepEnabled, "SWEEP_ENABLED", true),
		},
		Tags: TagsConfig{
			ImportDir: getConfigValue(*importDir, "TAGS_IMPORT_DIR", ""),
		},
	}

	durations := []struct {
		name   string
		flag   string
		envKey string
		def    string
		dst    *time.Duration
	}{
		{"access token duration", *accessTokenDuration, "ACCESS_TOKEN_DURATION", "24h", &cfg.Auth.AccessTokenDuration},
		{"reset token duration", *resetTokenDuration, "RESET_TOKEN_DURATION", "1h", &cfg.Auth.ResetTokenDuration},
		{"read timeout", *readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{"write timeout", *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{"idle timeout", *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{"sweep interval", *sweepInterval, "SWEEP_INTERVAL", "1h", &cfg.Sweep.Interval},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	case "":
		return errors.New("ENV is required")
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Store.Driver != DriverBadger && c.Store.Driver != DriverSQLite {
		return fmt.Errorf("invalid store driver: %s (must be badger or sqlite)", c.Store.Driver)
	}

	if c.Sweep.Enabled && c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", c.Sweep.Interval)
	}

	if c.App.Environment == "production" && c.Paystack.SecretKey == "" {
		return errors.New("PAYSTACK_SECRET_KEY is required in production")
	}

	return nil
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// DatabasePath returns the store location for the configured driver.
func (c *Config) DatabasePath() string {
	if c.Store.Driver == DriverSQLite {
		return filepath.Join(c.Data.BasePath, "registry.db")
	}
	return filepath.Join(c.Data.BasePath, "db")
}

func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	base, err := expandPath(c.Data.BasePath, filepath.Join(homeDir, "TagReturn", "data"))
	if err != nil {
		return fmt.Errorf("invalid data path: %w", err)
	}
	c.Data.BasePath = base

	if c.Tags.ImportDir != "" {
		dir, err := expandPath(c.Tags.ImportDir, "")
		if err != nil {
			return fmt.Errorf("invalid tags import dir: %w", err)
		}
		c.Tags.ImportDir = dir
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1", "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	v, err := strconv.Atoi(getConfigValue(flagValue, envKey, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getConfigValue(flagValue, envKey, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile applies KEY=value pairs from path. Variables already present
// in the environment win over the file.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return err
	}
	for key, value := range values {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set env var %s: %w", key, err)
		}
	}
	return nil
}
