// Package config loads server and CLI configuration from command-line flags,
// environment variables and an optional .env file.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cardid/cardid-server/internal/match"
)

// envPrefix is prepended to every environment key.
const envPrefix = "CARDID_"

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Catalog  CatalogConfig
	Remote   RemoteConfig
	Cache    CacheConfig
	Server   ServerConfig
	Matching MatchingConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// CatalogConfig locates the local reference catalog.
type CatalogConfig struct {
	DataDir      string // default ~/.cardid
	DatabasePath string // default {data}/catalog.db
	IndexPath    string // name index directory, default {data}/index
	Watch        bool   // rebuild the name index when the database changes
}

// RemoteConfig configures the remote catalog fallback.
type RemoteConfig struct {
	Enabled           bool
	BaseURL           string
	APIKey            string
	Timeout           time.Duration // per call, 1s..60s (default: 10s)
	RequestsPerSecond float64
	Burst             int
}

// CacheConfig configures the lookup cache.
type CacheConfig struct {
	FailureTTL time.Duration // failed resolutions and empty remote responses
	SearchTTL  time.Duration // successful remote responses
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port              string        // Server port (default: 8080)
	ReadTimeout       time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout      time.Duration // HTTP write timeout (default: 30s)
	IdleTimeout       time.Duration // HTTP idle timeout (default: 60s)
	AllowedOrigins    []string      // CORS origins (default: *)
	RequestsPerMinute int           // per client IP, 0 disables
}

// MatchingConfig holds the scorer calibration.
type MatchingConfig struct {
	File     string // optional TOML overrides
	Settings match.Settings
}

// Load builds the configuration from args (without the program name) with
// precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables, prefixed CARDID_.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("cardid", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	dataDir := fs.String("data-dir", "", "Base directory for catalog data (default: ~/.cardid)")
	dbPath := fs.String("db", "", "Catalog database path (default: {data-dir}/catalog.db)")
	indexPath := fs.String("index-path", "", "Name index directory (default: {data-dir}/index)")
	watch := fs.String("watch", "", "Rebuild the name index when the catalog changes (default: true)")

	remoteEnabled := fs.String("remote", "", "Enable the remote catalog fallback (default: true)")
	remoteURL := fs.String("remote-url", "", "Remote catalog API base URL")
	remoteKey := fs.String("remote-api-key", "", "Remote catalog API key")
	remoteTimeout := fs.String("remote-timeout", "", "Remote call timeout (default: 10s)")
	remoteRPS := fs.String("remote-rps", "", "Remote requests per second (default: 1)")
	remoteBurst := fs.String("remote-burst", "", "Remote request burst (default: 2)")

	failureTTL := fs.String("cache-failure-ttl", "", "TTL of cached failures (default: 5m)")
	searchTTL := fs.String("cache-search-ttl", "", "TTL of cached remote responses (default: 24h)")

	port := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 30s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	origins := fs.String("allowed-origins", "", "Comma separated CORS origins (default: *)")
	rpm := fs.String("rate-limit", "", "Requests per minute per client, 0 disables (default: 120)")

	matchingFile := fs.String("matching-file", "", "TOML file overriding matching weights and thresholds")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Catalog: CatalogConfig{
			DataDir:      getConfigValue(*dataDir, "DATA_DIR", ""),
			DatabasePath: getConfigValue(*dbPath, "DB_PATH", ""),
			IndexPath:    getConfigValue(*indexPath, "INDEX_PATH", ""),
			Watch:        getBoolConfigValue(*watch, "WATCH", true),
		},
		Remote: RemoteConfig{
			Enabled: getBoolConfigValue(*remoteEnabled, "REMOTE_ENABLED", true),
			BaseURL: getConfigValue(*remoteURL, "REMOTE_URL", "https://api.pokemontcg.io/v2"),
			APIKey:  getConfigValue(*remoteKey, "REMOTE_API_KEY", ""),
			Burst:   getIntConfigValue(*remoteBurst, "REMOTE_BURST", 2),
		},
		Server: ServerConfig{
			Port:              getConfigValue(*port, "PORT", "8080"),
			AllowedOrigins:    splitList(getConfigValue(*origins, "ALLOWED_ORIGINS", "*")),
			RequestsPerMinute: getIntConfigValue(*rpm, "RATE_LIMIT", 120),
		},
		Matching: MatchingConfig{
			File: getConfigValue(*matchingFile, "MATCHING_FILE", ""),
		},
	}

	var err error
	if cfg.Remote.RequestsPerSecond, err = getFloatConfigValue(*remoteRPS, "REMOTE_RPS", 1); err != nil {
		return nil, err
	}

	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Remote.Timeout, *remoteTimeout, "REMOTE_TIMEOUT", "10s"},
		{&cfg.Cache.FailureTTL, *failureTTL, "CACHE_FAILURE_TTL", "5m"},
		{&cfg.Cache.SearchTTL, *searchTTL, "CACHE_SEARCH_TTL", "24h"},
		{&cfg.Server.ReadTimeout, *readTimeout, "READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "WRITE_TIMEOUT", "30s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "IDLE_TIMEOUT", "60s"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.fallback)
		v, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s%s %q: %w", envPrefix, d.envKey, raw, err)
		}
		*d.dst = v
	}

	if err := cfg.expandCatalogPaths(); err != nil {
		return nil, fmt.Errorf("invalid catalog path: %w", err)
	}

	if cfg.Matching.Settings, err = match.LoadSettings(cfg.Matching.File); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Catalog.DatabasePath == "" {
		return errors.New("catalog database path cannot be empty after expansion")
	}

	if c.Remote.Enabled {
		if c.Remote.BaseURL == "" {
			return errors.New("remote base URL is required when the remote catalog is enabled")
		}
		if c.Remote.Timeout < time.Second || c.Remote.Timeout > time.Minute {
			return fmt.Errorf("remote timeout %s must be within 1s..60s", c.Remote.Timeout)
		}
		if c.Remote.RequestsPerSecond <= 0 || c.Remote.Burst < 1 {
			return errors.New("remote rate limit must allow at least one request")
		}
	}

	if c.Cache.FailureTTL <= 0 || c.Cache.SearchTTL <= 0 {
		return errors.New("cache TTLs must be positive")
	}

	if c.Server.RequestsPerMinute < 0 {
		return errors.New("rate limit must not be negative")
	}

	return c.Matching.Settings.Validate()
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
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

// expandCatalogPaths resolves the data directory and derives the database
// and index locations from it when they are not set explicitly.
func (c *Config) expandCatalogPaths() error {
	defaultDir := ""
	if c.Catalog.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		defaultDir = filepath.Join(homeDir, ".cardid")
	}

	dir, err := expandPath(c.Catalog.DataDir, defaultDir)
	if err != nil {
		return err
	}
	c.Catalog.DataDir = dir

	if c.Catalog.DatabasePath, err = expandPath(c.Catalog.DatabasePath, filepath.Join(dir, "catalog.db")); err != nil {
		return err
	}
	if c.Catalog.IndexPath, err = expandPath(c.Catalog.IndexPath, filepath.Join(dir, "index")); err != nil {
		return err
	}
	return nil
}

// EnsureDirectories creates the data directory and the parents of the
// database and index paths.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Catalog.DataDir,
		filepath.Dir(c.Catalog.DatabasePath),
		filepath.Dir(c.Catalog.IndexPath),
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envPrefix + envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) (float64, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(strValue), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s %q: %w", envPrefix, envKey, strValue, err)
	}
	return v, nil
}

// splitList splits a comma separated value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Environment variables take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
