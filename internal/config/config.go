// Package config provides application configuration management with support
// for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Storage  StorageConfig
	Server   ServerConfig
	Catalog  CatalogConfig
	Playback PlaybackConfig
	Artwork  ArtworkConfig
	Search   SearchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds on-disk database configuration.
type StorageConfig struct {
	// BasePath is the root directory for the badger database and caches.
	BasePath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name          string
	LocalURL      string        // Optional
	Port          string        // Server port (default: 8080)
	ReadTimeout   time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout  time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout   time.Duration // HTTP idle timeout (default: 60s)
	AdvertiseMDNS bool          // Advertise via mDNS/Zeroconf (default: true)
}

// CatalogConfig holds remote catalog client configuration.
type CatalogConfig struct {
	// BaseURL is the catalog API root.
	BaseURL string
	// Timeout bounds a single catalog request (default: 10s).
	Timeout time.Duration
	// RequestsPerSecond throttles outbound catalog calls (default: 5).
	RequestsPerSecond float64
	// Burst is the rate limiter burst size (default: 10).
	Burst int
}

// PlaybackConfig holds the playback calculation constants.
type PlaybackConfig struct {
	// DisclaimerSeconds is the length of the spoken legal notice (default: 42).
	DisclaimerSeconds float64
	// TailToleranceSeconds is the near-end completion tolerance (default: 60).
	TailToleranceSeconds float64
}

// ArtworkConfig holds cover art cache configuration.
type ArtworkConfig struct {
	// CachePath is the directory for cached artwork files
	// (default: {storage}/cache/artwork).
	CachePath string
	// PreferredWidth is the full-resolution target width in pixels. Must be
	// one of WidthPresets (default: 512).
	PreferredWidth int
	// SmallWidth is the thumbnail target width in pixels (default: 128).
	SmallWidth int
	// MemoryCacheEntries caps the in-memory tier (default: 256).
	MemoryCacheEntries int
}

// SearchConfig holds search index configuration.
type SearchConfig struct {
	// IndexPath is the bleve index directory (default: {storage}/search).
	IndexPath string
}

// WidthPresets are the allowed full-resolution artwork widths.
var WidthPresets = []int{256, 512, 1024, 2048}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	storagePath := flag.String("storage-path", "", "Base path for database and caches")
	serverName := flag.String("server-name", "", "Name for the server")
	serverLocalURL := flag.String("local-url", "", "Internal server url")

	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	advertiseMDNS := flag.String("advertise-mdns", "", "Advertise via mDNS/Zeroconf (default: true)")

	catalogBaseURL := flag.String("catalog-url", "", "Remote catalog API base URL")
	catalogTimeout := flag.String("catalog-timeout", "", "Catalog request timeout (default: 10s)")
	catalogRPS := flag.String("catalog-rps", "", "Catalog requests per second (default: 5)")

	artworkCachePath := flag.String("artwork-cache-path", "", "Path for artwork cache")
	artworkWidth := flag.String("artwork-width", "", "Preferred artwork width in pixels (default: 512)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			BasePath: getConfigValue(*storagePath, "STORAGE_PATH", ""),
		},
		Server: ServerConfig{
			Name:          getConfigValue(*serverName, "SERVER_NAME", "Hoerspiel Server"),
			LocalURL:      getConfigValue(*serverLocalURL, "SERVER_LOCAL_URL", ""),
			Port:          getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AdvertiseMDNS: getBoolConfigValue(*advertiseMDNS, "ADVERTISE_MDNS", true),
		},
		Catalog: CatalogConfig{
			BaseURL:           getConfigValue(*catalogBaseURL, "CATALOG_URL", "https://api.music.apple.com"),
			RequestsPerSecond: getFloatConfigValue(*catalogRPS, "CATALOG_RPS", 5),
			Burst:             getIntConfigValue("", "CATALOG_BURST", 10),
		},
		Playback: PlaybackConfig{
			DisclaimerSeconds:    getFloatConfigValue("", "PLAYBACK_DISCLAIMER_SECONDS", 42),
			TailToleranceSeconds: getFloatConfigValue("", "PLAYBACK_TAIL_TOLERANCE_SECONDS", 60),
		},
		Artwork: ArtworkConfig{
			CachePath:          getConfigValue(*artworkCachePath, "ARTWORK_CACHE_PATH", ""),
			PreferredWidth:     getIntConfigValue(*artworkWidth, "ARTWORK_WIDTH", 512),
			SmallWidth:         getIntConfigValue("", "ARTWORK_SMALL_WIDTH", 128),
			MemoryCacheEntries: getIntConfigValue("", "ARTWORK_MEMORY_ENTRIES", 256),
		},
		Search: SearchConfig{
			IndexPath: getConfigValue("", "SEARCH_INDEX_PATH", ""),
		},
	}

	// Parse server timeouts.
	var err error
	cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	cfg.Catalog.Timeout, err = parseDurationValue(*catalogTimeout, "CATALOG_TIMEOUT", "10s")
	if err != nil {
		return nil, fmt.Errorf("invalid catalog timeout: %w", err)
	}

	if err := cfg.expandStoragePath(); err != nil {
		return nil, fmt.Errorf("invalid storage path: %w", err)
	}
	if err := cfg.expandArtworkCachePath(); err != nil {
		return nil, fmt.Errorf("invalid artwork cache path: %w", err)
	}
	if err := cfg.expandSearchIndexPath(); err != nil {
		return nil, fmt.Errorf("invalid search index path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
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

	if c.Storage.BasePath == "" {
		return errors.New("storage base path cannot be empty after expansion")
	}

	if c.Catalog.BaseURL == "" {
		return errors.New("catalog base URL is required")
	}

	if !slices.Contains(WidthPresets, c.Artwork.PreferredWidth) {
		return fmt.Errorf("invalid artwork width: %d (must be one of %v)", c.Artwork.PreferredWidth, WidthPresets)
	}

	if c.Playback.DisclaimerSeconds < 0 || c.Playback.TailToleranceSeconds < 0 {
		return errors.New("playback constants must not be negative")
	}

	return nil
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

// expandStoragePath expands ~ and makes the path absolute.
func (c *Config) expandStoragePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Hoerspiel", "data")

	expanded, err := expandPath(c.Storage.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.BasePath = expanded
	return nil
}

// expandArtworkCachePath defaults to {storage}/cache/artwork.
func (c *Config) expandArtworkCachePath() error {
	defaultPath := filepath.Join(c.Storage.BasePath, "cache", "artwork")

	expanded, err := expandPath(c.Artwork.CachePath, defaultPath)
	if err != nil {
		return err
	}
	c.Artwork.CachePath = expanded
	return nil
}

// expandSearchIndexPath defaults to {storage}/search.
func (c *Config) expandSearchIndexPath() error {
	defaultPath := filepath.Join(c.Storage.BasePath, "search")

	expanded, err := expandPath(c.Search.IndexPath, defaultPath)
	if err != nil {
		return err
	}
	c.Search.IndexPath = expanded
	return nil
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
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", strValue, err)
	}
	return d, nil
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

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
