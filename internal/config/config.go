// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud-ingest/internal/infra"
)

// Default locations of the stable agent release and the updater's working
// directories.
const (
	DefaultStableAgentSource = "gs://cloud-ingest-pub/agent/current/agent-linux_amd64.tar.gz"
	DefaultCheckInterval     = 5 * time.Minute
)

// UpdaterConfig holds the agent autoupdate settings.
type UpdaterConfig struct {
	StableAgentSource string        // gs:// URL of the stable agent tarball
	CheckInterval     time.Duration // how often to compare versions (default 5m)
	WorkDir           string        // where the agent binary is unpacked and run
	SourceDir         string        // where per-PID agent-source files live
}

// InfraConfig holds GCP provisioning settings.
type InfraConfig struct {
	Zone              string // GCE zone for the DCP instance (default "us-central1-f")
	Region            string // region for the Spanner instance config (default "us-central1")
	FunctionLocation  string // Cloud Functions location (default "us-central1")
	FunctionSourceDir string // local directory with the GCS-to-BQ importer source
	StagingBucket     string // GCS bucket for staged function source (default "<project>-cloud-ingest-staging")
	DCPImage          string // DCP container image
	RunDCP            bool   // whether infra creation also starts the DCP VM
}

// Config holds the configuration for the cloud-ingest backend.
type Config struct {
	ProjectID       string // GCP project id (required)
	SpannerInstance string // Spanner instance id (default "cloud-ingest-spanner-instance")
	SpannerDatabase string // Spanner database id (default "cloud-ingest-database")
	ListenAddr      string // HTTP listen address (default ":8080")
	LogLevel        string // log level: debug, info, warn, error (default "info")
	Env             string // environment: "development" (default) or "production"
	JWTSecret       string // HS256 shared secret; empty disables token verification

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	Infra   InfraConfig
	Updater UpdaterConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// DatabasePath returns the fully qualified Spanner database name.
func (c *Config) DatabasePath() string {
	return fmt.Sprintf("projects/%s/instances/%s/databases/%s",
		c.ProjectID, c.SpannerInstance, c.SpannerDatabase)
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ProjectID:       os.Getenv("PROJECT_ID"),
		SpannerInstance: os.Getenv("SPANNER_INSTANCE"),
		SpannerDatabase: os.Getenv("SPANNER_DATABASE"),
		ListenAddr:      os.Getenv("LISTEN_ADDR"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		Env:             os.Getenv("ENV"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		Infra: InfraConfig{
			Zone:              os.Getenv("GCE_ZONE"),
			Region:            os.Getenv("GCP_REGION"),
			FunctionLocation:  os.Getenv("FUNCTION_LOCATION"),
			FunctionSourceDir: os.Getenv("FUNCTION_SOURCE_DIR"),
			StagingBucket:     os.Getenv("STAGING_BUCKET"),
			DCPImage:          os.Getenv("DCP_IMAGE"),
			RunDCP:            parseBoolEnvDefault("RUN_DCP", false),
		},
		Updater: UpdaterConfig{
			StableAgentSource: os.Getenv("STABLE_AGENT_SOURCE"),
			WorkDir:           os.Getenv("AGENT_WORK_DIR"),
			SourceDir:         os.Getenv("AGENT_SOURCE_DIR"),
		},
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID must be set")
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}
	if v := os.Getenv("UPDATE_CHECK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid UPDATE_CHECK_INTERVAL %q: %w", v, err)
		}
		cfg.Updater.CheckInterval = d
	}

	// Defaults
	if cfg.SpannerInstance == "" {
		cfg.SpannerInstance = infra.SpannerInstance
	}
	if cfg.SpannerDatabase == "" {
		cfg.SpannerDatabase = infra.SpannerDatabase
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.Infra.Zone == "" {
		cfg.Infra.Zone = "us-central1-f"
	}
	if cfg.Infra.Region == "" {
		cfg.Infra.Region = regionOfZone(cfg.Infra.Zone)
	}
	if cfg.Infra.FunctionLocation == "" {
		cfg.Infra.FunctionLocation = cfg.Infra.Region
	}
	if cfg.Infra.StagingBucket == "" {
		cfg.Infra.StagingBucket = cfg.ProjectID + "-cloud-ingest-staging"
	}
	if cfg.Infra.DCPImage == "" {
		cfg.Infra.DCPImage = infra.DCPContainerImage
	}
	if cfg.Updater.StableAgentSource == "" {
		cfg.Updater.StableAgentSource = DefaultStableAgentSource
	}
	if cfg.Updater.CheckInterval == 0 {
		cfg.Updater.CheckInterval = DefaultCheckInterval
	}
	if cfg.Updater.WorkDir == "" {
		cfg.Updater.WorkDir = "/cloud-ingest/agent"
	}
	if cfg.Updater.SourceDir == "" {
		cfg.Updater.SourceDir = "/tmp"
	}

	if cfg.JWTSecret == "" {
		cfg.Warnings = append(cfg.Warnings,
			"JWT_SECRET not set — bearer tokens are extracted but not verified")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

// regionOfZone strips the zone suffix: "us-central1-f" -> "us-central1".
func regionOfZone(zone string) string {
	if i := strings.LastIndex(zone, "-"); i > 0 {
		return zone[:i]
	}
	return zone
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "0", "false", "no", "off":
		return false
	case "1", "true", "yes", "on":
		return true
	default:
		return defaultVal
	}
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
