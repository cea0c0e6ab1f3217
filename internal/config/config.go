package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"otc-analytics/internal/orders"
	"otc-analytics/internal/pipeline"
	"otc-analytics/internal/senior"
	"otc-analytics/internal/stats"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Webservice holds the ERP timeline webservice settings.
type Webservice struct {
	URL          string        `env:"WEBSERVICE_URL"`
	User         string        `env:"WEBSERVICE_USER"`
	Password     string        `env:"WEBSERVICE_PASSWORD"`
	Encryption   int           `env:"WEBSERVICE_ENCRYPTION" env-default:"0"`
	Timeout      time.Duration `env:"WEBSERVICE_TIMEOUT" env-default:"90s"`
	RequestDelay time.Duration `env:"WEBSERVICE_REQUEST_DELAY" env-default:"2s"`
	CacheTTL     time.Duration `env:"WEBSERVICE_CACHE_TTL" env-default:"10m"`
}

// HTTPServer holds the settings of the `serve` command.
type HTTPServer struct {
	Address     string        `env:"HTTP_ADDRESS" env-default:"localhost:4001"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" env-default:"4s"`
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	CORSOrigins []string      `env:"CORS_ORIGINS" env-default:"*" env-separator:","`
}

// Analysis holds the defaults of every analysis run.
type Analysis struct {
	Timezone      string   `env:"TIMEZONE" env-default:"UTC"`
	RollingWindow int      `env:"ROLLING_WINDOW" env-default:"3"`
	MinPeriods    string   `env:"MIN_PERIODS" env-default:"at_least_one"`
	StatusPolicy  string   `env:"STATUS_POLICY" env-default:"independent"`
	BaselineOrder string   `env:"BASELINE_ORDER" env-default:"input"`
	Branches      []string `env:"BRANCHES" env-separator:","`
	Workers       int      `env:"WORKERS" env-default:"0"`
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Webservice          Webservice
	HTTP                HTTPServer
	Analysis            Analysis
	DataPath            string `env:"DATA_PATH"`
	LogDir              string `env:"LOGS_FOLDER"`
	CacheDir            string `env:"CACHE_FOLDER"`
	EnableMermaidCharts bool   `env:"ENABLE_MERMAID_CHARTS" env-default:"false"`
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for installed binaries)
	exeDir := ""
	if exePath, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Bind the environment
	var cfg AppConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	// 4. Resolve data paths
	cfg.resolvePaths(exeDir)
	for _, dir := range []string{cfg.LogDir, cfg.CacheDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("Failed to create directory")
		}
	}

	if _, err := cfg.PipelineOptions(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) resolvePaths(exeDir string) {
	if c.DataPath == "" {
		if exeDir != "" {
			c.DataPath = exeDir
		} else {
			c.DataPath = "."
		}
	}
	if c.LogDir == "" {
		c.LogDir = filepath.Join(c.DataPath, "logs")
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(c.DataPath, "cache")
	}
}

// SeniorConfig returns the webservice client settings.
func (c *AppConfig) SeniorConfig() senior.Config {
	return senior.Config{
		URL:          c.Webservice.URL,
		User:         c.Webservice.User,
		Password:     c.Webservice.Password,
		Encryption:   c.Webservice.Encryption,
		Timeout:      c.Webservice.Timeout,
		RequestDelay: c.Webservice.RequestDelay,
		CacheTTL:     c.Webservice.CacheTTL,
	}
}

// PipelineOptions validates the analysis settings and maps them onto run options.
func (c *AppConfig) PipelineOptions() (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	a := c.Analysis

	loc, err := time.LoadLocation(strings.TrimSpace(a.Timezone))
	if err != nil {
		return opts, fmt.Errorf("invalid TIMEZONE %q: %w", a.Timezone, err)
	}
	opts.Location = loc

	if a.RollingWindow < 1 {
		return opts, fmt.Errorf("invalid ROLLING_WINDOW %d: must be positive", a.RollingWindow)
	}
	opts.Window = a.RollingWindow

	if opts.MinPeriods, err = stats.ParseMinPeriods(a.MinPeriods); err != nil {
		return opts, fmt.Errorf("invalid MIN_PERIODS: %w", err)
	}
	if opts.StatusPolicy, err = orders.ParsePolicy(a.StatusPolicy); err != nil {
		return opts, fmt.Errorf("invalid STATUS_POLICY: %w", err)
	}
	if opts.Ordering, err = pipeline.ParseOrdering(a.BaselineOrder); err != nil {
		return opts, fmt.Errorf("invalid BASELINE_ORDER: %w", err)
	}

	opts.Branches = a.Branches
	if a.Workers > 0 {
		opts.Workers = a.Workers
	}
	return opts, nil
}
