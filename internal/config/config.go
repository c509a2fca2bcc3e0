package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/minervarr/CanvasDownloader/internal/layout"
	"github.com/minervarr/CanvasDownloader/internal/model"
	"github.com/minervarr/CanvasDownloader/internal/progress"
	"gopkg.in/yaml.v3"
)

// Config defines configuration for the canvasdl CLI.
type Config struct {
	Root     string         `yaml:"root"`
	API      APIConfig      `yaml:"api"`
	Download DownloadConfig `yaml:"download"`
	Layout   LayoutConfig   `yaml:"layout"`
	Report   ReportConfig   `yaml:"report"`
}

// APIConfig defines how to reach the Canvas instance.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DownloadConfig defines fetch behavior.
type DownloadConfig struct {
	Parallel     int           `yaml:"parallel"`
	ChunkSize    int64         `yaml:"chunk_size"`
	SkipExisting bool          `yaml:"skip_existing"`
	RateInterval time.Duration `yaml:"rate_interval"`
	Retry        RetryConfig   `yaml:"retry"`
}

// RetryConfig defines retry behavior. Attempts counts retries after the
// first try, so 3 means up to 4 tries per task.
type RetryConfig struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

// LayoutConfig defines how artifact paths are rendered.
type LayoutConfig struct {
	FolderTemplate string `yaml:"folder_template"`
	FilePattern    string `yaml:"file_pattern"`
	NumberWidth    int    `yaml:"number_width"`
	MaxNameLength  int    `yaml:"max_name_length"`
	MaxDepth       int    `yaml:"max_depth"`
}

// ReportConfig defines where the run summary is written.
type ReportConfig struct {
	Summary string `yaml:"summary"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		API: APIConfig{
			UserAgent: "Canvas-Downloader/1.0.0",
			Timeout:   30 * time.Second,
		},
		Download: DownloadConfig{
			Parallel:     4,
			ChunkSize:    8 * 1024, // 8KB
			SkipExisting: true,
			RateInterval: 100 * time.Millisecond,
			Retry: RetryConfig{
				Attempts: 3,
				Delay:    time.Second,
			},
		},
		Layout: LayoutConfig{
			FolderTemplate: layout.DefaultFolderTemplate,
			FilePattern:    layout.DefaultFilePattern,
			NumberWidth:    3,
			MaxNameLength:  100,
			MaxDepth:       10,
		},
		Report: ReportConfig{
			Summary: model.SummaryKey,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations and
// sizes. skip_existing and retry.attempts are pointers so an explicit
// false or 0 survives the overlay onto the defaults.
type yamlConfig struct {
	Root     string             `yaml:"root"`
	API      yamlAPIConfig      `yaml:"api"`
	Download yamlDownloadConfig `yaml:"download"`
	Layout   LayoutConfig       `yaml:"layout"`
	Report   ReportConfig       `yaml:"report"`
}

type yamlAPIConfig struct {
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`
	Timeout   string `yaml:"timeout"`
}

type yamlDownloadConfig struct {
	Parallel     int             `yaml:"parallel"`
	ChunkSize    string          `yaml:"chunk_size"`
	SkipExisting *bool           `yaml:"skip_existing"`
	RateInterval string          `yaml:"rate_interval"`
	Retry        yamlRetryConfig `yaml:"retry"`
}

type yamlRetryConfig struct {
	Attempts *int   `yaml:"attempts"`
	Delay    string `yaml:"delay"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.Root != "" {
		cfg.Root = yc.Root
	}
	if yc.API.BaseURL != "" {
		cfg.API.BaseURL = yc.API.BaseURL
	}
	if yc.API.UserAgent != "" {
		cfg.API.UserAgent = yc.API.UserAgent
	}
	if yc.API.Timeout != "" {
		d, err := time.ParseDuration(yc.API.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse api.timeout: %w", err)
		}
		cfg.API.Timeout = d
	}
	if yc.Download.Parallel != 0 {
		cfg.Download.Parallel = yc.Download.Parallel
	}
	if yc.Download.ChunkSize != "" {
		size, err := progress.ParseBytes(yc.Download.ChunkSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse download.chunk_size: %w", err)
		}
		cfg.Download.ChunkSize = size
	}
	if yc.Download.SkipExisting != nil {
		cfg.Download.SkipExisting = *yc.Download.SkipExisting
	}
	if yc.Download.RateInterval != "" {
		d, err := time.ParseDuration(yc.Download.RateInterval)
		if err != nil {
			return Config{}, fmt.Errorf("parse download.rate_interval: %w", err)
		}
		cfg.Download.RateInterval = d
	}
	if yc.Download.Retry.Attempts != nil {
		cfg.Download.Retry.Attempts = *yc.Download.Retry.Attempts
	}
	if yc.Download.Retry.Delay != "" {
		d, err := time.ParseDuration(yc.Download.Retry.Delay)
		if err != nil {
			return Config{}, fmt.Errorf("parse download.retry.delay: %w", err)
		}
		cfg.Download.Retry.Delay = d
	}
	if yc.Layout.FolderTemplate != "" {
		cfg.Layout.FolderTemplate = yc.Layout.FolderTemplate
	}
	if yc.Layout.FilePattern != "" {
		cfg.Layout.FilePattern = yc.Layout.FilePattern
	}
	if yc.Layout.NumberWidth != 0 {
		cfg.Layout.NumberWidth = yc.Layout.NumberWidth
	}
	if yc.Layout.MaxNameLength != 0 {
		cfg.Layout.MaxNameLength = yc.Layout.MaxNameLength
	}
	if yc.Layout.MaxDepth != 0 {
		cfg.Layout.MaxDepth = yc.Layout.MaxDepth
	}
	if yc.Report.Summary != "" {
		cfg.Report.Summary = yc.Report.Summary
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the CANVASDL_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("CANVASDL_ROOT"); v != "" {
		c.Root = v
	}
	if v := os.Getenv("CANVASDL_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("CANVASDL_USER_AGENT"); v != "" {
		c.API.UserAgent = v
	}
	if v := os.Getenv("CANVASDL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse CANVASDL_TIMEOUT: %w", err)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("CANVASDL_PARALLEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse CANVASDL_PARALLEL: %w", err)
		}
		c.Download.Parallel = n
	}
	if v := os.Getenv("CANVASDL_CHUNK_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse CANVASDL_CHUNK_SIZE: %w", err)
		}
		c.Download.ChunkSize = size
	}
	if v := os.Getenv("CANVASDL_SKIP_EXISTING"); v != "" {
		c.Download.SkipExisting = v == "true" || v == "1"
	}
	if v := os.Getenv("CANVASDL_RATE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse CANVASDL_RATE_INTERVAL: %w", err)
		}
		c.Download.RateInterval = d
	}
	if v := os.Getenv("CANVASDL_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse CANVASDL_RETRY_ATTEMPTS: %w", err)
		}
		c.Download.Retry.Attempts = n
	}
	if v := os.Getenv("CANVASDL_RETRY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse CANVASDL_RETRY_DELAY: %w", err)
		}
		c.Download.Retry.Delay = d
	}
	if v := os.Getenv("CANVASDL_FOLDER_TEMPLATE"); v != "" {
		c.Layout.FolderTemplate = v
	}
	if v := os.Getenv("CANVASDL_FILE_PATTERN"); v != "" {
		c.Layout.FilePattern = v
	}
	if v := os.Getenv("CANVASDL_NUMBER_WIDTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse CANVASDL_NUMBER_WIDTH: %w", err)
		}
		c.Layout.NumberWidth = n
	}
	if v := os.Getenv("CANVASDL_MAX_NAME_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse CANVASDL_MAX_NAME_LENGTH: %w", err)
		}
		c.Layout.MaxNameLength = n
	}
	if v := os.Getenv("CANVASDL_MAX_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse CANVASDL_MAX_DEPTH: %w", err)
		}
		c.Layout.MaxDepth = n
	}
	if v := os.Getenv("CANVASDL_SUMMARY"); v != "" {
		c.Report.Summary = v
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Root == "" {
		return errors.New("config: root is required")
	}
	if c.Download.Parallel <= 0 {
		return errors.New("config: download.parallel must be positive")
	}
	if c.Download.ChunkSize <= 0 {
		return errors.New("config: download.chunk_size must be positive")
	}
	if c.Download.RateInterval < 0 {
		return errors.New("config: download.rate_interval must not be negative")
	}
	if c.Download.Retry.Attempts < 0 {
		return errors.New("config: download.retry.attempts must not be negative")
	}
	if c.Download.Retry.Delay < 0 {
		return errors.New("config: download.retry.delay must not be negative")
	}
	if c.Layout.MaxDepth <= 0 {
		return errors.New("config: layout.max_depth must be positive")
	}
	if c.Report.Summary == "" {
		return errors.New("config: report.summary is required")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored, so a false SkipExisting must be
// applied by the caller directly.
func (c Config) Merge(override Config) Config {
	if override.Root != "" {
		c.Root = override.Root
	}
	if override.API.BaseURL != "" {
		c.API.BaseURL = override.API.BaseURL
	}
	if override.API.UserAgent != "" {
		c.API.UserAgent = override.API.UserAgent
	}
	if override.API.Timeout != 0 {
		c.API.Timeout = override.API.Timeout
	}
	if override.Download.Parallel != 0 {
		c.Download.Parallel = override.Download.Parallel
	}
	if override.Download.ChunkSize != 0 {
		c.Download.ChunkSize = override.Download.ChunkSize
	}
	if override.Download.SkipExisting {
		c.Download.SkipExisting = true
	}
	if override.Download.RateInterval != 0 {
		c.Download.RateInterval = override.Download.RateInterval
	}
	if override.Download.Retry.Attempts != 0 {
		c.Download.Retry.Attempts = override.Download.Retry.Attempts
	}
	if override.Download.Retry.Delay != 0 {
		c.Download.Retry.Delay = override.Download.Retry.Delay
	}
	if override.Layout.FolderTemplate != "" {
		c.Layout.FolderTemplate = override.Layout.FolderTemplate
	}
	if override.Layout.FilePattern != "" {
		c.Layout.FilePattern = override.Layout.FilePattern
	}
	if override.Layout.NumberWidth != 0 {
		c.Layout.NumberWidth = override.Layout.NumberWidth
	}
	if override.Layout.MaxNameLength != 0 {
		c.Layout.MaxNameLength = override.Layout.MaxNameLength
	}
	if override.Layout.MaxDepth != 0 {
		c.Layout.MaxDepth = override.Layout.MaxDepth
	}
	if override.Report.Summary != "" {
		c.Report.Summary = override.Report.Summary
	}
	return c
}
