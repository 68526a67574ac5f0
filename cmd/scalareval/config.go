package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/hupe1980/scalareval"
	"github.com/hupe1980/scalareval/gpu"
)

// EnvPrefix prefixes every environment variable read into Config.
const EnvPrefix = "SCALAREVAL"

// Config validation errors
var (
	ErrInvalidBackend     = errors.New("backend must be 'cpu' or 'gpu'")
	ErrInvalidDevice      = errors.New("device must be 'emulator' or 'opencl'")
	ErrInvalidWorkers     = errors.New("workers cannot be negative")
	ErrInvalidChunks      = errors.New("chunks cannot be negative")
	ErrInvalidMemoryLimit = errors.New("memory_limit cannot be negative")
	ErrInvalidIOLimit     = errors.New("io_limit cannot be negative")
	ErrInvalidCacheSize   = errors.New("cache_size cannot be negative")
	ErrInvalidLogFormat   = errors.New("log_format must be 'json' or 'text'")
	ErrInvalidLogLevel    = errors.New("log_level must be debug, info, warn, or error")
)

// Config is the CLI configuration. Values come from SCALAREVAL_* environment
// variables (optionally loaded from a .env file) and are overridden by flags.
type Config struct {
	Backend       string `envconfig:"BACKEND" default:"cpu"`
	Device        string `envconfig:"DEVICE" default:"emulator"`
	DeviceOrdinal int    `envconfig:"DEVICE_ORDINAL" default:"0"`
	Workers       int    `envconfig:"WORKERS" default:"0"`
	Chunks        int    `envconfig:"CHUNKS" default:"0"`
	CPUFallback   bool   `envconfig:"CPU_FALLBACK" default:"false"`
	MemoryLimit   int64  `envconfig:"MEMORY_LIMIT" default:"0"`
	IOLimit       int64  `envconfig:"IO_LIMIT" default:"0"`
	Verify        bool   `envconfig:"VERIFY" default:"false"`
	CacheSize     int64  `envconfig:"CACHE_SIZE" default:"0"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"text"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	S3Region    string `envconfig:"S3_REGION"`
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3PathStyle bool   `envconfig:"S3_PATH_STYLE" default:"false"`

	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioSecure    bool   `envconfig:"MINIO_SECURE" default:"true"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Backend:     "cpu",
		Device:      "emulator",
		LogLevel:    "info",
		LogFormat:   "text",
		MinioSecure: true,
	}
}

// LoadConfig reads envFile (if it exists) into the process environment and
// then processes the SCALAREVAL_* variables.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	if _, err := scalareval.ParseBackend(cfg.Backend); err != nil {
		return ErrInvalidBackend
	}
	if _, err := gpu.ParseKind(cfg.Device); err != nil {
		return ErrInvalidDevice
	}
	if cfg.Workers < 0 {
		return ErrInvalidWorkers
	}
	if cfg.Chunks < 0 {
		return ErrInvalidChunks
	}
	if cfg.MemoryLimit < 0 {
		return ErrInvalidMemoryLimit
	}
	if cfg.IOLimit < 0 {
		return ErrInvalidIOLimit
	}
	if cfg.CacheSize < 0 {
		return ErrInvalidCacheSize
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return ErrInvalidLogFormat
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return ErrInvalidLogLevel
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "error":
		err := level.UnmarshalText([]byte(s))
		return level, err
	}
	return level, fmt.Errorf("unknown level %q", s)
}

// NewLogger builds the engine logger for the configured level and format.
func NewLogger(cfg *Config) *scalareval.Logger {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if cfg.LogFormat == "json" {
		return scalareval.NewJSONLogger(level)
	}
	return scalareval.NewTextLogger(level)
}
