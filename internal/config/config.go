package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Host              string
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// Storage settings
	DataDir      string
	SealKey      string        // encrypt records at rest when set
	ReapInterval time.Duration // 0 disables the background reaper

	// Redis settings, only used for shared rate limiting
	RedisURL string

	// Shutdown settings
	ShutdownTimeout time.Duration

	// Operational settings
	LogLevel     log.Level
	RequireHTTPS bool
	Gops         bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              "3000",
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB

		DataDir: "data",

		ShutdownTimeout: 5 * time.Second,

		LogLevel: log.InfoLevel,
	}
}

// Load reads configuration from environment variables and validates it.
// The data directory must already exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	// Server settings
	if host, ok := os.LookupEnv("HOST"); ok {
		cfg.Host = host
	}

	if port := os.Getenv("PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("PORT must be a valid number: %w", err)
		}
		if n < 0 || n > 65535 {
			return Config{}, errors.New("PORT must be between 0 and 65535")
		}
		cfg.Port = port
	}

	// Storage settings
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if err := checkDir(cfg.DataDir); err != nil {
		return Config{}, err
	}

	cfg.SealKey = os.Getenv("SEAL_KEY")

	if interval := os.Getenv("REAP_INTERVAL"); interval != "" {
		dur, err := time.ParseDuration(interval)
		if err != nil {
			return Config{}, fmt.Errorf(
				"REAP_INTERVAL must be a valid duration: %w", err)
		}
		if dur < 0 {
			return Config{}, errors.New("REAP_INTERVAL must not be negative")
		}
		cfg.ReapInterval = dur
	}

	// Redis settings
	cfg.RedisURL = os.Getenv("REDIS_URL")

	// Shutdown settings
	if timeout := os.Getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		dur, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf(
				"SHUTDOWN_TIMEOUT must be a valid duration: %w", err)
		}
		cfg.ShutdownTimeout = dur
	}

	// Operational settings
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		lvl, err := log.ParseLevel(level)
		if err != nil {
			return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = lvl
	}

	cfg.RequireHTTPS = isTrue(os.Getenv("REQUIRE_HTTPS"))
	cfg.Gops = isTrue(os.Getenv("GOPS"))

	return cfg, nil
}

// ListenAddr returns the address string for the HTTP server.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func checkDir(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("data directory %q: %w", dir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("data directory %q is not a directory", dir)
	}
	return nil
}

func isTrue(v string) bool {
	return v == "1" || v == "true"
}
