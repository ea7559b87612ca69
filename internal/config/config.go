package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env            string
	HTTPAddr       string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration
	ShutdownGrace  time.Duration
	HostSecret     string
	MaxBodyBytes   int64
}

func Load() (*Config, error) {
	env := getenv("PUYO_ENV", "development")

	// .env.{ENV} wins over .env; neither overrides the real environment
	loadEnvFile(".env." + env)
	loadEnvFile(".env")

	cfg := &Config{
		Env:            env,
		HTTPAddr:       getenv("PUYO_HTTP_ADDR", ":8080"),
		LogLevel:       getenv("PUYO_LOG_LEVEL", "info"),
		LogFormat:      getenv("PUYO_LOG_FORMAT", defaultLogFormat(env)),
		RequestTimeout: getenvDuration("PUYO_REQUEST_TIMEOUT", 60*time.Second),
		ShutdownGrace:  getenvDuration("PUYO_SHUTDOWN_GRACE", 10*time.Second),
		HostSecret:     getenv("PUYO_HOST_SECRET", ""),
		MaxBodyBytes:   int64(getenvInt("PUYO_MAX_BODY_BYTES", 1<<20)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("PUYO_LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("PUYO_REQUEST_TIMEOUT must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("PUYO_MAX_BODY_BYTES must be positive")
	}
	if c.Env == "production" && c.HostSecret == "" {
		return fmt.Errorf("PUYO_HOST_SECRET is required in production")
	}
	return nil
}

func (c *Config) Production() bool { return c.Env == "production" }

func defaultLogFormat(env string) string {
	if env == "production" {
		return "json"
	}
	return "console"
}

// loadEnvFile parses a KEY=VALUE file and sets any keys not already present in os env.
func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, val)
		}
	}
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getenvDuration accepts Go durations ("30s") or a bare number of seconds.
func getenvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
