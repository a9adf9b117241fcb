package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPort          = "4000"
	DefaultAllowedOrigin = "http://localhost:3000"
	DefaultSendBuffer    = 256
)

// Config is the hub process configuration.
type Config struct {
	Port           string
	AllowedOrigins []string
	Env            string
	LogLevel       string
	StaticDir      string
	SendBuffer     int
	MDNS           bool
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Load reads .env when present and then the process environment.
// The returned bool reports whether a .env file was loaded.
func Load() (Config, bool, error) {
	loaded := godotenv.Load() == nil
	cfg, err := FromEnv()
	return cfg, loaded, err
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:           getenv("PORT", DefaultPort),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", DefaultAllowedOrigin)),
		Env:            os.Getenv("ENV"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		StaticDir:      os.Getenv("STATIC_DIR"),
		SendBuffer:     DefaultSendBuffer,
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("config: PORT %q: %w", cfg.Port, err)
	}

	if v := os.Getenv("SEND_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: SEND_BUFFER must be a positive integer, got %q", v)
		}
		cfg.SendBuffer = n
	}

	if v := os.Getenv("MDNS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: MDNS %q: %w", v, err)
		}
		cfg.MDNS = b
	}

	return cfg, nil
}

// OriginAllowed applies the allowed-origin policy. An empty origin comes from a
// non-browser client and is always accepted.
func (c Config) OriginAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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
