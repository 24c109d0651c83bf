package utils

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"palmer/pkg/database"
)

const (
	DefaultListingURL = "https://devpost.com/hackathons"
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// SourceConfig names one listing endpoint and the payload shape it serves.
type SourceConfig struct {
	Kind string // "html" or "json"
	URL  string
}

type Config struct {
	DB           database.Config
	Sources      []SourceConfig
	FetchTimeout time.Duration
	FetchMode    string // "http" or "browser"
	UserAgent    string
	HTTPAddr     string
	GRPCAddr     string
	SearchLimit  int // default page size for full-text search
	LogLevel     string
	LogFormat    string // "json" or "console"
}

func LoadConfig() (Config, error) {
	sources, err := ParseSources(getEnv("PALMER_SOURCES", "html="+DefaultListingURL))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DB:           database.DefaultConfig(),
		Sources:      sources,
		FetchTimeout: getEnvDuration("PALMER_FETCH_TIMEOUT", 10*time.Second),
		FetchMode:    getEnv("PALMER_FETCH_MODE", "http"),
		UserAgent:    getEnv("PALMER_USER_AGENT", DefaultUserAgent),
		HTTPAddr:     getEnv("PALMER_HTTP_ADDR", ":8080"),
		GRPCAddr:     getEnv("PALMER_GRPC_ADDR", ":9090"),
		SearchLimit:  getEnvInt("PALMER_SEARCH_LIMIT", 20),
		LogLevel:     getEnv("PALMER_LOG_LEVEL", "info"),
		LogFormat:    getEnv("PALMER_LOG_FORMAT", "json"),
	}

	switch cfg.FetchMode {
	case "http", "browser":
	default:
		return Config{}, eris.Errorf("invalid PALMER_FETCH_MODE %q", cfg.FetchMode)
	}
	return cfg, nil
}

// ParseSources parses a comma separated list of kind=url pairs, e.g.
// "json=https://devpost.com/api/hackathons,html=https://devpost.com/hackathons".
func ParseSources(s string) ([]SourceConfig, error) {
	var out []SourceConfig
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind, u, ok := strings.Cut(part, "=")
		kind = strings.ToLower(strings.TrimSpace(kind))
		u = strings.TrimSpace(u)
		if !ok || u == "" {
			return nil, eris.Errorf("invalid source %q: want kind=url", part)
		}
		if kind != "html" && kind != "json" {
			return nil, eris.Errorf("invalid source kind %q", kind)
		}
		out = append(out, SourceConfig{Kind: kind, URL: u})
	}
	if len(out) == 0 {
		return nil, eris.New("no sources configured")
	}
	return out, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
