package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full server configuration.
type Config struct {
	Server Server
	Log    Log
	NCBI   NCBI
	Redis  RedisConfig
	// Preload lists FASTA files added to the registry at startup.
	Preload []string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type Log struct {
	Level  string
	Format string
}

// NCBI configures the efetch client and its cache.
type NCBI struct {
	BaseURL          string
	APIKey           string
	Email            string
	Timeout          time.Duration
	CacheTTL         time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// RedisConfig enables the shared NCBI cache when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}

	cfg := Config{
		Server: Server{
			Addr:            e.str("SEQREG_ADDR", ":8080"),
			RequestTimeout:  e.duration("SEQREG_REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: e.duration("SEQREG_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: Log{
			Level:  strings.ToLower(e.str("SEQREG_LOG_LEVEL", "info")),
			Format: strings.ToLower(e.str("SEQREG_LOG_FORMAT", "json")),
		},
		NCBI: NCBI{
			BaseURL:          e.str("NCBI_BASE_URL", ""),
			APIKey:           e.str("NCBI_API_KEY", ""),
			Email:            e.str("NCBI_EMAIL", ""),
			Timeout:          e.duration("NCBI_TIMEOUT", 10*time.Second),
			CacheTTL:         e.duration("NCBI_CACHE_TTL", 10*time.Minute),
			BreakerThreshold: e.integer("NCBI_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  e.duration("NCBI_BREAKER_COOLDOWN", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Preload: e.list("SEQREG_PRELOAD"),
	}
	if e.err != nil {
		return Config{}, e.err
	}
	return cfg, nil
}

// env reads typed values and keeps the first parse error.
type env struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		e.fail(fmt.Errorf("%s: invalid duration %q", key, raw))
		return def
	}
	return d
}

func (e *env) integer(key string, def int) int {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		e.fail(fmt.Errorf("%s: invalid integer %q", key, raw))
		return def
	}
	return n
}

func (e *env) list(key string) []string {
	var out []string
	for part := range strings.SplitSeq(e.str(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *env) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}
