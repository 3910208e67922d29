// Package config provides configuration for the repository miner.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "REPOMINER_"

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "repominer.yaml"

// Config holds miner configuration.
type Config struct {
	// ReposRoot is the directory whose children are scanned for repositories.
	ReposRoot string `yaml:"repos_root"`
	// Marker is the entry that identifies a repository (e.g. ".git").
	Marker string `yaml:"marker"`
	// Database is a SQLite file path or a postgres:// URL.
	Database string `yaml:"database"`
	// Listen is the HTTP listen address for serve.
	Listen string `yaml:"listen"`
	// Inspector selects the history backend: "gogit" or "cli".
	Inspector string `yaml:"inspector"`
	// Extractors lists the enabled reference extractors.
	Extractors []string `yaml:"extractors"`
	// Ignore holds extra gitignore-style patterns applied to every scan.
	Ignore []string `yaml:"ignore"`
	// SkipVCS leaves .git, .hg and .svn directories out of scans.
	SkipVCS bool `yaml:"skip_vcs"`
	// CacheSize is the number of query results kept by the API cache.
	CacheSize int `yaml:"cache_size"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`
	// WatchDebounce delays a rebuild after a repository HEAD changes.
	WatchDebounce time.Duration `yaml:"watch_debounce"`
	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Neo4j Neo4j `yaml:"neo4j"`
}

// Neo4j holds the optional graph mirror settings. The mirror is disabled
// when URI is empty.
type Neo4j struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ReposRoot:       "repos",
		Marker:          ".git",
		Database:        "repository_graph.db",
		Listen:          ":8000",
		Inspector:       "gogit",
		Extractors:      []string{"zig"},
		CacheSize:       256,
		LogLevel:        "info",
		LogFormat:       "text",
		WatchDebounce:   2 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Neo4j:           Neo4j{Database: "neo4j"},
	}
}

// Load builds a Config from defaults, then the YAML file at path, then a
// .env file in the working directory, then REPOMINER_* variables. An empty
// path reads DefaultFile when it exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Values already in the environment win over .env.
	_ = godotenv.Load()

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ReposRoot = getEnv("REPOS_ROOT", c.ReposRoot)
	c.Marker = getEnv("MARKER", c.Marker)
	c.Database = getEnv("DATABASE", c.Database)
	c.Listen = getEnv("LISTEN", c.Listen)
	c.Inspector = getEnv("INSPECTOR", c.Inspector)
	c.Extractors = getEnvList("EXTRACTORS", c.Extractors)
	c.Ignore = getEnvList("IGNORE", c.Ignore)
	c.SkipVCS = getEnvBool("SKIP_VCS", c.SkipVCS)
	c.CacheSize = getEnvInt("CACHE_SIZE", c.CacheSize)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.WatchDebounce = getEnvDuration("WATCH_DEBOUNCE", c.WatchDebounce)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.Neo4j.URI = getEnv("NEO4J_URI", c.Neo4j.URI)
	c.Neo4j.User = getEnv("NEO4J_USER", c.Neo4j.User)
	c.Neo4j.Password = getEnv("NEO4J_PASSWORD", c.Neo4j.Password)
	c.Neo4j.Database = getEnv("NEO4J_DATABASE", c.Neo4j.Database)
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.ReposRoot == "" {
		return errors.New("repos_root must be set")
	}
	if c.Database == "" {
		return errors.New("database must be set")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
