package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the grounder API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Cache     CacheConfig     `yaml:"cache"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings. Models is the ordered
// fallback chain: the first model that accepts the request wins.
type EmbeddingConfig struct {
	APIKey          string   `yaml:"api_key"`
	BaseURL         string   `yaml:"base_url"`
	Models          []string `yaml:"models"`
	MaxInputChars   int      `yaml:"max_input_chars"`
	MemoryCacheSize int      `yaml:"memory_cache_size"`
}

// RetrievalConfig holds search defaults.
type RetrievalConfig struct {
	DefaultLimit        int     `yaml:"default_limit"`
	MaxLimit            int     `yaml:"max_limit"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// CacheConfig holds session context cache settings.
type CacheConfig struct {
	TTLSec                int     `yaml:"ttl_sec"`
	SweepIntervalSec      int     `yaml:"sweep_interval_sec"`
	MaxMessages           int     `yaml:"max_messages"`
	ConfidenceFloor       float64 `yaml:"confidence_floor"`
	ConfidenceMinMessages int     `yaml:"confidence_min_messages"`
	MaxChunks             int     `yaml:"max_chunks"`
	MaxChunksPerDocument  int     `yaml:"max_chunks_per_document"`
	PrefilterLimit        int     `yaml:"prefilter_limit"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if len(c.Embedding.Models) == 0 {
		c.Embedding.Models = []string{"text-embedding-3-small", "text-embedding-ada-002"}
	}
	if c.Embedding.MaxInputChars <= 0 {
		c.Embedding.MaxInputChars = 8000
	}
	if c.Embedding.MemoryCacheSize <= 0 {
		c.Embedding.MemoryCacheSize = 2048
	}
	if c.Retrieval.DefaultLimit <= 0 {
		c.Retrieval.DefaultLimit = 10
	}
	if c.Retrieval.MaxLimit <= 0 {
		c.Retrieval.MaxLimit = 50
	}
	if c.Retrieval.SimilarityThreshold <= 0 {
		c.Retrieval.SimilarityThreshold = 0.7
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Cache.SweepIntervalSec <= 0 {
		c.Cache.SweepIntervalSec = 600
	}
	if c.Cache.MaxMessages <= 0 {
		c.Cache.MaxMessages = 20
	}
	if c.Cache.ConfidenceFloor <= 0 {
		c.Cache.ConfidenceFloor = 0.4
	}
	if c.Cache.ConfidenceMinMessages <= 0 {
		c.Cache.ConfidenceMinMessages = 5
	}
	if c.Cache.MaxChunks <= 0 {
		c.Cache.MaxChunks = 50
	}
	if c.Cache.MaxChunksPerDocument <= 0 {
		c.Cache.MaxChunksPerDocument = 100
	}
	if c.Cache.PrefilterLimit <= 0 {
		c.Cache.PrefilterLimit = 20
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "grounder:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Retrieval.SimilarityThreshold >= 1 {
		return fmt.Errorf("retrieval.similarity_threshold must be below 1, got %v", c.Retrieval.SimilarityThreshold)
	}
	if c.Cache.ConfidenceFloor >= 1 {
		return fmt.Errorf("cache.confidence_floor must be below 1, got %v", c.Cache.ConfidenceFloor)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
