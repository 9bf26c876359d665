package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_ThresholdAboveOne(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.SimilarityThreshold = 1.2

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for similarity threshold >= 1")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.Retrieval.DefaultLimit != 10 {
		t.Errorf("default limit = %d, want 10", cfg.Retrieval.DefaultLimit)
	}
	if cfg.Retrieval.SimilarityThreshold != 0.7 {
		t.Errorf("similarity threshold = %v, want 0.7", cfg.Retrieval.SimilarityThreshold)
	}
	if cfg.Cache.TTLSec != 3600 {
		t.Errorf("cache ttl = %d, want 3600", cfg.Cache.TTLSec)
	}
	if cfg.Cache.MaxMessages != 20 {
		t.Errorf("cache max messages = %d, want 20", cfg.Cache.MaxMessages)
	}
	if cfg.Cache.ConfidenceFloor != 0.4 {
		t.Errorf("confidence floor = %v, want 0.4", cfg.Cache.ConfidenceFloor)
	}
	if cfg.Cache.SweepIntervalSec != 600 {
		t.Errorf("sweep interval = %d, want 600", cfg.Cache.SweepIntervalSec)
	}
	if cfg.Cache.MaxChunks != 50 {
		t.Errorf("max chunks = %d, want 50", cfg.Cache.MaxChunks)
	}
	if len(cfg.Embedding.Models) == 0 {
		t.Error("expected default embedding model chain")
	}
	if cfg.Embedding.MaxInputChars != 8000 {
		t.Errorf("max input chars = %d, want 8000", cfg.Embedding.MaxInputChars)
	}
	if cfg.Storage.KeyPrefix != "grounder:" {
		t.Errorf("key prefix = %q, want %q", cfg.Storage.KeyPrefix, "grounder:")
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.DefaultLimit = 25
	cfg.Cache.MaxMessages = 5
	cfg.ApplyDefaults()

	if cfg.Retrieval.DefaultLimit != 25 {
		t.Errorf("explicit default limit overwritten: %d", cfg.Retrieval.DefaultLimit)
	}
	if cfg.Cache.MaxMessages != 5 {
		t.Errorf("explicit max messages overwritten: %d", cfg.Cache.MaxMessages)
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("GROUNDER_TEST_VAR", "hello")
	defer os.Unsetenv("GROUNDER_TEST_VAR")

	tests := []struct {
		in, want string
	}{
		{"key: ${GROUNDER_TEST_VAR}", "key: hello"},
		{"key: ${GROUNDER_MISSING_VAR:-fallback}", "key: fallback"},
		{"key: plain", "key: plain"},
	}
	for _, tt := range tests {
		if got := string(expandEnvVars([]byte(tt.in))); got != tt.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
