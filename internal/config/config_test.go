package config

import "testing"

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 0},
		Database: DatabaseConfig{
			Driver: "redis",
			Addrs:  []string{"localhost:6379"},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Driver: "redis",
			Addrs:  []string{},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_MemoryDriverNeedsNoAddrs(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "memory"},
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error for memory driver: %v", err)
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "postgres"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Database.Driver != "redis" {
		t.Errorf("expected Driver='redis', got %q", cfg.Database.Driver)
	}
	if cfg.Database.KeyPrefix != "knowbase:" {
		t.Errorf("expected KeyPrefix='knowbase:', got %q", cfg.Database.KeyPrefix)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("expected Dimensions=1536, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Retrieval.SimilarityThreshold != 0.7 {
		t.Errorf("expected SimilarityThreshold=0.7, got %f", cfg.Retrieval.SimilarityThreshold)
	}
	if cfg.Retrieval.MaxDocuments != 3 {
		t.Errorf("expected MaxDocuments=3, got %d", cfg.Retrieval.MaxDocuments)
	}
	if cfg.Retrieval.MaxContextChars != 4000 {
		t.Errorf("expected MaxContextChars=4000, got %d", cfg.Retrieval.MaxContextChars)
	}
	if cfg.Retrieval.MinConfidence != 0.6 {
		t.Errorf("expected MinConfidence=0.6, got %f", cfg.Retrieval.MinConfidence)
	}
	if cfg.Retrieval.TrailerConfidence != 0.8 {
		t.Errorf("expected TrailerConfidence=0.8, got %f", cfg.Retrieval.TrailerConfidence)
	}
	if cfg.RateLimit.WindowMs != 60_000 {
		t.Errorf("expected WindowMs=60000, got %d", cfg.RateLimit.WindowMs)
	}
	if cfg.RateLimit.MaxRequests != 20 {
		t.Errorf("expected MaxRequests=20, got %d", cfg.RateLimit.MaxRequests)
	}
	if cfg.Ingestion.MaxFileBytes != 10*1024*1024 {
		t.Errorf("expected MaxFileBytes=10MiB, got %d", cfg.Ingestion.MaxFileBytes)
	}
	if len(cfg.Ingestion.AllowedTypes) != 3 {
		t.Errorf("expected 3 allowed types, got %v", cfg.Ingestion.AllowedTypes)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database:  DatabaseConfig{Driver: "memory", KeyPrefix: "custom:"},
		Retrieval: RetrievalConfig{SimilarityThreshold: 0.5, MaxDocuments: 5, MaxContextChars: 2000},
		RateLimit: RateLimitConfig{WindowMs: 1000, MaxRequests: 2},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("expected Driver='memory', got %q", cfg.Database.Driver)
	}
	if cfg.Database.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Database.KeyPrefix)
	}
	if cfg.Retrieval.SimilarityThreshold != 0.5 {
		t.Errorf("expected SimilarityThreshold=0.5, got %f", cfg.Retrieval.SimilarityThreshold)
	}
	if cfg.RateLimit.MaxRequests != 2 {
		t.Errorf("expected MaxRequests=2, got %d", cfg.RateLimit.MaxRequests)
	}
}
