package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.UpstreamURL == "" {
		t.Error("UpstreamURL default missing")
	}
	if cfg.CacheTTL != 6*time.Hour {
		t.Errorf("CacheTTL = %v, want 6h", cfg.CacheTTL)
	}
	if cfg.HasRedis() {
		t.Error("HasRedis should be false without REDIS_ADDR")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DOWNLOAD_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.HasRedis() {
		t.Error("HasRedis should be true")
	}
	if cfg.DownloadTimeout != 5*time.Second {
		t.Errorf("DownloadTimeout = %v, want 5s", cfg.DownloadTimeout)
	}
}
