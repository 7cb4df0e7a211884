package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "LLM_PROVIDER", "LLM_FALLBACK_PROVIDER", "GEMINI_API_KEY",
		"BEDROCK_MODEL_ID", "OPENAI_API_KEY", "POI_RADIUS_METERS", "POI_INCLUDE_AREAS",
		"SEARCH_ALLOWED_DOMAINS", "SESSION_BACKEND", "REDIS_ADDR", "SESSIONS_TABLE",
		"GEOCODER_TIMEOUT", "RATE_LIMIT_RPS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.LLMProvider != ProviderGemini {
		t.Fatalf("expected gemini provider by default, got %s", cfg.LLMProvider)
	}
	if cfg.GeminiModel != "gemini-1.5-flash" {
		t.Fatalf("expected default gemini model, got %s", cfg.GeminiModel)
	}
	if cfg.POIRadiusMeters != 5000 || cfg.POIIncludeAreas {
		t.Fatalf("expected 5km point-only search by default, got %d/%v", cfg.POIRadiusMeters, cfg.POIIncludeAreas)
	}
	if cfg.GeocoderTimeout != 15*time.Second || cfg.LLMTimeout != 35*time.Second {
		t.Fatalf("unexpected timeouts: geocoder=%s llm=%s", cfg.GeocoderTimeout, cfg.LLMTimeout)
	}
	if cfg.SessionBackend != SessionBackendMemory {
		t.Fatalf("expected memory session backend, got %s", cfg.SessionBackend)
	}
	if cfg.SearchAllowedDomains != nil {
		t.Fatalf("expected no allowlist, got %v", cfg.SearchAllowedDomains)
	}
	if !cfg.SearchSafe {
		t.Fatalf("expected safe search on by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("POI_RADIUS_METERS", "8000")
	t.Setenv("POI_INCLUDE_AREAS", "true")
	t.Setenv("SEARCH_ALLOWED_DOMAINS", "cdc.gov, nih.gov ,,mayoclinic.org")
	t.Setenv("GEOCODER_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("LLM_PROVIDER", " OpenAI ")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.POIRadiusMeters != 8000 || !cfg.POIIncludeAreas {
		t.Fatalf("expected 8km point+area search, got %d/%v", cfg.POIRadiusMeters, cfg.POIIncludeAreas)
	}
	want := []string{"cdc.gov", "nih.gov", "mayoclinic.org"}
	if len(cfg.SearchAllowedDomains) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.SearchAllowedDomains)
	}
	for i := range want {
		if cfg.SearchAllowedDomains[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, cfg.SearchAllowedDomains)
		}
	}
	if cfg.GeocoderTimeout != 5*time.Second {
		t.Fatalf("expected geocoder timeout override, got %s", cfg.GeocoderTimeout)
	}
	if cfg.RateLimitRPS != 0.5 {
		t.Fatalf("expected rate override, got %v", cfg.RateLimitRPS)
	}
	if cfg.LLMProvider != ProviderOpenAI {
		t.Fatalf("expected normalized provider, got %q", cfg.LLMProvider)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"gemini with key", func(c *Config) { c.GeminiAPIKey = "k" }, false},
		{"gemini without key", func(c *Config) {}, true},
		{"bedrock needs model", func(c *Config) { c.LLMProvider = ProviderBedrock }, true},
		{"openai with key", func(c *Config) { c.LLMProvider = ProviderOpenAI; c.OpenAIAPIKey = "k" }, false},
		{"unknown provider", func(c *Config) { c.LLMProvider = "llama" }, true},
		{"fallback same as primary", func(c *Config) { c.GeminiAPIKey = "k"; c.LLMFallbackProvider = ProviderGemini }, true},
		{"fallback missing creds", func(c *Config) { c.GeminiAPIKey = "k"; c.LLMFallbackProvider = ProviderOpenAI }, true},
		{"non-positive radius", func(c *Config) { c.GeminiAPIKey = "k"; c.POIRadiusMeters = 0 }, true},
		{"redis without addr", func(c *Config) { c.GeminiAPIKey = "k"; c.SessionBackend = SessionBackendRedis }, true},
		{"redis with addr", func(c *Config) {
			c.GeminiAPIKey = "k"
			c.SessionBackend = SessionBackendRedis
			c.RedisAddr = "localhost:6379"
		}, false},
		{"unknown backend", func(c *Config) { c.GeminiAPIKey = "k"; c.SessionBackend = "etcd" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSearchEnabled(t *testing.T) {
	cfg := &Config{SearchAPIKey: "k"}
	if cfg.SearchEnabled() {
		t.Fatal("expected search disabled without engine id")
	}
	cfg.SearchEngineID = "cx"
	if !cfg.SearchEnabled() {
		t.Fatal("expected search enabled")
	}
}
