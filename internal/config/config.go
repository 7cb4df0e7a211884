package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM providers understood by the bootstrap package.
const (
	ProviderGemini  = "gemini"
	ProviderBedrock = "bedrock"
	ProviderOpenAI  = "openai"
)

// Session backends.
const (
	SessionBackendMemory   = "memory"
	SessionBackendRedis    = "redis"
	SessionBackendDynamoDB = "dynamodb"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Language model
	LLMProvider         string
	LLMFallbackProvider string
	LLMTimeout          time.Duration
	GeminiAPIKey        string
	GeminiModel         string
	BedrockModelID      string
	OpenAIAPIKey        string
	OpenAIModel         string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Geocoding (Nominatim-compatible)
	GeocoderURL       string
	GeocoderAPIKey    string
	GeocoderEmail     string
	GeocoderUserAgent string
	GeocoderCountry   string
	GeocoderTimeout   time.Duration

	// Points of interest (Overpass-compatible)
	POIURL          string
	POIAmenity      string
	POIRadiusMeters int
	POIIncludeAreas bool
	POITimeout      time.Duration

	// Web search (Google Custom Search)
	SearchAPIKey         string
	SearchEngineID       string
	SearchAllowedDomains []string
	SearchSafe           bool
	SearchTimeout        time.Duration

	// Sessions
	SessionBackend string
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPassword  string
	SessionsTable  string

	// Audit log
	DatabaseURL string

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		LLMProvider:         strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", ProviderGemini))),
		LLMFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("LLM_FALLBACK_PROVIDER", ""))),
		LLMTimeout:          getEnvAsDuration("LLM_TIMEOUT", 35*time.Second),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		GeocoderURL:       getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
		GeocoderAPIKey:    getEnv("GEOCODER_API_KEY", ""),
		GeocoderEmail:     getEnv("GEOCODER_EMAIL", ""),
		GeocoderUserAgent: getEnv("GEOCODER_USER_AGENT", "healthcare-agent/1.0"),
		GeocoderCountry:   strings.ToLower(getEnv("GEOCODER_COUNTRY", "us")),
		GeocoderTimeout:   getEnvAsDuration("GEOCODER_TIMEOUT", 15*time.Second),

		POIURL:          getEnv("POI_URL", "https://overpass-api.de/api/interpreter"),
		POIAmenity:      getEnv("POI_AMENITY", "pharmacy"),
		POIRadiusMeters: getEnvAsInt("POI_RADIUS_METERS", 5000),
		POIIncludeAreas: getEnvAsBool("POI_INCLUDE_AREAS", false),
		POITimeout:      getEnvAsDuration("POI_TIMEOUT", 25*time.Second),

		SearchAPIKey:         getEnv("SEARCH_API_KEY", ""),
		SearchEngineID:       getEnv("SEARCH_ENGINE_ID", ""),
		SearchAllowedDomains: getEnvAsList("SEARCH_ALLOWED_DOMAINS"),
		SearchSafe:           getEnvAsBool("SEARCH_SAFE", true),
		SearchTimeout:        getEnvAsDuration("SEARCH_TIMEOUT", 15*time.Second),

		SessionBackend: strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", SessionBackendMemory))),
		SessionTTL:     getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		SessionsTable:  getEnv("SESSIONS_TABLE", "chat_sessions"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
	}
}

// Validate checks that the selected providers and backends have what they need.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if err := c.validateProvider(c.LLMProvider); err != nil {
		return err
	}
	if c.LLMFallbackProvider != "" {
		if c.LLMFallbackProvider == c.LLMProvider {
			return fmt.Errorf("LLM_FALLBACK_PROVIDER must differ from LLM_PROVIDER")
		}
		if err := c.validateProvider(c.LLMFallbackProvider); err != nil {
			return err
		}
	}
	if c.POIRadiusMeters <= 0 {
		return fmt.Errorf("POI_RADIUS_METERS must be > 0")
	}
	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis session backend")
		}
	case SessionBackendDynamoDB:
		if c.SessionsTable == "" {
			return fmt.Errorf("SESSIONS_TABLE is required for the dynamodb session backend")
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	return nil
}

func (c *Config) validateProvider(provider string) error {
	switch provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY not set. Put it in a .env file or your env")
		}
	case ProviderBedrock:
		if c.BedrockModelID == "" {
			return fmt.Errorf("BEDROCK_MODEL_ID is required for the bedrock provider")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown LLM provider %q", provider)
	}
	return nil
}

// SearchEnabled reports whether web search credentials are configured.
func (c *Config) SearchEnabled() bool {
	return c.SearchAPIKey != "" && c.SearchEngineID != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
