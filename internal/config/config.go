package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM provider names accepted in LLM_PROVIDER.
const (
	LLMProviderNone    = "none"
	LLMProviderGateway = "gateway"
	LLMProviderGemini  = "gemini"
	LLMProviderBedrock = "bedrock"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Bearer tokens are HS256 JWTs signed by the identity provider.
	AuthJWTSecret string
	AuthRequired  bool

	// LLM classification
	LLMProvider    string
	LLMGatewayURL  string
	LLMAPIKey      string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMTemperature float32
	GeminiAPIKey   string
	GeminiModelID  string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	BedrockModelID      string

	// Geocoding
	LocationIQAPIKey    string
	LocationIQBaseURL   string
	LocationIQMapsURL   string
	NominatimBaseURL    string
	GeocodeCountryCodes string
	GeocodeRPS          float64
	GeocodeCacheTTL     time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		AuthRequired:  getEnvAsBool("AUTH_REQUIRED", true),

		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", LLMProviderNone))),
		LLMGatewayURL:  getEnv("LLM_GATEWAY_URL", ""),
		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "google/gemini-2.5-flash"),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 10*time.Second),
		LLMTemperature: float32(getEnvAsFloat("LLM_TEMPERATURE", 0.2)),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),

		LocationIQAPIKey:    getEnv("LOCATIONIQ_API_KEY", ""),
		LocationIQBaseURL:   getEnv("LOCATIONIQ_BASE_URL", "https://us1.locationiq.com/v1"),
		LocationIQMapsURL:   getEnv("LOCATIONIQ_MAPS_URL", "https://maps.locationiq.com/v3/staticmap"),
		NominatimBaseURL:    getEnv("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocodeCountryCodes: getEnv("GEOCODE_COUNTRY_CODES", "in"),
		GeocodeRPS:          getEnvAsFloat("GEOCODE_RPS", 2),
		GeocodeCacheTTL:     getEnvAsDuration("GEOCODE_CACHE_TTL", 24*time.Hour),
	}
}

// Validate reports configuration the process cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT must be numeric, got %q", c.Port))
	}
	if c.AuthRequired && strings.TrimSpace(c.AuthJWTSecret) == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required when AUTH_REQUIRED is true"))
	}
	switch c.LLMProvider {
	case "", LLMProviderNone, LLMProviderGateway, LLMProviderGemini, LLMProviderBedrock:
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER %q is not one of none, gateway, gemini, bedrock", c.LLMProvider))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT must be positive"))
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		errs = append(errs, fmt.Errorf("LLM_TEMPERATURE %.2f out of range", c.LLMTemperature))
	}
	if c.RateLimitRPS < 0 || c.GeocodeRPS < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	return errors.Join(errs...)
}

// Issues lists settings that leave a feature running in degraded mode.
func (c *Config) Issues() []string {
	var issues []string
	if !c.LLMConfigured() {
		issues = append(issues, "LLM classification is not configured - grievances will use keyword analysis")
	}
	if strings.TrimSpace(c.LocationIQAPIKey) == "" {
		issues = append(issues, "LOCATIONIQ_API_KEY is not configured - location services will use fallback")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		issues = append(issues, "DATABASE_URL is not configured - grievances are stored in memory")
	}
	if strings.TrimSpace(c.RedisAddr) == "" {
		issues = append(issues, "REDIS_ADDR is not configured - geocoding results are not cached")
	}
	if !c.AuthRequired {
		issues = append(issues, "AUTH_REQUIRED is false - requests are not authenticated")
	}
	return issues
}

// LLMConfigured reports whether the selected provider has its credentials.
func (c *Config) LLMConfigured() bool {
	switch c.LLMProvider {
	case LLMProviderGateway:
		return strings.TrimSpace(c.LLMGatewayURL) != "" && strings.TrimSpace(c.LLMAPIKey) != ""
	case LLMProviderGemini:
		return strings.TrimSpace(c.GeminiAPIKey) != ""
	case LLMProviderBedrock:
		return strings.TrimSpace(c.BedrockModelID) != ""
	default:
		return false
	}
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

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
