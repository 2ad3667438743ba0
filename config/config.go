package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
)

const (
	DefaultAddr          = ":8080"
	DefaultModel         = "gemini-2.0-flash-001"
	DefaultRateLimit     = 20
	DefaultVoiceLanguage = "en-US"
)

// Config holds everything read from the environment at process start.
type Config struct {
	Addr  string
	Debug bool

	GeminiAPIKey string
	GeminiModel  string

	JWTSecret string
	RateLimit float64

	VoiceEnabled  bool
	VoiceLanguage string
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return FromEnv(os.LookupEnv)
}

// FromEnv reads the configuration through lookup.
func FromEnv(lookup LookupFunc) (Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Addr:          get("HTTP_ADDR", DefaultAddr),
		GeminiAPIKey:  get("GEMINI_API_KEY", get("GOOGLE_API_KEY", "")),
		GeminiModel:   get("GEMINI_MODEL", DefaultModel),
		JWTSecret:     get("JWT_SECRET", ""),
		RateLimit:     DefaultRateLimit,
		VoiceLanguage: get("VOICE_LANGUAGE", DefaultVoiceLanguage),
	}

	var err error
	if cfg.Debug, err = parseBool(get("DEBUG", "false")); err != nil {
		return Config{}, fmt.Errorf("DEBUG: %w", err)
	}
	if cfg.VoiceEnabled, err = parseBool(get("VOICE_ENABLED", "false")); err != nil {
		return Config{}, fmt.Errorf("VOICE_ENABLED: %w", err)
	}
	if v := get("RATE_LIMIT", ""); v != "" {
		cfg.RateLimit, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("RATE_LIMIT: %w", err)
		}
		if cfg.RateLimit <= 0 {
			return Config{}, fmt.Errorf("RATE_LIMIT: must be positive, got %v", cfg.RateLimit)
		}
	}

	// Tokens only need to survive the process lifetime.
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString()
	}

	return cfg, nil
}

// HasCredential reports whether a Gemini API key was configured.
func (c Config) HasCredential() bool {
	return c.GeminiAPIKey != ""
}

func parseBool(v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse bool %q: %w", v, err)
	}
	return b, nil
}
