package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config collects every environment knob the bot reads. Load it once in main
// and pass it down; nothing else should touch os.Getenv.
type Config struct {
	Port  string
	DBDSN string

	MetaAPIVersion    string
	MetaPhoneNumberID string
	MetaAccessToken   string
	MetaVerifyToken   string

	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string
	LLMTimeout time.Duration

	AdminToken string

	Timezone     string
	ReminderHour int

	TicketDir string

	AllowedOrigins []string
}

// Load reads configuration from the environment. Missing Meta or LLM
// credentials are reported as an error because the bot cannot run without
// them; everything else has a default.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DBDSN:             os.Getenv("DB_DSN"),
		MetaAPIVersion:    getEnv("META_API_VERSION", "v22.0"),
		MetaPhoneNumberID: os.Getenv("META_PHONE_NUMBER_ID"),
		MetaAccessToken:   os.Getenv("META_ACCESS_TOKEN"),
		MetaVerifyToken:   os.Getenv("META_VERIFY_TOKEN"),
		LLMAPIKey:         os.Getenv("LLM_API_KEY"),
		LLMBaseURL:        getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMModel:          getEnv("LLM_MODEL", "llama-3.3-70b-versatile"),
		LLMTimeout:        getDurationEnv("LLM_TIMEOUT", 30*time.Second),
		AdminToken:        os.Getenv("ADMIN_TOKEN"),
		Timezone:          getEnv("TIMEZONE", "America/Mexico_City"),
		ReminderHour:      getIntEnv("REMINDER_HOUR", 10),
		TicketDir:         getEnv("TICKET_DIR", "public/uploads/tickets"),
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitCSV(origins)
	}

	if cfg.MetaPhoneNumberID == "" || cfg.MetaAccessToken == "" {
		return nil, fmt.Errorf("META_PHONE_NUMBER_ID and META_ACCESS_TOKEN are required")
	}
	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}

	return cfg, nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
