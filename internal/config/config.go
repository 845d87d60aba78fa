package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultMeetingAPIBaseURL is the CRM that owns consultation meetings.
const DefaultMeetingAPIBaseURL = "https://crm.pizeonfly.com/"

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Remote meeting API
	MeetingAPIBaseURL string
	MeetingAPITimeout time.Duration
	MeetingAPIDryRun  bool

	// Wizard session storage
	UseMemorySessions bool
	WizardSessionTTL  time.Duration
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool

	// HTTP surface
	OrganizerJWTSecret string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	DefaultTimezone string

	// SessionUserFile is the cached current-user record read by the terminal wizard.
	SessionUserFile string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MeetingAPIBaseURL: getEnv("MEETING_API_BASE_URL", DefaultMeetingAPIBaseURL),
		MeetingAPITimeout: getEnvAsDuration("MEETING_API_TIMEOUT", 0),
		MeetingAPIDryRun:  getEnvAsBool("MEETING_API_DRY_RUN", false),

		UseMemorySessions: getEnvAsBool("USE_MEMORY_SESSIONS", false),
		WizardSessionTTL:  getEnvAsDuration("WIZARD_SESSION_TTL", 24*time.Hour),
		RedisAddr:         getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),

		OrganizerJWTSecret: getEnv("ORGANIZER_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "Asia/Kolkata"),
		SessionUserFile: getEnv("SESSION_USER_FILE", defaultSessionUserFile()),
	}
}

func defaultSessionUserFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "user.json"
	}
	return dir + string(os.PathSeparator) + "consult-booking" + string(os.PathSeparator) + "user.json"
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

// getEnvAsList splits a comma separated variable, dropping blank entries.
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
