package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	AdminJWTSecret string

	CORSAllowedOrigins []string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	AppointmentsTable string
	SchedulesTable    string
	ResourcesTable    string
	SlotLocksTable    string

	BookingEventsQueueURL string
	UseMemoryQueue        bool

	AuditArchiveBucket string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// AvailabilityOnError selects the orchestrator's degradation mode when a
	// dependency lookup fails mid-check: "permit" or "deny".
	AvailabilityOnError string

	SlotGranularityMinutes   int
	RecurrenceMaxOccurrences int
	RecurrenceRevalidate     bool

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		AppointmentsTable: getEnv("APPOINTMENTS_TABLE", "appointments"),
		SchedulesTable:    getEnv("STAFF_SCHEDULES_TABLE", "staff_schedules"),
		ResourcesTable:    getEnv("RESOURCES_TABLE", "resources"),
		SlotLocksTable:    getEnv("SLOT_LOCKS_TABLE", "slot_locks"),

		BookingEventsQueueURL: getEnv("BOOKING_EVENTS_QUEUE_URL", ""),
		UseMemoryQueue:        getEnvAsBool("USE_MEMORY_QUEUE", false),

		AuditArchiveBucket: getEnv("AUDIT_ARCHIVE_BUCKET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AvailabilityOnError: strings.ToLower(strings.TrimSpace(getEnv("AVAILABILITY_ON_ERROR", "permit"))),

		SlotGranularityMinutes:   getEnvAsInt("SLOT_GRANULARITY_MINUTES", 30),
		RecurrenceMaxOccurrences: getEnvAsInt("RECURRENCE_MAX_OCCURRENCES", 50),
		RecurrenceRevalidate:     getEnvAsBool("RECURRENCE_REVALIDATE", false),

		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsSlice(key string) []string {
	raw := getEnv(key, "")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
