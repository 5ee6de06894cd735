// Package config holds environment-backed application configuration.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every setting the server and CLI need. Values come from
// environment variables; a .env file is loaded by main before this runs.
type Config struct {
	Port           string
	Environment    string
	DatabasePath   string
	JWTSecret      string
	AllowedOrigins []string
	LogLevel       string

	// PrimaryTimezone is the reference timezone all appointment times are
	// normalized to before any scheduling logic sees them.
	PrimaryTimezone string

	ReminderLead time.Duration

	// CalendarProvider selects the external calendar backend: "google" or
	// "caldav". Empty disables sync.
	CalendarProvider string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleTokenFile    string
	GoogleCalendarID   string

	CalDAVEndpoint     string
	CalDAVUsername     string
	CalDAVPassword     string
	CalDAVCalendarName string
}

// New populates a Config from the environment.
func New() *Config {
	allowedOrigins := []string{"http://localhost:3000"}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		allowedOrigins = strings.Split(v, ",")
	}

	leadHours := 24
	if v := os.Getenv("REMINDER_LEAD_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			leadHours = n
		}
	}

	return &Config{
		Port:             getEnvOrDefault("PORT", "8080"),
		Environment:      getEnvOrDefault("ENVIRONMENT", "development"),
		DatabasePath:     getEnvOrDefault("DATABASE_PATH", "data/hopelink.db"),
		JWTSecret:        getEnvOrDefault("JWT_SECRET_KEY", "hopelink-secret-key-change-in-production"),
		AllowedOrigins:   allowedOrigins,
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		PrimaryTimezone:  getEnvOrDefault("PRIMARY_TIMEZONE", "UTC"),
		ReminderLead:     time.Duration(leadHours) * time.Hour,
		CalendarProvider: os.Getenv("CALENDAR_PROVIDER"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleTokenFile:    getEnvOrDefault("GOOGLE_TOKEN_FILE", "token.json"),
		GoogleCalendarID:   getEnvOrDefault("GOOGLE_CALENDAR_ID", "primary"),

		CalDAVEndpoint:     getEnvOrDefault("CALDAV_ENDPOINT", "https://caldav.icloud.com/"),
		CalDAVUsername:     os.Getenv("CALDAV_USERNAME"),
		CalDAVPassword:     os.Getenv("CALDAV_PASSWORD"),
		CalDAVCalendarName: os.Getenv("CALDAV_CALENDAR_NAME"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
