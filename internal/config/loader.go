package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const envPrefix = "YOGA"

// Config captures environment driven configuration values for the yoga scheduler service.
type Config struct {
	Env             string
	HTTPPort        int
	DatabaseDSN     string
	CampusTimezone  string
	Location        *time.Location
	JWTSecret       string
	JWTIssuer       string
	LogLevel        string
	LocationsFile   string
	HorizonDays     int
	ExtendCron      string
	ShutdownTimeout time.Duration
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load parses configuration values from the process environment and an optional .env file.
//
// Every variable is read with the YOGA_ prefix. Optional values fall back to defaults while
// required and malformed values are collected and reported together.
func Load() (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		Env:            strings.ToLower(strings.TrimSpace(v.GetString("ENV"))),
		DatabaseDSN:    strings.TrimSpace(v.GetString("DATABASE_DSN")),
		CampusTimezone: strings.TrimSpace(v.GetString("CAMPUS_TIMEZONE")),
		JWTSecret:      strings.TrimSpace(v.GetString("JWT_SECRET")),
		JWTIssuer:      strings.TrimSpace(v.GetString("JWT_ISSUER")),
		LogLevel:       strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		LocationsFile:  strings.TrimSpace(v.GetString("LOCATIONS_FILE")),
		ExtendCron:     strings.TrimSpace(v.GetString("EXTEND_CRON")),
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if cfg.JWTSecret == "" {
		missing = append(missing, key("JWT_SECRET"))
	}

	switch cfg.Env {
	case EnvDevelopment, EnvProduction:
	default:
		invalid = append(invalid, key("ENV"))
	}

	if port, err := parseInt(v.GetString("HTTP_PORT")); err != nil || port <= 0 || port > 65535 {
		invalid = append(invalid, key("HTTP_PORT"))
	} else {
		cfg.HTTPPort = port
	}

	if cfg.DatabaseDSN == "" {
		invalid = append(invalid, key("DATABASE_DSN"))
	}

	if loc, err := time.LoadLocation(cfg.CampusTimezone); err != nil || cfg.CampusTimezone == "" {
		invalid = append(invalid, key("CAMPUS_TIMEZONE"))
	} else {
		cfg.Location = loc
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, key("LOG_LEVEL"))
	}

	if days, err := parseInt(v.GetString("HORIZON_DAYS")); err != nil || days <= 0 {
		invalid = append(invalid, key("HORIZON_DAYS"))
	} else {
		cfg.HorizonDays = days
	}

	if cfg.ExtendCron == "" {
		invalid = append(invalid, key("EXTEND_CRON"))
	}

	if timeout, err := time.ParseDuration(strings.TrimSpace(v.GetString("SHUTDOWN_TIMEOUT"))); err != nil || timeout <= 0 {
		invalid = append(invalid, key("SHUTDOWN_TIMEOUT"))
	} else {
		cfg.ShutdownTimeout = timeout
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("DATABASE_DSN", "file:yoga.db")
	v.SetDefault("CAMPUS_TIMEZONE", "America/Chicago")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HORIZON_DAYS", 56)
	v.SetDefault("EXTEND_CRON", "0 3 * * *")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
}

func key(name string) string {
	return envPrefix + "_" + name
}

func parseInt(value string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(value))
}
