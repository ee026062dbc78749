package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Mpesa    MpesaConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

// MpesaConfig holds the Daraja credentials. Env selects sandbox or
// production hosts; everything else is identical across environments.
type MpesaConfig struct {
	Env             string // "sandbox" or "production"
	ConsumerKey     string
	ConsumerSecret  string
	Shortcode       string
	Passkey         string
	CallbackBaseURL string // e.g. https://fees.example.ac.ke - callback will be CallbackBaseURL + /api/v1/webhooks/mpesa
	STKTimeout      time.Duration
	SweepInterval   time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         envOr("PORT", "8080"),
			Env:          envOr("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             envOr("DB_DSN", "shulepay:shulepay@tcp(localhost:3306)/shulepay?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: envOr("JWT_ACCESS_SECRET", "change-me-in-production"),
			AccessExpiry: 15 * time.Minute,
			Issuer:       "shulepay",
		},
		Mpesa: MpesaConfig{
			Env:             envOr("MPESA_ENV", "sandbox"),
			ConsumerKey:     os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret:  os.Getenv("MPESA_CONSUMER_SECRET"),
			Shortcode:       envOr("MPESA_SHORTCODE", "174379"),
			Passkey:         os.Getenv("MPESA_PASSKEY"),
			CallbackBaseURL: os.Getenv("MPESA_CALLBACK_BASE_URL"),
			STKTimeout:      durationOr("MPESA_STK_TIMEOUT", 5*time.Minute),
			SweepInterval:   durationOr("MPESA_SWEEP_INTERVAL", time.Minute),
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
