package utils

import (
	"errors"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

var (
	ErrMissingSessionSecret = errors.New("SESSION_SECRET is required")
	ErrWildcardOrigin       = errors.New("ALLOWED_ORIGINS must list explicit origins in production")
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Email     EmailConfig
	OTP       OTPConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name           string
	Env            string
	Port           string
	Debug          bool
	LogPath        string
	PostLoginURL   string
	AllowedOrigins []string
}

// IsProduction reports whether cookies must be marked Secure.
func (a AppConfig) IsProduction() bool {
	return a.Env == EnvProduction
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
}

type SessionConfig struct {
	Secret     string
	ExpiryDays int
	CookieName string
}

func (s SessionConfig) Expiry() time.Duration {
	return time.Duration(s.ExpiryDays) * 24 * time.Hour
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type OTPConfig struct {
	ExpiryMinutes          int
	Length                 int
	RetentionHours         int
	InvalidatePrevious     bool
	AutoLoginExpiryMinutes int
}

func (o OTPConfig) Expiry() time.Duration {
	return time.Duration(o.ExpiryMinutes) * time.Minute
}

func (o OTPConfig) Retention() time.Duration {
	return time.Duration(o.RetentionHours) * time.Hour
}

func (o OTPConfig) AutoLoginExpiry() time.Duration {
	return time.Duration(o.AutoLoginExpiryMinutes) * time.Minute
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// LoadConfig reads .env (when present) and the process environment.
// The returned config has already passed Validate.
func LoadConfig(envFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("APP_NAME", "eventhub")
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("POST_LOGIN_URL", "/dashboard")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("SESSION_EXPIRY_DAYS", 30)
	v.SetDefault("SESSION_COOKIE_NAME", "session_token")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("EMAIL_FROM", "noreply@eventhub.local")
	v.SetDefault("OTP_EXPIRY_MINUTES", 10)
	v.SetDefault("OTP_LENGTH", 6)
	v.SetDefault("OTP_RETENTION_HOURS", 24)
	v.SetDefault("OTP_INVALIDATE_PREVIOUS", false)
	v.SetDefault("AUTO_LOGIN_EXPIRY_MINUTES", 15)
	v.SetDefault("RATE_LIMIT_RPS", 1.0)
	v.SetDefault("RATE_LIMIT_BURST", 5)

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:           v.GetString("APP_NAME"),
			Env:            strings.ToLower(v.GetString("APP_ENV")),
			Port:           v.GetString("PORT"),
			Debug:          v.GetBool("DEBUG"),
			LogPath:        v.GetString("LOG_PATH"),
			PostLoginURL:   v.GetString("POST_LOGIN_URL"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Session: SessionConfig{
			Secret:     v.GetString("SESSION_SECRET"),
			ExpiryDays: v.GetInt("SESSION_EXPIRY_DAYS"),
			CookieName: v.GetString("SESSION_COOKIE_NAME"),
		},
		Email: EmailConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASS"),
			From:     v.GetString("EMAIL_FROM"),
		},
		OTP: OTPConfig{
			ExpiryMinutes:          v.GetInt("OTP_EXPIRY_MINUTES"),
			Length:                 v.GetInt("OTP_LENGTH"),
			RetentionHours:         v.GetInt("OTP_RETENTION_HOURS"),
			InvalidatePrevious:     v.GetBool("OTP_INVALIDATE_PREVIOUS"),
			AutoLoginExpiryMinutes: v.GetInt("AUTO_LOGIN_EXPIRY_MINUTES"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Session.Secret) == "" {
		return ErrMissingSessionSecret
	}
	if c.App.IsProduction() && slices.Contains(c.App.AllowedOrigins, "*") {
		return ErrWildcardOrigin
	}
	if c.Session.ExpiryDays <= 0 {
		c.Session.ExpiryDays = 30
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "session_token"
	}
	if c.OTP.Length <= 0 {
		c.OTP.Length = 6
	}
	if c.OTP.ExpiryMinutes <= 0 {
		c.OTP.ExpiryMinutes = 10
	}
	if c.OTP.RetentionHours <= 0 {
		c.OTP.RetentionHours = 24
	}
	if c.OTP.AutoLoginExpiryMinutes <= 0 {
		c.OTP.AutoLoginExpiryMinutes = 15
	}
	if c.RateLimit.RPS <= 0 {
		c.RateLimit.RPS = 1
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 5
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
