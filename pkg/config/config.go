package config

import (
	"fmt"
	"time"
)

// Config is the full authd configuration, read from the environment with
// cleanenv. AUTH_DEV_MODE swaps PostgreSQL for in-memory repositories and
// the SMTP notifier for a mock.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Email    EmailConfig
	Social   SocialConfig

	BaseURL string `env:"AUTH_BASE_URL" env-default:"http://localhost:4000"`
	DevMode bool   `env:"AUTH_DEV_MODE" env-default:"false"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Host string `env:"AUTH_HOST" env-default:"localhost"`
	Port uint16 `env:"AUTH_PORT" env-default:"4000"`
}

// Addr returns the host:port listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `env:"AUTH_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"AUTH_PG_PORT" env-default:"5432"`
	Database string `env:"AUTH_PG_DATABASE" env-default:"auth_db"`
	User     string `env:"AUTH_PG_USER" env-default:"auth"`
	Password string `env:"AUTH_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"AUTH_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// JWTConfig holds token signing settings. Alg selects HS256 (shared secret)
// or RS256 (private key file).
type JWTConfig struct {
	Alg            string        `env:"AUTH_JWT_ALG" env-default:"HS256"`
	Secret         string        `env:"AUTH_JWT_SECRET" env-default:"very-secure-jwt-secret"`
	PrivateKeyFile string        `env:"AUTH_JWT_PRIVATE_KEY_FILE"`
	KeyID          string        `env:"AUTH_JWT_KEY_ID" env-default:"auth-key-1"`
	Issuer         string        `env:"AUTH_JWT_ISSUER" env-default:"simple-auth"`
	Audience       string        `env:"AUTH_JWT_AUDIENCE" env-default:"simple-auth"`
	AccessExpiry   time.Duration `env:"AUTH_JWT_ACCESS_EXPIRY" env-default:"15m"`
	RefreshExpiry  time.Duration `env:"AUTH_JWT_REFRESH_EXPIRY" env-default:"168h"`
}

// EmailConfig holds SMTP settings
type EmailConfig struct {
	Host     string `env:"AUTH_EMAIL_HOST" env-default:"localhost"`
	Port     int    `env:"AUTH_EMAIL_PORT" env-default:"1025"`
	TLS      bool   `env:"AUTH_EMAIL_TLS" env-default:"false"`
	Username string `env:"AUTH_EMAIL_USERNAME"`
	Password string `env:"AUTH_EMAIL_PASSWORD"`
	From     string `env:"AUTH_EMAIL_FROM" env-default:"noreply@example.com"`
}

// SocialConfig holds the OAuth client settings per provider. A provider with
// an empty client ID is not registered.
type SocialConfig struct {
	GoogleClientID       string `env:"AUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"AUTH_GOOGLE_CLIENT_SECRET"`
	FacebookClientID     string `env:"AUTH_FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `env:"AUTH_FACEBOOK_CLIENT_SECRET"`
	VKClientID           string `env:"AUTH_VK_CLIENT_ID"`
	VKClientSecret       string `env:"AUTH_VK_CLIENT_SECRET"`
}
