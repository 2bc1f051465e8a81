package config

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Email     EmailConfig     `yaml:"email"`
	Site      SiteConfig      `yaml:"site"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	JWT       JWTConfig       `yaml:"jwt"`
	Operators []Operator      `yaml:"operators"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	Digest    DigestConfig    `yaml:"digest"`
}

// ServerConfig contains listener settings. GRPCPort serves the health service.
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	GRPCPort        int    `yaml:"grpc_port"`
	ShutdownSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	URL      string `yaml:"url"` // takes precedence over the discrete fields
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// EmailConfig selects the transactional email provider.
type EmailConfig struct {
	Provider       string     `yaml:"provider"` // "sendgrid" or "smtp"
	FromAddress    string     `yaml:"from_address"`
	FromName       string     `yaml:"from_name"`
	SendGridAPIKey string     `yaml:"sendgrid_api_key"`
	SMTP           SMTPConfig `yaml:"smtp"`
}

// SMTPConfig contains SMTP relay settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// SiteConfig describes the public site the notifications point at.
type SiteConfig struct {
	Name          string `yaml:"name"`
	PublicBaseURL string `yaml:"public_base_url"` // also the base of tracking URLs
	LoginPath     string `yaml:"login_path"`
	SupportEmail  string `yaml:"support_email"`
}

type TrackingConfig struct {
	AllowedRedirectHosts []string `yaml:"allowed_redirect_hosts"`
}

// JWTConfig contains operator token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	Issuer            string `yaml:"issuer"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// Operator is a back-office account allowed to sign in.
type Operator struct {
	Email        string   `yaml:"email"`
	PasswordHash string   `yaml:"password_hash"` // bcrypt
	Roles        []string `yaml:"roles"`
}

// RateLimitConfig bounds unauthenticated access-request submissions per client.
type RateLimitConfig struct {
	Submissions    int      `yaml:"submissions"`
	WindowSeconds  int      `yaml:"window_seconds"`
	TrustedProxies []string `yaml:"trusted_proxies"` // CIDRs or addresses allowed to set X-Forwarded-For
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// DigestConfig schedules the pending-registrations email to operators.
type DigestConfig struct {
	Schedule   string   `yaml:"schedule"` // cron with seconds field
	Recipients []string `yaml:"recipients"`
}

// Load reads configuration from a YAML file, then .env files, then the environment.
func Load(configPath string, envFiles ...string) (*Config, error) {
	// Missing .env files are fine; the environment may already be populated.
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, applies env overrides and defaults, and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DATABASE_URL"); val != "" {
		c.Database.URL = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Email
	if val := os.Getenv("EMAIL_PROVIDER"); val != "" {
		c.Email.Provider = val
	}
	if val := os.Getenv("EMAIL_FROM"); val != "" {
		c.Email.FromAddress = val
	}
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.SendGridAPIKey = val
	}
	if val := os.Getenv("SMTP_HOST"); val != "" {
		c.Email.SMTP.Host = val
	}
	if val := os.Getenv("SMTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Email.SMTP.Port)
	}
	if val := os.Getenv("SMTP_USER"); val != "" {
		c.Email.SMTP.User = val
	}
	if val := os.Getenv("SMTP_PASSWORD"); val != "" {
		c.Email.SMTP.Password = val
	}

	// Site
	if val := os.Getenv("PUBLIC_BASE_URL"); val != "" {
		c.Site.PublicBaseURL = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Rate limit
	if val := os.Getenv("TRUSTED_PROXIES"); val != "" {
		c.RateLimit.TrustedProxies = strings.Split(val, ",")
	}

	// Digest
	if val := os.Getenv("DIGEST_RECIPIENTS"); val != "" {
		c.Digest.Recipients = strings.Split(val, ",")
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Server.ShutdownSeconds == 0 {
		c.Server.ShutdownSeconds = 10
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Email.Provider == "" {
		c.Email.Provider = "sendgrid"
	}
	if c.Site.Name == "" {
		c.Site.Name = "TicketDesk"
	}
	if c.Email.FromName == "" {
		c.Email.FromName = c.Site.Name
	}
	if c.Site.LoginPath == "" {
		c.Site.LoginPath = "/login"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "ticketdesk"
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}
	if c.RateLimit.Submissions == 0 {
		c.RateLimit.Submissions = 5
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 3600
	}
	if c.Digest.Schedule == "" {
		c.Digest.Schedule = "0 0 8 * * *" // 8 AM UTC
	}
	for i, r := range c.Digest.Recipients {
		c.Digest.Recipients[i] = strings.TrimSpace(r)
	}
	for i, p := range c.RateLimit.TrustedProxies {
		c.RateLimit.TrustedProxies[i] = strings.TrimSpace(p)
	}
	if len(c.Tracking.AllowedRedirectHosts) == 0 {
		if u, err := url.Parse(c.Site.PublicBaseURL); err == nil && u.Host != "" {
			c.Tracking.AllowedRedirectHosts = []string{u.Host}
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}

	if c.Database.URL == "" {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	switch c.Email.Provider {
	case "sendgrid":
	case "smtp":
		if c.Email.SMTP.Port < 0 || c.Email.SMTP.Port > 65535 {
			return fmt.Errorf("invalid SMTP port: %d", c.Email.SMTP.Port)
		}
	default:
		return fmt.Errorf("unsupported email provider: %q", c.Email.Provider)
	}
	if c.Email.FromAddress == "" {
		return fmt.Errorf("email from address is required")
	}

	if c.Site.PublicBaseURL == "" {
		return fmt.Errorf("public base URL is required")
	}
	u, err := url.Parse(c.Site.PublicBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("public base URL must be an absolute http(s) URL: %q", c.Site.PublicBaseURL)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	for _, p := range c.RateLimit.TrustedProxies {
		if !validProxyEntry(p) {
			return fmt.Errorf("invalid trusted proxy: %q", p)
		}
	}

	for _, op := range c.Operators {
		if op.Email == "" || op.PasswordHash == "" {
			return fmt.Errorf("operator entries need email and password_hash")
		}
	}

	return nil
}

func validProxyEntry(p string) bool {
	if strings.Contains(p, "/") {
		_, err := netip.ParsePrefix(p)
		return err == nil
	}
	_, err := netip.ParseAddr(p)
	return err == nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port)),
		Path:     "/" + c.Database.Database,
		RawQuery: url.Values{"sslmode": {c.Database.SSLMode}}.Encode(),
	}
	return u.String()
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the health server address, or "" when disabled.
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// LoginURL is the absolute URL notifications link to.
func (c *Config) LoginURL() string {
	return strings.TrimRight(c.Site.PublicBaseURL, "/") + c.Site.LoginPath
}

// MemoryStoreURL selects the in-process store instead of PostgreSQL.
const MemoryStoreURL = "memory://"

// UsesMemoryStore reports whether the database URL selects the in-process store.
func (c *Config) UsesMemoryStore() bool {
	return c.Database.URL == MemoryStoreURL
}
