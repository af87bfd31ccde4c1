package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Auth       AuthConfig       `json:"auth"`
	Onboarding OnboardingConfig `json:"onboarding"`
	Providers  ProvidersConfig  `json:"providers"`
	Logging    LoggingConfig    `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DBName         string `json:"db_name"`
	SSLMode        string `json:"ssl_mode"`
	MaxConnections int    `json:"max_connections"`
	MaxIdleConns   int    `json:"max_idle_conns"`
}

// AuthConfig holds session token verification settings
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// OnboardingConfig tunes the wizard flow
type OnboardingConfig struct {
	AdvanceDelayMS  int      `json:"advance_delay_ms"`
	AllowedOrigins  []string `json:"allowed_origins"`
	StaleRetention  string   `json:"stale_retention"`
	CleanupSchedule string   `json:"cleanup_schedule"`
}

// ProvidersConfig holds the OAuth provider entry points
type ProvidersConfig struct {
	GitHubClientID      string `json:"github_client_id"`
	GitHubRedirectURI   string `json:"github_redirect_uri"`
	LinkedInClientID    string `json:"linkedin_client_id"`
	LinkedInRedirectURI string `json:"linkedin_redirect_uri"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "launchpad_onboarding",
			SSLMode: "disable",
		},
		Onboarding: OnboardingConfig{
			AdvanceDelayMS:  1500,
			StaleRetention:  "720h",
			CleanupSchedule: "0 3 * * *",
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.Onboarding.AllowedOrigins = strings.Split(origins, ",")
	}
	if clientID := os.Getenv("GITHUB_CLIENT_ID"); clientID != "" {
		config.Providers.GitHubClientID = clientID
	}
	if redirect := os.Getenv("GITHUB_REDIRECT_URI"); redirect != "" {
		config.Providers.GitHubRedirectURI = redirect
	}
	if clientID := os.Getenv("LINKEDIN_CLIENT_ID"); clientID != "" {
		config.Providers.LinkedInClientID = clientID
	}
	if redirect := os.Getenv("LINKEDIN_REDIRECT_URI"); redirect != "" {
		config.Providers.LinkedInRedirectURI = redirect
	}
}

// AdvanceDelay returns the auto-advance delay as a duration.
func (c *OnboardingConfig) AdvanceDelay() time.Duration {
	if c.AdvanceDelayMS <= 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(c.AdvanceDelayMS) * time.Millisecond
}

// Retention returns the stale-state retention window, defaulting to 30 days.
func (c *OnboardingConfig) Retention() time.Duration {
	d, err := time.ParseDuration(c.StaleRetention)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
