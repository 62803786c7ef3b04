package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultPath is where Load looks for the optional JSON config file.
const DefaultPath = "config/config.json"

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort        string   `json:"AppPort" env:"APP_PORT"`
	GinMode        string   `json:"GinMode" env:"GIN_MODE"`
	JWTSecret      string   `json:"JWTSecret" env:"JWT_SECRET"`
	PublicBaseURL  string   `json:"PublicBaseURL" env:"PUBLIC_BASE_URL"`
	AllowedOrigins []string `json:"AllowedOrigins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	BcryptCost     int      `json:"BcryptCost" env:"BCRYPT_COST"`

	// Database
	DBDriver    string `json:"DBDriver" env:"DB_DRIVER"`
	DatabaseURI string `json:"DatabaseURI" env:"DATABASE_URI"`
	DBHost      string `json:"DBHost" env:"DB_HOST"`
	DBPort      string `json:"DBPort" env:"DB_PORT"`
	DBUser      string `json:"DBUser" env:"DB_USER"`
	DBPassword  string `json:"DBPassword" env:"DB_PASSWORD"`
	DBName      string `json:"DBName" env:"DB_NAME"`

	// Redis backs the OAuth state store; empty host means in-memory only.
	RedisHost     string `json:"RedisHost" env:"REDIS_HOST"`
	RedisPort     int    `json:"RedisPort" env:"REDIS_PORT"`
	RedisDB       int    `json:"RedisDB" env:"REDIS_DB"`
	RedisPassword string `json:"RedisPassword" env:"REDIS_PASSWORD"`

	// SMTP for verification and reset mails
	SMTPHost       string `json:"SMTPHost" env:"SMTP_HOST"`
	SMTPPort       int    `json:"SMTPPort" env:"SMTP_PORT"`
	SMTPUsername   string `json:"SMTPUsername" env:"SMTP_USERNAME"`
	SMTPPassword   string `json:"SMTPPassword" env:"SMTP_PASSWORD"`
	SMTPFrom       string `json:"SMTPFrom" env:"SMTP_FROM"`
	SMTPFromName   string `json:"SMTPFromName" env:"SMTP_FROM_NAME"`
	SMTPTLS        bool   `json:"SMTPTLS" env:"SMTP_TLS"`
	SMTPTimeoutSec int    `json:"SMTPTimeoutSec" env:"SMTP_TIMEOUT_SEC"`

	// OAuth providers
	GitHubClientID     string `json:"GitHubClientID" env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `json:"GitHubClientSecret" env:"GITHUB_CLIENT_SECRET"`
	GoogleClientID     string `json:"GoogleClientID" env:"GOOGLE_CLIENT_ID"`
	OAuthRedirectBase  string `json:"OAuthRedirectBase" env:"OAUTH_REDIRECT_BASE_URL"`

	// Logging
	LogLevel      string `json:"LogLevel" env:"LOG_LEVEL"`
	LogPath       string `json:"LogPath" env:"LOG_PATH"`
	LogMaxSizeMB  int    `json:"LogMaxSizeMB" env:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `json:"LogMaxBackups" env:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `json:"LogMaxAgeDays" env:"LOG_MAX_AGE_DAYS"`
	LogCompress   bool   `json:"LogCompress" env:"LOG_COMPRESS"`
}

// fileConfig mirrors the grouped layout of config.json.
type fileConfig struct {
	App      *AppConfig `json:"app"`
	Database *AppConfig `json:"database"`
	Redis    *AppConfig `json:"redis"`
	SMTP     *AppConfig `json:"smtp"`
	OAuth    *AppConfig `json:"oauth"`
	Log      *AppConfig `json:"log"`
}

// Load builds the configuration. Precedence, lowest first:
// JSON file -> .env file -> environment variables -> defaults for whatever is still unset.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = DefaultPath
	}
	if err := loadJSONConfig(path, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	if err := env.Parse(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config: parsing environment: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate reports settings the service cannot start without.
func (c AppConfig) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be at least 16 characters")
	}
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

// loadJSONConfig reads the grouped JSON file into out. A missing file is not an error.
func loadJSONConfig(path string, out *AppConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	// Flat keys first, grouped sections override them.
	if err := json.Unmarshal(raw, out); err != nil {
		return err
	}
	grouped := fileConfig{App: out, Database: out, Redis: out, SMTP: out, OAuth: out, Log: out}
	return json.Unmarshal(raw, &grouped)
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "http://localhost:3000"
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	c.DBDriver = strings.ToLower(c.DBDriver)
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		switch c.DBDriver {
		case "postgres":
			c.DBPort = "5432"
		default:
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "quillpost"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.SMTPFromName == "" {
		c.SMTPFromName = "Quillpost"
	}
	if c.SMTPTimeoutSec == 0 {
		c.SMTPTimeoutSec = 15
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:" + c.AppPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}
