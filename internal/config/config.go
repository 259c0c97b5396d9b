package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting of readdaily
type Config struct {
	DBType      string `yaml:"db_type"`
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`

	CatalogPath     string `yaml:"catalog_path"`
	CatalogS3Bucket string `yaml:"catalog_s3_bucket"`
	CatalogS3Key    string `yaml:"catalog_s3_key"`
	AWSRegion       string `yaml:"aws_region"`

	DailyCount int    `yaml:"daily_count"`
	Timezone   string `yaml:"timezone"`
	UndoWindow string `yaml:"undo_window"`

	HTTPAddr          string   `yaml:"http_addr"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
	TelegramToken     string   `yaml:"telegram_bot_token"`
	RedisURL          string   `yaml:"redis_url"`
	DictionaryBaseURL string   `yaml:"dictionary_base_url"`

	NotificationHour int  `yaml:"notification_hour"`
	EnableScheduler  bool `yaml:"enable_scheduler"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		DBType:           "sqlite",
		SQLitePath:       filepath.Join("data", "readdaily.db"),
		AWSRegion:        "us-east-1",
		DailyCount:       3,
		Timezone:         "Local",
		UndoWindow:       "3s",
		HTTPAddr:         ":8080",
		NotificationHour: 9,
		EnableScheduler:  true,
	}
}

// DefaultConfigPath is the YAML file read when no path is given
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "readdaily", "config.yaml")
}

// Load builds the configuration from defaults, then the YAML file at path,
// then environment variables (including a .env file in the working directory).
// An empty path falls back to READDAILY_CONFIG and then DefaultConfigPath.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not read .env file: %v", err)
	}

	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("READDAILY_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString("DB_TYPE", &c.DBType)
	setString("DATABASE_URL", &c.DatabaseURL)
	setString("SQLITE_PATH", &c.SQLitePath)
	setString("CATALOG_PATH", &c.CatalogPath)
	setString("CATALOG_S3_BUCKET", &c.CatalogS3Bucket)
	setString("CATALOG_S3_KEY", &c.CatalogS3Key)
	setString("AWS_REGION", &c.AWSRegion)
	setString("TIMEZONE", &c.Timezone)
	setString("UNDO_WINDOW", &c.UndoWindow)
	setString("HTTP_ADDR", &c.HTTPAddr)
	setString("TELEGRAM_BOT_TOKEN", &c.TelegramToken)
	setString("REDIS_URL", &c.RedisURL)
	setString("DICTIONARY_BASE_URL", &c.DictionaryBaseURL)

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, origin)
			}
		}
	}

	if v := os.Getenv("DAILY_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DAILY_COUNT %q: %w", v, err)
		}
		c.DailyCount = n
	}
	if v := os.Getenv("NOTIFICATION_HOUR"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid NOTIFICATION_HOUR %q: %w", v, err)
		}
		c.NotificationHour = n
	}
	if v := os.Getenv("ENABLE_SCHEDULER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ENABLE_SCHEDULER %q: %w", v, err)
		}
		c.EnableScheduler = b
	}
	return nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	switch c.DBType {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_TYPE is postgres")
		}
	default:
		return fmt.Errorf("unknown DB_TYPE %q (valid: sqlite, postgres)", c.DBType)
	}
	if c.DailyCount < 1 {
		return fmt.Errorf("DAILY_COUNT must be at least 1, got %d", c.DailyCount)
	}
	if c.NotificationHour < 0 || c.NotificationHour > 23 {
		return fmt.Errorf("NOTIFICATION_HOUR must be between 0 and 23, got %d", c.NotificationHour)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.UndoDuration(); err != nil {
		return err
	}
	if (c.CatalogS3Bucket == "") != (c.CatalogS3Key == "") {
		return fmt.Errorf("CATALOG_S3_BUCKET and CATALOG_S3_KEY must be set together")
	}
	return nil
}

// Location resolves Timezone. "" and "Local" mean the process time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// UndoDuration parses UndoWindow
func (c *Config) UndoDuration() (time.Duration, error) {
	if c.UndoWindow == "" {
		return 3 * time.Second, nil
	}
	d, err := time.ParseDuration(c.UndoWindow)
	if err != nil {
		return 0, fmt.Errorf("invalid UNDO_WINDOW %q: %w", c.UndoWindow, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("UNDO_WINDOW must be positive, got %s", d)
	}
	return d, nil
}

// NotificationTime is the daily notification time in gocron's HH:MM form
func (c *Config) NotificationTime() string {
	return fmt.Sprintf("%02d:00", c.NotificationHour)
}
