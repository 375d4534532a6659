package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the photo grabber
type Config struct {
	// Transparent Classroom account and child selection
	Classroom ClassroomConfig `yaml:"classroom" json:"classroom"`

	// School metadata embedded into downloaded photos
	School SchoolConfig `yaml:"school" json:"school"`

	// Output and cache directories
	Output OutputConfig `yaml:"output" json:"output"`

	// Scheduling configuration for daemon mode
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`

	// Telegram notification settings
	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ClassroomConfig holds Transparent Classroom credentials and identifiers
type ClassroomConfig struct {
	Email    string `yaml:"email" json:"email"`
	Password string `yaml:"password" json:"password"`
	SchoolID int    `yaml:"school_id" json:"school_id"`
	ChildID  int    `yaml:"child_id" json:"child_id"`
}

// SchoolConfig holds location and keyword metadata for EXIF embedding
type SchoolConfig struct {
	Latitude  float64 `yaml:"school_lat" json:"school_lat"`
	Longitude float64 `yaml:"school_lng" json:"school_lng"`
	Keywords  string  `yaml:"school_keywords" json:"school_keywords"`
}

// OutputConfig holds directory and cache configuration
type OutputConfig struct {
	Dir          string `yaml:"output_dir" json:"output_dir"`
	CacheDir     string `yaml:"cache_dir" json:"cache_dir"`
	CacheTimeout int    `yaml:"cache_timeout" json:"cache_timeout"` // seconds
}

// ScheduleConfig holds scheduling configuration for daemon mode
type ScheduleConfig struct {
	Spec           string `yaml:"spec" json:"spec"`
	CronExpression string `yaml:"cron_expression" json:"cron_expression"`
	RunImmediately bool   `yaml:"run_immediately" json:"run_immediately"`
	Timezone       string `yaml:"timezone" json:"timezone"`
}

// TelegramConfig holds the optional Telegram bot settings
type TelegramConfig struct {
	BotToken string `yaml:"bot_token" json:"bot_token"`
	ChatID   string `yaml:"chat_id" json:"chat_id"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// RequestTimeout bounds individual HTTP calls made by the client.
const RequestTimeout = 60 * time.Second

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Dir:          "./photos",
			CacheDir:     "./cache",
			CacheTimeout: 14400, // 4 hours
		},
		Schedule: ScheduleConfig{
			Spec: "daily",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
// Variable names match the original deployment so existing .env files
// keep working.
func (c *Config) LoadFromEnv() error {
	if email := os.Getenv("TC_EMAIL"); email != "" {
		c.Classroom.Email = email
	}
	if password := os.Getenv("TC_PASSWORD"); password != "" {
		c.Classroom.Password = password
	}
	if school := os.Getenv("SCHOOL"); school != "" {
		if val, err := strconv.Atoi(school); err == nil {
			c.Classroom.SchoolID = val
		}
	}
	if child := os.Getenv("CHILD"); child != "" {
		if val, err := strconv.Atoi(child); err == nil {
			c.Classroom.ChildID = val
		}
	}
	if lat := os.Getenv("SCHOOL_LAT"); lat != "" {
		if val, err := strconv.ParseFloat(lat, 64); err == nil {
			c.School.Latitude = val
		}
	}
	if lng := os.Getenv("SCHOOL_LNG"); lng != "" {
		if val, err := strconv.ParseFloat(lng, 64); err == nil {
			c.School.Longitude = val
		}
	}
	if keywords := os.Getenv("SCHOOL_KEYWORDS"); keywords != "" {
		c.School.Keywords = keywords
	}
	if dir := os.Getenv("OUTPUT_DIR"); dir != "" {
		c.Output.Dir = dir
	}
	if dir := os.Getenv("CACHE_DIR"); dir != "" {
		c.Output.CacheDir = dir
	}
	if timeout := os.Getenv("CACHE_TIMEOUT"); timeout != "" {
		if val, err := strconv.Atoi(timeout); err == nil && val > 0 {
			c.Output.CacheTimeout = val
		}
	}
	if expr := os.Getenv("CRON_EXPRESSION"); expr != "" {
		c.Schedule.CronExpression = expr
	}
	if run := os.Getenv("RUN_IMMEDIATELY"); run != "" {
		c.Schedule.RunImmediately = strings.ToLower(run) == "true"
	}
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		c.Schedule.Timezone = tz
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.Telegram.BotToken = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		c.Telegram.ChatID = chatID
	}
	if level := os.Getenv("TC_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".tcgrabber.yaml",
		".tcgrabber.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "tcgrabber", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "tcgrabber", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".tcgrabber.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks that every required field is present, reporting all
// missing fields at once so the operator can fix them in one pass.
func (c *Config) Validate() error {
	var errs []error

	if c.Classroom.Email == "" {
		errs = append(errs, errors.New("email is required (TC_EMAIL)"))
	}
	if c.Classroom.Password == "" {
		errs = append(errs, errors.New("password is required (TC_PASSWORD)"))
	}
	if c.Classroom.SchoolID <= 0 {
		errs = append(errs, errors.New("school id must be a positive integer (SCHOOL)"))
	}
	if c.Classroom.ChildID <= 0 {
		errs = append(errs, errors.New("child id must be a positive integer (CHILD)"))
	}

	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.CacheDir == "" {
		errs = append(errs, errors.New("cache directory is required"))
	}
	if c.Output.CacheTimeout <= 0 {
		errs = append(errs, errors.New("cache timeout must be positive"))
	}

	if c.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("invalid timezone %q", c.Schedule.Timezone))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// CacheTimeoutDuration returns the page cache timeout as a Duration
func (c *Config) CacheTimeoutDuration() time.Duration {
	return time.Duration(c.Output.CacheTimeout) * time.Second
}

// Location resolves the configured timezone. Left unset, schedules run
// in the system's local time, matching a cron job on the same host.
func (c *Config) Location() *time.Location {
	if c.Schedule.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence.
// An explicitly passed config path is authoritative and is read as-is
// over the defaults. Otherwise environment variables (including values
// loaded from .env) override the default config file locations, which
// override the built-in defaults.
func Load(configPath string) (*Config, error) {
	// Load .env files if present (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".tcgrabber.env"))

	config := DefaultConfig()

	if configPath != "" {
		if err := config.LoadFromFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		return config, nil
	}

	if err := config.LoadFromFile(""); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return config, nil
}
