package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Config keeps runtime settings for the reminder daemon.
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	Timezone    string `yaml:"timezone"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	RolloverAt      string `yaml:"rollover_at"`
	RecurrenceAt    string `yaml:"recurrence_at"`
	RecurrenceDays  int    `yaml:"recurrence_days"`
	GenerateOnStart bool   `yaml:"generate_on_start"`

	TickWorkers       int           `yaml:"tick_workers"`
	ChannelTimeout    time.Duration `yaml:"channel_timeout"`
	ChannelRatePerSec int           `yaml:"channel_rate_per_sec"`

	Email    EmailConfig    `yaml:"email"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	Telegram TelegramConfig `yaml:"telegram"`

	MetricsAddr string `yaml:"metrics_addr"`
}

type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Configured reports whether SMTP credentials are present.
func (c EmailConfig) Configured() bool {
	return c.User != "" && c.Password != ""
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	From       string `yaml:"phone_number"`
}

func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

type TelegramConfig struct {
	Token string `yaml:"token"`
}

func (c TelegramConfig) Configured() bool {
	return c.Token != ""
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		DatabaseURL:       "daily_tracker.db",
		LogLevel:          "info",
		LogFormat:         "console",
		RolloverAt:        "00:00",
		RecurrenceAt:      "01:00",
		RecurrenceDays:    7,
		GenerateOnStart:   true,
		TickWorkers:       4,
		ChannelTimeout:    5 * time.Second,
		ChannelRatePerSec: 5,
		Email: EmailConfig{
			Host: "pro.eu.turbo-smtp.com",
			Port: 587,
			From: "Task Tracker <noreply@tasktracker.com>",
		},
	}
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and then
// from environment variables, which take precedence.
func Load() (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Location resolves the configured timezone, falling back to time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if _, _, err := ParseHHMM(c.RolloverAt); err != nil {
		return fmt.Errorf("ROLLOVER_AT: %w", err)
	}
	if _, _, err := ParseHHMM(c.RecurrenceAt); err != nil {
		return fmt.Errorf("RECURRENCE_AT: %w", err)
	}
	if c.RecurrenceDays <= 0 {
		return fmt.Errorf("RECURRENCE_DAYS must be positive")
	}
	if c.TickWorkers <= 0 {
		return fmt.Errorf("TICK_WORKERS must be positive")
	}
	if c.ChannelTimeout <= 0 {
		return fmt.Errorf("CHANNEL_TIMEOUT must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	setString(&cfg.DatabaseURL, get("DATABASE_URL"))
	setString(&cfg.Timezone, get("TIMEZONE"))
	setString(&cfg.LogLevel, get("LOG_LEVEL"))
	setString(&cfg.LogFormat, get("LOG_FORMAT"))
	setString(&cfg.RolloverAt, get("ROLLOVER_AT"))
	setString(&cfg.RecurrenceAt, get("RECURRENCE_AT"))
	setString(&cfg.MetricsAddr, get("METRICS_ADDR"))

	setString(&cfg.Email.Host, get("EMAIL_HOST"))
	setString(&cfg.Email.User, get("EMAIL_USER"))
	setString(&cfg.Email.Password, get("EMAIL_PASSWORD"))
	setString(&cfg.Email.From, get("EMAIL_FROM"))
	setString(&cfg.Twilio.AccountSID, get("TWILIO_ACCOUNT_SID"))
	setString(&cfg.Twilio.AuthToken, get("TWILIO_AUTH_TOKEN"))
	setString(&cfg.Twilio.From, get("TWILIO_PHONE_NUMBER"))
	setString(&cfg.Telegram.Token, get("TELEGRAM_TOKEN"))

	if err := setInt(&cfg.Email.Port, "EMAIL_PORT", get("EMAIL_PORT")); err != nil {
		return err
	}
	if err := setInt(&cfg.RecurrenceDays, "RECURRENCE_DAYS", get("RECURRENCE_DAYS")); err != nil {
		return err
	}
	if err := setInt(&cfg.TickWorkers, "TICK_WORKERS", get("TICK_WORKERS")); err != nil {
		return err
	}
	if err := setInt(&cfg.ChannelRatePerSec, "CHANNEL_RATE_PER_SEC", get("CHANNEL_RATE_PER_SEC")); err != nil {
		return err
	}
	if raw := get("CHANNEL_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return fmt.Errorf("CHANNEL_TIMEOUT: invalid duration %q", raw)
		}
		cfg.ChannelTimeout = d
	}
	if raw := get("GENERATE_ON_START"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("GENERATE_ON_START: %w", err)
		}
		cfg.GenerateOnStart = v
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, key, raw string) error {
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	*dst = v
	return nil
}

// ParseHHMM parses a wall-clock "HH:MM" string.
func ParseHHMM(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}
