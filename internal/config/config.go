// Package config provides configuration loading and validation for the
// monitor. Values come from defaults, a YAML file, and YUK_* environment
// variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Export    ExportConfig    `mapstructure:"export"`
	Web       WebConfig       `mapstructure:"web"`
	Events    EventsConfig    `mapstructure:"events"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls log verbosity and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TelegramConfig holds bot credentials and the administrator account.
// BotInfo is populated at startup from GetMe and is not read from the file.
type TelegramConfig struct {
	Token       string `mapstructure:"token"         validate:"required"`
	AdminUserID int64  `mapstructure:"admin_user_id" validate:"required,gt=0"`

	BotInfo *models.User `mapstructure:"-"`
}

// MessagesConfig holds user-facing bot replies.
type MessagesConfig struct {
	Welcome              string `mapstructure:"welcome"`
	ErrorUnauthorizedMsg string `mapstructure:"error_unauthorized"`
	GeneralError         string `mapstructure:"general_error"`
}

// ExportConfig controls report exports.
type ExportConfig struct {
	DefaultDays int `mapstructure:"default_days" validate:"min=1,max=60"`
}

// WebConfig controls the read-only HTTP API.
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
}

// EventsConfig controls the optional RabbitMQ publisher.
type EventsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"      validate:"required_if=Enabled true"`
	Exchange string `mapstructure:"exchange" validate:"required_if=Enabled true"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig configures one scheduled task. Schedule is a cron expression
// with an optional seconds field.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. The YAML file at configPath
// 3. YUK_* environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("YUK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; defaults plus environment cover it.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", true)

	v.SetDefault("database.path", "yukmonitor.db")

	// Registered empty so the keys are visible to AutomaticEnv; validation
	// rejects them when nothing fills them in.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_id", 0)
	v.SetDefault("web.addr", ":8080")
	v.SetDefault("events.url", "")

	v.SetDefault("messages.welcome", "Salom! I collect freight postings from tracked channels. Use /stats for a summary or /export for a CSV file.")
	v.SetDefault("messages.error_unauthorized", "Access denied. Please contact the administrator.")
	v.SetDefault("messages.general_error", "An error occurred. Please try again later.")

	v.SetDefault("export.default_days", 7)

	v.SetDefault("web.enabled", false)

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.exchange", "yukmonitor.events")

	v.SetDefault("scheduler.tasks.daily_export.enabled", true)
	v.SetDefault("scheduler.tasks.daily_export.schedule", "0 0 6 * * *")
	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 30 3 * * 0")
}
