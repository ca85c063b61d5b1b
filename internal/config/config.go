package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// MEALPLAN_PIPELINE_OUTPUT_DIR.
const EnvPrefix = "MEALPLAN"

// Config holds the configuration for the application. It is loaded once and
// handed to the pipeline at construction.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// LLMConfig configures the recipe generator.
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"`
	GeminiAPIKey      string        `mapstructure:"gemini_api_key"`
	GeminiModel       string        `mapstructure:"gemini_model"`
	GroqAPIKey        string        `mapstructure:"groq_api_key"`
	GroqModel         string        `mapstructure:"groq_model"`
	GroqURL           string        `mapstructure:"groq_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	BatchSize         int           `mapstructure:"batch_size"`
	MaxResend         int           `mapstructure:"max_resend"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// PipelineConfig configures stage policy and output locations.
type PipelineConfig struct {
	InputDir         string        `mapstructure:"input_dir"`
	OutputDir        string        `mapstructure:"output_dir"`
	DatabasePath     string        `mapstructure:"database_path"`
	TierPriority     []string      `mapstructure:"tier_priority"`
	DefaultPAL       float64       `mapstructure:"default_pal"`
	HistoryThreshold int           `mapstructure:"history_threshold"`
	GroceryBuffer    float64       `mapstructure:"grocery_buffer"`
	MacroTolerance   float64       `mapstructure:"macro_tolerance"`
	VerifyLinks      bool          `mapstructure:"verify_links"`
	LinkTimeout      time.Duration `mapstructure:"link_timeout"`
}

// DeliveryConfig selects and configures the delivery channel.
type DeliveryConfig struct {
	Channel  string         `mapstructure:"channel"`
	Email    EmailConfig    `mapstructure:"email"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Ghost    GhostConfig    `mapstructure:"ghost"`
}

// EmailConfig configures SMTP delivery.
type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// TelegramConfig configures chat delivery.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// GhostConfig configures draft publishing to a Ghost blog.
type GhostConfig struct {
	URL      string `mapstructure:"url"`
	AdminKey string `mapstructure:"admin_key"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// MetricsConfig configures agent metric retention.
type MetricsConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

// Delivery channel names.
const (
	ChannelNone     = "none"
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
	ChannelGhost    = "ghost"
)

// SetDefaults registers every key with its default value so environment
// overrides are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "none")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.gemini_model", "gemini-2.0-flash")
	v.SetDefault("llm.groq_api_key", "")
	v.SetDefault("llm.groq_model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.groq_url", "")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.batch_size", 14)
	v.SetDefault("llm.max_resend", 1)
	v.SetDefault("llm.requests_per_minute", 10)

	v.SetDefault("pipeline.input_dir", "data/inputs")
	v.SetDefault("pipeline.output_dir", "out")
	v.SetDefault("pipeline.database_path", "data/meal_planner.db")
	v.SetDefault("pipeline.tier_priority", []string{"peak", "build", "base", "recovery"})
	v.SetDefault("pipeline.default_pal", 1.35)
	v.SetDefault("pipeline.history_threshold", 4)
	v.SetDefault("pipeline.grocery_buffer", 0.10)
	v.SetDefault("pipeline.macro_tolerance", 0.10)
	v.SetDefault("pipeline.verify_links", false)
	v.SetDefault("pipeline.link_timeout", 10*time.Second)

	v.SetDefault("delivery.channel", ChannelNone)
	v.SetDefault("delivery.email.host", "")
	v.SetDefault("delivery.email.port", 587)
	v.SetDefault("delivery.email.username", "")
	v.SetDefault("delivery.email.password", "")
	v.SetDefault("delivery.email.from", "")
	v.SetDefault("delivery.email.to", "")
	v.SetDefault("delivery.telegram.bot_token", "")
	v.SetDefault("delivery.telegram.chat_id", 0)
	v.SetDefault("delivery.ghost.url", "")
	v.SetDefault("delivery.ghost.admin_key", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("metrics.retention_days", 90)
}

// bindLegacyEnv keeps the unprefixed variable names working.
func bindLegacyEnv(v *viper.Viper) {
	legacy := map[string]string{
		"llm.gemini_api_key":          "GEMINI_API_KEY",
		"llm.groq_api_key":            "GROQ_API_KEY",
		"delivery.ghost.url":          "GHOST_API_URL",
		"delivery.ghost.admin_key":    "GHOST_ADMIN_API_KEY",
		"delivery.telegram.bot_token": "TELEGRAM_BOT_TOKEN",
		"delivery.telegram.chat_id":   "TELEGRAM_CHAT_ID",
	}
	for key, env := range legacy {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, env)
	}
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)
	return v
}

// Load reads an optional config file into v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields whose absence would only surface mid-run.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "none", "":
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case "groq":
		if c.LLM.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}

	switch c.Delivery.Channel {
	case ChannelNone, "":
	case ChannelEmail:
		if c.Delivery.Email.Host == "" || c.Delivery.Email.From == "" || c.Delivery.Email.To == "" {
			return fmt.Errorf("email delivery requires delivery.email.host, from and to")
		}
	case ChannelTelegram:
		if c.Delivery.Telegram.BotToken == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
		}
		if c.Delivery.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram delivery requires delivery.telegram.chat_id")
		}
	case ChannelGhost:
		if c.Delivery.Ghost.URL == "" {
			return fmt.Errorf("GHOST_API_URL environment variable not set")
		}
		if c.Delivery.Ghost.AdminKey == "" {
			return fmt.Errorf("GHOST_ADMIN_API_KEY environment variable not set")
		}
	default:
		return fmt.Errorf("unknown delivery channel %q", c.Delivery.Channel)
	}

	if c.Pipeline.GroceryBuffer < 0 {
		return fmt.Errorf("pipeline.grocery_buffer must not be negative")
	}
	if c.Pipeline.HistoryThreshold < 1 {
		return fmt.Errorf("pipeline.history_threshold must be at least 1")
	}
	if c.LLM.BatchSize < 1 {
		return fmt.Errorf("llm.batch_size must be at least 1")
	}
	if c.LLM.MaxResend < 0 || c.LLM.MaxResend > 1 {
		return fmt.Errorf("llm.max_resend must be 0 or 1")
	}
	return nil
}
