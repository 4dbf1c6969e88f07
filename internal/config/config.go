// Package config provides configuration loading, validation, and defaults for
// the companion bot. Values come from an optional YAML file, COMPANIONBOT_*
// environment variables and built-in defaults, in decreasing priority order
// of environment, file, defaults.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config is the full application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Web       WebConfig       `mapstructure:"web"`
	Media     MediaConfig     `mapstructure:"media"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig holds the SQLite settings.
type DatabaseConfig struct {
	Path               string `mapstructure:"path" validate:"required"`
	MaxHistoryMessages int    `mapstructure:"max_history_messages" validate:"min=0,max=500"`
}

// GeminiConfig holds the Gemini API settings shared by the agent runtime and tools.
type GeminiConfig struct {
	APIKey            string        `mapstructure:"api_key" validate:"required"`
	ModelName         string        `mapstructure:"model_name" validate:"required"`
	ImageModelName    string        `mapstructure:"image_model_name" validate:"required"`
	SpeechModelName   string        `mapstructure:"speech_model_name" validate:"required"`
	SpeechVoice       string        `mapstructure:"speech_voice"`
	Temperature       float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxRetries        int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelaySeconds int           `mapstructure:"retry_delay_seconds" validate:"min=0,max=60"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"min=1s,max=10m"`
}

// TelegramConfig holds the Telegram transport settings.
type TelegramConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Token       string `mapstructure:"token"`
	AdminUserID int64  `mapstructure:"admin_user_id" validate:"min=0"`
	// BotInfo is filled at startup from getMe.
	BotInfo *models.User `mapstructure:"-"`
}

// WebConfig holds the HTTP widget transport settings.
type WebConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	ListenAddr     string   `mapstructure:"listen_addr" validate:"required"`
	PublicURL      string   `mapstructure:"public_url" validate:"omitempty,url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	SigningKey     string   `mapstructure:"signing_key"`
}

// MediaConfig controls where generated media is kept and how it is shared.
type MediaConfig struct {
	Backend   string        `mapstructure:"backend" validate:"oneof=local s3"`
	URLTTL    time.Duration `mapstructure:"url_ttl" validate:"min=1m"`
	Retention time.Duration `mapstructure:"retention" validate:"min=0"`
	S3        S3Config      `mapstructure:"s3"`
}

// S3Config holds the S3-compatible bucket settings used by the s3 media backend.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// AgentConfig controls the response cycle.
type AgentConfig struct {
	MaxIterations           int           `mapstructure:"max_iterations" validate:"min=1,max=50"`
	Format                  string        `mapstructure:"format" validate:"oneof=react json"`
	Personality             string        `mapstructure:"personality" validate:"required"`
	Tools                   []string      `mapstructure:"tools"`
	AppendUnreferencedMedia bool          `mapstructure:"append_unreferenced_media"`
	Timeout                 time.Duration `mapstructure:"timeout" validate:"min=1s,max=30m"`
}

// SchedulerConfig lists the scheduled tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a task and sets its cron schedule (with seconds field).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MessagesConfig holds every user-facing text. "@botname" is replaced with the
// bot's username where it appears.
type MessagesConfig struct {
	Welcome               string `mapstructure:"welcome" validate:"required"`
	Help                  string `mapstructure:"help" validate:"required"`
	ErrorUnauthorizedMsg  string `mapstructure:"error_unauthorized_msg" validate:"required"`
	ErrorGeneralMsg       string `mapstructure:"error_general_msg" validate:"required"`
	MediaUnavailableMsg   string `mapstructure:"media_unavailable_msg" validate:"required"`
	EmptyAnswerMsg        string `mapstructure:"empty_answer_msg" validate:"required"`
	ResetConfirmMsg       string `mapstructure:"reset_confirm_msg" validate:"required"`
	ResetErrorMsg         string `mapstructure:"reset_error_msg" validate:"required"`
	ResetTimeoutMsg       string `mapstructure:"reset_timeout_msg" validate:"required"`
	PersonalityCurrentMsg string `mapstructure:"personality_current_msg" validate:"required"`
	PersonalityUpdatedMsg string `mapstructure:"personality_updated_msg" validate:"required"`
	PersonalityUsageMsg   string `mapstructure:"personality_usage_msg" validate:"required"`
}
