package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. COMPANIONBOT_GEMINI_API_KEY.
const EnvPrefix = "COMPANIONBOT"

// ErrConfiguration wraps every load or validation failure.
var ErrConfiguration = errors.New("configuration error")

// LoadConfig reads the YAML file at path (optional when it does not exist),
// applies environment overrides and defaults, then validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: failed to read %s: %w", ErrConfiguration, path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return cfg, nil
}

// Validate checks field constraints and the rules that span sections.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return errors.New("telegram.token is required when telegram is enabled")
	}

	switch c.Media.Backend {
	case "s3":
		if c.Media.S3.Bucket == "" {
			return errors.New("media.s3.bucket is required for the s3 media backend")
		}
	case "local":
		if c.Web.PublicURL == "" || c.Web.SigningKey == "" {
			return errors.New("web.public_url and web.signing_key are required for the local media backend")
		}
		if !c.Web.Enabled {
			return errors.New("web must be enabled to serve media from the local backend")
		}
	}

	for name, task := range c.Scheduler.Tasks {
		if task.Enabled && strings.TrimSpace(task.Schedule) == "" {
			return fmt.Errorf("scheduler.tasks.%s.schedule is required when the task is enabled", name)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)

	v.SetDefault("database.path", "companionbot.db")
	v.SetDefault("database.max_history_messages", 20)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-2.0-flash")
	v.SetDefault("gemini.image_model_name", "imagen-3.0-generate-002")
	v.SetDefault("gemini.speech_model_name", "gemini-2.5-flash-preview-tts")
	v.SetDefault("gemini.speech_voice", "Kore")
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.max_retries", 3)
	v.SetDefault("gemini.retry_delay_seconds", 2)
	v.SetDefault("gemini.timeout", 2*time.Minute)

	v.SetDefault("telegram.enabled", true)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_id", 0)

	v.SetDefault("web.enabled", true)
	v.SetDefault("web.listen_addr", ":8080")
	v.SetDefault("web.public_url", "")
	v.SetDefault("web.allowed_origins", []string{"*"})
	v.SetDefault("web.signing_key", "")

	v.SetDefault("media.backend", "local")
	v.SetDefault("media.url_ttl", 24*time.Hour)
	v.SetDefault("media.retention", 30*24*time.Hour)
	v.SetDefault("media.s3.bucket", "")
	v.SetDefault("media.s3.prefix", "media")
	v.SetDefault("media.s3.region", "us-east-1")
	v.SetDefault("media.s3.endpoint", "")
	v.SetDefault("media.s3.access_key_id", "")
	v.SetDefault("media.s3.secret_access_key", "")
	v.SetDefault("media.s3.use_path_style", false)

	v.SetDefault("agent.max_iterations", 15)
	v.SetDefault("agent.format", "react")
	v.SetDefault("agent.personality", "companion")
	v.SetDefault("agent.tools", []string{"search", "generate_image", "selfie", "speak"})
	v.SetDefault("agent.append_unreferenced_media", true)
	v.SetDefault("agent.timeout", 3*time.Minute)

	v.SetDefault("scheduler.tasks", map[string]any{
		"sql_maintenance": map[string]any{"enabled": true, "schedule": "0 0 4 * * *"},
		"media_cleanup":   map[string]any{"enabled": true, "schedule": "0 30 4 * * *"},
	})

	v.SetDefault("messages.welcome", "Hi! I'm @botname. Just talk to me here, or mention me in a group.")
	v.SetDefault("messages.help", "Talk to me directly, or mention @botname in a group.\n\n"+
		"/reset - forget this chat's history\n"+
		"/personality - show who I am\n"+
		"/personality_set <preset> - change who I am (admin only)")
	v.SetDefault("messages.error_unauthorized_msg", "You are not authorized to use this command.")
	v.SetDefault("messages.error_general_msg", "Sorry, something went wrong while I was thinking. Please try again.")
	v.SetDefault("messages.media_unavailable_msg", "[I made something for you, but it could not be loaded]")
	v.SetDefault("messages.empty_answer_msg", "I don't have anything to add to that.")
	v.SetDefault("messages.reset_confirm_msg", "Done. I've forgotten our conversation in this chat.")
	v.SetDefault("messages.reset_error_msg", "I couldn't clear the history. Please try again later.")
	v.SetDefault("messages.reset_timeout_msg", "Clearing the history took too long. Please try again later.")
	v.SetDefault("messages.personality_current_msg", "I am %s, %s.")
	v.SetDefault("messages.personality_updated_msg", "Personality changed. I am now %s, %s.")
	v.SetDefault("messages.personality_usage_msg", "Usage: /personality_set <preset>\nAvailable presets: %s")
}
