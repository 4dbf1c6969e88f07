package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/companionbot/internal/config"
)

const minimalYAML = `
gemini:
  api_key: test-key
telegram:
  token: "123456:ABCDEF"
  admin_user_id: 42
web:
  public_url: https://bot.example.com
  signing_key: secret
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.Equal(t, int64(42), cfg.Telegram.AdminUserID)
	assert.Equal(t, 15, cfg.Agent.MaxIterations)
	assert.Equal(t, "react", cfg.Agent.Format)
	assert.Equal(t, "companion", cfg.Agent.Personality)
	assert.True(t, cfg.Agent.AppendUnreferencedMedia)
	assert.Equal(t, []string{"search", "generate_image", "selfie", "speak"}, cfg.Agent.Tools)
	assert.Equal(t, 24*time.Hour, cfg.Media.URLTTL)
	assert.Equal(t, "local", cfg.Media.Backend)
	assert.Contains(t, cfg.Scheduler.Tasks, "sql_maintenance")
	assert.Contains(t, cfg.Scheduler.Tasks, "media_cleanup")
	assert.NotEmpty(t, cfg.Messages.ErrorGeneralMsg)
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	path := writeConfig(t, minimalYAML+`
agent:
  max_iterations: 5
  format: json
  tools: [search]
media:
  url_ttl: 2h
scheduler:
  tasks:
    media_cleanup:
      enabled: false
      schedule: ""
`)
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, "json", cfg.Agent.Format)
	assert.Equal(t, []string{"search"}, cfg.Agent.Tools)
	assert.Equal(t, 2*time.Hour, cfg.Media.URLTTL)
	assert.False(t, cfg.Scheduler.Tasks["media_cleanup"].Enabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("COMPANIONBOT_GEMINI_API_KEY", "from-env")
	t.Setenv("COMPANIONBOT_TELEGRAM_ENABLED", "false")
	t.Setenv("COMPANIONBOT_WEB_PUBLIC_URL", "https://env.example.com")
	t.Setenv("COMPANIONBOT_WEB_SIGNING_KEY", "env-secret")
	t.Setenv("COMPANIONBOT_LOGGER_LEVEL", "debug")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Gemini.APIKey)
	assert.False(t, cfg.Telegram.Enabled)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing api key",
			yaml: `
telegram: {token: "x"}
web: {public_url: "https://a.example", signing_key: k}
`,
		},
		{
			name: "telegram without token",
			yaml: `
gemini: {api_key: k}
web: {public_url: "https://a.example", signing_key: k}
`,
		},
		{
			name: "bad agent format",
			yaml: minimalYAML + "agent: {format: xml}\n",
		},
		{
			name: "s3 without bucket",
			yaml: minimalYAML + "media: {backend: s3}\n",
		},
		{
			name: "local media without public url",
			yaml: `
gemini: {api_key: k}
telegram: {token: "x"}
`,
		},
		{
			name: "enabled task without schedule",
			yaml: minimalYAML + "scheduler: {tasks: {sql_maintenance: {enabled: true, schedule: \"\"}}}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadConfig(writeConfig(t, tt.yaml))
			assert.ErrorIs(t, err, config.ErrConfiguration)
		})
	}
}

func TestLoadConfig_S3Backend(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t, `
gemini: {api_key: k}
telegram: {enabled: false}
web: {enabled: false}
media:
  backend: s3
  s3:
    bucket: media-bucket
    endpoint: http://localhost:9000
    use_path_style: true
`))
	require.NoError(t, err)
	assert.Equal(t, "media-bucket", cfg.Media.S3.Bucket)
	assert.True(t, cfg.Media.S3.UsePathStyle)
	assert.Equal(t, "media", cfg.Media.S3.Prefix)
}
