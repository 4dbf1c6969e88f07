package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "chat")

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, defaultConfigPath, flag.DefValue)
}

func TestServe_MissingAPIKey(t *testing.T) {
	t.Setenv("COMPANIONBOT_GEMINI_API_KEY", "")
	t.Setenv("COMPANIONBOT_TELEGRAM_ENABLED", "false")

	root := newRootCmd()
	root.SetArgs([]string{"serve", "--config", t.TempDir() + "/missing.yaml"})
	assert.Error(t, root.Execute())
}
