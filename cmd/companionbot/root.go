package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edgard/companionbot/internal/config"
)

const defaultConfigPath = "./config.yaml"

// newRootCmd builds the CLI. The config path comes from --config or
// COMPANIONBOT_CONFIG.
func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "companionbot",
		Short: "Conversational companion agent for Telegram, the web and the terminal",
		Long: `companionbot answers chat messages with an LLM agent that can search the web,
draw pictures and speak. Running it without a subcommand is the same as "serve".`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), v.GetString("config"))
		},
	}

	root.PersistentFlags().String("config", defaultConfigPath, "path to the YAML configuration file")
	_ = v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	v.SetEnvPrefix(config.EnvPrefix)
	_ = v.BindEnv("config")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot, the web widget API and the scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), v.GetString("config"))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return chatREPL(cmd.Context(), v.GetString("config"), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	})

	return root
}
