package main

import (
	"context"

	"github.com/loykin/jirarun/cmd/jirarun/commands"
	"github.com/loykin/jirarun/cmd/jirarun/runner"
	"github.com/loykin/jirarun/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "jirarun",
	Short: "Fetch a Jira issue and upload attachments, logging each outcome as JSON",
	Args:  cobra.NoArgs,
	// Usage on a failed run would bury the outcome records.
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		r := runner.New(ctx, viper.GetViper().GetString("config"), cmd.OutOrStdout())
		return r.Run()
	},
}

func init() {
	// Defaults
	v := viper.GetViper()
	v.SetDefault("config", "./config.yaml")

	// Environment variables support: JIRARUN_CONFIG, ...
	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()
	rootCmd.PersistentFlags().String("config", v.GetString("config"), "path to a config yaml (a missing file means defaults)")
	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.AddCommand(commands.GetCmd)
	rootCmd.AddCommand(commands.AttachCmd)
	rootCmd.AddCommand(commands.MockCmd)
	rootCmd.AddCommand(commands.TokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
	}
}
