package commands

import (
	"context"

	"github.com/loykin/jirarun/cmd/jirarun/runner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunner(cmd *cobra.Command) *runner.Runner {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return runner.New(ctx, viper.GetViper().GetString("config"), cmd.OutOrStdout())
}

func keyArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

var GetCmd = &cobra.Command{
	Use:   "get [issue-key]",
	Short: "Fetch one issue and log the outcome (default key: run.fetch_issue)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := newRunner(cmd).Fetch(keyArg(args))
		return err
	},
}

var AttachCmd = &cobra.Command{
	Use:   "attach [issue-key]",
	Short: "Upload the configured files to an issue and log the outcome (default key: run.attach_issue)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := newRunner(cmd).Attach(keyArg(args))
		return err
	},
}
