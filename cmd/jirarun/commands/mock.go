package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/loykin/jirarun/internal/common"
	"github.com/loykin/jirarun/internal/constants"
	"github.com/loykin/jirarun/internal/jiramock"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// MockCmd serves the fake Jira API so the runner can be tried without a real site.
var MockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Serve a local fake Jira API with the default issues seeded",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		addr := v.GetString("mock_addr")
		user := v.GetString("mock_user")
		token := v.GetString("mock_token")

		m := jiramock.NewServer(user, token)
		m.Seed(constants.DefaultFetchIssue, constants.DefaultAttachIssue)

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serveMock(ctx, addr, m.Handler(), common.GetLogger().WithComponent("mock"))
	},
}

func serveMock(ctx context.Context, addr string, h http.Handler, logger *common.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving fake Jira API", "url", "http://"+addr+jiramock.APIPrefix)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down fake Jira API")
		return srv.Shutdown(shutdownCtx)
	}
}

func init() {
	v := viper.GetViper()
	v.SetDefault("mock_addr", constants.DefaultMockAddr)
	MockCmd.Flags().String("addr", v.GetString("mock_addr"), "listen address")
	MockCmd.Flags().String("user", "", "accepted username (empty disables auth)")
	MockCmd.Flags().String("token", "", "accepted API token")
	_ = v.BindPFlag("mock_addr", MockCmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("mock_user", MockCmd.Flags().Lookup("user"))
	_ = v.BindPFlag("mock_token", MockCmd.Flags().Lookup("token"))
}
