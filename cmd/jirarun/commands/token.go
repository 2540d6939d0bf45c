package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/loykin/jirarun/internal/auth/keyring"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// TokenCmd stores an API token in the OS keyring for the keyring auth provider.
// The token is read from stdin so it never appears in shell history.
var TokenCmd = &cobra.Command{
	Use:   "token <username>",
	Short: "Store an Atlassian API token (read from stdin) in the OS keyring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		token, err := readToken(cmd)
		if err != nil {
			return err
		}
		kc := keyring.Config{
			Username: args[0],
			Service:  v.GetString("keyring_service"),
			FileDir:  v.GetString("keyring_file_dir"),
		}
		if err := kc.Store(token); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "token stored for %s\n", args[0])
		return nil
	},
}

func readToken(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", errors.New("read token: empty input")
	}
	return token, nil
}

func init() {
	v := viper.GetViper()
	TokenCmd.Flags().String("service", keyring.DefaultService, "keyring service name")
	TokenCmd.Flags().String("file-dir", "", "directory for the encrypted file backend (optional)")
	_ = v.BindPFlag("keyring_service", TokenCmd.Flags().Lookup("service"))
	_ = v.BindPFlag("keyring_file_dir", TokenCmd.Flags().Lookup("file-dir"))
}
