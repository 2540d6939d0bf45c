package keyring

import (
	"fmt"
	"strings"

	"github.com/99designs/keyring"
	"github.com/loykin/jirarun/internal/auth/common"
)

// DefaultService is the keyring service name tokens are stored under.
const DefaultService = "jirarun"

// Config resolves the API token from the operating system keyring.
// The username stays in configuration; only the secret lives in the keyring.
type Config struct {
	Header   string `mapstructure:"header"`
	Username string `mapstructure:"username"`
	Service  string `mapstructure:"service"`
	// Key defaults to Username.
	Key string `mapstructure:"key"`
	// FileDir enables the encrypted file backend as a fallback when set.
	FileDir string `mapstructure:"file_dir"`
}

// Opener opens a keyring; replaced in tests.
var Opener = func(cfg keyring.Config) (keyring.Keyring, error) {
	return keyring.Open(cfg)
}

func (c Config) service() string {
	if s := strings.TrimSpace(c.Service); s != "" {
		return s
	}
	return DefaultService
}

func (c Config) key() string {
	if k := strings.TrimSpace(c.Key); k != "" {
		return k
	}
	return strings.TrimSpace(c.Username)
}

func (c Config) keyringConfig() keyring.Config {
	backends := []keyring.BackendType{
		keyring.KeychainBackend,
		keyring.SecretServiceBackend,
		keyring.WinCredBackend,
		keyring.PassBackend,
	}
	kc := keyring.Config{
		ServiceName:              c.service(),
		KeychainTrustApplication: true,
	}
	if dir := strings.TrimSpace(c.FileDir); dir != "" {
		backends = append(backends, keyring.FileBackend)
		kc.FileDir = dir
		kc.FilePasswordFunc = keyring.FixedStringPrompt(c.service() + "-file-key")
	}
	kc.AllowedBackends = backends
	return kc
}

// Credentials reads the token for key() and pairs it with Username.
func (c Config) Credentials() (common.Credentials, error) {
	if c.key() == "" {
		return common.Credentials{}, common.ErrMissingCredentials
	}
	ring, err := Opener(c.keyringConfig())
	if err != nil {
		return common.Credentials{}, fmt.Errorf("keyring: open %q: %w", c.service(), err)
	}
	item, err := ring.Get(c.key())
	if err != nil {
		return common.Credentials{}, fmt.Errorf("keyring: get %q: %w", c.key(), err)
	}
	creds := common.Credentials{Username: c.Username, Token: string(item.Data), Header: c.Header}
	if err := creds.Validate(); err != nil {
		return common.Credentials{}, err
	}
	return creds, nil
}

// Store saves token under key() so later runs can resolve it.
func (c Config) Store(token string) error {
	if c.key() == "" {
		return common.ErrMissingCredentials
	}
	ring, err := Opener(c.keyringConfig())
	if err != nil {
		return fmt.Errorf("keyring: open %q: %w", c.service(), err)
	}
	if err := ring.Set(keyring.Item{Key: c.key(), Data: []byte(token), Label: c.service() + " API token"}); err != nil {
		return fmt.Errorf("keyring: set %q: %w", c.key(), err)
	}
	return nil
}
