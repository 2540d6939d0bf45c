package jirarun

import (
	"context"

	iauth "github.com/loykin/jirarun/internal/auth"
	"github.com/loykin/jirarun/internal/auth/basic"
	"github.com/loykin/jirarun/internal/auth/common"
	"github.com/loykin/jirarun/internal/auth/keyring"
)

// Known credential provider types. Custom providers can register their own.
const (
	AuthTypeBasic   = common.AuthTypeBasic
	AuthTypeKeyring = common.AuthTypeKeyring
)

// Credentials is a resolved user identifier and API token.
type Credentials = iauth.Credentials

// AuthProvider resolves credentials; AuthFactory builds one from a spec map.
type AuthProvider = iauth.Provider
type AuthFactory = iauth.Factory

// RegisterAuthProvider installs a custom provider under typ.
func RegisterAuthProvider(typ string, f AuthFactory) { iauth.Register(typ, f) }

// ResolveCredentials builds the provider registered for typ from spec and resolves it.
func ResolveCredentials(ctx context.Context, typ string, spec map[string]interface{}) (Credentials, error) {
	return iauth.ResolveFromMap(ctx, typ, spec)
}

// BasicAuthConfig mirrors the internal basic.Config.
// Header defaults to "Authorization" when empty.
type BasicAuthConfig basic.Config

func (b BasicAuthConfig) ToMap() map[string]interface{} {
	return basic.Config(b).ToMap()
}

// KeyringAuthConfig reads the token from the OS keyring; Key defaults to Username.
type KeyringAuthConfig keyring.Config

func (k KeyringAuthConfig) ToMap() map[string]interface{} {
	m := map[string]interface{}{"username": k.Username}
	for key, v := range map[string]string{"header": k.Header, "service": k.Service, "key": k.Key, "file_dir": k.FileDir} {
		if v != "" {
			m[key] = v
		}
	}
	return m
}

// ResolveBasic validates cfg and returns it as credentials.
func ResolveBasic(ctx context.Context, cfg BasicAuthConfig) (Credentials, error) {
	return iauth.ResolveFromMap(ctx, AuthTypeBasic, cfg.ToMap())
}

// ResolveKeyring reads the token described by cfg from the OS keyring.
func ResolveKeyring(ctx context.Context, cfg KeyringAuthConfig) (Credentials, error) {
	return iauth.ResolveFromMap(ctx, AuthTypeKeyring, cfg.ToMap())
}

// StoreKeyringToken saves token where ResolveKeyring will find it.
func StoreKeyringToken(cfg KeyringAuthConfig, token string) error {
	return keyring.Config(cfg).Store(token)
}
