package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/loykin/jirarun/internal/auth/common"
)

// Credentials is the resolved user identifier and token pair.
type Credentials = common.Credentials

// Auth selects a credential provider and carries its loosely-typed configuration.
type Auth struct {
	Type   string                 `mapstructure:"type" yaml:"type"`
	Config map[string]interface{} `mapstructure:"config" yaml:"config"`
}

// Resolve builds the configured provider and returns validated credentials.
// An empty Type means "basic".
func (a *Auth) Resolve(ctx context.Context) (Credentials, error) {
	if a == nil {
		return Credentials{}, fmt.Errorf("auth: no provider configured")
	}
	typ := strings.TrimSpace(a.Type)
	if typ == "" {
		typ = common.AuthTypeBasic
	}
	return ResolveFromMap(ctx, typ, a.Config)
}
