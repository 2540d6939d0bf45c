package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/jirarun/internal/auth/basic"
	"github.com/loykin/jirarun/internal/auth/common"
	"github.com/loykin/jirarun/internal/auth/keyring"
)

// Provider resolves credentials for the API.
type Provider interface {
	Name() string
	Resolve(ctx context.Context) (Credentials, error)
}

// Factory builds a Provider from a loosely-typed spec map.
// Decoding into a concrete config struct is the typical responsibility of a Factory.
type Factory func(spec map[string]interface{}) (Provider, error)

var (
	mu        sync.RWMutex
	providers = map[string]Factory{}
)

// normalizeKey lower-cases and trims provider type keys.
func normalizeKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register registers a provider factory under a type key. Empty keys and nil factories are ignored.
func Register(typ string, f Factory) {
	key := normalizeKey(typ)
	if key == "" || f == nil {
		return
	}
	mu.Lock()
	providers[key] = f
	mu.Unlock()
}

// ResolveFromMap builds the provider registered for typ from spec and resolves credentials.
func ResolveFromMap(ctx context.Context, typ string, spec map[string]interface{}) (Credentials, error) {
	mu.RLock()
	f, ok := providers[normalizeKey(typ)]
	mu.RUnlock()
	if !ok {
		return Credentials{}, errors.New("auth: unsupported provider type: " + typ)
	}
	if spec == nil {
		spec = map[string]interface{}{}
	}
	p, err := f(spec)
	if err != nil {
		return Credentials{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return p.Resolve(ctx)
}

func decode(spec map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(spec)
}

// Built-in provider registrations
func init() {
	Register(common.AuthTypeBasic, func(spec map[string]interface{}) (Provider, error) {
		var c basic.Config
		if err := decode(spec, &c); err != nil {
			return nil, err
		}
		return basic.Adapter{C: c}, nil
	})

	Register(common.AuthTypeKeyring, func(spec map[string]interface{}) (Provider, error) {
		var c keyring.Config
		if err := decode(spec, &c); err != nil {
			return nil, err
		}
		return keyring.Adapter{C: c}, nil
	})
}
