package common

import (
	"encoding/base64"
	"errors"
	"strings"
)

// Known provider type keys.
const (
	AuthTypeBasic   = "basic"
	AuthTypeKeyring = "keyring"
)

// ErrMissingCredentials is returned when a username or token is blank.
var ErrMissingCredentials = errors.New("basic: username and token are required")

// Credentials is the resolved user identifier and API token used for HTTP Basic auth.
type Credentials struct {
	Username string
	Token    string
	// Header defaults to Authorization when empty.
	Header string
}

// HeaderOrDefault returns h trimmed, or "Authorization" when blank.
func HeaderOrDefault(h string) string {
	h = strings.TrimSpace(h)
	if h == "" {
		return "Authorization"
	}
	return h
}

// Validate reports ErrMissingCredentials when either part is blank.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.Token) == "" {
		return ErrMissingCredentials
	}
	return nil
}

// BasicHeader returns the header name and "Basic <base64(user:token)>" value.
func (c Credentials) BasicHeader() (string, string, error) {
	if err := c.Validate(); err != nil {
		return "", "", err
	}
	u := strings.TrimSpace(c.Username)
	p := strings.TrimSpace(c.Token)
	cred := base64.StdEncoding.EncodeToString([]byte(u + ":" + p))
	return HeaderOrDefault(c.Header), "Basic " + cred, nil
}

// String never exposes the token.
func (c Credentials) String() string {
	return "Credentials{Username: " + c.Username + ", Token: ***MASKED***}"
}
