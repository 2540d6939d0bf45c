package basic

import (
	"github.com/loykin/jirarun/internal/auth/common"
)

// Config holds configuration for Basic authentication with an Atlassian account
// e-mail (or user name) and API token.
type Config struct {
	Header   string `mapstructure:"header"`
	Username string `mapstructure:"username"`
	Token    string `mapstructure:"token"`
}

// Credentials validates the config and returns it as resolved credentials.
func (c Config) Credentials() (common.Credentials, error) {
	creds := common.Credentials{Username: c.Username, Token: c.Token, Header: c.Header}
	if err := creds.Validate(); err != nil {
		return common.Credentials{}, err
	}
	return creds, nil
}

// ToMap returns the spec map form accepted by the auth registry.
func (c Config) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"username": c.Username,
		"token":    c.Token,
	}
	if c.Header != "" {
		m["header"] = c.Header
	}
	return m
}
