package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/jirarun/internal/auth"
	acommon "github.com/loykin/jirarun/internal/auth/common"
	"github.com/loykin/jirarun/internal/common"
	"github.com/loykin/jirarun/internal/constants"
	"github.com/loykin/jirarun/internal/httpc"
	"github.com/loykin/jirarun/internal/jira"
	"github.com/loykin/jirarun/internal/util"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`                   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"`                 // text, json, color
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"` // enable/disable sensitive data masking
	Color         *bool  `mapstructure:"color" yaml:"color"`                   // enable/disable colorized output
}

type ClientConfig struct {
	Insecure      bool   `mapstructure:"insecure" yaml:"insecure"`
	MinTLSVersion string `mapstructure:"min_tls_version" yaml:"min_tls_version"`
	MaxTLSVersion string `mapstructure:"max_tls_version" yaml:"max_tls_version"`
	// Timeout is a duration string ("30s"); empty means no client timeout.
	Timeout string `mapstructure:"timeout" yaml:"timeout"`
	Debug   bool   `mapstructure:"debug" yaml:"debug"`
}

type UploadsConfig struct {
	Dir   string            `mapstructure:"dir" yaml:"dir"`
	Files []jira.UploadFile `mapstructure:"files" yaml:"files"`
}

type RunConfig struct {
	FetchIssue  string `mapstructure:"fetch_issue" yaml:"fetch_issue"`
	AttachIssue string `mapstructure:"attach_issue" yaml:"attach_issue"`
}

type ConfigDoc struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Auth    auth.Auth     `mapstructure:"auth" yaml:"auth"`
	Uploads UploadsConfig `mapstructure:"uploads" yaml:"uploads"`
	Run     RunConfig     `mapstructure:"run" yaml:"run"`
	Client  ClientConfig  `mapstructure:"client" yaml:"client"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

func (c *ConfigDoc) Load(path string) error {
	clean := filepath.Clean(path)
	// Ensure path points to a regular file to avoid opening directories/special files
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the operator; cleaned and validated above
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config %s: %w", clean, err)
	}
	return nil
}

// LoadOptional loads path when it exists. A missing file leaves the defaults in place.
func (c *ConfigDoc) LoadOptional(path string) (bool, error) {
	p, ok := util.TrimEmptyCheck(path)
	if !ok {
		return false, nil
	}
	if err := c.Load(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// BaseURLOrDefault returns the configured REST root or the default Jira site.
func (c *ConfigDoc) BaseURLOrDefault() string {
	return util.TrimWithDefault(c.BaseURL, jira.DefaultBaseURL)
}

// FetchIssue returns the issue key the fixed sequence fetches.
func (c *ConfigDoc) FetchIssue() string {
	return util.TrimWithDefault(c.Run.FetchIssue, constants.DefaultFetchIssue)
}

// AttachIssue returns the issue key the fixed sequence uploads to.
func (c *ConfigDoc) AttachIssue() string {
	return util.TrimWithDefault(c.Run.AttachIssue, constants.DefaultAttachIssue)
}

// UploadFiles resolves the attachment set. Explicit files win; otherwise the two
// default files are read from uploads.dir, $JIRARUN_UPLOADS_DIR or <exe dir>/uploads.
func (c *ConfigDoc) UploadFiles() []jira.UploadFile {
	dir, hasDir := util.TrimEmptyCheck(c.Uploads.Dir)
	if len(c.Uploads.Files) > 0 {
		files := make([]jira.UploadFile, len(c.Uploads.Files))
		for i, f := range c.Uploads.Files {
			if hasDir && f.Path != "" && !filepath.IsAbs(f.Path) {
				f.Path = filepath.Join(dir, f.Path)
			}
			files[i] = f
		}
		return files
	}
	if !hasDir {
		dir = jira.DefaultUploadDir()
	}
	return jira.DefaultUploads(dir)
}

// credentialEnv reads the Atlassian credential variables through viper.
func credentialEnv() (user, token string) {
	v := viper.New()
	_ = v.BindEnv("user", constants.EnvAtlasUser)
	_ = v.BindEnv("token", constants.EnvAtlasToken)
	return v.GetString("user"), v.GetString("token")
}

// authSpec returns the provider type and its config with environment overrides applied.
// ATLASSIAN_USER always sets the username; ATLASSIAN_TOKEN only applies to basic auth.
func (c *ConfigDoc) authSpec() (string, map[string]interface{}) {
	typ := util.TrimWithDefault(util.TrimAndLower(c.Auth.Type), acommon.AuthTypeBasic)
	spec := make(map[string]interface{}, len(c.Auth.Config)+2)
	for k, v := range c.Auth.Config {
		spec[k] = v
	}
	user, token := credentialEnv()
	if u, ok := util.TrimEmptyCheck(user); ok {
		spec["username"] = u
	}
	if t, ok := util.TrimEmptyCheck(token); ok && typ == acommon.AuthTypeBasic {
		spec["token"] = t
	}
	return typ, spec
}

// Credentials resolves the configured credential provider.
func (c *ConfigDoc) Credentials(ctx context.Context) (auth.Credentials, error) {
	typ, spec := c.authSpec()
	creds, err := auth.ResolveFromMap(ctx, typ, spec)
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("auth %s: %w", typ, err)
	}
	return creds, nil
}

// HTTP builds the transport settings from the client section.
func (c *ConfigDoc) HTTP(logger *common.Logger) (*httpc.Httpc, error) {
	tlsCfg, err := httpc.TLSConfig(c.Client.Insecure, c.Client.MinTLSVersion, c.Client.MaxTLSVersion)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	var timeout time.Duration
	if s, ok := util.TrimEmptyCheck(c.Client.Timeout); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("client: invalid timeout %q: %w", s, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("client: negative timeout %q", s)
		}
		timeout = d
	}
	return &httpc.Httpc{TlsConfig: tlsCfg, Timeout: timeout, Logger: logger, Debug: c.Client.Debug}, nil
}

// BuildClient resolves credentials and transport and returns the shared client context.
func (c *ConfigDoc) BuildClient(ctx context.Context, logger *common.Logger) (*jira.Client, error) {
	if logger == nil {
		logger = common.GetLogger()
	}
	creds, err := c.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	h, err := c.HTTP(logger)
	if err != nil {
		return nil, err
	}
	return jira.NewClient(c.BaseURLOrDefault(), creds,
		jira.WithHTTP(h),
		jira.WithLogger(logger),
		jira.WithUploads(c.UploadFiles()),
	)
}

func (c *ConfigDoc) parseLogLevel() (common.LogLevel, error) {
	level := util.TrimAndLower(c.Logging.Level)
	switch level {
	case "error":
		return common.LogLevelError, nil
	case "warn", "warning":
		return common.LogLevelWarn, nil
	case "info", "":
		return common.LogLevelInfo, nil
	case "debug":
		return common.LogLevelDebug, nil
	default:
		return common.LogLevelInfo, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", c.Logging.Level)
	}
}

// NewLogger builds the logger described by the logging section, writing to w.
// The default format is color, which prints each outcome record verbatim.
func (c *ConfigDoc) NewLogger(w io.Writer) (*common.Logger, error) {
	level, err := c.parseLogLevel()
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stdout
	}

	var logger *common.Logger
	format := util.TrimWithDefault(util.TrimAndLower(c.Logging.Format), "color")
	switch format {
	case "json":
		logger = common.NewJSONLoggerTo(w, level)
	case "text":
		logger = common.NewLoggerTo(w, level)
	case "color", "colour":
		logger = common.NewColorLoggerTo(w, level)
		if c.Logging.Color != nil {
			if h, ok := logger.Handler().(*common.ColorHandler); ok {
				h.SetColorEnabled(*c.Logging.Color)
			}
		}
	default:
		return nil, fmt.Errorf("invalid logging format: %s (valid: text, json, color)", c.Logging.Format)
	}

	maskingEnabled := true
	if c.Logging.MaskSensitive != nil {
		maskingEnabled = *c.Logging.MaskSensitive
	}
	logger.EnableMasking(maskingEnabled)
	return logger, nil
}

// SetupLogging configures the global logger based on config settings
func (c *ConfigDoc) SetupLogging(w io.Writer) (*common.Logger, error) {
	logger, err := c.NewLogger(w)
	if err != nil {
		return nil, err
	}
	common.SetDefaultLogger(logger)
	common.EnableMasking(logger.Masker().IsEnabled())

	logger.Debug("logging configured",
		"level", logger.Level().String(),
		"format", util.TrimWithDefault(util.TrimAndLower(c.Logging.Format), "color"),
		"mask_sensitive", logger.Masker().IsEnabled())
	return logger, nil
}

// String renders the document as YAML with the credential config masked.
func (c *ConfigDoc) String() string {
	cp := *c
	if len(c.Auth.Config) > 0 {
		cp.Auth.Config = make(map[string]interface{}, len(c.Auth.Config))
		m := common.GetGlobalMasker()
		for k, v := range c.Auth.Config {
			if m.IsSensitiveKey(k) {
				v = common.MaskedValue
			}
			cp.Auth.Config[k] = v
		}
	}
	out, err := yaml.Marshal(&cp)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return strings.TrimSpace(string(out))
}
