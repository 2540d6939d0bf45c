package httpc

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/jirarun/internal/common"
	"github.com/loykin/jirarun/internal/util"
)

// Httpc describes how API clients are built: TLS bounds, an optional timeout
// and where resty's own diagnostics go.
type Httpc struct {
	TlsConfig *tls.Config
	// Timeout of zero leaves requests unbounded; cancellation then comes only from the context.
	Timeout time.Duration
	Logger  *common.Logger
	// Debug turns on resty request/response dumps (credentials are masked).
	Debug bool
}

// New returns a resty.Client configured according to the receiver's settings.
// Defaults: MinVersion TLS1.2 when a TLS config is given with MinVersion zero.
func (h *Httpc) New() *resty.Client {
	c := resty.New()
	logger := h.Logger
	if logger == nil {
		logger = common.GetLogger()
	}
	c.SetLogger(restyLogger{l: logger.WithComponent("httpc")})
	if h.Timeout > 0 {
		c.SetTimeout(h.Timeout)
	}
	if h.Debug {
		c.SetDebug(true)
	}
	cfg := h.TlsConfig
	if cfg == nil {
		return c
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	c.SetTLSClientConfig(cfg)
	return c
}

// ParseTLSVersion converts a TLS version string to the corresponding crypto/tls constant.
// Supports "1.2", "12", "tls1.2", "tls12" and the same forms for 1.0, 1.1 and 1.3.
// Returns 0 if the version string is not recognized.
func ParseTLSVersion(version string) uint16 {
	switch util.TrimAndLower(version) {
	case "1.0", "10", "tls1.0", "tls10":
		return tls.VersionTLS10
	case "1.1", "11", "tls1.1", "tls11":
		return tls.VersionTLS11
	case "1.2", "12", "tls1.2", "tls12":
		return tls.VersionTLS12
	case "1.3", "13", "tls1.3", "tls13":
		return tls.VersionTLS13
	default:
		return 0
	}
}

// TLSConfig builds a tls.Config from textual bounds. It returns nil when nothing
// is configured so resty keeps its default transport settings.
func TLSConfig(insecure bool, minVersion, maxVersion string) (*tls.Config, error) {
	minV := ParseTLSVersion(minVersion)
	maxV := ParseTLSVersion(maxVersion)
	if strings.TrimSpace(minVersion) != "" && minV == 0 {
		return nil, fmt.Errorf("httpc: unknown min_tls_version %q", minVersion)
	}
	if strings.TrimSpace(maxVersion) != "" && maxV == 0 {
		return nil, fmt.Errorf("httpc: unknown max_tls_version %q", maxVersion)
	}
	if minV != 0 && maxV != 0 && minV > maxV {
		return nil, fmt.Errorf("httpc: min_tls_version %q is above max_tls_version %q", minVersion, maxVersion)
	}
	if !insecure && minV == 0 && maxV == 0 {
		return nil, nil
	}
	// #nosec G402 -- InsecureSkipVerify only when explicitly configured for self-hosted instances
	return &tls.Config{MinVersion: minV, MaxVersion: maxV, InsecureSkipVerify: insecure}, nil
}

// restyLogger routes resty diagnostics through the masked structured logger.
type restyLogger struct {
	l *common.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) {
	r.l.Error(r.l.Masker().MaskString(strings.TrimSpace(fmt.Sprintf(format, v...))))
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.l.Warn(r.l.Masker().MaskString(strings.TrimSpace(fmt.Sprintf(format, v...))))
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	r.l.Debug(r.l.Masker().MaskString(strings.TrimSpace(fmt.Sprintf(format, v...))))
}
