package jira

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/jirarun/internal/auth"
	"github.com/loykin/jirarun/internal/common"
	"github.com/loykin/jirarun/internal/httpc"
)

// DefaultBaseURL is the REST root of the Jira Cloud site the runner targets.
const DefaultBaseURL = "https://cepheidvariable.atlassian.net/rest/api/latest"

var (
	// ErrEmptyBaseURL is returned by NewClient when no base URL is given.
	ErrEmptyBaseURL = errors.New("jira: base url is required")
	// ErrEmptyIssueKey is returned when an operation is called with a blank key.
	ErrEmptyIssueKey = errors.New("jira: issue key is required")
)

// Client is the shared context of both operations: base URL, credentials, HTTP
// transport and log sink. It is read-only after NewClient.
type Client struct {
	baseURL    string
	creds      auth.Credentials
	authHeader string
	authValue  string
	http       *resty.Client
	logger     *common.Logger
	uploads    []UploadFile
}

type options struct {
	httpc   *httpc.Httpc
	logger  *common.Logger
	uploads []UploadFile
}

// Option customises NewClient.
type Option func(*options)

// WithHTTP sets the transport settings (TLS bounds, timeout) used to build the HTTP client.
func WithHTTP(h *httpc.Httpc) Option {
	return func(o *options) {
		if h != nil {
			o.httpc = h
		}
	}
}

// WithLogger sets the log sink outcome records are written to.
func WithLogger(l *common.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithUploads replaces the attachment set sent by AddAttachments.
func WithUploads(files []UploadFile) Option {
	return func(o *options) {
		if len(files) > 0 {
			o.uploads = append([]UploadFile(nil), files...)
		}
	}
}

// NewClient builds the client context. creds must carry a username and token.
func NewClient(baseURL string, creds auth.Credentials, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, ErrEmptyBaseURL
	}
	header, value, err := creds.BasicHeader()
	if err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = common.GetLogger()
	}
	h := httpc.Httpc{}
	if o.httpc != nil {
		h = *o.httpc
	}
	if h.Logger == nil {
		h.Logger = o.logger
	}
	if len(o.uploads) == 0 {
		o.uploads = DefaultUploads(DefaultUploadDir())
	}
	return &Client{
		baseURL:    base,
		creds:      creds,
		authHeader: header,
		authValue:  value,
		http:       h.New(),
		logger:     o.logger,
		uploads:    o.uploads,
	}, nil
}

// BaseURL returns the REST root requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// Username returns the user identifier requests authenticate as.
func (c *Client) Username() string { return c.creds.Username }

// Uploads returns a copy of the attachment set.
func (c *Client) Uploads() []UploadFile { return append([]UploadFile(nil), c.uploads...) }

func (c *Client) request(ctx context.Context) *resty.Request {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader(c.authHeader, c.authValue)
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}

func checkKey(issueKey string) error {
	if strings.TrimSpace(issueKey) == "" {
		return ErrEmptyIssueKey
	}
	return nil
}

// emit writes rec as the message of a single info (ok) or warn record. The source
// location reported is the operation that called emit.
func emit(ctx context.Context, logger *common.Logger, rec *Record, ok bool) {
	level := slog.LevelInfo
	if !ok {
		level = slog.LevelWarn
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !logger.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(2, pcs[:])
	r := slog.NewRecord(time.Now(), level, rec.String(), pcs[0])
	_ = logger.Handler().Handle(ctx, r)
}
