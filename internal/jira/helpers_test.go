package jira

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/loykin/jirarun/internal/auth"
	"github.com/loykin/jirarun/internal/common"
)

// captured is one log record seen by captureHandler.
type captured struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

type captureHandler struct {
	mu      *sync.Mutex
	records *[]captured
	attrs   []slog.Attr
}

func newCapture() (*captureHandler, *[]captured) {
	recs := &[]captured{}
	return &captureHandler{mu: &sync.Mutex{}, records: recs}, recs
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	c := captured{Level: r.Level, Message: r.Message, Attrs: map[string]string{}}
	for _, a := range h.attrs {
		c.Attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		c.Attrs[a.Key] = a.Value.String()
		return true
	})
	h.mu.Lock()
	*h.records = append(*h.records, c)
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &c
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

// outcomes keeps the info and warn records written by the operations themselves.
func outcomes(recs []captured) []captured {
	var out []captured
	for _, r := range recs {
		if r.Level >= slog.LevelInfo && strings.HasPrefix(r.Attrs["component"], "jira-") {
			out = append(out, r)
		}
	}
	return out
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) (*Client, *[]captured) {
	t.Helper()
	h, recs := newCapture()
	logger := common.NewLoggerWithHandler(h, common.LogLevelDebug)
	opts = append([]Option{WithLogger(logger)}, opts...)
	c, err := NewClient(baseURL, auth.Credentials{Username: "alice", Token: "tok"}, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, recs
}

func creds(user, token string) auth.Credentials {
	return auth.Credentials{Username: user, Token: token}
}
