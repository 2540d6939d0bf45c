package runner

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/loykin/jirarun/cmd/jirarun/config"
	"github.com/loykin/jirarun/internal/common"
	"github.com/loykin/jirarun/internal/constants"
	"github.com/loykin/jirarun/internal/jira"
)

// Runner wires configuration, logging and the Jira client for one CLI invocation.
type Runner struct {
	ctx        context.Context
	configPath string
	out        io.Writer

	doc    *config.ConfigDoc
	logger *common.Logger
	client *jira.Client
}

// New returns a runner that reads configPath (a missing file is fine) and logs to out.
func New(ctx context.Context, configPath string, out io.Writer) *Runner {
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = os.Stdout
	}
	return &Runner{ctx: ctx, configPath: configPath, out: out}
}

// setup loads the config, installs the logger and builds the client once.
func (r *Runner) setup() error {
	if r.client != nil {
		return nil
	}
	doc := &config.ConfigDoc{}
	found, err := doc.LoadOptional(r.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := doc.SetupLogging(r.out)
	if err != nil {
		return err
	}
	if !found {
		logger.Debug("no config file, using defaults", "path", r.configPath)
	}
	client, err := doc.BuildClient(r.ctx, logger)
	if err != nil {
		return err
	}
	logger.WithComponent("runner").Debug("client ready",
		"base_url", client.BaseURL(),
		"user", client.Username(),
		"uploads", len(client.Uploads()))
	r.doc, r.logger, r.client = doc, logger, client
	return nil
}

// Fetch runs the issue fetch for key; a blank key falls back to run.fetch_issue.
func (r *Runner) Fetch(key string) (*jira.Record, error) {
	if err := r.setup(); err != nil {
		return nil, err
	}
	if key == "" {
		key = r.doc.FetchIssue()
	}
	return r.client.FetchIssue(r.ctx, key)
}

// Attach runs the attachment upload for key; a blank key falls back to run.attach_issue.
func (r *Runner) Attach(key string) (*jira.Record, error) {
	if err := r.setup(); err != nil {
		return nil, err
	}
	if key == "" {
		key = r.doc.AttachIssue()
	}
	return r.client.AddAttachments(r.ctx, key)
}

// Run performs the fixed sequence: fetch, then upload, then the exit line.
// A remote rejection is logged and does not stop the sequence; any returned error does.
func (r *Runner) Run() error {
	if _, err := r.Fetch(""); err != nil {
		return err
	}
	if _, err := r.Attach(""); err != nil {
		return err
	}
	r.logger.Info(constants.ExitMessage)
	return nil
}
