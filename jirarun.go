// Package jirarun calls two endpoints of the Jira Cloud REST API, fetch an issue and
// attach files to an issue, and logs the outcome of each call as one JSON line.
package jirarun

import (
	"github.com/loykin/jirarun/internal/common"
	"github.com/loykin/jirarun/internal/httpc"
	"github.com/loykin/jirarun/internal/jira"
)

// DefaultBaseURL is the REST root used when none is configured.
const DefaultBaseURL = jira.DefaultBaseURL

// Client carries the base URL, credentials, transport and log sink shared by both operations.
type Client = jira.Client

// Option customises NewClient.
type Option = jira.Option

// Record is an outcome record: an ordered JSON object starting with code and success.
type Record = jira.Record

// UploadFile describes one multipart part of an attachment upload.
type UploadFile = jira.UploadFile

// HTTPConfig holds transport settings: TLS bounds, timeout and debug dumps.
type HTTPConfig = httpc.Httpc

var (
	ErrMalformedBody = jira.ErrMalformedBody
	ErrEmptyBaseURL  = jira.ErrEmptyBaseURL
	ErrEmptyIssueKey = jira.ErrEmptyIssueKey
)

// NewClient builds a client for baseURL authenticating with creds.
func NewClient(baseURL string, creds Credentials, opts ...Option) (*Client, error) {
	return jira.NewClient(baseURL, creds, opts...)
}

func WithHTTP(h *HTTPConfig) Option { return jira.WithHTTP(h) }
func WithLogger(l *Logger) Option { return jira.WithLogger(l) }
func WithUploads(files []UploadFile) Option { return jira.WithUploads(files) }

// DefaultUploads returns the two fixed attachments, text.txt and payload.json, under dir.
func DefaultUploads(dir string) []UploadFile { return jira.DefaultUploads(dir) }

// NewRecord starts a record with code and success.
func NewRecord(code int, success bool) *Record { return jira.NewRecord(code, success) }

// Overlay merges the top-level keys of a JSON object body into a copy of base.
func Overlay(base *Record, body []byte) (*Record, error) { return jira.Overlay(base, body) }

// Logging

type Logger = common.Logger
type LogLevel = common.LogLevel

const (
	LogLevelError = common.LogLevelError
	LogLevelWarn  = common.LogLevelWarn
	LogLevelInfo  = common.LogLevelInfo
	LogLevelDebug = common.LogLevelDebug
)

func NewLogger(level LogLevel) *Logger { return common.NewLogger(level) }
func NewJSONLogger(level LogLevel) *Logger { return common.NewJSONLogger(level) }
func NewColorLogger(level LogLevel) *Logger { return common.NewColorLogger(level) }
func SetDefaultLogger(l *Logger) { common.SetDefaultLogger(l) }
func GetLogger() *Logger { return common.GetLogger() }
func EnableMasking(enabled bool) { common.EnableMasking(enabled) }
