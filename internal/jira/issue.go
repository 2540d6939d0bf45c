package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const issuePath = "/issue/{issueKey}"

// FetchIssue reads one issue and logs the outcome.
//
// On 200 the record is {"code":200,"success":true,"message":<self>} at info level.
// Any other status logs {"code":..,"success":false} overlaid with the error body at
// warn level. Both cases return the logged record and a nil error. Transport failures
// and bodies that are not the expected JSON are returned as errors and log nothing.
func (c *Client) FetchIssue(ctx context.Context, issueKey string) (*Record, error) {
	if err := checkKey(issueKey); err != nil {
		return nil, err
	}
	logger := c.logger.WithComponent("jira-issue").WithIssue(issueKey)
	logger.Debug("fetching issue", "url", c.endpoint(issuePath))

	resp, err := c.request(ctx).
		SetPathParam("issueKey", issueKey).
		Get(c.endpoint(issuePath))
	if err != nil {
		return nil, fmt.Errorf("jira: get issue %s: %w", issueKey, err)
	}

	status := resp.StatusCode()
	body := resp.Body()
	logger.Debug("received HTTP response", "status_code", status, "response_size", len(body))

	if status != http.StatusOK {
		rec, err := Overlay(NewRecord(status, false), body)
		if err != nil {
			return nil, fmt.Errorf("jira: get issue %s: status %d: %w", issueKey, status, err)
		}
		emit(ctx, logger, rec, false)
		return rec, nil
	}

	rec, err := issueRecord(status, body)
	if err != nil {
		return nil, fmt.Errorf("jira: get issue %s: status %d: %w", issueKey, status, err)
	}
	emit(ctx, logger, rec, true)
	return rec, nil
}

// issueRecord builds the success record from an issue object's "self" link.
func issueRecord(status int, body []byte) (*Record, error) {
	parsed, err := parseBody(body)
	if err != nil {
		return nil, err
	}
	if !parsed.IsObject() {
		return nil, fmt.Errorf("%w: expected an issue object, got %s", ErrMalformedBody, kindOf(parsed))
	}
	self := parsed.Get("self")
	if !self.Exists() {
		return nil, fmt.Errorf("%w: issue has no \"self\" field", ErrMalformedBody)
	}
	rec := NewRecord(status, true)
	rec.SetRaw("message", json.RawMessage(self.Raw))
	return rec, nil
}
