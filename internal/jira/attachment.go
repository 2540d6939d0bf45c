package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const attachmentsPath = "/issue/{issueKey}/attachments"

// AddAttachments uploads the client's attachment set to an issue and logs the outcome.
//
// 200 logs {"code":200,"success":true,"attachments":[<self>...]} at info level.
// 204 carries no body and logs the same shape with an empty list.
// Any other status follows the FetchIssue failure path. Every opened file is closed
// before AddAttachments returns, whatever the outcome.
func (c *Client) AddAttachments(ctx context.Context, issueKey string) (rec *Record, err error) {
	if err := checkKey(issueKey); err != nil {
		return nil, err
	}
	logger := c.logger.WithComponent("jira-attachments").WithIssue(issueKey)

	files, err := openAll(c.uploads)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := files.Close(); cerr != nil {
			logger.Warn("failed to close upload file", "error", cerr)
		}
	}()

	fields := make([]*resty.MultipartField, 0, len(files))
	for _, f := range files {
		fields = append(fields, &resty.MultipartField{
			Param:       f.Field,
			FileName:    f.Name,
			ContentType: f.MediaType,
			Reader:      f.r,
		})
	}
	logger.Debug("uploading attachments", "url", c.endpoint(attachmentsPath), "files", len(fields))

	resp, err := c.request(ctx).
		SetHeader("X-Atlassian-Token", "no-check").
		SetPathParam("issueKey", issueKey).
		SetMultipartFields(fields...).
		Post(c.endpoint(attachmentsPath))
	if err != nil {
		return nil, fmt.Errorf("jira: add attachments to %s: %w", issueKey, err)
	}

	status := resp.StatusCode()
	body := resp.Body()
	logger.Debug("received HTTP response", "status_code", status, "response_size", len(body))

	switch status {
	case http.StatusNoContent:
		rec = NewRecord(status, true)
		rec.SetRaw("attachments", json.RawMessage("[]"))
	case http.StatusOK:
		rec, err = attachmentsRecord(status, body)
		if err != nil {
			return nil, fmt.Errorf("jira: add attachments to %s: status %d: %w", issueKey, status, err)
		}
	default:
		rec, err = Overlay(NewRecord(status, false), body)
		if err != nil {
			return nil, fmt.Errorf("jira: add attachments to %s: status %d: %w", issueKey, status, err)
		}
		emit(ctx, logger, rec, false)
		return rec, nil
	}
	emit(ctx, logger, rec, true)
	return rec, nil
}

// attachmentsRecord collects the "self" link of every created attachment, in order.
func attachmentsRecord(status int, body []byte) (*Record, error) {
	parsed, err := parseBody(body)
	if err != nil {
		return nil, err
	}
	if !parsed.IsArray() {
		return nil, fmt.Errorf("%w: expected an array of attachments, got %s", ErrMalformedBody, kindOf(parsed))
	}
	var links bytes.Buffer
	links.WriteByte('[')
	var missing error
	n := 0
	parsed.ForEach(func(_, item gjson.Result) bool {
		self := item.Get("self")
		if !item.IsObject() || !self.Exists() {
			missing = fmt.Errorf("%w: attachment %d has no \"self\" field", ErrMalformedBody, n)
			return false
		}
		if n > 0 {
			links.WriteByte(',')
		}
		links.WriteString(self.Raw)
		n++
		return true
	})
	if missing != nil {
		return nil, missing
	}
	links.WriteByte(']')

	rec := NewRecord(status, true)
	rec.SetRaw("attachments", links.Bytes())
	return rec, nil
}
