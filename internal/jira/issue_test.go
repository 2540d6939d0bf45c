package jira

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/loykin/jirarun/internal/jiramock"
)

func stubServer(t *testing.T, status int, body string) (*httptest.Server, <-chan *http.Request) {
	t.Helper()
	seen := make(chan *http.Request, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Clone(context.Background())
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestFetchIssue_Success(t *testing.T) {
	srv, seen := stubServer(t, 200, `{"self": "https://x/issue/123"}`)
	c, recs := newTestClient(t, srv.URL+"/rest/api/latest")

	rec, err := c.FetchIssue(context.Background(), "PROJ-123")
	if err != nil {
		t.Fatalf("FetchIssue: %v", err)
	}
	want := `{"code":200,"success":true,"message":"https://x/issue/123"}`
	if rec.String() != want {
		t.Fatalf("record %s, want %s", rec.String(), want)
	}

	logged := outcomes(*recs)
	if len(logged) != 1 {
		t.Fatalf("expected one outcome record, got %d", len(logged))
	}
	if logged[0].Level != slog.LevelInfo || logged[0].Message != want {
		t.Fatalf("unexpected log record %+v", logged[0])
	}
	if logged[0].Attrs["component"] != "jira-issue" || logged[0].Attrs["issue"] != "PROJ-123" {
		t.Fatalf("missing context attrs %+v", logged[0].Attrs)
	}

	req := <-seen
	if req.Method != http.MethodGet || req.URL.Path != "/rest/api/latest/issue/PROJ-123" {
		t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
	}
	if req.Header.Get("Accept") != "application/json" {
		t.Fatalf("expected Accept: application/json, got %q", req.Header.Get("Accept"))
	}
	if u, p, ok := req.BasicAuth(); !ok || u != "alice" || p != "tok" {
		t.Fatalf("expected basic auth alice/tok, got %q/%q ok=%v", u, p, ok)
	}
}

func TestFetchIssue_Failure(t *testing.T) {
	srv, _ := stubServer(t, 404, `{"errorMessages":["Issue does not exist."]}`)
	c, recs := newTestClient(t, srv.URL)

	rec, err := c.FetchIssue(context.Background(), "PROJ-404")
	if err != nil {
		t.Fatalf("remote rejection must not be an error: %v", err)
	}
	want := `{"code":404,"success":false,"errorMessages":["Issue does not exist."]}`
	if rec.String() != want {
		t.Fatalf("record %s, want %s", rec.String(), want)
	}
	logged := outcomes(*recs)
	if len(logged) != 1 || logged[0].Level != slog.LevelWarn || logged[0].Message != want {
		t.Fatalf("unexpected log records %+v", logged)
	}
}

func TestFetchIssue_FailureStatuses(t *testing.T) {
	for _, status := range []int{201, 204, 301, 400, 401, 403, 500, 503} {
		body := `{"errorMessages":["nope"],"errors":{}}`
		srv, _ := stubServer(t, status, body)
		c, recs := newTestClient(t, srv.URL)

		rec, err := c.FetchIssue(context.Background(), "K-1")
		if status == 204 {
			if !errors.Is(err, ErrMalformedBody) {
				t.Fatalf("status 204: expected ErrMalformedBody, got %v", err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("status %d: %v", status, err)
		}
		if rec.Code() != status || rec.Success() {
			t.Fatalf("status %d: unexpected record %s", status, rec.String())
		}
		logged := outcomes(*recs)
		if len(logged) != 1 || logged[0].Level != slog.LevelWarn {
			t.Fatalf("status %d: expected a single warn record, got %+v", status, logged)
		}
	}
}

func TestFetchIssue_MalformedBodyFailsLoudly(t *testing.T) {
	cases := []struct {
		status int
		body   string
	}{
		{200, `not json`},
		{200, `{"key":"X-1"}`},
		{200, `[{"self":"x"}]`},
		{401, `<html>Unauthorized</html>`},
		{500, ``},
	}
	for _, tc := range cases {
		srv, _ := stubServer(t, tc.status, tc.body)
		c, recs := newTestClient(t, srv.URL)
		rec, err := c.FetchIssue(context.Background(), "K-1")
		if !errors.Is(err, ErrMalformedBody) {
			t.Fatalf("%d %q: expected ErrMalformedBody, got %v", tc.status, tc.body, err)
		}
		if rec != nil {
			t.Fatalf("%d %q: expected no record", tc.status, tc.body)
		}
		if n := len(outcomes(*recs)); n != 0 {
			t.Fatalf("%d %q: expected nothing logged, got %d records", tc.status, tc.body, n)
		}
	}
}

func TestFetchIssue_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, recs := newTestClient(t, base)
	if _, err := c.FetchIssue(context.Background(), "K-1"); err == nil {
		t.Fatal("expected transport error")
	}
	if n := len(outcomes(*recs)); n != 0 {
		t.Fatalf("expected nothing logged, got %d records", n)
	}
}

func TestFetchIssue_Idempotent(t *testing.T) {
	srv, _ := stubServer(t, 200, `{"self":"https://x/issue/1"}`)
	c, recs := newTestClient(t, srv.URL)
	for i := 0; i < 2; i++ {
		if _, err := c.FetchIssue(context.Background(), "K-1"); err != nil {
			t.Fatalf("FetchIssue: %v", err)
		}
	}
	logged := outcomes(*recs)
	if len(logged) != 2 || logged[0].Message != logged[1].Message || logged[0].Level != logged[1].Level {
		t.Fatalf("expected two identical records, got %+v", logged)
	}
}

func TestFetchIssue_EmptyKey(t *testing.T) {
	c, _ := newTestClient(t, "http://127.0.0.1:1")
	if _, err := c.FetchIssue(context.Background(), " "); !errors.Is(err, ErrEmptyIssueKey) {
		t.Fatalf("expected ErrEmptyIssueKey, got %v", err)
	}
}

func TestFetchIssue_AgainstMock(t *testing.T) {
	m := jiramock.Start("alice", "tok")
	defer m.Close()
	m.Seed("DOP-10")

	c, _ := newTestClient(t, m.URL())
	rec, err := c.FetchIssue(context.Background(), "DOP-10")
	if err != nil {
		t.Fatalf("FetchIssue: %v", err)
	}
	if !rec.Success() || !strings.HasPrefix(rec.String(), `{"code":200,"success":true,"message":"`+m.URL()+"/issue/") {
		t.Fatalf("unexpected record %s", rec.String())
	}

	rec, err = c.FetchIssue(context.Background(), "DOP-999")
	if err != nil {
		t.Fatalf("FetchIssue: %v", err)
	}
	want := `{"code":404,"success":false,"errorMessages":["Issue does not exist or you do not have permission to see it."],"errors":{}}`
	if rec.String() != want {
		t.Fatalf("record %s, want %s", rec.String(), want)
	}
}

func TestFetchIssue_BadCredentialsAgainstMock(t *testing.T) {
	m := jiramock.Start("alice", "other")
	defer m.Close()
	m.Seed("DOP-10")

	c, recs := newTestClient(t, m.URL())
	rec, err := c.FetchIssue(context.Background(), "DOP-10")
	if err != nil {
		t.Fatalf("FetchIssue: %v", err)
	}
	if rec.Code() != http.StatusUnauthorized || rec.Success() {
		t.Fatalf("unexpected record %s", rec.String())
	}
	if logged := outcomes(*recs); len(logged) != 1 || logged[0].Level != slog.LevelWarn {
		t.Fatalf("expected one warn record, got %+v", logged)
	}
}
