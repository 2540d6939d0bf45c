package jira

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/loykin/jirarun/internal/jiramock"
)

func writeUploads(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "text.txt"), []byte("hello jira\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "payload.json"), []byte(`{"k":"v"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

// trackOpens records every handle openFile hands out and whether it was closed.
func trackOpens(t *testing.T) func() (opened, closed int) {
	t.Helper()
	var mu sync.Mutex
	var handles []*trackedFile
	orig := openFile
	openFile = func(path string) (io.ReadCloser, error) {
		rc, err := orig(path)
		if err != nil {
			return nil, err
		}
		tf := &trackedFile{ReadCloser: rc}
		mu.Lock()
		handles = append(handles, tf)
		mu.Unlock()
		return tf, nil
	}
	t.Cleanup(func() { openFile = orig })
	return func() (int, int) {
		mu.Lock()
		defer mu.Unlock()
		closed := 0
		for _, h := range handles {
			if h.closed {
				closed++
			}
		}
		return len(handles), closed
	}
}

type trackedFile struct {
	io.ReadCloser
	closed bool
}

func (f *trackedFile) Close() error {
	f.closed = true
	return f.ReadCloser.Close()
}

type receivedPart struct {
	field, name, contentType, content string
}

func uploadServer(t *testing.T, status int, body string) (*httptest.Server, <-chan []receivedPart, <-chan *http.Request) {
	t.Helper()
	parts := make(chan []receivedPart, 4)
	reqs := make(chan *http.Request, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got []receivedPart
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err == nil {
			mr := multipart.NewReader(r.Body, params["boundary"])
			for {
				p, err := mr.NextPart()
				if err != nil {
					break
				}
				b, _ := io.ReadAll(p)
				got = append(got, receivedPart{p.FormName(), p.FileName(), p.Header.Get("Content-Type"), string(b)})
			}
		}
		parts <- got
		reqs <- r.Clone(context.Background())
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, parts, reqs
}

func TestAddAttachments_Success(t *testing.T) {
	srv, parts, reqs := uploadServer(t, 200, `[{"self":"https://x/a1"},{"self":"https://x/a2"}]`)
	counts := trackOpens(t)
	c, recs := newTestClient(t, srv.URL, WithUploads(DefaultUploads(writeUploads(t))))

	rec, err := c.AddAttachments(context.Background(), "DOP-a11")
	if err != nil {
		t.Fatalf("AddAttachments: %v", err)
	}
	want := `{"code":200,"success":true,"attachments":["https://x/a1","https://x/a2"]}`
	if rec.String() != want {
		t.Fatalf("record %s, want %s", rec.String(), want)
	}
	logged := outcomes(*recs)
	if len(logged) != 1 || logged[0].Level != slog.LevelInfo || logged[0].Message != want {
		t.Fatalf("unexpected log records %+v", logged)
	}

	req := <-reqs
	if req.Method != http.MethodPost || req.URL.Path != "/issue/DOP-a11/attachments" {
		t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
	}
	if req.Header.Get("X-Atlassian-Token") != "no-check" {
		t.Fatalf("missing X-Atlassian-Token header")
	}
	if u, p, ok := req.BasicAuth(); !ok || u != "alice" || p != "tok" {
		t.Fatalf("expected basic auth, got %q/%q", u, p)
	}

	got := <-parts
	wantParts := []receivedPart{
		{"file", "text.txt", "application-type", "hello jira\n"},
		{"file", "payload.json", "application-type", `{"k":"v"}`},
	}
	if len(got) != len(wantParts) {
		t.Fatalf("expected %d parts, got %+v", len(wantParts), got)
	}
	for i := range wantParts {
		if got[i] != wantParts[i] {
			t.Fatalf("part %d: got %+v, want %+v", i, got[i], wantParts[i])
		}
	}

	if opened, closed := counts(); opened != 2 || closed != 2 {
		t.Fatalf("expected 2 files opened and closed, got %d/%d", opened, closed)
	}
}

func TestAddAttachments_NoContent(t *testing.T) {
	srv, _, _ := uploadServer(t, 204, "")
	c, recs := newTestClient(t, srv.URL, WithUploads(DefaultUploads(writeUploads(t))))

	rec, err := c.AddAttachments(context.Background(), "DOP-a11")
	if err != nil {
		t.Fatalf("AddAttachments: %v", err)
	}
	want := `{"code":204,"success":true,"attachments":[]}`
	if rec.String() != want {
		t.Fatalf("record %s, want %s", rec.String(), want)
	}
	if logged := outcomes(*recs); len(logged) != 1 || logged[0].Level != slog.LevelInfo {
		t.Fatalf("unexpected log records %+v", logged)
	}
}

func TestAddAttachments_EmptyArray(t *testing.T) {
	srv, _, _ := uploadServer(t, 200, `[]`)
	c, _ := newTestClient(t, srv.URL, WithUploads(DefaultUploads(writeUploads(t))))
	rec, err := c.AddAttachments(context.Background(), "K-1")
	if err != nil {
		t.Fatalf("AddAttachments: %v", err)
	}
	if rec.String() != `{"code":200,"success":true,"attachments":[]}` {
		t.Fatalf("unexpected record %s", rec.String())
	}
}

func TestAddAttachments_Failure(t *testing.T) {
	srv, _, _ := uploadServer(t, 413, `{"errorMessages":["The file is too large."],"code":"TOO_LARGE"}`)
	counts := trackOpens(t)
	c, recs := newTestClient(t, srv.URL, WithUploads(DefaultUploads(writeUploads(t))))

	rec, err := c.AddAttachments(context.Background(), "K-1")
	if err != nil {
		t.Fatalf("remote rejection must not be an error: %v", err)
	}
	want := `{"code":"TOO_LARGE","success":false,"errorMessages":["The file is too large."]}`
	if rec.String() != want {
		t.Fatalf("record %s, want %s", rec.String(), want)
	}
	if logged := outcomes(*recs); len(logged) != 1 || logged[0].Level != slog.LevelWarn || logged[0].Message != want {
		t.Fatalf("unexpected log records %+v", logged)
	}
	if opened, closed := counts(); opened != closed {
		t.Fatalf("leaked handles: opened %d closed %d", opened, closed)
	}
}

func TestAddAttachments_MalformedSuccessBody(t *testing.T) {
	for _, body := range []string{``, `{"self":"x"}`, `[{"id":"1"}]`, `["https://x/a1"]`} {
		srv, _, _ := uploadServer(t, 200, body)
		counts := trackOpens(t)
		c, recs := newTestClient(t, srv.URL, WithUploads(DefaultUploads(writeUploads(t))))
		if _, err := c.AddAttachments(context.Background(), "K-1"); !errors.Is(err, ErrMalformedBody) {
			t.Fatalf("body %q: expected ErrMalformedBody, got %v", body, err)
		}
		if n := len(outcomes(*recs)); n != 0 {
			t.Fatalf("body %q: expected nothing logged, got %d", body, n)
		}
		if opened, closed := counts(); opened != 2 || closed != 2 {
			t.Fatalf("body %q: expected handles closed, got %d/%d", body, opened, closed)
		}
	}
}

func TestAddAttachments_MissingFileClosesOpened(t *testing.T) {
	dir := writeUploads(t)
	if err := os.Remove(filepath.Join(dir, "payload.json")); err != nil {
		t.Fatal(err)
	}
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()
	counts := trackOpens(t)
	c, recs := newTestClient(t, srv.URL, WithUploads(DefaultUploads(dir)))

	_, err := c.AddAttachments(context.Background(), "K-1")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if calls != 0 {
		t.Fatal("no request may be sent when an upload file is missing")
	}
	if opened, closed := counts(); opened != 1 || closed != 1 {
		t.Fatalf("expected the first file to be closed, got %d/%d", opened, closed)
	}
	if n := len(outcomes(*recs)); n != 0 {
		t.Fatalf("expected nothing logged, got %d", n)
	}
}

func TestAddAttachments_TransportErrorClosesFiles(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	counts := trackOpens(t)
	c, _ := newTestClient(t, base, WithUploads(DefaultUploads(writeUploads(t))))
	if _, err := c.AddAttachments(context.Background(), "K-1"); err == nil {
		t.Fatal("expected transport error")
	}
	if opened, closed := counts(); opened != 2 || closed != 2 {
		t.Fatalf("expected handles closed, got %d/%d", opened, closed)
	}
}

func TestAddAttachments_AgainstMock(t *testing.T) {
	m := jiramock.Start("alice", "tok")
	defer m.Close()
	m.Seed("DOP-a11")

	c, _ := newTestClient(t, m.URL(), WithUploads(DefaultUploads(writeUploads(t))))
	rec, err := c.AddAttachments(context.Background(), "DOP-a11")
	if err != nil {
		t.Fatalf("AddAttachments: %v", err)
	}
	if !rec.Success() || !strings.Contains(rec.String(), m.URL()+"/attachment/") {
		t.Fatalf("unexpected record %s", rec.String())
	}

	calls := m.Calls()
	if len(calls) != 1 || calls[0].AtlassianToken != "no-check" || len(calls[0].Parts) != 2 {
		t.Fatalf("unexpected calls %+v", calls)
	}
	if calls[0].Parts[0].FileName != "text.txt" || calls[0].Parts[1].FileName != "payload.json" {
		t.Fatalf("unexpected part order %+v", calls[0].Parts)
	}
}
