package jira

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultUploadField is the multipart field every attachment part is sent under.
	DefaultUploadField = "file"
	// DefaultMediaType is the media type declared for each part. Jira sniffs the
	// real type server-side, so the declared value is passed through untouched.
	DefaultMediaType = "application-type"
	// UploadsDirEnv overrides the directory the upload files are read from.
	UploadsDirEnv = "JIRARUN_UPLOADS_DIR"
)

// UploadFile describes one multipart part of an attachment upload.
type UploadFile struct {
	Field     string `yaml:"field" mapstructure:"field"`
	Name      string `yaml:"name" mapstructure:"name"`
	Path      string `yaml:"path" mapstructure:"path"`
	MediaType string `yaml:"media_type" mapstructure:"media_type"`
}

// DefaultUploads returns the two fixed attachments, text.txt and payload.json, under dir.
func DefaultUploads(dir string) []UploadFile {
	return []UploadFile{
		{Field: DefaultUploadField, Name: "text.txt", Path: filepath.Join(dir, "text.txt"), MediaType: DefaultMediaType},
		{Field: DefaultUploadField, Name: "payload.json", Path: filepath.Join(dir, "payload.json"), MediaType: DefaultMediaType},
	}
}

// DefaultUploadDir resolves where the upload files live: $JIRARUN_UPLOADS_DIR if set,
// otherwise the uploads directory next to the running executable.
func DefaultUploadDir() string {
	if dir := strings.TrimSpace(os.Getenv(UploadsDirEnv)); dir != "" {
		return dir
	}
	exe, err := os.Executable()
	if err != nil {
		return "uploads"
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "uploads")
}

// normalize fills defaults: field "file", media type DefaultMediaType, name from path.
func (u UploadFile) normalize() UploadFile {
	if strings.TrimSpace(u.Field) == "" {
		u.Field = DefaultUploadField
	}
	if strings.TrimSpace(u.MediaType) == "" {
		u.MediaType = DefaultMediaType
	}
	if strings.TrimSpace(u.Name) == "" {
		u.Name = filepath.Base(u.Path)
	}
	return u
}

// openFile is swapped in tests to observe handle lifetimes.
var openFile = func(path string) (io.ReadCloser, error) {
	// #nosec G304 -- upload paths come from the operator's configuration
	return os.Open(filepath.Clean(path))
}

type openUpload struct {
	UploadFile
	r io.ReadCloser
}

type openUploads []openUpload

// Close closes every handle and joins the errors. A handle the transport already
// closed is not an error.
func (o openUploads) Close() error {
	var errs []error
	for _, u := range o {
		if err := u.r.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, fmt.Errorf("close %s: %w", u.Path, err))
		}
	}
	return errors.Join(errs...)
}

// openAll opens every upload read-only. On failure the handles opened so far are closed.
func openAll(files []UploadFile) (openUploads, error) {
	if len(files) == 0 {
		return nil, errors.New("jira: no upload files configured")
	}
	opened := make(openUploads, 0, len(files))
	for _, f := range files {
		f = f.normalize()
		r, err := openFile(f.Path)
		if err != nil {
			_ = opened.Close()
			return nil, fmt.Errorf("jira: open upload: %w", err)
		}
		opened = append(opened, openUpload{UploadFile: f, r: r})
	}
	return opened, nil
}
