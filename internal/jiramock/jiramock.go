// Package jiramock serves an in-process stand-in for the two Jira Cloud REST
// endpoints the runner calls. Responses can be scripted per issue key; every
// request is recorded for assertions.
package jiramock

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// APIPrefix is the REST root the mock serves under.
const APIPrefix = "/rest/api/latest"

// Response is a scripted status and raw body.
type Response struct {
	Status int
	Body   string
}

// Part is one received multipart file part.
type Part struct {
	Field       string
	FileName    string
	ContentType string
	Content     []byte
}

// Call records one request the mock received.
type Call struct {
	Method         string
	Path           string
	IssueKey       string
	Authorization  string
	Accept         string
	AtlassianToken string
	Parts          []Part
}

// Server holds scripted responses and the call log.
type Server struct {
	mu       sync.Mutex
	username string
	token    string
	issues   map[string]Response
	uploads  map[string]Response
	seeded   map[string]string
	calls    []Call
	nextID   int
	engine   *gin.Engine
	srv      *httptest.Server
}

// NotFoundBody is what Jira answers for an unknown or hidden issue.
const NotFoundBody = `{"errorMessages":["Issue does not exist or you do not have permission to see it."],"errors":{}}`

// NewServer builds the handler set. Requests must authenticate as username/token;
// an empty username disables the check.
func NewServer(username, token string) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		username: username,
		token:    token,
		issues:   map[string]Response{},
		uploads:  map[string]Response{},
		seeded:   map[string]string{},
		nextID:   10000,
	}
	r := gin.New()
	r.Use(gin.Recovery(), s.record)
	api := r.Group(APIPrefix, s.authenticate)
	api.GET("/issue/:key", s.getIssue)
	api.POST("/issue/:key/attachments", s.requireNoCheck, s.addAttachments)
	s.engine = r
	return s
}

// Start serves the handler on a loopback httptest server.
func Start(username, token string) *Server {
	s := NewServer(username, token)
	s.srv = httptest.NewServer(s.engine)
	return s
}

// Handler returns the gin engine for use with any http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

// URL is the REST root of a started server.
func (s *Server) URL() string {
	if s.srv == nil {
		return ""
	}
	return s.srv.URL + APIPrefix
}

// Close stops a started server.
func (s *Server) Close() {
	if s.srv != nil {
		s.srv.Close()
	}
}

// Seed creates issues that answer 200 with a generated id and self link, and accept uploads.
func (s *Server) Seed(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if _, ok := s.seeded[k]; ok {
			continue
		}
		s.nextID++
		s.seeded[k] = strconv.Itoa(s.nextID)
	}
}

// SetIssue scripts the GET response for key.
func (s *Server) SetIssue(key string, status int, body string) {
	s.mu.Lock()
	s.issues[key] = Response{Status: status, Body: body}
	s.mu.Unlock()
}

// SetAttachments scripts the POST attachments response for key.
func (s *Server) SetAttachments(key string, status int, body string) {
	s.mu.Lock()
	s.uploads[key] = Response{Status: status, Body: body}
	s.mu.Unlock()
}

// Calls returns a copy of the call log.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + APIPrefix
}

func writeRaw(c *gin.Context, r Response) {
	if r.Status == http.StatusNoContent || r.Body == "" {
		c.Status(r.Status)
		return
	}
	c.Data(r.Status, "application/json;charset=UTF-8", []byte(r.Body))
}

func (s *Server) record(c *gin.Context) {
	call := Call{
		Method:         c.Request.Method,
		Path:           c.Request.URL.Path,
		Authorization:  c.GetHeader("Authorization"),
		Accept:         c.GetHeader("Accept"),
		AtlassianToken: c.GetHeader("X-Atlassian-Token"),
	}
	c.Next()
	call.IssueKey = c.Param("key")
	if parts, ok := c.Get("parts"); ok {
		call.Parts = parts.([]Part)
	}
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *Server) authenticate(c *gin.Context) {
	if s.username == "" {
		c.Next()
		return
	}
	u, p, ok := c.Request.BasicAuth()
	if !ok || u != s.username || p != s.token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"errorMessages": []string{"You are not authenticated. Authentication required to perform this operation."},
			"errors":        gin.H{},
		})
		return
	}
	c.Next()
}

func (s *Server) requireNoCheck(c *gin.Context) {
	if !strings.EqualFold(c.GetHeader("X-Atlassian-Token"), "no-check") {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"errorMessages": []string{"XSRF check failed"}})
		return
	}
	c.Next()
}

func (s *Server) getIssue(c *gin.Context) {
	key := c.Param("key")
	s.mu.Lock()
	scripted, hasScript := s.issues[key]
	id, seeded := s.seeded[key]
	s.mu.Unlock()

	switch {
	case hasScript:
		writeRaw(c, scripted)
	case seeded:
		c.JSON(http.StatusOK, gin.H{
			"expand": "renderedFields,names,schema,operations,editmeta,changelog,versionedRepresentations",
			"id":     id,
			"self":   baseURL(c) + "/issue/" + id,
			"key":    key,
			"fields": gin.H{"summary": "Seeded issue " + key},
		})
	default:
		writeRaw(c, Response{Status: http.StatusNotFound, Body: NotFoundBody})
	}
}

func (s *Server) addAttachments(c *gin.Context) {
	key := c.Param("key")
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errorMessages": []string{"Invalid multipart request: " + err.Error()}})
		return
	}
	fieldNames := make([]string, 0, len(form.File))
	for field := range form.File {
		fieldNames = append(fieldNames, field)
	}
	sort.Strings(fieldNames)
	var parts []Part
	for _, field := range fieldNames {
		for _, fh := range form.File[field] {
			f, err := fh.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"errorMessages": []string{err.Error()}})
				return
			}
			content, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"errorMessages": []string{err.Error()}})
				return
			}
			parts = append(parts, Part{
				Field:       field,
				FileName:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Content:     content,
			})
		}
	}
	c.Set("parts", parts)

	s.mu.Lock()
	scripted, hasScript := s.uploads[key]
	_, seeded := s.seeded[key]
	s.mu.Unlock()

	switch {
	case hasScript:
		writeRaw(c, scripted)
	case seeded:
		created := make([]gin.H, 0, len(parts))
		for _, p := range parts {
			s.mu.Lock()
			s.nextID++
			id := s.nextID
			s.mu.Unlock()
			created = append(created, gin.H{
				"self":     fmt.Sprintf("%s/attachment/%d", baseURL(c), id),
				"id":       strconv.Itoa(id),
				"filename": p.FileName,
				"size":     len(p.Content),
				"mimeType": p.ContentType,
			})
		}
		c.JSON(http.StatusOK, created)
	default:
		writeRaw(c, Response{Status: http.StatusNotFound, Body: NotFoundBody})
	}
}
