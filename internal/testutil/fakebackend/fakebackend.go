// Package fakebackend is an in-memory stand-in for the tracker REST backend used
// by tests. It follows json-server conventions: numeric ids, query-string equality
// filters and 404 for unknown records.
package fakebackend

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/gin-gonic/gin"
)

// Request is a recorded backend call
type Request struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

type failure struct {
	status int
	body   string
}

// Backend holds the fake's state
type Backend struct {
	mu       sync.Mutex
	nextID   int64
	users    []domain.User
	jobs     []domain.Job
	requests []Request
	failures map[string]failure
	delay    time.Duration

	server *httptest.Server
}

// New starts a fake backend. Call Close when done.
func New() *Backend {
	gin.SetMode(gin.TestMode)

	b := &Backend{
		nextID:   1,
		failures: make(map[string]failure),
	}

	r := gin.New()
	r.Use(b.record)
	r.GET("/users", b.listUsers)
	r.POST("/users", b.createUser)
	r.GET("/jobs", b.listJobs)
	r.GET("/jobs/:id", b.getJob)
	r.POST("/jobs", b.createJob)
	r.PUT("/jobs/:id", b.updateJob)
	r.DELETE("/jobs/:id", b.deleteJob)

	b.server = httptest.NewServer(r)
	return b
}

// URL returns the base URL of the fake
func (b *Backend) URL() string {
	return b.server.URL
}

// Close shuts the fake down
func (b *Backend) Close() {
	b.server.Close()
}

// AddUser seeds a user and returns it with its assigned id
func (b *Backend) AddUser(username, password string) domain.User {
	b.mu.Lock()
	defer b.mu.Unlock()

	user := domain.User{ID: b.allocID(), Username: username, Password: password}
	b.users = append(b.users, user)
	return user
}

// AddJob seeds a job and returns it with its assigned id
func (b *Backend) AddJob(job domain.Job) domain.Job {
	b.mu.Lock()
	defer b.mu.Unlock()

	job.ID = b.allocID()
	b.jobs = append(b.jobs, job)
	return job
}

// Jobs returns a copy of the stored jobs
func (b *Backend) Jobs() []domain.Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Job(nil), b.jobs...)
}

// Users returns a copy of the stored users
func (b *Backend) Users() []domain.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.User(nil), b.users...)
}

// Requests returns every call received so far
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// CountRequests counts calls matching method and path
func (b *Backend) CountRequests(method, path string) int {
	n := 0
	for _, req := range b.Requests() {
		if req.Method == method && req.Path == path {
			n++
		}
	}
	return n
}

// FailWith makes every call to method+path answer status with body
func (b *Backend) FailWith(method, path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = failure{status: status, body: body}
}

// ClearFailures removes every configured failure
func (b *Backend) ClearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = make(map[string]failure)
}

// SetDelay delays every response by d
func (b *Backend) SetDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

func (b *Backend) allocID() domain.ID {
	id := domain.NumericID(b.nextID)
	b.nextID++
	return id
}

func (b *Backend) record(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	b.mu.Lock()
	b.requests = append(b.requests, Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.RawQuery,
		Body:   body,
	})
	f, failing := b.failures[c.Request.Method+" "+c.Request.URL.Path]
	delay := b.delay
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}

	if failing {
		c.Data(f.status, "application/json", []byte(f.body))
		c.Abort()
		return
	}
	c.Next()
}

func (b *Backend) listUsers(c *gin.Context) {
	username, filtered := c.GetQuery("username")

	b.mu.Lock()
	defer b.mu.Unlock()

	out := []domain.User{}
	for _, u := range b.users {
		if !filtered || u.Username == username {
			out = append(out, u)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) createUser(c *gin.Context) {
	var user domain.User
	if err := c.ShouldBindJSON(&user); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	user.ID = b.allocID()
	b.users = append(b.users, user)
	c.JSON(http.StatusCreated, user)
}

func (b *Backend) listJobs(c *gin.Context) {
	userID, filtered := c.GetQuery("userId")

	b.mu.Lock()
	defer b.mu.Unlock()

	out := []domain.Job{}
	for _, j := range b.jobs {
		if !filtered || j.UserID.String() == userID {
			out = append(out, j)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) find(id string) int {
	for i, j := range b.jobs {
		if j.ID.String() == id {
			return i
		}
	}
	return -1
}

func (b *Backend) getJob(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.find(c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{})
		return
	}
	c.JSON(http.StatusOK, b.jobs[i])
}

func (b *Backend) createJob(c *gin.Context) {
	var job domain.Job
	if err := json.NewDecoder(c.Request.Body).Decode(&job); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	job.ID = b.allocID()
	b.jobs = append(b.jobs, job)
	c.JSON(http.StatusCreated, job)
}

func (b *Backend) updateJob(c *gin.Context) {
	var job domain.Job
	if err := json.NewDecoder(c.Request.Body).Decode(&job); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.find(c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{})
		return
	}
	job.ID = b.jobs[i].ID
	b.jobs[i] = job
	c.JSON(http.StatusOK, job)
}

func (b *Backend) deleteJob(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.find(c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{})
		return
	}
	b.jobs = append(b.jobs[:i], b.jobs[i+1:]...)
	c.JSON(http.StatusOK, gin.H{})
}
