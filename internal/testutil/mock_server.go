// Package testutil provides testing utilities for the installer packages.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
)

// MockServer stands in for a package mirror. Every path serves the same
// payload, so one server can back any number of package URLs.
type MockServer struct {
	Server *httptest.Server

	payload     []byte
	contentType string
	status      int   // 0 means 200
	omitLength  bool  // stream without Content-Length
	cutAfter    int64 // drop the body after this many bytes, 0 disables
	failNth     int64 // answer this request number with 500, 0 disables

	requests  atomic.Int64
	failed    atomic.Int64
	completed atomic.Int64
}

// MockServerOption configures a MockServer.
type MockServerOption func(*MockServer)

// WithFileSize serves size zero bytes.
func WithFileSize(size int64) MockServerOption {
	return func(m *MockServer) { m.payload = make([]byte, size) }
}

// WithContent serves exactly data.
func WithContent(data []byte) MockServerOption {
	return func(m *MockServer) { m.payload = data }
}

// WithContentType sets the Content-Type header.
func WithContentType(ct string) MockServerOption {
	return func(m *MockServer) { m.contentType = ct }
}

// WithoutContentLength streams the body without announcing its size.
func WithoutContentLength() MockServerOption {
	return func(m *MockServer) { m.omitLength = true }
}

// WithFailAfterBytes ends every response after n bytes, short of the
// announced length.
func WithFailAfterBytes(n int64) MockServerOption {
	return func(m *MockServer) { m.cutAfter = n }
}

// WithFailOnNthRequest answers the nth request with a 500.
func WithFailOnNthRequest(n int) MockServerOption {
	return func(m *MockServer) { m.failNth = int64(n) }
}

// WithStatus answers every request with code and no payload.
func WithStatus(code int) MockServerOption {
	return func(m *MockServer) { m.status = code }
}

// NewMockServerT starts a mirror for the duration of the test.
func NewMockServerT(t *testing.T, opts ...MockServerOption) *MockServer {
	t.Helper()
	m := &MockServer{
		payload:     make([]byte, 64*1024),
		contentType: "application/octet-stream",
	}
	for _, opt := range opts {
		opt(m)
	}
	m.Server = NewHTTPServerT(t, http.HandlerFunc(m.serve))
	return m
}

// URL returns the server's base URL.
func (m *MockServer) URL() string {
	return m.Server.URL
}

// FileURL returns the URL of a named file on the server.
func (m *MockServer) FileURL(name string) string {
	return m.Server.URL + "/" + name
}

// MockServerStats counts requests by how they ended.
type MockServerStats struct {
	TotalRequests  int64
	FailedRequests int64
	CompletedFull  int64
}

// Stats returns the counters so far.
func (m *MockServer) Stats() MockServerStats {
	return MockServerStats{
		TotalRequests:  m.requests.Load(),
		FailedRequests: m.failed.Load(),
		CompletedFull:  m.completed.Load(),
	}
}

func (m *MockServer) serve(w http.ResponseWriter, r *http.Request) {
	n := m.requests.Add(1)

	switch {
	case m.status != 0 && m.status != http.StatusOK:
		m.failed.Add(1)
		http.Error(w, http.StatusText(m.status), m.status)
		return
	case m.failNth > 0 && n == m.failNth:
		m.failed.Add(1)
		http.Error(w, "simulated failure", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", m.contentType)
	if !m.omitLength {
		w.Header().Set("Content-Length", strconv.Itoa(len(m.payload)))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}

	body := m.payload
	if m.cutAfter > 0 && m.cutAfter < int64(len(body)) {
		body = body[:m.cutAfter]
	}
	if _, err := w.Write(body); err != nil {
		return
	}
	if len(body) < len(m.payload) {
		m.failed.Add(1)
		return
	}
	m.completed.Add(1)
}
