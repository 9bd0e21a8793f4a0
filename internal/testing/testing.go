// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
)

// SubsonicCall is a request received by a [SubsonicServer], with auth parameters included.
type SubsonicCall struct {
	Endpoint string
	Query    url.Values
}

// SubsonicHandler returns the body placed inside "subsonic-response" for a call.
// Returning a nil map produces an ok envelope with no payload.
type SubsonicHandler func(call SubsonicCall) map[string]any

// SubsonicServer is an httptest server speaking the Subsonic JSON envelope.
type SubsonicServer struct {
	*httptest.Server

	mu    sync.Mutex
	calls []SubsonicCall
}

// NewSubsonicServer starts a server that answers /rest/<endpoint> via handler. It is closed with t.
func NewSubsonicServer(t *testing.T, handler SubsonicHandler) *SubsonicServer {
	t.Helper()

	s := &SubsonicServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := SubsonicCall{
			Endpoint: strings.TrimPrefix(r.URL.Path, "/rest/"),
			Query:    r.URL.Query(),
		}
		s.mu.Lock()
		s.calls = append(s.calls, call)
		s.mu.Unlock()

		body := map[string]any{"status": "ok", "version": "1.16.1"}
		for k, v := range handler(call) {
			body[k] = v
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"subsonic-response": body})
	}))
	t.Cleanup(s.Close)
	return s
}

// Calls returns the requests received so far.
func (s *SubsonicServer) Calls() []SubsonicCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SubsonicCall(nil), s.calls...)
}

// CallsTo returns the requests received for endpoint.
func (s *SubsonicServer) CallsTo(endpoint string) []SubsonicCall {
	var out []SubsonicCall
	for _, c := range s.Calls() {
		if c.Endpoint == endpoint {
			out = append(out, c)
		}
	}
	return out
}

// SubsonicFailure builds a failed envelope body with the given protocol error.
func SubsonicFailure(code int, message string) map[string]any {
	return map[string]any{
		"status": "failed",
		"error":  map[string]any{"code": code, "message": message},
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
