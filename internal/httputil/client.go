// Package httputil holds the HTTP client seam used to reach the appliance and
// the JSON response helpers shared by the dashboard handlers.
package httputil

import (
	"bytes"
	"net/http"
	"sync"
)

// HTTPClient is the subset of *http.Client the device client needs.
// Requests carry their own context, so only Do is required.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StandardClient wraps *http.Client to implement HTTPClient.
type StandardClient struct {
	*http.Client
}

// NewStandardClient wraps c, or http.DefaultClient when c is nil.
func NewStandardClient(c *http.Client) *StandardClient {
	if c == nil {
		c = http.DefaultClient
	}
	return &StandardClient{Client: c}
}

func (c *StandardClient) Do(req *http.Request) (*http.Response, error) {
	return c.Client.Do(req)
}

// MockHTTPClient replays queued responses and records every request.
type MockHTTPClient struct {
	mu          sync.Mutex
	DoFunc      func(req *http.Request) (*http.Response, error)
	Requests    []*http.Request
	Responses   []*MockResponse
	responseIdx int

	// Fallback is used once the queue is drained. Nil means an empty 200.
	Fallback *MockResponse
}

// MockResponse is a canned response. A non-nil Error is returned instead of
// a response.
type MockResponse struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	Error      error
}

func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{}
}

// AddResponse queues a response with the given status and body.
func (m *MockHTTPClient) AddResponse(statusCode int, body string) *MockHTTPClient {
	return m.AddResponseWithHeaders(statusCode, []byte(body), nil)
}

// AddResponseWithHeaders queues a response carrying headers, such as a
// Content-Type for binary bodies.
func (m *MockHTTPClient) AddResponseWithHeaders(statusCode int, body []byte, headers http.Header) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	if headers == nil {
		headers = make(http.Header)
	}
	m.Responses = append(m.Responses, &MockResponse{StatusCode: statusCode, Body: body, Headers: headers})
	return m
}

// AddErrorResponse queues a transport error.
func (m *MockHTTPClient) AddErrorResponse(err error) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, &MockResponse{Error: err})
	return m
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	doFunc := m.DoFunc
	var next *MockResponse
	if doFunc == nil {
		if m.responseIdx < len(m.Responses) {
			next = m.Responses[m.responseIdx]
			m.responseIdx++
		} else {
			next = m.Fallback
		}
	}
	m.mu.Unlock()

	// DoFunc runs unlocked so it may block without stalling other callers.
	if doFunc != nil {
		return doFunc(req)
	}
	if next == nil {
		next = &MockResponse{StatusCode: http.StatusOK}
	}
	if next.Error != nil {
		return nil, next.Error
	}
	headers := next.Headers
	if headers == nil {
		headers = make(http.Header)
	}
	return &http.Response{
		StatusCode: next.StatusCode,
		Body:       nopCloser{bytes.NewReader(next.Body)},
		Header:     headers.Clone(),
		Request:    req,
	}, nil
}

type nopCloser struct{ *bytes.Reader }

func (nopCloser) Close() error { return nil }

// GetRequest returns the nth recorded request, or nil.
func (m *MockHTTPClient) GetRequest(n int) *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.Requests) {
		return nil
	}
	return m.Requests[n]
}

func (m *MockHTTPClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// Reset clears recorded requests and queued responses.
func (m *MockHTTPClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = nil
	m.Responses = nil
	m.responseIdx = 0
	m.Fallback = nil
	m.DoFunc = nil
}
