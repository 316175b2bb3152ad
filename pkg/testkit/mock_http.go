package testkit

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockTransport is an http.RoundTripper that answers outgoing requests from
// a scenario's mock steps. Install it on pkg/http's DefaultClient:
//
//	mt := testkit.NewMockTransport(s)
//	outbound.DefaultClient.Transport = mt
//	defer outbound.ResetTransport()
type MockTransport struct {
	mu      sync.Mutex
	steps   []httpMockEntry
	require bool
	calls   []Call
}

// Call is one outgoing request seen by a MockTransport.
type Call struct {
	Method string
	URL    string
	Body   []byte
}

type httpMockEntry struct {
	step      MockStep
	callCount int
}

func NewMockTransport(s *Scenario) *MockTransport {
	mt := &MockTransport{require: s.IsMockRequired}
	for _, step := range s.NetUtilMockStep {
		if step.IsMock {
			mt.steps = append(mt.steps, httpMockEntry{step: step})
		}
	}
	return mt
}

func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	call := Call{Method: req.Method, URL: req.URL.String()}
	if req.Body != nil {
		call.Body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}
	mt.calls = append(mt.calls, call)

	for i := range mt.steps {
		entry := &mt.steps[i]
		if !strings.HasPrefix(req.URL.String(), entry.step.MatchURL) {
			continue
		}
		entry.callCount++
		return buildHTTPResponse(req, entry.step.ReturnData)
	}

	if mt.require {
		return nil, fmt.Errorf("testkit: unexpected outgoing HTTP call to %s", req.URL)
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader(`{"error":"no mock configured"}`)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// Calls returns every request seen so far, matched or not.
func (mt *MockTransport) Calls() []Call {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]Call(nil), mt.calls...)
}

// AssertAllCalled reports every mock step that was never hit.
func (mt *MockTransport) AssertAllCalled() []error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var errs []error
	for _, e := range mt.steps {
		if e.callCount == 0 {
			errs = append(errs, fmt.Errorf("testkit: mock step matchUrl=%q was never called", e.step.MatchURL))
		}
	}
	return errs
}

func buildHTTPResponse(req *http.Request, rd MockReturnData) (*http.Response, error) {
	code := rd.StatusCode
	if code == 0 {
		code = http.StatusOK
	}

	var body []byte
	if rd.Body != "" {
		decoded, err := base64.StdEncoding.DecodeString(rd.Body)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(rd.Body)
			if err != nil {
				return nil, fmt.Errorf("testkit: base64 decode mock body: %w", err)
			}
		}
		body = decoded
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}, nil
}
