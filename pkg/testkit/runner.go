package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	outbound "github.com/shashiranjanraj/ordersvc/pkg/http"
)

// Runner fires scenarios at one handler. Tokens maps the "as" names to
// bearer tokens; Vars holds {{placeholder}} values and collects captures.
type Runner struct {
	Handler http.Handler
	Tokens  map[string]string

	mu   sync.Mutex
	vars map[string]string
}

func NewRunner(handler http.Handler) *Runner {
	return &Runner{Handler: handler, Tokens: map[string]string{}, vars: map[string]string{}}
}

// Set stores a placeholder value.
func (r *Runner) Set(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vars[name] = value
}

// Var returns a placeholder value, captured or Set.
func (r *Runner) Var(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vars[name]
}

// RunFile runs every scenario in path, in order, as subtests.
func (r *Runner) RunFile(t *testing.T, path string) {
	t.Helper()

	scenarios, err := LoadScenarios(path)
	if err != nil {
		t.Fatalf("testkit: %v", err)
	}
	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			r.Run(t, s)
		})
	}
}

// RunDir runs every *.json file in dir.
func (r *Runner) RunDir(t *testing.T, dir string) {
	t.Helper()

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(files) == 0 {
		t.Fatalf("testkit: no scenario files found in %q", dir)
	}
	for _, path := range files {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".json"), func(t *testing.T) {
			r.RunFile(t, path)
		})
	}
}

// Run fires a single scenario and returns the raw response body.
func (r *Runner) Run(t *testing.T, s *Scenario) []byte {
	t.Helper()

	body, err := r.requestBody(s)
	if err != nil {
		t.Fatalf("[%s] %v", s.Name, err)
	}

	mt := NewMockTransport(s)
	outbound.DefaultClient.Transport = mt
	defer outbound.ResetTransport()

	req := httptest.NewRequest(strings.ToUpper(s.RequestMethod), r.expand(s.RequestURL), body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.As != "" {
		token, ok := r.Tokens[s.As]
		if !ok {
			t.Fatalf("[%s] no token for caller %q", s.Name, s.As)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range s.Headers {
		req.Header.Set(k, r.expand(v))
	}

	rec := httptest.NewRecorder()
	r.Handler.ServeHTTP(rec, req)
	got := rec.Body.Bytes()

	AssertStatusCode(t, s, rec.Code, got)
	AssertJSONContains(t, s, []byte(r.expand(string(s.Expect))), got)
	if p := s.ResponseBodyPath(); p != "" {
		expected, err := os.ReadFile(p)
		if err != nil {
			t.Errorf("[%s] read response file %q: %v", s.Name, p, err)
		} else {
			AssertJSONBody(t, s, expected, got)
		}
	}
	AssertMocksAllCalled(t, s, mt)

	if len(s.Capture) > 0 {
		r.capture(t, s, got)
	}
	return got
}

func (r *Runner) requestBody(s *Scenario) (io.Reader, error) {
	switch {
	case len(s.RequestBody) > 0:
		return strings.NewReader(r.expand(string(s.RequestBody))), nil
	case s.RequestFileName != "":
		data, err := os.ReadFile(s.RequestBodyPath())
		if err != nil {
			return nil, fmt.Errorf("read request file: %w", err)
		}
		return bytes.NewReader([]byte(r.expand(string(data)))), nil
	default:
		return nil, nil
	}
}

func (r *Runner) expand(in string) string {
	if !strings.Contains(in, "{{") {
		return in
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	pairs := make([]string, 0, len(r.vars)*2)
	for k, v := range r.vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(in)
}

func (r *Runner) capture(t *testing.T, s *Scenario, body []byte) {
	t.Helper()

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Errorf("[%s] capture: response is not JSON: %v", s.Name, err)
		return
	}
	for name, path := range s.Capture {
		v, ok := Lookup(doc, path)
		if !ok {
			t.Errorf("[%s] capture %q: path %q not found", s.Name, name, path)
			continue
		}
		r.Set(name, v)
	}
}

// Lookup walks a decoded JSON document along a dotted path such as
// "data.items.0.itemId" and renders the leaf as a string.
func Lookup(doc any, path string) (string, bool) {
	cur := doc
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return "", false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return "", false
			}
			cur = node[i]
		default:
			return "", false
		}
	}

	switch leaf := cur.(type) {
	case string:
		return leaf, true
	case nil:
		return "", false
	default:
		raw, err := json.Marshal(leaf)
		if err != nil {
			return "", false
		}
		return string(raw), true
	}
}
