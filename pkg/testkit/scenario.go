// Package testkit drives HTTP API tests from JSON scenario files.
//
// A scenario file holds an array of steps run in order against one handler:
//
//	[
//	  {
//	    "name": "create order",
//	    "requestMethod": "POST",
//	    "requestUrl": "/api/orders",
//	    "as": "ann",
//	    "requestBody": {"items": [...], "shippingAddress": {...}},
//	    "expectedCode": 201,
//	    "expect": {"data": {"status": "Pending"}},
//	    "capture": {"orderId": "data.id"}
//	  },
//	  {
//	    "name": "fetch it back",
//	    "requestUrl": "/api/orders/{{orderId}}",
//	    "as": "ann",
//	    "expectedCode": 200
//	  }
//	]
//
// "as" names a caller whose bearer token the Runner holds. "capture" stores
// values from the response body for {{placeholders}} in later steps.
// Outgoing calls made through pkg/http can be intercepted with
// "netUtilMockStep" entries.
package testkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Scenario is one request and what its response must look like.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	RequestMethod   string            `json:"requestMethod"`
	RequestURL      string            `json:"requestUrl"`
	As              string            `json:"as"`
	RequestBody     json.RawMessage   `json:"requestBody"`
	RequestFileName string            `json:"requestFileName"` // relative to the scenario file
	Headers         map[string]string `json:"headers"`

	ExpectedCode       int `json:"expectedCode"`
	ExpectedStatusCode int `json:"expectedStatusCode"` // alias

	// Expect must be contained in the response body: objects match on the
	// keys they list, arrays and scalars match exactly.
	Expect json.RawMessage `json:"expect"`
	// ResponseFileName names a file the body must equal exactly.
	ResponseFileName string `json:"responseFileName"`

	// Capture maps a placeholder name to a dotted path into the response.
	Capture map[string]string `json:"capture"`

	// IsMockRequired fails any outgoing call without a matching step.
	IsMockRequired  bool       `json:"isMockRequired"`
	NetUtilMockStep []MockStep `json:"netUtilMockStep"`

	dir string
}

// MockStep intercepts outgoing HTTP calls whose URL starts with MatchURL.
type MockStep struct {
	// Method is "httprequest"; other kinds are rejected at load time.
	Method     string         `json:"method"`
	IsMock     bool           `json:"isMock"`
	MatchURL   string         `json:"matchUrl"`
	ReturnData MockReturnData `json:"returnData"`
}

type MockReturnData struct {
	StatusCode int `json:"statusCode"` // defaults to 200
	// Body is base64 encoded.
	Body string `json:"body"`
}

// LoadScenarios reads an array of scenarios from path.
func LoadScenarios(path string) ([]*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var scenarios []*Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}

	dir := filepath.Dir(abs)
	for i, s := range scenarios {
		s.dir = dir
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("testkit: %q step %d: %w", abs, i, err)
		}
	}
	return scenarios, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.RequestURL == "" {
		return errors.New("requestUrl is required")
	}
	if s.ExpectedCode == 0 {
		s.ExpectedCode = s.ExpectedStatusCode
	}
	if s.ExpectedCode == 0 {
		return errors.New("expectedCode is required")
	}
	if s.RequestMethod == "" {
		s.RequestMethod = "GET"
	}
	if len(s.RequestBody) > 0 && s.RequestFileName != "" {
		return errors.New("requestBody and requestFileName are mutually exclusive")
	}
	for i, step := range s.NetUtilMockStep {
		if step.Method != "httprequest" {
			return fmt.Errorf("netUtilMockStep[%d]: unsupported method %q", i, step.Method)
		}
	}
	return nil
}

// RequestBodyPath resolves RequestFileName against the scenario's directory.
func (s *Scenario) RequestBodyPath() string {
	return s.resolve(s.RequestFileName)
}

func (s *Scenario) ResponseBodyPath() string {
	return s.resolve(s.ResponseFileName)
}

func (s *Scenario) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}
