package testkit_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	outbound "github.com/shashiranjanraj/ordersvc/pkg/http"
	"github.com/shashiranjanraj/ordersvc/pkg/testkit"
)

// echo answers /things with a fixed id, /things/{id} with the bearer token
// it saw, and /notify by calling an outside webhook.
var echo = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/things":
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"t-42","tags":["a","b"]}}`))
	case r.URL.Path == "/things/t-42":
		_ = json.NewEncoder(w).Encode(map[string]any{"auth": r.Header.Get("Authorization")})
	case r.URL.Path == "/notify":
		resp, err := outbound.Post("https://hooks.example.com/orders").Body(map[string]string{"id": "t-42"}).Send()
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(resp.Raw)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}
})

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunFileCapturesAcrossSteps(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "things.json", `[
	  {"name": "create", "requestMethod": "POST", "requestUrl": "/things",
	   "requestBody": {"name": "x"}, "expectedCode": 201,
	   "expect": {"data": {"id": "t-42"}}, "capture": {"thingId": "data.id", "tag": "data.tags.1"}},
	  {"name": "show", "requestUrl": "/things/{{thingId}}", "as": "ann",
	   "expectedStatusCode": 200, "expect": {"auth": "Bearer tok-ann"}}
	]`)

	r := testkit.NewRunner(echo)
	r.Tokens["ann"] = "tok-ann"
	r.RunFile(t, path)

	assert.Equal(t, "t-42", r.Var("thingId"))
	assert.Equal(t, "b", r.Var("tag"))
}

func TestResponseFileMatchesExactly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "missing_res.json", `{"message": "Not Found"}`)
	path := writeFile(t, dir, "missing.json", `[
	  {"name": "unknown path", "requestUrl": "/nope", "expectedCode": 404, "responseFileName": "missing_res.json"}
	]`)

	testkit.NewRunner(echo).RunFile(t, path)
}

func TestMockedWebhook(t *testing.T) {
	s := &testkit.Scenario{
		Name:           "notify",
		RequestMethod:  http.MethodPost,
		RequestURL:     "/notify",
		ExpectedCode:   http.StatusAccepted,
		Expect:         json.RawMessage(`{"ok":true}`),
		IsMockRequired: true,
		NetUtilMockStep: []testkit.MockStep{{
			Method:   "httprequest",
			IsMock:   true,
			MatchURL: "https://hooks.example.com/",
			// base64(`{"ok":true}`)
			ReturnData: testkit.MockReturnData{StatusCode: http.StatusAccepted, Body: "eyJvayI6dHJ1ZX0="},
		}},
	}
	testkit.NewRunner(echo).Run(t, s)
}

func TestMockTransport(t *testing.T) {
	s := &testkit.Scenario{
		IsMockRequired: true,
		NetUtilMockStep: []testkit.MockStep{
			{Method: "httprequest", IsMock: true, MatchURL: "https://expected.com/"},
		},
	}
	mt := testkit.NewMockTransport(s)

	require.Len(t, mt.AssertAllCalled(), 1)

	resp, err := mt.RoundTrip(httptest.NewRequest(http.MethodGet, "https://expected.com/a", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, mt.AssertAllCalled())

	_, err = mt.RoundTrip(httptest.NewRequest(http.MethodGet, "https://unexpected.com/a", nil))
	assert.Error(t, err)
	assert.Len(t, mt.Calls(), 2)
}

func TestLoadScenariosValidates(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"no name":      `[{"requestUrl": "/x", "expectedCode": 200}]`,
		"no url":       `[{"name": "a", "expectedCode": 200}]`,
		"no code":      `[{"name": "a", "requestUrl": "/x"}]`,
		"bad mock":     `[{"name": "a", "requestUrl": "/x", "expectedCode": 200, "netUtilMockStep": [{"method": "sms"}]}]`,
		"two bodies":   `[{"name": "a", "requestUrl": "/x", "expectedCode": 200, "requestBody": {}, "requestFileName": "b.json"}]`,
		"not an array": `{"name": "a"}`,
	}
	for name, body := range cases {
		_, err := testkit.LoadScenarios(writeFile(t, dir, "case.json", body))
		assert.Error(t, err, name)
	}

	scenarios, err := testkit.LoadScenarios(writeFile(t, dir, "ok.json",
		`[{"name": "a", "requestUrl": "/x", "expectedStatusCode": 204, "requestFileName": "req.json"}]`))
	require.NoError(t, err)
	assert.Equal(t, "GET", scenarios[0].RequestMethod)
	assert.Equal(t, 204, scenarios[0].ExpectedCode)
	assert.Equal(t, filepath.Join(dir, "req.json"), scenarios[0].RequestBodyPath())
}

func TestLookup(t *testing.T) {
	var doc any
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"items":[{"qty":2}],"total":19.98,"gone":null}}`), &doc))

	v, ok := testkit.Lookup(doc, "data.items.0.qty")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	v, ok = testkit.Lookup(doc, "data.total")
	assert.True(t, ok)
	assert.Equal(t, "19.98", v)

	_, ok = testkit.Lookup(doc, "data.gone")
	assert.False(t, ok)
	_, ok = testkit.Lookup(doc, "data.items.3")
	assert.False(t, ok)
}
