package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"paradel/internal/auth"
	"paradel/internal/db"
)

const testFixture = `
types:
  - id: quote
    label: Quote
  - id: text
    label: Text
  - id: banner
    label: Banner
nodes:
  - nid: 1
    title: Node A
  - nid: 2
    title: Node B
paragraphs:
  - id: 10
    type: quote
    parent: node/1/field_blocks
  - id: 11
    type: quote
    parent: node/1/field_blocks
  - id: 12
    type: quote
    parent: node/2/field_blocks
  - id: 13
    type: text
    parent: node/2/field_blocks
`

func setupTestServer(t *testing.T) (*httptest.Server, Deps, string) {
	t.Helper()
	database, err := db.OpenMigrated(filepath.Join(t.TempDir(), "paradel-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	deps, err := NewDeps(database, "test", zerolog.Nop(), 16, 16)
	if err != nil {
		t.Fatalf("new deps: %v", err)
	}
	apiKey := createAccountForTest(t, database, "admin", "admin")
	t.Cleanup(func() { _ = database.Close() })
	return newTestHTTPServer(t, deps), deps, apiKey
}

func newTestHTTPServer(t *testing.T, deps Deps) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(deps))
	t.Cleanup(srv.Close)
	return srv
}

func importFixtureForTest(t *testing.T, database *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	if err := os.WriteFile(path, []byte(testFixture), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := db.ImportFromPath(context.Background(), database, path); err != nil {
		t.Fatalf("import fixture: %v", err)
	}
}

func createAccountForTest(t *testing.T, database *sql.DB, name, role string) string {
	t.Helper()
	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate api key: %v", err)
	}
	if err := db.CreateAccount(context.Background(), database, name, role, auth.HashAPIKey(apiKey)); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return apiKey
}

var noRedirectClient = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func doReq(t *testing.T, baseURL, apiKey, method, path string, body any) *http.Response {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal req: %v", err)
		}
	}
	req, err := http.NewRequest(method, baseURL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := noRedirectClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

// newFormRequest builds an HTML form post the way a browser submits the admin
// pages: cookie auth plus the form token when formID is set.
func newFormRequest(t *testing.T, baseURL, apiKey, path, formID string, form url.Values) *http.Request {
	t.Helper()
	values := url.Values{}
	for k, v := range form {
		values[k] = v
	}
	if formID != "" {
		values.Set(formTokenField, auth.FormToken(auth.HashAPIKey(apiKey), formID))
	}
	req, err := http.NewRequest(http.MethodPost, baseURL+path, strings.NewReader(values.Encode()))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: apiKey})
	return req
}

func doForm(t *testing.T, baseURL, apiKey, path, formID string, form url.Values) *http.Response {
	t.Helper()
	return sendNoRedirect(t, newFormRequest(t, baseURL, apiKey, path, formID, form))
}

func sendNoRedirect(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := noRedirectClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}
