package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/openziti/resourcestore/kernel/adapter"
	"github.com/openziti/resourcestore/kernel/model"
)

func TestLoadConfig_Basic(t *testing.T) {
	yaml := `
baseUrl: http://localhost:8080
timeout: 5s
headers:
  Authorization: Bearer token
resources:
  post:
    url: /api/posts/{id}
    collectionUrl: /api/posts
  comment:
    url: /api/comments/{id}
    dataPath: $.result
    retry:
      maxTries: 3
      initialInterval: 10ms
    rateLimit:
      rps: 5
      burst: 2
`
	path := writeTempYaml(t, yaml)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.BaseURL != "http://localhost:8080" {
		t.Errorf("expected baseUrl 'http://localhost:8080', got '%s'", config.BaseURL)
	}
	if len(config.Resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(config.Resources))
	}

	comment := config.Resources["comment"]
	if comment.Retry == nil || comment.Retry.MaxTries != 3 {
		t.Errorf("expected retry with 3 tries, got %+v", comment.Retry)
	}
	if comment.RateLimit == nil || comment.RateLimit.Burst != 2 {
		t.Errorf("expected rate limit burst 2, got %+v", comment.RateLimit)
	}
}

func TestLoadConfig_Build(t *testing.T) {
	yaml := `
resources:
  post:
    url: /api/posts/{id}
    collectionUrl: /api/posts
  comment:
    url: /api/comments/{id}
    dataPath: $.result
`
	config, err := ParseConfig([]byte(yaml))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	configs, err := config.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	post, ok := configs["post"]
	if !ok {
		t.Fatal("resource 'post' not built")
	}
	if got := post.BuildURL(model.FindRecord, "post", "7"); got != "/api/posts/7" {
		t.Errorf("expected '/api/posts/7', got '%s'", got)
	}
	if got := post.BuildURL(model.FindAll, "post", ""); got != "/api/posts" {
		t.Errorf("expected '/api/posts', got '%s'", got)
	}
	if _, ok := post.Serializer.(adapter.JSONSerializer); !ok {
		t.Errorf("expected JSONSerializer, got %T", post.Serializer)
	}

	comment := configs["comment"]
	if s, ok := comment.Serializer.(adapter.JSONPathSerializer); !ok || s.Path != "$.result" {
		t.Errorf("expected JSONPathSerializer at '$.result', got %#v", comment.Serializer)
	}
}

func TestLoadConfig_ModuleFetchesThroughBaseURL(t *testing.T) {
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		if r.URL.Path != "/api/posts/1" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"result":{"type":"post","id":1,"attributes":{"title":"Hello World"}}}`))
	}))
	defer srv.Close()

	yaml := `
baseUrl: ` + srv.URL + `
headers:
  Authorization: Bearer abc
resources:
  post:
    url: /api/posts/{id}
    dataPath: $.result
`
	config, err := ParseConfig([]byte(yaml))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	m, err := config.Module()
	if err != nil {
		t.Fatalf("Module failed: %v", err)
	}
	st := m.NewStore(context.Background())
	defer st.Close()

	attrs, err := m.Fetch(context.Background(), st, "post", "1")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if attrs["title"] != "Hello World" {
		t.Errorf("expected title 'Hello World', got '%v'", attrs["title"])
	}
	if auth.Load() != "Bearer abc" {
		t.Errorf("expected Authorization header, got '%v'", auth.Load())
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeTempYaml(t, `
resources:
  post:
    collectionUrl: /api/posts
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for missing url")
	}
}

func TestParseConfig_UnknownField(t *testing.T) {
	_, err := ParseConfig([]byte(`
resources:
  post:
    url: /api/posts/{id}
    urll: typo
`))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func writeTempYaml(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

// Validation Tests

func TestValidateConfig_Valid(t *testing.T) {
	yaml := `
baseUrl: https://api.example.com
timeout: 10s
resources:
  post:
    url: /posts/{id}
`
	result, err := ValidateConfigBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("ValidateConfigBytes failed: %v", err)
	}

	if !result.IsValid() {
		t.Errorf("expected valid config, got errors: %v", result.Errors)
	}
}

func TestValidateConfig_MissingURL(t *testing.T) {
	yaml := `
resources:
  post:
    dataPath: $.data
`
	result, err := ValidateConfigBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("ValidateConfigBytes failed: %v", err)
	}

	if result.IsValid() {
		t.Error("expected validation errors for missing url")
	}

	hasError := false
	for _, e := range result.Errors {
		if e.Path == "resources.post.url" {
			hasError = true
			break
		}
	}
	if !hasError {
		t.Error("expected error for resources.post.url path")
	}
}

func TestValidateConfig_InvalidTypeName(t *testing.T) {
	yaml := `
resources:
  1-Posts:
    url: /posts/{id}
`
	result, err := ValidateConfigBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("ValidateConfigBytes failed: %v", err)
	}

	if result.IsValid() {
		t.Error("expected validation errors for invalid type name")
	}
}

func TestValidateConfig_BadValues(t *testing.T) {
	yaml := `
baseUrl: not-a-url
timeout: soon
resources:
  post:
    url: /posts/{id}
    dataPath: data
    retry:
      initialInterval: fast
    rateLimit:
      rps: 0
`
	result, err := ValidateConfigBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("ValidateConfigBytes failed: %v", err)
	}

	expected := map[string]bool{
		"baseUrl":                              false,
		"timeout":                              false,
		"resources.post.dataPath":              false,
		"resources.post.retry.initialInterval": false,
		"resources.post.rateLimit.rps":         false,
	}
	for _, e := range result.Errors {
		if _, ok := expected[e.Path]; ok {
			expected[e.Path] = true
		}
	}
	for path, seen := range expected {
		if !seen {
			t.Errorf("expected error for %s", path)
		}
	}
}

func TestValidateConfig_NoResources(t *testing.T) {
	yaml := `
resources: {}
`
	result, err := ValidateConfigBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("ValidateConfigBytes failed: %v", err)
	}

	// valid, but warned
	if !result.IsValid() {
		t.Errorf("expected valid config, got errors: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected warning for empty resources")
	}
}

func TestValidateConfig_Malformed(t *testing.T) {
	_, err := ValidateConfigBytes([]byte("resources: [unclosed"))
	if err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
