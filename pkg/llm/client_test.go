package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/galen-ai/galen/pkg/config"
	"github.com/galen-ai/galen/pkg/models"
	"github.com/galen-ai/galen/pkg/schema"
)

func testShape() schema.Shape {
	return schema.Shape{
		Name:    "test-record",
		Version: "1",
		Fields: []schema.Field{
			{Name: "summary", Type: schema.TypeString, Required: true},
			{Name: "severity", Type: schema.TypeString, Required: true, Enum: []string{"minor", "major"}},
		},
	}
}

func completionBody(content string) string {
	resp := models.ChatCompletionResponse{
		ID:    "cmpl-1",
		Model: "gpt-4o-mini",
		Choices: []models.Choice{
			{Message: models.ChatMessage{Role: "assistant", Content: content}},
		},
		Usage: &models.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newTestClient(url string) *Client {
	cfg := config.Default()
	cfg.Providers = []config.ProviderConfig{{Name: "test", URL: url, APIKey: "sk-test"}}
	cfg.Generation.MaxAttempts = 3
	cfg.Generation.MaxShapeRetries = 2
	cfg.Generation.Timeout = 5 * time.Second
	c := New(cfg)
	c.retryBase = time.Millisecond
	return c
}

func TestCompleteReturnsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		fmt.Fprint(w, completionBody("hello there"))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Complete(context.Background(), "sys", "user", "gpt-4o-mini")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hello there" {
		t.Errorf("unexpected text %q", res.Text)
	}
	if res.Usage.TotalTokens != 15 {
		t.Errorf("usage not captured: %+v", res.Usage)
	}
}

func TestGenerateStructuredValid(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req models.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Error("expected json_object response format")
		}
		fmt.Fprint(w, completionBody(`{"summary":"ok","severity":"minor"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).GenerateStructured(context.Background(), "sys", "user", "gpt-4o-mini", testShape())
	if err != nil {
		t.Fatal(err)
	}
	if res.Document["severity"] != "minor" {
		t.Errorf("unexpected document: %v", res.Document)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestGenerateStructuredStripsCodeFence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody("```json\n{\"summary\":\"ok\",\"severity\":\"major\"}\n```"))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).GenerateStructured(context.Background(), "sys", "user", "gpt-4o-mini", testShape())
	if err != nil {
		t.Fatal(err)
	}
	if res.Document["severity"] != "major" {
		t.Errorf("fenced document not decoded: %v", res.Document)
	}
}

func TestGenerateStructuredMissingEnumFieldIsShapeError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// severity (required, enumerated) is always absent
		fmt.Fprint(w, completionBody(`{"summary":"ok"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GenerateStructured(context.Background(), "sys", "user", "gpt-4o-mini", testShape())
	if err == nil {
		t.Fatal("expected shape validation failure")
	}
	if KindOf(err) != KindInvalidShape {
		t.Errorf("expected %s, got %s (%v)", KindInvalidShape, KindOf(err), err)
	}
	// initial attempt + two bounded re-prompts
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestGenerateStructuredRecoversOnReprompt(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			fmt.Fprint(w, completionBody(`{"summary":"ok","severity":"catastrophic"}`))
			return
		}
		var req models.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		user := req.Messages[len(req.Messages)-1].Content
		if !containsAll(user, "previous response was not valid", "severity") {
			t.Errorf("re-prompt should carry the validation problems: %q", user)
		}
		fmt.Fprint(w, completionBody(`{"summary":"ok","severity":"minor"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).GenerateStructured(context.Background(), "sys", "user", "gpt-4o-mini", testShape())
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
	if res.Usage.TotalTokens != 30 {
		t.Errorf("usage should accumulate across re-prompts, got %+v", res.Usage)
	}
}

func TestCompleteRetriesRateLimit(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, completionBody("recovered"))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Complete(context.Background(), "sys", "user", "gpt-4o-mini")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "recovered" {
		t.Errorf("unexpected text %q", res.Text)
	}
	if calls.Load() != 2 {
		t.Errorf("expected retry after 429, got %d calls", calls.Load())
	}
}

func TestCompleteAuthFailureNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Complete(context.Background(), "sys", "user", "gpt-4o-mini")
	if KindOf(err) != KindAuthFailure {
		t.Fatalf("expected auth failure, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("auth failures must not be retried, got %d calls", calls.Load())
	}
}

func TestCompleteFallsBackAcrossProviders(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody("from fallback"))
	}))
	defer good.Close()

	cfg := config.Default()
	cfg.Providers = []config.ProviderConfig{
		{Name: "primary", URL: bad.URL, APIKey: "sk-1"},
		{Name: "secondary", URL: good.URL, APIKey: "sk-2"},
	}
	cfg.Router.Routes = []config.RouteConfig{
		{Model: "gpt-4o-mini", Targets: []config.RouteTarget{
			{Provider: "primary"},
			{Provider: "secondary"},
		}},
	}
	cfg.Generation.MaxAttempts = 1
	cfg.Generation.Timeout = 5 * time.Second
	c := New(cfg)
	c.retryBase = time.Millisecond

	res, err := c.Complete(context.Background(), "sys", "user", "gpt-4o-mini")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "from fallback" || res.Provider != "secondary" {
		t.Errorf("expected fallback provider result, got %+v", res)
	}
}

func TestCompleteNoProviders(t *testing.T) {
	c := New(&config.Config{Generation: config.GenerationConfig{MaxAttempts: 1, Timeout: time.Second}})
	if _, err := c.Complete(context.Background(), "s", "u", "gpt-4o-mini"); err == nil {
		t.Fatal("expected error with no providers configured")
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
