package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry(baseURL string) Config {
	return Config{
		APIKey:          "test-key",
		BaseURL:         baseURL,
		InitialInterval: time.Millisecond,
		MaxElapsed:      time.Second,
	}
}

func anthropicReply(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":          "msg_test123",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-3-haiku-20240307",
		"stop_reason": "end_turn",
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"usage": map[string]interface{}{"input_tokens": 10, "output_tokens": 5},
	})
}

func openAIReply(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]interface{}{"role": "assistant", "content": text},
			},
		},
		"usage": map[string]interface{}{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
}

func errorReply(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, `{"type":"error","error":{"type":"api_error","message":"try again"}}`)
}

func TestAnthropicGenerate(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Messages) > 0 && len(body.Messages[0].Content) > 0 {
			gotPrompt = body.Messages[0].Content[0].Text
		}
		anthropicReply(w, `{"title":"Improve stability"}`)
	}))
	defer server.Close()

	gen, err := NewAnthropic(fastRetry(server.URL))
	if err != nil {
		t.Fatalf("NewAnthropic() error = %v", err)
	}
	if gen.Model() != "claude-3-haiku-20240307" {
		t.Errorf("default model = %s", gen.Model())
	}

	out, err := gen.Generate(context.Background(), "describe the trend")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != `{"title":"Improve stability"}` {
		t.Errorf("Generate() = %q", out)
	}
	if gotPrompt != "describe the trend" {
		t.Errorf("server received prompt %q", gotPrompt)
	}
}

func TestAnthropicRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			errorReply(w, http.StatusServiceUnavailable)
			return
		}
		anthropicReply(w, "ok")
	}))
	defer server.Close()

	gen, err := NewAnthropic(fastRetry(server.URL))
	if err != nil {
		t.Fatal(err)
	}
	out, err := gen.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "ok" {
		t.Errorf("Generate() = %q, want ok", out)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("server called %d times, want 2", n)
	}
}

func TestAnthropicDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		errorReply(w, http.StatusBadRequest)
	}))
	defer server.Close()

	gen, err := NewAnthropic(fastRetry(server.URL))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gen.Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for 400 response")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
}

func TestGenerateStopsOnCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errorReply(w, http.StatusTooManyRequests)
	}))
	defer server.Close()

	gen, err := NewAnthropic(fastRetry(server.URL))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := gen.Generate(ctx, "prompt"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestOpenAIGenerateSendsSchema(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		openAIReply(w, `{"title":"Speed up sync"}`)
	}))
	defer server.Close()

	gen, err := NewOpenAI(fastRetry(server.URL))
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}
	out, err := gen.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != `{"title":"Speed up sync"}` {
		t.Errorf("Generate() = %q", out)
	}

	if body["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v, want gpt-4o-mini", body["model"])
	}
	format, _ := body["response_format"].(map[string]interface{})
	if format["type"] != "json_schema" {
		t.Fatalf("response_format = %v, want json_schema", body["response_format"])
	}
	raw, _ := json.Marshal(format["json_schema"])
	for _, field := range []string{"title", "description", "tags", "estimated_effort", "potential_impact"} {
		if !strings.Contains(string(raw), `"`+field+`"`) {
			t.Errorf("schema is missing %s: %s", field, raw)
		}
	}
}

func TestNewSelectsProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantErr  bool
	}{
		{"", "*llm.Anthropic", false},
		{"anthropic", "*llm.Anthropic", false},
		{"OpenAI", "*llm.OpenAI", false},
		{"gemini", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			gen, err := New(Config{Provider: tt.provider, APIKey: "k"})
			if tt.wantErr {
				if err == nil {
					t.Error("expected error for unsupported provider")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			switch gen.(type) {
			case *Anthropic:
				if tt.want != "*llm.Anthropic" {
					t.Errorf("got Anthropic, want %s", tt.want)
				}
			case *OpenAI:
				if tt.want != "*llm.OpenAI" {
					t.Errorf("got OpenAI, want %s", tt.want)
				}
			}
		})
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	for _, provider := range []string{"anthropic", "openai"} {
		if _, err := New(Config{Provider: provider}); !errors.Is(err, ErrAPIKeyRequired) {
			t.Errorf("%s: error = %v, want ErrAPIKeyRequired", provider, err)
		}
	}
}

func TestStaticAndFunc(t *testing.T) {
	out, err := Static("fixed").Generate(context.Background(), "anything")
	if err != nil || out != "fixed" {
		t.Errorf("Static.Generate() = %q, %v", out, err)
	}

	boom := errors.New("boom")
	_, err = Func(func(context.Context, string) (string, error) { return "", boom }).Generate(context.Background(), "p")
	if !errors.Is(err, boom) {
		t.Errorf("Func.Generate() error = %v, want boom", err)
	}
}
