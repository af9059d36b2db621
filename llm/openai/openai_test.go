package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/flowrun/llm"
)

func TestAdapterExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "gpt-3.5-turbo" || len(req.Messages) != 1 {
			t.Errorf("request = %+v", req)
		}
		io.WriteString(w, `{"model":"gpt-3.5-turbo","choices":[{"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}],"usage":{"prompt_tokens":4,"completion_tokens":1,"total_tokens":5}}`)
	}))
	defer srv.Close()

	a, err := llm.New(llm.Config{Dialect: Name, BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-3.5-turbo"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := a.Execute(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.Content != "hello" || resp.Usage.TotalTokens != 5 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestParseResponse_NoChoices(t *testing.T) {
	if _, err := (&Dialect{}).ParseResponse([]byte(`{"choices":[]}`)); err == nil {
		t.Error("expected error")
	}
}
