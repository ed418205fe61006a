package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/citeguard/citeguard/internal/model"
)

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient(model.LLMConfig{}); err == nil {
		t.Fatal("a missing API key must fail construction")
	}
}

func TestCompleteParsesResponse(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  {\"status\": \"verified\"}  "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 1000, "completion_tokens": 500, "total_tokens": 1500}
		}`)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(model.LLMConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}

	comp, err := client.Complete(context.Background(), CompletionRequest{
		Prompt:       "verify this",
		SystemPrompt: "you are an analyst",
		JSONResponse: true,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if comp.Content != `{"status": "verified"}` {
		t.Errorf("Content = %q, want the trimmed body", comp.Content)
	}
	if comp.TokensUsed != 1500 {
		t.Errorf("TokensUsed = %d, want 1500", comp.TokensUsed)
	}
	if comp.CostUSD <= 0 {
		t.Errorf("CostUSD = %f, want a positive estimate for a known model", comp.CostUSD)
	}

	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("request model = %v", gotBody["model"])
	}
	if rf, ok := gotBody["response_format"].(map[string]interface{}); !ok || rf["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", gotBody["response_format"])
	}
	msgs, ok := gotBody["messages"].([]interface{})
	if !ok || len(msgs) != 2 {
		t.Fatalf("messages = %v, want system + user", gotBody["messages"])
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "chatcmpl-1", "object": "chat.completion", "choices": [], "usage": {"total_tokens": 0}}`)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(model.LLMConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Complete(context.Background(), CompletionRequest{Prompt: "x"}); err == nil {
		t.Fatal("an empty choice list must error")
	}
}

func TestEstimateCost(t *testing.T) {
	if got := estimateCost("gpt-4o-mini", 1000, 1000); got <= 0 {
		t.Errorf("known model cost = %f, want > 0", got)
	}
	if got := estimateCost("some-unknown-model", 1000, 1000); got != 0 {
		t.Errorf("unknown model cost = %f, want 0 rather than a guess", got)
	}
}
