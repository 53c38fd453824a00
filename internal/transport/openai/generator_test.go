package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/study-cloud/studyrag/internal/domain"
)

type chatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func newTestGenerator(baseURL string) *Generator {
	return NewGenerator(&GeneratorConfig{
		APIKey:   "test-key",
		BaseURL:  baseURL,
		Model:    "test-chat-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func TestGenerator_GenerateContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-chat-model" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "say hi" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		resp := chatResponse{ID: "chatcmpl-1", Object: "chat.completion", Model: req.Model}
		resp.Choices = make([]struct {
			Index   int `json:"index"`
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		}, 1)
		resp.Choices[0].Message.Role = "assistant"
		resp.Choices[0].Message.Content = "hi there"
		resp.Choices[0].FinishReason = "stop"
		resp.Usage.TotalTokens = 12

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	reply, err := newTestGenerator(server.URL).GenerateContent(context.Background(), "say hi")
	if err != nil {
		t.Fatalf("GenerateContent failed: %v", err)
	}
	if reply != "hi there" {
		t.Errorf("reply = %q, want %q", reply, "hi there")
	}
}

func TestGenerator_NoChoicesReturnsEmptyReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{ID: "chatcmpl-2", Object: "chat.completion"}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	reply, err := newTestGenerator(server.URL).GenerateContent(context.Background(), "anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "" {
		t.Errorf("expected empty reply, got %q", reply)
	}
}

func TestGenerator_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "model overloaded",
				"type":    "server_error",
			},
		})
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).GenerateContent(context.Background(), "anything")
	if !errors.Is(err, domain.ErrModelProviderError) {
		t.Fatalf("expected ErrModelProviderError, got %v", err)
	}
}
