package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIChatComplete(t *testing.T) {
	var got chatCompletionsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"## Analysis"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	chat := NewOpenAIChat("test-key", srv.URL+"/")
	out, err := chat.Complete(context.Background(), ChatRequest{
		Model:       "llama-3.3-70b-versatile",
		Messages:    []ChatMessage{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}},
		Temperature: 0.3,
		MaxTokens:   2048,
	})

	require.NoError(t, err)
	assert.Equal(t, "## Analysis", out)
	assert.Equal(t, "llama-3.3-70b-versatile", got.Model)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, 2048, got.MaxTokens)
}

func TestOpenAIChatErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, "llm http 429"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
		{"malformed", http.StatusOK, `not json`, "malformed llm response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOpenAIChat("key", srv.URL).Complete(context.Background(), ChatRequest{Model: "m"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpenAIChatRequiresKey(t *testing.T) {
	_, err := NewOpenAIChat("", "http://127.0.0.1:1").Complete(context.Background(), ChatRequest{Model: "m"})
	assert.EqualError(t, err, "llm api key is empty")
}
