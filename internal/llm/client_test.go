package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_ParsesToolCallResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "test-model", req.Model)

		resp := ChatResponse{
			ID:    "resp-1",
			Model: "test-model",
			Choices: []Choice{{
				Message: ChatMessage{
					Role: "assistant",
					ToolCalls: []ToolCall{{
						ID:   "call_1",
						Type: "function",
						Function: FunctionCall{
							Name:      "get_stock_price",
							Arguments: `{"ticker": "AAPL"}`,
						},
					}},
				},
				FinishReason: "tool_calls",
			}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		Endpoint: server.URL,
		APIKey:   "test-key",
		Model:    "test-model",
	})

	resp, err := client.Complete(context.Background(), ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: "scan the market"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)

	calls := resp.Choices[0].Message.ToolCalls
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "get_stock_price", calls[0].Function.Name)
	assert.JSONEq(t, `{"ticker": "AAPL"}`, calls[0].Function.Arguments)
}

func TestComplete_SurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "rate limit exceeded", "type": "rate_limit"},
		})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Endpoint: server.URL, APIKey: "test-key"})

	_, err := client.Complete(context.Background(), ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestComplete_FillsRequestDefaults(t *testing.T) {
	var got ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ChatResponse{Choices: []Choice{{
			Message: ChatMessage{Role: "assistant", Content: "ok"},
		}}})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		Endpoint:    server.URL,
		APIKey:      "k",
		Model:       "default-model",
		Temperature: 0.3,
		MaxTokens:   512,
	})

	_, err := client.Complete(context.Background(), ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "default-model", got.Model)
	assert.Equal(t, 0.3, got.Temperature)
	assert.Equal(t, 512, got.MaxTokens)
}

func TestMockClient_WalksScript(t *testing.T) {
	client := NewMockClient()
	ctx := context.Background()

	// Phase 0: no tool results yet, asks for the AAPL price
	resp, err := client.Complete(ctx, ChatRequest{Messages: []ChatMessage{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "go"},
	}})
	require.NoError(t, err)
	calls := resp.Choices[0].Message.ToolCalls
	require.Len(t, calls, 1)
	assert.Equal(t, "get_stock_price", calls[0].Function.Name)

	// Phase 1: one tool result in history, places the mock order
	resp, err = client.Complete(ctx, ChatRequest{Messages: []ChatMessage{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "go"},
		{Role: "tool", Content: "AAPL: $150.00", ToolCallID: "call_mock_1"},
	}})
	require.NoError(t, err)
	calls = resp.Choices[0].Message.ToolCalls
	require.Len(t, calls, 1)
	assert.Equal(t, "place_trade_orders", calls[0].Function.Name)

	// Phase 2+: script exhausted, text reply terminates the loop
	resp, err = client.Complete(ctx, ChatRequest{Messages: []ChatMessage{
		{Role: "tool", Content: "a", ToolCallID: "1"},
		{Role: "tool", Content: "b", ToolCallID: "2"},
	}})
	require.NoError(t, err)
	assert.Empty(t, resp.Choices[0].Message.ToolCalls)
	assert.Contains(t, resp.Choices[0].Message.Content, "No trade")
}
