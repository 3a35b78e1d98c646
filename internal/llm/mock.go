package llm

import (
	"context"

	"github.com/rs/zerolog/log"
)

// MockClient is the deterministic provider used when no API key is present.
// It walks a fixed two-phase script: first it asks to check the AAPL price,
// then, once a tool result is in the history, it places a mock BUY order.
// Any later turn returns a plain-text stop so the loop terminates.
type MockClient struct{}

// NewMockClient creates a new mock chat client
func NewMockClient() *MockClient {
	log.Warn().Msg("No LLM API key found, using mock client")
	return &MockClient{}
}

// Complete returns the next scripted response based on conversation phase
func (m *MockClient) Complete(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	phase := 0
	for _, msg := range req.Messages {
		if msg.Role == "tool" {
			phase++
		}
	}

	var msg ChatMessage
	switch phase {
	case 0:
		log.Info().Msg("[mock] deciding to check AAPL price")
		msg = ChatMessage{
			Role: "assistant",
			ToolCalls: []ToolCall{{
				ID:   "call_mock_1",
				Type: "function",
				Function: FunctionCall{
					Name:      "get_stock_price",
					Arguments: `{"ticker": "AAPL"}`,
				},
			}},
		}
	case 1:
		log.Info().Msg("[mock] deciding to BUY AAPL")
		msg = ChatMessage{
			Role: "assistant",
			ToolCalls: []ToolCall{{
				ID:   "call_mock_2",
				Type: "function",
				Function: FunctionCall{
					Name:      "place_trade_orders",
					Arguments: `{"trades": [{"action": "BUY", "ticker": "AAPL", "shares": 100, "reason": "Mock trade"}]}`,
				},
			}},
		}
	default:
		msg = ChatMessage{
			Role:    "assistant",
			Content: "No trade: mock script complete.",
		}
	}

	return &ChatResponse{
		ID:      "mock",
		Object:  "chat.completion",
		Model:   "mock",
		Choices: []Choice{{Message: msg, FinishReason: "stop"}},
	}, nil
}
