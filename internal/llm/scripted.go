package llm

import "context"

// ScriptedClient replays a fixed sequence of responses and records every
// request it receives. Test double for the conversation loop.
type ScriptedClient struct {
	Responses []*ChatResponse
	Err       error // returned once all responses are consumed, or immediately if set with no responses
	Requests  []ChatRequest
	next      int
}

// TextResponse builds a plain-text assistant response
func TextResponse(content string) *ChatResponse {
	return &ChatResponse{
		Choices: []Choice{{
			Message:      ChatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
	}
}

// ToolCallResponse builds an assistant response carrying the given tool calls
func ToolCallResponse(calls ...ToolCall) *ChatResponse {
	return &ChatResponse{
		Choices: []Choice{{
			Message:      ChatMessage{Role: "assistant", ToolCalls: calls},
			FinishReason: "tool_calls",
		}},
	}
}

// Complete returns the next scripted response
func (s *ScriptedClient) Complete(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	s.Requests = append(s.Requests, req)
	if s.next >= len(s.Responses) {
		if s.Err != nil {
			return nil, s.Err
		}
		return &ChatResponse{}, nil
	}
	resp := s.Responses[s.next]
	s.next++
	return resp, nil
}
