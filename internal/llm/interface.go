package llm

import "context"

// ChatClient is the interface for chat-completion providers.
// Client talks to a live endpoint; MockClient and ScriptedClient are the
// deterministic variants used without credentials and in tests.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
