package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ajitpratap0/equityfunk/internal/config"
	"github.com/ajitpratap0/equityfunk/internal/llm"
	"github.com/ajitpratap0/equityfunk/internal/metrics"
)

// ToolDispatcher executes one tool call and renders its outcome as a
// string for the tool message
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name string, args json.RawMessage) string
}

// Orchestrator drives one multi-turn conversation with the model per
// trading cycle. It sends the tool catalog on every request, executes
// every tool call the model issues in order, and stops on a text-only
// reply, an empty reply, an API failure or the turn limit.
type Orchestrator struct {
	client     llm.ChatClient
	dispatcher ToolDispatcher
	tools      []llm.Tool
	maxTurns   int
	logger     zerolog.Logger
}

// NewOrchestrator creates a conversation orchestrator
func NewOrchestrator(client llm.ChatClient, dispatcher ToolDispatcher, cfg config.TradingConfig) *Orchestrator {
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &Orchestrator{
		client:     client,
		dispatcher: dispatcher,
		tools:      Catalog(),
		maxTurns:   maxTurns,
		logger:     zerolog.Nop(),
	}
}

// WithLogger sets the orchestrator logger
func (o *Orchestrator) WithLogger(logger zerolog.Logger) *Orchestrator {
	o.logger = logger.With().Str("component", "orchestrator").Logger()
	return o
}

// Run executes one conversation to completion. The history starts from
// scratch each cycle; persistent state lives in the stores, not here.
func (o *Orchestrator) Run(ctx context.Context, cycleID, systemPrompt, userPrompt string) error {
	logger := o.logger.With().Str("cycle_id", cycleID).Logger()

	messages := []llm.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	for turn := 1; turn <= o.maxTurns; turn++ {
		metrics.ModelTurnsTotal.Inc()

		resp, err := o.client.Complete(ctx, llm.ChatRequest{
			Messages:   messages,
			Tools:      o.tools,
			ToolChoice: "auto",
		})
		if err != nil {
			logger.Error().Err(err).Int("turn", turn).Msg("Model request failed, ending cycle")
			return fmt.Errorf("model request: %w", err)
		}
		if len(resp.Choices) == 0 {
			logger.Warn().Int("turn", turn).Msg("Empty response from model, ending cycle")
			return nil
		}

		assistant := resp.Choices[0].Message
		if assistant.Content == "" && len(assistant.ToolCalls) == 0 {
			logger.Warn().Int("turn", turn).Msg("Model returned neither text nor tool calls, ending cycle")
			return nil
		}
		messages = append(messages, assistant)

		if len(assistant.ToolCalls) == 0 {
			// Text-only reply terminates the cycle
			event := "Decision"
			if strings.Contains(strings.ToLower(assistant.Content), "no trade") {
				event = "No-trade decision"
			}
			logger.Info().
				Int("turn", turn).
				Str("event", event).
				Str("response", assistant.Content).
				Msg("Cycle complete")
			return nil
		}

		// Every tool call gets an answer before the next model request
		for _, call := range assistant.ToolCalls {
			result := o.dispatcher.Dispatch(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			messages = append(messages, llm.ChatMessage{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	logger.Warn().Int("max_turns", o.maxTurns).Msg("Turn limit reached, ending cycle")
	return nil
}
