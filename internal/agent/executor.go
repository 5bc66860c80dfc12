package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nidhogg/riskline/internal/provider"
)

// Unavailable is the fixed degraded output a stage produces when no model
// backend can serve it. The pipeline keeps advancing on this value so one
// dead provider never wedges a turn.
const Unavailable = "Agent not available"

// maxToolRounds caps the propose-execute loop of a single stage execution.
const maxToolRounds = 8

// Executor runs one stage against the provider router, driving the tool
// loop until the model produces a final message.
type Executor struct {
	router *provider.Router
	model  string
	logger *zap.Logger
}

// NewExecutor creates a stage executor. model may be empty to use each
// provider's default.
func NewExecutor(router *provider.Router, model string, logger *zap.Logger) *Executor {
	return &Executor{router: router, model: model, logger: logger}
}

// Run executes a stage over the conversation transcript. The returned string
// is always usable as the stage's output: backend failures degrade to the
// Unavailable placeholder rather than an error, because stage output is
// conversation content, not a fault the caller can retry.
func (e *Executor) Run(ctx context.Context, stage *Stage, transcript []provider.Message, turn Turn) (string, *Trace) {
	trace := &Trace{
		Stage:     stage.Name,
		StartedAt: time.Now(),
	}
	defer func() { trace.Duration = time.Since(trace.StartedAt) }()

	if e.router == nil || !e.router.Available() {
		e.logger.Warn("no provider available for stage", zap.String("stage", stage.Name))
		return Unavailable, trace
	}

	messages := make([]provider.Message, 0, len(transcript)+1)
	messages = append(messages, provider.Message{Role: "system", Content: stage.Instructions})
	messages = append(messages, transcript...)

	req := &provider.ChatRequest{
		Model:     e.model,
		Messages:  messages,
		MaxTokens: 4096,
	}
	if stage.Tools != nil && len(stage.Tools.Definitions()) > 0 {
		req.Tools = stage.Tools.Definitions()
		req.ToolChoice = "auto"
	}

	trace.Steps = append(trace.Steps, TraceStep{
		Type:      StepReasoning,
		Content:   "Sending request to LLM",
		Timestamp: time.Now(),
	})

	var resp *provider.ChatResponse
	for round := 0; round < maxToolRounds; round++ {
		var routeErr error
		resp, routeErr = e.router.Route(ctx, req)
		if routeErr != nil {
			e.logger.Error("stage execution failed",
				zap.String("stage", stage.Name),
				zap.Error(routeErr))
			return Unavailable, trace
		}

		if len(resp.ToolCalls) == 0 || resp.FinishReason != "tool_calls" {
			break
		}

		trace.Steps = append(trace.Steps, TraceStep{
			Type:      StepToolCall,
			Content:   fmt.Sprintf("Calling %d tool(s)", len(resp.ToolCalls)),
			Timestamp: time.Now(),
		})

		req.Messages = append(req.Messages, provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			result, toolErr := stage.Tools.Execute(ctx, turn, tc.Function.Name, tc.Function.Arguments)
			if toolErr != nil {
				result = fmt.Sprintf(`{"error":%q}`, toolErr.Error())
			}
			trace.Steps = append(trace.Steps, TraceStep{
				Type:      StepToolResult,
				Content:   fmt.Sprintf("%s -> %s", tc.Function.Name, truncateStr(result, 200)),
				Timestamp: time.Now(),
			})
			req.Messages = append(req.Messages, provider.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}

		e.logger.Debug("tool round complete",
			zap.String("stage", stage.Name),
			zap.Int("round", round+1),
			zap.Int("tool_calls", len(resp.ToolCalls)))
	}

	trace.Steps = append(trace.Steps, TraceStep{
		Type:       StepResponse,
		Content:    resp.Content,
		Timestamp:  time.Now(),
		TokensUsed: resp.Usage.TotalTokens,
	})

	return resp.Content, trace
}

func truncateStr(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
