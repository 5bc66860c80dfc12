package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nidhogg/riskline/internal/agent"
	"github.com/nidhogg/riskline/internal/auditlog"
	"github.com/nidhogg/riskline/internal/provider"
)

// maxHops bounds the state machine walk. The longest legal path is
// router -> scheduler -> risk stage -> reporting -> done.
const maxHops = 6

// Pipeline drives one turn through the routing state machine: classify the
// user message, force risk targets through the scheduler for baseline data,
// run the chosen stages in order and consolidate through reporting.
type Pipeline struct {
	stages     *agent.StageSet
	exec       *agent.Executor
	classifier Classifier
	sessions   *Sessions
	audit      *auditlog.Store
	bus        *EventBus
	logger     *zap.Logger
}

// New creates a pipeline. audit and bus may be nil; stage work proceeds and
// the corresponding records are skipped.
func New(stages *agent.StageSet, exec *agent.Executor, classifier Classifier, sessions *Sessions, audit *auditlog.Store, bus *EventBus, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		stages:     stages,
		exec:       exec,
		classifier: classifier,
		sessions:   sessions,
		audit:      audit,
		bus:        bus,
		logger:     logger,
	}
}

// Result is the outcome of one completed turn.
type Result struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
}

// Sessions exposes the session table for lifecycle control.
func (p *Pipeline) Sessions() *Sessions { return p.sessions }

// Process runs one user message through the state machine and returns the
// final stage output. The turn is appended to the session transcript only on
// success; on error the caller evicts the session, so a failed turn leaves
// no trace in the conversation.
func (p *Pipeline) Process(ctx context.Context, sessionID, message string) (*Result, error) {
	conversationID, transcript := p.sessions.GetOrCreate(sessionID)
	turn := agent.Turn{
		ConversationID: conversationID,
		SessionID:      sessionID,
		UserQuery:      message,
	}

	working := append(transcript, provider.Message{Role: "user", Content: message})

	if p.audit != nil {
		err := p.audit.InsertEvent(ctx, &auditlog.EventEntry{
			AgentName:      "USER",
			Action:         "User Query",
			UserQuery:      message,
			ConversationID: conversationID,
			SessionID:      sessionID,
		})
		if err != nil {
			p.logger.Warn("user event insert failed", zap.Error(err))
		}
	}

	state := StateRouter
	for hop := 0; state != StateDone && hop < maxHops; hop++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("turn aborted in state %s: %w", state, err)
		}

		switch state {
		case StateRouter:
			// Every risk target needs baseline schedule data first, so only
			// the assistant bypasses the scheduler.
			if p.classifier.First(message) == StateAssistant {
				state = StateAssistant
			} else {
				state = StateScheduler
			}

		case StateScheduler:
			working = p.runStage(ctx, p.stages.Scheduler, working, turn)
			state = p.classifier.AfterScheduler(working)

		case StatePolitical:
			working = p.runStage(ctx, p.stages.Political, working, turn)
			state = StateReporting

		case StateTariff:
			working = p.runStage(ctx, p.stages.Tariff, working, turn)
			state = StateReporting

		case StateLogistics:
			working = p.runStage(ctx, p.stages.Logistics, working, turn)
			state = StateReporting

		case StateReporting:
			working = p.runStage(ctx, p.stages.Reporting, working, turn)
			state = StateDone

		case StateAssistant:
			working = p.runStage(ctx, p.stages.Assistant, working, turn)
			state = StateDone

		default:
			return nil, fmt.Errorf("unknown pipeline state: %s", state)
		}
	}

	// A turn whose deadline expired mid-stage produced degraded output; it
	// must not enter the transcript.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("turn aborted: %w", err)
	}

	response := working[len(working)-1].Content
	p.sessions.AppendTurn(sessionID, message, response)

	return &Result{
		Response:       response,
		ConversationID: conversationID,
	}, nil
}

// runStage executes one stage over the working transcript and appends its
// tagged output. Event and stream records are best-effort.
func (p *Pipeline) runStage(ctx context.Context, st *agent.Stage, working []provider.Message, turn agent.Turn) []provider.Message {
	out, trace := p.exec.Run(ctx, st, working, turn)
	tagged := st.Name + " > " + out
	working = append(working, provider.Message{Role: "assistant", Content: tagged})

	p.logger.Info("stage complete",
		zap.String("stage", st.Name),
		zap.String("conversation", turn.ConversationID),
		zap.Duration("duration", trace.Duration),
		zap.Int("steps", len(trace.Steps)))

	if p.audit != nil {
		err := p.audit.InsertEvent(ctx, &auditlog.EventEntry{
			AgentName:      st.Name,
			Action:         st.Action,
			ResultSummary:  truncateSummary(out),
			UserQuery:      turn.UserQuery,
			AgentOutput:    tagged,
			ConversationID: turn.ConversationID,
			SessionID:      turn.SessionID,
		})
		if err != nil {
			p.logger.Warn("stage event insert failed",
				zap.String("stage", st.Name),
				zap.Error(err))
		}
	}

	p.bus.Publish(ctx, &StageEvent{
		ConversationID: turn.ConversationID,
		SessionID:      turn.SessionID,
		Stage:          st.Name,
		Action:         st.Action,
	})

	return working
}

func truncateSummary(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
