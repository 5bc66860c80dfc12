package pipeline

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/nidhogg/riskline/internal/agent"
	"github.com/nidhogg/riskline/internal/provider"
)

// echoProvider answers every stage with fixed content and records the system
// prompt of each request, which identifies the stage that ran.
type echoProvider struct {
	sysPrompts []string
}

func (p *echoProvider) ID() string   { return "echo" }
func (p *echoProvider) Name() string { return "Echo" }

func (p *echoProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	if len(req.Messages) > 0 && req.Messages[0].Role == "system" {
		p.sysPrompts = append(p.sysPrompts, req.Messages[0].Content)
	}
	return &provider.ChatResponse{Content: "analysis complete", FinishReason: "stop"}, nil
}

func (p *echoProvider) HealthCheck(ctx context.Context) error { return nil }

func emptyStages() *agent.StageSet {
	return &agent.StageSet{
		Scheduler: agent.NewSchedulerStage(agent.NewToolRegistry()),
		Political: agent.NewPoliticalStage(agent.NewToolRegistry()),
		Tariff:    agent.NewTariffStage(agent.NewToolRegistry()),
		Logistics: agent.NewLogisticsStage(agent.NewToolRegistry()),
		Reporting: agent.NewReportingStage(agent.NewToolRegistry()),
		Assistant: agent.NewAssistantStage(agent.NewToolRegistry()),
	}
}

func newTestPipeline(t *testing.T) (*Pipeline, *echoProvider, *agent.StageSet) {
	t.Helper()
	p := &echoProvider{}
	router := provider.NewRouter(zap.NewNop())
	router.Register(p)

	stages := emptyStages()
	exec := agent.NewExecutor(router, "", zap.NewNop())
	pl := New(stages, exec, KeywordClassifier{}, NewSessions(zap.NewNop()), nil, nil, zap.NewNop())
	return pl, p, stages
}

// stagePath maps recorded system prompts back to stage names.
func stagePath(p *echoProvider, stages *agent.StageSet) []string {
	byInstructions := map[string]string{
		stages.Scheduler.Instructions: stages.Scheduler.Name,
		stages.Political.Instructions: stages.Political.Name,
		stages.Tariff.Instructions:    stages.Tariff.Name,
		stages.Logistics.Instructions: stages.Logistics.Name,
		stages.Reporting.Instructions: stages.Reporting.Name,
		stages.Assistant.Instructions: stages.Assistant.Name,
	}
	var path []string
	for _, sp := range p.sysPrompts {
		path = append(path, byInstructions[sp])
	}
	return path
}

func TestProcessPoliticalPath(t *testing.T) {
	pl, p, stages := newTestPipeline(t)

	res, err := pl.Process(context.Background(), "sess-1", "What political risks affect my equipment schedule?")
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	want := []string{agent.SchedulerAgent, agent.PoliticalRiskAgent, agent.ReportingAgent}
	got := stagePath(p, stages)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("stage path = %v, want %v", got, want)
	}
	if !strings.HasPrefix(res.Response, "REPORTING_AGENT > ") {
		t.Errorf("response = %q, want REPORTING_AGENT prefix", res.Response)
	}
}

func TestProcessAssistantPath(t *testing.T) {
	pl, p, stages := newTestPipeline(t)

	res, err := pl.Process(context.Background(), "sess-1", "hello, what can you do?")
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	got := stagePath(p, stages)
	if len(got) != 1 || got[0] != agent.AssistantAgent {
		t.Errorf("stage path = %v, want assistant only", got)
	}
	if !strings.HasPrefix(res.Response, "ASSISTANT_AGENT > ") {
		t.Errorf("response = %q", res.Response)
	}
}

func TestProcessScheduleOnlyEndsAfterScheduler(t *testing.T) {
	pl, p, stages := newTestPipeline(t)

	res, err := pl.Process(context.Background(), "sess-1", "show me the schedule")
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	got := stagePath(p, stages)
	if len(got) != 1 || got[0] != agent.SchedulerAgent {
		t.Errorf("stage path = %v, want scheduler only", got)
	}
	if !strings.HasPrefix(res.Response, "SCHEDULER_AGENT > ") {
		t.Errorf("response = %q", res.Response)
	}
}

func TestProcessRiskReportReachesReporting(t *testing.T) {
	pl, p, stages := newTestPipeline(t)

	res, err := pl.Process(context.Background(), "sess-1",
		"Analyze the current equipment schedule and generate a comprehensive risk report.")
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	want := []string{agent.SchedulerAgent, agent.ReportingAgent}
	got := stagePath(p, stages)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("stage path = %v, want %v", got, want)
	}
	if !strings.HasPrefix(res.Response, "REPORTING_AGENT > ") {
		t.Errorf("response = %q", res.Response)
	}
}

func TestProcessReportWithoutRiskKeywordGoesToAssistant(t *testing.T) {
	pl, p, stages := newTestPipeline(t)

	// "report" alone is not a first-pass keyword, so the reporting stage is
	// unreachable from a bare report request.
	_, err := pl.Process(context.Background(), "sess-1", "give me a report")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	got := stagePath(p, stages)
	if len(got) != 1 || got[0] != agent.AssistantAgent {
		t.Errorf("stage path = %v, want assistant only", got)
	}
}

func TestProcessAppendsOnlyFinalResponse(t *testing.T) {
	pl, _, _ := newTestPipeline(t)

	res, err := pl.Process(context.Background(), "sess-1", "political risk check")
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	// Intermediate stage outputs stay within the turn; the transcript keeps
	// the user message and the final response only.
	_, transcript := pl.Sessions().GetOrCreate("sess-1")
	if len(transcript) != 2 {
		t.Fatalf("transcript = %d messages, want 2", len(transcript))
	}
	if transcript[1].Content != res.Response {
		t.Errorf("stored response %q != returned %q", transcript[1].Content, res.Response)
	}
}

func TestProcessCancelledContextLeavesTranscriptUntouched(t *testing.T) {
	pl, _, _ := newTestPipeline(t)

	pl.Process(context.Background(), "sess-1", "hello")
	_, before := pl.Sessions().GetOrCreate("sess-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pl.Process(ctx, "sess-1", "political risks"); err == nil {
		t.Fatal("expected error from cancelled context")
	}

	_, after := pl.Sessions().GetOrCreate("sess-1")
	if len(after) != len(before) {
		t.Errorf("failed turn mutated transcript: %d -> %d messages", len(before), len(after))
	}
}

func TestProcessConversationIDStableAcrossTurns(t *testing.T) {
	pl, _, _ := newTestPipeline(t)

	r1, _ := pl.Process(context.Background(), "sess-1", "hello")
	r2, _ := pl.Process(context.Background(), "sess-1", "hello again")
	if r1.ConversationID != r2.ConversationID {
		t.Error("conversation id changed between turns")
	}

	pl.Sessions().Evict("sess-1")
	r3, _ := pl.Process(context.Background(), "sess-1", "hello once more")
	if r3.ConversationID == r1.ConversationID {
		t.Error("conversation id survived eviction")
	}
}
