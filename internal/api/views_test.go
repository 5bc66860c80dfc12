package api

import (
	"testing"
	"time"

	"github.com/nidhogg/riskline/internal/auditlog"
)

func ts(sec int) time.Time {
	return time.Date(2025, 6, 1, 12, 0, sec, 0, time.UTC)
}

func TestGroupSessions(t *testing.T) {
	events := []auditlog.EventEntry{
		{SessionID: "s1", ConversationID: "c1", EventTime: ts(0), AgentName: "USER", Action: "User Query", UserQuery: "political risks"},
		{SessionID: "s1", ConversationID: "c1", EventTime: ts(5), AgentName: "SCHEDULER_AGENT", Action: "Generated schedule analysis"},
		{SessionID: "s2", ConversationID: "c2", EventTime: ts(3), AgentName: "USER", Action: "User Query", UserQuery: "hello"},
		{SessionID: "s1", ConversationID: "c3", EventTime: ts(9), AgentName: "USER", Action: "User Query", UserQuery: "again"},
	}

	views := groupSessions(events)
	if len(views) != 2 {
		t.Fatalf("sessions = %d, want 2", len(views))
	}
	if views[0].SessionID != "s1" || views[1].SessionID != "s2" {
		t.Errorf("session order = %s, %s", views[0].SessionID, views[1].SessionID)
	}
	if len(views[0].Conversations) != 2 {
		t.Fatalf("s1 conversations = %d, want 2", len(views[0].Conversations))
	}

	c1 := views[0].Conversations[0]
	if c1.ConversationID != "c1" || len(c1.Messages) != 2 {
		t.Errorf("c1 = %+v", c1)
	}
	if !c1.LastInteraction.Equal(ts(5)) {
		t.Errorf("last interaction = %v, want %v", c1.LastInteraction, ts(5))
	}
}

func TestGroupThinking(t *testing.T) {
	entries := []auditlog.ThinkingEntry{
		{SessionID: "s1", ConversationID: "c1", AgentName: "SCHEDULER_AGENT", ThinkingStage: "analysis_start", ThoughtContent: "begin", CreatedDate: ts(0)},
		{SessionID: "s1", ConversationID: "c1", AgentName: "SCHEDULER_AGENT", ThinkingStage: "data_review", ThoughtContent: "looking", CreatedDate: ts(1), UserQuery: "political risks"},
		{SessionID: "s1", ConversationID: "c1", AgentName: "POLITICAL_RISK_AGENT", ThinkingStage: "search_attempt", ThoughtContent: "searching", CreatedDate: ts(2)},
	}

	views := groupThinking(entries)
	if len(views) != 1 {
		t.Fatalf("views = %d, want 1", len(views))
	}
	conv := views[0].Conversations[0]
	if conv.UserQuery != "political risks" {
		t.Errorf("user query backfill failed: %q", conv.UserQuery)
	}
	if len(conv.Agents) != 2 {
		t.Fatalf("agents = %d, want 2", len(conv.Agents))
	}
	if conv.Agents[0].AgentName != "SCHEDULER_AGENT" || len(conv.Agents[0].Thoughts) != 2 {
		t.Errorf("scheduler agent grouping wrong: %+v", conv.Agents[0])
	}
	if !conv.Agents[0].FirstAppearance.Equal(ts(0)) {
		t.Errorf("first appearance = %v", conv.Agents[0].FirstAppearance)
	}
}

func TestFirstQueries(t *testing.T) {
	entries := []auditlog.ThinkingEntry{
		{SessionID: "s1", UserQuery: "first"},
		{SessionID: "s1", UserQuery: "second"},
		{SessionID: "s2"},
		{SessionID: "s2", UserQuery: "other"},
	}
	out := firstQueries(entries)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].SessionID != "s1" || out[0].FirstQuery != "first" {
		t.Errorf("out[0] = %+v", out[0])
	}
	if out[1].FirstQuery != "other" {
		t.Errorf("out[1] = %+v", out[1])
	}
}
