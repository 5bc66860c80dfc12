package e2e

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nidhogg/riskline/internal/auditlog"
	"github.com/nidhogg/riskline/internal/schedule"
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(0)
	}

	ctx := context.Background()
	testLogger, _ = zap.NewDevelopment()

	dsn, cleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	testStore, err = auditlog.New(dsn, testLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit store: %v\n", err)
		os.Exit(1)
	}
	defer testStore.Close()

	if err := testStore.Migrate(ctx, "../../migrations"); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	if err := seedSchedule(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "seed schedule: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func TestThinkingLogRoundTrip(t *testing.T) {
	ctx := context.Background()
	sessionID := "e2e-thinking-" + uuid.New().String()
	convID := uuid.New().String()

	stages := []string{"initial_analysis", "tool_selection", "final_synthesis"}
	for i, stage := range stages {
		err := testStore.InsertThinking(ctx, &auditlog.ThinkingEntry{
			AgentName:      "SCHEDULER_AGENT",
			ThinkingStage:  stage,
			ThoughtContent: fmt.Sprintf("thought %d", i),
			StageOutput:    fmt.Sprintf("output %d", i),
			ConversationID: convID,
			SessionID:      sessionID,
			ModelName:      "test-model",
			UserQuery:      "analyze the schedule",
			CreatedDate:    time.Now().Add(time.Duration(i) * time.Millisecond),
		})
		if err != nil {
			t.Fatalf("insert thinking %s: %v", stage, err)
		}
	}

	entries, err := testStore.ThinkingLogsBySession(ctx, sessionID)
	if err != nil {
		t.Fatalf("query thinking logs: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Insertion order preserved.
	for i, e := range entries {
		if e.ThinkingStage != stages[i] {
			t.Errorf("entry %d: stage = %q, want %q", i, e.ThinkingStage, stages[i])
		}
		if e.Status != "success" {
			t.Errorf("entry %d: status = %q, want success", i, e.Status)
		}
	}

	filtered, err := testStore.ThinkingLogs(ctx, auditlog.LogFilter{
		SessionID: sessionID,
		AgentName: "SCHEDULER_AGENT",
	})
	if err != nil {
		t.Fatalf("filtered query: %v", err)
	}
	if len(filtered) != 3 {
		t.Errorf("filtered query returned %d entries, want 3", len(filtered))
	}
}

func TestThinkingTruncation(t *testing.T) {
	ctx := context.Background()
	sessionID := "e2e-truncate-" + uuid.New().String()

	long := make([]byte, 60000)
	for i := range long {
		long[i] = 'x'
	}
	err := testStore.InsertThinking(ctx, &auditlog.ThinkingEntry{
		AgentName:      "POLITICAL_RISK_AGENT",
		ThinkingStage:  "tool_execution",
		ThoughtContent: string(long),
		ConversationID: uuid.New().String(),
		SessionID:      sessionID,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	entries, err := testStore.ThinkingLogsBySession(ctx, sessionID)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	got := entries[0].ThoughtContent
	if len(got) >= 60000 {
		t.Errorf("thought content not truncated: %d chars", len(got))
	}
	if !strings.HasSuffix(got, auditlog.TruncationMarker) {
		t.Error("truncation marker missing")
	}
}

func TestEventLogAndSessionViews(t *testing.T) {
	ctx := context.Background()
	sessionID := "e2e-events-" + uuid.New().String()
	convID := uuid.New().String()
	base := time.Now()

	turns := []struct {
		agent, action, output string
	}{
		{"USER", "User Query", ""},
		{"SCHEDULER_AGENT", "Generated schedule analysis", "SCHEDULER_AGENT > delays found"},
		{"REPORTING_AGENT", "Generated consolidated report", "REPORTING_AGENT > report saved"},
	}
	for i, turn := range turns {
		err := testStore.InsertEvent(ctx, &auditlog.EventEntry{
			AgentName:      turn.agent,
			EventTime:      base.Add(time.Duration(i) * time.Second),
			Action:         turn.action,
			UserQuery:      "schedule risk report",
			AgentOutput:    turn.output,
			ConversationID: convID,
			SessionID:      sessionID,
		})
		if err != nil {
			t.Fatalf("insert event %d: %v", i, err)
		}
	}

	events, err := testStore.EventsBySession(ctx, sessionID)
	if err != nil {
		t.Fatalf("events by session: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].AgentName != "USER" || events[2].AgentName != "REPORTING_AGENT" {
		t.Errorf("events out of insertion order: %s ... %s", events[0].AgentName, events[2].AgentName)
	}

	summaries, err := testStore.SessionSummaries(ctx)
	if err != nil {
		t.Fatalf("session summaries: %v", err)
	}
	found := false
	for _, s := range summaries {
		if s.SessionID == sessionID {
			found = true
			if s.UserQuery != "schedule risk report" {
				t.Errorf("summary query = %q", s.UserQuery)
			}
		}
	}
	if !found {
		t.Error("session missing from summaries")
	}
}

func TestReportRecords(t *testing.T) {
	ctx := context.Background()
	sessionID := "e2e-reports-" + uuid.New().String()

	rec := &auditlog.ReportRecord{
		SessionID:      sessionID,
		ConversationID: uuid.New().String(),
		Filename:       "risk_report_20260824.md",
		BlobURL:        "http://localhost:8000/reports/risk_report_20260824.md",
		ReportType:     "comprehensive_risk",
	}
	if err := testStore.InsertReport(ctx, rec); err != nil {
		t.Fatalf("insert report: %v", err)
	}
	if rec.ReportID == "" {
		t.Fatal("report ID not assigned")
	}

	reports, err := testStore.Reports(ctx)
	if err != nil {
		t.Fatalf("query reports: %v", err)
	}
	found := false
	for _, r := range reports {
		if r.ReportID == rec.ReportID {
			found = true
			if r.Filename != rec.Filename || r.ReportType != rec.ReportType {
				t.Errorf("report fields lost: %+v", r)
			}
		}
	}
	if !found {
		t.Error("report missing from listing")
	}
}

func TestCountryRiskHeatmap(t *testing.T) {
	ctx := context.Background()
	sessionID := "e2e-heatmap-" + uuid.New().String()
	convID := uuid.New().String()

	rows := []auditlog.CountryRisk{
		{ConversationID: convID, SessionID: sessionID, Country: "Germany", RiskType: "Export Controls", Likelihood: 3},
		{ConversationID: convID, SessionID: sessionID, Country: "Germany", RiskType: "Sanctions", Likelihood: 5},
		{ConversationID: convID, SessionID: sessionID, Country: "Brazil", RiskType: "Trade Policy", Likelihood: 2},
	}
	if err := testStore.InsertCountryRisks(ctx, rows); err != nil {
		t.Fatalf("insert country risks: %v", err)
	}

	heat, err := testStore.Heatmap(ctx, convID, sessionID)
	if err != nil {
		t.Fatalf("heatmap: %v", err)
	}
	if len(heat) != 2 {
		t.Fatalf("expected 2 countries, got %d", len(heat))
	}
	// Ordered by country name.
	if heat[0].Country != "Brazil" || heat[1].Country != "Germany" {
		t.Errorf("unexpected order: %s, %s", heat[0].Country, heat[1].Country)
	}
	if heat[1].AverageRisk != "4.00" {
		t.Errorf("germany average = %q, want 4.00", heat[1].AverageRisk)
	}

	var breakdown []struct {
		RiskType   string `json:"risk_type"`
		Likelihood int    `json:"likelihood"`
	}
	if err := json.Unmarshal([]byte(heat[1].Breakdown), &breakdown); err != nil {
		t.Fatalf("breakdown not valid JSON: %v", err)
	}
	if len(breakdown) != 2 {
		t.Errorf("germany breakdown has %d rows, want 2", len(breakdown))
	}

	// Other conversations stay isolated.
	other, err := testStore.Heatmap(ctx, uuid.New().String(), sessionID)
	if err != nil {
		t.Fatalf("heatmap other conv: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected empty heatmap for unknown conversation, got %d rows", len(other))
	}
}

func TestScheduleComparison(t *testing.T) {
	ctx := context.Background()
	src := schedule.NewPGSource(testStore.Pool(), testLogger)

	items, err := src.Fetch(ctx)
	if err != nil {
		t.Fatalf("fetch schedule: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	byCode := make(map[string]schedule.Item, len(items))
	for _, it := range items {
		byCode[it.EquipmentCode] = it
	}

	late, ok := byCode["EQ-1001"]
	if !ok {
		t.Fatal("EQ-1001 missing")
	}
	if late.DaysVariance != 35 {
		t.Errorf("EQ-1001 variance = %d, want 35", late.DaysVariance)
	}
	// 35 days late against a 30 day horizon is well past the high tier.
	if late.RiskLevel != "High Risk" {
		t.Errorf("EQ-1001 risk level = %q, want High Risk", late.RiskLevel)
	}
	if late.RiskPercentage <= 100 {
		t.Errorf("EQ-1001 risk percentage = %v, want > 100", late.RiskPercentage)
	}

	early := byCode["EQ-1002"]
	if early.DaysVariance != -7 {
		t.Errorf("EQ-1002 variance = %d, want -7", early.DaysVariance)
	}
	onTime := byCode["EQ-1003"]
	if onTime.DaysVariance != 0 {
		t.Errorf("EQ-1003 variance = %d, want 0", onTime.DaysVariance)
	}
}
